package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationCategory identifies one of the independent store-and-forward
// queues. Each category drains on its own cycle.
type NotificationCategory string

const (
	CategoryDelivery         NotificationCategory = "delivery"
	CategoryCustomerInfo     NotificationCategory = "customer_info"
	CategorySalesOrderUpdate NotificationCategory = "sales_order_update"
)

// NotificationEnvelope is a serialized side-effect payload buffered locally
// while the device is offline. The body is opaque to the queue; the
// downstream messaging surface interprets it per category.
type NotificationEnvelope struct {
	ID        string               `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Category  NotificationCategory `gorm:"type:varchar(32);index" json:"category"`
	Body      datatypes.JSON       `json:"body"`
	CreatedAt time.Time            `json:"createdAt"`
}

// TableName specifies the table name
func (NotificationEnvelope) TableName() string { return "notification_envelopes" }

// SalesOrderDelivery is the delivery notice handed to the messaging surface
// when a sales order completes delivery (customer / sales rep SMS trigger).
type SalesOrderDelivery struct {
	SalesOrderNumber     string                   `json:"salesOrderNumber"`
	CustomerName         string                   `json:"customerName"`
	CustomerMobileNumber string                   `json:"customerMobileNumber"`
	SalesRepMobileNumber string                   `json:"salesRepMobileNumber"`
	SendCustomerText     bool                     `json:"sendCustomerText"`
	SendSalesRepText     bool                     `json:"sendSalesRepText"`
	DeliveredLatitude    float64                  `json:"deliveredLatitude"`
	DeliveredLongitude   float64                  `json:"deliveredLongitude"`
	Notes                []string                 `json:"notes"`
	DeliveryItems        []SalesOrderDeliveryItem `json:"deliveryItems"`
}

// SalesOrderDeliveryItem is one delivered line inside a delivery notice.
type SalesOrderDeliveryItem struct {
	ItemDescription string  `json:"itemDescription"`
	ItemQuantity    float64 `json:"itemQuantity"`
	Uom             string  `json:"uom"`
}

// CustomerInfoUpdate notifies downstream that a customer's contact details
// changed in the field.
type CustomerInfoUpdate struct {
	CustomerInfoID       string `json:"customerInfoId"`
	CustomerMobileNumber string `json:"customerMobileNumber"`
}

// SalesOrderUpdateNotice is the email notice issued when a picker overrides
// an ordered quantity.
type SalesOrderUpdateNotice struct {
	SalesOrderNumber    string    `json:"salesOrderNumber"`
	ItemNumber          string    `json:"itemNumber"`
	ItemDescription     string    `json:"itemDescription"`
	LotNumber           string    `json:"lotNumber"`
	Uom                 string    `json:"uom"`
	CustomerNumber      string    `json:"customerNumber"`
	CustomerName        string    `json:"customerName"`
	OriginalQuantity    float64   `json:"originalQuantity"`
	QuantityDelta       float64   `json:"quantityDelta"`
	PickedQuantity      float64   `json:"pickedQuantity"`
	DeliveredQuantity   float64   `json:"deliveredQuantity"`
	ItemQuantity        float64   `json:"itemQuantity"`
	UpdatedItemQuantity float64   `json:"updatedItemQuantity"`
	UserID              string    `json:"userId"`
	BranchID            string    `json:"branchId"`
	BranchEmail         string    `json:"branchEmail"`
	BranchSvcRepEmail   string    `json:"branchSvcRepEmail"`
	SalesRepEmail       string    `json:"salesRepEmail"`
	UpdatedWhen         time.Time `json:"updatedWhen"`
}
