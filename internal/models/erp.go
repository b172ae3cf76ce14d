package models

import (
	"time"
)

// ERP source entities are immutable per sync cycle. Each pull replaces the
// local copy wholesale (delete + reinsert inside one transaction); nothing in
// this application ever updates these rows in place. They carry surrogate
// auto-increment keys because the natural business keys are not unique in
// every table (sales order items repeat item numbers across sequences).

// Branch is an ERP branch/site the device can be assigned to.
type Branch struct {
	ID               uint   `gorm:"primaryKey" json:"-"`
	BranchID         string `gorm:"type:varchar(32);uniqueIndex" json:"branchId"`
	BranchName       string `json:"branchName"`
	BranchEmail      string `json:"branchEmail"`
	BranchSvcRepEmail string `json:"branchSvcRepEmail"`
}

// TableName specifies the table name
func (Branch) TableName() string { return "branches" }

// SalesOrder is the ERP order header.
type SalesOrder struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`
	SalesOrderNumber     string    `gorm:"type:varchar(32);index" json:"salesOrderNumber"`
	DocumentDate         time.Time `json:"documentDate"`
	CustomerNumber       string    `gorm:"type:varchar(32)" json:"customerNumber"`
	CustomerName         string    `json:"customerName"`
	CustomerMobileNumber string    `gorm:"type:varchar(32)" json:"customerMobileNumber"`
	CustomerInfoID       string    `gorm:"type:varchar(64)" json:"customerInfoId"`
	ShipToName           string    `json:"shipToName"`
	ShipToSalesRepID     string    `gorm:"type:varchar(32)" json:"shipToSalesRepId"`
	Address1             string    `json:"address1"`
	Address2             string    `json:"address2"`
	Address3             string    `json:"address3"`
	City                 string    `json:"city"`
	State                string    `gorm:"type:varchar(16)" json:"state"`
	Zip                  string    `gorm:"type:varchar(16)" json:"zip"`
	LocationCode         string    `gorm:"type:varchar(32)" json:"locationCode"`
	SalesRepName         string    `json:"salesRepName"`
	SalesRepEmail        string    `json:"salesRepEmail"`
	SalesRepMobileNumber string    `gorm:"type:varchar(32)" json:"salesRepMobileNumber"`
}

// TableName specifies the table name
func (SalesOrder) TableName() string { return "sales_orders" }

// SalesOrderItem is one ERP order line. (SalesOrderNumber, ItemNumber, Seq)
// identifies a line; the same item number can appear more than once on an
// order under distinct sequences.
type SalesOrderItem struct {
	ID                uint    `gorm:"primaryKey" json:"-"`
	SalesOrderNumber  string  `gorm:"type:varchar(32);index" json:"salesOrderNumber"`
	SalesOrderType    int     `json:"salesOrderType"`
	Seq               int     `json:"seq"`
	ItemNumber        string  `gorm:"type:varchar(64);index" json:"itemNumber"`
	ItemDescription   string  `json:"itemDescription"`
	ItemQuantity      float64 `json:"itemQuantity"`
	IsLotControlled   bool    `json:"isLotControlled"`
	LotNumber         string  `gorm:"type:varchar(64)" json:"lotNumber"`
	LotQuantity       float64 `json:"lotQuantity"`
	Uom               string  `gorm:"type:varchar(16)" json:"uom"`
	UpcCodes          string  `json:"upcCodes"`
	LocationCode      string  `gorm:"type:varchar(32)" json:"locationCode"`
	BranchID          string  `gorm:"type:varchar(32);index" json:"branchId"`
	BranchDescription string  `json:"branchDescription"`
}

// TableName specifies the table name
func (SalesOrderItem) TableName() string { return "sales_order_items" }

// Lot is an ERP inventory lot available for picking.
type Lot struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	LotNumber  string  `gorm:"type:varchar(64);index" json:"lotNumber"`
	ItemNumber string  `gorm:"type:varchar(64);index" json:"itemNumber"`
	Quantity   float64 `json:"quantity"`
	SiteID     string  `gorm:"type:varchar(32)" json:"siteId"`
	BranchID   string  `gorm:"type:varchar(32);index" json:"branchId"`
}

// TableName specifies the table name
func (Lot) TableName() string { return "lots" }

// InboundShipment is one open purchase order line awaiting receipt.
type InboundShipment struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	DocumentNumber   string    `gorm:"type:varchar(32);index" json:"documentNumber"`
	DocumentDate     time.Time `json:"documentDate"`
	DocumentType     int       `json:"documentType"`
	PoType           string    `gorm:"type:varchar(16)" json:"poType"`
	PoLineNumber     int       `json:"poLineNumber"`
	LineNum          int       `json:"lineNum"`
	ItemNumber       string    `gorm:"type:varchar(64);index" json:"itemNumber"`
	ItemDescription  string    `json:"itemDescription"`
	IsLotControlled  bool      `json:"isLotControlled"`
	LotNumber        string    `gorm:"type:varchar(64)" json:"lotNumber"`
	QtyLotShipped    float64   `json:"qtyLotShipped"`
	OpenQty          float64   `json:"openQty"`
	OriginalQty      float64   `json:"originalQty"`
	QtyReceived      float64   `json:"qtyReceived"`
	BaseUom          string    `gorm:"type:varchar(16)" json:"baseUom"`
	UpcCodes         string    `json:"upcCodes"`
	VendorID         string    `gorm:"type:varchar(32)" json:"vendorId"`
	VendorName       string    `json:"vendorName"`
	VendorItemNumber string    `gorm:"type:varchar(64)" json:"vendorItemNumber"`
	PromisedShipDate time.Time `json:"promisedShipDate"`
	SiteID           string    `gorm:"type:varchar(32)" json:"siteId"`
	BranchID         string    `gorm:"type:varchar(32);index" json:"branchId"`
	ShipmentFlag     bool      `json:"shipmentFlag"`
}

// TableName specifies the table name
func (InboundShipment) TableName() string { return "inbound_shipments" }

// InboundTransfer is one open inter-site transfer line awaiting receipt.
type InboundTransfer struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	TransferNumber    string    `gorm:"type:varchar(32);index" json:"transferNumber"`
	Seq               int       `json:"seq"`
	ItemNumber        string    `gorm:"type:varchar(64);index" json:"itemNumber"`
	ItemDescription   string    `json:"itemDescription"`
	LotNumber         string    `gorm:"type:varchar(64)" json:"lotNumber"`
	LotType           string    `gorm:"type:varchar(16)" json:"lotType"`
	OpenQty           float64   `json:"openQty"`
	OriginalQty       float64   `json:"originalQty"`
	ReceivedQty       float64   `json:"receivedQty"`
	UnitCost          float64   `json:"unitCost"`
	ExtendedCost      float64   `json:"extendedCost"`
	BaseUom           string    `gorm:"type:varchar(16)" json:"baseUom"`
	UpcCodes          string    `json:"upcCodes"`
	OriginatedSiteID  string    `gorm:"type:varchar(32)" json:"originatedSiteId"`
	DestinationSiteID string    `gorm:"type:varchar(32)" json:"destinationSiteId"`
	PromisedShipDate  time.Time `json:"promisedShipDate"`
	ReferenceNumber   string    `gorm:"type:varchar(32)" json:"referenceNumber"`
	BranchID          string    `gorm:"type:varchar(32);index" json:"branchId"`
}

// TableName specifies the table name
func (InboundTransfer) TableName() string { return "inbound_transfers" }
