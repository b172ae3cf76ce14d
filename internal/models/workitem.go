package models

import (
	"time"
)

// WorkItemStatus defines the fulfillment state of a sales order work item
type WorkItemStatus string

const (
	StatusOrdered   WorkItemStatus = "ordered"   // Default state, no work item exists yet
	StatusPicked    WorkItemStatus = "picked"    // Entered once the order has been satisfied and confirmed
	StatusDelivered WorkItemStatus = "delivered" // Entered upon order delivery
)

// rank of each status for transition checks. Higher never moves back to lower
// except through en-masse work item deletion.
var statusRank = map[WorkItemStatus]int{
	StatusOrdered:   0,
	StatusPicked:    1,
	StatusDelivered: 2,
}

// CanTransition reports whether moving from s to next is a forward transition.
func (s WorkItemStatus) CanTransition(next WorkItemStatus) bool {
	return statusRank[next] > statusRank[s]
}

// SyncMeta carries the fields the remote table gateway manages on every
// synchronized record: the surrogate id, timestamps, and the opaque version
// token used for optimistic concurrency. Local creates pre-assign a UUID; the
// gateway's response on first push is authoritative for all four fields.
type SyncMeta struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Version   string     `gorm:"type:varchar(64)" json:"version,omitempty"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

// Meta returns the gateway-managed metadata of the record.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// WorkItemFields are common to every locally originated mutation record.
// Each work item tracks who created it, on what device, and for which branch.
type WorkItemFields struct {
	DeviceID    string `gorm:"type:varchar(64);index" json:"deviceId"`
	UserID      string `gorm:"type:varchar(64)" json:"userId"`
	BranchID    string `gorm:"type:varchar(32);index" json:"branchId"`
	PostedToERP bool   `json:"postedToErp"`
}

// SalesOrderWorkItem records a pick (and later delivery) of one sales order
// line. It is the record reconciliation subtracts from the read-only ERP
// sales order item quantities.
type SalesOrderWorkItem struct {
	SyncMeta
	WorkItemFields

	SalesOrderNumber string    `gorm:"type:varchar(32);index" json:"salesOrderNumber"`
	DocumentDate     time.Time `json:"documentDate"`
	CustomerNumber   string    `gorm:"type:varchar(32)" json:"customerNumber"`
	CustomerName     string    `json:"customerName"`

	// OriginalSequence is the line sequence of the ERP sales order item this
	// work item was created from. A single item number can appear on an order
	// more than once as distinct sequences, so reconciliation must match on
	// it, not just on the item number.
	OriginalSequence int `json:"originalSequence"`

	// ItemSequence is zeroed when another work item already exists for the
	// same order and original sequence, so downstream posting aggregates
	// follow-on picks instead of double-posting the line.
	ItemSequence int `json:"itemSequence"`

	ItemNumber      string `gorm:"type:varchar(64);index" json:"itemNumber"`
	ItemDescription string `json:"itemDescription"`
	IsLotControlled bool   `json:"isLotControlled"`
	Uom             string `gorm:"type:varchar(16)" json:"uom"`

	LotNumber         string `gorm:"type:varchar(64)" json:"lotNumber"`
	OriginalLotNumber string `gorm:"type:varchar(64)" json:"originalLotNumber"`

	OriginalQuantity float64 `json:"originalQuantity"`

	// QuantityDelta is the remaining item quantity minus the quantity the
	// user entered. It participates in fulfillment math together with the
	// picked quantity.
	QuantityDelta     float64 `json:"quantityDelta"`
	PickedQuantity    float64 `json:"pickedQuantity"`
	DeliveredQuantity float64 `json:"deliveredQuantity"`

	Status WorkItemStatus `gorm:"type:varchar(16);default:ordered;index" json:"status"`

	PickedLatitude  float64    `json:"pickedLatitude"`
	PickedLongitude float64    `json:"pickedLongitude"`
	PickedBy        string     `gorm:"type:varchar(64)" json:"pickedBy"`
	PickedByName    string     `json:"pickedByName"`
	PickedWhen      *time.Time `json:"pickedWhen,omitempty"`

	CustomerAvailable  bool       `json:"customerAvailable"`
	DeliveredLatitude  float64    `json:"deliveredLatitude"`
	DeliveredLongitude float64    `json:"deliveredLongitude"`
	DeliveredBy        string     `gorm:"type:varchar(64)" json:"deliveredBy"`
	DeliveredByName    string     `json:"deliveredByName"`
	DeliveredWhen      *time.Time `json:"deliveredWhen,omitempty"`
}

// TableName specifies the table name
func (SalesOrderWorkItem) TableName() string { return "sales_order_work_items" }

// TakenQuantity is the quantity a work item accounts for in the deliver
// workflow: the delivered quantity when set, else the picked quantity.
// Delivery defaults to whatever was picked until explicitly overridden.
func (w *SalesOrderWorkItem) TakenQuantity() float64 {
	if w.DeliveredQuantity != 0 {
		return w.DeliveredQuantity
	}
	return w.PickedQuantity
}

// ReceiptWorkItem records a received quantity against an inbound shipment
// (purchase order) line.
type ReceiptWorkItem struct {
	SyncMeta
	WorkItemFields

	Date             time.Time `json:"date"`
	BatchID          string    `gorm:"type:varchar(32)" json:"batchId"`
	VendorID         string    `gorm:"type:varchar(32)" json:"vendorId"`
	VendorName       string    `json:"vendorName"`
	VendorItemNumber string    `gorm:"type:varchar(64)" json:"vendorItemNumber"`
	PoNumber         string    `gorm:"type:varchar(32);index" json:"poNumber"`
	PoLineNumber     string    `gorm:"type:varchar(16)" json:"poLineNumber"`
	RcpLineNumber    int       `json:"rcpLineNumber"`
	ItemNumber       string    `gorm:"type:varchar(64);index" json:"itemNumber"`
	ItemDescription  string    `json:"itemDescription"`
	IsLotControlled  bool      `json:"isLotControlled"`
	Quantity         float64   `json:"quantity"`
	Uom              string    `gorm:"type:varchar(16)" json:"uom"`
	LotNumber        string    `gorm:"type:varchar(64)" json:"lotNumber"`
	UserName         string    `json:"userName"`

	// A held work item is excluded when receipts are aggregated for posting.
	IsHeld bool `json:"isHeld"`
}

// TableName specifies the table name
func (ReceiptWorkItem) TableName() string { return "receipt_work_items" }

// TransferWorkItem records a received quantity against an inbound transfer
// line.
type TransferWorkItem struct {
	SyncMeta
	WorkItemFields

	Date             time.Time `json:"date"`
	TransferID       string    `gorm:"type:varchar(32);index" json:"transferId"`
	LineSequence     int       `json:"lineSequence"`
	ItemNumber       string    `gorm:"type:varchar(64);index" json:"itemNumber"`
	ItemDescription  string    `json:"itemDescription"`
	LotNumber        string    `gorm:"type:varchar(64)" json:"lotNumber"`
	Quantity         float64   `json:"quantity"`
	OriginatedSiteID string    `gorm:"type:varchar(32)" json:"originatedSiteId"`
	ReferenceNumber  string    `gorm:"type:varchar(32)" json:"referenceNumber"`
	UserName         string    `json:"userName"`
	IsHeld           bool      `json:"isHeld"`
}

// TableName specifies the table name
func (TransferWorkItem) TableName() string { return "transfer_work_items" }

// SignatureWorkItem carries the proof-of-delivery signature for a sales
// order. Push-only: never pulled back down.
type SignatureWorkItem struct {
	SyncMeta
	WorkItemFields

	SalesOrderNumber string `gorm:"type:varchar(32);index" json:"salesOrderNumber"`

	// IsDriverSignature is true when the driver signed on the customer's
	// behalf (customer unavailable).
	IsDriverSignature bool `json:"isDriverSignature"`
	SendNotification  bool `json:"sendNotification"`

	// EncodedSignatureImage is a base64 encoded JPEG.
	EncodedSignatureImage string `gorm:"type:text" json:"encodedSignatureImage"`
}

// TableName specifies the table name
func (SignatureWorkItem) TableName() string { return "signature_work_items" }

// NoteWorkItem attaches free-form notes (and up to five photos) to a parent
// record, keyed by the parent's business identifier. Push-only.
type NoteWorkItem struct {
	SyncMeta
	WorkItemFields

	NoteType     string `gorm:"type:varchar(32)" json:"noteType"`
	NoteParentFk string `gorm:"type:varchar(64);index" json:"noteParentFk"`
	NoteText     string `gorm:"type:text" json:"noteText"`
	NoteImage1   string `gorm:"type:text" json:"noteImage1,omitempty"`
	NoteImage2   string `gorm:"type:text" json:"noteImage2,omitempty"`
	NoteImage3   string `gorm:"type:text" json:"noteImage3,omitempty"`
	NoteImage4   string `gorm:"type:text" json:"noteImage4,omitempty"`
	NoteImage5   string `gorm:"type:text" json:"noteImage5,omitempty"`
}

// TableName specifies the table name
func (NoteWorkItem) TableName() string { return "note_work_items" }
