package erp

import (
	"fmt"
	"log"
	"time"

	"github.com/warefront/fieldsync/internal/models"
)

// BranchSource supplies per-branch ERP snapshots for the pull phase.
type BranchSource interface {
	Branches() ([]models.Branch, error)
	BranchSnapshot(branchID string) (*Snapshot, error)
}

// Snapshot is everything the ERP knows about one branch at pull time.
// The local store replaces its copies wholesale with these rows.
type Snapshot struct {
	SalesOrders      []models.SalesOrder
	SalesOrderItems  []models.SalesOrderItem
	Lots             []models.Lot
	InboundShipments []models.InboundShipment
	InboundTransfers []models.InboundTransfer
}

// Service fetches branch snapshots over the ERP XML-RPC surface.
type Service struct {
	client *Client
}

// NewService wraps an authenticated client
func NewService(client *Client) *Service {
	return &Service{client: client}
}

// erpDate parses the ERP's date format, zero time on failure.
func erpDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

type branchRow struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	SvcRepEmail string `json:"svc_rep_email"`
}

// Branches lists the branches visible to the authenticated user.
func (s *Service) Branches() ([]models.Branch, error) {
	var rows []branchRow
	err := s.client.SearchRead("stock.branch", []interface{}{},
		[]string{"code", "name", "email", "svc_rep_email"}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch branches: %w", err)
	}

	branches := make([]models.Branch, 0, len(rows))
	for _, r := range rows {
		branches = append(branches, models.Branch{
			BranchID:          r.Code,
			BranchName:        r.Name,
			BranchEmail:       r.Email,
			BranchSvcRepEmail: r.SvcRepEmail,
		})
	}
	return branches, nil
}

type salesOrderRow struct {
	Number         string `json:"name"`
	DocumentDate   string `json:"date_order"`
	CustomerNumber string `json:"partner_code"`
	CustomerName   string `json:"partner_name"`
	CustomerMobile string `json:"partner_mobile"`
	CustomerInfoID string `json:"partner_info_id"`
	ShipToName     string `json:"ship_to_name"`
	ShipToRepID    string `json:"ship_to_rep_id"`
	Address1       string `json:"street"`
	Address2       string `json:"street2"`
	Address3       string `json:"street3"`
	City           string `json:"city"`
	State          string `json:"state_code"`
	Zip            string `json:"zip"`
	LocationCode   string `json:"location_code"`
	RepName        string `json:"rep_name"`
	RepEmail       string `json:"rep_email"`
	RepMobile      string `json:"rep_mobile"`
}

type salesOrderItemRow struct {
	OrderNumber string  `json:"order_name"`
	OrderType   int     `json:"order_type"`
	Seq         int     `json:"sequence"`
	ItemNumber  string  `json:"product_code"`
	Description string  `json:"product_name"`
	Quantity    float64 `json:"product_uom_qty"`
	LotTracked  bool    `json:"tracking_lot"`
	LotNumber   string  `json:"lot_name"`
	LotQuantity float64 `json:"lot_qty"`
	Uom         string  `json:"uom_name"`
	UpcCodes    string  `json:"upc_codes"`
	Location    string  `json:"location_code"`
	BranchDesc  string  `json:"branch_name"`
}

type lotRow struct {
	LotNumber  string  `json:"name"`
	ItemNumber string  `json:"product_code"`
	Quantity   float64 `json:"qty_available"`
	SiteID     string  `json:"site_code"`
}

type shipmentRow struct {
	Number           string  `json:"name"`
	DocumentDate     string  `json:"date_order"`
	DocumentType     int     `json:"doc_type"`
	PoType           string  `json:"po_type"`
	PoLineNumber     int     `json:"po_line"`
	LineNum          int     `json:"line_num"`
	ItemNumber       string  `json:"product_code"`
	Description      string  `json:"product_name"`
	LotTracked       bool    `json:"tracking_lot"`
	LotNumber        string  `json:"lot_name"`
	QtyLotShipped    float64 `json:"qty_lot_shipped"`
	OpenQty          float64 `json:"qty_open"`
	OriginalQty      float64 `json:"qty_ordered"`
	QtyReceived      float64 `json:"qty_received"`
	BaseUom          string  `json:"uom_name"`
	UpcCodes         string  `json:"upc_codes"`
	VendorID         string  `json:"partner_code"`
	VendorName       string  `json:"partner_name"`
	VendorItemNumber string  `json:"vendor_product_code"`
	PromisedShipDate string  `json:"date_promised"`
	SiteID           string  `json:"site_code"`
	ShipmentFlag     bool    `json:"shipment_flag"`
}

type transferRow struct {
	Number           string  `json:"name"`
	Seq              int     `json:"sequence"`
	ItemNumber       string  `json:"product_code"`
	Description      string  `json:"product_name"`
	LotNumber        string  `json:"lot_name"`
	LotType          string  `json:"lot_type"`
	OpenQty          float64 `json:"qty_open"`
	OriginalQty      float64 `json:"qty_ordered"`
	ReceivedQty      float64 `json:"qty_received"`
	UnitCost         float64 `json:"unit_cost"`
	ExtendedCost     float64 `json:"extended_cost"`
	BaseUom          string  `json:"uom_name"`
	UpcCodes         string  `json:"upc_codes"`
	FromSite         string  `json:"location_src"`
	ToSite           string  `json:"location_dest"`
	PromisedShipDate string  `json:"date_promised"`
	ReferenceNumber  string  `json:"reference"`
}

// BranchSnapshot fetches the full ERP dataset for one branch.
func (s *Service) BranchSnapshot(branchID string) (*Snapshot, error) {
	branchDomain := []interface{}{
		[]interface{}{"branch_code", "=", branchID},
	}

	snap := &Snapshot{}

	var orders []salesOrderRow
	if err := s.client.SearchRead("sale.order", branchDomain,
		[]string{"name", "date_order", "partner_code", "partner_name", "partner_mobile",
			"partner_info_id", "ship_to_name", "ship_to_rep_id", "street", "street2", "street3",
			"city", "state_code", "zip", "location_code", "rep_name", "rep_email", "rep_mobile"},
		&orders); err != nil {
		return nil, fmt.Errorf("failed to fetch sales orders: %w", err)
	}
	for _, r := range orders {
		snap.SalesOrders = append(snap.SalesOrders, models.SalesOrder{
			SalesOrderNumber:     r.Number,
			DocumentDate:         erpDate(r.DocumentDate),
			CustomerNumber:       r.CustomerNumber,
			CustomerName:         r.CustomerName,
			CustomerMobileNumber: r.CustomerMobile,
			CustomerInfoID:       r.CustomerInfoID,
			ShipToName:           r.ShipToName,
			ShipToSalesRepID:     r.ShipToRepID,
			Address1:             r.Address1,
			Address2:             r.Address2,
			Address3:             r.Address3,
			City:                 r.City,
			State:                r.State,
			Zip:                  r.Zip,
			LocationCode:         r.LocationCode,
			SalesRepName:         r.RepName,
			SalesRepEmail:        r.RepEmail,
			SalesRepMobileNumber: r.RepMobile,
		})
	}

	var items []salesOrderItemRow
	if err := s.client.SearchRead("sale.order.line", branchDomain,
		[]string{"order_name", "order_type", "sequence", "product_code", "product_name",
			"product_uom_qty", "tracking_lot", "lot_name", "lot_qty", "uom_name", "upc_codes",
			"location_code", "branch_name"},
		&items); err != nil {
		return nil, fmt.Errorf("failed to fetch sales order items: %w", err)
	}
	for _, r := range items {
		snap.SalesOrderItems = append(snap.SalesOrderItems, models.SalesOrderItem{
			SalesOrderNumber:  r.OrderNumber,
			SalesOrderType:    r.OrderType,
			Seq:               r.Seq,
			ItemNumber:        r.ItemNumber,
			ItemDescription:   r.Description,
			ItemQuantity:      r.Quantity,
			IsLotControlled:   r.LotTracked,
			LotNumber:         r.LotNumber,
			LotQuantity:       r.LotQuantity,
			Uom:               r.Uom,
			UpcCodes:          r.UpcCodes,
			LocationCode:      r.Location,
			BranchID:          branchID,
			BranchDescription: r.BranchDesc,
		})
	}

	var lots []lotRow
	if err := s.client.SearchRead("stock.lot", branchDomain,
		[]string{"name", "product_code", "qty_available", "site_code"},
		&lots); err != nil {
		return nil, fmt.Errorf("failed to fetch lots: %w", err)
	}
	for _, r := range lots {
		snap.Lots = append(snap.Lots, models.Lot{
			LotNumber:  r.LotNumber,
			ItemNumber: r.ItemNumber,
			Quantity:   r.Quantity,
			SiteID:     r.SiteID,
			BranchID:   branchID,
		})
	}

	var shipments []shipmentRow
	if err := s.client.SearchRead("stock.picking.in", branchDomain,
		[]string{"name", "date_order", "doc_type", "po_type", "po_line", "line_num",
			"product_code", "product_name", "tracking_lot", "lot_name", "qty_lot_shipped",
			"qty_open", "qty_ordered", "qty_received", "uom_name", "upc_codes", "partner_code",
			"partner_name", "vendor_product_code", "date_promised", "site_code", "shipment_flag"},
		&shipments); err != nil {
		return nil, fmt.Errorf("failed to fetch inbound shipments: %w", err)
	}
	for _, r := range shipments {
		snap.InboundShipments = append(snap.InboundShipments, models.InboundShipment{
			DocumentNumber:   r.Number,
			DocumentDate:     erpDate(r.DocumentDate),
			DocumentType:     r.DocumentType,
			PoType:           r.PoType,
			PoLineNumber:     r.PoLineNumber,
			LineNum:          r.LineNum,
			ItemNumber:       r.ItemNumber,
			ItemDescription:  r.Description,
			IsLotControlled:  r.LotTracked,
			LotNumber:        r.LotNumber,
			QtyLotShipped:    r.QtyLotShipped,
			OpenQty:          r.OpenQty,
			OriginalQty:      r.OriginalQty,
			QtyReceived:      r.QtyReceived,
			BaseUom:          r.BaseUom,
			UpcCodes:         r.UpcCodes,
			VendorID:         r.VendorID,
			VendorName:       r.VendorName,
			VendorItemNumber: r.VendorItemNumber,
			PromisedShipDate: erpDate(r.PromisedShipDate),
			SiteID:           r.SiteID,
			BranchID:         branchID,
			ShipmentFlag:     r.ShipmentFlag,
		})
	}

	var transfers []transferRow
	if err := s.client.SearchRead("stock.picking.internal", branchDomain,
		[]string{"name", "sequence", "product_code", "product_name", "lot_name", "lot_type",
			"qty_open", "qty_ordered", "qty_received", "unit_cost", "extended_cost", "uom_name",
			"upc_codes", "location_src", "location_dest", "date_promised", "reference"},
		&transfers); err != nil {
		return nil, fmt.Errorf("failed to fetch inbound transfers: %w", err)
	}
	for _, r := range transfers {
		snap.InboundTransfers = append(snap.InboundTransfers, models.InboundTransfer{
			TransferNumber:    r.Number,
			Seq:               r.Seq,
			ItemNumber:        r.ItemNumber,
			ItemDescription:   r.Description,
			LotNumber:         r.LotNumber,
			LotType:           r.LotType,
			OpenQty:           r.OpenQty,
			OriginalQty:       r.OriginalQty,
			ReceivedQty:       r.ReceivedQty,
			UnitCost:          r.UnitCost,
			ExtendedCost:      r.ExtendedCost,
			BaseUom:           r.BaseUom,
			UpcCodes:          r.UpcCodes,
			OriginatedSiteID:  r.FromSite,
			DestinationSiteID: r.ToSite,
			PromisedShipDate:  erpDate(r.PromisedShipDate),
			ReferenceNumber:   r.ReferenceNumber,
			BranchID:          branchID,
		})
	}

	log.Printf("📦 Branch %s snapshot: %d orders, %d items, %d lots, %d shipments, %d transfers",
		branchID, len(snap.SalesOrders), len(snap.SalesOrderItems), len(snap.Lots),
		len(snap.InboundShipments), len(snap.InboundTransfers))

	return snap, nil
}
