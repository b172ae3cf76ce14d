package workflow

import (
	"github.com/warefront/fieldsync/internal/models"
)

// PickRequest carries everything a pick confirmation knows: the order, the
// adjusted line (ItemQuantity holds the remaining quantity), what the user
// entered, and where they stood.
type PickRequest struct {
	Order models.SalesOrder
	Item  models.SalesOrderItem

	// UpdatedQuantity is the quantity the user confirmed, which may differ
	// from the remaining quantity on the line.
	UpdatedQuantity float64

	// TakenQuantity is the quantity drawn from the chosen lot. Only
	// meaningful for lot-controlled lines.
	TakenQuantity float64

	// Lot is the chosen lot, nil for non-lot-controlled lines.
	Lot *models.Lot

	Latitude  float64
	Longitude float64
}

// buildWorkItem assembles a work item from a line pick.
//
// The picked quantity is what the user entered, except a lot-controlled line
// can never pick more than was taken from the lot. The delta records how far
// the user deviated from the remaining quantity, so reconciliation treats an
// under-pick as consumed rather than leaving the line open forever.
//
// The item starts in the ordered state. Pick stamps (status, timestamp,
// position, picker identity) are applied by the order-level confirmation
// once the whole order is satisfied, never at line entry.
//
// hasSibling is true when a work item already exists for the same order and
// original sequence; the follow-on item's sequence is zeroed so downstream
// posting aggregates the line instead of posting it twice.
func buildWorkItem(session Session, req PickRequest, hasSibling bool) *models.SalesOrderWorkItem {
	picked := req.UpdatedQuantity
	if req.Item.IsLotControlled && req.TakenQuantity < picked {
		picked = req.TakenQuantity
	}

	itemSequence := req.Item.Seq
	if hasSibling {
		itemSequence = 0
	}

	w := &models.SalesOrderWorkItem{
		WorkItemFields: models.WorkItemFields{
			DeviceID: session.DeviceID,
			UserID:   session.UserID,
			BranchID: session.BranchID,
		},
		SalesOrderNumber: req.Order.SalesOrderNumber,
		DocumentDate:     req.Order.DocumentDate,
		CustomerNumber:   req.Order.CustomerNumber,
		CustomerName:     req.Order.CustomerName,
		OriginalSequence: req.Item.Seq,
		ItemSequence:     itemSequence,
		ItemNumber:       req.Item.ItemNumber,
		ItemDescription:  req.Item.ItemDescription,
		IsLotControlled:  req.Item.IsLotControlled,
		Uom:              req.Item.Uom,
		OriginalQuantity: req.Item.ItemQuantity,
		// The suggested lot from the ERP line, before any substitution.
		OriginalLotNumber: req.Item.LotNumber,
		QuantityDelta:     req.Item.ItemQuantity - req.UpdatedQuantity,
		PickedQuantity:    picked,
		Status:            models.StatusOrdered,
	}

	if req.Lot != nil {
		w.LotNumber = req.Lot.LotNumber
	}

	return w
}
