package reconcile

import (
	"log"

	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/models"
	"github.com/warefront/fieldsync/internal/store"
)

// Engine computes remaining quantities by subtracting local work items from
// the read-only ERP snapshot. The snapshot is never mutated; every view the
// UI shows is derived on demand so it stays correct across sync cycles.
type Engine struct {
	db    *database.DB
	store *store.Store
}

// NewEngine creates a reconciliation engine.
func NewEngine(db *database.DB, st *store.Store) *Engine {
	return &Engine{db: db, store: st}
}

func (e *Engine) workItemsFor(orderNumber string) []models.SalesOrderWorkItem {
	var items []models.SalesOrderWorkItem
	err := e.db.Where("sales_order_number = ?", orderNumber).Find(&items).Error
	if err != nil {
		log.Printf("⚠️ Failed to read work items for %s: %v", orderNumber, err)
		return nil
	}
	return items
}

// AdjustItem subtracts matching work items from one snapshot line. A work
// item matches on order number, item number and the line's original
// sequence; each one consumes its picked quantity plus its quantity delta.
// When the consumed total equals the ordered quantity exactly the result is
// clamped to exactly zero so float residue never leaves a line looking open.
func AdjustItem(item models.SalesOrderItem, work []models.SalesOrderWorkItem) models.SalesOrderItem {
	var consumed float64
	for _, w := range work {
		if w.SalesOrderNumber != item.SalesOrderNumber ||
			w.ItemNumber != item.ItemNumber ||
			w.OriginalSequence != item.Seq {
			continue
		}
		consumed += w.PickedQuantity + w.QuantityDelta
	}
	if consumed == item.ItemQuantity {
		item.ItemQuantity = 0
	} else {
		item.ItemQuantity -= consumed
	}
	return item
}

// AdjustedItems returns the order's lines with work-item consumption already
// subtracted. Fully consumed lines come back with quantity zero, not
// removed, so callers can still show what was ordered.
func (e *Engine) AdjustedItems(orderNumber string) []models.SalesOrderItem {
	items := e.store.SalesOrderItems(orderNumber)
	if len(items) == 0 {
		return items
	}
	work := e.workItemsFor(orderNumber)
	adjusted := make([]models.SalesOrderItem, 0, len(items))
	for _, item := range items {
		adjusted = append(adjusted, AdjustItem(item, work))
	}
	return adjusted
}

// IsFulfilled reports whether nothing remains to pick on the order.
func (e *Engine) IsFulfilled(orderNumber string) bool {
	var remaining float64
	for _, item := range e.AdjustedItems(orderNumber) {
		remaining += item.ItemQuantity
	}
	return remaining <= 0
}

// CanBatchConfirm reports whether the order's remaining lines can be picked
// in one confirmation. A lot-controlled line blocks batch confirm only while
// it has quantity remaining and no lot chosen yet; a line with its lot
// already selected can be picked from that lot without user input.
func (e *Engine) CanBatchConfirm(orderNumber string) bool {
	var needsLot float64
	for _, item := range e.AdjustedItems(orderNumber) {
		if item.IsLotControlled && item.LotNumber == "" {
			needsLot += item.ItemQuantity
		}
	}
	return needsLot == 0
}

// AdjustedLots returns the lots available for one item with quantities
// already picked against each lot subtracted.
func (e *Engine) AdjustedLots(orderNumber, itemNumber string) []models.Lot {
	lots := e.store.Lots(itemNumber)
	if len(lots) == 0 {
		return lots
	}
	work := e.workItemsFor(orderNumber)

	adjusted := make([]models.Lot, 0, len(lots))
	for _, lot := range lots {
		var picked float64
		for _, w := range work {
			if w.ItemNumber == lot.ItemNumber && w.LotNumber == lot.LotNumber {
				picked += w.PickedQuantity
			}
		}
		lot.Quantity -= picked
		adjusted = append(adjusted, lot)
	}
	return adjusted
}

// RemainingShipmentQuantity is the open quantity of one purchase order line
// minus receipts already entered on this device. Never negative.
func (e *Engine) RemainingShipmentQuantity(line models.InboundShipment) float64 {
	var receipts []models.ReceiptWorkItem
	err := e.db.Where("po_number = ? AND item_number = ?", line.DocumentNumber, line.ItemNumber).
		Find(&receipts).Error
	if err != nil {
		log.Printf("⚠️ Failed to read receipt work items for %s: %v", line.DocumentNumber, err)
		return line.OpenQty
	}

	remaining := line.OpenQty
	for _, r := range receipts {
		remaining -= r.Quantity
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingTransferQuantity is the open quantity of one transfer line minus
// receipts already entered on this device. Never negative.
func (e *Engine) RemainingTransferQuantity(line models.InboundTransfer) float64 {
	var receipts []models.TransferWorkItem
	err := e.db.Where("transfer_id = ? AND item_number = ? AND line_sequence = ?",
		line.TransferNumber, line.ItemNumber, line.Seq).
		Find(&receipts).Error
	if err != nil {
		log.Printf("⚠️ Failed to read transfer work items for %s: %v", line.TransferNumber, err)
		return line.OpenQty
	}

	remaining := line.OpenQty
	for _, r := range receipts {
		remaining -= r.Quantity
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}
