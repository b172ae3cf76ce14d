package workflow

import (
	"fmt"
	"log"
	"time"

	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/gateway"
	"github.com/warefront/fieldsync/internal/models"
	"github.com/warefront/fieldsync/internal/notify"
	"github.com/warefront/fieldsync/internal/reconcile"
	"github.com/warefront/fieldsync/internal/store"
)

// Tables bundles the gateway tables the workflow writes through. Every
// mutation goes via a table so it lands in the pending queue atomically with
// the local write.
type Tables struct {
	Orders     *gateway.Table[models.SalesOrderWorkItem, *models.SalesOrderWorkItem]
	Receipts   *gateway.Table[models.ReceiptWorkItem, *models.ReceiptWorkItem]
	Transfers  *gateway.Table[models.TransferWorkItem, *models.TransferWorkItem]
	Signatures *gateway.Table[models.SignatureWorkItem, *models.SignatureWorkItem]
	Notes      *gateway.Table[models.NoteWorkItem, *models.NoteWorkItem]
}

// Service implements the pick, deliver and receive workflows over the
// snapshot store and the work item tables.
type Service struct {
	db     *database.DB
	store  *store.Store
	recon  *reconcile.Engine
	notify *notify.Queue
	tables Tables
}

// NewService wires the workflow service.
func NewService(db *database.DB, st *store.Store, recon *reconcile.Engine, nq *notify.Queue, tables Tables) *Service {
	return &Service{db: db, store: st, recon: recon, notify: nq, tables: tables}
}

// WorkItems returns the sales order work items for one order.
func (s *Service) WorkItems(orderNumber string) []models.SalesOrderWorkItem {
	items, err := s.tables.Orders.Where("sales_order_number = ?", orderNumber)
	if err != nil {
		log.Printf("⚠️ Failed to read work items for %s: %v", orderNumber, err)
		return nil
	}
	return items
}

// PickLine records one picked line. The work item stays in the ordered
// state until the order-level ConfirmPick; an existing undelivered work item
// for the same order, item, sequence and lot absorbs the new quantity
// instead of spawning a duplicate. A pick that deviates from the remaining
// quantity queues a quantity-override notice.
func (s *Service) PickLine(session Session, req PickRequest) (*models.SalesOrderWorkItem, error) {
	if !session.Valid() {
		return nil, fmt.Errorf("cannot pick a line without an active session")
	}
	if req.Item.IsLotControlled && req.Lot == nil {
		return nil, fmt.Errorf("lot-controlled item %s requires a lot", req.Item.ItemNumber)
	}

	lotNumber := ""
	if req.Lot != nil {
		lotNumber = req.Lot.LotNumber
	}

	// A sibling is any work item already on the same order line; its
	// existence zeroes the new item's sequence and enables the merge path.
	siblings, err := s.tables.Orders.Where(
		"sales_order_number = ? AND original_sequence = ?",
		req.Order.SalesOrderNumber, req.Item.Seq)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing work items: %w", err)
	}

	for i := range siblings {
		w := &siblings[i]
		if w.ItemNumber == req.Item.ItemNumber && w.LotNumber == lotNumber && w.Status != models.StatusDelivered {
			picked := req.UpdatedQuantity
			if req.Item.IsLotControlled && req.TakenQuantity < picked {
				picked = req.TakenQuantity
			}
			w.PickedQuantity += picked
			w.QuantityDelta = req.Item.ItemQuantity - req.UpdatedQuantity
			if err := s.tables.Orders.Update(w); err != nil {
				return nil, err
			}
			s.maybeIssueQuantityNotice(session, req, w)
			return w, nil
		}
	}

	item := buildWorkItem(session, req, len(siblings) > 0)
	if err := s.tables.Orders.Insert(item); err != nil {
		return nil, err
	}
	s.maybeIssueQuantityNotice(session, req, item)
	return item, nil
}

// maybeIssueQuantityNotice queues an override email when the picked
// quantity deviated from what was ordered.
func (s *Service) maybeIssueQuantityNotice(session Session, req PickRequest, w *models.SalesOrderWorkItem) {
	if w.QuantityDelta == 0 {
		return
	}

	notice := models.SalesOrderUpdateNotice{
		SalesOrderNumber:    w.SalesOrderNumber,
		ItemNumber:          w.ItemNumber,
		ItemDescription:     w.ItemDescription,
		LotNumber:           w.LotNumber,
		Uom:                 w.Uom,
		CustomerNumber:      req.Order.CustomerNumber,
		CustomerName:        req.Order.CustomerName,
		OriginalQuantity:    w.OriginalQuantity,
		QuantityDelta:       w.QuantityDelta,
		PickedQuantity:      w.PickedQuantity,
		DeliveredQuantity:   w.DeliveredQuantity,
		ItemQuantity:        req.Item.ItemQuantity,
		UpdatedItemQuantity: req.UpdatedQuantity,
		UserID:              session.UserID,
		BranchID:            session.BranchID,
		SalesRepEmail:       req.Order.SalesRepEmail,
		UpdatedWhen:         time.Now().UTC(),
	}
	for _, b := range s.store.Branches() {
		if b.BranchID == session.BranchID {
			notice.BranchEmail = b.BranchEmail
			notice.BranchSvcRepEmail = b.BranchSvcRepEmail
			break
		}
	}
	if err := s.notify.IssueSalesOrderUpdate(notice); err != nil {
		log.Printf("⚠️ Failed to queue quantity notice for %s: %v", w.SalesOrderNumber, err)
	}
}

// BatchConfirm picks every remaining line that needs no lot decision: plain
// lines, and lot-controlled lines whose lot the ERP already chose. Refused
// while any lot-controlled line still has quantity remaining and no lot.
func (s *Service) BatchConfirm(session Session, orderNumber string, latitude, longitude float64) ([]models.SalesOrderWorkItem, error) {
	if !s.recon.CanBatchConfirm(orderNumber) {
		return nil, fmt.Errorf("order %s has lot-controlled quantity remaining; pick lines individually", orderNumber)
	}
	order := s.store.SalesOrder(orderNumber)
	if order == nil {
		return nil, fmt.Errorf("sales order %s not found", orderNumber)
	}

	var created []models.SalesOrderWorkItem
	for _, item := range s.recon.AdjustedItems(orderNumber) {
		if item.ItemQuantity <= 0 {
			continue
		}
		req := PickRequest{
			Order:           *order,
			Item:            item,
			UpdatedQuantity: item.ItemQuantity,
			Latitude:        latitude,
			Longitude:       longitude,
		}
		if item.IsLotControlled {
			if item.LotNumber == "" {
				continue
			}
			req.Lot = s.lotFor(orderNumber, item)
			req.TakenQuantity = item.ItemQuantity
		}
		w, err := s.PickLine(session, req)
		if err != nil {
			return created, err
		}
		created = append(created, *w)
	}
	return created, nil
}

// lotFor resolves the line's pre-selected lot, falling back to the line's
// own lot fields when the lot table carries no row for it.
func (s *Service) lotFor(orderNumber string, item models.SalesOrderItem) *models.Lot {
	for _, l := range s.recon.AdjustedLots(orderNumber, item.ItemNumber) {
		if l.LotNumber == item.LotNumber {
			found := l
			return &found
		}
	}
	return &models.Lot{LotNumber: item.LotNumber, ItemNumber: item.ItemNumber, Quantity: item.LotQuantity}
}

// ConfirmPick confirms the whole order's pick. When the order qualifies for
// batch confirm its remaining lines are picked first; the order must then be
// fulfilled before every work item is stamped picked with the confirmation
// position, time and picker identity. Line entry alone never stamps, so an
// order picked halfway stays on the pick list.
func (s *Service) ConfirmPick(session Session, orderNumber string, latitude, longitude float64) ([]models.SalesOrderWorkItem, error) {
	if !session.Valid() {
		return nil, fmt.Errorf("cannot confirm pick without an active session")
	}
	if s.recon.CanBatchConfirm(orderNumber) {
		if _, err := s.BatchConfirm(session, orderNumber, latitude, longitude); err != nil {
			return nil, err
		}
	}
	if !s.recon.IsFulfilled(orderNumber) {
		return nil, fmt.Errorf("order %s still has quantity to pick", orderNumber)
	}

	items, err := s.tables.Orders.Where("sales_order_number = ? AND status = ?",
		orderNumber, models.StatusOrdered)
	if err != nil {
		return nil, fmt.Errorf("failed to read work items for %s: %w", orderNumber, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("order %s has no work items to confirm", orderNumber)
	}

	now := time.Now().UTC()
	for i := range items {
		w := &items[i]
		if !w.Status.CanTransition(models.StatusPicked) {
			return nil, fmt.Errorf("work item %s cannot move from %s to %s", w.ID, w.Status, models.StatusPicked)
		}
		w.Status = models.StatusPicked
		w.PickedLatitude = latitude
		w.PickedLongitude = longitude
		w.PickedBy = session.UserID
		w.PickedByName = session.UserName
		w.PickedWhen = &now
		if err := s.tables.Orders.Update(w); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// PickList returns orders that still need picking. An order leaves the list
// as soon as any of its work items carries a pick timestamp.
func (s *Service) PickList() []models.SalesOrder {
	picked := make(map[string]bool)
	items, err := s.tables.Orders.Where("picked_when IS NOT NULL")
	if err != nil {
		log.Printf("⚠️ Failed to read picked work items: %v", err)
		return nil
	}
	for _, w := range items {
		picked[w.SalesOrderNumber] = true
	}

	var out []models.SalesOrder
	for _, o := range s.store.SalesOrders() {
		if !picked[o.SalesOrderNumber] {
			out = append(out, o)
		}
	}
	return out
}

// DeliveryList returns orders with picked work items awaiting delivery.
func (s *Service) DeliveryList() []models.SalesOrder {
	awaiting := make(map[string]bool)
	items, err := s.tables.Orders.Where("status = ?", models.StatusPicked)
	if err != nil {
		log.Printf("⚠️ Failed to read picked work items: %v", err)
		return nil
	}
	for _, w := range items {
		awaiting[w.SalesOrderNumber] = true
	}

	var out []models.SalesOrder
	for _, o := range s.store.SalesOrders() {
		if awaiting[o.SalesOrderNumber] {
			out = append(out, o)
		}
	}
	return out
}

// DeliveryRequest carries a completed delivery: the signature, where it
// happened, and per-work-item overrides of the delivered quantity.
type DeliveryRequest struct {
	OrderNumber           string
	EncodedSignatureImage string
	CustomerAvailable     bool
	DeliveredQuantities   map[string]float64 // work item id -> quantity, absent means deliver what was picked
	Latitude              float64
	Longitude             float64
}

// CompleteDelivery transitions every picked work item on the order to
// delivered, stores the signature, and queues the delivery notice. Refused
// without a signature; when the customer was unavailable the driver signs on
// their behalf.
func (s *Service) CompleteDelivery(session Session, req DeliveryRequest) error {
	if !session.Valid() {
		return fmt.Errorf("cannot complete delivery without an active session")
	}
	if req.EncodedSignatureImage == "" {
		return fmt.Errorf("delivery of %s requires a signature", req.OrderNumber)
	}

	picked, err := s.tables.Orders.Where("sales_order_number = ? AND status = ?",
		req.OrderNumber, models.StatusPicked)
	if err != nil {
		return fmt.Errorf("failed to read work items for %s: %w", req.OrderNumber, err)
	}
	if len(picked) == 0 {
		return fmt.Errorf("order %s has nothing picked to deliver", req.OrderNumber)
	}

	now := time.Now().UTC()
	for i := range picked {
		w := &picked[i]
		if !w.Status.CanTransition(models.StatusDelivered) {
			return fmt.Errorf("work item %s cannot move from %s to %s", w.ID, w.Status, models.StatusDelivered)
		}
		if qty, ok := req.DeliveredQuantities[w.ID]; ok {
			w.DeliveredQuantity = qty
		} else {
			w.DeliveredQuantity = w.PickedQuantity
		}
		w.Status = models.StatusDelivered
		w.CustomerAvailable = req.CustomerAvailable
		w.DeliveredLatitude = req.Latitude
		w.DeliveredLongitude = req.Longitude
		w.DeliveredBy = session.UserID
		w.DeliveredByName = session.UserName
		w.DeliveredWhen = &now
		if err := s.tables.Orders.Update(w); err != nil {
			return err
		}
	}

	signature := &models.SignatureWorkItem{
		WorkItemFields: models.WorkItemFields{
			DeviceID: session.DeviceID,
			UserID:   session.UserID,
			BranchID: session.BranchID,
		},
		SalesOrderNumber:      req.OrderNumber,
		IsDriverSignature:     !req.CustomerAvailable,
		SendNotification:      req.CustomerAvailable,
		EncodedSignatureImage: req.EncodedSignatureImage,
	}
	if err := s.tables.Signatures.Insert(signature); err != nil {
		return err
	}

	s.issueDeliveryNotice(req, picked)
	return nil
}

// issueDeliveryNotice queues the post-delivery customer and sales rep texts.
func (s *Service) issueDeliveryNotice(req DeliveryRequest, delivered []models.SalesOrderWorkItem) {
	order := s.store.SalesOrder(req.OrderNumber)
	if order == nil {
		log.Printf("⚠️ Delivery notice skipped, order %s missing from snapshot", req.OrderNumber)
		return
	}

	payload := models.SalesOrderDelivery{
		SalesOrderNumber:     order.SalesOrderNumber,
		CustomerName:         order.CustomerName,
		CustomerMobileNumber: order.CustomerMobileNumber,
		SalesRepMobileNumber: order.SalesRepMobileNumber,
		SendCustomerText:     req.CustomerAvailable && order.CustomerMobileNumber != "",
		SendSalesRepText:     order.SalesRepMobileNumber != "",
		DeliveredLatitude:    req.Latitude,
		DeliveredLongitude:   req.Longitude,
	}
	for _, w := range delivered {
		payload.DeliveryItems = append(payload.DeliveryItems, models.SalesOrderDeliveryItem{
			ItemDescription: w.ItemDescription,
			ItemQuantity:    w.TakenQuantity(),
			Uom:             w.Uom,
		})
	}
	notes, err := s.tables.Notes.Where("note_parent_fk = ?", req.OrderNumber)
	if err == nil {
		for _, n := range notes {
			payload.Notes = append(payload.Notes, n.NoteText)
		}
	}

	if err := s.notify.IssueDelivery(payload); err != nil {
		log.Printf("⚠️ Failed to queue delivery notice for %s: %v", req.OrderNumber, err)
	}
}

// DeleteWorkItems removes every sales order work item on an order. With no
// work items left the order reads as ordered again and returns to the pick
// list.
func (s *Service) DeleteWorkItems(orderNumber string) error {
	items, err := s.tables.Orders.Where("sales_order_number = ?", orderNumber)
	if err != nil {
		return fmt.Errorf("failed to read work items for %s: %w", orderNumber, err)
	}
	for i := range items {
		if err := s.tables.Orders.Delete(&items[i]); err != nil {
			return err
		}
	}
	log.Printf("↩️ Order %s reset to ordered (%d work items removed)", orderNumber, len(items))
	return nil
}

// AddNote attaches a note (and up to five photos) to a parent record.
func (s *Service) AddNote(session Session, noteType, parentFk, text string, images []string) error {
	if !session.Valid() {
		return fmt.Errorf("cannot add note without an active session")
	}
	if len(images) > 5 {
		return fmt.Errorf("a note carries at most five photos")
	}
	note := &models.NoteWorkItem{
		WorkItemFields: models.WorkItemFields{
			DeviceID: session.DeviceID,
			UserID:   session.UserID,
			BranchID: session.BranchID,
		},
		NoteType:     noteType,
		NoteParentFk: parentFk,
		NoteText:     text,
	}
	slots := []*string{&note.NoteImage1, &note.NoteImage2, &note.NoteImage3, &note.NoteImage4, &note.NoteImage5}
	for i, img := range images {
		*slots[i] = img
	}
	return s.tables.Notes.Insert(note)
}

// UpdateCustomerMobile queues a customer contact change for the backend.
// The snapshot row itself is read-only; the change lands on the next pull.
func (s *Service) UpdateCustomerMobile(session Session, orderNumber, mobileNumber string) error {
	order := s.store.SalesOrder(orderNumber)
	if order == nil {
		return fmt.Errorf("sales order %s not found", orderNumber)
	}
	return s.notify.IssueCustomerInfoUpdate(models.CustomerInfoUpdate{
		CustomerInfoID:       order.CustomerInfoID,
		CustomerMobileNumber: mobileNumber,
	})
}

// AddReceipt records a received quantity against a purchase order line.
func (s *Service) AddReceipt(session Session, line models.InboundShipment, quantity float64, lotNumber, batchID string) (*models.ReceiptWorkItem, error) {
	if !session.Valid() {
		return nil, fmt.Errorf("cannot record receipt without an active session")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("receipt quantity must be positive")
	}
	if line.IsLotControlled && lotNumber == "" {
		return nil, fmt.Errorf("lot-controlled item %s requires a lot", line.ItemNumber)
	}

	receipt := &models.ReceiptWorkItem{
		WorkItemFields: models.WorkItemFields{
			DeviceID: session.DeviceID,
			UserID:   session.UserID,
			BranchID: session.BranchID,
		},
		Date:             time.Now().UTC(),
		BatchID:          batchID,
		VendorID:         line.VendorID,
		VendorName:       line.VendorName,
		VendorItemNumber: line.VendorItemNumber,
		PoNumber:         line.DocumentNumber,
		PoLineNumber:     fmt.Sprintf("%d", line.PoLineNumber),
		RcpLineNumber:    line.LineNum,
		ItemNumber:       line.ItemNumber,
		ItemDescription:  line.ItemDescription,
		IsLotControlled:  line.IsLotControlled,
		Quantity:         quantity,
		Uom:              line.BaseUom,
		LotNumber:        lotNumber,
		UserName:         session.UserName,
	}
	if err := s.tables.Receipts.Insert(receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// AddTransferReceipt records a received quantity against a transfer line.
func (s *Service) AddTransferReceipt(session Session, line models.InboundTransfer, quantity float64, lotNumber string) (*models.TransferWorkItem, error) {
	if !session.Valid() {
		return nil, fmt.Errorf("cannot record transfer receipt without an active session")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("transfer quantity must be positive")
	}

	item := &models.TransferWorkItem{
		WorkItemFields: models.WorkItemFields{
			DeviceID: session.DeviceID,
			UserID:   session.UserID,
			BranchID: session.BranchID,
		},
		Date:             time.Now().UTC(),
		TransferID:       line.TransferNumber,
		LineSequence:     line.Seq,
		ItemNumber:       line.ItemNumber,
		ItemDescription:  line.ItemDescription,
		LotNumber:        lotNumber,
		Quantity:         quantity,
		OriginatedSiteID: line.OriginatedSiteID,
		ReferenceNumber:  line.ReferenceNumber,
		UserName:         session.UserName,
	}
	if err := s.tables.Transfers.Insert(item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetReceiptHold flips the hold flag on a receipt work item. Held receipts
// are excluded when receipts are aggregated for posting.
func (s *Service) SetReceiptHold(id string, held bool) error {
	receipt, err := s.tables.Receipts.Get(id)
	if err != nil {
		return fmt.Errorf("receipt work item %s not found: %w", id, err)
	}
	receipt.IsHeld = held
	return s.tables.Receipts.Update(receipt)
}
