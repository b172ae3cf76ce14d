package store

import (
	"testing"

	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func seedStoreSnapshot(t *testing.T, st *Store) {
	t.Helper()
	err := st.ApplySnapshot(
		[]models.SalesOrder{{SalesOrderNumber: "SO-1", CustomerName: "Acme"}},
		[]models.SalesOrderItem{{SalesOrderNumber: "SO-1", ItemNumber: "WIDGET", Seq: 1, ItemQuantity: 10}},
		[]models.Lot{{LotNumber: "LOT-A", ItemNumber: "WIDGET", Quantity: 5}},
		[]models.InboundShipment{{DocumentNumber: "PO-1", ItemNumber: "WIDGET", OpenQty: 4}},
		[]models.InboundTransfer{{TransferNumber: "TR-1", ItemNumber: "WIDGET", Seq: 1, OpenQty: 2}},
	)
	if err != nil {
		t.Fatalf("Failed to apply snapshot: %v", err)
	}
}

func TestApplySnapshot_ReplacesWholesale(t *testing.T) {
	st := newTestStore(t)
	seedStoreSnapshot(t, st)

	err := st.ApplySnapshot(
		[]models.SalesOrder{{SalesOrderNumber: "SO-2", CustomerName: "Globex"}},
		[]models.SalesOrderItem{{SalesOrderNumber: "SO-2", ItemNumber: "GADGET", Seq: 1, ItemQuantity: 3}},
		nil, nil, nil,
	)
	if err != nil {
		t.Fatalf("Failed to apply second snapshot: %v", err)
	}

	orders := st.SalesOrders()
	if len(orders) != 1 || orders[0].SalesOrderNumber != "SO-2" {
		t.Errorf("Old orders must be replaced, got %+v", orders)
	}
	if got := st.SalesOrderItems("SO-1"); len(got) != 0 {
		t.Errorf("Old lines must be gone, got %+v", got)
	}
	if got := st.Lots("WIDGET"); len(got) != 0 {
		t.Errorf("Lots absent from the new snapshot must be gone, got %+v", got)
	}
	if got := st.InboundShipments(); len(got) != 0 {
		t.Errorf("Shipments absent from the new snapshot must be gone, got %+v", got)
	}
}

func TestApplySnapshot_FailurePreservesPreviousSnapshot(t *testing.T) {
	st := newTestStore(t)
	seedStoreSnapshot(t, st)

	// The duplicate primary key makes the item insert fail after orders
	// were already rewritten inside the transaction.
	err := st.ApplySnapshot(
		[]models.SalesOrder{{SalesOrderNumber: "SO-2", CustomerName: "Globex"}},
		[]models.SalesOrderItem{
			{ID: 7, SalesOrderNumber: "SO-2", ItemNumber: "GADGET", Seq: 1, ItemQuantity: 3},
			{ID: 7, SalesOrderNumber: "SO-2", ItemNumber: "GIZMO", Seq: 2, ItemQuantity: 1},
		},
		nil, nil, nil,
	)
	if err == nil {
		t.Fatal("Conflicting snapshot rows must fail the apply")
	}

	orders := st.SalesOrders()
	if len(orders) != 1 || orders[0].SalesOrderNumber != "SO-1" {
		t.Errorf("Failed apply must leave the previous orders intact, got %+v", orders)
	}
	items := st.SalesOrderItems("SO-1")
	if len(items) != 1 || items[0].ItemNumber != "WIDGET" {
		t.Errorf("Failed apply must leave the previous lines intact, got %+v", items)
	}
}

func TestPurge_ClearsEveryTable(t *testing.T) {
	st := newTestStore(t)
	seedStoreSnapshot(t, st)
	if err := st.SetBranches([]models.Branch{{BranchID: "BR-1", BranchName: "Main"}}); err != nil {
		t.Fatalf("Failed to seed branches: %v", err)
	}

	if err := st.Purge(); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	if got := st.Branches(); len(got) != 0 {
		t.Errorf("Branches should be purged, got %+v", got)
	}
	if got := st.SalesOrders(); len(got) != 0 {
		t.Errorf("Orders should be purged, got %+v", got)
	}
	if got := st.InboundTransfers(); len(got) != 0 {
		t.Errorf("Transfers should be purged, got %+v", got)
	}
}
