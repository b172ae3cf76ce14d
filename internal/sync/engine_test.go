package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/warefront/fieldsync/internal/config"
	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/erp"
	"github.com/warefront/fieldsync/internal/gateway"
	"github.com/warefront/fieldsync/internal/models"
	"github.com/warefront/fieldsync/internal/notify"
	"github.com/warefront/fieldsync/internal/store"
)

// okRemote accepts every operation and echoes payloads back, counting calls.
type okRemote struct {
	calls int32
}

func (r *okRemote) Create(_ context.Context, _ string, payload []byte) ([]byte, error) {
	atomic.AddInt32(&r.calls, 1)
	return payload, nil
}

func (r *okRemote) Update(_ context.Context, _, _, _ string, payload []byte) ([]byte, error) {
	atomic.AddInt32(&r.calls, 1)
	return payload, nil
}

func (r *okRemote) Delete(_ context.Context, _, _, _ string) error {
	atomic.AddInt32(&r.calls, 1)
	return nil
}

func (r *okRemote) List(_ context.Context, _ string, _ map[string]string) ([]byte, error) {
	atomic.AddInt32(&r.calls, 1)
	return []byte("[]"), nil
}

// fakeERP serves a canned snapshot. When block is set, BranchSnapshot parks
// on it so a test can hold a cycle open.
type fakeERP struct {
	snapshot erp.Snapshot
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (f *fakeERP) Branches() ([]models.Branch, error) {
	return []models.Branch{{BranchID: "BR-1", BranchName: "Main"}}, nil
}

func (f *fakeERP) BranchSnapshot(string) (*erp.Snapshot, error) {
	if f.entered != nil {
		close(f.entered)
		f.entered = nil
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	snap := f.snapshot
	return &snap, nil
}

type testRig struct {
	engine *Engine
	db     *database.DB
	gw     *gateway.Client
	store  *store.Store
	erp    *fakeERP
	remote *okRemote
	orders *gateway.Table[models.SalesOrderWorkItem, *models.SalesOrderWorkItem]
}

func newTestRig(t *testing.T, probeURL string) *testRig {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	remote := &okRemote{}
	gw := gateway.NewClient(db, remote)
	st := store.New(db)
	source := &fakeERP{}
	nq := notify.NewQueue(db, nil)
	conn := NewConnectionChecker(probeURL, time.Second)
	cfg := &config.SyncConfig{Enabled: true, ConflictResolution: "server_wins"}

	engine := NewEngine(cfg, gw, st, source, nq, conn, "BR-1")
	orders := gateway.NewTable[models.SalesOrderWorkItem](gw)
	return &testRig{engine: engine, db: db, gw: gw, store: st, erp: source, remote: remote, orders: orders}
}

func probeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunSyncCycle_SingleFlight(t *testing.T) {
	srv := probeServer(t)
	rig := newTestRig(t, srv.URL)

	rig.erp.block = make(chan struct{})
	rig.erp.entered = make(chan struct{})
	entered := rig.erp.entered

	first := make(chan error, 1)
	go func() {
		first <- rig.engine.RunSyncCycle(context.Background())
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("First cycle never reached the snapshot phase")
	}

	if err := rig.engine.RunSyncCycle(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("Expected ErrSyncInProgress while a cycle holds the gate, got %v", err)
	}

	close(rig.erp.block)
	select {
	case err := <-first:
		if err != nil {
			t.Fatalf("First cycle failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("First cycle never finished")
	}

	// The gate is free again.
	if err := rig.engine.RunSyncCycle(context.Background()); err != nil {
		t.Fatalf("Cycle after release failed: %v", err)
	}
}

func TestRunSyncCycle_OfflineLeavesQueuesIntact(t *testing.T) {
	srv := probeServer(t)
	url := srv.URL
	srv.Close()
	rig := newTestRig(t, url)

	if err := rig.gw.EnsureReady(); err != nil {
		t.Fatalf("EnsureReady failed: %v", err)
	}
	item := &models.SalesOrderWorkItem{SalesOrderNumber: "SO-1", ItemNumber: "WIDGET"}
	if err := rig.orders.Insert(item); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := rig.engine.RunSyncCycle(context.Background()); !errors.Is(err, ErrOffline) {
		t.Fatalf("Expected ErrOffline against a dead probe, got %v", err)
	}
	if n, _ := rig.gw.PendingOperationCount(); n != 1 {
		t.Fatalf("Offline cycle must not touch the queue, got %d pending", n)
	}
	if calls := atomic.LoadInt32(&rig.remote.calls); calls != 0 {
		t.Fatalf("Offline cycle must not hit the gateway, saw %d calls", calls)
	}
	if status := rig.engine.Status(); status.Connected {
		t.Error("Status should report disconnected")
	}
}

func TestRunSyncCycle_AppliesBranchSnapshot(t *testing.T) {
	srv := probeServer(t)
	rig := newTestRig(t, srv.URL)

	rig.erp.snapshot = erp.Snapshot{
		SalesOrders: []models.SalesOrder{{SalesOrderNumber: "SO-9"}},
		SalesOrderItems: []models.SalesOrderItem{
			{SalesOrderNumber: "SO-9", ItemNumber: "WIDGET", Seq: 1, ItemQuantity: 5},
		},
	}

	if err := rig.engine.RunSyncCycle(context.Background()); err != nil {
		t.Fatalf("RunSyncCycle failed: %v", err)
	}

	if order := rig.store.SalesOrder("SO-9"); order == nil {
		t.Fatal("Snapshot sales order missing after cycle")
	}
	if items := rig.store.SalesOrderItems("SO-9"); len(items) != 1 {
		t.Fatalf("Expected 1 snapshot item, got %d", len(items))
	}

	status := rig.engine.Status()
	if status.CyclesCompleted != 1 {
		t.Errorf("Expected 1 completed cycle, got %d", status.CyclesCompleted)
	}
	if status.LastError != "" {
		t.Errorf("Expected clean status, got error %q", status.LastError)
	}
	if status.LastSyncAt.IsZero() {
		t.Error("LastSyncAt not stamped")
	}
}

// failingPuller stands in for a gateway table whose refresh dies mid-pull.
type failingPuller struct{}

func (failingPuller) Name() string { return "broken_table" }

func (failingPuller) Pull(context.Context, map[string]string) error {
	return fmt.Errorf("gateway returned garbage")
}

func TestRunSyncCycle_PullFailureResetsReplica(t *testing.T) {
	srv := probeServer(t)
	rig := newTestRig(t, srv.URL)

	if err := rig.gw.EnsureReady(); err != nil {
		t.Fatalf("EnsureReady failed: %v", err)
	}
	item := &models.SalesOrderWorkItem{SalesOrderNumber: "SO-1", ItemNumber: "WIDGET"}
	if err := rig.orders.Insert(item); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := rig.store.SetSalesOrders([]models.SalesOrder{{SalesOrderNumber: "SO-1"}}); err != nil {
		t.Fatalf("SetSalesOrders failed: %v", err)
	}

	rig.engine.RegisterPuller(failingPuller{})

	err := rig.engine.RunSyncCycle(context.Background())
	if err == nil || errors.Is(err, ErrOffline) {
		t.Fatalf("Expected the pull error back, got %v", err)
	}

	rows, err := rig.orders.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("Replica not reset, %d work items remain", len(rows))
	}
	if n, _ := rig.gw.PendingOperationCount(); n != 0 {
		t.Fatalf("Pending queue not reset, %d operations remain", n)
	}
	if orders := rig.store.SalesOrders(); len(orders) != 0 {
		t.Fatalf("Snapshot not reset, %d sales orders remain", len(orders))
	}
	if status := rig.engine.Status(); status.FullResetsPerformed != 1 {
		t.Errorf("Expected 1 full reset, got %d", status.FullResetsPerformed)
	}
}

func TestSyncBranches(t *testing.T) {
	srv := probeServer(t)
	rig := newTestRig(t, srv.URL)
	if err := rig.gw.EnsureReady(); err != nil {
		t.Fatalf("EnsureReady failed: %v", err)
	}

	if err := rig.engine.SyncBranches(context.Background()); err != nil {
		t.Fatalf("SyncBranches failed: %v", err)
	}
	branches := rig.store.Branches()
	if len(branches) != 1 || branches[0].BranchID != "BR-1" {
		t.Fatalf("Expected branch BR-1, got %+v", branches)
	}
}

func TestReconfigure_SwapsEndpointAndResets(t *testing.T) {
	srv := probeServer(t)
	rig := newTestRig(t, srv.URL)
	if err := rig.gw.EnsureReady(); err != nil {
		t.Fatalf("EnsureReady failed: %v", err)
	}

	item := &models.SalesOrderWorkItem{SalesOrderNumber: "SO-1", ItemNumber: "WIDGET"}
	if err := rig.orders.Insert(item); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	fresh := &okRemote{}
	if err := rig.engine.Reconfigure(context.Background(), fresh, nil); err != nil {
		t.Fatalf("Reconfigure failed: %v", err)
	}

	// The old endpoint's replica is gone.
	if rows, _ := rig.orders.All(); len(rows) != 0 {
		t.Fatalf("Replica survived reconfigure, %d rows", len(rows))
	}
	if n, _ := rig.gw.PendingOperationCount(); n != 0 {
		t.Fatalf("Queue survived reconfigure, %d operations", n)
	}

	// And new work pushes through the new remote.
	if err := rig.orders.Insert(&models.SalesOrderWorkItem{SalesOrderNumber: "SO-2", ItemNumber: "GADGET"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := rig.engine.Push(context.Background()); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if atomic.LoadInt32(&fresh.calls) == 0 {
		t.Error("Push after reconfigure never hit the new remote")
	}
	if atomic.LoadInt32(&rig.remote.calls) != 0 {
		t.Error("Push after reconfigure hit the old remote")
	}
}
