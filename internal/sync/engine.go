package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warefront/fieldsync/internal/config"
	"github.com/warefront/fieldsync/internal/erp"
	"github.com/warefront/fieldsync/internal/gateway"
	"github.com/warefront/fieldsync/internal/notify"
	"github.com/warefront/fieldsync/internal/store"
)

// ErrSyncInProgress is returned when a cycle is requested while another is
// already running. Callers treat it as "already being handled", not failure.
var ErrSyncInProgress = errors.New("sync cycle already in progress")

// ErrOffline is returned when the connectivity probe fails and the cycle is
// skipped without touching the queue.
var ErrOffline = errors.New("gateway unreachable, sync skipped")

// Puller is one gateway table the pull phase refreshes.
type Puller interface {
	Name() string
	Pull(ctx context.Context, filter map[string]string) error
}

// Notifier is told when sync state changes so the status surface can push
// updates out, typically the websocket hub.
type Notifier interface {
	NotifySyncStatus(status Status)
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	InProgress          bool      `json:"inProgress"`
	Connected           bool      `json:"connected"`
	LastSyncAt          time.Time `json:"lastSyncAt"`
	LastError           string    `json:"lastError,omitempty"`
	PendingOperations   int64     `json:"pendingOperations"`
	QueuedNotifications int64     `json:"queuedNotifications"`
	CyclesCompleted     int64     `json:"cyclesCompleted"`
	FullResetsPerformed int64     `json:"fullResetsPerformed"`
}

// Engine orchestrates the sync cycle: probe, push, pull, snapshot refresh,
// notification drain. Three gates serialize it:
//
//   - the cycle gate is non-blocking, a concurrent cycle request returns
//     ErrSyncInProgress immediately
//   - the push gate is blocking, so an explicit push waits out a cycle's
//     push phase instead of interleaving with it
//   - the gateway's init latch runs first-use setup exactly once
type Engine struct {
	cfg      *config.SyncConfig
	gw       *gateway.Client
	store    *store.Store
	erp      erp.BranchSource
	notify   *notify.Queue
	conn     *ConnectionChecker
	branchID string

	cycleGate chan struct{}
	pushMu    sync.Mutex

	mu       sync.Mutex
	status   Status
	pullers  []Puller
	notifier Notifier

	cron   *cron.Cron
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewEngine wires a sync engine. branchID scopes pulls to this device's
// branch.
func NewEngine(cfg *config.SyncConfig, gw *gateway.Client, st *store.Store,
	source erp.BranchSource, nq *notify.Queue, conn *ConnectionChecker, branchID string) *Engine {
	e := &Engine{
		cfg:       cfg,
		gw:        gw,
		store:     st,
		erp:       source,
		notify:    nq,
		conn:      conn,
		branchID:  branchID,
		cycleGate: make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	e.cycleGate <- struct{}{}
	return e
}

// RegisterPuller adds a gateway table to the pull phase. Registration order
// is pull order.
func (e *Engine) RegisterPuller(p Puller) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pullers = append(e.pullers, p)
}

// SetNotifier installs the status broadcast target.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

// Status returns a snapshot of the engine's state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.status
	if n, err := e.gw.PendingOperationCount(); err == nil {
		s.PendingOperations = n
	}
	if n, err := e.notify.Count(); err == nil {
		s.QueuedNotifications = n
	}
	return s
}

func (e *Engine) setStatus(mutate func(*Status)) {
	e.mu.Lock()
	mutate(&e.status)
	status := e.status
	notifier := e.notifier
	e.mu.Unlock()

	if notifier != nil {
		notifier.NotifySyncStatus(status)
	}
}

// acquireCycle takes the cycle gate without blocking.
func (e *Engine) acquireCycle() bool {
	select {
	case <-e.cycleGate:
		return true
	default:
		return false
	}
}

func (e *Engine) releaseCycle() {
	e.cycleGate <- struct{}{}
}

// RunSyncCycle executes one full cycle. A cycle already in flight makes this
// return ErrSyncInProgress without waiting; a failed probe returns ErrOffline
// and leaves all queues intact.
func (e *Engine) RunSyncCycle(ctx context.Context) error {
	if !e.acquireCycle() {
		return ErrSyncInProgress
	}
	defer e.releaseCycle()

	if e.cfg.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.SyncTimeout)*time.Second)
		defer cancel()
	}

	if err := e.gw.EnsureReady(); err != nil {
		return err
	}

	connected := e.conn.IsConnected(ctx)
	e.setStatus(func(s *Status) {
		s.Connected = connected
		s.InProgress = connected
	})
	if !connected {
		return ErrOffline
	}

	log.Println("🔄 Sync cycle starting")
	err := e.runPhases(ctx)

	e.setStatus(func(s *Status) {
		s.InProgress = false
		s.LastSyncAt = time.Now().UTC()
		if err != nil {
			s.LastError = err.Error()
		} else {
			s.LastError = ""
			s.CyclesCompleted++
		}
	})

	if err != nil {
		log.Printf("❌ Sync cycle failed: %v", err)
		return err
	}
	log.Println("✅ Sync cycle complete")
	return nil
}

func (e *Engine) runPhases(ctx context.Context) error {
	// Buffered notifications go out first: they describe work already done
	// and must not wait behind a slow pull.
	if e.cfg.DrainNotifications {
		if err := e.notify.ProcessUnsent(ctx); err != nil {
			return err
		}
	}

	// Push before pull so the server sees our mutations before we read
	// its state back.
	if err := e.Push(ctx); err != nil {
		return err
	}

	if err := e.pullTables(ctx); err != nil {
		// A half-applied pull leaves the replica inconsistent with both
		// the server and itself. Reset and start clean next cycle.
		log.Printf("⚠️ Pull failed mid-cycle, resetting local replica: %v", err)
		if perr := e.PurgeAll(); perr != nil {
			return fmt.Errorf("pull failed and reset failed: %v (pull: %w)", perr, err)
		}
		e.setStatus(func(s *Status) { s.FullResetsPerformed++ })
		return err
	}

	return e.PullBranchData(ctx, e.branchID)
}

// Push drains the pending operation queue under the push gate. Safe to call
// outside a cycle; a cycle's own push phase waits its turn.
func (e *Engine) Push(ctx context.Context) error {
	e.pushMu.Lock()
	defer e.pushMu.Unlock()
	return e.gw.Push(ctx)
}

func (e *Engine) pullTables(ctx context.Context) error {
	e.mu.Lock()
	pullers := make([]Puller, len(e.pullers))
	copy(pullers, e.pullers)
	e.mu.Unlock()

	enabled := make(map[string]config.TableSyncConfig, len(e.cfg.Tables))
	for _, t := range e.cfg.Tables {
		enabled[t.Name] = t
	}

	for _, p := range pullers {
		tc, ok := enabled[p.Name()]
		if ok && !tc.Enabled {
			continue
		}
		filter := map[string]string{}
		if !ok || tc.BranchScoped {
			filter["branchId"] = e.branchID
		}
		if err := p.Pull(ctx, filter); err != nil {
			return err
		}
	}
	return nil
}

// PullBranchData refreshes the ERP snapshot for one branch, replacing every
// snapshot table wholesale.
func (e *Engine) PullBranchData(ctx context.Context, branchID string) error {
	if branchID == "" {
		return fmt.Errorf("cannot pull branch data without a branch")
	}
	if !e.conn.IsConnected(ctx) {
		return ErrOffline
	}

	snap, err := e.erp.BranchSnapshot(branchID)
	if err != nil {
		return fmt.Errorf("branch %s snapshot failed: %w", branchID, err)
	}
	if err := e.store.ApplySnapshot(snap.SalesOrders, snap.SalesOrderItems, snap.Lots,
		snap.InboundShipments, snap.InboundTransfers); err != nil {
		return fmt.Errorf("failed to apply branch %s snapshot: %w", branchID, err)
	}
	return nil
}

// SyncBranches refreshes the branch list. Used at provisioning time, before
// a branch is chosen for the device.
func (e *Engine) SyncBranches(ctx context.Context) error {
	if !e.conn.IsConnected(ctx) {
		return ErrOffline
	}
	branches, err := e.erp.Branches()
	if err != nil {
		return fmt.Errorf("branch sync failed: %w", err)
	}
	return e.store.SetBranches(branches)
}

// PurgeAll wipes the gateway replica, the pending queue and the ERP
// snapshot. The next successful cycle repopulates everything from server
// state.
func (e *Engine) PurgeAll() error {
	if err := e.gw.PurgeAll(); err != nil {
		return err
	}
	return e.store.Purge()
}

// PendingCount reports how many local mutations await push.
func (e *Engine) PendingCount() (int64, error) {
	return e.gw.PendingOperationCount()
}

// Reset is the operator-facing purge flow: pending work is pushed out first
// when the gateway is reachable, then the whole replica is wiped. An offline
// reset still wipes, discarding whatever was queued; that is what the caller
// asked for.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.gw.EnsureReady(); err != nil {
		return err
	}
	if e.conn.IsConnected(ctx) {
		if err := e.Push(ctx); err != nil {
			log.Printf("⚠️ Push before reset failed, queued operations will be discarded: %v", err)
		}
	}
	if err := e.PurgeAll(); err != nil {
		return err
	}
	e.setStatus(func(s *Status) { s.FullResetsPerformed++ })
	log.Println("🧹 Local replica reset")
	return nil
}

// Reconfigure points the engine at a new gateway endpoint. It waits for any
// running cycle to finish so no cycle straddles two endpoints, then swaps
// the transport and resets the local replica, which belongs to the old
// endpoint.
func (e *Engine) Reconfigure(ctx context.Context, remote gateway.Remote, probe *ConnectionChecker) error {
	select {
	case <-e.cycleGate:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer e.releaseCycle()

	e.gw.SetRemote(remote)
	if probe != nil {
		e.mu.Lock()
		e.conn = probe
		e.mu.Unlock()
	}
	if err := e.PurgeAll(); err != nil {
		return err
	}
	log.Println("🔧 Gateway endpoint reconfigured, replica reset")
	return nil
}

// Start launches automatic syncing: an immediate cycle when configured, then
// either the cron schedule or the fixed interval.
func (e *Engine) Start(ctx context.Context) {
	if !e.cfg.Enabled || !e.cfg.AutoSyncEnabled {
		log.Println("⏸️ Automatic sync disabled")
		return
	}

	run := func() {
		if err := e.RunSyncCycle(ctx); err != nil &&
			!errors.Is(err, ErrSyncInProgress) && !errors.Is(err, ErrOffline) {
			log.Printf("⚠️ Scheduled sync failed: %v", err)
		}
	}

	if e.cfg.SyncOnStartup {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			run()
		}()
	}

	// Background connectivity watch. A regained link triggers a cycle right
	// away instead of waiting out the sync interval.
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		online := false
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.mu.Lock()
				conn := e.conn
				e.mu.Unlock()
				now := conn.IsConnected(ctx)
				if now == online {
					continue
				}
				online = now
				e.setStatus(func(s *Status) { s.Connected = now })
				if now {
					log.Println("📡 Connectivity restored, starting sync cycle")
					run()
				}
			case <-e.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	if e.cfg.Schedule != "" {
		e.cron = cron.New()
		if _, err := e.cron.AddFunc(e.cfg.Schedule, run); err != nil {
			log.Printf("⚠️ Invalid sync schedule %q, falling back to interval: %v", e.cfg.Schedule, err)
		} else {
			e.cron.Start()
			log.Printf("⏰ Automatic sync scheduled: %s", e.cfg.Schedule)
			return
		}
	}

	interval := time.Duration(e.cfg.AutoSyncInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	e.ticker = time.NewTicker(interval)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-e.ticker.C:
				run()
			case <-e.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	log.Printf("⏰ Automatic sync every %s", interval)
}

// Stop halts automatic syncing and waits for in-flight work.
func (e *Engine) Stop() {
	close(e.stop)
	if e.cron != nil {
		cronCtx := e.cron.Stop()
		<-cronCtx.Done()
	}
	if e.ticker != nil {
		e.ticker.Stop()
	}
	e.wg.Wait()
}
