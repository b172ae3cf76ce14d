package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warefront/fieldsync/internal/config"
	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/erp"
	"github.com/warefront/fieldsync/internal/gateway"
	"github.com/warefront/fieldsync/internal/handlers"
	"github.com/warefront/fieldsync/internal/models"
	"github.com/warefront/fieldsync/internal/notify"
	"github.com/warefront/fieldsync/internal/reconcile"
	"github.com/warefront/fieldsync/internal/store"
	syncengine "github.com/warefront/fieldsync/internal/sync"
	"github.com/warefront/fieldsync/internal/websocket"
	"github.com/warefront/fieldsync/internal/workflow"
)

// hubNotifier pushes sync status changes onto the websocket hub.
type hubNotifier struct {
	hub *websocket.Hub
}

func (n *hubNotifier) NotifySyncStatus(status syncengine.Status) {
	n.hub.Broadcast("SYNC_STATUS", status)
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Open the local store
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Synchronize schema
	log.Println("🚀 Synchronizing database schema...")
	if err := db.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("✅ Schema synchronized successfully")

	// 4. Gateway client and typed tables
	remote := gateway.NewHTTPRemote(cfg.Gateway.BaseURL, cfg.Gateway.APIKey,
		time.Duration(cfg.Gateway.RequestTimeout)*time.Second)
	gw := gateway.NewClient(db, remote)

	tables := workflow.Tables{
		Orders:     gateway.NewTable[models.SalesOrderWorkItem](gw),
		Receipts:   gateway.NewTable[models.ReceiptWorkItem](gw),
		Transfers:  gateway.NewTable[models.TransferWorkItem](gw),
		Signatures: gateway.NewTable[models.SignatureWorkItem](gw),
		Notes:      gateway.NewTable[models.NoteWorkItem](gw),
	}

	// 5. Domain services
	snapshots := store.New(db)
	recon := reconcile.NewEngine(db, snapshots)

	dispatcher := notify.NewHTTPDispatcher(cfg.Gateway.NotificationURL, cfg.Gateway.APIKey)
	notifications := notify.NewQueue(db, dispatcher)

	session := workflow.Session{
		UserID:   cfg.Device.UserID,
		UserName: cfg.Device.UserName,
		DeviceID: cfg.Device.DeviceID,
		BranchID: cfg.Device.BranchID,
	}
	wf := workflow.NewService(db, snapshots, recon, notifications, tables)

	// 6. Sync engine
	log.Println("🔄 Initializing sync engine...")
	syncCfg := config.LoadSyncConfig()

	erpClient := erp.NewClient(cfg.ERP.URL, cfg.ERP.Database, cfg.ERP.Username, cfg.ERP.Password)
	if _, err := erpClient.Authenticate(); err != nil {
		log.Printf("⚠️ ERP authentication failed, pulls will retry: %v", err)
	}
	erpService := erp.NewService(erpClient)

	checker := syncengine.NewConnectionChecker(cfg.Gateway.ProbeURL,
		time.Duration(cfg.Gateway.ProbeTimeout)*time.Second)
	notifications.SetProbe(checker.IsConnected)

	engine := syncengine.NewEngine(syncCfg, gw, snapshots, erpService, notifications, checker, cfg.Device.BranchID)

	// Registration order is pull order. Notes and signatures are push-only:
	// this device is their only author and never needs them back.
	engine.RegisterPuller(tables.Transfers)
	engine.RegisterPuller(tables.Receipts)
	engine.RegisterPuller(tables.Orders)

	// 7. Status surface
	hub := websocket.NewHub()
	go hub.Run()
	engine.SetNotifier(&hubNotifier{hub: hub})

	router := handlers.NewRouter(engine, wf, recon, snapshots, hub, session)

	// 8. Start automatic sync
	ctx, cancelSync := context.WithCancel(context.Background())
	engine.Start(ctx)

	// 9. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Field sync server starting on port %s (branch %s, device %s)\n",
			cfg.Port, cfg.Device.BranchID, cfg.Device.DeviceID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	cancelSync()
	engine.Stop()

	log.Println("🛑 Closing local store...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
