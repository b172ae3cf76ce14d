package database

import (
	"fmt"

	"github.com/warefront/fieldsync/internal/models"
)

// Migrate creates or updates the full on-device schema: work items, ERP
// snapshot tables, the pending-operation queue and the notification queue.
func (db *DB) Migrate() error {
	err := db.AutoMigrate(
		// Work items (the mutable client-owned rows).
		&models.SalesOrderWorkItem{},
		&models.ReceiptWorkItem{},
		&models.TransferWorkItem{},
		&models.SignatureWorkItem{},
		&models.NoteWorkItem{},

		// ERP snapshot tables (replaced wholesale each pull).
		&models.Branch{},
		&models.SalesOrder{},
		&models.SalesOrderItem{},
		&models.Lot{},
		&models.InboundShipment{},
		&models.InboundTransfer{},

		// Queues.
		&models.PendingOperation{},
		&models.NotificationEnvelope{},
	)
	if err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}
