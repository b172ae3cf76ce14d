package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/models"
)

// Queue is the durable FIFO of not-yet-pushed mutations. At most one entry
// exists per (table, record) pair; a second enqueue for the same record
// coalesces with the first:
//
//	create + update -> create carrying the latest payload
//	create + delete -> both vanish (the server never saw the record)
//	update + update -> latest payload wins
//	update + delete -> delete
type Queue struct {
	db *database.DB
}

// NewQueue creates a queue over the local store.
func NewQueue(db *database.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue records a mutation for later push, coalescing with any queued
// operation for the same record.
func (q *Queue) Enqueue(table, recordID string, kind models.OperationKind, payload []byte, version string) error {
	return q.db.Transaction(func(tx *gorm.DB) error {
		return q.enqueueTx(tx, table, recordID, kind, payload, version)
	})
}

// enqueueTx is Enqueue inside an existing transaction, so a local write and
// its queue entry commit or roll back together.
func (q *Queue) enqueueTx(tx *gorm.DB, table, recordID string, kind models.OperationKind, payload []byte, version string) error {
	var existing models.PendingOperation
	err := tx.Where("table_name = ? AND record_id = ?", table, recordID).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up pending operation: %w", err)
		}
		op := models.PendingOperation{
			ID:        uuid.New().String(),
			TableName: table,
			RecordID:  recordID,
			Kind:      kind,
			Payload:   payload,
			Version:   version,
			CreatedAt: time.Now().UTC(),
		}
		return tx.Create(&op).Error
	}

	switch {
	case existing.Kind == models.OperationCreate && kind == models.OperationDelete:
		// Never reached the server; drop both sides.
		return tx.Delete(&existing).Error
	case existing.Kind == models.OperationCreate:
		existing.Payload = payload
		return tx.Save(&existing).Error
	case existing.Kind == models.OperationUpdate && kind == models.OperationDelete:
		existing.Kind = models.OperationDelete
		existing.Payload = nil
		return tx.Save(&existing).Error
	case existing.Kind == models.OperationUpdate:
		existing.Payload = payload
		existing.Version = version
		return tx.Save(&existing).Error
	default:
		// A queued delete is terminal; the record no longer exists
		// locally, so nothing can legitimately mutate it.
		return fmt.Errorf("record %s/%s has a queued delete", table, recordID)
	}
}

// Pending returns queued operations in enqueue order.
func (q *Queue) Pending() ([]models.PendingOperation, error) {
	var ops []models.PendingOperation
	if err := q.db.Order("seq asc").Find(&ops).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending operations: %w", err)
	}
	return ops, nil
}

// Remove drops an operation after it was acknowledged or discarded.
func (q *Queue) Remove(id string) error {
	return q.db.Delete(&models.PendingOperation{}, "id = ?", id).Error
}

// Bump increments the attempt counter after a transient failure.
func (q *Queue) Bump(id string) error {
	return q.db.Model(&models.PendingOperation{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

// Count returns the number of queued operations.
func (q *Queue) Count() (int64, error) {
	var n int64
	err := q.db.Model(&models.PendingOperation{}).Count(&n).Error
	return n, err
}

// PendingRecordIDs returns the ids of records in the given table that still
// have an operation queued. Pull must not clobber these rows.
func (q *Queue) PendingRecordIDs(table string) (map[string]bool, error) {
	var ids []string
	err := q.db.Model(&models.PendingOperation{}).
		Where("table_name = ?", table).
		Pluck("record_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Purge drops every queued operation.
func (q *Queue) Purge() error {
	return q.db.Where("1 = 1").Delete(&models.PendingOperation{}).Error
}
