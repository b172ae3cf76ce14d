package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/warefront/fieldsync/internal/models"
)

// Synced is implemented by every record type the gateway synchronizes.
type Synced interface {
	Meta() *models.SyncMeta
	TableName() string
}

// Record constrains a table's element to a pointer implementing Synced.
type Record[T any] interface {
	*T
	Synced
}

// Table is the typed view over one gateway table: local reads hit the store
// directly, local writes land in the store and the pending queue in one
// transaction, and Pull replaces local rows with server state except where a
// queued operation still owns the row.
type Table[T any, P Record[T]] struct {
	client *Client
	name   string
}

// NewTable binds a typed table to the gateway client and registers it for
// conflict resolution and purge.
func NewTable[T any, P Record[T]](client *Client) *Table[T, P] {
	var zero T
	t := &Table[T, P]{
		client: client,
		name:   P(&zero).TableName(),
	}
	client.register(t.name, t.applyServerRecord, t.purge)
	return t
}

// Name returns the gateway table name.
func (t *Table[T, P]) Name() string { return t.name }

// Insert stores a new record locally and queues its create. A missing id is
// pre-assigned; the server's copy on first push is authoritative.
func (t *Table[T, P]) Insert(item P) error {
	meta := item.Meta()
	if meta.ID == "" {
		meta.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", t.name, err)
	}

	return t.client.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("failed to insert %s record: %w", t.name, err)
		}
		return t.client.queue.enqueueTx(tx, t.name, meta.ID, models.OperationCreate, payload, "")
	})
}

// Update stores the changed record locally and queues its update.
func (t *Table[T, P]) Update(item P) error {
	meta := item.Meta()
	if meta.ID == "" {
		return fmt.Errorf("cannot update %s record without id", t.name)
	}
	meta.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", t.name, err)
	}

	return t.client.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("failed to update %s record: %w", t.name, err)
		}
		return t.client.queue.enqueueTx(tx, t.name, meta.ID, models.OperationUpdate, payload, meta.Version)
	})
}

// Delete removes the record locally and queues its delete.
func (t *Table[T, P]) Delete(item P) error {
	meta := item.Meta()
	return t.client.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(item).Error; err != nil {
			return fmt.Errorf("failed to delete %s record: %w", t.name, err)
		}
		return t.client.queue.enqueueTx(tx, t.name, meta.ID, models.OperationDelete, nil, meta.Version)
	})
}

// Get reads one record by id.
func (t *Table[T, P]) Get(id string) (P, error) {
	var item T
	err := t.client.db.First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// All reads every record.
func (t *Table[T, P]) All() ([]T, error) {
	var items []T
	err := t.client.db.Find(&items).Error
	return items, err
}

// Where reads records matching the condition.
func (t *Table[T, P]) Where(query interface{}, args ...interface{}) ([]T, error) {
	var items []T
	err := t.client.db.Where(query, args...).Find(&items).Error
	return items, err
}

// Pull replaces local rows with server state. Rows that still have a queued
// operation are left untouched; everything else converges to the server:
// new rows appear, changed rows are overwritten, absent rows are dropped.
func (t *Table[T, P]) Pull(ctx context.Context, filter map[string]string) error {
	body, err := t.client.remote().List(ctx, t.name, filter)
	if err != nil {
		return fmt.Errorf("pull %s failed: %w", t.name, err)
	}

	var serverRows []T
	if err := json.Unmarshal(body, &serverRows); err != nil {
		return fmt.Errorf("pull %s returned malformed payload: %w", t.name, err)
	}

	pending, err := t.client.queue.PendingRecordIDs(t.name)
	if err != nil {
		return fmt.Errorf("pull %s failed: %w", t.name, err)
	}

	return t.client.db.Transaction(func(tx *gorm.DB) error {
		serverIDs := make([]string, 0, len(serverRows))
		for i := range serverRows {
			id := P(&serverRows[i]).Meta().ID
			serverIDs = append(serverIDs, id)
			if pending[id] {
				continue
			}
			if err := tx.Save(&serverRows[i]).Error; err != nil {
				return fmt.Errorf("failed to store pulled %s record: %w", t.name, err)
			}
		}

		// Drop rows the server no longer has, unless a queued operation
		// still owns them.
		var zero T
		del := tx.Unscoped().Model(&zero).Where("1 = 1")
		if len(serverIDs) > 0 {
			del = del.Where("id NOT IN ?", serverIDs)
		}
		if len(pending) > 0 {
			ownIDs := make([]string, 0, len(pending))
			for id := range pending {
				ownIDs = append(ownIDs, id)
			}
			del = del.Where("id NOT IN ?", ownIDs)
		}
		if err := del.Delete(&zero).Error; err != nil {
			return fmt.Errorf("failed to prune %s rows: %w", t.name, err)
		}

		log.Printf("⬇️ Pulled %d rows into %s (%d locally owned, skipped)", len(serverRows), t.name, len(pending))
		return nil
	})
}

// applyServerRecord overwrites the local row with the server's copy. Used
// when a push conflicts: the server's record wins unconditionally.
func (t *Table[T, P]) applyServerRecord(data []byte) error {
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return fmt.Errorf("malformed server record for %s: %w", t.name, err)
	}
	return t.client.db.Save(&item).Error
}

// purge drops every local row.
func (t *Table[T, P]) purge() error {
	var zero T
	return t.client.db.Unscoped().Where("1 = 1").Delete(&zero).Error
}
