package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/models"
)

// Queue buffers outbound notifications locally until connectivity returns.
// Drain order is creation order within a category. Delivery is at-most-once:
// an envelope is deleted from the store before its dispatch attempt, so a
// crash mid-send loses the notification rather than duplicating a customer
// text.
type Queue struct {
	db         *database.DB
	dispatcher Dispatcher
	probe      func(context.Context) bool
}

// NewQueue creates a notification queue.
func NewQueue(db *database.DB, dispatcher Dispatcher) *Queue {
	return &Queue{db: db, dispatcher: dispatcher}
}

// SetProbe installs a connectivity check. With a probe in place, issuing a
// notification while online hands it straight to the dispatcher and drains
// the category's backlog behind it; without one, everything queues until the
// next sync cycle.
func (q *Queue) SetProbe(probe func(context.Context) bool) {
	q.probe = probe
}

func (q *Queue) enqueue(category models.NotificationCategory, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s notification: %w", category, err)
	}

	if q.dispatcher != nil && q.probe != nil {
		ctx := context.Background()
		if q.probe(ctx) {
			err := q.dispatcher.Dispatch(ctx, category, body)
			if err == nil {
				return q.processCategory(ctx, category)
			}
			log.Printf("⚠️ Direct %s handoff failed, queueing: %v", category, err)
		}
	}

	env := models.NotificationEnvelope{
		ID:        uuid.New().String(),
		Category:  category,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.db.Create(&env).Error; err != nil {
		return fmt.Errorf("failed to queue %s notification: %w", category, err)
	}
	return nil
}

// IssueDelivery queues a delivery notice for a completed sales order.
func (q *Queue) IssueDelivery(payload models.SalesOrderDelivery) error {
	return q.enqueue(models.CategoryDelivery, payload)
}

// IssueCustomerInfoUpdate queues a customer contact change.
func (q *Queue) IssueCustomerInfoUpdate(payload models.CustomerInfoUpdate) error {
	return q.enqueue(models.CategoryCustomerInfo, payload)
}

// IssueSalesOrderUpdate queues a quantity-override notice.
func (q *Queue) IssueSalesOrderUpdate(payload models.SalesOrderUpdateNotice) error {
	return q.enqueue(models.CategorySalesOrderUpdate, payload)
}

// Unsent returns queued envelopes in one category, oldest first.
func (q *Queue) Unsent(category models.NotificationCategory) ([]models.NotificationEnvelope, error) {
	var envelopes []models.NotificationEnvelope
	err := q.db.Where("category = ?", category).Order("created_at asc").Find(&envelopes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s notifications: %w", category, err)
	}
	return envelopes, nil
}

// Count returns the number of queued envelopes across all categories.
func (q *Queue) Count() (int64, error) {
	var n int64
	err := q.db.Model(&models.NotificationEnvelope{}).Count(&n).Error
	return n, err
}

// ProcessUnsent drains every category. Each envelope is removed from the
// store first and only then dispatched; a failed dispatch is logged and the
// envelope is gone. Duplicate texts to customers are worse than a lost one.
func (q *Queue) ProcessUnsent(ctx context.Context) error {
	categories := []models.NotificationCategory{
		models.CategoryDelivery,
		models.CategoryCustomerInfo,
		models.CategorySalesOrderUpdate,
	}
	for _, category := range categories {
		if err := q.processCategory(ctx, category); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) processCategory(ctx context.Context, category models.NotificationCategory) error {
	envelopes, err := q.Unsent(category)
	if err != nil {
		return err
	}
	if len(envelopes) == 0 {
		return nil
	}

	log.Printf("📨 Draining %d %s notifications", len(envelopes), category)

	for _, env := range envelopes {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Delete before send: at-most-once.
		if err := q.db.Delete(&models.NotificationEnvelope{}, "id = ?", env.ID).Error; err != nil {
			return fmt.Errorf("failed to dequeue notification %s: %w", env.ID, err)
		}
		if err := q.dispatcher.Dispatch(ctx, category, env.Body); err != nil {
			log.Printf("⚠️ Notification %s (%s) lost after dequeue: %v", env.ID, category, err)
		}
	}
	return nil
}
