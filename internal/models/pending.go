package models

import (
	"time"

	"gorm.io/datatypes"
)

// OperationKind is the kind of queued mutation awaiting push.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// PendingOperation is one not-yet-acknowledged mutation against the remote
// table gateway. Operations are drained strictly in Seq order and at most one
// operation exists per (TableName, RecordID) pair: enqueueing a second
// mutation for the same record coalesces into the existing entry.
type PendingOperation struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Seq       int64          `gorm:"autoIncrement;uniqueIndex" json:"seq"`
	TableName string         `gorm:"type:varchar(64);index:idx_pending_record" json:"tableName"`
	RecordID  string         `gorm:"type:varchar(36);index:idx_pending_record" json:"recordId"`
	Kind      OperationKind  `gorm:"type:varchar(16)" json:"kind"`
	Payload   datatypes.JSON `json:"payload"`

	// Version held by the local record when the operation was queued; sent
	// with updates and deletes for optimistic concurrency.
	Version   string    `gorm:"type:varchar(64)" json:"version"`
	Attempts  int       `gorm:"default:0" json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
}
