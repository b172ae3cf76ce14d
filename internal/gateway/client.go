package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/models"
)

// Client owns the local store, the pending queue and the remote transport.
// Typed tables register themselves here so the push drain can resolve
// conflicts and PurgeAll can reach every table without knowing record types.
type Client struct {
	db    *database.DB
	queue *Queue

	mu       sync.Mutex
	rem      Remote
	initDone bool
	initErr  error
	appliers map[string]func([]byte) error
	purgers  map[string]func() error
}

// NewClient creates a gateway client over the local store.
func NewClient(db *database.DB, rem Remote) *Client {
	return &Client{
		db:       db,
		queue:    NewQueue(db),
		rem:      rem,
		appliers: make(map[string]func([]byte) error),
		purgers:  make(map[string]func() error),
	}
}

// Queue exposes the pending-operation queue.
func (c *Client) Queue() *Queue { return c.queue }

// DB exposes the local store handle.
func (c *Client) DB() *database.DB { return c.db }

func (c *Client) remote() Remote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rem
}

// SetRemote swaps the transport. Callers must hold the sync cycle gate so no
// cycle is mid-flight while the endpoint changes.
func (c *Client) SetRemote(rem Remote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rem = rem
}

func (c *Client) applier(table string) func([]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appliers[table]
}

func (c *Client) register(table string, applier func([]byte) error, purger func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appliers[table] = applier
	c.purgers[table] = purger
}

// EnsureReady runs first-use initialization exactly once. Concurrent callers
// collapse onto a single run; the outcome is latched, so a failed
// initialization returns the same error on every later call instead of
// silently retrying forever.
func (c *Client) EnsureReady() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initDone {
		return c.initErr
	}
	c.initDone = true
	if err := c.db.Migrate(); err != nil {
		c.initErr = fmt.Errorf("gateway initialization failed: %w", err)
		return c.initErr
	}
	log.Println("✅ Gateway client initialized")
	return nil
}

// PendingOperationCount reports how many mutations await push.
func (c *Client) PendingOperationCount() (int64, error) {
	return c.queue.Count()
}

// Push drains the pending queue in FIFO order. Conflicts resolve server-wins:
// the server's record overwrites the local copy and the operation is dropped.
// Malformed operations are discarded. Any other failure stops the drain so
// ordering is preserved for the next cycle.
func (c *Client) Push(ctx context.Context) error {
	ops, err := c.queue.Pending()
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	log.Printf("⬆️ Pushing %d pending operations", len(ops))

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.pushOne(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) pushOne(ctx context.Context, op models.PendingOperation) error {
	rem := c.remote()

	var serverBody []byte
	var err error
	switch op.Kind {
	case models.OperationCreate:
		serverBody, err = rem.Create(ctx, op.TableName, op.Payload)
	case models.OperationUpdate:
		serverBody, err = rem.Update(ctx, op.TableName, op.RecordID, op.Version, op.Payload)
	case models.OperationDelete:
		err = rem.Delete(ctx, op.TableName, op.RecordID, op.Version)
	default:
		log.Printf("⚠️ Discarding pending operation with unknown kind %q", op.Kind)
		return c.queue.Remove(op.ID)
	}

	if err == nil {
		// The server's copy is authoritative for id, timestamps and version.
		if len(serverBody) > 0 {
			if applier := c.applier(op.TableName); applier != nil {
				if aerr := applier(serverBody); aerr != nil {
					log.Printf("⚠️ Failed to apply server copy for %s/%s: %v", op.TableName, op.RecordID, aerr)
				}
			}
		}
		return c.queue.Remove(op.ID)
	}

	var rerr *RemoteError
	if errors.As(err, &rerr) {
		switch {
		case rerr.IsConflict():
			log.Printf("⚔️ Conflict on %s/%s, server wins", op.TableName, op.RecordID)
			if len(rerr.ServerRecord) > 0 {
				if applier := c.applier(op.TableName); applier != nil {
					if aerr := applier(rerr.ServerRecord); aerr != nil {
						log.Printf("⚠️ Failed to apply server record for %s/%s: %v", op.TableName, op.RecordID, aerr)
					}
				}
			}
			return c.queue.Remove(op.ID)
		case rerr.IsBadRequest():
			// Retrying can never succeed; drop it so it cannot wedge the queue.
			log.Printf("🗑️ Discarding malformed operation %s for %s/%s", op.Kind, op.TableName, op.RecordID)
			return c.queue.Remove(op.ID)
		}
	}

	// Transient failure: keep the operation, stop the drain.
	if berr := c.queue.Bump(op.ID); berr != nil {
		log.Printf("⚠️ Failed to bump attempts for %s: %v", op.ID, berr)
	}
	return fmt.Errorf("push %s %s/%s failed: %w", op.Kind, op.TableName, op.RecordID, err)
}

// PurgeAll wipes every synchronized table and the pending queue. Used when a
// pull fails midway and the local replica can no longer be trusted.
func (c *Client) PurgeAll() error {
	c.mu.Lock()
	purgers := make([]func() error, 0, len(c.purgers))
	names := make([]string, 0, len(c.purgers))
	for name, p := range c.purgers {
		purgers = append(purgers, p)
		names = append(names, name)
	}
	c.mu.Unlock()

	for i, purge := range purgers {
		if err := purge(); err != nil {
			return fmt.Errorf("failed to purge %s: %w", names[i], err)
		}
	}
	if err := c.queue.Purge(); err != nil {
		return fmt.Errorf("failed to purge pending queue: %w", err)
	}
	log.Println("🧹 Local replica purged")
	return nil
}
