package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/models"
)

// fakeDispatcher records dispatches and can be scripted to fail.
type fakeDispatcher struct {
	sent []models.NotificationCategory
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, category models.NotificationCategory, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, category)
	return nil
}

func newTestQueue(t *testing.T, d Dispatcher) *Queue {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewQueue(db, d)
}

func TestQueue_IssueAndDrain(t *testing.T) {
	d := &fakeDispatcher{}
	q := newTestQueue(t, d)

	if err := q.IssueDelivery(models.SalesOrderDelivery{SalesOrderNumber: "SO-1"}); err != nil {
		t.Fatalf("IssueDelivery failed: %v", err)
	}
	if err := q.IssueCustomerInfoUpdate(models.CustomerInfoUpdate{CustomerInfoID: "C-1"}); err != nil {
		t.Fatalf("IssueCustomerInfoUpdate failed: %v", err)
	}
	if err := q.IssueSalesOrderUpdate(models.SalesOrderUpdateNotice{SalesOrderNumber: "SO-1"}); err != nil {
		t.Fatalf("IssueSalesOrderUpdate failed: %v", err)
	}

	if n, _ := q.Count(); n != 3 {
		t.Fatalf("Expected 3 queued, got %d", n)
	}

	if err := q.ProcessUnsent(context.Background()); err != nil {
		t.Fatalf("ProcessUnsent failed: %v", err)
	}
	if len(d.sent) != 3 {
		t.Fatalf("Expected 3 dispatched, got %d", len(d.sent))
	}
	if n, _ := q.Count(); n != 0 {
		t.Fatalf("Expected empty queue after drain, got %d", n)
	}
}

func TestQueue_PayloadSurvivesRoundTrip(t *testing.T) {
	q := newTestQueue(t, &fakeDispatcher{})

	in := models.SalesOrderDelivery{
		SalesOrderNumber: "SO-1",
		CustomerName:     "Acme",
		SendCustomerText: true,
		DeliveryItems: []models.SalesOrderDeliveryItem{
			{ItemDescription: "Widget", ItemQuantity: 3, Uom: "EA"},
		},
	}
	if err := q.IssueDelivery(in); err != nil {
		t.Fatalf("IssueDelivery failed: %v", err)
	}

	envelopes, err := q.Unsent(models.CategoryDelivery)
	if err != nil || len(envelopes) != 1 {
		t.Fatalf("Expected 1 envelope, got %d (%v)", len(envelopes), err)
	}
	var out models.SalesOrderDelivery
	if err := json.Unmarshal(envelopes[0].Body, &out); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if out.SalesOrderNumber != "SO-1" || !out.SendCustomerText || len(out.DeliveryItems) != 1 {
		t.Errorf("Payload mangled: %+v", out)
	}
}

func TestQueue_DrainOrderIsOldestFirst(t *testing.T) {
	type ordered struct {
		numbers []string
	}
	var got ordered
	d := dispatchFunc(func(_ context.Context, _ models.NotificationCategory, body []byte) error {
		var p models.SalesOrderDelivery
		json.Unmarshal(body, &p)
		got.numbers = append(got.numbers, p.SalesOrderNumber)
		return nil
	})
	q := newTestQueue(t, d)

	for _, n := range []string{"SO-1", "SO-2", "SO-3"} {
		if err := q.IssueDelivery(models.SalesOrderDelivery{SalesOrderNumber: n}); err != nil {
			t.Fatalf("IssueDelivery failed: %v", err)
		}
	}
	if err := q.ProcessUnsent(context.Background()); err != nil {
		t.Fatalf("ProcessUnsent failed: %v", err)
	}

	want := []string{"SO-1", "SO-2", "SO-3"}
	for i, n := range want {
		if got.numbers[i] != n {
			t.Fatalf("Expected drain order %v, got %v", want, got.numbers)
		}
	}
}

// dispatchFunc adapts a function to the Dispatcher interface.
type dispatchFunc func(ctx context.Context, category models.NotificationCategory, body []byte) error

func (f dispatchFunc) Dispatch(ctx context.Context, category models.NotificationCategory, body []byte) error {
	return f(ctx, category, body)
}

func TestQueue_DirectHandoffWhenOnline(t *testing.T) {
	d := &fakeDispatcher{}
	q := newTestQueue(t, d)

	// One envelope queued while the probe is absent.
	if err := q.IssueDelivery(models.SalesOrderDelivery{SalesOrderNumber: "SO-1"}); err != nil {
		t.Fatalf("IssueDelivery failed: %v", err)
	}

	q.SetProbe(func(context.Context) bool { return true })
	if err := q.IssueDelivery(models.SalesOrderDelivery{SalesOrderNumber: "SO-2"}); err != nil {
		t.Fatalf("IssueDelivery failed: %v", err)
	}

	// The new notice went straight out and pulled the backlog with it.
	if len(d.sent) != 2 {
		t.Fatalf("Expected 2 dispatched, got %d", len(d.sent))
	}
	if n, _ := q.Count(); n != 0 {
		t.Fatalf("Expected empty queue after direct handoff, got %d", n)
	}
}

func TestQueue_OfflineIssueQueues(t *testing.T) {
	d := &fakeDispatcher{}
	q := newTestQueue(t, d)
	q.SetProbe(func(context.Context) bool { return false })

	if err := q.IssueDelivery(models.SalesOrderDelivery{SalesOrderNumber: "SO-1"}); err != nil {
		t.Fatalf("IssueDelivery failed: %v", err)
	}
	if len(d.sent) != 0 {
		t.Fatal("Offline issue must not dispatch")
	}
	if n, _ := q.Count(); n != 1 {
		t.Fatalf("Expected 1 queued, got %d", n)
	}
}

func TestQueue_DeleteBeforeSendIsAtMostOnce(t *testing.T) {
	d := &fakeDispatcher{err: fmt.Errorf("messaging endpoint down")}
	q := newTestQueue(t, d)

	if err := q.IssueDelivery(models.SalesOrderDelivery{SalesOrderNumber: "SO-1"}); err != nil {
		t.Fatalf("IssueDelivery failed: %v", err)
	}

	// The drain itself succeeds; the failed dispatch is logged and the
	// envelope is gone. It must not come back on the next drain.
	if err := q.ProcessUnsent(context.Background()); err != nil {
		t.Fatalf("ProcessUnsent should not fail on dispatch errors: %v", err)
	}
	if n, _ := q.Count(); n != 0 {
		t.Fatalf("Envelope must be deleted before the send attempt, got %d queued", n)
	}

	d.err = nil
	if err := q.ProcessUnsent(context.Background()); err != nil {
		t.Fatalf("ProcessUnsent failed: %v", err)
	}
	if len(d.sent) != 0 {
		t.Fatalf("Lost notification must not be re-sent, got %v", d.sent)
	}
}
