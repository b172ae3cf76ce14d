package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/warefront/fieldsync/internal/models"
)

// fakeRemote scripts gateway responses per call.
type fakeRemote struct {
	createFn func(table string, payload []byte) ([]byte, error)
	updateFn func(table, id, version string, payload []byte) ([]byte, error)
	deleteFn func(table, id, version string) error
	listFn   func(table string, filter map[string]string) ([]byte, error)
	calls    []string
}

func (f *fakeRemote) Create(_ context.Context, table string, payload []byte) ([]byte, error) {
	f.calls = append(f.calls, "create "+table)
	if f.createFn != nil {
		return f.createFn(table, payload)
	}
	return payload, nil
}

func (f *fakeRemote) Update(_ context.Context, table, id, version string, payload []byte) ([]byte, error) {
	f.calls = append(f.calls, "update "+table+"/"+id)
	if f.updateFn != nil {
		return f.updateFn(table, id, version, payload)
	}
	return payload, nil
}

func (f *fakeRemote) Delete(_ context.Context, table, id, version string) error {
	f.calls = append(f.calls, "delete "+table+"/"+id)
	if f.deleteFn != nil {
		return f.deleteFn(table, id, version)
	}
	return nil
}

func (f *fakeRemote) List(_ context.Context, table string, filter map[string]string) ([]byte, error) {
	f.calls = append(f.calls, "list "+table)
	if f.listFn != nil {
		return f.listFn(table, filter)
	}
	return []byte("[]"), nil
}

func newTestClient(t *testing.T, rem Remote) *Client {
	t.Helper()
	return NewClient(newTestDB(t), rem)
}

func TestTable_InsertQueuesCreate(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	notes := NewTable[models.NoteWorkItem](client)

	note := &models.NoteWorkItem{NoteType: "delivery", NoteParentFk: "SO-1", NoteText: "left at dock"}
	if err := notes.Insert(note); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if note.ID == "" {
		t.Fatal("Insert should pre-assign an id")
	}

	stored, err := notes.Get(note.ID)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if stored.NoteText != "left at dock" {
		t.Errorf("Unexpected note text: %s", stored.NoteText)
	}

	ops, _ := client.Queue().Pending()
	if len(ops) != 1 || ops[0].Kind != models.OperationCreate {
		t.Fatalf("Expected one queued create, got %+v", ops)
	}
	if ops[0].TableName != "note_work_items" || ops[0].RecordID != note.ID {
		t.Errorf("Queue entry points at %s/%s", ops[0].TableName, ops[0].RecordID)
	}
}

func TestClient_PushAppliesServerCopy(t *testing.T) {
	rem := &fakeRemote{
		createFn: func(table string, payload []byte) ([]byte, error) {
			var note models.NoteWorkItem
			json.Unmarshal(payload, &note)
			note.Version = "server-v1"
			return json.Marshal(note)
		},
	}
	client := newTestClient(t, rem)
	notes := NewTable[models.NoteWorkItem](client)

	note := &models.NoteWorkItem{NoteText: "hello"}
	if err := notes.Insert(note); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	if err := client.Push(context.Background()); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if n, _ := client.PendingOperationCount(); n != 0 {
		t.Fatalf("Expected empty queue after push, got %d", n)
	}
	stored, err := notes.Get(note.ID)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if stored.Version != "server-v1" {
		t.Errorf("Server version not applied, got %q", stored.Version)
	}
}

func TestClient_PushIsIdempotentWhenQueueEmpty(t *testing.T) {
	rem := &fakeRemote{}
	client := newTestClient(t, rem)
	notes := NewTable[models.NoteWorkItem](client)

	if err := notes.Insert(&models.NoteWorkItem{NoteText: "once"}); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := client.Push(context.Background()); err != nil {
		t.Fatalf("First push failed: %v", err)
	}
	if err := client.Push(context.Background()); err != nil {
		t.Fatalf("Second push failed: %v", err)
	}
	if len(rem.calls) != 1 {
		t.Errorf("Expected exactly one remote call, got %v", rem.calls)
	}
}

func TestClient_PushConflictServerWins(t *testing.T) {
	serverNote := models.NoteWorkItem{
		SyncMeta: models.SyncMeta{Version: "server-v9"},
		NoteText: "server text",
	}

	rem := &fakeRemote{
		updateFn: func(table, id, version string, payload []byte) ([]byte, error) {
			var note models.NoteWorkItem
			json.Unmarshal(payload, &note)
			serverNote.ID = note.ID
			body, _ := json.Marshal(serverNote)
			return nil, &RemoteError{StatusCode: 409, ServerRecord: body}
		},
	}
	client := newTestClient(t, rem)
	notes := NewTable[models.NoteWorkItem](client)

	note := &models.NoteWorkItem{NoteText: "local text"}
	if err := notes.Insert(note); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	// Empty the create from the queue first.
	if err := client.Push(context.Background()); err != nil {
		t.Fatalf("Initial push failed: %v", err)
	}

	note.NoteText = "local edit"
	if err := notes.Update(note); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if err := client.Push(context.Background()); err != nil {
		t.Fatalf("Push with conflict should not fail the drain: %v", err)
	}

	if n, _ := client.PendingOperationCount(); n != 0 {
		t.Fatalf("Conflicted operation should be dropped, %d still queued", n)
	}
	stored, err := notes.Get(note.ID)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if stored.NoteText != "server text" || stored.Version != "server-v9" {
		t.Errorf("Server record should win, got text=%q version=%q", stored.NoteText, stored.Version)
	}
}

func TestClient_PushDiscardsMalformedOperation(t *testing.T) {
	rem := &fakeRemote{
		createFn: func(table string, payload []byte) ([]byte, error) {
			return nil, &RemoteError{StatusCode: 400}
		},
	}
	client := newTestClient(t, rem)
	notes := NewTable[models.NoteWorkItem](client)

	if err := notes.Insert(&models.NoteWorkItem{NoteText: "bad"}); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := client.Push(context.Background()); err != nil {
		t.Fatalf("Malformed operation should be discarded, not fail: %v", err)
	}
	if n, _ := client.PendingOperationCount(); n != 0 {
		t.Fatalf("Expected malformed operation dropped, %d still queued", n)
	}
}

func TestClient_PushStopsOnTransientFailure(t *testing.T) {
	rem := &fakeRemote{
		createFn: func(table string, payload []byte) ([]byte, error) {
			return nil, fmt.Errorf("connection reset")
		},
	}
	client := newTestClient(t, rem)
	notes := NewTable[models.NoteWorkItem](client)

	notes.Insert(&models.NoteWorkItem{NoteText: "first"})
	notes.Insert(&models.NoteWorkItem{NoteText: "second"})

	if err := client.Push(context.Background()); err == nil {
		t.Fatal("Expected push to surface the transient failure")
	}
	if n, _ := client.PendingOperationCount(); n != 2 {
		t.Fatalf("Transient failure must keep the queue intact, got %d", n)
	}
	if len(rem.calls) != 1 {
		t.Errorf("Drain should stop at the first failure, got calls %v", rem.calls)
	}

	ops, _ := client.Queue().Pending()
	if ops[0].Attempts != 1 {
		t.Errorf("Expected attempt counter bumped, got %d", ops[0].Attempts)
	}
}

func TestTable_PullSkipsLocallyOwnedRows(t *testing.T) {
	local := models.NoteWorkItem{NoteText: "local edit"}
	server := []models.NoteWorkItem{
		{SyncMeta: models.SyncMeta{ID: "srv-1", Version: "v1"}, NoteText: "from server"},
	}

	rem := &fakeRemote{
		listFn: func(table string, filter map[string]string) ([]byte, error) {
			return json.Marshal(server)
		},
	}
	client := newTestClient(t, rem)
	notes := NewTable[models.NoteWorkItem](client)

	if err := notes.Insert(&local); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	// The server also has a newer copy of the locally owned row; the queued
	// create must keep it untouched.
	server = append(server, models.NoteWorkItem{
		SyncMeta: models.SyncMeta{ID: local.ID, Version: "v7"},
		NoteText: "server overwrite",
	})

	if err := notes.Pull(context.Background(), nil); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}

	mine, err := notes.Get(local.ID)
	if err != nil {
		t.Fatalf("Locally owned row disappeared: %v", err)
	}
	if mine.NoteText != "local edit" {
		t.Errorf("Pull clobbered a locally owned row: %q", mine.NoteText)
	}

	pulled, err := notes.Get("srv-1")
	if err != nil {
		t.Fatalf("Server row missing after pull: %v", err)
	}
	if pulled.NoteText != "from server" {
		t.Errorf("Unexpected pulled row: %q", pulled.NoteText)
	}
}

func TestTable_PullPrunesRowsAbsentOnServer(t *testing.T) {
	rem := &fakeRemote{
		listFn: func(table string, filter map[string]string) ([]byte, error) {
			return []byte("[]"), nil
		},
	}
	client := newTestClient(t, rem)
	notes := NewTable[models.NoteWorkItem](client)

	note := &models.NoteWorkItem{NoteText: "stale"}
	if err := notes.Insert(note); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	// Acknowledge the create so nothing is queued for the row.
	if err := client.Push(context.Background()); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if err := notes.Pull(context.Background(), nil); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if _, err := notes.Get(note.ID); err == nil {
		t.Fatal("Row absent on server should be pruned after pull")
	}
}

func TestClient_EnsureReadyRunsOnce(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	if err := client.EnsureReady(); err != nil {
		t.Fatalf("First EnsureReady failed: %v", err)
	}
	if err := client.EnsureReady(); err != nil {
		t.Fatalf("Second EnsureReady failed: %v", err)
	}
}
