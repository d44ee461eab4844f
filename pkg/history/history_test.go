package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func entry(name string, status Status, at time.Time) Entry {
	return Entry{ID: uuid.NewString(), Name: name, Spec: "latest", Status: status, Outcome: string(status), UpdatedAt: at}
}

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for _, e := range []Entry{
		entry("express", StatusPending, base.Add(2*time.Second)),
		entry("left-pad", StatusBlocked, base),
		entry("zod", StatusPending, base.Add(time.Second)),
	} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s): %v", e.Name, err)
		}
	}

	pending, err := s.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].Name != "zod" || pending[1].Name != "express" {
		t.Errorf("Pending = %+v, want zod then express", pending)
	}

	// A later success replaces the pending entry.
	if err := s.Record(ctx, entry("express", StatusDone, base.Add(3*time.Second))); err != nil {
		t.Fatal(err)
	}
	pending, _ = s.Pending(ctx)
	if len(pending) != 1 || pending[0].Name != "zod" {
		t.Errorf("Pending after success = %+v", pending)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("List has %d entries, want 3", len(all))
	}
	if all[0].Name != "left-pad" || all[0].Status != StatusBlocked {
		t.Errorf("oldest entry = %+v", all[0])
	}

	// Two specifiers of one package are tracked apart.
	old := entry("zod", StatusDone, base.Add(4*time.Second))
	old.Spec = "^4"
	if err := s.Record(ctx, old); err != nil {
		t.Fatal(err)
	}
	pending, _ = s.Pending(ctx)
	if len(pending) != 1 || pending[0].Key() != "zod@latest" {
		t.Errorf("Pending after zod@^4 done = %+v, want zod@latest still pending", pending)
	}
	if all, _ = s.List(ctx); len(all) != 4 {
		t.Errorf("List has %d entries, want 4", len(all))
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseStore(t, s)

	// A fresh store over the same file sees the same ledger.
	again, _ := NewFileStore(path)
	pending, err := again.Pending(context.Background())
	if err != nil || len(pending) != 1 {
		t.Errorf("reopened Pending = %v, %v", pending, err)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, _ := NewFileStore(path)
	if _, err := s.Pending(context.Background()); err == nil {
		t.Error("expected an error for a corrupt ledger")
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	got, err := DefaultPath("stackgate")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/tmp/state", "stackgate", "history.json") {
		t.Errorf("DefaultPath = %s", got)
	}
}

func TestNullStore(t *testing.T) {
	s := NewNullStore()
	if err := s.Record(context.Background(), entry("x", StatusPending, time.Now())); err != nil {
		t.Fatal(err)
	}
	if p, _ := s.Pending(context.Background()); len(p) != 0 {
		t.Error("NullStore should not keep entries")
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("STACKGATE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("STACKGATE_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	collection := "history_test_" + uuid.NewString()[:8]
	s, err := NewMongoStore(ctx, uri, "stackgate_test", collection)
	if err != nil {
		t.Fatalf("NewMongoStore: %v", err)
	}
	defer func() {
		_ = s.coll.Drop(ctx)
		s.Close()
	}()
	exerciseStore(t, s)
}
