package postgres

import (
	"checklist/internal/infra/persistence/persistencetest"
	"checklist/internal/infra/persistence/postgres/testutil"
	"checklist/pkg/domain"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func replaceWith(records []domain.Record) domain.UpdateFunc {
	return func([]domain.Record, bool) ([]domain.Record, bool, error) { return records, true, nil }
}

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	store, err := NewStoreWithDB(context.Background(), db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, conn
}

func TestStoreLoadMissingCollection(t *testing.T) {
	store, _ := newStubStore(t)
	records, ok, err := store.Load(context.Background(), domain.TodoSchema)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for unsaved collection")
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil collection, got %#v", records)
	}
}

func TestStoreUpdateLoadRoundTrip(t *testing.T) {
	store, conn := newStubStore(t)
	ctx := context.Background()
	todos := []domain.Record{
		{ID: "a", Priority: 2, PrimaryLabel: "ann", SecondaryLabel: "milk"},
		{ID: "b", Checked: true, Priority: 1, PrimaryLabel: "bob", SecondaryLabel: "eggs"},
	}
	players := []domain.Record{{ID: "p", Priority: 3, PrimaryLabel: "Ada", SecondaryLabel: "Lovelace"}}
	if err := store.Update(ctx, domain.TodoSchema, replaceWith(todos)); err != nil {
		t.Fatalf("update todos: %v", err)
	}
	if err := store.Update(ctx, domain.PlayerSchema, replaceWith(players)); err != nil {
		t.Fatalf("update players: %v", err)
	}
	todos[0].Checked = true
	if err := store.Update(ctx, domain.TodoSchema, replaceWith(todos)); err != nil {
		t.Fatalf("reupdate todos: %v", err)
	}
	if got := len(conn.Tables["state"]); got != 2 {
		t.Fatalf("expected one row per collection, got %d", got)
	}

	got, ok, err := store.Load(ctx, domain.TodoSchema)
	if err != nil || !ok {
		t.Fatalf("load todos: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[0] != todos[0] || got[1] != todos[1] {
		t.Fatalf("unexpected todos %#v", got)
	}
	got, _, err = store.Load(ctx, domain.PlayerSchema)
	if err != nil || len(got) != 1 || got[0] != players[0] {
		t.Fatalf("unexpected players %#v err=%v", got, err)
	}
}

func TestStoreLoadCorruptPayload(t *testing.T) {
	store, conn := newStubStore(t)
	conn.Tables["state"] = []map[string]any{{"bucket": "todos", "payload": []byte(`{"not":"an array"}`)}}
	_, ok, err := store.Load(context.Background(), domain.TodoSchema)
	if !ok {
		t.Fatalf("expected ok=true for a present but corrupt payload")
	}
	if !errors.Is(err, domain.ErrCorrupt) {
		t.Fatalf("expected corrupt error, got %v", err)
	}
}

func TestStoreUpdateFailuresKeepPreviousPayload(t *testing.T) {
	store, conn := newStubStore(t)
	ctx := context.Background()
	initial := []domain.Record{{ID: "a", Priority: 3, PrimaryLabel: "ann", SecondaryLabel: "milk"}}
	if err := store.Update(ctx, domain.TodoSchema, replaceWith(initial)); err != nil {
		t.Fatalf("update: %v", err)
	}

	next := append(domain.CloneRecords(initial), domain.Record{ID: "b", Priority: 1, PrimaryLabel: "bob", SecondaryLabel: "eggs"})
	conn.FailCommit = true
	if err := store.Update(ctx, domain.TodoSchema, replaceWith(next)); err == nil {
		t.Fatalf("expected commit failure")
	}
	conn.FailCommit = false

	conn.FailBegin = true
	if err := store.Update(ctx, domain.TodoSchema, replaceWith(next)); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false

	got, _, err := store.Load(ctx, domain.TodoSchema)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0] != initial[0] {
		t.Fatalf("expected previous payload to survive, got %#v", got)
	}
}

func TestStoreUpdateContract(t *testing.T) {
	store, _ := newStubStore(t)
	persistencetest.UpdateContract(t, store)
}

func TestStoreUpdateLocksBeforeReading(t *testing.T) {
	store, conn := newStubStore(t)
	ctx := context.Background()
	conn.Execs, conn.Queries = nil, nil

	var execsAtRead int
	err := store.Update(ctx, domain.TodoSchema, func(current []domain.Record, ok bool) ([]domain.Record, bool, error) {
		execsAtRead = len(conn.Execs)
		return append(current, domain.Record{ID: "a", Priority: 2, PrimaryLabel: "ann", SecondaryLabel: "milk"}), true, nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(conn.Execs) != 2 || execsAtRead != 1 {
		t.Fatalf("expected lock then upsert, got %q (read after %d)", conn.Execs, execsAtRead)
	}
	if !strings.Contains(conn.Execs[0], "pg_advisory_xact_lock") {
		t.Fatalf("expected advisory lock first, got %q", conn.Execs[0])
	}
	if !strings.HasPrefix(conn.Execs[1], "INSERT INTO state") {
		t.Fatalf("expected upsert after the read, got %q", conn.Execs[1])
	}
	if len(conn.Queries) != 1 {
		t.Fatalf("expected exactly one read inside the update, got %q", conn.Queries)
	}
}

func TestStoreUpdateLockFailureSkipsWrite(t *testing.T) {
	store, conn := newStubStore(t)
	conn.FailExec = true
	called := false
	err := store.Update(context.Background(), domain.TodoSchema, func([]domain.Record, bool) ([]domain.Record, bool, error) {
		called = true
		return nil, true, nil
	})
	if err == nil || !strings.Contains(err.Error(), "lock todos") {
		t.Fatalf("expected lock error, got %v", err)
	}
	if called {
		t.Fatalf("update function must not run without the lock")
	}
}

func TestNewStoreUsesOverriddenOpen(t *testing.T) {
	db, _ := testutil.NewStubDB()
	var gotDriver, gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return db, nil
	})
	defer restore()

	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if gotDriver != "pgx" || gotDSN != defaultDSN {
		t.Fatalf("unexpected open args %s %s", gotDriver, gotDSN)
	}
	if store.Driver() != "postgres" || store.DB() != db {
		t.Fatalf("unexpected store wiring")
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) {
		return nil, errors.New("boom")
	})
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil {
		t.Fatalf("expected open error")
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil {
		t.Fatalf("expected ping error")
	}

	if _, err := NewStoreWithDB(context.Background(), nil); !errors.Is(err, errNilDB) {
		t.Fatalf("expected nil db error, got %v", err)
	}
}
