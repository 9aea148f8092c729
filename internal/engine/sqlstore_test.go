package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/celerix-dev/celerix-records/pkg/records"
)

var noteColumns = []string{"id", "title", "content", "text", "is_boolean", "rank"}

func newMockGateway(t *testing.T) (records.Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db, DialectPostgres, nil)
	if err != nil {
		t.Fatalf("NewSQLStore failed: %v", err)
	}
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "table1"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	gw, err := store.Collection(context.Background(), noteSchema(t, "table1"))
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}
	return gw, mock
}

func TestSQLStore_InsertReturnsStoredRow(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "table1"`)).
		WithArgs("a", "c", nil, true, int64(3)).
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(int64(1), "a", "c", nil, true, int64(3)))

	rec, err := gw.Insert(context.Background(), note("a"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if rec.ID != 1 || rec.Values["title"] != "a" || rec.Values["text"] != nil || rec.Values["is_boolean"] != true {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSQLStore_GetMissingIsNotFound(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "title"`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(noteColumns))

	_, err := gw.Get(context.Background(), 9)
	var nf *records.NotFoundError
	if !errors.As(err, &nf) || nf.ID != 9 {
		t.Fatalf("Expected NotFoundError for 9, got %v", err)
	}
}

func TestSQLStore_UpdateMissingIsNotFound(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "table1"`)).
		WillReturnRows(sqlmock.NewRows(noteColumns))

	if _, err := gw.Update(context.Background(), 4, note("x")); !records.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestSQLStore_DeleteMissingIsNotFound(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "table1"`)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := gw.Delete(context.Background(), 4); !records.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestSQLStore_DriverFailureIsPersistenceError(t *testing.T) {
	gw, mock := newMockGateway(t)
	boom := errors.New("connection refused")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "title"`)).WillReturnError(boom)

	_, err := gw.List(context.Background())
	var pe *records.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected PersistenceError, got %v", err)
	}
	if pe.Op != "list" || !errors.Is(err, boom) {
		t.Errorf("PersistenceError should wrap the driver error, got %+v", pe)
	}
}

func TestSQLStore_ConstraintViolationIsPersistenceError(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "table1"`)).
		WillReturnError(errors.New(`null value in column "title" violates not-null constraint`))

	values := note("a")
	values["title"] = nil
	_, err := gw.Insert(context.Background(), values)
	var pe *records.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "insert" {
		t.Fatalf("Expected PersistenceError, got %v", err)
	}
}

func TestSQLStore_SQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "records.db")

	provider, err := Open(ctx, Options{Backend: BackendSQLite, DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer provider.Close()

	exerciseGateway(t, provider)
}

func TestSQLStore_SQLiteInMemoryOutlivesConnMaxLifetime(t *testing.T) {
	ctx := context.Background()
	provider, err := Open(ctx, Options{
		Backend:         BackendSQLite,
		DSN:             ":memory:",
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer provider.Close()

	gw, err := provider.Collection(ctx, noteSchema(t, "table1"))
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}
	rec, err := gw.Insert(ctx, note("a"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Past the configured lifetime the table and its row must still exist.
	time.Sleep(20 * time.Millisecond)
	if _, err := gw.Get(ctx, rec.ID); err != nil {
		t.Fatalf("Get after lifetime failed: %v", err)
	}
	if _, err := gw.Insert(ctx, note("b")); err != nil {
		t.Fatalf("Insert after lifetime failed: %v", err)
	}
}

func TestInMemorySQLite(t *testing.T) {
	for dsn, want := range map[string]bool{
		":memory:":                        true,
		"file::memory:?cache=shared":      true,
		"file:records?mode=memory":        true,
		"/var/lib/celerix/records.db":     false,
		"file:records.db?_pragma=foreign": false,
	} {
		if got := inMemorySQLite(dsn); got != want {
			t.Errorf("inMemorySQLite(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestSQLStore_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	provider, err := Open(context.Background(), Options{Backend: BackendPostgres, DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer provider.Close()

	exerciseGateway(t, provider)
}

func exerciseGateway(t *testing.T, provider records.Provider) {
	t.Helper()
	ctx := context.Background()

	if err := provider.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	gw, err := provider.Collection(ctx, noteSchema(t, "table1"))
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}

	rec, err := gw.Insert(ctx, note("a"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if rec.ID < 1 {
		t.Fatalf("Expected a positive identity, got %d", rec.ID)
	}

	got, err := gw.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Values["title"] != "a" || got.Values["is_boolean"] != true || got.Values["rank"] != int64(3) || got.Values["text"] != nil {
		t.Errorf("Unexpected values: %#v", got.Values)
	}

	updated, err := gw.Update(ctx, rec.ID, records.Values{"title": "b", "content": "d", "is_boolean": false})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Values["title"] != "b" || updated.Values["is_boolean"] != false || updated.Values["rank"] != nil {
		t.Errorf("Unexpected values after update: %#v", updated.Values)
	}

	list, err := gw.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) == 0 || list[len(list)-1].ID != rec.ID {
		t.Errorf("Expected the record in the listing, got %v", list)
	}

	if err := gw.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := gw.Get(ctx, rec.ID); !records.IsNotFound(err) {
		t.Errorf("Expected NotFoundError after delete, got %v", err)
	}
	if err := gw.Delete(ctx, rec.ID); !records.IsNotFound(err) {
		t.Errorf("Expected NotFoundError on second delete, got %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Options{Backend: "mongo"}, nil); err == nil {
		t.Error("Expected an error for an unknown backend")
	}
	if _, err := Open(ctx, Options{Backend: BackendSQLite}, nil); err == nil {
		t.Error("Expected an error for a missing dsn")
	}
}

func TestOpen_File(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	provider, err := Open(ctx, Options{Backend: BackendFile, DataDir: dir}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	gw, _ := provider.Collection(ctx, noteSchema(t, "table1"))
	if _, err := gw.Insert(ctx, note("a")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := provider.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(ctx, Options{Backend: BackendFile, DataDir: dir}, nil)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	gw, _ = reopened.Collection(ctx, noteSchema(t, "table1"))
	list, _ := gw.List(ctx)
	if len(list) != 1 {
		t.Errorf("Expected 1 record after reopen, got %d", len(list))
	}
}
