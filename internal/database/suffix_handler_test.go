package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"suffixrank/internal/config"
	"suffixrank/internal/domain"
)

func setupSuffixTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := SetupDB(config.DatabaseSettings{Driver: config.DriverSQLite}, WithDialector(sqlite.Open(dsn)))
	if err != nil {
		t.Fatalf("setup test database: %v", err)
	}

	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}

func records(pairs ...string) []domain.SuffixRecord {
	out := make([]domain.SuffixRecord, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.SuffixRecord{Suffix: pairs[i], Canonical: pairs[i+1]})
	}
	return out
}

func TestInsertSuffixesInsertOrIgnore(t *testing.T) {
	store := NewSuffixStore(setupSuffixTestDB(t), 2)
	ctx := context.Background()

	first := records(
		"uk", "uk",
		"рф", "xn--p1ai",
		"co.uk", "co.uk",
		"xn--p1ai", "xn--p1ai",
	)

	inserted, err := store.InsertSuffixes(ctx, first)
	if err != nil {
		t.Fatalf("InsertSuffixes returned error: %v", err)
	}
	if inserted != 3 {
		t.Fatalf("inserted %d rows, want 3", inserted)
	}

	rows, err := store.ListSuffixes(ctx)
	if err != nil {
		t.Fatalf("ListSuffixes returned error: %v", err)
	}
	want := []string{"uk", "рф", "co.uk"}
	if len(rows) != len(want) {
		t.Fatalf("stored %d rows, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].Suffix != w {
			t.Fatalf("row %d = %q, want %q", i, rows[i].Suffix, w)
		}
		if rows[i].ID == 0 {
			t.Fatalf("row %d has no id", i)
		}
	}
	if rows[1].PunycodeSuffix != "xn--p1ai" {
		t.Fatalf("punycode column = %q, want xn--p1ai", rows[1].PunycodeSuffix)
	}
}

func TestInsertSuffixesRerunIsNoop(t *testing.T) {
	store := NewSuffixStore(setupSuffixTestDB(t), 0)
	ctx := context.Background()
	batch := records("uk", "uk", "co.uk", "co.uk", "com", "com")

	if _, err := store.InsertSuffixes(ctx, batch); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	inserted, err := store.InsertSuffixes(ctx, batch)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("second insert added %d rows, want 0", inserted)
	}

	count, err := store.CountSuffixes(ctx)
	if err != nil {
		t.Fatalf("CountSuffixes returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestInsertSuffixesCaseInsensitiveUniqueness(t *testing.T) {
	store := NewSuffixStore(setupSuffixTestDB(t), 0)
	ctx := context.Background()

	if _, err := store.InsertSuffixes(ctx, records("uk", "uk")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	inserted, err := store.InsertSuffixes(ctx, records(
		"UK", "UK", // suffix collides ignoring case
		"Uk2", "UK", // canonical form collides ignoring case
		"uk2", "uk2",
	))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted %d rows, want 1", inserted)
	}
}

func TestInsertSuffixesEmpty(t *testing.T) {
	store := NewSuffixStore(setupSuffixTestDB(t), 0)
	inserted, err := store.InsertSuffixes(context.Background(), nil)
	if err != nil || inserted != 0 {
		t.Fatalf("InsertSuffixes(nil) = (%d, %v), want (0, nil)", inserted, err)
	}
}

func TestFindSuffixes(t *testing.T) {
	store := NewSuffixStore(setupSuffixTestDB(t), 0)
	ctx := context.Background()

	if _, err := store.InsertSuffixes(ctx, records("uk", "uk", "co.uk", "co.uk", "рф", "xn--p1ai")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := store.FindSuffixes(ctx, []string{"example.co.uk", "CO.UK", "uk", "xn--p1ai"})
	if err != nil {
		t.Fatalf("FindSuffixes returned error: %v", err)
	}

	got := make(map[string]bool, len(rows))
	for _, r := range rows {
		got[r.Suffix] = true
	}
	for _, want := range []string{"uk", "co.uk", "рф"} {
		if !got[want] {
			t.Errorf("FindSuffixes did not return %q (got %v)", want, got)
		}
	}
	if len(rows) != 3 {
		t.Fatalf("FindSuffixes returned %d rows, want 3", len(rows))
	}
}

func TestSuffixStoreWithoutDB(t *testing.T) {
	var store *SuffixStore
	if _, err := store.InsertSuffixes(context.Background(), records("uk", "uk")); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestSetupDBSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public_suffix_list.sqlite")

	db, err := SetupDB(config.DatabaseSettings{Driver: config.DriverSQLite, Path: path})
	if err != nil {
		t.Fatalf("SetupDB returned error: %v", err)
	}
	defer Close(db)

	if !db.Migrator().HasTable("psl") {
		t.Fatal("expected psl table to exist")
	}
	if !db.Migrator().HasIndex("psl", "idx_psl_suffix_nocase") {
		t.Fatal("expected case-insensitive suffix index")
	}

	// reopening an existing store must not fail on the schema statements
	again, err := SetupDB(config.DatabaseSettings{Driver: config.DriverSQLite, Path: path})
	if err != nil {
		t.Fatalf("second SetupDB returned error: %v", err)
	}
	_ = Close(again)
}

func TestSetupDBUnsupportedDriver(t *testing.T) {
	if _, err := SetupDB(config.DatabaseSettings{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
