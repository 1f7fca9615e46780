// Package testutil provides shared helpers for package tests: isolated
// account stores and property fixtures.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/storage"
)

// SetupTestStore creates a migrated in-memory account store that is closed
// when the test finishes.
//
// Example:
//
//	store := testutil.SetupTestStore(t)
//	testutil.SeedAccount(t, store, "acct-1", model.SetCredential("token"))
func SetupTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	return setup(t, ":memory:")
}

// SetupFileStore creates a migrated store backed by a file in t.TempDir and
// returns it with its path, for tests that reopen the database.
func SetupFileStore(t *testing.T) (*storage.SQLiteStorage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fieldwise.db")
	return setup(t, path), path
}

func setup(t *testing.T, path string) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// SeedAccount applies update to accountID or fails the test.
func SeedAccount(t *testing.T, store *storage.SQLiteStorage, accountID string, update model.AccountUpdate) *model.Account {
	t.Helper()

	account, err := store.UpsertAccount(context.Background(), accountID, update)
	if err != nil {
		t.Fatalf("failed to seed account %q: %v", accountID, err)
	}
	return account
}

// MustGetAccount returns the stored account or fails the test.
func MustGetAccount(t *testing.T, store *storage.SQLiteStorage, accountID string) *model.Account {
	t.Helper()

	account, err := store.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("failed to get account %q: %v", accountID, err)
	}
	return account
}
