package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "accounts.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return store, dbPath
}

func category(c string) *model.Category {
	cat := model.Category(c)
	return &cat
}

func TestSQLiteStorage_GetAccountNotFound(t *testing.T) {
	store, _ := createTestStorage(t)

	_, err := store.GetAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_UpsertCreatesAndMerges(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	created, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{
		Credential: ptr("token-1"),
		Category:   category("HVAC"),
	})
	require.NoError(t, err)
	assert.Equal(t, "token-1", created.Credential)
	assert.Equal(t, model.Category("HVAC"), created.Category)
	assert.Empty(t, created.FieldMapping)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{
		FieldMapping: map[model.FieldKey]string{"heatingType": "cf-1"},
	})
	require.NoError(t, err)

	updated, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{
		FieldMapping: map[model.FieldKey]string{"coolingType": "cf-2"},
	})
	require.NoError(t, err)

	// Fields not named in an update are left alone.
	assert.Equal(t, "token-1", updated.Credential)
	assert.Equal(t, model.Category("HVAC"), updated.Category)
	assert.Equal(t, map[model.FieldKey]string{
		"heatingType": "cf-1",
		"coolingType": "cf-2",
	}, updated.FieldMapping)
}

func TestSQLiteStorage_ClearCredentialKeepsMapping(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	_, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{
		Credential:   ptr("token-1"),
		FieldMapping: map[model.FieldKey]string{"lotSize": "cf-1"},
	})
	require.NoError(t, err)

	cleared, err := store.UpsertAccount(ctx, "acct-1", model.ClearCredential())
	require.NoError(t, err)
	assert.False(t, cleared.Connected())
	assert.True(t, cleared.Provisioned())

	reconnected, err := store.UpsertAccount(ctx, "acct-1", model.SetCredential("token-2"))
	require.NoError(t, err)
	assert.Equal(t, "token-2", reconnected.Credential)
	assert.Equal(t, "cf-1", reconnected.FieldMapping["lotSize"])
}

func TestSQLiteStorage_ResetMapping(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	_, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{
		FieldMapping: map[model.FieldKey]string{"lotSize": "cf-1", "zoning": "cf-2"},
	})
	require.NoError(t, err)

	reset, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{ResetMapping: true})
	require.NoError(t, err)
	assert.Empty(t, reset.FieldMapping)
}

func TestSQLiteStorage_UpdateAccountNeverCreates(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	_, err := store.UpdateAccount(ctx, "acct-1", model.ClearCredential())
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.GetAccount(ctx, "acct-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.UpsertAccount(ctx, "acct-1", model.SetCredential("token-1"))
	require.NoError(t, err)

	updated, err := store.UpdateAccount(ctx, "acct-1", model.ClearCredential())
	require.NoError(t, err)
	assert.False(t, updated.Connected())

	require.NoError(t, store.DeleteAccount(ctx, "acct-1"))
	_, err = store.UpdateAccount(ctx, "acct-1", model.AccountUpdate{
		FieldMapping: map[model.FieldKey]string{"lotSize": "cf-1"},
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.GetAccount(ctx, "acct-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_InitialCategory(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	created, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{InitialCategory: category("HVAC")})
	require.NoError(t, err)
	assert.Equal(t, model.Category("HVAC"), created.Category)

	changed, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{InitialCategory: category("PLUMBING")})
	require.NoError(t, err)
	assert.Equal(t, model.Category("PLUMBING"), changed.Category, "unprovisioned accounts follow the platform")

	_, err = store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{
		FieldMapping: map[model.FieldKey]string{"yearBuilt": "cf-1"},
	})
	require.NoError(t, err)

	kept, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{
		Credential:      ptr("token-2"),
		InitialCategory: category("POOL_AND_SPA"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.Category("PLUMBING"), kept.Category)
	assert.Equal(t, "token-2", kept.Credential)
}

func TestSQLiteStorage_RejectsInvalidUpdates(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	_, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{Credential: ptr("x"), ClearCredential: true})
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	_, err = store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{FieldMapping: map[model.FieldKey]string{"lotSize": ""}})
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	_, err = store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{Category: category("HVAC"), InitialCategory: category("HVAC")})
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	_, err = store.UpsertAccount(ctx, " ", model.SetCredential("x"))
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_PersistsAcrossReload(t *testing.T) {
	store, dbPath := createTestStorage(t)
	ctx := context.Background()

	_, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{
		Credential:   ptr("token-1"),
		Category:     category("LAWN_CARE_AND_LAWN_MAINTENANCE"),
		FieldMapping: map[model.FieldKey]string{"lotSize": "cf-1", "zoning": "cf-3"},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate(ctx))

	account, err := reopened.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "token-1", account.Credential)
	assert.Equal(t, model.Category("LAWN_CARE_AND_LAWN_MAINTENANCE"), account.Category)
	assert.Equal(t, map[model.FieldKey]string{"lotSize": "cf-1", "zoning": "cf-3"}, account.FieldMapping)
}

func TestSQLiteStorage_ListAndDelete(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		_, err := store.UpsertAccount(ctx, id, model.AccountUpdate{
			FieldMapping: map[model.FieldKey]string{"yearBuilt": "cf-" + id},
		})
		require.NoError(t, err)
	}

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "a", accounts[0].ID)
	assert.Equal(t, "cf-a", accounts[0].FieldMapping["yearBuilt"])

	require.NoError(t, store.DeleteAccount(ctx, "b"))
	_, err = store.GetAccount(ctx, "b")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, store.DeleteAccount(ctx, "b"), common.ErrNotFound)
}

func TestSQLiteStorage_ConcurrentUpserts(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.UpsertAccount(ctx, "acct-1", model.AccountUpdate{
				FieldMapping: map[model.FieldKey]string{model.FieldKey(fmt.Sprintf("field%d", i)): fmt.Sprintf("cf-%d", i)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	account, err := store.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, account.FieldMapping, 10)
}

func TestSQLiteStorage_Migrations(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestNewSQLiteStorage_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.Migrate(context.Background()))

	_, err = store.UpsertAccount(context.Background(), "acct-1", model.SetCredential("t"))
	require.NoError(t, err)
}

func ptr[T any](v T) *T {
	return &v
}
