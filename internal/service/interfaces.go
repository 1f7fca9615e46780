// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/fieldwise/internal/model"
)

// AccountStore persists account connection state.
type AccountStore interface {
	// GetAccount returns common.ErrNotFound when the account does not exist.
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	// UpsertAccount merges update into the stored record, creating it if absent,
	// and returns the record as persisted.
	UpsertAccount(ctx context.Context, id string, update model.AccountUpdate) (*model.Account, error)
	// UpdateAccount merges update into an existing record only; it returns
	// common.ErrNotFound rather than recreating a deleted account.
	UpdateAccount(ctx context.Context, id string, update model.AccountUpdate) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// Platform is the SaaS platform's GraphQL API.
type Platform interface {
	Account(ctx context.Context, credential string) (*model.PlatformAccount, error)
	Property(ctx context.Context, credential, propertyID string) (*model.PropertyDetails, error)
	CreateTextField(ctx context.Context, credential, name string) (string, error)
	UpdatePropertyFields(ctx context.Context, credential, propertyID string, values []model.FieldValue) error
	Disconnect(ctx context.Context, credential string) error
}

// PropertyLookup is the third-party property-data API.
// A nil result with a nil error means the API has no data for the address.
type PropertyLookup interface {
	Lookup(ctx context.Context, address model.AddressLines) (*model.PropertyAttributes, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
