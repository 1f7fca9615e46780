// Package enrich runs the per-webhook enrichment pipeline: resolve the new
// property's address, look up its attributes, and write the fields relevant to
// the account's category back to the platform.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/fields"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/service"
)

// Result is what the pipeline learned about one property.
type Result struct {
	Property *model.PropertyDetails
	Lookup   *model.LookupResult
	Written  int
}

// Pipeline enriches newly created properties.
type Pipeline struct {
	store    service.AccountStore
	platform service.Platform
	lookup   service.PropertyLookup
}

// New creates a Pipeline.
func New(store service.AccountStore, platform service.Platform, lookup service.PropertyLookup) *Pipeline {
	return &Pipeline{
		store:    store,
		platform: platform,
		lookup:   lookup,
	}
}

// Process enriches propertyID on behalf of accountID. It never returns an
// error: every failure is logged and reflected in the partial Result.
func (p *Pipeline) Process(ctx context.Context, accountID, propertyID string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Enrichment panicked",
				"account_id", accountID,
				"property_id", propertyID,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	log := slog.With("account_id", accountID, "property_id", propertyID)

	if accountID == "" {
		log.Info("Skipping webhook without an account")
		return result
	}

	account, err := p.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Info("Skipping webhook for unknown account")
		} else {
			common.LogError(err, "Failed to load account", common.Fields{"account_id": accountID})
		}
		return result
	}
	if !account.Connected() {
		log.Info("Skipping webhook for disconnected account")
		return result
	}

	property, err := p.platform.Property(ctx, account.Credential, propertyID)
	if err != nil {
		p.handleRemoteError(ctx, accountID, err, "Failed to fetch property")
		return result
	}
	result.Property = property

	if property.Address == nil || property.Address.IsZero() {
		log.Info("Property has no address to look up")
		return result
	}

	lines := property.Address.Lines()
	attrs, err := p.lookup.Lookup(ctx, lines)
	if err != nil {
		common.LogError(err, "Property lookup failed", common.Fields{
			"account_id":  accountID,
			"property_id": propertyID,
			"address1":    lines.Line1,
		})
		result.Lookup = &model.LookupResult{Error: lookupError(err)}
		return result
	}
	result.Lookup = &model.LookupResult{Property: attrs}

	if attrs == nil {
		log.Info("No property data for address", "address1", lines.Line1, "address2", lines.Line2)
		return result
	}

	if !account.Provisioned() {
		log.Info("Account has no provisioned fields, skipping write-back")
		return result
	}

	values := Values(account.FieldMapping, attrs)
	if len(values) == 0 {
		log.Info("No mapped attributes present for property")
		return result
	}

	if err := p.platform.UpdatePropertyFields(ctx, account.Credential, propertyID, values); err != nil {
		p.handleRemoteError(ctx, accountID, err, "Failed to write property fields")
		return result
	}

	result.Written = len(values)
	log.Info("Wrote property fields", "fields", result.Written)
	return result
}

// Values extracts every mapped key present in attrs, ordered by catalog
// position.
func Values(mapping map[model.FieldKey]string, attrs *model.PropertyAttributes) []model.FieldValue {
	values := make([]model.FieldValue, 0, len(mapping))
	for key, fieldID := range mapping {
		value, ok := fields.Extract(key, attrs)
		if !ok {
			continue
		}
		values = append(values, model.FieldValue{
			Key:     key,
			FieldID: fieldID,
			Value:   value.String(),
		})
	}

	sort.Slice(values, func(i, j int) bool {
		oi, oj := fields.Order(values[i].Key), fields.Order(values[j].Key)
		if oi != oj {
			return oi < oj
		}
		return values[i].Key < values[j].Key
	})
	return values
}

// lookupError reports the lookup service's own message when it sent one.
func lookupError(err error) string {
	var appErr *common.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}

// handleRemoteError logs err and clears the stored credential when the
// platform rejected it.
func (p *Pipeline) handleRemoteError(ctx context.Context, accountID string, err error, msg string) {
	common.LogError(err, msg, common.Fields{"account_id": accountID})

	if !errors.Is(err, common.ErrCredentialInvalid) {
		return
	}
	_, clearErr := p.store.UpdateAccount(ctx, accountID, model.ClearCredential())
	switch {
	case errors.Is(clearErr, common.ErrNotFound):
		slog.Info("Account deleted before its credential could be cleared", "account_id", accountID)
		return
	case clearErr != nil:
		common.LogError(fmt.Errorf("clear credential: %w", clearErr), "Failed to clear rejected credential",
			common.Fields{"account_id": accountID})
		return
	}
	slog.Warn("Cleared rejected credential", "account_id", accountID)
}
