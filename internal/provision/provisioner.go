// Package provision creates an account's custom field definitions on the
// platform, once, after the account is first authorized.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/fields"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/service"
)

// DefaultTimeout bounds a background provisioning run.
const DefaultTimeout = 2 * time.Minute

// ErrInFlight is returned by Reset while provisioning is running.
var ErrInFlight = errors.New("provisioning in progress")

// FieldProgress reports the outcome of one field creation.
type FieldProgress struct {
	Err     error
	Key     model.FieldKey
	FieldID string
	Index   int
	Total   int
}

// Result summarizes a provisioning run.
type Result struct {
	Account *model.Account
	Created []model.FieldKey
	Failed  []model.FieldKey
	// AlreadyProvisioned is set when the stored mapping was reused and no
	// field was created.
	AlreadyProvisioned bool
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithTimeout sets the deadline for background runs.
func WithTimeout(d time.Duration) Option {
	return func(p *Provisioner) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithProgress registers a callback invoked after each field creation attempt.
func WithProgress(fn func(FieldProgress)) Option {
	return func(p *Provisioner) {
		p.progress = fn
	}
}

// Provisioner drives the UNPROVISIONED -> PROVISIONING -> PROVISIONED
// transition for accounts.
type Provisioner struct {
	store    service.AccountStore
	platform service.Platform
	progress func(FieldProgress)
	inflight map[string]int
	group    singleflight.Group
	timeout  time.Duration
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// New creates a Provisioner.
func New(store service.AccountStore, platform service.Platform, opts ...Option) *Provisioner {
	p := &Provisioner{
		store:    store,
		platform: platform,
		inflight: make(map[string]int),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision fetches the account behind credential, stores the credential and
// creates the category's custom fields unless the account already has a
// non-empty mapping. A provisioned account only has its credential refreshed;
// its stored category is left alone. A failure creating one field is logged and
// the remaining fields are still attempted; each created id is persisted as
// soon as it is returned.
func (p *Provisioner) Provision(ctx context.Context, credential string) (*Result, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("provision: %w: empty credential", common.ErrCredentialInvalid)
	}

	meta, err := p.platform.Account(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("provision: %w", err)
	}

	industry := meta.Industry
	account, err := p.store.UpsertAccount(ctx, meta.ID, model.AccountUpdate{
		Credential:      &credential,
		InitialCategory: &industry,
	})
	if err != nil {
		return nil, fmt.Errorf("provision: store account %s: %w", meta.ID, err)
	}

	if account.Provisioned() {
		if account.Category != industry {
			slog.Warn("Platform industry differs from provisioned category",
				"account_id", account.ID,
				"category", account.Category,
				"industry", industry)
		}
		slog.Info("Account already provisioned, refreshed credential",
			"account_id", account.ID,
			"fields", len(account.FieldMapping))
		return &Result{Account: account, AlreadyProvisioned: true}, nil
	}

	category := account.Category
	v, err, shared := p.group.Do(meta.ID, func() (any, error) {
		return p.createFields(ctx, meta.ID, credential, category)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Joined in-flight provisioning", "account_id", meta.ID)
	}
	run := v.(*Result)

	account, err = p.store.GetAccount(ctx, meta.ID)
	if err != nil {
		return nil, fmt.Errorf("provision: reload account %s: %w", meta.ID, err)
	}

	return &Result{
		Account:            account,
		Created:            run.Created,
		Failed:             run.Failed,
		AlreadyProvisioned: run.AlreadyProvisioned,
	}, nil
}

func (p *Provisioner) createFields(ctx context.Context, accountID, credential string, category model.Category) (*Result, error) {
	p.begin(accountID)
	defer p.end(accountID)

	// Another process or an earlier run may have finished since the caller
	// looked.
	account, err := p.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("provision: reload account %s: %w", accountID, err)
	}
	if account.Provisioned() {
		return &Result{AlreadyProvisioned: true}, nil
	}

	keys := fields.ForCategory(category)
	result := &Result{}
	credentialInvalid := false

	slog.Info("Provisioning custom fields",
		"account_id", accountID,
		"category", category,
		"fields", len(keys))

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			// Remaining keys stay unprovisioned.
			result.Failed = append(result.Failed, keys[i:]...)
			common.LogError(err, "Provisioning interrupted", common.Fields{
				"account_id": accountID,
				"remaining":  len(keys) - i,
			})
			break
		}

		fieldID, err := p.createField(ctx, accountID, credential, key)
		if err != nil {
			result.Failed = append(result.Failed, key)
			if errors.Is(err, common.ErrCredentialInvalid) {
				credentialInvalid = true
			}
			common.LogError(err, "Failed to provision field", common.Fields{
				"account_id": accountID,
				"field_key":  key,
			})
		} else {
			result.Created = append(result.Created, key)
		}

		if p.progress != nil {
			p.progress(FieldProgress{Key: key, FieldID: fieldID, Err: err, Index: i, Total: len(keys)})
		}
	}

	if credentialInvalid {
		_, err := p.store.UpdateAccount(ctx, accountID, model.ClearCredential())
		switch {
		case errors.Is(err, common.ErrNotFound):
			slog.Info("Account deleted during provisioning", "account_id", accountID)
		case err != nil:
			common.LogError(err, "Failed to clear invalid credential", common.Fields{"account_id": accountID})
		}
	}

	slog.Info("Provisioning finished",
		"account_id", accountID,
		"created", len(result.Created),
		"failed", len(result.Failed))

	return result, nil
}

func (p *Provisioner) createField(ctx context.Context, accountID, credential string, key model.FieldKey) (string, error) {
	fieldID, err := p.platform.CreateTextField(ctx, credential, fields.Label(key))
	if err != nil {
		return "", err
	}

	if _, err := p.store.UpdateAccount(ctx, accountID, model.AccountUpdate{
		FieldMapping: map[model.FieldKey]string{key: fieldID},
	}); err != nil {
		return "", fmt.Errorf("persist field %s: %w", key, err)
	}
	return fieldID, nil
}

// ProvisionAsync runs Provision in the background. Errors and panics are
// logged; the caller is never blocked.
func (p *Provisioner) ProvisionAsync(credential string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Provisioning panicked",
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		result, err := p.Provision(ctx, credential)
		if err != nil {
			common.LogError(err, "Background provisioning failed", nil)
			return
		}
		common.LogInfo("Background provisioning complete", common.Fields{
			"account_id":          result.Account.ID,
			"created":             len(result.Created),
			"failed":              len(result.Failed),
			"already_provisioned": result.AlreadyProvisioned,
		})
	}()
}

// Wait blocks until all background runs have finished.
func (p *Provisioner) Wait() {
	p.wg.Wait()
}

// State reports the provisioning state of accountID.
func (p *Provisioner) State(ctx context.Context, accountID string) model.ProvisioningState {
	p.mu.Lock()
	running := p.inflight[accountID] > 0
	p.mu.Unlock()
	if running {
		return model.StateProvisioning
	}

	account, err := p.store.GetAccount(ctx, accountID)
	if err != nil || !account.Provisioned() {
		return model.StateUnprovisioned
	}
	return model.StateProvisioned
}

// Reset clears the stored field mapping so the next authorization creates
// fields again. Remote field definitions are left in place.
func (p *Provisioner) Reset(ctx context.Context, accountID string) error {
	if p.State(ctx, accountID) == model.StateProvisioning {
		return fmt.Errorf("reset %s: %w", accountID, ErrInFlight)
	}
	if _, err := p.store.UpdateAccount(ctx, accountID, model.AccountUpdate{ResetMapping: true}); err != nil {
		return fmt.Errorf("reset %s: %w", accountID, err)
	}
	return nil
}

func (p *Provisioner) begin(accountID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight[accountID]++
}

func (p *Provisioner) end(accountID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight[accountID]--; p.inflight[accountID] <= 0 {
		delete(p.inflight, accountID)
	}
}
