// Package model defines the core domain types shared across packages.
package model

import (
	"maps"
	"time"
)

// Category is the business industry tag reported by the platform, e.g. "HVAC".
type Category string

// FieldKey identifies an enrichable attribute in the field catalog.
type FieldKey string

// ProvisioningState describes how far custom field provisioning has progressed.
type ProvisioningState string

const (
	// StateUnprovisioned means the account has no field mapping.
	StateUnprovisioned ProvisioningState = "UNPROVISIONED"
	// StateProvisioning means field creation is in flight in this process.
	StateProvisioning ProvisioningState = "PROVISIONING"
	// StateProvisioned means the account has a non-empty field mapping.
	StateProvisioned ProvisioningState = "PROVISIONED"
)

// Account is the locally stored connection state for one platform account.
type Account struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FieldMapping map[FieldKey]string
	ID           string
	Credential   string
	Category     Category
}

// Connected reports whether the account holds a usable credential.
func (a *Account) Connected() bool {
	return a != nil && a.Credential != ""
}

// Provisioned reports whether the account has at least one mapped field.
func (a *Account) Provisioned() bool {
	return a != nil && len(a.FieldMapping) > 0
}

// Clone returns a copy that shares no mutable state with a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.FieldMapping = maps.Clone(a.FieldMapping)
	return &c
}

// AccountUpdate is a partial update merged into a stored account.
// Nil pointers and nil maps leave the stored value unchanged.
type AccountUpdate struct {
	Credential *string
	Category   *Category
	// InitialCategory is applied only while the account has no field
	// mapping; a provisioned account keeps the category its fields were
	// created for.
	InitialCategory *Category
	FieldMapping    map[FieldKey]string
	ResetMapping    bool
	ClearCredential bool
}

// SetCredential returns an update storing credential.
func SetCredential(credential string) AccountUpdate {
	return AccountUpdate{Credential: &credential}
}

// ClearCredential returns an update that disconnects the account.
func ClearCredential() AccountUpdate {
	return AccountUpdate{ClearCredential: true}
}

// Apply merges u into a and returns a.
func (u AccountUpdate) Apply(a *Account) *Account {
	switch {
	case u.ClearCredential:
		a.Credential = ""
	case u.Credential != nil:
		a.Credential = *u.Credential
	}
	if u.Category != nil {
		a.Category = *u.Category
	}
	if u.InitialCategory != nil && !a.Provisioned() {
		a.Category = *u.InitialCategory
	}
	if u.ResetMapping {
		a.FieldMapping = nil
	}
	if len(u.FieldMapping) > 0 {
		if a.FieldMapping == nil {
			a.FieldMapping = make(map[FieldKey]string, len(u.FieldMapping))
		}
		maps.Copy(a.FieldMapping, u.FieldMapping)
	}
	return a
}

// PlatformAccount is the account metadata reported by the SaaS platform.
type PlatformAccount struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Industry Category `json:"industry"`
}

// FieldValue is one custom field value to write back to a property.
type FieldValue struct {
	Key     FieldKey
	FieldID string
	Value   string
}
