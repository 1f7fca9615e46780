package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/fieldwise/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrInvalidUpdate = errors.New("invalid account update")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateUpdate(update model.AccountUpdate) error {
	if update.ClearCredential && update.Credential != nil {
		return fmt.Errorf("%w: cannot both set and clear the credential", ErrInvalidUpdate)
	}
	if update.Category != nil && update.InitialCategory != nil {
		return fmt.Errorf("%w: cannot set both category and initial category", ErrInvalidUpdate)
	}
	for key, id := range update.FieldMapping {
		if strings.TrimSpace(string(key)) == "" || strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: field mapping entries need a key and an id", ErrInvalidUpdate)
		}
	}
	return nil
}
