package jobber

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/service"
)

// MockClient is a mock implementation of service.Platform for testing.
// It is safe for concurrent use.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	AccountFn              func(ctx context.Context, credential string) (*model.PlatformAccount, error)
	PropertyFn             func(ctx context.Context, credential, propertyID string) (*model.PropertyDetails, error)
	CreateTextFieldFn      func(ctx context.Context, credential, name string) (string, error)
	UpdatePropertyFieldsFn func(ctx context.Context, credential, propertyID string, values []model.FieldValue) error
	DisconnectFn           func(ctx context.Context, credential string) error

	// Call tracking
	AccountCalls         []string
	PropertyCalls        []PropertyCall
	CreateTextFieldCalls []CreateTextFieldCall
	UpdateCalls          []UpdateCall
	DisconnectCalls      []string

	mu sync.Mutex
}

// PropertyCall records the parameters of a Property call.
type PropertyCall struct {
	Credential string
	PropertyID string
}

// CreateTextFieldCall records the parameters of a CreateTextField call.
type CreateTextFieldCall struct {
	Credential string
	Name       string
}

// UpdateCall records the parameters of an UpdatePropertyFields call.
type UpdateCall struct {
	Credential string
	PropertyID string
	Values     []model.FieldValue
}

// NewMockClient creates a new mock platform client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Account implements service.Platform.
func (m *MockClient) Account(ctx context.Context, credential string) (*model.PlatformAccount, error) {
	m.mu.Lock()
	m.AccountCalls = append(m.AccountCalls, credential)
	m.mu.Unlock()

	if m.AccountFn != nil {
		return m.AccountFn(ctx, credential)
	}
	return &model.PlatformAccount{ID: "account-1", Name: "Mock Account"}, nil
}

// Property implements service.Platform.
func (m *MockClient) Property(ctx context.Context, credential, propertyID string) (*model.PropertyDetails, error) {
	m.mu.Lock()
	m.PropertyCalls = append(m.PropertyCalls, PropertyCall{Credential: credential, PropertyID: propertyID})
	m.mu.Unlock()

	if m.PropertyFn != nil {
		return m.PropertyFn(ctx, credential, propertyID)
	}
	return &model.PropertyDetails{ID: propertyID}, nil
}

// CreateTextField implements service.Platform.
func (m *MockClient) CreateTextField(ctx context.Context, credential, name string) (string, error) {
	m.mu.Lock()
	m.CreateTextFieldCalls = append(m.CreateTextFieldCalls, CreateTextFieldCall{Credential: credential, Name: name})
	n := len(m.CreateTextFieldCalls)
	m.mu.Unlock()

	if m.CreateTextFieldFn != nil {
		return m.CreateTextFieldFn(ctx, credential, name)
	}
	return fmt.Sprintf("field-%d", n), nil
}

// UpdatePropertyFields implements service.Platform.
func (m *MockClient) UpdatePropertyFields(ctx context.Context, credential, propertyID string, values []model.FieldValue) error {
	m.mu.Lock()
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{Credential: credential, PropertyID: propertyID, Values: values})
	m.mu.Unlock()

	if m.UpdatePropertyFieldsFn != nil {
		return m.UpdatePropertyFieldsFn(ctx, credential, propertyID, values)
	}
	return nil
}

// Disconnect implements service.Platform.
func (m *MockClient) Disconnect(ctx context.Context, credential string) error {
	m.mu.Lock()
	m.DisconnectCalls = append(m.DisconnectCalls, credential)
	m.mu.Unlock()

	if m.DisconnectFn != nil {
		return m.DisconnectFn(ctx, credential)
	}
	return nil
}

// CallCount returns the total number of remote calls recorded.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.AccountCalls) + len(m.PropertyCalls) + len(m.CreateTextFieldCalls) +
		len(m.UpdateCalls) + len(m.DisconnectCalls)
}

// CreatedFields returns the names passed to CreateTextField.
func (m *MockClient) CreatedFields() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.CreateTextFieldCalls))
	for _, c := range m.CreateTextFieldCalls {
		names = append(names, c.Name)
	}
	return names
}

// Updates returns a copy of the recorded UpdatePropertyFields calls.
func (m *MockClient) Updates() []UpdateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpdateCall(nil), m.UpdateCalls...)
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccountCalls = nil
	m.PropertyCalls = nil
	m.CreateTextFieldCalls = nil
	m.UpdateCalls = nil
	m.DisconnectCalls = nil
}

// Ensure MockClient implements the Platform interface.
var _ service.Platform = (*MockClient)(nil)
