package attom

import (
	"context"
	"sync"

	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/service"
)

// MockClient is a mock implementation of service.PropertyLookup for testing.
type MockClient struct {
	LookupFn    func(ctx context.Context, address model.AddressLines) (*model.PropertyAttributes, error)
	LookupCalls []model.AddressLines
	mu          sync.Mutex
}

// NewMockClient creates a new mock lookup client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Lookup implements service.PropertyLookup.
func (m *MockClient) Lookup(ctx context.Context, address model.AddressLines) (*model.PropertyAttributes, error) {
	m.mu.Lock()
	m.LookupCalls = append(m.LookupCalls, address)
	m.mu.Unlock()

	if m.LookupFn != nil {
		return m.LookupFn(ctx, address)
	}
	return nil, nil
}

// Calls returns a copy of the recorded lookups.
func (m *MockClient) Calls() []model.AddressLines {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AddressLines(nil), m.LookupCalls...)
}

var _ service.PropertyLookup = (*MockClient)(nil)
