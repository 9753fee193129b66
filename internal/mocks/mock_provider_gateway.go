package mocks

import (
	"context"
	"sync"

	"github.com/you/rentalsvc/domain"
)

// MockProviderGateway implements domain.ProviderGateway for testing
type MockProviderGateway struct {
	ReserveFunc func(ctx context.Context, serviceType domain.ServiceType, carrier string) (*domain.Reservation, error)
	PollOTPFunc func(ctx context.Context, handle string) (*domain.OTPOutcome, error)
	ReleaseFunc func(ctx context.Context, handle string) error

	mu       sync.Mutex
	released []string
}

// NewMockProviderGateway creates a new MockProviderGateway with default behaviors
func NewMockProviderGateway() *MockProviderGateway {
	return &MockProviderGateway{}
}

// Reserve reserves a number upstream
func (m *MockProviderGateway) Reserve(ctx context.Context, serviceType domain.ServiceType, carrier string) (*domain.Reservation, error) {
	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, serviceType, carrier)
	}
	// Default behavior: a number is available
	return &domain.Reservation{PhoneNumber: "+15550001111", Handle: "act_1"}, nil
}

// PollOTP polls for a delivered code
func (m *MockProviderGateway) PollOTP(ctx context.Context, handle string) (*domain.OTPOutcome, error) {
	if m.PollOTPFunc != nil {
		return m.PollOTPFunc(ctx, handle)
	}
	// Default behavior: nothing delivered yet
	return &domain.OTPOutcome{Status: domain.OTPPending}, nil
}

// Release releases a reservation and records the handle
func (m *MockProviderGateway) Release(ctx context.Context, handle string) error {
	m.mu.Lock()
	m.released = append(m.released, handle)
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, handle)
	}
	return nil
}

// Released returns the handles released so far
func (m *MockProviderGateway) Released() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.released))
	copy(out, m.released)
	return out
}
