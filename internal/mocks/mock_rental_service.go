package mocks

import (
	"context"

	"github.com/you/rentalsvc/domain"
)

// MockRentalService implements domain.RentalService for testing
type MockRentalService struct {
	StartRentalFunc func(ctx context.Context, userID uint, serviceType domain.ServiceType, carrier string) (*domain.RentalSessionView, error)
	PollOTPFunc     func(ctx context.Context, sessionID string, userID uint) (*domain.RentalSessionView, error)
	ListActiveFunc  func(ctx context.Context, userID uint, serviceType domain.ServiceType) ([]*domain.RentalSessionView, error)
	HistoryFunc     func(ctx context.Context, userID uint) ([]*domain.RentalSessionView, error)
}

// NewMockRentalService creates a new MockRentalService with default behaviors
func NewMockRentalService() *MockRentalService {
	return &MockRentalService{}
}

// StartRental starts a rental session
func (m *MockRentalService) StartRental(ctx context.Context, userID uint, serviceType domain.ServiceType, carrier string) (*domain.RentalSessionView, error) {
	if m.StartRentalFunc != nil {
		return m.StartRentalFunc(ctx, userID, serviceType, carrier)
	}
	return nil, domain.ErrUnknownServiceType
}

// PollOTP polls a session for its code
func (m *MockRentalService) PollOTP(ctx context.Context, sessionID string, userID uint) (*domain.RentalSessionView, error) {
	if m.PollOTPFunc != nil {
		return m.PollOTPFunc(ctx, sessionID, userID)
	}
	return nil, domain.ErrSessionNotFound
}

// ListActive lists waiting sessions
func (m *MockRentalService) ListActive(ctx context.Context, userID uint, serviceType domain.ServiceType) ([]*domain.RentalSessionView, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, userID, serviceType)
	}
	return nil, nil
}

// History lists a user's sessions
func (m *MockRentalService) History(ctx context.Context, userID uint) ([]*domain.RentalSessionView, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, userID)
	}
	return nil, nil
}
