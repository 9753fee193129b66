package mocks

import (
	"context"
	"time"

	"github.com/you/rentalsvc/domain"
)

// MockSessionRepository implements domain.SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc            func(ctx context.Context, tx domain.Tx, session *domain.RentalSession) error
	FindByIDFunc          func(ctx context.Context, id string) (*domain.RentalSession, error)
	ListActiveForUserFunc func(ctx context.Context, userID uint, serviceType domain.ServiceType) ([]*domain.RentalSession, error)
	ListForUserFunc       func(ctx context.Context, userID uint, limit int) ([]*domain.RentalSession, error)
	FindExpiredFunc       func(ctx context.Context, now time.Time, limit int) ([]*domain.RentalSession, error)
	TransitionFunc        func(ctx context.Context, tx domain.Tx, id string, expected, next domain.SessionStatus, fields map[string]interface{}) error
}

// NewMockSessionRepository creates a new MockSessionRepository with default behaviors
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

// Create stores a new session
func (m *MockSessionRepository) Create(ctx context.Context, tx domain.Tx, session *domain.RentalSession) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, session)
	}
	return nil
}

// FindByID looks up a session
func (m *MockSessionRepository) FindByID(ctx context.Context, id string) (*domain.RentalSession, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrSessionNotFound
}

// ListActiveForUser lists waiting sessions
func (m *MockSessionRepository) ListActiveForUser(ctx context.Context, userID uint, serviceType domain.ServiceType) ([]*domain.RentalSession, error) {
	if m.ListActiveForUserFunc != nil {
		return m.ListActiveForUserFunc(ctx, userID, serviceType)
	}
	return nil, nil
}

// ListForUser lists a user's session history
func (m *MockSessionRepository) ListForUser(ctx context.Context, userID uint, limit int) ([]*domain.RentalSession, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID, limit)
	}
	return nil, nil
}

// FindExpired lists overdue waiting sessions
func (m *MockSessionRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.RentalSession, error) {
	if m.FindExpiredFunc != nil {
		return m.FindExpiredFunc(ctx, now, limit)
	}
	return nil, nil
}

// Transition performs the guarded status change
func (m *MockSessionRepository) Transition(ctx context.Context, tx domain.Tx, id string, expected, next domain.SessionStatus, fields map[string]interface{}) error {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, tx, id, expected, next, fields)
	}
	return nil
}
