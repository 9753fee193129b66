package mocks

import "context"

// MockRateLimiter implements domain.RateLimiter for testing
type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, userID uint) (bool, error)
}

// NewMockRateLimiter creates a new MockRateLimiter with default behaviors
func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

// Allow reports whether the user may start another rental
func (m *MockRateLimiter) Allow(ctx context.Context, userID uint) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, userID)
	}
	// Default behavior: allowed
	return true, nil
}
