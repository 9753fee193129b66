package mocks

import (
	"context"

	"github.com/you/rentalsvc/domain"
)

// MockRefundScheduler implements domain.RefundScheduler for testing
type MockRefundScheduler struct {
	StartFunc   func(ctx context.Context)
	StopFunc    func()
	RunOnceFunc func(ctx context.Context) (*domain.SweepResult, error)
	StatusFunc  func() *domain.SchedulerStatus
}

// NewMockRefundScheduler creates a new MockRefundScheduler with default behaviors
func NewMockRefundScheduler() *MockRefundScheduler {
	return &MockRefundScheduler{}
}

// Start runs the sweep loop
func (m *MockRefundScheduler) Start(ctx context.Context) {
	if m.StartFunc != nil {
		m.StartFunc(ctx)
	}
}

// Stop terminates the sweep loop
func (m *MockRefundScheduler) Stop() {
	if m.StopFunc != nil {
		m.StopFunc()
	}
}

// RunOnce performs a single sweep
func (m *MockRefundScheduler) RunOnce(ctx context.Context) (*domain.SweepResult, error) {
	if m.RunOnceFunc != nil {
		return m.RunOnceFunc(ctx)
	}
	return &domain.SweepResult{PerService: map[domain.ServiceType]int{}}, nil
}

// Status reports the scheduler snapshot
func (m *MockRefundScheduler) Status() *domain.SchedulerStatus {
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}
	return &domain.SchedulerStatus{}
}
