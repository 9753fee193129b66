package mocks

import (
	"context"

	"github.com/you/rentalsvc/domain"
)

// MockLedgerService implements domain.LedgerService for testing
type MockLedgerService struct {
	DebitFunc   func(ctx context.Context, tx domain.Tx, userID uint, amount int64, reason domain.LedgerReason, sessionID string) (int64, error)
	CreditFunc  func(ctx context.Context, tx domain.Tx, userID uint, amount int64, reason domain.LedgerReason, sessionID string) (int64, error)
	BalanceFunc func(ctx context.Context, userID uint) (int64, error)
	EntriesFunc func(ctx context.Context, userID uint, limit int) ([]*domain.LedgerEntry, error)
}

// NewMockLedgerService creates a new MockLedgerService with default behaviors
func NewMockLedgerService() *MockLedgerService {
	return &MockLedgerService{}
}

// Debit withdraws credits and records a ledger entry
func (m *MockLedgerService) Debit(ctx context.Context, tx domain.Tx, userID uint, amount int64, reason domain.LedgerReason, sessionID string) (int64, error) {
	if m.DebitFunc != nil {
		return m.DebitFunc(ctx, tx, userID, amount, reason, sessionID)
	}
	return 0, nil
}

// Credit deposits credits and records a ledger entry
func (m *MockLedgerService) Credit(ctx context.Context, tx domain.Tx, userID uint, amount int64, reason domain.LedgerReason, sessionID string) (int64, error) {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, tx, userID, amount, reason, sessionID)
	}
	return 0, nil
}

// Balance reports the current balance
func (m *MockLedgerService) Balance(ctx context.Context, userID uint) (int64, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, userID)
	}
	return 0, nil
}

// Entries lists recent ledger entries
func (m *MockLedgerService) Entries(ctx context.Context, userID uint, limit int) ([]*domain.LedgerEntry, error) {
	if m.EntriesFunc != nil {
		return m.EntriesFunc(ctx, userID, limit)
	}
	return nil, nil
}
