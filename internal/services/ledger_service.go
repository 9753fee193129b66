package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/you/rentalsvc/domain"
)

// movementRetries bounds the optimistic-lock retry loop for concurrent
// movements against the same account.
const movementRetries = 3

// LedgerServiceImpl implements domain.LedgerService. Every balance movement
// appends an immutable audit entry in the same transaction as the account
// update. Both directions are version-gated: the recorded balance-after is
// derived from a read the update proved was still current.
type LedgerServiceImpl struct {
	accountRepo domain.AccountRepository
	ledgerRepo  domain.LedgerRepository
}

// NewLedgerService creates a new ledger service
func NewLedgerService(accountRepo domain.AccountRepository, ledgerRepo domain.LedgerRepository) domain.LedgerService {
	return &LedgerServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// Debit implements domain.LedgerService. The check-and-subtract is atomic:
// the account row's version gate retries until the subtraction applies to a
// balance that was actually sufficient, or fails with ErrInsufficientBalance.
func (s *LedgerServiceImpl) Debit(ctx context.Context, tx domain.Tx, userID uint, amount int64, reason domain.LedgerReason, sessionID string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	for attempt := 0; attempt < movementRetries; attempt++ {
		account, err := s.accountRepo.GetOrCreate(ctx, tx, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to load account: %w", err)
		}

		err = s.accountRepo.Debit(ctx, tx, userID, amount, account.Version)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return 0, err
		}

		newBalance := account.Balance - amount
		entry := &domain.LedgerEntry{
			UserID:           userID,
			Amount:           -amount,
			Reason:           reason,
			RelatedSessionID: sessionID,
			BalanceAfter:     newBalance,
		}
		if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
			return 0, fmt.Errorf("failed to record debit entry: %w", err)
		}
		return newBalance, nil
	}
	return 0, domain.ErrVersionConflict
}

// Credit implements domain.LedgerService. Same shape as Debit: the version
// gate proves the read the balance-after snapshot derives from was still
// current when the addition applied.
func (s *LedgerServiceImpl) Credit(ctx context.Context, tx domain.Tx, userID uint, amount int64, reason domain.LedgerReason, sessionID string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	for attempt := 0; attempt < movementRetries; attempt++ {
		account, err := s.accountRepo.GetOrCreate(ctx, tx, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to load account: %w", err)
		}

		err = s.accountRepo.Credit(ctx, tx, userID, amount, account.Version)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return 0, err
		}

		newBalance := account.Balance + amount
		entry := &domain.LedgerEntry{
			UserID:           userID,
			Amount:           amount,
			Reason:           reason,
			RelatedSessionID: sessionID,
			BalanceAfter:     newBalance,
		}
		if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
			return 0, fmt.Errorf("failed to record credit entry: %w", err)
		}
		return newBalance, nil
	}
	return 0, domain.ErrVersionConflict
}

// Balance implements domain.LedgerService
func (s *LedgerServiceImpl) Balance(ctx context.Context, userID uint) (int64, error) {
	account, err := s.accountRepo.GetOrCreate(ctx, nil, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Entries implements domain.LedgerService
func (s *LedgerServiceImpl) Entries(ctx context.Context, userID uint, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.ledgerRepo.ListForUser(ctx, userID, limit)
}
