package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/you/rentalsvc/domain"
)

// settler performs the single reconciliation step shared by the interactive
// poll path and the auto-refund sweep: move a waiting session to a terminal
// refundable state and credit the refund, as one atomic unit. The guarded
// transition inside the transaction decides the race: whichever caller
// settles first wins, the loser's transaction rolls back without touching
// money.
type settler struct {
	db          *gorm.DB
	sessionRepo domain.SessionRepository
	ledgerSvc   domain.LedgerService
	ledgerRepo  domain.LedgerRepository
}

func newSettler(db *gorm.DB, sessionRepo domain.SessionRepository, ledgerSvc domain.LedgerService, ledgerRepo domain.LedgerRepository) *settler {
	return &settler{
		db:          db,
		sessionRepo: sessionRepo,
		ledgerSvc:   ledgerSvc,
		ledgerRepo:  ledgerRepo,
	}
}

// settleRefund transitions session from waiting to the given terminal state
// (expired or failed) and credits the refund. Returns (true, nil) if this
// caller won the transition, (false, nil) if another path already resolved
// the session.
func (s *settler) settleRefund(ctx context.Context, session *domain.RentalSession, terminal domain.SessionStatus) (bool, error) {
	if terminal != domain.SessionExpired && terminal != domain.SessionFailed {
		return false, fmt.Errorf("status %s is not refundable", terminal)
	}

	// Backstop for a credit that landed while the refunded flag write was
	// lost: the ledger's unique refund entry per session is authoritative.
	if existing, err := s.ledgerRepo.FindRefundForSession(ctx, session.ID); err != nil {
		return false, fmt.Errorf("failed to check refund ledger: %w", err)
	} else if existing != nil {
		return false, s.repairStatus(ctx, session.ID, terminal)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.sessionRepo.Transition(ctx, tx, session.ID, domain.SessionWaiting, terminal, map[string]interface{}{"refunded": true}); err != nil {
			return err
		}
		if _, err := s.ledgerSvc.Credit(ctx, tx, session.UserID, session.Cost, domain.ReasonRentalRefund, session.ID); err != nil {
			return fmt.Errorf("refund credit failed: %w", err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrStatusConflict) {
		// Another path already resolved the session; nothing further to do.
		return false, nil
	}
	if errors.Is(err, domain.ErrDuplicateRefund) {
		// The unique index caught a refund the pre-check raced past. The
		// money already moved once; only the status needs repairing.
		return false, s.repairStatus(ctx, session.ID, terminal)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// repairStatus flips a still-waiting session whose refund is already on the
// ledger into its terminal state. Losing the transition to another path is
// fine; the money side is already settled.
func (s *settler) repairStatus(ctx context.Context, sessionID string, terminal domain.SessionStatus) error {
	err := s.sessionRepo.Transition(ctx, nil, sessionID, domain.SessionWaiting, terminal, map[string]interface{}{"refunded": true})
	if err != nil && !errors.Is(err, domain.ErrStatusConflict) {
		return err
	}
	return nil
}

// settleCompletion transitions session from waiting to completed with the
// delivered code. Returns (false, nil) when the sweep expired the session
// first; the arrived-too-late code is never recorded as a completion and no
// money moves.
func (s *settler) settleCompletion(ctx context.Context, session *domain.RentalSession, code string) (bool, error) {
	err := s.sessionRepo.Transition(ctx, nil, session.ID, domain.SessionWaiting, domain.SessionCompleted, map[string]interface{}{"otp_code": code})
	if errors.Is(err, domain.ErrStatusConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
