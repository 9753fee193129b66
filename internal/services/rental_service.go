package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/rentalsvc/domain"
	"github.com/you/rentalsvc/internal/config"
)

// RentalServiceImpl implements domain.RentalService. It orchestrates the
// interactive path: reserve a number upstream, debit the user, and advance
// the session as the provider reports progress. All status writes go through
// the session store's guarded transition, which keeps this path safe to race
// against the auto-refund sweep.
type RentalServiceImpl struct {
	db          *gorm.DB
	cfg         *config.Config
	sessionRepo domain.SessionRepository
	ledgerSvc   domain.LedgerService
	gateway     domain.ProviderGateway
	limiter     domain.RateLimiter
	settler     *settler
	now         func() time.Time
}

// NewRentalService creates a new rental service
func NewRentalService(db *gorm.DB, cfg *config.Config, sessionRepo domain.SessionRepository, ledgerSvc domain.LedgerService, ledgerRepo domain.LedgerRepository, gateway domain.ProviderGateway, limiter domain.RateLimiter) domain.RentalService {
	return &RentalServiceImpl{
		db:          db,
		cfg:         cfg,
		sessionRepo: sessionRepo,
		ledgerSvc:   ledgerSvc,
		gateway:     gateway,
		limiter:     limiter,
		settler:     newSettler(db, sessionRepo, ledgerSvc, ledgerRepo),
		now:         time.Now,
	}
}

// StartRental implements domain.RentalService. Ordering: reserve first, then
// debit and create the session in one transaction, rolling the reservation
// back if the money cannot move. No debit survives a failed reservation and
// no reservation survives a failed debit.
func (s *RentalServiceImpl) StartRental(ctx context.Context, userID uint, serviceType domain.ServiceType, carrier string) (*domain.RentalSessionView, error) {
	plan, err := s.cfg.Plan(serviceType)
	if err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("rate limiter unavailable: %w", err)
	}
	if !allowed {
		return nil, domain.ErrRateLimited
	}

	// Optimistic precheck; the debit below enforces sufficiency atomically.
	balance, err := s.ledgerSvc.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < plan.Price {
		return nil, domain.ErrInsufficientBalance
	}

	reservation, err := s.gateway.Reserve(ctx, serviceType, carrier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.RentalSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		ServiceType:    serviceType,
		Carrier:        carrier,
		PhoneNumber:    reservation.PhoneNumber,
		ProviderHandle: reservation.Handle,
		Status:         domain.SessionWaiting,
		Cost:           plan.Price,
		ExpiresAt:      now.Add(plan.TTL),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.ledgerSvc.Debit(ctx, tx, userID, plan.Price, domain.ReasonRentalDebit, session.ID); err != nil {
			return err
		}
		return s.sessionRepo.Create(ctx, tx, session)
	})
	if err != nil {
		// The user cannot pay for the number we are holding; give it back.
		s.releaseQuietly(session.ProviderHandle)
		return nil, err
	}

	log.Printf("RENTAL_STARTED: session=%s user=%d service=%s number=%s cost=%d expires_at=%s",
		session.ID, userID, serviceType, session.PhoneNumber, session.Cost, session.ExpiresAt.UTC().Format(time.RFC3339))

	return domain.NewSessionView(session), nil
}

// PollOTP implements domain.RentalService. Polling a finished session is a
// no-op that returns the stored outcome; a waiting session past its expiry is
// settled here exactly as the sweep would settle it, so the user never waits
// for the next sweep to see the refund.
func (s *RentalServiceImpl) PollOTP(ctx context.Context, sessionID string, userID uint) (*domain.RentalSessionView, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrNotSessionOwner
	}

	if session.Status.IsTerminal() {
		return domain.NewSessionView(session), nil
	}

	if session.Expired(s.now()) {
		won, err := s.settler.settleRefund(ctx, session, domain.SessionExpired)
		if err != nil {
			return nil, fmt.Errorf("failed to settle expired session: %w", err)
		}
		if won {
			log.Printf("RENTAL_EXPIRED: session=%s user=%d refunded=%d (interactive)", session.ID, userID, session.Cost)
			s.releaseQuietly(session.ProviderHandle)
		}
		return s.reload(ctx, sessionID)
	}

	outcome, err := s.gateway.PollOTP(ctx, session.ProviderHandle)
	if err != nil {
		return nil, err
	}

	switch outcome.Status {
	case domain.OTPDelivered:
		won, err := s.settler.settleCompletion(ctx, session, outcome.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to complete session: %w", err)
		}
		if !won {
			// Another path resolved the session first, either a concurrent
			// poll completing it or the sweep expiring it. Whatever landed
			// is authoritative; this code moves no money.
			log.Printf("RENTAL_CODE_CONFLICT: session=%s user=%d session already resolved, delivered code discarded", session.ID, userID)
			return s.reload(ctx, sessionID)
		}
		log.Printf("RENTAL_COMPLETED: session=%s user=%d service=%s", session.ID, userID, session.ServiceType)
		return s.reload(ctx, sessionID)

	case domain.OTPCancelled:
		won, err := s.settler.settleRefund(ctx, session, domain.SessionFailed)
		if err != nil {
			return nil, fmt.Errorf("failed to settle cancelled session: %w", err)
		}
		if won {
			log.Printf("RENTAL_FAILED: session=%s user=%d provider cancelled, refunded=%d", session.ID, userID, session.Cost)
			s.releaseQuietly(session.ProviderHandle)
		}
		return s.reload(ctx, sessionID)

	default:
		return domain.NewSessionView(session), nil
	}
}

// ListActive implements domain.RentalService
func (s *RentalServiceImpl) ListActive(ctx context.Context, userID uint, serviceType domain.ServiceType) ([]*domain.RentalSessionView, error) {
	sessions, err := s.sessionRepo.ListActiveForUser(ctx, userID, serviceType)
	if err != nil {
		return nil, err
	}
	return toViews(sessions), nil
}

// History implements domain.RentalService
func (s *RentalServiceImpl) History(ctx context.Context, userID uint) ([]*domain.RentalSessionView, error) {
	sessions, err := s.sessionRepo.ListForUser(ctx, userID, 100)
	if err != nil {
		return nil, err
	}
	return toViews(sessions), nil
}

func (s *RentalServiceImpl) reload(ctx context.Context, sessionID string) (*domain.RentalSessionView, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return domain.NewSessionView(session), nil
}

// releaseQuietly returns a reserved number best-effort. Release failures are
// an upstream hygiene problem, never a user-visible error.
func (s *RentalServiceImpl) releaseQuietly(handle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.gateway.Release(ctx, handle); err != nil {
		log.Printf("RENTAL_RELEASE_FAILED: handle=%s err=%v", handle, err)
	}
}

func toViews(sessions []*domain.RentalSession) []*domain.RentalSessionView {
	views := make([]*domain.RentalSessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, domain.NewSessionView(session))
	}
	return views
}
