package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/you/rentalsvc/domain"
)

// releaseTimeout bounds the per-session provider release so one stuck
// upstream call cannot stall the whole sweep.
const releaseTimeout = 10 * time.Second

// RefundSchedulerImpl implements domain.RefundScheduler: a recurring sweep
// that expires overdue waiting sessions and credits their refunds exactly
// once. The same sweep body serves the timer and the admin manual trigger;
// the running flag makes overlapping runs impossible.
type RefundSchedulerImpl struct {
	sessionRepo domain.SessionRepository
	gateway     domain.ProviderGateway
	settler     *settler
	interval    time.Duration
	batchSize   int
	now         func() time.Time

	stopCh  chan struct{}
	running atomic.Bool

	mu          sync.Mutex
	lastCheck   *time.Time
	nextCheck   *time.Time
	totalChecks int64
	lastResult  *domain.SweepResult
}

// NewRefundScheduler creates a new auto-refund scheduler
func NewRefundScheduler(db *gorm.DB, sessionRepo domain.SessionRepository, ledgerSvc domain.LedgerService, ledgerRepo domain.LedgerRepository, gateway domain.ProviderGateway, interval time.Duration, batchSize int) *RefundSchedulerImpl {
	return &RefundSchedulerImpl{
		sessionRepo: sessionRepo,
		gateway:     gateway,
		settler:     newSettler(db, sessionRepo, ledgerSvc, ledgerRepo),
		interval:    interval,
		batchSize:   batchSize,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// Start implements domain.RefundScheduler. It blocks until the context is
// cancelled or Stop is called; an in-flight sweep always finishes before the
// loop exits.
func (s *RefundSchedulerImpl) Start(ctx context.Context) {
	log.Printf("[AutoRefund] scheduler started, interval=%s", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.setNextCheck(s.now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			log.Println("[AutoRefund] context cancelled, scheduler exiting")
			return
		case <-s.stopCh:
			log.Println("[AutoRefund] stop requested, scheduler exiting")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, domain.ErrSweepInProgress) {
				log.Printf("[AutoRefund] sweep failed: %v", err)
			}
			s.setNextCheck(s.now().Add(s.interval))
		}
	}
}

// Stop implements domain.RefundScheduler
func (s *RefundSchedulerImpl) Stop() {
	close(s.stopCh)
}

// RunOnce implements domain.RefundScheduler. It is the manual-trigger entry
// point and the timer body; a run already in progress rejects the trigger
// with ErrSweepInProgress instead of overlapping.
func (s *RefundSchedulerImpl) RunOnce(ctx context.Context) (*domain.SweepResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSweepInProgress
	}
	defer s.running.Store(false)

	result := s.sweep(ctx)

	s.mu.Lock()
	finished := result.FinishedAt
	s.lastCheck = &finished
	s.totalChecks++
	s.lastResult = result
	s.mu.Unlock()

	return result, nil
}

// sweep scans overdue waiting sessions and settles each one independently.
// A single session's failure is recorded and skipped; it never aborts the
// rest of the batch.
func (s *RefundSchedulerImpl) sweep(ctx context.Context) *domain.SweepResult {
	result := &domain.SweepResult{
		PerService: make(map[domain.ServiceType]int),
		StartedAt:  s.now(),
	}

	sessions, err := s.sessionRepo.FindExpired(ctx, s.now(), s.batchSize)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("scan failed: %v", err))
		result.FinishedAt = s.now()
		return result
	}
	result.Scanned = len(sessions)

	for _, session := range sessions {
		won, err := s.settler.settleRefund(ctx, session, domain.SessionExpired)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("session %s: %v", session.ID, err))
			continue
		}
		if !won {
			// The interactive path resolved it first.
			result.Conflicts++
			continue
		}

		result.Refunded++
		result.PerService[session.ServiceType]++
		log.Printf("[AutoRefund] session expired and refunded: session=%s user=%d service=%s amount=%d",
			session.ID, session.UserID, session.ServiceType, session.Cost)

		s.releaseQuietly(session.ProviderHandle)
	}

	result.FinishedAt = s.now()
	if result.Scanned > 0 {
		log.Printf("[AutoRefund] sweep done: scanned=%d refunded=%d conflicts=%d errors=%d",
			result.Scanned, result.Refunded, result.Conflicts, len(result.Errors))
	}
	return result
}

// Status implements domain.RefundScheduler
func (s *RefundSchedulerImpl) Status() *domain.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &domain.SchedulerStatus{
		IsRunning:   s.running.Load(),
		Interval:    s.interval.String(),
		LastCheck:   s.lastCheck,
		NextCheck:   s.nextCheck,
		TotalChecks: s.totalChecks,
		LastResult:  s.lastResult,
	}
}

func (s *RefundSchedulerImpl) setNextCheck(t time.Time) {
	s.mu.Lock()
	s.nextCheck = &t
	s.mu.Unlock()
}

func (s *RefundSchedulerImpl) releaseQuietly(handle string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.gateway.Release(ctx, handle); err != nil {
		log.Printf("[AutoRefund] number release failed: handle=%s err=%v", handle, err)
	}
}
