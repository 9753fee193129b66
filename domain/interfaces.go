package domain

import (
	"context"
	"time"
)

// Tx is an opaque storage transaction handle. Services obtain one from the
// storage layer and pass it through so multi-step writes share a single
// transaction; nil means "run standalone". The storage layer defines the
// concrete type.
type Tx interface{}

// SessionRepository defines rental session persistence. Transition is the
// guarded compare-and-set every status change must go through; it is the sole
// synchronization primitive between the interactive path and the sweep.
type SessionRepository interface {
	Create(ctx context.Context, tx Tx, session *RentalSession) error
	FindByID(ctx context.Context, id string) (*RentalSession, error)
	ListActiveForUser(ctx context.Context, userID uint, serviceType ServiceType) ([]*RentalSession, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]*RentalSession, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*RentalSession, error)
	// Transition succeeds only if the row's current status equals expected;
	// otherwise it returns ErrStatusConflict and writes nothing.
	Transition(ctx context.Context, tx Tx, id string, expected, next SessionStatus, fields map[string]interface{}) error
}

// AccountRepository defines balance storage. Every mutation is conditional on
// the version read beforehand, which serializes concurrent movements per user
// without any external lock.
type AccountRepository interface {
	GetOrCreate(ctx context.Context, tx Tx, userID uint) (*Account, error)
	GetByUserID(ctx context.Context, tx Tx, userID uint) (*Account, error)
	// Debit subtracts amount if balance >= amount and the version matches.
	// Returns ErrInsufficientBalance or ErrVersionConflict accordingly.
	Debit(ctx context.Context, tx Tx, userID uint, amount int64, version int) error
	// Credit adds amount if the version matches, returning ErrVersionConflict
	// when a concurrent movement got there first.
	Credit(ctx context.Context, tx Tx, userID uint, amount int64, version int) error
}

// LedgerRepository defines the append-only audit trail of balance changes.
type LedgerRepository interface {
	// Append inserts one entry; a second rental refund for the same session
	// fails with ErrDuplicateRefund via the unique index.
	Append(ctx context.Context, tx Tx, entry *LedgerEntry) error
	FindRefundForSession(ctx context.Context, sessionID string) (*LedgerEntry, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]*LedgerEntry, error)
}

// LedgerService exposes atomic balance movements with audit entries.
type LedgerService interface {
	Debit(ctx context.Context, tx Tx, userID uint, amount int64, reason LedgerReason, sessionID string) (int64, error)
	Credit(ctx context.Context, tx Tx, userID uint, amount int64, reason LedgerReason, sessionID string) (int64, error)
	Balance(ctx context.Context, userID uint) (int64, error)
	Entries(ctx context.Context, userID uint, limit int) ([]*LedgerEntry, error)
}

// ProviderGateway abstracts the upstream rental API. It is treated as an
// unreliable, possibly slow external dependency; every call carries a context.
type ProviderGateway interface {
	Reserve(ctx context.Context, serviceType ServiceType, carrier string) (*Reservation, error)
	// PollOTP is an idempotent read with no side effect on the reservation.
	PollOTP(ctx context.Context, handle string) (*OTPOutcome, error)
	// Release is best-effort cleanup; callers log failures and move on.
	Release(ctx context.Context, handle string) error
}

// RentalService orchestrates interactive rental requests.
type RentalService interface {
	StartRental(ctx context.Context, userID uint, serviceType ServiceType, carrier string) (*RentalSessionView, error)
	PollOTP(ctx context.Context, sessionID string, userID uint) (*RentalSessionView, error)
	ListActive(ctx context.Context, userID uint, serviceType ServiceType) ([]*RentalSessionView, error)
	History(ctx context.Context, userID uint) ([]*RentalSessionView, error)
}

// RefundScheduler runs the recurring expiry sweep and exposes a manual
// trigger plus a status snapshot for operators.
type RefundScheduler interface {
	Start(ctx context.Context)
	Stop()
	RunOnce(ctx context.Context) (*SweepResult, error)
	Status() *SchedulerStatus
}

// RateLimiter bounds repeated rental starts per user per window.
type RateLimiter interface {
	Allow(ctx context.Context, userID uint) (bool, error)
}

// TokenService validates bearer tokens issued upstream of this service.
type TokenService interface {
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// PolicyService defines authorization policy operations.
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}
