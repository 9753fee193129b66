package domain

import "time"

// SessionStatus is the lifecycle state of a rental session.
// Waiting is the only non-terminal state; every other state is final.
type SessionStatus string

const (
	SessionWaiting   SessionStatus = "waiting"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
	SessionFailed    SessionStatus = "failed"
)

// validSessionTransitions lists the allowed status changes. Terminal states
// have no outgoing edges, which is what makes transitions one-directional.
var validSessionTransitions = map[SessionStatus][]SessionStatus{
	SessionWaiting: {SessionCompleted, SessionExpired, SessionFailed},
}

// CanTransitionTo reports whether a session may move from current to target.
func CanTransitionTo(current, target SessionStatus) bool {
	for _, s := range validSessionTransitions[current] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is final.
func (s SessionStatus) IsTerminal() bool {
	return s != SessionWaiting
}

// ServiceType identifies a rentable upstream offering. Price and TTL per
// service type come from configuration, never from the session row.
type ServiceType string

const (
	ServicePhoneRentalV1 ServiceType = "phone_rental_v1"
	ServicePhoneRentalV2 ServiceType = "phone_rental_v2"
	ServicePhoneRentalV3 ServiceType = "phone_rental_v3"
	ServiceTiktokRental  ServiceType = "tiktok_rental"
)

// RentalSession is one rental attempt for a temporary phone number, tracked
// from reservation to resolution. Rows are never deleted; history views read
// them as the audit record.
type RentalSession struct {
	ID             string
	UserID         uint
	ServiceType    ServiceType
	Carrier        string
	PhoneNumber    string
	ProviderHandle string
	Status         SessionStatus
	OTPCode        string
	Cost           int64
	Refunded       bool
	CreatedAt      time.Time
	ExpiresAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the session's TTL has elapsed at the given instant.
func (s *RentalSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// LedgerReason classifies a balance movement.
type LedgerReason string

const (
	ReasonRentalDebit  LedgerReason = "rental_debit"
	ReasonRentalRefund LedgerReason = "rental_refund"
	ReasonTopup        LedgerReason = "topup"
	ReasonAdminAdjust  LedgerReason = "admin_adjust"
)

// LedgerEntry is an immutable record of one balance change. Amount is signed:
// debits are negative, credits positive. BalanceAfter snapshots the running
// balance for reconciliation.
type LedgerEntry struct {
	ID               uint
	UserID           uint
	Amount           int64
	Reason           LedgerReason
	RelatedSessionID string
	BalanceAfter     int64
	CreatedAt        time.Time
}

// Account holds a user's spendable balance. Version is the optimistic-lock
// counter serializing concurrent debits for the same user.
type Account struct {
	ID        uint
	UserID    uint
	Balance   int64
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation is the gateway's answer to a successful reserve call. Handle is
// the opaque provider-side identifier used for polling and release.
type Reservation struct {
	PhoneNumber string
	Handle      string
}

// OTPDeliveryStatus is the gateway-reported state of a reservation's code.
type OTPDeliveryStatus string

const (
	OTPDelivered OTPDeliveryStatus = "delivered"
	OTPPending   OTPDeliveryStatus = "pending"
	OTPCancelled OTPDeliveryStatus = "cancelled"
)

// OTPOutcome is the result of polling the provider for a delivered code.
type OTPOutcome struct {
	Status OTPDeliveryStatus
	Code   string
}

// RentalSessionView is the client-facing projection of a session.
type RentalSessionView struct {
	SessionID   string        `json:"session_id"`
	ServiceType ServiceType   `json:"service_type"`
	Carrier     string        `json:"carrier,omitempty"`
	PhoneNumber string        `json:"phone_number"`
	Status      SessionStatus `json:"status"`
	OTPCode     string        `json:"otp_code,omitempty"`
	Cost        int64         `json:"cost"`
	Refunded    bool          `json:"refunded"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// NewSessionView builds the client projection of a session.
func NewSessionView(s *RentalSession) *RentalSessionView {
	return &RentalSessionView{
		SessionID:   s.ID,
		ServiceType: s.ServiceType,
		Carrier:     s.Carrier,
		PhoneNumber: s.PhoneNumber,
		Status:      s.Status,
		OTPCode:     s.OTPCode,
		Cost:        s.Cost,
		Refunded:    s.Refunded,
		CreatedAt:   s.CreatedAt,
		ExpiresAt:   s.ExpiresAt,
	}
}

// SweepResult summarizes one auto-refund sweep for the status endpoint.
type SweepResult struct {
	Scanned    int                 `json:"scanned"`
	Refunded   int                 `json:"refunded"`
	Conflicts  int                 `json:"conflicts"`
	PerService map[ServiceType]int `json:"per_service"`
	Errors     []string            `json:"errors,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// SchedulerStatus is the inspection snapshot of the auto-refund scheduler.
type SchedulerStatus struct {
	IsRunning   bool         `json:"is_running"`
	Interval    string       `json:"interval"`
	LastCheck   *time.Time   `json:"last_check,omitempty"`
	NextCheck   *time.Time   `json:"next_check,omitempty"`
	TotalChecks int64        `json:"total_checks"`
	LastResult  *SweepResult `json:"last_result,omitempty"`
}

// TokenClaims represents validated bearer-token claims. Token issuance lives
// upstream of this service; only validation happens here.
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
