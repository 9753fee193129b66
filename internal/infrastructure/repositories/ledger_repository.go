package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/you/rentalsvc/domain"
)

// LedgerRepositoryImpl implements domain.LedgerRepository using GORM
type LedgerRepositoryImpl struct {
	db *gorm.DB
}

// DBLedgerEntry represents the database model for LedgerEntry. Rows are only
// ever inserted. The composite unique index on (reason, related_session_id)
// is the database-level backstop: at most one rental_refund and one
// rental_debit can exist per session even if application checks raced.
type DBLedgerEntry struct {
	ID               uint      `gorm:"primaryKey"`
	UserID           uint      `gorm:"index;not null"`
	Amount           int64     `gorm:"not null"`
	Reason           string    `gorm:"size:32;not null;uniqueIndex:idx_reason_session"`
	RelatedSessionID *string   `gorm:"size:64;index;uniqueIndex:idx_reason_session"`
	BalanceAfter     int64     `gorm:"not null"`
	CreatedAt        time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBLedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) domain.LedgerRepository {
	return &LedgerRepositoryImpl{db: db}
}

// conn resolves the caller's transaction or falls back to the base handle.
func (r *LedgerRepositoryImpl) conn(tx domain.Tx) *gorm.DB {
	if g, ok := tx.(*gorm.DB); ok && g != nil {
		return g
	}
	return r.db
}

// Append implements domain.LedgerRepository. A unique-index hit on
// (reason, related_session_id) means the session's refund was already
// recorded; that surfaces as ErrDuplicateRefund so callers can treat it as
// already-settled instead of a storage failure.
func (r *LedgerRepositoryImpl) Append(ctx context.Context, tx domain.Tx, entry *domain.LedgerEntry) error {
	dbEntry := r.domainToDB(entry)
	if err := r.conn(tx).WithContext(ctx).Create(dbEntry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && entry.Reason == domain.ReasonRentalRefund {
			return domain.ErrDuplicateRefund
		}
		return err
	}
	entry.ID = dbEntry.ID
	entry.CreatedAt = dbEntry.CreatedAt
	return nil
}

// FindRefundForSession implements domain.LedgerRepository. A nil entry with
// nil error means no refund has been recorded for the session.
func (r *LedgerRepositoryImpl) FindRefundForSession(ctx context.Context, sessionID string) (*domain.LedgerEntry, error) {
	var dbEntry DBLedgerEntry
	err := r.db.WithContext(ctx).
		Where("reason = ? AND related_session_id = ?", string(domain.ReasonRentalRefund), sessionID).
		First(&dbEntry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return r.dbToDomain(&dbEntry), nil
}

// ListForUser implements domain.LedgerRepository (newest first)
func (r *LedgerRepositoryImpl) ListForUser(ctx context.Context, userID uint, limit int) ([]*domain.LedgerEntry, error) {
	var dbEntries []DBLedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&dbEntries).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.LedgerEntry, 0, len(dbEntries))
	for i := range dbEntries {
		entries = append(entries, r.dbToDomain(&dbEntries[i]))
	}
	return entries, nil
}

// domainToDB converts domain entry to database entry
func (r *LedgerRepositoryImpl) domainToDB(e *domain.LedgerEntry) *DBLedgerEntry {
	dbEntry := &DBLedgerEntry{
		ID:           e.ID,
		UserID:       e.UserID,
		Amount:       e.Amount,
		Reason:       string(e.Reason),
		BalanceAfter: e.BalanceAfter,
	}
	if e.RelatedSessionID != "" {
		sessionID := e.RelatedSessionID
		dbEntry.RelatedSessionID = &sessionID
	}
	return dbEntry
}

// dbToDomain converts database entry to domain entry
func (r *LedgerRepositoryImpl) dbToDomain(e *DBLedgerEntry) *domain.LedgerEntry {
	entry := &domain.LedgerEntry{
		ID:           e.ID,
		UserID:       e.UserID,
		Amount:       e.Amount,
		Reason:       domain.LedgerReason(e.Reason),
		BalanceAfter: e.BalanceAfter,
		CreatedAt:    e.CreatedAt,
	}
	if e.RelatedSessionID != nil {
		entry.RelatedSessionID = *e.RelatedSessionID
	}
	return entry
}
