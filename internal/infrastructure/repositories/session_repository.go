package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/you/rentalsvc/domain"
)

// SessionRepositoryImpl implements domain.SessionRepository using GORM
type SessionRepositoryImpl struct {
	db *gorm.DB
}

// DBRentalSession represents the database model for RentalSession (with GORM tags)
type DBRentalSession struct {
	ID             string    `gorm:"primaryKey;size:64"`
	UserID         uint      `gorm:"index;not null"`
	ServiceType    string    `gorm:"index;size:32;not null"`
	Carrier        string    `gorm:"size:64"`
	PhoneNumber    string    `gorm:"size:32"`
	ProviderHandle string    `gorm:"size:128"`
	Status         string    `gorm:"index;size:16;not null"`
	OTPCode        string    `gorm:"size:16"`
	Cost           int64     `gorm:"not null"`
	Refunded       bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"index"`
	ExpiresAt      time.Time `gorm:"index;not null"`
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (DBRentalSession) TableName() string {
	return "rental_sessions"
}

// NewSessionRepository creates a new rental session repository
func NewSessionRepository(db *gorm.DB) domain.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

// conn resolves the caller's transaction or falls back to the base handle.
func (r *SessionRepositoryImpl) conn(tx domain.Tx) *gorm.DB {
	if g, ok := tx.(*gorm.DB); ok && g != nil {
		return g
	}
	return r.db
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, tx domain.Tx, session *domain.RentalSession) error {
	dbSession := r.domainToDB(session)
	if err := r.conn(tx).WithContext(ctx).Create(dbSession).Error; err != nil {
		return err
	}
	session.CreatedAt = dbSession.CreatedAt
	session.UpdatedAt = dbSession.UpdatedAt
	return nil
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.RentalSession, error) {
	var dbSession DBRentalSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbSession).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbSession), nil
}

// ListActiveForUser implements domain.SessionRepository. Only waiting
// sessions are returned; the client uses this to decide whether to keep
// polling.
func (r *SessionRepositoryImpl) ListActiveForUser(ctx context.Context, userID uint, serviceType domain.ServiceType) ([]*domain.RentalSession, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(domain.SessionWaiting))
	if serviceType != "" {
		q = q.Where("service_type = ?", string(serviceType))
	}

	var dbSessions []DBRentalSession
	if err := q.Order("created_at DESC").Find(&dbSessions).Error; err != nil {
		return nil, err
	}
	return r.dbToDomainSlice(dbSessions), nil
}

// ListForUser implements domain.SessionRepository (history view, newest first)
func (r *SessionRepositoryImpl) ListForUser(ctx context.Context, userID uint, limit int) ([]*domain.RentalSession, error) {
	var dbSessions []DBRentalSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&dbSessions).Error
	if err != nil {
		return nil, err
	}
	return r.dbToDomainSlice(dbSessions), nil
}

// FindExpired implements domain.SessionRepository. It returns waiting
// sessions whose TTL has elapsed, oldest first, bounded by limit.
func (r *SessionRepositoryImpl) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.RentalSession, error) {
	var dbSessions []DBRentalSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", string(domain.SessionWaiting), now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&dbSessions).Error
	if err != nil {
		return nil, err
	}
	return r.dbToDomainSlice(dbSessions), nil
}

// Transition implements domain.SessionRepository. It is a guarded
// compare-and-set: the UPDATE only matches while the row still holds the
// expected status, so whichever caller runs first wins and the loser sees
// RowsAffected == 0, reported as ErrStatusConflict.
func (r *SessionRepositoryImpl) Transition(ctx context.Context, tx domain.Tx, id string, expected, next domain.SessionStatus, fields map[string]interface{}) error {
	if !domain.CanTransitionTo(expected, next) {
		return domain.ErrInvalidTransition
	}
	conn := r.conn(tx)

	updates := map[string]interface{}{"status": string(next)}
	for k, v := range fields {
		updates[k] = v
	}

	result := conn.WithContext(ctx).
		Model(&DBRentalSession{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a lost race from a missing row.
		var count int64
		if err := conn.WithContext(ctx).Model(&DBRentalSession{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrSessionNotFound
		}
		return domain.ErrStatusConflict
	}
	return nil
}

// domainToDB converts domain session to database session
func (r *SessionRepositoryImpl) domainToDB(s *domain.RentalSession) *DBRentalSession {
	return &DBRentalSession{
		ID:             s.ID,
		UserID:         s.UserID,
		ServiceType:    string(s.ServiceType),
		Carrier:        s.Carrier,
		PhoneNumber:    s.PhoneNumber,
		ProviderHandle: s.ProviderHandle,
		Status:         string(s.Status),
		OTPCode:        s.OTPCode,
		Cost:           s.Cost,
		Refunded:       s.Refunded,
		ExpiresAt:      s.ExpiresAt,
	}
}

// dbToDomain converts database session to domain session
func (r *SessionRepositoryImpl) dbToDomain(s *DBRentalSession) *domain.RentalSession {
	return &domain.RentalSession{
		ID:             s.ID,
		UserID:         s.UserID,
		ServiceType:    domain.ServiceType(s.ServiceType),
		Carrier:        s.Carrier,
		PhoneNumber:    s.PhoneNumber,
		ProviderHandle: s.ProviderHandle,
		Status:         domain.SessionStatus(s.Status),
		OTPCode:        s.OTPCode,
		Cost:           s.Cost,
		Refunded:       s.Refunded,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (r *SessionRepositoryImpl) dbToDomainSlice(rows []DBRentalSession) []*domain.RentalSession {
	sessions := make([]*domain.RentalSession, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, r.dbToDomain(&rows[i]))
	}
	return sessions
}
