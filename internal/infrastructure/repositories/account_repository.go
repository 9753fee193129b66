package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/rentalsvc/domain"
)

// AccountRepositoryImpl implements domain.AccountRepository using GORM
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// DBAccount represents the database model for Account (with GORM tags).
// Version is the optimistic-lock counter; every balance mutation bumps it.
type DBAccount struct {
	ID        uint  `gorm:"primaryKey"`
	UserID    uint  `gorm:"uniqueIndex;not null"`
	Balance   int64 `gorm:"not null;default:0"`
	Version   int   `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "accounts"
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

// conn resolves the handle for one call: the caller's transaction when
// inside one, the base connection otherwise. Reads inside a transaction must
// use the transaction's connection, not a second pooled one.
func (r *AccountRepositoryImpl) conn(tx domain.Tx) *gorm.DB {
	if g, ok := tx.(*gorm.DB); ok && g != nil {
		return g
	}
	return r.db
}

// GetOrCreate implements domain.AccountRepository
func (r *AccountRepositoryImpl) GetOrCreate(ctx context.Context, tx domain.Tx, userID uint) (*domain.Account, error) {
	account, err := r.GetByUserID(ctx, tx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	dbAccount := &DBAccount{UserID: userID, Balance: 0}
	err = r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(dbAccount).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, tx, userID)
}

// GetByUserID implements domain.AccountRepository
func (r *AccountRepositoryImpl) GetByUserID(ctx context.Context, tx domain.Tx, userID uint) (*domain.Account, error) {
	var dbAccount DBAccount
	err := r.conn(tx).WithContext(ctx).Where("user_id = ?", userID).First(&dbAccount).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbAccount), nil
}

// Debit implements domain.AccountRepository. The WHERE clause carries both
// the sufficiency check and the version match, so the debit is conditional
// and serialized per user without any external lock.
func (r *AccountRepositoryImpl) Debit(ctx context.Context, tx domain.Tx, userID uint, amount int64, version int) error {
	result := r.conn(tx).WithContext(ctx).
		Model(&DBAccount{}).
		Where("user_id = ? AND balance >= ? AND version = ?", userID, amount, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		account, err := r.GetByUserID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if account.Balance < amount {
			return domain.ErrInsufficientBalance
		}
		return domain.ErrVersionConflict
	}
	return nil
}

// Credit implements domain.AccountRepository. Additions carry the same
// version gate as debits: the balance-after snapshot recorded alongside a
// credit is only truthful if no other movement landed between the caller's
// read and this update.
func (r *AccountRepositoryImpl) Credit(ctx context.Context, tx domain.Tx, userID uint, amount int64, version int) error {
	result := r.conn(tx).WithContext(ctx).
		Model(&DBAccount{}).
		Where("user_id = ? AND version = ?", userID, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByUserID(ctx, tx, userID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}
	return nil
}

// dbToDomain converts database account to domain account
func (r *AccountRepositoryImpl) dbToDomain(a *DBAccount) *domain.Account {
	return &domain.Account{
		ID:        a.ID,
		UserID:    a.UserID,
		Balance:   a.Balance,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
