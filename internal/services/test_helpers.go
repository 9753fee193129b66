package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/you/rentalsvc/domain"
	"github.com/you/rentalsvc/internal/config"
	"github.com/you/rentalsvc/internal/infrastructure/repositories"
)

// setupTestDB creates an in-memory SQLite database with the rental schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	// The in-memory database exists per connection; pin the pool to one so
	// every handle sees the migrated schema.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&repositories.DBAccount{}, &repositories.DBLedgerEntry{}, &repositories.DBRentalSession{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// testStack bundles the real repositories and services wired against one
// in-memory database, the way the app composes them.
type testStack struct {
	db          *gorm.DB
	cfg         *config.Config
	sessionRepo domain.SessionRepository
	accountRepo domain.AccountRepository
	ledgerRepo  domain.LedgerRepository
	ledgerSvc   domain.LedgerService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db := setupTestDB(t)
	accountRepo := repositories.NewAccountRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	return &testStack{
		db:          db,
		cfg:         newTestConfig(),
		sessionRepo: repositories.NewSessionRepository(db),
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		ledgerSvc:   NewLedgerService(accountRepo, ledgerRepo),
	}
}

func newTestConfig() *config.Config {
	return &config.Config{
		Services: map[domain.ServiceType]config.ServicePlan{
			domain.ServicePhoneRentalV1: {Price: 1200, TTL: 15 * time.Minute},
			domain.ServiceTiktokRental:  {Price: 2500, TTL: 10 * time.Minute},
		},
		StartsPerWindow: 5,
		StartWindow:     time.Minute,
		SweepInterval:   30 * time.Second,
		SweepBatchSize:  100,
	}
}

// fundAccount creates the user's account and credits it to the given balance
func (ts *testStack) fundAccount(t *testing.T, userID uint, balance int64) {
	t.Helper()

	ctx := context.Background()
	if _, err := ts.accountRepo.GetOrCreate(ctx, nil, userID); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	if balance > 0 {
		if _, err := ts.ledgerSvc.Credit(ctx, nil, userID, balance, domain.ReasonTopup, ""); err != nil {
			t.Fatalf("failed to fund account: %v", err)
		}
	}
}

func (ts *testStack) balance(t *testing.T, userID uint) int64 {
	t.Helper()

	balance, err := ts.ledgerSvc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	return balance
}

// refundEntries counts rental_refund ledger entries for the session
func (ts *testStack) refundEntries(t *testing.T, sessionID string) int {
	t.Helper()

	var count int64
	err := ts.db.Model(&repositories.DBLedgerEntry{}).
		Where("reason = ? AND related_session_id = ?", string(domain.ReasonRentalRefund), sessionID).
		Count(&count).Error
	if err != nil {
		t.Fatalf("failed to count refund entries: %v", err)
	}
	return int(count)
}
