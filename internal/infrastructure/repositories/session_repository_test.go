package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/you/rentalsvc/domain"
)

// setupTestDB creates an in-memory SQLite database for testing
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

	if err := db.AutoMigrate(&DBAccount{}, &DBLedgerEntry{}, &DBRentalSession{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func newWaitingSession(id string, userID uint, expiresAt time.Time) *domain.RentalSession {
	return &domain.RentalSession{
		ID:             id,
		UserID:         userID,
		ServiceType:    domain.ServicePhoneRentalV1,
		Carrier:        "any",
		PhoneNumber:    "+15550001111",
		ProviderHandle: "act_" + id,
		Status:         domain.SessionWaiting,
		Cost:           1200,
		ExpiresAt:      expiresAt,
	}
}

func TestSessionRepositoryImpl_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := newWaitingSession("s1", 1, time.Now().Add(15*time.Minute))
	if err := repo.Create(ctx, nil, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.UserID != 1 || found.Status != domain.SessionWaiting || found.Cost != 1200 {
		t.Errorf("unexpected session: %+v", found)
	}

	_, err = repo.FindByID(ctx, "missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepositoryImpl_ListActiveForUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	future := time.Now().Add(15 * time.Minute)

	waiting := newWaitingSession("s1", 1, future)
	done := newWaitingSession("s2", 1, future)
	other := newWaitingSession("s3", 2, future)
	tiktok := newWaitingSession("s4", 1, future)
	tiktok.ServiceType = domain.ServiceTiktokRental

	for _, s := range []*domain.RentalSession{waiting, done, other, tiktok} {
		if err := repo.Create(ctx, nil, s); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := repo.Transition(ctx, nil, "s2", domain.SessionWaiting, domain.SessionCompleted, map[string]interface{}{"otp_code": "123456"}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	// Without service filter: both waiting sessions for user 1
	active, err := repo.ListActiveForUser(ctx, 1, "")
	if err != nil {
		t.Fatalf("ListActiveForUser failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(active))
	}

	// Filtered to one service type
	active, err = repo.ListActiveForUser(ctx, 1, domain.ServiceTiktokRental)
	if err != nil {
		t.Fatalf("ListActiveForUser failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != "s4" {
		t.Fatalf("expected only s4, got %+v", active)
	}
}

func TestSessionRepositoryImpl_FindExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	now := time.Now()

	overdue := newWaitingSession("s1", 1, now.Add(-time.Minute))
	fresh := newWaitingSession("s2", 1, now.Add(time.Hour))
	resolved := newWaitingSession("s3", 1, now.Add(-time.Hour))

	for _, s := range []*domain.RentalSession{overdue, fresh, resolved} {
		if err := repo.Create(ctx, nil, s); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := repo.Transition(ctx, nil, "s3", domain.SessionWaiting, domain.SessionExpired, map[string]interface{}{"refunded": true}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	expired, err := repo.FindExpired(ctx, now, 100)
	if err != nil {
		t.Fatalf("FindExpired failed: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "s1" {
		t.Fatalf("expected only s1 expired, got %+v", expired)
	}
}

func TestSessionRepositoryImpl_Transition(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(ctx context.Context, repo domain.SessionRepository)
		id            string
		expected      domain.SessionStatus
		next          domain.SessionStatus
		fields        map[string]interface{}
		expectedError error
	}{
		{
			name:     "waiting to completed with code",
			id:       "s1",
			expected: domain.SessionWaiting,
			next:     domain.SessionCompleted,
			fields:   map[string]interface{}{"otp_code": "654321"},
		},
		{
			name: "lost race yields conflict",
			setup: func(ctx context.Context, repo domain.SessionRepository) {
				if err := repo.Transition(ctx, nil, "s1", domain.SessionWaiting, domain.SessionExpired, map[string]interface{}{"refunded": true}); err != nil {
					panic(err)
				}
			},
			id:            "s1",
			expected:      domain.SessionWaiting,
			next:          domain.SessionCompleted,
			fields:        map[string]interface{}{"otp_code": "654321"},
			expectedError: domain.ErrStatusConflict,
		},
		{
			name:          "missing session",
			id:            "nope",
			expected:      domain.SessionWaiting,
			next:          domain.SessionExpired,
			expectedError: domain.ErrSessionNotFound,
		},
		{
			name:          "terminal state has no outgoing transition",
			id:            "s1",
			expected:      domain.SessionCompleted,
			next:          domain.SessionExpired,
			expectedError: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewSessionRepository(db)
			ctx := context.Background()

			if err := repo.Create(ctx, nil, newWaitingSession("s1", 1, time.Now().Add(time.Minute))); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if tt.setup != nil {
				tt.setup(ctx, repo)
			}

			err := repo.Transition(ctx, nil, tt.id, tt.expected, tt.next, tt.fields)
			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Fatalf("expected %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transition failed: %v", err)
			}

			found, err := repo.FindByID(ctx, tt.id)
			if err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}
			if found.Status != tt.next {
				t.Errorf("expected status %s, got %s", tt.next, found.Status)
			}
			if code, ok := tt.fields["otp_code"]; ok && found.OTPCode != code {
				t.Errorf("expected otp code %v, got %s", code, found.OTPCode)
			}
		})
	}
}

func TestSessionRepositoryImpl_TransitionOnlyOneWinner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, nil, newWaitingSession("s1", 1, time.Now().Add(-time.Minute))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	completeErr := repo.Transition(ctx, nil, "s1", domain.SessionWaiting, domain.SessionCompleted, map[string]interface{}{"otp_code": "111111"})
	expireErr := repo.Transition(ctx, nil, "s1", domain.SessionWaiting, domain.SessionExpired, map[string]interface{}{"refunded": true})

	if completeErr != nil {
		t.Fatalf("first transition should win: %v", completeErr)
	}
	if !errors.Is(expireErr, domain.ErrStatusConflict) {
		t.Fatalf("second transition should observe conflict, got %v", expireErr)
	}

	found, _ := repo.FindByID(ctx, "s1")
	if found.Status != domain.SessionCompleted || found.Refunded {
		t.Errorf("winner's outcome must stand untouched: %+v", found)
	}
}
