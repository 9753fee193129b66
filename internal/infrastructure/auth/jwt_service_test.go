package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/you/rentalsvc/domain"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestJWTService_ValidateAccessToken(t *testing.T) {
	svc := NewJWTService(testSecret, "authsvc")
	now := time.Now()

	validClaims := jwt.MapClaims{
		"user_id":    float64(7),
		"role":       "user",
		"session_id": "sess-abc",
		"iat":        float64(now.Unix()),
		"exp":        float64(now.Add(time.Hour).Unix()),
	}

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims)

		claims, err := svc.ValidateAccessToken(token)
		if err != nil {
			t.Fatalf("ValidateAccessToken failed: %v", err)
		}
		if claims.UserID != 7 || claims.Role != "user" || claims.SessionID != "sess-abc" {
			t.Errorf("unexpected claims: %+v", claims)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.SigningMethodHS256, validClaims)

		if _, err := svc.ValidateAccessToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := jwt.MapClaims{
			"user_id": float64(7),
			"role":    "user",
			"iat":     float64(now.Add(-2 * time.Hour).Unix()),
			"exp":     float64(now.Add(-time.Hour).Unix()),
		}
		token := signToken(t, testSecret, jwt.SigningMethodHS256, expired)

		// Expiry must map to its own sentinel, not the generic invalid one.
		_, err := svc.ValidateAccessToken(token)
		if !errors.Is(err, domain.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("missing role claim", func(t *testing.T) {
		incomplete := jwt.MapClaims{
			"user_id": float64(7),
			"iat":     float64(now.Unix()),
			"exp":     float64(now.Add(time.Hour).Unix()),
		}
		token := signToken(t, testSecret, jwt.SigningMethodHS256, incomplete)

		if _, err := svc.ValidateAccessToken(token); !errors.Is(err, domain.ErrTokenMalformed) {
			t.Errorf("expected ErrTokenMalformed, got %v", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := svc.ValidateAccessToken("not-a-jwt"); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
	})
}
