package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/you/rentalsvc/domain"
	"github.com/you/rentalsvc/internal/mocks"
)

func TestAuthMW_WithJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		authHeader     string
		setupMock      func(*mocks.MockTokenService)
		expectedStatus int
		expectedUserID uint
	}{
		{
			name:       "valid token",
			authHeader: "Bearer good-token",
			setupMock: func(svc *mocks.MockTokenService) {
				svc.ValidateAccessTokenFunc = func(token string) (*domain.TokenClaims, error) {
					if token != "good-token" {
						return nil, domain.ErrTokenInvalid
					}
					return &domain.TokenClaims{UserID: 7, Role: "user"}, nil
				}
			},
			expectedStatus: http.StatusOK,
			expectedUserID: 7,
		},
		{
			name:           "missing header",
			authHeader:     "",
			setupMock:      func(svc *mocks.MockTokenService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed header",
			authHeader:     "Token abc",
			setupMock:      func(svc *mocks.MockTokenService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			authHeader: "Bearer stale-token",
			setupMock: func(svc *mocks.MockTokenService) {
				svc.ValidateAccessTokenFunc = func(token string) (*domain.TokenClaims, error) {
					return nil, domain.ErrTokenExpired
				}
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenSvc := mocks.NewMockTokenService()
			tt.setupMock(tokenSvc)
			mw := NewAuthMW(tokenSvc)

			var gotUserID uint
			router := gin.New()
			router.GET("/protected", mw.WithJWT(), func(c *gin.Context) {
				gotUserID, _ = UserID(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d (body: %s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK && gotUserID != tt.expectedUserID {
				t.Errorf("expected user id %d on context, got %d", tt.expectedUserID, gotUserID)
			}
		})
	}
}
