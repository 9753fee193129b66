package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/rentalsvc/domain"
	"github.com/you/rentalsvc/internal/mocks"
)

func performBalance(target string, userID uint, h *BalanceHandlers, register func(*gin.Engine, *BalanceHandlers)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	register(router, h)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBalanceHandlers_Balance(t *testing.T) {
	ledgerSvc := mocks.NewMockLedgerService()
	ledgerSvc.BalanceFunc = func(ctx context.Context, userID uint) (int64, error) {
		require.Equal(t, uint(1), userID)
		return 3800, nil
	}
	h := NewBalanceHandlers(ledgerSvc)

	w := performBalance("/balance", 1, h, func(r *gin.Engine, h *BalanceHandlers) {
		r.GET("/balance", h.Balance)
	})

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(3800), data["balance"])
}

func TestBalanceHandlers_BalanceUnauthenticated(t *testing.T) {
	h := NewBalanceHandlers(mocks.NewMockLedgerService())

	w := performBalance("/balance", 0, h, func(r *gin.Engine, h *BalanceHandlers) {
		r.GET("/balance", h.Balance)
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBalanceHandlers_Ledger(t *testing.T) {
	ledgerSvc := mocks.NewMockLedgerService()
	ledgerSvc.EntriesFunc = func(ctx context.Context, userID uint, limit int) ([]*domain.LedgerEntry, error) {
		return []*domain.LedgerEntry{
			{Amount: -1200, Reason: domain.ReasonRentalDebit, RelatedSessionID: "sess-1", BalanceAfter: 3800, CreatedAt: time.Now()},
			{Amount: 5000, Reason: domain.ReasonTopup, BalanceAfter: 5000, CreatedAt: time.Now().Add(-time.Hour)},
		}, nil
	}
	h := NewBalanceHandlers(ledgerSvc)

	w := performBalance("/balance/ledger", 1, h, func(r *gin.Engine, h *BalanceHandlers) {
		r.GET("/balance/ledger", h.Ledger)
	})

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data, ok := response["data"].([]interface{})
	require.True(t, ok, "expected data array, got %v", response)
	require.Len(t, data, 2)

	first := data[0].(map[string]interface{})
	assert.Equal(t, float64(-1200), first["amount"])
	assert.Equal(t, "rental_debit", first["reason"])
	assert.Equal(t, "sess-1", first["related_session_id"])

	second := data[1].(map[string]interface{})
	assert.Equal(t, "topup", second["reason"])
	assert.NotContains(t, second, "related_session_id")
}

func TestBalanceHandlers_LedgerFailure(t *testing.T) {
	ledgerSvc := mocks.NewMockLedgerService()
	ledgerSvc.EntriesFunc = func(ctx context.Context, userID uint, limit int) ([]*domain.LedgerEntry, error) {
		return nil, errors.New("db down")
	}
	h := NewBalanceHandlers(ledgerSvc)

	w := performBalance("/balance/ledger", 1, h, func(r *gin.Engine, h *BalanceHandlers) {
		r.GET("/balance/ledger", h.Ledger)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
