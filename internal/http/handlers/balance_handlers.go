package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/rentalsvc/domain"
	"github.com/you/rentalsvc/internal/http/middleware"
)

// BalanceHandlers handles balance and ledger HTTP requests
type BalanceHandlers struct {
	ledgerSvc domain.LedgerService
}

// NewBalanceHandlers creates new balance handlers
func NewBalanceHandlers(ledgerSvc domain.LedgerService) *BalanceHandlers {
	return &BalanceHandlers{ledgerSvc: ledgerSvc}
}

// Balance handles GET /balance
func (h *BalanceHandlers) Balance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	balance, err := h.ledgerSvc.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"balance": balance}})
}

// Ledger handles GET /balance/ledger
func (h *BalanceHandlers) Ledger(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entries, err := h.ledgerSvc.Entries(c.Request.Context(), userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ledger"})
		return
	}

	type entryView struct {
		Amount           int64               `json:"amount"`
		Reason           domain.LedgerReason `json:"reason"`
		RelatedSessionID string              `json:"related_session_id,omitempty"`
		BalanceAfter     int64               `json:"balance_after"`
		CreatedAt        string              `json:"created_at"`
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView{
			Amount:           e.Amount,
			Reason:           e.Reason,
			RelatedSessionID: e.RelatedSessionID,
			BalanceAfter:     e.BalanceAfter,
			CreatedAt:        e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}
