package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/rentalsvc/domain"
)

// AdminHandlers handles the operator-facing endpoints: auto-refund control
// and manual balance credits (the entry point for top-up and adjustment
// flows that live outside this service).
type AdminHandlers struct {
	scheduler domain.RefundScheduler
	ledgerSvc domain.LedgerService
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(scheduler domain.RefundScheduler, ledgerSvc domain.LedgerService) *AdminHandlers {
	return &AdminHandlers{
		scheduler: scheduler,
		ledgerSvc: ledgerSvc,
	}
}

// AutoRefundStatus handles GET /admin/auto-refund/status
func (h *AdminHandlers) AutoRefundStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.scheduler.Status()})
}

// ManualCheck handles POST /admin/auto-refund/manual-check
func (h *AdminHandlers) ManualCheck(c *gin.Context) {
	result, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrSweepInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "A sweep is already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Manual check failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":        fmt.Sprintf("Checked %d expired sessions", result.Scanned),
			"refunded_count": result.Refunded,
		},
	})
}

// CreditRequest represents an admin balance credit request
type CreditRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required,oneof=topup admin_adjust"`
}

// Credit handles POST /admin/balance/credit
func (h *AdminHandlers) Credit(c *gin.Context) {
	var req CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newBalance, err := h.ledgerSvc.Credit(c.Request.Context(), nil, req.UserID, req.Amount, domain.LedgerReason(req.Reason), "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to credit balance"})
		return
	}

	log.Printf("BALANCE_CREDITED: user=%d amount=%d reason=%s new_balance=%d", req.UserID, req.Amount, req.Reason, newBalance)

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"user_id":     req.UserID,
			"new_balance": newBalance,
		},
	})
}
