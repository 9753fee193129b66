package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/rentalsvc/domain"
	"github.com/you/rentalsvc/internal/http/middleware"
)

// RentalHandlers handles rental session HTTP requests
type RentalHandlers struct {
	rentalSvc domain.RentalService
}

// NewRentalHandlers creates new rental handlers
func NewRentalHandlers(rentalSvc domain.RentalService) *RentalHandlers {
	return &RentalHandlers{rentalSvc: rentalSvc}
}

// StartRentalRequest represents a rental start request
type StartRentalRequest struct {
	ServiceType string `json:"service_type" binding:"required"`
	Carrier     string `json:"carrier"`
}

// Start handles POST /rentals/start
func (h *RentalHandlers) Start(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req StartRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.rentalSvc.StartRental(c.Request.Context(), userID, domain.ServiceType(req.ServiceType), req.Carrier)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownServiceType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown service type"})
		case errors.Is(err, domain.ErrInsufficientBalance):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient balance"})
		case errors.Is(err, domain.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many rental starts, please wait"})
		case domain.IsProviderError(err):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Number provider unavailable, please retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start rental"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"session_id":   view.SessionID,
			"phone_number": view.PhoneNumber,
			"expires_at":   view.ExpiresAt,
			"cost":         view.Cost,
		},
	})
}

// PollOTP handles POST /rentals/:id/otp
func (h *RentalHandlers) PollOTP(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	view, err := h.rentalSvc.PollOTP(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, domain.ErrNotSessionOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "Session belongs to another user"})
		case domain.IsProviderError(err):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Number provider unavailable, please retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to poll session"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

// ListActive handles GET /rentals/active
func (h *RentalHandlers) ListActive(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	serviceType := domain.ServiceType(c.Query("service_type"))
	views, err := h.rentalSvc.ListActive(c.Request.Context(), userID, serviceType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list active sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

// History handles GET /rentals/history
func (h *RentalHandlers) History(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	views, err := h.rentalSvc.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rental history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}
