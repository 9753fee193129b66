package httpx

import (
	"github.com/gin-gonic/gin"

	"github.com/you/rentalsvc/internal/http/handlers"
	"github.com/you/rentalsvc/internal/http/middleware"
)

func BuildRouter(rh *handlers.RentalHandlers, bh *handlers.BalanceHandlers, ah *handlers.AdminHandlers, jwtmw *middleware.AuthMW, cb *middleware.CasbinMW) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	rentals := r.Group("/rentals").Use(jwtmw.WithJWT())
	rentals.POST("/start", rh.Start)
	rentals.POST("/:id/otp", rh.PollOTP)
	rentals.GET("/active", rh.ListActive)
	rentals.GET("/history", rh.History)

	balance := r.Group("/balance").Use(jwtmw.WithJWT())
	balance.GET("", bh.Balance)
	balance.GET("/ledger", bh.Ledger)

	adm := r.Group("/admin").Use(jwtmw.WithJWT(), cb.Enforce())
	adm.GET("/auto-refund/status", ah.AutoRefundStatus)
	adm.POST("/auto-refund/manual-check", ah.ManualCheck)
	adm.POST("/balance/credit", ah.Credit)

	return r
}
