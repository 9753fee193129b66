package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/rentalsvc/domain"
	"github.com/you/rentalsvc/internal/config"
	httpx "github.com/you/rentalsvc/internal/http"
	"github.com/you/rentalsvc/internal/http/handlers"
	"github.com/you/rentalsvc/internal/http/middleware"
	"github.com/you/rentalsvc/internal/infrastructure/auth"
	"github.com/you/rentalsvc/internal/infrastructure/database"
	"github.com/you/rentalsvc/internal/infrastructure/provider"
	"github.com/you/rentalsvc/internal/infrastructure/repositories"
	"github.com/you/rentalsvc/internal/services"
)

func Run(cfg *config.Config) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	gdb, err := database.Open(cfg.DSN)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(gdb); err != nil {
		return err
	}
	cas, err := auth.NewCasbinService(gdb, cfg.CasbinModelPath)
	if err != nil {
		return err
	}
	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB).Client
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return err
	}

	// Infrastructure services
	tokenSvc := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer)
	gateway, err := buildGateway(cfg)
	if err != nil {
		return err
	}

	// Repositories
	sessionRepo := repositories.NewSessionRepository(gdb)
	accountRepo := repositories.NewAccountRepository(gdb)
	ledgerRepo := repositories.NewLedgerRepository(gdb)

	// Services
	ledgerSvc := services.NewLedgerService(accountRepo, ledgerRepo)
	limiter := services.NewRedisRateLimiter(rdb, cfg.StartsPerWindow, cfg.StartWindow)
	rentalSvc := services.NewRentalService(gdb, cfg, sessionRepo, ledgerSvc, ledgerRepo, gateway, limiter)
	scheduler := services.NewRefundScheduler(gdb, sessionRepo, ledgerSvc, ledgerRepo, gateway, cfg.SweepInterval, cfg.SweepBatchSize)

	// Handlers
	rentalH := handlers.NewRentalHandlers(rentalSvc)
	balanceH := handlers.NewBalanceHandlers(ledgerSvc)
	adminH := handlers.NewAdminHandlers(scheduler, ledgerSvc)

	// Middleware
	jwtMW := middleware.NewAuthMW(tokenSvc)
	casbinMW := middleware.NewCasbinMW(cas.E)

	r := httpx.BuildRouter(rentalH, balanceH, adminH, jwtMW, casbinMW)

	if len(cas.GetPolicies()) == 0 {
		if err := cas.AddPolicy("role_admin", "/admin/*", "(GET)|(POST)|(PUT)|(DELETE)"); err != nil {
			return fmt.Errorf("failed to seed admin policy: %w", err)
		}
		log.Println("casbin: seeded default policies")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go scheduler.Start(ctx)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down")
	scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildGateway(cfg *config.Config) (domain.ProviderGateway, error) {
	switch cfg.ProviderDriver {
	case "twilio":
		return provider.NewTwilioGateway(cfg.TwilioSID, cfg.TwilioToken), nil
	case "httpapi", "":
		return provider.NewHTTPGateway(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout, cfg.ProviderRetries), nil
	default:
		return nil, fmt.Errorf("unknown provider driver %q", cfg.ProviderDriver)
	}
}
