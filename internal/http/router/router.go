package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/payout-ledger/internal/config"
	"github.com/ignatzorin/payout-ledger/internal/domain/ledger"
	"github.com/ignatzorin/payout-ledger/internal/http/handlers"
	"github.com/ignatzorin/payout-ledger/internal/http/middleware"
	"github.com/ignatzorin/payout-ledger/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	approvalHandler *handlers.ApprovalHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.GET("/ws", wsHandler.Handle)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager))

	admin.POST("/earnings",
		middleware.RequireRole(service.RoleAdmin, service.RoleService),
		middleware.RateLimitMiddleware(cfg.RateLimitLimit*10, cfg.RateLimitPeriod),
		approvalHandler.RecordEarning)

	console := admin.Group("")
	console.Use(middleware.RequireRole(service.RoleAdmin))
	{
		console.GET("/approvals", approvalHandler.Snapshot)
		console.GET("/wallets/:id", middleware.UUIDValidator("id"), approvalHandler.GetWallet)
		console.GET("/wallets/:id/reconcile", middleware.UUIDValidator("id"), approvalHandler.Reconcile)
	}

	actions := console.Group("/transactions/:id")
	actions.Use(middleware.UUIDValidator("id"), middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		actions.POST("/approve-earning", approvalHandler.Act(ledger.OpApproveEarning))
		actions.POST("/approve-payout", approvalHandler.Act(ledger.OpApprovePayout))
		actions.POST("/reject-payout", approvalHandler.Act(ledger.OpRejectPayout))
		actions.POST("/hold", approvalHandler.Act(ledger.OpHoldPayout))
		actions.POST("/release", approvalHandler.Act(ledger.OpReleaseHold))
	}

	return r
}
