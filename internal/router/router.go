package router

import (
	"net/http"
	"time"

	"pesagate/config"
	"pesagate/internal/handler"
	"pesagate/internal/middleware"
	"pesagate/internal/repository"
	"pesagate/internal/service"
	"pesagate/pkg/daraja"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers onto a gin engine.
// extraListeners lets main attach optional payment-event sinks (Kafka).
func Setup(cfg *config.Config, db *gorm.DB, log *zap.Logger, extraListeners ...service.PaymentListener) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	orderRepo := repository.NewOrderRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// Services
	events := service.NewEvents(log)
	events.Register(service.NewNotificationService(notificationRepo))
	for _, l := range extraListeners {
		events.Register(l)
	}
	reconciler := service.NewReconcileService(orderRepo, events, log)
	verifier := service.NewVerifyService(orderRepo, cfg.Checkout.VerifyTimeout, cfg.Checkout.ReceiptPageURL, log)
	darajaClient := daraja.NewClient(cfg.Daraja, log)

	// Handlers
	callbackHandler := handler.NewCallbackHandler(reconciler, log)
	verifyHandler := handler.NewVerifyHandler(verifier)
	paymentHandler := handler.NewPaymentHandler(cfg, orderRepo, darajaClient, log)
	orderHandler := handler.NewOrderHandler(orderRepo)
	adminHandler := handler.NewAdminHandler(&cfg.Admin, settingRepo, log)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static("/static", "./web/static")

	api := r.Group("/api/v1")
	{
		api.POST("/mpesa/callback", callbackHandler.Handle)
		api.POST("/payments/initiate", paymentHandler.Initiate)
		api.POST("/payments/verify", verifyHandler.Handle)

		admin := api.Group("/admin")
		{
			admin.POST("/login", adminHandler.Login)
			protected := admin.Group("")
			protected.Use(middleware.AdminRequired(&cfg.Admin.JWT))
			{
				protected.GET("/settings", adminHandler.GetSettings)
				protected.PUT("/settings", adminHandler.UpdateSettings)
				protected.POST("/orders", orderHandler.Create)
				protected.GET("/orders/:id", orderHandler.Get)
			}
		}
	}
	return r
}
