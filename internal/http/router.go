package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Muhsin-Gun/event-API/internal/auth"
	"github.com/Muhsin-Gun/event-API/internal/config"
	"github.com/Muhsin-Gun/event-API/internal/http/handlers"
	"github.com/Muhsin-Gun/event-API/internal/http/middleware"
	"github.com/Muhsin-Gun/event-API/internal/mailer"
	"github.com/Muhsin-Gun/event-API/internal/modules/events"
	"github.com/Muhsin-Gun/event-API/internal/modules/payments"
	"github.com/Muhsin-Gun/event-API/internal/modules/payments/daraja"
	"github.com/Muhsin-Gun/event-API/internal/modules/reports"
	"github.com/Muhsin-Gun/event-API/internal/modules/users"
	"github.com/Muhsin-Gun/event-API/internal/storage"
)

type Deps struct {
	Cfg     config.Config
	DB      *gorm.DB
	Logger  *slog.Logger
	Mailer  mailer.Service // nil disables reset emails
	Storage storage.Storage
}

// dbRoleSource backfills the role claim for tokens that predate it.
type dbRoleSource struct{ repo *users.Repo }

func (s dbRoleSource) Role(c *gin.Context, userID string) (string, error) {
	u, err := s.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.ErrorHandler(d.Logger),
	)

	tokens := auth.NewTokens(d.Cfg.JWT)

	userRepo := users.NewRepo(d.DB)
	userSvc := users.NewService(userRepo)
	resetSvc := users.NewResetService(d.DB, userRepo, tokens, d.Mailer, d.Logger, users.ResetConfig{
		FrontendURL: d.Cfg.FrontendURL,
		FromAddr:    d.Cfg.SMTP.FromAddr,
		FromName:    d.Cfg.SMTP.FromName,
		TokenTTL:    d.Cfg.JWT.ResetTTL,
	})

	eventRepo := events.NewRepo(d.DB)

	paymentRepo := payments.NewRepo(d.DB)
	var gateway daraja.Gateway
	if d.Cfg.Mpesa.Configured() {
		gateway = daraja.NewClient(d.Cfg.Mpesa, d.Logger)
	} else {
		d.Logger.Warn("mpesa credentials not configured; gateway runs in simulated mode")
		gateway = daraja.NewSimulator()
	}
	paymentSvc := payments.NewService(paymentRepo, gateway, eventRepo, d.Logger)
	callbackSvc := payments.NewCallbackService(paymentRepo, d.Logger)

	reportSvc := reports.NewService(d.DB, paymentRepo)

	authH := &handlers.AuthHandler{
		Users:           userSvc,
		Repo:            userRepo,
		Reset:           resetSvc,
		Tokens:          tokens,
		Logger:          d.Logger,
		ExposeResetLink: d.Mailer == nil,
	}
	eventH := &handlers.EventHandler{Repo: eventRepo, Storage: d.Storage, Logger: d.Logger}
	paymentH := &handlers.PaymentHandler{
		Service:   paymentSvc,
		Callbacks: callbackSvc,
		Repo:      paymentRepo,
		Logger:    d.Logger,
	}
	userH := &handlers.UserHandler{Repo: userRepo}
	reportH := &handlers.ReportHandler{Service: reportSvc}

	requireAuth := middleware.RequireAuth(tokens)
	requireAdmin := middleware.RequireRole(dbRoleSource{repo: userRepo}, users.RoleAdmin)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/refresh-token", authH.Refresh)
		authGroup.POST("/forgot-password", authH.ForgotPassword)
		authGroup.POST("/reset-password", authH.ResetPassword)
	}

	eventGroup := api.Group("/events")
	{
		eventGroup.GET("", eventH.List)
		eventGroup.GET("/:id", eventH.Get)
		eventGroup.POST("", requireAuth, eventH.Create)
		eventGroup.PATCH("/:id", requireAuth, eventH.Update)
		eventGroup.DELETE("/:id", requireAuth, eventH.Delete)
		eventGroup.POST("/:id/poster", requireAuth, eventH.UploadPoster)
	}

	userGroup := api.Group("/users")
	{
		userGroup.GET("", userH.List)
		userGroup.GET("/:id", userH.Get)
		userGroup.PATCH("/:id", requireAuth, userH.Update)
		userGroup.DELETE("/:id", requireAuth, userH.Delete)
	}

	paymentGroup := api.Group("/payments")
	{
		paymentGroup.POST("/mpesa/stkpush", requireAuth, paymentH.StkPush)
		// public: Safaricom calls this
		paymentGroup.POST("/mpesa/callback", paymentH.Callback)
		paymentGroup.GET("/mpesa/status/:checkoutRequestId", requireAuth, paymentH.Status)
		paymentGroup.GET("/mine", requireAuth, paymentH.ListMine)
	}

	reportGroup := api.Group("/reports", requireAuth, requireAdmin)
	{
		reportGroup.GET("/sales", reportH.Sales)
		reportGroup.GET("/status", reportH.StatusRollup)
	}

	return r
}
