package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/subgate/internal/billing"
	"github.com/smallbiznis/subgate/internal/catalog"
	catalogdomain "github.com/smallbiznis/subgate/internal/catalog/domain"
	"github.com/smallbiznis/subgate/internal/clock"
	"github.com/smallbiznis/subgate/internal/config"
	"github.com/smallbiznis/subgate/internal/observability"
	obsmiddleware "github.com/smallbiznis/subgate/internal/observability/logger"
	obstracing "github.com/smallbiznis/subgate/internal/observability/tracing"
	"github.com/smallbiznis/subgate/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/subgate/internal/subscription/domain"
	"github.com/smallbiznis/subgate/internal/usage"
	usagedomain "github.com/smallbiznis/subgate/internal/usage/domain"
	"github.com/smallbiznis/subgate/internal/webhook"
	webhookdomain "github.com/smallbiznis/subgate/internal/webhook/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	fx.Provide(registerGin),
	catalog.Module,
	billing.Module,
	subscription.Module,
	usage.Module,
	webhook.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	catalogSvc      catalogdomain.Service
	subscriptionSvc subscriptiondomain.Service
	usageSvc        usagedomain.Service
	webhookSvc      webhookdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	CatalogSvc      catalogdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	UsageSvc        usagedomain.Service
	WebhookSvc      webhookdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		catalogSvc:      p.CatalogSvc,
		subscriptionSvc: p.SubscriptionSvc,
		usageSvc:        p.UsageSvc,
		webhookSvc:      p.WebhookSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	r := s.engine

	r.GET("/config", s.GetConfig)

	// -------- Customers --------
	r.POST("/create-customer", s.CreateCustomer)

	// -------- Subscriptions --------
	r.POST("/create-subscription", s.CreateSubscription)
	r.POST("/retrieve-subscription-information", s.RetrieveSubscriptionInformation)
	r.POST("/retrieve-upcoming-invoice", s.RetrieveUpcomingInvoice)
	r.POST("/update-subscription", s.UpdateSubscription)
	r.POST("/cancel-subscription", s.CancelSubscription)
	r.POST("/retry-invoice", s.RetryInvoice)

	// -------- Metered billing --------
	r.POST("/create-meter", s.CreateMeter)
	r.POST("/create-price", s.CreatePrice)
	r.POST("/create-meter-event", s.CreateMeterEvent)

	// -------- Vendor webhooks --------
	r.POST("/webhook", s.HandleWebhook)
}

func (s *Server) registerFallback() {
	staticDir := s.cfg.StaticDir
	if staticDir == "" {
		return
	}

	s.engine.NoRoute(func(c *gin.Context) {
		if fileExists(staticDir, c.Request.URL.Path) {
			c.File(filepath.Join(staticDir, filepath.Clean(c.Request.URL.Path)))
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	})
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}

	fullPath := filepath.Join(publicDir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
