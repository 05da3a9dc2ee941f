// Package server exposes the HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/tabshare/tabshare/internal/auth/domain"
	"github.com/tabshare/tabshare/internal/config"
	expensedomain "github.com/tabshare/tabshare/internal/expense/domain"
	groupdomain "github.com/tabshare/tabshare/internal/group/domain"
	obsmetrics "github.com/tabshare/tabshare/internal/observability/metrics"
	plandomain "github.com/tabshare/tabshare/internal/plan/domain"
	"github.com/tabshare/tabshare/internal/providers/pdf"
	"github.com/tabshare/tabshare/internal/ratelimit"
	subdomain "github.com/tabshare/tabshare/internal/subscription/domain"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(HTTPMetrics())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger) *gin.Engine {
	return NewEngine(cfg, log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	authSvc         authdomain.Service
	groupSvc        groupdomain.Service
	expenseSvc      expensedomain.Service
	planSvc         plandomain.Service
	subscriptionSvc subdomain.Service
	users           userdomain.Repository
	pdfProvider     *pdf.Provider
	loginLimiter    *ratelimit.TokenBucket
	metrics         *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	AuthSvc         authdomain.Service
	GroupSvc        groupdomain.Service
	ExpenseSvc      expensedomain.Service
	PlanSvc         plandomain.Service
	SubscriptionSvc subdomain.Service
	Users           userdomain.Repository
	PDFProvider     *pdf.Provider
	LoginLimiter    *ratelimit.TokenBucket `optional:"true"`
	Metrics         *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		genID:           p.GenID,
		authSvc:         p.AuthSvc,
		groupSvc:        p.GroupSvc,
		expenseSvc:      p.ExpenseSvc,
		planSvc:         p.PlanSvc,
		subscriptionSvc: p.SubscriptionSvc,
		users:           p.Users,
		pdfProvider:     p.PDFProvider,
		loginLimiter:    p.LoginLimiter,
		metrics:         p.Metrics,
	}

	s.registerAuthRoutes()
	s.registerGroupRoutes()
	s.registerBillingRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")
	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.AuthRequired(), s.Logout)

	s.engine.GET("/v1/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerGroupRoutes() {
	v1 := s.engine.Group("/v1", s.AuthRequired())

	v1.POST("/groups", s.CreateGroup)
	v1.GET("/groups", s.ListGroups)

	group := v1.Group("/groups/:group_id", s.GroupContext())
	group.GET("", s.GetGroup)
	group.GET("/members", s.ListMembers)
	group.POST("/members", s.AddMember)

	group.POST("/expenses", s.CreateExpense)
	group.POST("/expenses/preview", s.PreviewExpense)
	group.GET("/expenses", s.ListExpenses)
	group.GET("/expenses/:expense_id", s.GetExpense)
	group.GET("/expenses/:expense_id/receipt.pdf", s.ExpenseReceipt)
	group.GET("/balances", s.GroupBalances)
}

func (s *Server) registerBillingRoutes() {
	s.engine.POST("/webhooks/billing", s.BillingWebhook)

	v1 := s.engine.Group("/v1", s.AuthRequired())
	v1.GET("/plans", s.ListPlans)
	v1.POST("/plans/sync", s.SyncPlans)
	v1.GET("/me/subscription", s.MySubscription)
}
