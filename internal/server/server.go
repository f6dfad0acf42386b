package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/botsense/internal/classifier"
	"github.com/smallbiznis/botsense/internal/config"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
	"github.com/smallbiznis/botsense/internal/liveevents"
	"github.com/smallbiznis/botsense/internal/observability"
	obslogger "github.com/smallbiznis/botsense/internal/observability/logger"
	obstracing "github.com/smallbiznis/botsense/internal/observability/tracing"
	"github.com/smallbiznis/botsense/internal/ratelimit"
	tenantdomain "github.com/smallbiznis/botsense/internal/tenant/domain"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{Debug: obsCfg.Debug()}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	tenantSvc     tenantdomain.Service
	credentialSvc credentialdomain.Service
	verifySvc     verificationdomain.Service
	classifier    *classifier.Adapter
	limiter       *ratelimit.TenantLimiter
	liveEvents    *liveevents.Hub
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	TenantSvc     tenantdomain.Service
	CredentialSvc credentialdomain.Service
	VerifySvc     verificationdomain.Service
	Classifier    *classifier.Adapter
	Limiter       *ratelimit.TenantLimiter
	LiveEvents    *liveevents.Hub `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		tenantSvc:     p.TenantSvc,
		credentialSvc: p.CredentialSvc,
		verifySvc:     p.VerifySvc,
		classifier:    p.Classifier,
		limiter:       p.Limiter,
		liveEvents:    p.LiveEvents,
	}
}

func registerRoutes(s *Server) {
	r := s.engine

	r.GET("/healthz", s.Health)
	r.POST("/verify", s.Verify)
	r.POST("/script/activate", s.ActivateScript)

	dashboard := r.Group("/dashboard")
	dashboard.GET("/events/:tenantID", s.StreamVerificationEvents)

	admin := r.Group("/admin", s.AdminRequired())
	admin.POST("/tenants", s.CreateTenant)
	admin.POST("/tenants/:id/credentials", s.IssueCredential)
	admin.DELETE("/tenants/:id/credentials", s.RevokeCredential)
	admin.GET("/tenants/:id/credentials", s.GetCredential)
	admin.GET("/tenants/:id/verifications", s.ListVerifications)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
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

func (s *Server) Health(c *gin.Context) {
	status := "ok"
	if s.classifier.Degraded() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"classifier": !s.classifier.Degraded(),
	})
}
