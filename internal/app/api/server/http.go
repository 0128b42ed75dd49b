package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fstopworks/darkroom/docs"
	"github.com/fstopworks/darkroom/internal/app/api/handlers"
	"github.com/fstopworks/darkroom/internal/app/service/billing"
	"github.com/fstopworks/darkroom/internal/app/service/catalog"
	"github.com/fstopworks/darkroom/internal/app/service/credits"
	"github.com/fstopworks/darkroom/internal/app/service/identity"
	"github.com/fstopworks/darkroom/internal/app/service/redemption"
	"github.com/fstopworks/darkroom/internal/app/service/webhookqueue"
	cfgpkg "github.com/fstopworks/darkroom/pkg/config"

	mw "github.com/fstopworks/darkroom/internal/app/api/middleware"

	metrics "github.com/fstopworks/darkroom/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(
	r *gin.Engine,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	ids *identity.Service,
	rdm *redemption.Service,
	cred *credits.Service,
	cat *catalog.Service,
	bil *billing.Service,
	queue *webhookqueue.Service,
) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())

	// Redemption carries its own auth handling: every outcome is a 200 with
	// a success discriminator, so the 401-emitting middleware cannot wrap it.
	redeemGroup := apiV1.Group("/")
	redeemGroup.Use(mw.CORSMiddleware())
	handlers.RegisterRedeemRoutes(redeemGroup, ids, rdm, log)

	// Stripe webhook: raw-body signature verification, no auth middleware.
	handlers.RegisterStripeWebhookRoutes(apiV1.Group("/stripe"), bil, queue, log)

	// Storefront: public catalog reads plus bearer-authenticated account
	// routes.
	authed := apiV1.Group("/")
	authed.Use(mw.AuthMiddleware(ids))
	handlers.RegisterStorefrontRoutes(apiV1, authed, cat, cred, rdm, bil)

	// Admin console APIs
	admin := apiV1.Group("/admin")
	admin.Use(mw.AuthMiddleware(ids), mw.AdminMiddleware())
	handlers.RegisterAdminRoutes(admin, cat, cred, cfg)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
