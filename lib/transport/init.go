package transport

import (
	"fmt"
	"log"
	"strconv"
	"time"

	cache "github.com/SporkHubr/echo-http-cache"
	"github.com/SporkHubr/echo-http-cache/adapter/memory"
	"github.com/getbuildcamp/billinghub/lib"
	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/ziflex/lecho/v3"
	"golang.org/x/time/rate"
)

// InitEcho builds the API server with the middleware every route shares:
// panic recovery, request ids, a body cap, a process-wide rate limit and
// optional Sentry capture. Auth, per-tenant rate limits and caching are
// attached per route group in RegisterEndpoints.
func InitEcho(c *service.Config, logger *lecho.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.HTTPErrorHandler = responses.HTTPErrorHandler
	e.Validator = &lib.CustomValidator{Validator: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	// invoice payloads carry line items, never attachments
	e.Use(middleware.BodyLimit("100K"))
	e.Use(middleware.CORS())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(c.DefaultRateLimit))))

	if c.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{}))
	}
	return e
}

func CreateLoggingMiddleware(logger *lecho.Logger) echo.MiddlewareFunc {
	return lecho.Middleware(lecho.Config{
		Logger: logger,
		Enricher: func(c echo.Context, logger zerolog.Context) zerolog.Context {
			return logger.
				Interface("UserID", c.Get("UserID")).
				Interface("OrgID", c.Get("OrgID"))
		},
	})
}

// CreateRateLimitMiddleware throttles the expensive write endpoints.
// Authenticated traffic is bucketed per tenant org; anonymous callers
// (webhooks, payment links) share their IP's bucket.
func CreateRateLimitMiddleware(requestsPerSecond int, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(requestsPerSecond), Burst: burst},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if orgId, ok := c.Get("OrgID").(int64); ok {
				return "org:" + strconv.FormatInt(orgId, 10), nil
			}
			return c.RealIP(), nil
		},
	})
}

// CreateCacheClient caches the read-only info endpoint. Invoice and
// payment reads are never cached, their responses change with every
// reconciled event.
func CreateCacheClient() *cache.Client {
	adapter, err := memory.NewAdapter(
		memory.AdapterWithAlgorithm(memory.LRU),
		memory.AdapterWithCapacity(1000),
	)
	if err != nil {
		log.Fatalf("Error creating cache adapter: %v", err)
	}

	cacheClient, err := cache.NewClient(
		cache.ClientWithAdapter(adapter),
		cache.ClientWithTTL(5*time.Minute),
		cache.ClientWithRefreshKey("refresh"),
	)
	if err != nil {
		log.Fatalf("Error creating cache client: %v", err)
	}
	return cacheClient
}

// StartPrometheusEcho serves metrics on a separate listener so the scrape
// endpoint never shares a port with tenant traffic.
func StartPrometheusEcho(logger *lecho.Logger, svc *service.BillingService, e *echo.Echo) {
	prom := prometheus.NewPrometheus("billinghub", nil)
	e.Use(prom.HandlerFunc)

	metricsServer := echo.New()
	metricsServer.HideBanner = true
	metricsServer.Logger = logger
	prom.SetMetricsPath(metricsServer)

	metricsServer.Logger.Infof("Starting prometheus on port %d", svc.Config.PrometheusPort)
	metricsServer.Logger.Fatal(metricsServer.Start(fmt.Sprintf(":%d", svc.Config.PrometheusPort)))
}
