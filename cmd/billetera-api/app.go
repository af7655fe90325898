package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"

	billetera "github.com/billetera/billetera-api"
	"github.com/billetera/billetera-api/api"
	"github.com/billetera/billetera-api/config"
	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/internal/gotrue"
	"github.com/billetera/billetera-api/internal/postgrest"
	"github.com/billetera/billetera-api/jwks"
	"github.com/billetera/billetera-api/service"
	"github.com/billetera/billetera-api/validator"
)

// refreshBudgetWindow is the window JWKS_FORCED_REFRESH_BUDGET applies to.
const refreshBudgetWindow = time.Minute

// app is the wired process.
type app struct {
	handler http.Handler
	closers []io.Closer
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// httpClient returns the client shared by the auth and rest clients. Outgoing
// calls carry the trace context of the request that caused them.
func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Timeout:   cfg.RequestTimeout(),
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func newAuthClient(cfg *config.Config) (*gotrue.Client, error) {
	return gotrue.New(cfg.BaseURL(), cfg.SupabaseAnonKey.Reveal(),
		gotrue.WithHTTPClient(httpClient(cfg)),
		gotrue.WithServiceRoleKey(cfg.SupabaseServiceRoleKey.Reveal()),
	)
}

// refreshLimiter throttles forced key set refreshes locally and, when Redis
// is configured, across the fleet.
func refreshLimiter(cfg *config.Config, logger billetera.Logger) (jwks.RefreshLimiter, io.Closer, error) {
	local := jwks.NewIntervalLimiter(cfg.ForcedRefreshInterval)
	if cfg.RedisURL == "" {
		return local, nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	shared := jwks.NewRedisLimiter(client, cfg.ForcedRefreshBudget, refreshBudgetWindow,
		jwks.WithLimiterLogger(logger))

	logger.Info("shared refresh budget enabled", "budget", cfg.ForcedRefreshBudget, "window", refreshBudgetWindow.String())
	return jwks.ChainLimiter{local, shared}, client, nil
}

func newApp(cfg *config.Config, logger billetera.Logger) (*app, error) {
	a := &app{}

	var metrics billetera.Metrics = billetera.NoopMetrics{}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		m := billetera.NewPrometheusMetrics()
		metrics, metricsHandler = m, m.Handler()
	}

	auth, err := newAuthClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("auth client: %w", err)
	}

	limiter, closer, err := refreshLimiter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	keys, err := jwks.NewCache(jwks.FetcherFunc(auth.FetchKeySet),
		jwks.WithCacheTTL(cfg.JWKSCacheTTL()),
		jwks.WithRefreshLimiter(limiter),
		jwks.WithLogger(logger),
		jwks.WithRefreshHook(metrics.ObserveKeyRefresh),
	)
	if err != nil {
		return nil, fmt.Errorf("key cache: %w", err)
	}

	tokens, err := validator.New(keys,
		validator.WithIssuer(cfg.Issuer()),
		validator.WithAudience(cfg.JWTAudience),
	)
	if err != nil {
		return nil, fmt.Errorf("token validator: %w", err)
	}

	authenticator, err := core.New(
		core.WithValidator(tokens),
		core.WithIdentityProvider(auth),
		core.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("authenticator: %w", err)
	}

	middleware, err := billetera.New(
		billetera.WithAuthenticator(authenticator),
		billetera.WithLogger(logger),
		billetera.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("middleware: %w", err)
	}

	rest, err := postgrest.New(cfg.BaseURL(), cfg.SupabaseAnonKey.Reveal(),
		postgrest.WithHTTPClient(httpClient(cfg)))
	if err != nil {
		return nil, fmt.Errorf("rest client: %w", err)
	}

	router, err := api.NewRouter(api.Dependencies{
		Services: api.Services{
			Auth:         service.NewAuthService(auth),
			Profiles:     service.NewProfileService(rest),
			CashWallets:  service.NewCashWalletService(rest),
			BankAccounts: service.NewBankAccountService(rest),
			CreditCards:  service.NewCreditCardService(rest),
			Categories:   service.NewCategoryService(rest),
			Transactions: service.NewTransactionService(rest),
		},
		Middleware:     middleware,
		Logger:         logger,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		Prefix:         cfg.APIPrefix,
		Version:        cfg.AppVersion,
	})
	if err != nil {
		return nil, err
	}

	a.handler = router
	return a, nil
}

// setupTracing installs an OTLP/HTTP exporter when tracing is enabled. The
// exporter reads its endpoint from the standard OTEL_EXPORTER_OTLP_* variables.
func setupTracing(ctx context.Context, cfg *config.Config) (billetera.ShutdownFunc, error) {
	if !cfg.TracingEnabled {
		return billetera.NoopShutdown, nil
	}
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	tp := billetera.NewTracerProvider(api.ServiceName, cfg.AppVersion, exporter)
	return tp.Shutdown, nil
}
