package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/crewbook/portal/internal/adapter/apollo"
	cacheadapter "github.com/crewbook/portal/internal/adapter/cache"
	"github.com/crewbook/portal/internal/config"
	"github.com/crewbook/portal/internal/database"
	httptransport "github.com/crewbook/portal/internal/http"
	"github.com/crewbook/portal/internal/http/handler"
	"github.com/crewbook/portal/internal/http/middleware"
	"github.com/crewbook/portal/internal/identity"
	"github.com/crewbook/portal/internal/metrics"
	"github.com/crewbook/portal/internal/repository"
	"github.com/crewbook/portal/internal/server"
	"github.com/crewbook/portal/internal/service"
	"github.com/crewbook/portal/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newUserRepository,
			newCompanyRepository,
			newKeySource,
			newVerifier,
			newApolloClient,
			newEnrichmentCache,
			newRegistry,
			newRecorder,
			newUserService,
			newCompanyService,
			handler.NewUserHandler,
			handler.NewCompanyHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, runMigrations, startHTTPServer),
	)

	app.Run()
}

func newConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newCompanyRepository(pool *pgxpool.Pool) repository.CompanyRepository {
	return repository.NewPostgresCompanyRepo(pool)
}

func newKeySource() identity.KeySource {
	return identity.NewGoogleKeySource(nil)
}

func newVerifier(cfg *config.Config, keys identity.KeySource) identity.Verifier {
	return identity.NewFirebaseVerifier(cfg.FirebaseProjectID, keys)
}

func newApolloClient(cfg *config.Config) apollo.Client {
	return apollo.NewHTTPClient(nil, cfg.ApolloBaseURL, cfg.ApolloAPIKey, cfg.ApolloRequestsPerMinute)
}

// newEnrichmentCache returns a nil cache when Redis is not configured; the
// company service treats that as cache-disabled.
func newEnrichmentCache(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (repository.EnrichmentCache, error) {
	if !cfg.EnrichmentCacheEnabled() {
		logger.Info("enrichment cache disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return cacheadapter.NewRedisEnrichmentCache(client), nil
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func newRecorder(registry *prometheus.Registry) metrics.Recorder {
	return metrics.NewCollector(registry)
}

func newUserService(users repository.UserRepository, companies repository.CompanyRepository, node *snowflake.Node, logger *zap.Logger) *service.UserService {
	return service.NewUserService(users, companies, node, logger)
}

func newCompanyService(
	companies repository.CompanyRepository,
	provider apollo.Client,
	cache repository.EnrichmentCache,
	cfg *config.Config,
	node *snowflake.Node,
	recorder metrics.Recorder,
	logger *zap.Logger,
) *service.CompanyService {
	return service.NewCompanyService(companies, provider, cache, cfg.EnrichmentCacheTTL, node, recorder, logger)
}

func newAuthMiddleware(verifier identity.Verifier) *middleware.Auth {
	return &middleware.Auth{Verifier: verifier}
}

func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")
	return nil
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg *config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			logger.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
