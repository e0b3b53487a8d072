package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	authservice "waypoint/internal/auth/service"
	userStore "waypoint/internal/auth/store/user"
	"waypoint/internal/authz"
	jwttoken "waypoint/internal/jwt_token"
	locmetrics "waypoint/internal/location/metrics"
	"waypoint/internal/location/retention"
	locservice "waypoint/internal/location/service"
	locStore "waypoint/internal/location/store"
	"waypoint/internal/platform/config"
	"waypoint/internal/platform/httpserver"
	"waypoint/internal/platform/logger"
	"waypoint/internal/platform/metrics"
	"waypoint/internal/platform/middleware"
	"waypoint/internal/platform/postgres"
	"waypoint/internal/platform/redis"
	rlconfig "waypoint/internal/ratelimit/config"
	rlmetrics "waypoint/internal/ratelimit/metrics"
	rlservice "waypoint/internal/ratelimit/service"
	"waypoint/internal/ratelimit/store/bucket"
	httptransport "waypoint/internal/transport/http"
	"waypoint/pkg/platform/audit"
	"waypoint/pkg/platform/audit/publisher"
	"waypoint/pkg/platform/audit/sinks/kafka"
	"waypoint/pkg/platform/audit/sinks/logsink"
)

const (
	shutdownTimeout    = 10 * time.Second
	bucketCleanupEvery = time.Minute
	auditBufferSize    = 1024
)

// locationStore is what the location service, the sweeper and account
// deletion need from one backing store.
type locationStore interface {
	locservice.Store
	retention.Purger
	authservice.LocationPurger
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.Version)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Auth.UsesDevSecrets() {
		log.Warn("using development token secrets, set ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		users     authservice.UserStore
		locations locationStore
		checks    []func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer closeDB(db, log)
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		users = userStore.NewPostgres(db)
		locations = locStore.NewPostgres(db)
		checks = append(checks, db.PingContext)
		log.Info("using postgres stores")
	} else {
		users = userStore.New()
		locations = locStore.New()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	auditor, closeAudit, err := newAuditor(ctx, cfg, reg, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	g, gctx := errgroup.WithContext(ctx)

	var admission middleware.Admission
	if cfg.RateLimitDisabled {
		log.Warn("rate limiting disabled")
	} else {
		limits, err := rlconfig.Load(cfg.RateLimitConfigPath)
		if err != nil {
			return err
		}
		buckets, check, err := newBucketStore(ctx, cfg, g, gctx, log)
		if err != nil {
			return err
		}
		if check != nil {
			checks = append(checks, check)
		}
		limiter, err := rlservice.New(buckets,
			rlservice.WithLimits(limits),
			rlservice.WithLogger(log),
			rlservice.WithMetrics(rlmetrics.New(reg)),
			rlservice.WithAuditor(auditor),
		)
		if err != nil {
			return err
		}
		admission = limiter
	}

	tokens := jwttoken.NewJWTService(
		cfg.Auth.AccessTokenSecret,
		cfg.Auth.RefreshTokenSecret,
		cfg.Auth.Issuer,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	accounts := authservice.New(users, tokens,
		authservice.WithLogger(log),
		authservice.WithAuditor(auditor),
		authservice.WithMetrics(authservice.NewMetrics(reg)),
		authservice.WithLocationPurger(locations),
	)
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if err := accounts.SeedAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	policy := retention.NewPolicy(config.LocationRetention)
	locMetrics := locmetrics.New(reg)
	sweeper, err := retention.NewSweeper(locations, policy, cfg.Retention.PurgeInterval,
		retention.WithLogger(log),
		retention.WithMetrics(locMetrics),
		retention.WithAuditor(auditor),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Users: accounts,
		Locations: locservice.New(locations, users, policy,
			locservice.WithLogger(log),
			locservice.WithMetrics(locMetrics),
		),
		Gatekeeper:        middleware.NewGatekeeper(admission, authz.New(accounts, users), log),
		Cookies:           httptransport.CookieConfig{Secure: cfg.Auth.CookieSecure},
		Logger:            log,
		Metrics:           metrics.New(reg),
		Gatherer:          reg,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Health:            healthCheck(checks),
	})
	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error {
		log.Info("starting waypoint", "addr", cfg.Addr, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newBucketStore prefers Redis so limits hold across replicas. The in-memory
// store needs a janitor for expired windows.
func newBucketStore(ctx context.Context, cfg config.Server, g *errgroup.Group, gctx context.Context, log *slog.Logger) (rlservice.BucketStore, func(context.Context) error, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client != nil {
		log.Info("using redis rate limit store")
		g.Go(func() error {
			<-gctx.Done()
			return client.Close()
		})
		return bucket.NewRedis(client.Client), client.Health, nil
	}

	store := bucket.New()
	g.Go(func() error { return store.RunCleanup(gctx, bucketCleanupEvery) })
	return store, nil, nil
}

// newAuditor always logs audit events and additionally streams them to Kafka
// when brokers are configured.
func newAuditor(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger) (audit.Emitter, func(), error) {
	sinks := []audit.Sink{logsink.New(log)}
	var stream *kafka.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		var err error
		stream, err = kafka.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			return nil, nil, err
		}
		if err := stream.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("audit topic not ensured", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		sinks = append(sinks, stream)
	}

	pub := publisher.NewPublisher(audit.Fanout(sinks...),
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithCircuitBreaker(5, 30*time.Second),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
		publisher.WithLogger(log),
	)
	return pub, func() {
		pub.Close()
		if stream != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			stream.Close(closeCtx)
		}
	}, nil
}

func healthCheck(checks []func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Error("failed to close database", "error", err)
	}
}
