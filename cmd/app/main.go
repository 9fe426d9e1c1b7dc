package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"cardkey-service/internal/config"
	"cardkey-service/internal/domain/ports/repository"
	"cardkey-service/internal/infra/api"
	pg "cardkey-service/internal/infra/db/postgres"
	"cardkey-service/internal/infra/events"
	"cardkey-service/internal/infra/i18n"
	"cardkey-service/internal/infra/logging"
	"cardkey-service/internal/infra/metrics"
	red "cardkey-service/internal/infra/redis"
	"cardkey-service/internal/infra/scheduler"
	"cardkey-service/internal/infra/security"
	"cardkey-service/internal/infra/tracing"
	"cardkey-service/internal/infra/web"
	"cardkey-service/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled; card keys are logged unredacted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	shutdownTracing, err := tracing.Setup(cfg.Tracing, os.Stdout)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis (optional) ----
	var (
		redisClient *red.Client
		limiter     api.Limiter
		locker      scheduler.Locker
	)
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; settings cache, verify rate limit and job lock disabled")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	cardRepo := pg.NewCardRepo(pool)
	adminRepo := pg.NewAdminRepo(pool)
	apiKeyRepo := pg.NewAPIKeyRepo(pool)
	var settingRepo repository.SettingRepository = pg.NewSettingRepo(pool)
	if redisClient != nil {
		settingRepo = pg.NewSettingRepoCacheDecorator(settingRepo, redisClient, cfg.Redis.TTL)
	}

	// ---- Events ----
	publisher, err := events.NewPublisher(cfg.Events, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("events")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("close event publisher")
		}
	}()

	// ---- Use cases ----
	codec := security.NewKeyCodec(cfg.Security.CardSalt)
	verifyUC := usecase.NewVerifyUseCase(cardRepo, codec, publisher, cfg.Verify.StoreTimeout, logger,
		usecase.WithDevLogging(cfg.Runtime.Dev))
	cardUC := usecase.NewCardUseCase(cardRepo, tm, codec, logger)
	apiKeyUC := usecase.NewAPIKeyUseCase(apiKeyRepo, logger)
	settingUC := usecase.NewSettingUseCase(settingRepo, tm, logger)
	statsUC := usecase.NewStatsUseCase(cardRepo, apiKeyRepo, logger)
	authUC := usecase.NewAuthUseCase(adminRepo, security.NewPasswordHasher(cfg.Auth.BcryptCost), logger)

	if cfg.Auth.AdminPassword != "" {
		created, err := authUC.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("bootstrap admin")
		}
		if created {
			logger.Info().Str("username", cfg.Auth.AdminUsername).Msg("bootstrap admin created")
		}
	}

	// ---- HTTP ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Verify.Locale)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	gateway := api.NewGateway(settingUC, apiKeyUC, limiter, cfg.Verify.RateLimitPerMinute, tr, logger)
	apiSrv := api.NewServer(verifyUC, apiKeyUC, gateway, tr, logger)
	webSrv := web.NewServer(
		web.NewAuthManager(cfg.Auth.JWTSecret, !cfg.Runtime.Dev, cfg.Auth.TokenTTL),
		authUC, cardUC, apiKeyUC, settingUC, statsUC,
		cfg.Auth.LoginPerMin,
		logger,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(cfg.Server, logger, tr.T(i18n.MsgSystemError), apiSrv, webSrv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ---- Background jobs ----
	stats := scheduler.NewStatsSnapshot(statsUC, func() (int32, int32, int32) {
		s := pool.Stat()
		return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
	})
	sched := scheduler.NewScheduler(cfg.Scheduler.StatsInterval, stats, locker, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sched.Start(gctx)
		<-gctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("service stopped with error")
		return
	}
	logger.Info().Msg("service stopped")
}
