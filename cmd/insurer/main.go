package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexanderramin/insurer/internal/auth"
	"github.com/alexanderramin/insurer/internal/cache"
	"github.com/alexanderramin/insurer/internal/cli"
	"github.com/alexanderramin/insurer/internal/config"
	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/payment"
	"github.com/alexanderramin/insurer/internal/repository"
	"github.com/alexanderramin/insurer/internal/service"
	"github.com/alexanderramin/insurer/internal/telemetry"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}

// verboseFlag pre-scans the arguments for --verbose so the logger exists
// before the command tree is built.
func verboseFlag(args []string) bool {
	fs := pflag.NewFlagSet("insurer", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	verbose := fs.BoolP("verbose", "v", false, "")
	_ = fs.Parse(args)
	return *verbose
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, verboseFlag(os.Args[1:]))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdown, err := telemetry.SetupTracing(ctx, "insurer", telemetry.TracingConfig{
		Endpoint: cfg.OTelEndpoint,
		Enabled:  cfg.OTelEnabled,
	})
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(flushCtx)
	}()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Repositories
	userRepo := repository.NewSQLiteUserRepo(database)
	authEventRepo := repository.NewSQLiteAuthEventRepo(database)
	planRepo := repository.NewSQLitePlanRepo(database)
	policyRepo := repository.NewSQLitePolicyRepo(database)
	couponRepo := repository.NewSQLiteCouponRepo(database)
	paymentRepo := repository.NewSQLitePaymentRepo(database)
	eventRepo := repository.NewSQLiteEventRepo(database)

	uow := db.NewSQLiteUnitOfWork(database, db.WithLogger(logger))

	// The catalog cache is shared across processes when Redis is configured.
	var catalogCache cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		r := cache.NewRedis(cfg.RedisAddr, "insurer:")
		defer r.Close()
		pingCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		if err := r.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable; catalog reads go to the database", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		catalogCache = r
	}

	resolver, err := cfg.Resolver()
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokens(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("INSURER_SESSION_SECRET: %w", err)
	}

	payCfg, err := payment.LoadConfig()
	if err != nil {
		return err
	}
	if !payCfg.Configured() {
		logger.Warn("INSURER_CHECKOUT_ACCESS_TOKEN is not set; checkout calls will be rejected")
	}
	checkout := payment.NewHTTPClient(payCfg, payment.NewLogObserver(logger))

	obs := service.NewLogUseCaseObserver(logger)

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	app := &cli.App{
		Users: service.NewUserService(userRepo, authEventRepo, uow, cfg.BcryptCost, obs),
		Plans: service.NewPlanService(planRepo, uow, service.PlanCacheConfig{
			Cache: catalogCache,
			TTL:   cfg.CatalogCacheTTL,
		}, logger, obs),
		Registration: service.NewRegistrationService(policyRepo, uow, resolver, logger, obs),
		Policies:     service.NewPolicyService(policyRepo, planRepo, paymentRepo),
		Coupons:      service.NewCouponService(couponRepo, uow, obs),
		Payments:     service.NewPaymentService(couponRepo, policyRepo, planRepo, checkout, uow, obs),
		Events:       service.NewEventService(eventRepo, policyRepo, obs),

		Auth:     auth.NewProvider(tokens, auth.NewFileTokenStore(cfg.SessionFile), userRepo),
		Resolver: resolver,

		Timeout:     cfg.RequestTimeout,
		OrphanGrace: cfg.OrphanGrace,
		Host:        host,
	}

	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
