package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	printshop "goflare.io/printshop"
	"goflare.io/printshop/api"
	"goflare.io/printshop/cart"
	"goflare.io/printshop/catalog"
	"goflare.io/printshop/checkout"
	"goflare.io/printshop/config"
	"goflare.io/printshop/driver"
	"goflare.io/printshop/idempotency"
	"goflare.io/printshop/metrics"
	"goflare.io/printshop/payment"
	"goflare.io/printshop/printful"
	"goflare.io/printshop/reconcile"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := withSignals(context.Background())
	defer cancel()

	if err = run(ctx, cfg, logger); err != nil {
		logger.Fatal("printshop stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	// 1. 基礎設施連線
	pool, err := driver.ConnectSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err = driver.Migrate(ctx, pool); err != nil {
		return err
	}

	rdb, err := driver.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	nc, err := driver.ConnectNATS(cfg.NATSURL, logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 2. 外部服務
	if cfg.Credentials().Check() != nil {
		logger.Warn("Provider credentials are incomplete; checkout will fail until they are set")
	}
	paymentGateway := payment.NewGateway(payment.Options{
		SecretKey: cfg.StripeSecretKey,
		BaseURL:   cfg.StripeBaseURL,
	}, logger.Named("stripe"))
	printfulClient := printful.NewClient(printful.Options{
		APIKey:  cfg.PrintfulAPIKey,
		BaseURL: cfg.PrintfulBaseURL,
	}, logger.Named("printful"))

	// 3. 領域服務
	aggregator := catalog.NewAggregator(printfulClient, logger.Named("catalog"),
		catalog.WithConcurrency(cfg.CatalogConcurrency),
		catalog.WithCallTimeout(cfg.GatewayTimeout),
		catalog.WithMetrics(m))

	carts := cart.NewRepository(rdb, cfg.CartTTL, logger.Named("cart"))

	reconciler := reconcile.NewService(
		reconcile.NewRepository(pool, logger),
		driver.NewTransactionManager(pool, logger),
		reconcile.NewNATSPublisher(nc, logger),
		paymentGateway,
		logger.Named("reconcile"))

	workers := reconcile.NewWorkerPool(cfg.ReconcileWorkers, reconciler, logger.Named("reconcile"))
	defer workers.Shutdown()
	sub, err := reconcile.NewSubscriber(nc, workers, logger.Named("reconcile")).Start(ctx)
	if err != nil {
		return err
	}
	// 先排空訂閱，再關閉 worker pool
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := reconcile.Drain(drainCtx, sub); err != nil {
			logger.Warn("Notice subscription not drained", zap.Error(err))
		}
	}()

	orchestrator := checkout.NewOrchestrator(cfg.Credentials(), paymentGateway, printfulClient, logger.Named("checkout"),
		checkout.WithCartClearer(carts),
		checkout.WithReporter(reconciler),
		checkout.WithCallTimeout(cfg.GatewayTimeout),
		checkout.WithMetrics(m))

	svc := printshop.NewService(aggregator, carts, orchestrator, reconciler,
		idempotency.NewStore(rdb, cfg.IdempotencyTTL), logger)

	// 4. HTTP
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(api.NewHandler(svc, logger), m, metrics.Handler(reg), logger.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}

func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(ch)
		select {
		case <-ctx.Done():
		case <-ch:
			cancel()
		}
	}()

	return ctx, cancel
}
