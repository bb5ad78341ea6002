package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/yourorg/sips-gateway/internal/adapter"
	"github.com/yourorg/sips-gateway/internal/adapter/sips"
	"github.com/yourorg/sips-gateway/internal/config"
	"github.com/yourorg/sips-gateway/internal/logging"
	"github.com/yourorg/sips-gateway/internal/merchant"
	"github.com/yourorg/sips-gateway/internal/monitor"
	"github.com/yourorg/sips-gateway/internal/orchestrator"
	"github.com/yourorg/sips-gateway/internal/policy"
	"github.com/yourorg/sips-gateway/internal/processor"
	"github.com/yourorg/sips-gateway/internal/protocol"
	"github.com/yourorg/sips-gateway/internal/reporting"
	"github.com/yourorg/sips-gateway/internal/requestbuilder"
	"github.com/yourorg/sips-gateway/internal/router"
	"github.com/yourorg/sips-gateway/internal/transport"
)

const serviceName = "sips-gateway"

func setupRouter(deps dependencies) *gin.Engine {
	h := &handlers{dependencies: deps}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(serviceName))
	engine.Use(requestLogger(deps.logger.Named("http")))

	engine.POST("/merchants/:merchant_id/payments", h.startPayment)
	engine.POST("/merchants/:merchant_id/notifications", h.handleNotification)
	engine.GET("/reports/retrospective", h.retrospective)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/-/live", live)
	return engine
}

// buildDependencies wires the service from configuration. factory may be nil,
// in which case SIPS clients over the configured transport are used.
func buildDependencies(cfg *config.Config, factory adapter.Factory, logger *zap.Logger) (dependencies, error) {
	if factory == nil {
		t, err := transport.New(cfg.TransportConfig())
		if err != nil {
			return dependencies{}, err
		}
		factory = func(gateway protocol.Args) adapter.GatewayAdapter {
			return sips.NewClient(t, gateway, logger)
		}
	}

	repo := merchant.NewInMemoryRepository()
	if err := repo.AddConfig(cfg.MerchantConfig()); err != nil {
		return dependencies{}, err
	}

	logger.Info("Merchants loaded", zap.Strings("merchant_ids", repo.IDs()))

	riskPolicy, err := policy.NewRiskPolicyEnforcer(policy.DefaultRules)
	if err != nil {
		return dependencies{}, err
	}
	contractMonitor, err := paymentRequestMonitor(cfg.Server.PaymentSchemaPath)
	if err != nil {
		return dependencies{}, err
	}

	journal := reporting.NewJournal(cfg.Server.JournalCapacity)
	orch := orchestrator.NewOrchestrator(
		router.NewRouter(repo, factory),
		requestbuilder.NewRequestBuilder(),
		processor.NewProcessor(logger),
		riskPolicy,
		journal,
		logger,
	)
	return dependencies{
		orchestrator: orch,
		monitor:      contractMonitor,
		journal:      journal,
		reporter:     reporting.NewRetrospectiveReporter(),
		logger:       logger,
	}, nil
}

// paymentRequestMonitor loads the schema at path, or the built-in one when
// path is empty.
func paymentRequestMonitor(path string) (*monitor.ContractMonitor, error) {
	if path == "" {
		return monitor.NewPaymentRequestMonitor()
	}
	return monitor.NewContractMonitor(path)
}

func setupTracing(enabled bool) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func main() {
	bootstrap := zap.Must(zap.NewProduction())
	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger, err := logging.New(cfg.Server.LogLevel)
	if err != nil {
		bootstrap.Fatal("Failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := setupTracing(cfg.Server.TraceStdout)
	if err != nil {
		logger.Fatal("Failed to set up tracing", zap.Error(err))
	}

	deps, err := buildDependencies(cfg, nil, logger)
	if err != nil {
		logger.Fatal("Failed to initialize service", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           setupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.Server.Addr), zap.String("transport", cfg.Transport.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down", zap.Int("tracked_transactions", deps.orchestrator.TrackedTransactions()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracer shutdown failed", zap.Error(err))
	}
}
