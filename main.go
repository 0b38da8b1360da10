package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/openstudio/payflow/internal/application/configadmin"
	"github.com/openstudio/payflow/internal/application/dispatch"
	"github.com/openstudio/payflow/internal/application/eligibility"
	"github.com/openstudio/payflow/internal/config"
	domainorder "github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/infrastructure/httpapi"
	"github.com/openstudio/payflow/internal/infrastructure/memory"
	"github.com/openstudio/payflow/internal/infrastructure/observability/oteltrace"
	"github.com/openstudio/payflow/internal/infrastructure/observability/prometrics"
	"github.com/openstudio/payflow/internal/infrastructure/observability/telemetry"
	"github.com/openstudio/payflow/internal/infrastructure/observability/zaplogger"
	"github.com/openstudio/payflow/internal/infrastructure/paypal"
	"github.com/openstudio/payflow/internal/infrastructure/rabbitmq"
	"github.com/openstudio/payflow/internal/infrastructure/sqlite"
	"github.com/openstudio/payflow/internal/observability"
)

func main() {
	_ = godotenv.Load()

	serviceName := getenvDefault("SERVICE_NAME", "payflow")
	env := getenvDefault("ENV", "dev")

	logger := zaplogger.New(
		observability.F("service", serviceName),
		observability.F("env", env),
	)
	tel := telemetry.New(oteltrace.New(serviceName), logger, prometrics.New("payflow"))
	systemLogger := tel.Logger().With(observability.F("component", "main"))

	ctx := context.Background()

	db, err := sqlite.Open(getenvDefault("PAYFLOW_SQLITE_PATH", "./data/payflow.db"))
	if err != nil {
		systemLogger.Error("sqlite_open_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := sqlite.Bootstrap(ctx, db); err != nil {
		systemLogger.Error("sqlite_bootstrap_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}

	cfgStore := sqlite.NewConfigStore(db)
	if err := config.EnsureDefaults(ctx, cfgStore); err != nil {
		systemLogger.Error("config_seed_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}

	orders := sqlite.NewOrderRepository(db)
	cartRefs := sqlite.NewCartRefRepository(db)
	plans := sqlite.NewPlanRepository(db)
	outcomes := sqlite.NewOutcomeStore(db)
	auditSink := sqlite.NewAuditSink(db)

	var notifier domainorder.StatusNotifier
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		rmq, err := rabbitmq.NewStatusNotifier(url, getenvDefault("EVENTS_EXCHANGE", "shop.events"), tel.Logger())
		if err != nil {
			systemLogger.Error("rabbitmq_connect_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		defer rmq.Close()
		notifier = rmq
	} else {
		systemLogger.Warn("rabbitmq_not_configured", observability.F("fallback", "in_memory_recorder"))
		notifier = memory.NewStatusRecorder()
	}

	storefrontURL := getenvDefault("STOREFRONT_BASE_URL", "http://localhost:3000")
	client := paypal.NewClient(paypal.Config{
		Store:     cfgStore,
		ReturnURL: storefrontURL + "/checkout/return",
		CancelURL: storefrontURL + "/checkout/cancel",
	}, tel)

	dispatcher := dispatch.New(dispatch.Deps{
		Orders:   orders,
		CartRefs: cartRefs,
		Plans:    plans,
		Client:   client,
		Outcomes: outcomes,
		Audit:    auditSink,
		Notifier: notifier,
		Tx:       sqlite.NewRunner(db),
		PlacedURL: func(o *domainorder.Order) string {
			return storefrontURL + "/order/placed/" + o.ID
		},
	}, tel)
	checker := eligibility.NewChecker(cfgStore, orders, tel)
	admin := configadmin.New(cfgStore, auditSink, tel)

	handler := httpapi.NewHandler(dispatcher, checker, admin, auditSink)
	api := httpapi.ObservabilityMiddleware(tel)(handler.Router())
	api = cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}).Handler(api)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api)

	server := &http.Server{
		Addr:    getenvDefault("LISTEN_ADDR", ":8080"),
		Handler: mux,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLogger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-runCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
