package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcart "github.com/ny-essien/Drop/internal/application/cart"
	appcheckout "github.com/ny-essien/Drop/internal/application/checkout"
	appnotification "github.com/ny-essien/Drop/internal/application/notification"
	apporder "github.com/ny-essien/Drop/internal/application/order"
	apppayment "github.com/ny-essien/Drop/internal/application/payment"
	"github.com/ny-essien/Drop/internal/config"
	dominv "github.com/ny-essien/Drop/internal/domain/inventory"
	"github.com/ny-essien/Drop/internal/infrastructure/id"
	"github.com/ny-essien/Drop/internal/infrastructure/memory"
	"github.com/ny-essien/Drop/internal/infrastructure/notifier"
	infraobs "github.com/ny-essien/Drop/internal/infrastructure/observability"
	"github.com/ny-essien/Drop/internal/infrastructure/observability/oteltrace"
	"github.com/ny-essien/Drop/internal/infrastructure/observability/prometrics"
	"github.com/ny-essien/Drop/internal/infrastructure/observability/zaplogger"
	"github.com/ny-essien/Drop/internal/infrastructure/outbox"
	infrapayment "github.com/ny-essien/Drop/internal/infrastructure/payment"
	"github.com/ny-essien/Drop/internal/observability"
	httppresentation "github.com/ny-essien/Drop/internal/presentation/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	defer func() {
		if s, ok := baseLogger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()

	tel := buildTelemetry(cfg.ServiceName, baseLogger)

	store := memory.NewStore()
	if err := seedCatalog(store, cfg.Catalog); err != nil {
		baseLogger.Error("catalog_seed_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}
	baseLogger.Info("catalog_seeded", observability.F("products", len(cfg.Catalog)))

	bus := outbox.NewBus(baseLogger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	idGenerator := id.NewUUIDGenerator()
	gateway := infrapayment.NewGateway(cfg.WebhookSecret, idGenerator, baseLogger)

	notificationWorker := appnotification.NewWorker(bus, notifier.NewLogNotifier(baseLogger), baseLogger)
	notificationWorker.Start()

	cartService := appcart.NewService(store.Carts(), store.Inventory(), baseLogger)
	checkoutUseCase := appcheckout.NewUseCase(store, idGenerator, bus, tel)
	orderService := apporder.NewService(store.Orders(), store, bus, baseLogger)
	reconciler := apppayment.NewReconciler(store, bus, tel)

	handler := httppresentation.NewHandler(cartService, checkoutUseCase, orderService, reconciler, gateway, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

// buildTelemetry registers the metric instruments once and assembles the
// vendor-hiding provider handed to the use cases and the HTTP layer.
func buildTelemetry(serviceName string, logger observability.Logger) observability.Observability {
	reg := prometrics.New("", "")

	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: reg.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MHTTPRequests: reg.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MExternalRequests: reg.Counter(
			string(observability.MExternalRequests),
			"Total number of calls to external collaborators.",
			"peer", "endpoint", "outcome",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: reg.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			prometheus.DefBuckets,
			"use_case",
		),
		observability.MHTTPRequestDuration: reg.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP request handling in seconds.",
			prometheus.DefBuckets,
			"method", "route",
		),
		observability.MExternalRequestDuration: reg.Histogram(
			string(observability.MExternalRequestDuration),
			"Duration of external collaborator calls in seconds.",
			prometheus.DefBuckets,
			"peer", "endpoint",
		),
	}

	return infraobs.New(oteltrace.New(serviceName), logger, counters, histograms)
}

func seedCatalog(store *memory.Store, items []config.CatalogItem) error {
	ctx := context.Background()
	for _, item := range items {
		rec, err := dominv.NewRecord(item.ProductID, item.Name, item.Category, item.UnitPrice, item.Stock)
		if err != nil {
			return err
		}
		if err := store.Inventory().Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
