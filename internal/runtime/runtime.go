// Package runtime bootstraps process-wide telemetry and hosts the
// metrics endpoint for the lifetime of a synthesis run.
package runtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/quillcast/quillcast/internal/config"
)

// Telemetry owns the tracer and meter providers plus the HTTP server
// that exposes Prometheus metrics while a run is in progress.
type Telemetry struct {
	logger     *slog.Logger
	tracer     *sdktrace.TracerProvider
	meter      *sdkmetric.MeterProvider
	httpServer *http.Server
	wg         sync.WaitGroup
}

// Setup installs the global OpenTelemetry providers and, when a
// Prometheus bind address is configured, starts serving /metrics and
// /healthz in the background. Callers must Shutdown when the run ends.
func Setup(cfg config.Config, logger *slog.Logger) (*Telemetry, error) {
	res, err := newResource(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	tracer, err := newTraceProvider(context.Background(), cfg.Telemetry, res, logger)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tracer)

	meter, metricHandler := newMeterProvider(res, logger)
	otel.SetMeterProvider(meter)

	t := &Telemetry{logger: logger, tracer: tracer, meter: meter}

	bind := cfg.Telemetry.PrometheusBind
	if bind == "" || metricHandler == nil {
		return t, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	t.httpServer = &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
	logger.Info("metrics endpoint started", slog.String("addr", bind))
	return t, nil
}

// Shutdown stops the metrics server and flushes buffered spans and
// metric readings before the process exits.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if t.httpServer != nil {
		if err := t.httpServer.Shutdown(shutdownCtx); err != nil {
			t.logger.Error("metrics server shutdown error", slog.String("error", err.Error()))
		}
		t.wg.Wait()
	}
	var errs []error
	if t.meter != nil {
		if err := t.meter.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if t.tracer != nil {
		if err := t.tracer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
