// Package servicehost holds the bootstrap and graceful-shutdown sequence
// shared by the fabric's three service binaries (registryd, contexttoold,
// eventbusd): logger/telemetry/profiling/metrics init, then binding an
// mTLS gRPC listener and running it until a signal or the listener itself
// fails, mirroring cmd/dittofs/commands/start.go's runStart shape but
// generalized across one binary per service rather than dittofs's single
// monolithic server.
package servicehost

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/marmos91/capfabric/internal/logger"
	"github.com/marmos91/capfabric/internal/telemetry"
	"github.com/marmos91/capfabric/pkg/config"
	"github.com/marmos91/capfabric/pkg/metrics"
)

// Observability holds the shutdown hooks for the process-lifetime
// collaborators InitObservability starts.
type Observability struct {
	TelemetryShutdown func(context.Context) error
	ProfilingShutdown func() error
	MetricsShutdown   func(context.Context) error
}

// InitObservability wires the logger, OpenTelemetry tracing, Pyroscope
// profiling, and (if enabled) the Prometheus registry from cfg. serviceName
// identifies this binary to telemetry/profiling backends.
func InitObservability(ctx context.Context, cfg *config.Config, serviceName, version string) (*Observability, error) {
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("servicehost: init logger: %w", err)
	}

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("servicehost: init telemetry: %w", err)
	}

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		_ = telemetryShutdown(ctx)
		return nil, fmt.Errorf("servicehost: init profiling: %w", err)
	}

	metricsShutdown := func(context.Context) error { return nil }
	if cfg.Metrics.Enabled {
		registry := metrics.InitRegistry()
		metricsShutdown, err = serveMetrics(registry, cfg.Metrics.Port)
		if err != nil {
			_ = profilingShutdown()
			_ = telemetryShutdown(ctx)
			return nil, fmt.Errorf("servicehost: serve metrics: %w", err)
		}
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	logger.Info("observability initialized",
		"service", serviceName,
		"telemetry_enabled", telemetry.IsEnabled(),
		"profiling_enabled", telemetry.IsProfilingEnabled())

	return &Observability{
		TelemetryShutdown: telemetryShutdown,
		ProfilingShutdown: profilingShutdown,
		MetricsShutdown:   metricsShutdown,
	}, nil
}

// serveMetrics binds a /metrics HTTP endpoint to port, serving registry
// via promhttp, the way the teacher's metrics server exposes its own
// Prometheus registry for scraping.
func serveMetrics(registry *prometheus.Registry, port int) (func(context.Context) error, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen on metrics port %d: %w", port, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	return srv.Shutdown, nil
}

// Shutdown runs the observability shutdown hooks, logging but not failing
// on error, the way runStart's deferred shutdowns do.
func (o *Observability) Shutdown(ctx context.Context) {
	if err := o.MetricsShutdown(ctx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
	if err := o.ProfilingShutdown(); err != nil {
		logger.Error("profiling shutdown error", "error", err)
	}
	if err := o.TelemetryShutdown(ctx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}
}

// Serve binds listenAddr and runs grpcServer (already configured with its
// transport credentials via grpc.Creds) until a SIGINT/SIGTERM arrives or
// the listener itself fails, then calls GracefulStop bounded by
// shutdownTimeout, mirroring runStart's sigChan/serverDone select.
func Serve(grpcServer *grpc.Server, listenAddr string, shutdownTimeout time.Duration) error {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("servicehost: listen on %s: %w", listenAddr, err)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- grpcServer.Serve(lis)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server listening", "address", listenAddr)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
			logger.Info("server stopped gracefully")
		case <-time.After(shutdownTimeout):
			logger.Warn("graceful shutdown timed out, forcing stop")
			grpcServer.Stop()
		}
		return nil

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("server stopped")
		return nil
	}
}
