// Package server provides the shared service lifecycle runner.
// cmd/timetuner delegates to server.Run for signal handling, config
// loading, observability init, health checks, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/aelexs/timetuner/internal/config"
	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/errmap"
	"github.com/aelexs/timetuner/internal/observability"
)

// Version is reported in telemetry resource attributes.
const Version = "0.1.0"

// SetupDeps is handed to a service's Setup hook.
type SetupDeps struct {
	Config     *config.Config
	Logger     *slog.Logger
	GRPCServer *grpc.Server
	HTTPMux    *http.ServeMux

	// Go registers a background runner. Runners start after Setup returns
	// and must return when their context is canceled. A runner error stops
	// the whole service.
	Go func(name string, fn func(ctx context.Context) error)
}

// SetupFunc wires a service. The returned cleanup runs after the servers
// have drained.
type SetupFunc func(ctx context.Context, deps SetupDeps) (cleanup func(context.Context) error, err error)

// Params configures a service's lifecycle runner.
type Params struct {
	// Name identifies the service (e.g. "timetuner").
	Name string

	// Setup is optional.
	Setup SetupFunc

	// DrainDelay overrides domain.ShutdownDrainDelay when positive.
	DrainDelay time.Duration
}

// Listeners lets callers inject pre-bound listeners (enables port-0
// testing). Nil fields are bound from config.
type Listeners struct {
	HTTP net.Listener
	GRPC net.Listener
}

func (l Listeners) close() {
	if l.HTTP != nil {
		_ = l.HTTP.Close()
	}
	if l.GRPC != nil {
		_ = l.GRPC.Close()
	}
}

type runner struct {
	name string
	fn   func(ctx context.Context) error
}

// Run executes the full service lifecycle: signal handling, config loading,
// observability initialization, HTTP and gRPC servers with health checks,
// the service's Setup hook and background runners, and graceful shutdown.
func Run(ctx context.Context, p Params, ln Listeners) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logging with secret redaction
	svc := observability.Service{Name: p.Name, Version: Version, Environment: cfg.Environment}
	if cfg.OTEL.ServiceName != "" {
		svc.Name = cfg.OTEL.ServiceName
	}
	exporter := observability.Exporter{Endpoint: cfg.OTEL.Endpoint, Insecure: cfg.OTEL.Insecure}
	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: svc,
	})

	// --- Startup order: tracer -> metrics -> setup -> servers ---

	tracerProvider, err := observability.InitTracer(ctx, observability.TracerConfig{
		Service:     svc,
		Exporter:    exporter,
		SampleRatio: cfg.OTEL.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}

	metricsProvider, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		Service:  svc,
		Exporter: exporter,
		Interval: cfg.OTEL.MetricsInterval,
	})
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	// Health check shutdown coordination via atomic flag.
	var shuttingDown atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"shutting_down","service":%q}`, p.Name)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":%q}`, p.Name)
	})

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(errmap.UnaryServerInterceptor()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	var runners []runner
	cleanup := func(context.Context) error { return nil }
	if p.Setup != nil {
		fn, setupErr := p.Setup(ctx, SetupDeps{
			Config:     cfg,
			Logger:     logger,
			GRPCServer: grpcServer,
			HTTPMux:    mux,
			Go: func(name string, fn func(ctx context.Context) error) {
				runners = append(runners, runner{name: name, fn: fn})
			},
		})
		if setupErr != nil {
			ln.close()
			return fmt.Errorf("%s setup: %w", p.Name, setupErr)
		}
		if fn != nil {
			cleanup = fn
		}
	}

	// Bind listeners (use injected listeners or create from config).
	if ln.HTTP == nil {
		ln.HTTP, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", cfg.HTTPPort))
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
	}
	if ln.GRPC == nil {
		ln.GRPC, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
		if err != nil {
			_ = ln.HTTP.Close()
			return fmt.Errorf("listen grpc: %w", err)
		}
	}

	httpServer := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	drainDelay := domain.ShutdownDrainDelay
	if p.DrainDelay > 0 {
		drainDelay = p.DrainDelay
	}

	// --- Structured concurrency via errgroup ---
	g, gctx := errgroup.WithContext(ctx)

	// Background runners stop on shutdown, before the servers drain.
	runCtx, cancelRunners := context.WithCancel(gctx)
	defer cancelRunners()
	for _, r := range runners {
		g.Go(func() error {
			logger.Info("starting runner", slog.String("runner", r.name))
			if runErr := r.fn(runCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("runner %s: %w", r.name, runErr)
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("addr", ln.HTTP.Addr().String()),
			slog.String("environment", cfg.Environment),
		)
		if serveErr := httpServer.Serve(ln.HTTP); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("starting gRPC server", slog.String("addr", ln.GRPC.Addr().String()))
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus(p.Name, healthpb.HealthCheckResponse_SERVING)
		if serveErr := grpcServer.Serve(ln.GRPC); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return serveErr
		}
		return nil
	})

	// Shutdown trigger: waits for cancellation, then drains in reverse
	// startup order: health -> runners -> HTTP/gRPC -> cleanup -> metrics -> tracer.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("received shutdown signal, starting graceful shutdown")

		// 1. Mark shutting down: health checks report unavailable
		shuttingDown.Store(true)
		healthServer.Shutdown()

		// 2. Stop background runners so no new ticks mutate zones
		cancelRunners()

		// 3. Drain delay: let load balancers see the health change
		time.Sleep(drainDelay)

		// 4. Drain servers
		httpCtx, httpCancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
		defer httpCancel()
		if shutdownErr := httpServer.Shutdown(httpCtx); shutdownErr != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", shutdownErr.Error()))
		}
		stopGRPC(httpCtx, grpcServer)

		// 5. Service cleanup (close clients)
		if cleanupErr := cleanup(httpCtx); cleanupErr != nil {
			logger.Error("cleanup error", slog.String("error", cleanupErr.Error()))
		}

		// 6. Flush OTEL (reverse: metrics first, then tracer)
		otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer otelCancel()
		if shutdownErr := metricsProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown metrics", slog.String("error", shutdownErr.Error()))
		}
		if shutdownErr := tracerProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", shutdownErr.Error()))
		}

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}

// stopGRPC drains in-flight RPCs, forcing a stop if ctx expires first.
func stopGRPC(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
		<-done
	}
}
