// Package daemon supervises the remindersd process: configuration, signal
// handling, the optional metrics/health listener, and orderly shutdown of
// the protocol core.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskwire/remindersd/pkg/logging"
	"github.com/taskwire/remindersd/pkg/observability"
	"github.com/taskwire/remindersd/pkg/provider/localstore"
	"github.com/taskwire/remindersd/pkg/server"
	"github.com/taskwire/remindersd/pkg/transport"
)

// Process exit codes
const (
	// ExitOK means a clean shutdown after a stop signal or input EOF
	ExitOK = 0
	// ExitRuntimeError means the serve loop failed after a successful start
	ExitRuntimeError = 1
	// ExitFatalStartup means the daemon never became operational
	ExitFatalStartup = 2
)

// Daemon wires the configured components together and runs them
type Daemon struct {
	cfg    *Config
	logger logging.Logger

	startedAt time.Time
	srv       *server.Server
}

// New creates a daemon from a validated config
func New(cfg *Config) *Daemon {
	return &Daemon{
		cfg:    cfg,
		logger: cfg.BuildLogger(),
	}
}

// healthStatus is the /healthz payload
type healthStatus struct {
	Status        string `json:"status"`
	Phase         string `json:"phase"`
	Authorization string `json:"authorization"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// Run starts the daemon and blocks until shutdown. The returned value is
// the process exit code.
func (d *Daemon) Run(ctx context.Context) int {
	d.startedAt = time.Now()

	log := d.logger.WithFields(logging.String("component", "daemon"))
	log.Info("starting", logging.String("store", d.cfg.Store.Path))

	store, err := localstore.Open(d.cfg.Store.Path, localstore.WithLogger(d.logger))
	if err != nil {
		log.WithError(err).Error("opening store")
		return ExitFatalStartup
	}
	defer store.Close()

	var metrics *observability.Metrics
	var serverOpts []server.Option
	serverOpts = append(serverOpts,
		server.WithLogger(d.logger),
		server.WithServerInfo(d.cfg.Server.Name, d.cfg.Server.Version))

	if d.cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
		serverOpts = append(serverOpts, server.WithMetrics(metrics))
	}

	var tracing *observability.TracingProvider
	if d.cfg.Tracing.Enabled {
		tracing, err = observability.NewTracingProvider(observability.TracingConfig{
			ServiceName:    d.cfg.Server.Name,
			ServiceVersion: d.cfg.Server.Version,
			Environment:    d.cfg.Tracing.Environment,
			ExporterType:   observability.ExporterType(d.cfg.Tracing.Exporter),
			Endpoint:       d.cfg.Tracing.Endpoint,
			Insecure:       d.cfg.Tracing.Insecure,
			SampleRate:     d.cfg.Tracing.SampleRate,
		})
		if err != nil {
			log.WithError(err).Error("initializing tracing")
			return ExitFatalStartup
		}
		serverOpts = append(serverOpts, server.WithTracer(tracing.Tracer()))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("tracing shutdown")
			}
		}()
	}

	var transportOpts []transport.StdioOption
	transportOpts = append(transportOpts, transport.WithLogger(d.logger))
	if d.cfg.Server.MaxFrameSize > 0 {
		transportOpts = append(transportOpts, transport.WithMaxFrameSize(d.cfg.Server.MaxFrameSize))
	}
	stdio := transport.NewStdioTransport(nil, nil, transportOpts...)

	srv, err := server.New(stdio, store, serverOpts...)
	if err != nil {
		log.WithError(err).Error("building server")
		return ExitFatalStartup
	}
	d.srv = srv

	var httpSrv *http.Server
	if d.cfg.Metrics.Enabled {
		httpSrv = d.startSidecar(metrics)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("sidecar shutdown")
			}
		}()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if metrics != nil {
		go d.trackSessionPhase(runCtx, metrics)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(runCtx)
	}()

	// First signal triggers graceful drain; a second one forces exit
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("signal received", logging.String("signal", sig.String()))

		go func() {
			second := <-sigCh
			log.Warn("second signal, exiting immediately",
				logging.String("signal", second.String()))
			os.Exit(ExitRuntimeError)
		}()

		return d.shutdown(log, serveErr)

	case err := <-serveErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("serve loop failed")
			d.stopServer(log)
			return ExitRuntimeError
		}
		// Input stream ended; the client went away
		log.Info("input stream closed")
		d.stopServer(log)
		return ExitOK

	case <-ctx.Done():
		return d.shutdown(log, serveErr)
	}
}

// shutdown drains in-flight requests within the grace period and waits for
// the serve loop to unwind.
func (d *Daemon) shutdown(log logging.Logger, serveErr <-chan error) int {
	d.stopServer(log)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("serve loop ended with error during shutdown")
		}
	case <-time.After(d.cfg.Server.GracePeriod.Std() + time.Second):
		log.Warn("serve loop did not unwind in time")
	}

	log.Info("stopped", logging.Duration("uptime", time.Since(d.startedAt)))
	return ExitOK
}

func (d *Daemon) stopServer(log logging.Logger) {
	stopCtx, cancel := context.WithTimeout(context.Background(),
		d.cfg.Server.GracePeriod.Std()+time.Second)
	defer cancel()

	if err := d.srv.Stop(stopCtx, d.cfg.Server.GracePeriod.Std()); err != nil {
		log.WithError(err).Warn("stopping server")
	}
}

// trackSessionPhase mirrors the session phase into the metrics gauge
func (d *Daemon) trackSessionPhase(ctx context.Context, metrics *observability.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		metrics.SetSessionPhase(d.srv.Session().Phase.String())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// startSidecar serves /metrics and /healthz on the configured address.
// Failures here are logged but never take the protocol stream down.
func (d *Daemon) startSidecar(metrics *observability.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(d.cfg.Metrics.Path, metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snap := d.srv.Session()
		status := healthStatus{
			Status:        "ok",
			Phase:         snap.Phase.String(),
			Authorization: snap.Authorization.String(),
			UptimeSeconds: int64(time.Since(d.startedAt).Seconds()),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	})

	httpSrv := &http.Server{
		Addr:              d.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.WithError(err).Warn("metrics listener failed")
		}
	}()

	d.logger.Info("metrics listener started",
		logging.String("addr", d.cfg.Metrics.Addr),
		logging.String("path", d.cfg.Metrics.Path))

	return httpSrv
}
