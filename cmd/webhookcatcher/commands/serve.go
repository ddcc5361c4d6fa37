package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/webhookcatcher/internal/capture"
	"git.home.luguber.info/inful/webhookcatcher/internal/config"
	"git.home.luguber.info/inful/webhookcatcher/internal/forward"
	"git.home.luguber.info/inful/webhookcatcher/internal/headerpolicy"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/maintenance"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
	"git.home.luguber.info/inful/webhookcatcher/internal/notify"
	"git.home.luguber.info/inful/webhookcatcher/internal/replay"
	"git.home.luguber.info/inful/webhookcatcher/internal/server/httpserver"
	"git.home.luguber.info/inful/webhookcatcher/internal/services"
	"git.home.luguber.info/inful/webhookcatcher/internal/version"
)

const shutdownTimeout = 30 * time.Second

// Managed service names.
const (
	serviceEventStore  = "eventstore"
	serviceNotifier    = "notifier"
	serviceMaintenance = "maintenance"
	serviceHTTP        = "http"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen string `short:"l" help:"Listen address (overrides LISTEN_ADDR and the config file)"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if s.Listen != "" {
		cfg.Server.ListenAddr = s.Listen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunServer(ctx, cfg)
}

// RunServer wires every component from cfg and serves until ctx is done.
func RunServer(ctx context.Context, cfg *config.Config) error {
	slog.Info("Starting webhookcatcher",
		slog.String("version", version.Version),
		slog.String("database", cfg.Storage.DatabasePath),
		slog.Bool("forwarding", cfg.Forwarding.Enabled()))

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	orchestrator := services.NewServiceOrchestrator().WithTimeouts(shutdownTimeout, shutdownTimeout)
	register := func(svc services.ManagedService) {
		if rerr := orchestrator.RegisterService(svc); rerr != nil && err == nil {
			err = rerr
		}
	}
	register(services.NewResourceService(serviceEventStore, store))

	var (
		registry *prometheus.Registry
		recorder metrics.Recorder = metrics.NoopRecorder{}
	)
	if cfg.Monitoring.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.Enabled() {
		n, nerr := notify.NewNATSNotifier(cfg.Notify.NATSURL, cfg.Notify.Subject, recorder)
		if nerr != nil {
			slog.Warn("Capture notifications disabled", logfields.Error(nerr))
		} else {
			notifier = n
		}
	}
	register(services.NewResourceService(serviceNotifier, notifier))

	httpDeps := []string{serviceEventStore, serviceNotifier}
	if cfg.Maintenance.Interval > 0 {
		scheduler, serr := maintenance.NewScheduler(store, recorder)
		if serr != nil {
			_ = store.Close()
			return serr
		}
		if serr := scheduler.Schedule(cfg.Maintenance.Interval); serr != nil {
			_ = store.Close()
			return serr
		}
		register(services.NewSchedulerService(serviceMaintenance, scheduler, serviceEventStore))
		httpDeps = append(httpDeps, serviceMaintenance)
	}

	forwarder := forward.New(forward.Options{
		URL:       cfg.Forwarding.URL,
		Token:     cfg.Forwarding.Token,
		Sensitive: headerpolicy.Sensitive(cfg.Headers.Sensitive...),
		Recorder:  recorder,
	})
	srv := httpserver.New(cfg, httpserver.Dependencies{
		Store:    store,
		Capturer: capture.NewService(store, forwarder, notifier, recorder),
		Replayer: replay.New(store, nil, recorder),
		Recorder: recorder,
		Registry: registry,
	})
	register(services.NewServerService(serviceHTTP, srv, httpDeps...))
	if err != nil {
		_ = store.Close()
		return err
	}

	if err := orchestrator.StartAll(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping services...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	return orchestrator.StopAll(stopCtx)
}
