// Command eventwired runs the TCP event listener as a standalone daemon:
// it loads an optional .env file into the environment, then a YAML
// config whose logging settings override the matching environment
// variables, starts the listener with a sample consumer that answers the
// demo "ping" event with "pong", serves Prometheus metrics and an admin
// router, and runs a cron-scheduled heartbeat log line. Wiring style follows the
// teacher's cmd/progressdb/main.go (flags + config + signal-driven
// graceful shutdown).
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adhocore/gronx"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"eventwire/pkg/conn"
	"eventwire/pkg/consumer"
	"eventwire/pkg/econfig"
	"eventwire/pkg/event"
	"eventwire/pkg/listener"
	"eventwire/pkg/logging"
	"eventwire/pkg/metrics"
	"eventwire/pkg/netaddr"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env-file", ".env", "optional .env file to load before reading config")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "eventwired: failed to load %s: %v\n", *envFile, err)
	}

	cfg, err := econfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eventwired: %v\n", err)
		os.Exit(1)
	}
	if cfg.Logging.Level != "" {
		os.Setenv("EVENTWIRE_LOG_LEVEL", cfg.Logging.Level)
	}
	if cfg.Logging.Sink != "" {
		os.Setenv("EVENTWIRE_LOG_SINK", cfg.Logging.Sink)
	}
	logging.Init()

	ctx, cancel := setupSignalHandler(context.Background())
	defer cancel()

	l, err := listener.New(listener.Config{
		RingCapacity:        cfg.Listener.RingCapacityBytes,
		StrictDecodeDefault: cfg.Listener.StrictDecodeDefault,
		AcceptRatePerSecond: cfg.Listener.AcceptRatePerSecond,
		AcceptBurst:         cfg.Listener.AcceptBurst,
		MaxQueue:            cfg.Listener.MaxQueue,
	})
	if err != nil {
		logging.Error("listener_create_failed", "error", err)
		os.Exit(1)
	}

	if err := l.SetOnConnect(func(cn *conn.Connection) {
		logging.Info("connection_opened", "remote", cn.Remote().String())
	}); err != nil {
		logging.Error("set_on_connect_failed", "error", err)
		os.Exit(1)
	}

	c := consumer.New()
	c.Bind("ping", func(cn *conn.Connection, ev event.Event) {
		logging.Debug("event_received", "name", ev.Name, "remote", cn.Remote().String())
		cn.Send(event.Event{Name: "pong"})
	})
	c.OnDisconnect(func(cn *conn.Connection) {
		logging.Info("connection_closed", "remote", cn.Remote().String())
	})
	if err := l.AddConsumer(c); err != nil {
		logging.Error("add_consumer_failed", "error", err)
		os.Exit(1)
	}

	addr := net.JoinHostPort(cfg.Listener.Address, fmt.Sprintf("%d", cfg.Listener.Port))
	resolved, err := netaddr.Resolve(addr)
	if err != nil {
		logging.Error("resolve_failed", "addr", addr, "error", err)
		os.Exit(1)
	}
	if err := l.Listen(resolved); err != nil {
		logging.Error("listen_failed", "addr", addr, "error", err)
		os.Exit(1)
	}
	if err := l.Run(); err != nil {
		logging.Error("listener_run_failed", "error", err)
		os.Exit(1)
	}
	logging.Info("listener_started", "addr", addr)

	var httpServers []*http.Server
	if cfg.Metrics.Enabled {
		httpServers = append(httpServers, startMetricsServer(cfg.Metrics.Address))
	}
	if cfg.Admin.Enabled {
		httpServers = append(httpServers, startAdminServer(cfg.Admin.Address, l))
	}
	if cfg.Stats.Enabled {
		go runStatsCron(ctx, cfg.Stats.Cron)
	}

	<-ctx.Done()
	logging.Info("shutting_down")
	l.Close()
	l.Join()
	for _, s := range httpServers {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	logging.Info("shutdown_complete")
}

func setupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		logging.Info("signal_received", "signal", s.String())
		cancel()
	}()
	return ctx, cancel
}

func startMetricsServer(addr string) *http.Server {
	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", metrics.Handler())
	s := &http.Server{Addr: addr, Handler: httpMux}
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("metrics_server_failed", "error", err)
		}
	}()
	logging.Info("metrics_server_started", "addr", addr)
	return s
}

func startAdminServer(addr string, l *listener.Listener) *http.Server {
	r := mux.NewRouter()
	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	admin.HandleFunc("/shutdown", func(w http.ResponseWriter, _ *http.Request) {
		logging.Info("admin_shutdown_requested")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"shutting down"}`))
		go l.Close()
	}).Methods(http.MethodPost)

	s := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("admin_server_failed", "error", err)
		}
	}()
	logging.Info("admin_server_started", "addr", addr)
	return s
}

// runStatsCron logs a heartbeat on the schedule described by cronExpr,
// computing each next tick with gronx the same way the teacher's
// retention scheduler does, instead of a fixed time.Ticker.
func runStatsCron(ctx context.Context, cronExpr string) {
	if cronExpr == "" {
		cronExpr = "*/1 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logging.Error("stats_cron_invalid", "cron", cronExpr)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logging.Error("stats_cron_nexttick_failed", "error", err)
			select {
			case <-time.After(econfig.StatsFallbackInterval):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			logging.Info("stats_tick", "active_connections", "see /metrics")
		case <-ctx.Done():
			return
		}
	}
}
