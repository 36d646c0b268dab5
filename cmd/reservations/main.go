package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/spf13/pflag"

	"github.com/example/room-reservations/internal/adapter"
	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/config"
	httptransport "github.com/example/room-reservations/internal/http"
	"github.com/example/room-reservations/internal/logging"
	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/persistence/memory"
	"github.com/example/room-reservations/internal/persistence/sqlstore"
)

const serviceName = "room-reservations"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flags holds the command line overrides.
type flags struct {
	configFile string
	envFile    string
	port       int
}

func parseFlags(args []string) (flags, error) {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	var f flags
	fs.StringVar(&f.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&f.envFile, "env-file", "", "dotenv file loaded before reading the environment")
	fs.IntVarP(&f.port, "port", "p", 0, "HTTP port, overrides RESERVATIONS_HTTP_PORT")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

func loadConfig(f flags) (config.Config, error) {
	cfg, err := config.LoadWithOptions(config.Options{ConfigFile: f.configFile, EnvFile: f.envFile})
	if err != nil {
		return config.Config{}, err
	}
	if f.port > 0 {
		cfg.HTTPPort = f.port
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level, stdout)
	if err != nil {
		return err
	}

	if cfg.EnableTracing {
		configureTracing(logger)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.Store.Driver, "error", err)
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(cfg, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservations API listening", "addr", server.Addr, "driver", cfg.Store.Driver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStore opens the configured backend. SQL stores get their schema ensured.
func openStore(ctx context.Context, cfg config.Config) (persistence.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.Open(), nil
	case config.DriverSQLite, config.DriverPostgres:
		return sqlstore.Open(ctx, sqlstore.Options{
			Driver:       cfg.Store.Driver,
			DSN:          cfg.Store.DSN,
			MaxOpenConns: cfg.Store.MaxOpenConns,
			BusyTimeout:  cfg.Store.Timeout,
			Tracing:      cfg.EnableTracing,
		})
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// newHandler wires services, handlers and middleware around store.
func newHandler(cfg config.Config, store persistence.Store, logger *slog.Logger) http.Handler {
	timeout := cfg.Store.Timeout

	reservationService := application.NewReservationServiceWithLogger(adapter.NewReservationRepository(store), timeout, logger)
	roomService := application.NewRoomServiceWithLogger(adapter.NewRoomRepository(store), timeout, logger)
	employeeService := application.NewEmployeeServiceWithLogger(adapter.NewEmployeeRepository(store), timeout, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, logger),
		Employees:    httptransport.NewEmployeeHandler(employeeService, logger),
		Health:       httptransport.NewHealthHandler(store, timeout, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
		},
	})

	if cfg.EnableTracing {
		return xray.Handler(xray.NewFixedSegmentNamer(serviceName), router)
	}
	return router
}

func configureTracing(logger *slog.Logger) {
	if err := xray.Configure(xray.Config{
		DaemonAddr:     "127.0.0.1:2000",
		ServiceVersion: "1.0.0",
	}); err != nil {
		logger.Warn("failed to configure X-Ray, using defaults", "error", err)
		if cerr := xray.Configure(xray.Config{}); cerr != nil {
			logger.Error("failed to configure default X-Ray settings", "error", cerr)
		}
	}
	if os.Getenv("AWS_XRAY_CONTEXT_MISSING") == "" {
		_ = os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}
}
