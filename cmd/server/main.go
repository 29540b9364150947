package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/bloodbank/internal/adapter/handler"
	"github.com/rl1809/bloodbank/internal/adapter/storage"
	"github.com/rl1809/bloodbank/internal/config"
	"github.com/rl1809/bloodbank/internal/core/service"
	"github.com/rl1809/bloodbank/internal/logging"
	"github.com/rl1809/bloodbank/internal/port"
)

const (
	appName         = "bloodbank"
	shutdownTimeout = 5 * time.Second
)

var version = "" // set via -ldflags "-X main.version=..."

type Globals struct {
	Config    string `short:"c" help:"Path to the TOML config file." placeholder:"PATH"`
	Listen    string `short:"l" help:"Override the protocol listen address." placeholder:"ADDR"`
	StorePath string `help:"Override the inventory file path." placeholder:"PATH"`
	Debug     bool   `short:"d" help:"Enable debug output."`
	Quiet     bool   `short:"q" help:"Suppress informational output."`
}

var cli struct {
	Globals

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the inventory server."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&cli,
		kong.Name(appName),
		kong.Description("Blood stock inventory server.\n\nServes the line-based inventory protocol over TCP."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if err := kongCtx.Run(); err != nil {
		log.Error().Err(err).Msg("bloodbank stopped")
		os.Exit(1)
	}
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	if version == "" {
		fmt.Println("(local)")
		return nil
	}
	fmt.Println(version)
	return nil
}

type ServeCmd struct{}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	logging.Init(appName, cfg.LogLevel)
	log.Debug().Int("pid", os.Getpid()).Str("store", cfg.Store.Backend).Msg("starting")

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	// Journal
	var (
		journalDB *sql.DB
		journalWG *sync.WaitGroup
		queueSize int
	)
	if cfg.Journal.Enabled() {
		journalDB, err = openJournal(ctx, cfg.Journal.MySQLDSN)
		if err != nil {
			return err
		}
		defer journalDB.Close()
		queueSize = cfg.Journal.QueueSize
	}

	var journal port.JournalRepository
	inventory := service.NewInventoryService(repo, queueSize)
	if journalDB != nil {
		journal = storage.NewMySQLAdapter(journalDB)
		journalWG = service.StartJournalWorkers(cfg.Journal.Workers, inventory.JournalQueue(), journal)
	}
	// Runs before journalDB is closed, on every return path.
	defer func() {
		inventory.Close()
		if journalWG != nil {
			journalWG.Wait()
			log.Info().Msg("journal workers stopped")
		}
	}()

	// Startup repair failures are logged; the server runs with whatever
	// state the store is left in.
	bootstrapped := true
	if err := inventory.Bootstrap(ctx); err != nil {
		bootstrapped = false
		log.Error().Err(err).Msg("inventory bootstrap failed")
	}

	var grpcHandler *handler.GRPCHandler
	if cfg.Admin.GRPCAddress != "" {
		lis, err := net.Listen("tcp", cfg.Admin.GRPCAddress)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Admin.GRPCAddress, err)
		}
		grpcHandler = handler.NewGRPCHandler()
		grpcHandler.SetServing(bootstrapped)
		go func() {
			if err := grpcHandler.Serve(lis); err != nil {
				log.Error().Err(err).Msg("gRPC health server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			grpcHandler.Stop(shutdownCtx)
		}()
	}

	if cfg.Admin.HTTPAddress != "" {
		httpServer := &http.Server{
			Addr:    cfg.Admin.HTTPAddress,
			Handler: handler.NewHTTPHandler(inventory, journal).Routes(),
		}
		go func() {
			log.Info().Str("addr", cfg.Admin.HTTPAddress).Msg("admin HTTP server listening")
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("admin HTTP server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("error shutting down admin HTTP server")
			}
		}()
	}

	srv := handler.NewTCPServer(cfg.ListenAddress, inventory)
	if err := srv.Start(); err != nil {
		return err
	}
	log.Info().Msg("bloodbank is running")

	waitErr := make(chan error, 1)
	go func() { waitErr <- srv.Wait() }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-waitErr:
		log.Error().Err(runErr).Msg("protocol server failed")
	}

	if grpcHandler != nil {
		grpcHandler.SetServing(false)
	}
	if err := srv.Stop(); err != nil {
		log.Warn().Err(err).Msg("error closing protocol listener")
	}

	// Deferred steps stop the admin servers, then drain the journal.
	return runErr
}

// loadConfig reads the explicit --config file, or the default config file
// when present, then applies flag overrides.
func loadConfig(g *Globals) (config.Config, error) {
	cfg := config.Default()

	path := g.Config
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath()); err == nil {
			path = config.DefaultConfigPath()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("stat config: %w", err)
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if g.Listen != "" {
		cfg.ListenAddress = g.Listen
	}
	if g.StorePath != "" {
		cfg.Store.Path = g.StorePath
	}
	if g.Debug {
		cfg.LogLevel = "debug"
	} else if g.Quiet {
		cfg.LogLevel = "warn"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func openRepository(ctx context.Context, cfg config.Config) (port.InventoryRepository, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info().Str("addr", cfg.Redis.Address).Str("key", cfg.Redis.Key).Msg("connected to redis")
		return storage.NewRedisAdapter(rdb, cfg.Redis.Key), func() { rdb.Close() }, nil
	default:
		log.Info().Str("path", cfg.Store.Path).Msg("using file store")
		return storage.NewFileAdapter(cfg.Store.Path), func() {}, nil
	}
}

func openJournal(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if err := storage.NewMySQLAdapter(db).EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Msg("connected to mysql journal")
	return db, nil
}
