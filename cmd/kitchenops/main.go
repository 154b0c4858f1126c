// KitchenOps server: staff accounts, inventory, preparation plans and
// server-hosted cooking sessions relayed live over WebSocket.
//
// Usage:
//
//	kitchenops [-config kitchenops.toml] [-env .env] [-verbose] [-quiet]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/kitchenops/internal/auth"
	"github.com/hammamikhairi/kitchenops/internal/config"
	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/engine"
	"github.com/hammamikhairi/kitchenops/internal/inventory"
	"github.com/hammamikhairi/kitchenops/internal/kitchen"
	"github.com/hammamikhairi/kitchenops/internal/logger"
	"github.com/hammamikhairi/kitchenops/internal/notify"
	"github.com/hammamikhairi/kitchenops/internal/prep"
	"github.com/hammamikhairi/kitchenops/internal/recipe"
	"github.com/hammamikhairi/kitchenops/internal/relay"
	"github.com/hammamikhairi/kitchenops/internal/server"
	"github.com/hammamikhairi/kitchenops/internal/storage"
	"github.com/hammamikhairi/kitchenops/internal/timer"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML config file")
	envPath := flag.String("env", ".env", "path to a .env file")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	flag.Parse()

	if err := config.LoadEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logLevel := logger.ParseLevel(cfg.LogLevel)
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" && cfg.LogFile != "stderr" {
		if dir := filepath.Dir(cfg.LogFile); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.LogFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	if err := run(cfg, *configPath, log); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, configPath string, log *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Storage.
	db, err := storage.Open(cfg.DataDir, log)
	if err != nil {
		return err
	}
	defer db.Close()
	gcCtx, stopGC := context.WithCancel(ctx)
	defer stopGC()
	db.StartGC(gcCtx, cfg.GCInterval.Duration)

	recipeRepo := storage.NewRecipeRepo(db, log)
	inventoryRepo := storage.NewInventoryRepo(db, log)

	// Notifications: always the log, plus a chime on the host if asked.
	notifiers := notify.Multi{notify.NewLogNotifier(log, nil)}
	if cfg.Chime.Enabled {
		player, err := notify.NewOtoPlayer(log)
		if err != nil {
			log.Error("audio player init failed, chime disabled: %v", err)
		} else {
			chime := notify.NewChimeNotifier(player, log)
			defer chime.Close()
			notifiers = append(notifiers, chime)
			log.Info("chime enabled")
		}
	}

	// Relay: Redis when configured, with the in-process hub behind it.
	hub := relay.NewHub(log)
	defer hub.Close()
	var rel domain.Relay = hub
	if cfg.Redis.Addr != "" {
		redis := relay.NewRedisRelay(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, log)
		defer redis.Close()
		pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
		if err := redis.Ping(pingCtx); err != nil {
			log.Warn("redis at %s unreachable, relaying in-process only for now: %v", cfg.Redis.Addr, err)
		} else {
			log.Info("relay: redis at %s", cfg.Redis.Addr)
		}
		cancelPing()
		rel = relay.NewFallback(redis, hub, log)
	}

	hostname, _ := os.Hostname()
	eng := engine.New(recipeRepo, storage.NewMemoryStore(log), log,
		engine.WithRelay(rel),
		engine.WithNotifier(notifiers),
		engine.WithSender(hostname),
		engine.WithTimerOptions(timer.WithTickInterval(cfg.TickInterval.Duration)),
	)
	defer eng.Shutdown()

	svc := server.Services{
		Auth:      auth.NewService(storage.NewProfileRepo(db, log), log, auth.WithTokenTTL(cfg.TokenTTL.Duration)),
		Recipes:   recipe.NewService(recipeRepo, log),
		Inventory: inventory.NewService(inventoryRepo, log),
		Plans:     prep.NewService(storage.NewPlanRepo(db, log), log),
		Kitchens:  kitchen.NewService(storage.NewKitchenRepo(db, log), log),
		Engine:    eng,
	}

	// First start.
	if cfg.Admin.Email != "" {
		created, err := svc.Auth.Bootstrap(ctx, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("bootstrapping admin: %w", err)
		}
		if created {
			log.Info("created admin account %s", cfg.Admin.Email)
		}
	}
	if cfg.SeedRecipes {
		n, err := svc.Recipes.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seeding recipes: %w", err)
		}
		if n > 0 {
			log.Info("seeded %d sample recipes", n)
		}
	}

	// Background work.
	watcher := inventory.NewWatcher(inventoryRepo, notifiers, log,
		inventory.WithWatchInterval(cfg.InventoryCheckEvery.Duration))
	go watcher.Run(ctx)

	go func() {
		err := config.Watch(ctx, configPath, log, func(next config.Config) {
			level := logger.ParseLevel(next.LogLevel)
			if level != log.GetLevel() {
				log.SetLevel(level)
				log.Info("config: log level is now %s", level)
			}
		})
		if err != nil {
			log.Warn("config: hot reload disabled: %v", err)
		}
	}()

	// HTTP.
	gin.SetMode(gin.ReleaseMode)
	api := server.New(svc, log, server.WithCORSOrigins(corsOrigins(cfg)...))
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	api.CloseWebSockets()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown: %v", err)
	}
	return nil
}

func corsOrigins(cfg config.Config) []string {
	if len(cfg.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSOrigins
}
