package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"lottosim/internal/config"
	"lottosim/internal/handlers"
	"lottosim/internal/lotto"
	"lottosim/internal/metrics"
	"lottosim/internal/prize"
	"lottosim/internal/scraper"
	"lottosim/internal/services"
	"lottosim/web"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search ./, ./config, /etc/lottosim, $HOME/.lottosim)")
	flag.Parse()

	// 1. Load configuration
	cm := config.NewConfigManager()
	if *configPath != "" {
		cm.SetConfigFile(*configPath)
	}
	cfg, err := cm.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logging
	logOut := io.Discard
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			logger.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	defer logger.Init("lottosim", cfg.Log.Verbose, cfg.Log.SystemLog, logOut).Close()
	logger.SetLevel(levelFor(cfg.Log.Verbose))
	if used := cm.ConfigFileUsed(); used != "" {
		logger.Infof("Loaded config from %s", used)
	}

	// 3. Load the prize table once for the whole process
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prizes := prize.NewCache(prize.FallbackProvider{
		prize.NewConfigProvider(cfg.Prizes),
		prize.NewStaticProvider(nil),
	})
	table := prizes.Table(ctx)
	logger.Infof("Prize table has %d paying ranks", len(table))

	// 4. Initialize the simulator
	sampler := lotto.NewSampler(lotto.NewSecureRandomGenerator())
	simulator, err := services.NewSimulatorService(sampler, lotto.NewEngine(sampler), table,
		cfg.Simulator.MaxBatch, cfg.Simulator.HistoryPageSize)
	if err != nil {
		logger.Fatalf("Failed to start simulator: %v", err)
	}

	// 5. Latest-numbers scraper behind a circuit breaker
	latest := scraper.NewBreakerSource(scraper.NewHTTPScraper(cfg.Scraper, nil), cfg.CircuitBreaker)

	// 6. Templates and handler
	templates, err := web.ParseTemplates()
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}
	httpHandler := handlers.NewHTTPHandler(simulator, latest, templates, cfg.Simulator.HistoryPageSize)

	// 7. Router
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metrics.Middleware())
	httpHandler.RegisterPageRoutes(r)

	forms := r.Group("/")
	api := r.Group("/api")
	var limiter *handlers.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = handlers.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		forms.Use(limiter.Middleware())
		api.Use(limiter.Middleware())
	}
	httpHandler.RegisterFormRoutes(forms)
	httpHandler.RegisterAPIRoutes(api)

	// 8. Apply runtime-safe settings on config change
	cm.WatchConfig(func(c *config.Config) {
		simulator.SetMaxBatch(c.Simulator.MaxBatch)
		logger.SetLevel(levelFor(c.Log.Verbose))
		logger.Infof("Applied config: max batch %d", c.Simulator.MaxBatch)
	})

	// 9. Background janitor for idle rate limiter entries
	if limiter != nil {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := limiter.Cleanup(30 * time.Minute); n > 0 {
						logger.Infof("Dropped %d idle rate limiter entries", n)
					}
				}
			}
		}()
	}

	// 10. Run the server until signalled
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Server starting on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}

func levelFor(verbose bool) logger.Level {
	if verbose {
		return 1
	}
	return 0
}
