package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/config"
	"github.com/MrSnakeDoc/annotate/internal/httpserver"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/index"
	"github.com/MrSnakeDoc/annotate/internal/layout"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/scheduler"
	"github.com/MrSnakeDoc/annotate/internal/store"
	"github.com/MrSnakeDoc/annotate/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/annotate/internal/store/redis"
	"github.com/MrSnakeDoc/annotate/internal/version"
)

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	server   *httpserver.Server
	closer   func() error
	memIndex *index.MemoryIndex
	reloader *scheduler.ContentReloader
	gc       *scheduler.GarbageCollector
}

// New loads the configuration and wires every component. The Redis backend
// is dialed here so a missing store fails startup.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	st, closer, err := openStore(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	memIndex := index.NewMemoryIndex()
	reloadTrigger := make(chan struct{}, 1)

	reloader := scheduler.NewContentReloader(
		cfg.ContentDir,
		st,
		memIndex,
		loggerClient,
		cfg.ReloadInterval,
		reloadTrigger,
	)

	gc := scheduler.NewGarbageCollector(
		st,
		memIndex,
		loggerClient,
		cfg.GCInterval,
		cfg.GCThreshold,
	)

	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		CORSOrigins:   cfg.CORSOrigins,
		RateBurst:     cfg.RateBurst,
		RatePerMinute: cfg.RatePerMinute,
		Store:         st,
		StoreBackend:  cfg.StoreBackend,
		MemoryIndex:   memIndex,
		Renderer:      layout.NewRenderer(),
		PublicURL:     cfg.PublicURL,
		RenderTTL:     cfg.RenderTTL,
		ReloadTrigger: reloadTrigger,
	}

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		server:   httpserver.New(cfg, loggerClient, d),
		closer:   closer,
		memIndex: memIndex,
		reloader: reloader,
		gc:       gc,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, func() error, error) {
	if cfg.StoreBackend == "memory" {
		log.Warn("using in-memory store, annotations are lost on restart")
		return memory.New(), func() error { return nil }, nil
	}

	log.Info("connecting to redis", logger.String("addr", cfg.RedisAddr))
	st, err := redisstore.Connect(ctx, redisstore.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("redis initialized")
	return st, st.Close, nil
}

func (a *App) Run() error {
	a.logger.Info("starting annotate",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
		logger.String("built", version.BuildDate),
		logger.String("go", version.GoVersion),
		logger.String("addr", a.cfg.ListenPort),
		logger.String("store", a.cfg.StoreBackend))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start content reloader: %w", err)
	}
	a.logger.Info("content reloader started",
		logger.Int("articles", a.memIndex.Count()),
		logger.Duration("interval", a.cfg.ReloadInterval))

	if err := a.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval),
		logger.Duration("threshold", a.cfg.GCThreshold))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	case err := <-errCh:
		a.reloader.Stop()
		a.gc.Stop()
		_ = a.closer()
		return err
	}

	a.reloader.Stop()
	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if err := a.closer(); err != nil {
		a.logger.Warn("failed to close store", logger.Error(err))
	}
	a.logger.Info("annotate stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
