package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/weather-todo/internal/auth"
	"github.com/iliyamo/weather-todo/internal/config"
	"github.com/iliyamo/weather-todo/internal/database"
	"github.com/iliyamo/weather-todo/internal/handler"
	"github.com/iliyamo/weather-todo/internal/logger"
	"github.com/iliyamo/weather-todo/internal/middleware"
	"github.com/iliyamo/weather-todo/internal/queue"
	"github.com/iliyamo/weather-todo/internal/repository"
	"github.com/iliyamo/weather-todo/internal/router"
	"github.com/iliyamo/weather-todo/internal/service"
	"github.com/iliyamo/weather-todo/internal/weather"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	lg := logger.New(cfg.LogLevel, cfg.LogFormat)

	// a bad key must stop startup before anything listens
	key, err := auth.LoadSigningKey(cfg.JWTSecretKey)
	if err != nil {
		lg.Fatal("signing key", "err", err)
	}
	issuer := auth.NewIssuer(key)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, todos, closeStore := openStores(ctx, cfg, lg)
	defer closeStore()

	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("redis unavailable; cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher
	if cfg.QueueEnabled {
		events = queue.NewPublisher(cfg.AMQPURL, lg.WithPrefix("publisher"))
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventLogDir, lg.WithPrefix("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("todo consumer stopped", "err", err)
			}
		}()
	}

	wc := weather.NewClient(cfg.WeatherURL, cfg.WeatherTimeout, rdb, cfg.WeatherCacheTTL)
	authSvc := service.NewAuthService(users, issuer, cfg.BcryptCost, lg)
	todoSvc := service.NewTodoService(todos, wc, events, lg)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(lg))

	protected := router.Protected{
		Auth:      middleware.JWTAuth(issuer, lg),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     cache.Middleware(),
	}
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, lg), protected)
	router.RegisterTodos(e, handler.NewTodoHandler(todoSvc, cache, lg), protected)

	go func() {
		addr := ":" + cfg.Port
		lg.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", "err", err)
	}
}

func openStores(ctx context.Context, cfg config.Config, lg *log.Logger) (service.UserStore, service.TodoStore, func()) {
	if cfg.StoreDriver == config.StoreMemory {
		lg.Warn("using in-memory store; data is lost on restart")
		users := repository.NewMemoryUserStore()
		return users, repository.NewMemoryTodoStore(users), func() {}
	}

	db, err := database.Open(database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		lg.Fatal("database", "err", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		lg.Fatal("migrate", "err", err)
	}
	return repository.NewUserRepo(db), repository.NewTodoRepo(db), func() { _ = db.Close() }
}
