package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log" // Logging library
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request logging and panic recovery

	"github.com/iliyamo/parking-reservation/internal/config"   // Internal config loader
	"github.com/iliyamo/parking-reservation/internal/database" // connection and schema
	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/queue"
	"github.com/iliyamo/parking-reservation/internal/realtime"
	"github.com/iliyamo/parking-reservation/internal/repository"
	"github.com/iliyamo/parking-reservation/internal/router" // Internal router setup
	"github.com/iliyamo/parking-reservation/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient(ctx) // nil when redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	hub := realtime.NewHub(64)
	go hub.Run(ctx)

	notifiers := service.Notifiers{hub}
	if rdb != nil {
		notifiers = append(notifiers, &middleware.CachePurger{RDB: rdb, Prefix: cacheCfg.Prefix})
	}
	if cfg.EventsEnabled {
		notifiers = append(notifiers, service.NewAMQPPublisher(cfg.AMQPURL))
	}
	svc := service.NewParkingService(db, service.WithNotifier(notifiers))

	if err := svc.Bootstrap(ctx, service.BootstrapConfig{
		AdminEmail:     cfg.AdminEmail,
		AdminPassword:  cfg.AdminPassword,
		BcryptCost:     cfg.BcryptCost,
		SeedSampleLots: cfg.SeedSampleLots,
	}); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if cfg.ConsumerOn {
		go func() {
			if err := queue.StartEventConsumer(ctx, cfg.AMQPURL, queue.DefaultLogPath); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("event-consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	router.RegisterRoutes(e, db) // Register application routes
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, svc.Users, repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(svc, hub), middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterUser(e, handler.NewBookingHandler(svc), cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterAdmin(e, handler.NewAdminHandler(svc), cfg.JWTSecret)

	addr := ":" + cfg.Port                                                       // Address string with port
	log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver) // Print startup info
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return database.OpenSQLite(cfg.DBPath)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
