package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/buzzhunt/buzzhunt-api/internal/config"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/area"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/clue"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/credit"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/cycle"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/inference"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/notification"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/realtime"
	"github.com/buzzhunt/buzzhunt-api/internal/middleware"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/database"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/jwt"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/logger"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/metrics"
	pkgresponse "github.com/buzzhunt/buzzhunt-api/internal/pkg/response"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/retry"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("database", cfg.DatabaseDriver).
		Str("broker", cfg.RealtimeBroker).
		Msg("Starting BuzzHunt API")

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close(db)

	broker, closeBroker, err := newBroker(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect realtime broker")
	}
	defer closeBroker()

	gazetteer, err := inference.LoadGazetteer(cfg.GazetteerPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load gazetteer")
	}

	hub := realtime.NewHub(broker)
	go hub.Run()
	defer hub.Shutdown()

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	router := newRouter(cfg, db, hub, gazetteer, jwtService)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		Attempts:  cfg.RetryAttempts,
		BaseDelay: cfg.RetryBaseDelay,
		MaxDelay:  time.Second,
	}
}

// newBroker connects the configured cross-instance transport. "none" keeps
// fan-out on this instance.
func newBroker(cfg *config.Config) (realtime.Broker, func(), error) {
	switch cfg.RealtimeBroker {
	case "redis":
		client, err := database.NewRedis(cfg.RedisURL)
		if err != nil || client == nil {
			return nil, func() {}, err
		}
		return realtime.NewRedisBroker(client), func() { database.CloseRedis(client) }, nil
	case "nats":
		conn, err := database.NewNATS(cfg.NATSURL)
		if err != nil || conn == nil {
			return nil, func() {}, err
		}
		return realtime.NewNATSBroker(conn), func() { database.CloseNATS(conn) }, nil
	case "none", "":
		return nil, func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported realtime broker %q", cfg.RealtimeBroker)
	}
}

func newRouter(cfg *config.Config, db *sqlx.DB, hub *realtime.Hub, gazetteer *inference.Gazetteer, jwtService *jwt.Service) chi.Router {
	policy := retryPolicy(cfg)

	// ---------- Services ----------
	creditSvc := credit.NewService(db, policy)

	notifier := notification.Multi{
		notification.LogNotifier{},
		notification.NewWSPublisher(hub),
	}

	areaSvc := area.NewService(area.NewRepository(db), creditSvc, hub, cycle.SystemClock{}, area.Config{
		Prize:    area.Point{Lat: cfg.PrizeLat, Lng: cfg.PrizeLng},
		BuzzCost: cfg.BuzzCost,
		Retry:    policy,
	})
	clueSvc := clue.NewService(clue.NewRepository(db), creditSvc, notifier, policy)
	engine := inference.NewEngine(gazetteer)

	// ---------- Handlers ----------
	areaHandler := area.NewHandler(areaSvc)
	clueHandler := clue.NewHandler(clueSvc)
	creditHandler := credit.NewHandler(creditSvc)
	inferenceHandler := inference.NewHandler(engine, clueSvc)
	realtimeHandler := realtime.NewHandler(hub, areaSvc, cfg.AllowedOrigins)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint, token may come in the query string
	r.With(authMiddleware).Get("/ws", realtimeHandler.WebSocket)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Mount("/areas", areaHandler.Routes(authMiddleware))
		r.Mount("/clues", clueHandler.Routes(authMiddleware))
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/inference", inferenceHandler.Routes(authMiddleware))
	})

	return r
}
