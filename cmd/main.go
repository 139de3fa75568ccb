package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpapi "pairline/internal/api/http"
	"pairline/internal/auth"
	"pairline/internal/config"
	"pairline/internal/repository"
	"pairline/internal/repository/model"
	"pairline/internal/service"

	"pairline/lib/logger/sl"
	"pairline/lib/logger/slogpretty"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	roomRepo, err := buildRoomRepository(cfg.Database)
	if err != nil {
		log.Error("failed to connect database", sl.Err(err))
		os.Exit(1)
	}

	authorizer, err := auth.FromConfig(cfg.Auth.Mode, cfg.Auth.Token)
	if err != nil {
		log.Error("failed to configure auth", sl.Err(err))
		os.Exit(1)
	}

	registry := service.NewRegistry(log)
	roomService := service.NewRoomService(roomRepo, registry, log, cfg.Signaling)
	relayService := service.NewRelayService(roomService, log, cfg.Signaling)
	sweeper := service.NewSweeper(roomService, log, cfg.Signaling.SweepInterval, cfg.Signaling.EmptyRoomRetention)
	go sweeper.Run(ctx)

	sessionController := httpapi.NewSessionController(
		roomService,
		relayService,
		registry,
		authorizer,
		log,
		cfg.Signaling.ReadLimit,
	)
	roomController := httpapi.NewRoomController(roomService, cfg.WebRTC.STUNServers)

	router := httpapi.SetupRouter(sessionController, roomController, cfg.HTTP.AllowedOrigins)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	go func() {
		log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", sl.Err(err))
	}
	log.Info("server exited")
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

// buildRoomRepository picks the durable mirror: postgres when a DSN is
// configured, in-memory otherwise.
func buildRoomRepository(cfg config.DatabaseConfig) (repository.RoomRepository, error) {
	if cfg.DSN == "" {
		return repository.NewInMemoryRoomRepository(), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.Room{}, &model.Member{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return repository.NewPostgresRoomRepository(db), nil
}
