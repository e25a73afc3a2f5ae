package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parkease-service/internal/config"
	"parkease-service/internal/db"
	httpapi "parkease-service/internal/http"
	"parkease-service/internal/notify"
	"parkease-service/internal/recognizer"
	"parkease-service/internal/repository"
	"parkease-service/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Upload.Dir).Msg("failed to create upload directory")
	}

	gdb, err := db.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	repo := repository.NewParkingRepository(gdb)
	recClient := recognizer.NewClient(
		cfg.Recognizer.URL,
		cfg.Recognizer.Token,
		cfg.Recognizer.Timeout,
		log.With().Str("component", "recognizer").Logger(),
	)
	parkingService := service.NewParkingService(repo, recClient,
		log.With().Str("component", "service").Logger())
	handler := httpapi.NewHandler(parkingService, cfg,
		log.With().Str("component", "http").Logger())

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpapi.RequestLogger(log.With().Str("component", "http").Logger()))
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))
	handler.Register(r)

	var poller *notify.Poller
	if cfg.Notifier.Enabled {
		notifyLog := log.With().Str("component", "notifier").Logger()
		poller = notify.NewPoller(cfg.Notifier.Interval, parkingService.LatestRecord,
			func(a notify.NewArrival) {
				notifyLog.Info().
					Str("plate", a.Plate).
					Str("time_in", a.TimeIn).
					Str("block_id", a.BlockID).
					Msg("new vehicle arrived")
			}, notifyLog)
		poller.Start()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if poller != nil {
		poller.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout)
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
