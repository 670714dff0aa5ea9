package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimbus-retail/kioskd/internal/backend"
	"github.com/nimbus-retail/kioskd/internal/config"
	kioskhttp "github.com/nimbus-retail/kioskd/internal/http"
	"github.com/nimbus-retail/kioskd/internal/media"
	"github.com/nimbus-retail/kioskd/internal/playlist"
	"github.com/nimbus-retail/kioskd/internal/pricing"
	"github.com/nimbus-retail/kioskd/internal/push"
	kioskredis "github.com/nimbus-retail/kioskd/internal/redis"
	"github.com/nimbus-retail/kioskd/internal/session"
	"github.com/nimbus-retail/kioskd/internal/standby"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Environment == "development" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// durable client storage + retail database
	rdb := kioskredis.New(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
	db, err := pricing.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db init")
	}

	// session: single writer of the token, read by every backend call
	client := backend.New(cfg.BackendBaseURL, cfg.BackendAPIKey)
	sessions := session.NewManager(client, session.NewRedisStore(rdb), cfg.BootstrapRetry)
	client.SetTokenSource(sessions)

	// standby engine and the pipeline that feeds it
	engine := standby.New(standby.Options{
		SideInterval:         cfg.SidePaneInterval,
		DefaultImageDuration: cfg.DefaultImageDuration,
		RevalidateInterval:   cfg.RevalidateInterval,
	})
	go engine.Run(ctx)

	preloader := media.NewPreloader(cfg.MediaCacheDir)
	fetcher := playlist.NewFetcher(client, preloader, cfg.MediaBaseURL, engine.SetPlaylist)
	pusher := push.New(client, sessions, cfg.ReconnectBackoff, fetcher.Refresh)

	go func() {
		if err := sessions.BootstrapLoop(ctx); err != nil {
			return
		}
		pusher.Run(ctx)
	}()

	// local surface for the lookup form and the rendering layer
	priceSvc := pricing.NewService(pricing.NewStore(db), rdb, cfg.PriceCacheTTL)
	router := kioskhttp.NewRouter(priceSvc, engine, cfg)

	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}
	go func() {
		log.Info().Str("address", cfg.ServerAddress).Msg("kiosk listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}
