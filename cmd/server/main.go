package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/d-j-kendall/roast-my-playlist/internal/config"
	"github.com/d-j-kendall/roast-my-playlist/kvstore"
	"github.com/d-j-kendall/roast-my-playlist/roast"
	"github.com/d-j-kendall/roast-my-playlist/server"
	"github.com/d-j-kendall/roast-my-playlist/sessions"
	"github.com/d-j-kendall/roast-my-playlist/spotify"
)

func main() {
	if err := run(); err != nil {
		zlog.Fatal().Err(err).Msg("server exited")
	}
	zlog.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Any("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	store := newStore(c)
	sessionStore := sessions.NewStore(store)

	tokenClient, err := spotify.NewTokenClient(c)
	if err != nil {
		return fmt.Errorf("spotify token client: %w", err)
	}

	lifecycle, err := sessions.NewManager(sessionStore, tokenClient)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	srv, err := server.New(c, server.Services{
		Store:     sessionStore,
		Lifecycle: lifecycle,
		Tokens:    tokenClient,
		Music:     spotify.NewWebAPIClient(),
		Roaster:   newRoaster(c),
	})
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if c.GetEnv() == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// newStore picks the store implementation once, at startup: Redis when a URL
// is configured, the in-process fallback otherwise.
func newStore(c config.Config) kvstore.Store {
	redisURL := c.GetRedisURL()
	if redisURL == "" {
		zlog.Warn().Msg("no ROAST_SESSION_REDIS_URL configured, sessions held in process memory")
		return kvstore.NewLocalStore()
	}

	redisStore, err := kvstore.NewRedisStore(redisURL)
	if err != nil {
		zlog.Warn().Err(err).Msg("redis unusable, sessions held in process memory")
		return kvstore.NewLocalStore()
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := redisStore.Ping(pingCtx); err != nil {
		// Connections are lazy; keep the Redis store and let it reconnect.
		zlog.Warn().Err(err).Msg("redis not reachable yet")
	} else {
		zlog.Info().Msg("connected to redis")
	}
	return redisStore
}

func newRoaster(c config.Config) roast.Roaster {
	gemini, err := roast.NewGeminiRoaster(c)
	if err != nil {
		zlog.Warn().Err(err).Msg("gemini unavailable, using canned roaster")
		return roast.NewCannedRoaster()
	}
	return gemini
}

func listenAndServe(httpServer *http.Server) {
	zlog.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		zlog.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
