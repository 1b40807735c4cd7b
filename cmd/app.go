package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/edvall/sheetstand/library"
	"github.com/edvall/sheetstand/relay"
	httpServer "github.com/edvall/sheetstand/server/http"
	websocketServer "github.com/edvall/sheetstand/server/websocket"
	"github.com/edvall/sheetstand/service"
	store "github.com/edvall/sheetstand/storage/memory"
	"github.com/edvall/sheetstand/storage/prefs"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	_ = godotenv.Load()

	fs := pflag.NewFlagSet("main", pflag.ContinueOnError)
	var (
		apiListenAddr = fs.StringP("api-listen-addr", "a", envOr("SHEETSTAND_API_ADDR", ":8080"), "api listen address")
		wsListenAddr  = fs.StringP("ws-listen-addr", "w", envOr("SHEETSTAND_WS_ADDR", ":8888"), "websocket relay listen address")
		scoresDir     = fs.StringP("scores-dir", "s", os.Getenv("SHEETSTAND_SCORES_DIR"), "directory with pdf scores and page metadata")
		dataDir       = fs.StringP("data-dir", "d", envOr("SHEETSTAND_DATA_DIR", ".sheetstand"), "directory for the prefs store")
		logLevel      = fs.StringP("log-level", "l", "debug", "log level")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse command line arguments")
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	prefStore, err := prefs.Open(prefs.Config{
		Logger: &logger,
		Path:   *dataDir,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open prefs store")
	}
	defer func() {
		_ = prefStore.Close()
	}()

	// No directory given: fall back to the one remembered from last run.
	if *scoresDir == "" {
		if *scoresDir, err = prefStore.LastScoreDir(); err != nil {
			logger.Fatal().Err(err).Msg("failed to read last score directory")
		}
		if *scoresDir == "" {
			logger.Fatal().Msg("no score directory, pass --scores-dir")
		}
	}

	lib := library.New(library.Config{
		Logger: &logger,
		Dir:    *scoresDir,
	})
	if err = lib.Scan(); err != nil {
		logger.Fatal().Err(err).Msg("failed to scan score directory")
	}
	if err = prefStore.SetLastScoreDir(*scoresDir); err != nil {
		logger.Error().Err(err).Msg("failed to remember score directory")
	}

	svc := service.NewService(service.Config{
		Relay:   relay.NewRelay(&logger, store.NewMemStore()),
		Library: lib,
		Logger:  &logger,
	})
	httpSrv := httpServer.NewServer(httpServer.Config{
		Logger:     &logger,
		Service:    svc,
		ListenAddr: *apiListenAddr,
		ScoresDir:  *scoresDir,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:       &logger,
		RelayService: svc,
		ListenAddr:   *wsListenAddr,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(2)
	go httpSrv.Run(ctx, wg, errc)
	go wsSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
