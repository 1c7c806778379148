package main

import (
	"context"
	"crypto/md5"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/blukai/gangnet/internal/config"
	"github.com/blukai/gangnet/internal/gameserver"
	"github.com/blukai/gangnet/internal/transport"
	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func configureLogger(level string) *log.Logger {
	logger := log.DefaultLogger

	// https://github.com/phuslu/log?tab=readme-ov-file#pretty-console-writer
	logger.Caller = 1
	logger.TimeFormat = "15:04:05"
	logger.Level = log.ParseLevel(level)
	logger.Writer = &log.ConsoleWriter{
		ColorOutput:    true,
		QuoteString:    true,
		EndWithMessage: true,
	}

	return &logger
}

func erringMain() error {
	configPath := flag.String("config", os.Getenv("GANGNET_CONFIG"), "path to a yaml config file")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		return fmt.Errorf("could not process config: %w", err)
	}

	logger := configureLogger(cfg.LogLevel)

	// the ws endpoint shares its http server with /metrics
	reg := prometheus.NewRegistry()
	metrics := transport.NewMetrics(reg)

	gameServer := gameserver.NewGameServer(gameserver.Config{
		ServerName: cfg.ServerName,
		MapName:    cfg.MapName,
		// NOTE(blukai): there are no map files on the dev server, the digest
		// only has to be stable.
		MapDigest:      md5.Sum([]byte(cfg.MapName)),
		Password:       cfg.Password,
		MaxPlayers:     cfg.MaxPlayers,
		Plugins:        cfg.Plugins,
		UpdateInterval: cfg.UpdateInterval,
	}, logger, metrics)

	if cfg.TCPAddr != "" {
		addr, err := gameServer.Listen("tcp", cfg.TCPAddr)
		if err != nil {
			return fmt.Errorf("could not listen on %s: %w", cfg.TCPAddr, err)
		}
		logger.Info().Msgf("listening for tcp on %s", addr)
	}

	var httpServer *http.Server
	if cfg.WSAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(transport.WebSocketPath, gameServer.Handler())
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		httpServer = &http.Server{Addr: cfg.WSAddr, Handler: mux}
	}

	wg := new(sync.WaitGroup)
	ctx, cancel := context.WithCancel(context.Background())

	wg.Add(1)
	var gameServerRunErr error
	go func() {
		defer wg.Done()
		gameServerRunErr = gameServer.Run(ctx)
	}()

	if httpServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info().Msgf("listening for websockets on %s", cfg.WSAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Msgf("http server failed: %v", err)
			}
		}()
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-signalChan
	logger.Info().Msgf("received %+v signal", sig)

	cancel()
	if httpServer != nil {
		httpServer.Close()
	}
	wg.Wait()
	if gameServerRunErr != nil {
		return fmt.Errorf("game server run failed: %w", gameServerRunErr)
	}

	return nil
}

func main() {
	if err := erringMain(); err != nil {
		fmt.Fprintf(os.Stderr, "fucky wucky! %v\n", err)
		os.Exit(42)
	}
}
