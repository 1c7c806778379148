package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	runtimedebug "runtime/debug"
	"syscall"
	"time"

	"github.com/blukai/gangnet/internal/config"
	"github.com/blukai/gangnet/internal/gameclient"
	"github.com/blukai/gangnet/internal/protocol"
	"github.com/blukai/gangnet/internal/session"
	"github.com/blukai/gangnet/internal/transport"
	"github.com/go-faster/errors"
	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type connectFlags struct {
	configPath string
	logLevel   string
	say        string
	team       string
	class      string
}

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

func parseTeam(s string) (protocol.Team, error) {
	for t := protocol.TeamRed; t.Valid(); t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown team %q", s)
}

func parseClass(s string) (protocol.Class, error) {
	for c := protocol.Class(0); c.Valid(); c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown class %q", s)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error().Msgf("metrics server failed: %v", err)
		}
	}()
}

// NOTE(blukai): an idle player; there is no input device.
func sendIdleInput(c *gameclient.Client, logger *log.Logger) {
	if err := c.Send(&protocol.ClientInputState{}); err != nil {
		logger.Debug().Msgf("could not send input: %v", err)
	}
}

// onJoined sends whatever the flags asked for.
func onJoined(c *gameclient.Client, flags *connectFlags) error {
	var msgs []protocol.ClientMessage
	if flags.team != "" {
		team, err := parseTeam(flags.team)
		if err != nil {
			return err
		}
		msgs = append(msgs, &protocol.ClientPlayerChangeTeam{Team: team})
	}
	if flags.class != "" {
		class, err := parseClass(flags.class)
		if err != nil {
			return err
		}
		msgs = append(msgs, &protocol.ClientPlayerChangeClass{Class: class})
	}
	if flags.say != "" {
		msgs = append(msgs, &protocol.ClientChat{Text: flags.say})
	}
	for _, msg := range msgs {
		if err := c.Send(msg); err != nil {
			return errors.Wrapf(err, "could not send %s", msg.Kind())
		}
	}
	return nil
}

func logEvent(logger *log.Logger, ev session.Event) {
	switch ev := ev.(type) {
	case session.ServerInfo:
		logger.Info().
			Str("server", ev.ServerName).
			Str("map", ev.MapName).
			Str("digest", ev.MapDigest.String()).
			Strs("plugins", ev.Plugins).
			Msg("server info")
	case session.MapChanged:
		logger.Info().Str("map", ev.MapName).Msg("map changed")
	case session.PlayerJoined:
		logger.Info().Int("player", int(ev.Player)).Str("name", ev.Name).Msg("player joined")
	case session.PlayerLeft:
		logger.Info().Int("player", int(ev.Player)).Msg("player left")
	case session.LocalIDChanged:
		logger.Info().Int("old", int(ev.Old)).Int("new", int(ev.New)).Msg("local id changed")
	case session.NameChanged:
		logger.Info().Int("player", int(ev.Player)).Str("name", ev.Name).Msg("name changed")
	case session.TeamChanged:
		logger.Info().Int("player", int(ev.Player)).Str("team", ev.Team.String()).Msg("team changed")
	case session.ClassChanged:
		logger.Info().Int("player", int(ev.Player)).Str("class", ev.Class.String()).Msg("class changed")
	case session.Text:
		if ev.Player == protocol.NoPlayer {
			logger.Info().Msgf("* %s", ev.Text)
		} else {
			logger.Info().Int("player", int(ev.Player)).Msgf("%s", ev.Text)
		}
	case session.CapsChanged:
		logger.Info().
			Int("red", int(ev.RedCaps)).
			Int("blue", int(ev.BlueCaps)).
			Int("limit", int(ev.CapLimit)).
			Msg("caps")
	default:
		logger.Trace().Msgf("%T %+v", ev, ev)
	}
}

func runConnect(ctx context.Context, flags *connectFlags) error {
	cfg, err := config.LoadClient(flags.configPath)
	if err != nil {
		return errors.Wrap(err, "could not load config")
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logger := configureLogger(cfg.LogLevel)

	var metrics *transport.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = transport.NewMetrics(reg)
		serveMetrics(cfg.MetricsAddr, reg, logger)
		logger.Info().Msgf("serving metrics on %s", cfg.MetricsAddr)
	}

	client := gameclient.New(gameclient.Options{
		Network:     cfg.Transport,
		Address:     cfg.ServerAddr,
		DialTimeout: cfg.DialTimeout,
		Identity: session.Identity{
			PlayerName: cfg.PlayerName,
			Password:   cfg.Password,
		},
	}, logger, metrics)

	connErr := client.Connect(ctx)
	if connErr != nil {
		logger.Error().Msgf("could not connect: %v", connErr)
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			client.Disconnect()
		case <-ticker.C:
		}

		// one message per tick
		in, ok := client.PollNextInbound()
		if !ok {
			if client.State() == session.StateInGame {
				sendIdleInput(client, logger)
			}
			continue
		}

		for _, ev := range in.Events {
			logEvent(logger, ev)

			switch ev := ev.(type) {
			case session.Joined:
				if err := onJoined(client, flags); err != nil {
					return err
				}
			case session.Disconnected:
				if ev.Reason == session.ReasonLocal {
					return nil
				}
				return errors.Wrapf(ev.Err, "disconnected (%s)", ev.Reason)
			}
		}
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "gangnet-client",
		Short:        "Headless game client",
		SilenceUsage: true,
	}

	flags := &connectFlags{}
	connectCmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a server, join and log what happens until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return runConnect(ctx, flags)
		},
	}
	connectCmd.Flags().StringVar(&flags.configPath, "config", "", "path to a yaml config file")
	connectCmd.Flags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	connectCmd.Flags().StringVar(&flags.say, "say", "", "chat line to send after joining")
	connectCmd.Flags().StringVar(&flags.team, "team", "", "team to pick after joining (red, blue, spectator)")
	connectCmd.Flags().StringVar(&flags.class, "class", "", "class to pick after joining")

	rootCmd.AddCommand(connectCmd)
	return rootCmd
}

// maybeDumpStack writes the stack of a panic to the temp dir and re-panics. it
// is not absolutely panic-free itself.
func maybeDumpStack() {
	r := recover()
	if r == nil {
		return
	}

	filename := filepath.Join(
		os.TempDir(),
		"gangnet-client-"+time.Now().UTC().Format("20060102T150405Z")+".txt",
	)
	stackTrace := fmt.Sprintf("%v\n\n%s", r, runtimedebug.Stack())
	if err := os.WriteFile(filename, []byte(stackTrace), 0o644); err == nil {
		fmt.Fprintf(os.Stderr, "stack trace written to %s\n", filename)
	}

	panic(r)
}

func main() {
	defer maybeDumpStack()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fucky wucky! %v\n", err)
		os.Exit(42)
	}
}
