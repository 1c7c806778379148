// Package config loads client and server settings. Values come from the
// defaults below, then an optional yaml file, then GANGNET_* environment
// variables, each layer overriding the previous one.
package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blukai/gangnet/internal/protocol"
	"github.com/go-faster/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "GANGNET"

var defaultPort = strconv.Itoa(protocol.DefaultPort)

// NOTE(blukai): no `default` envconfig tags. envconfig applies them whenever
// the variable is unset, which would clobber values read from the file.

type Client struct {
	ServerAddr  string        `yaml:"server_addr" envconfig:"SERVER_ADDR"`
	Transport   string        `yaml:"transport" envconfig:"TRANSPORT"`
	PlayerName  string        `yaml:"player_name" envconfig:"PLAYER_NAME"`
	Password    string        `yaml:"password" envconfig:"PASSWORD"`
	DialTimeout time.Duration `yaml:"dial_timeout" envconfig:"DIAL_TIMEOUT"`
	// TickRate is the number of simulation ticks per second.
	TickRate    int    `yaml:"tick_rate" envconfig:"TICK_RATE"`
	LogLevel    string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
}

func DefaultClient() *Client {
	return &Client{
		ServerAddr:  net.JoinHostPort("127.0.0.1", defaultPort),
		Transport:   "tcp",
		PlayerName:  "Player",
		DialTimeout: 5 * time.Second,
		TickRate:    30,
		LogLevel:    "info",
	}
}

type Server struct {
	TCPAddr        string        `yaml:"tcp_addr" envconfig:"TCP_ADDR"`
	WSAddr         string        `yaml:"ws_addr" envconfig:"WS_ADDR"`
	ServerName     string        `yaml:"server_name" envconfig:"SERVER_NAME"`
	MapName        string        `yaml:"map_name" envconfig:"MAP_NAME"`
	Password       string        `yaml:"password" envconfig:"PASSWORD"`
	MaxPlayers     int           `yaml:"max_players" envconfig:"MAX_PLAYERS"`
	Plugins        []string      `yaml:"plugins" envconfig:"PLUGINS"`
	UpdateInterval time.Duration `yaml:"update_interval" envconfig:"UPDATE_INTERVAL"`
	LogLevel       string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

func DefaultServer() *Server {
	return &Server{
		TCPAddr:        net.JoinHostPort("0.0.0.0", defaultPort),
		ServerName:     "gangnet server",
		MapName:        "ctf_truefort",
		MaxPlayers:     10,
		UpdateInterval: 100 * time.Millisecond,
		LogLevel:       "info",
	}
}

func load(path string, dst any) error {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "could not read config file")
		}
		if err := yaml.Unmarshal(data, dst); err != nil {
			return errors.Wrapf(err, "could not parse config file %s", path)
		}
	}
	if err := envconfig.Process(envPrefix, dst); err != nil {
		return errors.Wrap(err, "could not process env")
	}
	return nil
}

// LoadClient layers the file at path (skipped when empty) and the environment
// over the client defaults and validates the result.
func LoadClient(path string) (*Client, error) {
	cfg := DefaultClient()
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadServer(path string) (*Server, error) {
	cfg := DefaultServer()
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateLogLevel(level string) error {
	switch level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
		return nil
	default:
		return errors.Errorf("unknown log level %q", level)
	}
}

// Validate reports every problem at once.
func (c *Client) Validate() error {
	var errs error
	if c.ServerAddr == "" {
		errs = multierror.Append(errs, errors.New("server address is empty"))
	}
	if c.Transport != "tcp" && c.Transport != "ws" {
		errs = multierror.Append(errs, errors.Errorf("transport must be tcp or ws, got %q", c.Transport))
	}
	if c.PlayerName == "" || len(c.PlayerName) > 255 {
		errs = multierror.Append(errs, errors.Errorf("player name must be 1 to 255 bytes, got %d", len(c.PlayerName)))
	}
	if len(c.Password) > 255 {
		errs = multierror.Append(errs, errors.New("password is longer than 255 bytes"))
	}
	if c.DialTimeout <= 0 {
		errs = multierror.Append(errs, errors.Errorf("dial timeout must be positive, got %s", c.DialTimeout))
	}
	if c.TickRate <= 0 || c.TickRate > 1000 {
		errs = multierror.Append(errs, errors.Errorf("tick rate must be within 1..1000, got %d", c.TickRate))
	}
	if err := validateLogLevel(c.LogLevel); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

func (s *Server) Validate() error {
	var errs error
	if s.TCPAddr == "" && s.WSAddr == "" {
		errs = multierror.Append(errs, errors.New("no listen address"))
	}
	if s.ServerName == "" || len(s.ServerName) > 255 {
		errs = multierror.Append(errs, errors.Errorf("server name must be 1 to 255 bytes, got %d", len(s.ServerName)))
	}
	if err := protocol.ValidateMapName(s.MapName); err != nil {
		errs = multierror.Append(errs, err)
	}
	if len(s.Password) > 255 {
		errs = multierror.Append(errs, errors.New("password is longer than 255 bytes"))
	}
	if s.MaxPlayers <= 0 || s.MaxPlayers > 254 {
		errs = multierror.Append(errs, errors.Errorf("max players must be within 1..254, got %d", s.MaxPlayers))
	}
	if len(s.Plugins) > 255 {
		errs = multierror.Append(errs, errors.Errorf("at most 255 plugins, got %d", len(s.Plugins)))
	}
	for _, name := range s.Plugins {
		if name == "" || strings.ContainsRune(name, ',') {
			errs = multierror.Append(errs, errors.Wrapf(protocol.ErrPluginName, "%q", name))
		}
	}
	if s.UpdateInterval <= 0 {
		errs = multierror.Append(errs, errors.Errorf("update interval must be positive, got %s", s.UpdateInterval))
	}
	if err := validateLogLevel(s.LogLevel); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}
