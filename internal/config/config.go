package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultDomain         = "localhost:8080"
	DefaultSTUN           = "stun:stun.l.google.com:19302"
	DefaultStaleAfter     = 2 * time.Second
	DefaultFrameRate      = 60
	DefaultConnectTimeout = 15 * time.Second
	DefaultBrokerPort     = 8080
	DefaultBrokerMode     = "release"
)

// Config holds application configuration
type Config struct {
	// Domain is the broker domain, BrokerURL is derived from it unless set.
	Domain    string `mapstructure:"domain"`
	BrokerURL string `mapstructure:"broker_url"`

	// ICE servers for WebRTC
	STUNServer string `mapstructure:"stun_server"`
	TURNServer string `mapstructure:"turn_server"`
	TURNUser   string `mapstructure:"turn_user"`
	TURNPass   string `mapstructure:"turn_pass"`
	ForceRelay bool   `mapstructure:"force_relay"`

	// StaleAfter is how long without a pose before data reads stale.
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	FrameRate      int           `mapstructure:"frame_rate"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	BrokerPort int    `mapstructure:"broker_port"`
	BrokerMode string `mapstructure:"broker_mode"`
}

// Options for loading config with CLI flag overrides
type Options struct {
	ConfigFile string
	Domain     string
	BrokerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	BrokerPort int
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables, then the optional posebridge.yaml file
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("posebridge")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "posebridge"))
		}
	}

	v.SetDefault("domain", DefaultDomain)
	v.SetDefault("broker_url", "")
	v.SetDefault("stun_server", DefaultSTUN)
	v.SetDefault("turn_server", "")
	v.SetDefault("turn_user", "")
	v.SetDefault("turn_pass", "")
	v.SetDefault("force_relay", false)
	v.SetDefault("stale_after", DefaultStaleAfter)
	v.SetDefault("frame_rate", DefaultFrameRate)
	v.SetDefault("connect_timeout", DefaultConnectTimeout)
	v.SetDefault("broker_port", DefaultBrokerPort)
	v.SetDefault("broker_mode", DefaultBrokerMode)

	envNames := map[string]string{
		"domain":          "DOMAIN",
		"broker_url":      "BROKER_URL",
		"stun_server":     "STUN_SERVER",
		"turn_server":     "TURN_SERVER",
		"turn_user":       "TURN_USERNAME",
		"turn_pass":       "TURN_PASSWORD",
		"force_relay":     "FORCE_RELAY",
		"stale_after":     "STALE_AFTER",
		"frame_rate":      "FRAME_RATE",
		"connect_timeout": "CONNECT_TIMEOUT",
		"broker_port":     "PORT",
		"broker_mode":     "BROKER_MODE",
	}
	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyOverrides(opts)

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = BrokerURLForDomain(cfg.Domain)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyOverrides(opts Options) {
	if opts.Domain != "" {
		c.Domain = opts.Domain
		// A domain on the command line wins over a configured URL.
		if opts.BrokerURL == "" {
			c.BrokerURL = ""
		}
	}
	if opts.BrokerURL != "" {
		c.BrokerURL = opts.BrokerURL
	}
	if opts.STUNServer != "" {
		c.STUNServer = opts.STUNServer
	}
	if opts.TURNServer != "" {
		c.TURNServer = opts.TURNServer
	}
	if opts.TURNUser != "" {
		c.TURNUser = opts.TURNUser
	}
	if opts.TURNPass != "" {
		c.TURNPass = opts.TURNPass
	}
	if opts.ForceRelay {
		c.ForceRelay = true
	}
	if opts.BrokerPort != 0 {
		c.BrokerPort = opts.BrokerPort
	}
}

func (c *Config) validate() error {
	if c.StaleAfter <= 0 {
		return fmt.Errorf("stale_after must be positive, got %s", c.StaleAfter)
	}
	if c.FrameRate <= 0 || c.FrameRate > 240 {
		return fmt.Errorf("frame_rate must be in 1..240, got %d", c.FrameRate)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.ForceRelay && c.GetTURNServers() == nil {
		return fmt.Errorf("cannot force relay mode without TURN server configured")
	}
	return nil
}

// BrokerURLForDomain builds the websocket URL for a broker domain.
// Loopback hosts get plain ws, everything else wss.
func BrokerURLForDomain(domain string) string {
	scheme := "wss"
	host := domain
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.HasSuffix(host, "]") {
		host = host[:i]
	}
	switch host {
	case "localhost", "127.0.0.1", "[::1]":
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, domain)
}

// FrameInterval is the display refresh period derived from FrameRate.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", strings.TrimPrefix(c.TURNServer, "turn:")),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
