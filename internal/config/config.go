// Copyright 2025 Tomas Cupr
//
// Configuration for the computer-use MCP server

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// TransportType selects the MCP transport.
type TransportType string

const (
	// TransportStdio uses stdin/stdout for communication
	TransportStdio TransportType = "stdio"
	// TransportHTTP uses HTTP/SSE for communication
	TransportHTTP TransportType = "sse"
)

// Config holds the full server configuration, populated from environment
// variables once at startup.
type Config struct {
	Transport         TransportType `env:"COMPUTER_USE_TRANSPORT" envDefault:"stdio"`
	HTTPAddress       string        `env:"MCP_HTTP_ADDRESS" envDefault:":8080"`
	HTTPSocketPath    string        `env:"MCP_HTTP_SOCKET"`
	CORSOrigin        string        `env:"MCP_CORS_ORIGIN" envDefault:"*"`
	HeartbeatInterval time.Duration `env:"MCP_HEARTBEAT_INTERVAL" envDefault:"30s"`
	HTTPReadTimeout   time.Duration `env:"MCP_HTTP_READ_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout  time.Duration `env:"MCP_HTTP_WRITE_TIMEOUT" envDefault:"0s"`
	RateLimit         float64       `env:"MCP_RATE_LIMIT" envDefault:"0"`
	APIKey            string        `env:"MCP_API_KEY"`
	TLSCertFile       string        `env:"MCP_TLS_CERT"`
	TLSKeyFile        string        `env:"MCP_TLS_KEY"`
	AuditLogPath      string        `env:"MCP_AUDIT_LOG"`

	// RequestTimeout bounds a single tool call, in seconds.
	RequestTimeout int  `env:"COMPUTER_USE_REQUEST_TIMEOUT" envDefault:"30"`
	Debug          bool `env:"COMPUTER_USE_DEBUG" envDefault:"false"`

	// Virtual resolution advertised to callers; coordinates and
	// screenshots are scaled to it unless scaling is disabled.
	VirtualWidth   int           `env:"COMPUTER_USE_VIRTUAL_WIDTH" envDefault:"1366"`
	VirtualHeight  int           `env:"COMPUTER_USE_VIRTUAL_HEIGHT" envDefault:"768"`
	ScalingEnabled bool          `env:"COMPUTER_USE_SCALING" envDefault:"true"`
	SettleDelay    time.Duration `env:"COMPUTER_USE_SETTLE_DELAY" envDefault:"1s"`
	OutputDir      string        `env:"COMPUTER_USE_OUTPUT_DIR" envDefault:"/tmp/outputs"`

	// Explicit real display size; zero means probe at startup.
	DisplayWidth  int `env:"COMPUTER_USE_DISPLAY_WIDTH" envDefault:"0"`
	DisplayHeight int `env:"COMPUTER_USE_DISPLAY_HEIGHT" envDefault:"0"`

	// External tool binaries, overridable for nonstandard installs.
	CliclickBin      string `env:"COMPUTER_USE_CLICLICK" envDefault:"cliclick"`
	ScreencaptureBin string `env:"COMPUTER_USE_SCREENCAPTURE" envDefault:"screencapture"`
	SipsBin          string `env:"COMPUTER_USE_SIPS" envDefault:"sips"`
}

// Load parses the configuration from environment variables and validates
// it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("invalid transport type: %s (must be 'stdio' or 'sse')", c.Transport)
	}
	if c.VirtualWidth <= 0 || c.VirtualHeight <= 0 {
		return fmt.Errorf("invalid virtual resolution %dx%d", c.VirtualWidth, c.VirtualHeight)
	}
	if (c.DisplayWidth == 0) != (c.DisplayHeight == 0) {
		return fmt.Errorf("display width and height must be set together")
	}
	if c.DisplayWidth < 0 || c.DisplayHeight < 0 {
		return fmt.Errorf("invalid display resolution %dx%d", c.DisplayWidth, c.DisplayHeight)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS cert and key must be set together")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}
