package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shynome/colorcast/overlay"
)

// DefaultICEServer is the public STUN server used when none is configured.
const DefaultICEServer = "stun:stun.l.google.com:19302"

// Config holds CLI configuration for colorcast.
type Config struct {
	Listen     string
	UDPPort    int
	ICEServers []string

	Shape        string
	SizeFraction float64
	DefaultColor string

	JPEGQuality     int
	MaxMessageBytes int

	GatherTimeout   time.Duration
	ShutdownTimeout time.Duration

	SignalerURL string
	SignalerID  string

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Listen:          ":8000",
		ICEServers:      []string{DefaultICEServer},
		Shape:           overlay.Rectangle.String(),
		SizeFraction:    0.3,
		DefaultColor:    "0,0,0",
		JPEGQuality:     90,
		MaxMessageBytes: 16 << 20, // 16MiB
		GatherTimeout:   10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.UDPPort < 0 || c.UDPPort > 65535 {
		return fmt.Errorf("udp port %d out of range", c.UDPPort)
	}
	if _, err := c.Overlay(); err != nil {
		return err
	}
	if _, err := c.Color(); err != nil {
		return fmt.Errorf("default color: %w", err)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be in 1..100")
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("max message bytes must be positive")
	}
	if c.GatherTimeout <= 0 {
		return fmt.Errorf("gather timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.SignalerURL != "" && c.SignalerID == "" {
		return fmt.Errorf("signaler-id is required with signaler-url")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Overlay returns the shape configuration shared by every frame path.
func (c *Config) Overlay() (overlay.Config, error) {
	shape, err := overlay.ParseShape(c.Shape)
	if err != nil {
		return overlay.Config{}, err
	}
	return overlay.NewConfig(shape, c.SizeFraction)
}

// Color parses DefaultColor, the overlay color of a session before its first
// control message.
func (c *Config) Color() (overlay.Color, error) {
	return overlay.ParseColorList(c.DefaultColor)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if present in the file and flag not changed.
// Out of range values are kept for Validate to reject.
func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setListFromString splits a comma separated list, dropping empty items.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	s.setStrings(flag, items, dst)
}
