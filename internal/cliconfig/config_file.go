package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
// Numbers are pointers so an explicit zero or negative value is told apart
// from a missing key.
type FileConfig struct {
	Listen          string   `toml:"listen"`
	UDPPort         *int     `toml:"udp_port"`
	ICEServers      []string `toml:"ice_servers"`
	Shape           string   `toml:"shape"`
	SizeFraction    *float64 `toml:"size_fraction"`
	DefaultColor    string   `toml:"default_color"`
	JPEGQuality     *int     `toml:"jpeg_quality"`
	MaxMessageBytes *int     `toml:"max_message_bytes"`
	GatherTimeout   string   `toml:"gather_timeout"`
	ShutdownTimeout string   `toml:"shutdown_timeout"`
	SignalerURL     string   `toml:"signaler_url"`
	SignalerID      string   `toml:"signaler_id"`
	LogLevel        string   `toml:"log_level"`
	LogFormat       string   `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.colorcast/config.toml, or "" without a home
// directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".colorcast", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", fc.Listen, &cfg.Listen)
	s.setStrings("ice-server", fc.ICEServers, &cfg.ICEServers)
	s.setString("shape", fc.Shape, &cfg.Shape)
	s.setString("color", fc.DefaultColor, &cfg.DefaultColor)
	s.setString("signaler-url", fc.SignalerURL, &cfg.SignalerURL)
	s.setString("signaler-id", fc.SignalerID, &cfg.SignalerID)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	if err := s.setDuration("gather-timeout", fc.GatherTimeout, &cfg.GatherTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setFloat("size-fraction", fc.SizeFraction, &cfg.SizeFraction)

	s.setInt("udp-port", fc.UDPPort, &cfg.UDPPort)
	s.setInt("jpeg-quality", fc.JPEGQuality, &cfg.JPEGQuality)
	s.setInt("max-message-bytes", fc.MaxMessageBytes, &cfg.MaxMessageBytes)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
