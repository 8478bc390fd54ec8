package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (COLORCAST_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", os.Getenv("COLORCAST_LISTEN"), &cfg.Listen)
	s.setListFromString("ice-server", os.Getenv("COLORCAST_ICE_SERVERS"), &cfg.ICEServers)
	s.setString("shape", os.Getenv("COLORCAST_SHAPE"), &cfg.Shape)
	s.setString("color", os.Getenv("COLORCAST_DEFAULT_COLOR"), &cfg.DefaultColor)
	s.setString("signaler-url", os.Getenv("COLORCAST_SIGNALER_URL"), &cfg.SignalerURL)
	s.setString("signaler-id", os.Getenv("COLORCAST_SIGNALER_ID"), &cfg.SignalerID)
	s.setString("log-level", os.Getenv("COLORCAST_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("COLORCAST_LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("gather-timeout", os.Getenv("COLORCAST_GATHER_TIMEOUT"), &cfg.GatherTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("COLORCAST_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	if err := s.setFloatFromString("size-fraction", os.Getenv("COLORCAST_SIZE_FRACTION"), &cfg.SizeFraction); err != nil {
		return err
	}

	if err := s.setIntFromString("udp-port", os.Getenv("COLORCAST_UDP_PORT"), &cfg.UDPPort); err != nil {
		return err
	}
	if err := s.setIntFromString("jpeg-quality", os.Getenv("COLORCAST_JPEG_QUALITY"), &cfg.JPEGQuality); err != nil {
		return err
	}
	if err := s.setIntFromString("max-message-bytes", os.Getenv("COLORCAST_MAX_MESSAGE_BYTES"), &cfg.MaxMessageBytes); err != nil {
		return err
	}

	return nil
}
