package otel

import (
	"io"
	"os"

	"github.com/emiliopalmerini/socialab/internal/infrastructure/config"
)

const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

// Config holds OTEL exporter configuration.
type Config struct {
	Endpoint string
	Enabled  bool
	Insecure bool
	Exporter string
	// Writer receives stdout exporter output. Defaults to os.Stderr.
	Writer io.Writer
}

// ConfigFrom maps application configuration onto exporter configuration.
func ConfigFrom(cfg config.OTel) Config {
	return Config{
		Endpoint: cfg.Endpoint,
		Enabled:  cfg.Enabled,
		Insecure: cfg.Insecure,
		Exporter: cfg.Exporter,
		Writer:   os.Stderr,
	}
}
