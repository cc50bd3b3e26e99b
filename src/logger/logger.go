package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otellogrus"
)

type LoggerConfig struct {
	Level string
	JSON  bool

	// OtelHook attaches warn and above records to the active span.
	OtelHook bool
	Output   io.Writer
}

func LoggerConfigFromEnv() LoggerConfig {
	return LoggerConfig{
		Level:    os.Getenv("LOG_LEVEL"),
		JSON:     strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		OtelHook: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
	}
}

// Setup configures l. An empty level means info.
func Setup(l *logrus.Logger, cfg LoggerConfig) error {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("logger.Setup: %w", err)
		}
		level = parsed
	}

	l.SetLevel(level)

	if cfg.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	if cfg.OtelHook {
		l.AddHook(otellogrus.NewHook(otellogrus.WithLevels(
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
			logrus.WarnLevel,
		)))
	}

	return nil
}
