package main

import (
	"log/slog"
	"time"

	"chipbot/internal/config"
)

type botConfig struct {
	Port            uint16        `env:"PORT" default:"8080"`
	LogLevel        slog.Level    `env:"LOG_LEVEL" default:"INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
	Economy         config.Economy
}
