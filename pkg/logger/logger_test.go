package logger

import (
	"testing"

	"finetica/pkg/config"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LoggerConfig
		debug bool
	}{
		{name: "debug", cfg: config.LoggerConfig{Level: "debug"}, debug: true},
		{name: "unknown level falls back to info", cfg: config.LoggerConfig{Level: "loud"}},
		{name: "console", cfg: config.LoggerConfig{Level: "warn", Format: "console", Service: "ingest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := newLogger(tt.cfg)
			if err != nil {
				t.Fatalf("newLogger: %v", err)
			}
			if got := l.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
		})
	}
}

func TestGetBeforeInit(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get must never return nil")
	}
}
