package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"food-console/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggerConfig
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{"info json", config.LoggerConfig{Level: "info", Encoding: "json"}, zapcore.InfoLevel, zapcore.DebugLevel},
		{"development defaults to debug", config.LoggerConfig{Development: true}, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn console", config.LoggerConfig{Level: "warn", Encoding: "console"}, zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		log, err := New(tt.cfg)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if !log.Core().Enabled(tt.enabled) {
			t.Errorf("%s: level %v disabled", tt.name, tt.enabled)
		}
		if log.Core().Enabled(tt.off) {
			t.Errorf("%s: level %v enabled", tt.name, tt.off)
		}
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(config.LoggerConfig{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(config.LoggerConfig{Level: "info", Encoding: "xml"}); err == nil {
		t.Error("expected error for unknown encoding")
	}
}
