// Package obslog wires a single process-wide zap logger, mirroring the
// debug-mode switch the teacher's cmd/nerd/main.go applies to its own
// logger construction.
package obslog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once sync.Once
	base *zap.Logger
)

// Init builds the process logger. Safe to call multiple times; only the
// first call takes effect.
func Init(component string) *zap.Logger {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if os.Getenv("SURF_DEBUG") != "" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		base = l
	})
	return base.With(zap.String("component", component))
}

// For returns a child logger scoped to component, initializing the base
// logger on first use so packages never need an explicit Init call.
func For(component string) *zap.Logger {
	if base == nil {
		return Init(component)
	}
	return base.With(zap.String("component", component))
}

// Sync flushes the base logger; call from main before exit.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
