// Package logging builds the zap loggers used across the service.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Disable returns a no-op logger.
	Disable bool
	// Console is on unless explicitly set to false.
	Console *bool
	Files   []string
	// Level is a zap level name ("debug", "info", "warn", "error"). Empty means info.
	Level string
}

// New builds a production zap logger writing to the selected outputs.
func New(o Options) *zap.Logger {
	if o.Disable {
		return zap.NewNop()
	}

	console := true
	if o.Console != nil {
		console = *o.Console
	}

	var paths []string
	seen := map[string]struct{}{}
	if console {
		paths = append(paths, "stdout")
		seen["stdout"] = struct{}{}
	}
	for _, f := range o.Files {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		paths = append(paths, f)
	}

	if len(paths) == 0 {
		// nothing selected: fall back to console
		return Default()
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = paths
	if o.Level != "" {
		if lvl, err := zapcore.ParseLevel(o.Level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Default is the console production logger.
func Default() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
