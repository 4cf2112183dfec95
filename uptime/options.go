// Package uptime exposes configuration options for the Checker via a
// functional options API.
package uptime

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ===== Options Pattern =====
type Option func(*Checker)

// WithWorkers bounds how many menus of one system are probed at once.
func WithWorkers(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.numWorkers = n
		}
	}
}

// WithTimeout sets the default per-probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogLevel(level LogLevel) Option {
	return func(c *Checker) { c.logLevel = level }
}

// enable/disable internal logs
func WithInternalLogs(enabled bool) Option {
	return func(c *Checker) { c.enableInternalLogs = enabled }
}

// WithLogger allows injecting a custom zap logger (useful in tests).
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) {
		c.logger = l
		c.loggerExplicit = l != nil
	}
}

// LogConsole switches the console sink on or off.
func LogConsole(enabled bool) Option {
	return func(c *Checker) { c.logOpts.Console = &enabled }
}

// LogFile adds a file sink. Repeatable.
func LogFile(path string) Option {
	return func(c *Checker) { c.logOpts.Files = append(c.logOpts.Files, path) }
}

// DisableLogs turns logging off entirely.
func DisableLogs() Option {
	return func(c *Checker) { c.logOpts.Disable = true }
}

