// Package uptime implements the probe executor: one HTTP GET per menu with a
// bounded timeout, classified into a model.MenuProbeResult.
package uptime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"uptime-inspector/logging"
	"uptime-inspector/model"
)

const (
	DefaultTimeout     = 10 * time.Second
	HeaderCheckTimeout = 5 * time.Second
	defaultMenuWorkers = 8
)

type Checker struct {
	httpClient *http.Client
	timeout    time.Duration
	numWorkers int
	logLevel   LogLevel

	enableInternalLogs bool
	logger             *zap.Logger
	loggerExplicit     bool // set when WithLogger used

	// logging configuration accumulated by options
	logOpts logging.Options
}

// ===== Constructor =====
func New(opts ...Option) *Checker {
	c := &Checker{
		// per-probe deadlines come from the request context
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		numWorkers: defaultMenuWorkers,
		logLevel:   LogInfo,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Build logger after options applied unless explicitly provided
	if !c.loggerExplicit {
		c.logger = logging.New(c.logOpts)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

func (c *Checker) Timeout() time.Duration { return c.timeout }

func (c *Checker) Logger() *zap.Logger { return c.logger }

// ===== Public API =====

// Probe issues a GET against fullURL. A zero timeout uses the checker default.
// Transport failures never escape: they come back as classified results.
func (c *Checker) Probe(ctx context.Context, fullURL string, timeout time.Duration) model.MenuProbeResult {
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return transportFailure(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return timedOut(timeout)
		}
		return transportFailure(err)
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	return model.MenuProbeResult{
		StatusCode:     resp.StatusCode,
		StatusLabel:    StatusLabel(resp.StatusCode),
		ResponseTimeMs: millis(elapsed),
		Headers:        flattenHeaders(resp.Header),
	}
}

func timedOut(timeout time.Duration) model.MenuProbeResult {
	return model.MenuProbeResult{
		StatusCode:     StatusTimeout,
		StatusLabel:    LabelTimeout,
		ResponseTimeMs: float64(timeout.Milliseconds()),
		Headers:        map[string]string{},
	}
}

func transportFailure(err error) model.MenuProbeResult {
	return model.MenuProbeResult{
		StatusCode:     StatusTransport,
		StatusLabel:    labelErrorPrefix + err.Error(),
		ResponseTimeMs: 0,
		Headers:        map[string]string{},
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func millis(d time.Duration) float64 {
	ms := decimal.NewFromInt(d.Nanoseconds()).Div(decimal.NewFromInt(int64(time.Millisecond)))
	return ms.Round(2).InexactFloat64()
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func (c *Checker) log(url string, res model.MenuProbeResult) {
	switch c.logLevel {
	case LogNone:
		return
	case LogError:
		if res.IsError() {
			c.logger.Error("Menu DOWN", zap.String("url", url), zap.Int("status_code", res.StatusCode), zap.String("status", res.StatusLabel))
		}
	case LogInfo:
		if res.IsError() {
			c.logger.Warn("Menu DOWN", zap.String("url", url), zap.Int("status_code", res.StatusCode), zap.String("status", res.StatusLabel))
		} else {
			c.logger.Info("Menu UP", zap.String("url", url), zap.Int("status_code", res.StatusCode))
		}
	case LogDebug:
		c.logger.Debug("Menu check", zap.String("url", url),
			zap.Int("status_code", res.StatusCode), zap.Float64("response_time_ms", res.ResponseTimeMs), zap.String("status", res.StatusLabel))
	}
}

// ===== Internal Logging Helper =====
func (c *Checker) ilog(format string, args ...interface{}) {
	if c.enableInternalLogs {
		c.logger.Info(fmt.Sprintf("[INTERNAL] "+format, args...))
	}
}
