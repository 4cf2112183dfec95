// Package api exposes the inspection engine over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"uptime-inspector/inspection"
	"uptime-inspector/logging"
	"uptime-inspector/model"
	"uptime-inspector/stats"
)

type Inspector interface {
	Inspect(ctx context.Context, systemID string, typ model.InspectionType, actor string, manual []model.MenuProbeResult) (model.InspectionRecord, error)
	RunSweep(ctx context.Context, actor string) (model.Sweep, error)
}

type HistoryReader interface {
	HistoryBySystem(ctx context.Context, systemID string, limit int) ([]model.InspectionRecord, error)
}

type StatsReader interface {
	Dashboard(ctx context.Context) (stats.Dashboard, error)
	SystemStatistics(ctx context.Context, systemID string) (stats.SystemStatistics, error)
	Summary(ctx context.Context) (stats.Summary, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipients []string) (int, error)
}

type Prober interface {
	Probe(ctx context.Context, fullURL string, timeout time.Duration) model.MenuProbeResult
}

type Scheduler interface {
	Status() inspection.Status
	RunNow(ctx context.Context) (model.Sweep, error)
}

type SystemRegistry interface {
	ListSystems(ctx context.Context) ([]model.System, error)
	GetSystem(ctx context.Context, id string) (model.System, error)
	CreateSystem(ctx context.Context, s model.System, actor string) (model.System, error)
	UpdateSystem(ctx context.Context, id string, s model.System, actor string) (model.System, error)
	DeleteSystem(ctx context.Context, id string) error
}

// Deps are the collaborators behind the routes. A nil Notifier or Scheduler
// disables the routes that need it.
type Deps struct {
	Inspector Inspector
	History   HistoryReader
	Stats     StatsReader
	Notifier  Notifier
	Prober    Prober
	Scheduler Scheduler
	Systems   SystemRegistry

	HeaderCheckTimeout time.Duration
	Logger             *zap.Logger
}

type server struct {
	Deps
	logger *zap.Logger
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	s := &server{Deps: d, logger: logging.OrNop(d.Logger)}
	if s.HeaderCheckTimeout <= 0 {
		s.HeaderCheckTimeout = 5 * time.Second
	}

	r := gin.New()
	r.Use(requestLogger(s.logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/inspections/sweep", s.runSweep)
	r.POST("/inspections/:systemId", s.inspect)
	r.GET("/inspections/:systemId/history", s.history)

	r.GET("/stats/dashboard", s.dashboard)
	r.GET("/stats/system/:systemId", s.systemStatistics)
	r.GET("/stats/summary", s.summary)

	r.POST("/probe", s.probe)

	if s.Notifier != nil {
		r.POST("/notify", s.notify)
	}
	if s.Scheduler != nil {
		r.GET("/scheduler/status", s.schedulerStatus)
		r.POST("/scheduler/run", s.schedulerRun)
	}

	r.GET("/systems", s.listSystems)
	r.POST("/systems", s.createSystem)
	r.GET("/systems/:id", s.getSystem)
	r.PUT("/systems/:id", s.updateSystem)
	r.DELETE("/systems/:id", s.deleteSystem)

	return r
}
