// Package inspection turns registered systems into inspection records and
// sweeps, and runs sweeps on a timer.
package inspection

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"uptime-inspector/logging"
	"uptime-inspector/model"
)

// SystemSource is the part of the system registry the engine reads.
type SystemSource interface {
	ListSystems(ctx context.Context) ([]model.System, error)
	GetSystem(ctx context.Context, id string) (model.System, error)
}

// Prober probes a system's menus and returns one result per menu, in order.
type Prober interface {
	ProbeMenus(ctx context.Context, baseURL string, menus []model.Menu) []model.MenuProbeResult
}

type Assembler struct {
	systems SystemSource
	prober  Prober
	logger  *zap.Logger
	now     func() time.Time
}

func NewAssembler(systems SystemSource, prober Prober, logger *zap.Logger) *Assembler {
	return &Assembler{
		systems: systems,
		prober:  prober,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Assemble inspects one system. Manual inspections that carry results use
// them as given; everything else probes each menu under the base URL.
func (a *Assembler) Assemble(ctx context.Context, systemID string, typ model.InspectionType, actor string, manual []model.MenuProbeResult) (model.InspectionRecord, error) {
	if !typ.Valid() {
		return model.InspectionRecord{}, fmt.Errorf("inspection type %q: %w", typ, model.ErrValidation)
	}
	sys, err := a.systems.GetSystem(ctx, systemID)
	if err != nil {
		return model.InspectionRecord{}, fmt.Errorf("resolve system %s: %w", systemID, err)
	}

	start := a.now()
	var results []model.MenuProbeResult
	if typ == model.InspectionManual && len(manual) > 0 {
		results = append([]model.MenuProbeResult(nil), manual...)
	} else {
		results = a.prober.ProbeMenus(ctx, sys.BaseURL, sys.Menus)
	}
	end := a.now()
	if end.Before(start) {
		end = start
	}

	rec := model.InspectionRecord{
		ID:                fmt.Sprintf("%s_%d", sys.ID, start.Unix()),
		SystemID:          sys.ID,
		SystemEnglishName: sys.EnglishName,
		SystemKoreanName:  sys.KoreanName,
		SystemURL:         sys.BaseURL,
		InspectionType:    typ,
		CreatedBy:         actor,
		StartedAt:         start,
		EndedAt:           end,
		Results:           results,
	}
	success, failed := rec.Counts()
	a.logger.Debug("system inspected",
		zap.String("system_id", sys.ID),
		zap.String("inspection_type", string(typ)),
		zap.Int("success", success),
		zap.Int("failed", failed),
		zap.Duration("elapsed", end.Sub(start)),
	)
	return rec, nil
}
