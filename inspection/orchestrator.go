package inspection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"uptime-inspector/logging"
	"uptime-inspector/model"
)

// SweepSaver persists a sweep and returns it with its assigned id.
type SweepSaver interface {
	SaveSweep(ctx context.Context, sw model.Sweep) (model.Sweep, error)
}

type Orchestrator struct {
	systems   SystemSource
	assembler *Assembler
	saver     SweepSaver
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrchestrator(systems SystemSource, assembler *Assembler, saver SweepSaver, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		systems:   systems,
		assembler: assembler,
		saver:     saver,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// Collect inspects every registered system in registry order without
// persisting anything. Systems that fail are listed in Skipped.
func (o *Orchestrator) Collect(ctx context.Context, actor string) (model.Sweep, error) {
	systems, err := o.systems.ListSystems(ctx)
	if err != nil {
		return model.Sweep{}, fmt.Errorf("list systems: %w", err)
	}
	if len(systems) == 0 {
		return model.Sweep{}, model.ErrNoSystems
	}

	sw := model.Sweep{CreatedAt: o.now()}
	for _, sys := range systems {
		if err := ctx.Err(); err != nil {
			return model.Sweep{}, err
		}
		rec, err := o.assembler.Assemble(ctx, sys.ID, model.InspectionAutomatic, actor, nil)
		if err != nil {
			o.logger.Warn("system skipped", zap.String("system_id", sys.ID), zap.Error(err))
			sw.Skipped = append(sw.Skipped, model.SkippedSystem{SystemID: sys.ID, Reason: err.Error()})
			continue
		}
		sw.Systems = append(sw.Systems, rec)
	}
	if len(sw.Systems) == 0 {
		return model.Sweep{}, fmt.Errorf("%d systems skipped: %w", len(sw.Skipped), model.ErrEmptySweep)
	}
	sw.UpdatedAt = o.now()
	return sw, nil
}

// RunSweep collects a sweep and stores it. A sweep with skipped systems is
// still stored and returned.
func (o *Orchestrator) RunSweep(ctx context.Context, actor string) (model.Sweep, error) {
	sw, err := o.Collect(ctx, actor)
	if err != nil {
		return model.Sweep{}, err
	}
	saved, err := o.saver.SaveSweep(ctx, sw)
	if err != nil {
		return model.Sweep{}, storeErr(err)
	}
	o.logger.Info("sweep completed",
		zap.String("sweep_id", saved.ID),
		zap.String("actor", actor),
		zap.Int("systems", len(saved.Systems)),
		zap.Int("skipped", len(saved.Skipped)),
	)
	return saved, nil
}

// Inspect assembles one system and stores it as a sweep of one record.
func (o *Orchestrator) Inspect(ctx context.Context, systemID string, typ model.InspectionType, actor string, manual []model.MenuProbeResult) (model.InspectionRecord, error) {
	rec, err := o.assembler.Assemble(ctx, systemID, typ, actor, manual)
	if err != nil {
		return model.InspectionRecord{}, err
	}
	now := o.now()
	if _, err := o.saver.SaveSweep(ctx, model.Sweep{CreatedAt: now, UpdatedAt: now, Systems: []model.InspectionRecord{rec}}); err != nil {
		return model.InspectionRecord{}, storeErr(err)
	}
	return rec, nil
}

func storeErr(err error) error {
	if errors.Is(err, model.ErrStoreUnavailable) {
		return fmt.Errorf("persist sweep: %w", err)
	}
	return fmt.Errorf("persist sweep: %w: %w", model.ErrStoreUnavailable, err)
}
