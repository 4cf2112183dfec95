// Package history persists sweeps in the inspection_history collection and
// reads them back in one canonical shape.
//
// Two document shapes exist in stored data. Current documents hold a list of
// per-system records under inspection_systems. Older documents are flat: one
// system's fields and results sit directly on the document. Both decode into
// a model.Sweep; flat documents become a sweep of one record with Legacy set.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"uptime-inspector/docstore"
	"uptime-inspector/model"
	"uptime-inspector/timestamp"
)

const (
	Collection = "inspection_history"
	// IDLayout formats sweep ids from the sweep creation time.
	IDLayout = "20060102150405"

	maxIDAttempts = 100
)

// Entry is one decoded history document.
type Entry struct {
	DocID string
	// Stamp is the raw document date: created_at, or inspection_start when
	// created_at is absent. Nil when neither resolves.
	Stamp timestamp.Value
	Sweep model.Sweep
}

// Time normalizes the entry's stamp in loc.
func (e Entry) Time(loc *time.Location) (time.Time, error) {
	return timestamp.Normalize(e.Stamp, loc)
}

type Store struct {
	docs   docstore.Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Store)

// WithLocation sets the zone stored timestamps are read in. Default time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(docs docstore.Store, opts ...Option) *Store {
	s := &Store{docs: docs, loc: time.Local, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Location() *time.Location { return s.loc }

// SaveSweep stores sw under an id derived from its creation time. A second
// sweep in the same second gets "-2", then "-3" and so on.
func (s *Store) SaveSweep(ctx context.Context, sw model.Sweep) (model.Sweep, error) {
	if sw.CreatedAt.IsZero() {
		sw.CreatedAt = s.now()
	}
	if sw.UpdatedAt.IsZero() {
		sw.UpdatedAt = sw.CreatedAt
	}
	data, err := docstore.ToMap(encodeSweep(sw, s.loc))
	if err != nil {
		return model.Sweep{}, fmt.Errorf("encode sweep: %w", err)
	}

	base := sw.CreatedAt.In(s.loc).Format(IDLayout)
	for n := 1; n <= maxIDAttempts; n++ {
		id := base
		if n > 1 {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		_, err := s.docs.Create(ctx, Collection, id, data)
		if errors.Is(err, docstore.ErrExists) {
			continue
		}
		if err != nil {
			return model.Sweep{}, fmt.Errorf("save sweep %s: %w: %w", id, model.ErrStoreUnavailable, err)
		}
		sw.ID = id
		s.logger.Info("sweep saved", zap.String("sweep_id", id), zap.Int("systems", len(sw.Systems)))
		return sw, nil
	}
	return model.Sweep{}, fmt.Errorf("save sweep %s: no free id after %d attempts: %w", base, maxIDAttempts, model.ErrStoreUnavailable)
}

func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	d, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Entry{}, fmt.Errorf("sweep %s: %w", id, model.ErrNotFound)
		}
		return Entry{}, fmt.Errorf("get sweep %s: %w: %w", id, model.ErrStoreUnavailable, err)
	}
	return s.decode(d), nil
}

// All returns every history document in id order.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	docs, err := s.docs.ScanOrdered(ctx, Collection, "", docstore.Asc, 0)
	if err != nil {
		return nil, fmt.Errorf("scan history: %w: %w", model.ErrStoreUnavailable, err)
	}
	return s.decodeAll(docs), nil
}

// Recent returns up to limit documents, newest created_at first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	docs, err := s.docs.ScanOrdered(ctx, Collection, "created_at", docstore.Desc, limit)
	if err != nil {
		return nil, fmt.Errorf("scan recent history: %w: %w", model.ErrStoreUnavailable, err)
	}
	return s.decodeAll(docs), nil
}

// HistoryBySystem returns the system's records newest first, at most one per
// sweep. limit <= 0 means no limit.
func (s *Store) HistoryBySystem(ctx context.Context, systemID string, limit int) ([]model.InspectionRecord, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	type hit struct {
		at  time.Time
		rec model.InspectionRecord
	}
	var hits []hit
	for _, e := range entries {
		for _, rec := range e.Sweep.Systems {
			if rec.SystemID != systemID {
				continue
			}
			at, err := e.Time(s.loc)
			if err != nil {
				at = rec.InspectedAt()
			}
			hits = append(hits, hit{at: at, rec: rec})
			break
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at.After(hits[j].at) })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.InspectionRecord, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.rec)
	}
	return out, nil
}

func (s *Store) decodeAll(docs []docstore.Document) []Entry {
	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, s.decode(d))
	}
	return out
}
