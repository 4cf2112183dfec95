// Package registry keeps the registered systems in the document store.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"uptime-inspector/docstore"
	"uptime-inspector/model"
)

const Collection = "systems"

type Registry struct {
	store  docstore.Store
	logger *zap.Logger
	now    func() time.Time
}

func New(store docstore.Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, logger: logger, now: time.Now}
}

// ListSystems returns every system, oldest first.
func (r *Registry) ListSystems(ctx context.Context) ([]model.System, error) {
	docs, err := r.store.ScanOrdered(ctx, Collection, "created_at", docstore.Asc, 0)
	if err != nil {
		return nil, storeErr("list systems", err)
	}
	out := make([]model.System, 0, len(docs))
	for _, d := range docs {
		s, err := toSystem(d)
		if err != nil {
			r.logger.Warn("skipping undecodable system", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Registry) GetSystem(ctx context.Context, id string) (model.System, error) {
	if strings.TrimSpace(id) == "" {
		return model.System{}, fmt.Errorf("system id is empty: %w", model.ErrValidation)
	}
	d, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return model.System{}, storeErr("get system "+id, err)
	}
	return toSystem(d)
}

// CreateSystem validates s, rejects duplicate English names and stores it
// under a fresh id.
func (r *Registry) CreateSystem(ctx context.Context, s model.System, actor string) (model.System, error) {
	if err := validate(s); err != nil {
		return model.System{}, err
	}
	dups, err := r.store.QueryByField(ctx, Collection, "eng_name", s.EnglishName, 1)
	if err != nil {
		return model.System{}, storeErr("check system name", err)
	}
	if len(dups) > 0 {
		return model.System{}, fmt.Errorf("system %q already exists: %w", s.EnglishName, model.ErrValidation)
	}

	s.ID = ""
	s.CreatedAt = r.now()
	s.CreatedBy = actor
	s.UpdatedAt = time.Time{}
	s.UpdatedBy = ""
	if s.Menus == nil {
		s.Menus = []model.Menu{}
	}
	data, err := docstore.ToMap(s)
	if err != nil {
		return model.System{}, err
	}
	delete(data, "id")
	id, err := r.store.Create(ctx, Collection, "", data)
	if err != nil {
		return model.System{}, storeErr("create system", err)
	}
	s.ID = id
	r.logger.Info("system registered", zap.String("system_id", id), zap.String("eng_name", s.EnglishName))
	return s, nil
}

// UpdateSystem replaces the editable fields of an existing system.
func (r *Registry) UpdateSystem(ctx context.Context, id string, s model.System, actor string) (model.System, error) {
	cur, err := r.GetSystem(ctx, id)
	if err != nil {
		return model.System{}, err
	}
	if err := validate(s); err != nil {
		return model.System{}, err
	}
	if s.EnglishName != cur.EnglishName {
		dups, err := r.store.QueryByField(ctx, Collection, "eng_name", s.EnglishName, 1)
		if err != nil {
			return model.System{}, storeErr("check system name", err)
		}
		if len(dups) > 0 {
			return model.System{}, fmt.Errorf("system %q already exists: %w", s.EnglishName, model.ErrValidation)
		}
	}

	cur.EnglishName = s.EnglishName
	cur.KoreanName = s.KoreanName
	cur.BaseURL = s.BaseURL
	cur.Menus = s.Menus
	if cur.Menus == nil {
		cur.Menus = []model.Menu{}
	}
	cur.UpdatedAt = r.now()
	cur.UpdatedBy = actor

	partial := map[string]any{
		"eng_name":   cur.EnglishName,
		"kor_name":   cur.KoreanName,
		"url":        cur.BaseURL,
		"menus":      cur.Menus,
		"updated_at": cur.UpdatedAt,
		"updated_by": cur.UpdatedBy,
	}
	if err := r.store.Update(ctx, Collection, id, partial); err != nil {
		return model.System{}, storeErr("update system "+id, err)
	}
	return cur, nil
}

func (r *Registry) DeleteSystem(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return storeErr("delete system "+id, err)
	}
	r.logger.Info("system deleted", zap.String("system_id", id))
	return nil
}

func validate(s model.System) error {
	if strings.TrimSpace(s.EnglishName) == "" {
		return fmt.Errorf("eng_name is required: %w", model.ErrValidation)
	}
	if strings.TrimSpace(s.KoreanName) == "" {
		return fmt.Errorf("kor_name is required: %w", model.ErrValidation)
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q must be an absolute http(s) URL: %w", s.BaseURL, model.ErrValidation)
	}
	for i, m := range s.Menus {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("menu %d has no name: %w", i, model.ErrValidation)
		}
	}
	return nil
}

func toSystem(d docstore.Document) (model.System, error) {
	var s model.System
	if err := d.Decode(&s); err != nil {
		return model.System{}, fmt.Errorf("decode system %s: %w", d.ID, err)
	}
	s.ID = d.ID
	return s, nil
}

func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	case errors.Is(err, docstore.ErrField):
		return fmt.Errorf("%s: %w: %w", op, model.ErrValidation, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}
