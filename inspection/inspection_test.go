package inspection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uptime-inspector/docstore"
	"uptime-inspector/history"
	"uptime-inspector/model"
	"uptime-inspector/uptime"
)

type fakeSystems struct {
	list    []model.System
	failGet map[string]bool
	listErr error
}

func (f *fakeSystems) ListSystems(context.Context) ([]model.System, error) {
	return f.list, f.listErr
}

func (f *fakeSystems) GetSystem(_ context.Context, id string) (model.System, error) {
	if f.failGet[id] {
		return model.System{}, errors.New("registry lookup failed")
	}
	for _, s := range f.list {
		if s.ID == id {
			return s, nil
		}
	}
	return model.System{}, model.ErrNotFound
}

type countingProber struct {
	calls atomic.Int32
	inner Prober
}

func (p *countingProber) ProbeMenus(ctx context.Context, base string, menus []model.Menu) []model.MenuProbeResult {
	p.calls.Add(1)
	if p.inner == nil {
		out := make([]model.MenuProbeResult, len(menus))
		for i, m := range menus {
			out[i] = model.MenuProbeResult{MenuName: m.Name, Path: m.Path, StatusCode: 200, StatusLabel: "OK"}
		}
		return out
	}
	return p.inner.ProbeMenus(ctx, base, menus)
}

type failingSaver struct{}

func (failingSaver) SaveSweep(context.Context, model.Sweep) (model.Sweep, error) {
	return model.Sweep{}, errors.New("disk full")
}

func system(id, base string) model.System {
	return model.System{ID: id, EnglishName: id, KoreanName: id, BaseURL: base, Menus: []model.Menu{{Name: "health", Path: "/health"}}}
}

func checker(timeout time.Duration) *uptime.Checker {
	return uptime.New(uptime.WithTimeout(timeout), uptime.DisableLogs())
}

func TestAssembleHealthyMenu(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAssembler(&fakeSystems{list: []model.System{system("S", srv.URL)}}, checker(time.Second), nil)
	rec, err := a.Assemble(context.Background(), "S", model.InspectionAutomatic, "tester", nil)
	require.NoError(t, err)

	require.Len(t, rec.Results, 1)
	res := rec.Results[0]
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "OK", res.StatusLabel)
	assert.Equal(t, "health", res.MenuName)
	assert.GreaterOrEqual(t, res.ResponseTimeMs, 50.0)
	assert.Less(t, res.ResponseTimeMs, 1000.0)
	assert.Equal(t, srv.URL, rec.SystemURL)
	assert.Equal(t, "tester", rec.CreatedBy)
	assert.False(t, rec.EndedAt.Before(rec.StartedAt))
	assert.True(t, strings.HasPrefix(rec.ID, "S_"))
}

func TestAssembleUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	a := NewAssembler(&fakeSystems{list: []model.System{system("S", base)}}, checker(time.Second), nil)
	rec, err := a.Assemble(context.Background(), "S", model.InspectionAutomatic, "tester", nil)
	require.NoError(t, err)
	require.Len(t, rec.Results, 1)
	assert.Equal(t, 0, rec.Results[0].StatusCode)
	assert.True(t, strings.HasPrefix(rec.Results[0].StatusLabel, "error:"))
	assert.True(t, rec.HasError())
}

func TestAssembleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	a := NewAssembler(&fakeSystems{list: []model.System{system("S", srv.URL)}}, checker(100*time.Millisecond), nil)
	rec, err := a.Assemble(context.Background(), "S", model.InspectionAutomatic, "tester", nil)
	require.NoError(t, err)
	require.Len(t, rec.Results, 1)
	assert.Equal(t, 408, rec.Results[0].StatusCode)
	assert.Equal(t, "request timed out", rec.Results[0].StatusLabel)
	assert.Equal(t, 100.0, rec.Results[0].ResponseTimeMs)
}

func TestAssembleManualUsesSuppliedResults(t *testing.T) {
	p := &countingProber{}
	a := NewAssembler(&fakeSystems{list: []model.System{system("S", "http://unused")}}, p, nil)
	manual := []model.MenuProbeResult{{MenuName: "health", Path: "/health", StatusCode: 500, StatusLabel: "Internal Server Error"}}

	rec, err := a.Assemble(context.Background(), "S", model.InspectionManual, "admin", manual)
	require.NoError(t, err)
	assert.Equal(t, manual, rec.Results)
	assert.Equal(t, model.InspectionManual, rec.InspectionType)
	assert.Zero(t, p.calls.Load())

	// manual without results falls back to probing
	_, err = a.Assemble(context.Background(), "S", model.InspectionManual, "admin", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestAssembleValidation(t *testing.T) {
	a := NewAssembler(&fakeSystems{}, &countingProber{}, nil)

	_, err := a.Assemble(context.Background(), "S", "nightly", "admin", nil)
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = a.Assemble(context.Background(), "S", "", "admin", nil)
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = a.Assemble(context.Background(), "missing", model.InspectionAutomatic, "admin", nil)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestAssembleClampsEndToStart(t *testing.T) {
	a := NewAssembler(&fakeSystems{list: []model.System{system("S", "http://x")}}, &countingProber{}, nil)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	a.now = func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(-time.Hour)
	}

	rec, err := a.Assemble(context.Background(), "S", model.InspectionAutomatic, "admin", nil)
	require.NoError(t, err)
	assert.Equal(t, start, rec.EndedAt)
	assert.Equal(t, "S_1704110400", rec.ID)
}

func TestSweepSkipsFailedLookup(t *testing.T) {
	ctx := context.Background()
	systems := &fakeSystems{
		list:    []model.System{system("s1", "http://a"), system("s2", "http://b"), system("s3", "http://c")},
		failGet: map[string]bool{"s2": true},
	}
	docs := docstore.NewMemory()
	store := history.New(docs)
	o := NewOrchestrator(systems, NewAssembler(systems, &countingProber{}, nil), store, nil)

	sw, err := o.RunSweep(ctx, "tester")
	require.NoError(t, err)
	require.Len(t, sw.Systems, 2)
	assert.Equal(t, "s1", sw.Systems[0].SystemID)
	assert.Equal(t, "s3", sw.Systems[1].SystemID)
	require.Len(t, sw.Skipped, 1)
	assert.Equal(t, "s2", sw.Skipped[0].SystemID)

	stored, err := docs.ScanOrdered(ctx, history.Collection, "", docstore.Asc, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Len(t, stored[0].Data["inspection_systems"], 2)
}

func TestSweepErrors(t *testing.T) {
	ctx := context.Background()

	empty := &fakeSystems{}
	o := NewOrchestrator(empty, NewAssembler(empty, &countingProber{}, nil), history.New(docstore.NewMemory()), nil)
	_, err := o.RunSweep(ctx, "tester")
	assert.True(t, errors.Is(err, model.ErrNoSystems))

	allFail := &fakeSystems{list: []model.System{system("s1", "http://a")}, failGet: map[string]bool{"s1": true}}
	docs := docstore.NewMemory()
	o = NewOrchestrator(allFail, NewAssembler(allFail, &countingProber{}, nil), history.New(docs), nil)
	_, err = o.RunSweep(ctx, "tester")
	assert.True(t, errors.Is(err, model.ErrEmptySweep))
	stored, err := docs.ScanOrdered(ctx, history.Collection, "", docstore.Asc, 0)
	require.NoError(t, err)
	assert.Empty(t, stored)

	ok := &fakeSystems{list: []model.System{system("s1", "http://a")}}
	o = NewOrchestrator(ok, NewAssembler(ok, &countingProber{}, nil), failingSaver{}, nil)
	_, err = o.RunSweep(ctx, "tester")
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable))
}

func TestCollectDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	systems := &fakeSystems{list: []model.System{system("s1", "http://a")}}
	docs := docstore.NewMemory()
	o := NewOrchestrator(systems, NewAssembler(systems, &countingProber{}, nil), history.New(docs), nil)

	sw, err := o.Collect(ctx, "email_api")
	require.NoError(t, err)
	assert.Len(t, sw.Systems, 1)
	assert.Empty(t, sw.ID)

	stored, err := docs.ScanOrdered(ctx, history.Collection, "", docstore.Asc, 0)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestInspectStoresSweepOfOne(t *testing.T) {
	ctx := context.Background()
	systems := &fakeSystems{list: []model.System{system("s1", "http://a")}}
	store := history.New(docstore.NewMemory())
	o := NewOrchestrator(systems, NewAssembler(systems, &countingProber{}, nil), store, nil)

	rec, err := o.Inspect(ctx, "s1", model.InspectionAutomatic, "admin", nil)
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.SystemID)

	entries, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Sweep.Systems, 1)
	assert.Equal(t, rec.ID, entries[0].Sweep.Systems[0].ID)
}
