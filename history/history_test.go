package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uptime-inspector/docstore"
	"uptime-inspector/model"
)

func record(systemID string, start time.Time, codes ...int) model.InspectionRecord {
	rec := model.InspectionRecord{
		ID:             systemID + "_x",
		SystemID:       systemID,
		SystemURL:      "http://" + systemID,
		InspectionType: model.InspectionAutomatic,
		CreatedBy:      "scheduler",
		StartedAt:      start,
		EndedAt:        start.Add(time.Second),
	}
	for _, c := range codes {
		rec.Results = append(rec.Results, model.MenuProbeResult{MenuName: "home", Path: "/", StatusCode: c, Headers: map[string]string{}})
	}
	return rec
}

func TestSaveSweepIDAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(docstore.NewMemory(), WithLocation(time.UTC))
	at := time.Date(2024, 3, 5, 14, 7, 9, 123000000, time.UTC)

	saved, err := s.SaveSweep(ctx, model.Sweep{CreatedAt: at, Systems: []model.InspectionRecord{record("a", at, 200, 503)}})
	require.NoError(t, err)
	assert.Equal(t, "20240305140709", saved.ID)

	e, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, e.Sweep.Legacy)
	assert.True(t, at.Equal(e.Sweep.CreatedAt))
	require.Len(t, e.Sweep.Systems, 1)
	rec := e.Sweep.Systems[0]
	assert.Equal(t, "a", rec.SystemID)
	assert.Equal(t, model.InspectionAutomatic, rec.InspectionType)
	assert.True(t, rec.HasError())
	assert.True(t, at.Equal(rec.StartedAt))
	assert.Len(t, rec.Results, 2)

	_, err = s.Get(ctx, "19990101000000")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestSaveSweepCollisionSuffix(t *testing.T) {
	ctx := context.Background()
	s := New(docstore.NewMemory(), WithLocation(time.UTC))
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		sw, err := s.SaveSweep(ctx, model.Sweep{CreatedAt: at, Systems: []model.InspectionRecord{record("a", at, 200)}})
		require.NoError(t, err)
		ids = append(ids, sw.ID)
	}
	assert.Equal(t, []string{"20240305140709", "20240305140709-2", "20240305140709-3"}, ids)
}

func TestSaveSweepUsesStoreLocation(t *testing.T) {
	ctx := context.Background()
	seoul := time.FixedZone("KST", 9*60*60)
	docs := docstore.NewMemory()
	s := New(docs, WithLocation(seoul))
	// 08:00 on the 13th in Seoul.
	at := time.Date(2024, 6, 12, 23, 0, 0, 0, time.UTC)

	saved, err := s.SaveSweep(ctx, model.Sweep{CreatedAt: at, Systems: []model.InspectionRecord{record("a", at, 200)}})
	require.NoError(t, err)
	assert.Equal(t, "20240613080000", saved.ID)

	raw, err := docs.Get(ctx, Collection, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-13T08:00:00", raw.Data["created_at"])

	e, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, at.Equal(e.Sweep.CreatedAt), "got %s", e.Sweep.CreatedAt)
	require.Len(t, e.Sweep.Systems, 1)
	assert.True(t, at.Equal(e.Sweep.Systems[0].StartedAt))
	assert.True(t, at.Add(time.Second).Equal(e.Sweep.Systems[0].EndedAt))
}

func TestDecodeLegacyDocument(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	s := New(docs, WithLocation(time.UTC))

	_, err := docs.Create(ctx, Collection, "legacy1", map[string]any{
		"system_id":        "portal",
		"system_url":       "http://portal",
		"inspection_start": "2023-12-31 23:59:00",
		"inspection_results": []any{
			map[string]any{"menu_name": "home", "path": "/", "status_code": 404, "status_text": "Not Found"},
		},
	})
	require.NoError(t, err)

	e, err := s.Get(ctx, "legacy1")
	require.NoError(t, err)
	assert.True(t, e.Sweep.Legacy)
	require.Len(t, e.Sweep.Systems, 1)
	assert.Equal(t, "portal_legacy1", e.Sweep.Systems[0].ID)
	assert.True(t, e.Sweep.Systems[0].HasError())

	at, err := e.Time(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), at)
}

func TestDecodeEpochAndMissingResults(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	s := New(docs, WithLocation(time.UTC))

	_, err := docs.Create(ctx, Collection, "epoch", map[string]any{
		"created_at": map[string]any{"_seconds": 1700000000, "_nanoseconds": 0},
		"inspection_systems": []any{
			map[string]any{"system_id": "a"},
		},
	})
	require.NoError(t, err)

	e, err := s.Get(ctx, "epoch")
	require.NoError(t, err)
	at, err := e.Time(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), at)
	require.Len(t, e.Sweep.Systems, 1)
	assert.True(t, e.Sweep.Systems[0].ResultsMissing)
}

func TestUnparseableStampKeepsDocument(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	s := New(docs, WithLocation(time.UTC))

	_, err := docs.Create(ctx, Collection, "bad", map[string]any{
		"created_at":         "yesterday",
		"inspection_start":   "2024-01-01T00:00:00",
		"inspection_systems": []any{},
	})
	require.NoError(t, err)

	e, err := s.Get(ctx, "bad")
	require.NoError(t, err)
	_, err = e.Time(time.UTC)
	assert.Error(t, err, "created_at wins over inspection_start even when unparseable")
}

func TestHistoryBySystem(t *testing.T) {
	ctx := context.Background()
	s := New(docstore.NewMemory(), WithLocation(time.UTC))
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		recs := []model.InspectionRecord{record("b", at, 200)}
		if i != 2 {
			recs = append(recs, record("a", at, 200+i))
		}
		_, err := s.SaveSweep(ctx, model.Sweep{CreatedAt: at, Systems: recs})
		require.NoError(t, err)
	}

	got, err := s.HistoryBySystem(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 203, got[0].Results[0].StatusCode)
	assert.Equal(t, 201, got[1].Results[0].StatusCode)
	assert.Equal(t, 200, got[2].Results[0].StatusCode)

	got, err = s.HistoryBySystem(ctx, "a", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.HistoryBySystem(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New(docstore.NewMemory(), WithLocation(time.UTC))
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.SaveSweep(ctx, model.Sweep{CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "20240601080400", recent[0].DocID)
	assert.Equal(t, "20240601080300", recent[1].DocID)
}
