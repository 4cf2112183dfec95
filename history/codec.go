package history

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"uptime-inspector/docstore"
	"uptime-inspector/model"
	"uptime-inspector/timestamp"
)

type storedRecord struct {
	ID                string                  `json:"id"`
	SystemID          string                  `json:"system_id"`
	SystemEnglishName string                  `json:"system_eng_name"`
	SystemKoreanName  string                  `json:"system_kor_name"`
	SystemURL         string                  `json:"system_url"`
	InspectionType    model.InspectionType    `json:"inspection_type"`
	CreatedBy         string                  `json:"created_by"`
	InspectionStart   string                  `json:"inspection_start"`
	InspectionEnd     string                  `json:"inspection_end"`
	Results           []model.MenuProbeResult `json:"inspection_results"`
}

type storedSweep struct {
	Systems   []storedRecord `json:"inspection_systems"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// encodeSweep writes times as naive ISO strings on the wall clock of loc, the
// form the rest of the stored history uses.
func encodeSweep(sw model.Sweep, loc *time.Location) storedSweep {
	out := storedSweep{
		Systems:   make([]storedRecord, 0, len(sw.Systems)),
		CreatedAt: wallClock(sw.CreatedAt, loc),
		UpdatedAt: wallClock(sw.UpdatedAt, loc),
	}
	for _, r := range sw.Systems {
		results := r.Results
		if results == nil {
			results = []model.MenuProbeResult{}
		}
		out.Systems = append(out.Systems, storedRecord{
			ID:                r.ID,
			SystemID:          r.SystemID,
			SystemEnglishName: r.SystemEnglishName,
			SystemKoreanName:  r.SystemKoreanName,
			SystemURL:         r.SystemURL,
			InspectionType:    r.InspectionType,
			CreatedBy:         r.CreatedBy,
			InspectionStart:   wallClock(r.StartedAt, loc),
			InspectionEnd:     wallClock(r.EndedAt, loc),
			Results:           results,
		})
	}
	return out
}

func wallClock(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return t.Format(timestamp.Layout)
	}
	return t.In(loc).Format(timestamp.Layout)
}

func (s *Store) decode(d docstore.Document) Entry {
	e := Entry{DocID: d.ID, Stamp: s.stamp(d.Data)}
	sw := model.Sweep{ID: d.ID}
	if t, err := e.Time(s.loc); err == nil {
		sw.CreatedAt = t
	}
	if t, err := timestamp.NormalizeAny(d.Data["updated_at"], s.loc); err == nil {
		sw.UpdatedAt = t
	}

	if raw, ok := d.Data["inspection_systems"]; ok {
		items, _ := raw.([]any)
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				s.logger.Warn("skipping malformed record", zap.String("sweep_id", d.ID))
				continue
			}
			sw.Systems = append(sw.Systems, s.decodeRecord(d.ID, m))
		}
	} else {
		// flat shape; a document without system_id still counts as one record
		sw.Legacy = true
		sw.Systems = []model.InspectionRecord{s.decodeRecord(d.ID, d.Data)}
	}
	e.Sweep = sw
	return e
}

// stamp prefers created_at and falls back to inspection_start only when
// created_at is absent.
func (s *Store) stamp(data map[string]any) timestamp.Value {
	v, err := timestamp.FromAny(data["created_at"])
	if errors.Is(err, timestamp.ErrMissing) {
		v, err = timestamp.FromAny(data["inspection_start"])
	}
	if err != nil {
		return nil
	}
	return v
}

func (s *Store) decodeRecord(docID string, m map[string]any) model.InspectionRecord {
	rec := model.InspectionRecord{
		ID:                str(m, "id"),
		SystemID:          str(m, "system_id"),
		SystemEnglishName: str(m, "system_eng_name"),
		SystemKoreanName:  str(m, "system_kor_name"),
		SystemURL:         str(m, "system_url"),
		InspectionType:    model.InspectionType(str(m, "inspection_type")),
		CreatedBy:         str(m, "created_by"),
		StartedAt:         s.timeField(m, "inspection_start"),
		EndedAt:           s.timeField(m, "inspection_end"),
	}
	if rec.ID == "" {
		rec.ID = rec.SystemID + "_" + docID
	}

	raw, ok := m["inspection_results"]
	if !ok {
		rec.ResultsMissing = true
		return rec
	}
	if raw == nil {
		return rec
	}
	b, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(b, &rec.Results)
	}
	if err != nil {
		s.logger.Warn("undecodable inspection results",
			zap.String("sweep_id", docID), zap.String("system_id", rec.SystemID), zap.Error(err))
		rec.Results = nil
	}
	return rec
}

func (s *Store) timeField(m map[string]any, key string) time.Time {
	t, err := timestamp.NormalizeAny(m[key], s.loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
