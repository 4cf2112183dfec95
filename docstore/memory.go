package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Memory keeps documents as JSON in process memory.
type Memory struct {
	mu   sync.RWMutex
	cols map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{cols: make(map[string]map[string][]byte)}
}

func (m *Memory) Create(_ context.Context, collection, id string, data map[string]any) (string, error) {
	raw, err := encode(data)
	if err != nil {
		return "", err
	}
	id = newID(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	col := m.cols[collection]
	if col == nil {
		col = make(map[string][]byte)
		m.cols[collection] = col
	}
	if _, ok := col[id]; ok {
		return "", fmt.Errorf("%w: %s/%s", ErrExists, collection, id)
	}
	col[id] = raw
	return id, nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	raw, ok := m.cols[collection][id]
	m.mu.RUnlock()
	if !ok {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return decode(id, raw)
}

func (m *Memory) QueryByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	all, err := m.ScanOrdered(ctx, collection, "", Asc, 0)
	if err != nil {
		return nil, err
	}
	want := normalize(value)
	var out []Document
	for _, d := range all {
		if v, ok := d.Data[field]; ok && reflect.DeepEqual(v, want) {
			out = append(out, d)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ScanOrdered(_ context.Context, collection, orderBy string, dir Direction, limit int) ([]Document, error) {
	if orderBy != "" {
		if err := checkField(orderBy); err != nil {
			return nil, err
		}
	}
	m.mu.RLock()
	docs := make([]Document, 0, len(m.cols[collection]))
	for id, raw := range m.cols[collection] {
		d, err := decode(id, raw)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		docs = append(docs, d)
	}
	m.mu.RUnlock()

	sort.SliceStable(docs, func(i, j int) bool {
		if orderBy != "" {
			if c := compareValues(docs[i].Data[orderBy], docs[j].Data[orderBy]); c != 0 {
				if dir == Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return docs[i].ID < docs[j].ID
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, partial map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.cols[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	merged, err := merge(raw, partial)
	if err != nil {
		return err
	}
	m.cols[collection][id] = merged
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cols[collection][id]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	delete(m.cols[collection], id)
	return nil
}

func (m *Memory) Close() error { return nil }

// compareValues orders missing < numbers < strings < everything else.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64:
		return 1
	case string:
		return 2
	}
	return 3
}
