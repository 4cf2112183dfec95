// Package docstore is a small document store: JSON documents grouped in
// collections, created atomically by id, read back by id, by top-level field
// equality or as an ordered scan.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	ErrExists   = errors.New("docstore: document already exists")
	ErrField    = errors.New("docstore: invalid field name")
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

type Document struct {
	ID   string
	Data map[string]any
}

// Decode unmarshals the document data into v.
func (d Document) Decode(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

type Store interface {
	// Create stores data under id. An empty id gets a generated one.
	// Creating an id that already exists fails with ErrExists.
	Create(ctx context.Context, collection, id string, data map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// QueryByField returns documents whose top-level field equals value.
	// limit <= 0 means no limit.
	QueryByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error)
	// ScanOrdered returns documents ordered by a top-level field, ties broken
	// by id. An empty orderBy orders by id alone.
	ScanOrdered(ctx context.Context, collection, orderBy string, dir Direction, limit int) ([]Document, error)
	// Update merges partial into the document's top-level keys.
	Update(ctx context.Context, collection, id string, partial map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkField(field string) error {
	if !fieldName.MatchString(field) {
		return fmt.Errorf("%w: %q", ErrField, field)
	}
	return nil
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// ToMap converts a JSON-serializable value into document data.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func encode(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(data)
}

func decode(id string, raw []byte) (Document, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return Document{ID: id, Data: m}, nil
}

func merge(raw []byte, partial map[string]any) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	for k, v := range partial {
		m[k] = v
	}
	return json.Marshal(m)
}

// normalize round-trips v through JSON so comparisons see stored types.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
