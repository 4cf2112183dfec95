package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// document is the single table behind the gorm backend.
type document struct {
	Collection string    `gorm:"primaryKey;size:128"`
	ID         string    `gorm:"primaryKey;size:191"`
	Data       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (document) TableName() string {
	return "documents"
}

// Gorm stores documents through gorm. Postgres is the production dialect;
// any dialect with JSON functions (sqlite in tests) works too.
type Gorm struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and makes sure the documents table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Gorm, error) {
	if dsn == "" {
		return nil, errors.New("docstore: postgres dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewGorm(ctx, db)
}

// NewGorm wraps an open gorm handle and migrates the documents table.
func NewGorm(ctx context.Context, db *gorm.DB) (*Gorm, error) {
	if err := db.WithContext(ctx).AutoMigrate(&document{}); err != nil {
		return nil, fmt.Errorf("migrate documents: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Create(ctx context.Context, collection, id string, data map[string]any) (string, error) {
	raw, err := encode(data)
	if err != nil {
		return "", err
	}
	now := time.Now()
	doc := document{Collection: collection, ID: newID(id), Data: string(raw), CreatedAt: now, UpdatedAt: now}
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&doc)
	if res.Error != nil {
		return "", fmt.Errorf("insert document %s/%s: %w", collection, doc.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return "", fmt.Errorf("%w: %s/%s", ErrExists, collection, doc.ID)
	}
	return doc.ID, nil
}

func (g *Gorm) Get(ctx context.Context, collection, id string) (Document, error) {
	var doc document
	err := g.db.WithContext(ctx).Where("collection = ? AND id = ?", collection, id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return Document{}, fmt.Errorf("query document %s/%s: %w", collection, id, err)
	}
	return decode(doc.ID, []byte(doc.Data))
}

func (g *Gorm) QueryByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	q := g.db.WithContext(ctx).Where("collection = ?", collection)
	if g.db.Dialector.Name() == "postgres" {
		// ->> yields text, so compare against the value's text form
		q = q.Where("(data::jsonb ->> ?) = ?", field, textValue(value))
	} else {
		if b, ok := value.(bool); ok {
			value = 0
			if b {
				value = 1
			}
		}
		q = q.Where("json_extract(data, ?) = ?", "$."+field, value)
	}
	q = q.Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return g.find(q)
}

func (g *Gorm) ScanOrdered(ctx context.Context, collection, orderBy string, dir Direction, limit int) ([]Document, error) {
	q := g.db.WithContext(ctx).Where("collection = ?", collection)
	if orderBy == "" {
		q = q.Order(fmt.Sprintf("id %s", dir))
	} else {
		if err := checkField(orderBy); err != nil {
			return nil, err
		}
		expr := clause.Expr{SQL: fmt.Sprintf("json_extract(data, ?) %s, id ASC", dir), Vars: []any{"$." + orderBy}, WithoutParentheses: true}
		if g.db.Dialector.Name() == "postgres" {
			expr = clause.Expr{SQL: fmt.Sprintf("(data::jsonb -> ?) %s, id ASC", dir), Vars: []any{orderBy}, WithoutParentheses: true}
		}
		q = q.Clauses(clause.OrderBy{Expression: expr})
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return g.find(q)
}

func (g *Gorm) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc document
		err := tx.Where("collection = ? AND id = ?", collection, id).First(&doc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		if err != nil {
			return fmt.Errorf("query document %s/%s: %w", collection, id, err)
		}
		merged, err := merge([]byte(doc.Data), partial)
		if err != nil {
			return err
		}
		return tx.Model(&document{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"data": string(merged), "updated_at": time.Now()}).Error
	})
}

func (g *Gorm) Delete(ctx context.Context, collection, id string) error {
	res := g.db.WithContext(ctx).Where("collection = ? AND id = ?", collection, id).Delete(&document{})
	if res.Error != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *Gorm) find(q *gorm.DB) ([]Document, error) {
	var rows []document
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		d, err := decode(r.ID, []byte(r.Data))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func textValue(v any) string {
	switch x := normalize(v).(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
