package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printdeck/studio/backend-go/internal/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS templates (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	scene      JSONB NOT NULL,
	thumbnail  BYTEA,
	metadata   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
)`

// PgStore persists templates in Postgres.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Migrate creates the templates table if it does not exist.
func (s *PgStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create templates table: %w", err)
	}
	return nil
}

func (s *PgStore) Save(ctx context.Context, t *Template) error {
	scene, err := t.sceneJSON()
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO templates (id, name, category, scene, thumbnail, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			scene = EXCLUDED.scene,
			thumbnail = EXCLUDED.thumbnail,
			metadata = EXCLUDED.metadata`,
		t.ID, t.Name, t.Category, scene, t.Thumbnail, meta, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, name, category, scene, thumbnail, metadata, created_at FROM templates`

func (s *PgStore) Get(ctx context.Context, id string) (*Template, error) {
	t, err := scanTemplate(s.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *PgStore) List(ctx context.Context) ([]Template, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var (
		t         Template
		sceneData []byte
		metaData  []byte
		createdAt time.Time
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Category, &sceneData, &t.Thumbnail, &metaData, &createdAt); err != nil {
		return nil, err
	}

	var scene document.Scene
	if err := json.Unmarshal(sceneData, &scene); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if err := json.Unmarshal(metaData, &t.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	t.Canvas = scene.Canvas()
	t.Background = scene.Background()
	t.Elements = scene.Elements()
	t.CreatedAt = createdAt.UTC()
	return &t, nil
}
