package assetdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dccpub/internal/sqlstore"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// SQLite is the local asset database.
type SQLite struct {
	db *sqlstore.DB
}

// Open opens or creates the asset database at path.
func Open(ctx context.Context, path string) (*SQLite, error) {
	db, err := sqlstore.Open(ctx, path, sqlstore.Schema{Name: "asset", Version: schemaVersion, SQL: schemaSQL})
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

const assetColumns = "id, project, name, fps, frame_start, frame_end, handle_start, handle_end"

func (s *SQLite) AssetByName(ctx context.Context, project, name string) (*AssetDoc, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE project = ? AND name = ?`, project, name)
	doc, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	if doc.Tasks, err = s.tasks(ctx, doc.ID); err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns every asset of project ordered by name.
func (s *SQLite) List(ctx context.Context, project string) ([]*AssetDoc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE project = ? ORDER BY name`, project)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	var docs []*AssetDoc
	for rows.Next() {
		doc, err := scanAsset(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.Tasks, err = s.tasks(ctx, doc.ID); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Upsert inserts doc or replaces the asset with the same project and name.
// The task list is replaced as a whole.
func (s *SQLite) Upsert(ctx context.Context, doc AssetDoc) (*AssetDoc, error) {
	doc.Project = strings.TrimSpace(doc.Project)
	doc.Name = strings.TrimSpace(doc.Name)
	if doc.Project == "" || doc.Name == "" {
		return nil, errors.New("asset project and name are required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT id FROM assets WHERE project = ? AND name = ?`, doc.Project, doc.Name).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("find asset: %w", err)
		default:
			doc.ID = existing
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assets (`+assetColumns+`, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET fps = excluded.fps, frame_start = excluded.frame_start,
                 frame_end = excluded.frame_end, handle_start = excluded.handle_start,
                 handle_end = excluded.handle_end, updated_at = excluded.updated_at`,
			doc.ID, doc.Project, doc.Name, doc.FPS, doc.FrameStart, doc.FrameEnd, doc.HandleStart, doc.HandleEnd,
			sqlstore.FormatTime(time.Now()),
		); err != nil {
			return fmt.Errorf("upsert asset: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE asset_id = ?`, doc.ID); err != nil {
			return fmt.Errorf("clear tasks: %w", err)
		}
		for _, task := range doc.Tasks {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tasks (asset_id, name) VALUES (?, ?)`, doc.ID, task); err != nil {
				return fmt.Errorf("insert task %s: %w", task, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.AssetByName(ctx, doc.Project, doc.Name)
}

// Delete removes an asset and its tasks. It reports whether a row existed.
func (s *SQLite) Delete(ctx context.Context, project, name string) (bool, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM assets WHERE project = ? AND name = ?`, project, name)
	if err != nil {
		return false, fmt.Errorf("delete asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLite) tasks(ctx context.Context, assetID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tasks WHERE asset_id = ? ORDER BY name`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	var tasks []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, name)
	}
	return tasks, rows.Err()
}

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*AssetDoc, error) {
	var (
		doc AssetDoc
		fps sql.NullFloat64
	)
	if err := scanner.Scan(&doc.ID, &doc.Project, &doc.Name, &fps,
		&doc.FrameStart, &doc.FrameEnd, &doc.HandleStart, &doc.HandleEnd); err != nil {
		return nil, err
	}
	doc.FPS = fps.Float64
	return &doc, nil
}
