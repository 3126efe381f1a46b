package hostctx

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"dccpub/internal/instance"
	"dccpub/internal/sqlstore"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// SQLite is a Store backed by a per-scene SQLite database.
type SQLite struct {
	db *sqlstore.DB
}

// OpenSQLite opens or creates the session database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sqlstore.Open(ctx, path, sqlstore.Schema{Name: "session", Version: schemaVersion, SQL: schemaSQL})
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Path returns the database file.
func (s *SQLite) Path() string { return s.db.Path() }

// Close closes the database.
func (s *SQLite) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Add(ctx context.Context, inst *instance.Instance) error {
	if inst == nil {
		return errors.New("instance is nil")
	}
	payload, err := inst.ToStore()
	if err != nil {
		return err
	}
	now := sqlstore.FormatTime(time.Now())
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM instances WHERE id = ?`, inst.ID).Scan(&existing); err != nil {
			return fmt.Errorf("check instance id: %w", err)
		}
		if existing > 0 {
			return instanceConflict(inst)
		}
		taken, err := scopeTaken(ctx, tx, inst, "")
		if err != nil {
			return err
		}
		if taken {
			return subsetConflict(inst)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO instances (
                id, family, subset, asset, task, creator_identifier, active, payload, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inst.ID,
			inst.Family(),
			inst.SubsetName,
			inst.Asset,
			inst.TaskName,
			sqlstore.NullableString(inst.CreatorIdentifier),
			boolToInt(inst.Active),
			string(payload),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert instance: %w", err)
		}
		return nil
	})
}

func (s *SQLite) Update(ctx context.Context, id string, inst *instance.Instance) error {
	if err := checkUpdate(id, inst); err != nil {
		return err
	}
	payload, err := inst.ToStore()
	if err != nil {
		return err
	}
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		var family string
		err := tx.QueryRowContext(ctx, `SELECT family FROM instances WHERE id = ?`, id).Scan(&family)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("update", id)
		}
		if err != nil {
			return fmt.Errorf("load instance: %w", err)
		}
		if err := familyChanged(family, inst); err != nil {
			return err
		}
		taken, err := scopeTaken(ctx, tx, inst, id)
		if err != nil {
			return err
		}
		if taken {
			return subsetConflict(inst)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE instances
             SET subset = ?, asset = ?, task = ?, creator_identifier = ?, active = ?, payload = ?, updated_at = ?
             WHERE id = ?`,
			inst.SubsetName,
			inst.Asset,
			inst.TaskName,
			sqlstore.NullableString(inst.CreatorIdentifier),
			boolToInt(inst.Active),
			string(payload),
			sqlstore.FormatTime(time.Now()),
			id,
		)
		if err != nil {
			return fmt.Errorf("update instance: %w", err)
		}
		return nil
	})
}

func (s *SQLite) Remove(ctx context.Context, id string) error {
	res, err := s.db.Exec(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("remove", id)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]*instance.Instance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM instances ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()
	var out []*instance.Instance
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		inst, err := instance.FromStore([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id string) (*instance.Instance, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM instances WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return instance.FromStore([]byte(payload))
}

// Clear removes every instance and returns how many were deleted.
func (s *SQLite) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM instances`)
	if err != nil {
		return 0, fmt.Errorf("clear instances: %w", err)
	}
	return res.RowsAffected()
}

func scopeTaken(ctx context.Context, tx *sql.Tx, inst *instance.Instance, except string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM instances WHERE asset = ? AND task = ? AND subset = ? AND id != ?`,
		inst.Asset, inst.TaskName, inst.SubsetName, except,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check subset: %w", err)
	}
	return count > 0, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
