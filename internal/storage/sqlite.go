// Package storage persists intake records and meal presets
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mrcode/nightscout-fpu/internal/models"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a record or preset does not exist
var ErrNotFound = errors.New("not found")

// RecordStore is implemented by every backend that keeps the carb timeline
type RecordStore interface {
	AppendBatch(ctx context.Context, records []models.IntakeRecord) error
	List(ctx context.Context, from, to time.Time) ([]models.IntakeRecord, error)
	DeleteGroup(ctx context.Context, groupID string) (int, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS intake_records (
	id            TEXT PRIMARY KEY,
	timestamp     INTEGER NOT NULL,
	grams         TEXT NOT NULL,
	source        TEXT NOT NULL,
	is_equivalent INTEGER NOT NULL,
	group_id      TEXT
);
CREATE INDEX IF NOT EXISTS idx_intake_records_timestamp ON intake_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_intake_records_group ON intake_records(group_id);
CREATE TABLE IF NOT EXISTS meal_presets (
	id      TEXT PRIMARY KEY,
	dish    TEXT NOT NULL,
	carbs   TEXT NOT NULL,
	fat     TEXT NOT NULL,
	protein TEXT NOT NULL
);
`

// SQLiteStore keeps records and presets in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection keeps in-memory databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendBatch inserts all records in one transaction
func (s *SQLiteStore) AppendBatch(ctx context.Context, records []models.IntakeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO intake_records
		(id, timestamp, grams, source, is_equivalent, group_id) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range records {
		r := &records[i]
		var group sql.NullString
		if r.GroupID != nil {
			group = sql.NullString{String: *r.GroupID, Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			r.ID,
			r.Timestamp.UnixMilli(),
			r.Grams.String(),
			string(r.Source),
			r.IsEquivalent,
			group,
		)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// List returns records between from and to, oldest first.
// A zero bound is open.
func (s *SQLiteStore) List(ctx context.Context, from, to time.Time) ([]models.IntakeRecord, error) {
	query := `SELECT id, timestamp, grams, source, is_equivalent, group_id FROM intake_records WHERE 1=1`
	var args []any
	if !from.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, from.UnixMilli())
	}
	if !to.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, to.UnixMilli())
	}
	query += ` ORDER BY timestamp, id`

	return s.queryRecords(ctx, query, args...)
}

// Group returns all equivalents of one conversion, oldest first
func (s *SQLiteStore) Group(ctx context.Context, groupID string) ([]models.IntakeRecord, error) {
	return s.queryRecords(ctx, `SELECT id, timestamp, grams, source, is_equivalent, group_id
		FROM intake_records WHERE group_id = ? ORDER BY timestamp`, groupID)
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...any) ([]models.IntakeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []models.IntakeRecord
	for rows.Next() {
		var (
			r      models.IntakeRecord
			millis int64
			source string
			group  sql.NullString
		)
		if err := rows.Scan(&r.ID, &millis, &r.Grams, &source, &r.IsEquivalent, &group); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Timestamp = time.UnixMilli(millis)
		r.Source = models.Source(source)
		if group.Valid {
			g := group.String
			r.GroupID = &g
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// DeleteGroup removes all equivalents of one conversion and returns how many were removed
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM intake_records WHERE group_id = ?`, groupID)
	if err != nil {
		return 0, fmt.Errorf("deleting group %s: %w", groupID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Delete removes a single record
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM intake_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SavePreset inserts or replaces a preset, assigning an id if it has none
func (s *SQLiteStore) SavePreset(ctx context.Context, p *models.MealPreset) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO meal_presets
		(id, dish, carbs, fat, protein) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Dish, p.Carbs.String(), p.Fat.String(), p.Protein.String())
	if err != nil {
		return fmt.Errorf("saving preset %s: %w", p.Dish, err)
	}
	return nil
}

// Presets returns all presets sorted by dish name
func (s *SQLiteStore) Presets(ctx context.Context) ([]models.MealPreset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, dish, carbs, fat, protein FROM meal_presets ORDER BY dish`)
	if err != nil {
		return nil, fmt.Errorf("querying presets: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var presets []models.MealPreset
	for rows.Next() {
		var p models.MealPreset
		if err := rows.Scan(&p.ID, &p.Dish, &p.Carbs, &p.Fat, &p.Protein); err != nil {
			return nil, fmt.Errorf("scanning preset: %w", err)
		}
		presets = append(presets, p)
	}

	return presets, rows.Err()
}

// Preset returns one preset by id
func (s *SQLiteStore) Preset(ctx context.Context, id string) (*models.MealPreset, error) {
	var p models.MealPreset
	err := s.db.QueryRowContext(ctx, `SELECT id, dish, carbs, fat, protein FROM meal_presets WHERE id = ?`, id).
		Scan(&p.ID, &p.Dish, &p.Carbs, &p.Fat, &p.Protein)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading preset %s: %w", id, err)
	}
	return &p, nil
}

// DeletePreset removes a preset
func (s *SQLiteStore) DeletePreset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meal_presets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting preset %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

