// Package store provides the SQLite archive of finished captures.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hazyhaar/tilecap/canvascap/output"
	"github.com/hazyhaar/tilecap/dbopen"
)

// Store is the capture archive handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the archive at path and applies the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Insert archives a capture and its tile report in one transaction.
func (s *Store) Insert(ctx context.Context, img output.Image) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO captures
				(id, source_url, scale, width, height, tiles, exhausted, format, data, captured_at)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			img.ID, img.SourceURL, img.Scale, img.Width, img.Height,
			img.Tiles, img.Exhausted, img.Format, img.Data, img.CapturedAt,
		)
		if err != nil {
			return fmt.Errorf("store: insert capture: %w", err)
		}

		for _, t := range img.Report {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO capture_tiles (capture_id, tile_index, x, y, outcome, retries)
				VALUES (?,?,?,?,?,?)`,
				img.ID, t.Index, t.X, t.Y, t.Outcome, t.Retries,
			)
			if err != nil {
				return fmt.Errorf("store: insert tile %d: %w", t.Index, err)
			}
		}
		return nil
	})
}

// Get returns the capture with its payload and tile report, or nil if absent.
func (s *Store) Get(ctx context.Context, id string) (*output.Image, error) {
	img := &output.Image{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, source_url, scale, width, height, tiles, exhausted, format, data, captured_at
		FROM captures WHERE id = ?`, id).Scan(
		&img.ID, &img.SourceURL, &img.Scale, &img.Width, &img.Height,
		&img.Tiles, &img.Exhausted, &img.Format, &img.Data, &img.CapturedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT tile_index, x, y, outcome, retries
		FROM capture_tiles WHERE capture_id = ? ORDER BY tile_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t output.TileOutcome
		if err := rows.Scan(&t.Index, &t.X, &t.Y, &t.Outcome, &t.Retries); err != nil {
			return nil, err
		}
		img.Report = append(img.Report, t)
	}
	return img, rows.Err()
}

// List returns capture metadata, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]output.Meta, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, source_url, scale, width, height, tiles, exhausted, format,
		       length(data), captured_at
		FROM captures ORDER BY captured_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []output.Meta
	for rows.Next() {
		var m output.Meta
		if err := rows.Scan(&m.ID, &m.SourceURL, &m.Scale, &m.Width, &m.Height,
			&m.Tiles, &m.Exhausted, &m.Format, &m.Bytes, &m.CapturedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a capture. It reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
