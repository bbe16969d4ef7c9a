package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// busyBackoff is the wait before each retry of a transaction that found the
// database locked. Its length bounds the number of retries.
var busyBackoff = []time.Duration{
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

var busyMarkers = []string{
	"SQLITE_BUSY",
	"SQLITE_LOCKED",
	"database is locked",
	"database table is locked",
}

// IsBusy reports whether err is an SQLite BUSY or LOCKED condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range busyMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// RunTx runs fn in a transaction. While SQLite reports the database busy
// the whole transaction is retried after each busyBackoff step; any other
// error rolls back and returns at once.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := runOnce(ctx, db, fn)
		if err == nil || !IsBusy(err) {
			return err
		}
		if attempt == len(busyBackoff) {
			return fmt.Errorf("dbopen: still busy after %d retries: %w", attempt, err)
		}

		t := time.NewTimer(busyBackoff[attempt])
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("dbopen: retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}
