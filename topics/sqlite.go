package topics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	statusPending   = "pending"
	statusCompleted = "completed"
)

// SQLiteBackend stores the state in a SQLite database. Each save rewrites
// the topic table inside one transaction.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at dbPath.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return b, nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS topics (
		topic    TEXT PRIMARY KEY,
		status   TEXT NOT NULL CHECK (status IN ('pending', 'completed')),
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS topic_store_meta (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL
	);
	`
	_, err := b.db.Exec(schema)
	return err
}

func (b *SQLiteBackend) Load(ctx context.Context) (State, bool, error) {
	var initialized string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM topic_store_meta WHERE key = 'initialized_at'`,
	).Scan(&initialized)
	if err == sql.ErrNoRows {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read meta: %w", err)
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT topic, status FROM topics ORDER BY status DESC, position ASC`,
	)
	if err != nil {
		return State{}, false, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	st := State{Pending: []string{}, Completed: []string{}}
	for rows.Next() {
		var topic, status string
		if err := rows.Scan(&topic, &status); err != nil {
			return State{}, false, fmt.Errorf("scan topic: %w", err)
		}
		switch status {
		case statusPending:
			st.Pending = append(st.Pending, topic)
		case statusCompleted:
			st.Completed = append(st.Completed, topic)
		}
	}
	if err := rows.Err(); err != nil {
		return State{}, false, err
	}
	return st, true, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, state State) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM topics`); err != nil {
		return fmt.Errorf("clear topics: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO topics (topic, status, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range state.Pending {
		if _, err := stmt.ExecContext(ctx, t, statusPending, i); err != nil {
			return fmt.Errorf("insert pending %q: %w", t, err)
		}
	}
	for i, t := range state.Completed {
		if _, err := stmt.ExecContext(ctx, t, statusCompleted, i); err != nil {
			return fmt.Errorf("insert completed %q: %w", t, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO topic_store_meta (key, value) VALUES ('initialized_at', ?)
		 ON CONFLICT (key) DO NOTHING`,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return tx.Commit()
}
