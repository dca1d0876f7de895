package tracking

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteTracker implements Tracker using modernc.org/sqlite.
type SQLiteTracker struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL
// mode, and applies the schema.
func NewSQLite(dsn string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "tracking: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "tracking: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "tracking: migrate")
	}
	return &SQLiteTracker{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	topic       TEXT NOT NULL,
	perspective TEXT,
	dir         TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	questions   INTEGER NOT NULL DEFAULT 0,
	citations   INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at);
`

func (t *SQLiteTracker) Create(ctx context.Context, p Project) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO projects (id, topic, perspective, dir, status, questions, citations, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Topic, p.Perspective, p.Dir, string(p.Status), p.Questions, p.Citations, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "tracking: insert project")
}

func (t *SQLiteTracker) Update(ctx context.Context, p Project) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, questions = ?, citations = ?, updated_at = ? WHERE id = ?`,
		string(p.Status), p.Questions, p.Citations, time.Now().UTC(), p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "tracking: update project %s", p.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "tracking: rows affected")
	}
	if n == 0 {
		return eris.Errorf("tracking: project not found: %s", p.ID)
	}
	return nil
}

func (t *SQLiteTracker) Get(ctx context.Context, id string) (*Project, error) {
	row := t.db.QueryRowContext(ctx,
		`SELECT id, topic, perspective, dir, status, questions, citations, created_at, updated_at
		 FROM projects WHERE id = ?`, id)

	var p Project
	err := row.Scan(&p.ID, &p.Topic, &p.Perspective, &p.Dir, &p.Status, &p.Questions, &p.Citations, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("tracking: project not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "tracking: scan project")
	}
	return &p, nil
}

func (t *SQLiteTracker) List(ctx context.Context, limit int) ([]Project, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, topic, perspective, dir, status, questions, citations, created_at, updated_at
		 FROM projects ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "tracking: list projects")
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Topic, &p.Perspective, &p.Dir, &p.Status, &p.Questions, &p.Citations, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "tracking: scan project")
		}
		projects = append(projects, p)
	}
	return projects, eris.Wrap(rows.Err(), "tracking: list projects iterate")
}

func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
