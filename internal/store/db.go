package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection and bootstraps the schema.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{Client: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS departments (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	code        TEXT UNIQUE NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS courses (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	code          TEXT UNIQUE NOT NULL,
	department_id TEXT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
	credits       INT NOT NULL DEFAULT 3
);

CREATE TABLE IF NOT EXISTS faculty (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	employee_id   TEXT UNIQUE NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	department_id TEXT REFERENCES departments(id) ON DELETE SET NULL,
	active        BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS students (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	roll_number   TEXT UNIQUE NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	parent_email  TEXT NOT NULL DEFAULT '',
	department_id TEXT REFERENCES departments(id) ON DELETE SET NULL,
	section       TEXT NOT NULL DEFAULT 'A',
	semester      INT NOT NULL DEFAULT 1,
	photo_path    TEXT NOT NULL DEFAULT '',
	photo_url     TEXT NOT NULL DEFAULT '',
	face_enrolled BOOLEAN NOT NULL DEFAULT FALSE,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	profile_id    TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_sessions (
	id          TEXT PRIMARY KEY,
	course_id   TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	faculty_id  TEXT NOT NULL REFERENCES faculty(id) ON DELETE CASCADE,
	date        DATE NOT NULL,
	start_time  TIMESTAMPTZ NOT NULL,
	end_time    TIMESTAMPTZ,
	section     TEXT NOT NULL DEFAULT 'A',
	mode        TEXT NOT NULL DEFAULT 'manual',
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES attendance_sessions(id) ON DELETE CASCADE,
	student_id  TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	status      TEXT NOT NULL DEFAULT 'absent',
	method      TEXT NOT NULL DEFAULT 'manual',
	confidence  DOUBLE PRECISION,
	marked_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	remarks     TEXT NOT NULL DEFAULT '',
	UNIQUE (session_id, student_id)
);

CREATE TABLE IF NOT EXISTS notifications (
	id          TEXT PRIMARY KEY,
	student_id  TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	message     TEXT NOT NULL,
	notif_type  TEXT NOT NULL DEFAULT 'absence',
	is_read     BOOLEAN NOT NULL DEFAULT FALSE,
	sent_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sessions_date     ON attendance_sessions(date);
CREATE INDEX IF NOT EXISTS idx_records_session   ON attendance_records(session_id);
CREATE INDEX IF NOT EXISTS idx_records_student   ON attendance_records(student_id);
CREATE INDEX IF NOT EXISTS idx_notifs_student    ON notifications(student_id);
`
