// Package storagetest provides a SQLite stand-in for the Postgres schema.
package storagetest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE users (id INTEGER PRIMARY KEY, username TEXT NOT NULL UNIQUE);
CREATE TABLE boards (id INTEGER PRIMARY KEY, title TEXT NOT NULL, is_deleted BOOLEAN NOT NULL DEFAULT FALSE);
CREATE TABLE board_participants (
    id INTEGER PRIMARY KEY,
    board_id INTEGER NOT NULL REFERENCES boards (id),
    user_id INTEGER NOT NULL REFERENCES users (id),
    role INTEGER NOT NULL DEFAULT 1,
    UNIQUE (board_id, user_id)
);
CREATE TABLE goal_categories (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    board_id INTEGER NOT NULL REFERENCES boards (id),
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE goals (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    category_id INTEGER NOT NULL REFERENCES goal_categories (id),
    status INTEGER NOT NULL DEFAULT 1,
    priority INTEGER NOT NULL DEFAULT 1,
    user_id INTEGER NOT NULL
);
CREATE TABLE tg_users (
    id INTEGER PRIMARY KEY,
    chat_id INTEGER NOT NULL UNIQUE,
    username TEXT,
    verification_code TEXT UNIQUE,
    user_id INTEGER REFERENCES users (id),
    updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    CHECK (verification_code IS NULL OR user_id IS NULL)
);
`

const fixtures = `
INSERT INTO users (id, username) VALUES (1, 'ann'), (2, 'bob');
INSERT INTO boards (id, title) VALUES (10, 'Home'), (11, 'Work board'), (12, 'Private');
INSERT INTO board_participants (board_id, user_id, role) VALUES (10, 1, 1), (11, 1, 3), (12, 2, 1);
INSERT INTO goal_categories (id, title, user_id, board_id, is_deleted) VALUES
    (100, 'Work', 1, 11, FALSE),
    (101, 'Shopping', 1, 10, FALSE),
    (102, 'Old', 1, 10, TRUE),
    (103, 'Secret', 2, 12, FALSE);
INSERT INTO goals (id, title, category_id, status, user_id) VALUES
    (1000, 'Ship release', 100, 2, 1),
    (1001, 'Buy bread', 101, 1, 1),
    (1002, 'Archived goal', 101, 4, 1),
    (1003, 'In deleted category', 102, 1, 1),
    (1004, 'Not mine', 103, 1, 2);
`

// Open returns a file-backed SQLite database with the goalbot tables and a
// small fixture set: account 1 sees categories 100 and 101, account 2 owns 103.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "goalbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	for _, stmt := range strings.Split(schema+fixtures, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}
