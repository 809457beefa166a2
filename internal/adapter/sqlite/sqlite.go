// Package sqlite implements the domain repositories using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"microblog/internal/domain"
)

// DB wraps a *sql.DB and implements the domain repository interfaces.
//
// The driver does not support concurrent writers, so all mutations are
// serialized behind writeLock. That mutex is also the exclusion boundary for
// read-modify-write cycles such as the like toggle.
type DB struct {
	sql       *sql.DB
	writeLock sync.Mutex
}

var _ domain.UserRepository = (*DB)(nil)
var _ domain.PostRepository = (*DB)(nil)

// Open opens (creating if necessary) the SQLite database at path, pings it and
// runs migrations.
func Open(path string) (*DB, error) {
	s, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStorageUnavailable, path, err)
	}
	s.SetConnMaxLifetime(5 * time.Minute)

	if err := s.Ping(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", domain.ErrStorageUnavailable, path, err)
	}
	if _, err := s.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	d := &DB{sql: s}
	if err := d.migrate(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: migrate %s: %v", domain.ErrStorageUnavailable, path, err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			username       TEXT    UNIQUE NOT NULL,
			password_hash  TEXT    NOT NULL,
			display_name   TEXT    NOT NULL DEFAULT '',
			avatar_initial TEXT    NOT NULL DEFAULT '',
			created_at     TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS posts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			author_id  INTEGER NOT NULL REFERENCES users(id),
			content    TEXT    NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);",
		`CREATE TABLE IF NOT EXISTS likes (
			post_id    INTEGER NOT NULL REFERENCES posts(id),
			user_id    INTEGER NOT NULL REFERENCES users(id),
			created_at TIMESTAMP NOT NULL,
			UNIQUE(post_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := d.sql.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var liteErr *msqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, username, password_hash, display_name, avatar_initial, created_at FROM users WHERE username = ?",
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.AvatarInitial, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, username, password_hash, display_name, avatar_initial, created_at FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.AvatarInitial, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, username, passwordHash, displayName, avatarInitial string) (*domain.User, error) {
	d.writeLock.Lock()
	defer d.writeLock.Unlock()

	now := time.Now().UTC()
	res, err := d.sql.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, display_name, avatar_initial, created_at) VALUES (?, ?, ?, ?, ?)",
		username, passwordHash, displayName, avatarInitial, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:            id,
		Username:      username,
		PasswordHash:  passwordHash,
		DisplayName:   displayName,
		AvatarInitial: avatarInitial,
		CreatedAt:     now,
	}, nil
}
