// Package sqlite provides a cache.Store kept in an SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dekarrin/pastprint/internal/cache"
	"github.com/google/uuid"
	"modernc.org/sqlite"
)

// Filename is the name of the database file created in the storage dir.
const Filename = "rewrites.db"

// New opens (creating it if needed) the cache database in storageDir.
func New(storageDir string) (*Store, error) {
	st := &Store{file: filepath.Join(storageDir, Filename)}

	var err error
	st.db, err = sql.Open("sqlite", st.file)
	if err != nil {
		return nil, wrapDBError(err)
	}

	if err := st.init(); err != nil {
		st.db.Close()
		return nil, err
	}

	return st, nil
}

// Store is a cache.Store backed by SQLite.
type Store struct {
	file string
	db   *sql.DB
}

func (st *Store) init() error {
	_, err := st.db.Exec(`CREATE TABLE IF NOT EXISTS rewrites (
		id TEXT NOT NULL PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		digest TEXT NOT NULL,
		result TEXT NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (st *Store) Get(ctx context.Context, path, digest string) (cache.Entry, error) {
	e := cache.Entry{
		Path:   path,
		Digest: digest,
	}
	var id string
	var created int64

	row := st.db.QueryRowContext(ctx, `SELECT id, result, created FROM rewrites WHERE path = ? AND digest = ?;`,
		path,
		digest,
	)
	err := row.Scan(
		&id,
		&e.Result,
		&created,
	)
	if err != nil {
		return cache.Entry{}, wrapDBError(err)
	}

	e.ID, err = uuid.Parse(id)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("stored UUID %q is invalid", id)
	}
	e.Created = time.Unix(created, 0)

	return e, nil
}

func (st *Store) Put(ctx context.Context, e cache.Entry) (cache.Entry, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return cache.Entry{}, fmt.Errorf("could not generate ID: %w", err)
	}

	e.ID = newUUID
	e.Created = time.Unix(time.Now().Unix(), 0)

	_, err = st.db.ExecContext(ctx, `INSERT INTO rewrites (id, path, digest, result, created) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET id=excluded.id, digest=excluded.digest, result=excluded.result, created=excluded.created;`,
		e.ID.String(),
		e.Path,
		e.Digest,
		e.Result,
		e.Created.Unix(),
	)
	if err != nil {
		return cache.Entry{}, wrapDBError(err)
	}

	return e, nil
}

func (st *Store) Clear(ctx context.Context) error {
	_, err := st.db.ExecContext(ctx, `DELETE FROM rewrites;`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (st *Store) Close() error {
	if err := st.db.Close(); err != nil {
		return fmt.Errorf("%s: %w", Filename, err)
	}
	return nil
}

func wrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() == 19 {
			return cache.ErrConstraintViolation
		}
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return cache.ErrNotFound
	}
	return err
}
