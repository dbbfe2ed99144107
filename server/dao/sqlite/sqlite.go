// Package sqlite provides a dao.Store backed by an SQLite database file.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dekarrin/pastprint/server/dao"
	"modernc.org/sqlite"
)

// Filename is the name of the database file created in the storage
// directory.
const Filename = "sessions.db"

type store struct {
	dbFilename string
	db         *sql.DB
	seshes     *SessionsDB
}

// NewDatastore opens (creating if needed) the database in storageDir.
func NewDatastore(storageDir string) (dao.Store, error) {
	st := &store{
		dbFilename: Filename,
	}

	fileName := filepath.Join(storageDir, st.dbFilename)

	var err error
	st.db, err = sql.Open("sqlite", fileName)
	if err != nil {
		return nil, wrapDBError(err)
	}

	st.seshes = &SessionsDB{db: st.db}
	if err := st.seshes.init(); err != nil {
		st.db.Close()
		return nil, err
	}

	return st, nil
}

func (s *store) Sessions() dao.SessionRepository {
	return s.seshes
}

func (s *store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%s: %w", s.dbFilename, err)
	}
	return nil
}

func wrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() == 19 {
			return dao.ErrConstraintViolation
		}
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return dao.ErrNotFound
	}
	return err
}
