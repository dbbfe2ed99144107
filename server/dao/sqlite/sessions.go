package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dekarrin/pastprint/interp"
	"github.com/dekarrin/pastprint/server/dao"
	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
)

// NewSessionsDBConn opens a SessionsDB in its own database file.
func NewSessionsDBConn(file string) (*SessionsDB, error) {
	repo := &SessionsDB{}

	var err error
	repo.db, err = sql.Open("sqlite", file)
	if err != nil {
		return nil, wrapDBError(err)
	}

	return repo, repo.init()
}

type SessionsDB struct {
	db *sql.DB
}

func (repo *SessionsDB) init() error {
	stmt := `CREATE TABLE IF NOT EXISTS sessions (
		id TEXT NOT NULL PRIMARY KEY,
		state TEXT NOT NULL,
		lines INTEGER NOT NULL,
		created INTEGER NOT NULL,
		updated INTEGER NOT NULL
	);`
	_, err := repo.db.Exec(stmt)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (repo *SessionsDB) Create(ctx context.Context, s dao.Session) (dao.Session, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.Session{}, fmt.Errorf("could not generate ID: %w", err)
	}

	stmt, err := repo.db.PrepareContext(ctx, `INSERT INTO sessions (id, state, lines, created, updated) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return dao.Session{}, wrapDBError(err)
	}
	defer stmt.Close()

	now := time.Now()
	_, err = stmt.ExecContext(ctx, newUUID.String(), encodeState(s.State), s.Lines, now.UnixNano(), now.UnixNano())
	if err != nil {
		return dao.Session{}, wrapDBError(err)
	}

	return repo.GetByID(ctx, newUUID)
}

func (repo *SessionsDB) GetAll(ctx context.Context) ([]dao.Session, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT id, state, lines, created, updated FROM sessions ORDER BY created, id;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []dao.Session

	for rows.Next() {
		var id string
		var encState string
		var lines int
		var created int64
		var updated int64
		err = rows.Scan(
			&id,
			&encState,
			&lines,
			&created,
			&updated,
		)
		if err != nil {
			return nil, wrapDBError(err)
		}

		s, err := decodeSession(id, encState, lines, created, updated)
		if err != nil {
			return all, err
		}
		all = append(all, s)
	}

	if err := rows.Err(); err != nil {
		return all, wrapDBError(err)
	}

	return all, nil
}

func (repo *SessionsDB) GetByID(ctx context.Context, id uuid.UUID) (dao.Session, error) {
	var encState string
	var lines int
	var created int64
	var updated int64

	row := repo.db.QueryRowContext(ctx, `SELECT state, lines, created, updated FROM sessions WHERE id = ?;`,
		id.String(),
	)
	err := row.Scan(
		&encState,
		&lines,
		&created,
		&updated,
	)
	if err != nil {
		return dao.Session{}, wrapDBError(err)
	}

	return decodeSession(id.String(), encState, lines, created, updated)
}

func (repo *SessionsDB) Update(ctx context.Context, id uuid.UUID, s dao.Session) (dao.Session, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE sessions SET state=?, lines=?, updated=? WHERE id=?;`,
		encodeState(s.State),
		s.Lines,
		time.Now().UnixNano(),
		id.String(),
	)
	if err != nil {
		return dao.Session{}, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return dao.Session{}, wrapDBError(err)
	}
	if rowsAff < 1 {
		return dao.Session{}, dao.ErrNotFound
	}

	return repo.GetByID(ctx, id)
}

func (repo *SessionsDB) Delete(ctx context.Context, id uuid.UUID) (dao.Session, error) {
	curVal, err := repo.GetByID(ctx, id)
	if err != nil {
		return curVal, err
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return curVal, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return curVal, wrapDBError(err)
	}
	if rowsAff < 1 {
		return curVal, dao.ErrNotFound
	}

	return curVal, nil
}

func (repo *SessionsDB) Close() error {
	return repo.db.Close()
}

// encodeState gives the storage format of a session's state: its REZI
// encoding in base64.
func encodeState(state *interp.Session) string {
	if state == nil {
		state = interp.New()
	}
	return base64.StdEncoding.EncodeToString(rezi.EncBinary(state))
}

func decodeSession(id, encState string, lines int, created, updated int64) (dao.Session, error) {
	var s dao.Session
	var err error

	s.ID, err = uuid.Parse(id)
	if err != nil {
		return s, fmt.Errorf("stored UUID %q is invalid", id)
	}
	s.Lines = lines
	s.Created = time.Unix(0, created)
	s.Updated = time.Unix(0, updated)

	stateData, err := base64.StdEncoding.DecodeString(encState)
	if err != nil {
		return s, fmt.Errorf("%w: stored state for %s: %w", dao.ErrDecodingFailure, id, err)
	}
	s.State = interp.New()
	if _, err := rezi.DecBinary(stateData, s.State); err != nil {
		return s, fmt.Errorf("%w: stored state for %s: %w", dao.ErrDecodingFailure, id, err)
	}

	return s, nil
}
