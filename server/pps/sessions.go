package pps

import (
	"context"
	"errors"
	"strings"

	"github.com/dekarrin/pastprint/interp"
	"github.com/dekarrin/pastprint/server/dao"
	"github.com/dekarrin/pastprint/server/serr"
	"github.com/google/uuid"
)

// CreateSession starts a new interactive rewriting session. Empty prompts are
// given their defaults.
//
// The returned error, if non-nil, will match serr.ErrBadArgument if the two
// prompts are the same and serr.ErrDB if there was a problem with the DB.
func (svc *Service) CreateSession(ctx context.Context, prompts interp.Prompts) (dao.Session, error) {
	if prompts.Primary == "" {
		prompts.Primary = interp.DefaultPrompts.Primary
	}
	if prompts.Continuation == "" {
		prompts.Continuation = interp.DefaultPrompts.Continuation
	}
	if prompts.Primary == prompts.Continuation {
		return dao.Session{}, serr.New("primary and continuation prompts must differ", serr.ErrBadArgument)
	}

	sesh, err := svc.DB.Sessions().Create(ctx, dao.Session{State: interp.New(interp.WithPrompts(prompts))})
	if err != nil {
		return dao.Session{}, serr.WrapDB("could not create session", err)
	}

	log.Infof("created session %s", sesh.ID)
	return sesh, nil
}

// GetSession returns the session with the given ID.
//
// The returned error, if non-nil, will match serr.ErrNotFound if no session
// with that ID exists and serr.ErrDB if there was a problem with the DB.
func (svc *Service) GetSession(ctx context.Context, id uuid.UUID) (dao.Session, error) {
	sesh, err := svc.DB.Sessions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.Session{}, serr.ErrNotFound
		}
		return dao.Session{}, serr.WrapDB("could not get session", err)
	}
	return sesh, nil
}

// GetAllSessions returns every session in persistence.
func (svc *Service) GetAllSessions(ctx context.Context) ([]dao.Session, error) {
	all, err := svc.DB.Sessions().GetAll(ctx)
	if err != nil {
		return nil, serr.WrapDB("", err)
	}
	return all, nil
}

// FeedLine gives the session with the given ID a line read with prompt and
// returns the line the interpreter should receive in its place along with the
// updated session. An empty line means end of input; any other line without a
// trailing newline is given one. An empty prompt is taken to be the session's
// continuation prompt while a statement is pending and its primary prompt
// otherwise.
//
// The returned error, if non-nil, will match serr.ErrNotFound if no session
// with that ID exists, serr.ErrBadArgument if line holds more than one line or
// prompt is the primary prompt while a statement is pending, and serr.ErrDB if
// there was a problem with the DB.
func (svc *Service) FeedLine(ctx context.Context, id uuid.UUID, line, prompt string) (string, dao.Session, error) {
	if line != "" && !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if strings.Contains(strings.TrimSuffix(line, "\n"), "\n") {
		return "", dao.Session{}, serr.New("line must not contain a newline except at its end", serr.ErrBadArgument)
	}

	unlock := svc.lock(id)
	defer unlock()

	sesh, err := svc.GetSession(ctx, id)
	if err != nil {
		return "", dao.Session{}, err
	}

	prompts := sesh.State.Prompts()
	if prompt == "" {
		prompt = prompts.Primary
		if sesh.State.Pending() {
			prompt = prompts.Continuation
		}
	} else if prompt == prompts.Primary && sesh.State.Pending() {
		return "", dao.Session{}, serr.New("primary prompt given while a statement is pending", serr.ErrBadArgument)
	}

	out := sesh.State.Feed(line, prompt)
	sesh.Lines++

	updated, err := svc.DB.Sessions().Update(ctx, id, sesh)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return "", dao.Session{}, serr.ErrNotFound
		}
		return "", dao.Session{}, serr.WrapDB("could not save session", err)
	}

	return out, updated, nil
}

// DeleteSession deletes the session with the given ID and returns it as it
// was just before deletion.
//
// The returned error, if non-nil, will match serr.ErrNotFound if no session
// with that ID exists and serr.ErrDB if there was a problem with the DB.
func (svc *Service) DeleteSession(ctx context.Context, id uuid.UUID) (dao.Session, error) {
	unlock := svc.lock(id)
	defer unlock()

	sesh, err := svc.DB.Sessions().Delete(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.Session{}, serr.ErrNotFound
		}
		return dao.Session{}, serr.WrapDB("could not delete session", err)
	}

	svc.locks.Delete(id)
	log.Infof("deleted session %s", id)
	return sesh, nil
}
