package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dekarrin/pastprint/internal/util"
	"github.com/dekarrin/pastprint/interp"
	"github.com/dekarrin/pastprint/server/dao"
	"github.com/google/uuid"
)

func NewSessionsRepository() *InMemorySessionsRepository {
	return &InMemorySessionsRepository{
		seshes: make(map[uuid.UUID]dao.Session),
		states: make(map[uuid.UUID][]byte),
	}
}

// InMemorySessionsRepository keeps sessions in a map. Session state is stored
// as its encoded form so that callers never share a *interp.Session with the
// repository.
type InMemorySessionsRepository struct {
	mu     sync.RWMutex
	seshes map[uuid.UUID]dao.Session
	states map[uuid.UUID][]byte
}

func (imsr *InMemorySessionsRepository) Close() error {
	return nil
}

func (imsr *InMemorySessionsRepository) Create(ctx context.Context, s dao.Session) (dao.Session, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.Session{}, fmt.Errorf("could not generate ID: %w", err)
	}

	state, err := encodeState(s.State)
	if err != nil {
		return dao.Session{}, err
	}

	imsr.mu.Lock()
	defer imsr.mu.Unlock()

	s.ID = newUUID
	s.Created = time.Now()
	s.Updated = s.Created
	s.State = nil

	imsr.seshes[s.ID] = s
	imsr.states[s.ID] = state

	return imsr.get(s.ID)
}

func (imsr *InMemorySessionsRepository) GetAll(ctx context.Context) ([]dao.Session, error) {
	imsr.mu.RLock()
	defer imsr.mu.RUnlock()

	all := make([]dao.Session, 0, len(imsr.seshes))
	for id := range imsr.seshes {
		s, err := imsr.get(id)
		if err != nil {
			return nil, err
		}
		all = append(all, s)
	}

	all = util.SortBy(all, func(l, r dao.Session) bool {
		if l.Created.Equal(r.Created) {
			return l.ID.String() < r.ID.String()
		}
		return l.Created.Before(r.Created)
	})

	return all, nil
}

func (imsr *InMemorySessionsRepository) GetByID(ctx context.Context, id uuid.UUID) (dao.Session, error) {
	imsr.mu.RLock()
	defer imsr.mu.RUnlock()

	return imsr.get(id)
}

func (imsr *InMemorySessionsRepository) Update(ctx context.Context, id uuid.UUID, s dao.Session) (dao.Session, error) {
	state, err := encodeState(s.State)
	if err != nil {
		return dao.Session{}, err
	}

	imsr.mu.Lock()
	defer imsr.mu.Unlock()

	existing, ok := imsr.seshes[id]
	if !ok {
		return dao.Session{}, dao.ErrNotFound
	}

	existing.Lines = s.Lines
	existing.Updated = time.Now()
	imsr.seshes[id] = existing
	imsr.states[id] = state

	return imsr.get(id)
}

func (imsr *InMemorySessionsRepository) Delete(ctx context.Context, id uuid.UUID) (dao.Session, error) {
	imsr.mu.Lock()
	defer imsr.mu.Unlock()

	s, err := imsr.get(id)
	if err != nil {
		return dao.Session{}, err
	}

	delete(imsr.seshes, id)
	delete(imsr.states, id)

	return s, nil
}

// get must be called with mu held.
func (imsr *InMemorySessionsRepository) get(id uuid.UUID) (dao.Session, error) {
	s, ok := imsr.seshes[id]
	if !ok {
		return dao.Session{}, dao.ErrNotFound
	}

	s.State = interp.New()
	if err := s.State.UnmarshalBinary(imsr.states[id]); err != nil {
		return dao.Session{}, fmt.Errorf("%w: state: %w", dao.ErrDecodingFailure, err)
	}
	return s, nil
}

func encodeState(state *interp.Session) ([]byte, error) {
	if state == nil {
		state = interp.New()
	}
	data, err := state.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}
