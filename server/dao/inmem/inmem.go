// Package inmem provides a dao.Store that keeps everything in memory. It is
// lost when the server stops.
package inmem

import (
	"github.com/dekarrin/pastprint/server/dao"
)

type store struct {
	seshes *InMemorySessionsRepository
}

func NewDatastore() dao.Store {
	return &store{
		seshes: NewSessionsRepository(),
	}
}

func (s *store) Sessions() dao.SessionRepository {
	return s.seshes
}

func (s *store) Close() error {
	return s.seshes.Close()
}
