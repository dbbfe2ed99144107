// Package pps has services for interacting with the pastprint server backend
// decoupled from the API that accesses it.
package pps

import (
	"sync"

	"github.com/dekarrin/pastprint/server/dao"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pastprint.server.pps")

// Service is a service for rewriting source and running interactive
// rewriting sessions. It performs the actions requested and makes calls to
// server persistence to preserve session state.
//
// The zero-value of Service is not ready to be used; assign a valid DAO store
// to DB before attempting to use it.
type Service struct {

	// DB is the persistence store of the service.
	DB dao.Store

	// locks holds a *sync.Mutex per session ID. Feeding a session is a
	// read-modify-write of its stored state and must not interleave.
	locks sync.Map
}

func (svc *Service) lock(id uuid.UUID) func() {
	m, _ := svc.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
