// Package server provides a REST server that rewrites Python print statements,
// either for whole modules or line by line for remote interactive sessions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dekarrin/pastprint/server/api"
	"github.com/dekarrin/pastprint/server/dao"
	"github.com/dekarrin/pastprint/server/pps"
	"github.com/go-chi/chi/v5"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pastprint.server")

// server:
//   - POST   /rewrite              - rewrite a whole module (auth not required)
//   - POST   /check                - check that a module would rewrite (auth not required)
//   - POST   /sessions             - create a new session and get its token
//   - GET    /sessions/{id}        - get a session's state (session token required)
//   - DELETE /sessions/{id}        - end a session (session token required)
//   - POST   /sessions/{id}/lines  - feed a line to a session (session token required)
//   - GET    /info                 - get version info on the server

// PastPrintServer is an HTTP REST server that rewrites print statements. The
// zero-value of a PastPrintServer should not be used directly; call New() to
// get one ready for use.
type PastPrintServer struct {
	router  chi.Router
	db      dao.Store
	backend *pps.Service

	mu   sync.Mutex
	http *http.Server
}

// New creates a new PastPrintServer using the given config. Unset values in
// cfg are given their defaults.
func New(cfg Config) (*PastPrintServer, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := connect(cfg.DB)
	if err != nil {
		return nil, err
	}

	srv := &PastPrintServer{
		db:      db,
		backend: &pps.Service{DB: db},
	}

	a := api.API{
		Backend:     srv.backend,
		UnauthDelay: cfg.UnauthDelay(),
		Secret:      cfg.TokenSecret,
	}
	srv.router = newRouter(a)

	return srv, nil
}

// Handler returns the handler that serves all of the server's routes.
func (srv *PastPrintServer) Handler() http.Handler {
	return srv.router
}

// Backend returns the service the server's endpoints call.
func (srv *PastPrintServer) Backend() *pps.Service {
	return srv.backend
}

// ServeForever begins listening on the given address and port for HTTP REST
// client requests. If address is kept as "", it will default to "localhost". If
// port is less than 1, it will default to 8080. It returns only once the
// server stops; after Shutdown, the returned error is nil.
func (srv *PastPrintServer) ServeForever(address string, port int) error {
	if address == "" {
		address = "localhost"
	}
	if port < 1 {
		port = 8080
	}

	listenAddress := fmt.Sprintf("%s:%d", address, port)
	hs := &http.Server{
		Addr:              listenAddress,
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.mu.Lock()
	srv.http = hs
	srv.mu.Unlock()

	log.Noticef("Listening on %s", listenAddress)
	err := hs.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully and closes its DB.
func (srv *PastPrintServer) Shutdown(ctx context.Context) error {
	srv.mu.Lock()
	hs := srv.http
	srv.mu.Unlock()

	var err error
	if hs != nil {
		err = hs.Shutdown(ctx)
	}
	if dbErr := srv.db.Close(); dbErr != nil && err == nil {
		err = fmt.Errorf("close DB: %w", dbErr)
	}
	return err
}
