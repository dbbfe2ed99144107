// Package middle contains middleware for use with the pastprint server.
package middle

import (
	"context"
	"net/http"
	"time"

	"github.com/dekarrin/pastprint/server/dao"
	"github.com/dekarrin/pastprint/server/result"
	"github.com/dekarrin/pastprint/server/token"
)

// Middleware is a function that takes a handler and returns a new handler which
// wraps the given one and provides some additional functionality.
type Middleware func(next http.Handler) http.Handler

// AuthKey is a key in the context of a request populated by an AuthHandler.
type AuthKey int64

const (
	AuthLoggedIn AuthKey = iota
	AuthSession
)

// AuthHandler is middleware that will accept a request, extract the token used
// for authentication, and look up the session the token was issued for.
//
// Keys are added to the request context before the request is passed to the
// next step in the chain. AuthSession will contain the session of the token,
// and AuthLoggedIn will hold whether a valid token was given (only applies
// for optional auth; for required auth, a missing or invalid token results in
// an HTTP error being returned before the request is passed on).
type AuthHandler struct {
	db            dao.SessionRepository
	secret        []byte
	required      bool
	unauthedDelay time.Duration
	next          http.Handler
}

func (ah *AuthHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var loggedIn bool
	var sesh dao.Session

	tok, err := token.Get(req)
	if err == nil {
		sesh, err = token.Validate(req.Context(), tok, ah.secret, ah.db)
		loggedIn = err == nil
	}

	if err != nil && ah.required {
		r := result.Unauthorized("", err.Error())
		time.Sleep(ah.unauthedDelay)
		r.WriteResponse(w, req)
		return
	}

	ctx := req.Context()
	ctx = context.WithValue(ctx, AuthLoggedIn, loggedIn)
	ctx = context.WithValue(ctx, AuthSession, sesh)
	req = req.WithContext(ctx)
	ah.next.ServeHTTP(w, req)
}

// RequireAuth returns Middleware that rejects requests without a valid
// session token.
func RequireAuth(db dao.SessionRepository, secret []byte, unauthDelay time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return &AuthHandler{
			db:            db,
			secret:        secret,
			unauthedDelay: unauthDelay,
			required:      true,
			next:          next,
		}
	}
}

// OptionalAuth returns Middleware that records whether a request has a valid
// session token without rejecting it.
func OptionalAuth(db dao.SessionRepository, secret []byte, unauthDelay time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return &AuthHandler{
			db:            db,
			secret:        secret,
			unauthedDelay: unauthDelay,
			required:      false,
			next:          next,
		}
	}
}
