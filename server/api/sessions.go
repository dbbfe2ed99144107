package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/dekarrin/pastprint/interp"
	"github.com/dekarrin/pastprint/server/dao"
	"github.com/dekarrin/pastprint/server/middle"
	"github.com/dekarrin/pastprint/server/result"
	"github.com/dekarrin/pastprint/server/serr"
	"github.com/dekarrin/pastprint/server/token"
)

// HTTPCreateSession returns a HandlerFunc that starts a new interactive
// rewriting session and returns its ID along with the token needed to use it.
func (api API) HTTPCreateSession() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateSession)
}

func (api API) epCreateSession(req *http.Request) result.Result {
	var seshData SessionRequest
	if req.ContentLength != 0 {
		err := parseJSON(req, &seshData)
		if err != nil {
			return result.BadRequest(err.Error(), err.Error())
		}
	}

	sesh, err := api.Backend.CreateSession(req.Context(), interp.Prompts{Primary: seshData.PS1, Continuation: seshData.PS2})
	if err != nil {
		if errors.Is(err, serr.ErrBadArgument) {
			return result.BadRequest(err.Error(), err.Error())
		}
		return result.InternalServerError(err.Error())
	}

	tok, err := token.Generate(api.Secret, sesh)
	if err != nil {
		return result.InternalServerError("could not generate JWT: " + err.Error())
	}

	resp := SessionCreatedResponse{
		ID:    sesh.ID.String(),
		Token: tok,
	}
	return result.Created(resp, "session %s created", sesh.ID)
}

// HTTPGetSession returns a HandlerFunc that gets the state of a session.
//
// The handler has requirements for the request context it receives, and if the
// requirements are not met it may return an HTTP-500. The context must contain
// the ID of the session and the session of the client's token.
func (api API) HTTPGetSession() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetSession)
}

func (api API) epGetSession(req *http.Request) result.Result {
	id := requireIDParam(req)
	if r, ok := api.checkOwner(req); !ok {
		return r
	}

	sesh, err := api.Backend.GetSession(req.Context(), id)
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}

	return result.OK(sessionModel(sesh), "got session %s", id)
}

// HTTPCreateLine returns a HandlerFunc that feeds one line to a session and
// returns the line the interpreter should get instead.
//
// The handler has requirements for the request context it receives, and if the
// requirements are not met it may return an HTTP-500. The context must contain
// the ID of the session and the session of the client's token.
func (api API) HTTPCreateLine() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateLine)
}

func (api API) epCreateLine(req *http.Request) result.Result {
	id := requireIDParam(req)
	if r, ok := api.checkOwner(req); !ok {
		return r
	}

	var lineData LineRequest
	err := parseJSON(req, &lineData)
	if err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}

	out, sesh, err := api.Backend.FeedLine(req.Context(), id, lineData.Line, lineData.Prompt)
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		} else if errors.Is(err, serr.ErrBadArgument) {
			return result.BadRequest(err.Error(), err.Error())
		}
		return result.InternalServerError(err.Error())
	}

	resp := LineResponse{
		Line:    out,
		Pending: sesh.State.Pending(),
	}
	return result.OK(resp, "session %s fed line %d", id, sesh.Lines)
}

// HTTPDeleteSession returns a HandlerFunc that ends a session. Its token is
// no longer valid afterwards.
//
// The handler has requirements for the request context it receives, and if the
// requirements are not met it may return an HTTP-500. The context must contain
// the ID of the session and the session of the client's token.
func (api API) HTTPDeleteSession() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epDeleteSession)
}

func (api API) epDeleteSession(req *http.Request) result.Result {
	id := requireIDParam(req)
	if r, ok := api.checkOwner(req); !ok {
		return r
	}

	_, err := api.Backend.DeleteSession(req.Context(), id)
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError("could not delete session: " + err.Error())
	}

	return result.NoContent("session %s deleted", id)
}

// checkOwner returns a Forbidden result and false if the client's token is
// not for the session in the URI.
func (api API) checkOwner(req *http.Request) (result.Result, bool) {
	id := requireIDParam(req)
	sesh := req.Context().Value(middle.AuthSession).(dao.Session)

	if sesh.ID != id {
		return result.Forbidden("session %s token used for session %s", sesh.ID, id), false
	}
	return result.Result{}, true
}

func sessionModel(sesh dao.Session) SessionModel {
	prompts := sesh.State.Prompts()
	context := sesh.State.Context()
	if context == nil {
		context = []string{}
	}
	return SessionModel{
		URI:     PathPrefix + "/sessions/" + sesh.ID.String(),
		ID:      sesh.ID.String(),
		Created: sesh.Created.Format(time.RFC3339),
		Updated: sesh.Updated.Format(time.RFC3339),
		Lines:   sesh.Lines,
		PS1:     prompts.Primary,
		PS2:     prompts.Continuation,
		Context: context,
		Pending: sesh.State.Pending(),
	}
}
