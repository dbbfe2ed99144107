// Package result contains results that are used to write out API responses.
package result

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the body of every JSON error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`

	// Detail is extra structured information about the error, such as the
	// location of a syntax error.
	Detail interface{} `json:"detail,omitempty"`
}

// internalMessage returns the message for the log made from the optional
// format string and args in internalMsg, or def if there are none.
func internalMessage(def string, internalMsg []interface{}) (string, []interface{}) {
	if len(internalMsg) < 1 {
		return def, nil
	}
	return internalMsg[0].(string), internalMsg[1:]
}

// OK returns a Result containing an HTTP-200 along with a more detailed
// message (if desired; if none is provided it defaults to a generic one) that
// is not displayed to the user.
func OK(respObj interface{}, internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("OK", internalMsg)
	return Response(http.StatusOK, respObj, msgFmt, args...)
}

// NoContent returns a Result containing an HTTP-204.
func NoContent(internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("no content", internalMsg)
	return Response(http.StatusNoContent, nil, msgFmt, args...)
}

// Created returns a Result containing an HTTP-201.
func Created(respObj interface{}, internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("created", internalMsg)
	return Response(http.StatusCreated, respObj, msgFmt, args...)
}

// BadRequest returns a Result containing an HTTP-400 that shows userMsg to
// the client.
func BadRequest(userMsg string, internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("bad request", internalMsg)
	return Err(http.StatusBadRequest, userMsg, msgFmt, args...)
}

// BadRequestDetail is BadRequest with structured detail in the response.
func BadRequestDetail(userMsg string, detail interface{}, internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("bad request", internalMsg)
	r := Err(http.StatusBadRequest, userMsg, msgFmt, args...)
	r.resp = ErrorResponse{
		Error:  userMsg,
		Status: http.StatusBadRequest,
		Detail: detail,
	}
	return r
}

// MethodNotAllowed returns a Result containing an HTTP-405.
func MethodNotAllowed(req *http.Request, internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("method not allowed", internalMsg)
	userMsg := fmt.Sprintf("Method %s is not allowed for %s", req.Method, req.URL.Path)
	return Err(http.StatusMethodNotAllowed, userMsg, msgFmt, args...)
}

// NotFound returns a Result containing an HTTP-404 response.
func NotFound(internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("not found", internalMsg)
	return Err(http.StatusNotFound, "The requested resource was not found", msgFmt, args...)
}

// Forbidden returns a Result containing an HTTP-403 response.
func Forbidden(internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("forbidden", internalMsg)
	return Err(http.StatusForbidden, "You don't have permission to do that", msgFmt, args...)
}

// Unauthorized returns a Result containing an HTTP-401 response along with the
// proper WWW-Authenticate header. If userMsg is empty a generic one is used.
func Unauthorized(userMsg string, internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("unauthorized", internalMsg)
	if userMsg == "" {
		userMsg = "You are not authorized to do that"
	}

	return Err(http.StatusUnauthorized, userMsg, msgFmt, args...).
		WithHeader("WWW-Authenticate", `Bearer realm="pastprint server", charset="utf-8"`)
}

// InternalServerError returns a Result containing an HTTP-500 response along
// with a more detailed message that is not displayed to the user. If
// internalMsg is provided the first argument must be a format string for the
// rest.
func InternalServerError(internalMsg ...interface{}) Result {
	msgFmt, args := internalMessage("internal server error", internalMsg)
	return Err(http.StatusInternalServerError, "An internal server error occurred", msgFmt, args...)
}

// Response returns a non-error JSON Result. If status is
// http.StatusNoContent, respObj will not be read and may be nil. Otherwise,
// respObj MUST NOT be nil.
func Response(status int, respObj interface{}, internalMsg string, v ...interface{}) Result {
	return Result{
		IsJSON:      true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp:        respObj,
	}
}

// Err returns a JSON error Result that shows userMsg to the client.
func Err(status int, userMsg, internalMsg string, v ...interface{}) Result {
	return Result{
		IsJSON:      true,
		IsErr:       true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp: ErrorResponse{
			Error:  userMsg,
			Status: status,
		},
	}
}

// Redirection returns a Result that permanently redirects to uri.
func Redirection(uri string) Result {
	return Result{
		Status:      http.StatusPermanentRedirect,
		InternalMsg: fmt.Sprintf("redirect -> %s", uri),
		redir:       uri,
	}
}

// TextErr is like Err but it avoids JSON encoding of any kind and writes the
// output as plain text.
func TextErr(status int, userMsg, internalMsg string, v ...interface{}) Result {
	return Result{
		IsErr:       true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp:        userMsg,
	}
}

// Result is the outcome of an endpoint, ready to be written as an HTTP
// response.
type Result struct {
	Status      int
	IsErr       bool
	IsJSON      bool
	InternalMsg string

	resp  interface{}
	redir string
	hdrs  [][2]string

	// set by calling PrepareMarshaledResponse.
	respJSONBytes []byte
}

// WithHeader returns a copy of r that also sets the given header.
func (r Result) WithHeader(name, val string) Result {
	cp := r
	cp.hdrs = append(append([][2]string(nil), r.hdrs...), [2]string{name, val})
	return cp
}

// PrepareMarshaledResponse marshals the response body if one is needed. If
// there is a problem marshaling, an error is returned. Calling it again after
// a success has no effect.
func (r *Result) PrepareMarshaledResponse() error {
	if r.respJSONBytes != nil {
		return nil
	}

	if r.IsJSON && r.Status != http.StatusNoContent && r.redir == "" {
		var err error
		r.respJSONBytes, err = json.Marshal(r.resp)
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteResponse writes r to w. It panics if r was never populated or its body
// cannot be marshaled.
func (r Result) WriteResponse(w http.ResponseWriter, req *http.Request) {
	if r.Status == 0 {
		panic("result not populated")
	}

	if err := r.PrepareMarshaledResponse(); err != nil {
		panic(fmt.Sprintf("could not marshal response: %s", err.Error()))
	}

	var respBytes []byte

	if r.IsJSON {
		w.Header().Set("Content-Type", "application/json")
		respBytes = r.respJSONBytes
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if r.Status != http.StatusNoContent && r.redir == "" {
			respBytes = []byte(fmt.Sprintf("%v", r.resp))
		}
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.redir != "" {
		http.Redirect(w, req, r.redir, r.Status)
		return
	}

	for i := range r.hdrs {
		w.Header().Set(r.hdrs[i][0], r.hdrs[i][1])
	}

	w.WriteHeader(r.Status)

	if r.Status != http.StatusNoContent {
		w.Write(respBytes)
	}
}
