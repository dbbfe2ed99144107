package api

import (
	"errors"
	"net/http"

	"github.com/dekarrin/pastprint/rewrite"
	"github.com/dekarrin/pastprint/server/result"
)

// HTTPCreateRewrite returns a HandlerFunc that rewrites the print statements
// in a complete module. No authentication is needed.
func (api API) HTTPCreateRewrite() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateRewrite)
}

func (api API) epCreateRewrite(req *http.Request) result.Result {
	var rewriteData RewriteRequest
	err := parseJSON(req, &rewriteData)
	if err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}

	out, err := api.Backend.Rewrite(req.Context(), rewriteData.Source, rewriteData.Filename)
	if err != nil {
		var se *rewrite.SyntaxError
		if errors.As(err, &se) {
			return result.BadRequestDetail("SyntaxError: "+se.Error(), syntaxErrorModel(se), "rewrite: %s", se.Error())
		}
		return result.InternalServerError("rewrite: %s", err.Error())
	}

	return result.OK(RewriteResponse{Result: out}, "rewrote %d bytes", len(rewriteData.Source))
}

// HTTPCreateCheck returns a HandlerFunc that reports whether a complete module
// would rewrite without error. No authentication is needed.
func (api API) HTTPCreateCheck() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateCheck)
}

func (api API) epCreateCheck(req *http.Request) result.Result {
	var checkData RewriteRequest
	err := parseJSON(req, &checkData)
	if err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}

	err = api.Backend.Check(req.Context(), checkData.Source, checkData.Filename)
	if err != nil {
		var se *rewrite.SyntaxError
		if errors.As(err, &se) {
			return result.BadRequestDetail("SyntaxError: "+se.Error(), syntaxErrorModel(se), "check: %s", se.Error())
		}
		return result.InternalServerError("check: %s", err.Error())
	}

	return result.OK(CheckResponse{Valid: true}, "checked %d bytes", len(checkData.Source))
}

func syntaxErrorModel(se *rewrite.SyntaxError) SyntaxErrorModel {
	return SyntaxErrorModel{
		Filename:   se.Filename(),
		Line:       se.Line(),
		Position:   se.Position(),
		Message:    se.Message(),
		SourceLine: se.SourceLine(),
		Traceback:  se.Traceback(),
	}
}
