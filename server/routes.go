package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/dekarrin/pastprint/server/api"
	"github.com/dekarrin/pastprint/server/middle"
	"github.com/dekarrin/pastprint/server/result"
	"github.com/go-chi/chi/v5"
)

var (
	paramTypePats = map[string]string{
		"uuid": "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}",
	}
)

// p is a quick parameter in a URI, made very small to ease readability in route
// listings.
func p(nameType string) string {
	var name string
	var pat string

	parts := strings.SplitN(nameType, ":", 2)
	name = parts[0]
	if len(parts) == 2 {
		// we have a type, if it's a name in the paramTypePats map use that else
		// treat it as a normal pattern
		pat = parts[1]

		if translatedPat, ok := paramTypePats[parts[1]]; ok {
			pat = translatedPat
		}
	}

	if pat == "" {
		return "{" + name + "}"
	}
	return "{" + name + ":" + pat + "}"
}

func newRouter(a api.API) chi.Router {
	r := chi.NewRouter()

	r.Mount(api.PathPrefix, newAPIRouter(a))

	return r
}

func newAPIRouter(a api.API) chi.Router {
	r := chi.NewRouter()

	r.Mount("/rewrite", newRewriteRouter(a))
	r.Mount("/check", newCheckRouter(a))
	r.Mount("/sessions", newSessionsRouter(a))
	r.Mount("/info", newInfoRouter(a))
	r.HandleFunc("/info/", RedirectNoTrailingSlash)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		result.NotFound().WriteResponse(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(a.UnauthDelay)
		result.MethodNotAllowed(r).WriteResponse(w, r)
	})

	return r
}

func newRewriteRouter(a api.API) chi.Router {
	r := chi.NewRouter()

	r.Post("/", a.HTTPCreateRewrite())

	return r
}

func newCheckRouter(a api.API) chi.Router {
	r := chi.NewRouter()

	r.Post("/", a.HTTPCreateCheck())

	return r
}

func newSessionsRouter(a api.API) chi.Router {
	reqAuth := middle.RequireAuth(a.Backend.DB.Sessions(), a.Secret, a.UnauthDelay)

	r := chi.NewRouter()

	r.Post("/", a.HTTPCreateSession())

	r.Route("/"+p("id:uuid"), func(r chi.Router) {
		r.Use(reqAuth)
		r.Get("/", a.HTTPGetSession())
		r.Delete("/", a.HTTPDeleteSession())
		r.Post("/lines", a.HTTPCreateLine())
	})

	return r
}

func newInfoRouter(a api.API) chi.Router {
	optAuth := middle.OptionalAuth(a.Backend.DB.Sessions(), a.Secret, a.UnauthDelay)

	r := chi.NewRouter()

	r.With(optAuth).Get("/", a.HTTPGetInfo())

	return r
}

// RedirectNoTrailingSlash is an http.HandlerFunc that redirects to the same URL as the
// request but with no trailing slash.
func RedirectNoTrailingSlash(w http.ResponseWriter, req *http.Request) {
	redirPath := strings.TrimRight(req.URL.Path, "/")
	result.Redirection(redirPath).WriteResponse(w, req)
}
