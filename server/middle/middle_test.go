package middle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dekarrin/pastprint/server/dao"
	"github.com/dekarrin/pastprint/server/dao/inmem"
	"github.com/dekarrin/pastprint/server/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func Test_AuthHandler(t *testing.T) {
	repo := inmem.NewSessionsRepository()
	sesh, err := repo.Create(context.Background(), dao.Session{})
	require.NoError(t, err)
	tok, err := token.Generate(testSecret, sesh)
	require.NoError(t, err)

	testCases := []struct {
		name           string
		mw             Middleware
		authHeader     string
		expectStatus   int
		expectLoggedIn bool
		expectID       uuid.UUID
	}{
		{
			name:           "required, valid token",
			mw:             RequireAuth(repo, testSecret, 0),
			authHeader:     "Bearer " + tok,
			expectStatus:   http.StatusOK,
			expectLoggedIn: true,
			expectID:       sesh.ID,
		},
		{
			name:         "required, no token",
			mw:           RequireAuth(repo, testSecret, 0),
			expectStatus: http.StatusUnauthorized,
		},
		{
			name:         "required, not bearer",
			mw:           RequireAuth(repo, testSecret, 0),
			authHeader:   "Basic " + tok,
			expectStatus: http.StatusUnauthorized,
		},
		{
			name:         "required, bad token",
			mw:           RequireAuth(repo, testSecret, 0),
			authHeader:   "Bearer " + tok + "x",
			expectStatus: http.StatusUnauthorized,
		},
		{
			name:           "optional, valid token",
			mw:             OptionalAuth(repo, testSecret, 0),
			authHeader:     "Bearer " + tok,
			expectStatus:   http.StatusOK,
			expectLoggedIn: true,
			expectID:       sesh.ID,
		},
		{
			name:         "optional, no token",
			mw:           OptionalAuth(repo, testSecret, 0),
			expectStatus: http.StatusOK,
		},
		{
			name:         "optional, bad token",
			mw:           OptionalAuth(repo, testSecret, 0),
			authHeader:   "Bearer nope",
			expectStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var called bool
			var loggedIn bool
			var got dao.Session
			next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				called = true
				loggedIn = req.Context().Value(AuthLoggedIn).(bool)
				got = req.Context().Value(AuthSession).(dao.Session)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			w := httptest.NewRecorder()
			tc.mw(next).ServeHTTP(w, req)

			assert.Equal(tc.expectStatus, w.Code)
			assert.Equal(tc.expectStatus == http.StatusOK, called)
			assert.Equal(tc.expectLoggedIn, loggedIn)
			assert.Equal(tc.expectID, got.ID)
			if tc.expectStatus == http.StatusUnauthorized {
				assert.NotEmpty(w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
