package result

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Result_WriteResponse(t *testing.T) {
	testCases := []struct {
		name         string
		result       Result
		expectStatus int
		expectBody   string
		expectHeader map[string]string
	}{
		{
			name:         "ok with body",
			result:       OK(map[string]string{"result": "print(1)\n"}),
			expectStatus: http.StatusOK,
			expectBody:   `{"result":"print(1)\n"}`,
			expectHeader: map[string]string{"Content-Type": "application/json"},
		},
		{
			name:         "no content",
			result:       NoContent("deleted %s", "x"),
			expectStatus: http.StatusNoContent,
			expectBody:   "",
		},
		{
			name:         "bad request",
			result:       BadRequest("line: property is missing"),
			expectStatus: http.StatusBadRequest,
			expectBody:   `{"error":"line: property is missing","status":400}`,
		},
		{
			name:         "bad request with detail",
			result:       BadRequestDetail("invalid syntax", map[string]int{"line": 2}),
			expectStatus: http.StatusBadRequest,
			expectBody:   `{"error":"invalid syntax","status":400,"detail":{"line":2}}`,
		},
		{
			name:         "unauthorized sets challenge",
			result:       Unauthorized(""),
			expectStatus: http.StatusUnauthorized,
			expectBody:   `{"error":"You are not authorized to do that","status":401}`,
			expectHeader: map[string]string{"WWW-Authenticate": `Bearer realm="pastprint server", charset="utf-8"`},
		},
		{
			name:         "text error",
			result:       TextErr(http.StatusInternalServerError, "oh no", "panic: %s", "x"),
			expectStatus: http.StatusInternalServerError,
			expectBody:   "oh no",
			expectHeader: map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)

			tc.result.WriteResponse(w, req)

			assert.Equal(tc.expectStatus, w.Code)
			assert.Equal(tc.expectBody, w.Body.String())
			for k, v := range tc.expectHeader {
				assert.Equal(v, w.Header().Get(k))
			}
		})
	}
}

func Test_Result_internalMsg(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("OK", OK(nil).InternalMsg)
	assert.Equal("session 5 fed", OK(nil, "session %d fed", 5).InternalMsg)
	assert.True(NotFound().IsErr)
	assert.False(Created(struct{}{}).IsErr)
}

func Test_Result_WithHeader_doesNotShare(t *testing.T) {
	assert := assert.New(t)

	base := OK(nil).WithHeader("A", "1")
	r1 := base.WithHeader("B", "2")
	r2 := base.WithHeader("C", "3")

	assert.Len(base.hdrs, 1)
	assert.Equal([2]string{"B", "2"}, r1.hdrs[1])
	assert.Equal([2]string{"C", "3"}, r2.hdrs[1])
}
