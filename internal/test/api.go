package test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Format of Request helper ExecuteAPITest() handles
type RequestAPITest struct {
	Method       string            // Method of API request - [GET, POST, PUT, DELETE . . .]
	Path         string            // API Path
	Body         io.Reader         // Request Body
	WantResponse []int             // Expected Response according to request
	Headers      map[string]string // Request headers
	Cookies      []*http.Cookie    // Request cookies
}

// Helper to execute API tests in Mechat.
// Returns the recorder so callers can assert on the body.
func ExecuteAPITest(t *testing.T, router *gin.Engine, request RequestAPITest) *httptest.ResponseRecorder {
	// Setup the test request
	req, reqerr := http.NewRequest(request.Method, request.Path, request.Body)
	require.NoError(t, reqerr)
	for key, val := range request.Headers {
		req.Header.Set(key, val)
	}
	for _, cookie := range request.Cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	// Assert the response
	assert.Contains(t, request.WantResponse, w.Code)
	return w
}
