// Logger and access log tests in Mechat.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestWithCtxAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("test", &buf)

	ctx := context.WithValue(context.Background(), "ReqID", "req-1")
	logger.WithCtx(ctx).With("conn", "c1").Info().Msg("hello")
	entry := lastLine(t, &buf)
	assert.Equal(t, "req-1", entry["ReqID"])
	assert.Equal(t, "c1", entry["conn"])
	assert.Equal(t, "test", entry["Version"])

	// no request id, no field
	logger.WithCtx(context.Background()).Info().Msg("plain")
	assert.NotContains(t, lastLine(t, &buf), "ReqID")
}

func TestLoggerGinExtension(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	router := gin.New()
	router.Use(LoggerGinExtension(NewWithWriter("test", &buf)))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))
	entry := lastLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "/ok?x=1", entry["path"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
	assert.Equal(t, "Request", entry["message"])

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, "warn", lastLine(t, &buf)["level"])
}
