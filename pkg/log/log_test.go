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

func TestCtxFallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Output: &buf})

	ctx := WithLogger(context.Background(), logger)
	l := Ctx(ctx)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)

	// No logger stored: must not panic and must return a usable logger.
	g := Ctx(context.Background())
	g.Debug().Msg("ignored")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "warn", parseLevel("WARNING").String())
	assert.Equal(t, "info", parseLevel("").String())
	assert.Equal(t, "disabled", parseLevel("off").String())
}

func TestGinMiddlewareLogsActor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := New(Config{Level: "info", Output: &buf, ServiceName: "messaging-service"})

	r := gin.New()
	r.Use(GinMiddleware(logger))
	r.GET("/ping", func(c *gin.Context) {
		c.Set(FieldUserID, "u-1")
		c.Set(FieldRole, "Manager")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "req-42", entry[FieldRequestID])
	assert.Equal(t, "u-1", entry[FieldUserID])
	assert.Equal(t, "Manager", entry[FieldRole])
	assert.Equal(t, "messaging-service", entry[FieldService])
	assert.EqualValues(t, http.StatusNoContent, entry[FieldStatus])
}

func TestHTTPMiddlewareGeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	h := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/messages", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	assert.Contains(t, buf.String(), `"status":418`)
}
