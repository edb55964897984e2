package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSuccess_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(RequestIDKey, "req-1")

	Success(c, 0, map[string]int{"n": 1}, "ok", NewPageMeta(20, 0, 20))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "req-1", body["request_id"])
	assert.Equal(t, map[string]any{"n": float64(1)}, body["data"])
	meta := body["meta"].(map[string]any)
	assert.Equal(t, true, meta["has_more"])
	assert.NotContains(t, meta, "owner")
	assert.NotContains(t, body, "error")
}

func TestAbort_StopsChain(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Abort(c, http.StatusForbidden, "nope", ErrorBody{Code: "forbidden"})

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, map[string]any{"code": "forbidden"}, body["error"])
}

func TestError_DefaultsToBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, 0, "bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewPageMeta(t *testing.T) {
	assert.False(t, NewPageMeta(20, 0, 3).HasMore)
	assert.True(t, NewPageMeta(2, 4, 2).HasMore)
	assert.False(t, NewPageMeta(0, 0, 0).HasMore)
}
