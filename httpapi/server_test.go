package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/ggml"
)

func init() { gin.SetMode(gin.TestMode) }

func testContent() *content.Content {
	c := content.New()
	c.MetaSet("general.architecture", "llama")
	c.MetaSet("general.name", "test-model")
	c.TensorSet("token_embd.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{4, 4}, Data: content.Borrowed(make([]byte, 64))})
	return c
}

func TestGetSummary(t *testing.T) {
	s := New(testContent())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	s.router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "llama")
}

func TestGetMetaKeyMissing(t *testing.T) {
	s := New(testContent())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/meta/nope", nil)
	s.router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTensor(t *testing.T) {
	s := New(testContent())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tensors/token_embd.weight", nil)
	s.router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "F32")
}

func TestGetTensors(t *testing.T) {
	s := New(testContent())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tensors", nil)
	s.router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token_embd.weight")
}
