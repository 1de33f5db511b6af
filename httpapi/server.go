// Package httpapi serves a read-only view of a loaded GGUF Content over
// HTTP: a summary report, the metadata table, and the tensor index,
// following the teacher's gin-based Serve(net.Listener) wiring without
// any of its inference machinery.
package httpapi

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ggufkit/ggufkit/content"
)

// Server exposes a single, already-loaded Content for read-only
// inspection. It does not support concurrent mutation of c; callers
// that need to serve a pipeline's output should finish every operator
// pass before calling Serve.
type Server struct {
	c *content.Content
}

// New wraps c for serving.
func New(c *content.Content) *Server {
	return &Server{c: c}
}

func (s *Server) router() *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet},
	}))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ggufkit is running")
	})
	r.GET("/api/summary", s.getSummary)
	r.GET("/api/meta", s.getMeta)
	r.GET("/api/meta/:key", s.getMetaKey)
	r.GET("/api/tensors", s.getTensors)
	r.GET("/api/tensors/:name", s.getTensor)

	return r
}

// Serve runs the HTTP server on ln until it returns an error, mirroring
// the teacher's Serve(net.Listener) signature.
func (s *Server) Serve(ln net.Listener) error {
	r := s.router()
	slog.Info("httpapi listening", slog.String("addr", ln.Addr().String()))
	server := &http.Server{Handler: r}
	return server.Serve(ln)
}

func (s *Server) getSummary(c *gin.Context) {
	c.JSON(http.StatusOK, content.Summarize(s.c))
}

func (s *Server) getMeta(c *gin.Context) {
	out := make(map[string]any, len(s.c.MetaKeys()))
	for _, k := range s.c.MetaKeys() {
		v, _ := s.c.MetaGet(k)
		out[k] = v
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getMetaKey(c *gin.Context) {
	v, ok := s.c.MetaGet(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "metadata key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": v})
}

type tensorView struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	Shape []uint64 `json:"shape"`
}

func (s *Server) getTensors(c *gin.Context) {
	names := s.c.TensorNames()
	out := make([]tensorView, 0, len(names))
	for _, n := range names {
		t, _ := s.c.TensorGet(n)
		out = append(out, tensorView{Name: n, Type: t.Type.String(), Shape: t.Shape})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getTensor(c *gin.Context) {
	name := c.Param("name")
	t, ok := s.c.TensorGet(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tensor not found"})
		return
	}
	c.JSON(http.StatusOK, tensorView{Name: name, Type: t.Type.String(), Shape: t.Shape})
}
