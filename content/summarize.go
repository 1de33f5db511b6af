package content

import (
	"github.com/ggufkit/ggufkit/container"
	"github.com/ggufkit/ggufkit/ggml"
)

// Summarize builds a container.Report from an in-memory Content, the
// same structured view container.Summarize builds for a single scanned
// file — used by the httpapi /api/summary endpoint once a Content has
// potentially merged, reordered, or rewritten its source files.
func Summarize(c *Content) container.Report {
	r := container.Report{
		Alignment:   uint32(c.Alignment),
		TensorCount: len(c.TensorNames()),
		MetaCount:   len(c.MetaKeys()),
	}
	if v, ok := c.MetaGet("general.architecture"); ok {
		if s, ok := v.(string); ok {
			r.Architecture = s
		}
	}
	if v, ok := c.MetaGet("general.name"); ok {
		if s, ok := v.(string); ok {
			r.Name = s
		}
	}

	byType := make(map[ggml.GGmlType]*container.TensorBreakdown)
	var order []ggml.GGmlType
	for _, name := range c.TensorNames() {
		t, _ := c.TensorGet(name)
		b, ok := byType[t.Type]
		if !ok {
			b = &container.TensorBreakdown{Type: t.Type}
			byType[t.Type] = b
			order = append(order, t.Type)
		}
		info := container.TensorInfo{Name: name, Shape: t.Shape, Type: t.Type}
		n := info.NElements()
		b.Count++
		b.NElements += n
		r.Parameters += n
		if size, err := info.Size(); err == nil {
			b.TotalBytes += size
			r.TotalBytes += size
		}
	}
	for _, ty := range order {
		r.ByType = append(r.ByType, *byType[ty])
	}
	return r
}
