package container

import "github.com/ggufkit/ggufkit/ggml"

// TensorBreakdown is one row of a per-type tensor size/count report.
type TensorBreakdown struct {
	Type       ggml.GGmlType
	Count      int
	NElements  uint64
	TotalBytes uint64
}

// Report is a structured summary of a scanned file (from Summarize) or of
// an in-memory Content (from content.Summarize, which backs the httpapi
// /api/summary endpoint).
type Report struct {
	Architecture string
	Name         string
	Version      uint32
	Alignment    uint32
	TensorCount  int
	MetaCount    int
	Parameters   uint64
	TotalBytes   uint64
	ByType       []TensorBreakdown
}

// Summarize builds a Report from a scanned file: architecture/name
// metadata, tensor and parameter counts, and a per-type size breakdown.
func Summarize(f *File) Report {
	r := Report{
		Architecture: f.Architecture(),
		Version:      f.Header.Version,
		Alignment:    f.Meta.Alignment(),
		TensorCount:  f.Tensors.Len(),
		MetaCount:    f.Meta.Len(),
	}
	if v, ok := f.Meta.Get("general.name"); ok {
		if s, ok := v.(string); ok {
			r.Name = s
		}
	}

	byType := make(map[ggml.GGmlType]*TensorBreakdown)
	var order []ggml.GGmlType
	for _, t := range f.Tensors.List() {
		b, ok := byType[t.Type]
		if !ok {
			b = &TensorBreakdown{Type: t.Type}
			byType[t.Type] = b
			order = append(order, t.Type)
		}
		b.Count++
		n := t.NElements()
		b.NElements += n
		r.Parameters += n
		if size, err := t.Size(); err == nil {
			b.TotalBytes += size
			r.TotalBytes += size
		}
	}
	for _, ty := range order {
		r.ByType = append(r.ByType, *byType[ty])
	}
	return r
}
