package operator

import (
	"strings"

	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/ggml"
	"github.com/ggufkit/ggufkit/quant"
)

// CastPlan selects, per tensor, the target type to cast to: Embd for
// the token embedding and output projection, Norm for every
// normalization weight, Mat for any other tensor of rank greater than
// one, and no change otherwise. A role whose Has flag is false is
// skipped, so its tensors fall through to the later rules (a rank-2
// token_embd.weight is then cast to Mat when HasMat is set).
type CastPlan struct {
	Embd ggml.GGmlType
	Norm ggml.GGmlType
	Mat  ggml.GGmlType

	HasEmbd bool
	HasNorm bool
	HasMat  bool
}

// Cast rewrites every tensor's type per plan, staging every conversion
// through a decoded []float32 row, so no direct block-to-block codec is
// needed — the same intermediate-F32 rule the reference cast operator
// falls back to when it has no direct quantize/dequantize path. A pair is
// reachable only when quant can dequantize the source type and quantize
// the target type; for any other pair the tensor's lazy data fails with
// quant.ErrNotImplemented when it is materialized.
func Cast(c *content.Content, plan CastPlan) error {
	for _, name := range c.TensorNames() {
		t, _ := c.TensorGet(name)
		target, ok := plan.target(name, t)
		if !ok || target == t.Type {
			continue
		}
		from, to := t.Type, target
		raw := t.Data
		t.Data = content.NewLazy(func() ([]byte, error) {
			src, err := raw.Get()
			if err != nil {
				return nil, err
			}
			floats, err := quant.Dequantize(from, src)
			if err != nil {
				return nil, err
			}
			return quant.Quantize(to, floats)
		})
		t.Type = target
	}
	return nil
}

func (p CastPlan) target(name string, t *content.Tensor) (ggml.GGmlType, bool) {
	switch {
	case p.HasEmbd && (name == "token_embd.weight" || name == "output.weight"):
		return p.Embd, true
	case p.HasNorm && strings.HasSuffix(name, "norm.weight"):
		return p.Norm, true
	case p.HasMat && len(t.Shape) > 1:
		return p.Mat, true
	default:
		return 0, false
	}
}
