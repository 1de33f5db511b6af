package operator

import (
	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/quant"
)

// Rescale multiplies every element of the named tensor by factor,
// decoding through float32 and re-encoding in the tensor's existing
// type, matching Cast's intermediate-representation strategy.
func Rescale(c *content.Content, name string, factor float32) error {
	t, ok := c.TensorGet(name)
	if !ok {
		return &MissingTensorError{Name: name}
	}
	ty := t.Type
	orig := t.Data
	t.Data = content.NewLazy(func() ([]byte, error) {
		src, err := orig.Get()
		if err != nil {
			return nil, err
		}
		row, err := quant.Dequantize(ty, src)
		if err != nil {
			return nil, err
		}
		for i := range row {
			row[i] *= factor
		}
		return quant.Quantize(ty, row)
	})
	return nil
}
