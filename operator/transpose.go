package operator

import (
	"fmt"

	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/ggml"
)

// TransposeLinear swaps a 2-D tensor's two dimensions and physically
// transposes its decoded rows, for tensors whose quantization block
// layout is row-oriented (plain F32/F16/BF16 only — block-quantized
// tensors can't be transposed without a full dequantize/requantize
// round trip, so those are rejected rather than silently staged
// through one).
func TransposeLinear(c *content.Content, name string) error {
	t, ok := c.TensorGet(name)
	if !ok {
		return &MissingTensorError{Name: name}
	}
	if len(t.Shape) != 2 {
		return fmt.Errorf("operator: transpose requires a 2-D tensor, %q has %d dims", name, len(t.Shape))
	}
	if t.Type.IsQuantized() {
		return fmt.Errorf("operator: transpose does not support block-quantized type %v; cast to F32 first", t.Type)
	}

	rows, cols := t.Shape[1], t.Shape[0]
	ty := t.Type
	orig := t.Data
	elemBytes, err := ggml.NBytes([]uint64{1}, ty)
	if err != nil {
		return err
	}

	t.Data = content.NewLazy(func() ([]byte, error) {
		src, err := orig.Get()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(src))
		for r := uint64(0); r < rows; r++ {
			for cl := uint64(0); cl < cols; cl++ {
				srcOff := int(r*cols+cl) * int(elemBytes)
				dstOff := int(cl*rows+r) * int(elemBytes)
				copy(out[dstOff:dstOff+int(elemBytes)], src[srcOff:srcOff+int(elemBytes)])
			}
		}
		return out, nil
	})
	t.Shape = []uint64{rows, cols}
	return nil
}
