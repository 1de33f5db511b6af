package quant

import (
	"context"
	"runtime"

	"github.com/ggufkit/ggufkit/ggml"
	"golang.org/x/sync/errgroup"
)

// rowChunks splits total rows across up to GOMAXPROCS workers, returning
// the (start, count) row ranges each worker should handle.
func rowChunks(totalRows int) [][2]int {
	workers := runtime.GOMAXPROCS(0)
	if workers > totalRows {
		workers = totalRows
	}
	if workers < 1 {
		workers = 1
	}
	chunks := make([][2]int, 0, workers)
	base := totalRows / workers
	rem := totalRows % workers
	start := 0
	for i := 0; i < workers; i++ {
		n := base
		if i < rem {
			n++
		}
		if n == 0 {
			continue
		}
		chunks = append(chunks, [2]int{start, n})
		start += n
	}
	return chunks
}

// QuantizeParallel quantizes a tensor's data divided into nRows equal
// rows, each independently encodable, fanning the work out across
// GOMAXPROCS workers via an errgroup. rowElems must divide len(data)
// evenly and be a multiple of t's block size.
func QuantizeParallel(ctx context.Context, t ggml.GGmlType, data []float32, rowElems int) ([]byte, error) {
	l, ok := t.Layout()
	if !ok {
		return nil, &LengthMismatchError{Type: t, NElements: len(data), BlockSize: 1}
	}
	if rowElems <= 0 || len(data)%rowElems != 0 {
		return nil, &LengthMismatchError{Type: t, NElements: len(data), BlockSize: rowElems}
	}
	nRows := len(data) / rowElems
	rowBytes := rowElems / l.BlockSize * l.BlockBytes
	out := make([]byte, nRows*rowBytes)

	g, _ := errgroup.WithContext(ctx)
	for _, c := range rowChunks(nRows) {
		start, n := c[0], c[1]
		g.Go(func() error {
			for r := start; r < start+n; r++ {
				row := data[r*rowElems : (r+1)*rowElems]
				encoded, err := Quantize(t, row)
				if err != nil {
					return err
				}
				copy(out[r*rowBytes:(r+1)*rowBytes], encoded)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DequantizeParallel is QuantizeParallel's inverse: it expands raw block
// bytes divided into nRows equal rows back into a contiguous []float32.
func DequantizeParallel(ctx context.Context, t ggml.GGmlType, raw []byte, rowBytes int) ([]float32, error) {
	l, ok := t.Layout()
	if !ok {
		return nil, &LengthMismatchError{Type: t, NElements: len(raw), BlockSize: 1}
	}
	if rowBytes <= 0 || len(raw)%rowBytes != 0 {
		return nil, &LengthMismatchError{Type: t, NElements: len(raw), BlockSize: rowBytes}
	}
	nRows := len(raw) / rowBytes
	rowElems := rowBytes / l.BlockBytes * l.BlockSize
	out := make([]float32, nRows*rowElems)

	g, _ := errgroup.WithContext(ctx)
	for _, c := range rowChunks(nRows) {
		start, n := c[0], c[1]
		g.Go(func() error {
			for r := start; r < start+n; r++ {
				src := raw[r*rowBytes : (r+1)*rowBytes]
				decoded, err := Dequantize(t, src)
				if err != nil {
					return err
				}
				copy(out[r*rowElems:(r+1)*rowElems], decoded)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
