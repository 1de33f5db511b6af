package quant

import (
	"context"
	"math"
	"testing"

	"github.com/ggufkit/ggufkit/ggml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow(n int, scale float32) []float32 {
	row := make([]float32, n)
	for i := range row {
		row[i] = (float32(i) - float32(n)/2) * scale
	}
	return row
}

func maxAbsDiff(a, b []float32) float32 {
	var max float32
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > max {
			max = d
		}
	}
	return max
}

func TestQ4_0RoundTrip(t *testing.T) {
	row := sampleRow(32, 0.1)
	enc, err := Quantize(ggml.TypeQ4_0, row)
	require.NoError(t, err)
	require.Len(t, enc, 18)
	dec, err := Dequantize(ggml.TypeQ4_0, enc)
	require.NoError(t, err)
	require.Len(t, dec, 32)
	assert.Less(t, maxAbsDiff(row, dec), float32(0.11))
}

func TestQ4_0AllZero(t *testing.T) {
	row := make([]float32, 32)
	enc, err := Quantize(ggml.TypeQ4_0, row)
	require.NoError(t, err)
	for _, b := range enc {
		assert.Zero(t, b)
	}
	dec, err := Dequantize(ggml.TypeQ4_0, enc)
	require.NoError(t, err)
	for _, v := range dec {
		assert.Zero(t, v)
	}
}

func TestQ4_1RoundTrip(t *testing.T) {
	row := sampleRow(32, 0.05)
	row[0] = 3
	enc, err := Quantize(ggml.TypeQ4_1, row)
	require.NoError(t, err)
	require.Len(t, enc, 20)
	dec, err := Dequantize(ggml.TypeQ4_1, enc)
	require.NoError(t, err)
	assert.Less(t, maxAbsDiff(row, dec), float32(0.13))
}

func TestQ4_1ConstantRow(t *testing.T) {
	row := make([]float32, 32)
	for i := range row {
		row[i] = 7
	}
	enc, err := Quantize(ggml.TypeQ4_1, row)
	require.NoError(t, err)
	dec, err := Dequantize(ggml.TypeQ4_1, enc)
	require.NoError(t, err)
	for _, v := range dec {
		assert.InDelta(t, 7, v, 1e-2)
	}
}

func TestQ5_0RoundTrip(t *testing.T) {
	row := sampleRow(32, 0.02)
	enc, err := Quantize(ggml.TypeQ5_0, row)
	require.NoError(t, err)
	require.Len(t, enc, 22)
	dec, err := Dequantize(ggml.TypeQ5_0, enc)
	require.NoError(t, err)
	assert.Less(t, maxAbsDiff(row, dec), float32(0.02))
}

func TestQ5_1RoundTrip(t *testing.T) {
	row := sampleRow(32, 0.03)
	row[5] = 12
	enc, err := Quantize(ggml.TypeQ5_1, row)
	require.NoError(t, err)
	require.Len(t, enc, 24)
	dec, err := Dequantize(ggml.TypeQ5_1, enc)
	require.NoError(t, err)
	assert.Less(t, maxAbsDiff(row, dec), float32(0.21))
}

func TestQ8_0RoundTrip(t *testing.T) {
	row := sampleRow(32, 0.25)
	enc, err := Quantize(ggml.TypeQ8_0, row)
	require.NoError(t, err)
	require.Len(t, enc, 34)
	dec, err := Dequantize(ggml.TypeQ8_0, enc)
	require.NoError(t, err)
	assert.Less(t, maxAbsDiff(row, dec), float32(0.02))
}

func TestQ8_1RoundTrip(t *testing.T) {
	row := sampleRow(32, 0.1)
	enc, err := Quantize(ggml.TypeQ8_1, row)
	require.NoError(t, err)
	require.Len(t, enc, 36)
	dec, err := Dequantize(ggml.TypeQ8_1, enc)
	require.NoError(t, err)
	assert.Less(t, maxAbsDiff(row, dec), float32(0.01))
}

func TestF16RoundTrip(t *testing.T) {
	row := []float32{1.5, -2.25, 0, 100.125}
	enc, err := Quantize(ggml.TypeF16, row)
	require.NoError(t, err)
	dec, err := Dequantize(ggml.TypeF16, enc)
	require.NoError(t, err)
	assert.InDeltaSlice(t, row, dec, 1e-3)
}

func TestBF16RoundTrip(t *testing.T) {
	row := []float32{1.5, -2.25, 0, 100}
	enc, err := Quantize(ggml.TypeBF16, row)
	require.NoError(t, err)
	dec, err := Dequantize(ggml.TypeBF16, enc)
	require.NoError(t, err)
	assert.InDeltaSlice(t, row, dec, 1)
}

func TestQ8_KRoundTrip(t *testing.T) {
	row := sampleRow(256, 0.2)
	enc, err := Quantize(ggml.TypeQ8_K, row)
	require.NoError(t, err)
	require.Len(t, enc, 290)
	dec, err := Dequantize(ggml.TypeQ8_K, enc)
	require.NoError(t, err)
	assert.Less(t, maxAbsDiff(row, dec), float32(0.2))
}

func TestQ8_KAllZero(t *testing.T) {
	row := make([]float32, 256)
	enc, err := Quantize(ggml.TypeQ8_K, row)
	require.NoError(t, err)
	for _, b := range enc {
		assert.Zero(t, b)
	}
	dec, err := Dequantize(ggml.TypeQ8_K, enc)
	require.NoError(t, err)
	for _, v := range dec {
		assert.Zero(t, v)
	}
}

func TestQ5_KQuantizeUnsupported(t *testing.T) {
	_, err := Quantize(ggml.TypeQ5_K, make([]float32, 256))
	require.Error(t, err)
}

func TestQ5_KDequantizeZeroBlock(t *testing.T) {
	raw := make([]byte, 176)
	dec, err := Dequantize(ggml.TypeQ5_K, raw)
	require.NoError(t, err)
	for _, v := range dec {
		assert.Zero(t, v)
	}
}

func TestQ2_KQuantizeUnsupported(t *testing.T) {
	_, err := Quantize(ggml.TypeQ2_K, make([]float32, 256))
	require.Error(t, err)
}

func TestQ2_KDequantizeZeroBlock(t *testing.T) {
	raw := make([]byte, 84)
	dec, err := Dequantize(ggml.TypeQ2_K, raw)
	require.NoError(t, err)
	for _, v := range dec {
		assert.Zero(t, v)
	}
}

func TestLengthMismatch(t *testing.T) {
	_, err := Quantize(ggml.TypeQ4_0, make([]float32, 31))
	require.Error(t, err)
	var lme *LengthMismatchError
	require.ErrorAs(t, err, &lme)
}

func TestQuantizeParallelMatchesSerial(t *testing.T) {
	row := sampleRow(32*8, 0.01)
	serial, err := Quantize(ggml.TypeQ4_0, row)
	require.NoError(t, err)

	parallel, err := QuantizeParallel(context.Background(), ggml.TypeQ4_0, row, 32)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestDequantizeParallelMatchesSerial(t *testing.T) {
	row := sampleRow(32*8, 0.01)
	raw, err := Quantize(ggml.TypeQ4_0, row)
	require.NoError(t, err)

	serial, err := Dequantize(ggml.TypeQ4_0, raw)
	require.NoError(t, err)
	parallel, err := DequantizeParallel(context.Background(), ggml.TypeQ4_0, raw, 18)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestNBytes(t *testing.T) {
	n, err := ggml.NBytes([]uint64{4096, 4096}, ggml.TypeQ4_0)
	require.NoError(t, err)
	assert.Equal(t, uint64(4096*4096/32*18), n)
}

func TestF16Precision(t *testing.T) {
	v := float32(math.Pi)
	enc, err := Quantize(ggml.TypeF16, []float32{v})
	require.NoError(t, err)
	dec, err := Dequantize(ggml.TypeF16, enc)
	require.NoError(t, err)
	assert.InDelta(t, v, dec[0], 1e-3)
}
