// Package quant implements the block quantization and dequantization
// codecs for GGML tensor types: bit-exact packing/unpacking between a
// contiguous []float32 row and the raw block bytes GGUF stores on disk.
package quant

import (
	"errors"
	"fmt"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/ggufkit/ggufkit/ggml"
	"github.com/x448/float16"
)

// ErrNotImplemented is returned by Quantize or Dequantize for a type that
// has no codec in that direction (several K-quant types are decode-only;
// many other types have no codec in either direction).
var ErrNotImplemented = errors.New("quant: not implemented")

// LengthMismatchError reports a row whose element count does not divide
// evenly into whole blocks for the target type.
type LengthMismatchError struct {
	Type      ggml.GGmlType
	NElements int
	BlockSize int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("quant: %d elements not divisible by block size %d for %v", e.NElements, e.BlockSize, e.Type)
}

// Quantize converts a row of float32 values into the block-packed byte
// representation for t. len(data) must be a multiple of t's block size.
func Quantize(t ggml.GGmlType, data []float32) ([]byte, error) {
	l, ok := t.Layout()
	if !ok {
		return nil, fmt.Errorf("quant: unknown type %v", t)
	}
	if len(data)%l.BlockSize != 0 {
		return nil, &LengthMismatchError{Type: t, NElements: len(data), BlockSize: l.BlockSize}
	}
	nBlocks := len(data) / l.BlockSize
	out := make([]byte, nBlocks*l.BlockBytes)
	fn, ok := quantizers[t]
	if !ok {
		return nil, fmt.Errorf("%w: quantize %v", ErrNotImplemented, t)
	}
	for i := 0; i < nBlocks; i++ {
		block := data[i*l.BlockSize : (i+1)*l.BlockSize]
		dst := out[i*l.BlockBytes : (i+1)*l.BlockBytes]
		if err := fn(block, dst); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Dequantize expands block-packed bytes for t into a row of float32
// values. len(raw) must be a multiple of t's block byte size.
func Dequantize(t ggml.GGmlType, raw []byte) ([]float32, error) {
	l, ok := t.Layout()
	if !ok {
		return nil, fmt.Errorf("quant: unknown type %v", t)
	}
	if len(raw)%l.BlockBytes != 0 {
		return nil, fmt.Errorf("quant: %d bytes not divisible by block size %d for %v", len(raw), l.BlockBytes, t)
	}
	nBlocks := len(raw) / l.BlockBytes
	out := make([]float32, nBlocks*l.BlockSize)
	fn, ok := dequantizers[t]
	if !ok {
		return nil, fmt.Errorf("%w: dequantize %v", ErrNotImplemented, t)
	}
	for i := 0; i < nBlocks; i++ {
		src := raw[i*l.BlockBytes : (i+1)*l.BlockBytes]
		dst := out[i*l.BlockSize : (i+1)*l.BlockSize]
		if err := fn(src, dst); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type quantFn func(row []float32, dst []byte) error
type dequantFn func(src []byte, row []float32) error

var quantizers = map[ggml.GGmlType]quantFn{
	ggml.TypeF32:  quantF32,
	ggml.TypeF16:  quantF16,
	ggml.TypeBF16: quantBF16,
	ggml.TypeQ4_0: quantQ4_0,
	ggml.TypeQ4_1: quantQ4_1,
	ggml.TypeQ5_0: quantQ5_0,
	ggml.TypeQ5_1: quantQ5_1,
	ggml.TypeQ8_0: quantQ8_0,
	ggml.TypeQ8_1: quantQ8_1,
	ggml.TypeQ8_K: quantQ8_K,
}

var dequantizers = map[ggml.GGmlType]dequantFn{
	ggml.TypeF32:  dequantF32,
	ggml.TypeF16:  dequantF16,
	ggml.TypeBF16: dequantBF16,
	ggml.TypeQ4_0: dequantQ4_0,
	ggml.TypeQ4_1: dequantQ4_1,
	ggml.TypeQ5_0: dequantQ5_0,
	ggml.TypeQ5_1: dequantQ5_1,
	ggml.TypeQ8_0: dequantQ8_0,
	ggml.TypeQ8_1: dequantQ8_1,
	ggml.TypeQ2_K: dequantQ2_K,
	ggml.TypeQ5_K: dequantQ5_K,
	ggml.TypeQ8_K: dequantQ8_K,
}

func maxByAbs(data []float32) float32 {
	var acc float32
	for _, x := range data {
		if abs32(x) > abs32(acc) {
			acc = x
		}
	}
	return acc
}

func maxAbs(data []float32) float32 {
	var acc float32
	for _, x := range data {
		if a := abs32(x); a > acc {
			acc = a
		}
	}
	return acc
}

func minMax(data []float32) (float32, float32) {
	min, max := float32(math.MaxFloat32), -float32(math.MaxFloat32)
	for _, x := range data {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func putF16(dst []byte, v float32) {
	bits := uint16(float16.Fromfloat32(v))
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
}

func getF16(src []byte) float32 {
	bits := uint16(src[0]) | uint16(src[1])<<8
	return float16.Float16(bits).Float32()
}

// quantF32/dequantF32 are identity codecs used so the generic block loop
// in Quantize/Dequantize can treat every GGmlType uniformly.
func quantF32(row []float32, dst []byte) error {
	bits := math.Float32bits(row[0])
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
	return nil
}

func dequantF32(src []byte, row []float32) error {
	bits := uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
	row[0] = math.Float32frombits(bits)
	return nil
}

func quantF16(row []float32, dst []byte) error {
	putF16(dst, row[0])
	return nil
}

func dequantF16(src []byte, row []float32) error {
	row[0] = getF16(src)
	return nil
}

func quantBF16(row []float32, dst []byte) error {
	bits := math.Float32bits(row[0])
	top := uint16(bits >> 16)
	dst[0] = byte(top)
	dst[1] = byte(top >> 8)
	return nil
}

func dequantBF16(src []byte, row []float32) error {
	row[0] = bfloat16.DecodeFloat32(src[:2])[0]
	return nil
}

// quantQ4_0 packs a 32-element block as delta:f16 followed by 16 bytes
// of paired 4-bit signed-symmetric codes, grounded on
// ggml-quants/src/structs/q4_0.rs.
func quantQ4_0(row []float32, dst []byte) error {
	const n = 32
	max := maxByAbs(row)
	if max == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	delta := max / -8
	putF16(dst, delta)
	qs := dst[2:]
	for i := 0; i < n/2; i++ {
		lo := q4_0Code(row[i], delta)
		hi := q4_0Code(row[i+n/2], delta)
		qs[i] = lo | hi<<4
	}
	return nil
}

func q4_0Code(x, delta float32) byte {
	v := x/delta + 8.5
	if v < 0 {
		v = 0
	}
	if v > 15 {
		v = 15
	}
	return byte(v)
}

func dequantQ4_0(src []byte, row []float32) error {
	const n = 32
	delta := getF16(src)
	qs := src[2:]
	for i := 0; i < n/2; i++ {
		lo := qs[i] & 0xF
		hi := qs[i] >> 4
		row[i] = (float32(lo) - 8) * delta
		row[i+n/2] = (float32(hi) - 8) * delta
	}
	return nil
}

// quantQ4_1/dequantQ4_1 use an asymmetric min/delta pair (DeltaMin),
// grounded on structs/q4_1.rs.
func quantQ4_1(row []float32, dst []byte) error {
	const n = 32
	min, max := minMax(row)
	if min == max {
		putF16(dst[0:2], 0)
		putF16(dst[2:4], min)
		for i := 4; i < len(dst); i++ {
			dst[i] = 0
		}
		return nil
	}
	delta := (max - min) / 15
	putF16(dst[0:2], delta)
	putF16(dst[2:4], min)
	qs := dst[4:]
	for i := 0; i < n/2; i++ {
		lo := q4_1Code(row[i], min, delta)
		hi := q4_1Code(row[i+n/2], min, delta)
		qs[i] = lo | hi<<4
	}
	return nil
}

func q4_1Code(x, min, delta float32) byte {
	v := (x-min)/delta + 0.5
	if v < 0 {
		v = 0
	}
	if v > 15 {
		v = 15
	}
	return byte(v)
}

func dequantQ4_1(src []byte, row []float32) error {
	const n = 32
	delta := getF16(src[0:2])
	min := getF16(src[2:4])
	qs := src[4:]
	for i := 0; i < n/2; i++ {
		lo := qs[i] & 0xF
		hi := qs[i] >> 4
		row[i] = float32(lo)*delta + min
		row[i+n/2] = float32(hi)*delta + min
	}
	return nil
}

// quantQ5_0 is Q4_0's layout plus a 4-byte bitmap (qh) carrying the fifth
// bit of every code, grounded on structs/q5_0.rs (sibling layout of the
// read q5_1.rs).
func quantQ5_0(row []float32, dst []byte) error {
	const n = 32
	max := maxByAbs(row)
	if max == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	delta := max / -16
	putF16(dst[0:2], delta)
	qh := dst[2:6]
	ql := dst[6:]
	var bitmap uint32
	for i := 0; i < n/2; i++ {
		lo := q5Code(row[i], delta)
		hi := q5Code(row[i+n/2], delta)
		ql[i] = (lo & 0xF) | (hi&0xF)<<4
		bitmap |= uint32(lo>>4&1) << i
		bitmap |= uint32(hi>>4&1) << (i + n/2)
	}
	qh[0], qh[1], qh[2], qh[3] = byte(bitmap), byte(bitmap>>8), byte(bitmap>>16), byte(bitmap>>24)
	return nil
}

func q5Code(x, delta float32) byte {
	v := x/delta + 16.5
	if v < 0 {
		v = 0
	}
	if v > 31 {
		v = 31
	}
	return byte(v)
}

func dequantQ5_0(src []byte, row []float32) error {
	const n = 32
	delta := getF16(src[0:2])
	bitmap := uint32(src[2]) | uint32(src[3])<<8 | uint32(src[4])<<16 | uint32(src[5])<<24
	ql := src[6:]
	for i := 0; i < n/2; i++ {
		lo := ql[i] & 0xF
		hi := ql[i] >> 4
		loHigh := byte(bitmap>>i) & 1
		hiHigh := byte(bitmap>>(i+n/2)) & 1
		row[i] = (float32(lo|loHigh<<4) - 16) * delta
		row[i+n/2] = (float32(hi|hiHigh<<4) - 16) * delta
	}
	return nil
}

// quantQ5_1/dequantQ5_1 are the asymmetric 5-bit counterpart of Q4_1,
// grounded on structs/q5_1.rs.
func quantQ5_1(row []float32, dst []byte) error {
	const n = 32
	min, max := minMax(row)
	if min == max {
		putF16(dst[0:2], 0)
		putF16(dst[2:4], min)
		for i := 4; i < len(dst); i++ {
			dst[i] = 0
		}
		return nil
	}
	delta := (max - min) / 31
	putF16(dst[0:2], delta)
	putF16(dst[2:4], min)
	qh := dst[4:8]
	ql := dst[8:]
	var bitmap uint32
	for i := 0; i < n/2; i++ {
		lo := q5_1Code(row[i], min, delta)
		hi := q5_1Code(row[i+n/2], min, delta)
		ql[i] = (lo & 0xF) | (hi&0xF)<<4
		bitmap |= uint32(lo>>4&1) << i
		bitmap |= uint32(hi>>4&1) << (i + n/2)
	}
	qh[0], qh[1], qh[2], qh[3] = byte(bitmap), byte(bitmap>>8), byte(bitmap>>16), byte(bitmap>>24)
	return nil
}

func q5_1Code(x, min, delta float32) byte {
	v := (x-min)/delta + 0.5
	if v < 0 {
		v = 0
	}
	if v > 31 {
		v = 31
	}
	return byte(v)
}

func dequantQ5_1(src []byte, row []float32) error {
	const n = 32
	delta := getF16(src[0:2])
	min := getF16(src[2:4])
	bitmap := uint32(src[4]) | uint32(src[5])<<8 | uint32(src[6])<<16 | uint32(src[7])<<24
	ql := src[8:]
	for i := 0; i < n/2; i++ {
		lo := ql[i] & 0xF
		hi := ql[i] >> 4
		loHigh := byte(bitmap>>i) & 1
		hiHigh := byte(bitmap>>(i+n/2)) & 1
		row[i] = float32(lo|loHigh<<4)*delta + min
		row[i+n/2] = float32(hi|hiHigh<<4)*delta + min
	}
	return nil
}

// quantQ8_0/dequantQ8_0 are plain 8-bit symmetric codes, structs/q8_0.rs.
func quantQ8_0(row []float32, dst []byte) error {
	const n = 32
	amax := maxAbs(row)
	if amax == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	delta := amax / 127
	putF16(dst, delta)
	qs := dst[2:]
	for i := 0; i < n; i++ {
		qs[i] = byte(int8(math.Round(float64(row[i] / delta))))
	}
	return nil
}

func dequantQ8_0(src []byte, row []float32) error {
	const n = 32
	delta := getF16(src)
	qs := src[2:]
	for i := 0; i < n; i++ {
		row[i] = float32(int8(qs[i])) * delta
	}
	return nil
}

// quantQ8_1/dequantQ8_1 add a running sum alongside Q8_0's layout, the
// 4-byte-aligned header documented in structs/q8_1.rs.
func quantQ8_1(row []float32, dst []byte) error {
	const n = 32
	amax := maxAbs(row)
	var delta float32
	if amax != 0 {
		delta = amax / 127
	}
	putF16(dst[0:2], delta)
	qs := dst[4:]
	var sum int32
	for i := 0; i < n; i++ {
		var q int8
		if delta != 0 {
			q = int8(math.Round(float64(row[i] / delta)))
		}
		qs[i] = byte(q)
		sum += int32(q)
	}
	putF16(dst[2:4], delta*float32(sum))
	return nil
}

func dequantQ8_1(src []byte, row []float32) error {
	const n = 32
	delta := getF16(src[0:2])
	qs := src[4:]
	for i := 0; i < n; i++ {
		row[i] = float32(int8(qs[i])) * delta
	}
	return nil
}

// dequantQ2_K expands a 256-element super-block of 16 sub-blocks, each
// with its own 4-bit (delta_l, min_l) pair derived from a shared block
// delta/min, grounded on structs/q2_k.rs. Quantize is intentionally
// unimplemented — the reference this is grounded on leaves it as a
// stub, so Q2_K only round-trips through files already quantized
// upstream.
func dequantQ2_K(src []byte, row []float32) error {
	const superBlock = 256
	scales := src[0:16]
	qs := src[16:80]
	delta := getF16(src[80:82])
	min := getF16(src[82:84])

	for sb := 0; sb < 16; sb++ {
		sc := scales[sb]
		dl := delta * float32(sc&0xF)
		ml := min * float32(sc>>4)
		for j := 0; j < 16; j++ {
			idx := sb*16 + j
			byteIdx := idx / 4
			shift := uint((idx % 4) * 2)
			q := (qs[byteIdx] >> shift) & 0b11
			row[idx] = dl*float32(q) - ml
		}
	}
	return nil
}

// quantQ8_K/dequantQ8_K are a 256-element symmetric block plus sixteen
// i16 sub-block sums carried alongside the quants, grounded on
// ggml-quants/src/types/q8_k.rs. The sums let a matmul kernel recover a
// row's partial dot products without re-scanning the quants; this
// codec only needs them to round-trip, not to use them.
func quantQ8_K(row []float32, dst []byte) error {
	const n = 256
	max := maxByAbs(row)
	if max == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	delta := max / -127
	recip := 1 / delta
	putF16(dst[0:2], delta)
	qs := dst[2 : 2+n]
	sums := dst[2+n:]

	var blockSums [n / 16]int16
	for i := 0; i < n; i++ {
		q := int8(math.Round(float64(row[i] * recip)))
		if q > 127 {
			q = 127
		}
		qs[i] = byte(q)
		blockSums[i/16] += int16(q)
	}
	for i, s := range blockSums {
		sums[2*i] = byte(s)
		sums[2*i+1] = byte(s >> 8)
	}
	return nil
}

func dequantQ8_K(src []byte, row []float32) error {
	const n = 256
	delta := getF16(src[0:2])
	qs := src[2 : 2+n]
	for i := 0; i < n; i++ {
		row[i] = float32(int8(qs[i])) * delta
	}
	return nil
}

// scaleMinK4 extracts a 6-bit (scale, min) pair from the 12-byte packed
// scales array shared by Q4_K and Q5_K's eight 32-element sub-blocks.
// j is the sub-block index (0..7), grounded on gomlx-go-huggingface's
// models/gguf/dequant.go (getScaleMinK4).
func scaleMinK4(j int, scales []byte) (sc, m uint8) {
	if j < 4 {
		sc = scales[j] & 63
		m = scales[j+4] & 63
	} else {
		sc = (scales[j+4] & 0xF) | ((scales[j-4] >> 6) << 4)
		m = (scales[j+4] >> 4) | ((scales[j] >> 6) << 4)
	}
	return
}

// dequantQ5_K expands a 256-element super-block of eight 32-value
// sub-blocks, each with a 6-bit (scale, min) pair and a 5th quant bit
// per value carried in qh, grounded on gomlx-go-huggingface's
// models/gguf/dequant.go (dequantQ5_K). Quantize is intentionally
// unimplemented: the reference this is grounded on, like the upstream
// original it was itself grounded on, only ever decodes Q5_K — it is
// never a cast target.
func dequantQ5_K(src []byte, row []float32) error {
	d := getF16(src[0:2])
	dmin := getF16(src[2:4])
	scales := src[4:16]
	qh := src[16:48]
	qs := src[48:]

	var idx, is, qlOff int
	var u1, u2 uint8 = 1, 2
	for g := 0; g < 4; g++ {
		sc1, m1 := scaleMinK4(is, scales)
		d1 := d * float32(sc1)
		min1 := dmin * float32(m1)
		sc2, m2 := scaleMinK4(is+1, scales)
		d2 := d * float32(sc2)
		min2 := dmin * float32(m2)

		for l := 0; l < 32; l++ {
			var hbit uint8
			if qh[l]&u1 != 0 {
				hbit = 16
			}
			row[idx] = d1*float32(uint8(qs[qlOff+l]&0xF)+hbit) - min1
			idx++
		}
		for l := 0; l < 32; l++ {
			var hbit uint8
			if qh[l]&u2 != 0 {
				hbit = 16
			}
			row[idx] = d2*float32(uint8(qs[qlOff+l]>>4)+hbit) - min2
			idx++
		}
		qlOff += 32
		is += 2
		u1 <<= 2
		u2 <<= 2
	}
	return nil
}
