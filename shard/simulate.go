// Package shard plans and emits a Content as one or more GGUF files:
// a Simulator that predicts a shard's on-disk size without touching
// storage, a Planner that walks tensors in insertion order cutting new
// shards at configured limits, and a parallel Writer that emits the
// planned shards to disk.
package shard

import (
	"github.com/ggufkit/ggufkit/bytesio"
	"github.com/ggufkit/ggufkit/container"
)

// tensorDescriptorSize returns the on-disk byte length of a tensor
// descriptor for a tensor named name with ndim dimensions, mirroring
// container.WriteTensorInfo's layout: an 8-byte-length-prefixed name,
// a u32 dimension count, ndim u64 shape entries, a u32 type tag, and a
// u64 offset.
func tensorDescriptorSize(name string, ndim int) uint64 {
	return 8 + uint64(len(name)) + 4 + uint64(ndim)*8 + 4 + 8
}

// Simulator is an inert accumulator that predicts a shard's written
// byte count without performing any I/O, mirroring the real writer's
// framing exactly by driving the real header/meta codecs against a
// discarding sink and replaying tensor padding arithmetically.
type Simulator struct {
	alignment   uint64
	headerMeta  uint64
	descBytes   uint64
	dataLens    []uint64
	tensorCount int
}

// NewSimulator starts a simulation for a shard at the given alignment.
func NewSimulator(alignment uint64) *Simulator {
	return &Simulator{alignment: alignment}
}

// WriteHeaderAndMeta accounts for the shard's fixed header plus the
// general.alignment key (every shard) and, when full is true, the
// complete meta table (shard 0 only).
func (s *Simulator) WriteHeaderAndMeta(full bool, keys []string, get func(string) (any, bool)) error {
	kvCount := uint64(1)
	if full {
		kvCount += uint64(len(keys))
	}
	w := bytesio.NewWriter(discard{})
	if err := container.WriteHeader(w, 0, kvCount); err != nil {
		return err
	}
	align := container.NewMetaMap()
	align.Set("general.alignment", uint32(s.alignment))
	if err := container.WriteMetaMap(w, align); err != nil {
		return err
	}
	if full {
		for _, k := range keys {
			v, _ := get(k)
			m := container.NewMetaMap()
			m.Set(k, v)
			if err := container.WriteMetaMap(w, m); err != nil {
				return err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	s.headerMeta = uint64(w.Written())
	return nil
}

// PeekTensor reports the shard's total byte count if t were added next,
// without committing the addition.
func (s *Simulator) PeekTensor(t container.TensorInfo) (uint64, error) {
	n, err := t.Size()
	if err != nil {
		return 0, err
	}
	descBytes := s.descBytes + tensorDescriptorSize(t.Name, len(t.Shape))
	return s.replayData(s.headerMeta+descBytes, s.dataLens, n), nil
}

// CommitTensor records t as part of the shard.
func (s *Simulator) CommitTensor(t container.TensorInfo) error {
	n, err := t.Size()
	if err != nil {
		return err
	}
	s.descBytes += tensorDescriptorSize(t.Name, len(t.Shape))
	s.dataLens = append(s.dataLens, n)
	s.tensorCount++
	return nil
}

// TensorCount returns the number of tensors committed so far.
func (s *Simulator) TensorCount() int { return s.tensorCount }

// WrittenBytes returns the shard's total predicted byte count.
func (s *Simulator) WrittenBytes() uint64 {
	return s.replayData(s.headerMeta+s.descBytes, s.dataLens, 0)
}

// replayData recomputes the padded running total of the shard, starting
// from the header/meta/descriptor prefix and padding before every data
// payload exactly as the writer does (so the first payload also pays the
// padding that aligns the data region), optionally appending one more
// trailing length, matching the reference simulator's replay-from-zero
// written_bytes() strategy so that padding is always derived from the
// actual running total rather than tracked incrementally (and therefore
// cannot drift from it).
func (s *Simulator) replayData(prefix uint64, lens []uint64, extra uint64) uint64 {
	total := prefix
	for _, l := range lens {
		total += uint64(bytesio.Padding(int64(total), int64(s.alignment)))
		total += l
	}
	if extra > 0 {
		total += uint64(bytesio.Padding(int64(total), int64(s.alignment)))
		total += extra
	}
	return total
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
