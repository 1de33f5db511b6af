package shard

import (
	"github.com/ggufkit/ggufkit/container"
	"github.com/ggufkit/ggufkit/content"
)

// OutputConfig controls how a Content is split across output shards
// and where those shards are written.
type OutputConfig struct {
	OutputDir string

	// MaxTensors bounds the number of tensors a single shard may carry;
	// 0 means unlimited.
	MaxTensors int

	// MaxBytes bounds a shard's predicted on-disk size; 0 means
	// unlimited.
	MaxBytes uint64

	// NoTensorFirst forces shard 0 to carry metadata only, with every
	// tensor distributed across the shards that follow.
	NoTensorFirst bool
}

// Shard is one planned output file: its ordered tensor names and
// whether it carries the content's full metadata table (shard 0,
// always, even under NoTensorFirst).
type Shard struct {
	Tensors  []string
	HasMeta  bool
	ByteSize uint64
}

// Plan walks c's tensors in table order, starting a new shard whenever
// adding the next tensor would exceed cfg.MaxTensors or push the
// shard's predicted size to cfg.MaxBytes or beyond. Shard 0 always
// carries the full metadata table; when cfg.NoTensorFirst is set,
// shard 0 carries no tensors and tensor distribution begins at shard 1.
func Plan(c *content.Content, cfg OutputConfig) ([]Shard, error) {
	names := c.TensorNames()
	metaKeys := c.MetaKeys()

	var shards []Shard
	newSim := func(full bool) (*Simulator, error) {
		s := NewSimulator(c.Alignment)
		if err := s.WriteHeaderAndMeta(full, metaKeys, c.MetaGet); err != nil {
			return nil, err
		}
		return s, nil
	}

	firstShard := true
	if cfg.NoTensorFirst {
		sim, err := newSim(true)
		if err != nil {
			return nil, err
		}
		shards = append(shards, Shard{HasMeta: true, ByteSize: sim.WrittenBytes()})
		firstShard = false
	}

	i := 0
	for i < len(names) || (firstShard && len(names) == 0) {
		sim, err := newSim(firstShard)
		if err != nil {
			return nil, err
		}
		var cur []string
		for i < len(names) {
			info, err := tensorInfoFor(c, names[i])
			if err != nil {
				return nil, err
			}
			peek, err := sim.PeekTensor(info)
			if err != nil {
				return nil, err
			}
			exceedsCount := cfg.MaxTensors > 0 && sim.TensorCount()+1 > cfg.MaxTensors
			exceedsBytes := cfg.MaxBytes > 0 && peek >= cfg.MaxBytes
			if len(cur) > 0 && (exceedsCount || exceedsBytes) {
				break
			}
			if err := sim.CommitTensor(info); err != nil {
				return nil, err
			}
			cur = append(cur, names[i])
			i++
		}
		shards = append(shards, Shard{Tensors: cur, HasMeta: firstShard, ByteSize: sim.WrittenBytes()})
		firstShard = false
		if len(names) == 0 {
			break
		}
	}
	return shards, nil
}

func tensorInfoFor(c *content.Content, name string) (container.TensorInfo, error) {
	t, ok := c.TensorGet(name)
	if !ok {
		return container.TensorInfo{}, &MissingTensorError{Name: name}
	}
	return container.TensorInfo{Name: name, Shape: t.Shape, Type: t.Type}, nil
}
