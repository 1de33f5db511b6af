package operator

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ggufkit/ggufkit/content"
)

var blkLinearRe = regexp.MustCompile(`^blk\.(\d+)\.(attn_q|attn_k|attn_v|attn_qkv|ffn_gate|ffn_up|ffn_gate_up)\.weight$`)

// IsLinearMerged reports whether block 0 carries merged attn_qkv /
// ffn_gate_up tensors rather than split attn_q/k/v / ffn_gate/up ones.
func IsLinearMerged(c *content.Content) bool {
	_, ok := c.TensorGet("blk.0.attn_qkv.weight")
	return ok
}

// MergeLinear concatenates attn_q/k/v into attn_qkv and ffn_gate/up
// into ffn_gate_up (merge=true), or splits them back apart
// (merge=false), for every block. It is a no-op if the content is
// already in the requested state. Tensors are assumed 2-dimensional,
// [cols, rows]; concatenation/splitting happens along the rows axis
// (Shape[1]), the layout every llama-family linear weight uses.
func MergeLinear(c *content.Content, merge bool) error {
	if IsLinearMerged(c) == merge {
		return nil
	}
	if merge {
		return mergeQKV(c)
	}
	return splitQKV(c)
}

func blockIndices(c *content.Content, suffixes ...string) []int {
	seen := map[int]bool{}
	var out []int
	for _, name := range c.TensorNames() {
		m := blkLinearRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		for _, s := range suffixes {
			if m[2] == s {
				idx, _ := strconv.Atoi(m[1])
				if !seen[idx] {
					seen[idx] = true
					out = append(out, idx)
				}
			}
		}
	}
	return out
}

func mergeQKV(c *content.Content) error {
	for _, i := range blockIndices(c, "attn_q", "attn_k", "attn_v") {
		q, k, v := fmt.Sprintf("blk.%d.attn_q.weight", i), fmt.Sprintf("blk.%d.attn_k.weight", i), fmt.Sprintf("blk.%d.attn_v.weight", i)
		merged, err := concatRows(c, q, k, v)
		if err != nil {
			return err
		}
		c.TensorSet(fmt.Sprintf("blk.%d.attn_qkv.weight", i), merged)
		c.TensorDelete(q)
		c.TensorDelete(k)
		c.TensorDelete(v)
	}
	for _, i := range blockIndices(c, "ffn_gate", "ffn_up") {
		gate, up := fmt.Sprintf("blk.%d.ffn_gate.weight", i), fmt.Sprintf("blk.%d.ffn_up.weight", i)
		merged, err := concatRows(c, gate, up)
		if err != nil {
			return err
		}
		c.TensorSet(fmt.Sprintf("blk.%d.ffn_gate_up.weight", i), merged)
		c.TensorDelete(gate)
		c.TensorDelete(up)
	}
	return nil
}

func splitQKV(c *content.Content) error {
	for _, i := range blockIndices(c, "attn_qkv") {
		name := fmt.Sprintf("blk.%d.attn_qkv.weight", i)
		t, _ := c.TensorGet(name)
		if len(t.Shape) != 2 {
			return fmt.Errorf("operator: split requires a 2-D tensor, got %d dims", len(t.Shape))
		}
		// rows_q = cols (square attn_q projection); the remaining rows
		// split evenly between k and v, which are always equal-sized
		// even under grouped-query attention.
		cols, rows := t.Shape[0], t.Shape[1]
		if (rows-cols)%2 != 0 {
			return fmt.Errorf("operator: attn_qkv rows %d minus cols %d must be even", rows, cols)
		}
		rowsKV := (rows - cols) / 2
		parts, err := splitRows(t, []uint64{cols, rowsKV, rowsKV})
		if err != nil {
			return err
		}
		c.TensorSet(fmt.Sprintf("blk.%d.attn_q.weight", i), parts[0])
		c.TensorSet(fmt.Sprintf("blk.%d.attn_k.weight", i), parts[1])
		c.TensorSet(fmt.Sprintf("blk.%d.attn_v.weight", i), parts[2])
		c.TensorDelete(name)
	}
	for _, i := range blockIndices(c, "ffn_gate_up") {
		name := fmt.Sprintf("blk.%d.ffn_gate_up.weight", i)
		t, _ := c.TensorGet(name)
		if len(t.Shape) != 2 {
			return fmt.Errorf("operator: split requires a 2-D tensor, got %d dims", len(t.Shape))
		}
		if t.Shape[1]%2 != 0 {
			return fmt.Errorf("operator: ffn_gate_up rows %d must be even", t.Shape[1])
		}
		half := t.Shape[1] / 2
		parts, err := splitRows(t, []uint64{half, half})
		if err != nil {
			return err
		}
		c.TensorSet(fmt.Sprintf("blk.%d.ffn_gate.weight", i), parts[0])
		c.TensorSet(fmt.Sprintf("blk.%d.ffn_up.weight", i), parts[1])
		c.TensorDelete(name)
	}
	return nil
}

// concatRows concatenates 2-D tensors sharing Shape[0] along Shape[1].
func concatRows(c *content.Content, names ...string) (*content.Tensor, error) {
	tensors := make([]*content.Tensor, len(names))
	for i, n := range names {
		t, ok := c.TensorGet(n)
		if !ok {
			return nil, &MissingTensorError{Name: n}
		}
		if len(t.Shape) != 2 {
			return nil, fmt.Errorf("operator: merge requires 2-D tensors, %q has %d dims", n, len(t.Shape))
		}
		tensors[i] = t
	}
	cols := tensors[0].Shape[0]
	ty := tensors[0].Type
	var totalRows uint64
	for _, t := range tensors {
		if t.Shape[0] != cols {
			return nil, fmt.Errorf("operator: merge requires matching Shape[0], got %d and %d", cols, t.Shape[0])
		}
		if t.Type != ty {
			return nil, fmt.Errorf("operator: merge requires matching element type")
		}
		totalRows += t.Shape[1]
	}

	merged := &content.Tensor{Type: ty, Shape: []uint64{cols, totalRows}}
	merged.Data = content.NewLazy(func() ([]byte, error) {
		var out []byte
		for _, t := range tensors {
			b, err := t.Data.Get()
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		return out, nil
	})
	return merged, nil
}

// splitRows is concatRows's inverse: it divides a tensor's rows into
// len(sizes) pieces along Shape[1], the i-th piece getting sizes[i]
// rows — not necessarily equal, e.g. attn_qkv under grouped-query
// attention where q's row count differs from k/v's.
func splitRows(t *content.Tensor, sizes []uint64) ([]*content.Tensor, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("operator: split requires a 2-D tensor, got %d dims", len(t.Shape))
	}
	var total uint64
	for _, s := range sizes {
		total += s
	}
	if total != t.Shape[1] {
		return nil, fmt.Errorf("operator: split sizes sum to %d, want %d", total, t.Shape[1])
	}
	cols := t.Shape[0]
	rows := t.Shape[1]

	out := make([]*content.Tensor, len(sizes))
	var rowOffset uint64
	for i, size := range sizes {
		i, start, size := i, rowOffset, size
		part := &content.Tensor{Type: t.Type, Shape: []uint64{cols, size}}
		part.Data = content.NewLazy(func() ([]byte, error) {
			whole, err := t.Data.Get()
			if err != nil {
				return nil, err
			}
			if uint64(len(whole))%rows != 0 {
				return nil, fmt.Errorf("operator: tensor %d bytes not divisible by %d rows", len(whole), rows)
			}
			bytesPerRow := uint64(len(whole)) / rows
			from, to := start*bytesPerRow, (start+size)*bytesPerRow
			return append([]byte(nil), whole[from:to]...), nil
		})
		out[i] = part
		rowOffset += size
	}
	return out, nil
}
