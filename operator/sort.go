package operator

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/ggufkit/ggufkit/content"
)

// roleOrder assigns each known tensor role a fixed rank: within a
// transformer block, the attention tensors come before the feed-forward
// tensors. Outside a block, token_embd, output_norm and output are placed
// ahead of every block by SortTensors itself, not by this table.
var roleOrder = []string{
	"token_embd",
	"attn_norm", "attn_q", "attn_k", "attn_v", "attn_qkv", "attn_output",
	"ffn_norm", "ffn_gate", "ffn_up", "ffn_gate_up", "ffn_down",
	"output_norm", "output",
}

var blkRe = regexp.MustCompile(`^blk\.(\d+)\.(.+)\.weight$`)

func roleRank(role string) int {
	for i, r := range roleOrder {
		if r == role {
			return i
		}
	}
	return len(roleOrder)
}

// SortTensors reorders the content's tensor table into the canonical
// llama.cpp layout: token_embd, output_norm and output first, then each
// block (a `blk.<n>.<role>.weight` name) in ascending index order with
// its own tensors in role-rank order, then every other tensor by role
// rank. Tensors with equal keys keep their relative order.
func SortTensors(c *content.Content) error {
	names := c.TensorNames()

	const blockStride = 1000 // more than len(roleOrder), keeps per-block ranks from colliding
	const tailBase = 1 << 30 // sorts unrecognized non-block tensors after every block

	type entry struct {
		name string
		key  int
	}
	entries := make([]entry, len(names))
	for i, name := range names {
		e := entry{name: name}
		if m := blkRe.FindStringSubmatch(name); m != nil {
			idx, _ := strconv.Atoi(m[1])
			e.key = idx*blockStride + roleRank(m[2])
		} else {
			role := name
			if len(name) > len(".weight") && name[len(name)-len(".weight"):] == ".weight" {
				role = name[:len(name)-len(".weight")]
			}
			switch role {
			case "token_embd":
				e.key = -3 // always first
			case "output_norm":
				e.key = -2 // right after token_embd, before every block
			case "output":
				e.key = -1 // right after output_norm, before every block
			default:
				e.key = tailBase + roleRank(role) // anything unrecognized, last
			}
		}
		entries[i] = e
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})

	ordered := make([]string, len(entries))
	for i, e := range entries {
		ordered[i] = e.name
	}
	return c.Reorder(ordered)
}
