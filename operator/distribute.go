package operator

// Distribute changes the number of devices the content's per-tensor
// metadata claims it is sharded across (the `<arch>.distribute` key,
// default 1). It refuses to run against content whose attention/
// feed-forward linear tensors are currently merged: the reference this
// toolkit is grounded on only implements (re)distribution over split
// tensors and recommends callers split first, redistribute, then merge
// again if they need the merged form back — an open design question
// the upstream project leaves unresolved rather than a gap in this
// port (see DESIGN.md).
import "github.com/ggufkit/ggufkit/content"

// DistributeMetaKey returns the `<arch>.distribute` key name for arch.
func DistributeMetaKey(arch string) string { return arch + ".distribute" }

// DistributeCount returns the content's current distribution count,
// defaulting to 1 if the key is absent.
func DistributeCount(c *content.Content, arch string) uint32 {
	v, ok := c.MetaGet(DistributeMetaKey(arch))
	if !ok {
		return 1
	}
	n, ok := v.(uint32)
	if !ok {
		return 1
	}
	return n
}

// Distribute sets the content's distribution count to n. It is a no-op
// if the content already claims n devices.
func Distribute(c *content.Content, arch string, n uint32) error {
	if DistributeCount(c, arch) == n {
		return nil
	}
	if IsLinearMerged(c) {
		return &MergedLinearDisallowedError{Op: "Distribute"}
	}
	c.MetaSet(DistributeMetaKey(arch), n)
	return nil
}
