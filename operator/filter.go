package operator

import "github.com/ggufkit/ggufkit/content"

// Predicate reports whether a name should be kept. The CLI layer
// compiles glob/regex text into one of these; the operator itself only
// ever sees a plain function, matching the reference's "the core
// contract is the predicate" design.
type Predicate func(name string) bool

// FilterMeta removes every metadata key for which keep returns false.
func FilterMeta(c *content.Content, keep Predicate) {
	for _, k := range c.MetaKeys() {
		if !keep(k) {
			c.MetaDelete(k)
		}
	}
}

// FilterTensor removes every tensor for which keep returns false.
func FilterTensor(c *content.Content, keep Predicate) {
	for _, name := range c.TensorNames() {
		if !keep(name) {
			c.TensorDelete(name)
		}
	}
}
