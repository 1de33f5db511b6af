package operator

import "github.com/ggufkit/ggufkit/content"

// SetMeta writes or overwrites a single metadata key.
func SetMeta(c *content.Content, key string, value any) {
	c.MetaSet(key, value)
}

// SetArch renames every `<oldArch>.*` metadata key to `<newArch>.*` and
// updates general.architecture, matching the renaming ToLlama performs
// as its last step.
func SetArch(c *content.Content, newArch string) error {
	oldArch, ok := c.MetaGet("general.architecture")
	if !ok {
		return &MissingMetaError{Key: "general.architecture"}
	}
	old, _ := oldArch.(string)
	if old == newArch {
		return nil
	}
	prefix := old + "."
	for _, k := range c.MetaKeys() {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			v, _ := c.MetaGet(k)
			c.MetaDelete(k)
			c.MetaSet(newArch+"."+k[len(prefix):], v)
		}
	}
	c.MetaSet("general.architecture", newArch)
	return nil
}
