package shard

import "fmt"

// MissingTensorError reports a tensor name present in the content's
// table order but absent from its tensor map — a programming error,
// since the two are maintained together.
type MissingTensorError struct{ Name string }

func (e *MissingTensorError) Error() string {
	return fmt.Sprintf("shard: tensor %q not found while planning", e.Name)
}
