package container

import "fmt"

// MagicMismatchError reports a file whose first four bytes are not "GGUF".
type MagicMismatchError struct{ Got []byte }

func (e *MagicMismatchError) Error() string {
	return fmt.Sprintf("container: bad magic %q, want %q", e.Got, Magic)
}

// NonNativeEndianError reports a file that appears to have been written
// in a byte order this toolkit does not convert (§1 Non-goals: no
// endianness conversion).
type NonNativeEndianError struct{ RawVersion uint32 }

func (e *NonNativeEndianError) Error() string {
	return fmt.Sprintf("container: version field %#x suggests non-native byte order", e.RawVersion)
}

// UnsupportedVersionError reports a structurally valid but unhandled
// GGUF container version.
type UnsupportedVersionError struct{ Version uint32 }

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("container: unsupported version %d, want %d", e.Version, SupportedVersion)
}

// DuplicateKeyError reports a metadata key appearing more than once in
// the same file.
type DuplicateKeyError struct{ Key string }

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("container: duplicate metadata key %q", e.Key)
}

// DuplicateTensorNameError reports a tensor name appearing more than
// once in the same file.
type DuplicateTensorNameError struct{ Name string }

func (e *DuplicateTensorNameError) Error() string {
	return fmt.Sprintf("container: duplicate tensor name %q", e.Name)
}

// UnknownMetaTypeError reports a metadata value tag outside the thirteen
// known MetaValueType values.
type UnknownMetaTypeError struct {
	Key string
	Tag uint32
}

func (e *UnknownMetaTypeError) Error() string {
	return fmt.Sprintf("container: key %q has unknown metadata type tag %d", e.Key, e.Tag)
}

// TensorNotFoundError reports a lookup for a tensor name absent from
// the index.
type TensorNotFoundError struct{ Name string }

func (e *TensorNotFoundError) Error() string {
	return fmt.Sprintf("container: no such tensor %q", e.Name)
}

// UnknownTensorTypeError reports a tensor descriptor whose ggml type tag
// is not a known GGmlType.
type UnknownTensorTypeError struct {
	Name string
	Tag  uint32
}

func (e *UnknownTensorTypeError) Error() string {
	return fmt.Sprintf("container: tensor %q has unknown ggml type tag %d", e.Name, e.Tag)
}
