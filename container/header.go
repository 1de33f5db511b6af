// Package container implements the GGUF binary container codec: the
// fixed file header, the typed metadata key-value table, and the tensor
// descriptor index, plus a read-only File view composing the three.
package container

import (
	"github.com/ggufkit/ggufkit/bytesio"
)

// Magic is the four-byte tag every GGUF file starts with.
const Magic = "GGUF"

// SupportedVersion is the only container version this toolkit reads or
// writes (§9: older container versions are out of scope).
const SupportedVersion uint32 = 3

// DefaultAlignment is used when a file carries no general.alignment key.
const DefaultAlignment uint32 = 32

// FileHeader is the fixed 24-byte prologue of a GGUF file: magic,
// version, and the tensor/metadata counts that size the sections that
// follow.
type FileHeader struct {
	Version         uint32
	TensorCount     uint64
	MetadataKVCount uint64
}

// ScanHeader reads and validates the file header at the current cursor
// position.
func ScanHeader(r *bytesio.Reader) (FileHeader, error) {
	magic, err := r.Peek(4)
	if err != nil {
		return FileHeader{}, err
	}
	if string(magic) != Magic {
		return FileHeader{}, &MagicMismatchError{Got: append([]byte(nil), magic...)}
	}
	if err := r.Skip(1, 4); err != nil {
		return FileHeader{}, err
	}

	version, err := r.ReadU32()
	if err != nil {
		return FileHeader{}, err
	}
	// A file written in non-native byte order decodes its version field
	// as an implausibly large number when read little-endian; the
	// toolkit has no byte-swapping path (§1 Non-goals), so that case is
	// reported distinctly from an out-of-range-but-plausible version.
	if version > 0xffff {
		return FileHeader{}, &NonNativeEndianError{RawVersion: version}
	}
	if version != SupportedVersion {
		return FileHeader{}, &UnsupportedVersionError{Version: version}
	}

	tensorCount, err := r.ReadU64()
	if err != nil {
		return FileHeader{}, err
	}
	kvCount, err := r.ReadU64()
	if err != nil {
		return FileHeader{}, err
	}

	return FileHeader{Version: version, TensorCount: tensorCount, MetadataKVCount: kvCount}, nil
}

// WriteHeader emits the fixed prologue for a file with the given tensor
// and metadata counts, always at SupportedVersion.
func WriteHeader(w *bytesio.Writer, tensorCount, kvCount uint64) error {
	if err := w.WriteBytes([]byte(Magic)); err != nil {
		return err
	}
	if err := w.WriteU32(SupportedVersion); err != nil {
		return err
	}
	if err := w.WriteU64(tensorCount); err != nil {
		return err
	}
	return w.WriteU64(kvCount)
}
