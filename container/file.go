package container

import (
	"github.com/ggufkit/ggufkit/bytesio"
)

// File is a read-only view over a fully scanned GGUF buffer: its
// header, metadata table, tensor index, and the padded data region that
// follows the tensor section.
type File struct {
	Header  FileHeader
	Meta    *MetaMap
	Tensors *TensorIndex

	// Data is the tensor payload region beginning at the first
	// alignment boundary after the tensor section.
	Data []byte
}

// Scan reads a complete GGUF file from buf: header, metadata, tensor
// index, and the aligned data region, in that order. buf is never
// copied; Data aliases its tail.
func Scan(buf []byte) (*File, error) {
	r := bytesio.NewReader(buf)

	header, err := ScanHeader(r)
	if err != nil {
		return nil, err
	}

	meta, err := ScanMetaMap(r, header.MetadataKVCount)
	if err != nil {
		return nil, err
	}

	tensors, err := ScanTensorIndex(r, header.TensorCount)
	if err != nil {
		return nil, err
	}

	alignment := meta.Alignment()
	pad := bytesio.Padding(int64(r.Pos()), int64(alignment))
	if err := r.Skip(1, int(pad)); err != nil {
		return nil, err
	}

	return &File{
		Header:  header,
		Meta:    meta,
		Tensors: tensors,
		Data:    r.Remaining(),
	}, nil
}

// TensorBytes returns the raw, still-encoded bytes for the named
// tensor, sliced out of Data according to its descriptor.
func (f *File) TensorBytes(name string) ([]byte, error) {
	t, ok := f.Tensors.Get(name)
	if !ok {
		return nil, &TensorNotFoundError{Name: name}
	}
	size, err := t.Size()
	if err != nil {
		return nil, err
	}
	if uint64(len(f.Data)) < t.Offset+size {
		return nil, bytesio.ErrEOS
	}
	return f.Data[t.Offset : t.Offset+size], nil
}

// Architecture returns the general.architecture metadata string, or ""
// if absent.
func (f *File) Architecture() string {
	v, ok := f.Meta.Get("general.architecture")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
