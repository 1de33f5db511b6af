// Package name implements the GGUF filename grammar: parsing and
// formatting `<BaseName>[-<SizeLabel>][-<FineTune>][-v<major>.<minor>]
// [-<Encoding>][-LoRA|-vocab][-<index>-of-<count>].gguf`.
package name

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes the three file-role suffixes the grammar supports.
type Kind int

const (
	KindDefault Kind = iota
	KindLoRA
	KindVocab
)

// Shard is a 1-based (index, count) pair identifying one file of a
// sharded model. The zero value Shard{} is not valid; Single()
// constructs the trivial one-shard case.
type Shard struct {
	Index uint32
	Count uint32
}

// Single returns the shard descriptor for an unsharded file.
func Single() Shard { return Shard{Index: 1, Count: 1} }

// IsSingle reports whether s describes a file that is its own only shard.
func (s Shard) IsSingle() bool { return s.Count <= 1 }

// FileName is a parsed GGUF file name, decomposed per the grammar.
type FileName struct {
	BaseName string
	SizeLabel string // e.g. "7B", "8x7B"; empty if absent
	FineTune  string // e.g. "Instruct"; empty if absent
	Version   string // e.g. "2.1"; empty if absent
	Encoding  string // e.g. "Q4_K_M"; empty if absent
	Kind      Kind
	Shard     Shard
}

var (
	sizeLabelRe = regexp.MustCompile(`^(\d+x)?(\d+)(\.\d+)?([QTBMK])$`)
	versionRe   = regexp.MustCompile(`^v(\d+)\.(\d+)$`)
	shardRe     = regexp.MustCompile(`^(\d{5})-of-(\d{5})$`)
)

// InvalidNameError reports a filename that does not match the grammar
// well enough to be decomposed.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("name: %q: %s", e.Name, e.Reason)
}

// Parse decomposes a GGUF file name (with or without its directory and
// .gguf extension) into its grammar components.
func Parse(raw string) (FileName, error) {
	base := filepath.Base(raw)
	base = strings.TrimSuffix(base, ".gguf")
	if base == "" {
		return FileName{}, &InvalidNameError{Name: raw, Reason: "empty base name"}
	}

	parts := strings.Split(base, "-")
	fn := FileName{Kind: KindDefault, Shard: Single()}

	// Walk from the end, peeling off recognized optional components in
	// the grammar's reverse order: Shard, Kind, Encoding, Version, then
	// FineTune/SizeLabel.
	end := len(parts)
	if end >= 3 {
		candidate := parts[end-3] + "-" + parts[end-2] + "-" + parts[end-1]
		if m := shardRe.FindStringSubmatch(candidate); m != nil {
			idx, _ := strconv.Atoi(m[1])
			cnt, _ := strconv.Atoi(m[2])
			fn.Shard = Shard{Index: uint32(idx), Count: uint32(cnt)}
			end -= 3
		}
	}
	if end >= 1 {
		switch parts[end-1] {
		case "LoRA":
			fn.Kind = KindLoRA
			end--
		case "vocab":
			fn.Kind = KindVocab
			end--
		}
	}
	if end >= 1 && looksLikeEncoding(parts[end-1]) {
		fn.Encoding = parts[end-1]
		end--
	}
	if end >= 1 && versionRe.MatchString(parts[end-1]) {
		fn.Version = strings.TrimPrefix(parts[end-1], "v")
		end--
	}
	if end >= 1 && sizeLabelRe.MatchString(parts[end-1]) {
		fn.SizeLabel = parts[end-1]
		end--
	} else if end >= 2 && sizeLabelRe.MatchString(parts[end-2]) {
		fn.FineTune = parts[end-1]
		fn.SizeLabel = parts[end-2]
		end -= 2
	}
	if end < 1 {
		return FileName{}, &InvalidNameError{Name: raw, Reason: "no base name remains after suffixes"}
	}
	fn.BaseName = strings.Join(parts[:end], "-")
	return fn, nil
}

// looksLikeEncoding reports whether s resembles a ggml quantization
// encoding tag (e.g. Q4_K_M, F16, BF16) rather than free-form text.
func looksLikeEncoding(s string) bool {
	if s == "" {
		return false
	}
	switch {
	case strings.HasPrefix(s, "Q") || strings.HasPrefix(s, "IQ") || strings.HasPrefix(s, "TQ"):
		return true
	case s == "F16" || s == "F32" || s == "BF16":
		return true
	}
	return false
}

// String reconstructs the file name (without directory or extension)
// from its components.
func (fn FileName) String() string {
	var b strings.Builder
	b.WriteString(fn.BaseName)
	if fn.SizeLabel != "" {
		b.WriteString("-")
		b.WriteString(fn.SizeLabel)
	}
	if fn.FineTune != "" {
		b.WriteString("-")
		b.WriteString(fn.FineTune)
	}
	if fn.Version != "" {
		b.WriteString("-v")
		b.WriteString(fn.Version)
	}
	if fn.Encoding != "" {
		b.WriteString("-")
		b.WriteString(fn.Encoding)
	}
	switch fn.Kind {
	case KindLoRA:
		b.WriteString("-LoRA")
	case KindVocab:
		b.WriteString("-vocab")
	}
	if !fn.Shard.IsSingle() {
		fmt.Fprintf(&b, "-%05d-of-%05d", fn.Shard.Index, fn.Shard.Count)
	}
	b.WriteString(".gguf")
	return b.String()
}

// WithShard returns a copy of fn addressing shard (index, count).
func (fn FileName) WithShard(index, count uint32) FileName {
	fn.Shard = Shard{Index: index, Count: count}
	return fn
}

// SiblingPaths returns the paths of every shard of the model that path
// belongs to, in index order, given path names just one shard (or the
// single unsharded file). dir is path's directory, preserved verbatim.
func SiblingPaths(path string) ([]string, error) {
	dir := filepath.Dir(path)
	fn, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if fn.Shard.IsSingle() {
		return []string{path}, nil
	}
	out := make([]string, fn.Shard.Count)
	for i := uint32(1); i <= fn.Shard.Count; i++ {
		out[i-1] = filepath.Join(dir, fn.WithShard(i, fn.Shard.Count).String())
	}
	return out, nil
}
