// Command ggufctl is the external interface to the ggufkit toolkit: show,
// split, merge, filter, cast, convert, set-meta, to-llama, optimize and serve,
// mirroring the original_source xtask command set and its OutputConfig
// flag shape (-o/-t/-s/--no-tensor-first).
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/exp/mmap"

	"github.com/ggufkit/ggufkit/container"
	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/ggml"
	"github.com/ggufkit/ggufkit/name"
	"github.com/ggufkit/ggufkit/shard"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ggufctl",
		Short:         "inspect and rewrite GGUF model files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newShowCmd(),
		newSplitCmd(),
		newMergeCmd(),
		newFilterCmd(),
		newCastCmd(),
		newConvertCmd(),
		newSetMetaCmd(),
		newToLlamaCmd(),
		newOptimizeCmd(),
		newServeCmd(),
	)
	return root
}

// runID tags every invocation's log lines so concurrent runs piping
// output to the same collector can be told apart.
func runID() string {
	return uuid.New().String()[:8]
}

func newRunLogger(cmd string) *slog.Logger {
	return slog.Default().With(slog.String("run", runID()), slog.String("cmd", cmd))
}

// outputFlags is the shared OutputConfig surface every shard-producing
// subcommand exposes, named after xtask's utils::output::OutputArgs.
type outputFlags struct {
	outputDir     string
	maxTensors    int
	maxBytesStr   string
	noTensorFirst bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "output directory for written files")
	cmd.Flags().IntVarP(&f.maxTensors, "max-tensors", "t", 0, "max count of tensors per shard (0 = unlimited)")
	cmd.Flags().StringVarP(&f.maxBytesStr, "max-bytes", "s", "", "max size per shard, with optional K/M/G suffix")
	cmd.Flags().BoolVarP(&f.noTensorFirst, "no-tensor-first", "n", false, "first shard carries metadata only, no tensors")
}

func (f *outputFlags) toConfig() (shard.OutputConfig, error) {
	maxBytes, err := parseMemSize(f.maxBytesStr)
	if err != nil {
		return shard.OutputConfig{}, err
	}
	cfg := shard.OutputConfig{
		OutputDir:     f.outputDir,
		MaxTensors:    f.maxTensors,
		MaxBytes:      maxBytes,
		NoTensorFirst: f.noTensorFirst,
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.MaxTensors <= 0 {
		cfg.MaxTensors = int(^uint(0) >> 1)
	}
	return cfg, nil
}

// parseMemSize parses a byte count with an optional K/M/G suffix
// (binary multiples), per xtask's MemSize::from_str. An empty string
// means unlimited.
func parseMemSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ^uint64(0), nil
	}
	shift := 0
	switch s[len(s)-1] {
	case 'G', 'g':
		shift, s = 30, s[:len(s)-1]
	case 'M', 'm':
		shift, s = 20, s[:len(s)-1]
	case 'K', 'k':
		shift, s = 10, s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid max-bytes %q: %w", s, err)
	}
	return n << shift, nil
}

// parseGGmlType maps a cast/embd/norm/mat dtype flag to its GGmlType,
// mirroring xtask cast.rs's parse function.
func parseGGmlType(s string) (ggml.GGmlType, error) {
	for t, name := range ggmlTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unsupported ggml type %q", s)
}

var ggmlTypeNames = map[ggml.GGmlType]string{
	ggml.TypeF32: "F32", ggml.TypeF16: "F16", ggml.TypeBF16: "BF16",
	ggml.TypeQ4_0: "Q4_0", ggml.TypeQ4_1: "Q4_1",
	ggml.TypeQ5_0: "Q5_0", ggml.TypeQ5_1: "Q5_1",
	ggml.TypeQ8_0: "Q8_0", ggml.TypeQ8_1: "Q8_1",
	ggml.TypeQ2_K: "Q2_K", ggml.TypeQ3_K: "Q3_K", ggml.TypeQ4_K: "Q4_K",
	ggml.TypeQ5_K: "Q5_K", ggml.TypeQ6_K: "Q6_K", ggml.TypeQ8_K: "Q8_K",
	ggml.TypeIQ1_S: "IQ1_S", ggml.TypeIQ1_M: "IQ1_M",
	ggml.TypeIQ2_XXS: "IQ2_XXS", ggml.TypeIQ2_XS: "IQ2_XS", ggml.TypeIQ2_S: "IQ2_S",
	ggml.TypeIQ3_XXS: "IQ3_XXS", ggml.TypeIQ3_S: "IQ3_S",
	ggml.TypeIQ4_NL: "IQ4_NL", ggml.TypeIQ4_XS: "IQ4_XS",
	ggml.TypeTQ1_0: "TQ1_0", ggml.TypeTQ2_0: "TQ2_0",
	ggml.TypeI8: "I8", ggml.TypeI16: "I16", ggml.TypeI32: "I32", ggml.TypeI64: "I64", ggml.TypeF64: "F64",
}

// loadContent reads and merges every shard of the model path belongs
// to into a single Content, following xtask's GGufFileName::iter_all
// pattern of resolving all sibling shard paths before reading.
func loadContent(path string) (*content.Content, name.FileName, error) {
	paths, err := name.SiblingPaths(path)
	if err != nil {
		return nil, name.FileName{}, err
	}
	files := make([]*container.File, 0, len(paths))
	for _, p := range paths {
		buf, err := mmapFile(p)
		if err != nil {
			return nil, name.FileName{}, err
		}
		f, err := container.Scan(buf)
		if err != nil {
			return nil, name.FileName{}, fmt.Errorf("%s: %w", p, err)
		}
		files = append(files, f)
	}

	c, err := content.FromFiles(files)
	if err != nil {
		return nil, name.FileName{}, err
	}

	fn, err := name.Parse(path)
	if err != nil {
		return nil, name.FileName{}, err
	}
	fn.Shard = name.Single()
	return c, fn, nil
}

// mmapFile memory-maps path read-only and returns its full contents,
// the same zero-copy read the Rust reference performs with memmap2
// before handing the bytes to its GGufFile parser.
func mmapFile(path string) ([]byte, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := make([]byte, r.Len())
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}
