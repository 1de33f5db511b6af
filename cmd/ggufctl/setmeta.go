package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ggufkit/ggufkit/operator"
	"github.com/ggufkit/ggufkit/shard"
)

func newSetMetaCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "set-meta <file> <meta.yaml>",
		Short: "overwrite metadata keys from a YAML key/value file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newRunLogger("set-meta")
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var kvs map[string]any
			if err := yaml.Unmarshal(raw, &kvs); err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			c, fn, err := loadContent(args[0])
			if err != nil {
				return err
			}
			for k, v := range kvs {
				operator.SetMeta(c, k, v)
			}

			dir := outputDir
			if dir == "" {
				dir = "."
			}
			paths, err := shard.Write(context.Background(), c, fn, shard.OutputConfig{
				OutputDir:  dir,
				MaxTensors: int(^uint(0) >> 1),
				MaxBytes:   ^uint64(0),
			})
			if err != nil {
				return err
			}
			log.Info("set-meta complete")
			for _, p := range paths {
				fmt.Printf("wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory for the rewritten file")
	return cmd
}
