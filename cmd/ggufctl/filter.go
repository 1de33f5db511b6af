package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ggufkit/ggufkit/operator"
	"github.com/ggufkit/ggufkit/shard"
)

func newFilterCmd() *cobra.Command {
	var outputDir, filterMeta, filterTensor string
	cmd := &cobra.Command{
		Use:   "filter <file>",
		Short: "keep only metadata keys and tensors matching glob patterns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newRunLogger("filter")
			c, fn, err := loadContent(args[0])
			if err != nil {
				return err
			}

			operator.FilterMeta(c, compilePatterns(filterMeta))
			operator.FilterTensor(c, compilePatterns(filterTensor))

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
			log.Info("filter complete")
			for _, p := range paths {
				fmt.Printf("wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory for the filtered file")
	cmd.Flags().StringVarP(&filterMeta, "filter-meta", "m", "*", "glob pattern(s) of metadata keys to keep")
	cmd.Flags().StringVarP(&filterTensor, "filter-tensor", "t", "*", "glob pattern(s) of tensor names to keep")
	return cmd
}
