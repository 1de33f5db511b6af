package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ggufkit/ggufkit/name"
	"github.com/ggufkit/ggufkit/shard"
)

func newMergeCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "merge <file>",
		Short: "merge every shard of a split model back into one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newRunLogger("merge")
			orig, err := name.Parse(args[0])
			if err != nil {
				return err
			}
			if orig.Shard.IsSingle() {
				fmt.Println("model does not need to be merged")
				return nil
			}
			c, fn, err := loadContent(args[0])
			if err != nil {
				return err
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
			log.Info("merge complete")
			for _, p := range paths {
				fmt.Printf("wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory for the merged file")
	return cmd
}
