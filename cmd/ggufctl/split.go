package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ggufkit/ggufkit/shard"
)

func newSplitCmd() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "split a single-file model into multiple shards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newRunLogger("split")
			c, fn, err := loadContent(args[0])
			if err != nil {
				return err
			}
			if !fn.Shard.IsSingle() {
				fmt.Println("model has already been split")
				return nil
			}
			cfg, err := out.toConfig()
			if err != nil {
				return err
			}
			paths, err := shard.Write(context.Background(), c, fn, cfg)
			if err != nil {
				return err
			}
			log.Info("split complete", "shards", len(paths))
			for _, p := range paths {
				fmt.Printf("wrote %s\n", p)
			}
			return nil
		},
	}
	out.register(cmd)
	return cmd
}
