package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ggufkit/ggufkit/operator"
	"github.com/ggufkit/ggufkit/shard"
)

func newToLlamaCmd() *cobra.Command {
	var out outputFlags
	var extra string
	cmd := &cobra.Command{
		Use:   "to-llama <file>",
		Short: "reinterpret a minicpm-architecture model as llama",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newRunLogger("to-llama")
			var raw map[string]any
			if extra != "" {
				if err := json.Unmarshal([]byte(extra), &raw); err != nil {
					return fmt.Errorf("--extra: %w", err)
				}
			}
			mx, err := operator.DecodeMinicpmExtra(raw)
			if err != nil {
				return err
			}

			c, fn, err := loadContent(args[0])
			if err != nil {
				return err
			}
			if err := operator.ToLlama(c, mx); err != nil {
				return err
			}

			cfg, err := out.toConfig()
			if err != nil {
				return err
			}
			paths, err := shard.Write(context.Background(), c, fn, cfg)
			if err != nil {
				return err
			}
			log.Info("to-llama complete")
			for _, p := range paths {
				fmt.Printf("wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&extra, "extra", "x", "", "JSON object of minicpm rescale factors (embedding_scale, residual_scale, logits_scale)")
	out.register(cmd)
	return cmd
}
