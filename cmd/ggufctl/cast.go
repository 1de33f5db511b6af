package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ggufkit/ggufkit/operator"
	"github.com/ggufkit/ggufkit/shard"
)

func newCastCmd() *cobra.Command {
	var out outputFlags
	var embd, norm, mat string
	cmd := &cobra.Command{
		Use:   "cast <file>",
		Short: "quantize or dequantize tensors by role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newRunLogger("cast")
			plan, err := buildCastPlan(embd, norm, mat)
			if err != nil {
				return err
			}

			c, fn, err := loadContent(args[0])
			if err != nil {
				return err
			}
			if err := operator.Cast(c, plan); err != nil {
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
			log.Info("cast complete")
			for _, p := range paths {
				fmt.Printf("wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&embd, "embd", "", "target type for token_embd/output weights")
	cmd.Flags().StringVar(&norm, "norm", "", "target type for normalization weights")
	cmd.Flags().StringVar(&mat, "mat", "", "target type for every other multi-dimensional tensor")
	out.register(cmd)
	return cmd
}

func buildCastPlan(embd, norm, mat string) (operator.CastPlan, error) {
	var plan operator.CastPlan
	if embd != "" {
		t, err := parseGGmlType(embd)
		if err != nil {
			return plan, err
		}
		plan.Embd, plan.HasEmbd = t, true
	}
	if norm != "" {
		t, err := parseGGmlType(norm)
		if err != nil {
			return plan, err
		}
		plan.Norm, plan.HasNorm = t, true
	}
	if mat != "" {
		t, err := parseGGmlType(mat)
		if err != nil {
			return plan, err
		}
		plan.Mat, plan.HasMat = t, true
	}
	return plan, nil
}
