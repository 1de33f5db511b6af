package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/operator"
	"github.com/ggufkit/ggufkit/shard"
)

// newOptimizeCmd exposes the structural operators that don't change
// which tensors exist, only their order, type layout or grouping:
// sort, merge-linear/split-linear and distribute, composed as an
// ordered list of steps, mirroring xtask convert.rs's "->"-separated
// step string.
func newOptimizeCmd() *cobra.Command {
	var out outputFlags
	var steps string
	cmd := &cobra.Command{
		Use:   "optimize <file>",
		Short: "apply a chain of structural operators (sort, merge-linear, split-linear, distribute:<n>)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newRunLogger("optimize")
			c, fn, err := loadContent(args[0])
			if err != nil {
				return err
			}

			arch, _ := c.MetaGet("general.architecture")
			archStr, _ := arch.(string)

			for _, step := range strings.Split(steps, "->") {
				step = strings.TrimSpace(step)
				if step == "" {
					continue
				}
				if err := applyStep(c, archStr, step); err != nil {
					return fmt.Errorf("step %q: %w", step, err)
				}
			}

			cfg, err := out.toConfig()
			if err != nil {
				return err
			}
			paths, err := shard.Write(context.Background(), c, fn, cfg)
			if err != nil {
				return err
			}
			log.Info("optimize complete", "steps", steps)
			for _, p := range paths {
				fmt.Printf("wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&steps, "steps", "x", "sort", `steps separated by "->": sort, merge-linear, split-linear, distribute:<n>`)
	out.register(cmd)
	return cmd
}

func applyStep(c *content.Content, arch, step string) error {
	switch {
	case step == "sort":
		return operator.SortTensors(c)
	case step == "merge-linear":
		return operator.MergeLinear(c, true)
	case step == "split-linear" || step == "!merge-linear":
		return operator.MergeLinear(c, false)
	default:
		name, arg, ok := strings.Cut(step, ":")
		if !ok {
			return fmt.Errorf("unsupported step %q", step)
		}
		switch name {
		case "distribute":
			n, err := strconv.ParseUint(arg, 10, 32)
			if err != nil {
				return fmt.Errorf("distribute: %w", err)
			}
			return operator.Distribute(c, arch, uint32(n))
		default:
			return fmt.Errorf("unsupported step %q", step)
		}
	}
}
