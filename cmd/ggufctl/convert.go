package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ggufkit/ggufkit/container"
	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/convert"
	"github.com/ggufkit/ggufkit/ggml"
	"github.com/ggufkit/ggufkit/name"
	"github.com/ggufkit/ggufkit/shard"
)

func newConvertCmd() *cobra.Command {
	var out outputFlags
	var modelName string
	cmd := &cobra.Command{
		Use:   "convert <hf-model-dir>",
		Short: "build a GGUF file from a HuggingFace model directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newRunLogger("convert")
			dir := args[0]

			params, err := convert.GetParams(dir)
			if err != nil {
				return err
			}
			kv, err := convert.ArchDefaults(modelName, params)
			if err != nil {
				return err
			}
			vocab, err := convert.LoadTokens(dir, params)
			if err != nil {
				return err
			}

			c := content.New()
			for k, v := range kv {
				c.MetaSet(k, v)
			}
			tokens := make([]any, len(vocab.Tokens))
			scores := make([]any, len(vocab.Scores))
			types := make([]any, len(vocab.Types))
			for i, v := range vocab.Tokens {
				tokens[i] = v
			}
			for i, v := range vocab.Scores {
				scores[i] = v
			}
			for i, v := range vocab.Types {
				types[i] = v
			}
			c.MetaSet("tokenizer.ggml.tokens", container.ArrayValue{Elem: ggml.MetaString, Values: tokens})
			c.MetaSet("tokenizer.ggml.scores", container.ArrayValue{Elem: ggml.MetaF32, Values: scores})
			c.MetaSet("tokenizer.ggml.token_type", container.ArrayValue{Elem: ggml.MetaI32, Values: types})

			fn, err := name.Parse(modelName)
			if err != nil {
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
			log.Info("convert complete", "tensors", len(c.TensorNames()), "vocab", len(vocab.Tokens))
			for _, p := range paths {
				fmt.Printf("wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelName, "name", "model", "base name for the output GGUF file")
	out.register(cmd)
	return cmd
}
