package main

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/bedrock/internal/gguf"
	"github.com/samcharles93/bedrock/internal/model"
)

func configCmd() *cli.Command {
	var asJSON bool

	flags := append(modelFlag(),
		&cli.BoolFlag{Name: "json", Usage: "emit JSON instead of text", Destination: &asJSON},
	)

	return &cli.Command{
		Name:  "config",
		Usage: "Extract the model configuration from a .gguf file",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			f, err := gguf.Open(modelPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open gguf: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			cfg, err := model.ExtractConfig(f.KV)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if asJSON {
				out, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			row("architecture", cfg.Architecture)
			rowInt("block_count", int(cfg.BlockCount))
			rowInt("context_length", int(cfg.ContextLength))
			rowInt("embedding_length", int(cfg.EmbeddingLength))
			rowInt("feed_forward_length", int(cfg.FeedForwardLength))
			rowInt("attention_head_count", int(cfg.AttentionHeadCount))
			if cfg.AttentionHeadCountKV != nil {
				rowInt("attention_head_count_kv", int(*cfg.AttentionHeadCountKV))
			}
			if cfg.AttentionKeyLength != nil {
				rowInt("attention_key_length", int(*cfg.AttentionKeyLength))
			}
			if cfg.LayerNormEpsilon != nil {
				rowFloat("layer_norm_rms_epsilon", float64(*cfg.LayerNormEpsilon))
			}
			if cfg.RopeFreqBase != nil {
				rowFloat("rope_freq_base", float64(*cfg.RopeFreqBase))
			}
			return nil
		},
	}
}
