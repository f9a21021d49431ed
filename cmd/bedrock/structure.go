package main

import (
	"fmt"

	"github.com/samcharles93/bedrock/internal/gguf"
	"github.com/samcharles93/bedrock/internal/model"
)

// printStructure assembles the transformer from the file's tensors and walks
// it layer by layer: embedding, per-block attention and feed-forward, output.
func printStructure(f *gguf.File) {
	section("Model Structure")
	cfg, err := model.ExtractConfig(f.KV)
	if err != nil {
		fmt.Printf("(no model structure: %v)\n", err)
		return
	}
	tensors, skipped := f.LoadAll()
	m, err := model.Assemble(tensors, cfg)
	if err != nil {
		fmt.Printf("(assembly failed: %v)\n", err)
		return
	}
	for _, line := range structureLines(m) {
		fmt.Println(line)
	}
	if len(skipped) > 0 {
		fmt.Printf("(%d tensors not loadable)\n", len(skipped))
	}
	if len(tensors) > 0 {
		fmt.Printf("(%d tensors unclaimed by the block structure)\n", len(tensors))
	}
}

func structureLines(m *model.Model) []string {
	lines := []string{
		fmt.Sprintf("architecture=%s blocks=%d embedding_dim=%d vocab_size=%d",
			m.Architecture, len(m.Blocks), m.EmbeddingDim(), m.VocabSize()),
		fmt.Sprintf("token_embd  %s %s", m.TokenEmbedding.Info.Type, formatShape(m.TokenEmbedding.Info.Dims)),
	}
	for i := range m.Blocks {
		b := &m.Blocks[i]

		attn := fmt.Sprintf("blk.%d  attn q=%s k=%s v=%s out=%s", i,
			formatShape(b.Attention.Query.Info.Dims),
			formatShape(b.Attention.Key.Info.Dims),
			formatShape(b.Attention.Value.Info.Dims),
			formatShape(b.Attention.Output.Info.Dims))
		if b.Attention.Norm != nil {
			attn += " norm=" + formatShape(b.Attention.Norm.Info.Dims)
		}
		lines = append(lines, attn)

		ffn := fmt.Sprintf("blk.%d  ffn  up=%s down=%s", i,
			formatShape(b.FeedForward.Up.Info.Dims),
			formatShape(b.FeedForward.Down.Info.Dims))
		if b.FeedForward.Gated() {
			ffn += " gate=" + formatShape(b.FeedForward.Gate.Info.Dims)
		}
		if b.FeedForward.Norm != nil {
			ffn += " norm=" + formatShape(b.FeedForward.Norm.Info.Dims)
		}
		lines = append(lines, ffn)
	}
	lines = append(lines, fmt.Sprintf("output  %s %s", m.Output.Info.Type, formatShape(m.Output.Info.Dims)))
	if m.OutputNorm != nil {
		lines = append(lines, "output_norm  "+formatShape(m.OutputNorm.Info.Dims))
	}
	return lines
}
