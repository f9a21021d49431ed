package model

import (
	"fmt"

	"github.com/samcharles93/bedrock/internal/gguf"
)

// Attention holds one block's attention tensors. Query/Key/Value/Output are
// always present; the norms are optional and nil when the file omits them.
type Attention struct {
	Query  gguf.Tensor
	Key    gguf.Tensor
	Value  gguf.Tensor
	Output gguf.Tensor

	QueryNorm *gguf.Tensor
	KeyNorm   *gguf.Tensor
	Norm      *gguf.Tensor
}

// FeedForward holds one block's feed-forward tensors. A present Gate makes
// the layer gated (SwiGLU-style); that is derived, not stored.
type FeedForward struct {
	Up   gguf.Tensor
	Down gguf.Tensor

	Gate *gguf.Tensor
	Norm *gguf.Tensor
}

// Gated reports whether the feed-forward layer carries a gate projection.
func (f *FeedForward) Gated() bool {
	return f.Gate != nil
}

// Block is one transformer block.
type Block struct {
	Attention   Attention
	FeedForward FeedForward
}

// Model is the assembled transformer: embedding, ordered blocks, output.
// It owns the tensors it claimed during assembly and is read-only afterward.
type Model struct {
	Architecture   string
	Config         Config
	TokenEmbedding gguf.Tensor
	Blocks         []Block
	Output         gguf.Tensor
	OutputNorm     *gguf.Tensor
}

// EmbeddingDim returns the embedding dimension, taken verbatim from the
// embedding tensor's first dimension.
func (m *Model) EmbeddingDim() uint64 {
	if len(m.TokenEmbedding.Info.Dims) < 2 {
		return 0
	}
	return m.TokenEmbedding.Info.Dims[0]
}

// VocabSize returns the vocabulary size from the embedding tensor's second
// dimension.
func (m *Model) VocabSize() uint64 {
	if len(m.TokenEmbedding.Info.Dims) < 2 {
		return 0
	}
	return m.TokenEmbedding.Info.Dims[1]
}

// Assemble builds the model structure from a flat name-to-tensor mapping,
// consuming claimed entries. Tensors left in the mapping afterward are
// unused by the structured model, which is not an error; callers needing
// strict accounting can inspect the remainder.
//
// Assembly claims by the fixed GGUF naming convention: token_embd.weight,
// blk.<i>.* for each block, then output.weight / output_norm.weight.
func Assemble(tensors map[string]gguf.Tensor, cfg Config) (*Model, error) {
	embedding, err := claim(tensors, "token_embd.weight")
	if err != nil {
		return nil, err
	}

	blocks := make([]Block, cfg.BlockCount)
	for i := range blocks {
		prefix := fmt.Sprintf("blk.%d.", i)

		attn := Attention{}
		if attn.Query, err = claim(tensors, prefix+"attn_q.weight"); err != nil {
			return nil, err
		}
		if attn.Key, err = claim(tensors, prefix+"attn_k.weight"); err != nil {
			return nil, err
		}
		if attn.Value, err = claim(tensors, prefix+"attn_v.weight"); err != nil {
			return nil, err
		}
		if attn.Output, err = claim(tensors, prefix+"attn_output.weight"); err != nil {
			return nil, err
		}
		attn.QueryNorm = claimOptional(tensors, prefix+"attn_q_norm.weight")
		attn.KeyNorm = claimOptional(tensors, prefix+"attn_k_norm.weight")
		attn.Norm = claimOptional(tensors, prefix+"attn_norm.weight")

		ffn := FeedForward{}
		if ffn.Up, err = claim(tensors, prefix+"ffn_up.weight"); err != nil {
			return nil, err
		}
		if ffn.Down, err = claim(tensors, prefix+"ffn_down.weight"); err != nil {
			return nil, err
		}
		ffn.Gate = claimOptional(tensors, prefix+"ffn_gate.weight")
		ffn.Norm = claimOptional(tensors, prefix+"ffn_norm.weight")

		blocks[i] = Block{Attention: attn, FeedForward: ffn}
	}

	output, err := claim(tensors, "output.weight")
	if err != nil {
		return nil, err
	}

	return &Model{
		Architecture:   cfg.Architecture,
		Config:         cfg,
		TokenEmbedding: embedding,
		Blocks:         blocks,
		Output:         output,
		OutputNorm:     claimOptional(tensors, "output_norm.weight"),
	}, nil
}

func claim(tensors map[string]gguf.Tensor, name string) (gguf.Tensor, error) {
	t, ok := tensors[name]
	if !ok {
		return gguf.Tensor{}, fmt.Errorf("%w: %s", gguf.ErrTensorNotFound, name)
	}
	delete(tensors, name)
	return t, nil
}

func claimOptional(tensors map[string]gguf.Tensor, name string) *gguf.Tensor {
	t, ok := tensors[name]
	if !ok {
		return nil
	}
	delete(tensors, name)
	return &t
}
