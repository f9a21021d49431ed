package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/samcharles93/bedrock/internal/gguf"
)

func stubTensor(name string, dims ...uint64) gguf.Tensor {
	return gguf.Tensor{
		Info: gguf.TensorInfo{
			Name: name,
			NDim: uint32(len(dims)),
			Dims: dims,
			Type: gguf.TensorF16,
		},
	}
}

// qwenTensorMap builds a complete Qwen-style flat tensor namespace.
func qwenTensorMap(blockCount int) map[string]gguf.Tensor {
	tensors := map[string]gguf.Tensor{
		"token_embd.weight":  stubTensor("token_embd.weight", 1024, 151936),
		"output.weight":      stubTensor("output.weight", 1024, 151936),
		"output_norm.weight": stubTensor("output_norm.weight", 1024),
	}
	for i := 0; i < blockCount; i++ {
		p := fmt.Sprintf("blk.%d.", i)
		for _, suffix := range []string{
			"attn_q.weight", "attn_k.weight", "attn_v.weight", "attn_output.weight",
			"attn_q_norm.weight", "attn_k_norm.weight", "attn_norm.weight",
			"ffn_gate.weight", "ffn_up.weight", "ffn_down.weight", "ffn_norm.weight",
		} {
			tensors[p+suffix] = stubTensor(p+suffix, 1024, 1024)
		}
	}
	return tensors
}

func qwenConfig(blockCount uint32) Config {
	return Config{
		Architecture:       "qwen3",
		BlockCount:         blockCount,
		ContextLength:      40960,
		EmbeddingLength:    1024,
		FeedForwardLength:  3072,
		AttentionHeadCount: 16,
	}
}

func TestAssembleQwenStyle(t *testing.T) {
	tensors := qwenTensorMap(28)
	m, err := Assemble(tensors, qwenConfig(28))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(m.Blocks) != 28 {
		t.Errorf("blocks = %d, want 28", len(m.Blocks))
	}
	if m.Architecture != "qwen3" {
		t.Errorf("architecture = %q", m.Architecture)
	}

	// Embedding dims are used verbatim.
	if m.EmbeddingDim() != 1024 {
		t.Errorf("embedding dim = %d, want 1024", m.EmbeddingDim())
	}
	if m.VocabSize() != 151936 {
		t.Errorf("vocab size = %d, want 151936", m.VocabSize())
	}

	b := m.Blocks[0]
	if b.Attention.QueryNorm == nil || b.Attention.KeyNorm == nil || b.Attention.Norm == nil {
		t.Error("attention norms should be present")
	}
	if !b.FeedForward.Gated() {
		t.Error("ffn with gate tensor should report gated")
	}
	if b.FeedForward.Norm == nil {
		t.Error("ffn norm should be present")
	}
	if m.OutputNorm == nil {
		t.Error("output norm should be present")
	}

	// Every tensor in a complete mapping is claimed.
	if len(tensors) != 0 {
		t.Errorf("%d tensors left unclaimed, want 0", len(tensors))
	}
}

func TestAssembleMissingEmbedding(t *testing.T) {
	tensors := qwenTensorMap(2)
	delete(tensors, "token_embd.weight")

	_, err := Assemble(tensors, qwenConfig(2))
	if !errors.Is(err, gguf.ErrTensorNotFound) {
		t.Fatalf("err = %v, want ErrTensorNotFound", err)
	}
	if !strings.Contains(err.Error(), "token_embd.weight") {
		t.Errorf("error %q does not name token_embd.weight", err)
	}
}

func TestAssembleMissingBlockTensor(t *testing.T) {
	tensors := qwenTensorMap(4)
	delete(tensors, "blk.3.ffn_down.weight")

	_, err := Assemble(tensors, qwenConfig(4))
	if !errors.Is(err, gguf.ErrTensorNotFound) {
		t.Fatalf("err = %v, want ErrTensorNotFound", err)
	}
	if !strings.Contains(err.Error(), "blk.3.ffn_down.weight") {
		t.Errorf("error %q does not name blk.3.ffn_down.weight", err)
	}
}

func TestAssembleOptionalTensorsAbsent(t *testing.T) {
	tensors := qwenTensorMap(1)
	for _, name := range []string{
		"blk.0.attn_q_norm.weight", "blk.0.attn_k_norm.weight", "blk.0.attn_norm.weight",
		"blk.0.ffn_gate.weight", "blk.0.ffn_norm.weight", "output_norm.weight",
	} {
		delete(tensors, name)
	}

	m, err := Assemble(tensors, qwenConfig(1))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	b := m.Blocks[0]
	if b.Attention.QueryNorm != nil || b.Attention.KeyNorm != nil || b.Attention.Norm != nil {
		t.Error("absent attention norms should be nil")
	}
	if b.FeedForward.Gated() {
		t.Error("ffn without gate should not report gated")
	}
	if b.FeedForward.Norm != nil || m.OutputNorm != nil {
		t.Error("absent norms should be nil")
	}
}

func TestAssembleLeavesUnclaimedTensors(t *testing.T) {
	tensors := qwenTensorMap(1)
	tensors["rope_freqs.weight"] = stubTensor("rope_freqs.weight", 64)

	_, err := Assemble(tensors, qwenConfig(1))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, ok := tensors["rope_freqs.weight"]; !ok {
		t.Error("unclaimed tensor should remain in the mapping")
	}
	if len(tensors) != 1 {
		t.Errorf("%d tensors left, want 1", len(tensors))
	}
}
