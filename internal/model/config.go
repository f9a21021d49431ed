// Package model reconstructs a transformer model structure from a decoded
// GGUF file: configuration from the metadata block, layers from the flat
// tensor namespace.
package model

import (
	"errors"
	"fmt"

	"github.com/samcharles93/bedrock/internal/gguf"
)

var ErrMissingField = errors.New("model: missing or invalid field")

// Config is the architecture-prefixed model configuration extracted from
// GGUF metadata. Optional fields are pointers so absence survives
// extraction instead of collapsing to a zero value.
type Config struct {
	Architecture       string `json:"architecture"`
	BlockCount         uint32 `json:"block_count"`
	ContextLength      uint32 `json:"context_length"`
	EmbeddingLength    uint32 `json:"embedding_length"`
	FeedForwardLength  uint32 `json:"feed_forward_length"`
	AttentionHeadCount uint32 `json:"attention_head_count"`

	AttentionHeadCountKV *uint32  `json:"attention_head_count_kv,omitempty"`
	AttentionKeyLength   *uint32  `json:"attention_key_length,omitempty"`
	LayerNormEpsilon     *float32 `json:"layer_norm_rms_epsilon,omitempty"`
	RopeFreqBase         *float32 `json:"rope_freq_base,omitempty"`
}

// ExtractConfig derives the model configuration from decoded metadata.
// general.architecture selects the key prefix for every other field; the
// five required numeric fields fail with an error naming the exact key.
func ExtractConfig(kv map[string]gguf.Value) (Config, error) {
	arch, ok := gguf.GetString(kv, "general.architecture")
	if !ok {
		return Config{}, fmt.Errorf("%w: general.architecture", ErrMissingField)
	}

	cfg := Config{Architecture: arch}

	required := []struct {
		key string
		dst *uint32
	}{
		{arch + ".block_count", &cfg.BlockCount},
		{arch + ".context_length", &cfg.ContextLength},
		{arch + ".embedding_length", &cfg.EmbeddingLength},
		{arch + ".feed_forward_length", &cfg.FeedForwardLength},
		{arch + ".attention.head_count", &cfg.AttentionHeadCount},
	}
	for _, f := range required {
		v, ok := getUint32(kv, f.key)
		if !ok {
			return Config{}, fmt.Errorf("%w: %s", ErrMissingField, f.key)
		}
		*f.dst = v
	}

	if v, ok := getUint32(kv, arch+".attention.head_count_kv"); ok {
		cfg.AttentionHeadCountKV = &v
	}
	if v, ok := getUint32(kv, arch+".attention.key_length"); ok {
		cfg.AttentionKeyLength = &v
	}
	if v, ok := getFloat32(kv, arch+".attention.layer_norm_rms_epsilon"); ok {
		cfg.LayerNormEpsilon = &v
	}
	if v, ok := getFloat32(kv, arch+".rope.freq_base"); ok {
		cfg.RopeFreqBase = &v
	}

	return cfg, nil
}

// getUint32 accepts any unsigned integer width and narrows to 32 bits.
func getUint32(kv map[string]gguf.Value, key string) (uint32, bool) {
	v, ok := gguf.GetUint64(kv, key)
	if !ok {
		return 0, false
	}
	return uint32(v), true
}

// getFloat32 accepts either float width and narrows to 32 bits.
func getFloat32(kv map[string]gguf.Value, key string) (float32, bool) {
	v, ok := gguf.GetFloat64(kv, key)
	if !ok {
		return 0, false
	}
	return float32(v), true
}
