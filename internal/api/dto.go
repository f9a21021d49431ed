package api

// ModelResponse summarizes an open model file.
type ModelResponse struct {
	Path         string `json:"path"`
	Architecture string `json:"architecture,omitempty"`
	Name         string `json:"name,omitempty"`
	Version      uint32 `json:"version"`
	Alignment    uint32 `json:"alignment"`
	TensorCount  uint64 `json:"tensor_count"`
	KVCount      uint64 `json:"kv_count"`
	DataOffset   uint64 `json:"data_offset"`
	Mapped       bool   `json:"mapped"`
}

// MetadataEntry is one key/value pair from the metadata section.
type MetadataEntry struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// TensorResponse describes one tensor without exposing its data.
type TensorResponse struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Dims     []uint64 `json:"dims"`
	Offset   uint64   `json:"offset"`
	Elements uint64   `json:"elements"`
	Bytes    uint64   `json:"bytes,omitempty"`
	Loadable bool     `json:"loadable"`
}

// TensorListResponse is the tensor index listing.
type TensorListResponse struct {
	Count   int              `json:"count"`
	Tensors []TensorResponse `json:"tensors"`
}

// ConfigResponse carries the extracted model hyperparameters. Optional
// fields are omitted when the metadata does not supply them.
type ConfigResponse struct {
	Architecture       string   `json:"architecture"`
	BlockCount         uint32   `json:"block_count"`
	ContextLength      uint32   `json:"context_length"`
	EmbeddingLength    uint32   `json:"embedding_length"`
	FeedForwardLength  uint32   `json:"feed_forward_length"`
	AttentionHeadCount uint32   `json:"attention_head_count"`
	HeadCountKV        *uint32  `json:"attention_head_count_kv,omitempty"`
	KeyLength          *uint32  `json:"attention_key_length,omitempty"`
	LayerNormEpsilon   *float32 `json:"layer_norm_rms_epsilon,omitempty"`
	RopeFreqBase       *float32 `json:"rope_freq_base,omitempty"`
}

// ResponseError is the error payload wrapped under "error" in failure
// responses.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
