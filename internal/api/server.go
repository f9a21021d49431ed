// Package api serves a read-only HTTP view over an open model file: the
// header summary, the metadata block, the tensor index, and the extracted
// model configuration.
package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/bedrock/internal/gguf"
	"github.com/samcharles93/bedrock/internal/logger"
	"github.com/samcharles93/bedrock/internal/model"
)

type Server struct {
	file *gguf.File
	log  logger.Logger
}

func NewServer(file *gguf.File, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{file: file, log: log}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/model", s.handleModel)
	e.GET("/v1/model/metadata", s.handleMetadata)
	e.GET("/v1/model/tensors", s.handleTensors)
	e.GET("/v1/model/tensors/:name", s.handleTensor)
	e.GET("/v1/model/config", s.handleConfig)
}

// RequestID tags every request with an X-Request-Id, keeping a caller's own
// id when one is supplied.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModel(c *echo.Context) error {
	resp := ModelResponse{
		Path:        s.file.Path,
		Version:     s.file.Header.Version,
		Alignment:   uint32(s.file.Alignment),
		TensorCount: s.file.Header.TensorCount,
		KVCount:     s.file.Header.KVCount,
		DataOffset:  s.file.DataOffset,
		Mapped:      s.file.Mapped(),
	}
	if arch, ok := gguf.GetString(s.file.KV, "general.architecture"); ok {
		resp.Architecture = arch
	}
	if name, ok := gguf.GetString(s.file.KV, "general.name"); ok {
		resp.Name = name
	}
	return writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handleMetadata(c *echo.Context) error {
	entries := make([]MetadataEntry, 0, len(s.file.KV))
	for key, v := range s.file.KV {
		entries = append(entries, MetadataEntry{
			Key:   key,
			Type:  v.Type.String(),
			Value: metadataValue(v),
		})
	}
	sortMetadata(entries)
	return writeJSON(c, http.StatusOK, entries)
}

func (s *Server) handleTensors(c *echo.Context) error {
	filter := c.QueryParam("filter")
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return writeBadRequest(c, "limit must be a non-negative integer")
		}
		limit = n
	}

	out := make([]TensorResponse, 0, len(s.file.Tensors))
	for _, info := range s.file.Tensors {
		if filter != "" && !strings.Contains(info.Name, filter) {
			continue
		}
		out = append(out, tensorResponse(info))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return writeJSON(c, http.StatusOK, TensorListResponse{
		Count:   len(out),
		Tensors: out,
	})
}

func (s *Server) handleTensor(c *echo.Context) error {
	name := c.Param("name")
	info, ok := s.file.TensorByName(name)
	if !ok {
		return writeNotFound(c, "tensor "+strconv.Quote(name)+" not found")
	}
	return writeJSON(c, http.StatusOK, tensorResponse(info))
}

func (s *Server) handleConfig(c *echo.Context) error {
	cfg, err := model.ExtractConfig(s.file.KV)
	if err != nil {
		if errors.Is(err, model.ErrMissingField) {
			s.log.Warn("config extraction failed", "path", s.file.Path, "error", err)
			return writeError(c, http.StatusUnprocessableEntity, "incomplete_metadata", err.Error(), "", "")
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	return writeJSON(c, http.StatusOK, ConfigResponse{
		Architecture:       cfg.Architecture,
		BlockCount:         cfg.BlockCount,
		ContextLength:      cfg.ContextLength,
		EmbeddingLength:    cfg.EmbeddingLength,
		FeedForwardLength:  cfg.FeedForwardLength,
		AttentionHeadCount: cfg.AttentionHeadCount,
		HeadCountKV:        cfg.AttentionHeadCountKV,
		KeyLength:          cfg.AttentionKeyLength,
		LayerNormEpsilon:   cfg.LayerNormEpsilon,
		RopeFreqBase:       cfg.RopeFreqBase,
	})
}

func tensorResponse(info gguf.TensorInfo) TensorResponse {
	resp := TensorResponse{
		Name:     info.Name,
		Type:     info.Type.String(),
		Dims:     info.Dims,
		Offset:   info.Offset,
		Loadable: info.Type.Loadable(),
	}
	if n, err := info.ElementCount(); err == nil {
		resp.Elements = n
	}
	if size, err := info.ByteSize(); err == nil {
		resp.Bytes = size
	}
	return resp
}

// metadataValue flattens ArrayValue so the wire shape is a plain JSON array
// rather than a struct with an element-type tag.
func metadataValue(v gguf.Value) any {
	if arr, ok := v.Value.(gguf.ArrayValue); ok {
		return arr.Values
	}
	return v.Value
}

func sortMetadata(entries []MetadataEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
}

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.JSONBlob(status, b)
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return writeJSON(c, status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}
