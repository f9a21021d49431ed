package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/bedrock/internal/gguf"
)

func putString(buf *bytes.Buffer, s string) {
	_ = binary.Write(buf, binary.LittleEndian, uint64(len(s)))
	buf.WriteString(s)
}

func putStringKV(buf *bytes.Buffer, key, val string) {
	putString(buf, key)
	_ = binary.Write(buf, binary.LittleEndian, uint32(gguf.TypeString))
	putString(buf, val)
}

func putUint32KV(buf *bytes.Buffer, key string, val uint32) {
	putString(buf, key)
	_ = binary.Write(buf, binary.LittleEndian, uint32(gguf.TypeUint32))
	_ = binary.Write(buf, binary.LittleEndian, val)
}

func putTensor(buf *bytes.Buffer, name string, dims []uint64, ttype gguf.TensorType, offset uint64) {
	putString(buf, name)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(dims)))
	for _, d := range dims {
		_ = binary.Write(buf, binary.LittleEndian, d)
	}
	_ = binary.Write(buf, binary.LittleEndian, uint32(ttype))
	_ = binary.Write(buf, binary.LittleEndian, offset)
}

// testFile builds a small model file in memory: the qwen3 config keys, two
// f32 tensors, and enough data-section bytes to back them.
func testFile(t *testing.T) *gguf.File {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("GGUF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(3))
	_ = binary.Write(&buf, binary.LittleEndian, uint64(2)) // tensors
	_ = binary.Write(&buf, binary.LittleEndian, uint64(7)) // kv pairs

	putStringKV(&buf, "general.architecture", "qwen3")
	putStringKV(&buf, "general.name", "test model")
	putUint32KV(&buf, "qwen3.block_count", 2)
	putUint32KV(&buf, "qwen3.context_length", 4096)
	putUint32KV(&buf, "qwen3.embedding_length", 64)
	putUint32KV(&buf, "qwen3.feed_forward_length", 256)
	putUint32KV(&buf, "qwen3.attention.head_count", 4)

	putTensor(&buf, "token_embd.weight", []uint64{4, 8}, gguf.TensorF32, 0)
	putTensor(&buf, "output.weight", []uint64{4, 8}, gguf.TensorF32, 128)

	for buf.Len()%gguf.DefaultAlignment != 0 {
		buf.WriteByte(0)
	}
	buf.Write(make([]byte, 128+4*8*4))

	f, err := gguf.Decode("test.gguf", buf.Bytes())
	if err != nil {
		t.Fatalf("decode test file: %v", err)
	}
	return f
}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Use(RequestID())
	NewServer(testFile(t), nil).Register(e)
	return e
}

func doGET(t *testing.T, e *echo.Echo, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndRequestID(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGET(t, e, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected generated request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(echo.HeaderXRequestID, "caller-id")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "caller-id" {
		t.Errorf("request id = %q, want caller-id", got)
	}
}

func TestModelEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGET(t, e, "/v1/model")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp ModelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Architecture != "qwen3" {
		t.Errorf("architecture = %q", resp.Architecture)
	}
	if resp.Name != "test model" {
		t.Errorf("name = %q", resp.Name)
	}
	if resp.Version != 3 || resp.TensorCount != 2 || resp.KVCount != 7 {
		t.Errorf("header fields: %+v", resp)
	}
	if resp.Alignment != gguf.DefaultAlignment {
		t.Errorf("alignment = %d", resp.Alignment)
	}
}

func TestMetadataSortedByKey(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGET(t, e, "/v1/model/metadata")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var entries []MetadataEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 7 {
		t.Fatalf("entries = %d, want 7", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Key < entries[i-1].Key {
			t.Fatalf("entries not sorted: %q before %q", entries[i-1].Key, entries[i].Key)
		}
	}
	if entries[0].Key != "general.architecture" || entries[0].Value != "qwen3" {
		t.Errorf("first entry = %+v", entries[0])
	}
}

func TestTensorListing(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGET(t, e, "/v1/model/tensors")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var list TensorListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if list.Count != 2 {
		t.Errorf("count = %d, want 2", list.Count)
	}

	rec = doGET(t, e, "/v1/model/tensors?filter=output")
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode filtered response: %v", err)
	}
	if list.Count != 1 || list.Tensors[0].Name != "output.weight" {
		t.Errorf("filtered list = %+v", list)
	}

	rec = doGET(t, e, "/v1/model/tensors?limit=1")
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode limited response: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("limited count = %d, want 1", list.Count)
	}

	rec = doGET(t, e, "/v1/model/tensors?limit=nope")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestTensorByName(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGET(t, e, "/v1/model/tensors/token_embd.weight")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp TensorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Type != "f32" || resp.Elements != 32 || resp.Bytes != 128 || !resp.Loadable {
		t.Errorf("tensor = %+v", resp)
	}

	rec = doGET(t, e, "/v1/model/tensors/missing.weight")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing tensor status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing.weight") {
		t.Errorf("404 body does not name the tensor: %s", rec.Body.String())
	}
}

func TestConfigEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGET(t, e, "/v1/model/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Architecture != "qwen3" || resp.BlockCount != 2 || resp.ContextLength != 4096 {
		t.Errorf("config = %+v", resp)
	}
	if resp.HeadCountKV != nil {
		t.Error("absent optional field should be omitted")
	}
}

func TestConfigIncompleteMetadata(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.WriteString("GGUF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(3))
	_ = binary.Write(&buf, binary.LittleEndian, uint64(0))
	_ = binary.Write(&buf, binary.LittleEndian, uint64(1))
	putStringKV(&buf, "general.architecture", "qwen3")

	f, err := gguf.Decode("bare.gguf", buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	e := echo.New()
	NewServer(f, nil).Register(e)

	rec := doGET(t, e, "/v1/model/config")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "qwen3.block_count") {
		t.Errorf("error body does not name the missing key: %s", rec.Body.String())
	}
}
