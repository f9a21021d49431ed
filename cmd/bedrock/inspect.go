package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/bedrock/internal/gguf"
	"github.com/samcharles93/bedrock/internal/model"
)

func inspectCmd() *cli.Command {
	var (
		showAll       bool
		showMeta      bool
		showTensors   bool
		showStructure bool
		showData      bool
		asJSON        bool
		tensorLimit   int64
		tensorFilter  string
	)

	flags := append(modelFlag(),
		&cli.BoolFlag{Name: "all", Usage: "show metadata, the full tensor index, and the block structure", Destination: &showAll},
		&cli.BoolFlag{Name: "metadata", Usage: "list metadata entries", Destination: &showMeta},
		&cli.BoolFlag{Name: "tensors", Usage: "list tensor index", Destination: &showTensors},
		&cli.BoolFlag{Name: "structure", Usage: "assemble and print the per-layer model structure", Destination: &showStructure},
		&cli.BoolFlag{Name: "tensor-data", Usage: "print data section bounds", Destination: &showData},
		&cli.BoolFlag{Name: "json", Usage: "emit a JSON report instead of text", Destination: &asJSON},
		&cli.Int64Flag{Name: "tensors-limit", Usage: "limit tensor listing (0 = no limit)", Value: 50, Destination: &tensorLimit},
		&cli.StringFlag{Name: "tensor-filter", Usage: "substring filter for tensor listing", Destination: &tensorFilter},
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of a .gguf model container",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			applyInspectConfig(c, LoadConfig(), &tensorLimit)

			if showAll {
				showMeta = true
				showTensors = true
				showStructure = true
				showData = true
				if tensorLimit == 50 {
					tensorLimit = 0
				}
			}

			stat, err := os.Stat(modelPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: stat model path %q: %v", modelPath, err), 1)
			}
			if stat.IsDir() {
				return cli.Exit("error: bedrock inspect expects a .gguf file", 1)
			}

			f, err := gguf.Open(modelPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open gguf: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			if asJSON {
				return printJSONReport(f, tensorFilter, int(tensorLimit))
			}

			fmt.Printf("GGUF Inspect: %s\n", modelPath)
			fmt.Printf("File: %s (%s)\n", filepath.Base(modelPath), formatBytes(uint64(stat.Size())))
			printFileHeader(f)

			printParameters(f)
			printTensorSummary(f)

			if showMeta {
				printMetadata(f)
			}
			if showTensors {
				printTensorIndex(f, tensorFilter, int(tensorLimit))
			}
			if showStructure {
				printStructure(f)
			}
			if showData {
				printDataBounds(f, uint64(stat.Size()))
			}

			return nil
		},
	}
}

func printFileHeader(f *gguf.File) {
	supported := "yes"
	if !f.Header.IsVersionSupported() {
		supported = "no"
	}
	fmt.Printf("GGUF Header: v%d tensors=%d kv=%d alignment=%d supported=%s\n",
		f.Header.Version, f.Header.TensorCount, f.Header.KVCount, f.Alignment, supported)
}

func printParameters(f *gguf.File) {
	section("Parameters")
	cfg, err := model.ExtractConfig(f.KV)
	if err != nil {
		fmt.Printf("(no model parameters: %v)\n", err)
		return
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
}

func printTensorSummary(f *gguf.File) {
	section("Tensor Summary")
	rowInt("tensors", len(f.Tensors))

	typeCounts := map[gguf.TensorType]int{}
	typeBytes := map[gguf.TensorType]uint64{}
	var total uint64
	sizable := true
	for _, info := range f.Tensors {
		typeCounts[info.Type]++
		size, err := info.ByteSize()
		if err != nil {
			sizable = false
			continue
		}
		typeBytes[info.Type] += size
		total += size
	}
	if sizable {
		row("data_size", formatBytes(total))
	} else if total > 0 {
		row("data_size", formatBytes(total)+" (loadable tensors only)")
	}

	keys := make([]gguf.TensorType, 0, len(typeCounts))
	for k := range typeCounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		label := fmt.Sprintf("type_%s", k)
		if b, ok := typeBytes[k]; ok && b > 0 {
			row(label, fmt.Sprintf("%d (%s)", typeCounts[k], formatBytes(b)))
		} else {
			row(label, fmt.Sprintf("%d", typeCounts[k]))
		}
	}
}

func printMetadata(f *gguf.File) {
	section("Metadata")
	keys := make([]string, 0, len(f.KV))
	for k := range f.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := f.KV[k]
		fmt.Printf("%-44s %-7s %s\n", k, v.Type, formatValue(v))
	}
}

func printTensorIndex(f *gguf.File, filter string, limit int) {
	section("Tensor Index")
	printed := 0
	for _, info := range f.Tensors {
		if filter != "" && !strings.Contains(info.Name, filter) {
			continue
		}
		line := fmt.Sprintf("%s  type=%s shape=%s off=%d", info.Name, info.Type, formatShape(info.Dims), info.Offset)
		if size, err := info.ByteSize(); err == nil {
			line += fmt.Sprintf(" size=%s", formatBytes(size))
		}
		fmt.Println(line)
		printed++
		if limit > 0 && printed >= limit {
			break
		}
	}
	if limit > 0 && printed < len(f.Tensors) {
		fmt.Printf("... (%d shown of %d)\n", printed, len(f.Tensors))
	}
}

func printDataBounds(f *gguf.File, fileSize uint64) {
	section("Tensor Data")
	size := uint64(0)
	if fileSize > f.DataOffset {
		size = fileSize - f.DataOffset
	}
	fmt.Printf("off=%d size=%s mapped=%v\n", f.DataOffset, formatBytes(size), f.Mapped())
}

type inspectReport struct {
	Path        string              `json:"path"`
	Version     uint32              `json:"version"`
	Supported   bool                `json:"supported"`
	Alignment   uint64              `json:"alignment"`
	DataOffset  uint64              `json:"data_offset"`
	TensorCount uint64              `json:"tensor_count"`
	KVCount     uint64              `json:"kv_count"`
	Config      *model.Config       `json:"config,omitempty"`
	Metadata    map[string]any      `json:"metadata"`
	Tensors     []inspectTensorInfo `json:"tensors"`
}

type inspectTensorInfo struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Dims   []uint64 `json:"dims"`
	Offset uint64   `json:"offset"`
	Bytes  uint64   `json:"bytes,omitempty"`
}

func printJSONReport(f *gguf.File, filter string, limit int) error {
	report := inspectReport{
		Path:        f.Path,
		Version:     f.Header.Version,
		Supported:   f.Header.IsVersionSupported(),
		Alignment:   f.Alignment,
		DataOffset:  f.DataOffset,
		TensorCount: f.Header.TensorCount,
		KVCount:     f.Header.KVCount,
		Metadata:    make(map[string]any, len(f.KV)),
	}
	if cfg, err := model.ExtractConfig(f.KV); err == nil {
		report.Config = &cfg
	}
	for k, v := range f.KV {
		if arr, ok := v.Value.(gguf.ArrayValue); ok {
			report.Metadata[k] = arr.Values
			continue
		}
		report.Metadata[k] = v.Value
	}
	for _, info := range f.Tensors {
		if filter != "" && !strings.Contains(info.Name, filter) {
			continue
		}
		ti := inspectTensorInfo{
			Name:   info.Name,
			Type:   info.Type.String(),
			Dims:   info.Dims,
			Offset: info.Offset,
		}
		if size, err := info.ByteSize(); err == nil {
			ti.Bytes = size
		}
		report.Tensors = append(report.Tensors, ti)
		if limit > 0 && len(report.Tensors) >= limit {
			break
		}
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func formatValue(v gguf.Value) string {
	if arr, ok := v.Value.(gguf.ArrayValue); ok {
		if len(arr.Values) > 8 {
			return fmt.Sprintf("[%d %s values]", len(arr.Values), arr.ElemType)
		}
		parts := make([]string, len(arr.Values))
		for i, item := range arr.Values {
			parts[i] = fmt.Sprintf("%v", item)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	if s, ok := v.Value.(string); ok {
		if len(s) > 80 {
			return fmt.Sprintf("%q... (%d bytes)", s[:80], len(s))
		}
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v.Value)
}

func section(title string) {
	line := strings.Repeat("-", len(title)+8)
	fmt.Printf("\n%s\n--- %s ---\n%s\n", line, title, line)
}

func row(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%-24s %s\n", label+":", value)
}

func rowInt(label string, v int) {
	if v == 0 {
		return
	}
	row(label, fmt.Sprintf("%d", v))
}

func rowFloat(label string, v float64) {
	if v == 0 {
		return
	}
	row(label, fmt.Sprintf("%g", v))
}

func formatShape(shape []uint64) string {
	if len(shape) == 0 {
		return "[]"
	}
	parts := make([]string, len(shape))
	for i, v := range shape {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
		tb = 1024 * gb
	)
	switch {
	case b >= tb:
		return fmt.Sprintf("%.2f TiB", float64(b)/float64(tb))
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
