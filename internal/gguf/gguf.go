// Package gguf decodes the GGUF container format: a magic-tagged, versioned
// header, a typed metadata block, tensor descriptors, and an aligned data
// section holding raw tensor bytes. Decoding is read-only and strictly
// sequential; the data section is accessed zero-copy through a shared
// read-only memory mapping.
package gguf

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

const magicGGUF = "GGUF"

// DefaultAlignment is used when the file carries no general.alignment key.
const DefaultAlignment = 32

// maxTensorNameLen is the ceiling for tensor names specifically; generic
// strings are bounded by maxStringLen instead.
const maxTensorNameLen = 64

type ValueType uint32

const (
	TypeUint8   ValueType = 0
	TypeInt8    ValueType = 1
	TypeUint16  ValueType = 2
	TypeInt16   ValueType = 3
	TypeUint32  ValueType = 4
	TypeInt32   ValueType = 5
	TypeFloat32 ValueType = 6
	TypeBool    ValueType = 7
	TypeString  ValueType = 8
	TypeArray   ValueType = 9
	TypeUint64  ValueType = 10
	TypeInt64   ValueType = 11
	TypeFloat64 ValueType = 12
)

func (t ValueType) String() string {
	switch t {
	case TypeUint8:
		return "u8"
	case TypeInt8:
		return "i8"
	case TypeUint16:
		return "u16"
	case TypeInt16:
		return "i16"
	case TypeUint32:
		return "u32"
	case TypeInt32:
		return "i32"
	case TypeUint64:
		return "u64"
	case TypeInt64:
		return "i64"
	case TypeFloat32:
		return "f32"
	case TypeFloat64:
		return "f64"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

func (t ValueType) known() bool {
	return t <= TypeFloat64
}

// ArrayValue carries one level of homogeneous array; the format does not
// permit arrays of arrays.
type ArrayValue struct {
	ElemType ValueType
	Values   []any
}

// Value is a tagged metadata value. The concrete type of Value follows Type:
// uint8..float64 for the numeric kinds, bool, string, or ArrayValue.
type Value struct {
	Type  ValueType
	Value any
}

type Header struct {
	Version     uint32
	TensorCount uint64
	KVCount     uint64
}

// IsVersionSupported reports whether this decoder understands the file
// version. Header decode itself accepts any version once the magic matches,
// so callers can report "decoded but unsupported" instead of refusing.
func (h Header) IsVersionSupported() bool {
	return h.Version >= 1 && h.Version <= 3
}

// TensorInfo is one tensor descriptor: dims are in storage order and Offset
// is relative to the start of the data section.
type TensorInfo struct {
	Name   string
	NDim   uint32
	Dims   []uint64
	Type   TensorType
	Offset uint64
}

// File is a decoded GGUF file. Header, KV, and Tensors are immutable after
// Open. Data is the read-only mapping when mmap succeeded; it is shared by
// every tensor view handed out, so views must not outlive Close.
type File struct {
	Path       string
	Header     Header
	KV         map[string]Value
	Tensors    []TensorInfo
	Alignment  uint64
	DataOffset uint64

	data    []byte
	mmapped bool
	index   map[string]int
}

// Open maps the file read-only and decodes its header, metadata, and tensor
// descriptors. If mmap is unavailable the whole file is read into memory
// instead. The returned file must be closed to release the mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := st.Size()
	if size64 < 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("gguf: file size %d not addressable", size64)
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		gf, decErr := decode(path, data, true)
		if decErr != nil {
			_ = unix.Munmap(data)
			return nil, decErr
		}
		return gf, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return decode(path, data, false)
}

// Decode parses a GGUF file held entirely in memory. The caller retains
// ownership of data, which must stay immutable for the life of the File.
func Decode(path string, data []byte) (*File, error) {
	return decode(path, data, false)
}

func (f *File) Close() error {
	if f == nil || f.data == nil {
		return nil
	}
	data := f.data
	f.data = nil
	if f.mmapped {
		f.mmapped = false
		return unix.Munmap(data)
	}
	return nil
}

// Mapped reports whether tensor views are zero-copy slices of a shared
// memory mapping.
func (f *File) Mapped() bool {
	return f.mmapped
}

func decode(path string, data []byte, mmapped bool) (*File, error) {
	r := newReader(data)

	magic, err := r.readN(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != magicGGUF {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMagic, string(magic))
	}

	version, err := r.readU32()
	if err != nil {
		return nil, err
	}
	tensorCount, err := r.readU64()
	if err != nil {
		return nil, err
	}
	kvCount, err := r.readU64()
	if err != nil {
		return nil, err
	}

	// Smallest entry: 8-byte key length, 4-byte type, 1-byte value.
	kv := make(map[string]Value, r.capHint(kvCount, 13))
	for i := uint64(0); i < kvCount; i++ {
		key, err := r.readString()
		if err != nil {
			return nil, fmt.Errorf("read key %d: %w", i, err)
		}
		vtypeU32, err := r.readU32()
		if err != nil {
			return nil, fmt.Errorf("read value type for %s: %w", key, err)
		}
		vtype := ValueType(vtypeU32)
		val, err := readValue(r, vtype)
		if err != nil {
			return nil, fmt.Errorf("read value for %s: %w", key, err)
		}
		// A repeated key overwrites the earlier entry.
		kv[key] = Value{Type: vtype, Value: val}
	}

	// Smallest descriptor: 8-byte name length, 1-byte name, 4-byte dim
	// count, 4-byte type, 8-byte offset.
	descHint := r.capHint(tensorCount, 25)
	tensors := make([]TensorInfo, 0, descHint)
	index := make(map[string]int, descHint)
	for i := uint64(0); i < tensorCount; i++ {
		info, err := readTensorInfo(r, i)
		if err != nil {
			return nil, err
		}
		index[info.Name] = len(tensors)
		tensors = append(tensors, info)
	}

	alignment := uint64(DefaultAlignment)
	if v, ok := kv["general.alignment"]; ok {
		if u, ok := asUint64(v.Value); ok {
			alignment = u
		}
	}
	if alignment < 8 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAlignment, alignment)
	}

	return &File{
		Path:       path,
		Header:     Header{Version: version, TensorCount: tensorCount, KVCount: kvCount},
		KV:         kv,
		Tensors:    tensors,
		Alignment:  alignment,
		DataOffset: align(uint64(r.off), alignment),
		data:       data,
		mmapped:    mmapped,
		index:      index,
	}, nil
}

func readTensorInfo(r *reader, i uint64) (TensorInfo, error) {
	name, err := r.readString()
	if err != nil {
		return TensorInfo{}, fmt.Errorf("read tensor name %d: %w", i, err)
	}
	if name == "" || len(name) > maxTensorNameLen {
		return TensorInfo{}, fmt.Errorf("%w: %q (%d bytes)", ErrInvalidTensorName, name, len(name))
	}
	nDim, err := r.readU32()
	if err != nil {
		return TensorInfo{}, fmt.Errorf("read tensor dims %s: %w", name, err)
	}
	dims := make([]uint64, 0, r.capHint(uint64(nDim), 8))
	for d := uint32(0); d < nDim; d++ {
		v, err := r.readU64()
		if err != nil {
			return TensorInfo{}, fmt.Errorf("read tensor dim %s[%d]: %w", name, d, err)
		}
		dims = append(dims, v)
	}
	ttypeU32, err := r.readU32()
	if err != nil {
		return TensorInfo{}, fmt.Errorf("read tensor type %s: %w", name, err)
	}
	ttype := TensorType(ttypeU32)
	if !ttype.Known() {
		return TensorInfo{}, fmt.Errorf("%w: id %d for tensor %s", ErrUnsupportedTensorType, ttypeU32, name)
	}
	offset, err := r.readU64()
	if err != nil {
		return TensorInfo{}, fmt.Errorf("read tensor offset %s: %w", name, err)
	}
	return TensorInfo{
		Name:   name,
		NDim:   nDim,
		Dims:   dims,
		Type:   ttype,
		Offset: offset,
	}, nil
}

func readValue(r *reader, vtype ValueType) (any, error) {
	switch vtype {
	case TypeUint8:
		return r.readU8()
	case TypeInt8:
		return r.readI8()
	case TypeUint16:
		return r.readU16()
	case TypeInt16:
		return r.readI16()
	case TypeUint32:
		return r.readU32()
	case TypeInt32:
		return r.readI32()
	case TypeUint64:
		return r.readU64()
	case TypeInt64:
		return r.readI64()
	case TypeFloat32:
		return r.readF32()
	case TypeFloat64:
		return r.readF64()
	case TypeBool:
		v, err := r.readU8()
		if err != nil {
			return false, err
		}
		return v != 0, nil
	case TypeString:
		return r.readString()
	case TypeArray:
		elemTypeU32, err := r.readU32()
		if err != nil {
			return nil, err
		}
		elemType := ValueType(elemTypeU32)
		if elemType == TypeArray {
			return nil, ErrNestedArray
		}
		if !elemType.known() {
			return nil, fmt.Errorf("%w: array element id %d", ErrUnsupportedValueType, elemTypeU32)
		}
		count, err := r.readU64()
		if err != nil {
			return nil, err
		}
		values := make([]any, 0, r.capHint(count, 1))
		for range count {
			v, err := readValue(r, elemType)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return ArrayValue{ElemType: elemType, Values: values}, nil
	default:
		return nil, fmt.Errorf("%w: id %d", ErrUnsupportedValueType, uint32(vtype))
	}
}

func align(offset, alignment uint64) uint64 {
	rem := offset % alignment
	if rem == 0 {
		return offset
	}
	return offset + (alignment - rem)
}

func readAllAt(f *os.File, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := f.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func asUint64(v any) (uint64, bool) {
	switch t := v.(type) {
	case uint8:
		return uint64(t), true
	case uint16:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	case int8:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int16:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int32:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	default:
		return 0, false
	}
}
