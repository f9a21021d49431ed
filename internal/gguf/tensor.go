package gguf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tensor pairs a descriptor with its raw bytes. Data is a zero-copy slice of
// the file mapping when the file is mmapped, so it is valid only until the
// owning File is closed.
type Tensor struct {
	Info TensorInfo
	Data []byte
}

// ElementCount returns the product of the dimensions. An empty dimension
// list denotes a scalar; a zero dimension yields zero elements.
func (t TensorInfo) ElementCount() (uint64, error) {
	n := uint64(1)
	for _, d := range t.Dims {
		if d == 0 {
			return 0, nil
		}
		if n > math.MaxUint64/d {
			return 0, fmt.Errorf("tensor %s: element count overflow", t.Name)
		}
		n *= d
	}
	return n, nil
}

// ByteSize returns the total data size for loadable types and
// ErrUnsupportedType for quantized ones.
func (t TensorInfo) ByteSize() (uint64, error) {
	n, err := t.ElementCount()
	if err != nil {
		return 0, err
	}
	elem, err := t.Type.ElemSize()
	if err != nil {
		return 0, fmt.Errorf("tensor %s: %w", t.Name, err)
	}
	if n > math.MaxUint64/uint64(elem) {
		return 0, fmt.Errorf("tensor %s: byte size overflow", t.Name)
	}
	return n * uint64(elem), nil
}

// TensorByName returns the descriptor for name. With duplicate names the
// last descriptor wins.
func (f *File) TensorByName(name string) (TensorInfo, bool) {
	i, ok := f.index[name]
	if !ok {
		return TensorInfo{}, false
	}
	return f.Tensors[i], true
}

// TensorData returns the bytes for one descriptor as a view into the shared
// mapping. The range is validated against the mapped length before the view
// is handed out.
func (f *File) TensorData(info TensorInfo) ([]byte, error) {
	size, err := info.ByteSize()
	if err != nil {
		return nil, err
	}
	start := f.DataOffset + info.Offset
	if start < f.DataOffset {
		return nil, fmt.Errorf("%w: tensor %s offset overflow", ErrOutOfBounds, info.Name)
	}
	end := start + size
	if end < start || end > uint64(len(f.data)) {
		return nil, fmt.Errorf("%w: tensor %s needs [%d, %d) of %d mapped bytes",
			ErrOutOfBounds, info.Name, start, end, len(f.data))
	}
	return f.data[start:end], nil
}

// LoadTensor looks a tensor up by name and returns it with its data view.
func (f *File) LoadTensor(name string) (Tensor, error) {
	info, ok := f.TensorByName(name)
	if !ok {
		return Tensor{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	data, err := f.TensorData(info)
	if err != nil {
		return Tensor{}, err
	}
	return Tensor{Info: info, Data: data}, nil
}

// Skip records one tensor left out of a bulk load and why.
type Skip struct {
	Name   string
	Reason error
}

// LoadAll loads every loadable tensor. Unsupported or out-of-bounds tensors
// are skipped and reported rather than failing the whole load; callers that
// need all-or-nothing semantics must check the skip list themselves.
func (f *File) LoadAll() (map[string]Tensor, []Skip) {
	tensors := make(map[string]Tensor, len(f.Tensors))
	var skipped []Skip
	for _, info := range f.Tensors {
		data, err := f.TensorData(info)
		if err != nil {
			skipped = append(skipped, Skip{Name: info.Name, Reason: err})
			continue
		}
		tensors[info.Name] = Tensor{Info: info, Data: data}
	}
	return tensors, skipped
}

// Float32s converts the tensor data to float32 values. Only F32 and F16
// tensors convert; everything else refuses with ErrUnsupportedType.
func (t Tensor) Float32s() ([]float32, error) {
	switch t.Info.Type {
	case TensorF32:
		if len(t.Data)%4 != 0 {
			return nil, fmt.Errorf("tensor %s: f32 data length %d not divisible by 4", t.Info.Name, len(t.Data))
		}
		out := make([]float32, len(t.Data)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.Data[i*4:]))
		}
		return out, nil
	case TensorF16:
		if len(t.Data)%2 != 0 {
			return nil, fmt.Errorf("tensor %s: f16 data length %d not divisible by 2", t.Info.Name, len(t.Data))
		}
		out := make([]float32, len(t.Data)/2)
		for i := range out {
			out[i] = fp16ToF32(binary.LittleEndian.Uint16(t.Data[i*2:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %s to f32", ErrUnsupportedType, t.Info.Type)
	}
}

func fp16ToF32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h & 0x3FF)
	var f uint32
	switch exp {
	case 0:
		if frac == 0 {
			f = sign << 31
		} else {
			e := uint32(127 - 15 + 1)
			for (frac & 0x400) == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			f = (sign << 31) | (e << 23) | (frac << 13)
		}
	case 0x1F:
		f = (sign << 31) | 0x7F800000 | (frac << 13)
	default:
		e := exp + (127 - 15)
		f = (sign << 31) | (e << 23) | (frac << 13)
	}
	return math.Float32frombits(f)
}
