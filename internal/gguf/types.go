package gguf

import "fmt"

type TensorType uint32

const (
	TensorF32  TensorType = 0
	TensorF16  TensorType = 1
	TensorQ4_0 TensorType = 2
	TensorQ4_1 TensorType = 3
	TensorQ4_2 TensorType = 4
	TensorQ4_3 TensorType = 5
	TensorQ5_0 TensorType = 6
	TensorQ5_1 TensorType = 7
	TensorQ8_0 TensorType = 8
	TensorQ8_1 TensorType = 9
	TensorQ2_K TensorType = 10
	TensorQ3_K TensorType = 11
	TensorQ4_K TensorType = 12
	TensorQ5_K TensorType = 13
	TensorQ6_K TensorType = 14
	TensorQ8_K TensorType = 15
	TensorI8   TensorType = 16
	TensorI16  TensorType = 17
	TensorI32  TensorType = 18
	TensorI64  TensorType = 19
	TensorF64  TensorType = 20
)

// typeInfo describes one tensor element encoding. elemSize is zero for
// quantized types, whose byte size cannot be derived from an element count
// alone.
type typeInfo struct {
	name     string
	elemSize int
	loadable bool
}

var tensorTypes = map[TensorType]typeInfo{
	TensorF32:  {"F32", 4, true},
	TensorF16:  {"F16", 2, true},
	TensorQ4_0: {"Q4_0", 0, false},
	TensorQ4_1: {"Q4_1", 0, false},
	TensorQ4_2: {"Q4_2", 0, false},
	TensorQ4_3: {"Q4_3", 0, false},
	TensorQ5_0: {"Q5_0", 0, false},
	TensorQ5_1: {"Q5_1", 0, false},
	TensorQ8_0: {"Q8_0", 0, false},
	TensorQ8_1: {"Q8_1", 0, false},
	TensorQ2_K: {"Q2_K", 0, false},
	TensorQ3_K: {"Q3_K", 0, false},
	TensorQ4_K: {"Q4_K", 0, false},
	TensorQ5_K: {"Q5_K", 0, false},
	TensorQ6_K: {"Q6_K", 0, false},
	TensorQ8_K: {"Q8_K", 0, false},
	TensorI8:   {"I8", 1, true},
	TensorI16:  {"I16", 2, true},
	TensorI32:  {"I32", 4, true},
	TensorI64:  {"I64", 8, true},
	TensorF64:  {"F64", 8, true},
}

func (t TensorType) String() string {
	if info, ok := tensorTypes[t]; ok {
		return info.name
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// Known reports whether the type id is recognized by the registry. Decoding
// a descriptor never fails on a recognized quantized type; only loading does.
func (t TensorType) Known() bool {
	_, ok := tensorTypes[t]
	return ok
}

// Loadable reports whether tensor bytes of this type can be addressed
// directly, without block decompression.
func (t TensorType) Loadable() bool {
	info, ok := tensorTypes[t]
	return ok && info.loadable
}

// ElemSize returns the byte size of one element. For quantized types the
// size is indeterminate and ErrUnsupportedType is returned rather than a
// wrong number.
func (t TensorType) ElemSize() (int, error) {
	info, ok := tensorTypes[t]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrUnsupportedTensorType, uint32(t))
	}
	if !info.loadable {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, info.name)
	}
	return info.elemSize, nil
}
