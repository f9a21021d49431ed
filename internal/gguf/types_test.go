package gguf

import (
	"errors"
	"testing"
)

func TestElemSizes(t *testing.T) {
	cases := []struct {
		typ  TensorType
		size int
	}{
		{TensorF32, 4},
		{TensorF16, 2},
		{TensorI8, 1},
		{TensorI16, 2},
		{TensorI32, 4},
		{TensorI64, 8},
		{TensorF64, 8},
	}
	for _, c := range cases {
		size, err := c.typ.ElemSize()
		if err != nil {
			t.Errorf("%v: unexpected err %v", c.typ, err)
			continue
		}
		if size != c.size {
			t.Errorf("%v: size = %d, want %d", c.typ, size, c.size)
		}
	}
}

func TestQuantizedTypesRecognizedButNotLoadable(t *testing.T) {
	for typ := TensorQ4_0; typ <= TensorQ8_K; typ++ {
		if !typ.Known() {
			t.Errorf("%v should be recognized", typ)
		}
		if typ.Loadable() {
			t.Errorf("%v should not be loadable", typ)
		}
		if _, err := typ.ElemSize(); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("%v: err = %v, want ErrUnsupportedType", typ, err)
		}
	}
}

func TestUnknownTypeID(t *testing.T) {
	typ := TensorType(21)
	if typ.Known() {
		t.Error("type 21 should not be recognized")
	}
	if _, err := typ.ElemSize(); !errors.Is(err, ErrUnsupportedTensorType) {
		t.Errorf("err = %v, want ErrUnsupportedTensorType", err)
	}
}

func TestTypeNames(t *testing.T) {
	if got := TensorF32.String(); got != "F32" {
		t.Errorf("F32 name = %q", got)
	}
	if got := TensorQ4_K.String(); got != "Q4_K" {
		t.Errorf("Q4_K name = %q", got)
	}
	if got := TensorType(99).String(); got != "type(99)" {
		t.Errorf("unknown name = %q", got)
	}
}
