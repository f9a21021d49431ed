package gguf

import (
	"reflect"
	"testing"
)

func TestGetArray(t *testing.T) {
	kv := map[string]Value{
		"strings": {
			Type: TypeArray,
			Value: ArrayValue{
				ElemType: TypeString,
				Values:   []any{"a", "b", "c"},
			},
		},
		"ints": {
			Type: TypeArray,
			Value: ArrayValue{
				ElemType: TypeInt32,
				Values:   []any{int32(1), int32(2), int32(3)},
			},
		},
		"not_array": {
			Type:  TypeString,
			Value: "hello",
		},
	}

	strs, ok := GetArray[string](kv, "strings")
	if !ok {
		t.Error("expected ok for strings")
	}
	if !reflect.DeepEqual(strs, []string{"a", "b", "c"}) {
		t.Errorf("got %v, want %v", strs, []string{"a", "b", "c"})
	}

	ints, ok := GetArray[int32](kv, "ints")
	if !ok {
		t.Error("expected ok for ints")
	}
	if !reflect.DeepEqual(ints, []int32{1, 2, 3}) {
		t.Errorf("got %v, want %v", ints, []int32{1, 2, 3})
	}

	if _, ok = GetArray[int32](kv, "strings"); ok {
		t.Error("expected !ok for type mismatch (string array as int32)")
	}
	if _, ok = GetArray[string](kv, "not_array"); ok {
		t.Error("expected !ok for non-array value")
	}
	if _, ok = GetArray[string](kv, "missing"); ok {
		t.Error("expected !ok for missing key")
	}
}

func TestNumericCoercion(t *testing.T) {
	kv := map[string]Value{
		"u8":  {Type: TypeUint8, Value: uint8(7)},
		"u16": {Type: TypeUint16, Value: uint16(700)},
		"u32": {Type: TypeUint32, Value: uint32(70000)},
		"u64": {Type: TypeUint64, Value: uint64(7) << 40},
		"i32": {Type: TypeInt32, Value: int32(-3)},
		"f32": {Type: TypeFloat32, Value: float32(0.5)},
		"f64": {Type: TypeFloat64, Value: float64(0.25)},
		"str": {Type: TypeString, Value: "nope"},
	}

	for key, want := range map[string]uint64{
		"u8": 7, "u16": 700, "u32": 70000, "u64": 7 << 40,
	} {
		if v, ok := GetUint64(kv, key); !ok || v != want {
			t.Errorf("GetUint64(%s) = %d, %v; want %d", key, v, ok, want)
		}
	}

	if _, ok := GetUint64(kv, "i32"); ok {
		t.Error("negative int32 should not coerce to uint64")
	}
	if _, ok := GetUint64(kv, "str"); ok {
		t.Error("string should not coerce to uint64")
	}

	if v, ok := GetFloat64(kv, "f32"); !ok || v != 0.5 {
		t.Errorf("GetFloat64(f32) = %g, %v", v, ok)
	}
	if v, ok := GetFloat64(kv, "f64"); !ok || v != 0.25 {
		t.Errorf("GetFloat64(f64) = %g, %v", v, ok)
	}
	if _, ok := GetFloat64(kv, "u32"); ok {
		t.Error("integer should not coerce to float")
	}
}

func TestMustGetters(t *testing.T) {
	kv := map[string]Value{
		"arch": {Type: TypeString, Value: "qwen3"},
		"n":    {Type: TypeUint32, Value: uint32(28)},
	}

	if s, err := MustGetString(kv, "arch"); err != nil || s != "qwen3" {
		t.Errorf("MustGetString = %q, %v", s, err)
	}
	if n, err := MustGetUint64(kv, "n"); err != nil || n != 28 {
		t.Errorf("MustGetUint64 = %d, %v", n, err)
	}
	if _, err := MustGetString(kv, "missing"); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := MustGetUint64(kv, "arch"); err == nil {
		t.Error("expected error for wrong-typed key")
	}
}
