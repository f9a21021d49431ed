package gguf

import "errors"

var (
	ErrInvalidMagic          = errors.New("gguf: invalid magic")
	ErrInvalidAlignment      = errors.New("gguf: alignment must be at least 8")
	ErrUnsupportedValueType  = errors.New("gguf: unrecognized metadata value type")
	ErrUnsupportedTensorType = errors.New("gguf: unrecognized tensor type")
	ErrUnsupportedType       = errors.New("gguf: tensor type not supported for loading")
	ErrNestedArray           = errors.New("gguf: nested arrays are not supported")
	ErrInvalidString         = errors.New("gguf: invalid utf-8 string")
	ErrStringTooLong         = errors.New("gguf: string length exceeds limit")
	ErrInvalidTensorName     = errors.New("gguf: invalid tensor name")
	ErrOutOfBounds           = errors.New("gguf: tensor data out of bounds")
	ErrTensorNotFound        = errors.New("gguf: tensor not found")
)
