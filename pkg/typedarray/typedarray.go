// Package typedarray provides a read-only view over a contiguous numeric buffer of one of four element widths.
package typedarray

import (
	"gonum.org/v1/gonum/floats"
)

// Kind tags the element width of an Array.
type Kind uint8

const (
	Int32 Kind = iota + 1
	Int64
	Float32
	Float64
)

func (k Kind) String() string {
	switch k {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return "unknown"
}

// IsFloat reports whether the kind is a floating point width.
func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float64
}

// Array is a tagged union over four slice widths. Exactly one slice is set,
// selected by kind. The backing buffer is never written through an Array.
type Array struct {
	kind Kind
	i32  []int32
	i64  []int64
	f32  []float32
	f64  []float64
}

func Int32s(xs []int32) Array     { return Array{kind: Int32, i32: xs} }
func Int64s(xs []int64) Array     { return Array{kind: Int64, i64: xs} }
func Float32s(xs []float32) Array { return Array{kind: Float32, f32: xs} }
func Float64s(xs []float64) Array { return Array{kind: Float64, f64: xs} }

func (a Array) Kind() Kind { return a.kind }

func (a Array) Len() int {
	switch a.kind {
	case Int32:
		return len(a.i32)
	case Int64:
		return len(a.i64)
	case Float32:
		return len(a.f32)
	case Float64:
		return len(a.f64)
	}
	return 0
}

func (a Array) inRange(i int) bool {
	return i >= 0 && i < a.Len()
}

// GetI32 only succeeds for int32-backed arrays; wider types are never narrowed.
func (a Array) GetI32(i int) (int32, bool) {
	if a.kind != Int32 || !a.inRange(i) {
		return 0, false
	}
	return a.i32[i], true
}

// GetI64 succeeds for both integer widths.
func (a Array) GetI64(i int) (int64, bool) {
	if !a.inRange(i) {
		return 0, false
	}
	switch a.kind {
	case Int32:
		return int64(a.i32[i]), true
	case Int64:
		return a.i64[i], true
	}
	return 0, false
}

// GetF32 succeeds for every width. Integers beyond 2^24 lose precision.
func (a Array) GetF32(i int) (float32, bool) {
	if !a.inRange(i) {
		return 0, false
	}
	switch a.kind {
	case Int32:
		return float32(a.i32[i]), true
	case Int64:
		return float32(a.i64[i]), true
	case Float32:
		return a.f32[i], true
	case Float64:
		return float32(a.f64[i]), true
	}
	return 0, false
}

// GetF64 succeeds for every width. Integers beyond 2^53 lose precision.
func (a Array) GetF64(i int) (float64, bool) {
	if !a.inRange(i) {
		return 0, false
	}
	switch a.kind {
	case Int32:
		return float64(a.i32[i]), true
	case Int64:
		return float64(a.i64[i]), true
	case Float32:
		return float64(a.f32[i]), true
	case Float64:
		return a.f64[i], true
	}
	return 0, false
}

// Dot returns the inner product of weights with the run of elements starting
// at start. The run covers min(len(weights), Len()-start) elements and is
// accumulated in float64 whatever the element width; integer elements are
// promoted to float64. A start at or past the end yields 0.
func (a Array) Dot(weights []float64, start int) float64 {
	if start < 0 {
		start = 0
	}
	n := min(len(weights), a.Len()-start)
	if n <= 0 {
		return 0
	}
	weights = weights[:n]

	var sum float64
	switch a.kind {
	case Float64:
		sum = floats.Dot(weights, a.f64[start:start+n])
	case Float32:
		for i, x := range a.f32[start : start+n] {
			sum += weights[i] * float64(x)
		}
	case Int64:
		for i, x := range a.i64[start : start+n] {
			sum += weights[i] * float64(x)
		}
	case Int32:
		for i, x := range a.i32[start : start+n] {
			sum += weights[i] * float64(x)
		}
	}
	return sum
}
