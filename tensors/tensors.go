// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors provides a dense, strided, in-memory tensor and the
// reference gufunc.Engine implementation built on it.
//
// Tensor values are views: broadcasting, moving axes and indexing share the
// underlying flat data without copying (broadcast axes simply get stride 0).
// Operations allocate fresh output tensors; inputs are never mutated, so
// views can be passed around freely, including concurrently.
//
// The element types supported are the gopjrt dtypes Float16, Float32,
// Float64, Int32 and Int64. Float16 (github.com/x448/float16) is stored
// compactly and computed through float32, the same approach as GoMLX's pure
// Go backend.
//
// Following the convention of GoMLX backends, functions here panic with error
// values (carrying stack traces) on invalid use; gufunc's Exec variants
// convert those panics to returned errors.
package tensors

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/gufunc/shapes"
)

// Supported are the Go element types the dense tensor can hold, a subset of
// the gopjrt dtypes.
type Supported interface {
	float16.Float16 | float32 | float64 | int32 | int64
}

// Tensor is a dense n-dimensional array: a shape plus strides and an offset
// into a flat backing slice of one of the Supported types.
//
// The backing slice may be shared among many views; see the package
// documentation. The zero value is not usable, build tensors with the From*
// constructors, Zeros or the operations in this package.
type Tensor struct {
	shape   shapes.Shape
	strides []int
	offset  int
	dtype   dtypes.DType
	flat    any
}

// allocFlat returns a flat slice of the Go type corresponding to dtype.
func allocFlat(dtype dtypes.DType, size int) any {
	switch dtype {
	case dtypes.Float16:
		return make([]float16.Float16, size)
	case dtypes.Float32:
		return make([]float32, size)
	case dtypes.Float64:
		return make([]float64, size)
	case dtypes.Int32:
		return make([]int32, size)
	case dtypes.Int64:
		return make([]int64, size)
	}
	exceptions.Panicf("tensors: dtype %s not supported, only Float16, Float32, Float64, Int32 and Int64 are", dtype)
	return nil
}

// Zeros returns a zero-initialized tensor of the given dtype and dimensions.
func Zeros(dtype dtypes.DType, dimensions ...int) *Tensor {
	shape := shapes.Make(dimensions...)
	return &Tensor{
		shape:   shape,
		strides: shape.Strides(),
		dtype:   dtype,
		flat:    allocFlat(dtype, shape.Size()),
	}
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions,
// filled with the values of data in row-major order. The data is copied, and
// the DType inferred from T.
func FromFlatDataAndDimensions[T Supported](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data has %d element(s), but the dimensions imply %d", shape, len(data), shape.Size())
	}
	t := Zeros(dtypes.FromGenericsType[T](), dimensions...)
	copy(t.flat.([]T), data)
	return t
}

// FromScalar creates a scalar (rank-0) tensor holding value.
func FromScalar[T Supported](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a tensor of the given dimensions with every
// element set to value. The DType is inferred from T.
func FromScalarAndDimensions[T Supported](value T, dimensions ...int) *Tensor {
	t := Zeros(dtypes.FromGenericsType[T](), dimensions...)
	flat := t.flat.([]T)
	for ii := range flat {
		flat[ii] = value
	}
	return t
}

// FromValue creates a tensor from a Go scalar or (nested) slices, inferring
// shape and DType by reflection: [][]float32{{1, 2}, {3, 4}} becomes a
// Float32 tensor of shape (2, 2). Plain Go int values are stored as Int64.
//
// All sub-slices must have the same length, and empty slices are not
// representable. It panics on unsupported element types or irregular
// shapes. FromFlatDataAndDimensions is much faster if speed is a concern.
func FromValue(value any) *Tensor {
	if t, ok := value.(*Tensor); ok {
		return t
	}
	dims, dtype, err := shapeForValue(reflect.ValueOf(value))
	if err != nil {
		panic(errors.Wrapf(err, "tensors.FromValue(%T)", value))
	}
	t := Zeros(dtype, dims...)
	flatV := reflect.ValueOf(t.flat)
	pos := 0
	copyValueRecursively(flatV, reflect.ValueOf(value), dims, &pos)
	return t
}

// shapeForValue infers the dimensions and dtype of a scalar-or-nested-slices
// value, validating that sub-slices are regular.
func shapeForValue(v reflect.Value) (dims []int, dtype dtypes.DType, err error) {
	t := v.Type()
	for t.Kind() == reflect.Slice {
		if v.Len() == 0 {
			return nil, dtypes.InvalidDType, errors.Errorf("empty slices cannot be converted to a tensor, their shape is ambiguous")
		}
		dims = append(dims, v.Len())
		t = t.Elem()
		v = v.Index(0)
	}
	dtype = dtypes.FromGoType(t)
	switch dtype {
	case dtypes.Float16, dtypes.Float32, dtypes.Float64, dtypes.Int32, dtypes.Int64:
		// Supported.
	default:
		return nil, dtypes.InvalidDType, errors.Errorf("element type %s is not supported by the dense tensor", t)
	}
	return dims, dtype, nil
}

// copyValueRecursively copies a nested-slices value into the flat slice in
// row-major order. Every sub-slice is checked against the dimensions inferred
// from the value's first spine, catching irregular lengths at any depth.
func copyValueRecursively(flat reflect.Value, v reflect.Value, dims []int, pos *int) {
	if v.Kind() != reflect.Slice {
		if elemT := flat.Type().Elem(); v.Type() != elemT {
			// E.g. Go int values into the Int64 flat buffer.
			v = v.Convert(elemT)
		}
		flat.Index(*pos).Set(v)
		*pos++
		return
	}
	if v.Len() != dims[0] {
		exceptions.Panicf("tensors.FromValue: irregular nested slices, got a sub-slice of length %d on an axis of dimension %d", v.Len(), dims[0])
	}
	for ii := 0; ii < v.Len(); ii++ {
		copyValueRecursively(flat, v.Index(ii), dims[1:], pos)
	}
}

// Shape returns the tensor's dimensions. The returned value is shared,
// treat it as read-only.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// DType returns the element type.
func (t *Tensor) DType() dtypes.DType { return t.dtype }

// Size returns the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// IsScalar returns whether the tensor is rank-0.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// flatIndex translates per-axis indices into a position in the flat backing
// slice, honoring strides and offset.
func (t *Tensor) flatIndex(indices []int) int {
	pos := t.offset
	for axis, idx := range indices {
		pos += idx * t.strides[axis]
	}
	return pos
}

// isContiguous returns whether the tensor owns its backing data in canonical
// row-major order, with no offset and nothing extra.
func (t *Tensor) isContiguous() bool {
	if t.offset != 0 || reflect.ValueOf(t.flat).Len() != t.Size() {
		return false
	}
	canonical := t.shape.Strides()
	for axis, stride := range t.strides {
		// Stride values on 1-sized axes are never used.
		if stride != canonical[axis] && t.shape[axis] > 1 {
			return false
		}
	}
	return true
}

// Contiguous returns a tensor with the same values backed by its own
// canonical row-major data: t itself when it already is, otherwise a copy.
func (t *Tensor) Contiguous() *Tensor {
	if t.isContiguous() {
		return t
	}
	result := Zeros(t.dtype, t.shape...)
	copyFlat(result, t)
	return result
}

// copyFlat copies every value of src into the matching position of dst.
// Shapes and dtypes must match; callers guarantee it.
func copyFlat(dst, src *Tensor) {
	dstV := reflect.ValueOf(dst.flat)
	srcV := reflect.ValueOf(src.flat)
	for _, indices := range src.shape.Iter() {
		dstV.Index(dst.flatIndex(indices)).Set(srcV.Index(src.flatIndex(indices)))
	}
}

// At returns the element at the given per-axis indices. T must match the
// tensor's dtype.
func At[T Supported](t *Tensor, indices ...int) T {
	if len(indices) != t.Rank() {
		exceptions.Panicf("tensors.At: got %d indices for tensor of rank %d", len(indices), t.Rank())
	}
	flat, ok := t.flat.([]T)
	if !ok {
		exceptions.Panicf("tensors.At[%T]: tensor holds %s values", flat, t.dtype)
	}
	return flat[t.flatIndex(indices)]
}

// ToScalar returns the value of a rank-0 tensor. T must match the tensor's
// dtype.
func ToScalar[T Supported](t *Tensor) T {
	if !t.IsScalar() {
		exceptions.Panicf("tensors.ToScalar: tensor has shape %s, want a scalar", t.shape)
	}
	return At[T](t)
}

// CopyFlatData returns a copy of the tensor's values flattened in row-major
// order. T must match the tensor's dtype.
func CopyFlatData[T Supported](t *Tensor) []T {
	flat, ok := t.flat.([]T)
	if !ok {
		exceptions.Panicf("tensors.CopyFlatData[%T]: tensor holds %s values", flat, t.dtype)
	}
	result := make([]T, t.Size())
	for flatIdx, indices := range t.shape.Iter() {
		result[flatIdx] = flat[t.flatIndex(indices)]
	}
	return result
}

// Value returns the tensor as a Go value: a scalar for rank-0 tensors,
// otherwise nested slices ([][]float32 and the like).
func (t *Tensor) Value() any {
	flatV := reflect.ValueOf(t.flat)
	if t.IsScalar() {
		return flatV.Index(t.offset).Interface()
	}
	return t.valueRecursive(flatV, nil)
}

func (t *Tensor) valueRecursive(flatV reflect.Value, indices []int) any {
	axis := len(indices)
	if axis == t.Rank() {
		return flatV.Index(t.flatIndex(indices)).Interface()
	}
	sliceT := flatV.Type().Elem()
	for range t.Rank() - axis {
		sliceT = reflect.SliceOf(sliceT)
	}
	result := reflect.MakeSlice(sliceT, t.shape[axis], t.shape[axis])
	for ii := 0; ii < t.shape[axis]; ii++ {
		result.Index(ii).Set(reflect.ValueOf(t.valueRecursive(flatV, append(indices, ii))))
	}
	return result.Interface()
}

// Equal compares dtype, shape and every value, exactly.
func (t *Tensor) Equal(other *Tensor) bool {
	if t.dtype != other.dtype || !t.shape.Equal(other.shape) {
		return false
	}
	flatT := reflect.ValueOf(t.flat)
	flatO := reflect.ValueOf(other.flat)
	for _, indices := range t.shape.Iter() {
		a := flatT.Index(t.flatIndex(indices)).Interface()
		b := flatO.Index(other.flatIndex(indices)).Interface()
		if a != b {
			return false
		}
	}
	return true
}

// InDelta compares shapes and values, tolerating an absolute difference of
// delta per element. Dtypes must be floating point but may differ between
// the two tensors.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for _, indices := range t.shape.Iter() {
		a := t.floatAt(indices)
		b := other.floatAt(indices)
		diff := a - b
		if diff < 0 {
			diff = -diff
		}
		if diff > delta {
			return false
		}
	}
	return true
}

// floatAt returns the element at indices as float64; only for float dtypes.
func (t *Tensor) floatAt(indices []int) float64 {
	pos := t.flatIndex(indices)
	switch flat := t.flat.(type) {
	case []float16.Float16:
		return float64(flat[pos].Float32())
	case []float32:
		return float64(flat[pos])
	case []float64:
		return flat[pos]
	}
	exceptions.Panicf("tensor holds %s values, not a float dtype", t.dtype)
	return 0
}

// maxElementsToPrint caps String output for large tensors.
const maxElementsToPrint = 100

// String pretty-prints dtype, shape and, for small tensors, the values.
func (t *Tensor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%s)%s", t.dtype, t.shape)
	if t.Size() > maxElementsToPrint {
		fmt.Fprintf(&b, ": [%d values]", t.Size())
		return b.String()
	}
	fmt.Fprintf(&b, ": %v", t.Value())
	return b.String()
}
