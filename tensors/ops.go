// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/gufunc/shapes"
)

// This file implements the elementwise operations and the reductions.
// Each operation instantiates a generic kernel per dtype; Float16 has no
// native Go arithmetic, so its kernels convert through float32.

// podNumeric are the element types with native Go arithmetic.
type podNumeric interface {
	float32 | float64 | int32 | int64
}

type binaryOpKind int

const (
	opAdd binaryOpKind = iota
	opSub
	opMul
	opDiv
)

// binaryOpFor returns the scalar function for kind at type T.
func binaryOpFor[T podNumeric](kind binaryOpKind) func(a, b T) T {
	switch kind {
	case opAdd:
		return func(a, b T) T { return a + b }
	case opSub:
		return func(a, b T) T { return a - b }
	case opMul:
		return func(a, b T) T { return a * b }
	case opDiv:
		return func(a, b T) T { return a / b }
	}
	return nil
}

// Add returns the elementwise sum of lhs and rhs, broadcast together.
func Add(lhs, rhs *Tensor) *Tensor { return binaryOp("Add", opAdd, lhs, rhs) }

// Sub returns the elementwise difference of lhs and rhs, broadcast together.
func Sub(lhs, rhs *Tensor) *Tensor { return binaryOp("Sub", opSub, lhs, rhs) }

// Mul returns the elementwise product of lhs and rhs, broadcast together.
func Mul(lhs, rhs *Tensor) *Tensor { return binaryOp("Mul", opMul, lhs, rhs) }

// Div returns the elementwise quotient of lhs and rhs, broadcast together.
// Integer division by zero panics, as it does in Go.
func Div(lhs, rhs *Tensor) *Tensor { return binaryOp("Div", opDiv, lhs, rhs) }

// binaryOp broadcasts the operands to a common shape, allocates the output
// and dispatches the kernel by dtype.
func binaryOp(name string, kind binaryOpKind, lhs, rhs *Tensor) *Tensor {
	if lhs.dtype != rhs.dtype {
		exceptions.Panicf("%s: operands have different dtypes %s and %s", name, lhs.dtype, rhs.dtype)
	}
	outShape, err := shapes.Broadcast(lhs.shape, rhs.shape)
	if err != nil {
		panic(errors.WithMessage(err, name))
	}
	lhs = lhs.BroadcastTo(outShape...)
	rhs = rhs.BroadcastTo(outShape...)
	out := Zeros(lhs.dtype, outShape...)
	switch out.dtype {
	case dtypes.Float16:
		execBinaryFloat16(binaryOpFor[float32](kind), lhs, rhs, out)
	case dtypes.Float32:
		execBinaryGeneric(binaryOpFor[float32](kind), lhs, rhs, out)
	case dtypes.Float64:
		execBinaryGeneric(binaryOpFor[float64](kind), lhs, rhs, out)
	case dtypes.Int32:
		execBinaryGeneric(binaryOpFor[int32](kind), lhs, rhs, out)
	case dtypes.Int64:
		execBinaryGeneric(binaryOpFor[int64](kind), lhs, rhs, out)
	}
	return out
}

// execBinaryGeneric applies opFn elementwise. The operands must already
// share out's shape (callers broadcast them first); out is freshly
// allocated, so its flat positions follow the iteration order.
func execBinaryGeneric[T podNumeric](opFn func(a, b T) T, lhs, rhs, out *Tensor) {
	lhsFlat := lhs.flat.([]T)
	rhsFlat := rhs.flat.([]T)
	outFlat := out.flat.([]T)
	for flatIdx, indices := range out.shape.Iter() {
		outFlat[flatIdx] = opFn(lhsFlat[lhs.flatIndex(indices)], rhsFlat[rhs.flatIndex(indices)])
	}
}

func execBinaryFloat16(opFn func(a, b float32) float32, lhs, rhs, out *Tensor) {
	lhsFlat := lhs.flat.([]float16.Float16)
	rhsFlat := rhs.flat.([]float16.Float16)
	outFlat := out.flat.([]float16.Float16)
	for flatIdx, indices := range out.shape.Iter() {
		a := lhsFlat[lhs.flatIndex(indices)].Float32()
		b := rhsFlat[rhs.flatIndex(indices)].Float32()
		outFlat[flatIdx] = float16.Fromfloat32(opFn(a, b))
	}
}

// Neg returns the elementwise negation of t.
func Neg(t *Tensor) *Tensor {
	out := Zeros(t.dtype, t.shape...)
	switch t.dtype {
	case dtypes.Float16:
		execUnaryFloat16(func(a float32) float32 { return -a }, t, out)
	case dtypes.Float32:
		execUnaryGeneric(func(a float32) float32 { return -a }, t, out)
	case dtypes.Float64:
		execUnaryGeneric(func(a float64) float64 { return -a }, t, out)
	case dtypes.Int32:
		execUnaryGeneric(func(a int32) int32 { return -a }, t, out)
	case dtypes.Int64:
		execUnaryGeneric(func(a int64) int64 { return -a }, t, out)
	}
	return out
}

func execUnaryGeneric[T podNumeric](opFn func(a T) T, input, out *Tensor) {
	inFlat := input.flat.([]T)
	outFlat := out.flat.([]T)
	for flatIdx, indices := range out.shape.Iter() {
		outFlat[flatIdx] = opFn(inFlat[input.flatIndex(indices)])
	}
}

func execUnaryFloat16(opFn func(a float32) float32, input, out *Tensor) {
	inFlat := input.flat.([]float16.Float16)
	outFlat := out.flat.([]float16.Float16)
	for flatIdx, indices := range out.shape.Iter() {
		outFlat[flatIdx] = float16.Fromfloat32(opFn(inFlat[input.flatIndex(indices)].Float32()))
	}
}

// ReduceSum sums over the given axes, which are dropped from the result.
// Negative axes count from the end; no axes means reduce over all of them,
// yielding a scalar.
func ReduceSum(t *Tensor, reduceAxes ...int) *Tensor {
	reduced, outShape := reductionPlan("ReduceSum", t, reduceAxes)
	out := Zeros(t.dtype, outShape...)
	outStrideForAxis := reductionOutStrides(t.shape, reduced, outShape)
	switch t.dtype {
	case dtypes.Float16:
		execReduceSumFloat16(t, out, outStrideForAxis)
	case dtypes.Float32:
		execReduceSumGeneric[float32](t, out, outStrideForAxis)
	case dtypes.Float64:
		execReduceSumGeneric[float64](t, out, outStrideForAxis)
	case dtypes.Int32:
		execReduceSumGeneric[int32](t, out, outStrideForAxis)
	case dtypes.Int64:
		execReduceSumGeneric[int64](t, out, outStrideForAxis)
	}
	return out
}

// ReduceMean averages over the given axes, which are dropped from the
// result. Only floating point dtypes are supported.
func ReduceMean(t *Tensor, reduceAxes ...int) *Tensor {
	if !t.dtype.IsFloat() {
		exceptions.Panicf("ReduceMean: requires a floating point dtype, got %s", t.dtype)
	}
	reduced, _ := reductionPlan("ReduceMean", t, reduceAxes)
	count := 1
	for axis, isReduced := range reduced {
		if isReduced {
			count *= t.shape[axis]
		}
	}
	sum := ReduceSum(t, reduceAxes...)
	// sum owns its data, scale it in place.
	switch flat := sum.flat.(type) {
	case []float16.Float16:
		for ii := range flat {
			flat[ii] = float16.Fromfloat32(flat[ii].Float32() / float32(count))
		}
	case []float32:
		for ii := range flat {
			flat[ii] /= float32(count)
		}
	case []float64:
		for ii := range flat {
			flat[ii] /= float64(count)
		}
	}
	return sum
}

// reductionPlan normalizes and validates the axes to reduce, returning a
// per-axis reduced marker and the output shape. Empty reduceAxes selects all
// axes.
func reductionPlan(name string, t *Tensor, reduceAxes []int) (reduced []bool, outShape shapes.Shape) {
	rank := t.Rank()
	reduced = make([]bool, rank)
	if len(reduceAxes) == 0 {
		for axis := range reduced {
			reduced[axis] = true
		}
		return reduced, shapes.Shape{}
	}
	adjusted := make([]int, 0, len(reduceAxes))
	for _, axis := range reduceAxes {
		adjusted = append(adjusted, adjustAxis(name, axis, rank))
	}
	slices.Sort(adjusted)
	for ii, axis := range adjusted {
		if ii > 0 && axis == adjusted[ii-1] {
			exceptions.Panicf("%s: axis %d given more than once", name, axis)
		}
		reduced[axis] = true
	}
	outShape = make(shapes.Shape, 0, rank-len(adjusted))
	for axis, isReduced := range reduced {
		if !isReduced {
			outShape = append(outShape, t.shape[axis])
		}
	}
	return reduced, outShape
}

// reductionOutStrides maps each input axis to its stride in the output's
// flat data: 0 for reduced axes, the output's canonical stride otherwise.
func reductionOutStrides(inShape shapes.Shape, reduced []bool, outShape shapes.Shape) []int {
	outStrides := outShape.Strides()
	result := make([]int, inShape.Rank())
	outAxis := 0
	for axis := range result {
		if reduced[axis] {
			result[axis] = 0
		} else {
			result[axis] = outStrides[outAxis]
			outAxis++
		}
	}
	return result
}

func execReduceSumGeneric[T podNumeric](input, out *Tensor, outStrideForAxis []int) {
	inFlat := input.flat.([]T)
	outFlat := out.flat.([]T)
	for _, indices := range input.shape.Iter() {
		pos := 0
		for axis, idx := range indices {
			pos += idx * outStrideForAxis[axis]
		}
		outFlat[pos] += inFlat[input.flatIndex(indices)]
	}
}

// execReduceSumFloat16 accumulates in float32 and converts once at the end,
// avoiding a round trip through float16 per element.
func execReduceSumFloat16(input, out *Tensor, outStrideForAxis []int) {
	inFlat := input.flat.([]float16.Float16)
	outFlat := out.flat.([]float16.Float16)
	acc := make([]float32, len(outFlat))
	for _, indices := range input.shape.Iter() {
		pos := 0
		for axis, idx := range indices {
			pos += idx * outStrideForAxis[axis]
		}
		acc[pos] += inFlat[input.flatIndex(indices)].Float32()
	}
	for ii, sum := range acc {
		outFlat[ii] = float16.Fromfloat32(sum)
	}
}
