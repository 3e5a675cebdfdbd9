// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"slices"

	"github.com/gomlx/exceptions"

	"github.com/gomlx/gufunc/shapes"
)

// This file implements the view operations: they return tensors sharing the
// receiver's backing data, adjusting only shape, strides and offset.

// BroadcastTo returns a view of t expanded to the given dimensions, following
// the usual right-aligned broadcasting rules: axes are matched from the last
// backwards, and axes of dimension 1 (or missing on t) repeat their value
// along the target dimension by getting stride 0.
//
// It panics if t's shape is not broadcastable to the target dimensions.
func (t *Tensor) BroadcastTo(dimensions ...int) *Tensor {
	target := shapes.Make(dimensions...)
	if !t.shape.BroadcastableTo(target) {
		exceptions.Panicf("BroadcastTo: shape %s is not broadcastable to %s", t.shape, target)
	}
	strides := make([]int, target.Rank())
	skew := target.Rank() - t.Rank()
	for axis := range target {
		srcAxis := axis - skew
		if srcAxis < 0 || (t.shape[srcAxis] == 1 && target[axis] != 1) {
			strides[axis] = 0
		} else {
			strides[axis] = t.strides[srcAxis]
		}
	}
	return &Tensor{
		shape:   target,
		strides: strides,
		offset:  t.offset,
		dtype:   t.dtype,
		flat:    t.flat,
	}
}

// MoveAxis returns a view of t with the source axis moved so that it ends up
// at the target position, the other axes keeping their relative order. Both
// positions accept negative values, counting from the end.
func (t *Tensor) MoveAxis(source, target int) *Tensor {
	rank := t.Rank()
	source = adjustAxis("MoveAxis source", source, rank)
	target = adjustAxis("MoveAxis target", target, rank)
	if source == target {
		return t
	}
	shape := make(shapes.Shape, 0, rank)
	strides := make([]int, 0, rank)
	for axis := range rank {
		if axis == source {
			continue
		}
		if len(shape) == target {
			shape = append(shape, t.shape[source])
			strides = append(strides, t.strides[source])
		}
		shape = append(shape, t.shape[axis])
		strides = append(strides, t.strides[axis])
	}
	if len(shape) < rank {
		shape = append(shape, t.shape[source])
		strides = append(strides, t.strides[source])
	}
	return &Tensor{
		shape:   shape,
		strides: strides,
		offset:  t.offset,
		dtype:   t.dtype,
		flat:    t.flat,
	}
}

// ExpandAxes returns a view of t with new 1-sized axes inserted at the given
// positions of the resulting shape, numpy.expand_dims style: for t of shape
// (2, 3), t.ExpandAxes(-1) has shape (2, 3, 1) and t.ExpandAxes(0, 2) has
// shape (1, 2, 1, 3). Negative positions count from the end of the result;
// repeated positions panic.
func (t *Tensor) ExpandAxes(newAxes ...int) *Tensor {
	if len(newAxes) == 0 {
		return t
	}
	toRank := t.Rank() + len(newAxes)
	adjusted := slices.Clone(newAxes)
	for ii, axis := range newAxes {
		if axis < 0 {
			adjusted[ii] = toRank + axis
		}
	}
	slices.Sort(adjusted)
	for ii, axis := range adjusted {
		if axis < 0 || axis >= toRank {
			exceptions.Panicf("ExpandAxes(%v): axis out of range for resulting rank %d", newAxes, toRank)
		}
		if ii > 0 && axis == adjusted[ii-1] {
			exceptions.Panicf("ExpandAxes(%v): new axis %d repeated", newAxes, axis)
		}
	}
	shape := make(shapes.Shape, 0, toRank)
	strides := make([]int, 0, toRank)
	nextNew, nextOld := 0, 0
	for ii := range toRank {
		if nextNew < len(adjusted) && adjusted[nextNew] == ii {
			shape = append(shape, 1)
			strides = append(strides, 0)
			nextNew++
			continue
		}
		shape = append(shape, t.shape[nextOld])
		strides = append(strides, t.strides[nextOld])
		nextOld++
	}
	return &Tensor{
		shape:   shape,
		strides: strides,
		offset:  t.offset,
		dtype:   t.dtype,
		flat:    t.flat,
	}
}

// Index returns a view of t with the first axis fixed at position i, dropping
// that axis: for t of shape (5, 2, 3), t.Index(1) has shape (2, 3). Negative
// i counts from the end.
func (t *Tensor) Index(i int) *Tensor {
	if t.IsScalar() {
		exceptions.Panicf("Index: cannot index a scalar tensor")
	}
	dim := t.shape.Dim(0)
	if i < 0 {
		i += dim
	}
	if i < 0 || i >= dim {
		exceptions.Panicf("Index: index %d out of range for axis of dimension %d", i, dim)
	}
	return &Tensor{
		shape:   t.shape[1:].Clone(),
		strides: slices.Clone(t.strides[1:]),
		offset:  t.offset + i*t.strides[0],
		dtype:   t.dtype,
		flat:    t.flat,
	}
}

// Stack combines tensors of identical shape and dtype along a new leading
// axis: stacking n tensors of shape (2, 3) yields shape (n, 2, 3). The
// result owns its data.
func Stack(parts []*Tensor) *Tensor {
	if len(parts) == 0 {
		exceptions.Panicf("Stack: requires at least one tensor")
	}
	first := parts[0]
	for ii, part := range parts {
		if part.dtype != first.dtype {
			exceptions.Panicf("Stack: tensor #%d has dtype %s, want %s", ii, part.dtype, first.dtype)
		}
		if !part.shape.Equal(first.shape) {
			exceptions.Panicf("Stack: tensor #%d has shape %s, want %s", ii, part.shape, first.shape)
		}
	}
	result := Zeros(first.dtype, shapes.Concat(shapes.Shape{len(parts)}, first.shape)...)
	for ii, part := range parts {
		copyFlat(result.Index(ii), part)
	}
	return result
}

// adjustAxis resolves negative axis values and validates the range.
func adjustAxis(what string, axis, rank int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		exceptions.Panicf("%s: axis %d out of range for rank %d", what, axis, rank)
	}
	return adjusted
}
