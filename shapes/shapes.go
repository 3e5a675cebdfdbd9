// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, a sequence of dimensions, and the broadcasting
// rules gufunc uses to combine them.
//
// A Shape here carries dimensions only: the element type of an array is owned by
// whatever array implementation is plugged into gufunc (see package tensors for
// the dense reference implementation). This keeps the vectorization core usable
// with any array library.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of an array.
//   - Axis: the index of a dimension, from 0 to Rank()-1. Negative values count
//     from the end, so axis=-1 refers to the last axis.
//   - Dimension: the size of an array along one axis.
//   - Scalar: a rank-0 shape, holding a single value.
//
// Broadcasting follows the usual array rules: shapes are aligned on the right,
// and two dimensions are compatible when they are equal or either is 1 (or
// absent, which counts as 1). See Broadcast and BroadcastableTo.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Shape is the sequence of dimensions of an array, one entry per axis.
// Dimensions are non-negative; a zero dimension makes the shape zero-sized.
//
// The zero value (nil) is a valid scalar shape.
type Shape []int

// Make returns a Shape with the given dimensions.
// It panics if any dimension is negative.
func Make(dimensions ...int) Shape {
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%v): dimensions must be non-negative", dimensions)
		}
	}
	return slices.Clone(dimensions)
}

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s) }

// IsScalar returns whether the shape has no axes (rank 0).
func (s Shape) IsScalar() bool { return len(s) == 0 }

// Size returns the number of elements an array of this shape holds, the
// product of all dimensions. A scalar has size 1.
func (s Shape) Size() (size int) {
	size = 1
	for _, dim := range s {
		size *= dim
	}
	return
}

// IsZeroSize returns whether any dimension is zero, making the shape hold no
// elements.
func (s Shape) IsZeroSize() bool {
	for _, dim := range s {
		if dim == 0 {
			return true
		}
	}
	return false
}

// Dim returns the dimension of the given axis. The axis can be negative, in
// which case it counts from the end -- axis=-1 is the last axis.
// Like slice indexing, it panics for an out-of-bounds axis.
func (s Shape) Dim(axis int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += s.Rank()
	}
	if adjusted < 0 || adjusted >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s[adjusted]
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape { return slices.Clone(s) }

// Equal compares two shapes dimension by dimension.
func (s Shape) Equal(other Shape) bool { return slices.Equal(s, other) }

// String pretty-prints the shape as a parenthesized dimension list, e.g.
// "(2, 3)". A scalar prints as "()".
func (s Shape) String() string {
	if s.IsScalar() {
		return "()"
	}
	parts := make([]string, len(s))
	for ii, dim := range s {
		parts[ii] = fmt.Sprintf("%d", dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Concat returns the concatenation of the given shapes, left to right.
// Concat of no shapes is the scalar shape.
func Concat(ss ...Shape) Shape {
	total := 0
	for _, s := range ss {
		total += len(s)
	}
	result := make(Shape, 0, total)
	for _, s := range ss {
		result = append(result, s...)
	}
	return result
}

// Broadcast returns the common shape all the given shapes broadcast to,
// following the standard right-aligned rules: for each axis position (counted
// from the end) the dimensions must be equal, or all but one must be 1 or
// absent, and the result takes the largest value.
//
// Broadcast of no shapes (or of only scalars) is the scalar shape.
func Broadcast(ss ...Shape) (Shape, error) {
	rank := 0
	for _, s := range ss {
		rank = max(rank, s.Rank())
	}
	result := make(Shape, rank)
	for ii := range result {
		result[ii] = 1
	}
	for _, s := range ss {
		offset := rank - s.Rank()
		for axis, dim := range s {
			pos := offset + axis
			switch {
			case dim == 1 || dim == result[pos]:
				// Compatible, nothing to do.
			case result[pos] == 1:
				result[pos] = dim
			default:
				return nil, errors.Errorf(
					"shapes %s cannot be broadcast together: axis %d has dimensions %d and %d",
					shapesListStr(ss), pos-rank, result[pos], dim)
			}
		}
	}
	return result, nil
}

// BroadcastableTo returns whether an array of shape s can be broadcast to the
// target shape: s cannot have higher rank, and right-aligned dimensions must
// be equal or 1 in s.
func (s Shape) BroadcastableTo(target Shape) bool {
	if s.Rank() > target.Rank() {
		return false
	}
	offset := target.Rank() - s.Rank()
	for axis, dim := range s {
		if dim != 1 && dim != target[offset+axis] {
			return false
		}
	}
	return true
}

func shapesListStr(ss []Shape) string {
	parts := make([]string, len(ss))
	for ii, s := range ss {
		parts[ii] = s.String()
	}
	return strings.Join(parts, ", ")
}
