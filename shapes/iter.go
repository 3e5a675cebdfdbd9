// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"iter"

	"github.com/pkg/errors"
)

// Strides returns the strides for each axis of the shape, assuming a
// "row-major" layout in memory.
//
// Notice the strides are **not in bytes**, but in number of elements.
func (s Shape) Strides() (strides []int) {
	rank := s.Rank()
	if rank == 0 {
		return
	}
	strides = make([]int, rank)
	if s.IsZeroSize() {
		return
	}
	currentStride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		strides[axis] = currentStride
		currentStride *= s[axis]
	}
	return
}

// Iter iterates sequentially over all possible indices of the shape, in
// row-major order (the last axis changes fastest).
//
// It yields the flat index (a counter) and a slice with the indices for each
// axis. The yielded slice is owned by the iterator: don't modify or keep it
// across iterations.
func (s Shape) Iter() iter.Seq2[int, []int] {
	return s.IterOn(make([]int, s.Rank()))
}

// IterOn is like Iter, but updates the indices on the given slice, avoiding
// an allocation when iterating over a shape many times.
//
// It expects len(indices) == s.Rank() and panics otherwise. The caller must
// not modify the slice during the iteration.
func (s Shape) IterOn(indices []int) iter.Seq2[int, []int] {
	if len(indices) != s.Rank() {
		panic(errors.Errorf("Shape.IterOn given len(indices)=%d, want it to be equal to the rank %d", len(indices), s.Rank()))
	}
	return func(yield func(int, []int) bool) {
		if s.IsZeroSize() {
			return
		}
		for ii := range indices {
			indices[ii] = 0
		}
		rank := s.Rank()
		flatIdx := 0
	yielder:
		for {
			if !yield(flatIdx, indices) {
				return
			}
			flatIdx++

			// Increment indices to the next set of coordinates: row-major
			// order, with carry-over when an axis overflows.
			for axis := rank - 1; axis >= 0; axis-- {
				indices[axis]++
				if indices[axis] < s[axis] {
					continue yielder
				}
				indices[axis] = 0
			}

			// The first axis also overflowed: iteration is complete.
			break
		}
	}
}
