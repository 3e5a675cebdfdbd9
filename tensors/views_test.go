// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTensor_BroadcastTo(t *testing.T) {
	// Scalar to matrix.
	x := FromScalar(float32(7))
	b := x.BroadcastTo(2, 3)
	require.Equal(t, "(2, 3)", b.Shape().String())
	require.Equal(t, [][]float32{{7, 7, 7}, {7, 7, 7}}, b.Value())

	// Row vector across rows, right-aligned.
	row := FromValue([]float64{1, 2, 3})
	require.Equal(t, [][]float64{{1, 2, 3}, {1, 2, 3}}, row.BroadcastTo(2, 3).Value())

	// 1-sized axis stretches.
	col := FromValue([][]float64{{1}, {2}})
	require.Equal(t, [][]float64{{1, 1, 1}, {2, 2, 2}}, col.BroadcastTo(2, 3).Value())

	// A broadcast is a view, no data is copied.
	require.False(t, b.isContiguous())
	require.Same(t, &x.flat.([]float32)[0], &b.flat.([]float32)[0])

	// Already matching dimensions are a no-op shape-wise.
	require.Equal(t, []float64{1, 2, 3}, row.BroadcastTo(3).Value())

	// Incompatible target panics.
	require.Panics(t, func() { row.BroadcastTo(2) })
	require.Panics(t, func() { row.BroadcastTo(3, 2) })
}

func TestTensor_MoveAxis(t *testing.T) {
	// (2, 3, 4) with distinguishable values.
	data := make([]int32, 24)
	for ii := range data {
		data[ii] = int32(ii)
	}
	x := FromFlatDataAndDimensions(data, 2, 3, 4)

	// Move first to last: (2, 3, 4) -> (3, 4, 2).
	m := x.MoveAxis(0, -1)
	require.Equal(t, "(3, 4, 2)", m.Shape().String())
	require.Equal(t, At[int32](x, 1, 2, 3), At[int32](m, 2, 3, 1))

	// Move last to front: (2, 3, 4) -> (4, 2, 3).
	m = x.MoveAxis(-1, 0)
	require.Equal(t, "(4, 2, 3)", m.Shape().String())
	require.Equal(t, At[int32](x, 1, 0, 2), At[int32](m, 2, 1, 0))

	// Middle stays in place when source == target.
	require.Same(t, x, x.MoveAxis(1, 1))

	// Round trip restores the original.
	require.True(t, x.Equal(x.MoveAxis(0, 2).MoveAxis(2, 0)))

	// Out of range panics.
	require.Panics(t, func() { x.MoveAxis(3, 0) })
	require.Panics(t, func() { x.MoveAxis(0, -4) })
}

func TestTensor_ExpandAxes(t *testing.T) {
	x := FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})
	require.Equal(t, "(2, 3, 1)", x.ExpandAxes(-1).Shape().String())
	require.Equal(t, "(1, 2, 3)", x.ExpandAxes(0).Shape().String())
	require.Equal(t, "(1, 2, 1, 3)", x.ExpandAxes(0, 2).Shape().String())
	require.Same(t, x, x.ExpandAxes())

	// Values are preserved, only 1-sized axes appear.
	require.Equal(t, [][][]float32{{{1}, {2}, {3}}, {{4}, {5}, {6}}}, x.ExpandAxes(-1).Value())

	// A new trailing axis combined with broadcasting gives outer products.
	row := FromValue([]float32{1, 2})
	outer := Mul(row.ExpandAxes(-1), FromValue([]float32{10, 20, 30}))
	require.Equal(t, [][]float32{{10, 20, 30}, {20, 40, 60}}, outer.Value())

	require.Panics(t, func() { x.ExpandAxes(4) })
	require.Panics(t, func() { x.ExpandAxes(0, 0) })
	require.Panics(t, func() { x.ExpandAxes(-4) })
}

func TestTensor_Index(t *testing.T) {
	x := FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})
	require.Equal(t, []float32{1, 2, 3}, x.Index(0).Value())
	require.Equal(t, []float32{4, 5, 6}, x.Index(1).Value())
	require.Equal(t, []float32{4, 5, 6}, x.Index(-1).Value())

	// Indexing a vector yields scalars.
	v := x.Index(0)
	require.Equal(t, float32(2), ToScalar[float32](v.Index(1)))

	// Indexing is a view into the same data.
	require.Same(t, &x.flat.([]float32)[0], &x.Index(1).flat.([]float32)[0])

	require.Panics(t, func() { x.Index(2) })
	require.Panics(t, func() { FromScalar(int32(1)).Index(0) })
}

func TestStack(t *testing.T) {
	a := FromValue([]float32{1, 2})
	b := FromValue([]float32{3, 4})
	c := FromValue([]float32{5, 6})
	s := Stack([]*Tensor{a, b, c})
	require.Equal(t, "(3, 2)", s.Shape().String())
	require.Equal(t, [][]float32{{1, 2}, {3, 4}, {5, 6}}, s.Value())

	// Scalars stack into a vector.
	s = Stack([]*Tensor{FromScalar(int64(1)), FromScalar(int64(2))})
	require.Equal(t, []int64{1, 2}, s.Value())

	// Views stack by value.
	s = Stack([]*Tensor{a, a.BroadcastTo(2)})
	require.Equal(t, [][]float32{{1, 2}, {1, 2}}, s.Value())

	// Mismatched shapes or dtypes panic, as does an empty stack.
	require.Panics(t, func() { Stack(nil) })
	require.Panics(t, func() { Stack([]*Tensor{a, FromValue([]float32{1, 2, 3})}) })
	require.Panics(t, func() { Stack([]*Tensor{a, FromValue([]float64{1, 2})}) })
}
