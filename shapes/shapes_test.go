// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	s := Make(2, 3)
	require.Equal(t, Shape{2, 3}, s)
	require.Equal(t, 2, s.Rank())
	require.Equal(t, 6, s.Size())
	require.False(t, s.IsScalar())
	require.False(t, s.IsZeroSize())

	scalar := Make()
	require.Equal(t, 0, scalar.Rank())
	require.Equal(t, 1, scalar.Size())
	require.True(t, scalar.IsScalar())

	zero := Make(3, 0, 2)
	require.True(t, zero.IsZeroSize())
	require.Equal(t, 0, zero.Size())

	require.Panics(t, func() { Make(2, -1) })
}

func TestShape_Dim(t *testing.T) {
	s := Make(2, 3, 5)
	require.Equal(t, 2, s.Dim(0))
	require.Equal(t, 5, s.Dim(2))
	require.Equal(t, 5, s.Dim(-1))
	require.Equal(t, 2, s.Dim(-3))
	require.Panics(t, func() { s.Dim(3) })
	require.Panics(t, func() { s.Dim(-4) })
}

func TestShape_EqualAndClone(t *testing.T) {
	s := Make(4, 1)
	require.True(t, s.Equal(Shape{4, 1}))
	require.False(t, s.Equal(Shape{4}))
	require.False(t, s.Equal(Shape{4, 2}))

	clone := s.Clone()
	clone[0] = 7
	require.Equal(t, 4, s[0], "Clone must not share storage")
}

func TestShape_String(t *testing.T) {
	assert.Equal(t, "()", Make().String())
	assert.Equal(t, "(5)", Make(5).String())
	assert.Equal(t, "(2, 3, 4)", Make(2, 3, 4).String())
}

func TestConcat(t *testing.T) {
	require.Equal(t, Shape{2, 3, 5}, Concat(Shape{2}, Shape{3, 5}))
	require.Equal(t, Shape{}, Concat())
	require.Equal(t, Shape{7}, Concat(nil, Shape{7}, nil))
}

func TestBroadcast(t *testing.T) {
	tests := []struct {
		name   string
		inputs []Shape
		want   Shape
	}{
		{name: "equal", inputs: []Shape{{2, 3}, {2, 3}}, want: Shape{2, 3}},
		{name: "scalar_and_matrix", inputs: []Shape{{}, {2, 3}}, want: Shape{2, 3}},
		{name: "ones_expand", inputs: []Shape{{1, 3}, {2, 1}}, want: Shape{2, 3}},
		{name: "rank_extension", inputs: []Shape{{3}, {2, 3}}, want: Shape{2, 3}},
		{name: "three_way", inputs: []Shape{{5, 1, 1}, {3, 1}, {4}}, want: Shape{5, 3, 4}},
		{name: "no_inputs", inputs: nil, want: Shape{}},
		{name: "all_scalars", inputs: []Shape{{}, {}}, want: Shape{}},
		{name: "zero_dim", inputs: []Shape{{0}, {1}}, want: Shape{0}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Broadcast(test.inputs...)
			require.NoError(t, err)
			require.Equal(t, test.want, got)
		})
	}

	_, err := Broadcast(Shape{3}, Shape{4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(3)")
	assert.Contains(t, err.Error(), "(4)")

	_, err = Broadcast(Shape{2, 3}, Shape{3, 3})
	require.Error(t, err)
}

func TestShape_BroadcastableTo(t *testing.T) {
	require.True(t, Shape{3}.BroadcastableTo(Shape{2, 3}))
	require.True(t, Shape{1, 3}.BroadcastableTo(Shape{5, 3}))
	require.True(t, Shape{}.BroadcastableTo(Shape{2, 3}))
	require.True(t, Shape{2, 3}.BroadcastableTo(Shape{2, 3}))
	require.False(t, Shape{2, 3}.BroadcastableTo(Shape{3}))
	require.False(t, Shape{4}.BroadcastableTo(Shape{2, 3}))
	require.False(t, Shape{2}.BroadcastableTo(Shape{2, 3}), "broadcast aligns on the right")
}

func TestShape_Strides(t *testing.T) {
	require.Equal(t, []int{12, 4, 1}, Make(2, 3, 4).Strides())
	require.Equal(t, []int{1}, Make(5).Strides())
	require.Equal(t, []int{2, 2, 1}, Make(3, 1, 2).Strides())
	require.Empty(t, Make().Strides())
}

func TestShape_Iter(t *testing.T) {
	// Scalars yield exactly one empty indices slice.
	scalar := Make()
	count := 0
	for flatIdx, indices := range scalar.Iter() {
		require.Equal(t, 0, flatIdx)
		require.Empty(t, indices)
		count++
	}
	require.Equal(t, 1, count)

	// Row-major order, last axis changes fastest.
	shape := Make(3, 2)
	collect := make([][]int, 0, shape.Size())
	counter := 0
	for flatIdx, indices := range shape.Iter() {
		require.Equal(t, counter, flatIdx)
		counter++
		collect = append(collect, slices.Clone(indices))
	}
	want := [][]int{
		{0, 0},
		{0, 1},
		{1, 0},
		{1, 1},
		{2, 0},
		{2, 1},
	}
	require.Equal(t, want, collect)

	// Zero-size shapes yield nothing.
	for range Make(2, 0).Iter() {
		t.Fatal("zero-size shape must not yield")
	}

	// IterOn reuses the given slice.
	indices := make([]int, 2)
	for _, yielded := range shape.IterOn(indices) {
		require.Same(t, &indices[0], &yielded[0])
		break
	}
	require.Panics(t, func() { shape.IterOn(make([]int, 1)) })
}
