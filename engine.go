// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

import "github.com/gomlx/gufunc/shapes"

// Func is the normalized form of a core function over arrays of type T: all
// inputs in a slice, all outputs in a slice. New accepts this form directly;
// NewAny converts common typed forms to it by reflection.
type Func[T any] func(args []T) []T

// Engine is the array capability surface gufunc needs from the underlying
// array implementation. It is deliberately small: reading shapes, broadcast
// views, axis moves and the automatic-batching primitive. Package tensors
// provides a dense reference implementation.
//
// Implementations are expected to panic with an error value (carrying a stack
// trace, see github.com/gomlx/exceptions) on invalid use. The Exec variants of
// Vectorized convert such panics into returned errors; the Call variants let
// them propagate.
type Engine[T any] interface {
	// Shape returns the dimensions of x. A scalar has the empty shape.
	Shape(x T) shapes.Shape

	// BroadcastTo returns a view of x broadcast to the target shape: rank is
	// extended on the left and size-1 axes are tiled. Values are shared, not
	// copied. x's shape must be broadcast-compatible with target.
	BroadcastTo(x T, target shapes.Shape) T

	// MoveAxis returns a view of x with the axis at position source moved to
	// position target, other axes keeping their relative order. Negative
	// positions count from the end. Values are unchanged.
	MoveAxis(x T, source, target int) T

	// Batch lifts fn to accept one extra leading axis on every argument,
	// applying fn independently per index along that axis, in lock-step
	// across all arguments, and stacking each output along the same leading
	// axis. The per-index results must be ordered like the input slices; how
	// they are computed (sequentially, in parallel, vectorized) is up to the
	// implementation.
	Batch(fn Func[T]) Func[T]
}
