// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

import (
	"github.com/pkg/errors"

	"github.com/gomlx/gufunc/shapes"
)

// expandArgs broadcasts every argument to its full target shape: the common
// batch shape followed by the argument's resolved core dimensions. The engine
// provides the broadcast as a view, no copies are required.
//
// The compatibility re-check is defensive: resolveDims already guarantees it,
// so a failure here means the engine misreported a shape.
func expandArgs[T any](engine Engine[T], args []T, batchShape shapes.Shape, sizes dimSizes, inputCoreDims [][]string) ([]T, error) {
	expanded := make([]T, len(args))
	for argIdx, arg := range args {
		target := shapes.Concat(batchShape, sizes.resolveCore(inputCoreDims[argIdx]))
		current := engine.Shape(arg)
		if !current.BroadcastableTo(target) {
			return nil, errors.Wrapf(ErrBroadcast, "argument #%d with shape %s cannot be broadcast to its computed target shape %s",
				argIdx, current, target)
		}
		expanded[argIdx] = engine.BroadcastTo(arg, target)
	}
	return expanded, nil
}
