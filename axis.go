// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

import (
	"slices"

	"github.com/pkg/errors"
)

// adjustAxisToRank converts negative axes to a value starting from the end.
// It doesn't check bounds, callers do.
func adjustAxisToRank(axis, rank int) int {
	if axis < 0 {
		axis += rank
	}
	return axis
}

// checkAxisSupported verifies the signature admits an explicit axis: exactly
// one distinct core dimension name across all input and output groups.
// Otherwise "the" core axis is ambiguous and it fails wrapping
// ErrAxisNotSupported.
func checkAxisSupported(sig *Signature) error {
	if _, ok := sig.singleCoreDim(); !ok {
		return errors.Wrapf(ErrAxisNotSupported, "signature %q declares %d distinct core dimension names %v",
			sig.text, len(sig.coreDimNames), sig.coreDimNames)
	}
	return nil
}

// rebindBefore moves the dimension at the caller's explicit axis to the
// trailing (canonical core) position, on every input that declares a
// non-empty core group. Inputs with a scalar core pass through unchanged, and
// the axis is never validated against their ranks.
func rebindBefore[T any](engine Engine[T], sig *Signature, axis int, args []T) ([]T, error) {
	rebound := slices.Clone(args)
	for argIdx, coreDims := range sig.inputs {
		if len(coreDims) == 0 {
			continue
		}
		shape := engine.Shape(args[argIdx])
		adjusted := adjustAxisToRank(axis, shape.Rank())
		if adjusted < 0 || adjusted >= shape.Rank() {
			return nil, errors.Errorf("axis %d is out of range for argument #%d with shape %s",
				axis, argIdx, shape)
		}
		rebound[argIdx] = engine.MoveAxis(args[argIdx], adjusted, shape.Rank()-1)
	}
	return rebound, nil
}

// rebindAfter undoes rebindBefore on the results: for every output that
// declares a non-empty core group, the trailing dimension is moved back to
// the caller's axis. Scalar-core outputs pass through unchanged.
func rebindAfter[T any](engine Engine[T], sig *Signature, axis int, results []T) ([]T, error) {
	rebound := slices.Clone(results)
	for outIdx, coreDims := range sig.outputs {
		if len(coreDims) == 0 {
			continue
		}
		shape := engine.Shape(results[outIdx])
		adjusted := adjustAxisToRank(axis, shape.Rank())
		if adjusted < 0 || adjusted >= shape.Rank() {
			return nil, errors.Errorf("axis %d is out of range for output #%d with shape %s",
				axis, outIdx, shape)
		}
		rebound[outIdx] = engine.MoveAxis(results[outIdx], shape.Rank()-1, adjusted)
	}
	return rebound, nil
}
