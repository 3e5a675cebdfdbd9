// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

import (
	"github.com/pkg/errors"

	"github.com/gomlx/gufunc/shapes"
)

// dimSizes is the per-call table mapping core dimension names to their
// resolved sizes. It is built fresh on every call and discarded afterward.
type dimSizes map[string]int

// bind records name=size. The first occurrence of a name fixes its size;
// later occurrences must agree, or it fails wrapping ErrInconsistentDimension.
func (d dimSizes) bind(name string, size int) error {
	if existing, found := d[name]; found {
		if existing != size {
			return errors.Wrapf(ErrInconsistentDimension, "core dimension %q: size %d vs previously resolved size %d", name, size, existing)
		}
		return nil
	}
	d[name] = size
	return nil
}

// resolveCore maps the given core dimension names to their resolved sizes.
// It panics if a name is unbound: the resolver binds every input name before
// resolveCore is used on input groups.
func (d dimSizes) resolveCore(coreDims []string) shapes.Shape {
	core := make(shapes.Shape, len(coreDims))
	for ii, name := range coreDims {
		size, found := d[name]
		if !found {
			panic(errors.Errorf("core dimension %q was never resolved from the inputs", name))
		}
		core[ii] = size
	}
	return core
}

// resolveDims validates each argument's rank against its declared core
// dimensions, resolves every named dimension size and computes the common
// broadcast shape of the non-core prefixes (the batch shape).
//
// It is a pure function: errors wrap ErrArityMismatch, ErrInsufficientRank,
// ErrInconsistentDimension or ErrBroadcast, with the offending shapes
// attached.
func resolveDims(argShapes []shapes.Shape, inputCoreDims [][]string) (batchShape shapes.Shape, sizes dimSizes, err error) {
	if len(argShapes) != len(inputCoreDims) {
		return nil, nil, errors.Wrapf(ErrArityMismatch, "got %d argument(s), but the signature declares %d input group(s)",
			len(argShapes), len(inputCoreDims))
	}
	prefixes := make([]shapes.Shape, len(argShapes))
	sizes = make(dimSizes)
	for argIdx, shape := range argShapes {
		coreDims := inputCoreDims[argIdx]
		numCore := len(coreDims)
		if shape.Rank() < numCore {
			return nil, nil, errors.Wrapf(ErrInsufficientRank, "argument #%d has shape %s (rank %d), but its signature group declares %d core dimension(s) %v",
				argIdx, shape, shape.Rank(), numCore, coreDims)
		}
		split := shape.Rank() - numCore
		prefixes[argIdx] = shape[:split]
		for ii, name := range coreDims {
			if bindErr := sizes.bind(name, shape[split+ii]); bindErr != nil {
				return nil, nil, errors.Wrapf(bindErr, "argument #%d with shape %s", argIdx, shape)
			}
		}
	}
	batchShape, broadcastErr := shapes.Broadcast(prefixes...)
	if broadcastErr != nil {
		return nil, nil, errors.Wrapf(ErrBroadcast, "batch (non-core) dimensions of the arguments are incompatible: %v", broadcastErr)
	}
	return batchShape, sizes, nil
}
