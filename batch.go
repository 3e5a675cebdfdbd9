// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

// mapBatches folds the engine's automatic-batching primitive over fn, one
// layer per batch dimension, and invokes the lifted function once on the
// broadcast arguments.
//
// Each layer peels one leading axis off every argument, so after
// numBatchDims layers the innermost fn sees exactly the core-shaped slices,
// and the result at any index tuple equals fn applied to the corresponding
// slices -- observationally an explicit nested loop over the batch prefix.
// With numBatchDims == 0 this degenerates to a direct call.
func mapBatches[T any](engine Engine[T], fn Func[T], args []T, numBatchDims int) []T {
	batched := fn
	for range numBatchDims {
		batched = engine.Batch(batched)
	}
	return batched(args)
}
