// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/gomlx/gufunc"
	"github.com/gomlx/gufunc/shapes"
)

// ParallelismEnvVar optionally sets the default parallelism of NewEngine:
// values >= 2 set the number of workers mapping batch elements, -1 means one
// worker per CPU, 0 and 1 disable parallelism.
const ParallelismEnvVar = "GUFUNC_PARALLELISM"

// Engine maps vectorized functions over dense tensors, implementing
// gufunc.Engine for *Tensor.
//
// The zero value runs batch elements sequentially; see WithParallelism and
// ParallelismEnvVar.
type Engine struct {
	parallelism int
}

var _ gufunc.Engine[*Tensor] = (*Engine)(nil)

// NewEngine creates an Engine, taking the default parallelism from
// ParallelismEnvVar when it is set.
func NewEngine() *Engine {
	e := &Engine{}
	if value := os.Getenv(ParallelismEnvVar); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			klog.Warningf("tensors: ignoring invalid %s=%q: %v", ParallelismEnvVar, value, err)
		} else {
			e.parallelism = parsed
			klog.V(2).Infof("tensors: default parallelism %d taken from %s", parsed, ParallelismEnvVar)
		}
	}
	return e
}

// WithParallelism sets how many goroutines map batch elements: n >= 2 uses n
// workers, -1 uses one worker per CPU, 0 and 1 run sequentially. It returns
// the engine, so calls can be chained.
//
// The mapped function must be safe for concurrent calls when parallelism is
// enabled.
func (e *Engine) WithParallelism(n int) *Engine {
	e.parallelism = n
	return e
}

// Shape implements gufunc.Engine.
func (e *Engine) Shape(t *Tensor) shapes.Shape { return t.Shape() }

// BroadcastTo implements gufunc.Engine. The result is a view.
func (e *Engine) BroadcastTo(t *Tensor, target shapes.Shape) *Tensor {
	return t.BroadcastTo(target...)
}

// MoveAxis implements gufunc.Engine. The result is a view.
func (e *Engine) MoveAxis(t *Tensor, source, target int) *Tensor {
	return t.MoveAxis(source, target)
}

// Batch implements gufunc.Engine: the returned function applies fn to every
// element along the arguments' leading axis and stacks the results back
// along a new leading axis.
//
// All arguments must have the same leading dimension. A zero-sized batch
// axis panics: with no elements to map there is no output shape to infer.
func (e *Engine) Batch(fn gufunc.Func[*Tensor]) gufunc.Func[*Tensor] {
	return func(args []*Tensor) []*Tensor {
		if len(args) == 0 {
			exceptions.Panicf("Batch: requires at least one argument to take the batch dimension from")
		}
		n := -1
		for ii, arg := range args {
			if arg.IsScalar() {
				exceptions.Panicf("Batch: argument #%d is a scalar, expected a leading batch axis", ii)
			}
			if n == -1 {
				n = arg.Shape().Dim(0)
			} else if arg.Shape().Dim(0) != n {
				exceptions.Panicf("Batch: argument #%d has leading dimension %d, other arguments have %d", ii, arg.Shape().Dim(0), n)
			}
		}
		if n == 0 {
			exceptions.Panicf("Batch: batch axis has zero size, there are no elements to map over")
		}

		results := make([][]*Tensor, n)
		apply := func(i int) {
			sub := make([]*Tensor, len(args))
			for j, arg := range args {
				sub[j] = arg.Index(i)
			}
			results[i] = fn(sub)
		}
		if workers := e.workersFor(n); workers <= 1 {
			for i := range n {
				apply(i)
			}
		} else {
			applyParallel(workers, n, apply)
		}

		numOutputs := len(results[0])
		for i := 1; i < n; i++ {
			if len(results[i]) != numOutputs {
				exceptions.Panicf("Batch: function returned %d output(s) for batch element %d, but %d for element 0", len(results[i]), i, numOutputs)
			}
		}
		outputs := make([]*Tensor, numOutputs)
		parts := make([]*Tensor, n)
		for k := range outputs {
			for i := range n {
				parts[i] = results[i][k]
			}
			outputs[k] = Stack(parts)
		}
		return outputs
	}
}

// workersFor resolves the configured parallelism against the batch size.
func (e *Engine) workersFor(n int) int {
	workers := e.parallelism
	if workers < 0 {
		workers = runtime.NumCPU()
	}
	return min(workers, n)
}

// applyParallel runs apply(0..n-1) on the given number of worker goroutines.
// Panics in workers are captured and the first one re-thrown on the caller's
// goroutine, so they still convert to errors at the usual boundaries.
func applyParallel(workers, n int, apply func(i int)) {
	indices := make(chan int, n)
	for i := range n {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstException any
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if exception := exceptions.Try(func() { apply(i) }); exception != nil {
					mu.Lock()
					if firstException == nil {
						firstException = exception
					}
					mu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()
	if firstException != nil {
		panic(firstException)
	}
}
