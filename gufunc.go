// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gufunc generalizes functions written for fixed-rank arrays to
// arbitrary batch dimensions, the way NumPy's generalized universal functions
// ("gufuncs") and JAX's vectorize do.
//
// A gufunc signature such as "(n),(n)->()" declares, per input and output,
// the trailing "core" dimensions a function operates on. Vectorizing the
// function lets callers pass arrays with any extra leading ("batch")
// dimensions: the batch prefixes of all arguments are broadcast to a common
// shape, the function is mapped over every batch index, and the outputs carry
// the broadcast prefix followed by their declared core dimensions.
//
// The package is generic over the array type: anything satisfying the small
// Engine interface can be vectorized over. Package tensors provides a dense
// reference engine:
//
//	engine := tensors.NewEngine()
//	norm := gufunc.MustNewAny[*tensors.Tensor](engine, "(n)->()",
//		func(v *tensors.Tensor) *tensors.Tensor {
//			return tensors.ReduceSum(tensors.Mul(v, v))
//		})
//	x := tensors.FromValue([][]float32{{3, 4}, {5, 12}})
//	fmt.Println(norm.Call1(x))  // => 2 squared norms, shape (2).
//
// Vectorized values offer two call surfaces, following the same convention as
// GoMLX executors: the Call variants panic on error (with a stack trace, see
// github.com/gomlx/exceptions), and the Exec variants return an error. Errors
// wrap the package's sentinel errors (ErrArityMismatch and friends) and can
// be tested with errors.Is.
//
// Sharp edge, by contract: the raw core function and its Vectorized wrapper
// are distinct values on purpose. Calling the raw function directly on
// arguments that were not broadcast to core shape is unsupported and can
// silently produce results that are shape-valid but wrong. Always call
// through the Vectorized value.
package gufunc

import (
	"fmt"
	"maps"
	"reflect"
	"runtime"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/gufunc/shapes"
)

// Vectorized is a core function bound to its signature and an array engine,
// callable on arguments with arbitrary batch dimensions.
//
// Build it with New, NewAny or NewWithSignature (or their Must variants) and
// optionally configure it with SetName and WithExcluded before the first
// call. After that it is immutable and safe for concurrent calls: every call
// resolves its dimension sizes and broadcast shape from scratch.
type Vectorized[T any] struct {
	engine    Engine[T]
	signature *Signature
	fn        Func[T]
	name      string

	// excluded holds original argument positions passed through unvectorized,
	// sorted. fnNumIn is the parameter count of typed core functions, or -1
	// when the core function takes its arguments as a slice.
	excluded []int
	fnNumIn  int
}

// New returns the vectorization of fn, which receives all its array arguments
// in a slice and returns all outputs in a slice, with lengths matching the
// signature's input and output groups.
//
// It fails wrapping ErrInvalidSignature if the signature doesn't parse. For
// typed core functions (e.g. func(x, y *tensors.Tensor) *tensors.Tensor) see
// NewAny.
func New[T any](engine Engine[T], signature string, fn Func[T]) (*Vectorized[T], error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	return NewWithSignature(engine, sig, fn), nil
}

// NewWithSignature is like New for an already parsed signature, allowing one
// Signature value to be reused across many core functions. Since the
// signature is known to be valid, it cannot fail.
func NewWithSignature[T any](engine Engine[T], sig *Signature, fn Func[T]) *Vectorized[T] {
	v := &Vectorized[T]{
		engine:    engine,
		signature: sig,
		fn:        fn,
		name:      funcName(fn),
		fnNumIn:   -1,
	}
	klog.V(2).Infof("gufunc: vectorized %s with signature %q", v.name, sig)
	return v
}

// NewAny is like New but accepts the core function in any of the natural
// typed forms, converting it by reflection:
//
//   - func(T, ...) T: one parameter of the array type per input group;
//   - func(T, ...) (T, ...): multiple outputs, one per output group;
//   - func([]T) []T: the slice form New takes directly.
//
// All parameters and results must be of the array type T (or a single slice
// of it). The parameter count must match the signature's input groups, plus
// one per excluded argument if WithExcluded is used; the result count must
// match the output groups.
func NewAny[T any](engine Engine[T], signature string, fn any) (*Vectorized[T], error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	arrayT := reflect.TypeFor[T]()
	sliceT := reflect.SliceOf(arrayT)
	fnT := reflect.TypeOf(fn)
	if fnT == nil || fnT.Kind() != reflect.Func {
		return nil, errors.Errorf("NewAny requires a function, got %T", fn)
	}
	if fnT.IsVariadic() {
		return nil, errors.Errorf("NewAny does not accept variadic functions, got %s", fnT)
	}

	inAsSlice := fnT.NumIn() == 1 && fnT.In(0) == sliceT
	if !inAsSlice {
		for ii := 0; ii < fnT.NumIn(); ii++ {
			if fnT.In(ii) != arrayT {
				return nil, errors.Errorf("input parameter #%d of %s is not of the array type %s (nor is the function of the slice form func(%s) %s)",
					ii, fnT, arrayT, sliceT, sliceT)
			}
		}
		if fnT.NumIn() < sig.NumInputs() {
			return nil, errors.Errorf("core function %s takes %d parameter(s), fewer than the %d input group(s) declared in %q",
				fnT, fnT.NumIn(), sig.NumInputs(), sig)
		}
	}
	outAsSlice := fnT.NumOut() == 1 && fnT.Out(0) == sliceT
	if !outAsSlice {
		for ii := 0; ii < fnT.NumOut(); ii++ {
			if fnT.Out(ii) != arrayT {
				return nil, errors.Errorf("result #%d of %s is not of the array type %s (nor is the function of the slice form func(%s) %s)",
					ii, fnT, arrayT, sliceT, sliceT)
			}
		}
		if fnT.NumOut() != sig.NumOutputs() {
			return nil, errors.Errorf("core function %s returns %d result(s), but %q declares %d output group(s)",
				fnT, fnT.NumOut(), sig, sig.NumOutputs())
		}
	}

	fnV := reflect.ValueOf(fn)
	normalized := func(args []T) []T {
		var argsV []reflect.Value
		if inAsSlice {
			argsV = []reflect.Value{reflect.ValueOf(args)}
		} else {
			argsV = make([]reflect.Value, len(args))
			for ii, arg := range args {
				argsV[ii] = reflect.ValueOf(arg)
			}
		}
		outsV := fnV.Call(argsV)
		if outAsSlice {
			return outsV[0].Interface().([]T)
		}
		outs := make([]T, len(outsV))
		for ii, outV := range outsV {
			outs[ii] = outV.Interface().(T)
		}
		return outs
	}

	v := NewWithSignature(engine, sig, normalized)
	v.name = funcName(fn)
	if !inAsSlice {
		v.fnNumIn = fnT.NumIn()
	}
	return v, nil
}

// funcName resolves the name of the function for error messages and logs.
func funcName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	if rf := runtime.FuncForPC(pc); rf != nil {
		return rf.Name()
	}
	return "<anonymous>"
}

// SetName overrides the name used in error messages and logs, by default the
// core function's own name. It returns the Vectorized so calls can be
// chained; call it before the first use.
func (v *Vectorized[T]) SetName(name string) *Vectorized[T] {
	v.name = name
	return v
}

// Name returns the diagnostics name.
func (v *Vectorized[T]) Name() string { return v.name }

// Signature returns the parsed signature the Vectorized was built with.
func (v *Vectorized[T]) Signature() *Signature { return v.signature }

// String implements fmt.Stringer.
func (v *Vectorized[T]) String() string {
	return fmt.Sprintf("Vectorized(%q, fn=%s)", v.signature.text, v.name)
}

// WithExcluded marks argument positions that are not vectorized: they take no
// part in dimension resolution or broadcasting and are passed to the core
// function unmodified on every batch invocation, at their original positions.
// The signature's input groups then describe the remaining arguments in
// order.
//
// Indices refer to the call's positional arguments. It panics on negative,
// duplicate or unreachable indices, or if a typed core function's parameter
// count cannot accommodate them. It returns the Vectorized so calls can be
// chained; call it before the first use.
func (v *Vectorized[T]) WithExcluded(argIndices ...int) *Vectorized[T] {
	sorted := slices.Clone(argIndices)
	slices.Sort(sorted)
	numArgs := v.signature.NumInputs() + len(sorted)
	for ii, idx := range sorted {
		if idx < 0 || idx >= numArgs {
			exceptions.Panicf("%s.WithExcluded(%v): index %d out of range, calls take %d argument(s)", v, argIndices, idx, numArgs)
		}
		if ii > 0 && sorted[ii-1] == idx {
			exceptions.Panicf("%s.WithExcluded(%v): index %d repeated", v, argIndices, idx)
		}
	}
	if v.fnNumIn >= 0 && v.fnNumIn != numArgs {
		exceptions.Panicf("%s.WithExcluded(%v): core function takes %d parameter(s), but %d signature input(s) plus %d excluded imply %d",
			v, argIndices, v.fnNumIn, v.signature.NumInputs(), len(sorted), numArgs)
	}
	v.excluded = sorted
	return v
}

// Call applies the vectorized function, panicking on error -- see Exec for
// the error-returning variant. It returns one array per declared output
// group, shaped as the arguments' common batch shape followed by that
// output's core dimensions.
func (v *Vectorized[T]) Call(args ...T) []T {
	results, err := v.exec(args, false, 0)
	if err != nil {
		panic(err)
	}
	return results
}

// CallWithAxis is Call with an explicit axis: on every input that declares a
// core dimension, the dimension at the given (possibly negative) axis is
// treated as the core one, and outputs that declare it get it back at the
// same position. Only valid for signatures with exactly one distinct core
// dimension name, e.g. "(n)->(),(n)".
func (v *Vectorized[T]) CallWithAxis(axis int, args ...T) []T {
	results, err := v.exec(args, true, axis)
	if err != nil {
		panic(err)
	}
	return results
}

// Exec applies the vectorized function like Call, but returns errors instead
// of panicking, including errors the underlying engine or core function
// panicked with.
func (v *Vectorized[T]) Exec(args ...T) (results []T, err error) {
	err = exceptions.TryCatch[error](func() { results = v.Call(args...) })
	return
}

// ExecWithAxis is CallWithAxis returning errors instead of panicking.
func (v *Vectorized[T]) ExecWithAxis(axis int, args ...T) (results []T, err error) {
	err = exceptions.TryCatch[error](func() { results = v.CallWithAxis(axis, args...) })
	return
}

// exec runs the vectorization pipeline: split excluded arguments, rebind the
// explicit axis if given, resolve dimension sizes and the batch shape, expand
// arguments to broadcast views, fold the engine's batching primitive over the
// (output-checked) core function, and finally rebind the axis back on the
// results.
func (v *Vectorized[T]) exec(args []T, hasAxis bool, axis int) ([]T, error) {
	results, err := v.run(args, hasAxis, axis)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", v)
	}
	return results, nil
}

func (v *Vectorized[T]) run(args []T, hasAxis bool, axis int) ([]T, error) {
	numArgs := v.signature.NumInputs() + len(v.excluded)
	if len(args) != numArgs {
		if len(v.excluded) > 0 {
			return nil, errors.Wrapf(ErrArityMismatch, "got %d argument(s), want %d: %d signature input group(s) plus %d excluded",
				len(args), numArgs, v.signature.NumInputs(), len(v.excluded))
		}
		return nil, errors.Wrapf(ErrArityMismatch, "got %d argument(s), but the signature declares %d input group(s)",
			len(args), v.signature.NumInputs())
	}
	if v.fnNumIn >= 0 && v.fnNumIn != numArgs {
		return nil, errors.Wrapf(ErrArityMismatch, "core function takes %d parameter(s), but calls take %d; use WithExcluded for pass-through arguments",
			v.fnNumIn, numArgs)
	}
	dynamic, coreFn := v.splitExcluded(args)

	if hasAxis {
		if err := checkAxisSupported(v.signature); err != nil {
			return nil, err
		}
		var err error
		dynamic, err = rebindBefore(v.engine, v.signature, axis, dynamic)
		if err != nil {
			return nil, err
		}
	}

	argShapes := make([]shapes.Shape, len(dynamic))
	for ii, arg := range dynamic {
		argShapes[ii] = v.engine.Shape(arg)
	}
	batchShape, sizes, err := resolveDims(argShapes, v.signature.inputs)
	if err != nil {
		return nil, err
	}
	klog.V(3).Infof("gufunc: %s call with shapes %v: batch shape %s, core sizes %v", v.name, argShapes, batchShape, sizes)

	expanded, err := expandArgs(v.engine, dynamic, batchShape, sizes, v.signature.inputs)
	if err != nil {
		return nil, err
	}

	checked := checkOutputs(v.engine, v.signature, sizes, coreFn)
	results := mapBatches(v.engine, checked, expanded, batchShape.Rank())

	if hasAxis {
		results, err = rebindAfter(v.engine, v.signature, axis, results)
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// splitExcluded separates the vectorized arguments from the excluded ones and
// returns the core function with the excluded values spliced back in at their
// original positions on every invocation.
func (v *Vectorized[T]) splitExcluded(args []T) (dynamic []T, coreFn Func[T]) {
	if len(v.excluded) == 0 {
		return args, v.fn
	}
	static := make([]T, len(v.excluded))
	dynamic = make([]T, 0, len(args)-len(v.excluded))
	nextExcluded := 0
	for ii, arg := range args {
		if nextExcluded < len(v.excluded) && ii == v.excluded[nextExcluded] {
			static[nextExcluded] = arg
			nextExcluded++
			continue
		}
		dynamic = append(dynamic, arg)
	}
	fn := v.fn
	excluded := v.excluded
	coreFn = func(coreArgs []T) []T {
		full := make([]T, len(coreArgs)+len(excluded))
		nextExcluded := 0
		nextCore := 0
		for ii := range full {
			if nextExcluded < len(excluded) && ii == excluded[nextExcluded] {
				full[ii] = static[nextExcluded]
				nextExcluded++
				continue
			}
			full[ii] = coreArgs[nextCore]
			nextCore++
		}
		return fn(full)
	}
	return dynamic, coreFn
}

// checkOutputs wraps fn to verify, on every invocation, that it honors the
// signature's output contract: the declared number of outputs, each with
// exactly its core rank, and named dimensions agreeing with the sizes
// resolved from the inputs. Dimension names that appear only in outputs are
// bound by their first output within the invocation.
//
// The checks run inside the batched closure, so violations panic (with error
// values); the Exec variants convert them to returned errors.
func checkOutputs[T any](engine Engine[T], sig *Signature, sizes dimSizes, fn Func[T]) Func[T] {
	return func(args []T) []T {
		outs := fn(args)
		if len(outs) != sig.NumOutputs() {
			panic(errors.Wrapf(ErrArityMismatch, "core function returned %d output(s), but the signature declares %d output group(s)",
				len(outs), sig.NumOutputs()))
		}
		local := maps.Clone(sizes)
		for outIdx, coreDims := range sig.outputs {
			outShape := engine.Shape(outs[outIdx])
			if outShape.Rank() != len(coreDims) {
				panic(errors.Errorf("core function returned output #%d with shape %s (rank %d), but its signature group declares %d core dimension(s) %v",
					outIdx, outShape, outShape.Rank(), len(coreDims), coreDims))
			}
			for ii, name := range coreDims {
				if err := local.bind(name, outShape[ii]); err != nil {
					panic(errors.Wrapf(err, "core function output #%d with shape %s", outIdx, outShape))
				}
			}
		}
		return outs
	}
}
