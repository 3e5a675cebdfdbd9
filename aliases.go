// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

import (
	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
)

// Note: this file contains the ergonomic aliases around New and Vectorized,
// keeping the core logic in gufunc.go separate from the conveniences.

// MustNew is New, panicking on error.
func MustNew[T any](engine Engine[T], signature string, fn Func[T]) *Vectorized[T] {
	return must.M1(New(engine, signature, fn))
}

// MustNewAny is NewAny, panicking on error.
func MustNewAny[T any](engine Engine[T], signature string, fn any) *Vectorized[T] {
	return must.M1(NewAny(engine, signature, fn))
}

// CallOnceN vectorizes fn (in any form NewAny accepts) and immediately calls
// it on args, returning all outputs. It panics on error.
//
// See CallOnce for the single-output version.
func CallOnceN[T any](engine Engine[T], signature string, fn any, args ...T) []T {
	return MustNewAny[T](engine, signature, fn).Call(args...)
}

// CallOnce vectorizes fn (in any form NewAny accepts) and immediately calls
// it on args, for signatures with a single output group. It panics on error.
func CallOnce[T any](engine Engine[T], signature string, fn any, args ...T) T {
	return MustNewAny[T](engine, signature, fn).Call1(args...)
}

// Call1 is Call for signatures with exactly one output group, returning the
// output bare instead of in a slice. It panics if the signature declares a
// different number of outputs.
func (v *Vectorized[T]) Call1(args ...T) T {
	return one(v, v.Call(args...))
}

// Call2 is Call for signatures with exactly two output groups.
func (v *Vectorized[T]) Call2(args ...T) (T, T) {
	results := v.Call(args...)
	checkNumOutputs(v, len(results), 2)
	return results[0], results[1]
}

// Call3 is Call for signatures with exactly three output groups.
func (v *Vectorized[T]) Call3(args ...T) (T, T, T) {
	results := v.Call(args...)
	checkNumOutputs(v, len(results), 3)
	return results[0], results[1], results[2]
}

// Call1WithAxis is CallWithAxis for single-output signatures.
func (v *Vectorized[T]) Call1WithAxis(axis int, args ...T) T {
	return one(v, v.CallWithAxis(axis, args...))
}

// Call2WithAxis is CallWithAxis for two-output signatures.
func (v *Vectorized[T]) Call2WithAxis(axis int, args ...T) (T, T) {
	results := v.CallWithAxis(axis, args...)
	checkNumOutputs(v, len(results), 2)
	return results[0], results[1]
}

// Call3WithAxis is CallWithAxis for three-output signatures.
func (v *Vectorized[T]) Call3WithAxis(axis int, args ...T) (T, T, T) {
	results := v.CallWithAxis(axis, args...)
	checkNumOutputs(v, len(results), 3)
	return results[0], results[1], results[2]
}

func one[T any](v *Vectorized[T], results []T) T {
	checkNumOutputs(v, len(results), 1)
	return results[0]
}

func checkNumOutputs[T any](v *Vectorized[T], got, want int) {
	if got != want {
		exceptions.Panicf("%s returns %d output(s), but a Call%d variant was used", v, got, want)
	}
}
