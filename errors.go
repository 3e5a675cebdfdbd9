// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

import "github.com/pkg/errors"

// Sentinel errors reported by this package, testable with errors.Is.
//
// Every error is raised synchronously, at construction time (ErrInvalidSignature)
// or at call time, always wrapped with the offending signature, shapes or
// dimension names. The Exec variants return them; the Call variants panic with
// the same values.
var (
	// ErrInvalidSignature indicates the signature text does not match the
	// gufunc grammar. See ParseSignature for the grammar.
	ErrInvalidSignature = errors.New("invalid gufunc signature")

	// ErrArityMismatch indicates the number of arguments passed to a call does
	// not match the number of input groups declared in the signature.
	ErrArityMismatch = errors.New("argument count does not match signature")

	// ErrInsufficientRank indicates an argument has fewer axes than the core
	// dimensions declared for it.
	ErrInsufficientRank = errors.New("argument rank is smaller than its declared core dimensions")

	// ErrInconsistentDimension indicates a named core dimension resolved to
	// conflicting sizes, either across input arguments or between the declared
	// outputs and what the core function actually returned.
	ErrInconsistentDimension = errors.New("inconsistent size for named core dimension")

	// ErrBroadcast indicates the batch (non-core) prefixes of the arguments
	// cannot be broadcast to a common shape.
	ErrBroadcast = errors.New("shapes are not broadcast-compatible")

	// ErrAxisNotSupported indicates an explicit axis was given for a signature
	// with more than one distinct core dimension name, for which "the" core
	// axis is ambiguous.
	ErrAxisNotSupported = errors.New("explicit axis requires a signature with exactly one distinct core dimension")
)
