// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

import (
	"slices"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/gufunc/shapes"
)

// shapeArray carries only a shape: enough for an Engine that checks the
// vectorization pipeline symbolically, without any data.
type shapeArray struct {
	dims shapes.Shape
}

// shapeFn builds a core Func over shapeArray from the output shapes it
// should produce.
func shapeFn(outDims ...shapes.Shape) Func[shapeArray] {
	return func(args []shapeArray) []shapeArray {
		outs := make([]shapeArray, len(outDims))
		for ii, dims := range outDims {
			outs[ii] = shapeArray{dims.Clone()}
		}
		return outs
	}
}

type shapeEngine struct{}

func (shapeEngine) Shape(x shapeArray) shapes.Shape { return x.dims }

func (shapeEngine) BroadcastTo(x shapeArray, target shapes.Shape) shapeArray {
	return shapeArray{target.Clone()}
}

func (shapeEngine) MoveAxis(x shapeArray, source, target int) shapeArray {
	dims := x.dims.Clone()
	if source < 0 {
		source += len(dims)
	}
	if target < 0 {
		target += len(dims)
	}
	moved := dims[source]
	dims = slices.Delete(dims, source, source+1)
	dims = slices.Insert(dims, target, moved)
	return shapeArray{dims}
}

func (shapeEngine) Batch(fn Func[shapeArray]) Func[shapeArray] {
	return func(args []shapeArray) []shapeArray {
		n := args[0].dims.Dim(0)
		sub := make([]shapeArray, len(args))
		for ii, arg := range args {
			sub[ii] = shapeArray{arg.dims[1:].Clone()}
		}
		outs := fn(sub)
		for ii, out := range outs {
			outs[ii] = shapeArray{shapes.Concat(shapes.Shape{n}, out.dims)}
		}
		return outs
	}
}

func TestAdjustAxisToRank(t *testing.T) {
	assert.Equal(t, 0, adjustAxisToRank(0, 3))
	assert.Equal(t, 2, adjustAxisToRank(2, 3))
	assert.Equal(t, 2, adjustAxisToRank(-1, 3))
	assert.Equal(t, 0, adjustAxisToRank(-3, 3))
	// Out of range values pass through for the caller to diagnose.
	assert.Equal(t, 3, adjustAxisToRank(3, 3))
	assert.Equal(t, -1, adjustAxisToRank(-4, 3))
}

func TestCheckAxisSupported(t *testing.T) {
	mustParse := func(text string) *Signature {
		sig, err := ParseSignature(text)
		require.NoError(t, err)
		return sig
	}
	require.NoError(t, checkAxisSupported(mustParse("(n),(n)->(n)")))
	require.NoError(t, checkAxisSupported(mustParse("(n)->(),(n)")))

	for _, text := range []string{"()->()", "(m,n)->()", "(m),(n)->()", "(n)->(m)"} {
		err := checkAxisSupported(mustParse(text))
		require.Errorf(t, err, "signature %q", text)
		assert.Truef(t, errors.Is(err, ErrAxisNotSupported), "signature %q: %v", text, err)
	}
}

func TestRebindBeforeAndAfter(t *testing.T) {
	engine := shapeEngine{}
	sig, err := ParseSignature("(n),()->(),(n)")
	require.NoError(t, err)

	// The (n) argument gets axis 0 moved to the end; the scalar-core argument
	// is untouched, whatever its rank.
	args := []shapeArray{{shapes.Make(3, 4, 5)}, {shapes.Make(7)}}
	rebound, err := rebindBefore[shapeArray](engine, sig, 0, args)
	require.NoError(t, err)
	assert.Equal(t, shapes.Make(4, 5, 3), rebound[0].dims)
	assert.Equal(t, shapes.Make(7), rebound[1].dims)

	// Negative axis counts from the end; -1 is a no-op move.
	rebound, err = rebindBefore[shapeArray](engine, sig, -1, args)
	require.NoError(t, err)
	assert.Equal(t, shapes.Make(3, 4, 5), rebound[0].dims)

	// The axis is validated only against arguments that declare a core
	// dimension.
	_, err = rebindBefore[shapeArray](engine, sig, 3, args)
	require.Error(t, err)
	_, err = rebindBefore[shapeArray](engine, sig, -4, args)
	require.Error(t, err)

	// rebindAfter moves the trailing core dimension back to the axis on
	// non-scalar outputs only.
	results := []shapeArray{{shapes.Make(4, 5)}, {shapes.Make(4, 5, 3)}}
	rebound, err = rebindAfter[shapeArray](engine, sig, 0, results)
	require.NoError(t, err)
	assert.Equal(t, shapes.Make(4, 5), rebound[0].dims)
	assert.Equal(t, shapes.Make(3, 4, 5), rebound[1].dims)
}
