// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		text    string
		inputs  [][]string
		outputs [][]string
	}{
		{"()->()", [][]string{{}}, [][]string{{}}},
		{"(n)->()", [][]string{{"n"}}, [][]string{{}}},
		{"(n),(n)->()", [][]string{{"n"}, {"n"}}, [][]string{{}}},
		{"(m,n),(n,p)->(m,p)", [][]string{{"m", "n"}, {"n", "p"}}, [][]string{{"m", "p"}}},
		{"(n)->(),(n)", [][]string{{"n"}}, [][]string{{}, {"n"}}},
		{"(),()->()", [][]string{{}, {}}, [][]string{{}}},
		{"(a_1,B2)->(B2)", [][]string{{"a_1", "B2"}}, [][]string{{"B2"}}},
		{"(i,j,k)->(k,j,i),(j)", [][]string{{"i", "j", "k"}}, [][]string{{"k", "j", "i"}, {"j"}}},
	}
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			sig, err := ParseSignature(test.text)
			require.NoError(t, err)
			assert.Equal(t, test.text, sig.String())
			assert.Equal(t, test.inputs, sig.Inputs())
			assert.Equal(t, test.outputs, sig.Outputs())
			assert.Equal(t, len(test.inputs), sig.NumInputs())
			assert.Equal(t, len(test.outputs), sig.NumOutputs())
		})
	}
}

func TestParseSignature_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"()",            // No outputs.
		"()->",          // Empty output side.
		"->()",          // Empty input side.
		"n->()",         // Missing parentheses.
		"(n)->n",        // Missing parentheses on the output.
		"(n) ->()",      // Whitespace.
		"( n)->()",      // Whitespace inside a group.
		"(n),->()",      // Trailing comma after a group.
		"(n,)->()",      // Trailing comma inside a group.
		"(,n)->()",      // Leading comma inside a group.
		"(n)->()->()",   // Two arrows.
		"(n)->()extra",  // Trailing garbage.
		"(n-m)->()",     // Bad character in a name.
		"(n)(m)->()",    // Missing comma between groups.
		"((n))->()",     // Nested parentheses.
	}
	for _, text := range invalid {
		sig, err := ParseSignature(text)
		assert.Nilf(t, sig, "ParseSignature(%q)", text)
		require.Errorf(t, err, "ParseSignature(%q)", text)
		assert.Truef(t, errors.Is(err, ErrInvalidSignature), "ParseSignature(%q): %v", text, err)
	}
}

func TestSignature_CopiesAreIndependent(t *testing.T) {
	sig, err := ParseSignature("(m,n)->(n)")
	require.NoError(t, err)
	inputs := sig.Inputs()
	inputs[0][0] = "mutated"
	assert.Equal(t, [][]string{{"m", "n"}}, sig.Inputs())
	outputs := sig.Outputs()
	outputs[0] = nil
	assert.Equal(t, [][]string{{"n"}}, sig.Outputs())
}

func TestSignature_SingleCoreDim(t *testing.T) {
	tests := []struct {
		text string
		name string
		ok   bool
	}{
		{"(n)->()", "n", true},
		{"(n),(n)->(n)", "n", true},
		{"(n)->(),(n)", "n", true},
		{"()->()", "", false},         // No names at all.
		{"(m,n)->()", "", false},      // Two names in one group.
		{"(m),(n)->()", "", false},    // Two names across groups.
		{"(n)->(m)", "", false},       // Output introduces a second name.
	}
	for _, test := range tests {
		sig, err := ParseSignature(test.text)
		require.NoError(t, err)
		name, ok := sig.singleCoreDim()
		assert.Equalf(t, test.ok, ok, "singleCoreDim(%q)", test.text)
		assert.Equalf(t, test.name, name, "singleCoreDim(%q)", test.text)
	}
}
