// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gufunc

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// The gufunc signature grammar, bit for bit:
//
//	signature := groups "->" groups
//	groups    := group ("," group)*
//	group     := "(" [name ("," name)*] ")"
//	name      := [A-Za-z0-9_]+
//
// No whitespace is permitted anywhere. An empty group "()" declares a rank-0
// (scalar) core.
const (
	reDimListPattern = `(?:\w+(?:,\w+)*)?`
	reGroupPattern   = `\(` + reDimListPattern + `\)`
	reGroupsPattern  = reGroupPattern + `(?:,` + reGroupPattern + `)*`
)

var (
	reSignature = regexp.MustCompile(`^` + reGroupsPattern + `->` + reGroupsPattern + `$`)
	reGroup     = regexp.MustCompile(reGroupPattern)
)

// Signature is the parsed form of a gufunc signature such as "(n,m),(m)->(n)":
// for each input and output group, the ordered list of its core dimension
// names. It is immutable after parsing and can be shared freely.
//
// Build one with ParseSignature, or let New parse the text form directly.
type Signature struct {
	text    string
	inputs  [][]string
	outputs [][]string

	// coreDimNames holds the distinct core dimension names across all groups,
	// in order of first appearance.
	coreDimNames []string
}

// ParseSignature parses a textual gufunc signature into its per-group core
// dimension lists.
//
// It returns an error wrapping ErrInvalidSignature if the text does not match
// the grammar (see the grammar comment above): for example "(n),(n)->()" is
// valid, while "(n) -> ()" (whitespace) and "n->()" (missing parentheses)
// are not. Parsing is deterministic and done once per signature, never per
// call.
func ParseSignature(text string) (*Signature, error) {
	if strings.IndexFunc(text, unicode.IsSpace) >= 0 {
		return nil, errors.Wrapf(ErrInvalidSignature, "%q contains whitespace, which the signature grammar does not allow", text)
	}
	if !reSignature.MatchString(text) {
		return nil, errors.Wrapf(ErrInvalidSignature, "%q is not a valid gufunc signature, expected something like \"(n,m),(m)->(n)\"", text)
	}
	inOut := strings.SplitN(text, "->", 2)
	s := &Signature{
		text:    text,
		inputs:  parseGroups(inOut[0]),
		outputs: parseGroups(inOut[1]),
	}
	seen := make(map[string]bool)
	for _, groups := range [2][][]string{s.inputs, s.outputs} {
		for _, dims := range groups {
			for _, name := range dims {
				if !seen[name] {
					seen[name] = true
					s.coreDimNames = append(s.coreDimNames, name)
				}
			}
		}
	}
	return s, nil
}

// parseGroups splits one side of an already validated signature into its
// groups' dimension names.
func parseGroups(side string) [][]string {
	groups := reGroup.FindAllString(side, -1)
	result := make([][]string, len(groups))
	for ii, group := range groups {
		inner := group[1 : len(group)-1]
		if inner == "" {
			result[ii] = []string{}
			continue
		}
		result[ii] = strings.Split(inner, ",")
	}
	return result
}

// String returns the canonical signature text.
func (s *Signature) String() string { return s.text }

// NumInputs returns the number of input groups, the arity of the vectorized
// call.
func (s *Signature) NumInputs() int { return len(s.inputs) }

// NumOutputs returns the number of output groups, the number of arrays a
// vectorized call returns.
func (s *Signature) NumOutputs() int { return len(s.outputs) }

// Inputs returns a copy of the core dimension names declared per input group.
func (s *Signature) Inputs() [][]string { return copyGroups(s.inputs) }

// Outputs returns a copy of the core dimension names declared per output
// group.
func (s *Signature) Outputs() [][]string { return copyGroups(s.outputs) }

// singleCoreDim returns the unique core dimension name, if there is exactly
// one distinct name across all input and output groups. Explicit-axis calls
// are only defined for such signatures.
func (s *Signature) singleCoreDim() (name string, ok bool) {
	if len(s.coreDimNames) != 1 {
		return "", false
	}
	return s.coreDimNames[0], true
}

func copyGroups(groups [][]string) [][]string {
	result := make([][]string, len(groups))
	for ii, dims := range groups {
		result[ii] = append([]string{}, dims...)
	}
	return result
}
