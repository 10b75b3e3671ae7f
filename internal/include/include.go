// Package include accumulates "also return related data" chains and
// renders them as a single include directive.
//
//	include.New().
//		Include("weekPlans").ThenInclude("weekPlanSets").
//		Include("exercise").ThenInclude("muscles").
//		Render()   // "weekplans.weekplansets,exercise.muscles"
//
// The directive is not part of any query dialect; callers carry it as a
// separate "include" query parameter.
package include

import (
	"errors"
	"slices"
	"strings"

	"github.com/roach88/remoteq/internal/dialect"
	"github.com/roach88/remoteq/internal/queryir"
)

// Key is the query parameter that carries the rendered directive.
const Key = "include"

// ErrNoChain is returned by Render when ThenInclude was called before any
// Include started a chain.
var ErrNoChain = errors.New("include: ThenInclude called before Include")

// ErrEmptyField is returned by Render when a segment normalizes to an
// empty field reference.
var ErrEmptyField = errors.New("include: empty field reference")

// Chain is one ordered navigation path.
type Chain []queryir.FieldRef

// String joins the chain's segments with '.'.
func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, seg := range c {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ".")
}

// Builder is an immutable accumulator of include chains. The zero value is
// an empty builder.
//
// Collection and scalar navigations render identically; the only thing
// that matters is whether a call starts a chain (Include) or continues the
// most recently started one (ThenInclude).
type Builder struct {
	chains []Chain
	err    error
}

// New returns an empty Builder.
func New() Builder {
	return Builder{}
}

// Include starts a new chain at field.
func (b Builder) Include(field string) Builder {
	ref := queryir.Field(field)
	out := b.clone()
	if ref.IsEmpty() {
		out.fail(ErrEmptyField)
		return out
	}
	out.chains = append(out.chains, Chain{ref})
	return out
}

// ThenInclude extends the most recently started chain with field.
func (b Builder) ThenInclude(field string) Builder {
	ref := queryir.Field(field)
	out := b.clone()
	switch {
	case len(out.chains) == 0:
		out.fail(ErrNoChain)
		return out
	case ref.IsEmpty():
		out.fail(ErrEmptyField)
		return out
	}
	last := len(out.chains) - 1
	// Copy the active chain so a sibling builder sharing it is unaffected.
	out.chains[last] = append(slices.Clone(out.chains[last]), ref)
	return out
}

// Chains returns a copy of the accumulated chains in first-started order.
func (b Builder) Chains() []Chain {
	out := make([]Chain, len(b.chains))
	for i, c := range b.chains {
		out[i] = slices.Clone(c)
	}
	return out
}

// IsEmpty reports whether no chain has been started.
func (b Builder) IsEmpty() bool {
	return len(b.chains) == 0
}

// Err returns the first error recorded by Include or ThenInclude.
func (b Builder) Err() error {
	return b.err
}

// Render joins every chain with '.' and the chains with ','. Chains that
// render identically collapse to their first occurrence.
func (b Builder) Render() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	seen := make(map[string]struct{}, len(b.chains))
	parts := make([]string, 0, len(b.chains))
	for _, c := range b.chains {
		s := c.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		parts = append(parts, s)
	}
	return strings.Join(parts, ","), nil
}

// Param returns the encoded "include=..." query parameter, or "" when no
// chain has been started.
func (b Builder) Param() (string, error) {
	s, err := b.Render()
	if err != nil || s == "" {
		return "", err
	}
	return Key + "=" + dialect.Escape(s), nil
}

func (b Builder) clone() Builder {
	return Builder{chains: slices.Clone(b.chains), err: b.err}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
