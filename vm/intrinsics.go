package vm

import (
	"sort"
)

// ---------------------------------------------------------------------------
// Host functions
// ---------------------------------------------------------------------------

// Arg is one evaluated argument to an intrinsic. String literals are passed
// through unevaluated.
type Arg struct {
	Value    int
	Str      string
	IsString bool
}

// Intrinsic is a host function callable from Little C. A non-nil error
// aborts the run with ErrIntrinsic.
type Intrinsic func(args []Arg) (int, error)

// Intrinsics resolves host function names. Intrinsics are consulted before
// the program's own functions.
type Intrinsics interface {
	Lookup(name string) (Intrinsic, bool)
}

// IntrinsicTable is a fixed set of intrinsics.
type IntrinsicTable map[string]Intrinsic

func (t IntrinsicTable) Lookup(name string) (Intrinsic, bool) {
	fn, ok := t[name]
	return fn, ok
}

// Names returns the table's function names, sorted.
func (t IntrinsicTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type chain []Intrinsics

func (c chain) Lookup(name string) (Intrinsic, bool) {
	for _, set := range c {
		if set == nil {
			continue
		}
		if fn, ok := set.Lookup(name); ok {
			return fn, true
		}
	}
	return nil, false
}

// Chain combines intrinsic sets. Earlier sets shadow later ones.
func Chain(sets ...Intrinsics) Intrinsics {
	return chain(sets)
}
