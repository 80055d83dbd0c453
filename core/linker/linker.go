// Package linker resolves references from one configuration domain into
// names declared by another.
//
// The validator never loads other domains' documents. Callers build a
// Registry (typically with Collect over a gateway config) and hand it in as
// a Resolver, which keeps each domain testable with a stub.
package linker

// Resolver answers whether value is a known name for the reference target.
type Resolver interface {
	Resolve(target, value string) bool
}

// Func adapts a function to a Resolver.
type Func func(target, value string) bool

// Resolve calls f.
func (f Func) Resolve(target, value string) bool {
	return f(target, value)
}

// Chain resolves a reference if any of its members does. Nil members are
// skipped.
func Chain(resolvers ...Resolver) Resolver {
	return chain(resolvers)
}

type chain []Resolver

func (c chain) Resolve(target, value string) bool {
	for _, r := range c {
		if r != nil && r.Resolve(target, value) {
			return true
		}
	}
	return false
}

// None resolves nothing.
var None Resolver = Func(func(string, string) bool { return false })
