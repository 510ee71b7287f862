package cpo

import "fmt"

// NameGenerator hands out sequential names for a kind of object ("Chan",
// "Proc", "Sem", ...) when the caller didn't supply one, mirroring the
// original's per-kind name sequence.
type NameGenerator struct {
	kind    string
	occurs  AtomicCounter
}

// NewNameGenerator returns a generator for the given kind.
func NewNameGenerator(kind string) *NameGenerator {
	return &NameGenerator{kind: kind}
}

func (g *NameGenerator) genName(name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s-%d", g.kind, g.occurs.Next())
}

// Named is embedded by anything that carries a debug-visible name.
type Named struct {
	name string
}

// Name returns the object's name, or "<anonymous>" if none was ever set.
func (n *Named) Name() string {
	if n.name == "" {
		return "<anonymous>"
	}
	return n.name
}

// SetName assigns a name directly.
func (n *Named) SetName(name string) { n.name = name }

// String satisfies fmt.Stringer with the current name.
func (n *Named) String() string { return n.Name() }
