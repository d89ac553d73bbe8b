package ids

import "tessera/internal/source"

// ContainerKind enumerates scope categories.
type ContainerKind uint8

const (
	ContainerInvalid ContainerKind = iota
	ContainerGlobal
	ContainerNamespace
	ContainerStructured
	ContainerEnum
	ContainerFunction
	ContainerBlock
	ContainerProperty
)

func (k ContainerKind) String() string {
	switch k {
	case ContainerGlobal:
		return "global"
	case ContainerNamespace:
		return "namespace"
	case ContainerStructured:
		return "structured"
	case ContainerEnum:
		return "enum"
	case ContainerFunction:
		return "function"
	case ContainerBlock:
		return "block"
	case ContainerProperty:
		return "property"
	default:
		return "invalid"
	}
}

// IsLocal reports containers that belong to a function body.
func (k ContainerKind) IsLocal() bool { return k == ContainerFunction || k == ContainerBlock }

// FunctionOverloads is the bucket of same-named functions of one container.
type FunctionOverloads struct {
	Name      string
	Functions []ID
}

// Container is a scope node. It references the identifier it was opened
// for (Owner) but lives in its own tree.
type Container struct {
	ID       ContainerID
	Kind     ContainerKind
	Parent   ContainerID
	Children []ContainerID
	// Ids are the declared identifiers in declaration order.
	Ids      []ID
	Owner    ID
	Assembly int
	// FunctionScope is inherited from the parent at construction and never changes.
	FunctionScope ContainerID
	// LocalIndex is the first local slot of this container, fixed at construction.
	LocalIndex int
	// Code holds the raw statements recognizers have not consumed yet.
	Code []source.CodeString

	names     map[string][]ID
	overloads map[string]*FunctionOverloads

	localCounter   int
	selfVar        ID
	baseVar        ID
	predeclaredSet bool
}

// Lookup returns the identifiers declared directly in c under name.
func (c *Container) Lookup(name string) []ID {
	return c.names[name]
}

// Overloads returns the overload bucket for name, or nil.
func (c *Container) Overloads(name string) *FunctionOverloads {
	return c.overloads[name]
}

// OverloadNames returns the names of every overload bucket.
func (c *Container) OverloadNames() []string {
	out := make([]string, 0, len(c.overloads))
	for name := range c.overloads {
		out = append(out, name)
	}
	return out
}

// HasCode reports whether unresolved statements remain.
func (c *Container) HasCode() bool { return len(c.Code) > 0 }

// AllocLocal hands out the next local slot of the enclosing function.
func (g *Graph) AllocLocal(c ContainerID) int {
	fn := g.C(g.C(c).FunctionScope)
	if fn == nil {
		return -1
	}
	idx := fn.localCounter
	fn.localCounter++
	return idx
}

// IsInside reports whether c is inner or one of its descendants.
func (g *Graph) IsInside(c, outer ContainerID) bool {
	for cur := c; cur.IsValid(); cur = g.C(cur).Parent {
		if cur == outer {
			return true
		}
	}
	return false
}

// StructuredScopeOf returns the nearest enclosing structured container.
func (g *Graph) StructuredScopeOf(c ContainerID) ContainerID {
	for cur := c; cur.IsValid(); cur = g.C(cur).Parent {
		if g.C(cur).Kind == ContainerStructured {
			return cur
		}
	}
	return NoContainer
}

// GlobalOf returns the global container c belongs to.
func (g *Graph) GlobalOf(c ContainerID) ContainerID {
	cur := c
	for {
		parent := g.C(cur).Parent
		if !parent.IsValid() {
			return cur
		}
		cur = parent
	}
}

// AddCode appends raw statements to c.
func (g *Graph) AddCode(c ContainerID, code ...source.CodeString) {
	g.C(c).Code = append(g.C(c).Code, code...)
}
