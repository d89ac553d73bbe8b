package lang

import (
	"sort"
	"sync"
)

// GrammarNode is one rule of a language grammar. A node lists the operator
// tokens it introduces itself and the bracket pairs its scanner skips over.
type GrammarNode struct {
	Name      string
	Operators []string
	// Skip holds opening and closing bracket pairs such as "()".
	Skip     []string
	Children []*GrammarNode
}

// nodeSets holds the derived token sets of one node.
type nodeSets struct {
	once sync.Once
	ops  []string
	skip []string
}

// Grammar is a grammar tree plus the lazily derived token sets of its
// nodes. The sets are computed at most once per node and are safe to read
// from several goroutines.
type Grammar struct {
	Root *GrammarNode

	mu   sync.Mutex
	sets map[*GrammarNode]*nodeSets
}

// NewGrammar wraps root.
func NewGrammar(root *GrammarNode) *Grammar {
	return &Grammar{Root: root, sets: make(map[*GrammarNode]*nodeSets)}
}

func (g *Grammar) setsOf(n *GrammarNode) *nodeSets {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sets[n]
	if !ok {
		s = &nodeSets{}
		g.sets[n] = s
	}
	return s
}

// Operators returns every operator token reachable from n, longest first,
// so scanners can take the longest match.
func (g *Grammar) Operators(n *GrammarNode) []string {
	s := g.setsOf(n)
	s.once.Do(func() { g.derive(n, s) })
	return s.ops
}

// SkipPairs returns every bracket pair reachable from n.
func (g *Grammar) SkipPairs(n *GrammarNode) []string {
	s := g.setsOf(n)
	s.once.Do(func() { g.derive(n, s) })
	return s.skip
}

func (g *Grammar) derive(n *GrammarNode, s *nodeSets) {
	ops := make(map[string]bool)
	skip := make(map[string]bool)
	visited := make(map[*GrammarNode]bool)
	var walk func(*GrammarNode)
	walk = func(n *GrammarNode) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		for _, op := range n.Operators {
			ops[op] = true
		}
		for _, p := range n.Skip {
			skip[p] = true
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	s.ops = sortedKeys(ops)
	sort.SliceStable(s.ops, func(i, j int) bool { return len(s.ops[i]) > len(s.ops[j]) })
	s.skip = sortedKeys(skip)
}

// Find returns the first node called name in depth-first order.
func (g *Grammar) Find(name string) *GrammarNode {
	visited := make(map[*GrammarNode]bool)
	var find func(*GrammarNode) *GrammarNode
	find = func(n *GrammarNode) *GrammarNode {
		if n == nil || visited[n] {
			return nil
		}
		visited[n] = true
		if n.Name == name {
			return n
		}
		for _, c := range n.Children {
			if r := find(c); r != nil {
				return r
			}
		}
		return nil
	}
	return find(g.Root)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
