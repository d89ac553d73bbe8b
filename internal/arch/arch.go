// Package arch defines what the compiler needs from a target machine and
// ships a generic machine that emits a textual listing.
package arch

import (
	"context"
	"fmt"
	"go/constant"
	"sort"
	"sync"
	"sync/atomic"

	"tessera/internal/ids"
	"tessera/internal/layout"
)

// Architecture is a compilation target.
type Architecture interface {
	Name() string
	// RegisterSize is the byte width of a general purpose register.
	RegisterSize() int
	// MaxStructPow2Size is the largest instance size rounded up to a power
	// of two; bigger instances round to a multiple of it.
	MaxStructPow2Size() int
	// Target describes the machine to the layout engine.
	Target() layout.Target
	NewCodeGenerator(g *ids.Graph) CodeGenerator
	// Compile generates the output of the assembly being compiled in g.
	// Layouts must be calculated.
	Compile(ctx context.Context, g *ids.Graph) ([]byte, error)
}

// CodeGenerator receives the data and control flow of one output unit.
type CodeGenerator interface {
	// Declare emits storage for a value of typ, initialised with value
	// when it is not nil.
	Declare(typ ids.ID, value constant.Value)
	Align(n int)
	// Symbol starts a named entry point; symbols are never eliminated.
	Symbol(name string)
	Label(l Label)
	Jump(l Label)
	Return()
	Comment(text string)
	// Finish runs the final passes and returns the generated output.
	Finish() []byte
}

// Label is a numbered jump target.
type Label int64

func (l Label) String() string { return fmt.Sprintf(".L%d", int64(l)) }

var (
	labelCounter   int64
	parallelLabels atomic.Bool
)

// SetParallel switches AutoLabel to atomic increments while compilations
// run concurrently.
func SetParallel(on bool) { parallelLabels.Store(on) }

// AutoLabel returns a label no other call has returned.
func AutoLabel() Label {
	if parallelLabels.Load() {
		return Label(atomic.AddInt64(&labelCounter, 1))
	}
	labelCounter++
	return Label(labelCounter)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Architecture{}
)

// Register makes an architecture available by name. Registering a name
// twice panics.
func Register(a Architecture) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[a.Name()]; dup {
		panic("arch: Register called twice for " + a.Name())
	}
	registry[a.Name()] = a
}

// Lookup returns the architecture registered under name.
func Lookup(name string) (Architecture, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := registry[name]
	return a, ok
}

// Names lists the registered architectures in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
