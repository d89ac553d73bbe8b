package ids

import (
	"fmt"
	"sort"

	"fortio.org/safecast"

	"tessera/internal/diag"
	"tessera/internal/source"
)

// Assembly is the identity of one compilation unit.
type Assembly struct {
	Index     int
	Name      string
	DescName  string
	Signature uint32
	Global    ContainerID
	// Children are the indices of referenced assemblies.
	Children []int
	// Ids maps content positions to identifiers of loaded assemblies.
	Ids    map[int]ID
	Path   string
	Loaded bool
}

// Options configures a new graph.
type Options struct {
	AssemblyName string
	Signature    uint32
	// PointerSize is the byte size of pointers and references.
	PointerSize int
	Reporter    diag.Reporter
	// SelfName and BaseName are the language's names of the implicit
	// self and base variables inside member functions.
	SelfName string
	BaseName string
	// Predeclared maps language names to builtin core names ("int" -> "int32").
	Predeclared map[string]string
	// ConvertParametersToTuple lets N unnamed arguments match one tuple parameter.
	ConvertParametersToTuple bool
}

// Builtins holds the handles of the builtin types.
type Builtins struct {
	Void, Auto, Bool, Char, String, Object     ID
	ValueTypeBase, EnumBase, TupleBase         ID
	Int8, Int16, Int32, Int64                  ID
	UInt8, UInt16, UInt32, UInt64              ID
	Float32, Float64                           ID
}

// Graph is the arena of identifiers and containers plus the assemblies
// they belong to. It is not safe for concurrent mutation.
type Graph struct {
	ids        []*Identifier
	containers []*Container
	Assemblies []*Assembly
	Current    int

	Builtins    Builtins
	builtinList []ID
	builtinName map[string]ID

	Opts     Options
	Reporter diag.Reporter

	interned map[string]ID
	nsIndex  map[string][]ContainerID

	nextGlobalPointer int
	nextFuncTable     int
}

// NewGraph creates a graph holding the assembly being compiled and the
// builtin types.
func NewGraph(opts Options) *Graph {
	if opts.PointerSize <= 0 {
		opts.PointerSize = 8
	}
	if opts.AssemblyName == "" {
		opts.AssemblyName = "main"
	}
	g := &Graph{
		ids:         make([]*Identifier, 1, 256), // index 0 reserved for NoID
		containers:  make([]*Container, 1, 64),   // index 0 reserved for NoContainer
		builtinName: make(map[string]ID),
		interned:    make(map[string]ID),
		nsIndex:     make(map[string][]ContainerID),
		Opts:        opts,
		Reporter:    opts.Reporter,
	}
	if g.Reporter == nil {
		g.Reporter = diag.NopReporter{}
	}
	g.Current = g.NewAssembly(opts.AssemblyName, opts.Signature)
	g.createBuiltins()
	return g
}

// NewAssembly registers an assembly with its own global container.
func (g *Graph) NewAssembly(name string, signature uint32) int {
	idx := len(g.Assemblies)
	a := &Assembly{
		Index:     idx,
		Name:      name,
		DescName:  DescName(name),
		Signature: signature,
		Ids:       make(map[int]ID),
	}
	g.Assemblies = append(g.Assemblies, a)
	a.Global = g.newContainer(ContainerGlobal, NoContainer, NoID, idx)
	return idx
}

// Global returns the global container of the assembly being compiled.
func (g *Graph) Global() ContainerID {
	return g.Assemblies[g.Current].Global
}

// AssemblyByName finds an assembly by name.
func (g *Graph) AssemblyByName(name string) *Assembly {
	for _, a := range g.Assemblies {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Id returns the identifier or nil for an invalid handle.
func (g *Graph) Id(id ID) *Identifier {
	if !id.IsValid() || int(id) >= len(g.ids) {
		return nil
	}
	return g.ids[id]
}

// C returns the container or nil for an invalid handle.
func (g *Graph) C(c ContainerID) *Container {
	if !c.IsValid() || int(c) >= len(g.containers) {
		return nil
	}
	return g.containers[c]
}

// Len reports the number of identifiers excluding the sentinel.
func (g *Graph) Len() int { return len(g.ids) - 1 }

// All returns every identifier handle in allocation order.
func (g *Graph) All() []ID {
	out := make([]ID, 0, len(g.ids)-1)
	for i := 1; i < len(g.ids); i++ {
		out = append(out, ID(i)) // #nosec G115 -- arena length is checked on allocation
	}
	return out
}

// Containers returns every container handle in allocation order.
func (g *Graph) Containers() []ContainerID {
	out := make([]ContainerID, 0, len(g.containers)-1)
	for i := 1; i < len(g.containers); i++ {
		out = append(out, ContainerID(i)) // #nosec G115
	}
	return out
}

// New allocates an identifier of kind owned by container c. The
// identifier is not visible to lookups until DeclareIdentifier admits it.
func (g *Graph) New(kind Kind, c ContainerID, name source.CodeString) ID {
	value, err := safecast.Conv[uint32](len(g.ids))
	if err != nil {
		panic(fmt.Errorf("identifier arena overflow: %w", err))
	}
	id := ID(value)
	asm := g.Current
	if cont := g.C(c); cont != nil {
		asm = cont.Assembly
	}
	ident := &Identifier{
		ID:        id,
		Kind:      kind,
		Container: c,
		Name:      name,
		Real:      id,
		Assembly:  asm,
	}
	switch {
	case kind.IsStructured(), kind == KindTuple, kind == KindPointerAndLength, kind == KindNonstaticFunctionType:
		ident.Struct = &StructInfo{FunctionTableIndex: -1}
	case kind.IsFunction():
		ident.Func = &FuncInfo{OverloadIndex: -1, VirtualIndex: -1, GlobalPointerIndex: -1}
	case kind.IsVariable():
		ident.Var = &VarInfo{LocalIndex: -1, GlobalIndex: -1}
	case kind == KindProperty:
		ident.Prop = &PropInfo{}
	case kind == KindAlias:
		ident.Real = NoID
	}
	g.ids = append(g.ids, ident)
	return id
}

// NewContainer creates a scope nested in parent. When owner is valid the
// owner's Scope is pointed at the new container.
func (g *Graph) NewContainer(kind ContainerKind, parent ContainerID, owner ID) ContainerID {
	asm := g.Current
	if p := g.C(parent); p != nil {
		asm = p.Assembly
	}
	return g.newContainer(kind, parent, owner, asm)
}

func (g *Graph) newContainer(kind ContainerKind, parent ContainerID, owner ID, asm int) ContainerID {
	value, err := safecast.Conv[uint32](len(g.containers))
	if err != nil {
		panic(fmt.Errorf("container arena overflow: %w", err))
	}
	c := ContainerID(value)
	cont := &Container{
		ID:        c,
		Kind:      kind,
		Parent:    parent,
		Owner:     owner,
		Assembly:  asm,
		names:     make(map[string][]ID),
		overloads: make(map[string]*FunctionOverloads),
	}
	if p := g.C(parent); p != nil {
		p.Children = append(p.Children, c)
		cont.FunctionScope = p.FunctionScope
	}
	if kind == ContainerFunction {
		cont.FunctionScope = c
	}
	if fn := g.C(cont.FunctionScope); fn != nil {
		cont.LocalIndex = fn.localCounter
	}
	g.containers = append(g.containers, cont)
	if ident := g.Id(owner); ident != nil {
		ident.Scope = c
	}
	return c
}

// Real follows alias redirects. It returns NoID for an unresolved alias.
func (g *Graph) Real(id ID) ID {
	for range 64 {
		ident := g.Id(id)
		if ident == nil {
			return NoID
		}
		if ident.Real == id {
			return id
		}
		id = ident.Real
	}
	diag.Fatalf("alias chain of %d does not terminate", id)
	return NoID
}

// Kind returns the kind of the real identifier.
func (g *Graph) Kind(id ID) Kind {
	if ident := g.Id(g.Real(id)); ident != nil {
		return ident.Kind
	}
	return KindInvalid
}

// TypeOf returns the real type of a typed identifier.
func (g *Graph) TypeOf(id ID) ID {
	ident := g.Id(g.Real(id))
	if ident == nil {
		return NoID
	}
	if ident.Kind.IsType() {
		return ident.ID
	}
	return g.Real(ident.TypeOfSelf())
}

// NextGlobalPointerIndex hands out indices of global function pointers.
func (g *Graph) NextGlobalPointerIndex() int {
	i := g.nextGlobalPointer
	g.nextGlobalPointer++
	return i
}

// NextFunctionTableIndex hands out indices of materialised virtual tables.
func (g *Graph) NextFunctionTableIndex() int {
	i := g.nextFuncTable
	g.nextFuncTable++
	return i
}

var builtinDefs = []struct {
	name string
	kind Kind
	size int
	dst  func(b *Builtins) *ID
}{
	{"void", KindVoid, 0, func(b *Builtins) *ID { return &b.Void }},
	{"auto", KindAuto, 0, func(b *Builtins) *ID { return &b.Auto }},
	{"bool", KindBool, 1, func(b *Builtins) *ID { return &b.Bool }},
	{"char", KindChar, 2, func(b *Builtins) *ID { return &b.Char }},
	{"string", KindString, 0, func(b *Builtins) *ID { return &b.String }},
	{"object", KindObject, 0, func(b *Builtins) *ID { return &b.Object }},
	{"%ValueType", KindValueTypeBase, 0, func(b *Builtins) *ID { return &b.ValueTypeBase }},
	{"%Enum", KindEnumBase, 0, func(b *Builtins) *ID { return &b.EnumBase }},
	{"%Tuple", KindTupleBase, 0, func(b *Builtins) *ID { return &b.TupleBase }},
	{"int8", KindSigned, 1, func(b *Builtins) *ID { return &b.Int8 }},
	{"int16", KindSigned, 2, func(b *Builtins) *ID { return &b.Int16 }},
	{"int32", KindSigned, 4, func(b *Builtins) *ID { return &b.Int32 }},
	{"int64", KindSigned, 8, func(b *Builtins) *ID { return &b.Int64 }},
	{"uint8", KindUnsigned, 1, func(b *Builtins) *ID { return &b.UInt8 }},
	{"uint16", KindUnsigned, 2, func(b *Builtins) *ID { return &b.UInt16 }},
	{"uint32", KindUnsigned, 4, func(b *Builtins) *ID { return &b.UInt32 }},
	{"uint64", KindUnsigned, 8, func(b *Builtins) *ID { return &b.UInt64 }},
	{"float32", KindFloat, 4, func(b *Builtins) *ID { return &b.Float32 }},
	{"float64", KindFloat, 8, func(b *Builtins) *ID { return &b.Float64 }},
}

// Builtins are declared in the global container of the assembly being
// compiled and never serialized; assemblies refer to them by ordinal.
func (g *Graph) createBuiltins() {
	global := g.Global()
	for _, def := range builtinDefs {
		id := g.New(def.kind, global, source.FreeString(def.name))
		ident := g.Id(id)
		ident.Access = AccessPublic
		ident.Flags = FlagBuiltin
		ident.Type.Size = def.size
		ident.Declared = true
		*def.dst(&g.Builtins) = id
		g.builtinList = append(g.builtinList, id)
		g.builtinName[def.name] = id
		cont := g.C(global)
		cont.Ids = append(cont.Ids, id)
		cont.names[def.name] = append(cont.names[def.name], id)
	}
}

// BuiltinOrdinal returns the position of a builtin in the fixed builtin list.
func (g *Graph) BuiltinOrdinal(id ID) (int, bool) {
	for i, b := range g.builtinList {
		if b == id {
			return i, true
		}
	}
	return -1, false
}

// BuiltinAt returns the builtin with the given ordinal.
func (g *Graph) BuiltinAt(ordinal int) ID {
	if ordinal < 0 || ordinal >= len(g.builtinList) {
		return NoID
	}
	return g.builtinList[ordinal]
}

// BuiltinByName returns a builtin by its core name.
func (g *Graph) BuiltinByName(name string) ID {
	return g.builtinName[name]
}

// SignedOfSize returns the signed builtin with the given byte size.
func (g *Graph) SignedOfSize(size int) ID {
	return g.builtinName[fmt.Sprintf("int%d", size*8)]
}

// UnsignedOfSize returns the unsigned builtin with the given byte size.
func (g *Graph) UnsignedOfSize(size int) ID {
	return g.builtinName[fmt.Sprintf("uint%d", size*8)]
}

// FloatOfSize returns the float builtin with the given byte size.
func (g *Graph) FloatOfSize(size int) ID {
	return g.builtinName[fmt.Sprintf("float%d", size*8)]
}

// NativeInt is the signed integer as wide as a pointer.
func (g *Graph) NativeInt() ID { return g.SignedOfSize(g.Opts.PointerSize) }

// NativeUInt is the unsigned integer as wide as a pointer.
func (g *Graph) NativeUInt() ID { return g.UnsignedOfSize(g.Opts.PointerSize) }

// ensurePredeclared declares the language's predeclared aliases in a global
// container the first time a lookup reaches it.
func (g *Graph) ensurePredeclared(global ContainerID) {
	cont := g.C(global)
	if cont.predeclaredSet {
		return
	}
	cont.predeclaredSet = true
	names := make([]string, 0, len(g.Opts.Predeclared))
	for name := range g.Opts.Predeclared {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		target := g.builtinName[g.Opts.Predeclared[name]]
		if !target.IsValid() || len(cont.names[name]) > 0 {
			continue
		}
		id := g.New(KindAlias, global, source.FreeString(name))
		ident := g.Id(id)
		ident.Access = AccessPublic
		ident.Flags = FlagBuiltin | FlagSpecialName
		ident.Children = []ID{target}
		ident.Real = target
		ident.Declared = true
		cont.Ids = append(cont.Ids, id)
		cont.names[name] = append(cont.names[name], id)
	}
}

// DescName keeps only identifier characters of name.
func DescName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if source.IsIdentChar(name[i]) {
			out = append(out, name[i])
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
