package assembly

import (
	"errors"
	"fmt"
	"go/constant"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"fortio.org/safecast"

	"tessera/internal/datastore"
	"tessera/internal/ids"
	"tessera/internal/source"
)

// Provider supplies the descriptors of referenced assemblies by name.
type Provider interface {
	Open(name string) ([]byte, error)
}

// DirProvider looks for name+Ext in each directory in order.
type DirProvider struct {
	Dirs []string
}

func (p DirProvider) Open(name string) ([]byte, error) {
	for _, dir := range p.Dirs {
		data, err := os.ReadFile(filepath.Join(dir, name+Ext))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("assembly %q: %w", name, fs.ErrNotExist)
}

// Loader reads descriptors into a graph. Referenced assemblies that are
// not loaded yet are requested from Provider.
type Loader struct {
	Graph    *ids.Graph
	Provider Provider

	// loading holds the names on the current load chain.
	loading map[string]bool
}

// NewLoader creates a loader for g. provider may be nil when every
// referenced assembly is loaded beforehand.
func NewLoader(g *ids.Graph, provider Provider) *Loader {
	return &Loader{Graph: g, Provider: provider, loading: make(map[string]bool)}
}

// LoadFile loads the descriptor stored at path.
func (l *Loader) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, err
	}
	idx, err := l.Load(data)
	if err == nil {
		l.Graph.Assemblies[idx].Path = path
	}
	return idx, err
}

// LoadByName returns the loaded assembly called name, loading it through
// the provider first if needed.
func (l *Loader) LoadByName(name string) (int, error) {
	if a := l.Graph.AssemblyByName(name); a != nil && a.Loaded {
		return a.Index, nil
	}
	if l.Provider == nil {
		return -1, fmt.Errorf("assembly %q: %w", name, fs.ErrNotExist)
	}
	data, err := l.Provider.Open(name)
	if err != nil {
		return -1, err
	}
	return l.Load(data)
}

// Load decodes a descriptor and adds its identifiers to the graph under a
// new assembly. The whole input is validated before the graph is touched,
// so a malformed descriptor leaves no partial assembly behind. Loading an
// assembly that is already loaded with the same signature returns it.
func (l *Loader) Load(data []byte) (int, error) {
	ld := &load{l: l, g: l.Graph, r: datastore.NewReader(data), name: "?", positions: make(map[int]bool)}
	hdr, err := ld.header()
	if err != nil {
		return -1, err
	}
	if a := l.Graph.AssemblyByName(hdr.name); a != nil {
		switch {
		case a.Index == l.Graph.Current:
			return -1, ld.fail(0, ErrCyclicAssembly)
		case a.Signature != hdr.signature:
			return -1, ld.fail(0, ErrStaleSignature)
		}
		return a.Index, nil
	}
	if l.loading[hdr.name] {
		return -1, ld.fail(0, ErrCyclicAssembly)
	}
	l.loading[hdr.name] = true
	defer delete(l.loading, hdr.name)

	if err := ld.childAssemblies(hdr.children); err != nil {
		return -1, err
	}
	if err := ld.references(hdr.tableAt); err != nil {
		return -1, err
	}
	content, err := ld.members(ids.ContainerGlobal)
	if err != nil {
		return -1, err
	}
	if ld.r.Pos() != hdr.tableAt {
		return -1, ld.fail(ld.r.Pos(), ErrMissingEnd)
	}
	if err := ld.checkReferences(); err != nil {
		return -1, err
	}

	idx := l.Graph.NewAssembly(hdr.name, hdr.signature)
	ld.asm = l.Graph.Assemblies[idx]
	ld.asm.DescName = hdr.descName
	ld.asm.Children = ld.children
	ld.build(ld.asm.Global, content)
	ld.dereference()
	ld.update()
	ld.asm.Loaded = true
	return idx, nil
}

type header struct {
	tableAt   int
	name      string
	descName  string
	signature uint32
	children  []childRef
}

// Header is the identity part of a descriptor.
type Header struct {
	Name      string
	DescName  string
	Signature uint32
	// Children names the assemblies the descriptor references.
	Children []string
}

// ReadHeader decodes the identity of a descriptor without loading it.
func ReadHeader(data []byte) (Header, error) {
	ld := &load{r: datastore.NewReader(data), name: "?"}
	h, err := ld.header()
	if err != nil {
		return Header{}, err
	}
	out := Header{Name: h.name, DescName: h.descName, Signature: h.signature}
	for _, c := range h.children {
		out.Children = append(out.Children, c.name)
	}
	return out, nil
}

type childRef struct {
	name      string
	signature uint32
}

// placeholder stands for the target of one reference table entry until
// every assembly involved is built.
type placeholder struct {
	asm, pos int
	target   ids.ID
}

// term is a decoded type reference.
type term struct {
	kind   ids.UndeclaredKind
	n      int
	cc     ids.CallConv
	ref    *placeholder
	elem   *term
	names  []string
	types  []*term
	params []paramTerm
}

type paramTerm struct {
	name  string
	flags byte
	typ   *term
	def   constant.Value
}

type baseNode struct {
	typ     *term
	offset  int
	virtual bool
	unreal  bool
}

// node is a decoded identifier.
type node struct {
	pos      int
	decl     ids.DeclaredKind
	kind     ids.Kind
	scope    ids.ContainerKind
	access   ids.Access
	flags    ids.Flags
	name     string
	overload int
	typ      *term
	value    constant.Value

	layout    ids.Layout
	instSize  int
	instAlign int
	guid      string
	bases     []baseNode
	ftIndex   int

	offset      int
	globalIndex int
	asmName     string

	virtual    int
	overridden *placeholder
	globalPtr  int

	members []*node
}

// fieldKind names the identifier field a fixup patches.
type fieldKind uint8

const (
	fieldChild fieldKind = iota
	fieldBase
	fieldOverridden
)

// fixup is a destination waiting for a term to be materialised.
type fixup struct {
	id    ids.ID
	field fieldKind
	slot  int
	term  *term
}

type load struct {
	l    *Loader
	g    *ids.Graph
	r    *datastore.Reader
	name string
	asm  *ids.Assembly

	// children are graph indices; child table entry k is children[k-1].
	children     []int
	placeholders []*placeholder
	positions    map[int]bool
	fixups       []fixup
	created      []ids.ID
}

func (ld *load) fail(offset int, err error) error {
	return &InvalidAssemblyError{Assembly: ld.name, Offset: offset, Err: err}
}

// wrap turns a decoding error at the current position into an
// InvalidAssemblyError.
func (ld *load) wrap(err error) error {
	var ia *InvalidAssemblyError
	if errors.As(err, &ia) {
		return err
	}
	return ld.fail(ld.r.Pos(), err)
}

func (ld *load) uleb(bits uint) (int, error) {
	v, err := ld.r.Uint(bits)
	if err != nil {
		return 0, ld.wrap(err)
	}
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, ld.fail(ld.r.Pos(), ErrInvalidSize)
	}
	return n, nil
}

func (ld *load) sleb() (int, error) {
	v, err := ld.r.Int(64)
	if err != nil {
		return 0, ld.wrap(err)
	}
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, ld.fail(ld.r.Pos(), ErrInvalidSize)
	}
	return n, nil
}

// count reads a list length and rejects lengths the remaining input
// cannot hold.
func (ld *load) count() (int, error) {
	n, err := ld.uleb(32)
	if err != nil {
		return 0, err
	}
	if n > ld.r.Len()-ld.r.Pos() {
		return 0, ld.fail(ld.r.Pos(), ErrInvalidSize)
	}
	return n, nil
}

func (ld *load) str() (string, error) {
	s, err := ld.r.Name()
	if err != nil {
		return "", ld.wrap(err)
	}
	return s, nil
}

func (ld *load) octet() (byte, error) {
	b, err := ld.r.ReadByte()
	if err != nil {
		return 0, ld.wrap(err)
	}
	return b, nil
}

func (ld *load) boolean() (bool, error) {
	b, err := ld.r.Bool()
	if err != nil {
		return false, ld.wrap(err)
	}
	return b, nil
}

func (ld *load) header() (*header, error) {
	if ld.r.Len() < 8 {
		return nil, ld.fail(0, ErrInvalidSize)
	}
	at, err := ld.r.Uint64LE()
	if err != nil {
		return nil, ld.wrap(err)
	}
	h := &header{}
	if h.tableAt, err = safecast.Conv[int](at); err != nil || h.tableAt > ld.r.Len() {
		return nil, ld.fail(0, ErrInvalidSize)
	}
	if h.name, err = ld.str(); err != nil {
		return nil, err
	}
	ld.name = h.name
	if h.descName, err = ld.str(); err != nil {
		return nil, err
	}
	if h.signature, err = ld.r.Uint32LE(); err != nil {
		return nil, ld.wrap(err)
	}
	n, err := ld.count()
	if err != nil {
		return nil, err
	}
	for range n {
		var c childRef
		if c.name, err = ld.str(); err != nil {
			return nil, err
		}
		if c.signature, err = ld.r.Uint32LE(); err != nil {
			return nil, ld.wrap(err)
		}
		h.children = append(h.children, c)
	}
	if ld.r.Pos() > h.tableAt {
		return nil, ld.fail(ld.r.Pos(), ErrInvalidSize)
	}
	return h, nil
}

// childAssemblies resolves every child entry to a loaded assembly with the
// recorded signature.
func (ld *load) childAssemblies(children []childRef) error {
	for _, c := range children {
		idx, err := ld.l.LoadByName(c.name)
		if err != nil {
			return fmt.Errorf("assembly %q: child %q: %w", ld.name, c.name, err)
		}
		if ld.g.Assemblies[idx].Signature != c.signature {
			return ld.fail(0, fmt.Errorf("%w: %s", ErrStaleSignature, c.name))
		}
		ld.children = append(ld.children, idx)
	}
	return nil
}

// references reads the trailing table into placeholders and returns to
// the start of the content.
func (ld *load) references(tableAt int) error {
	content := ld.r.Pos()
	if err := ld.r.Seek(tableAt); err != nil {
		return ld.fail(tableAt, ErrInvalidSize)
	}
	n, err := ld.count()
	if err != nil {
		return err
	}
	ld.placeholders = make([]*placeholder, n)
	for i := range ld.placeholders {
		asm, err := ld.uleb(32)
		if err != nil {
			return err
		}
		pos, err := ld.uleb(32)
		if err != nil {
			return err
		}
		if asm > len(ld.children) {
			return ld.fail(ld.r.Pos(), ErrDanglingRef)
		}
		ld.placeholders[i] = &placeholder{asm: asm, pos: pos}
	}
	if ld.r.Pos() != ld.r.Len() {
		return ld.fail(ld.r.Pos(), ErrInvalidSize)
	}
	return ld.r.Seek(content)
}

// checkReferences verifies that every placeholder points at an identifier.
func (ld *load) checkReferences() error {
	for _, ph := range ld.placeholders {
		ok := false
		if ph.asm == 0 {
			ok = ld.positions[ph.pos]
		} else {
			_, ok = ld.g.Assemblies[ld.children[ph.asm-1]].Ids[ph.pos]
		}
		if !ok {
			return ld.fail(ph.pos, ErrDanglingRef)
		}
	}
	return nil
}

// members decodes identifiers up to the end marker.
func (ld *load) members(in ids.ContainerKind) ([]*node, error) {
	var out []*node
	for {
		tag, err := ld.octet()
		if err != nil {
			return nil, ld.fail(ld.r.Pos(), ErrMissingEnd)
		}
		if ids.DeclaredKind(tag>>4) == ids.DeclEnd {
			return out, nil
		}
		n, err := ld.identifier(tag, in)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
}

func (ld *load) identifier(tag byte, in ids.ContainerKind) (*node, error) {
	n := &node{pos: ld.r.Pos() - 1, decl: ids.DeclaredKind(tag >> 4), access: ids.Access(tag & 0x0f), overload: -1}
	if n.access > ids.AccessPublic {
		return nil, ld.fail(n.pos, ErrUnknownTag)
	}
	ld.positions[n.pos] = true
	flags, err := ld.r.Uint16LE()
	if err != nil {
		return nil, ld.wrap(err)
	}
	n.flags = ids.Flags(flags) & ids.FlagMask
	if flags&flagHasName != 0 {
		if n.name, err = ld.str(); err != nil {
			return nil, err
		}
	}
	if flags&flagHasOverloadIndex != 0 {
		if n.overload, err = ld.uleb(32); err != nil {
			return nil, err
		}
	}
	if err := ld.classify(n, in); err != nil {
		return nil, err
	}

	switch n.decl {
	case ids.DeclNamespace:
		n.members, err = ld.members(n.scope)
	case ids.DeclConst:
		if n.typ, err = ld.typeTerm(); err == nil {
			n.value, err = ld.value()
		}
	case ids.DeclAlias:
		n.typ, err = ld.typeTerm()
	case ids.DeclClass, ids.DeclStruct:
		err = ld.structured(n)
	case ids.DeclEnum, ids.DeclFlag, ids.DeclProperty:
		if n.typ, err = ld.typeTerm(); err == nil {
			n.members, err = ld.members(n.scope)
		}
	case ids.DeclGlobalVar, ids.DeclMemberVar:
		err = ld.variable(n)
	case ids.DeclFunction, ids.DeclConstructor, ids.DeclDestructor:
		err = ld.function(n)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// classify picks the identifier kind and the scope kind of a node.
func (ld *load) classify(n *node, in ids.ContainerKind) error {
	switch n.decl {
	case ids.DeclNamespace:
		n.kind, n.scope = ids.KindNamespace, ids.ContainerNamespace
	case ids.DeclConst:
		n.kind = ids.KindConstVar
	case ids.DeclAlias:
		n.kind = ids.KindAlias
	case ids.DeclClass:
		n.kind, n.scope = ids.KindClass, ids.ContainerStructured
	case ids.DeclStruct:
		n.kind, n.scope = ids.KindStruct, ids.ContainerStructured
	case ids.DeclEnum:
		n.kind, n.scope = ids.KindEnum, ids.ContainerEnum
	case ids.DeclFlag:
		n.kind, n.scope = ids.KindFlag, ids.ContainerEnum
	case ids.DeclGlobalVar:
		n.kind = ids.KindGlobalVar
	case ids.DeclMemberVar:
		n.kind = ids.KindMemberVar
	case ids.DeclFunction:
		n.kind = ids.KindFunction
		if (in == ids.ContainerStructured || in == ids.ContainerProperty) && n.flags&ids.FlagStatic == 0 {
			n.kind = ids.KindMemberFunction
		}
	case ids.DeclConstructor:
		n.kind = ids.KindConstructor
	case ids.DeclDestructor:
		n.kind = ids.KindDestructor
	case ids.DeclProperty:
		n.kind, n.scope = ids.KindProperty, ids.ContainerProperty
	default:
		return ld.fail(n.pos, ErrUnknownTag)
	}
	return nil
}

func (ld *load) structured(n *node) error {
	var err error
	if n.layout.Calculated, err = ld.boolean(); err != nil {
		return err
	}
	for _, dst := range []*int{&n.layout.Size, &n.layout.Align, &n.instSize, &n.instAlign} {
		if *dst, err = ld.uleb(32); err != nil {
			return err
		}
	}
	if n.layout.Calculated && (!datastore.IsPow2(n.layout.Align) || (n.instAlign != 0 && !datastore.IsPow2(n.instAlign))) {
		return ld.fail(n.pos, ErrInvalidAlignment)
	}
	hasGUID, err := ld.boolean()
	if err != nil {
		return err
	}
	if hasGUID {
		if n.guid, err = ld.str(); err != nil {
			return err
		}
	}
	count, err := ld.count()
	if err != nil {
		return err
	}
	n.bases = make([]baseNode, count)
	for i := range n.bases {
		b := &n.bases[i]
		if b.typ, err = ld.typeTerm(); err != nil {
			return err
		}
		if b.offset, err = ld.sleb(); err != nil {
			return err
		}
		f, err := ld.octet()
		if err != nil {
			return err
		}
		b.virtual, b.unreal = f&baseVirtual != 0, f&baseUnreal != 0
	}
	if n.ftIndex, err = ld.sleb(); err != nil {
		return err
	}
	n.members, err = ld.members(n.scope)
	return err
}

func (ld *load) variable(n *node) error {
	var err error
	if n.typ, err = ld.typeTerm(); err != nil {
		return err
	}
	if n.offset, err = ld.sleb(); err != nil {
		return err
	}
	if n.globalIndex, err = ld.sleb(); err != nil {
		return err
	}
	if n.value, err = ld.value(); err != nil {
		return err
	}
	n.asmName, err = ld.str()
	return err
}

func (ld *load) function(n *node) error {
	var err error
	if n.typ, err = ld.typeTerm(); err != nil {
		return err
	}
	if n.virtual, err = ld.sleb(); err != nil {
		return err
	}
	if n.virtual >= 0 {
		has, err := ld.boolean()
		if err != nil {
			return err
		}
		if has {
			if n.overridden, err = ld.ref(); err != nil {
				return err
			}
		}
	}
	if n.globalPtr, err = ld.sleb(); err != nil {
		return err
	}
	n.asmName, err = ld.str()
	return err
}

func (ld *load) ref() (*placeholder, error) {
	idx, err := ld.uleb(32)
	if err != nil {
		return nil, err
	}
	if idx >= len(ld.placeholders) {
		return nil, ld.fail(ld.r.Pos(), ErrDanglingRef)
	}
	return ld.placeholders[idx], nil
}

func (ld *load) typeTerm() (*term, error) {
	at := ld.r.Pos()
	tag, err := ld.octet()
	if err != nil {
		return nil, err
	}
	t := &term{kind: ids.UndeclaredKind(tag)}
	switch t.kind {
	case ids.UndeclNone:
		return nil, nil
	case ids.UndeclBuiltin:
		if t.n, err = ld.uleb(8); err != nil {
			return nil, err
		}
		if !ld.g.BuiltinAt(t.n).IsValid() {
			return nil, ld.fail(at, ErrUnknownTag)
		}
	case ids.UndeclReference:
		t.ref, err = ld.ref()
	case ids.UndeclPointer, ids.UndeclRefType, ids.UndeclPointerAndLength, ids.UndeclNonstaticFunctionType:
		t.elem, err = ld.typeTerm()
	case ids.UndeclNonrefArray, ids.UndeclRefArray:
		if t.n, err = ld.uleb(32); err == nil {
			t.elem, err = ld.typeTerm()
		}
	case ids.UndeclTuple:
		err = ld.tuple(t)
	case ids.UndeclFunctionType:
		err = ld.functionType(t)
	default:
		return nil, ld.fail(at, ErrUnknownTag)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (ld *load) tuple(t *term) error {
	count, err := ld.count()
	if err != nil {
		return err
	}
	named := false
	for range count {
		name, err := ld.str()
		if err != nil {
			return err
		}
		typ, err := ld.typeTerm()
		if err != nil {
			return err
		}
		named = named || name != ""
		t.names = append(t.names, name)
		t.types = append(t.types, typ)
	}
	if !named {
		t.names = nil
	}
	return nil
}

func (ld *load) functionType(t *term) error {
	at := ld.r.Pos()
	cc, err := ld.octet()
	if err != nil {
		return err
	}
	if ids.CallConv(cc) > ids.CallFastCall {
		return ld.fail(at, ErrUnknownTag)
	}
	t.cc = ids.CallConv(cc)
	if t.elem, err = ld.typeTerm(); err != nil {
		return err
	}
	count, err := ld.count()
	if err != nil {
		return err
	}
	t.params = make([]paramTerm, count)
	for i := range t.params {
		p := &t.params[i]
		if p.flags, err = ld.octet(); err != nil {
			return err
		}
		if p.flags&paramHasName != 0 {
			if p.name, err = ld.str(); err != nil {
				return err
			}
		}
		if p.typ, err = ld.typeTerm(); err != nil {
			return err
		}
		if p.flags&paramHasDefault != 0 {
			if p.def, err = ld.value(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ld *load) value() (constant.Value, error) {
	at := ld.r.Pos()
	tag, err := ld.octet()
	if err != nil {
		return nil, err
	}
	switch tag {
	case valNone:
		return nil, nil
	case valBool:
		b, err := ld.boolean()
		return constant.MakeBool(b), err
	case valInt:
		n, err := ld.r.BigInt()
		if err != nil {
			return nil, ld.wrap(err)
		}
		return constant.Make(n), nil
	case valFloat:
		bits, err := ld.r.Uint64LE()
		if err != nil {
			return nil, ld.wrap(err)
		}
		return constant.MakeFloat64(math.Float64frombits(bits)), nil
	case valString:
		s, err := ld.str()
		return constant.MakeString(s), err
	}
	return nil, ld.fail(at, ErrUnknownTag)
}

// build creates the identifiers of nodes in c, depth first, and records
// every destination that waits for a reference.
func (ld *load) build(c ids.ContainerID, nodes []*node) {
	g := ld.g
	for _, n := range nodes {
		var name source.CodeString
		if n.name != "" {
			name = source.FreeString(n.name)
		}
		id := g.New(n.kind, c, name)
		ident := g.Id(id)
		ident.Access = n.access
		ident.Flags = n.flags
		ld.asm.Ids[n.pos] = id
		ld.created = append(ld.created, id)
		if n.typ != nil || n.decl == ids.DeclAlias || n.kind.IsVariable() || n.kind.IsFunction() || n.kind.IsEnum() || n.kind == ids.KindProperty {
			ident.Children = make([]ids.ID, 1)
			ld.fixups = append(ld.fixups, fixup{id: id, field: fieldChild, term: n.typ})
		}

		switch {
		case n.kind.IsStructured():
			s := ident.Struct
			ident.Layout = n.layout
			s.InstanceSize, s.InstanceAlign = n.instSize, n.instAlign
			s.GUID = n.guid
			s.FunctionTableIndex = n.ftIndex
			s.BasesResolved = true
			s.Bases = make([]ids.StructureBase, len(n.bases))
			for i, b := range n.bases {
				s.Bases[i] = ids.StructureBase{Offset: b.offset, Virtual: b.virtual, Unreal: b.unreal}
				ld.fixups = append(ld.fixups, fixup{id: id, field: fieldBase, slot: i, term: b.typ})
			}
		case n.kind.IsVariable():
			ident.Var.Const = n.value
			ident.Var.Offset = n.offset
			ident.Var.GlobalIndex = n.globalIndex
			ident.Var.AsmName = n.asmName
		case n.kind.IsFunction():
			f := ident.Func
			f.OverloadIndex = n.overload
			f.VirtualIndex = n.virtual
			f.GlobalPointerIndex = n.globalPtr
			f.AsmName = n.asmName
			if n.overridden != nil {
				ld.fixups = append(ld.fixups, fixup{id: id, field: fieldOverridden, term: &term{kind: ids.UndeclReference, ref: n.overridden}})
			}
		}

		if n.scope != ids.ContainerInvalid {
			g.NewContainer(n.scope, c, id)
		}
		g.AdmitUnchecked(c, id)
		if ident.Scope.IsValid() {
			ld.build(ident.Scope, n.members)
		}
	}
}

// dereference resolves every placeholder and patches the recorded
// destinations.
func (ld *load) dereference() {
	for _, ph := range ld.placeholders {
		a := ld.asm
		if ph.asm > 0 {
			a = ld.g.Assemblies[ld.children[ph.asm-1]]
		}
		ph.target = a.Ids[ph.pos]
	}
	for _, f := range ld.fixups {
		target := ld.materialize(f.term)
		ident := ld.g.Id(f.id)
		switch f.field {
		case fieldChild:
			ident.Children[f.slot] = target
		case fieldBase:
			ident.Struct.Bases[f.slot].Base = target
		case fieldOverridden:
			ident.Func.Overridden = target
		}
	}
}

// materialize turns a term into a type of the graph. Structural types go
// through the graph's factories so they are shared with the rest of the
// program.
func (ld *load) materialize(t *term) ids.ID {
	g := ld.g
	if t == nil {
		return ids.NoID
	}
	switch t.kind {
	case ids.UndeclBuiltin:
		return g.BuiltinAt(t.n)
	case ids.UndeclReference:
		return t.ref.target
	case ids.UndeclPointer:
		return g.PointerTo(ld.materialize(t.elem))
	case ids.UndeclRefType:
		return g.ReferenceTo(ld.materialize(t.elem))
	case ids.UndeclPointerAndLength:
		return g.PointerAndLength(ld.materialize(t.elem))
	case ids.UndeclNonstaticFunctionType:
		return g.NonstaticOf(ld.materialize(t.elem))
	case ids.UndeclNonrefArray:
		return g.ArrayOf(ld.materialize(t.elem), t.n)
	case ids.UndeclRefArray:
		return g.RefArrayOf(ld.materialize(t.elem), t.n)
	case ids.UndeclTuple:
		types := make([]ids.ID, len(t.types))
		for i, tt := range t.types {
			types[i] = ld.materialize(tt)
		}
		return g.TupleOf(types, t.names)
	case ids.UndeclFunctionType:
		params := make([]ids.ParamSpec, len(t.params))
		for i, p := range t.params {
			params[i] = ids.ParamSpec{
				Type:       ld.materialize(p.typ),
				Default:    p.def,
				HasDefault: p.flags&paramHasDefault != 0,
				ParamArray: p.flags&paramArray != 0,
			}
			if p.name != "" {
				params[i].Name = source.FreeString(p.name)
			}
		}
		return g.FunctionTypeOf(ld.materialize(t.elem), params, t.cc)
	}
	return ids.NoID
}

// update recomputes what depends on wired children: alias targets, enum
// sizes, property accessors and virtual tables.
func (ld *load) update() {
	g := ld.g
	for _, id := range ld.created {
		ident := g.Id(id)
		switch {
		case ident.Kind == ids.KindAlias:
			ident.Real = ident.Child(0)
		case ident.Kind.IsEnum():
			if u := g.Id(g.Real(ident.Child(0))); u != nil {
				size := max(u.Type.Size, 1)
				ident.Layout = ids.Layout{Size: size, Align: size, Calculated: true}
			}
		case ident.Kind == ids.KindProperty:
			ld.property(ident)
		}
	}
	for _, id := range ld.created {
		if g.Id(id).Kind == ids.KindClass {
			ld.virtuals(id)
		}
	}
}

func (ld *load) property(prop *ids.Identifier) {
	g := ld.g
	for _, fid := range g.C(prop.Scope).Ids {
		fn := g.Id(fid)
		if fn.Func == nil {
			continue
		}
		fn.Func.Property = prop.ID
		switch fn.NameString() {
		case "get":
			prop.Prop.Getter = fid
		case "set":
			prop.Prop.Setter = fid
		}
	}
	switch {
	case prop.Prop.Getter.IsValid():
		prop.Prop.Params = g.Params(prop.Prop.Getter)
	case prop.Prop.Setter.IsValid():
		params := g.Params(prop.Prop.Setter)
		prop.Prop.Params = params[:max(len(params)-1, 0)]
	}
}

// virtuals rebuilds the function table of a loaded class from its first
// real base and the virtual indices of its own functions.
func (ld *load) virtuals(id ids.ID) {
	g := ld.g
	ident := g.Id(id)
	if ident.Struct.VirtualsCalculated {
		return
	}
	ident.Struct.VirtualsCalculated = true
	var table []ids.ID
	for _, b := range ident.Struct.Bases {
		base := g.Id(g.Real(b.Base))
		if b.Unreal || base == nil || base.Kind != ids.KindClass {
			continue
		}
		if base.Assembly == ident.Assembly {
			ld.virtuals(base.ID)
		}
		table = append(table, base.Struct.FunctionTable...)
		break
	}
	if ident.Scope.IsValid() {
		for _, fid := range g.C(ident.Scope).Ids {
			fn := g.Id(fid)
			if fn.Func == nil || fn.Func.VirtualIndex < 0 {
				continue
			}
			for len(table) <= fn.Func.VirtualIndex {
				table = append(table, ids.NoID)
			}
			table[fn.Func.VirtualIndex] = fid
		}
	}
	ident.Struct.FunctionTable = table
}
