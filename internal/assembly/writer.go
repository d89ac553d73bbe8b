package assembly

import (
	"fmt"
	"go/constant"
	"math"
	"math/big"
	"math/rand/v2"
	"os"
	"strconv"

	"tessera/internal/datastore"
	"tessera/internal/ids"
)

type writer struct {
	g   *ids.Graph
	out *datastore.Writer

	// pos holds the content offset of every identifier written so far.
	pos map[ids.ID]int
	// refs assigns reference indices in first-seen order.
	refs     map[ids.ID]int
	refOrder []ids.ID
	// child maps graph assembly indices to their index in the child table.
	child map[int]int
	// loaded caches the position maps of referenced assemblies.
	loaded map[int]map[ids.ID]int
}

// Write serializes the assembly being compiled in g. Layouts and virtual
// tables must already be calculated. A zero signature is replaced by a
// random one, which is stored back into the graph.
func Write(g *ids.Graph) ([]byte, error) {
	a := g.Assemblies[g.Current]
	if a.Signature == 0 {
		a.Signature = rand.Uint32() | 1
	}
	w := &writer{
		g:      g,
		out:    datastore.NewWriter(),
		pos:    make(map[ids.ID]int),
		refs:   make(map[ids.ID]int),
		child:  make(map[int]int),
		loaded: make(map[int]map[ids.ID]int),
	}
	w.out.Uint64LE(0)
	w.out.Name(a.Name)
	w.out.Name(a.DescName)
	w.out.Uint32LE(a.Signature)

	var children []*ids.Assembly
	for _, other := range g.Assemblies {
		if other.Index != a.Index && other.Loaded {
			w.child[other.Index] = len(children) + 1
			children = append(children, other)
		}
	}
	w.out.Uint(uint64(len(children)))
	for _, c := range children {
		w.out.Name(c.Name)
		w.out.Uint32LE(c.Signature)
	}

	if err := w.members(a.Global); err != nil {
		return nil, err
	}

	tableAt := w.out.Pos()
	w.out.PatchUint64LE(0, uint64(tableAt)) // #nosec G115 -- positions are non-negative
	w.out.Uint(uint64(len(w.refOrder)))
	for _, id := range w.refOrder {
		asm, pos, err := w.locate(id)
		if err != nil {
			return nil, err
		}
		w.out.Uint(uint64(asm))
		w.out.Uint(uint64(pos))
	}
	return w.out.Bytes(), nil
}

// WriteFile serializes the current assembly of g into path.
func WriteFile(g *ids.Graph, path string) error {
	data, err := Write(g)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// locate returns the child-table index and content offset of a referenced
// identifier.
func (w *writer) locate(id ids.ID) (asm, pos int, err error) {
	ident := w.g.Id(id)
	if ident.Assembly == w.g.Current {
		p, ok := w.pos[id]
		if !ok {
			return 0, 0, fmt.Errorf("assembly: %s is referenced but not serialized", w.g.FullName(id))
		}
		return 0, p, nil
	}
	idx, ok := w.child[ident.Assembly]
	if !ok {
		return 0, 0, fmt.Errorf("assembly: %s belongs to an assembly that is not loaded", w.g.FullName(id))
	}
	positions := w.loaded[ident.Assembly]
	if positions == nil {
		positions = make(map[ids.ID]int)
		for p, target := range w.g.Assemblies[ident.Assembly].Ids {
			positions[target] = p
		}
		w.loaded[ident.Assembly] = positions
	}
	p, ok := positions[id]
	if !ok {
		return 0, 0, fmt.Errorf("assembly: %s has no position in %s", w.g.FullName(id), w.g.Assemblies[ident.Assembly].Name)
	}
	return idx, p, nil
}

// members writes the declared identifiers of container c and the end marker.
func (w *writer) members(c ids.ContainerID) error {
	for _, id := range w.g.C(c).Ids {
		ident := w.g.Id(id)
		if ident.Has(ids.FlagBuiltin) {
			continue
		}
		dk, ok := ids.DeclaredKindOf(ident.Kind)
		if !ok || dk == ids.DeclBuiltin {
			continue
		}
		if err := w.identifier(ident, dk); err != nil {
			return err
		}
	}
	w.out.Byte(byte(ids.DeclEnd) << 4)
	return nil
}

func (w *writer) identifier(ident *ids.Identifier, dk ids.DeclaredKind) error {
	w.pos[ident.ID] = w.out.Pos()
	w.out.Byte(byte(dk)<<4 | byte(ident.Access)&0x0f)
	flags := uint16(ident.Flags & ids.FlagMask)
	hasName := !ident.Name.IsEmpty()
	hasOverload := ident.Func != nil && ident.Func.OverloadIndex >= 0
	if hasName {
		flags |= flagHasName
	}
	if hasOverload {
		flags |= flagHasOverloadIndex
	}
	w.out.Uint16LE(flags)
	if hasName {
		w.out.Name(ident.NameString())
	}
	if hasOverload {
		w.out.Uint(uint64(ident.Func.OverloadIndex))
	}

	switch dk {
	case ids.DeclNamespace:
		return w.members(ident.Scope)
	case ids.DeclConst:
		w.typeRef(ident.Child(0))
		w.value(ident.Var.Const)
	case ids.DeclAlias:
		w.typeRef(ident.Child(0))
	case ids.DeclClass, ids.DeclStruct:
		return w.structured(ident)
	case ids.DeclEnum, ids.DeclFlag:
		w.typeRef(ident.Child(0))
		return w.members(ident.Scope)
	case ids.DeclGlobalVar, ids.DeclMemberVar:
		w.typeRef(ident.Child(0))
		w.out.Int(int64(ident.Var.Offset))
		w.out.Int(int64(ident.Var.GlobalIndex))
		w.value(ident.Var.Const)
		w.out.Name(ident.Var.AsmName)
	case ids.DeclFunction, ids.DeclConstructor, ids.DeclDestructor:
		w.function(ident)
	case ids.DeclProperty:
		w.typeRef(ident.Child(0))
		return w.members(ident.Scope)
	default:
		return fmt.Errorf("assembly: cannot serialize %s %s", ident.Kind, w.g.FullName(ident.ID))
	}
	return nil
}

func (w *writer) structured(ident *ids.Identifier) error {
	s := ident.Struct
	w.out.Bool(ident.Layout.Calculated)
	w.out.Uint(uint64(ident.Layout.Size))
	w.out.Uint(uint64(ident.Layout.Align))
	w.out.Uint(uint64(s.InstanceSize))
	w.out.Uint(uint64(s.InstanceAlign))
	w.out.Bool(s.GUID != "")
	if s.GUID != "" {
		w.out.Name(s.GUID)
	}
	w.out.Uint(uint64(len(s.Bases)))
	for _, b := range s.Bases {
		w.typeRef(b.Base)
		w.out.Int(int64(b.Offset))
		var f byte
		if b.Virtual {
			f |= baseVirtual
		}
		if b.Unreal {
			f |= baseUnreal
		}
		w.out.Byte(f)
	}
	w.out.Int(int64(s.FunctionTableIndex))
	if !ident.Scope.IsValid() {
		w.out.Byte(byte(ids.DeclEnd) << 4)
		return nil
	}
	return w.members(ident.Scope)
}

func (w *writer) function(ident *ids.Identifier) {
	f := ident.Func
	w.typeRef(ident.Child(0))
	w.out.Int(int64(f.VirtualIndex))
	if f.VirtualIndex >= 0 {
		w.out.Bool(f.Overridden.IsValid())
		if f.Overridden.IsValid() {
			w.ref(f.Overridden)
		}
	}
	w.out.Int(int64(f.GlobalPointerIndex))
	w.out.Name(f.AsmName)
}

// ref writes the reference index of a declared identifier.
func (w *writer) ref(id ids.ID) {
	idx, ok := w.refs[id]
	if !ok {
		idx = len(w.refOrder)
		w.refs[id] = idx
		w.refOrder = append(w.refOrder, id)
	}
	w.out.Uint(uint64(idx))
}

// typeRef writes a type: builtins by ordinal, structural types inline and
// everything else through the reference table.
func (w *writer) typeRef(id ids.ID) {
	g := w.g
	ident := g.Id(id)
	if ident == nil {
		w.out.Byte(byte(ids.UndeclNone))
		return
	}
	if ident.Kind == ids.KindAlias && ident.Has(ids.FlagBuiltin) {
		w.typeRef(ident.Real)
		return
	}
	if ord, ok := g.BuiltinOrdinal(id); ok {
		w.out.Byte(byte(ids.UndeclBuiltin))
		w.out.Uint(uint64(ord))
		return
	}
	uk, ok := ids.UndeclaredKindOf(ident.Kind)
	if !ok {
		w.out.Byte(byte(ids.UndeclReference))
		w.ref(id)
		return
	}
	w.out.Byte(byte(uk))
	switch uk {
	case ids.UndeclPointer, ids.UndeclRefType, ids.UndeclPointerAndLength, ids.UndeclNonstaticFunctionType:
		w.typeRef(ident.Child(0))
	case ids.UndeclNonrefArray:
		w.out.Uint(uint64(ident.Type.Length))
		w.typeRef(ident.Child(0))
	case ids.UndeclRefArray:
		w.out.Uint(uint64(ident.Type.Dimensions))
		w.typeRef(ident.Child(0))
	case ids.UndeclTuple:
		w.out.Uint(uint64(len(ident.Children)))
		for i, m := range ident.Children {
			member := g.Id(m)
			name := member.NameString()
			if name == strconv.Itoa(i) {
				name = ""
			}
			w.out.Name(name)
			w.typeRef(member.TypeOfSelf())
		}
	case ids.UndeclFunctionType:
		w.out.Byte(byte(ident.Type.CallConv))
		w.typeRef(ident.Child(0))
		params := ident.Children[min(1, len(ident.Children)):]
		w.out.Uint(uint64(len(params)))
		for _, p := range params {
			param := g.Id(p)
			var f byte
			if !param.Name.IsEmpty() {
				f |= paramHasName
			}
			if param.Has(ids.FlagParamArray) {
				f |= paramArray
			}
			if param.Var.HasDefault {
				f |= paramHasDefault
			}
			w.out.Byte(f)
			if f&paramHasName != 0 {
				w.out.Name(param.NameString())
			}
			w.typeRef(param.TypeOfSelf())
			if f&paramHasDefault != 0 {
				w.value(param.Var.Const)
			}
		}
	}
}

func (w *writer) value(v constant.Value) {
	if v == nil {
		w.out.Byte(valNone)
		return
	}
	switch v.Kind() {
	case constant.Bool:
		w.out.Byte(valBool)
		w.out.Bool(constant.BoolVal(v))
	case constant.Int:
		w.out.Byte(valInt)
		n, ok := new(big.Int).SetString(v.ExactString(), 10)
		if !ok {
			n = new(big.Int)
		}
		w.out.BigInt(n)
	case constant.Float:
		f, _ := constant.Float64Val(v)
		w.out.Byte(valFloat)
		w.out.Uint64LE(math.Float64bits(f))
	case constant.String:
		w.out.Byte(valString)
		w.out.Name(constant.StringVal(v))
	default:
		w.out.Byte(valNone)
	}
}
