package resolve

import (
	"tessera/internal/ids"
	"tessera/internal/types"
)

// Scores of one argument against one parameter.
const (
	scoreExact     = 4
	scoreAutomatic = 2
	scoreConvert   = 1
	scoreNone      = 0

	// scoreNotCallable is given to candidates that are not functions.
	scoreNotCallable = -1
	// penaltyMissing is subtracted per required parameter left unsupplied.
	penaltyMissing = 3
	// scoreRejected marks a candidate the arguments cannot be bound to.
	scoreRejected = -1 << 30
)

// Arg is one argument of a call. Name is empty for positional arguments;
// Type may be NoID when the argument type is not known yet.
type Arg struct {
	Name string
	Type ids.ID
}

// CallInfo describes the arguments a name is applied to.
type CallInfo struct {
	Args []Arg
}

func (c *CallInfo) positional() []Arg {
	var out []Arg
	for _, a := range c.Args {
		if a.Name == "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *CallInfo) named() []Arg {
	var out []Arg
	for _, a := range c.Args {
		if a.Name != "" {
			out = append(out, a)
		}
	}
	return out
}

// FunctionType returns the function type a candidate can be called
// through: the type of a function, or the function-typed type of a
// variable, property or parameter. NoID when the candidate is not callable.
func FunctionType(g *ids.Graph, id ids.ID) ids.ID {
	ident := g.Id(g.Real(id))
	if ident == nil {
		return ids.NoID
	}
	if !ident.Kind.IsFunction() && !ident.Kind.IsVariable() && ident.Kind != ids.KindProperty {
		return ids.NoID
	}
	typ := g.Real(ident.TypeOfSelf())
	if g.Kind(typ).IsFunctionType() {
		return typ
	}
	return ids.NoID
}

// FunctionValue scores how well call matches candidate id. The second
// result reports whether the param-array parameter absorbed arguments.
func FunctionValue(g *ids.Graph, id ids.ID, call *CallInfo) (int, bool) {
	fnType := FunctionType(g, id)
	if !fnType.IsValid() {
		return scoreNotCallable, false
	}
	params := g.Params(fnType)
	if call == nil {
		call = &CallInfo{}
	}
	positional, named := call.positional(), call.named()

	if g.Opts.ConvertParametersToTuple && len(named) == 0 {
		if s, ok := tupleValue(g, params, positional); ok {
			return s, false
		}
	}

	score := 0
	bound := make([]bool, len(params))
	usesParamArray := false
	last := len(params) - 1
	variadic := last >= 0 && g.Id(params[last]).Has(ids.FlagParamArray)

	for i, arg := range positional {
		switch {
		case i < len(params) && !(variadic && i == last):
			score += argValue(g, arg.Type, g.Id(params[i]).TypeOfSelf())
			bound[i] = true
		case variadic && i >= last:
			arrType := g.Id(params[last]).TypeOfSelf()
			if i == last && len(positional) == last+1 {
				// a single argument may already be the array itself
				if s := argValue(g, arg.Type, arrType); s > scoreNone {
					score += s
					bound[last] = true
					continue
				}
			}
			score += argValue(g, arg.Type, elementOf(g, arrType))
			bound[last] = true
			usesParamArray = true
		default:
			return scoreRejected, false
		}
	}

	for _, arg := range named {
		idx := -1
		for i, p := range params {
			if g.Id(p).NameString() == arg.Name {
				idx = i
				break
			}
		}
		if idx < 0 || bound[idx] {
			return scoreRejected, false
		}
		score += argValue(g, arg.Type, g.Id(params[idx]).TypeOfSelf())
		bound[idx] = true
	}

	for i, p := range params {
		param := g.Id(p)
		if !bound[i] && !param.Var.HasDefault && !param.Has(ids.FlagParamArray) {
			score -= penaltyMissing
		}
	}
	return score, usesParamArray
}

// tupleValue matches N positional arguments against a single tuple
// parameter with N members.
func tupleValue(g *ids.Graph, params []ids.ID, args []Arg) (int, bool) {
	if len(params) != 1 || len(args) < 2 {
		return 0, false
	}
	tuple := g.Id(g.TypeOf(g.Id(params[0]).TypeOfSelf()))
	if tuple == nil || tuple.Kind != ids.KindTuple || len(tuple.Children) != len(args) {
		return 0, false
	}
	score := 0
	for i, m := range tuple.Children {
		score += argValue(g, args[i].Type, g.Id(m).TypeOfSelf())
	}
	return score, true
}

func argValue(g *ids.Graph, arg, param ids.ID) int {
	if !arg.IsValid() || !param.IsValid() {
		return scoreNone
	}
	if g.Equivalent(arg, param) {
		return scoreExact
	}
	switch types.CanConvert(g, arg, param) {
	case types.Automatic:
		return scoreAutomatic
	case types.Convertable:
		return scoreConvert
	}
	return scoreNone
}

func elementOf(g *ids.Graph, arr ids.ID) ids.ID {
	ident := g.Id(g.TypeOf(arr))
	if ident == nil || !ident.Kind.IsArray() {
		return arr
	}
	return ident.Child(0)
}
