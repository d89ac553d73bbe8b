package syntax

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"strings"

	"tessera/internal/source"
	"tessera/internal/types"
)

var (
	// ErrUnknown is returned when an identifier has no value yet.
	ErrUnknown = errors.New("unknown identifier")
	// ErrNotConst is returned for expressions that are not constant.
	ErrNotConst = errors.New("expression is not constant")
	// ErrDivisionByZero is returned for x/0 and x%0.
	ErrDivisionByZero = errors.New("division by zero")
)

// UnknownError records the identifier an evaluation depends on.
type UnknownError struct {
	Path []source.CodeString
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown identifier %q", e.Name())
}

func (e *UnknownError) Unwrap() error { return ErrUnknown }

// Name returns the dotted name of the missing identifier.
func (e *UnknownError) Name() string { return pathName(e.Path) }

// Span returns the location of the missing identifier.
func (e *UnknownError) Span() source.Span { return pathSpan(e.Path) }

// PendingError records a dependency that is declared but has no value or
// target yet, such as a constant waiting for its own dependencies. It
// unwraps to ErrUnknown so evaluations hitting it are retried.
type PendingError struct {
	Path []source.CodeString
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("%q is not resolved yet", e.Name())
}

func (e *PendingError) Unwrap() error { return ErrUnknown }

func (e *PendingError) Name() string      { return pathName(e.Path) }
func (e *PendingError) Span() source.Span { return pathSpan(e.Path) }

func pathName(path []source.CodeString) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = p.String()
	}
	return strings.Join(parts, ".")
}

func pathSpan(path []source.CodeString) source.Span {
	if len(path) == 0 {
		return source.Span{}
	}
	return path[0].Span().Cover(path[len(path)-1].Span())
}

// Env supplies the values of named constants.
type Env interface {
	// Value returns the constant named by path, or an error wrapping
	// ErrUnknown when it is not known yet.
	Value(path []source.CodeString) (constant.Value, error)
}

// EnvFunc adapts a function to Env.
type EnvFunc func(path []source.CodeString) (constant.Value, error)

func (f EnvFunc) Value(path []source.CodeString) (constant.Value, error) { return f(path) }

// Evaluator folds constant expressions. A fresh evaluator evaluates each
// link at most once.
type Evaluator struct {
	Env Env
	// Evaluations counts how many link bodies were evaluated.
	Evaluations int

	links map[*Link]linkResult
}

type linkResult struct {
	v   constant.Value
	err error
}

// Eval folds e with a fresh Evaluator over env.
func Eval(e *Expr, env Env) (constant.Value, error) {
	ev := &Evaluator{Env: env}
	return ev.Eval(e)
}

// Eval folds e to a constant.
func (ev *Evaluator) Eval(e *Expr) (constant.Value, error) {
	if e == nil {
		return nil, ErrNotConst
	}
	switch e.Kind {
	case ExprLit:
		if e.Value == nil || e.Value.Kind() == constant.Unknown {
			return nil, ErrNotConst
		}
		return e.Value, nil
	case ExprIdent, ExprMember:
		path := e.Path()
		if path == nil {
			return nil, ErrNotConst
		}
		if ev.Env == nil {
			return nil, &UnknownError{Path: path}
		}
		return ev.Env.Value(path)
	case ExprUnary:
		x, err := ev.Eval(e.X)
		if err != nil {
			return nil, err
		}
		return unaryOp(e.Op, x)
	case ExprBinary:
		return ev.binary(e)
	case ExprLinked:
		return ev.link(e.Link)
	case ExprExpansion:
		return ev.Eval(e.X)
	}
	return nil, ErrNotConst
}

func (ev *Evaluator) link(l *Link) (constant.Value, error) {
	if l == nil {
		return nil, ErrNotConst
	}
	if ev.links == nil {
		ev.links = make(map[*Link]linkResult)
	}
	if r, ok := ev.links[l]; ok {
		return r.v, r.err
	}
	ev.Evaluations++
	v, err := ev.Eval(l.Node)
	ev.links[l] = linkResult{v: v, err: err}
	return v, err
}

func (ev *Evaluator) binary(e *Expr) (constant.Value, error) {
	x, err := ev.Eval(e.X)
	if err != nil {
		return nil, err
	}
	// short circuit keeps "defined && X" usable when X is unknown
	if e.Op == types.OpAnd || e.Op == types.OpOr {
		if x.Kind() != constant.Bool {
			return nil, fmt.Errorf("%w: operator %s needs bool operands", ErrNotConst, e.Op)
		}
		if constant.BoolVal(x) == (e.Op == types.OpOr) {
			return x, nil
		}
		y, err := ev.Eval(e.Y)
		if err != nil {
			return nil, err
		}
		if y.Kind() != constant.Bool {
			return nil, fmt.Errorf("%w: operator %s needs bool operands", ErrNotConst, e.Op)
		}
		return y, nil
	}
	y, err := ev.Eval(e.Y)
	if err != nil {
		return nil, err
	}
	return binaryOp(e.Op, x, y)
}

var binaryTokens = map[types.Operator]token.Token{
	types.OpAdd:      token.ADD,
	types.OpSubtract: token.SUB,
	types.OpMultiply: token.MUL,
	types.OpBitAnd:   token.AND,
	types.OpBitOr:    token.OR,
	types.OpBitXor:   token.XOR,
}

var compareTokens = map[types.Operator]token.Token{
	types.OpEqual:        token.EQL,
	types.OpNotEqual:     token.NEQ,
	types.OpLess:         token.LSS,
	types.OpLessEqual:    token.LEQ,
	types.OpGreater:      token.GTR,
	types.OpGreaterEqual: token.GEQ,
}

func binaryOp(op types.Operator, x, y constant.Value) (v constant.Value, err error) {
	defer func() {
		// go/constant panics on mismatched operand kinds
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrNotConst, r)
		}
	}()
	if tok, ok := compareTokens[op]; ok {
		return constant.MakeBool(constant.Compare(x, tok, y)), nil
	}
	if tok, ok := binaryTokens[op]; ok {
		return constant.BinaryOp(x, tok, y), nil
	}
	switch op {
	case types.OpDivide:
		if constant.Sign(y) == 0 {
			return nil, ErrDivisionByZero
		}
		if x.Kind() == constant.Int && y.Kind() == constant.Int {
			return constant.BinaryOp(x, token.QUO_ASSIGN, y), nil
		}
		return constant.BinaryOp(x, token.QUO, y), nil
	case types.OpModulo:
		if x.Kind() != constant.Int || y.Kind() != constant.Int {
			return nil, fmt.Errorf("%w: modulo needs integers", ErrNotConst)
		}
		if constant.Sign(y) == 0 {
			return nil, ErrDivisionByZero
		}
		return constant.BinaryOp(x, token.REM, y), nil
	case types.OpShiftLeft, types.OpShiftRight:
		n, ok := constant.Uint64Val(constant.ToInt(y))
		if !ok || x.Kind() != constant.Int || n > 64 {
			return nil, fmt.Errorf("%w: invalid shift", ErrNotConst)
		}
		tok := token.SHL
		if op == types.OpShiftRight {
			tok = token.SHR
		}
		return constant.Shift(x, tok, uint(n)), nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrNotConst, op)
}

func unaryOp(op types.Operator, x constant.Value) (v constant.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrNotConst, r)
		}
	}()
	switch op {
	case types.OpNegate:
		return constant.UnaryOp(token.SUB, x, 0), nil
	case types.OpUnaryPlus:
		return constant.UnaryOp(token.ADD, x, 0), nil
	case types.OpNot:
		return constant.UnaryOp(token.NOT, x, 0), nil
	case types.OpComplement:
		return constant.UnaryOp(token.XOR, x, 0), nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrNotConst, op)
}
