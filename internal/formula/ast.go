// Package formula implements the restricted arithmetic language used by KPI
// calculations: numbers, named variables, + - * /, unary minus and parentheses.
// Expressions are parsed once when the catalogue loads and evaluated per row.
package formula

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// ErrDivByZero is returned when a divisor evaluates to zero.
var ErrDivByZero = errors.New("division by zero")

// UnknownVariableError is returned when an expression references a name
// that has no value bound for the row being evaluated.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Name)
}

// Op is a binary operator.
type Op byte

const (
	Add Op = '+'
	Sub Op = '-'
	Mul Op = '*'
	Div Op = '/'
)

// Expr is a node of the arithmetic AST.
type Expr interface {
	Eval(vars map[string]float64) (float64, error)
	String() string
	collect(names *[]string)
}

// Const is a numeric literal.
type Const struct {
	Value float64
}

// Var is a reference to a named field.
type Var struct {
	Name string
}

// Neg is unary minus.
type Neg struct {
	X Expr
}

// Binary applies Op to two operands.
type Binary struct {
	Op   Op
	L, R Expr
}

func (c Const) Eval(map[string]float64) (float64, error) { return c.Value, nil }
func (c Const) String() string                          { return strconv.FormatFloat(c.Value, 'g', -1, 64) }
func (c Const) collect(*[]string)                       {}

func (v Var) Eval(vars map[string]float64) (float64, error) {
	val, ok := vars[v.Name]
	if !ok {
		return 0, &UnknownVariableError{Name: v.Name}
	}
	return val, nil
}

func (v Var) String() string { return v.Name }

func (v Var) collect(names *[]string) {
	if !slices.Contains(*names, v.Name) {
		*names = append(*names, v.Name)
	}
}

func (n Neg) Eval(vars map[string]float64) (float64, error) {
	x, err := n.X.Eval(vars)
	if err != nil {
		return 0, err
	}
	return -x, nil
}

func (n Neg) String() string          { return "(-" + n.X.String() + ")" }
func (n Neg) collect(names *[]string) { n.X.collect(names) }

func (b Binary) Eval(vars map[string]float64) (float64, error) {
	l, err := b.L.Eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := b.R.Eval(vars)
	if err != nil {
		return 0, err
	}

	switch b.Op {
	case Add:
		return l + r, nil
	case Sub:
		return l - r, nil
	case Mul:
		return l * r, nil
	case Div:
		if r == 0 {
			return 0, ErrDivByZero
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unsupported operator %q", rune(b.Op))
}

func (b Binary) String() string {
	return "(" + b.L.String() + " " + string(rune(b.Op)) + " " + b.R.String() + ")"
}

func (b Binary) collect(names *[]string) {
	b.L.collect(names)
	b.R.collect(names)
}

// Formula is a parsed expression together with its source text.
type Formula struct {
	Source string
	Root   Expr
}

// Variables returns the distinct variable names in order of first use.
func (f *Formula) Variables() []string {
	var names []string
	f.Root.collect(&names)
	return names
}

// Eval evaluates the formula against one row of bound variables.
// Non-finite results (overflow) are reported as errors.
func (f *Formula) Eval(vars map[string]float64) (float64, error) {
	v, err := f.Root.Eval(vars)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite result %v", v)
	}
	return v, nil
}

func (f *Formula) String() string {
	return f.Source
}
