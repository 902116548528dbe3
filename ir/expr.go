// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import (
	"fmt"
	"strings"

	hfmt "github.com/Blaok/haoda/base/fmt"
)

// ----------------------------------------------------------------------------
// Let binding.

// Let binds an expression to a local name or, when DRAM is set, to an
// external-memory write target.
type Let struct {
	Typ  Type
	Name string
	DRAM *DRAMRef
	Expr Node
}

var _ Node = (*Let)(nil)

func (n *Let) node() {}

// Type returns the declared type, falling back to the type derived
// from the bound expression.
func (n *Let) Type() (Type, error) {
	if n.Typ != nil {
		return n.Typ, nil
	}
	return n.Expr.Type()
}

func (n *Let) target() string {
	if n.DRAM != nil {
		return n.DRAM.String()
	}
	return n.Name
}

// Render returns the binding as a constant declaration statement.
func (n *Let) Render(lang Lang) (string, error) {
	typ, err := n.Type()
	if err != nil {
		return "", err
	}
	spelling, err := typ.Spelling(lang)
	if err != nil {
		return "", err
	}
	expr, err := n.Expr.Render(lang)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("const %s %s = %s;", spelling, n.target(), Unparenthesize(expr)), nil
}

// String representation of the binding.
func (n *Let) String() string {
	result := fmt.Sprintf("%s = %s", n.target(), Unparenthesize(n.Expr.String()))
	if typ, err := n.Type(); err == nil && !IsUnknown(typ) {
		result = typ.String() + " " + result
	}
	return result
}

func (n *Let) clone() Node {
	c := *n
	return &c
}

var letSlots = &slotTable{
	kind: "Let",
	scalar: []scalarSlot{
		{
			name: "typ",
			get:  func(n Node) any { return n.(*Let).Typ },
			set:  func(n Node, v any) { n.(*Let).Typ, _ = v.(Type) },
		},
		{
			name: "name",
			get:  func(n Node) any { return n.(*Let).Name },
			set:  func(n Node, v any) { n.(*Let).Name = v.(string) },
		},
		{
			name: "dram",
			get:  func(n Node) any { return optNode(n.(*Let).DRAM) },
			set:  func(n Node, v any) { n.(*Let).DRAM = v.(*DRAMRef) },
		},
		{
			name: "expr",
			get:  func(n Node) any { return n.(*Let).Expr },
			set:  func(n Node, v any) { n.(*Let).Expr = v.(Node) },
		},
	},
}

func (n *Let) slots() *slotTable { return letSlots }

// ----------------------------------------------------------------------------
// Tensor element reference.

// Ref is an element reference to a tensor, with an optional fixed read
// latency. Refs only exist before a kernel is lowered to the dataflow
// graph; they cannot be rendered.
type Ref struct {
	Name string
	Idx  []int
	Lat  *int
	Typ  Type
}

var _ Node = (*Ref)(nil)

func (n *Ref) node() {}

// Type of the referenced element. Unknown until propagated.
func (n *Ref) Type() (Type, error) {
	if n.Typ == nil {
		return Unknown(), nil
	}
	return n.Typ, nil
}

// Render fails: a tensor reference has no target form.
func (n *Ref) Render(Lang) (string, error) {
	return "", internalErrorf("cannot render tensor reference %s", n)
}

// String representation of the reference.
func (n *Ref) String() string {
	result := n.Name + hfmt.Tuple(n.Idx)
	if n.Lat != nil {
		result += fmt.Sprintf(" ~%d", *n.Lat)
	}
	return result
}

func (n *Ref) clone() Node {
	c := *n
	return &c
}

var refSlots = &slotTable{
	kind: "Ref",
	scalar: []scalarSlot{
		{
			name: "name",
			get:  func(n Node) any { return n.(*Ref).Name },
			set:  func(n Node, v any) { n.(*Ref).Name = v.(string) },
		},
		{
			name: "lat",
			get:  func(n Node) any { return n.(*Ref).Lat },
			set:  func(n Node, v any) { n.(*Ref).Lat, _ = v.(*int) },
		},
	},
	ordered: []orderedSlot{
		{
			name: "idx",
			get:  func(n Node) []any { return intsToAny(n.(*Ref).Idx) },
			set:  func(n Node, v []any) { n.(*Ref).Idx = anyToInts(v) },
		},
	},
}

func (n *Ref) slots() *slotTable { return refSlots }

// ----------------------------------------------------------------------------
// Variable.

// Var is a scalar variable, optionally subscripted.
type Var struct {
	Name string
	Idx  []int
	Typ  Type
}

var _ Node = (*Var)(nil)

func (n *Var) node() {}

// Type of the variable. Unknown until propagated.
func (n *Var) Type() (Type, error) {
	if n.Typ == nil {
		return Unknown(), nil
	}
	return n.Typ, nil
}

// Render returns the subscripted variable name.
func (n *Var) Render(Lang) (string, error) {
	return n.String(), nil
}

// String representation of the variable.
func (n *Var) String() string {
	var b strings.Builder
	b.WriteString(n.Name)
	for _, i := range n.Idx {
		fmt.Fprintf(&b, "[%d]", i)
	}
	return b.String()
}

func (n *Var) clone() Node {
	c := *n
	return &c
}

var varSlots = &slotTable{
	kind: "Var",
	scalar: []scalarSlot{
		{
			name: "name",
			get:  func(n Node) any { return n.(*Var).Name },
			set:  func(n Node, v any) { n.(*Var).Name = v.(string) },
		},
	},
	ordered: []orderedSlot{
		{
			name: "idx",
			get:  func(n Node) []any { return intsToAny(n.(*Var).Idx) },
			set:  func(n Node, v []any) { n.(*Var).Idx = anyToInts(v) },
		},
	},
}

func (n *Var) slots() *slotTable { return varSlots }

// ----------------------------------------------------------------------------
// Operand.

// Operand wraps exactly one of a cast, a call, a tensor reference, a
// numeric literal, a variable or a parenthesized sub-expression.
type Operand struct {
	Cast *Cast
	Call *Call
	Ref  *Ref
	Num  string
	Var  *Var
	Expr Node
}

var _ Node = (*Operand)(nil)

func (n *Operand) node() {}

// Content returns the wrapped node, nil for a numeric literal, and
// an error for an empty operand.
func (n *Operand) Content() (Node, error) {
	switch {
	case n.Cast != nil:
		return n.Cast, nil
	case n.Call != nil:
		return n.Call, nil
	case n.Ref != nil:
		return n.Ref, nil
	case n.Num != "":
		return nil, nil
	case n.Var != nil:
		return n.Var, nil
	case n.Expr != nil:
		return n.Expr, nil
	}
	return nil, internalErrorf("empty operand")
}

// Type of the wrapped value. Literal types follow the C suffix rules.
func (n *Operand) Type() (Type, error) {
	content, err := n.Content()
	if err != nil {
		return nil, err
	}
	if content != nil {
		return content.Type()
	}
	return numType(n.Num), nil
}

// numType classifies a numeric literal by its suffix and form.
func numType(num string) Type {
	lower := strings.ToLower(num)
	if strings.Contains(lower, "u") {
		if strings.Contains(lower, "ll") {
			return Uint(64)
		}
		return Uint(32)
	}
	if strings.Contains(lower, "ll") {
		return Int(64)
	}
	if strings.Contains(lower, "fl") {
		return Float64Type()
	}
	if strings.ContainsAny(lower, "fe") {
		return Float32Type()
	}
	if strings.Contains(num, ".") {
		return Float64Type()
	}
	return Int(32)
}

// Render returns the wrapped value, parenthesized if it is a
// sub-expression.
func (n *Operand) Render(lang Lang) (string, error) {
	content, err := n.Content()
	if err != nil {
		return "", err
	}
	if content == nil {
		return n.Num, nil
	}
	result, err := content.Render(lang)
	if err != nil {
		return "", err
	}
	if content == n.Expr {
		result = Parenthesize(result)
	}
	return result, nil
}

// String representation of the operand.
func (n *Operand) String() string {
	content, err := n.Content()
	if err != nil {
		return "<empty operand>"
	}
	if content == nil {
		return n.Num
	}
	if content == n.Expr {
		return Parenthesize(content.String())
	}
	return content.String()
}

func (n *Operand) clone() Node {
	c := *n
	return &c
}

var operandSlots = &slotTable{
	kind: "Operand",
	scalar: []scalarSlot{
		{
			name: "cast",
			get:  func(n Node) any { return optNode(n.(*Operand).Cast) },
			set:  func(n Node, v any) { n.(*Operand).Cast = v.(*Cast) },
		},
		{
			name: "call",
			get:  func(n Node) any { return optNode(n.(*Operand).Call) },
			set:  func(n Node, v any) { n.(*Operand).Call = v.(*Call) },
		},
		{
			name: "ref",
			get:  func(n Node) any { return optNode(n.(*Operand).Ref) },
			set:  func(n Node, v any) { n.(*Operand).Ref = v.(*Ref) },
		},
		{
			name: "num",
			get:  func(n Node) any { return n.(*Operand).Num },
			set:  func(n Node, v any) { n.(*Operand).Num = v.(string) },
		},
		{
			name: "var",
			get:  func(n Node) any { return optNode(n.(*Operand).Var) },
			set:  func(n Node, v any) { n.(*Operand).Var = v.(*Var) },
		},
		{
			name: "expr",
			get:  func(n Node) any { return n.(*Operand).Expr },
			set:  func(n Node, v any) { n.(*Operand).Expr = v.(Node) },
		},
	},
}

func (n *Operand) slots() *slotTable { return operandSlots }

// ----------------------------------------------------------------------------
// Cast.

// Cast converts an expression to a target type.
type Cast struct {
	Typ  Type
	Expr Node
}

var _ Node = (*Cast)(nil)

func (n *Cast) node() {}

// Type returns the target type of the conversion.
func (n *Cast) Type() (Type, error) {
	if n.Typ == nil {
		return Unknown(), nil
	}
	return n.Typ, nil
}

// Render returns a C-style cast of the parenthesized expression.
func (n *Cast) Render(lang Lang) (string, error) {
	spelling, err := n.Typ.Spelling(lang)
	if err != nil {
		return "", err
	}
	expr, err := n.Expr.Render(lang)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)%s", spelling, Parenthesize(expr)), nil
}

// String representation of the conversion.
func (n *Cast) String() string {
	return n.Typ.String() + Parenthesize(n.Expr.String())
}

func (n *Cast) clone() Node {
	c := *n
	return &c
}

var castSlots = &slotTable{
	kind: "Cast",
	scalar: []scalarSlot{
		{
			name: "typ",
			get:  func(n Node) any { return n.(*Cast).Typ },
			set:  func(n Node, v any) { n.(*Cast).Typ, _ = v.(Type) },
		},
		{
			name: "expr",
			get:  func(n Node) any { return n.(*Cast).Expr },
			set:  func(n Node, v any) { n.(*Cast).Expr = v.(Node) },
		},
	},
}

func (n *Cast) slots() *slotTable { return castSlots }

// ----------------------------------------------------------------------------
// Function call.

// Functions eligible for flattening across nested applications.
var reductionFuncs = map[string]bool{
	"min": true,
	"max": true,
}

// IsReductionFunc returns true if calls to name are associative
// reductions.
func IsReductionFunc(name string) bool { return reductionFuncs[name] }

// Call invokes a named function over ordered arguments.
type Call struct {
	Name string
	Args []Node
}

var _ Node = (*Call)(nil)

func (n *Call) node() {}

// Type of the call result. A select takes the common type of its two
// value arguments; any other call takes its first argument's type.
func (n *Call) Type() (Type, error) {
	if n.Name == "select" {
		if len(n.Args) != 3 {
			return nil, internalErrorf("select takes 3 arguments, got %d", len(n.Args))
		}
		onTrue, err := n.Args[1].Type()
		if err != nil {
			return nil, err
		}
		onFalse, err := n.Args[2].Type()
		if err != nil {
			return nil, err
		}
		if IsUnknown(onTrue) || IsUnknown(onFalse) {
			return Unknown(), nil
		}
		return onTrue.CommonType(onFalse)
	}
	if len(n.Args) == 0 {
		return Unknown(), nil
	}
	return n.Args[0].Type()
}

// Render returns the call expression. min and max lower to balanced
// trees of binary calls; select lowers to a ternary with both branches
// cast to the common type.
func (n *Call) Render(lang Lang) (string, error) {
	if reductionFuncs[n.Name] {
		if len(n.Args) < 2 {
			return "", internalErrorf("too few arguments to %s", n.Name)
		}
		return n.renderReduction(lang, n.Args)
	}
	if n.Name == "select" {
		return n.renderSelect(lang)
	}
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		expr, err := arg.Render(lang)
		if err != nil {
			return "", err
		}
		args[i] = expr
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", ")), nil
}

// renderReduction lowers an n-ary min or max to a balanced tree of
// binary calls. The OpenCL form picks the float flavor when any
// argument in the subtree is a float.
func (n *Call) renderReduction(lang Lang, args []Node) (string, error) {
	if len(args) == 1 {
		return args[0].Render(lang)
	}
	isFloat := func(nodes []Node) bool {
		for _, node := range nodes {
			typ, err := node.Type()
			if err != nil || IsUnknown(typ) {
				continue
			}
			if _, ok := typ.(*TupleType); ok {
				continue
			}
			if typ.IsFloat() {
				return true
			}
		}
		return false
	}
	var render func(args []Node) (string, error)
	render = func(args []Node) (string, error) {
		if len(args) == 1 {
			return args[0].Render(lang)
		}
		var lhs, rhs string
		var err error
		if len(args) == 2 {
			if lhs, err = args[0].Render(lang); err != nil {
				return "", err
			}
			if rhs, err = args[1].Render(lang); err != nil {
				return "", err
			}
		} else {
			if lhs, err = render(args[:len(args)/2]); err != nil {
				return "", err
			}
			if rhs, err = render(args[len(args)/2:]); err != nil {
				return "", err
			}
		}
		name := n.Name
		switch lang {
		case LangC:
			name = "std::" + name
		case LangCL:
			if isFloat(args) {
				name = "f" + name
			}
		}
		return fmt.Sprintf("%s(%s, %s)", name, lhs, rhs), nil
	}
	return render(args)
}

// renderSelect lowers select(cond, a, b) to a ternary, casting a and b
// to their common type where they differ from it.
func (n *Call) renderSelect(lang Lang) (string, error) {
	if len(n.Args) != 3 {
		return "", internalErrorf("select takes 3 arguments, got %d", len(n.Args))
	}
	onTrue, err := n.Args[1].Type()
	if err != nil {
		return "", err
	}
	onFalse, err := n.Args[2].Type()
	if err != nil {
		return "", err
	}
	common, err := onTrue.CommonType(onFalse)
	if err != nil {
		return "", err
	}
	args := make([]Node, 3)
	copy(args, n.Args)
	for _, i := range []int{1, 2} {
		typ, err := args[i].Type()
		if err != nil {
			return "", err
		}
		if !typ.Equal(common) {
			args[i] = &Cast{Typ: common, Expr: args[i]}
		}
	}
	rendered := make([]string, 3)
	for i, arg := range args {
		if rendered[i], err = arg.Render(lang); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("(%s ? %s : %s)", rendered[0], rendered[1], rendered[2]), nil
}

// String representation of the call.
func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
}

func (n *Call) clone() Node {
	c := *n
	c.Args = append([]Node(nil), n.Args...)
	return &c
}

var callSlots = &slotTable{
	kind: "Call",
	scalar: []scalarSlot{
		{
			name: "name",
			get:  func(n Node) any { return n.(*Call).Name },
			set:  func(n Node, v any) { n.(*Call).Name = v.(string) },
		},
	},
	ordered: []orderedSlot{
		{
			name: "args",
			get:  func(n Node) []any { return nodesToAny(n.(*Call).Args) },
			set:  func(n Node, v []any) { n.(*Call).Args = anyToNodes(v) },
		},
	},
}

func (n *Call) slots() *slotTable { return callSlots }

// ----------------------------------------------------------------------------
// Unary.

// Unary applies ordered prefix operators to one operand.
type Unary struct {
	Operators []string
	Operand   Node
}

var _ Node = (*Unary)(nil)

func (n *Unary) node() {}

// Type of the operand.
func (n *Unary) Type() (Type, error) { return n.Operand.Type() }

// Render returns the prefixed operand.
func (n *Unary) Render(lang Lang) (string, error) {
	operand, err := n.Operand.Render(lang)
	if err != nil {
		return "", err
	}
	return strings.Join(n.Operators, "") + operand, nil
}

// String representation of the expression.
func (n *Unary) String() string {
	return strings.Join(n.Operators, "") + n.Operand.String()
}

func (n *Unary) clone() Node {
	c := *n
	c.Operators = append([]string(nil), n.Operators...)
	return &c
}

var unarySlots = &slotTable{
	kind: "Unary",
	scalar: []scalarSlot{
		{
			name: "operand",
			get:  func(n Node) any { return n.(*Unary).Operand },
			set:  func(n Node, v any) { n.(*Unary).Operand = v.(Node) },
		},
	},
	ordered: []orderedSlot{
		{
			name: "operators",
			get:  func(n Node) []any { return stringsToAny(n.(*Unary).Operators) },
			set:  func(n Node, v []any) { n.(*Unary).Operators = anyToStrings(v) },
		},
	},
}

func (n *Unary) slots() *slotTable { return unarySlots }

// ----------------------------------------------------------------------------
// Ordered slot element conversions.

func intsToAny(vals []int) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func anyToInts(vals []any) []int {
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = v.(int)
	}
	return out
}

func stringsToAny(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func anyToStrings(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.(string)
	}
	return out
}

func nodesToAny(vals []Node) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func anyToNodes(vals []any) []Node {
	out := make([]Node, len(vals))
	for i, v := range vals {
		out[i] = v.(Node)
	}
	return out
}
