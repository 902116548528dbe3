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

	"github.com/Blaok/haoda/base/intern"
)

// identified is implemented by nodes with a short, stable identifier
// used to name generated buffers and locals. Identifiers that embed a
// sequential short name draw it from the interning table owned by the
// active compilation context.
type identified interface {
	Identifier(*intern.Table) (string, error)
}

// identifierOf returns the identifier of a node, falling back to its
// host-target rendering for nodes that render to a plain identifier.
func identifierOf(n Node, names *intern.Table) (string, error) {
	if id, ok := n.(identified); ok {
		return id.Identifier(names)
	}
	return n.Render(LangC)
}

// ----------------------------------------------------------------------------
// Pack.

// Pack forms a packed tuple value out of ordered sub-expressions.
type Pack struct {
	Exprs []Node
}

var (
	_ Node       = (*Pack)(nil)
	_ identified = (*Pack)(nil)
)

func (n *Pack) node() {}

// Type returns the tuple type composed of the field types.
func (n *Pack) Type() (Type, error) {
	types := make([]Type, len(n.Exprs))
	for i, expr := range n.Exprs {
		typ, err := expr.Type()
		if err != nil {
			return nil, err
		}
		types[i] = typ
	}
	return NewTupleType(types...), nil
}

// Render returns a brace initializer of the fields, prefixed with a
// cast to the tuple type on the device target.
func (n *Pack) Render(lang Lang) (string, error) {
	fields := make([]string, len(n.Exprs))
	for i, expr := range n.Exprs {
		field, err := expr.Render(lang)
		if err != nil {
			return "", err
		}
		fields[i] = field
	}
	args := strings.Join(fields, ", ")
	switch lang {
	case LangC:
		return "{" + args + "}", nil
	case LangCL:
		typ, err := n.Type()
		if err != nil {
			return "", err
		}
		spelling, err := typ.Spelling(lang)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s){%s}", spelling, args), nil
	}
	return "", internalErrorf("unknown target %v", lang)
}

// Identifier returns a short sequential name for the packed value,
// stable within one interning table.
func (n *Pack) Identifier(names *intern.Table) (string, error) {
	if names == nil {
		return "", internalErrorf("pack identifier requires an interning table")
	}
	fields := make([]string, len(n.Exprs))
	for i, expr := range n.Exprs {
		field, err := identifierOf(expr, names)
		if err != nil {
			return "", err
		}
		fields[i] = field
	}
	return fmt.Sprintf("pack_%d", names.ID(strings.Join(fields, "_"))), nil
}

// String representation of the packed value.
func (n *Pack) String() string {
	fields := make([]string, len(n.Exprs))
	for i, expr := range n.Exprs {
		fields[i] = expr.String()
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

func (n *Pack) clone() Node {
	c := *n
	c.Exprs = append([]Node(nil), n.Exprs...)
	return &c
}

var packSlots = &slotTable{
	kind: "Pack",
	ordered: []orderedSlot{
		{
			name: "exprs",
			get:  func(n Node) []any { return nodesToAny(n.(*Pack).Exprs) },
			set:  func(n Node, v []any) { n.(*Pack).Exprs = anyToNodes(v) },
		},
	},
}

func (n *Pack) slots() *slotTable { return packSlots }

// ----------------------------------------------------------------------------
// Unpack.

// Unpack extracts one field of a packed tuple value.
type Unpack struct {
	Expr Node
	Idx  int
}

var (
	_ Node       = (*Unpack)(nil)
	_ identified = (*Unpack)(nil)
)

func (n *Unpack) node() {}

// Type returns the type of the extracted field.
func (n *Unpack) Type() (Type, error) {
	typ, err := n.Expr.Type()
	if err != nil {
		return nil, err
	}
	tupleT, ok := typ.(*TupleType)
	if !ok {
		return nil, internalErrorf("cannot unpack field %d of non-tuple type %s", n.Idx, typ)
	}
	return tupleT.Field(n.Idx)
}

// Render returns the field access of the rendered tuple expression.
func (n *Unpack) Render(lang Lang) (string, error) {
	expr, err := n.Expr.Render(lang)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.val_%d", expr, n.Idx), nil
}

// Identifier returns the identifier of the extracted field.
func (n *Unpack) Identifier(names *intern.Table) (string, error) {
	expr, err := identifierOf(n.Expr, names)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_val_%d", expr, n.Idx), nil
}

// String representation of the field access.
func (n *Unpack) String() string {
	return fmt.Sprintf("{%s}[%d]", n.Expr, n.Idx)
}

func (n *Unpack) clone() Node {
	c := *n
	return &c
}

var unpackSlots = &slotTable{
	kind: "Unpack",
	scalar: []scalarSlot{
		{
			name: "expr",
			get:  func(n Node) any { return n.(*Unpack).Expr },
			set:  func(n Node, v any) { n.(*Unpack).Expr = v.(Node) },
		},
		{
			name: "idx",
			get:  func(n Node) any { return n.(*Unpack).Idx },
			set:  func(n Node, v any) { n.(*Unpack).Idx = v.(int) },
		},
	},
}

func (n *Unpack) slots() *slotTable { return unpackSlots }
