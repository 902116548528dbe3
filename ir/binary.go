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
)

// BinaryKind identifies one level of the binary-operation precedence
// ladder. Two binary operations are only interchangeable within the
// same level.
type BinaryKind int

const (
	// KindExpr is the logical-or level, the lowest precedence.
	KindExpr BinaryKind = iota
	// KindLogicAnd is the logical-and level.
	KindLogicAnd
	// KindBinaryOr is the bitwise-or level.
	KindBinaryOr
	// KindXor is the bitwise-xor level.
	KindXor
	// KindBinaryAnd is the bitwise-and level.
	KindBinaryAnd
	// KindEqCmp is the equality-comparison level.
	KindEqCmp
	// KindLtCmp is the ordering-comparison level.
	KindLtCmp
	// KindAddSub is the additive level.
	KindAddSub
	// KindMulDiv is the multiplicative level, the highest precedence.
	KindMulDiv
)

var binaryKindNames = [...]string{
	KindExpr:      "Expr",
	KindLogicAnd:  "LogicAnd",
	KindBinaryOr:  "BinaryOr",
	KindXor:       "Xor",
	KindBinaryAnd: "BinaryAnd",
	KindEqCmp:     "EqCmp",
	KindLtCmp:     "LtCmp",
	KindAddSub:    "AddSub",
	KindMulDiv:    "MulDiv",
}

// String representation of the kind.
func (k BinaryKind) String() string {
	if k < 0 || int(k) >= len(binaryKindNames) {
		return fmt.Sprintf("BinaryKind(%d)", int(k))
	}
	return binaryKindNames[k]
}

// BinaryOp joins ordered operands with ordered inter-operand
// operators, all drawn from one precedence level. A valid operation
// has one less operator than operands; a single-operand operation is a
// singleton and renders without parentheses.
type BinaryOp struct {
	Kind      BinaryKind
	Operands  []Node
	Operators []string
}

var _ Node = (*BinaryOp)(nil)

// NewBinary returns a binary operation of the given kind.
func NewBinary(kind BinaryKind, operators []string, operands []Node) *BinaryOp {
	return &BinaryOp{Kind: kind, Operands: operands, Operators: operators}
}

// NewAddSub returns an additive operation.
func NewAddSub(operators []string, operands []Node) *BinaryOp {
	return NewBinary(KindAddSub, operators, operands)
}

// NewMulDiv returns a multiplicative operation.
func NewMulDiv(operators []string, operands []Node) *BinaryOp {
	return NewBinary(KindMulDiv, operators, operands)
}

func (n *BinaryOp) node() {}

// Singleton returns true if the operation has exactly one operand.
func (n *BinaryOp) Singleton() bool { return len(n.Operands) == 1 }

// Type of the operation, approximated as the first operand's type.
func (n *BinaryOp) Type() (Type, error) {
	if len(n.Operands) == 0 {
		return nil, internalErrorf("binary operation %s has no operands", n.Kind)
	}
	return n.Operands[0].Type()
}

// Render returns the infix expression, parenthesized unless the
// operation is a singleton.
func (n *BinaryOp) Render(lang Lang) (string, error) {
	if len(n.Operands) == 0 {
		return "", internalErrorf("binary operation %s has no operands", n.Kind)
	}
	var b strings.Builder
	expr, err := n.Operands[0].Render(lang)
	if err != nil {
		return "", err
	}
	b.WriteString(expr)
	for i, operator := range n.Operators {
		if i+1 >= len(n.Operands) {
			return "", internalErrorf("binary operation %s has %d operands for %d operators",
				n.Kind, len(n.Operands), len(n.Operators))
		}
		if expr, err = n.Operands[i+1].Render(lang); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " %s %s", operator, expr)
	}
	if n.Singleton() {
		return b.String(), nil
	}
	return Parenthesize(b.String()), nil
}

// String representation of the expression.
func (n *BinaryOp) String() string {
	if len(n.Operands) == 0 {
		return "<empty " + n.Kind.String() + ">"
	}
	var b strings.Builder
	b.WriteString(n.Operands[0].String())
	for i, operator := range n.Operators {
		if i+1 >= len(n.Operands) {
			break
		}
		fmt.Fprintf(&b, " %s %s", operator, n.Operands[i+1].String())
	}
	if n.Singleton() {
		return b.String()
	}
	return Parenthesize(b.String())
}

func (n *BinaryOp) clone() Node {
	c := *n
	c.Operands = append([]Node(nil), n.Operands...)
	c.Operators = append([]string(nil), n.Operators...)
	return &c
}

var binaryOpSlots = &slotTable{
	kind: "BinaryOp",
	ordered: []orderedSlot{
		{
			name: "operands",
			get:  func(n Node) []any { return nodesToAny(n.(*BinaryOp).Operands) },
			set:  func(n Node, v []any) { n.(*BinaryOp).Operands = anyToNodes(v) },
		},
		{
			name: "operators",
			get:  func(n Node) []any { return stringsToAny(n.(*BinaryOp).Operators) },
			set:  func(n Node, v []any) { n.(*BinaryOp).Operators = anyToStrings(v) },
		},
	},
}

func (n *BinaryOp) slots() *slotTable { return binaryOpSlots }
