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

// Package arith implements algebraic simplification passes over
// expression trees: associativity flattening, reverse distribution,
// type propagation and a diagnostic tree printer. All passes are pure
// tree-to-tree functions.
package arith

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/Blaok/haoda/ir"
)

// Operators over which a nested operation of the same precedence level
// may be spliced into its parent.
var associative = map[string]bool{
	"||": true,
	"&&": true,
	"|":  true,
	"&":  true,
	"+":  true,
	"*":  true,
}

// Simplify flattens an expression. A non-nil printer additionally
// prints the simplified tree for diagnostics.
func Simplify(node ir.Node, printer func(string)) (ir.Node, error) {
	if node == nil {
		return nil, nil
	}
	flat, err := Flatten(node)
	if err != nil {
		return nil, err
	}
	if printer != nil {
		return PrintTree(flat, printer)
	}
	return flat, nil
}

// SimplifyAll simplifies a sequence of expressions.
func SimplifyAll(nodes []ir.Node, printer func(string)) ([]ir.Node, error) {
	result := make([]ir.Node, len(nodes))
	for i, node := range nodes {
		simplified, err := Simplify(node, printer)
		if err != nil {
			return nil, err
		}
		result[i] = simplified
	}
	return result, nil
}

// Flatten canonicalizes an expression tree:
//   - a single-operand binary operation collapses to its operand;
//   - a binary operand of the same precedence level joined by an
//     associative operator splices its lists into the parent;
//   - an operand wrapper collapses to its content;
//   - prefix operators forming an identity collapse to the operand;
//   - a reduction call absorbs nested same-named calls.
//
// Flatten is idempotent.
func Flatten(node ir.Node) (ir.Node, error) {
	return ir.Visit(node, flattenVisitor, nil, nil, nil)
}

func flattenVisitor(n ir.Node, _ any) (ir.Rewrite, error) {
	switch nT := n.(type) {
	case *ir.BinaryOp:
		if nT.Singleton() {
			return replaceFlat(nT.Operands[0])
		}
		operators := make([]string, 0, len(nT.Operators))
		operands := make([]ir.Node, 0, len(nT.Operands))
		for i, operand := range nT.Operands {
			splice := i == 0
			if i > 0 {
				operator := nT.Operators[i-1]
				operators = append(operators, operator)
				splice = associative[operator]
			}
			child, ok := operand.(*ir.BinaryOp)
			if ok && child.Kind == nT.Kind && splice {
				operators = append(operators, child.Operators...)
				operands = append(operands, child.Operands...)
			} else {
				operands = append(operands, operand)
			}
		}
		if len(operands) > len(nT.Operands) {
			return replaceFlat(ir.NewBinary(nT.Kind, operators, operands))
		}

	case *ir.Operand:
		content, err := nT.Content()
		if err != nil {
			return ir.Rewrite{}, err
		}
		if content != nil {
			return replaceFlat(content)
		}

	case *ir.Unary:
		counts := make(map[string]int)
		for _, operator := range nT.Operators {
			counts[operator]++
		}
		identity := counts["-"]%2 == 0 && counts["-"]+counts["+"] == len(nT.Operators)
		identity = identity || (counts["!"]%2 == 0 && counts["!"] == len(nT.Operators))
		if identity {
			return replaceFlat(nT.Operand)
		}

	case *ir.Call:
		if ir.IsReductionFunc(nT.Name) {
			args := make([]ir.Node, 0, len(nT.Args))
			for _, arg := range nT.Args {
				if call, ok := arg.(*ir.Call); ok && call.Name == nT.Name {
					args = append(args, call.Args...)
				} else {
					args = append(args, arg)
				}
			}
			if len(args) > len(nT.Args) {
				return replaceFlat(&ir.Call{Name: nT.Name, Args: args})
			}
		}
	}
	return ir.Keep(n), nil
}

func replaceFlat(n ir.Node) (ir.Rewrite, error) {
	flat, err := Flatten(n)
	if err != nil {
		return ir.Rewrite{}, err
	}
	return ir.Replace(flat), nil
}

// ReverseDistribute applies the distributive property in reverse:
// additive terms that are 2-operand multiplications sharing a common
// factor are grouped under that factor, first with the factor on the
// left, then on the right, so that a*c + b*c + d becomes (a+b)*c + d.
func ReverseDistribute(node ir.Node) (ir.Node, error) {
	result, err := ir.Visit(node, reverseDistributeVisitor, true, nil, nil)
	if err != nil {
		return nil, err
	}
	return ir.Visit(result, reverseDistributeVisitor, false, nil, nil)
}

func reverseDistributeVisitor(n ir.Node, ctx any) (ir.Rewrite, error) {
	left := ctx.(bool)
	nT, ok := n.(*ir.BinaryOp)
	if !ok || nT.Kind != ir.KindAddSub {
		return ir.Keep(n), nil
	}
	type group struct {
		factor ir.Node
		terms  []ir.Node
	}
	var groups []*group
	var operators []string
	var operands []ir.Node
	for i, operand := range nT.Operands {
		operator := "+"
		if i > 0 {
			operator = nT.Operators[i-1]
		}
		product, isProduct := operand.(*ir.BinaryOp)
		if operator == "+" && isProduct && product.Kind == ir.KindMulDiv &&
			len(product.Operators) == 1 && product.Operators[0] == "*" {
			factor, term := product.Operands[0], product.Operands[1]
			if !left {
				term, factor = factor, term
			}
			found := false
			for _, g := range groups {
				if ir.Equal(g.factor, factor) {
					g.terms = append(g.terms, term)
					found = true
					break
				}
			}
			if !found {
				groups = append(groups, &group{factor: factor, terms: []ir.Node{term}})
			}
			continue
		}
		operators = append(operators, operator)
		operands = append(operands, operand)
	}
	for _, g := range groups {
		operators = append(operators, "+")
		term := g.terms[0]
		if len(g.terms) > 1 {
			plus := make([]string, len(g.terms)-1)
			for i := range plus {
				plus[i] = "+"
			}
			term = ir.NewAddSub(plus, g.terms)
		}
		children := []ir.Node{g.factor, term}
		if !left {
			children = []ir.Node{term, g.factor}
		}
		operands = append(operands, ir.NewMulDiv([]string{"*"}, children))
	}
	if len(operands) > 1 {
		// The rebuilt node drops the operator joining its first
		// operand; dropping a '-' would flip the sign of that term.
		if operators[0] != "+" {
			return ir.Keep(n), nil
		}
		grouped := ir.NewAddSub(operators[1:], operands)
		if !ir.Equal(grouped, n) {
			return ir.Replace(grouped), nil
		}
	} else if len(operands) == 1 && !ir.Equal(operands[0], n) {
		return ir.Replace(operands[0]), nil
	}
	return ir.Keep(n), nil
}

// PropagateTypes assigns every tensor reference and variable of
// unknown type the type recorded for its name in the symbol table. All
// missing names are collected and reported together.
func PropagateTypes(node ir.Node, symbols map[string]ir.Type) (ir.Node, error) {
	var missing error
	cb := func(n ir.Node, _ any) (ir.Rewrite, error) {
		switch nT := n.(type) {
		case *ir.Ref:
			if nT.Typ == nil {
				typ, ok := symbols[nT.Name]
				if !ok {
					missing = multierr.Append(missing,
						errors.Wrapf(ir.ErrSemantic, "no symbol %q", nT.Name))
				}
				nT.Typ = typ
			}
		case *ir.Var:
			if nT.Typ == nil {
				typ, ok := symbols[nT.Name]
				if !ok {
					missing = multierr.Append(missing,
						errors.Wrapf(ir.ErrSemantic, "no symbol %q", nT.Name))
				}
				nT.Typ = typ
			}
		}
		return ir.Keep(n), nil
	}
	result, err := ir.Visit(node, cb, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if missing != nil {
		return nil, missing
	}
	return result, nil
}

// PrintTree prints a depth-first rendering of a tree with
// depth-proportional indentation, showing each node's variant, type
// and string form. The tree is returned unchanged.
func PrintTree(node ir.Node, printer func(string)) (ir.Node, error) {
	depth := 1
	cb := func(n ir.Node, _ any) (ir.Rewrite, error) {
		typ := "unknown"
		if t, err := n.Type(); err == nil {
			typ = t.String()
		}
		printer(fmt.Sprintf("%s+-%s(%s): %s",
			strings.Repeat(" ", depth), ir.KindOf(n), typ, n))
		return ir.Keep(n), nil
	}
	pre := func(n ir.Node, _ any) (ir.Node, error) {
		depth++
		return n, nil
	}
	post := func(n ir.Node, _ any) (ir.Node, error) {
		depth--
		return n, nil
	}
	printer("root")
	return ir.Visit(node, cb, nil, pre, post)
}
