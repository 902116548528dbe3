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
	"strconv"
	"strings"
)

// Operators eligible for flattening across nested applications.
var reductionOps = map[string]BinaryKind{
	"+": KindAddSub,
	"*": KindMulDiv,
}

// ToReduction decomposes a node into a reduction operator and its
// operands. A binary operation qualifies if all its operators are the
// same reduction operator; a call qualifies if it names a reduction
// function. ok is false for any other node.
func ToReduction(n Node) (operator string, operands []Node, ok bool) {
	switch nT := n.(type) {
	case *BinaryOp:
		if len(nT.Operators) == 0 {
			return "", nil, false
		}
		operator = nT.Operators[0]
		if _, isReduction := reductionOps[operator]; !isReduction {
			return "", nil, false
		}
		for _, op := range nT.Operators[1:] {
			if op != operator {
				return "", nil, false
			}
		}
		return operator, nT.Operands, true
	case *Call:
		if reductionFuncs[nT.Name] {
			return nT.Name, nT.Args, true
		}
	}
	return "", nil, false
}

// FromReduction assembles a node applying a reduction operator to
// ordered operands.
func FromReduction(operator string, operands []Node) (Node, error) {
	if kind, ok := reductionOps[operator]; ok {
		operators := make([]string, len(operands)-1)
		for i := range operators {
			operators[i] = operator
		}
		return NewBinary(kind, operators, operands), nil
	}
	if reductionFuncs[operator] {
		return &Call{Name: operator, Args: operands}, nil
	}
	return nil, semanticErrorf("%s is not a reduction operator", operator)
}

// MakeVar returns a variable node with the given name and type.
func MakeVar(name string, typ Type) *Var {
	return &Var{Name: name, Typ: typ}
}

// IsConst returns true if the node is a numeric-literal operand.
func IsConst(n Node) bool {
	operand, ok := n.(*Operand)
	return ok && operand.Num != ""
}

// ParseInt parses an integer literal in C syntax: an optional
// U/L suffix run and a binary, octal, decimal or hexadecimal body.
func ParseInt(s string) (int64, error) {
	trimmed := strings.TrimRight(s, "UuLl")
	if trimmed == "" {
		return 0, semanticErrorf("cannot parse integer literal %q", s)
	}
	base := 10
	switch {
	case strings.HasPrefix(trimmed, "0x"), strings.HasPrefix(trimmed, "0X"):
		trimmed, base = trimmed[2:], 16
	case strings.HasPrefix(trimmed, "0b"), strings.HasPrefix(trimmed, "0B"):
		trimmed, base = trimmed[2:], 2
	case len(trimmed) > 1 && trimmed[0] == '0':
		trimmed, base = trimmed[1:], 8
	}
	val, err := strconv.ParseInt(trimmed, base, 64)
	if err != nil {
		return 0, semanticErrorf("cannot parse integer literal %q", s)
	}
	return val, nil
}

// MaxVal returns the maximum value a node can evaluate to: the literal
// itself for constants, else the upper bound of the node's integer
// type.
func MaxVal(n Node) (int64, error) {
	if IsConst(n) {
		return ParseInt(n.(*Operand).Num)
	}
	width, signed, err := intBounds(n)
	if err != nil {
		return 0, err
	}
	if signed {
		return 1<<(width-1) - 1, nil
	}
	return int64(uint64(1)<<uint(width) - 1), nil
}

// MinVal returns the minimum value a node can evaluate to: the literal
// itself for constants, else the lower bound of the node's integer
// type.
func MinVal(n Node) (int64, error) {
	if IsConst(n) {
		return ParseInt(n.(*Operand).Num)
	}
	width, signed, err := intBounds(n)
	if err != nil {
		return 0, err
	}
	if signed {
		return -(1 << (width - 1)), nil
	}
	return 0, nil
}

func intBounds(n Node) (width int, signed bool, err error) {
	typ, err := n.Type()
	if err != nil {
		return 0, false, err
	}
	intT, ok := typ.(*IntType)
	if !ok {
		return 0, false, semanticErrorf("value range requires an integer type, got %s", typ)
	}
	width = intT.Width
	if width > 63 {
		return 0, false, semanticErrorf("value range of %s exceeds 63 bits", typ)
	}
	return width, intT.Signed, nil
}
