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

package ir_test

import (
	"errors"
	"testing"

	"github.com/Blaok/haoda/ir"
)

func TestToReduction(t *testing.T) {
	a, b, c := ir.MakeVar("a", nil), ir.MakeVar("b", nil), ir.MakeVar("c", nil)
	tests := []struct {
		name     string
		node     ir.Node
		operator string
		operands []ir.Node
		ok       bool
	}{
		{
			name:     "sum",
			node:     ir.NewAddSub([]string{"+", "+"}, []ir.Node{a, b, c}),
			operator: "+",
			operands: []ir.Node{a, b, c},
			ok:       true,
		},
		{
			name:     "product",
			node:     ir.NewMulDiv([]string{"*"}, []ir.Node{a, b}),
			operator: "*",
			operands: []ir.Node{a, b},
			ok:       true,
		},
		{
			name: "mixed operators",
			node: ir.NewAddSub([]string{"+", "-"}, []ir.Node{a, b, c}),
		},
		{
			name: "division",
			node: ir.NewMulDiv([]string{"/"}, []ir.Node{a, b}),
		},
		{
			name: "singleton",
			node: ir.NewAddSub(nil, []ir.Node{a}),
		},
		{
			name:     "call",
			node:     &ir.Call{Name: "min", Args: []ir.Node{a, b}},
			operator: "min",
			operands: []ir.Node{a, b},
			ok:       true,
		},
		{
			name: "plain call",
			node: &ir.Call{Name: "sqrt", Args: []ir.Node{a}},
		},
		{
			name: "variable",
			node: a,
		},
	}
	for _, test := range tests {
		operator, operands, ok := ir.ToReduction(test.node)
		if ok != test.ok {
			t.Errorf("%s: ToReduction(%s) ok = %t, want %t", test.name, test.node, ok, test.ok)
			continue
		}
		if !ok {
			continue
		}
		if operator != test.operator {
			t.Errorf("%s: ToReduction(%s) operator = %q, want %q",
				test.name, test.node, operator, test.operator)
		}
		if len(operands) != len(test.operands) {
			t.Errorf("%s: ToReduction(%s) has %d operands, want %d",
				test.name, test.node, len(operands), len(test.operands))
		}
	}
}

func TestFromReductionRoundTrip(t *testing.T) {
	a, b, c := ir.MakeVar("a", nil), ir.MakeVar("b", nil), ir.MakeVar("c", nil)
	for _, node := range []ir.Node{
		ir.NewAddSub([]string{"+", "+"}, []ir.Node{a, b, c}),
		ir.NewMulDiv([]string{"*"}, []ir.Node{a, b}),
		&ir.Call{Name: "max", Args: []ir.Node{a, b}},
	} {
		operator, operands, ok := ir.ToReduction(node)
		if !ok {
			t.Fatalf("ToReduction(%s) is not a reduction", node)
		}
		rebuilt, err := ir.FromReduction(operator, operands)
		if err != nil {
			t.Fatalf("FromReduction(%q): %v", operator, err)
		}
		if !ir.Equal(rebuilt, node) {
			t.Errorf("FromReduction(ToReduction(%s)) = %s", node, rebuilt)
		}
	}
}

func TestFromReductionError(t *testing.T) {
	_, err := ir.FromReduction("%", []ir.Node{ir.MakeVar("a", nil)})
	if !errors.Is(err, ir.ErrSemantic) {
		t.Errorf("FromReduction(%%) error = %v, want a semantic error", err)
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		literal string
		want    int64
	}{
		{"42", 42},
		{"0", 0},
		{"0x1F", 31},
		{"0X10", 16},
		{"0b101", 5},
		{"017", 15},
		{"42UL", 42},
		{"7ull", 7},
	}
	for _, test := range tests {
		got, err := ir.ParseInt(test.literal)
		if err != nil {
			t.Errorf("ParseInt(%q): %v", test.literal, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseInt(%q) = %d, want %d", test.literal, got, test.want)
		}
	}
	for _, literal := range []string{"", "xyz", "UL", "0x"} {
		if _, err := ir.ParseInt(literal); !errors.Is(err, ir.ErrSemantic) {
			t.Errorf("ParseInt(%q) error = %v, want a semantic error", literal, err)
		}
	}
}

func TestValueRange(t *testing.T) {
	tests := []struct {
		node     ir.Node
		min, max int64
	}{
		{&ir.Operand{Num: "42"}, 42, 42},
		{ir.MakeVar("a", ir.Uint(8)), 0, 255},
		{ir.MakeVar("a", ir.Int(8)), -128, 127},
		{ir.MakeVar("a", ir.Uint(1)), 0, 1},
		{ir.MakeVar("a", ir.Int(1)), -1, 0},
		{ir.MakeVar("a", ir.Uint(63)), 0, 1<<63 - 1},
	}
	for _, test := range tests {
		min, err := ir.MinVal(test.node)
		if err != nil {
			t.Errorf("MinVal(%s): %v", test.node, err)
			continue
		}
		max, err := ir.MaxVal(test.node)
		if err != nil {
			t.Errorf("MaxVal(%s): %v", test.node, err)
			continue
		}
		if min != test.min || max != test.max {
			t.Errorf("range of %s = [%d, %d], want [%d, %d]",
				test.node, min, max, test.min, test.max)
		}
	}
}

func TestValueRangeError(t *testing.T) {
	for _, node := range []ir.Node{
		ir.MakeVar("a", ir.Uint(64)),
		ir.MakeVar("a", ir.Float32Type()),
		ir.MakeVar("a", nil),
	} {
		if _, err := ir.MaxVal(node); !errors.Is(err, ir.ErrSemantic) {
			t.Errorf("MaxVal(%s) error = %v, want a semantic error", node, err)
		}
	}
}

func TestIsConst(t *testing.T) {
	if !ir.IsConst(&ir.Operand{Num: "1"}) {
		t.Errorf("IsConst(1) = false, want true")
	}
	if ir.IsConst(ir.MakeVar("a", nil)) {
		t.Errorf("IsConst(a) = true, want false")
	}
	if ir.IsConst(&ir.Operand{Var: ir.MakeVar("a", nil)}) {
		t.Errorf("IsConst(operand a) = true, want false")
	}
}
