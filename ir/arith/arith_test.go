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

package arith_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/Blaok/haoda/ir"
	"github.com/Blaok/haoda/ir/arith"
)

func v(name string) *ir.Var { return &ir.Var{Name: name} }

func mustType(t *testing.T, spelling string) ir.Type {
	t.Helper()
	typ, err := ir.ParseType(spelling)
	if err != nil {
		t.Fatalf("ParseType(%q): %v", spelling, err)
	}
	return typ
}

func flatten(t *testing.T, node ir.Node) ir.Node {
	t.Helper()
	flat, err := arith.Flatten(node)
	if err != nil {
		t.Fatalf("Flatten(%s): %v", node, err)
	}
	return flat
}

func TestFlattenSplicesAssociative(t *testing.T) {
	a, b, c, d, e := v("a"), v("b"), v("c"), v("d"), v("e")
	tree := ir.NewAddSub([]string{"+", "+"}, []ir.Node{
		ir.NewAddSub([]string{"+"}, []ir.Node{a, b}),
		c,
		ir.NewAddSub([]string{"+"}, []ir.Node{d, e}),
	})
	flat := flatten(t, tree)
	want := ir.NewAddSub([]string{"+", "+", "+", "+"}, []ir.Node{a, b, c, d, e})
	if !ir.Equal(flat, want) {
		t.Errorf("Flatten(%s) = %s, want %s", tree, flat, want)
	}
	if again := flatten(t, flat); !ir.Equal(again, flat) {
		t.Errorf("Flatten is not idempotent: %s != %s", again, flat)
	}
}

func TestFlattenFirstOperandAlwaysSplices(t *testing.T) {
	a, b, c := v("a"), v("b"), v("c")
	tree := ir.NewAddSub([]string{"-"}, []ir.Node{
		ir.NewAddSub([]string{"+"}, []ir.Node{a, b}),
		c,
	})
	flat := flatten(t, tree)
	want := ir.NewAddSub([]string{"+", "-"}, []ir.Node{a, b, c})
	if !ir.Equal(flat, want) {
		t.Errorf("Flatten(%s) = %s, want %s", tree, flat, want)
	}
}

func TestFlattenKeepsNonAssociative(t *testing.T) {
	a, b, c := v("a"), v("b"), v("c")
	tree := ir.NewAddSub([]string{"-"}, []ir.Node{
		a,
		ir.NewAddSub([]string{"+"}, []ir.Node{b, c}),
	})
	flat := flatten(t, tree)
	if !ir.Equal(flat, tree) {
		t.Errorf("Flatten(%s) = %s, want it unchanged", tree, flat)
	}
}

func TestFlattenCollapsesSingleton(t *testing.T) {
	tree := ir.NewAddSub(nil, []ir.Node{v("a")})
	flat := flatten(t, tree)
	if !ir.Equal(flat, v("a")) {
		t.Errorf("Flatten(%s) = %s, want a", tree, flat)
	}
}

func TestFlattenCollapsesOperand(t *testing.T) {
	flat := flatten(t, &ir.Operand{Var: v("a")})
	if _, ok := flat.(*ir.Var); !ok {
		t.Errorf("Flatten(operand) = %s of kind %s, want a variable", flat, ir.KindOf(flat))
	}
}

func TestFlattenUnaryIdentity(t *testing.T) {
	tests := []struct {
		operators []string
		collapses bool
	}{
		{[]string{"-", "-"}, true},
		{[]string{"+"}, true},
		{[]string{"+", "-", "-"}, true},
		{[]string{"!", "!"}, true},
		{[]string{"-"}, false},
		{[]string{"!"}, false},
		{[]string{"!", "-"}, false},
	}
	for _, test := range tests {
		tree := &ir.Unary{Operators: test.operators, Operand: v("a")}
		flat := flatten(t, tree)
		_, isVar := flat.(*ir.Var)
		if isVar != test.collapses {
			t.Errorf("Flatten(%v a) = %s, collapse = %t, want %t",
				test.operators, flat, isVar, test.collapses)
		}
	}
}

func TestFlattenAbsorbsReduction(t *testing.T) {
	a, b, c := v("a"), v("b"), v("c")
	tree := &ir.Call{Name: "min", Args: []ir.Node{
		&ir.Call{Name: "min", Args: []ir.Node{a, b}},
		c,
	}}
	flat := flatten(t, tree)
	want := &ir.Call{Name: "min", Args: []ir.Node{a, b, c}}
	if !ir.Equal(flat, want) {
		t.Errorf("Flatten(%s) = %s, want %s", tree, flat, want)
	}
}

func TestReverseDistributeCommonLeftFactor(t *testing.T) {
	k, a, b := v("k"), v("a"), v("b")
	tree := ir.NewAddSub([]string{"+"}, []ir.Node{
		ir.NewMulDiv([]string{"*"}, []ir.Node{k, a}),
		ir.NewMulDiv([]string{"*"}, []ir.Node{k, b}),
	})
	got, err := arith.ReverseDistribute(tree)
	if err != nil {
		t.Fatalf("ReverseDistribute(%s): %v", tree, err)
	}
	want := ir.NewMulDiv([]string{"*"}, []ir.Node{
		k,
		ir.NewAddSub([]string{"+"}, []ir.Node{a, b}),
	})
	if !ir.Equal(got, want) {
		t.Errorf("ReverseDistribute(%s) = %s, want %s", tree, got, want)
	}
}

func TestReverseDistributeCommonRightFactor(t *testing.T) {
	a, b, c, d := v("a"), v("b"), v("c"), v("d")
	tree := ir.NewAddSub([]string{"+", "+"}, []ir.Node{
		ir.NewMulDiv([]string{"*"}, []ir.Node{a, c}),
		ir.NewMulDiv([]string{"*"}, []ir.Node{b, c}),
		d,
	})
	got, err := arith.ReverseDistribute(tree)
	if err != nil {
		t.Fatalf("ReverseDistribute(%s): %v", tree, err)
	}
	want := ir.NewAddSub([]string{"+"}, []ir.Node{
		d,
		ir.NewMulDiv([]string{"*"}, []ir.Node{
			ir.NewAddSub([]string{"+"}, []ir.Node{a, b}),
			c,
		}),
	})
	if !ir.Equal(got, want) {
		t.Errorf("ReverseDistribute(%s) = %s, want %s", tree, got, want)
	}
}

func TestReverseDistributeKeepsSubtractedTerm(t *testing.T) {
	k, a, b, d := v("k"), v("a"), v("b"), v("d")
	trees := []ir.Node{
		ir.NewAddSub([]string{"-"}, []ir.Node{
			ir.NewMulDiv([]string{"*"}, []ir.Node{k, a}),
			d,
		}),
		ir.NewAddSub([]string{"+", "-"}, []ir.Node{
			ir.NewMulDiv([]string{"*"}, []ir.Node{k, a}),
			ir.NewMulDiv([]string{"*"}, []ir.Node{k, b}),
			d,
		}),
	}
	for _, tree := range trees {
		got, err := arith.ReverseDistribute(tree)
		if err != nil {
			t.Fatalf("ReverseDistribute(%s): %v", tree, err)
		}
		if !ir.Equal(got, tree) {
			t.Errorf("ReverseDistribute(%s) = %s, want it unchanged", tree, got)
		}
	}
}

func TestReverseDistributeNoCommonFactor(t *testing.T) {
	tree := ir.NewAddSub([]string{"+"}, []ir.Node{v("a"), v("b")})
	got, err := arith.ReverseDistribute(tree)
	if err != nil {
		t.Fatalf("ReverseDistribute(%s): %v", tree, err)
	}
	if !ir.Equal(got, tree) {
		t.Errorf("ReverseDistribute(%s) = %s, want it unchanged", tree, got)
	}
}

func TestPropagateTypes(t *testing.T) {
	symbols := map[string]ir.Type{
		"in": mustType(t, "uint8"),
		"i":  mustType(t, "int32"),
	}
	ref := &ir.Ref{Name: "in", Idx: []int{0, 0}}
	tree := ir.NewAddSub([]string{"+"}, []ir.Node{ref, v("i")})
	got, err := arith.PropagateTypes(tree, symbols)
	if err != nil {
		t.Fatalf("PropagateTypes(%s): %v", tree, err)
	}
	sum := got.(*ir.BinaryOp)
	if typ := sum.Operands[0].(*ir.Ref).Typ; !symbols["in"].Equal(typ) {
		t.Errorf("propagated ref type = %s, want uint8", typ)
	}
	if typ := sum.Operands[1].(*ir.Var).Typ; !symbols["i"].Equal(typ) {
		t.Errorf("propagated var type = %s, want int32", typ)
	}
	if ref.Typ != nil {
		t.Errorf("input tree was mutated: ref type = %s", ref.Typ)
	}
}

func TestPropagateTypesMissingSymbols(t *testing.T) {
	tree := ir.NewAddSub([]string{"+"}, []ir.Node{
		&ir.Ref{Name: "in", Idx: []int{0}},
		v("i"),
	})
	_, err := arith.PropagateTypes(tree, nil)
	if !errors.Is(err, ir.ErrSemantic) {
		t.Fatalf("PropagateTypes() error = %v, want a semantic error", err)
	}
	if got, want := len(multierr.Errors(err)), 2; got != want {
		t.Errorf("PropagateTypes() reported %d missing symbols, want %d: %v", got, want, err)
	}
}

func TestPrintTree(t *testing.T) {
	var lines []string
	printer := func(s string) { lines = append(lines, s) }
	tree := ir.NewAddSub([]string{"+"}, []ir.Node{
		ir.MakeVar("a", mustType(t, "uint8")),
		ir.MakeVar("b", nil),
	})
	got, err := arith.PrintTree(tree, printer)
	if err != nil {
		t.Fatalf("PrintTree(%s): %v", tree, err)
	}
	if !ir.Equal(got, tree) {
		t.Errorf("PrintTree(%s) = %s, want it unchanged", tree, got)
	}
	want := []string{
		"root",
		" +-AddSub(uint8): (a + b)",
		"  +-Var(uint8): a",
		"  +-Var(unknown): b",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("PrintTree() output mismatch (-want +got):\n%s", diff)
	}
}

func TestSimplifyAll(t *testing.T) {
	a, b, c := v("a"), v("b"), v("c")
	trees := []ir.Node{
		ir.NewAddSub([]string{"+"}, []ir.Node{
			ir.NewAddSub([]string{"+"}, []ir.Node{a, b}),
			c,
		}),
		&ir.Unary{Operators: []string{"-", "-"}, Operand: a},
	}
	got, err := arith.SimplifyAll(trees, nil)
	if err != nil {
		t.Fatalf("SimplifyAll(): %v", err)
	}
	want := []ir.Node{
		ir.NewAddSub([]string{"+", "+"}, []ir.Node{a, b, c}),
		a,
	}
	if len(got) != len(want) {
		t.Fatalf("SimplifyAll() returned %d nodes, want %d", len(got), len(want))
	}
	for i := range want {
		if !ir.Equal(got[i], want[i]) {
			t.Errorf("SimplifyAll()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
