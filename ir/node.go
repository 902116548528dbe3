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

// Package ir is the intermediate representation of a hardware kernel:
// an immutable, structurally-hashable expression tree and a dataflow
// graph of computation modules connected by typed channels.
//
// Nodes are externally immutable: every rewrite goes through Visit and
// yields a new value. A tree may structurally share sub-nodes;
// equality and rewriting treat it as tree-shaped, never
// identity-shaped.
package ir

import (
	"hash/fnv"
	"strings"
)

// Lang selects the rendering target of an expression or a type.
type Lang int

const (
	// LangC is the host C++-like target.
	LangC Lang = iota
	// LangCL is the device OpenCL-like target.
	LangCL
)

// ----------------------------------------------------------------------------
// Node in an expression tree.
type (
	// Node is one element of an expression tree. All implementations
	// live in this package; the node set is closed.
	Node interface {
		// node marks a structure as a node structure.
		// It prevents external implementations of the interface.
		node()

		// Type returns the semantic type of the value the node
		// computes. The type may be unknown before propagation.
		Type() (Type, error)

		// Render returns the expression string for a target, with
		// explicit parenthesization.
		Render(Lang) (string, error)

		// String is the surface-syntax form of the node.
		String() string

		// clone returns a shallow copy of the node.
		clone() Node

		// slots returns the attribute table driving the generic
		// visit, equality and hashing algorithms.
		slots() *slotTable
	}

	// scalarSlot describes one single-valued attribute of a node kind.
	// Values may be a Node, a Type, or a plain value; only Node values
	// are recursed into.
	scalarSlot struct {
		name string
		get  func(Node) any
		set  func(Node, any)
	}

	// orderedSlot describes one fixed-order sequence attribute.
	// Elements may be Nodes or plain values.
	orderedSlot struct {
		name string
		get  func(Node) []any
		set  func(Node, []any)
	}

	// slotTable is the compile-time description of a node kind's
	// attributes. One table per kind, shared by all its values.
	slotTable struct {
		kind    string
		scalar  []scalarSlot
		ordered []orderedSlot
	}
)

// KindOf returns the variant tag of a node.
func KindOf(n Node) string { return kindName(n) }

// kindName returns the variant tag of a node, distinguishing the
// members of the binary-operation family by their kind.
func kindName(n Node) string {
	if b, ok := n.(*BinaryOp); ok {
		return b.Kind.String()
	}
	return n.slots().kind
}

// ----------------------------------------------------------------------------
// Generic rewriting.

// Rewrite is the tagged result of a visit callback.
type Rewrite struct {
	node     Node
	replaced bool
}

// Keep continues the visit with n, recursing into the attributes the
// callback left untouched. n is normally the working copy the callback
// received, possibly with some attributes replaced to short-circuit
// their subtrees.
func Keep(n Node) Rewrite { return Rewrite{node: n} }

// Replace ends the visit of this subtree: n fully owns the
// replacement and is returned without recursion.
func Replace(n Node) Rewrite { return Rewrite{node: n, replaced: true} }

// Callback inspects or rewrites the working copy of a node during a
// visit. The callback owns the copy and may mutate it; it must never
// mutate any other node.
type Callback func(n Node, ctx any) (Rewrite, error)

// Hook runs on the working copy before or after child recursion.
type Hook func(n Node, ctx any) (Node, error)

// Visit rewrites a tree without mutating it.
//
// A shallow copy of n is handed to the callback. If the callback
// replaces the node, the replacement is returned directly without
// recursion. Otherwise pre runs on the working copy, then every
// attribute value that is a Node and was not already replaced by the
// callback or pre is substituted with its own visit result, then post
// runs on the result.
func Visit(n Node, cb Callback, ctx any, pre, post Hook) (Node, error) {
	work := n.clone()
	if cb != nil {
		rw, err := cb(work, ctx)
		if err != nil {
			return nil, err
		}
		if rw.node != nil {
			work = rw.node
		}
		if rw.replaced {
			return work, nil
		}
	}
	if pre != nil {
		var err error
		if work, err = pre(work, ctx); err != nil {
			return nil, err
		}
	}
	tbl := n.slots()
	if work.slots() == tbl {
		if err := visitSlots(n, work, tbl, cb, ctx, pre, post); err != nil {
			return nil, err
		}
	}
	if post != nil {
		return post(work, ctx)
	}
	return work, nil
}

func visitSlots(orig, work Node, tbl *slotTable, cb Callback, ctx any, pre, post Hook) error {
	for _, slot := range tbl.scalar {
		cur := slot.get(work)
		child, ok := cur.(Node)
		if !ok || child == nil {
			continue
		}
		// An attribute the callback or pre already replaced keeps its
		// replacement; the subtree is short-circuited.
		if cur != slot.get(orig) {
			continue
		}
		res, err := Visit(child, cb, ctx, pre, post)
		if err != nil {
			return err
		}
		slot.set(work, res)
	}
	for _, slot := range tbl.ordered {
		cur := slot.get(work)
		old := slot.get(orig)
		for i := range min(len(cur), len(old)) {
			child, ok := cur[i].(Node)
			if !ok || child == nil || cur[i] != old[i] {
				continue
			}
			res, err := Visit(child, cb, ctx, pre, post)
			if err != nil {
				return err
			}
			cur[i] = res
		}
		slot.set(work, cur)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Structural equality and hashing.

// Equal returns true if two trees are structurally equal over their
// declared attributes. Channels compare by endpoints only; nodes with
// a derivable concrete type on both sides must agree on it.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if kindName(a) != kindName(b) {
		return false
	}
	switch aT := a.(type) {
	case *FIFO:
		bT := b.(*FIFO)
		return aT.Write == bT.Write && aT.Read == bT.Read
	case *FIFORef:
		bT := b.(*FIFORef)
		if typesConflict(a, b) {
			return false
		}
		return aT.ID == bT.ID && intPtrEqual(aT.Lat, bT.Lat)
	case *DRAMRef:
		bT := b.(*DRAMRef)
		if typesConflict(a, b) {
			return false
		}
		return aT.Var == bT.Var && intsEqual(aT.DRAM, bT.DRAM) && aT.Offset == bT.Offset
	}
	if typesConflict(a, b) {
		return false
	}
	tbl := a.slots()
	for _, slot := range tbl.scalar {
		if !valueEqual(slot.get(a), slot.get(b)) {
			return false
		}
	}
	for _, slot := range tbl.ordered {
		as, bs := slot.get(a), slot.get(b)
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !valueEqual(as[i], bs[i]) {
				return false
			}
		}
	}
	return true
}

// typesConflict returns true if both nodes derive to a concrete type
// and the types differ.
func typesConflict(a, b Node) bool {
	aTyp, err := a.Type()
	if err != nil || IsUnknown(aTyp) {
		return false
	}
	bTyp, err := b.Type()
	if err != nil || IsUnknown(bTyp) {
		return false
	}
	return !aTyp.Equal(bTyp)
}

func valueEqual(a, b any) bool {
	switch aT := a.(type) {
	case Node:
		bT, ok := b.(Node)
		return ok && Equal(aT, bT)
	case Type:
		return typeValueEqual(aT, b)
	case *int:
		bT, ok := b.(*int)
		return ok && intPtrEqual(aT, bT)
	case nil:
		if bT, ok := b.(Type); ok {
			return IsUnknown(bT)
		}
		return b == nil
	}
	return a == b
}

// typeValueEqual compares a Type-valued slot against its counterpart.
// An unset type and the unknown type are interchangeable.
func typeValueEqual(aT Type, b any) bool {
	bT, ok := b.(Type)
	if !ok {
		return b == nil && IsUnknown(aT)
	}
	if IsUnknown(aT) || IsUnknown(bT) {
		return IsUnknown(aT) && IsUnknown(bT)
	}
	return aT.Equal(bT)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Hash returns a structural hash consistent with Equal: equal trees
// hash equal. The hash does not include derived types.
func Hash(n Node) uint64 {
	h := fnv.New64a()
	var w func(string)
	w = func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	hashNode(n, w)
	return h.Sum64()
}

func hashNode(n Node, w func(string)) {
	if n == nil {
		w("<nil>")
		return
	}
	w(kindName(n))
	switch nT := n.(type) {
	case *FIFO:
		// Endpoints only so that the hash agrees with Equal.
		w(nT.Write.Name())
		w(nT.Read.Name())
		return
	case *FIFORef:
		w(nT.RefName())
		hashValue(nT.Lat, w)
		return
	case *DRAMRef:
		w(nT.Var)
		for _, bank := range nT.DRAM {
			hashValue(bank, w)
		}
		hashValue(nT.Offset, w)
		return
	}
	tbl := n.slots()
	for _, slot := range tbl.scalar {
		hashValue(slot.get(n), w)
	}
	for _, slot := range tbl.ordered {
		vals := slot.get(n)
		hashValue(len(vals), w)
		for _, v := range vals {
			hashValue(v, w)
		}
	}
}

func hashValue(v any, w func(string)) {
	switch vT := v.(type) {
	case nil:
		w("<nil>")
	case Node:
		hashNode(vT, w)
	case Type:
		// An unset type hashes like the unknown type so that the hash
		// agrees with Equal.
		if IsUnknown(vT) {
			w("<nil>")
			return
		}
		w(vT.key())
	case *int:
		if vT == nil {
			w("<nil>")
			return
		}
		hashValue(*vT, w)
	case int:
		var b [8]byte
		u := uint64(vT)
		for i := range b {
			b[i] = byte(u >> (8 * i))
		}
		w(string(b[:]))
	case string:
		w(vT)
	case bool:
		if vT {
			w("t")
		} else {
			w("f")
		}
	default:
		w("<?>")
	}
}

// ----------------------------------------------------------------------------
// Parenthesization helpers.

// Parenthesize wraps an expression string in exactly one pair of
// parentheses.
func Parenthesize(expr string) string {
	return "(" + Unparenthesize(expr) + ")"
}

// Unparenthesize strips all outermost paired parentheses from an
// expression string.
func Unparenthesize(expr string) string {
	for strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		count := 1
		for _, char := range expr[1 : len(expr)-1] {
			switch char {
			case '(':
				count++
			case ')':
				count--
			}
			if count == 0 {
				// The outermost parentheses are not paired.
				return expr
			}
		}
		expr = expr[1 : len(expr)-1]
	}
	return expr
}

// optNode converts an optional pointer into a slot value, mapping a
// nil pointer to a nil interface.
func optNode[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}
