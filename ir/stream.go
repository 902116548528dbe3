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

	hfmt "github.com/Blaok/haoda/base/fmt"
	"github.com/Blaok/haoda/base/intern"
)

// ----------------------------------------------------------------------------
// DelayedRef.

// DelayedRef references a value a fixed number of iterations after it
// was produced. Code generation backs it with a ring buffer of that
// depth.
type DelayedRef struct {
	Delay int
	Ref   Node
}

var (
	_ Node       = (*DelayedRef)(nil)
	_ identified = (*DelayedRef)(nil)
)

func (n *DelayedRef) node() {}

// Type of the delayed value.
func (n *DelayedRef) Type() (Type, error) { return n.Ref.Type() }

// Render returns the local holding the delayed value.
func (n *DelayedRef) Render(Lang) (string, error) {
	return n.Identifier(nil)
}

// Identifier returns the name of the local holding the delayed value.
func (n *DelayedRef) Identifier(names *intern.Table) (string, error) {
	ref, err := identifierOf(n.Ref, names)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_delayed_%d", ref, n.Delay), nil
}

// String representation of the reference.
func (n *DelayedRef) String() string {
	return fmt.Sprintf("%s delayed %d", n.Ref, n.Delay)
}

// BufName returns the name of the backing ring buffer.
func (n *DelayedRef) BufName(names *intern.Table) (string, error) {
	id, err := n.Identifier(names)
	if err != nil {
		return "", err
	}
	return id + "_buf", nil
}

// Ptr returns the name of the ring-buffer cursor.
func (n *DelayedRef) Ptr() string {
	return fmt.Sprintf("ptr_delay_%d", n.Delay)
}

// PtrType returns the narrowest unsigned type that can index the ring
// buffer.
func (n *DelayedRef) PtrType() Type {
	return Uint(bitLen(int64(max(n.Delay-1, 1))))
}

// PtrDecl returns the zero-initialized cursor declaration.
func (n *DelayedRef) PtrDecl(lang Lang) (string, error) {
	spelling, err := n.PtrType().Spelling(lang)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s = 0;", spelling, n.Ptr()), nil
}

// BufRef returns the ring-buffer element at the cursor.
func (n *DelayedRef) BufRef(names *intern.Table) (string, error) {
	buf, err := n.BufName(names)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s[%s]", buf, n.Ptr()), nil
}

// BufDecl returns the ring-buffer declaration.
func (n *DelayedRef) BufDecl(lang Lang, names *intern.Table) (string, error) {
	typ, err := n.Type()
	if err != nil {
		return "", err
	}
	spelling, err := typ.Spelling(lang)
	if err != nil {
		return "", err
	}
	buf, err := n.BufName(names)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s[%d];", spelling, buf, n.Delay), nil
}

// BufLoad returns the statement loading the delayed value out of the
// ring buffer.
func (n *DelayedRef) BufLoad(lang Lang, names *intern.Table) (string, error) {
	expr, err := n.Render(lang)
	if err != nil {
		return "", err
	}
	ref, err := n.BufRef(names)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s;", expr, ref), nil
}

// BufStore returns the statement storing the current value into the
// ring buffer.
func (n *DelayedRef) BufStore(lang Lang, names *intern.Table) (string, error) {
	ref, err := n.BufRef(names)
	if err != nil {
		return "", err
	}
	expr, err := n.Ref.Render(lang)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s;", ref, expr), nil
}

// NextPtrExpr returns the cursor-advance expression, wrapping at the
// ring-buffer depth.
func (n *DelayedRef) NextPtrExpr() string {
	ptr := n.Ptr()
	return fmt.Sprintf("%s < %d ? (++%s) : (%s = 0)", ptr, n.Delay-1, ptr, ptr)
}

func (n *DelayedRef) clone() Node {
	c := *n
	return &c
}

var delayedRefSlots = &slotTable{
	kind: "DelayedRef",
	scalar: []scalarSlot{
		{
			name: "delay",
			get:  func(n Node) any { return n.(*DelayedRef).Delay },
			set:  func(n Node, v any) { n.(*DelayedRef).Delay = v.(int) },
		},
		{
			name: "ref",
			get:  func(n Node) any { return n.(*DelayedRef).Ref },
			set:  func(n Node, v any) { n.(*DelayedRef).Ref = v.(Node) },
		},
	},
}

func (n *DelayedRef) slots() *slotTable { return delayedRefSlots }

// ----------------------------------------------------------------------------
// DRAMRef.

// DRAMRef denotes an external-memory access of a variable at a byte
// offset, striped over a set of memory banks.
type DRAMRef struct {
	Typ    Type
	DRAM   []int
	Var    string
	Offset int
}

var _ Node = (*DRAMRef)(nil)

func (n *DRAMRef) node() {}

// Type of the accessed element.
func (n *DRAMRef) Type() (Type, error) {
	if n.Typ == nil {
		return Unknown(), nil
	}
	return n.Typ, nil
}

// Render returns the display form; external-memory accesses are
// lowered by code generation, not rendered inline.
func (n *DRAMRef) Render(Lang) (string, error) {
	return n.String(), nil
}

// String representation of the access.
func (n *DRAMRef) String() string {
	return fmt.Sprintf("dram<bank %s %s@%d>", hfmt.List(n.DRAM), n.Var, n.Offset)
}

// BufName returns the name of the on-chip buffer of one bank.
func (n *DRAMRef) BufName(bank int) (string, error) {
	if !n.hasBank(bank) {
		return "", internalErrorf("%s does not access bank %d", n, bank)
	}
	return fmt.Sprintf("dram_%s_bank_%d_buf", n.Var, bank), nil
}

// FIFOName returns the name of the channel moving data of one bank.
func (n *DRAMRef) FIFOName(bank int) (string, error) {
	if !n.hasBank(bank) {
		return "", internalErrorf("%s does not access bank %d", n, bank)
	}
	return fmt.Sprintf("dram_%s_bank_%d_fifo", n.Var, bank), nil
}

func (n *DRAMRef) hasBank(bank int) bool {
	for _, b := range n.DRAM {
		if b == bank {
			return true
		}
	}
	return false
}

func (n *DRAMRef) clone() Node {
	c := *n
	c.DRAM = append([]int(nil), n.DRAM...)
	return &c
}

var dramRefSlots = &slotTable{
	kind: "DRAMRef",
	scalar: []scalarSlot{
		{
			name: "typ",
			get:  func(n Node) any { return n.(*DRAMRef).Typ },
			set:  func(n Node, v any) { n.(*DRAMRef).Typ, _ = v.(Type) },
		},
		{
			name: "var",
			get:  func(n Node) any { return n.(*DRAMRef).Var },
			set:  func(n Node, v any) { n.(*DRAMRef).Var = v.(string) },
		},
		{
			name: "offset",
			get:  func(n Node) any { return n.(*DRAMRef).Offset },
			set:  func(n Node, v any) { n.(*DRAMRef).Offset = v.(int) },
		},
	},
	ordered: []orderedSlot{
		{
			name: "dram",
			get:  func(n Node) []any { return intsToAny(n.(*DRAMRef).DRAM) },
			set:  func(n Node, v []any) { n.(*DRAMRef).DRAM = anyToInts(v) },
		},
	},
}

func (n *DRAMRef) slots() *slotTable { return dramRefSlots }

// ----------------------------------------------------------------------------
// FIFORef.

// FIFORef is the local stand-in for a value arriving over a specific
// channel, used inside one module's rewritten body. IDs are sequential
// within one module trait.
type FIFORef struct {
	Fifo *FIFO
	Lat  *int
	ID   int
}

var _ Node = (*FIFORef)(nil)

func (n *FIFORef) node() {}

// Type of the value carried by the channel.
func (n *FIFORef) Type() (Type, error) { return n.Fifo.Type() }

// Render returns the local name of the referenced value.
func (n *FIFORef) Render(Lang) (string, error) {
	return n.RefName(), nil
}

// RefName returns the local holding the value read off the channel.
func (n *FIFORef) RefName() string { return fmt.Sprintf("fifo_ref_%d", n.ID) }

// LdName returns the input-port name of the channel.
func (n *FIFORef) LdName() string { return fmt.Sprintf("fifo_ld_%d", n.ID) }

// String representation of the reference.
func (n *FIFORef) String() string {
	typ := "unknown"
	if t, err := n.Type(); err == nil {
		typ = t.String()
	}
	lat := ""
	if n.Lat != nil && *n.Lat != 0 {
		lat = fmt.Sprintf("@%d", *n.Lat)
	}
	return fmt.Sprintf("<%s fifo_ref_%d%s>", typ, n.ID, lat)
}

func (n *FIFORef) clone() Node {
	c := *n
	return &c
}

var fifoRefSlots = &slotTable{
	kind: "FIFORef",
	scalar: []scalarSlot{
		{
			name: "fifo",
			get:  func(n Node) any { return optNode(n.(*FIFORef).Fifo) },
			set:  func(n Node, v any) { n.(*FIFORef).Fifo = v.(*FIFO) },
		},
		{
			name: "lat",
			get:  func(n Node) any { return n.(*FIFORef).Lat },
			set:  func(n Node, v any) { n.(*FIFORef).Lat, _ = v.(*int) },
		},
		{
			name: "id",
			get:  func(n Node) any { return n.(*FIFORef).ID },
			set:  func(n Node, v any) { n.(*FIFORef).ID = v.(int) },
		},
	},
}

func (n *FIFORef) slots() *slotTable { return fifoRefSlots }

// ----------------------------------------------------------------------------
// FIFO.

// FIFO is a directed channel from one module to another. Depth is
// unassigned until a scheduling pass fills it in; the latencies are
// cycle offsets within one pipelined iteration. Only the endpoints
// define the channel's identity: equality and hashing ignore depth and
// latencies, so one endpoint pair maps to one channel.
type FIFO struct {
	Write    *Module
	Read     *Module
	Depth    *int
	WriteLat *int
	ReadLat  *int
}

var _ Node = (*FIFO)(nil)

// NewFIFO returns a channel between two modules.
func NewFIFO(write, read *Module) *FIFO {
	return &FIFO{Write: write, Read: read}
}

func (n *FIFO) node() {}

// edgeKey returns the ordered endpoint pair identifying the channel.
func (n *FIFO) edgeKey() edge { return edge{write: n.Write, read: n.Read} }

// Type of the value carried by the channel: the type of the writing
// module's output expression.
func (n *FIFO) Type() (Type, error) {
	expr, ok := n.Write.Expr(n)
	if !ok {
		return nil, internalErrorf("%s has no output expression in %s", n, n.Write.Name())
	}
	return expr.Type()
}

// Render returns the channel identifier.
func (n *FIFO) Render(Lang) (string, error) {
	return fmt.Sprintf("from_%s_to_%s", n.Write.Name(), n.Read.Name()), nil
}

// String representation of the channel.
func (n *FIFO) String() string {
	depth := "?"
	if n.Depth != nil {
		depth = fmt.Sprintf("%d", *n.Depth)
	}
	result := fmt.Sprintf("fifo[%s]: %s", depth, n.Write.Name())
	if n.WriteLat != nil {
		result += fmt.Sprintf(" ~%d", *n.WriteLat)
	}
	result += " => " + n.Read.Name()
	if n.ReadLat != nil {
		result += fmt.Sprintf(" ~%d", *n.ReadLat)
	}
	return result
}

func (n *FIFO) clone() Node {
	c := *n
	return &c
}

// A channel's identity is its endpoints; there are no child nodes to
// recurse into.
var fifoSlots = &slotTable{kind: "FIFO"}

func (n *FIFO) slots() *slotTable { return fifoSlots }
