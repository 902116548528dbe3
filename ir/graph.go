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
	"iter"

	"golang.org/x/exp/maps"

	"github.com/Blaok/haoda/base/intern"
	"github.com/Blaok/haoda/base/ordered"
)

// Context owns the state of one graph construction: the module naming
// counter and the identifier interning table. Independent contexts
// never share identifier space.
type Context struct {
	nextModuleID int
	names        *intern.Table
}

// NewContext returns an empty graph-construction context.
func NewContext() *Context {
	return &Context{names: intern.NewTable()}
}

// Names returns the identifier interning table of the context.
func (ctx *Context) Names() *intern.Table { return ctx.names }

// NewModule creates a module. An empty name assigns the next
// sequential display name; the caller owns uniqueness of explicit
// names.
func (ctx *Context) NewModule(name string) *Module {
	if name == "" {
		name = fmt.Sprintf("module_%d", ctx.nextModuleID)
		ctx.nextModuleID++
	}
	return &Module{name: name, exprs: ordered.NewMap[edge, port]()}
}

// edge is the ordered endpoint pair identifying a channel.
type edge struct {
	write *Module
	read  *Module
}

// port is one output of a module: the channel and the expression
// computing the value written to it.
type port struct {
	fifo *FIFO
	expr Node
}

// Module is a node in the dataflow graph: an ordered list of local
// bindings and an insertion-ordered mapping from outgoing channel to
// output expression. Graph membership is by identity.
type Module struct {
	name     string
	Parents  []*Module
	Children []*Module
	Lets     []*Let

	exprs *ordered.Map[edge, port]
	iface *moduleInterfaces
}

// Name returns the display name of the module.
func (m *Module) Name() string { return m.name }

// String representation of the module.
func (m *Module) String() string {
	return fmt.Sprintf("%s: %d lets, %d outputs", m.name, len(m.Lets), m.exprs.Size())
}

// AddLet appends a local binding.
func (m *Module) AddLet(let *Let) {
	m.Lets = append(m.Lets, let)
	m.iface = nil
}

// SetExpr binds the expression written to a channel. A channel with
// the same endpoints replaces the expression but keeps its output
// port position.
func (m *Module) SetExpr(fifo *FIFO, expr Node) {
	m.exprs.Store(fifo.edgeKey(), port{fifo: fifo, expr: expr})
	m.iface = nil
}

// Expr returns the expression written to a channel.
func (m *Module) Expr(fifo *FIFO) (Node, bool) {
	p, ok := m.exprs.Load(fifo.edgeKey())
	if !ok {
		return nil, false
	}
	return p.expr, true
}

// FIFOs returns the outgoing channels in output port order.
func (m *Module) FIFOs() []*FIFO {
	fifos := make([]*FIFO, 0, m.exprs.Size())
	for _, p := range m.exprs.Iter() {
		fifos = append(fifos, p.fifo)
	}
	return fifos
}

// FIFOTo returns the channel to a child module. The modules must be
// adjacent.
func (m *Module) FIFOTo(dst *Module) (*FIFO, error) {
	p, ok := m.exprs.Load(edge{write: m, read: dst})
	if !ok {
		return nil, internalErrorf("no channel from %s to %s", m.Name(), dst.Name())
	}
	return p.fifo, nil
}

// Latency returns the write latency of the channel to a child module,
// defaulting to 0 when unassigned.
func (m *Module) Latency(dst *Module) (int, error) {
	fifo, err := m.FIFOTo(dst)
	if err != nil {
		return 0, err
	}
	if fifo.WriteLat == nil {
		return 0, nil
	}
	return *fifo.WriteLat, nil
}

// AddChild adds a directed edge to a child module. Adding an existing
// edge is a no-op. Channels are carried separately by SetExpr.
func (m *Module) AddChild(child *Module) {
	if !containsModule(m.Children, child) {
		m.Children = append(m.Children, child)
	}
	if !containsModule(child.Parents, m) {
		child.Parents = append(child.Parents, m)
	}
}

func containsModule(modules []*Module, m *Module) bool {
	for _, candidate := range modules {
		if candidate == m {
			return true
		}
	}
	return false
}

// BFS iterates over the module and its descendants in breadth-first
// order. Each module is visited once; children in insertion order.
func (m *Module) BFS() iter.Seq[*Module] {
	return func(yield func(*Module) bool) {
		queue := []*Module{m}
		seen := map[*Module]bool{m: true}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			if !yield(node) {
				return
			}
			for _, child := range node.Children {
				if !seen[child] {
					seen[child] = true
					queue = append(queue, child)
				}
			}
		}
	}
}

// DFS iterates over the module and its descendants in depth-first
// order.
func (m *Module) DFS() iter.Seq[*Module] {
	return func(yield func(*Module) bool) {
		stack := []*Module{m}
		seen := map[*Module]bool{m: true}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(node) {
				return
			}
			for _, child := range node.Children {
				if !seen[child] {
					seen[child] = true
					stack = append(stack, child)
				}
			}
		}
	}
}

// BFSEdges iterates over the descendant edges in breadth-first order.
// Every edge is yielded exactly once.
func (m *Module) BFSEdges() iter.Seq2[*Module, *Module] {
	return func(yield func(*Module, *Module) bool) {
		queue := []*Module{m}
		seen := map[*Module]bool{m: true}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			for _, child := range node.Children {
				if !yield(node, child) {
					return
				}
				if !seen[child] {
					seen[child] = true
					queue = append(queue, child)
				}
			}
		}
	}
}

// DFSEdges iterates over the descendant edges in depth-first order.
func (m *Module) DFSEdges() iter.Seq2[*Module, *Module] {
	return func(yield func(*Module, *Module) bool) {
		stack := []*Module{m}
		seen := map[*Module]bool{m: true}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, child := range node.Children {
				if !yield(node, child) {
					return
				}
				if !seen[child] {
					seen[child] = true
					stack = append(stack, child)
				}
			}
		}
	}
}

// TopologicalOrder returns the module and its descendants, each
// strictly after all of its parents. The frontier is scanned in BFS
// insertion order, so the result is deterministic. On a cyclic graph
// the acyclic prefix is returned together with ErrCycle.
func (m *Module) TopologicalOrder() ([]*Module, error) {
	degrees := ordered.NewMap[*Module, int]()
	for node := range m.BFS() {
		degrees.Store(node, len(node.Parents))
	}
	result := make([]*Module, 0, degrees.Size())
	for degrees.Size() > 0 {
		var next *Module
		found := false
		for node, degree := range degrees.Iter() {
			if degree == 0 {
				next, found = node, true
				break
			}
		}
		if !found {
			return result, ErrCycle
		}
		result = append(result, next)
		degrees.Delete(next)
		for _, child := range next.Children {
			if degree, ok := degrees.Load(child); ok {
				degrees.Store(child, degree-1)
			}
		}
	}
	return result, nil
}

// Descendants returns the module and every module reachable from it.
func (m *Module) Descendants() []*Module {
	set := make(map[*Module]struct{})
	for node := range m.BFS() {
		set[node] = struct{}{}
	}
	return maps.Keys(set)
}

// Connections returns every reachable (write, read) module pair.
func (m *Module) Connections() [][2]*Module {
	set := make(map[[2]*Module]struct{})
	for write, read := range m.BFSEdges() {
		set[[2]*Module{write, read}] = struct{}{}
	}
	return maps.Keys(set)
}

// ReplaceBody rewrites every binding and output expression of the
// module in place and drops the cached interface metadata.
func (m *Module) ReplaceBody(cb Callback, ctx any) error {
	rewritten, err := m.RewriteBody(cb, ctx)
	if err != nil {
		return err
	}
	m.Lets = rewritten.Lets
	m.exprs = rewritten.exprs
	m.iface = nil
	return nil
}

// RewriteBody returns a copy of the module with every binding and
// output expression rewritten by the callback. Edges, name and
// channels are shared with the receiver.
func (m *Module) RewriteBody(cb Callback, ctx any) (*Module, error) {
	result := &Module{
		name:     m.name,
		Parents:  m.Parents,
		Children: m.Children,
		exprs:    ordered.NewMap[edge, port](),
	}
	result.Lets = make([]*Let, len(m.Lets))
	for i, let := range m.Lets {
		rewritten, err := Visit(let, cb, ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		letT, ok := rewritten.(*Let)
		if !ok {
			return nil, internalErrorf("binding %s rewritten into %s", let, kindName(rewritten))
		}
		result.Lets[i] = letT
	}
	for key, p := range m.exprs.Iter() {
		expr, err := Visit(p.expr, cb, ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		result.exprs.Store(key, port{fifo: p.fifo, expr: expr})
	}
	return result, nil
}

// ----------------------------------------------------------------------------
// Interface extraction.

// DRAMPort is one external-memory connection of a module: an access
// and one of its banks.
type DRAMPort struct {
	Ref  *DRAMRef
	Bank int
}

type moduleInterfaces struct {
	dramReads   []DRAMPort
	dramWrites  []DRAMPort
	inputFIFOs  []string
	outputFIFOs []string
}

// DRAMReads returns the external-memory reads of the module, one per
// (variable, bank) pair, in first-seen order.
func (m *Module) DRAMReads() ([]DRAMPort, error) {
	iface, err := m.interfaces()
	if err != nil {
		return nil, err
	}
	return iface.dramReads, nil
}

// DRAMWrites returns the external-memory writes of the module, one per
// (variable, bank) pair, in first-seen order.
func (m *Module) DRAMWrites() ([]DRAMPort, error) {
	iface, err := m.interfaces()
	if err != nil {
		return nil, err
	}
	return iface.dramWrites, nil
}

// InputFIFOs returns the identifiers of the channels the module's body
// reads from.
func (m *Module) InputFIFOs() ([]string, error) {
	iface, err := m.interfaces()
	if err != nil {
		return nil, err
	}
	return iface.inputFIFOs, nil
}

// OutputFIFOs returns the identifiers of the channels the module
// writes to, in output port order.
func (m *Module) OutputFIFOs() ([]string, error) {
	iface, err := m.interfaces()
	if err != nil {
		return nil, err
	}
	return iface.outputFIFOs, nil
}

func (m *Module) interfaces() (*moduleInterfaces, error) {
	if m.iface != nil {
		return m.iface, nil
	}
	reads := make([]Node, 0, len(m.Lets)+m.exprs.Size())
	writes := make([]Node, 0, len(m.Lets))
	for _, let := range m.Lets {
		reads = append(reads, let.Expr)
		if let.DRAM != nil {
			writes = append(writes, let.DRAM)
		}
	}
	for _, p := range m.exprs.Iter() {
		reads = append(reads, p.expr)
	}
	dramReads, err := dramPorts(reads)
	if err != nil {
		return nil, err
	}
	dramWrites, err := dramPorts(writes)
	if err != nil {
		return nil, err
	}

	outputFIFOs := make([]string, 0, m.exprs.Size())
	for _, p := range m.exprs.Iter() {
		id, err := p.fifo.Render(LangC)
		if err != nil {
			return nil, err
		}
		outputFIFOs = append(outputFIFOs, id)
	}
	body := make([]Node, 0, len(m.Lets)+m.exprs.Size())
	for _, let := range m.Lets {
		body = append(body, let)
	}
	for _, p := range m.exprs.Iter() {
		body = append(body, p.expr)
	}
	readFIFOs, err := CollectFIFOs(body...)
	if err != nil {
		return nil, err
	}
	inputFIFOs := make([]string, 0, len(readFIFOs))
	for _, fifo := range readFIFOs {
		id, err := fifo.Render(LangC)
		if err != nil {
			return nil, err
		}
		inputFIFOs = append(inputFIFOs, id)
	}

	m.iface = &moduleInterfaces{
		dramReads:   dramReads,
		dramWrites:  dramWrites,
		inputFIFOs:  inputFIFOs,
		outputFIFOs: outputFIFOs,
	}
	return m.iface, nil
}

// dramPorts expands external-memory accesses into per-bank ports,
// de-duplicated by (variable, bank) in first-seen order.
func dramPorts(nodes []Node) ([]DRAMPort, error) {
	refs, err := CollectDRAMRefs(nodes...)
	if err != nil {
		return nil, err
	}
	type key struct {
		name string
		bank int
	}
	ports := ordered.NewMap[key, DRAMPort]()
	for _, ref := range refs {
		for _, bank := range ref.DRAM {
			k := key{name: ref.Var, bank: bank}
			if !ports.Has(k) {
				ports.Store(k, DRAMPort{Ref: ref, Bank: bank})
			}
		}
	}
	return ports.ValueSlice(), nil
}

// CollectDRAMRefs returns every external-memory access in the trees,
// in pre-order.
func CollectDRAMRefs(nodes ...Node) ([]*DRAMRef, error) {
	var refs []*DRAMRef
	cb := func(n Node, _ any) (Rewrite, error) {
		if ref, ok := n.(*DRAMRef); ok {
			refs = append(refs, ref)
		}
		return Keep(n), nil
	}
	for _, node := range nodes {
		if _, err := Visit(node, cb, nil, nil, nil); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// CollectFIFOs returns every channel referenced in the trees,
// de-duplicated by endpoints in first-encounter order.
func CollectFIFOs(nodes ...Node) ([]*FIFO, error) {
	fifos := ordered.NewMap[edge, *FIFO]()
	cb := func(n Node, _ any) (Rewrite, error) {
		if fifo, ok := n.(*FIFO); ok {
			if !fifos.Has(fifo.edgeKey()) {
				fifos.Store(fifo.edgeKey(), fifo)
			}
		}
		return Keep(n), nil
	}
	for _, node := range nodes {
		if _, err := Visit(node, cb, nil, nil, nil); err != nil {
			return nil, err
		}
	}
	return fifos.ValueSlice(), nil
}
