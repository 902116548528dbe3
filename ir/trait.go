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
	"hash/fnv"

	hfmt "github.com/Blaok/haoda/base/fmt"
	"github.com/Blaok/haoda/base/ordered"
)

// ModuleTrait is the structural signature of a module's computation,
// independent of the module's identity. Every channel value in the
// module's body is replaced by a canonical FIFORef with a sequential
// id in first-encounter order, so two modules computing the same thing
// over role-equivalent channels produce equal traits.
type ModuleTrait struct {
	Lets  []*Let
	Exprs []Node

	loads []*FIFORef
	iface *moduleInterfaces
}

// NewModuleTrait extracts the structural signature of a module.
func NewModuleTrait(m *Module) (*ModuleTrait, error) {
	loads := ordered.NewMap[edge, *FIFORef]()
	cb := func(n Node, _ any) (Rewrite, error) {
		fifo, ok := n.(*FIFO)
		if !ok {
			return Keep(n), nil
		}
		if ref, ok := loads.Load(fifo.edgeKey()); ok {
			return Replace(ref), nil
		}
		ref := &FIFORef{Fifo: fifo, Lat: fifo.ReadLat, ID: loads.Size()}
		loads.Store(fifo.edgeKey(), ref)
		return Replace(ref), nil
	}
	rewritten, err := m.RewriteBody(cb, nil)
	if err != nil {
		return nil, err
	}
	trait := &ModuleTrait{
		Lets:  rewritten.Lets,
		loads: loads.ValueSlice(),
	}
	for _, p := range rewritten.exprs.Iter() {
		trait.Exprs = append(trait.Exprs, p.expr)
	}
	return trait, nil
}

// Loads returns the canonical channel references of the trait, in
// first-encounter order.
func (t *ModuleTrait) Loads() []*FIFORef { return t.loads }

// Equal returns true if the other trait computes the same thing:
// structurally equal bindings and output expressions after channel
// erasure.
func (t *ModuleTrait) Equal(other *ModuleTrait) bool {
	if len(t.Lets) != len(other.Lets) || len(t.Exprs) != len(other.Exprs) {
		return false
	}
	for i, let := range t.Lets {
		if !Equal(let, other.Lets[i]) {
			return false
		}
	}
	for i, expr := range t.Exprs {
		if !Equal(expr, other.Exprs[i]) {
			return false
		}
	}
	return true
}

// Hash returns a structural hash consistent with Equal.
func (t *ModuleTrait) Hash() uint64 {
	h := fnv.New64a()
	w := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	hashValue(len(t.Lets), w)
	for _, let := range t.Lets {
		hashNode(let, w)
	}
	hashValue(len(t.Exprs), w)
	for _, expr := range t.Exprs {
		hashNode(expr, w)
	}
	return h.Sum64()
}

// String representation of the trait.
func (t *ModuleTrait) String() string {
	return fmt.Sprintf("ModuleTrait(loads: %s, lets: %s, exprs: %s)",
		hfmt.Tuple(t.loads), hfmt.Tuple(t.Lets), hfmt.Tuple(t.Exprs))
}

// InputFIFOs returns the canonical input-port names of the trait, one
// per load.
func (t *ModuleTrait) InputFIFOs() []string {
	names := make([]string, len(t.loads))
	for i, load := range t.loads {
		names[i] = load.LdName()
	}
	return names
}

// OutputFIFOs returns the canonical output-port names of the trait,
// one per output expression.
func (t *ModuleTrait) OutputFIFOs() []string {
	names := make([]string, len(t.Exprs))
	for i := range t.Exprs {
		names[i] = fmt.Sprintf("fifo_st_%d", i)
	}
	return names
}

// DRAMReads returns the external-memory reads of the trait, one per
// (variable, bank) pair, in first-seen order.
func (t *ModuleTrait) DRAMReads() ([]DRAMPort, error) {
	iface, err := t.interfaces()
	if err != nil {
		return nil, err
	}
	return iface.dramReads, nil
}

// DRAMWrites returns the external-memory writes of the trait.
func (t *ModuleTrait) DRAMWrites() ([]DRAMPort, error) {
	iface, err := t.interfaces()
	if err != nil {
		return nil, err
	}
	return iface.dramWrites, nil
}

func (t *ModuleTrait) interfaces() (*moduleInterfaces, error) {
	if t.iface != nil {
		return t.iface, nil
	}
	reads := make([]Node, 0, len(t.Lets)+len(t.Exprs))
	writes := make([]Node, 0, len(t.Lets))
	for _, let := range t.Lets {
		reads = append(reads, let.Expr)
		if let.DRAM != nil {
			writes = append(writes, let.DRAM)
		}
	}
	reads = append(reads, t.Exprs...)
	dramReads, err := dramPorts(reads)
	if err != nil {
		return nil, err
	}
	dramWrites, err := dramPorts(writes)
	if err != nil {
		return nil, err
	}
	t.iface = &moduleInterfaces{
		dramReads:   dramReads,
		dramWrites:  dramWrites,
		inputFIFOs:  t.InputFIFOs(),
		outputFIFOs: t.OutputFIFOs(),
	}
	return t.iface, nil
}
