// Copyright 2025 Google LLC
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

// Package intern assigns short sequential identifiers to long names.
//
// A Table is owned by the compilation context that needs it and passed
// down explicitly, so that independent compilations keep independent
// identifier spaces.
package intern

// Table interns names. Each distinct name is assigned a sequential id,
// in first-encounter order, starting from zero.
type Table struct {
	ids map[string]int
}

// NewTable returns a new empty interning table.
func NewTable() *Table {
	return &Table{ids: make(map[string]int)}
}

// ID returns the id of a name, assigning the next sequential id if the
// name has not been seen before.
func (t *Table) ID(name string) int {
	id, ok := t.ids[name]
	if !ok {
		id = len(t.ids)
		t.ids[name] = id
	}
	return id
}

// Size returns the number of interned names.
func (t *Table) Size() int {
	return len(t.ids)
}
