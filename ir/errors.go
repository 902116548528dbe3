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

import "github.com/pkg/errors"

var (
	// ErrInternal marks a structural-consistency failure: the tree or the
	// graph violates an invariant this package maintains. Such an error is
	// a bug in the caller or in this package, never a property of the
	// input program.
	ErrInternal = errors.New("internal inconsistency")

	// ErrSemantic marks an input-semantics failure: the tree is
	// well-formed but the program it represents is invalid, for example
	// two types with no common type or a name missing from a symbol
	// table. An outer diagnostic layer may catch it to attach source
	// context.
	ErrSemantic = errors.New("semantic error")

	// ErrCycle reports that a module graph is not a DAG.
	ErrCycle = errors.New("module graph has a cycle")
)

// internalErrorf returns a structural-consistency error.
func internalErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrInternal, format, args...)
}

// semanticErrorf returns an input-semantics error.
func semanticErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrSemantic, format, args...)
}
