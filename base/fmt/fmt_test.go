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

package fmt_test

import (
	"testing"

	hfmt "github.com/Blaok/haoda/base/fmt"
)

func TestTuple(t *testing.T) {
	if got, want := hfmt.Tuple([]int{0, 23}), "(0, 23)"; got != want {
		t.Errorf("Tuple = %q but want %q", got, want)
	}
	if got, want := hfmt.Tuple([]int{}), "()"; got != want {
		t.Errorf("Tuple = %q but want %q", got, want)
	}
}

func TestList(t *testing.T) {
	if got, want := hfmt.List([]string{"a", "b"}), "[a, b]"; got != want {
		t.Errorf("List = %q but want %q", got, want)
	}
}
