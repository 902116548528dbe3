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

// Package fmt provides utility methods for building string representations
// of IR objects.
package fmt

import (
	"fmt"
	"strings"
)

// Tuple formats elements as "(a, b, c)".
func Tuple[T any](xs []T) string {
	return "(" + join(xs) + ")"
}

// List formats elements as "[a, b, c]".
func List[T any](xs []T) string {
	return "[" + join(xs) + "]"
}

func join[T any](xs []T) string {
	ss := make([]string, len(xs))
	for i, x := range xs {
		ss[i] = fmt.Sprint(x)
	}
	return strings.Join(ss, ", ")
}
