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

	"github.com/gx-org/backend/dtype"

	"github.com/Blaok/haoda/ir"
)

func TestDType(t *testing.T) {
	tests := []struct {
		typ  ir.Type
		want dtype.DataType
	}{
		{ir.Int(32), dtype.Int32},
		{ir.Int(64), dtype.Int64},
		{ir.Uint(32), dtype.Uint32},
		{ir.Uint(64), dtype.Uint64},
		{ir.Float32Type(), dtype.Float32},
		{ir.Float64Type(), dtype.Float64},
	}
	for _, test := range tests {
		got, err := ir.DType(test.typ)
		if err != nil {
			t.Errorf("DType(%s): %v", test.typ, err)
			continue
		}
		if got != test.want {
			t.Errorf("DType(%s) = %v, want %v", test.typ, got, test.want)
		}
		back, err := ir.TypeFromDType(got)
		if err != nil {
			t.Errorf("TypeFromDType(%v): %v", got, err)
			continue
		}
		if !back.Equal(test.typ) {
			t.Errorf("TypeFromDType(DType(%s)) = %s", test.typ, back)
		}
	}
}

func TestDTypeError(t *testing.T) {
	for _, typ := range []ir.Type{ir.Uint(9), ir.Int(8), ir.Unknown()} {
		if _, err := ir.DType(typ); !errors.Is(err, ir.ErrSemantic) {
			t.Errorf("DType(%s) error = %v, want a semantic error", typ, err)
		}
	}
}
