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

	"github.com/google/go-cmp/cmp"

	"github.com/Blaok/haoda/ir"
)

func TestParseTypeWidth(t *testing.T) {
	tests := []struct {
		spelling string
		width    int
	}{
		{spelling: "uint2", width: 2},
		{spelling: "uint8", width: 8},
		{spelling: "int42", width: 42},
		{spelling: "int64_32", width: 64},
		{spelling: "uint16_8", width: 16},
		{spelling: "float", width: 32},
		{spelling: "float32", width: 32},
		{spelling: "double", width: 64},
		{spelling: "float64", width: 64},
		{spelling: "half", width: 16},
	}
	for _, test := range tests {
		typ, err := ir.ParseType(test.spelling)
		if err != nil {
			t.Errorf("ParseType(%q): %v", test.spelling, err)
			continue
		}
		width, err := typ.WidthInBits()
		if err != nil {
			t.Errorf("%s.WidthInBits(): %v", test.spelling, err)
			continue
		}
		if width != test.width {
			t.Errorf("%s.WidthInBits() = %d, want %d", test.spelling, width, test.width)
		}
	}
}

func TestParseTypeError(t *testing.T) {
	for _, spelling := range []string{"", "uint", "int0", "float32_4", "quad", "uint8_"} {
		if _, err := ir.ParseType(spelling); err == nil {
			t.Errorf("ParseType(%q): want error, got none", spelling)
		}
	}
}

func TestTypeEqual(t *testing.T) {
	tests := []struct {
		left  string
		right string
		want  bool
	}{
		{left: "float", right: "float32", want: true},
		{left: "double", right: "float64", want: true},
		{left: "half", right: "float16", want: true},
		{left: "float", right: "double", want: false},
		{left: "uint8", right: "uint8", want: true},
		{left: "uint8", right: "int8", want: false},
		{left: "uint8", right: "uint16", want: false},
		{left: "int8_4", right: "int8_4", want: true},
		{left: "int8_4", right: "int8_2", want: false},
		{left: "int8_4", right: "int8", want: false},
		{left: "uint32", right: "float32", want: false},
	}
	for _, test := range tests {
		left := ir.MustParseType(test.left)
		right := ir.MustParseType(test.right)
		if got := left.Equal(right); got != test.want {
			t.Errorf("%s.Equal(%s) = %v, want %v", test.left, test.right, got, test.want)
		}
		if got := right.Equal(left); got != test.want {
			t.Errorf("%s.Equal(%s) = %v, want %v", test.right, test.left, got, test.want)
		}
	}
}

func TestCommonType(t *testing.T) {
	tests := []struct {
		left  string
		right string
		want  string
	}{
		{left: "int8", right: "float", want: "float"},
		{left: "float", right: "int8", want: "float"},
		{left: "uint32", right: "uint8", want: "uint32"},
		{left: "uint8", right: "uint32", want: "uint32"},
		{left: "int16", right: "uint16", want: "int16"},
		{left: "uint16", right: "int16", want: "uint16"},
		{left: "float", right: "double", want: "double"},
		{left: "uint8_4", right: "float", want: "float"},
	}
	for _, test := range tests {
		left := ir.MustParseType(test.left)
		right := ir.MustParseType(test.right)
		got, err := left.CommonType(right)
		if err != nil {
			t.Errorf("%s.CommonType(%s): %v", test.left, test.right, err)
			continue
		}
		if want := ir.MustParseType(test.want); !got.Equal(want) {
			t.Errorf("%s.CommonType(%s) = %s, want %s", test.left, test.right, got, test.want)
		}
	}
}

func TestCommonTypeUnknown(t *testing.T) {
	got, err := ir.MustParseType("uint8").CommonType(ir.Unknown())
	if err != nil {
		t.Fatalf("uint8.CommonType(unknown): %v", err)
	}
	if !ir.IsUnknown(got) {
		t.Errorf("uint8.CommonType(unknown) = %s, want unknown", got)
	}
}

func TestTypeSpelling(t *testing.T) {
	tests := []struct {
		spelling string
		lang     ir.Lang
		want     string
	}{
		{spelling: "uint8", lang: ir.LangC, want: "uint8_t"},
		{spelling: "int32", lang: ir.LangC, want: "int32_t"},
		{spelling: "uint5", lang: ir.LangC, want: "ap_uint<5>"},
		{spelling: "int5", lang: ir.LangC, want: "ap_int<5>"},
		{spelling: "uint8", lang: ir.LangCL, want: "uchar"},
		{spelling: "uint16", lang: ir.LangCL, want: "ushort"},
		{spelling: "int64", lang: ir.LangCL, want: "long"},
		{spelling: "uint5", lang: ir.LangCL, want: "uint5_t"},
		{spelling: "int8_4", lang: ir.LangC, want: "ap_fixed<8, 4>"},
		{spelling: "uint8_4", lang: ir.LangC, want: "ap_ufixed<8, 4>"},
		{spelling: "int8_4", lang: ir.LangCL, want: "int8_4_t"},
		{spelling: "float", lang: ir.LangC, want: "float"},
		{spelling: "float64", lang: ir.LangC, want: "double"},
		{spelling: "half", lang: ir.LangCL, want: "half"},
	}
	for _, test := range tests {
		got, err := ir.MustParseType(test.spelling).Spelling(test.lang)
		if err != nil {
			t.Errorf("%s.Spelling(%v): %v", test.spelling, test.lang, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s.Spelling(%v) = %q, want %q", test.spelling, test.lang, got, test.want)
		}
	}
}

func TestTupleType(t *testing.T) {
	tuple := ir.NewTupleType(ir.MustParseType("uint8"), ir.MustParseType("float"))
	width, err := tuple.WidthInBits()
	if err != nil {
		t.Fatalf("WidthInBits(): %v", err)
	}
	if want := 40; width != want {
		t.Errorf("WidthInBits() = %d, want %d", width, want)
	}
	if got, want := tuple.String(), "tuple_uint8_float32"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if _, err := tuple.CommonType(ir.MustParseType("uint8")); err == nil {
		t.Errorf("CommonType on tuple type: want error, got none")
	}
	def, err := tuple.Definition(ir.LangC)
	if err != nil {
		t.Fatalf("Definition(): %v", err)
	}
	want := "typedef struct {\n" +
		"  uint8_t val_0;\n" +
		"  float val_1;\n" +
		"} tuple_uint8_float32;"
	if diff := cmp.Diff(want, def); diff != "" {
		t.Errorf("Definition() mismatch (-want +got):\n%s", diff)
	}
}

func TestTupleTypeScalarPredicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("IsFloat on tuple type: want panic, got none")
		}
	}()
	ir.NewTupleType(ir.MustParseType("uint8")).IsFloat()
}

func TestSuitableIntType(t *testing.T) {
	tests := []struct {
		upper int64
		lower int64
		want  string
	}{
		{upper: 255, lower: 0, want: "uint8"},
		{upper: 256, lower: 0, want: "uint9"},
		{upper: 127, lower: -128, want: "int8"},
		{upper: 0, lower: -1, want: "int1"},
		{upper: 1, lower: 1, want: "uint1"},
	}
	for _, test := range tests {
		got, err := ir.SuitableIntType(test.upper, test.lower)
		if err != nil {
			t.Errorf("SuitableIntType(%d, %d): %v", test.upper, test.lower, err)
			continue
		}
		if want := ir.MustParseType(test.want); !got.Equal(want) {
			t.Errorf("SuitableIntType(%d, %d) = %s, want %s", test.upper, test.lower, got, test.want)
		}
	}
}

func TestCLVecType(t *testing.T) {
	got, err := ir.CLVecType(ir.MustParseType("float"), 512)
	if err != nil {
		t.Fatalf("CLVecType(float, 512): %v", err)
	}
	if want := "float16"; got != want {
		t.Errorf("CLVecType(float, 512) = %q, want %q", got, want)
	}
	if _, err := ir.CLVecType(ir.MustParseType("uint5"), 512); !errors.Is(err, ir.ErrSemantic) {
		t.Errorf("CLVecType(uint5, 512): want ErrSemantic, got %v", err)
	}
	tuple := ir.NewTupleType(ir.MustParseType("uint8"), ir.MustParseType("float"))
	if _, err := ir.CLVecType(tuple, 512); !errors.Is(err, ir.ErrSemantic) {
		t.Errorf("CLVecType(%s, 512): want ErrSemantic, got %v", tuple, err)
	}
}
