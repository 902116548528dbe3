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
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ----------------------------------------------------------------------------
// Types of values flowing through the dataflow graph.
type (
	// Type of a value. A Type is an immutable descriptor of a scalar
	// width and class (integer, fixed-point, float), or a packed tuple
	// of such descriptors.
	Type interface {
		// typ marks a structure as a type of this package.
		// It prevents external implementations of the interface.
		typ()

		// WidthInBits returns the total width of a value of the type.
		WidthInBits() (int, error)

		// IsFloat returns true for floating-point types.
		IsFloat() bool

		// IsFixed returns true for fixed-point types with a non-zero
		// fractional width specification.
		IsFixed() bool

		// Equal returns true if other is the same type. Two float
		// types of equal width are equal regardless of their name.
		Equal(Type) bool

		// CommonType resolves the type of a mixed-operand operation.
		// An unknown operand makes the result unknown. A float
		// operand beats an integer or fixed-point operand. Otherwise
		// the wider type wins and ties keep the receiver.
		CommonType(Type) (Type, error)

		// Spelling returns the type spelling for a target.
		Spelling(Lang) (string, error)

		// String representation of the type.
		String() string

		// key returns the canonical form used for structural hashing.
		key() string
	}

	// UnknownType is a type that has not been determined yet.
	UnknownType struct{}

	// IntType is an integer type of arbitrary total width.
	IntType struct {
		Signed bool
		Width  int
	}

	// FixedType is a fixed-point type with a total and a fractional
	// width.
	FixedType struct {
		Signed   bool
		Width    int
		Fraction int
	}

	// FloatType is a floating-point type. Name keeps the spelling the
	// type was created with ("float", "double", "half" or "floatN");
	// equality and hashing only depend on the width.
	FloatType struct {
		Name  string
		Width int
	}

	// TupleType is an ordered composite of scalar types, packed into a
	// single value. It is not a scalar-arithmetic type: width is the
	// sum of the field widths, but the scalar predicates and
	// CommonType fail.
	TupleType struct {
		Types []Type
	}
)

var (
	_ Type = (*UnknownType)(nil)
	_ Type = (*IntType)(nil)
	_ Type = (*FixedType)(nil)
	_ Type = (*FloatType)(nil)
	_ Type = (*TupleType)(nil)
)

// Widths of the named float types.
var floatNameWidth = map[string]int{
	"half":   16,
	"float":  32,
	"double": 64,
}

var typeRe = regexp.MustCompile(`^(u?int|float)([1-9]\d*)(?:_([1-9]\d*))?$`)

// ParseType parses a type spelling: uintN, intN, uintN_F, intN_F,
// float, double, half or floatN.
func ParseType(spelling string) (Type, error) {
	if width, ok := floatNameWidth[spelling]; ok {
		return &FloatType{Name: spelling, Width: width}, nil
	}
	m := typeRe.FindStringSubmatch(spelling)
	if m == nil {
		return nil, semanticErrorf("cannot parse type %q", spelling)
	}
	width, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, semanticErrorf("cannot parse width of type %q", spelling)
	}
	if m[1] == "float" {
		if m[3] != "" {
			return nil, semanticErrorf("float type %q cannot have a fractional width", spelling)
		}
		return &FloatType{Name: spelling, Width: width}, nil
	}
	signed := m[1] == "int"
	if m[3] == "" {
		return &IntType{Signed: signed, Width: width}, nil
	}
	fraction, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, semanticErrorf("cannot parse fractional width of type %q", spelling)
	}
	return &FixedType{Signed: signed, Width: width, Fraction: fraction}, nil
}

// MustParseType parses a type spelling and panics on failure.
// For use in tests and static tables.
func MustParseType(spelling string) Type {
	typ, err := ParseType(spelling)
	if err != nil {
		panic(err)
	}
	return typ
}

// Uint returns an unsigned integer type of the given width.
func Uint(width int) Type { return &IntType{Width: width} }

// Int returns a signed integer type of the given width.
func Int(width int) Type { return &IntType{Signed: true, Width: width} }

// Float32Type returns the 32-bit float type.
func Float32Type() Type { return &FloatType{Name: "float", Width: 32} }

// Float64Type returns the 64-bit float type.
func Float64Type() Type { return &FloatType{Name: "double", Width: 64} }

// Unknown returns the unknown type.
func Unknown() Type { return &UnknownType{} }

// IsUnknown returns true if the type is nil or unknown.
func IsUnknown(typ Type) bool {
	if typ == nil {
		return true
	}
	_, ok := typ.(*UnknownType)
	return ok
}

// WidthInBytes returns the width of the type rounded up to full bytes.
func WidthInBytes(typ Type) (int, error) {
	width, err := typ.WidthInBits()
	if err != nil {
		return 0, err
	}
	return (width-1)/8 + 1, nil
}

// commonType implements the scalar common-type rules shared by all
// scalar types, with this as the left operand.
func commonType(this, other Type) (Type, error) {
	if IsUnknown(other) {
		return Unknown(), nil
	}
	if _, ok := other.(*TupleType); ok {
		return nil, internalErrorf("no common type of %s and tuple type %s", this, other)
	}
	if this.IsFloat() != other.IsFloat() {
		if this.IsFloat() {
			return this, nil
		}
		return other, nil
	}
	thisWidth, err := this.WidthInBits()
	if err != nil {
		return nil, err
	}
	otherWidth, err := other.WidthInBits()
	if err != nil {
		return nil, err
	}
	if thisWidth < otherWidth {
		return other, nil
	}
	return this, nil
}

func (*UnknownType) typ() {}

// WidthInBits fails: the width of the unknown type is not derivable.
func (t *UnknownType) WidthInBits() (int, error) {
	return 0, internalErrorf("width of unknown type")
}

// IsFloat returns false.
func (t *UnknownType) IsFloat() bool { return false }

// IsFixed returns false.
func (t *UnknownType) IsFixed() bool { return false }

// Equal returns true if other is also unknown.
func (t *UnknownType) Equal(other Type) bool { return IsUnknown(other) }

// CommonType of unknown and anything is unknown.
func (t *UnknownType) CommonType(other Type) (Type, error) {
	if _, ok := other.(*TupleType); ok {
		return nil, internalErrorf("no common type of %s and tuple type %s", t, other)
	}
	return Unknown(), nil
}

// Spelling fails: the unknown type has no target spelling.
func (t *UnknownType) Spelling(Lang) (string, error) {
	return "", internalErrorf("spelling of unknown type")
}

// String representation of the type.
func (t *UnknownType) String() string { return "unknown" }

func (t *UnknownType) key() string { return "unknown" }

func (*IntType) typ() {}

// WidthInBits returns the total width.
func (t *IntType) WidthInBits() (int, error) { return t.Width, nil }

// IsFloat returns false.
func (t *IntType) IsFloat() bool { return false }

// IsFixed returns false: an integer type has no fractional width.
func (t *IntType) IsFixed() bool { return false }

// Equal returns true if other is an integer type with the same
// signedness and width.
func (t *IntType) Equal(other Type) bool {
	otherT, ok := other.(*IntType)
	if !ok {
		return false
	}
	return t.Signed == otherT.Signed && t.Width == otherT.Width
}

// CommonType resolves the type of a mixed-operand operation.
func (t *IntType) CommonType(other Type) (Type, error) {
	return commonType(t, other)
}

// Spelling returns the type spelling for a target.
func (t *IntType) Spelling(lang Lang) (string, error) {
	switch lang {
	case LangC:
		return t.cType(), nil
	case LangCL:
		return t.clType(), nil
	}
	return "", internalErrorf("unknown target %v", lang)
}

func (t *IntType) cType() string {
	switch t.Width {
	case 8, 16, 32, 64:
		return t.String() + "_t"
	}
	if t.Signed {
		return fmt.Sprintf("ap_int<%d>", t.Width)
	}
	return fmt.Sprintf("ap_uint<%d>", t.Width)
}

var intCLNames = map[string]string{
	"uint8":  "uchar",
	"uint16": "ushort",
	"uint32": "uint",
	"uint64": "ulong",
	"int8":   "char",
	"int16":  "short",
	"int32":  "int",
	"int64":  "long",
}

func (t *IntType) clType() string {
	if name, ok := intCLNames[t.String()]; ok {
		return name
	}
	return t.String() + "_t"
}

// String representation of the type.
func (t *IntType) String() string {
	if t.Signed {
		return fmt.Sprintf("int%d", t.Width)
	}
	return fmt.Sprintf("uint%d", t.Width)
}

func (t *IntType) key() string { return t.String() }

func (*FixedType) typ() {}

// WidthInBits returns the total width, including the fractional bits.
func (t *FixedType) WidthInBits() (int, error) { return t.Width, nil }

// IsFloat returns false.
func (t *FixedType) IsFloat() bool { return false }

// IsFixed returns true.
func (t *FixedType) IsFixed() bool { return true }

// Equal returns true if other is a fixed-point type with the same
// signedness, total width and fractional width.
func (t *FixedType) Equal(other Type) bool {
	otherT, ok := other.(*FixedType)
	if !ok {
		return false
	}
	return t.Signed == otherT.Signed && t.Width == otherT.Width && t.Fraction == otherT.Fraction
}

// CommonType resolves the type of a mixed-operand operation.
func (t *FixedType) CommonType(other Type) (Type, error) {
	return commonType(t, other)
}

// Spelling returns the type spelling for a target.
func (t *FixedType) Spelling(lang Lang) (string, error) {
	switch lang {
	case LangC:
		if t.Signed {
			return fmt.Sprintf("ap_fixed<%d, %d>", t.Width, t.Fraction), nil
		}
		return fmt.Sprintf("ap_ufixed<%d, %d>", t.Width, t.Fraction), nil
	case LangCL:
		return t.String() + "_t", nil
	}
	return "", internalErrorf("unknown target %v", lang)
}

// String representation of the type.
func (t *FixedType) String() string {
	if t.Signed {
		return fmt.Sprintf("int%d_%d", t.Width, t.Fraction)
	}
	return fmt.Sprintf("uint%d_%d", t.Width, t.Fraction)
}

func (t *FixedType) key() string { return t.String() }

func (*FloatType) typ() {}

// WidthInBits returns the total width.
func (t *FloatType) WidthInBits() (int, error) { return t.Width, nil }

// IsFloat returns true.
func (t *FloatType) IsFloat() bool { return true }

// IsFixed returns false.
func (t *FloatType) IsFixed() bool { return false }

// Equal returns true if other is a float type of the same width,
// regardless of its name.
func (t *FloatType) Equal(other Type) bool {
	otherT, ok := other.(*FloatType)
	if !ok {
		return false
	}
	return t.Width == otherT.Width
}

// CommonType resolves the type of a mixed-operand operation.
func (t *FloatType) CommonType(other Type) (Type, error) {
	return commonType(t, other)
}

// Spelling returns the type spelling for a target.
func (t *FloatType) Spelling(lang Lang) (string, error) {
	switch lang {
	case LangC:
		switch t.Width {
		case 32:
			return "float", nil
		case 64:
			return "double", nil
		case 16:
			return "half", nil
		}
		return t.String(), nil
	case LangCL:
		switch t.Width {
		case 32:
			return "float", nil
		case 64:
			return "double", nil
		case 16:
			return "half", nil
		}
		return t.String() + "_t", nil
	}
	return "", internalErrorf("unknown target %v", lang)
}

// String representation of the type: the spelling the type was created
// with.
func (t *FloatType) String() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("float%d", t.Width)
}

// key normalizes the float name by width.
func (t *FloatType) key() string { return fmt.Sprintf("float%d", t.Width) }

func (*TupleType) typ() {}

// NewTupleType returns a packed composite type with the given ordered
// fields.
func NewTupleType(types ...Type) *TupleType {
	return &TupleType{Types: types}
}

// WidthInBits returns the sum of the field widths.
func (t *TupleType) WidthInBits() (int, error) {
	total := 0
	for i, field := range t.Types {
		if IsUnknown(field) {
			return 0, internalErrorf("width of tuple type with unknown field %d", i)
		}
		width, err := field.WidthInBits()
		if err != nil {
			return 0, err
		}
		total += width
	}
	return total, nil
}

// IsFloat panics: a tuple is not a scalar-arithmetic type, so asking
// is a bug in the caller.
func (t *TupleType) IsFloat() bool {
	panic(internalErrorf("scalar predicate on tuple type %s", t))
}

// IsFixed panics: a tuple is not a scalar-arithmetic type.
func (t *TupleType) IsFixed() bool {
	panic(internalErrorf("scalar predicate on tuple type %s", t))
}

// Equal returns true if other is a tuple type with equal fields in the
// same order.
func (t *TupleType) Equal(other Type) bool {
	otherT, ok := other.(*TupleType)
	if !ok {
		return false
	}
	if len(t.Types) != len(otherT.Types) {
		return false
	}
	for i, field := range t.Types {
		if !field.Equal(otherT.Types[i]) {
			return false
		}
	}
	return true
}

// CommonType fails: tuples are not scalar-arithmetic types.
func (t *TupleType) CommonType(other Type) (Type, error) {
	return nil, internalErrorf("no common type of tuple type %s and %s", t, other)
}

// Field returns the type of field i.
func (t *TupleType) Field(i int) (Type, error) {
	if i < 0 || i >= len(t.Types) {
		return nil, internalErrorf("tuple type %s has no field %d", t, i)
	}
	return t.Types[i], nil
}

// Spelling returns the typedef name of the packed struct; the struct
// itself is emitted by Definition.
func (t *TupleType) Spelling(Lang) (string, error) {
	return t.String(), nil
}

// Definition renders the packed struct definition, with one ordered
// val_N field per tuple field.
func (t *TupleType) Definition(lang Lang) (string, error) {
	var b strings.Builder
	var err error
	b.WriteString("typedef struct {\n")
	for i, field := range t.Types {
		spelling, fieldErr := field.Spelling(lang)
		if fieldErr != nil {
			err = multierr.Append(err, errors.Wrapf(fieldErr, "field %d of %s", i, t))
			continue
		}
		fmt.Fprintf(&b, "  %s val_%d;\n", spelling, i)
	}
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "} %s;", t.String())
	return b.String(), nil
}

// String representation of the type.
func (t *TupleType) String() string {
	fields := make([]string, len(t.Types))
	for i, field := range t.Types {
		fields[i] = field.key()
	}
	return "tuple_" + strings.Join(fields, "_")
}

func (t *TupleType) key() string { return t.String() }

// CLVecType returns the OpenCL vector spelling covering one burst of
// the given width. The burst width must be a multiple of the scalar
// width and the scalar type must have a native OpenCL spelling.
func CLVecType(typ Type, burstWidth int) (string, error) {
	isNative := false
	switch t := typ.(type) {
	case *IntType:
		_, isNative = intCLNames[t.String()]
	case *FloatType:
		isNative = true
	}
	if !isNative {
		return "", semanticErrorf("%s has no native vector spelling", typ)
	}
	width, err := typ.WidthInBits()
	if err != nil {
		return "", err
	}
	if burstWidth%width != 0 {
		return "", semanticErrorf("burst width %d is not a multiple of the width of %s", burstWidth, typ)
	}
	scalar, err := typ.Spelling(LangCL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", scalar, burstWidth/width), nil
}

// SuitableIntType returns the narrowest integer type that can hold all
// values between lower and upper (inclusive).
func SuitableIntType(upper, lower int64) (Type, error) {
	if upper < lower {
		return nil, internalErrorf("empty value range [%d, %d]", lower, upper)
	}
	upper = max(upper, 0)
	lower = min(lower, 0)
	if lower == 0 {
		return Uint(bitLen(upper)), nil
	}
	return Int(max(bitLen(upper), bitLen(lower+1)) + 1), nil
}

func bitLen(v int64) int {
	if v < 0 {
		v = -v
	}
	return bits.Len64(uint64(v))
}
