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
	"github.com/gx-org/backend/dtype"
)

// DType maps a type onto the backend element-type enumeration. Only
// scalar types with a native machine width have a backend counterpart;
// everything else is an error.
func DType(typ Type) (dtype.DataType, error) {
	switch t := typ.(type) {
	case *IntType:
		switch {
		case t.Signed && t.Width == 32:
			return dtype.Int32, nil
		case t.Signed && t.Width == 64:
			return dtype.Int64, nil
		case !t.Signed && t.Width == 32:
			return dtype.Uint32, nil
		case !t.Signed && t.Width == 64:
			return dtype.Uint64, nil
		}
	case *FloatType:
		switch t.Width {
		case 32:
			return dtype.Float32, nil
		case 64:
			return dtype.Float64, nil
		}
	}
	return dtype.Invalid, semanticErrorf("%s has no backend element type", typ)
}

// TypeFromDType maps a backend element type back onto a type. The
// width is taken from the backend's element size.
func TypeFromDType(dt dtype.DataType) (Type, error) {
	width := dtype.Sizeof(dt) * 8
	switch dt {
	case dtype.Int32, dtype.Int64:
		return Int(width), nil
	case dtype.Uint32, dtype.Uint64:
		return Uint(width), nil
	case dtype.Float32:
		return Float32Type(), nil
	case dtype.Float64:
		return Float64Type(), nil
	}
	return nil, semanticErrorf("backend element type %v has no counterpart", dt)
}
