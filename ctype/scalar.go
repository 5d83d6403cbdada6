// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ctype

import (
	"fmt"
	"math"
	"reflect"

	"github.com/gomlx/cparams/internal/sets"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Scalar is a field type holding one boolean, integer or floating point value
// of a fixed DType.
//
// In C the value is stored widened-safe: integers as the matching <stdint.h>
// type, Float16 as a plain float (C has no portable half type), Float32/64 as
// float/double.
type Scalar struct {
	dtype dtypes.DType
}

var scalarDTypes = sets.MakeWith(
	dtypes.Bool,
	dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
	dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64,
	dtypes.Float16, dtypes.Float32, dtypes.Float64,
)

// ScalarOf returns the Scalar field type for the given dtype.
// It panics if dtype has no scalar C representation (complex, tuple, ...).
func ScalarOf(dtype dtypes.DType) *Scalar {
	if !scalarDTypes.Has(dtype) {
		exceptions.Panicf("ctype.ScalarOf(%s): dtype is not supported as a params scalar", dtype)
	}
	return &Scalar{dtype: dtype}
}

// DType of the scalar.
func (s *Scalar) DType() dtypes.DType { return s.dtype }

// String implements Type. The form is stable, it feeds the struct-name hash.
func (s *Scalar) String() string { return fmt.Sprintf("Scalar(%s)", s.dtype) }

// Equal implements Type.
func (s *Scalar) Equal(other Type) bool {
	o, ok := other.(*Scalar)
	return ok && o.dtype == s.dtype
}

// Filter implements Type: it coerces numeric Go values to the dtype's Go
// representation. Without allowDowncast only exact (round-trippable)
// conversions are accepted.
func (s *Scalar) Filter(value any, strict bool, allowDowncast bool) (any, error) {
	if value == nil {
		return nil, errors.Errorf("%s.Filter: cannot filter a nil value", s)
	}
	goType := s.dtype.GoType()
	v := reflect.ValueOf(value)
	if v.Type() == goType {
		return value, nil
	}
	if strict {
		return nil, errors.Errorf("%s.Filter: strict mode expects a %s, got %T", s, goType, value)
	}
	if s.dtype == dtypes.Bool {
		return nil, errors.Errorf("%s.Filter: expects a bool, got %T", s, value)
	}
	if f16, ok := value.(float16.Float16); ok {
		v = reflect.ValueOf(f16.Float32())
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		// Numeric, convertible below.
	default:
		return nil, errors.Errorf("%s.Filter: cannot convert %T to %s", s, value, goType)
	}
	if s.dtype == dtypes.Float16 {
		f64 := v.Convert(reflect.TypeOf(float64(0))).Float()
		converted := float16.Fromfloat32(float32(f64))
		if !allowDowncast && float64(converted.Float32()) != f64 {
			return nil, errors.Errorf("%s.Filter: value %v (%T) cannot be exactly represented as float16, and downcast is not allowed",
				s, value, value)
		}
		return converted, nil
	}
	converted := v.Convert(goType)
	if !allowDowncast {
		back := converted.Convert(v.Type())
		if !back.Equal(v) {
			return nil, errors.Errorf("%s.Filter: value %v (%T) cannot be exactly represented as %s, and downcast is not allowed",
				s, value, value, goType)
		}
	}
	return converted.Interface(), nil
}

// ValuesEq implements Type. Values are assumed already filtered to the
// canonical Go representation, so plain comparison suffices.
func (s *Scalar) ValuesEq(a, b any) bool { return a == b }

const scalarApproxTolerance = 1e-4

// ValuesEqApprox implements Type: exact for integer and boolean dtypes,
// relative tolerance for floats. NaNs compare equal to each other.
func (s *Scalar) ValuesEqApprox(a, b any) bool {
	if !s.dtype.IsFloat() {
		return a == b
	}
	fa, okA := asFloat64(a)
	fb, okB := asFloat64(b)
	if !okA || !okB {
		return false
	}
	if fa == fb || (math.IsNaN(fa) && math.IsNaN(fb)) {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(fa), math.Abs(fb)))
	return math.Abs(fa-fb) <= scalarApproxTolerance*scale
}

// Signature implements Type.
func (s *Scalar) Signature(value any) (string, error) {
	filtered, err := s.Filter(value, false, false)
	if err != nil {
		return "", errors.WithMessagef(err, "%s.Signature", s)
	}
	return fmt.Sprintf("%s=%v", s, filtered), nil
}

func asFloat64(value any) (float64, bool) {
	if f16, ok := value.(float16.Float16); ok {
		return float64(f16.Float32()), true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

func (s *Scalar) cName() string {
	switch s.dtype {
	case dtypes.Bool:
		return "bool"
	case dtypes.Int8:
		return "int8_t"
	case dtypes.Int16:
		return "int16_t"
	case dtypes.Int32:
		return "int32_t"
	case dtypes.Int64:
		return "int64_t"
	case dtypes.Uint8:
		return "uint8_t"
	case dtypes.Uint16:
		return "uint16_t"
	case dtypes.Uint32:
		return "uint32_t"
	case dtypes.Uint64:
		return "uint64_t"
	case dtypes.Float16, dtypes.Float32:
		return "float"
	case dtypes.Float64:
		return "double"
	}
	exceptions.Panicf("ctype.Scalar: no C name for dtype %s", s.dtype)
	return ""
}

// CDeclare implements Type.
func (s *Scalar) CDeclare(name string) string {
	return fmt.Sprintf("%s %s;", s.cName(), name)
}

// CInit implements Type.
func (s *Scalar) CInit(name string) string {
	return fmt.Sprintf("%s = 0;", name)
}

// CCleanup implements Type: scalars hold no resources.
func (s *Scalar) CCleanup(name string) string { return "" }

// CExtract implements Type: converts the handle obj_<name> through the
// matching runtime hook.
func (s *Scalar) CExtract(name string, onFail string) string {
	hook, hookType := "cparams_as_long", "long long"
	if s.dtype.IsFloat() {
		hook, hookType = "cparams_as_double", "double"
	}
	return fmt.Sprintf(`{
    int ok = 0;
    %s value = %s(obj_%s, &ok);
    if (!ok) {
        cparams_report_error("%s: cannot read field \"%s\" as a number.");
        %s
    }
    %s = (%s)value;
}`, hookType, hook, name, s, name, onFail, name, s.cName())
}

// CSupportCode implements Type.
func (s *Scalar) CSupportCode() []string {
	return []string{RuntimeSupportCode}
}

// CCodeCacheVersion implements Type.
func (s *Scalar) CCodeCacheVersion() []int {
	return []int{1, int(s.dtype)}
}

// CompilerMetadata: integer scalars need <stdint.h> for their member type.

func (s *Scalar) CCompileArgs() []string { return nil }

func (s *Scalar) CHeaders() []string {
	if s.dtype.IsInt() {
		return []string{"<stdint.h>"}
	}
	return nil
}

func (s *Scalar) CLibraries() []string  { return nil }
func (s *Scalar) CHeaderDirs() []string { return nil }
func (s *Scalar) CLibDirs() []string    { return nil }
func (s *Scalar) CInitCode() []string   { return nil }
