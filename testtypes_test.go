// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cparams

import (
	"fmt"
	"slices"

	"github.com/gomlx/cparams/ctype"
	"github.com/pkg/errors"
)

// vecType is a test field type holding a fixed-size []float64, compared by
// content: it exercises the schema/bundle machinery with values that are not
// comparable with ==.
type vecType struct {
	size int
}

func (v *vecType) String() string { return fmt.Sprintf("Vec(%d)", v.size) }

func (v *vecType) Equal(other ctype.Type) bool {
	o, ok := other.(*vecType)
	return ok && o.size == v.size
}

func (v *vecType) Filter(value any, strict bool, allowDowncast bool) (any, error) {
	vec, ok := value.([]float64)
	if !ok {
		return nil, errors.Errorf("%s expects a []float64, got %T", v, value)
	}
	if len(vec) != v.size {
		return nil, errors.Errorf("%s expects length %d, got %d", v, v.size, len(vec))
	}
	return vec, nil
}

func (v *vecType) ValuesEq(a, b any) bool {
	va, okA := a.([]float64)
	vb, okB := b.([]float64)
	return okA && okB && slices.Equal(va, vb)
}

func (v *vecType) ValuesEqApprox(a, b any) bool { return v.ValuesEq(a, b) }

func (v *vecType) Signature(value any) (string, error) {
	vec, err := v.Filter(value, false, false)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s=%v", v, vec), nil
}

func (v *vecType) CDeclare(name string) string { return fmt.Sprintf("double* %s;", name) }
func (v *vecType) CInit(name string) string    { return fmt.Sprintf("%s = NULL;", name) }
func (v *vecType) CCleanup(name string) string {
	return fmt.Sprintf("free(%s);\n%s = NULL;", name, name)
}
func (v *vecType) CExtract(name string, onFail string) string {
	return fmt.Sprintf("%s = vec_extract(obj_%s, %d);\nif (%s == NULL) %s", name, name, v.size, name, onFail)
}
func (v *vecType) CSupportCode() []string {
	return []string{ctype.RuntimeSupportCode,
		"extern double* vec_extract(cparams_object obj, int size);"}
}
func (v *vecType) CCodeCacheVersion() []int { return []int{7} }

// fakeType is a fully configurable field type for code-generation tests.
type fakeType struct {
	name    string
	version []int
	support []string
	headers []string
	args    []string
}

func (f *fakeType) String() string { return f.name }

func (f *fakeType) Equal(other ctype.Type) bool {
	o, ok := other.(*fakeType)
	return ok && o.name == f.name
}

func (f *fakeType) Filter(value any, strict bool, allowDowncast bool) (any, error) {
	return value, nil
}

func (f *fakeType) ValuesEq(a, b any) bool       { return a == b }
func (f *fakeType) ValuesEqApprox(a, b any) bool { return a == b }

func (f *fakeType) Signature(value any) (string, error) {
	return fmt.Sprintf("%s=%v", f.name, value), nil
}

func (f *fakeType) CDeclare(name string) string { return fmt.Sprintf("int %s;", name) }
func (f *fakeType) CInit(name string) string    { return fmt.Sprintf("%s = 0;", name) }
func (f *fakeType) CCleanup(name string) string { return "" }
func (f *fakeType) CExtract(name string, onFail string) string {
	return fmt.Sprintf("/* extract %s */ %s", name, onFail)
}
func (f *fakeType) CSupportCode() []string   { return f.support }
func (f *fakeType) CCodeCacheVersion() []int { return f.version }

func (f *fakeType) CCompileArgs() []string { return f.args }
func (f *fakeType) CHeaders() []string     { return f.headers }
func (f *fakeType) CLibraries() []string   { return nil }
func (f *fakeType) CHeaderDirs() []string  { return nil }
func (f *fakeType) CLibDirs() []string     { return nil }
func (f *fakeType) CInitCode() []string    { return nil }
