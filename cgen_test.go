// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cparams

import (
	"strings"
	"testing"

	"github.com/gomlx/cparams/ctype"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSupportCodeDeterministic(t *testing.T) {
	i32 := ctype.ScalarOf(dtypes.Int32)
	f64 := ctype.ScalarOf(dtypes.Float64)

	pt1 := mustNew(t, map[string]ctype.Type{"b": f64, "a": i32})
	pt2 := mustNew(t, map[string]ctype.Type{"a": i32, "b": f64})

	// Emitting twice, or from a structurally identical schema, is
	// byte-identical: that is what makes compilation caching by Name sound.
	first := strings.Join(pt1.CSupportCode(), "\n")
	second := strings.Join(pt1.CSupportCode(), "\n")
	other := strings.Join(pt2.CSupportCode(), "\n")
	require.Equal(t, first, second)
	require.Equal(t, first, other)
}

func TestCSupportCodeStructure(t *testing.T) {
	pt := mustNew(t, map[string]ctype.Type{
		"radius": ctype.ScalarOf(dtypes.Float64),
		"steps":  ctype.ScalarOf(dtypes.Int32),
	})
	support := pt.CSupportCode()
	structCode := support[len(support)-1]
	name := pt.Name()

	// Include-guard keyed on the upper-cased struct name.
	assert.Contains(t, structCode, "#ifndef "+strings.ToUpper(name))
	assert.Contains(t, structCode, "#define "+strings.ToUpper(name))
	assert.Contains(t, structCode, "struct "+name+" {")

	// Error counter, constructor, destructor, cleanup.
	assert.Contains(t, structCode, "int "+name+"_error;")
	assert.Contains(t, structCode, name+"_error = 0;")
	assert.Contains(t, structCode, "~"+name+"() {")
	assert.Contains(t, structCode, "void cleanup() {")

	// Members and per-field extraction methods, in sorted field order.
	assert.Contains(t, structCode, "double radius;")
	assert.Contains(t, structCode, "int32_t steps;")
	assert.Contains(t, structCode, "void extract_radius(cparams_object obj_radius)")
	assert.Contains(t, structCode, "void extract_steps(cparams_object obj_steps)")
	assert.Contains(t, structCode, "case 0: extract_radius(object); break;")
	assert.Contains(t, structCode, "case 1: extract_steps(object); break;")
	assert.Contains(t, structCode, "default:")
	assert.Contains(t, structCode, "setErrorOccurred()")
	assert.Contains(t, structCode, "int errorOccurred()")

	// The field types' failure hook flags the error counter and returns.
	assert.Contains(t, structCode, "{this->setErrorOccurred(); return;}")

	// The runtime hooks preamble appears exactly once, before the struct.
	full := strings.Join(support, "\n")
	require.Equal(t, 1, strings.Count(full, "#ifndef CPARAMS_RUNTIME_HOOKS"))
	require.Less(t, strings.Index(full, "CPARAMS_RUNTIME_HOOKS"), strings.Index(full, "struct "+name))
}

func TestCSupportCodeDeduplication(t *testing.T) {
	shared := "/* shared helper */"
	t1 := &fakeType{name: "Fake1", version: []int{1}, support: []string{shared, "/* only 1 */"}}
	t2 := &fakeType{name: "Fake2", version: []int{1}, support: []string{shared, "/* only 2 */"}}
	pt := mustNew(t, map[string]ctype.Type{"a": t1, "b": t2})

	support := pt.CSupportCode()
	full := strings.Join(support, "\n")
	require.Equal(t, 1, strings.Count(full, shared))
	require.Equal(t, 1, strings.Count(full, "/* only 1 */"))
	require.Equal(t, 1, strings.Count(full, "/* only 2 */"))
	// Fragments come sorted, the struct is last.
	require.True(t, strings.HasPrefix(support[len(support)-1], "/** ParamsType "))
}

func TestCLifecycle(t *testing.T) {
	pt := mustNew(t, map[string]ctype.Type{
		"x": ctype.ScalarOf(dtypes.Int32),
		"y": ctype.ScalarOf(dtypes.Float64),
	})
	name := pt.Name()

	require.Equal(t, name+"* params;", pt.CDeclare("params"))
	require.Equal(t, "params = NULL;", pt.CInit("params"))
	require.Equal(t, "delete params;\nparams = NULL;", pt.CCleanup("params"))

	extract := pt.CExtract("params", "{goto fail;}")
	assert.Contains(t, extract, "params = new "+name+";")
	assert.Contains(t, extract, `static const char* fields[] = {"x", "y"};`)
	assert.Contains(t, extract, "cparams_getitem(obj_params, fields[i])")
	assert.Contains(t, extract, "missing expected attribute \\\"%s\\\"")
	assert.Contains(t, extract, "params->extract(o, i);")
	assert.Contains(t, extract, "params->errorOccurred()")
	assert.Contains(t, extract, "{goto fail;}")
	assert.Contains(t, extract, "for (int i = 0; i < 2; ++i)")
}

func TestCSyncPanics(t *testing.T) {
	pt := mustNew(t, map[string]ctype.Type{"x": ctype.ScalarOf(dtypes.Int32)})
	require.Panics(t, func() { pt.CSync("x") })
}

func TestCCodeCacheVersion(t *testing.T) {
	t1 := &fakeType{name: "Fake1", version: []int{1, 2}}
	pt1 := mustNew(t, map[string]ctype.Type{"a": t1})
	require.Equal(t, []int{structCodeVersion, 2, 1, 2}, pt1.CCodeCacheVersion())

	// A field type version bump changes the schema's version token.
	t1bumped := &fakeType{name: "Fake1", version: []int{1, 3}}
	pt2 := mustNew(t, map[string]ctype.Type{"a": t1bumped})
	require.NotEqual(t, pt1.CCodeCacheVersion(), pt2.CCodeCacheVersion())

	// Tokens follow sorted field order.
	t2 := &fakeType{name: "Fake2", version: []int{9}}
	pt3 := mustNew(t, map[string]ctype.Type{"b": t2, "a": t1})
	require.Equal(t, []int{structCodeVersion, 2, 1, 2, 1, 9}, pt3.CCodeCacheVersion())
}

func TestCompilerMetadata(t *testing.T) {
	withMeta := &fakeType{name: "Fake1", version: []int{1},
		headers: []string{"<fake1.h>"}, args: []string{"-DFAKE1"}}
	plain := &vecType{size: 2}
	pt := mustNew(t, map[string]ctype.Type{
		"a": withMeta,
		"b": plain,
		"c": ctype.ScalarOf(dtypes.Int32),
	})

	// Aggregated in field order over the types that provide metadata;
	// vecType provides none and is skipped.
	require.Equal(t, []string{"<fake1.h>", "<stdint.h>"}, pt.CHeaders())
	require.Equal(t, []string{"-DFAKE1"}, pt.CCompileArgs())
	require.Empty(t, pt.CLibraries())
	require.Empty(t, pt.CHeaderDirs())
	require.Empty(t, pt.CLibDirs())
	require.Empty(t, pt.CInitCode())
}
