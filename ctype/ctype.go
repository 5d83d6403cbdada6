// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ctype defines the capability contract a type must satisfy to be used
// as a field of a cparams.ParamsType, along with two concrete field types:
//
//   - Scalar: a single numeric (or boolean) value backed by a gopjrt dtypes.DType.
//   - Enum: a fixed set of named numeric constants, with optional aliases, made
//     available to C code as `#define` constants.
//
// A field type is responsible for validating and coercing Go values (Filter),
// for value equality under its own domain notion (ValuesEq/ValuesEqApprox),
// for producing a canonical signature usable as a hash contribution, and for
// emitting the C code fragments that declare, initialize, extract and clean up
// one struct member holding a value of the type.
//
// The generated fragments talk to the host process through a small bridge of
// extern "hook" functions (see RuntimeSupportCode): field values are handed to
// C as opaque cparams_object handles, and the hooks convert them to C scalars
// or report an error. The host side must provide these hooks when linking the
// generated code; how it implements them (cgo exports, a shim library, ...) is
// not this package's concern.
package ctype

import "fmt"

// Type is the capability contract required of a ParamsType field type.
//
// The String form must be stable: it participates in the content hash that
// names the generated C struct, so two types with equal String() must generate
// identical C fragments.
type Type interface {
	fmt.Stringer

	// Equal reports whether other denotes the same type.
	Equal(other Type) bool

	// Filter validates value and coerces it to the type's canonical Go
	// representation. In strict mode the value must already be in canonical
	// representation and is returned unchanged. In non-strict mode safe
	// conversions are applied; allowDowncast additionally permits lossy
	// narrowing (e.g. float64 to float32 with precision loss).
	Filter(value any, strict bool, allowDowncast bool) (any, error)

	// ValuesEq reports whether a and b are equal under this type's own notion
	// of equality. Both values are assumed to have been filtered already.
	ValuesEq(a, b any) bool

	// ValuesEqApprox is like ValuesEq but tolerates small numeric differences
	// for inexact types.
	ValuesEqApprox(a, b any) bool

	// Signature returns a canonical constant representation of value, suitable
	// as a hash contribution: equal values (per ValuesEq) must yield equal
	// signatures.
	Signature(value any) (string, error)

	// CDeclare returns the C declaration of a struct member holding a value of
	// this type under the given name.
	CDeclare(name string) string

	// CInit returns C code initializing the member to a safe default.
	CInit(name string) string

	// CCleanup returns C code releasing any resource held by the member. It
	// must be safe to run on a default-initialized member and more than once.
	CCleanup(name string) string

	// CExtract returns C code that reads the member's value from the
	// cparams_object handle in scope as `obj_<name>`. On failure it must
	// report an error through cparams_report_error and then execute onFail.
	CExtract(name string, onFail string) string

	// CSupportCode returns self-contained C fragments the extraction code
	// depends on. Fragments are deduplicated by content across all field types
	// of a ParamsType, so shared preambles may be returned by several types.
	CSupportCode() []string

	// CCodeCacheVersion returns a version token for the generated fragments.
	// Bumping it must invalidate any compiled artifact embedding them.
	CCodeCacheVersion() []int
}

// CompilerMetadata is optionally implemented by a Type that needs extra
// compiler or linker configuration for its generated code. ParamsType
// aggregates the metadata over all its field types, in field order.
type CompilerMetadata interface {
	CCompileArgs() []string
	CHeaders() []string
	CLibraries() []string
	CHeaderDirs() []string
	CLibDirs() []string
	CInitCode() []string
}

// RuntimeSupportCode declares the host bridge the generated extraction code
// calls into. It is returned from CSupportCode by the field types in this
// package and deduplicated by ParamsType, so it appears exactly once in the
// emitted source.
const RuntimeSupportCode = `/** cparams runtime hooks **/
#ifndef CPARAMS_RUNTIME_HOOKS
#define CPARAMS_RUNTIME_HOOKS
typedef void* cparams_object;

/* Returns the entry named key from a string-keyed mapping, or NULL if absent.
 * The returned handle is borrowed and only valid during the current extraction. */
extern cparams_object cparams_getitem(cparams_object mapping, const char* key);

/* Convert a handle to a C scalar. On success *ok is set to 1, on failure to 0. */
extern double cparams_as_double(cparams_object value, int* ok);
extern long long cparams_as_long(cparams_object value, int* ok);

/* Record an error on the host side. Never unwinds into the generated code. */
extern void cparams_report_error(const char* fmt, ...);
#endif
/** End cparams runtime hooks **/`
