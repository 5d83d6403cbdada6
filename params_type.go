// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package cparams bundles the auxiliary, non-tensor parameters of a
// computation-graph op (flags, small scalars, enum constants) into one typed
// value, available identically to the Go execution path and to generated C
// code.
//
// A ParamsType describes a fixed set of named, typed fields; a Params holds
// one immutable instance of values for those fields. The ParamsType also emits
// the C equivalent of itself: a struct definition with one member per field,
// plus extraction and cleanup code, so C op implementations read the same
// values through a generated struct pointer. The struct name is derived from a
// content hash of the field names and types, so structurally identical
// schemas, even when constructed independently, share one struct definition
// and one compilation-cache entry.
//
// Typical usage:
//
//	pt, err := cparams.New(map[string]ctype.Type{
//		"radius": ctype.ScalarOf(dtypes.Float64),
//		"mode":   mustEnum(ctype.NewEnumList("NEAREST", "LINEAR")),
//	})
//	...
//	params, err := pt.ParamsFromSources([]any{op}, map[string]any{"mode": 1})
//
// On the C side the op receives a `<structName>*` whose members carry the same
// values, extracted field by field from a string-keyed view of the Params.
package cparams

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gomlx/cparams/ctype"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// ParamsType describes a fixed, ordered set of named, typed fields. It is
// immutable after construction and safe for concurrent use.
//
// Fields are kept sorted lexicographically regardless of how the constructor
// received them: field order determines the generated struct layout, the
// extraction dispatch positions and the content hash, so it must not depend on
// map iteration or call-site spelling.
type ParamsType struct {
	fields []string
	types  []ctype.Type
	name   string
	hash   uint64

	constToEnum map[string]*ctype.Enum
	aliasToEnum map[string]*ctype.Enum
}

// New creates a ParamsType from field names to their types.
//
// Field names must be valid identifiers and must not collide with C/C++
// reserved keywords, since they become member names of the generated struct.
// If several fields use enumeration types, their constant names and aliases
// must be disjoint across the enums, and no alias may equal any constant name.
func New(fields map[string]ctype.Type) (*ParamsType, error) {
	if len(fields) == 0 {
		return nil, errors.Errorf("cparams.New: cannot create a ParamsType without fields")
	}
	names := maps.Keys(fields)
	slices.Sort(names)
	pt := &ParamsType{
		fields: names,
		types:  make([]ctype.Type, 0, len(names)),
	}
	for _, name := range names {
		if err := ctype.ValidIdentifier(name); err != nil {
			return nil, errors.WithMessagef(err, "cparams.New: field name")
		}
		fieldType := fields[name]
		if fieldType == nil {
			return nil, errors.Errorf("cparams.New: field %q has a nil type", name)
		}
		pt.types = append(pt.types, fieldType)
	}
	pt.name = structName(pt.fields, pt.types)
	sum := sha256.Sum256([]byte(pt.name))
	pt.hash = binary.BigEndian.Uint64(sum[:8])
	if err := pt.indexEnums(); err != nil {
		return nil, err
	}
	return pt, nil
}

// structName derives the deterministic C struct name from the field names and
// the types' string forms. Structurally identical schemas get the same name,
// which is what enables deduplication and compilation caching; it relies on
// SHA-256 collision resistance over those strings.
func structName(fields []string, types []ctype.Type) string {
	typeStrs := make([]string, len(types))
	for i, t := range types {
		typeStrs[i] = t.String()
	}
	fieldsHash := sha256.Sum256([]byte(strings.Join(fields, ",")))
	typesHash := sha256.Sum256([]byte(strings.Join(typeStrs, ",")))
	return fmt.Sprintf("_Params_%x_%x", fieldsHash, typesHash)
}

func (pt *ParamsType) indexEnums() error {
	var enums []*ctype.Enum
	for _, t := range pt.types {
		if e, ok := t.(*ctype.Enum); ok {
			enums = append(enums, e)
		}
	}
	if len(enums) == 0 {
		return nil
	}
	pt.constToEnum = make(map[string]*ctype.Enum)
	pt.aliasToEnum = make(map[string]*ctype.Enum)
	for _, e := range enums {
		for _, name := range e.Names() {
			if owner, found := pt.constToEnum[name]; found && owner != e {
				return errors.Errorf("cparams.New: enum constant %q is defined by more than one enum type", name)
			}
			pt.constToEnum[name] = e
		}
	}
	for _, e := range enums {
		aliases := e.Aliases()
		names := maps.Keys(aliases)
		slices.Sort(names)
		for _, alias := range names {
			if owner, found := pt.aliasToEnum[alias]; found && owner != e {
				return errors.Errorf("cparams.New: enum alias %q is defined by more than one enum type", alias)
			}
			if _, found := pt.constToEnum[alias]; found {
				return errors.Errorf("cparams.New: enum alias %q has the same name as an enum constant", alias)
			}
			pt.aliasToEnum[alias] = e
		}
	}
	return nil
}

// Fields returns the field names, sorted lexicographically.
func (pt *ParamsType) Fields() []string { return slices.Clone(pt.fields) }

// Types returns the field types, aligned with Fields.
func (pt *ParamsType) Types() []ctype.Type { return slices.Clone(pt.types) }

// NumFields returns the number of fields.
func (pt *ParamsType) NumFields() int { return len(pt.fields) }

// Name is the content-derived name of the generated C struct. Two ParamsType
// with the same field names and types have the same Name, whatever the
// construction order, and produce byte-identical struct definitions.
func (pt *ParamsType) Name() string { return pt.name }

// Hash of the ParamsType, derived from Name.
func (pt *ParamsType) Hash() uint64 { return pt.hash }

// String lists the fields and their types.
func (pt *ParamsType) String() string {
	parts := make([]string, len(pt.fields))
	for i, field := range pt.fields {
		parts[i] = fmt.Sprintf("%s:%s", field, pt.types[i])
	}
	return fmt.Sprintf("ParamsType<%s>", strings.Join(parts, ", "))
}

// Equal reports whether other has the same fields with equal types.
func (pt *ParamsType) Equal(other *ParamsType) bool {
	if pt == other {
		return true
	}
	if other == nil || len(pt.fields) != len(other.fields) {
		return false
	}
	for i, field := range pt.fields {
		if field != other.fields[i] || !pt.types[i].Equal(other.types[i]) {
			return false
		}
	}
	return true
}

// HasType reports whether t is the type of at least one field.
func (pt *ParamsType) HasType(t ctype.Type) bool {
	for _, fieldType := range pt.types {
		if fieldType.Equal(t) {
			return true
		}
	}
	return false
}

// FieldType returns the type of the given field.
func (pt *ParamsType) FieldType(field string) (ctype.Type, error) {
	idx, found := slices.BinarySearch(pt.fields, field)
	if !found {
		return nil, errors.Errorf("%s: unknown field %q", pt, field)
	}
	return pt.types[idx], nil
}

// FieldFor returns the name of the first field (in sorted order) whose type
// equals t. It is meant for callers that know t appears exactly once.
func (pt *ParamsType) FieldFor(t ctype.Type) (string, error) {
	for i, fieldType := range pt.types {
		if fieldType.Equal(t) {
			return pt.fields[i], nil
		}
	}
	return "", errors.Errorf("%s: no field with type %s", pt, t)
}

// Enum returns the value of the constant named name, looked up across all
// enumeration field types.
func (pt *ParamsType) Enum(name string) (float64, error) {
	e, found := pt.constToEnum[name]
	if !found {
		return 0, errors.Errorf("%s: unknown enum constant %q", pt, name)
	}
	return e.Value(name)
}

// EnumFromAlias resolves alias across all enumeration field types. If alias is
// not a registered alias, it falls back to a constant named alias.
func (pt *ParamsType) EnumFromAlias(alias string) (float64, error) {
	if e, found := pt.aliasToEnum[alias]; found {
		return e.FromAlias(alias)
	}
	if e, found := pt.constToEnum[alias]; found {
		return e.Value(alias)
	}
	return 0, errors.Errorf("%s: unknown enum alias or constant %q", pt, alias)
}

// Extended returns a new, independently validated ParamsType with the union of
// the receiver's fields and more. A name in more overrides the receiver's type
// for that field. The receiver is not changed.
func (pt *ParamsType) Extended(more map[string]ctype.Type) (*ParamsType, error) {
	union := make(map[string]ctype.Type, len(pt.fields)+len(more))
	for i, field := range pt.fields {
		union[field] = pt.types[i]
	}
	maps.Copy(union, more)
	return New(union)
}

// ParamsFromSources harvests one value per field from the given sources and
// overrides, and wraps them into a Params.
//
// Sources are scanned left to right, the last one exposing a field wins;
// overrides win over every source. A source may be a map[string]any, a
// *Params, or a struct (value or pointer): for structs the exact field name is
// tried first, then its exported form (first letter upper-cased). Every
// collected value is filtered non-strict with downcast allowed. A field with
// no value anywhere is an error.
func (pt *ParamsType) ParamsFromSources(sources []any, overrides map[string]any) (*Params, error) {
	collected := make(map[string]any, len(pt.fields))
	for _, source := range sources {
		for _, field := range pt.fields {
			if value, found := lookupField(source, field); found {
				collected[field] = value
			}
		}
	}
	for _, field := range pt.fields {
		if value, found := overrides[field]; found {
			collected[field] = value
		}
	}
	filtered := make(map[string]any, len(pt.fields))
	for i, field := range pt.fields {
		raw, found := collected[field]
		if !found {
			return nil, errors.Errorf("%s: no value for field %q in any source or override", pt, field)
		}
		value, err := pt.types[i].Filter(raw, false, true)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s: field %q", pt, field)
		}
		filtered[field] = value
	}
	return NewParams(pt, filtered)
}

// Filter validates data against the ParamsType. In strict mode data must
// already be a *Params and is returned unchanged after validating each field
// value with its type. Otherwise a fresh Params is built from the filtered
// field values of data (any source accepted by ParamsFromSources).
func (pt *ParamsType) Filter(data any, strict bool, allowDowncast bool) (*Params, error) {
	params, isParams := data.(*Params)
	if strict && !isParams {
		return nil, errors.Errorf("%s.Filter: strict mode expects a *Params, got %T", pt, data)
	}
	filtered := make(map[string]any, len(pt.fields))
	for i, field := range pt.fields {
		raw, found := lookupField(data, field)
		if !found {
			return nil, errors.Errorf("%s.Filter: %T has no field %q", pt, data, field)
		}
		value, err := pt.types[i].Filter(raw, strict, allowDowncast)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s.Filter: field %q", pt, field)
		}
		filtered[field] = value
	}
	if isParams {
		return params, nil
	}
	return NewParams(pt, filtered)
}

// ValuesEq reports whether a and b agree on every field, each compared by the
// field type's own equality. Sources missing a field compare unequal.
func (pt *ParamsType) ValuesEq(a, b any) bool {
	return pt.valuesEq(a, b, ctype.Type.ValuesEq)
}

// ValuesEqApprox is like ValuesEq with the types' approximate equality.
func (pt *ParamsType) ValuesEqApprox(a, b any) bool {
	return pt.valuesEq(a, b, ctype.Type.ValuesEqApprox)
}

func (pt *ParamsType) valuesEq(a, b any, eq func(t ctype.Type, a, b any) bool) bool {
	for i, field := range pt.fields {
		valueA, foundA := lookupField(a, field)
		valueB, foundB := lookupField(b, field)
		if !foundA || !foundB || !eq(pt.types[i], valueA, valueB) {
			return false
		}
	}
	return true
}

// lookupField reads the value for field from a harvesting source.
func lookupField(source any, field string) (any, bool) {
	switch v := source.(type) {
	case nil:
		return nil, false
	case map[string]any:
		value, found := v[field]
		return value, found
	case *Params:
		if v == nil {
			return nil, false
		}
		value, err := v.Get(field)
		if err != nil {
			return nil, false
		}
		return value, true
	}
	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	for _, name := range []string{field, exportedName(field)} {
		f := rv.FieldByName(name)
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), true
		}
	}
	return nil, false
}

// exportedName returns field with its first rune upper-cased, the exported Go
// spelling matching a schema field name like "radius" -> "Radius".
func exportedName(field string) string {
	r, size := utf8.DecodeRuneInString(field)
	if r == utf8.RuneError {
		return field
	}
	return string(unicode.ToUpper(r)) + field[size:]
}
