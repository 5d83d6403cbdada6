// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ctype

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Enum is a field type holding one of a fixed set of named numeric constants.
// The constants are also made available to C code as `#define` lines in the
// support code, so op implementations can compare against them by name.
//
// Constants may have aliases: alternative lookup keys resolving to a constant
// name. Aliases exist only on the Go side, they are not emitted to C.
type Enum struct {
	dtype     dtypes.DType
	constants map[string]float64
	names     []string          // Sorted keys of constants.
	aliases   map[string]string // alias -> constant name.
}

// EnumOption configures NewEnum.
type EnumOption func(*Enum)

// WithAliases registers alias -> constant-name lookups.
func WithAliases(aliases map[string]string) EnumOption {
	return func(e *Enum) {
		for alias, name := range aliases {
			e.aliases[alias] = name
		}
	}
}

// WithDType sets the C storage dtype of the constant values.
// The default is Int32 when every value is integral, Float64 otherwise.
func WithDType(dtype dtypes.DType) EnumOption {
	return func(e *Enum) { e.dtype = dtype }
}

// NewEnum creates an enumeration field type from constant names to their
// values. Names and aliases must be valid, non-reserved C identifiers; aliases
// must resolve to an existing constant and must not shadow a constant name.
func NewEnum(constants map[string]float64, opts ...EnumOption) (*Enum, error) {
	if len(constants) == 0 {
		return nil, errors.Errorf("ctype.NewEnum: cannot create an enum without constants")
	}
	e := &Enum{
		dtype:     dtypes.InvalidDType,
		constants: maps.Clone(constants),
		names:     maps.Keys(constants),
		aliases:   make(map[string]string),
	}
	slices.Sort(e.names)
	for _, opt := range opts {
		opt(e)
	}
	allIntegral := true
	for _, name := range e.names {
		if err := ValidIdentifier(name); err != nil {
			return nil, errors.WithMessagef(err, "ctype.NewEnum: constant name")
		}
		value := e.constants[name]
		if value != float64(int64(value)) {
			allIntegral = false
		}
	}
	if e.dtype == dtypes.InvalidDType {
		e.dtype = dtypes.Float64
		if allIntegral {
			e.dtype = dtypes.Int32
		}
	}
	if !scalarDTypes.Has(e.dtype) {
		return nil, errors.Errorf("ctype.NewEnum: dtype %s has no scalar C representation", e.dtype)
	}
	for alias, name := range e.aliases {
		if err := ValidIdentifier(alias); err != nil {
			return nil, errors.WithMessagef(err, "ctype.NewEnum: alias")
		}
		if _, found := e.constants[name]; !found {
			return nil, errors.Errorf("ctype.NewEnum: alias %q refers to unknown constant %q", alias, name)
		}
		if _, found := e.constants[alias]; found {
			return nil, errors.Errorf("ctype.NewEnum: alias %q has the same name as a constant", alias)
		}
	}
	return e, nil
}

// NewEnumList creates an enumeration with sequential values 0, 1, 2, ...
// assigned to the names in the order given.
func NewEnumList(names ...string) (*Enum, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("ctype.NewEnumList: cannot create an enum without constants")
	}
	constants := make(map[string]float64, len(names))
	for i, name := range names {
		if _, found := constants[name]; found {
			return nil, errors.Errorf("ctype.NewEnumList: constant %q listed twice", name)
		}
		constants[name] = float64(i)
	}
	return NewEnum(constants)
}

// DType is the C storage dtype of the constant values.
func (e *Enum) DType() dtypes.DType { return e.dtype }

// Names returns the constant names in sorted order.
func (e *Enum) Names() []string { return slices.Clone(e.names) }

// Has reports whether name is a constant of this enum.
func (e *Enum) Has(name string) bool {
	_, found := e.constants[name]
	return found
}

// Value returns the value of the named constant.
func (e *Enum) Value(name string) (float64, error) {
	value, found := e.constants[name]
	if !found {
		return 0, errors.Errorf("%s: unknown constant %q", e, name)
	}
	return value, nil
}

// Aliases returns a copy of the alias -> constant-name mapping.
func (e *Enum) Aliases() map[string]string { return maps.Clone(e.aliases) }

// FromAlias returns the value of the constant the alias resolves to. If alias
// is not registered, it falls back to looking up a constant named alias.
func (e *Enum) FromAlias(alias string) (float64, error) {
	name, found := e.aliases[alias]
	if !found {
		name = alias
	}
	return e.Value(name)
}

// String implements Type. The form is stable and content-complete: it feeds
// the struct-name hash, so any change to constants or aliases changes it.
func (e *Enum) String() string {
	parts := make([]string, 0, len(e.names))
	for _, name := range e.names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, formatEnumValue(e.constants[name])))
	}
	repr := fmt.Sprintf("Enum(%s:%s", e.dtype, strings.Join(parts, ","))
	if len(e.aliases) > 0 {
		aliases := maps.Keys(e.aliases)
		slices.Sort(aliases)
		parts = parts[:0]
		for _, alias := range aliases {
			parts = append(parts, fmt.Sprintf("%s->%s", alias, e.aliases[alias]))
		}
		repr += "|" + strings.Join(parts, ",")
	}
	return repr + ")"
}

// Equal implements Type.
func (e *Enum) Equal(other Type) bool {
	o, ok := other.(*Enum)
	return ok && e.dtype == o.dtype &&
		maps.Equal(e.constants, o.constants) &&
		maps.Equal(e.aliases, o.aliases)
}

// Filter implements Type: the value must be numeric and equal to one of the
// enum's constants. The canonical representation is int64 for integer storage
// dtypes and float64 otherwise.
func (e *Enum) Filter(value any, strict bool, allowDowncast bool) (any, error) {
	canonical, err := e.canonical(value)
	if err != nil {
		return nil, err
	}
	if strict && canonical != value {
		return nil, errors.Errorf("%s.Filter: strict mode expects a %T, got %T", e, canonical, value)
	}
	asFloat, _ := asFloat64(canonical)
	for _, v := range e.constants {
		if v == asFloat {
			return canonical, nil
		}
	}
	return nil, errors.Errorf("%s.Filter: value %v is not one of the enum constants", e, value)
}

func (e *Enum) canonical(value any) (any, error) {
	f64, ok := asFloat64(value)
	if !ok {
		return nil, errors.Errorf("%s: expects a numeric value, got %T", e, value)
	}
	if e.dtype.IsInt() {
		if f64 != float64(int64(f64)) {
			return nil, errors.Errorf("%s: value %v is not integral", e, value)
		}
		return int64(f64), nil
	}
	return f64, nil
}

// ValuesEq implements Type.
func (e *Enum) ValuesEq(a, b any) bool {
	fa, okA := asFloat64(a)
	fb, okB := asFloat64(b)
	return okA && okB && fa == fb
}

// ValuesEqApprox implements Type: constants are exact, approximate equality
// degenerates to ValuesEq.
func (e *Enum) ValuesEqApprox(a, b any) bool { return e.ValuesEq(a, b) }

// Signature implements Type.
func (e *Enum) Signature(value any) (string, error) {
	canonical, err := e.Filter(value, false, false)
	if err != nil {
		return "", errors.WithMessagef(err, "%s.Signature", e)
	}
	return fmt.Sprintf("%s=%v", e, canonical), nil
}

// CDeclare implements Type.
func (e *Enum) CDeclare(name string) string {
	return fmt.Sprintf("%s %s;", e.scalar().cName(), name)
}

// CInit implements Type.
func (e *Enum) CInit(name string) string {
	return fmt.Sprintf("%s = 0;", name)
}

// CCleanup implements Type.
func (e *Enum) CCleanup(name string) string { return "" }

// CExtract implements Type.
func (e *Enum) CExtract(name string, onFail string) string {
	return e.scalar().CExtract(name, onFail)
}

func (e *Enum) scalar() *Scalar { return &Scalar{dtype: e.dtype} }

// CSupportCode implements Type: the runtime hooks plus one guarded block of
// `#define` lines, one per constant, so generated op code can refer to the
// constants by name. The guard is content-derived, letting identical enums
// from independently constructed schemas share one block.
func (e *Enum) CSupportCode() []string {
	digest := sha256.Sum256([]byte(e.String()))
	guard := fmt.Sprintf("CPARAMS_ENUM_%X", digest[:8])
	var b strings.Builder
	fmt.Fprintf(&b, "/** Enum constants (%s) **/\n", guard)
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n", guard, guard)
	for _, name := range e.names {
		fmt.Fprintf(&b, "#define %s %s\n", name, formatEnumValue(e.constants[name]))
	}
	b.WriteString("#endif")
	return []string{RuntimeSupportCode, b.String()}
}

// CCodeCacheVersion implements Type.
func (e *Enum) CCodeCacheVersion() []int {
	return []int{1, int(e.dtype)}
}

func formatEnumValue(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}
