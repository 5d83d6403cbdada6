// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ctype

import (
	"regexp"

	"github.com/gomlx/cparams/internal/sets"
	"github.com/pkg/errors"
)

// CKeywords is the set of C and C++ reserved words, as listed in
// https://en.cppreference.com/w/c/keyword and https://en.cppreference.com/w/cpp/keyword,
// plus NULL and _Pragma. Field and constant names must not collide with any of
// them, since they become identifiers in the generated code.
var CKeywords = sets.MakeWith(
	"_Alignas", "_Alignof", "_Atomic", "_Bool", "_Complex", "_Generic",
	"_Imaginary", "_Noreturn", "_Pragma", "_Static_assert", "_Thread_local",
	"alignas", "alignof", "and", "and_eq", "asm", "auto",
	"bitand", "bitor", "bool", "break",
	"case", "catch", "char", "char16_t", "char32_t", "class", "compl",
	"const", "const_cast", "constexpr", "continue",
	"decltype", "default", "delete", "do", "double", "dynamic_cast",
	"else", "enum", "explicit", "export", "extern",
	"false", "float", "for", "friend",
	"goto",
	"if", "inline", "int",
	"long",
	"mutable",
	"namespace", "new", "noexcept", "not", "not_eq", "NULL", "nullptr",
	"operator", "or", "or_eq",
	"private", "protected", "public",
	"register", "reinterpret_cast", "restrict", "return",
	"short", "signed", "sizeof", "static", "static_assert", "static_cast",
	"struct", "switch",
	"template", "this", "thread_local", "throw", "true", "try",
	"typedef", "typeid", "typename",
	"union", "unsigned", "using",
	"virtual", "void", "volatile",
	"wchar_t", "while",
	"xor", "xor_eq",
)

var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier returns an error if name cannot be used as an identifier in
// generated C code: either it doesn't match identifier syntax, or it is a
// reserved C/C++ keyword.
func ValidIdentifier(name string) error {
	if !identifierRegexp.MatchString(name) {
		return errors.Errorf("%q is not a valid identifier", name)
	}
	if CKeywords.Has(name) {
		return errors.Errorf("%q is a reserved C/C++ keyword and cannot be used as a name", name)
	}
	return nil
}
