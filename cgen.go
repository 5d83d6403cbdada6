// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cparams

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/gomlx/cparams/ctype"
	"github.com/gomlx/cparams/internal/sets"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// structCodeVersion is the format version of the generated struct code. Bump
// it whenever the emitted layout changes, so cached compiled artifacts are
// invalidated.
const structCodeVersion = 1

// extractFailHook is the failure hook passed to each field type's CExtract:
// within an extract_<field> method, failure flags the error counter and
// returns. Errors never unwind out of the generated code.
const extractFailHook = "{this->setErrorOccurred(); return;}"

var structTemplate = template.Must(template.New("params_struct").Parse(
	`/** ParamsType {{.Name}} **/
#ifndef {{.Guard}}
#define {{.Guard}}
struct {{.Name}} {
    /* Attributes. */
    int {{.Name}}_error;
{{.Declares}}

    /* Constructor. */
    {{.Name}}() {
        {{.Name}}_error = 0;
{{.Inits}}
    }

    /* Destructor. */
    ~{{.Name}}() {
        cleanup();
    }

    /* Cleanup method. */
    void cleanup() {
{{.Cleanups}}
    }

    /* Extraction methods. */
{{.Extracts}}

    /* Positional dispatch. */
    void extract(cparams_object object, int field_pos) {
        switch (field_pos) {
{{.Cases}}
        default:
            cparams_report_error("ParamsType: no extraction defined for field position %d.", field_pos);
            this->setErrorOccurred();
            break;
        }
    }

    /* Error flag. */
    void setErrorOccurred() {
        ++{{.Name}}_error;
    }
    int errorOccurred() {
        return {{.Name}}_error;
    }
};
#endif
/** End ParamsType {{.Name}} **/`))

// CSupportCode returns the self-contained C source for this ParamsType: first
// the field types' own support code, deduplicated by content and sorted, then
// the struct definition guarded by an include-guard keyed on Name.
//
// The output is byte-identical for equal ParamsType, emission is a pure
// function of the fields and types.
func (pt *ParamsType) CSupportCode() []string {
	support := sets.Make[string]()
	for _, t := range pt.types {
		for _, code := range t.CSupportCode() {
			if code != "" {
				support.Insert(code)
			}
		}
	}

	var declares, inits, cleanups, extracts, cases []string
	for i, field := range pt.fields {
		t := pt.types[i]
		declares = append(declares, indent(t.CDeclare(field), "    "))
		inits = append(inits, indent(t.CInit(field), "        "))
		if cleanup := t.CCleanup(field); cleanup != "" {
			cleanups = append(cleanups, indent(cleanup, "        "))
		}
		extracts = append(extracts, fmt.Sprintf(
			"    void extract_%s(cparams_object obj_%s) {\n%s\n    }",
			field, field, indent(t.CExtract(field, extractFailHook), "        ")))
		cases = append(cases, fmt.Sprintf(
			"        case %d: extract_%s(object); break;", i, field))
	}

	var b strings.Builder
	err := structTemplate.Execute(&b, map[string]string{
		"Name":     pt.name,
		"Guard":    strings.ToUpper(pt.name),
		"Declares": strings.Join(declares, "\n"),
		"Inits":    strings.Join(inits, "\n"),
		"Cleanups": strings.Join(cleanups, "\n"),
		"Extracts": strings.Join(extracts, "\n\n"),
		"Cases":    strings.Join(cases, "\n"),
	})
	if err != nil {
		exceptions.Panicf("cparams: failed to render C struct for %s: %+v", pt, err)
	}
	klog.V(2).Infof("cparams: generated C struct %s (%d fields)", pt.name, len(pt.fields))
	return append(sets.Sorted(support), b.String())
}

// indent prefixes every non-empty line of code with the given prefix.
func indent(code, prefix string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// CDeclare declares a C variable of this ParamsType: a pointer to the
// generated struct. The struct has a constructor and destructor and could live
// on the stack, but C op implementations pass params around, so a pointer is
// the practical representation.
func (pt *ParamsType) CDeclare(name string) string {
	return fmt.Sprintf("%s* %s;", pt.name, name)
}

// CInit null-initializes the variable; the actual allocation happens at the
// top of CExtract.
func (pt *ParamsType) CInit(name string) string {
	return fmt.Sprintf("%s = NULL;", name)
}

// CCleanup deletes the struct (running the field cleanups through the
// destructor) and nulls the pointer. Safe to run after a failed extraction.
func (pt *ParamsType) CCleanup(name string) string {
	return fmt.Sprintf("delete %s;\n%s = NULL;", name, name)
}

// CExtract allocates a fresh struct and fills it field by field from the
// string-keyed object handle in scope as obj_<name>: each field is looked up
// by name, missing entries are reported, and extraction errors accumulated in
// the struct's error counter trigger onFail.
func (pt *ParamsType) CExtract(name string, onFail string) string {
	quoted := make([]string, len(pt.fields))
	for i, field := range pt.fields {
		quoted[i] = strconv.Quote(field)
	}
	return fmt.Sprintf(`%[1]s = new %[2]s;
{
    static const char* fields[] = {%[3]s};
    if (obj_%[1]s == NULL) {
        cparams_report_error("ParamsType: expected an object, got NULL.");
        %[4]s
    }
    for (int i = 0; i < %[5]d; ++i) {
        cparams_object o = cparams_getitem(obj_%[1]s, fields[i]);
        if (o == NULL) {
            cparams_report_error("ParamsType: missing expected attribute \"%%s\" in object.", fields[i]);
            %[4]s
        }
        %[1]s->extract(o, i);
        if (%[1]s->errorOccurred()) {
            cparams_report_error("ParamsType: error when extracting value for attribute \"%%s\".", fields[i]);
            %[4]s
        }
    }
}`, name, pt.name, strings.Join(quoted, ", "), onFail, len(pt.fields))
}

// CSync panics: values of a ParamsType cannot be graph outputs, there is no
// path to synchronize a struct back into a Params. This restriction is
// deliberate (the struct is a one-way, per-invocation adapter); attempting it
// is a programming error.
func (pt *ParamsType) CSync(name string) string {
	exceptions.Panicf("cparams: values of type %s cannot be graph outputs, no C sync exists for %q", pt, name)
	return "" // Unreachable.
}

// CCodeCacheVersion combines the struct format version with every field
// type's own version token, each prefixed with its length so the flattening
// is unambiguous. Any field type version bump invalidates cached artifacts of
// every ParamsType that includes it.
func (pt *ParamsType) CCodeCacheVersion() []int {
	version := []int{structCodeVersion}
	for _, t := range pt.types {
		typeVersion := t.CCodeCacheVersion()
		version = append(version, len(typeVersion))
		version = append(version, typeVersion...)
	}
	return version
}

// Compiler and linker metadata, aggregated in field order over the field
// types that provide it.

func (pt *ParamsType) collectMetadata(get func(ctype.CompilerMetadata) []string) []string {
	var all []string
	for _, t := range pt.types {
		if m, ok := t.(ctype.CompilerMetadata); ok {
			all = append(all, get(m)...)
		}
	}
	return all
}

func (pt *ParamsType) CCompileArgs() []string {
	return pt.collectMetadata(ctype.CompilerMetadata.CCompileArgs)
}

func (pt *ParamsType) CHeaders() []string {
	return pt.collectMetadata(ctype.CompilerMetadata.CHeaders)
}

func (pt *ParamsType) CLibraries() []string {
	return pt.collectMetadata(ctype.CompilerMetadata.CLibraries)
}

func (pt *ParamsType) CHeaderDirs() []string {
	return pt.collectMetadata(ctype.CompilerMetadata.CHeaderDirs)
}

func (pt *ParamsType) CLibDirs() []string {
	return pt.collectMetadata(ctype.CompilerMetadata.CLibDirs)
}

func (pt *ParamsType) CInitCode() []string {
	return pt.collectMetadata(ctype.CompilerMetadata.CInitCode)
}
