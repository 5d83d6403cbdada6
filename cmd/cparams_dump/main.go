// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// cparams_dump prints the C source generated for a ParamsType described on
// the command line, one "field:dtype" pair per argument. Useful to inspect
// what op implementations will be compiled against.
//
// Example:
//
//	cparams_dump radius:float64 iterations:int32 verbose:bool
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gomlx/cparams"
	"github.com/gomlx/cparams/ctype"
	"github.com/gomlx/gopjrt/dtypes"
	"k8s.io/klog/v2"
)

var flagLifecycle = flag.Bool("lifecycle", false,
	"Also print the declare/init/extract/cleanup glue for a variable named \"params\".")

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-lifecycle] field:dtype [field:dtype ...]\n", os.Args[0])
		os.Exit(2)
	}

	fields := make(map[string]ctype.Type, flag.NArg())
	for _, arg := range flag.Args() {
		name, dtypeName, found := strings.Cut(arg, ":")
		if !found {
			fatalf("argument %q is not of the form field:dtype", arg)
		}
		dtype, err := dtypes.DTypeString(dtypeName)
		if err != nil {
			fatalf("argument %q: %v", arg, err)
		}
		fields[name] = ctype.ScalarOf(dtype)
	}
	pt, err := cparams.New(fields)
	if err != nil {
		fatalf("%v", err)
	}

	klog.V(1).Infof("cparams_dump: struct name %s", pt.Name())
	for _, code := range pt.CSupportCode() {
		fmt.Println(code)
		fmt.Println()
	}
	if *flagLifecycle {
		const name = "params"
		fmt.Printf("/* Declare */\n%s\n\n", pt.CDeclare(name))
		fmt.Printf("/* Init */\n%s\n\n", pt.CInit(name))
		fmt.Printf("/* Extract */\n%s\n\n", pt.CExtract(name, "{return;}"))
		fmt.Printf("/* Cleanup */\n%s\n", pt.CCleanup(name))
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "cparams_dump: "+format+"\n", args...)
	os.Exit(1)
}
