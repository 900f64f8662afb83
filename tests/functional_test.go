// Package tests runs the seqc CLI end to end against source fixtures
// under testdata/script, using testscript so each fixture reads as a
// small shell transcript instead of a bespoke Go harness per case.
//
// Grounded on the teacher's tests/functional_test.go (build-and-exec
// a binary, diff against a .want file), adapted to drive the CLI
// in-process via testscript.RunMain instead of shelling out to a
// freshly built binary, since internal/cli.Main is now a plain
// func([]string) int the test binary itself can register.
package tests

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/seqc/seqc/internal/cli"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"seqc": func() int { return cli.Main(os.Args[1:]) },
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
