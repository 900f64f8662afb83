// Package cli implements the seqc command-line driver: read a source
// file, run it through pkg/seqc, write the emitted LLVM IR (or report
// the first diagnostic). cmd/seqc is a thin shim over this package so
// that tests can drive the CLI in-process (spec.md §7,
// SPEC_FULL.md's AMBIENT STACK).
//
// Grounded on the teacher's cmd/funxy/main.go: a hand-rolled os.Args
// scan rather than the flag package, NO_COLOR/TERM=dumb-aware ANSI
// error coloring via go-isatty the way the teacher's
// internal/evaluator/builtins_term.go detects color support.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/seqc/seqc/internal/config"
	"github.com/seqc/seqc/internal/diagnostics"
	"github.com/seqc/seqc/pkg/seqc"
)

// Main runs the CLI against args (conventionally os.Args[1:]) and
// returns the process exit code.
func Main(args []string) int {
	if len(args) < 1 || args[0] == "-help" || args[0] == "--help" || args[0] == "help" {
		usage()
		return 1
	}

	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, colorize(err.Error(), true))
		return 1
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: seqc [-o out.ll] [-target triple] [-config path.yaml] [-check] [-test] <file.seq>")
}

// options holds one invocation's parsed flags.
type options struct {
	input      string
	output     string
	target     string
	configPath string
	checkOnly  bool
	testMode   bool
}

func parseArgs(args []string) (*options, error) {
	opts := &options{}
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "-o" || arg == "--output":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a path argument", arg)
			}
			opts.output = args[i+1]
			i += 2
		case arg == "-target" || arg == "--target":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a target triple argument", arg)
			}
			opts.target = args[i+1]
			i += 2
		case arg == "-config" || arg == "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a path argument", arg)
			}
			opts.configPath = args[i+1]
			i += 2
		case arg == "-check" || arg == "--check":
			opts.checkOnly = true
			i++
		case arg == "-test" || arg == "--test":
			opts.testMode = true
			i++
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unrecognized flag %q", arg)
		default:
			if opts.input != "" {
				return nil, fmt.Errorf("unexpected extra argument %q (source file already given as %q)", arg, opts.input)
			}
			opts.input = arg
			i++
		}
	}
	if opts.input == "" {
		return nil, fmt.Errorf("no source file given")
	}
	return opts, nil
}

func run(opts *options) error {
	source, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.input, err)
	}

	var cfg *config.CompilerConfig
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return err
		}
	}
	if cfg == nil {
		cfg = &config.CompilerConfig{}
	}
	if opts.target != "" {
		cfg.Target = opts.target
	}
	config.IsTestMode = opts.testMode || cfg.TestMode

	if opts.checkOnly {
		// A check-only run still goes through Compile (spec.md's
		// pipeline always lexes/parses/checks before emitting); the
		// IR it produces is simply discarded.
		if _, err := seqc.CompileWithConfig(string(source), cfg); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "ok")
		return nil
	}

	result, err := seqc.CompileWithConfig(string(source), cfg)
	if err != nil {
		return err
	}

	if opts.output == "" {
		fmt.Print(result.IR)
		return nil
	}
	return os.WriteFile(opts.output, []byte(result.IR), 0644)
}

// formatError renders err as a single human-readable line, coloring
// the diagnostic code red when stderr is a color-capable terminal.
func formatError(err error) string {
	if d, ok := err.(*diagnostics.Diagnostic); ok {
		return colorize(fmt.Sprintf("error[%s]", d.CodeOf()), true) + ": " + d.Error()
	}
	return colorize("error", true) + ": " + err.Error()
}

// colorSupported mirrors the teacher's detectColorLevel NO_COLOR/TERM
// checks, narrowed to the on/off decision this driver needs.
func colorSupported() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

func colorize(s string, red bool) string {
	if !red || !colorSupported() {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}
