// Command clj is the driver binary for the core: read, analyze, and run
// source through one or both backends, per the external interface
// contract (source syntax as wire format, the flag table below, and the
// four exit codes). Grounded on
// _examples/funvibe-funxy/cmd/funxy/main.go's manual os.Args scan and
// fmt.Fprintf(os.Stderr, ...)/os.Exit diagnostics idiom; this driver drops
// that program's module loader, test runner, and self-contained-binary
// packer, none of which this language's minimal CLI contract asks for.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/backend"
	"github.com/clj-core/clj/internal/config"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/evaluator"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/reader"
	"github.com/clj-core/clj/internal/runtime"
	"github.com/clj-core/clj/internal/vm"
)

// Exit codes, per the external interface contract.
const (
	exitOK          = 0
	exitUncaught    = 1
	exitReadAnalyze = 2
	exitCompareDiff = 3
)

type options struct {
	expr         string
	hasExpr      bool
	file         string
	compare      bool
	dumpBytecode bool
	backendName  string // "" (unset), "treewalk", or "vm"
	configPath   string
}

func parseArgs(args []string) (*options, error) {
	opt := &options{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-e":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-e requires an expression argument")
			}
			opt.expr = args[i+1]
			opt.hasExpr = true
			i++
		case arg == "--compare":
			opt.compare = true
		case arg == "--dump-bytecode":
			opt.dumpBytecode = true
		case arg == "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--config requires a file argument")
			}
			opt.configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--backend="):
			opt.backendName = strings.TrimPrefix(arg, "--backend=")
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unrecognized flag %q", arg)
		default:
			if opt.file != "" {
				return nil, fmt.Errorf("unexpected positional argument %q (FILE already set to %q)", arg, opt.file)
			}
			opt.file = arg
		}
	}
	if opt.backendName != "" && opt.backendName != "treewalk" && opt.backendName != "vm" {
		return nil, fmt.Errorf("--backend must be \"treewalk\" or \"vm\", got %q", opt.backendName)
	}
	return opt, nil
}

func main() {
	opt, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "clj: %s\n", err)
		os.Exit(exitReadAnalyze)
	}
	os.Exit(run(opt, os.Stdout, os.Stderr))
}

// run does the work main would otherwise do inline, returning the process
// exit code instead of calling os.Exit directly so it stays testable.
func run(opt *options, stdout, stderr io.Writer) int {
	cfg := config.Default()
	if opt.configPath != "" {
		loaded, err := config.Load(opt.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "clj: %s\n", err)
			return exitReadAnalyze
		}
		cfg = loaded
	}

	src, filename, err := sourceFor(opt)
	if err != nil {
		fmt.Fprintf(stderr, "clj: %s\n", err)
		return exitReadAnalyze
	}
	if src == "" && !opt.hasExpr && opt.file == "" {
		// No -e, no FILE, no piped stdin: spec's REPL case. The REPL
		// itself is an external collaborator this core does not
		// implement; say so instead of silently exiting 0.
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(stderr, "clj: no REPL in this build; pass -e EXPR, a FILE, or pipe source on stdin")
			return exitReadAnalyze
		}
		return exitOK
	}

	forms, rerr := reader.NewWithLimits(src, filename, cfg.ReaderLimits()).ReadAll()
	if rerr != nil {
		fmt.Fprintf(stderr, "clj: %s\n", rerr)
		return exitReadAnalyze
	}

	if opt.dumpBytecode {
		return dumpBytecode(forms, runtime.NewEnv(), stdout, stderr)
	}

	chosen := opt.backendName
	if chosen == "" {
		chosen = cfg.Backend.Default
	}

	if opt.compare {
		return runCompare(forms, stdout, stderr)
	}
	return runSingle(forms, chosen, heap.NewArena(), stdout, stderr)
}

// sourceFor resolves -e/FILE/stdin into source text and a filename to
// attribute positions to, mirroring the teacher's readInputFromArgs:
// -e wins over a FILE argument, which wins over stdin.
func sourceFor(opt *options) (src string, filename string, err error) {
	if opt.hasExpr {
		return opt.expr, "<eval>", nil
	}
	if opt.file != "" {
		data, err := os.ReadFile(opt.file)
		if err != nil {
			return "", "", fmt.Errorf("reading %s: %w", opt.file, err)
		}
		return string(data), opt.file, nil
	}
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return "", "<stdin>", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), "<stdin>", nil
}

func runSingle(forms []*ast.Form, backendName string, arena *heap.Arena, stdout, stderr io.Writer) int {
	env := runtime.NewEnv()
	var b backend.Backend
	if backendName == "vm" {
		b = backend.NewVM(env, arena, stdout)
	} else {
		b = backend.NewTreeWalk(env, arena, stdout)
	}

	var last runtime.Value
	for _, f := range forms {
		v, err := b.RunTop(f)
		if err != nil {
			fmt.Fprintf(stderr, "clj: %s\n", formatRunError(err))
			var aerr *errs.AnalyzeError
			if errors.As(err, &aerr) {
				return exitReadAnalyze
			}
			return exitUncaught
		}
		last = v
	}
	if last != nil {
		fmt.Fprintln(stdout, runtime.PrintValue(last))
	}
	return exitOK
}

func runCompare(forms []*ast.Form, stdout, stderr io.Writer) int {
	d, err := backend.Compare(forms)
	if err != nil {
		fmt.Fprintf(stderr, "clj: %s\n", err)
		return exitUncaught
	}
	if d != nil {
		fmt.Fprintf(stderr, "clj: backends diverge at %s: %s\n", d.Pos, d.Reason)
		if d.EvalErr != nil || d.VMErr != nil {
			fmt.Fprintf(stderr, "  evaluator: %v\n  vm:        %v\n", d.EvalErr, d.VMErr)
		} else {
			fmt.Fprintf(stderr, "  evaluator: %s\n  vm:        %s\n", runtime.PrintValue(d.EvalVal), runtime.PrintValue(d.VMVal))
		}
		return exitCompareDiff
	}
	fmt.Fprintln(stdout, "ok: evaluator and vm agree")
	return exitOK
}

// dumpBytecode analyzes and compiles every form without executing it,
// printing each chunk's disassembly. It drives macro expansion through a
// throwaway tree-walk Evaluator's Analyzer (rather than a bare
// analyzer.New with no Invoke wired) so a macro that calls an ordinary
// function at expansion time still works.
func dumpBytecode(forms []*ast.Form, env *runtime.Env, stdout, stderr io.Writer) int {
	ev := evaluator.New(env, heap.NewArena())
	compiler := vm.NewCompiler()
	for i, f := range forms {
		node, err := ev.Analyzer.AnalyzeTop(f)
		if err != nil {
			fmt.Fprintf(stderr, "clj: %s\n", err)
			return exitReadAnalyze
		}
		chunk, err := compiler.CompileTop(node, f.Pos.File)
		if err != nil {
			fmt.Fprintf(stderr, "clj: %s\n", err)
			return exitReadAnalyze
		}
		fmt.Fprint(stdout, vm.Disassemble(chunk, fmt.Sprintf("form %d", i)))
	}
	return exitOK
}

// formatRunError distinguishes an uncaught language-level exception from a
// Go-level error surfacing through the same return path, per spec §7's
// propagation rule: either way it is exit code 1, but the message a user
// sees should name the exception's kind when there is one.
func formatRunError(err error) string {
	if exc, ok := err.(*runtime.Exception); ok {
		return exc.Error()
	}
	return err.Error()
}
