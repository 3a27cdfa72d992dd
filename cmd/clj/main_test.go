package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsRecognizesExprFlag(t *testing.T) {
	opt, err := parseArgs([]string{"-e", "(+ 1 2)"})
	require.NoError(t, err)
	assert.True(t, opt.hasExpr)
	assert.Equal(t, "(+ 1 2)", opt.expr)
}

func TestParseArgsExprRequiresArgument(t *testing.T) {
	_, err := parseArgs([]string{"-e"})
	require.Error(t, err)
}

func TestParseArgsRejectsTwoPositionals(t *testing.T) {
	_, err := parseArgs([]string{"a.clj", "b.clj"})
	require.Error(t, err)
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	_, err := parseArgs([]string{"--nonsense"})
	require.Error(t, err)
}

func TestParseArgsValidatesBackendName(t *testing.T) {
	_, err := parseArgs([]string{"--backend=bogus"})
	require.Error(t, err)

	opt, err := parseArgs([]string{"--backend=vm"})
	require.NoError(t, err)
	assert.Equal(t, "vm", opt.backendName)
}

func TestParseArgsCompareAndDumpBytecodeFlags(t *testing.T) {
	opt, err := parseArgs([]string{"--compare", "--dump-bytecode", "f.clj"})
	require.NoError(t, err)
	assert.True(t, opt.compare)
	assert.True(t, opt.dumpBytecode)
	assert.Equal(t, "f.clj", opt.file)
}

func TestRunEvaluatesExprAndPrintsResult(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(&options{expr: "(+ 1 2)", hasExpr: true}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "3\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRunSurfacesUncaughtExceptionAsExitOne(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(&options{expr: `(throw (ex-info "boom" {}))`, hasExpr: true}, &stdout, &stderr)
	assert.Equal(t, exitUncaught, code)
	assert.Contains(t, stderr.String(), "boom")
}

func TestRunReadErrorIsExitTwo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(&options{expr: "(1 2", hasExpr: true}, &stdout, &stderr)
	assert.Equal(t, exitReadAnalyze, code)
}

func TestRunFileNotFoundIsExitTwo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(&options{file: "/no/such/file.clj"}, &stdout, &stderr)
	assert.Equal(t, exitReadAnalyze, code)
}

func TestRunDumpBytecodePrintsDisassembly(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(&options{expr: "(+ 1 2)", hasExpr: true, dumpBytecode: true}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "==")
	assert.Empty(t, stderr.String())
}

func TestRunCompareAgreesOnSimpleExpr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(&options{expr: "(+ 1 2)", hasExpr: true, compare: true}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "agree")
}

func TestRunReadsSourceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.clj")
	require.NoError(t, os.WriteFile(path, []byte("(+ 40 2)"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run(&options{file: path}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "42\n", stdout.String())
}

func TestRunWithExplicitTreewalkBackend(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(&options{expr: "(+ 1 2)", hasExpr: true, backendName: "treewalk"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "3\n", stdout.String())
}
