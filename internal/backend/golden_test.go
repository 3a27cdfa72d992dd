package backend_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/backend"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/reader"
	"github.com/clj-core/clj/internal/runtime"
)

// scenario is one spec §8 end-to-end example: a source program and the
// printed value its last top-level form must evaluate to, on both backends.
type scenario struct {
	name     string
	input    string
	expected string
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	arc, err := txtar.ParseFile("testdata/scenarios.txtar")
	require.NoError(t, err)

	byName := map[string]*scenario{}
	var order []string
	for _, f := range arc.Files {
		base, suffix, ok := cutSuffix(f.Name)
		require.True(t, ok, "unexpected txtar file name %q", f.Name)
		s, seen := byName[base]
		if !seen {
			s = &scenario{name: base}
			byName[base] = s
			order = append(order, base)
		}
		switch suffix {
		case "input":
			s.input = string(f.Data)
		case "expected":
			s.expected = strings.TrimSpace(string(f.Data))
		}
	}

	scenarios := make([]scenario, 0, len(order))
	for _, name := range order {
		scenarios = append(scenarios, *byName[name])
	}
	return scenarios
}

func cutSuffix(name string) (base, suffix string, ok bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

func readForms(t *testing.T, src string) []*ast.Form {
	t.Helper()
	forms, rerr := reader.New(src, "testdata/scenarios.txtar").ReadAll()
	require.Nil(t, rerr, "read error: %v", rerr)
	return forms
}

// TestScenariosAgreeAcrossBackends runs every spec §8 scenario through both
// backends independently, asserting each program's final form prints the
// documented expected value on the evaluator and on the VM alike — the
// same property backend.Compare checks continuously, pinned here to
// concrete literal output.
func TestScenariosAgreeAcrossBackends(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			forms := readForms(t, sc.input)
			require.NotEmpty(t, forms)

			tw := backend.NewTreeWalk(runtime.NewEnv(), heap.NewArena(), nil)
			vmb := backend.NewVM(runtime.NewEnv(), heap.NewArena(), nil)

			var evalResult, vmResult runtime.Value
			for _, f := range forms {
				v, err := tw.RunTop(f)
				require.NoError(t, err)
				evalResult = v
			}
			for _, f := range forms {
				v, err := vmb.RunTop(f)
				require.NoError(t, err)
				vmResult = v
			}

			assert.Equal(t, sc.expected, runtime.PrintValue(evalResult), "evaluator result for %s", sc.name)
			assert.Equal(t, sc.expected, runtime.PrintValue(vmResult), "vm result for %s", sc.name)
		})
	}
}

// TestCompareFindsNoDivergence is the --compare flag's own logic exercised
// directly: every scenario's forms, run through backend.Compare, must
// report no divergence.
func TestCompareFindsNoDivergence(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			forms := readForms(t, sc.input)
			d, err := backend.Compare(forms)
			require.NoError(t, err)
			assert.Nil(t, d, "unexpected divergence: %+v", d)
		})
	}
}

// TestCompareAgreesOnUncaughtException checks the exception-kind half of
// backend.Compare's contract, not just the plain-value half the scenario
// corpus exercises: an uncaught throw must surface as the same
// runtime.ExceptionKind on both backends.
func TestCompareAgreesOnUncaughtException(t *testing.T) {
	forms := readForms(t, `(throw (ex-info "boom" {}))`)
	d, err := backend.Compare(forms)
	require.NoError(t, err)
	assert.Nil(t, d, "both backends should raise the same exception kind for an uncaught throw")
}
