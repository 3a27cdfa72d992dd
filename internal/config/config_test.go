package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clj-core/clj/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestParsePartialOverridesOnlyGivenKeys(t *testing.T) {
	cfg, err := config.Parse([]byte(`
heap:
  semispace-bytes: 100
`), "partial.yaml")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Heap.SemispaceBytes)
	assert.Equal(t, config.StrategyCopying, cfg.Heap.Strategy)
	assert.Equal(t, config.Default().Reader, cfg.Reader)
	assert.Equal(t, config.Default().Backend, cfg.Backend)
}

func TestParseFullOverride(t *testing.T) {
	cfg, err := config.Parse([]byte(`
reader:
  max-depth: 10
  max-size: 20
heap:
  semispace-bytes: 30
  strategy: copying
backend:
  default: vm
`), "full.yaml")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Reader.MaxDepth)
	assert.Equal(t, 20, cfg.Reader.MaxSize)
	assert.Equal(t, 30, cfg.Heap.SemispaceBytes)
	assert.Equal(t, "vm", cfg.Backend.Default)

	limits := cfg.ReaderLimits()
	assert.Equal(t, 10, limits.MaxDepth)
	assert.Equal(t, 20, limits.MaxForms)
}

func TestValidateRejectsNonPositiveFields(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"reader.max-depth", "reader:\n  max-depth: 0\n"},
		{"reader.max-size", "reader:\n  max-size: -1\n"},
		{"heap.semispace-bytes", "heap:\n  semispace-bytes: 0\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := config.Parse([]byte(c.yaml), "bad.yaml")
			assert.Error(t, err)
		})
	}
}

func TestValidateRejectsUnimplementedMarkSweepStrategy(t *testing.T) {
	_, err := config.Parse([]byte("heap:\n  strategy: marksweep\n"), "bad.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not implemented")
}

func TestValidateRejectsUnknownStrategyAndBackend(t *testing.T) {
	_, err := config.Parse([]byte("heap:\n  strategy: generational\n"), "bad.yaml")
	assert.Error(t, err)

	_, err = config.Parse([]byte("backend:\n  default: jit\n"), "bad.yaml")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/path/to/clj-config.yaml")
	assert.Error(t, err)
}
