package errs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clj-core/clj/internal/errs"
)

func TestPositionStringOmitsFileWhenEmpty(t *testing.T) {
	p := errs.Position{Line: 3, Column: 7}
	assert.Equal(t, "3:7", p.String())
}

func TestPositionStringIncludesFileWhenSet(t *testing.T) {
	p := errs.Position{File: "test", Line: 3, Column: 7}
	assert.Equal(t, "test:3:7", p.String())
}

func TestReadErrorFormatsWithAndWithoutMessage(t *testing.T) {
	pos := errs.Position{File: "f", Line: 1, Column: 1}

	withMsg := errs.NewReadError(errs.UnmatchedDelim, pos, "missing )")
	assert.Equal(t, "f:1:1: missing ) (unmatched_delimiter)", withMsg.Error())

	noMsg := errs.NewReadError(errs.UnmatchedDelim, pos, "")
	assert.Equal(t, "f:1:1: unmatched_delimiter", noMsg.Error())
}

func TestAnalyzeErrorFormatsPosKindAndMessage(t *testing.T) {
	pos := errs.Position{File: "f", Line: 2, Column: 5}
	err := errs.NewAnalyzeError(errs.UnresolvedSymbol, pos, "unable to resolve symbol: x")
	assert.Equal(t, "f:2:5: unable to resolve symbol: x (unresolved_symbol)", err.Error())
}
