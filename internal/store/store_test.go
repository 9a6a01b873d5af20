package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wharflab/relint/internal/finding"
)

func fixture(linter string, line, start int) *finding.Finding {
	return &finding.Finding{
		Filename:  "/src/app.py",
		Line:      line,
		Start:     start,
		ErrorType: finding.TypeError,
		Message:   "boom",
		Linter:    linter,
	}
}

func TestUpdateAndFile(t *testing.T) {
	s := New()
	s.Update("/src/app.py", "flake8", []*finding.Finding{
		fixture("flake8", 3, 0),
		fixture("flake8", 1, 4),
	})
	s.Update("/src/app.py", "mypy", []*finding.Finding{
		fixture("mypy", 1, 2),
	})

	got := s.File("/src/app.py")
	require.Len(t, got, 3)
	assert.Equal(t, "mypy", got[0].Linter)
	assert.Equal(t, 2, got[0].Start)
	assert.Equal(t, "flake8", got[1].Linter)
	assert.Equal(t, 4, got[1].Start)
	assert.Equal(t, 3, got[2].Line)
}

func TestUpdateReplacesWholesale(t *testing.T) {
	s := New()
	s.Update("/src/app.py", "flake8", []*finding.Finding{
		fixture("flake8", 1, 0),
		fixture("flake8", 2, 0),
	})
	s.Update("/src/app.py", "flake8", []*finding.Finding{
		fixture("flake8", 9, 0),
	})

	got := s.File("/src/app.py")
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].Line)
}

func TestEmptyUpdateClearsLinter(t *testing.T) {
	s := New()
	s.Update("/src/app.py", "flake8", []*finding.Finding{fixture("flake8", 1, 0)})
	s.Update("/src/app.py", "mypy", []*finding.Finding{fixture("mypy", 2, 0)})

	s.Update("/src/app.py", "flake8", nil)
	got := s.File("/src/app.py")
	require.Len(t, got, 1)
	assert.Equal(t, "mypy", got[0].Linter)

	s.Update("/src/app.py", "mypy", []*finding.Finding{})
	assert.Empty(t, s.File("/src/app.py"))
	assert.Empty(t, s.Files())
}

func TestEmptyUpdateForUnknownFileIsNoop(t *testing.T) {
	s := New()
	s.Update("/src/app.py", "flake8", nil)
	assert.Empty(t, s.Files())
}

func TestFilesSorted(t *testing.T) {
	s := New()
	s.Update("/src/b.py", "flake8", []*finding.Finding{fixture("flake8", 1, 0)})
	s.Update("/src/a.py", "flake8", []*finding.Finding{fixture("flake8", 1, 0)})
	s.Update("/src/c.py", "flake8", []*finding.Finding{fixture("flake8", 1, 0)})

	assert.Equal(t, []string{"/src/a.py", "/src/b.py", "/src/c.py"}, s.Files())
}

func TestClear(t *testing.T) {
	s := New()
	s.Update("/src/a.py", "flake8", []*finding.Finding{fixture("flake8", 1, 0)})
	s.Update("/src/b.py", "flake8", []*finding.Finding{fixture("flake8", 1, 0)})

	s.Clear("/src/a.py")
	assert.Nil(t, s.File("/src/a.py"))
	assert.Equal(t, []string{"/src/b.py"}, s.Files())
}

func TestUpdateCopiesInput(t *testing.T) {
	s := New()
	in := []*finding.Finding{fixture("flake8", 1, 0), fixture("flake8", 2, 0)}
	s.Update("/src/app.py", "flake8", in)

	in[0] = fixture("flake8", 99, 0)
	got := s.File("/src/app.py")
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Line)
}
