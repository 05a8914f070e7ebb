package progress

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterNonTerminal(t *testing.T) {
	t.Setenv("CI", "")
	var out bytes.Buffer
	r := NewCLIReporter(&out)
	assert.False(t, r.Interactive())

	r.Update("[1/2] x on p1@acme")
	r.Update("[2/2] y on p1@acme")
	r.Stop()

	assert.Equal(t, []string{
		"[PROGRESS] [1/2] x on p1@acme",
		"[PROGRESS] [2/2] y on p1@acme",
		"[PROGRESS] done in 0s",
	}, splitLines(out.String()))
}

func TestReporterCI(t *testing.T) {
	t.Setenv("CI", "true")
	f, err := os.Create(filepath.Join(t.TempDir(), "progress.log"))
	require.NoError(t, err)
	defer f.Close()

	r := NewCLIReporter(f)
	assert.False(t, r.Interactive())
	r.Update("building")
	r.Stop()

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[PROGRESS] building\n")
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range bytes.Split(bytes.TrimRight([]byte(s), "\n"), []byte("\n")) {
		lines = append(lines, string(l))
	}
	return lines
}
