package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelRouting(t *testing.T) {
	var stdout, stderr bytes.Buffer
	SetOutput(&stdout, &stderr)
	t.Cleanup(func() { SetOutput(os.Stdout, os.Stderr) })

	Info("[1/10] CXX obj/foo.o")
	Warnf("%s not found", "out/hispark")
	Error("build failed")

	assert.Contains(t, stdout.String(), "[INFO] [1/10] CXX obj/foo.o")
	assert.Contains(t, stdout.String(), "[WARNING] out/hispark not found")
	assert.NotContains(t, stdout.String(), "build failed")
	assert.Contains(t, stderr.String(), "[ERROR] build failed")
}

func TestSetLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	SetOutput(&stdout, &stderr)
	t.Cleanup(func() {
		_ = SetLevel("info")
		SetOutput(os.Stdout, os.Stderr)
	})

	Debug("hidden")
	assert.Empty(t, stdout.String())

	require.NoError(t, SetLevel("debug"))
	Debug("shown")
	assert.Contains(t, stdout.String(), "[DEBUG] shown")

	assert.Error(t, SetLevel("loud"))
}
