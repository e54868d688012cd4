package mapreduce

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommandMapper(t *testing.T, value any) CommandResult {
	t.Helper()

	var results []CommandResult
	err := (&CommandMapper{}).Map("task", value, func(k string, v any) {
		assert.Equal(t, "task", k)
		results = append(results, v.(CommandResult))
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0]
}

func TestCommandMapper_Success(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	res := runCommandMapper(t, "echo hello")
	assert.True(t, res.Success)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Contains(t, res.Stderr, commandSuccessMark)
}

func TestCommandMapper_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	res := runCommandMapper(t, "exit 3")
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, commandFailMark)
}

func TestCommandMapper_RejectsNonString(t *testing.T) {
	err := (&CommandMapper{}).Map("task", 42, func(string, any) {})
	assert.ErrorContains(t, err, "expects a string")
}

func TestCommandMapper_StartFailure(t *testing.T) {
	SetCommand("/nonexistent/binary")
	defer SetCommand("sh", "-s")

	err := (&CommandMapper{}).Map("task", "true", func(string, any) {})
	assert.ErrorContains(t, err, "start /nonexistent/binary")
}
