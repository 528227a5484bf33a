package logutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerFollowsOutput(t *testing.T) {
	t.Cleanup(func() { SetOutput(Discard.Writer()) })

	logger := GetLogger("[test] ")
	var buf bytes.Buffer
	SetOutput(&buf)
	logger.Println("hello")
	assert.Contains(t, buf.String(), "[test] ")
	assert.Contains(t, buf.String(), "hello")

	later := GetLogger("[later] ")
	later.Println("again")
	assert.Contains(t, buf.String(), "[later] ")
}

func TestSetOutputFile(t *testing.T) {
	t.Cleanup(func() { _ = SetOutputFile("") })

	path := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, SetOutputFile(path))
	GetLogger("[file] ").Println("written")
	require.NoError(t, SetOutputFile(""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[file] written")
}
