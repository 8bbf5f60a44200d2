package fswatch

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitIgnored(t *testing.T) {
	dir, err := ioutil.TempDir("", "gitignore")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, ".gitignore"),
		[]byte("*.log\nbuild/\n"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "src", ".gitignore"),
		[]byte("generated.go\n"), 0644))

	ignored, err := GitIgnored(dir)
	require.NoError(t, err)

	tests := []struct {
		path       string
		expIgnored bool
	}{
		{"main.go", false},
		{"server.log", true},
		{"src/debug.log", true},
		{"build", true},
		{"src/generated.go", true},
		{"src/main.go", false},
	}
	for _, test := range tests {
		path := filepath.Join(dir, filepath.FromSlash(test.path))
		assert.Equal(t, test.expIgnored, ignored(path), test.path)
	}

	assert.False(t, ignored(dir))
	assert.False(t, ignored("/elsewhere/server.log"))
}

func TestAnyIgnored(t *testing.T) {
	swp := func(path string) bool { return strings.HasSuffix(path, ".swp") }
	tmp := func(path string) bool { return strings.HasSuffix(path, "~") }

	ignored := AnyIgnored(swp, nil, tmp)
	assert.True(t, ignored("/a/.b.swp"))
	assert.True(t, ignored("/a/b~"))
	assert.False(t, ignored("/a/b"))
	assert.False(t, AnyIgnored()("/a/b"))
}
