package fswatch

import (
	"path/filepath"
	"strings"

	"gopkg.in/src-d/go-billy.v4/osfs"
	"gopkg.in/src-d/go-git.v4/plumbing/format/gitignore"

	"github.com/sidkik/sync-remote/pkg/errors"
)

// GitIgnored returns a function that reports whether a path within `root` is
// excluded by the .gitignore files in `root` and its subdirectories. The
// files are read once.
func GitIgnored(root string) (func(string) bool, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, errors.WithContext(err, "read .gitignore")
	}
	matcher := gitignore.NewMatcher(patterns)

	return func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return false
		}

		fi, err := fs.Stat(path)
		isDir := err == nil && fi.IsDir()
		return matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
	}, nil
}

// AnyIgnored combines ignore functions. Nil functions are skipped.
func AnyIgnored(fns ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, fn := range fns {
			if fn != nil && fn(path) {
				return true
			}
		}
		return false
	}
}
