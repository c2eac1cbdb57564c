package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/siftdev/sift/internal/catalog"
)

// Version is set via -ldflags at build time; "dev" is the unreleased
// default.
var Version = "dev"

const stateDirName = ".sift"

// silentError wraps an error that has already been printed to the user, so
// Run doesn't print it a second time before exiting non-zero.
type silentError struct {
	err error
}

func (s *silentError) Error() string { return s.err.Error() }
func (s *silentError) Unwrap() error { return s.err }

// NewSilentError wraps err so Run exits non-zero without printing it again.
func NewSilentError(err error) error {
	return &silentError{err: err}
}

// IsSilentError reports whether err was produced by NewSilentError.
func IsSilentError(err error) bool {
	_, ok := err.(*silentError)
	return ok
}

// EnsureCorpusRoot resolves the transcript corpus root. It does not create
// the directory: a root that doesn't exist yet is returned as-is, and
// catalog.Scan treats it as an empty corpus — a fresh machine with no
// history is a valid starting state.
func EnsureCorpusRoot() (string, error) {
	root, err := catalog.DefaultCorpusRoot()
	if err != nil {
		return "", fmt.Errorf("resolve corpus root: %w", err)
	}
	return root, nil
}

// StateDir returns the directory sift keeps its index file, catalog
// database, and analytics cache snapshot under: $HOME/.sift.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, stateDirName), nil
}
