package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/karupanerura/reloadable"
)

// LintSource is a source that is used for linting purposes.
// It validates the behavior of the wrapped source, ensuring it properly follows the Source contract.
type LintSource struct {
	Source reloadable.Source
}

var _ reloadable.Source = (*LintSource)(nil)

// Open opens the wrapped source.
// It panics if the source returns neither a reader nor an error, or both of them.
func (s *LintSource) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, err := s.Source.Open(ctx)
	if err != nil {
		if rc != nil {
			panic("must not return a reader with an error")
		}
		return nil, err
	}
	if rc == nil {
		panic("must return a reader or an error")
	}
	return rc, nil
}

// String returns the name of the wrapped source.
func (s *LintSource) String() string {
	return fmt.Sprint(s.Source)
}

// FSSource is a source that reads a file in a file system.
type FSSource struct {
	// FS is the file system to read from.
	FS fs.FS

	// Name is the name of the file, in the form accepted by fs.FS.Open.
	Name string
}

var _ reloadable.Source = (*FSSource)(nil)

// Open opens the file. A missing file is reported with an error matching fs.ErrNotExist.
func (s *FSSource) Open(context.Context) (io.ReadCloser, error) {
	return s.FS.Open(s.Name)
}

// String returns the name of the file.
func (s *FSSource) String() string {
	return s.Name
}

// FunctionSource is a source that uses a function to open the content.
type FunctionSource func(context.Context) (io.ReadCloser, error)

var _ reloadable.Source = FunctionSource(nil)

// Open calls the function.
func (f FunctionSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// MemorySource is a source holding its content in memory.
// The zero value has no content and is reported as missing.
// It is safe for concurrent use.
type MemorySource struct {
	// Name is used to identify the source in logs and metrics.
	Name string

	mu      sync.RWMutex
	content []byte
	exists  bool
}

var _ reloadable.Source = (*MemorySource)(nil)

// NewMemorySource creates a new MemorySource holding a copy of the content.
func NewMemorySource(name string, content []byte) *MemorySource {
	s := &MemorySource{Name: name}
	s.Store(content)
	return s
}

// Store replaces the content with a copy of the given bytes.
func (s *MemorySource) Store(content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content = bytes.Clone(content)
	s.exists = true
}

// Remove drops the content so that Open reports it as missing.
func (s *MemorySource) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content = nil
	s.exists = false
}

// Open returns a reader over the current content.
func (s *MemorySource) Open(context.Context) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.exists {
		return nil, &fs.PathError{Op: "open", Path: s.Name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(s.content)), nil
}

// String returns the name of the source.
func (s *MemorySource) String() string {
	return s.Name
}
