package reloadable

import (
	"context"
	"io"
	"os"
)

// FileSource is a Source that reads a plain file at the path.
// A missing file is reported with an error matching fs.ErrNotExist.
type FileSource string

var _ Source = FileSource("")

// Open opens the file for reading.
func (s FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(string(s))
}

// String returns the path.
func (s FileSource) String() string {
	return string(s)
}
