package reloadable

import (
	"context"
	"io"

	"github.com/iancoleman/orderedmap"
)

// Source is an interface for opening the backing content of a container.
type Source interface {
	// Open opens the backing content for reading.
	// If the content does not exist, the returned error must match fs.ErrNotExist
	// so that the container can reset itself to the empty state.
	// The caller closes the returned reader.
	Open(context.Context) (io.ReadCloser, error)
}

// Parser is an interface for building a whole new container value from the backing content.
type Parser[T any] interface {
	// Parse reads the content and returns a freshly constructed value.
	// It must not retain or mutate any value returned by a previous call.
	Parse(io.Reader) (T, error)
}

// ParserFunc is a function type that implements the Parser interface.
type ParserFunc[T any] func(io.Reader) (T, error)

// Parse calls the function.
func (f ParserFunc[T]) Parse(r io.Reader) (T, error) {
	return f(r)
}

// RecordDecoder is an interface for decoding an object-rooted structured-text document.
type RecordDecoder interface {
	// DecodeRecord decodes the whole document into an insertion-ordered map.
	// Non-object roots must be reported with ErrNotObject.
	DecodeRecord(io.Reader) (*orderedmap.OrderedMap, error)
}

// RecordDecoderFunc is a function type that implements the RecordDecoder interface.
type RecordDecoderFunc func(io.Reader) (*orderedmap.OrderedMap, error)

// DecodeRecord calls the function.
func (f RecordDecoderFunc) DecodeRecord(r io.Reader) (*orderedmap.OrderedMap, error) {
	return f(r)
}
