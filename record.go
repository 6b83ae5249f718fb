package reloadable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/iancoleman/orderedmap"
)

// Record is a reloadable key-value mapping decoded from one object-rooted document.
// Keys keep the order of the document. Every method reading or writing the entries
// reloads them first when they are stale.
type Record struct {
	*Container[*orderedmap.OrderedMap]
}

// NewRecord creates a new Record backed by the file at the path.
// The file does not need to exist. The document is decoded as JSON unless
// WithRecordDecoder is given.
func NewRecord(path string, opts ...Option) (*Record, error) {
	return NewRecordFromSource(FileSource(path), opts...)
}

// NewRecordFromSource creates a new Record backed by the source.
func NewRecordFromSource(src Source, opts ...Option) (*Record, error) {
	o := newOptions(opts)
	parser := ParserFunc[*orderedmap.OrderedMap](func(r io.Reader) (*orderedmap.OrderedMap, error) {
		return o.recordDecoder.DecodeRecord(r)
	})
	c, err := newContainer(src, parser, newRecordMap, recordSize, o)
	if err != nil {
		return nil, err
	}
	return &Record{Container: c}, nil
}

func recordSize(m *orderedmap.OrderedMap) int {
	return len(m.Keys())
}

// Len returns the number of entries.
func (r *Record) Len() (int, error) {
	if err := r.ensureFresh(); err != nil {
		return 0, err
	}
	return len(r.data.Keys()), nil
}

// Get returns the value of the key.
// It returns ErrKeyNotFound if the key is not present.
func (r *Record) Get(key string) (any, error) {
	v, ok, err := r.Lookup(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return v, nil
}

// Lookup returns the value of the key and whether it is present.
func (r *Record) Lookup(key string) (any, bool, error) {
	if err := r.ensureFresh(); err != nil {
		return nil, false, err
	}
	v, ok := r.data.Get(key)
	return v, ok, nil
}

// Set stores the value with the key.
// A new key is appended after the existing ones.
// The change lasts until the next reload replaces the snapshot.
func (r *Record) Set(key string, v any) error {
	if err := r.ensureFresh(); err != nil {
		return err
	}
	r.data.Set(key, v)
	return nil
}

// Delete removes the key.
// It returns ErrKeyNotFound if the key is not present.
// The change lasts until the next reload replaces the snapshot.
func (r *Record) Delete(key string) error {
	if err := r.ensureFresh(); err != nil {
		return err
	}
	if _, ok := r.data.Get(key); !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	r.data.Delete(key)
	return nil
}

// Contains reports whether the key is present.
func (r *Record) Contains(key string) (bool, error) {
	if err := r.ensureFresh(); err != nil {
		return false, err
	}
	_, ok := r.data.Get(key)
	return ok, nil
}

// Keys returns an iterator over the keys of the current snapshot in document order.
// Each call checks freshness again and starts a new iteration.
func (r *Record) Keys() (iter.Seq[string], error) {
	if err := r.ensureFresh(); err != nil {
		return nil, err
	}
	return slices.Values(slices.Clone(r.data.Keys())), nil
}

// All returns an iterator over the key-value pairs of the current snapshot in document order.
// Keys deleted during the iteration are skipped.
func (r *Record) All() (iter.Seq2[string, any], error) {
	if err := r.ensureFresh(); err != nil {
		return nil, err
	}
	return entries(r.data, slices.Clone(r.data.Keys())), nil
}

// Backward returns an iterator over the key-value pairs of the current snapshot in reverse document order.
func (r *Record) Backward() (iter.Seq2[string, any], error) {
	if err := r.ensureFresh(); err != nil {
		return nil, err
	}
	keys := slices.Clone(r.data.Keys())
	slices.Reverse(keys)
	return entries(r.data, keys), nil
}

// String renders the entries as a JSON object.
// If the reload fails, the kept snapshot is rendered.
func (r *Record) String() string {
	return renderRecord(r.current())
}

// GoString renders the entries with the source and the reload interval.
func (r *Record) GoString() string {
	return fmt.Sprintf("reloadable.Record{source: %q, reloadEvery: %s, data: %s}", r.sourceName(), r.opts.interval, renderRecord(r.current()))
}

func entries(m *orderedmap.OrderedMap, keys []string) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range keys {
			v, ok := m.Get(k)
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// renderRecord renders the map as compact JSON.
// OrderedMap.MarshalJSON terminates every key and value with a newline.
func renderRecord(m *orderedmap.OrderedMap) string {
	b, err := m.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<unrenderable record: %v>", err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return fmt.Sprintf("<unrenderable record: %v>", err)
	}
	return buf.String()
}
