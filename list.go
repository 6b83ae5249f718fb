package reloadable

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
	"unicode/utf8"
)

// List is a reloadable ordered sequence of non-blank lines.
// Every method reading or writing the lines reloads them first when they are stale.
type List struct {
	*Container[[]string]
}

// NewList creates a new List backed by the file at the path.
// The file does not need to exist.
func NewList(path string, opts ...Option) (*List, error) {
	return NewListFromSource(FileSource(path), opts...)
}

// NewListFromSource creates a new List backed by the source.
func NewListFromSource(src Source, opts ...Option) (*List, error) {
	c, err := newContainer(src, ParserFunc[[]string](ParseLines), emptyList, listSize, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return &List{Container: c}, nil
}

func emptyList() []string {
	return []string{}
}

func listSize(lines []string) int {
	return len(lines)
}

// ParseLines reads all lines, trims surrounding white space from each of them and drops empty ones.
// The order of the remaining lines is preserved.
func ParseLines(r io.Reader) ([]string, error) {
	lines := []string{}
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if !utf8.ValidString(line) {
				return nil, fmt.Errorf("line %d: %w", n, ErrInvalidUTF8)
			}
			if s := strings.TrimSpace(line); s != "" {
				lines = append(lines, s)
			}
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		} else if err != nil {
			return nil, err
		}
	}
}

// Len returns the number of lines.
func (l *List) Len() (int, error) {
	if err := l.ensureFresh(); err != nil {
		return 0, err
	}
	return len(l.data), nil
}

// At returns the line at the index.
func (l *List) At(i int) (string, error) {
	if err := l.ensureFresh(); err != nil {
		return "", err
	}
	if err := l.checkIndex(i); err != nil {
		return "", err
	}
	return l.data[i], nil
}

// Set replaces the line at the index.
// The change lasts until the next reload replaces the snapshot.
func (l *List) Set(i int, v string) error {
	if err := l.ensureFresh(); err != nil {
		return err
	}
	if err := l.checkIndex(i); err != nil {
		return err
	}
	l.data[i] = v
	return nil
}

// Delete removes the line at the index.
// The change lasts until the next reload replaces the snapshot.
func (l *List) Delete(i int) error {
	if err := l.ensureFresh(); err != nil {
		return err
	}
	if err := l.checkIndex(i); err != nil {
		return err
	}
	l.data = slices.Delete(l.data, i, i+1)
	return nil
}

// Append adds the lines at the end.
// The change lasts until the next reload replaces the snapshot.
func (l *List) Append(vs ...string) error {
	if err := l.ensureFresh(); err != nil {
		return err
	}
	l.data = append(l.data, vs...)
	return nil
}

// Contains reports whether the line is present.
func (l *List) Contains(v string) (bool, error) {
	if err := l.ensureFresh(); err != nil {
		return false, err
	}
	return slices.Contains(l.data, v), nil
}

// Index returns the index of the first occurrence of the line, or -1 if not present.
func (l *List) Index(v string) (int, error) {
	if err := l.ensureFresh(); err != nil {
		return -1, err
	}
	return slices.Index(l.data, v), nil
}

// Values returns an iterator over the lines of the current snapshot.
// Each call checks freshness again and starts a new iteration.
func (l *List) Values() (iter.Seq[string], error) {
	if err := l.ensureFresh(); err != nil {
		return nil, err
	}
	return slices.Values(l.data), nil
}

// All returns an iterator over the index-line pairs of the current snapshot.
func (l *List) All() (iter.Seq2[int, string], error) {
	if err := l.ensureFresh(); err != nil {
		return nil, err
	}
	return slices.All(l.data), nil
}

// Backward returns an iterator over the index-line pairs of the current snapshot in reverse order.
func (l *List) Backward() (iter.Seq2[int, string], error) {
	if err := l.ensureFresh(); err != nil {
		return nil, err
	}
	return slices.Backward(l.data), nil
}

// String renders the lines.
// If the reload fails, the kept snapshot is rendered.
func (l *List) String() string {
	return fmt.Sprintf("%q", l.current())
}

// GoString renders the lines with the source and the reload interval.
func (l *List) GoString() string {
	return fmt.Sprintf("reloadable.List{source: %q, reloadEvery: %s, data: %q}", l.sourceName(), l.opts.interval, l.current())
}

func (l *List) checkIndex(i int) error {
	if i < 0 || i >= len(l.data) {
		return fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, i, len(l.data))
	}
	return nil
}
