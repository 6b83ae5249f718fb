package reloadable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/iancoleman/orderedmap"
	"gopkg.in/yaml.v3"
)

// JSONDecoder decodes a JSON object keeping the key order of the document.
// Numbers are decoded as float64 and nested objects as orderedmap.OrderedMap values.
// A duplicated key keeps its last value and moves to the position of its last occurrence.
type JSONDecoder struct{}

var _ RecordDecoder = JSONDecoder{}

// DecodeRecord decodes the whole JSON document.
func (JSONDecoder) DecodeRecord(r io.Reader) (*orderedmap.OrderedMap, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		// report the syntax error with its offset
		var v any
		return nil, json.Unmarshal(b, &v)
	}
	if b = bytes.TrimSpace(b); b[0] != '{' {
		return nil, ErrNotObject
	}

	// nested maps inherit the escaping setting while unmarshalling
	m := newRecordMap()
	if err := json.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}

// YAMLDecoder decodes a YAML mapping keeping the key order of the document.
// Nested mappings are decoded as orderedmap.OrderedMap values, sequences as []any,
// and scalars with the yaml.v3 defaults (int, float64, bool, string or nil).
// Merge keys ("<<") are resolved; the merged entries take the position of the merge key.
type YAMLDecoder struct{}

var _ RecordDecoder = YAMLDecoder{}

// DecodeRecord decodes the first YAML document.
func (YAMLDecoder) DecodeRecord(r io.Reader) (*orderedmap.OrderedMap, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotObject
	}

	// yaml.v3 rejects recursive anchors and excessive aliasing only while decoding into values
	if err := doc.Decode(new(any)); err != nil {
		return nil, err
	}

	w := yamlWalker{expanding: map[*yaml.Node]bool{}}
	return w.mapping(doc.Content[0])
}

type yamlWalker struct {
	expanding map[*yaml.Node]bool
}

func (w *yamlWalker) mapping(n *yaml.Node) (*orderedmap.OrderedMap, error) {
	explicit := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; !isMergeKey(k) {
			explicit[k.Value] = true
		}
	}

	m := newRecordMap()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if isMergeKey(k) {
			if err := w.merge(m, explicit, n.Content[i+1]); err != nil {
				return nil, err
			}
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
		}
		v, err := w.value(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		m.Set(k.Value, v)
	}
	return m, nil
}

// merge copies the entries of the merged mappings that are neither defined explicitly nor merged earlier.
func (w *yamlWalker) merge(m *orderedmap.OrderedMap, explicit map[string]bool, n *yaml.Node) error {
	var sources []*yaml.Node
	switch n.Kind {
	case yaml.MappingNode, yaml.AliasNode:
		sources = []*yaml.Node{n}
	case yaml.SequenceNode:
		sources = n.Content
	default:
		return fmt.Errorf("line %d: merge value must be a mapping or a sequence of mappings", n.Line)
	}

	for _, src := range sources {
		v, err := w.value(src)
		if err != nil {
			return err
		}
		merged, ok := v.(orderedmap.OrderedMap)
		if !ok {
			return fmt.Errorf("line %d: merge value must be a mapping or a sequence of mappings", src.Line)
		}
		for _, key := range merged.Keys() {
			if _, exists := m.Get(key); exists || explicit[key] {
				continue
			}
			mv, _ := merged.Get(key)
			m.Set(key, mv)
		}
	}
	return nil
}

func (w *yamlWalker) value(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m, err := w.mapping(n)
		if err != nil {
			return nil, err
		}
		return *m, nil
	case yaml.SequenceNode:
		s := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := w.value(c)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		return s, nil
	case yaml.AliasNode:
		if w.expanding[n.Alias] {
			return nil, fmt.Errorf("line %d: anchor %q contains itself", n.Line, n.Value)
		}
		w.expanding[n.Alias] = true
		defer delete(w.expanding, n.Alias)
		return w.value(n.Alias)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func isMergeKey(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Value == "<<" && n.ShortTag() == "!!merge"
}

// newRecordMap returns an empty map rendering its content without HTML escaping.
func newRecordMap() *orderedmap.OrderedMap {
	m := orderedmap.New()
	m.SetEscapeHTML(false)
	return m
}
