package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Metadata is an insertion-ordered mapping from a field label to the raw
// values collected under it. The first label appended becomes the first key.
type Metadata struct {
	keys   []string
	values map[string][]string
}

// NewMetadata returns an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string][]string)}
}

// Append adds value to the list held under label, registering label as a
// new key if it has not been seen.
func (m *Metadata) Append(label, value string) {
	if m.values == nil {
		m.values = make(map[string][]string)
	}
	if _, ok := m.values[label]; !ok {
		m.keys = append(m.keys, label)
	}
	m.values[label] = append(m.values[label], value)
}

// appendAll adds vals under label. An empty vals still registers label.
func (m *Metadata) appendAll(label string, vals []string) {
	if m.values == nil {
		m.values = make(map[string][]string)
	}
	if _, ok := m.values[label]; !ok {
		m.keys = append(m.keys, label)
		m.values[label] = []string{}
	}
	m.values[label] = append(m.values[label], vals...)
}

// Get returns a copy of the values held under label, or nil.
func (m *Metadata) Get(label string) []string {
	if m == nil {
		return nil
	}
	vals, ok := m.values[label]
	if !ok {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// Has reports whether label is a key.
func (m *Metadata) Has(label string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[label]
	return ok
}

// Joined returns the values under label joined by single spaces.
func (m *Metadata) Joined(label string) string {
	return JoinValues(m.Get(label))
}

// Keys returns the labels in insertion order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of labels.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns a deep copy.
func (m *Metadata) Clone() *Metadata {
	out := NewMetadata()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.appendAll(k, m.values[k])
	}
	return out
}

// MarshalJSON encodes the mapping as a JSON object, preserving key order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, k, m.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string arrays, preserving key order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	fresh := NewMetadata()
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var vals []string
		if err := json.Unmarshal(raw, &vals); err != nil {
			return eris.Wrapf(err, "model: decode metadata values for %q", key)
		}
		fresh.appendAll(key, vals)
		return nil
	})
	if err != nil {
		return err
	}
	*m = *fresh
	return nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return eris.Wrap(err, "model: encode key")
	}
	v, err := json.Marshal(value)
	if err != nil {
		return eris.Wrapf(err, "model: encode value for %q", key)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// decodeObject walks the members of a JSON object in document order.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "model: read object start")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("model: expected JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "model: read object key")
		}
		key, ok := tok.(string)
		if !ok {
			return eris.New("model: expected string key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return eris.Wrapf(err, "model: read value for %q", key)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "model: read object end")
	}
	return nil
}
