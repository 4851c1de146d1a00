package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Properties is an insertion-ordered string map. The zero value is ready to use.
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties returns an empty property map with room for n keys.
func NewProperties(n int) Properties {
	return Properties{keys: make([]string, 0, n), values: make(map[string]string, n)}
}

// Set stores v under k, overwriting any existing value in place.
func (p *Properties) Set(k, v string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.values[k] = v
}

// Add stores v under k only if k is absent. It reports whether v was stored.
func (p *Properties) Add(k, v string) bool {
	if _, ok := p.values[k]; ok {
		return false
	}
	p.Set(k, v)
	return true
}

// Get returns the value stored under k.
func (p Properties) Get(k string) (string, bool) {
	v, ok := p.values[k]
	return v, ok
}

func (p Properties) Len() int { return len(p.keys) }

// Keys returns the keys in insertion order.
func (p Properties) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Range calls fn for each pair in insertion order until fn returns false.
func (p Properties) Range(fn func(k, v string) bool) {
	for _, k := range p.keys {
		if !fn(k, p.values[k]) {
			return
		}
	}
}

// Map returns an unordered copy.
func (p Properties) Map() map[string]string {
	out := make(map[string]string, len(p.keys))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the map as a JSON object preserving insertion order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of strings, keeping document order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = Properties{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("model: properties must be a JSON object")
	}
	out := NewProperties(0)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		var v string
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out.Set(kt.(string), v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}
