package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AdditionalData holds role specific extension fields. Values are kept as
// raw JSON so the rest of the code never deals with untyped interfaces;
// callers decode the keys they understand with Get.
type AdditionalData map[string]json.RawMessage

// NewAdditionalData returns a fresh, empty map. Every account gets its own.
func NewAdditionalData() AdditionalData {
	return make(AdditionalData)
}

// Set stores v under key after encoding it as JSON.
func (d AdditionalData) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("additional data %q: %w", key, err)
	}
	d[key] = raw
	return nil
}

// Get decodes the value stored under key into dst. It reports false when
// the key is absent.
func (d AdditionalData) Get(key string, dst any) (bool, error) {
	raw, ok := d[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("additional data %q: %w", key, err)
	}
	return true, nil
}

// Clone returns a deep copy. A nil receiver yields an empty map.
func (d AdditionalData) Clone() AdditionalData {
	out := make(AdditionalData, len(d))
	for k, v := range d {
		out[k] = bytes.Clone(v)
	}
	return out
}

// MarshalJSON renders a nil map as {} rather than null.
func (d AdditionalData) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]json.RawMessage(d))
}

// UnmarshalJSON requires a JSON object; null resets to an empty map.
func (d *AdditionalData) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = NewAdditionalData()
		return nil
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("additional data must be a JSON object: %w", err)
	}
	*d = AdditionalData(m)
	return nil
}
