package sentifolio

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// jsonObjectWriter builds a JSON object whose keys keep the order of the
// calls, so that persisted records and CLI outputs stay stable and readable.
// Its zero value is an empty object.
type jsonObjectWriter struct {
	buf bytes.Buffer
	err error
}

// Append adds key with the JSON encoding of value.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	data, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("cannot marshal %q: %w", key, err)
		return w
	}
	w.comma()
	k, _ := json.Marshal(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(data)
	return w
}

// AppendIf adds key only when ok.
func (w *jsonObjectWriter) AppendIf(ok bool, key string, value any) *jsonObjectWriter {
	if !ok {
		return w
	}
	return w.Append(key, value)
}

// EmbedFrom marshals v, which must encode as an object, and merges its fields.
func (w *jsonObjectWriter) EmbedFrom(v any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	data, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("cannot marshal embedded %T: %w", v, err)
		return w
	}
	data = bytes.TrimSpace(data)
	if len(data) < 2 || data[0] != '{' || data[len(data)-1] != '}' {
		w.err = fmt.Errorf("cannot embed %T: not a JSON object", v)
		return w
	}
	if fields := bytes.TrimSpace(data[1 : len(data)-1]); len(fields) > 0 {
		w.comma()
		w.buf.Write(fields)
	}
	return w
}

func (w *jsonObjectWriter) comma() {
	if w.buf.Len() > 0 {
		w.buf.WriteByte(',')
	}
}

// MarshalJSON returns the object built so far, or the first error met.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	out := make([]byte, 0, w.buf.Len()+2)
	out = append(out, '{')
	out = append(out, w.buf.Bytes()...)
	return append(out, '}'), nil
}
