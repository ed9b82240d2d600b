// Package jsonutil wraps github.com/go-json-experiment/json behind the
// familiar encoding/json surface. All JSON in this codebase (payload files,
// reports, API bodies) goes through here so the encoder can be swapped in
// one place.
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent returns the JSON encoding of v indented with indent.
// The prefix argument is accepted for encoding/json compatibility and
// ignored; the underlying encoder does not support prefixes.
func MarshalIndent(v any, _ string, indent string) ([]byte, error) {
	return json.Marshal(v, jsontext.WithIndent(indent))
}

// MarshalWrite writes the JSON encoding of v to w.
func MarshalWrite(w io.Writer, v any) error {
	return json.MarshalWrite(w, v)
}

// UnmarshalRead parses one JSON value from r into v.
func UnmarshalRead(r io.Reader, v any) error {
	return json.UnmarshalRead(r, v)
}

// Valid reports whether data is a syntactically valid JSON value.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}
