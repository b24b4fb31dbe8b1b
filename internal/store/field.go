package store

import (
	"bytes"
	"encoding/json"
)

// Field is a JSON field that remembers whether it was present in the
// payload and whether it was an explicit null.
//
//	{}              -> Set=false
//	{"x": null}     -> Set=true, Null=true
//	{"x": "value"}  -> Set=true, Value="value"
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Value returns a Field holding v.
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field holding an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON implements json.Unmarshaler. encoding/json only calls it
// for keys present in the input, so an untouched Field stays unset.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON implements json.Marshaler. Unset and null fields encode as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Changes maps column names to new column values for Update.
// A nil value writes NULL.
type Changes map[string]any
