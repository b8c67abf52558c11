package entity

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a field was present in a patch, separately from its value.
// An absent field leaves the target unchanged; a present null is reported by IsNull.
type Optional[T any] struct {
	set   bool
	null  bool
	value T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{set: true, value: v} }

// Null returns a present Optional holding an explicit null.
func Null[T any]() Optional[T] { return Optional[T]{set: true, null: true} }

func (o Optional[T]) IsSet() bool  { return o.set }
func (o Optional[T]) IsNull() bool { return o.set && o.null }

// Get returns the value and true when the field is present and non-null.
func (o Optional[T]) Get() (T, bool) {
	if !o.set || o.null {
		var zero T
		return zero, false
	}
	return o.value, true
}

// UnmarshalJSON is only invoked for keys present in the document, which is
// what distinguishes "absent" from "null".
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.null = true
		var zero T
		o.value = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
