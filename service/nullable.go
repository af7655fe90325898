package service

import (
	"bytes"
	"encoding/json"
)

// Nullable is a patch field for a nullable column. It tells an absent key
// (leave the column alone) from an explicit null (clear it).
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Some returns a Nullable holding v.
func Some[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

// Null returns a Nullable that clears the column.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

// IsZero reports an absent key, so omitzero drops it from patches.
func (n Nullable[T]) IsZero() bool { return !n.Set }

// UnmarshalJSON implements json.Unmarshaler. It is only called when the key is present.
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// NullableValue unwraps a Nullable[string] for struct validation; a null or
// absent value validates as empty.
func NullableValue(n Nullable[string]) any {
	if n.Value == nil {
		return nil
	}
	return *n.Value
}
