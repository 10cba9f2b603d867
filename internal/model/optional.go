package model

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes three states of a JSON field in a partial update:
// absent (Set is false), explicit null (Set is true, Value nil) and a value.
//
//	{"bio": "hi"}  → Set, Value = &"hi"
//	{"bio": null}  → Set, Value = nil   (clear the field)
//	{}             → not Set            (leave the field alone)
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
