package db

import "encoding/json"

// Optional distinguishes "field absent from the payload" from "field explicitly
// set to null". A zero Optional means the field was absent and the stored value
// must be left unchanged; Set with a nil Value means the caller asked to clear it.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON is only invoked by encoding/json when the key is present, so
// presence alone flips Set.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
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

// Some returns an Optional carrying v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an Optional that was explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}
