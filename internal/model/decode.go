package model

import (
	"encoding/json"
	"fmt"
)

// Decode decodes a single object, picking the concrete type from its
// "object" tag.
func Decode(data []byte) (Object, error) {
	var head struct {
		Object Kind `json:"object"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var obj Object
	switch head.Object {
	case KindBlock:
		obj = &Block{}
	case KindPage:
		obj = &Page{}
	case KindDatabase:
		obj = &Database{}
	case KindUser:
		obj = &User{}
	case KindComment:
		obj = &Comment{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedObject, head.Object)
	}

	if err := json.Unmarshal(data, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// DecodeAs decodes a single object and checks that it is of the given kind.
func DecodeAs(data []byte, kind Kind) (Object, error) {
	obj, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if obj.Kind() != kind {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrUnexpectedObject, obj.Kind(), kind)
	}
	return obj, nil
}
