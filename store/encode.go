package store

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Encode serializes a quest's result value to JSON. It is a thin wrapper
// around encoding/json, kept here so the asymmetry with Decode — which
// needs a target type to come back out as anything other than a bag of
// float64/map[string]any — is visible at the call site.
func Encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("store: failed to encode result: %w", err)
	}
	return data, nil
}

// Decode unmarshals data into a fresh value of resultType (the zero value
// registered alongside the quest, e.g. quest.Definition.ResultType) and
// returns it. Without resultType, JSON numbers decode as float64 and
// objects as map[string]any regardless of what the quest actually
// returned; Decode is what lets a caller get back an int, a struct, or a
// slice of structs instead.
func Decode(data []byte, resultType any) (any, error) {
	if resultType == nil {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("store: failed to decode result: %w", err)
		}
		return v, nil
	}

	t := reflect.TypeOf(resultType)
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("store: failed to decode result as %s: %w", t, err)
	}
	return ptr.Elem().Interface(), nil
}
