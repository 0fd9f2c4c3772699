// Package utils converts between Go structs and the Records the store works
// with.
package utils

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// StructToMap converts a Go struct into a map[string]any.
//
// The struct is marshaled to JSON, so `json:"tag"` annotations and
// `omitempty` apply. Nested objects are kept as json.RawMessage, which the
// value codec stores as a tagged JSON property; arrays are left as []any.
//
// The input must be a struct or a pointer to a struct.
//
// Example:
//
//	type Address struct {
//		City string `json:"city"`
//	}
//	type Person struct {
//		ID      string  `json:"id,omitempty"`
//		Address Address `json:"address"`
//	}
//	m, err := StructToMap(Person{Address: Address{City: "Nairobi"}})
//	// m == map[string]any{"address": json.RawMessage(`{"city":"Nairobi"}`)}
func StructToMap[T any](record T) (map[string]any, error) {
	val := reflect.ValueOf(record)
	if !val.IsValid() {
		return nil, fmt.Errorf("input record cannot be nil")
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("input record cannot be a nil pointer to a struct")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("input record must be a struct or a pointer to a struct, got %s", val.Kind())
	}

	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("StructToMap: failed to marshal input record to JSON: %w", err)
	}

	var tempMap map[string]json.RawMessage
	if err := json.Unmarshal(jsonBytes, &tempMap); err != nil {
		return nil, fmt.Errorf("StructToMap: failed to unmarshal JSON to temporary map: %w", err)
	}

	resultMap := make(map[string]any, len(tempMap))
	for key, raw := range tempMap {
		if len(raw) > 0 && raw[0] == '{' {
			resultMap[key] = raw
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("StructToMap: error decoding value for key '%s': %w", key, err)
		}
		resultMap[key] = v
	}
	return resultMap, nil
}

// MapToStruct is the inverse of StructToMap: it converts a map[string]any into
// a new instance of T, which must be a struct or a pointer to a struct.
// Nested values may be maps, json.RawMessage or anything else encoding/json
// can marshal.
func MapToStruct[T any](input map[string]any) (T, error) {
	var zero T
	if input == nil {
		return zero, fmt.Errorf("MapToStruct: input map cannot be nil")
	}

	typ := reflect.TypeOf(zero)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return zero, fmt.Errorf("MapToStruct: generic type T must be a struct type (or pointer to struct), got %s", typ.Kind())
	}

	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("MapToStruct: failed to marshal input map to JSON: %w", err)
	}

	var result T
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return zero, fmt.Errorf("MapToStruct: failed to unmarshal JSON to target struct: %w", err)
	}
	return result, nil
}

// RecordFromStruct builds a record stored under label from a struct.
func RecordFromStruct[T any](label string, v T) (*schema.Record, error) {
	m, err := StructToMap(v)
	if err != nil {
		return nil, err
	}
	return schema.NewRecord(label, m), nil
}

// RecordToStruct decodes a record's current values into T.
func RecordToStruct[T any](r *schema.Record) (T, error) {
	if r == nil {
		var zero T
		return zero, fmt.Errorf("RecordToStruct: record cannot be nil")
	}
	return MapToStruct[T](r.Data)
}
