// Package query defines the filter language accepted by the graph store and
// compiles it into parameterized Cypher. A filter is an untyped, arbitrarily
// nested map: plain keys constrain fields, "and"/"or" keys open boolean groups,
// objects of operator names compare, and keys ending in "$" carry qualifiers
// such as sorting and pagination.
package query

import (
	"fmt"
	"reflect"
)

// Filter is the untyped filter object supplied by callers.
type Filter map[string]any

// Conjunction is a boolean-group marker.
type Conjunction string

// Boolean-group markers.
const (
	ConjunctionAnd Conjunction = "and"
	ConjunctionOr  Conjunction = "or"
)

// Keyword returns the Cypher keyword for the conjunction.
func (c Conjunction) Keyword() string {
	if c == ConjunctionOr {
		return "OR"
	}
	return "AND"
}

// Reserved meta keys. They never take part in structural compilation.
const (
	KeySort         = "sort$"
	KeySkip         = "skip$"
	KeyLimit        = "limit$"
	KeyCount        = "count$"
	KeyExists       = "exists$"
	KeyFields       = "fields$"
	KeyAll          = "all$"
	KeyLoad         = "load$"
	KeyNative       = "native$"
	KeyRelationship = "relationship$"
	KeyID           = "id$"
)

var metaKeys = map[string]struct{}{
	KeySort:         {},
	KeySkip:         {},
	KeyLimit:        {},
	KeyCount:        {},
	KeyExists:       {},
	KeyFields:       {},
	KeyAll:          {},
	KeyLoad:         {},
	KeyNative:       {},
	KeyRelationship: {},
	KeyID:           {},
}

// IsMetaKey reports whether key is a reserved qualifier or descriptor key.
func IsMetaKey(key string) bool {
	_, ok := metaKeys[key]
	return ok
}

// Relationship descriptor keys.
const (
	RelatedLabelKey     = "relatedNodeLabel"
	RelatedLabelKeyAlt  = "relatedModelName"
	RelationshipTypeKey = "type"
	RelationshipDataKey = "data"
)

// SortIDField sorts by the database's internal identifier instead of a stored
// property.
const SortIDField = "_id"

// RelationshipDescriptor is the parsed form of the relationship$ key.
type RelationshipDescriptor struct {
	Label string // destination node label
	Type  string // edge type
	Data  Filter // edge properties, predicates and edge-level qualifiers
}

// Structural returns a copy of the filter without any reserved keys.
func (f Filter) Structural() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		if !IsMetaKey(k) {
			out[k] = v
		}
	}
	return out
}

// Relationship extracts the relationship$ descriptor. A missing descriptor
// yields ok == false; a present but unusable one fails with
// ErrMalformedRelationshipDescriptor.
func (f Filter) Relationship() (desc RelationshipDescriptor, ok bool, err error) {
	raw, present := f[KeyRelationship]
	if !present || raw == nil {
		return desc, false, nil
	}
	m, isMap := asMap(raw)
	if !isMap {
		return desc, true, malformed(fmt.Sprintf("expected an object, got %T", raw))
	}

	label, err := descriptorString(m, RelatedLabelKey)
	if err != nil {
		return desc, true, err
	}
	if label == "" {
		if label, err = descriptorString(m, RelatedLabelKeyAlt); err != nil {
			return desc, true, err
		}
	}
	typ, err := descriptorString(m, RelationshipTypeKey)
	if err != nil {
		return desc, true, err
	}

	desc = RelationshipDescriptor{Label: label, Type: typ, Data: Filter{}}
	if data, present := m[RelationshipDataKey]; present && data != nil {
		dm, isMap := asMap(data)
		if !isMap {
			return desc, true, malformed(fmt.Sprintf("relationship data must be an object, got %T", data))
		}
		desc.Data = dm
	}
	return desc, true, nil
}

func descriptorString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", malformed(fmt.Sprintf("%s must be a string, got %T", key, v))
	}
	return s, nil
}

// asMap returns v as a Filter when it is any string-keyed map.
func asMap(v any) (Filter, bool) {
	switch m := v.(type) {
	case Filter:
		return m, true
	case map[string]any:
		return Filter(m), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(Filter, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// asList returns v as a []any when it is a slice or array other than []byte.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
