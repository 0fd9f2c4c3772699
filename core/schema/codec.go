package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// Graph properties can only hold primitives and homogeneous lists of
// primitives. Structured values are stored as JSON strings behind a tag so they
// can be told apart from ordinary strings on the way back.
const (
	ObjectTag = "~obj~"
	ArrayTag  = "~arr~"
)

// TimeLayout is the ISO-8601 layout used for encoded times, always in UTC with
// millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ValueCodec converts field values to and from their stored representation.
// The zero value is ready to use and only decodes tagged values.
type ValueCodec struct {
	// LooseDecoding makes Decode try to JSON-parse every untagged string and
	// keep the parsed value on success. Strings such as "12" or "true" come
	// back as a number or a boolean, which is why it is off by default.
	LooseDecoding bool
	// ParseTimes makes Decode turn strings in TimeLayout back into time.Time.
	ParseTimes bool
}

// Encode returns the storage-safe form of v. It never fails: values that cannot
// be serialized are returned unchanged.
func (c ValueCodec) Encode(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case time.Time:
		return val.UTC().Format(TimeLayout)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(TimeLayout)
	case json.RawMessage:
		return encodeRaw(val)
	case []byte:
		return string(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return c.Encode(rv.Elem().Interface())
	case reflect.Map, reflect.Struct:
		return tagged(ObjectTag, v)
	case reflect.Slice, reflect.Array:
		return tagged(ArrayTag, v)
	}
	return v
}

// Decode reverses Encode. It never fails: anything it cannot parse is returned
// as it was given.
func (c ValueCodec) Decode(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch {
	case strings.HasPrefix(s, ObjectTag):
		var obj map[string]any
		if err := json.Unmarshal([]byte(s[len(ObjectTag):]), &obj); err != nil {
			return s
		}
		return obj
	case strings.HasPrefix(s, ArrayTag):
		var arr []any
		if err := json.Unmarshal([]byte(s[len(ArrayTag):]), &arr); err != nil {
			return s
		}
		return arr
	}
	if c.ParseTimes && len(s) == len(TimeLayout)-5 {
		if t, err := time.Parse(TimeLayout, s); err == nil {
			return t
		}
	}
	if c.LooseDecoding {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			return parsed
		}
	}
	return s
}

// EncodeDocument encodes every value of doc into a new Document.
func (c ValueCodec) EncodeDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = c.Encode(v)
	}
	return out
}

// DecodeDocument decodes every value of doc into a new Document.
func (c ValueCodec) DecodeDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = c.Decode(v)
	}
	return out
}

func tagged(tag string, v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	return tag + string(b)
}

func encodeRaw(raw json.RawMessage) any {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(trimmed, "{"):
		return ObjectTag + trimmed
	case strings.HasPrefix(trimmed, "["):
		return ArrayTag + trimmed
	}
	var scalar any
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return string(raw)
	}
	return scalar
}
