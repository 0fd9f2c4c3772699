package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCodec_Encode(t *testing.T) {
	codec := ValueCodec{}
	wen := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{"nil", nil, nil},
		{"string", "aaa", "aaa"},
		{"int", 11, 11},
		{"float", 33.33, 33.33},
		{"bool", false, false},
		{"time", wen, "2020-02-01T00:00:00.000Z"},
		{"time pointer", &wen, "2020-02-01T00:00:00.000Z"},
		{"array", []int{2, 3}, ArrayTag + "[2,3]"},
		{"object", map[string]any{"a": 1, "b": []int{2}}, ObjectTag + `{"a":1,"b":[2]}`},
		{"raw object", json.RawMessage(`{"d":3}`), ObjectTag + `{"d":3}`},
		{"raw scalar", json.RawMessage(`"x"`), "x"},
		{"struct", struct {
			D int `json:"d"`
		}{3}, ObjectTag + `{"d":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, codec.Encode(tt.input))
		})
	}
}

func TestValueCodec_RoundTrip(t *testing.T) {
	codec := ValueCodec{ParseTimes: true}

	t.Run("object", func(t *testing.T) {
		obj := map[string]any{"a": float64(1), "b": []any{float64(2)}, "c": map[string]any{"d": float64(3)}}
		assert.Equal(t, obj, codec.Decode(codec.Encode(obj)))
	})

	t.Run("array", func(t *testing.T) {
		arr := []any{float64(2), float64(3)}
		assert.Equal(t, arr, codec.Decode(codec.Encode(arr)))
	})

	t.Run("time", func(t *testing.T) {
		wen := time.Date(2020, 2, 1, 10, 30, 0, 123_000_000, time.UTC)
		got, ok := codec.Decode(codec.Encode(wen)).(time.Time)
		require.True(t, ok)
		assert.True(t, wen.Equal(got))
	})

	t.Run("scalars", func(t *testing.T) {
		for _, v := range []any{"aaa", 11, 33.33, true, false} {
			assert.Equal(t, v, codec.Decode(codec.Encode(v)))
		}
	})
}

func TestValueCodec_Decode(t *testing.T) {
	t.Run("strict keeps json-looking strings", func(t *testing.T) {
		codec := ValueCodec{}
		assert.Equal(t, "12", codec.Decode("12"))
		assert.Equal(t, "true", codec.Decode("true"))
		assert.Equal(t, "2020-02-01T00:00:00.000Z", codec.Decode("2020-02-01T00:00:00.000Z"))
	})

	t.Run("loose parses json-looking strings", func(t *testing.T) {
		codec := ValueCodec{LooseDecoding: true}
		assert.Equal(t, float64(12), codec.Decode("12"))
		assert.Equal(t, true, codec.Decode("true"))
		assert.Equal(t, "plain words", codec.Decode("plain words"))
	})

	t.Run("broken tagged value is returned as is", func(t *testing.T) {
		codec := ValueCodec{}
		assert.Equal(t, ObjectTag+"{nope", codec.Decode(ObjectTag+"{nope"))
		assert.Equal(t, ArrayTag+"[1,", codec.Decode(ArrayTag+"[1,"))
	})

	t.Run("non strings pass through", func(t *testing.T) {
		codec := ValueCodec{LooseDecoding: true}
		assert.Equal(t, int64(5), codec.Decode(int64(5)))
		assert.Nil(t, codec.Decode(nil))
	})
}

func TestValueCodec_Documents(t *testing.T) {
	codec := ValueCodec{}
	doc := Document{"tags": []string{"x"}, "name": "n"}
	encoded := codec.EncodeDocument(doc)
	assert.Equal(t, Document{"tags": ArrayTag + `["x"]`, "name": "n"}, encoded)
	assert.Equal(t, Document{"tags": []any{"x"}, "name": "n"}, codec.DecodeDocument(encoded))
}

func TestRecord(t *testing.T) {
	r := NewRecord("foo", Document{"b": 2, "a": 1, "gone": nil})
	assert.Equal(t, "foo", r.Label())
	assert.Equal(t, []string{"a", "b", "gone"}, r.Fields())
	assert.Nil(t, r.Prior())
	assert.Nil(t, r.ID())

	r.Set(IDField, "x1")
	r.MarkStored()
	r.Set("a", 5)
	assert.Equal(t, 1, r.Prior()["a"])
	assert.Equal(t, 5, r.Get("a"))
	assert.Equal(t, Document{"a": 5, "b": 2, IDField: "x1"}, EntityDocument(r))
}
