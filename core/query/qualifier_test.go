package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQualifier(t *testing.T) {
	t.Run("splits meta keys from the structural filter", func(t *testing.T) {
		q, rest := ParseQualifier(Filter{
			"name":          "x",
			"sort$":         map[string]any{"b": 1, "a": -1},
			"skip$":         2,
			"limit$":        float64(10),
			"fields$":       map[string]any{"name": true, "secret": false, "age": 1},
			"all$":          true,
			"load$":         true,
			"relationship$": map[string]any{"type": "T"},
		})

		assert.Equal(t, Filter{"name": "x"}, rest)
		assert.Equal(t, []SortKey{{Field: "a", Descending: true}, {Field: "b"}}, q.Sort)
		assert.Equal(t, IntPtr(2), q.Skip)
		assert.Equal(t, IntPtr(10), q.Limit)
		assert.Equal(t, []string{"age", "name"}, q.Fields)
		assert.True(t, q.All)
		assert.True(t, q.Load)
		assert.False(t, q.Count)
		assert.Empty(t, q.Ignored)
	})

	t.Run("malformed values are dropped", func(t *testing.T) {
		q, _ := ParseQualifier(Filter{
			"sort$":   []any{map[string]any{"a": "desc"}, "b", map[string]any{"c": -2}},
			"skip$":   -3,
			"limit$":  "many",
			"fields$": []any{"name", 5},
		})

		assert.Equal(t, []SortKey{{Field: "c", Descending: true}}, q.Sort)
		assert.Nil(t, q.Skip)
		assert.Nil(t, q.Limit)
		assert.Equal(t, []string{"name"}, q.Fields)
		assert.Len(t, q.Ignored, 5)
	})

	t.Run("count suppresses projection and paging", func(t *testing.T) {
		q, _ := ParseQualifier(Filter{"count$": true, "fields$": []any{"a"}, "sort$": map[string]any{"a": 1}, "limit$": 1, "skip$": 1})
		assert.True(t, q.Count)
		assert.Nil(t, q.Fields)
		assert.Nil(t, q.Sort)
		assert.Nil(t, q.Skip)
		assert.Nil(t, q.Limit)
	})

	t.Run("typed directions and large limits", func(t *testing.T) {
		q, _ := ParseQualifier(Filter{
			"sort$":  map[string]any{"x": SortDirectionDesc, "y": SortDirectionAsc},
			"limit$": float64(3000000000),
		})
		assert.Equal(t, []SortKey{{Field: "x", Descending: true}, {Field: "y"}}, q.Sort)
		assert.Equal(t, IntPtr(3000000000), q.Limit)
		assert.Empty(t, q.Ignored)
	})

	t.Run("single field projection", func(t *testing.T) {
		q, _ := ParseQualifier(Filter{"fields$": "name"})
		assert.Equal(t, []string{"name"}, q.Fields)
	})
}

func TestParseQualifier_Native(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		expected *NativeQuery
	}{
		{"string", "MATCH (n) RETURN n", &NativeQuery{Cypher: "MATCH (n) RETURN n", Parameters: map[string]any{}}},
		{
			"object",
			map[string]any{"cypher": "MATCH (n {a: {a}}) RETURN n", "parameters": map[string]any{"a": 1}},
			&NativeQuery{Cypher: "MATCH (n {a: {a}}) RETURN n", Parameters: map[string]any{"a": 1}},
		},
		{
			"pair",
			[]any{"MATCH (n {a: {a}}) RETURN n", map[string]any{"a": 1}},
			&NativeQuery{Cypher: "MATCH (n {a: {a}}) RETURN n", Parameters: map[string]any{"a": 1}},
		},
		{"blank", "  ", nil},
		{"number", 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := ParseQualifier(Filter{KeyNative: tt.raw, "sort$": map[string]any{"a": 1}})
			assert.Equal(t, tt.expected, q.Native)
			if tt.expected != nil {
				assert.Nil(t, q.Sort, "native$ ignores every other qualifier")
			} else {
				assert.NotEmpty(t, q.Ignored)
			}
		})
	}
}

func TestRelationshipTail(t *testing.T) {
	edge := Qualifier{Skip: IntPtr(1), Sort: []SortKey{{Field: "since", Descending: true}}}
	dest := Qualifier{Skip: IntPtr(5), Limit: IntPtr(5), Sort: []SortKey{{Field: "name"}, {Field: SortIDField}}}

	assert.Equal(t, " ORDER BY r.since DESC, b.name, ID(b) SKIP 1 LIMIT 5", relationshipTail(edge, dest).String())
	assert.Equal(t, "", relationshipTail(Qualifier{}, Qualifier{}).String())
}

func TestProjection(t *testing.T) {
	assert.Equal(t, "n", projection("n", Qualifier{}))
	assert.Equal(t, "b.name AS name, b.`full name` AS `full name`", projection("b", Qualifier{Fields: []string{"name", "full name"}}))
}
