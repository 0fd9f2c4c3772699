package query

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

func TestCompileCreate(t *testing.T) {
	sc := NewStatementCompiler()
	stmt, err := sc.CompileCreate(schema.NewRecord("foo", schema.Document{
		"name": "x",
		"age":  3,
		"gone": nil,
		"tags": []string{"a"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "CREATE (n:foo {age: {n_age_0}, name: {n_name_1}, tags: {n_tags_2}}) RETURN n", stmt.Text)
	assert.Equal(t, map[string]any{"n_age_0": 3, "n_name_1": "x", "n_tags_2": `~arr~["a"]`}, stmt.Parameters)
	assert.Equal(t, ShapeNode, stmt.Shape)

	empty, err := sc.CompileCreate(schema.NewRecord("foo", nil))
	require.NoError(t, err)
	assert.Equal(t, "CREATE (n:foo) RETURN n", empty.Text)
}

func TestCompileUpdate(t *testing.T) {
	sc := NewStatementCompiler()

	t.Run("nil removes", func(t *testing.T) {
		stmt, err := sc.CompileUpdate(schema.NewRecord("foo", schema.Document{"id": "x1", "a": 1, "b": nil}))
		require.NoError(t, err)
		assert.Equal(t, "MERGE (n:foo {id: {n_id_0}}) SET n.a = {n_a_1} REMOVE n.b RETURN n", stmt.Text)
		assert.Equal(t, map[string]any{"n_id_0": "x1", "n_a_1": 1}, stmt.Parameters)
	})

	t.Run("only changes against prior values", func(t *testing.T) {
		r := schema.NewRecord("foo", schema.Document{"id": "x1", "a": 1, "b": 2, "c": 3, "d": []int{1}})
		r.MarkStored()
		r.Set("a", 5)
		r.Set("b", nil)
		r.Set("d", []int{1})
		delete(r.Data, "c")

		stmt, err := sc.CompileUpdate(r)
		require.NoError(t, err)
		assert.Equal(t, "MERGE (n:foo {id: {n_id_0}}) SET n.a = {n_a_1} REMOVE n.b, n.c RETURN n", stmt.Text)
	})

	t.Run("nothing changed", func(t *testing.T) {
		r := schema.NewRecord("foo", schema.Document{"id": "x1", "a": 1, "gone": nil})
		r.MarkStored()
		stmt, err := sc.CompileUpdate(r)
		require.NoError(t, err)
		assert.Equal(t, "MERGE (n:foo {id: {n_id_0}}) RETURN n", stmt.Text)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := sc.CompileUpdate(schema.NewRecord("foo", schema.Document{"a": 1}))
		assert.True(t, errors.Is(err, ErrMissingIdentity))
	})
}

func TestCompileLoad(t *testing.T) {
	sc := NewStatementCompiler()

	stmt, err := sc.CompileLoad("foo", Filter{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:foo {name: {n_name_0}}) RETURN n ORDER BY ID(n) DESC LIMIT 1", stmt.Text)

	stmt, err = sc.CompileLoad("foo", Filter{"name": "x", "sort$": map[string]any{"age": -1}, "skip$": 2, "limit$": 10, "count$": true})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:foo {name: {n_name_0}}) RETURN n ORDER BY ID(n) DESC LIMIT 1", stmt.Text, "count$ drops the other qualifiers")

	stmt, err = sc.CompileLoad("foo", Filter{"sort$": map[string]any{"age": -1}, "skip$": 2, "limit$": 10})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:foo) RETURN n ORDER BY n.age DESC SKIP 2 LIMIT 1", stmt.Text)

	stmt, err = sc.CompileLoad("foo", Filter{"fields$": []any{"name"}})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:foo) RETURN n.name AS name ORDER BY ID(n) DESC LIMIT 1", stmt.Text)
	assert.Equal(t, ShapeProjection, stmt.Shape)
	assert.Equal(t, []string{"name"}, stmt.Columns)
}

func TestCompileList(t *testing.T) {
	sc := NewStatementCompiler()

	t.Run("count", func(t *testing.T) {
		stmt, err := sc.CompileList("foo", Filter{"count$": true, "name": "x", "sort$": map[string]any{"a": 1}})
		require.NoError(t, err)
		assert.Equal(t, "MATCH (n:foo {name: {n_name_0}}) RETURN COUNT(*)", stmt.Text)
		assert.Equal(t, ShapeCount, stmt.Shape)
		assert.Equal(t, "COUNT(*)", stmt.Returns)
	})

	t.Run("exists", func(t *testing.T) {
		stmt, err := sc.CompileList("foo", Filter{"exists$": true, "name": "x", "limit$": 3})
		require.NoError(t, err)
		assert.Equal(t, "MATCH (n:foo {name: {n_name_0}}) RETURN COUNT(*)", stmt.Text)
		assert.Equal(t, ShapeCount, stmt.Shape)
	})

	t.Run("projection", func(t *testing.T) {
		stmt, err := sc.CompileList("foo", Filter{"fields$": []any{"name", "age"}})
		require.NoError(t, err)
		assert.Equal(t, "MATCH (n:foo) RETURN n.name AS name, n.age AS age", stmt.Text)
		assert.Equal(t, []string{"name", "age"}, stmt.Columns)
	})

	t.Run("ordered sort with malformed pagination", func(t *testing.T) {
		stmt, err := sc.CompileList("foo", Filter{
			"sort$":  []any{map[string]any{"b": 1}, map[string]any{"a": -1}, map[string]any{"c": "up"}},
			"skip$":  "5",
			"limit$": -1,
		})
		require.NoError(t, err)
		assert.Equal(t, "MATCH (n:foo) RETURN n ORDER BY n.b, n.a DESC SKIP 5", stmt.Text)
	})

	t.Run("internal id sort", func(t *testing.T) {
		stmt, err := sc.CompileList("foo", Filter{"sort$": map[string]any{"_id": 1}, "limit$": 3})
		require.NoError(t, err)
		assert.Equal(t, "MATCH (n:foo) RETURN n ORDER BY ID(n) LIMIT 3", stmt.Text)
	})

	t.Run("empty label", func(t *testing.T) {
		stmt, err := sc.CompileList("", Filter{})
		require.NoError(t, err)
		assert.Equal(t, "MATCH (n) RETURN n", stmt.Text)
	})
}

func TestCompileRemove(t *testing.T) {
	sc := NewStatementCompiler()

	stmt, err := sc.CompileRemove("foo", Filter{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:foo {name: {n_name_0}}) WITH n ORDER BY ID(n) DESC LIMIT 1 DETACH DELETE n", stmt.Text)
	assert.Equal(t, ShapeRows, stmt.Shape)

	stmt, err = sc.CompileRemove("foo", Filter{"name": "x", "sort$": map[string]any{"age": 1}})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:foo {name: {n_name_0}}) WITH n ORDER BY n.age LIMIT 1 DETACH DELETE n", stmt.Text)

	stmt, err = sc.CompileRemove("foo", Filter{"name": "x", "all$": true})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:foo {name: {n_name_0}}) DETACH DELETE n", stmt.Text)

	stmt, err = sc.CompileRemove("", Filter{"all$": true})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n) DETACH DELETE n", stmt.Text)
}

func TestCompileNative(t *testing.T) {
	stmt := NewStatementCompiler().CompileNative(NativeQuery{
		Cypher:     "MATCH (n) WHERE n.tags = {tags} RETURN n",
		Parameters: map[string]any{"tags": []string{"a"}},
	})
	assert.Equal(t, "MATCH (n) WHERE n.tags = {tags} RETURN n", stmt.Text)
	assert.Equal(t, map[string]any{"tags": `~arr~["a"]`}, stmt.Parameters)
	assert.Equal(t, ShapeRows, stmt.Shape)
}

func person() *schema.Record {
	return schema.NewRecord("person", schema.Document{"id": "p1"})
}

func relationshipFilter(label string, data map[string]any, extra Filter) Filter {
	desc := map[string]any{RelatedLabelKey: label, RelationshipTypeKey: "LIVES_IN"}
	if data != nil {
		desc[RelationshipDataKey] = data
	}
	f := Filter{KeyRelationship: desc}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

func TestCompileCreateRelationship(t *testing.T) {
	f := relationshipFilter("city", map[string]any{"since": 2010, "note": nil}, Filter{"name": "Paris"})

	stmt, err := NewStatementCompiler().CompileCreateRelationship(person(), f)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (a:person),(b:city) WHERE a.id = {a_id_0} AND b.name = {b_name_1} CREATE UNIQUE (a)-[r:LIVES_IN {since: {r_since_2}}]->(b) RETURN r", stmt.Text)
	assert.Equal(t, map[string]any{"a_id_0": "p1", "b_name_1": "Paris", "r_since_2": 2010}, stmt.Parameters)
	assert.Equal(t, ShapeEdge, stmt.Shape)
	assert.Equal(t, EdgeIdentifier, stmt.Returns)

	stmt, err = NewStatementCompiler(WithUniqueEdgeClause(UniqueEdgeMerge), WithPlaceholderStyle(PlaceholderDollar)).
		CompileCreateRelationship(person(), relationshipFilter("city", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "MATCH (a:person),(b:city) WHERE a.id = $a_id_0 MERGE (a)-[r:LIVES_IN]->(b) RETURN r", stmt.Text)
}

func TestCompileCreateRelationship_Errors(t *testing.T) {
	sc := NewStatementCompiler()
	tests := []struct {
		name   string
		filter Filter
		kind   error
	}{
		{"no descriptor", Filter{"name": "x"}, ErrMalformedRelationshipDescriptor},
		{"no label", relationshipFilter("", nil, nil), ErrMalformedRelationshipDescriptor},
		{"no type", Filter{KeyRelationship: map[string]any{RelatedLabelKey: "city"}}, ErrMalformedRelationshipDescriptor},
		{"path operator", relationshipFilter("city", nil, Filter{"name": map[string]any{"notIn": []any{"x"}}}), ErrUnsupportedValueKind},
		{"unknown operator", relationshipFilter("city", nil, Filter{"name": map[string]any{"gt$": 1, "like": "x"}}), ErrUnknownOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sc.CompileCreateRelationship(person(), tt.filter)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestCompileTraverseRelationship(t *testing.T) {
	sc := NewStatementCompiler()

	t.Run("three filters share one parameter table", func(t *testing.T) {
		f := relationshipFilter("city", map[string]any{"since": map[string]any{"greaterOrEqual": 2000}}, Filter{"name": "Paris"})
		stmt, err := sc.CompileTraverseRelationship(person(), f)
		require.NoError(t, err)
		assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} AND b.name = {b_name_1} AND r.since >= {r_since_2} RETURN b", stmt.Text)
		assert.Equal(t, map[string]any{"a_id_0": "p1", "b_name_1": "Paris", "r_since_2": 2000}, stmt.Parameters)
		assert.Equal(t, DestinationIdentifier, stmt.Returns)
	})

	t.Run("edge qualifiers take precedence", func(t *testing.T) {
		f := relationshipFilter("city",
			map[string]any{"skip$": 1, "limit$": 1, "sort$": map[string]any{"since": -1}},
			Filter{"skip$": 5, "limit$": 5, "sort$": map[string]any{"name": 1}},
		)
		stmt, err := sc.CompileTraverseRelationship(person(), f)
		require.NoError(t, err)
		assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} RETURN b ORDER BY r.since DESC, b.name SKIP 1 LIMIT 1", stmt.Text)
	})

	t.Run("destination qualifiers apply alone", func(t *testing.T) {
		f := relationshipFilter("city", nil, Filter{"skip$": 5, "limit$": 5})
		stmt, err := sc.CompileTraverseRelationship(person(), f)
		require.NoError(t, err)
		assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} RETURN b SKIP 5 LIMIT 5", stmt.Text)
	})

	t.Run("count", func(t *testing.T) {
		stmt, err := sc.CompileTraverseRelationship(person(), relationshipFilter("city", nil, Filter{"count$": true}))
		require.NoError(t, err)
		assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} RETURN COUNT(b)", stmt.Text)
		assert.Equal(t, ShapeCount, stmt.Shape)
	})

	t.Run("any destination label", func(t *testing.T) {
		stmt, err := sc.CompileTraverseRelationship(person(), relationshipFilter("", nil, nil))
		require.NoError(t, err)
		assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b) WHERE a.id = {a_id_0} RETURN b", stmt.Text)
	})

	t.Run("path operator on the destination", func(t *testing.T) {
		f := relationshipFilter("city", nil, Filter{"name": map[string]any{"notIn": []any{"x"}}})
		stmt, err := sc.CompileTraverseRelationship(person(), f)
		require.NoError(t, err)
		assert.Equal(t, "MATCH path = (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} AND NONE (x IN nodes(path) WHERE x.name IN [{b_name_1}]) RETURN b", stmt.Text)
	})

	t.Run("path operator on the edge", func(t *testing.T) {
		f := relationshipFilter("city", map[string]any{"kind": map[string]any{"nin$": []any{"x"}}}, nil)
		stmt, err := sc.CompileTraverseRelationship(person(), f)
		require.NoError(t, err)
		assert.Equal(t, "MATCH path = (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} AND NONE (x IN relationships(path) WHERE x.kind IN [{r_kind_1}]) RETURN b", stmt.Text)
	})

	t.Run("source matched by id only", func(t *testing.T) {
		from := schema.NewRecord("person", schema.Document{
			"id":   "p1",
			"name": "Ada",
			"meta": map[string]any{"b": 1, "a": 2},
		})
		stmt, err := sc.CompileTraverseRelationship(from, relationshipFilter("city", nil, nil))
		require.NoError(t, err)
		assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} RETURN b", stmt.Text)
		assert.Equal(t, map[string]any{"a_id_0": "p1"}, stmt.Parameters)
	})

	t.Run("source without id matched by its fields", func(t *testing.T) {
		from := schema.NewRecord("person", schema.Document{"name": "Ada", "age": int64(36), "nick": nil})
		stmt, err := sc.CompileTraverseRelationship(from, relationshipFilter("city", nil, nil))
		require.NoError(t, err)
		assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.age = {a_age_0} AND a.name = {a_name_1} RETURN b", stmt.Text)
	})

	t.Run("exists counts", func(t *testing.T) {
		stmt, err := sc.CompileTraverseRelationship(person(), relationshipFilter("city", nil, Filter{"exists$": true}))
		require.NoError(t, err)
		assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} RETURN COUNT(b)", stmt.Text)
		assert.Equal(t, ShapeCount, stmt.Shape)
	})
}

func TestCompileLoadRelationship(t *testing.T) {
	f := relationshipFilter("city", map[string]any{"limit$": 10}, nil)
	stmt, err := NewStatementCompiler().CompileLoadRelationship(person(), f)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} RETURN b LIMIT 1", stmt.Text)
}

func TestCompileUpdateRelationship(t *testing.T) {
	f := relationshipFilter("city", map[string]any{"since": 2011, "note": nil}, Filter{"name": "Paris"})
	stmt, err := NewStatementCompiler().CompileUpdateRelationship(person(), f)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} AND b.name = {b_name_1} SET r.since = {r_since_2} REMOVE r.note RETURN r", stmt.Text)
	assert.Equal(t, ShapeEdge, stmt.Shape)
}

func TestCompileRemoveRelationship(t *testing.T) {
	sc := NewStatementCompiler()

	stmt, err := sc.CompileRemoveRelationship(person(), relationshipFilter("city", map[string]any{"since": 2010}, nil))
	require.NoError(t, err)
	assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} AND r.since = {r_since_1} WITH r, b LIMIT 1 DELETE r", stmt.Text)

	stmt, err = sc.CompileRemoveRelationship(person(), relationshipFilter("city", nil, Filter{"all$": true}))
	require.NoError(t, err)
	assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} DELETE r", stmt.Text)

	stmt, err = sc.CompileRemoveRelationship(person(), relationshipFilter("city", map[string]any{"all$": true}, nil))
	require.NoError(t, err)
	assert.Equal(t, "MATCH (a:person)-[r:LIVES_IN]->(b:city) WHERE a.id = {a_id_0} DELETE r", stmt.Text)
}

func TestStatement_MarshalJSON(t *testing.T) {
	stmt, err := NewStatementCompiler().CompileList("foo", Filter{"name": "x"})
	require.NoError(t, err)

	b, err := json.Marshal(stmt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"statement":"MATCH (n:foo {name: {n_name_0}}) RETURN n","parameters":{"n_name_0":"x"}}`, string(b))
}
