package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-anansi-neo4j/core/query"
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

func TestExecutor_Rows(t *testing.T) {
	interactor := GraphInteractorFunc(func(ctx context.Context, stmt query.Statement) ([]schema.Row, error) {
		return []schema.Row{{
			"n":    map[string]any{"born": "1815-12-10T00:00:00.000Z", "tags": `~arr~[1,2]`},
			"name": "Ada",
		}}, nil
	})
	e := NewExecutor(interactor, schema.ValueCodec{ParseTimes: true}, nil)

	rows, err := e.Rows(context.Background(), query.Statement{Text: "MATCH (n) RETURN n, n.name AS name"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada", rows[0]["name"])
	node, ok := rows[0]["n"].(schema.Document)
	require.True(t, ok)
	assert.Equal(t, time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC), node["born"])
	assert.Equal(t, []any{float64(1), float64(2)}, node["tags"])
}

func TestExecutor_Records(t *testing.T) {
	rows := []schema.Row{{"n": map[string]any{"id": "a"}}}
	e := NewExecutor(GraphInteractorFunc(func(context.Context, query.Statement) ([]schema.Row, error) {
		return rows, nil
	}), schema.ValueCodec{}, nil)

	records, err := e.Records(context.Background(), "person", query.Statement{Shape: query.ShapeNode, Returns: "n"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID())
	assert.Equal(t, schema.Document{"id": "a"}, records[0].Prior())

	_, err = e.Records(context.Background(), "person", query.Statement{Shape: query.ShapeNode, Returns: "m"})
	assert.Error(t, err, "missing column")

	rows = []schema.Row{{"n": "not a node"}}
	_, err = e.Records(context.Background(), "person", query.Statement{Shape: query.ShapeNode, Returns: "n"})
	assert.Error(t, err)
}

func TestExecutor_Count(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int64
		wantErr  bool
	}{
		{"int64", int64(7), 7, false},
		{"float64", float64(7), 7, false},
		{"json number", json.Number("7"), 7, false},
		{"fraction", 7.5, 0, true},
		{"string", "7", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecutor(GraphInteractorFunc(func(_ context.Context, stmt query.Statement) ([]schema.Row, error) {
				return []schema.Row{{stmt.Returns: tt.value}}, nil
			}), schema.ValueCodec{}, nil)

			n, err := e.Count(context.Background(), query.Statement{Shape: query.ShapeCount, Returns: "COUNT(*)"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}

	e := NewExecutor(GraphInteractorFunc(func(context.Context, query.Statement) ([]schema.Row, error) {
		return nil, nil
	}), schema.ValueCodec{}, nil)
	_, err := e.Count(context.Background(), query.Statement{Shape: query.ShapeNode})
	assert.Error(t, err)
	n, err := e.Count(context.Background(), query.Statement{Shape: query.ShapeCount})
	require.NoError(t, err)
	assert.Zero(t, n)
}
