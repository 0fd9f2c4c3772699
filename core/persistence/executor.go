package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/asaidimu/go-anansi-neo4j/core/query"
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// Executor runs compiled statements through a GraphInteractor and turns the
// raw rows back into entity values according to the statement's shape.
type Executor struct {
	interactor GraphInteractor
	codec      schema.ValueCodec
	logger     *zap.Logger
}

func NewExecutor(interactor GraphInteractor, codec schema.ValueCodec, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		interactor: interactor,
		codec:      codec,
		logger:     logger,
	}
}

// Rows executes stmt and returns its rows with every value decoded.
func (e *Executor) Rows(ctx context.Context, stmt query.Statement) ([]schema.Row, error) {
	raw, err := e.interactor.Execute(ctx, stmt)
	if err != nil {
		e.logger.Error("Statement execution failed",
			zap.String("statement", stmt.Text),
			zap.Any("params", stmt.Parameters),
			zap.Error(err),
		)
		return nil, err
	}
	e.logger.Debug("Fetched rows from graph", zap.Int("count", len(raw)))

	rows := make([]schema.Row, len(raw))
	for i, r := range raw {
		row := make(schema.Row, len(r))
		for col, v := range r {
			row[col] = e.decodeValue(v)
		}
		rows[i] = row
	}
	return rows, nil
}

// Records executes a node, edge or projection statement and returns one
// record per row, labelled with label and marked as stored.
func (e *Executor) Records(ctx context.Context, label string, stmt query.Statement) ([]*schema.Record, error) {
	rows, err := e.Rows(ctx, stmt)
	if err != nil {
		return nil, err
	}

	records := make([]*schema.Record, 0, len(rows))
	for _, row := range rows {
		doc, err := documentFromRow(stmt, row)
		if err != nil {
			return nil, err
		}
		r := schema.NewRecord(label, doc)
		r.MarkStored()
		records = append(records, r)
	}
	return records, nil
}

// Count executes a count statement.
func (e *Executor) Count(ctx context.Context, stmt query.Statement) (int64, error) {
	if stmt.Shape != query.ShapeCount {
		return 0, fmt.Errorf("statement does not count: shape %q", stmt.Shape)
	}
	rows, err := e.interactor.Execute(ctx, stmt)
	if err != nil {
		e.logger.Error("Count execution failed", zap.String("statement", stmt.Text), zap.Error(err))
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, ok := toInt64(rows[0][stmt.Returns])
	if !ok {
		return 0, fmt.Errorf("unexpected count value %v (%T)", rows[0][stmt.Returns], rows[0][stmt.Returns])
	}
	return n, nil
}

func (e *Executor) decodeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return e.codec.DecodeDocument(val)
	case schema.Document:
		return e.codec.DecodeDocument(val)
	default:
		return e.codec.Decode(v)
	}
}

func documentFromRow(stmt query.Statement, row schema.Row) (schema.Document, error) {
	switch stmt.Shape {
	case query.ShapeNode, query.ShapeEdge:
		v, ok := row[stmt.Returns]
		if !ok || v == nil {
			return nil, fmt.Errorf("row has no %q column", stmt.Returns)
		}
		doc, ok := v.(schema.Document)
		if !ok {
			return nil, fmt.Errorf("column %q holds %T, not an entity", stmt.Returns, v)
		}
		return doc, nil
	case query.ShapeProjection:
		doc := make(schema.Document, len(stmt.Columns))
		for _, col := range stmt.Columns {
			doc[col] = row[col]
		}
		return doc, nil
	default:
		return rowDocument(row), nil
	}
}

// rowDocument reads a free-form row as an entity: a single entity column is
// unwrapped, anything else is taken column by column.
func rowDocument(row schema.Row) schema.Document {
	if len(row) == 1 {
		for _, v := range row {
			if doc, ok := v.(schema.Document); ok {
				return doc
			}
		}
	}
	return schema.Document(row)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
