package persistence

import (
	"context"

	"github.com/asaidimu/go-anansi-neo4j/core/query"
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// GraphInteractor defines the interface for sending compiled statements to the
// graph database. Each call is one atomic request: either the statement runs
// to completion and its rows are returned, or nothing is applied and an error
// describes why.
//
// Rows are keyed by the statement's returned column names. Node and
// relationship columns hold their property maps; scalar columns hold numbers
// (int64 or float64), strings, booleans or lists.
type GraphInteractor interface {
	Execute(ctx context.Context, stmt query.Statement) ([]schema.Row, error)
}

// GraphInteractorFunc adapts an ordinary function to a GraphInteractor.
type GraphInteractorFunc func(ctx context.Context, stmt query.Statement) ([]schema.Row, error)

// Execute calls f(ctx, stmt).
func (f GraphInteractorFunc) Execute(ctx context.Context, stmt query.Statement) ([]schema.Row, error) {
	return f(ctx, stmt)
}
