// Package query defines the interfaces for generating Cypher statements from
// entities and untyped filters.
package query

import (
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// Compiler defines the interface for turning store operations into
// parameterized Cypher. Implementations perform no I/O: each method returns a
// Statement ready to be handed to a GraphInteractor, or a *CompileError
// describing why the filter could not be compiled.
type Compiler interface {
	// CompileCreate creates a node carrying every non-nil field of the entity.
	CompileCreate(entity schema.Entity) (Statement, error)

	// CompileUpdate merges the node identified by the entity's id and sets the
	// fields that changed since it was last stored. Fields that are nil or
	// were dropped are removed from the node.
	CompileUpdate(entity schema.Entity) (Statement, error)

	// CompileLoad matches at most one node. Without an explicit sort the most
	// recently created node wins.
	CompileLoad(label string, filter Filter) (Statement, error)

	// CompileList matches every node satisfying the filter, or counts them
	// when the filter asks for count$.
	CompileList(label string, filter Filter) (Statement, error)

	// CompileRemove detaches and deletes the first matching node, or all of
	// them when the filter carries all$.
	CompileRemove(label string, filter Filter) (Statement, error)

	// CompileCreateRelationship creates a unique edge from the entity to every
	// node matching the relationship filter.
	CompileCreateRelationship(from schema.Entity, filter Filter) (Statement, error)

	// CompileTraverseRelationship returns the destination nodes reachable from
	// the entity over the described edge.
	CompileTraverseRelationship(from schema.Entity, filter Filter) (Statement, error)

	// CompileLoadRelationship is CompileTraverseRelationship limited to one
	// destination node.
	CompileLoadRelationship(from schema.Entity, filter Filter) (Statement, error)

	// CompileUpdateRelationship sets the relationship data on every matching
	// edge and returns the edges.
	CompileUpdateRelationship(from schema.Entity, filter Filter) (Statement, error)

	// CompileRemoveRelationship deletes the first matching edge, or all of them
	// when all$ is set.
	CompileRemoveRelationship(from schema.Entity, filter Filter) (Statement, error)
}

var _ Compiler = (*StatementCompiler)(nil)
