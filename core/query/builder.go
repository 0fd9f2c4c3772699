// Package query provides a fluent API for building filters. The builder only
// produces the untyped Filter understood by the compiler, so anything built
// here can also be written by hand as a map literal.
package query

import (
	"maps"
)

// SortDirection is the direction value stored under sort$.
type SortDirection int

const (
	SortDirectionAsc  SortDirection = 1
	SortDirectionDesc SortDirection = -1
)

// QueryBuilder provides a fluent and intuitive API for building Filter values.
// Pattern fields, predicates, groups, ordering, pagination and projection are
// added step by step and rendered by Build.
type QueryBuilder struct {
	fields     Filter
	conditions []any
	sort       []any
	skip       *int
	limit      *int
	projection []string
	count      bool
	all        bool
	related    map[string]any
}

// NewQueryBuilder creates a new, empty query builder instance.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{fields: Filter{}}
}

// Build returns the constructed Filter. Predicates added through Where and
// WhereGroup are collected under a single "and" group.
func (qb *QueryBuilder) Build() Filter {
	f := Filter{}
	maps.Copy(f, qb.fields)
	if len(qb.conditions) > 0 {
		f[string(ConjunctionAnd)] = append([]any(nil), qb.conditions...)
	}
	if len(qb.sort) > 0 {
		f[KeySort] = append([]any(nil), qb.sort...)
	}
	if qb.skip != nil {
		f[KeySkip] = *qb.skip
	}
	if qb.limit != nil {
		f[KeyLimit] = *qb.limit
	}
	if len(qb.projection) > 0 {
		f[KeyFields] = append([]string(nil), qb.projection...)
	}
	if qb.count {
		f[KeyCount] = true
	}
	if qb.all {
		f[KeyAll] = true
	}
	if qb.related != nil {
		f[KeyRelationship] = maps.Clone(qb.related)
	}
	return f
}

// Clone creates a copy of the current query builder, allowing for the creation
// of new queries based on an existing one without modifying the original.
func (qb *QueryBuilder) Clone() *QueryBuilder {
	c := *qb
	c.fields = maps.Clone(qb.fields)
	c.conditions = append([]any(nil), qb.conditions...)
	c.sort = append([]any(nil), qb.sort...)
	c.projection = append([]string(nil), qb.projection...)
	c.related = maps.Clone(qb.related)
	return &c
}

// Reset clears all configurations from the query builder, returning it to its initial state.
func (qb *QueryBuilder) Reset() *QueryBuilder {
	*qb = QueryBuilder{fields: Filter{}}
	return qb
}

// Match adds a pattern field: an equality that becomes part of the matched
// node's property map rather than a WHERE predicate.
func (qb *QueryBuilder) Match(field string, value any) *QueryBuilder {
	qb.fields[field] = value
	return qb
}

// Where begins the construction of a predicate on a specific field.
func (qb *QueryBuilder) Where(field string) *FilterConditionBuilder {
	return &FilterConditionBuilder{parent: qb, field: field}
}

// WhereGroup begins the construction of a group of predicates combined with
// the given conjunction.
func (qb *QueryBuilder) WhereGroup(conjunction Conjunction) *FilterGroupBuilder {
	return &FilterGroupBuilder{parent: qb, conjunction: conjunction}
}

// FilterConditionBuilder is used to build a single predicate (e.g., field = value).
type FilterConditionBuilder struct {
	parent *QueryBuilder
	field  string
}

// Eq adds an equality condition to the query.
func (fcb *FilterConditionBuilder) Eq(value any) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorEq, value)
}

// Neq adds a not-equal condition to the query.
func (fcb *FilterConditionBuilder) Neq(value any) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorNeq, value)
}

// Lt adds a less-than condition to the query.
func (fcb *FilterConditionBuilder) Lt(value any) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorLt, value)
}

// Lte adds a less-than-or-equal condition to the query.
func (fcb *FilterConditionBuilder) Lte(value any) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorLte, value)
}

// Gt adds a greater-than condition to the query.
func (fcb *FilterConditionBuilder) Gt(value any) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorGt, value)
}

// Gte adds a greater-than-or-equal condition to the query.
func (fcb *FilterConditionBuilder) Gte(value any) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorGte, value)
}

// In adds an "in" condition, checking if a field's value is within a set of values.
func (fcb *FilterConditionBuilder) In(values ...any) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorIn, values)
}

// Nin adds a "not in" condition. Statements using it bind the matched path.
func (fcb *FilterConditionBuilder) Nin(values ...any) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorNotIn, values)
}

// Custom allows for the use of an operator registered in a custom registry.
func (fcb *FilterConditionBuilder) Custom(operator ComparisonOperator, value any) *QueryBuilder {
	return fcb.addCondition(operator, value)
}

func (fcb *FilterConditionBuilder) addCondition(operator ComparisonOperator, value any) *QueryBuilder {
	fcb.parent.conditions = append(fcb.parent.conditions, condition(fcb.field, operator, value))
	return fcb.parent
}

func condition(field string, operator ComparisonOperator, value any) map[string]any {
	return map[string]any{field: map[string]any{string(operator): value}}
}

// FilterGroupBuilder is used to build a group of predicates.
type FilterGroupBuilder struct {
	parent      *QueryBuilder
	outer       *FilterGroupBuilder
	conjunction Conjunction
	conditions  []any
}

// Where adds a new condition to the current filter group.
func (fgb *FilterGroupBuilder) Where(field string) *FilterConditionBuilderInGroup {
	return &FilterConditionBuilderInGroup{groupBuilder: fgb, field: field}
}

// WhereGroup opens a nested group inside the current group. Close it with
// EndGroup to return to the enclosing group.
func (fgb *FilterGroupBuilder) WhereGroup(conjunction Conjunction) *FilterGroupBuilder {
	return &FilterGroupBuilder{parent: fgb.parent, outer: fgb, conjunction: conjunction}
}

// EndGroup closes a nested group and returns to the enclosing one. On a
// top-level group it behaves like End and returns nil.
func (fgb *FilterGroupBuilder) EndGroup() *FilterGroupBuilder {
	if fgb.outer == nil {
		fgb.End()
		return nil
	}
	fgb.outer.conditions = append(fgb.outer.conditions, fgb.render())
	return fgb.outer
}

// End finalizes the current filter group, closing any enclosing groups, and
// returns to the main query builder.
func (fgb *FilterGroupBuilder) End() *QueryBuilder {
	g := fgb
	for g.outer != nil {
		g = g.EndGroup()
	}
	g.parent.conditions = append(g.parent.conditions, g.render())
	return g.parent
}

func (fgb *FilterGroupBuilder) render() map[string]any {
	return map[string]any{string(fgb.conjunction): append([]any(nil), fgb.conditions...)}
}

// FilterConditionBuilderInGroup is used to build a predicate within a group.
type FilterConditionBuilderInGroup struct {
	groupBuilder *FilterGroupBuilder
	field        string
}

// Eq adds an equality condition to the current filter group.
func (fcbg *FilterConditionBuilderInGroup) Eq(value any) *FilterGroupBuilder {
	return fcbg.addConditionToGroup(ComparisonOperatorEq, value)
}

// Neq adds a not-equal condition to the current filter group.
func (fcbg *FilterConditionBuilderInGroup) Neq(value any) *FilterGroupBuilder {
	return fcbg.addConditionToGroup(ComparisonOperatorNeq, value)
}

// Lt adds a less-than condition to the current filter group.
func (fcbg *FilterConditionBuilderInGroup) Lt(value any) *FilterGroupBuilder {
	return fcbg.addConditionToGroup(ComparisonOperatorLt, value)
}

// Lte adds a less-than-or-equal condition to the current filter group.
func (fcbg *FilterConditionBuilderInGroup) Lte(value any) *FilterGroupBuilder {
	return fcbg.addConditionToGroup(ComparisonOperatorLte, value)
}

// Gt adds a greater-than condition to the current filter group.
func (fcbg *FilterConditionBuilderInGroup) Gt(value any) *FilterGroupBuilder {
	return fcbg.addConditionToGroup(ComparisonOperatorGt, value)
}

// Gte adds a greater-than-or-equal condition to the current filter group.
func (fcbg *FilterConditionBuilderInGroup) Gte(value any) *FilterGroupBuilder {
	return fcbg.addConditionToGroup(ComparisonOperatorGte, value)
}

// In adds an "in" condition to the current filter group.
func (fcbg *FilterConditionBuilderInGroup) In(values ...any) *FilterGroupBuilder {
	return fcbg.addConditionToGroup(ComparisonOperatorIn, values)
}

// Nin adds a "not in" condition to the current filter group.
func (fcbg *FilterConditionBuilderInGroup) Nin(values ...any) *FilterGroupBuilder {
	return fcbg.addConditionToGroup(ComparisonOperatorNotIn, values)
}

// Custom allows for custom comparison operators within a filter group.
func (fcbg *FilterConditionBuilderInGroup) Custom(operator ComparisonOperator, value any) *FilterGroupBuilder {
	return fcbg.addConditionToGroup(operator, value)
}

func (fcbg *FilterConditionBuilderInGroup) addConditionToGroup(operator ComparisonOperator, value any) *FilterGroupBuilder {
	g := fcbg.groupBuilder
	g.conditions = append(g.conditions, condition(fcbg.field, operator, value))
	return g
}

// OrderBy adds a sort key to the query. Keys apply in the order they are added.
func (qb *QueryBuilder) OrderBy(field string, direction SortDirection) *QueryBuilder {
	qb.sort = append(qb.sort, map[string]any{field: int(direction)})
	return qb
}

// OrderByAsc adds an ascending sort order for a specific field.
func (qb *QueryBuilder) OrderByAsc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortDirectionAsc)
}

// OrderByDesc adds a descending sort order for a specific field.
func (qb *QueryBuilder) OrderByDesc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortDirectionDesc)
}

// Limit sets the maximum number of records to be returned by the query.
func (qb *QueryBuilder) Limit(limit int) *QueryBuilder {
	qb.limit = &limit
	return qb
}

// Offset sets the number of records to skip.
func (qb *QueryBuilder) Offset(offset int) *QueryBuilder {
	qb.skip = &offset
	return qb
}

// Select restricts the returned values to the given fields.
func (qb *QueryBuilder) Select(fields ...string) *QueryBuilder {
	qb.projection = append(qb.projection, fields...)
	return qb
}

// Count asks for the number of matches instead of the matches themselves.
func (qb *QueryBuilder) Count() *QueryBuilder {
	qb.count = true
	return qb
}

// All makes removals apply to every match instead of the first one.
func (qb *QueryBuilder) All() *QueryBuilder {
	qb.all = true
	return qb
}

// Related describes the relationship a relationship operation works on. data
// holds edge properties, edge predicates or edge qualifiers depending on the
// operation, and may be nil.
func (qb *QueryBuilder) Related(label, relationshipType string, data Filter) *QueryBuilder {
	qb.related = map[string]any{
		RelatedLabelKey:     label,
		RelationshipTypeKey: relationshipType,
	}
	if data != nil {
		qb.related[RelationshipDataKey] = data
	}
	return qb
}
