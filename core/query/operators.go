package query

import (
	"fmt"
	"strings"
)

// ComparisonOperator names a comparison usable inside an operator bundle.
type ComparisonOperator string

// Standard comparison operators.
const (
	ComparisonOperatorEq    ComparisonOperator = "equal"
	ComparisonOperatorNeq   ComparisonOperator = "notEqual"
	ComparisonOperatorGt    ComparisonOperator = "greaterThan"
	ComparisonOperatorGte   ComparisonOperator = "greaterOrEqual"
	ComparisonOperatorLt    ComparisonOperator = "lessThan"
	ComparisonOperatorLte   ComparisonOperator = "lessOrEqual"
	ComparisonOperatorIn    ComparisonOperator = "in"
	ComparisonOperatorNotIn ComparisonOperator = "notIn"
)

// Binder registers a value in the statement's parameter table and returns the
// placeholder text that refers to it.
type Binder interface {
	Bind(id, field string, value any) string
}

// OperatorFunc renders one comparison fragment. ref is the quoted
// "identifier.field" reference the comparison applies to.
type OperatorFunc func(b Binder, id, field, ref string, value any) (string, error)

// Operator describes a comparison operator and how it renders.
type Operator struct {
	Name    ComparisonOperator
	Aliases []string
	// RequiresPathPattern is set for operators whose fragment refers to the
	// matched path, which forces the enclosing MATCH to bind one.
	RequiresPathPattern bool
	Render              OperatorFunc
}

// OperatorRegistry maps operator names and aliases to operators. It is never
// modified after construction and can be shared between goroutines.
type OperatorRegistry struct {
	ops map[string]Operator
}

// NewOperatorRegistry returns a registry holding the standard operators plus
// any extra ones. Extra operators replace standard ones with the same name.
func NewOperatorRegistry(extra ...Operator) *OperatorRegistry {
	r := &OperatorRegistry{ops: make(map[string]Operator)}
	for _, op := range append(standardOperators(), extra...) {
		r.ops[string(op.Name)] = op
		for _, alias := range op.Aliases {
			r.ops[alias] = op
		}
	}
	return r
}

var defaultRegistry = NewOperatorRegistry()

// DefaultOperatorRegistry returns the shared registry of standard operators.
func DefaultOperatorRegistry() *OperatorRegistry {
	return defaultRegistry
}

// Lookup finds an operator by name or alias.
func (r *OperatorRegistry) Lookup(name string) (Operator, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Has reports whether name is a known operator or alias.
func (r *OperatorRegistry) Has(name string) bool {
	_, ok := r.ops[name]
	return ok
}

func standardOperators() []Operator {
	return []Operator{
		{Name: ComparisonOperatorEq, Aliases: []string{"eq$"}, Render: comparison("=")},
		{Name: ComparisonOperatorNeq, Aliases: []string{"ne$"}, Render: comparison("<>")},
		{Name: ComparisonOperatorGt, Aliases: []string{"gt$"}, Render: comparison(">")},
		{Name: ComparisonOperatorGte, Aliases: []string{"gte$"}, Render: comparison(">=")},
		{Name: ComparisonOperatorLt, Aliases: []string{"lt$"}, Render: comparison("<")},
		{Name: ComparisonOperatorLte, Aliases: []string{"lte$"}, Render: comparison("<=")},
		{Name: ComparisonOperatorIn, Aliases: []string{"in$"}, Render: membership},
		{Name: ComparisonOperatorNotIn, Aliases: []string{"nin$"}, RequiresPathPattern: true, Render: exclusion},
	}
}

func comparison(symbol string) OperatorFunc {
	return func(b Binder, id, field, ref string, value any) (string, error) {
		return fmt.Sprintf("%s %s %s", ref, symbol, b.Bind(id, field, value)), nil
	}
}

func membership(b Binder, id, field, ref string, value any) (string, error) {
	list, err := bindList(b, id, field, string(ComparisonOperatorIn), value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s IN %s", ref, list), nil
}

func exclusion(b Binder, id, field, _ string, value any) (string, error) {
	list, err := bindList(b, id, field, string(ComparisonOperatorNotIn), value)
	if err != nil {
		return "", err
	}
	elements := "nodes"
	if id == EdgeIdentifier {
		elements = "relationships"
	}
	return fmt.Sprintf("NONE (x IN %s(%s) WHERE x.%s IN %s)", elements, PathIdentifier, quoteIdentifier(field), list), nil
}

func bindList(b Binder, id, field, operator string, value any) (string, error) {
	values, ok := asList(value)
	if !ok {
		return "", unsupportedValue(field, operator, value, fmt.Sprintf("expected an array, got %T", value))
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = b.Bind(id, field, v)
	}
	return "[" + strings.Join(placeholders, ", ") + "]", nil
}
