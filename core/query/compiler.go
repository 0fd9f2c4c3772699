package query

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// Identifiers bound in compiled statements.
const (
	NodeIdentifier        = "n"
	SourceIdentifier      = "a"
	EdgeIdentifier        = "r"
	DestinationIdentifier = "b"
	PathIdentifier        = "path"
)

// PlaceholderStyle selects how parameters are referenced in statement text.
type PlaceholderStyle string

const (
	// PlaceholderBraces renders {name}, understood by Neo4j 3.x.
	PlaceholderBraces PlaceholderStyle = "braces"
	// PlaceholderDollar renders $name, required from Neo4j 4.0 on.
	PlaceholderDollar PlaceholderStyle = "dollar"
)

// Format renders a reference to the named parameter.
func (s PlaceholderStyle) Format(name string) string {
	if s == PlaceholderDollar {
		return "$" + name
	}
	return "{" + name + "}"
}

// compilation is the state shared by every filter compiled into one statement:
// the parameter table, the placeholder counter and whether any fragment needs
// the matched path to be bound.
type compilation struct {
	registry            *OperatorRegistry
	codec               schema.ValueCodec
	style               PlaceholderStyle
	params              map[string]any
	counter             int
	requiresPathPattern bool
}

func newCompilation(registry *OperatorRegistry, codec schema.ValueCodec, style PlaceholderStyle) *compilation {
	return &compilation{
		registry: registry,
		codec:    codec,
		style:    style,
		params:   make(map[string]any),
	}
}

// Bind implements Binder.
func (c *compilation) Bind(id, field string, value any) string {
	name := fmt.Sprintf("%s_%s_%d", id, sanitizePlaceholder(field), c.counter)
	c.counter++
	c.params[name] = c.codec.Encode(value)
	return c.style.Format(name)
}

// clauseState accumulates what one filter contributes for one identifier:
// pattern properties and top-level predicates.
type clauseState struct {
	id     string
	fields []string
	where  []string
}

// fieldsText renders the pattern property map, or "" when there is none.
func (s *clauseState) fieldsText() string {
	if len(s.fields) == 0 {
		return ""
	}
	return " {" + strings.Join(s.fields, ", ") + "}"
}

func (s *clauseState) ref(field string) string {
	return s.id + "." + quoteIdentifier(field)
}

// keyKind is the classification of one filter entry.
type keyKind int

const (
	kindSkip keyKind = iota
	kindBooleanGroup
	kindOperatorBundle
	kindNestedFilter
	kindImplicitOrArray
	kindPlainValue
)

func (c *compilation) classify(key string, value any) (keyKind, Filter, []any) {
	if key == string(ConjunctionAnd) || key == string(ConjunctionOr) {
		return kindBooleanGroup, nil, nil
	}
	if value == nil || IsMetaKey(key) {
		return kindSkip, nil, nil
	}
	if m, ok := asMap(value); ok {
		if len(m) == 0 {
			return kindSkip, nil, nil
		}
		// A single operator key makes the whole object a bundle, so a stray
		// unknown key fails instead of turning into an equality.
		for k := range m {
			if c.registry.Has(k) {
				return kindOperatorBundle, m, nil
			}
		}
		return kindNestedFilter, m, nil
	}
	if l, ok := asList(value); ok {
		return kindImplicitOrArray, nil, l
	}
	return kindPlainValue, nil, nil
}

// compileFilter compiles the structural part of f for identifier id. Top-level
// plain values become pattern properties, everything else becomes predicates.
func (c *compilation) compileFilter(id string, f Filter) (*clauseState, error) {
	st := &clauseState{id: id}
	parts, err := c.object(st, f, ConjunctionAnd, false)
	if err != nil {
		return nil, err
	}
	st.where = parts
	return st, nil
}

// compileConditions compiles f entirely into predicates, as if it were the
// body of an "and" group.
func (c *compilation) compileConditions(id string, f Filter) (*clauseState, error) {
	st := &clauseState{id: id}
	parts, err := c.object(st, f, ConjunctionAnd, true)
	if err != nil {
		return nil, err
	}
	st.where = parts
	return st, nil
}

// object compiles the entries of one filter object. The returned parts are to
// be joined with conj by the caller.
func (c *compilation) object(st *clauseState, obj Filter, conj Conjunction, conditional bool) ([]string, error) {
	var parts []string
	for _, key := range slices.Sorted(maps.Keys(obj)) {
		value := obj[key]
		kind, m, list := c.classify(key, value)

		switch kind {
		case kindSkip:
			continue

		case kindBooleanGroup:
			group := Conjunction(key)
			sub, err := c.node(st, key, value, group)
			if err != nil {
				return nil, err
			}
			parts = append(parts, nest(sub, group, conj)...)

		case kindOperatorBundle:
			frags, err := c.bundle(st, key, m)
			if err != nil {
				return nil, err
			}
			parts = append(parts, nest(frags, ConjunctionAnd, conj)...)

		case kindNestedFilter:
			if !conditional {
				return nil, unknownOperator(key, firstUnknown(c.registry, m))
			}
			sub, err := c.object(st, m, conj, true)
			if err != nil {
				return nil, err
			}
			parts = append(parts, sub...)

		case kindImplicitOrArray:
			alts, err := c.alternatives(st, key, list)
			if err != nil {
				return nil, err
			}
			parts = append(parts, nest(alts, ConjunctionOr, conj)...)

		case kindPlainValue:
			if conditional {
				parts = append(parts, fmt.Sprintf("%s = %s", st.ref(key), c.Bind(st.id, key, value)))
			} else {
				st.fields = append(st.fields, fmt.Sprintf("%s: %s", quoteIdentifier(key), c.Bind(st.id, key, value)))
			}
		}
	}
	return parts, nil
}

// node compiles the value of a boolean-group marker: a list of sub-filters or
// a single sub-filter object, all in conditional mode.
func (c *compilation) node(st *clauseState, marker string, value any, conj Conjunction) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	if m, ok := asMap(value); ok {
		return c.object(st, m, conj, true)
	}
	list, ok := asList(value)
	if !ok {
		return nil, unsupportedValue(marker, "", value, fmt.Sprintf("boolean group expects objects, got %T", value))
	}
	var parts []string
	for _, el := range list {
		sub, err := c.node(st, marker, el, conj)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sub...)
	}
	return parts, nil
}

// bundle renders one fragment per operator of an operator bundle.
func (c *compilation) bundle(st *clauseState, field string, m Filter) ([]string, error) {
	var frags []string
	for _, name := range slices.Sorted(maps.Keys(m)) {
		op, ok := c.registry.Lookup(name)
		if !ok {
			return nil, unknownOperator(field, name)
		}
		if op.RequiresPathPattern {
			c.requiresPathPattern = true
		}
		frag, err := op.Render(c, st.id, field, st.ref(field), m[name])
		if err != nil {
			return nil, err
		}
		frags = append(frags, frag)
	}
	return frags, nil
}

// alternatives compiles the elements of an array bound to a field. Scalars
// become equalities and operator bundles become their fragments.
func (c *compilation) alternatives(st *clauseState, field string, list []any) ([]string, error) {
	var alts []string
	for _, el := range list {
		if el == nil {
			continue
		}
		m, isMap := asMap(el)
		if !isMap {
			if _, isList := asList(el); isList {
				return nil, unsupportedValue(field, "", el, "nested arrays cannot be compared")
			}
			alts = append(alts, fmt.Sprintf("%s = %s", st.ref(field), c.Bind(st.id, field, el)))
			continue
		}
		if len(m) == 0 {
			continue
		}
		if name := firstUnknown(c.registry, m); name != "" {
			return nil, unknownOperator(field, name)
		}
		frags, err := c.bundle(st, field, m)
		if err != nil {
			return nil, err
		}
		alts = append(alts, nest(frags, ConjunctionAnd, ConjunctionOr)...)
	}
	return alts, nil
}

// nest prepares parts joined by inner for splicing into a list joined by
// outer. Same-conjunction parts are spliced flat, others are parenthesised.
func nest(parts []string, inner, outer Conjunction) []string {
	if len(parts) <= 1 || inner == outer {
		return parts
	}
	return []string{"(" + joinParts(parts, inner) + ")"}
}

func joinParts(parts []string, conj Conjunction) string {
	return strings.Join(parts, " "+conj.Keyword()+" ")
}

func firstUnknown(r *OperatorRegistry, m Filter) string {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if !r.Has(k) {
			return k
		}
	}
	return ""
}
