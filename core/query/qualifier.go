package query

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// SortKey is one ORDER BY term.
type SortKey struct {
	Field      string
	Descending bool
}

// expression renders the sort term against identifier id.
func (k SortKey) expression(id string) string {
	expr := id + "." + quoteIdentifier(k.Field)
	if k.Field == SortIDField {
		expr = "ID(" + id + ")"
	}
	if k.Descending {
		expr += " DESC"
	}
	return expr
}

// NativeQuery is a caller-supplied statement passed through untouched.
type NativeQuery struct {
	Cypher     string
	Parameters map[string]any
}

// Qualifier holds the non-structural directives of a filter: projection,
// ordering, pagination and the flags read by the dispatch layer.
type Qualifier struct {
	Fields []string
	Sort   []SortKey
	Skip   *int
	Limit  *int
	Count  bool
	Exists bool
	All    bool
	Load   bool
	Native *NativeQuery
	// Ignored lists the qualifier values that were dropped as malformed.
	Ignored []string
}

// ParseQualifier splits f into its qualifier and its structural remainder.
// Malformed qualifier values never fail the parse: they are left out and
// reported in Qualifier.Ignored.
func ParseQualifier(f Filter) (Qualifier, Filter) {
	var q Qualifier
	structural := Filter{}

	for key, value := range f {
		if !IsMetaKey(key) {
			structural[key] = value
		}
	}

	if raw, ok := f[KeyNative]; ok && raw != nil {
		if native, ok := parseNative(raw); ok {
			q.Native = native
			return q, structural
		}
		q.ignore(KeyNative, raw)
	}

	if raw, ok := f[KeyFields]; ok && raw != nil {
		q.Fields = q.parseFields(raw)
	}
	if raw, ok := f[KeySort]; ok && raw != nil {
		q.Sort = q.parseSort(raw)
	}
	q.Skip = q.parseCount(KeySkip, f)
	q.Limit = q.parseCount(KeyLimit, f)
	q.Count = truthy(f[KeyCount])
	q.Exists = truthy(f[KeyExists])
	q.All = truthy(f[KeyAll])
	q.Load = truthy(f[KeyLoad])

	if q.Count || q.Exists {
		q.Fields, q.Sort, q.Skip, q.Limit = nil, nil, nil, nil
	}
	return q, structural
}

func (q *Qualifier) ignore(key string, value any) {
	q.Ignored = append(q.Ignored, fmt.Sprintf("%s=%v", key, value))
}

func (q *Qualifier) parseFields(raw any) []string {
	if list, ok := asList(raw); ok {
		fields := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				fields = append(fields, s)
			} else {
				q.ignore(KeyFields, v)
			}
		}
		return fields
	}
	if m, ok := asMap(raw); ok {
		var fields []string
		for _, name := range slices.Sorted(maps.Keys(m)) {
			if truthy(m[name]) {
				fields = append(fields, name)
			}
		}
		return fields
	}
	if s, ok := raw.(string); ok && s != "" {
		return []string{s}
	}
	q.ignore(KeyFields, raw)
	return nil
}

func (q *Qualifier) parseSort(raw any) []SortKey {
	var keys []SortKey
	if list, ok := asList(raw); ok {
		for _, el := range list {
			m, ok := asMap(el)
			if !ok {
				q.ignore(KeySort, el)
				continue
			}
			keys = append(keys, q.sortPairs(m)...)
		}
		return keys
	}
	if m, ok := asMap(raw); ok {
		return q.sortPairs(m)
	}
	q.ignore(KeySort, raw)
	return nil
}

func (q *Qualifier) sortPairs(m Filter) []SortKey {
	var keys []SortKey
	for _, field := range slices.Sorted(maps.Keys(m)) {
		dir, ok := ToInt(m[field])
		if !ok || field == "" {
			q.ignore(KeySort+"."+field, m[field])
			continue
		}
		keys = append(keys, SortKey{Field: field, Descending: dir < 0})
	}
	return keys
}

func (q *Qualifier) parseCount(key string, f Filter) *int {
	raw, ok := f[key]
	if !ok || raw == nil {
		return nil
	}
	n, ok := ToInt(raw)
	if !ok || n < 0 {
		q.ignore(key, raw)
		return nil
	}
	return &n
}

func parseNative(raw any) (*NativeQuery, bool) {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, false
		}
		return &NativeQuery{Cypher: v, Parameters: map[string]any{}}, true
	}
	if m, ok := asMap(raw); ok {
		cypher, _ := m["cypher"].(string)
		if strings.TrimSpace(cypher) == "" {
			return nil, false
		}
		params, _ := asMap(m["parameters"])
		return &NativeQuery{Cypher: cypher, Parameters: nonNilParams(params)}, true
	}
	if list, ok := asList(raw); ok && len(list) > 0 {
		cypher, _ := list[0].(string)
		if strings.TrimSpace(cypher) == "" {
			return nil, false
		}
		var params Filter
		if len(list) > 1 {
			params, _ = asMap(list[1])
		}
		return &NativeQuery{Cypher: cypher, Parameters: nonNilParams(params)}, true
	}
	return nil, false
}

func nonNilParams(p Filter) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return map[string]any(p)
}

// orderTerm binds a sort key to the identifier it sorts.
type orderTerm struct {
	id  string
	key SortKey
}

// tail is the RETURN-side suffix of a statement: ordering and pagination.
type tail struct {
	order []orderTerm
	skip  *int
	limit *int
}

func (t tail) String() string {
	var b strings.Builder
	if len(t.order) > 0 {
		terms := make([]string, len(t.order))
		for i, term := range t.order {
			terms[i] = term.key.expression(term.id)
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if t.skip != nil {
		fmt.Fprintf(&b, " SKIP %d", *t.skip)
	}
	if t.limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *t.limit)
	}
	return b.String()
}

// nodeTail builds the tail of a single-identifier statement.
func nodeTail(id string, q Qualifier) tail {
	t := tail{skip: q.Skip, limit: q.Limit}
	for _, k := range q.Sort {
		t.order = append(t.order, orderTerm{id: id, key: k})
	}
	return t
}

// relationshipTail merges the edge and destination qualifiers of a traversal.
// Edge skip and limit win over the destination's; edge sort keys come first.
func relationshipTail(edge, dest Qualifier) tail {
	t := tail{skip: dest.Skip, limit: dest.Limit}
	if edge.Skip != nil {
		t.skip = edge.Skip
	}
	if edge.Limit != nil {
		t.limit = edge.Limit
	}
	for _, k := range edge.Sort {
		t.order = append(t.order, orderTerm{id: EdgeIdentifier, key: k})
	}
	for _, k := range dest.Sort {
		t.order = append(t.order, orderTerm{id: DestinationIdentifier, key: k})
	}
	return t
}

// projection renders the RETURN expression for id: the whole entity, or the
// selected fields aliased to their own names.
func projection(id string, q Qualifier) string {
	if len(q.Fields) == 0 {
		return id
	}
	cols := make([]string, len(q.Fields))
	for i, f := range q.Fields {
		cols[i] = fmt.Sprintf("%s.%s AS %s", id, quoteIdentifier(f), quoteIdentifier(f))
	}
	return strings.Join(cols, ", ")
}
