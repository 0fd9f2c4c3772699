package query

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// Shape tells the execution layer how to read the rows of a statement.
type Shape string

const (
	// ShapeNode rows carry one node under Statement.Returns.
	ShapeNode Shape = "node"
	// ShapeEdge rows carry one relationship under Statement.Returns.
	ShapeEdge Shape = "edge"
	// ShapeCount yields a single row holding the count under Statement.Returns.
	ShapeCount Shape = "count"
	// ShapeProjection rows carry the fields named in Statement.Columns.
	ShapeProjection Shape = "projection"
	// ShapeRows rows are passed through as returned.
	ShapeRows Shape = "rows"
)

// Statement is a compiled, parameterized Cypher statement. It marshals to the
// statement object of the transactional HTTP endpoint.
type Statement struct {
	Text       string         `json:"statement"`
	Parameters map[string]any `json:"parameters"`

	Returns string   `json:"-"`
	Shape   Shape    `json:"-"`
	Columns []string `json:"-"`
}

// UniqueEdgeClause is the clause used to create an edge only when it does not
// exist yet.
type UniqueEdgeClause string

const (
	UniqueEdgeCreateUnique UniqueEdgeClause = "CREATE UNIQUE"
	UniqueEdgeMerge        UniqueEdgeClause = "MERGE"
)

// StatementCompiler is the Compiler for Neo4j. It holds configuration only and
// is safe for concurrent use.
type StatementCompiler struct {
	registry   *OperatorRegistry
	codec      schema.ValueCodec
	style      PlaceholderStyle
	uniqueEdge UniqueEdgeClause
	logger     *zap.Logger
}

// Option configures a StatementCompiler.
type Option func(*StatementCompiler)

// WithPlaceholderStyle selects how parameters are referenced.
func WithPlaceholderStyle(style PlaceholderStyle) Option {
	return func(sc *StatementCompiler) {
		if style != "" {
			sc.style = style
		}
	}
}

// WithUniqueEdgeClause selects the clause used by CompileCreateRelationship.
func WithUniqueEdgeClause(clause UniqueEdgeClause) Option {
	return func(sc *StatementCompiler) {
		if clause != "" {
			sc.uniqueEdge = clause
		}
	}
}

// WithCodec sets the codec used to encode parameter values.
func WithCodec(codec schema.ValueCodec) Option {
	return func(sc *StatementCompiler) {
		sc.codec = codec
	}
}

// WithLogger sets the logger compiled statements are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(sc *StatementCompiler) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// WithRegistry replaces the operator registry.
func WithRegistry(registry *OperatorRegistry) Option {
	return func(sc *StatementCompiler) {
		if registry != nil {
			sc.registry = registry
		}
	}
}

// NewStatementCompiler creates a compiler using braces placeholders and
// CREATE UNIQUE unless configured otherwise.
func NewStatementCompiler(opts ...Option) *StatementCompiler {
	sc := &StatementCompiler{
		registry:   DefaultOperatorRegistry(),
		style:      PlaceholderBraces,
		uniqueEdge: UniqueEdgeCreateUnique,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// ParseQualifier parses the qualifier of f and reports dropped values.
func (sc *StatementCompiler) ParseQualifier(op string, f Filter) (Qualifier, Filter) {
	q, structural := ParseQualifier(f)
	if len(q.Ignored) > 0 {
		sc.logger.Debug("Ignoring malformed qualifier values",
			zap.String("operation", op),
			zap.Strings("values", q.Ignored),
		)
	}
	return q, structural
}

func (sc *StatementCompiler) begin() *compilation {
	return newCompilation(sc.registry, sc.codec, sc.style)
}

func (sc *StatementCompiler) finish(op string, c *compilation, text string, shape Shape, returns string, columns []string) Statement {
	sc.logger.Debug("Compiled statement",
		zap.String("operation", op),
		zap.String("statement", text),
		zap.Any("params", c.params),
	)
	return Statement{
		Text:       text,
		Parameters: c.params,
		Returns:    returns,
		Shape:      shape,
		Columns:    columns,
	}
}

// CompileCreate implements Compiler.
func (sc *StatementCompiler) CompileCreate(entity schema.Entity) (Statement, error) {
	c := sc.begin()
	st := &clauseState{id: NodeIdentifier}
	for _, field := range sortedFields(entity) {
		value := entity.Get(field)
		if value == nil {
			continue
		}
		st.fields = append(st.fields, fmt.Sprintf("%s: %s", quoteIdentifier(field), c.Bind(st.id, field, value)))
	}

	text := fmt.Sprintf("CREATE (%s%s%s) RETURN %s",
		NodeIdentifier, labelSegment(entity.Label()), st.fieldsText(), NodeIdentifier)
	return sc.finish("create", c, text, ShapeNode, NodeIdentifier, nil), nil
}

// CompileUpdate implements Compiler.
func (sc *StatementCompiler) CompileUpdate(entity schema.Entity) (Statement, error) {
	id := entity.Get(schema.IDField)
	if id == nil {
		return Statement{}, missingIdentity(schema.IDField, entity.Label())
	}

	c := sc.begin()
	idRef := c.Bind(NodeIdentifier, schema.IDField, id)
	prior := entity.Prior()
	current := make(map[string]struct{})
	removed := make(map[string]struct{})
	var sets []string

	for _, field := range sortedFields(entity) {
		current[field] = struct{}{}
		if field == schema.IDField {
			continue
		}
		value := entity.Get(field)
		if value == nil {
			if prior == nil || prior[field] != nil {
				removed[field] = struct{}{}
			}
			continue
		}
		if prev, ok := prior[field]; ok && reflect.DeepEqual(sc.codec.Encode(prev), sc.codec.Encode(value)) {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s.%s = %s", NodeIdentifier, quoteIdentifier(field), c.Bind(NodeIdentifier, field, value)))
	}
	for field, prev := range prior {
		if _, ok := current[field]; !ok && field != schema.IDField && prev != nil {
			removed[field] = struct{}{}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE (%s%s {%s: %s})", NodeIdentifier, labelSegment(entity.Label()), quoteIdentifier(schema.IDField), idRef)
	if len(sets) > 0 {
		b.WriteString(" SET " + strings.Join(sets, ", "))
	}
	if len(removed) > 0 {
		refs := make([]string, 0, len(removed))
		for _, field := range slices.Sorted(maps.Keys(removed)) {
			refs = append(refs, NodeIdentifier+"."+quoteIdentifier(field))
		}
		b.WriteString(" REMOVE " + strings.Join(refs, ", "))
	}
	b.WriteString(" RETURN " + NodeIdentifier)
	return sc.finish("update", c, b.String(), ShapeNode, NodeIdentifier, nil), nil
}

// CompileLoad implements Compiler.
func (sc *StatementCompiler) CompileLoad(label string, filter Filter) (Statement, error) {
	c, q, match, err := sc.nodeMatch("load", label, filter)
	if err != nil {
		return Statement{}, err
	}
	q.Count, q.Exists = false, false
	q.Limit = IntPtr(1)
	if len(q.Sort) == 0 {
		q.Sort = []SortKey{{Field: SortIDField, Descending: true}}
	}
	text := match + " RETURN " + projection(NodeIdentifier, q) + nodeTail(NodeIdentifier, q).String()
	shape, returns := nodeShape(q)
	return sc.finish("load", c, text, shape, returns, q.Fields), nil
}

// CompileList implements Compiler.
func (sc *StatementCompiler) CompileList(label string, filter Filter) (Statement, error) {
	c, q, match, err := sc.nodeMatch("list", label, filter)
	if err != nil {
		return Statement{}, err
	}
	if q.Count || q.Exists {
		text := match + " RETURN " + countAll
		return sc.finish("list", c, text, ShapeCount, countAll, nil), nil
	}
	text := match + " RETURN " + projection(NodeIdentifier, q) + nodeTail(NodeIdentifier, q).String()
	shape, returns := nodeShape(q)
	return sc.finish("list", c, text, shape, returns, q.Fields), nil
}

// CompileRemove implements Compiler.
func (sc *StatementCompiler) CompileRemove(label string, filter Filter) (Statement, error) {
	c, q, match, err := sc.nodeMatch("remove", label, filter)
	if err != nil {
		return Statement{}, err
	}
	if !q.All {
		q.Limit = IntPtr(1)
		if len(q.Sort) == 0 {
			q.Sort = []SortKey{{Field: SortIDField, Descending: true}}
		}
	}
	t := nodeTail(NodeIdentifier, q)
	text := match
	if suffix := t.String(); suffix != "" {
		text += " WITH " + NodeIdentifier + suffix
	}
	text += " DETACH DELETE " + NodeIdentifier
	return sc.finish("remove", c, text, ShapeRows, "", nil), nil
}

// CompileNative wraps a caller-supplied statement. Parameter values are
// encoded like any other value.
func (sc *StatementCompiler) CompileNative(native NativeQuery) Statement {
	c := sc.begin()
	for name, value := range native.Parameters {
		c.params[name] = sc.codec.Encode(value)
	}
	return sc.finish("native", c, native.Cypher, ShapeRows, "", nil)
}

// CompileCreateRelationship implements Compiler.
func (sc *StatementCompiler) CompileCreateRelationship(from schema.Entity, filter Filter) (Statement, error) {
	const op = "createRelationship"
	rel, err := sc.relationship(op, from, filter, true)
	if err != nil {
		return Statement{}, err
	}

	st := &clauseState{id: EdgeIdentifier}
	for _, field := range slices.Sorted(maps.Keys(rel.edgeFilter)) {
		value := rel.edgeFilter[field]
		if value == nil {
			continue
		}
		st.fields = append(st.fields, fmt.Sprintf("%s: %s", quoteIdentifier(field), rel.c.Bind(st.id, field, value)))
	}
	if rel.c.requiresPathPattern {
		return Statement{}, unsupportedValue("", string(ComparisonOperatorNotIn), nil, "cannot be used while creating a relationship")
	}

	text := fmt.Sprintf("MATCH (%s%s),(%s%s)%s %s (%s)-[%s%s%s]->(%s) RETURN %s",
		SourceIdentifier, labelSegment(from.Label()),
		DestinationIdentifier, labelSegment(rel.desc.Label),
		whereClause(rel.source, rel.destination.where),
		sc.uniqueEdge,
		SourceIdentifier, EdgeIdentifier, labelSegment(rel.desc.Type), st.fieldsText(), DestinationIdentifier,
		EdgeIdentifier,
	)
	return sc.finish(op, rel.c, text, ShapeEdge, EdgeIdentifier, nil), nil
}

// CompileTraverseRelationship implements Compiler.
func (sc *StatementCompiler) CompileTraverseRelationship(from schema.Entity, filter Filter) (Statement, error) {
	return sc.traverse("traverseRelationship", from, filter, false)
}

// CompileLoadRelationship implements Compiler.
func (sc *StatementCompiler) CompileLoadRelationship(from schema.Entity, filter Filter) (Statement, error) {
	return sc.traverse("loadRelationship", from, filter, true)
}

func (sc *StatementCompiler) traverse(op string, from schema.Entity, filter Filter, single bool) (Statement, error) {
	rel, err := sc.relationship(op, from, filter, false)
	if err != nil {
		return Statement{}, err
	}
	edge, err := rel.c.compileConditions(EdgeIdentifier, rel.edgeFilter)
	if err != nil {
		return Statement{}, err
	}

	text := rel.match(from) + whereClause(rel.source, rel.destination.where, edge.where)
	if rel.edgeQ.Count || rel.destQ.Count || rel.edgeQ.Exists || rel.destQ.Exists {
		count := "COUNT(" + DestinationIdentifier + ")"
		return sc.finish(op, rel.c, text+" RETURN "+count, ShapeCount, count, nil), nil
	}

	t := relationshipTail(rel.edgeQ, rel.destQ)
	if single {
		t.limit = IntPtr(1)
	}
	text += " RETURN " + projection(DestinationIdentifier, rel.destQ) + t.String()
	shape, returns := ShapeNode, DestinationIdentifier
	if len(rel.destQ.Fields) > 0 {
		shape, returns = ShapeProjection, ""
	}
	return sc.finish(op, rel.c, text, shape, returns, rel.destQ.Fields), nil
}

// CompileUpdateRelationship implements Compiler.
func (sc *StatementCompiler) CompileUpdateRelationship(from schema.Entity, filter Filter) (Statement, error) {
	const op = "updateRelationship"
	rel, err := sc.relationship(op, from, filter, false)
	if err != nil {
		return Statement{}, err
	}

	var sets, removes []string
	for _, field := range slices.Sorted(maps.Keys(rel.edgeFilter)) {
		ref := EdgeIdentifier + "." + quoteIdentifier(field)
		value := rel.edgeFilter[field]
		if value == nil {
			removes = append(removes, ref)
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", ref, rel.c.Bind(EdgeIdentifier, field, value)))
	}

	text := rel.match(from) + whereClause(rel.source, rel.destination.where)
	if len(sets) > 0 {
		text += " SET " + strings.Join(sets, ", ")
	}
	if len(removes) > 0 {
		text += " REMOVE " + strings.Join(removes, ", ")
	}
	text += " RETURN " + EdgeIdentifier
	return sc.finish(op, rel.c, text, ShapeEdge, EdgeIdentifier, nil), nil
}

// CompileRemoveRelationship implements Compiler.
func (sc *StatementCompiler) CompileRemoveRelationship(from schema.Entity, filter Filter) (Statement, error) {
	const op = "removeRelationship"
	rel, err := sc.relationship(op, from, filter, false)
	if err != nil {
		return Statement{}, err
	}
	edge, err := rel.c.compileConditions(EdgeIdentifier, rel.edgeFilter)
	if err != nil {
		return Statement{}, err
	}

	text := rel.match(from) + whereClause(rel.source, rel.destination.where, edge.where)
	t := relationshipTail(rel.edgeQ, rel.destQ)
	if !rel.edgeQ.All && !rel.destQ.All {
		t.limit = IntPtr(1)
	}
	if suffix := t.String(); suffix != "" {
		text += " WITH " + EdgeIdentifier + ", " + DestinationIdentifier + suffix
	}
	text += " DELETE " + EdgeIdentifier
	return sc.finish(op, rel.c, text, ShapeRows, "", nil), nil
}

const countAll = "COUNT(*)"

func (sc *StatementCompiler) nodeMatch(op, label string, filter Filter) (*compilation, Qualifier, string, error) {
	q, structural := sc.ParseQualifier(op, filter)
	c := sc.begin()
	st, err := c.compileFilter(NodeIdentifier, structural)
	if err != nil {
		return nil, q, "", err
	}
	pattern := fmt.Sprintf("(%s%s%s)", NodeIdentifier, labelSegment(label), st.fieldsText())
	return c, q, matchKeyword(c) + pattern + whereClause(st.where), nil
}

// relationshipParts is what every relationship statement shares: the parsed
// descriptor, both qualifiers, and the compiled source and destination
// predicates.
type relationshipParts struct {
	c           *compilation
	desc        RelationshipDescriptor
	edgeQ       Qualifier
	destQ       Qualifier
	edgeFilter  Filter
	source      []string
	destination *clauseState
}

func (sc *StatementCompiler) relationship(op string, from schema.Entity, filter Filter, requireLabel bool) (*relationshipParts, error) {
	desc, ok, err := filter.Relationship()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, malformed("missing " + KeyRelationship)
	}
	if desc.Type == "" {
		return nil, malformed("relationship type is required")
	}
	if requireLabel && desc.Label == "" {
		return nil, malformed(RelatedLabelKey + " is required")
	}

	destQ, destFilter := sc.ParseQualifier(op, filter)
	edgeQ, edgeFilter := sc.ParseQualifier(op, desc.Data)

	c := sc.begin()
	source := c.equalities(SourceIdentifier, identity(from))
	destination, err := c.compileConditions(DestinationIdentifier, destFilter)
	if err != nil {
		return nil, err
	}
	return &relationshipParts{
		c:           c,
		desc:        desc,
		edgeQ:       edgeQ,
		destQ:       destQ,
		edgeFilter:  edgeFilter,
		source:      source,
		destination: destination,
	}, nil
}

// match renders the traversal pattern. It must be called after every filter
// of the statement has been compiled.
func (p *relationshipParts) match(from schema.Entity) string {
	return matchKeyword(p.c) + fmt.Sprintf("(%s%s)-[%s%s]->(%s%s)",
		SourceIdentifier, labelSegment(from.Label()),
		EdgeIdentifier, labelSegment(p.desc.Type),
		DestinationIdentifier, labelSegment(p.desc.Label),
	)
}

// equalities renders one equality predicate per document field.
func (c *compilation) equalities(id string, doc schema.Document) []string {
	parts := make([]string, 0, len(doc))
	for _, field := range slices.Sorted(maps.Keys(doc)) {
		parts = append(parts, fmt.Sprintf("%s.%s = %s", id, quoteIdentifier(field), c.Bind(id, field, doc[field])))
	}
	return parts
}

// identity returns the fields that pick out the source node: its id when it
// has one, every non-nil field otherwise.
func identity(e schema.Entity) schema.Document {
	if id := e.Get(schema.IDField); id != nil {
		return schema.Document{schema.IDField: id}
	}
	return schema.EntityDocument(e)
}

func matchKeyword(c *compilation) string {
	if c.requiresPathPattern {
		return "MATCH " + PathIdentifier + " = "
	}
	return "MATCH "
}

func whereClause(groups ...[]string) string {
	var parts []string
	for _, g := range groups {
		parts = append(parts, g...)
	}
	if len(parts) == 0 {
		return ""
	}
	return " WHERE " + joinParts(parts, ConjunctionAnd)
}

func labelSegment(label string) string {
	if label == "" {
		return ""
	}
	return ":" + quoteIdentifier(label)
}

func nodeShape(q Qualifier) (Shape, string) {
	if len(q.Fields) > 0 {
		return ShapeProjection, ""
	}
	return ShapeNode, NodeIdentifier
}

func sortedFields(e schema.Entity) []string {
	fields := slices.Clone(e.Fields())
	slices.Sort(fields)
	return fields
}
