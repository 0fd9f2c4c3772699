package persistence

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/asaidimu/go-events"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/asaidimu/go-anansi-neo4j/core/query"
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// DefaultMaxConcurrency bounds SaveAll when Options.MaxConcurrency is unset.
const DefaultMaxConcurrency = 4

// Options configures a Store.
type Options struct {
	// Codec decodes returned values. It should match the compiler's codec.
	Codec  schema.ValueCodec
	Logger *zap.Logger
	// MaxConcurrency bounds the number of saves SaveAll runs at once.
	MaxConcurrency int
	// NewID generates identifiers for new entities. Defaults to random UUIDs.
	NewID func() string
}

// Store dispatches entity and relationship operations: it compiles each one
// into a statement, executes it through the GraphInteractor and decodes the
// result. Every public operation emits start, success and failed events.
type Store struct {
	compiler       *query.StatementCompiler
	executor       *Executor
	logger         *zap.Logger
	maxConcurrency int
	newID          func() string

	subscriptions map[string]*SubscriptionInfo
	subMu         sync.RWMutex
	bus           *events.TypedEventBus[PersistenceEvent]
}

// NewStore creates a Store. A nil compiler is replaced by one sharing the
// store's codec and logger.
func NewStore(interactor GraphInteractor, compiler *query.StatementCompiler, opts Options) (*Store, error) {
	if interactor == nil {
		return nil, fmt.Errorf("graph interactor is required")
	}

	bus, err := events.NewTypedEventBus[PersistenceEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if compiler == nil {
		compiler = query.NewStatementCompiler(query.WithCodec(opts.Codec), query.WithLogger(logger))
	}
	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	return &Store{
		compiler:       compiler,
		executor:       NewExecutor(interactor, opts.Codec, logger),
		logger:         logger,
		maxConcurrency: limit,
		newID:          newID,
		subscriptions:  make(map[string]*SubscriptionInfo),
		bus:            bus,
	}, nil
}

func (s *Store) save(ctx context.Context, r *schema.Record) (*schema.Record, error) {
	entity := &schema.Record{Name: r.Name, Data: maps.Clone(r.Data), Previous: r.Previous}
	hint := entity.Get(query.KeyID)
	delete(entity.Data, query.KeyID)

	var (
		stmt query.Statement
		err  error
	)
	if entity.ID() == nil {
		id := s.newID()
		if h, ok := hint.(string); ok && h != "" {
			id = h
		}
		entity.Set(schema.IDField, id)
		stmt, err = s.compiler.CompileCreate(entity)
	} else {
		stmt, err = s.compiler.CompileUpdate(entity)
	}
	if err != nil {
		return nil, fmt.Errorf("compile save of %q: %w", entity.Label(), err)
	}

	records, err := s.executor.Records(ctx, entity.Label(), stmt)
	if err != nil {
		return nil, fmt.Errorf("save %q: %w", entity.Label(), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("save %q: no entity returned", entity.Label())
	}
	return records[0], nil
}

func (s *Store) saveAll(ctx context.Context, records []*schema.Record) ([]*schema.Record, error) {
	saved := make([]*schema.Record, len(records))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, r := range records {
		g.Go(func() error {
			out, err := s.save(ctx, r)
			if err != nil {
				return err
			}
			saved[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) load(ctx context.Context, label string, f query.Filter) (*schema.Record, error) {
	q, _ := query.ParseQualifier(f)
	if q.Native != nil {
		records, err := s.native(ctx, label, *q.Native)
		if err != nil || len(records) == 0 {
			return nil, err
		}
		return records[0], nil
	}

	stmt, err := s.compiler.CompileLoad(label, f)
	if err != nil {
		return nil, fmt.Errorf("compile load of %q: %w", label, err)
	}
	records, err := s.executor.Records(ctx, label, stmt)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", label, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (s *Store) list(ctx context.Context, label string, f query.Filter) ([]*schema.Record, error) {
	q, _ := query.ParseQualifier(f)
	if q.Native != nil {
		return s.native(ctx, label, *q.Native)
	}

	f = withoutKey(withoutKey(f, query.KeyCount), query.KeyExists)
	stmt, err := s.compiler.CompileList(label, f)
	if err != nil {
		return nil, fmt.Errorf("compile list of %q: %w", label, err)
	}
	records, err := s.executor.Records(ctx, label, stmt)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", label, err)
	}
	return records, nil
}

func (s *Store) count(ctx context.Context, label string, f query.Filter) (int64, error) {
	counted := maps.Clone(f)
	if counted == nil {
		counted = query.Filter{}
	}
	counted[query.KeyCount] = true
	stmt, err := s.compiler.CompileList(label, counted)
	if err != nil {
		return 0, fmt.Errorf("compile count of %q: %w", label, err)
	}
	n, err := s.executor.Count(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", label, err)
	}
	return n, nil
}

func (s *Store) exists(ctx context.Context, label string, f query.Filter) (bool, error) {
	n, err := s.count(ctx, label, withoutKey(f, query.KeyExists))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// remove deletes matching nodes. With load$ and without all$ the single
// entity about to be removed is loaded first, removed by its id and returned.
func (s *Store) remove(ctx context.Context, label string, f query.Filter) (*schema.Record, error) {
	q, _ := query.ParseQualifier(f)

	var loaded *schema.Record
	if q.Load && !q.All {
		r, err := s.load(ctx, label, withoutKey(f, query.KeyLoad))
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, nil
		}
		loaded = r
		if id := r.ID(); id != nil {
			f = query.Filter{schema.IDField: id}
		}
	}

	stmt, err := s.compiler.CompileRemove(label, f)
	if err != nil {
		return nil, fmt.Errorf("compile remove of %q: %w", label, err)
	}
	if _, err := s.executor.Rows(ctx, stmt); err != nil {
		return nil, fmt.Errorf("remove %q: %w", label, err)
	}
	return loaded, nil
}

func (s *Store) native(ctx context.Context, label string, native query.NativeQuery) ([]*schema.Record, error) {
	records, err := s.executor.Records(ctx, label, s.compiler.CompileNative(native))
	if err != nil {
		return nil, fmt.Errorf("native query: %w", err)
	}
	return records, nil
}

func (s *Store) rows(ctx context.Context, native query.NativeQuery) ([]schema.Row, error) {
	rows, err := s.executor.Rows(ctx, s.compiler.CompileNative(native))
	if err != nil {
		return nil, fmt.Errorf("native query: %w", err)
	}
	return rows, nil
}

func (s *Store) saveRelationship(ctx context.Context, from schema.Entity, f query.Filter) ([]schema.Document, error) {
	stmt, err := s.compiler.CompileCreateRelationship(from, f)
	if err != nil {
		return nil, fmt.Errorf("compile relationship from %q: %w", from.Label(), err)
	}
	return s.edges(ctx, stmt)
}

func (s *Store) loadRelationship(ctx context.Context, from schema.Entity, f query.Filter) (*schema.Record, error) {
	desc, err := descriptor(f)
	if err != nil {
		return nil, err
	}
	stmt, err := s.compiler.CompileLoadRelationship(from, f)
	if err != nil {
		return nil, fmt.Errorf("compile relationship load from %q: %w", from.Label(), err)
	}
	if stmt.Shape == query.ShapeCount {
		return nil, fmt.Errorf("load relationship from %q: count$ requires ListRelationships", from.Label())
	}
	records, err := s.executor.Records(ctx, desc.Label, stmt)
	if err != nil {
		return nil, fmt.Errorf("load relationship from %q: %w", from.Label(), err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (s *Store) listRelationships(ctx context.Context, from schema.Entity, f query.Filter) ([]*schema.Record, error) {
	desc, err := descriptor(f)
	if err != nil {
		return nil, err
	}
	stmt, err := s.compiler.CompileTraverseRelationship(from, f)
	if err != nil {
		return nil, fmt.Errorf("compile relationship traversal from %q: %w", from.Label(), err)
	}
	if stmt.Shape == query.ShapeCount {
		return nil, fmt.Errorf("list relationships from %q: use CountRelationships with count$", from.Label())
	}
	records, err := s.executor.Records(ctx, desc.Label, stmt)
	if err != nil {
		return nil, fmt.Errorf("list relationships from %q: %w", from.Label(), err)
	}
	return records, nil
}

func (s *Store) countRelationships(ctx context.Context, from schema.Entity, f query.Filter) (int64, error) {
	counted := maps.Clone(f)
	if counted == nil {
		counted = query.Filter{}
	}
	counted[query.KeyCount] = true
	stmt, err := s.compiler.CompileTraverseRelationship(from, counted)
	if err != nil {
		return 0, fmt.Errorf("compile relationship count from %q: %w", from.Label(), err)
	}
	n, err := s.executor.Count(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("count relationships from %q: %w", from.Label(), err)
	}
	return n, nil
}

func (s *Store) updateRelationship(ctx context.Context, from schema.Entity, f query.Filter) ([]schema.Document, error) {
	stmt, err := s.compiler.CompileUpdateRelationship(from, f)
	if err != nil {
		return nil, fmt.Errorf("compile relationship update from %q: %w", from.Label(), err)
	}
	return s.edges(ctx, stmt)
}

func (s *Store) removeRelationship(ctx context.Context, from schema.Entity, f query.Filter) error {
	stmt, err := s.compiler.CompileRemoveRelationship(from, f)
	if err != nil {
		return fmt.Errorf("compile relationship removal from %q: %w", from.Label(), err)
	}
	if _, err := s.executor.Rows(ctx, stmt); err != nil {
		return fmt.Errorf("remove relationship from %q: %w", from.Label(), err)
	}
	return nil
}

func (s *Store) edges(ctx context.Context, stmt query.Statement) ([]schema.Document, error) {
	rows, err := s.executor.Rows(ctx, stmt)
	if err != nil {
		return nil, err
	}
	docs := make([]schema.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := documentFromRow(stmt, row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func descriptor(f query.Filter) (query.RelationshipDescriptor, error) {
	desc, ok, err := f.Relationship()
	if err != nil {
		return query.RelationshipDescriptor{}, err
	}
	if !ok {
		return query.RelationshipDescriptor{}, fmt.Errorf("filter has no %s descriptor", query.KeyRelationship)
	}
	return desc, nil
}

func withoutKey(f query.Filter, key string) query.Filter {
	if _, ok := f[key]; !ok {
		return f
	}
	out := maps.Clone(f)
	delete(out, key)
	return out
}
