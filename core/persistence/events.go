package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/asaidimu/go-anansi-neo4j/core/query"
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// emitEvent is a helper method to emit events
func (s *Store) emitEvent(event PersistenceEvent) {
	if s.bus != nil {
		s.bus.Emit(string(event.Type), event)
	}
}

// withEventEmission wraps an operation with start, success, and failure events
func (s *Store) withEventEmission(
	operation string,
	label string,
	startEventType PersistenceEventType,
	successEventType PersistenceEventType,
	failedEventType PersistenceEventType,
	input any,
	queryParam any,
	fn func() (any, error),
) (any, error) {
	startTime := time.Now()

	s.emitEvent(createEvent(startEventType, operation, label, input, nil, queryParam, nil, startTime))

	result, err := fn()
	if err != nil {
		errStr := err.Error()
		s.emitEvent(createEvent(failedEventType, operation, label, input, nil, queryParam, &errStr, startTime))
		return nil, err
	}

	s.emitEvent(createEvent(successEventType, operation, label, input, result, queryParam, nil, startTime))
	return result, nil
}

// Save stores a record. A record without an id is created under a fresh id
// (the `id$` field, when set, is used instead); otherwise it is updated,
// touching only the fields that differ from its prior stored values.
func (s *Store) Save(ctx context.Context, r *schema.Record) (*schema.Record, error) {
	result, err := s.withEventEmission(
		"save", r.Label(),
		EntitySaveStart, EntitySaveSuccess, EntitySaveFailed,
		r.Data, nil,
		func() (any, error) {
			return s.save(ctx, r)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*schema.Record), nil
}

// SaveAll saves records concurrently, at most MaxConcurrency at a time. The
// result preserves input order. The first failure cancels saves that have not
// started yet; saves already applied are not rolled back.
func (s *Store) SaveAll(ctx context.Context, records []*schema.Record) ([]*schema.Record, error) {
	label := ""
	if len(records) > 0 {
		label = records[0].Label()
	}
	result, err := s.withEventEmission(
		"saveAll", label,
		EntitySaveStart, EntitySaveSuccess, EntitySaveFailed,
		map[string]any{"count": len(records)}, nil,
		func() (any, error) {
			return s.saveAll(ctx, records)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]*schema.Record), nil
}

// Load returns the first entity matching f, or nil when none does.
func (s *Store) Load(ctx context.Context, label string, f query.Filter) (*schema.Record, error) {
	result, err := s.withEventEmission(
		"load", label,
		EntityLoadStart, EntityLoadSuccess, EntityLoadFailed,
		nil, f,
		func() (any, error) {
			return s.load(ctx, label, f)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*schema.Record), nil
}

// List returns every entity matching f. A `native$` qualifier runs the given
// Cypher instead. `count$` and `exists$` are ignored here; use Count or Exists.
func (s *Store) List(ctx context.Context, label string, f query.Filter) ([]*schema.Record, error) {
	result, err := s.withEventEmission(
		"list", label,
		EntityListStart, EntityListSuccess, EntityListFailed,
		nil, f,
		func() (any, error) {
			return s.list(ctx, label, f)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]*schema.Record), nil
}

// Count returns the number of entities matching f.
func (s *Store) Count(ctx context.Context, label string, f query.Filter) (int64, error) {
	result, err := s.withEventEmission(
		"count", label,
		EntityListStart, EntityListSuccess, EntityListFailed,
		nil, f,
		func() (any, error) {
			return s.count(ctx, label, f)
		},
	)
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Exists reports whether any entity matches f.
func (s *Store) Exists(ctx context.Context, label string, f query.Filter) (bool, error) {
	result, err := s.withEventEmission(
		"exists", label,
		EntityListStart, EntityListSuccess, EntityListFailed,
		nil, f,
		func() (any, error) {
			return s.exists(ctx, label, f)
		},
	)
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// Remove deletes the newest entity matching f, or all of them with `all$`.
// With `load$` the removed entity is returned.
func (s *Store) Remove(ctx context.Context, label string, f query.Filter) (*schema.Record, error) {
	result, err := s.withEventEmission(
		"remove", label,
		EntityRemoveStart, EntityRemoveSuccess, EntityRemoveFailed,
		nil, f,
		func() (any, error) {
			return s.remove(ctx, label, f)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*schema.Record), nil
}

// Native runs caller-supplied Cypher and returns its decoded rows.
func (s *Store) Native(ctx context.Context, cypher string, params map[string]any) ([]schema.Row, error) {
	native := query.NativeQuery{Cypher: cypher, Parameters: params}
	result, err := s.withEventEmission(
		"native", "",
		NativeStart, NativeSuccess, NativeFailed,
		params, cypher,
		func() (any, error) {
			return s.rows(ctx, native)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]schema.Row), nil
}

// SaveRelationship creates an edge from the stored entity to every node
// matching the destination conditions of f and returns the edges.
func (s *Store) SaveRelationship(ctx context.Context, from schema.Entity, f query.Filter) ([]schema.Document, error) {
	result, err := s.withEventEmission(
		"saveRelationship", from.Label(),
		RelationshipSaveStart, RelationshipSaveSuccess, RelationshipSaveFailed,
		schema.EntityDocument(from), f,
		func() (any, error) {
			return s.saveRelationship(ctx, from, f)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]schema.Document), nil
}

// LoadRelationship returns the first node reached from the entity through an
// edge matching f, or nil.
func (s *Store) LoadRelationship(ctx context.Context, from schema.Entity, f query.Filter) (*schema.Record, error) {
	result, err := s.withEventEmission(
		"loadRelationship", from.Label(),
		RelationshipLoadStart, RelationshipLoadSuccess, RelationshipLoadFailed,
		schema.EntityDocument(from), f,
		func() (any, error) {
			return s.loadRelationship(ctx, from, f)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*schema.Record), nil
}

// ListRelationships returns every node reached from the entity through an
// edge matching f.
func (s *Store) ListRelationships(ctx context.Context, from schema.Entity, f query.Filter) ([]*schema.Record, error) {
	result, err := s.withEventEmission(
		"listRelationships", from.Label(),
		RelationshipLoadStart, RelationshipLoadSuccess, RelationshipLoadFailed,
		schema.EntityDocument(from), f,
		func() (any, error) {
			return s.listRelationships(ctx, from, f)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]*schema.Record), nil
}

// CountRelationships counts the nodes reached from the entity through an
// edge matching f.
func (s *Store) CountRelationships(ctx context.Context, from schema.Entity, f query.Filter) (int64, error) {
	result, err := s.withEventEmission(
		"countRelationships", from.Label(),
		RelationshipLoadStart, RelationshipLoadSuccess, RelationshipLoadFailed,
		schema.EntityDocument(from), f,
		func() (any, error) {
			return s.countRelationships(ctx, from, f)
		},
	)
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// UpdateRelationship sets the descriptor data on every matching edge; nil
// values remove properties.
func (s *Store) UpdateRelationship(ctx context.Context, from schema.Entity, f query.Filter) ([]schema.Document, error) {
	result, err := s.withEventEmission(
		"updateRelationship", from.Label(),
		RelationshipUpdateStart, RelationshipUpdateSuccess, RelationshipUpdateFailed,
		schema.EntityDocument(from), f,
		func() (any, error) {
			return s.updateRelationship(ctx, from, f)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.([]schema.Document), nil
}

// RemoveRelationship deletes the first matching edge, or all of them with
// `all$`. Nodes are left in place.
func (s *Store) RemoveRelationship(ctx context.Context, from schema.Entity, f query.Filter) error {
	_, err := s.withEventEmission(
		"removeRelationship", from.Label(),
		RelationshipRemoveStart, RelationshipRemoveSuccess, RelationshipRemoveFailed,
		schema.EntityDocument(from), f,
		func() (any, error) {
			return nil, s.removeRelationship(ctx, from, f)
		},
	)
	return err
}

// Subscribe registers a callback for a store event. It returns a unique ID
// that can be used to unsubscribe later.
func (s *Store) Subscribe(options RegisterSubscriptionOptions) string {
	s.subMu.Lock()
	unsubscribe := s.bus.Subscribe(string(options.Event), options.Callback)
	id := uuid.New().String()
	s.subscriptions[id] = &SubscriptionInfo{
		Id:          &id,
		Event:       options.Event,
		Unsubscribe: unsubscribe,
		Label:       options.Label,
		Description: options.Description,
	}
	s.subMu.Unlock()

	s.emitEvent(createEvent(
		SubscriptionRegister, "subscribe", "",
		map[string]any{
			"event":       options.Event,
			"label":       options.Label,
			"description": options.Description,
		},
		map[string]any{"subscriptionId": id},
		nil, nil, time.Time{},
	))
	return id
}

// Unsubscribe removes a subscription by its ID.
func (s *Store) Unsubscribe(id string) {
	s.subMu.Lock()
	info, ok := s.subscriptions[id]
	if ok {
		info.Unsubscribe()
		delete(s.subscriptions, id)
	}
	s.subMu.Unlock()

	if ok {
		s.emitEvent(createEvent(
			SubscriptionUnregister, "unsubscribe", "",
			map[string]any{"subscriptionId": id},
			nil, nil, nil, time.Time{},
		))
	}
}

// Subscriptions returns a list of all currently active subscriptions.
func (s *Store) Subscriptions() []SubscriptionInfo {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	subs := make([]SubscriptionInfo, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		subs = append(subs, *sub)
	}
	return subs
}
