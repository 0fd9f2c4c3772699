package persistence

import (
	"context"
)

// PersistenceEventType defines the possible event types for store operations.
type PersistenceEventType string

const (
	EntitySaveStart           PersistenceEventType = "entity:save:start"
	EntitySaveSuccess         PersistenceEventType = "entity:save:success"
	EntitySaveFailed          PersistenceEventType = "entity:save:failed"
	EntityLoadStart           PersistenceEventType = "entity:load:start"
	EntityLoadSuccess         PersistenceEventType = "entity:load:success"
	EntityLoadFailed          PersistenceEventType = "entity:load:failed"
	EntityListStart           PersistenceEventType = "entity:list:start"
	EntityListSuccess         PersistenceEventType = "entity:list:success"
	EntityListFailed          PersistenceEventType = "entity:list:failed"
	EntityRemoveStart         PersistenceEventType = "entity:remove:start"
	EntityRemoveSuccess       PersistenceEventType = "entity:remove:success"
	EntityRemoveFailed        PersistenceEventType = "entity:remove:failed"
	RelationshipSaveStart     PersistenceEventType = "relationship:save:start"
	RelationshipSaveSuccess   PersistenceEventType = "relationship:save:success"
	RelationshipSaveFailed    PersistenceEventType = "relationship:save:failed"
	RelationshipLoadStart     PersistenceEventType = "relationship:load:start"
	RelationshipLoadSuccess   PersistenceEventType = "relationship:load:success"
	RelationshipLoadFailed    PersistenceEventType = "relationship:load:failed"
	RelationshipUpdateStart   PersistenceEventType = "relationship:update:start"
	RelationshipUpdateSuccess PersistenceEventType = "relationship:update:success"
	RelationshipUpdateFailed  PersistenceEventType = "relationship:update:failed"
	RelationshipRemoveStart   PersistenceEventType = "relationship:remove:start"
	RelationshipRemoveSuccess PersistenceEventType = "relationship:remove:success"
	RelationshipRemoveFailed  PersistenceEventType = "relationship:remove:failed"
	NativeStart               PersistenceEventType = "native:start"
	NativeSuccess             PersistenceEventType = "native:success"
	NativeFailed              PersistenceEventType = "native:failed"
	SubscriptionRegister      PersistenceEventType = "subscription:register"
	SubscriptionUnregister    PersistenceEventType = "subscription:unregister"
)

// PersistenceEvent represents events emitted during store operations.
type PersistenceEvent struct {
	Type      PersistenceEventType `json:"type"`               // The type of event (e.g., 'entity:save:start').
	Timestamp int64                `json:"timestamp"`          // Timestamp when the event occurred (Unix milliseconds).
	Operation string               `json:"operation"`          // The operation being performed (e.g., 'save', 'list').
	Label     *string              `json:"label,omitempty"`    // Label of the entities affected (if applicable).
	Input     any                  `json:"input,omitempty"`    // Data passed to the operation (if applicable).
	Output    any                  `json:"output,omitempty"`   // Data returned by the operation (if applicable).
	Error     *string              `json:"error,omitempty"`    // Error message if the operation failed.
	Query     any                  `json:"query,omitempty"`    // Filter used in the operation (if applicable).
	Duration  *int64               `json:"duration,omitempty"` // Duration of the operation in milliseconds.
	Context   map[string]any       `json:"context,omitempty"`  // Additional context specific to the operation.
}

// EventCallbackFunction defines the signature for event callback functions.
type EventCallbackFunction func(ctx context.Context, event PersistenceEvent) error

// RegisterSubscriptionOptions defines the options for registering a subscription.
type RegisterSubscriptionOptions struct {
	Event       PersistenceEventType  `json:"event"`
	Label       *string               `json:"label,omitempty"`
	Description *string               `json:"description,omitempty"`
	Callback    EventCallbackFunction `json:"-"`
}

// SubscriptionInfo represents information about a registered subscription.
type SubscriptionInfo struct {
	Id          *string              `json:"id,omitempty"`
	Event       PersistenceEventType `json:"event"`
	Label       *string              `json:"label,omitempty"`
	Description *string              `json:"description,omitempty"`
	Unsubscribe func()               `json:"-"`
}
