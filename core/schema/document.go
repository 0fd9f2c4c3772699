// Package schema holds the value types shared by the compiler and the execution
// layer: documents, result rows, the entity accessor and the value codec used to
// squeeze structured values into primitive-only graph properties.
package schema

import (
	"maps"
	"slices"
)

// Document is a set of node or relationship properties keyed by field name.
type Document map[string]any

// Row is a single result row keyed by the returned column name.
type Row map[string]any

// IDField is the property that carries an entity's identity.
const IDField = "id"

// Entity is the accessor the compiler needs from a persisted value. It mirrors
// what an entity framework knows about its own instances: the label it is
// stored under, its fields, their current values and, for updates, the values
// it was last stored with.
type Entity interface {
	// Label returns the canonical node label. An empty label matches any node.
	Label() string
	// Fields returns the entity's field names.
	Fields() []string
	// Get returns the current value of a field, nil when absent.
	Get(field string) any
	// Prior returns the previously stored values, nil for entities that were
	// never loaded or saved.
	Prior() Document
}

// Record is the Document-backed Entity used throughout the store.
type Record struct {
	Name     string
	Data     Document
	Previous Document
}

var _ Entity = (*Record)(nil)

// NewRecord creates a record for label with a copy of data.
func NewRecord(label string, data Document) *Record {
	d := make(Document, len(data))
	maps.Copy(d, data)
	return &Record{Name: label, Data: d}
}

func (r *Record) Label() string { return r.Name }

// Fields returns the field names in sorted order.
func (r *Record) Fields() []string {
	return slices.Sorted(maps.Keys(r.Data))
}

func (r *Record) Get(field string) any {
	if r.Data == nil {
		return nil
	}
	return r.Data[field]
}

func (r *Record) Prior() Document { return r.Previous }

// ID returns the record identifier as stored, or nil.
func (r *Record) ID() any {
	return r.Get(IDField)
}

// Set assigns a field value.
func (r *Record) Set(field string, value any) {
	if r.Data == nil {
		r.Data = Document{}
	}
	r.Data[field] = value
}

// MarkStored snapshots the current values as the prior stored state, so the
// next update only touches what changed afterwards.
func (r *Record) MarkStored() {
	r.Previous = make(Document, len(r.Data))
	maps.Copy(r.Previous, r.Data)
}

// EntityDocument collects the non-nil values of an entity into a Document.
func EntityDocument(e Entity) Document {
	doc := Document{}
	for _, f := range e.Fields() {
		if v := e.Get(f); v != nil {
			doc[f] = v
		}
	}
	return doc
}
