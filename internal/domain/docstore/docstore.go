// Package docstore defines the document store domain types: references,
// documents, mutation intents, batch commit reports, and change events.
package docstore

import "path"

// Ref addresses one document inside a collection.
// Collection is a slash-separated path ("tenants/lwhs/userData"), ID the
// document id within it.
type Ref struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// Path returns the full document path.
func (r Ref) Path() string {
	return path.Join(r.Collection, r.ID)
}

// Document is a stored document: its reference plus decoded fields.
type Document struct {
	Ref    Ref
	Fields map[string]any
}

// Op is the kind of a mutation intent.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// MutationIntent is one pending atomic operation against a single document
// reference. Intents are produced by callers of the batch writer and
// consumed exactly once.
type MutationIntent struct {
	Op     Op
	Ref    Ref
	Fields map[string]any // nil for OpDelete
}

// CommitReport summarizes a bounded batch commit sequence. Groups already
// committed when a later group fails stay applied; Applied counts the
// intents written before the failure.
type CommitReport struct {
	Total     int  `json:"total"`
	Applied   int  `json:"applied"`
	Succeeded bool `json:"succeeded"`
}

// ChangeEvent is the before/after snapshot pair delivered on a document
// write. Delivery is at-least-once; events for distinct ids may arrive out
// of causal order, events for the same id arrive in store-assigned order.
// After is authoritative: nil After means the document was deleted.
type ChangeEvent struct {
	// ID is unique per delivery attempt's source event; consumers may use
	// it for dedup under at-least-once delivery.
	ID     string         `json:"id"`
	Ref    Ref            `json:"ref"`
	Before map[string]any `json:"before,omitempty"`
	After  map[string]any `json:"after,omitempty"`
}
