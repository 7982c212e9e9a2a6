// Package messagequeue defines the message queue port (interface).
package messagequeue

import (
	"context"
	"strings"
)

// Handler processes a message received from the queue. Returning an error
// causes redelivery, so handlers must be idempotent.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for the document change feed.
//
// The store publishes one message per write to a watched collection; the
// replicator consumes them. Delivery is at-least-once and ordered per
// document id (all messages for one id share a subject).
const (
	// SubjectDocChanged is the prefix for change events:
	// docs.changed.<collection>.<docID>.
	SubjectDocChanged = "docs.changed"

	// SubjectDocChangedAll matches every change event.
	SubjectDocChangedAll = "docs.changed.>"
)

// ChangeSubject builds the publish subject for a change to one document.
// Collection path slashes are folded into underscores so the doc id stays
// the last token and per-id ordering maps onto per-subject ordering.
func ChangeSubject(collection, docID string) string {
	return SubjectDocChanged + "." + strings.ReplaceAll(collection, "/", "_") + "." + docID
}
