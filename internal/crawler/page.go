package crawler

import (
	"context"
	"errors"
	"slices"
)

// ErrObserve is wrapped by every failure to arm or keep an observation
// session, such as a missing scope root.
var ErrObserve = errors.New("observe")

// Page is the live, script-automatable document the crawler drives.
type Page interface {
	// Query lists the elements matching selector in document order.
	Query(ctx context.Context, selector string) ([]Node, error)

	// Observe subscribes to mutations within the subtree rooted at the first
	// element matching scope. Batches are delivered in the order the page
	// produced them until Close is called.
	Observe(ctx context.Context, scope string, opts ObserveOptions) (Subscription, error)
}

// Node is one selectable element at a traversal level
type Node interface {
	// Key is a stable identity for the element for as long as it stays in
	// the document.
	Key() string
	Text(ctx context.Context) (string, error)
	HasClass(ctx context.Context, class string) (bool, error)
	Click(ctx context.Context) error
}

// Subscription is one observation session.
type Subscription interface {
	Records() <-chan []MutationRecord
	Close() error
}

// Diagnostics is implemented by pages that can capture their state when a
// wait times out.
type Diagnostics interface {
	Capture(ctx context.Context, name string) error
}

// ObserveOptions mirrors the DOM MutationObserverInit dictionary
type ObserveOptions struct {
	Attributes      bool     `json:"attributes,omitempty"`
	AttributeFilter []string `json:"attributeFilter,omitempty"`
	ChildList       bool     `json:"childList,omitempty"`
	Subtree         bool     `json:"subtree,omitempty"`
}

// MutationRecord is a serialized DOM mutation record
type MutationRecord struct {
	Type          string   `json:"type"` // attributes, childList
	AttributeName string   `json:"attribute,omitempty"`
	Added         int      `json:"added"`
	Removed       int      `json:"removed"`
	Key           string   `json:"key,omitempty"`
	Classes       []string `json:"classes,omitempty"`
	Text          string   `json:"text"`
}

// HasClass reports whether the record's target carried class when the
// record was serialized.
func (r MutationRecord) HasClass(class string) bool {
	return slices.Contains(r.Classes, class)
}
