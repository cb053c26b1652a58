package platforms

import (
	"strings"
	"time"

	"hena/stays/internal/models"
	"hena/stays/internal/xmlfeed"
)

// Extraction is what an adapter pulls out of one raw property record.
// A nil Agent or Property means the record lacks required data.
type Extraction struct {
	Agent    *models.XMLAgent
	Property *models.XMLProperty
	Warnings []string
}

// Adapter understands the feed schema of one listing platform.
type Adapter interface {
	// Platform is a short identifier used in logs and notifications.
	Platform() string
	// RecordKey is the top-level document key holding the property records.
	RecordKey() string
	// FeedUpdatedAt returns the feed's self-reported update time, if any.
	FeedUpdatedAt(doc xmlfeed.Document) (time.Time, bool)
	// Extract converts one raw property record.
	Extract(record any) (Extraction, error)
}

type registration struct {
	key     string
	adapter Adapter
}

// Registry resolves feed URLs to adapters by platform key.
type Registry struct {
	entries []registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an adapter for URLs containing key. Keys are matched in
// registration order.
func (r *Registry) Register(key string, adapter Adapter) {
	r.entries = append(r.entries, registration{key: strings.ToLower(key), adapter: adapter})
}

// Lookup returns the adapter of the first registered key contained in the
// lower-cased url, or nil when no platform matches.
func (r *Registry) Lookup(url string) Adapter {
	lower := strings.ToLower(url)
	for _, e := range r.entries {
		if strings.Contains(lower, e.key) {
			return e.adapter
		}
	}
	return nil
}

// Keys lists the registered platform keys in order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.key
	}
	return keys
}

// Default returns a registry with every supported platform.
func Default() *Registry {
	r := NewRegistry()
	r.Register("propertyfinder", NewPropertyFinderAdapter())
	r.Register("bayut", NewBayutAdapter())
	r.Register("dubizzle", NewDubizzleAdapter())
	return r
}
