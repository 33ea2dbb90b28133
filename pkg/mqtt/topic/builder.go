package topic

import (
	"strings"
)

// Builder constructs MQTT topic strings under a fixed root namespace.
// Pattern: {root}/{segment}/{id...}
type Builder struct {
	// root is the base namespace for all topics (e.g., "gcs/v1").
	root string
	// share, when set, prefixes subscriptions with $share/{group}/.
	share string
}

// NewBuilder creates a Builder for the given root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.TrimSuffix(root, "/")}
}

// Root returns the namespace this builder writes under.
func (b *Builder) Root() string {
	return b.root
}

// Shared returns a copy that builds shared-subscription filters for group.
func (b *Builder) Shared(group string) *Builder {
	return &Builder{root: b.root, share: group}
}

// Build joins root, segment and ids.
func (b *Builder) Build(segment string, ids ...string) string {
	parts := make([]string, 0, len(ids)+3)
	if b.share != "" {
		parts = append(parts, "$share", b.share)
	}
	parts = append(parts, b.root, segment)
	parts = append(parts, ids...)
	return strings.Join(parts, "/")
}

// BuildWildcard returns the filter matching every id under segment.
// Result: {root}/{segment}/+
func (b *Builder) BuildWildcard(segment string) string {
	return b.Build(segment, Wildcard)
}

// ID extracts the trailing identifier from a concrete topic built for segment.
// It returns false if topic does not belong to segment.
func (b *Builder) ID(segment, topic string) (string, bool) {
	prefix := b.root + "/" + segment + "/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" {
		return "", false
	}
	return id, true
}
