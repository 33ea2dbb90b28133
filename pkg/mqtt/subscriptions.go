package mqtt

import (
	"strings"
	"sync"

	"github.com/eclipse/paho.golang/paho"
)

type subscriptionEntry struct {
	filter  string
	match   string
	qos     int
	handler MessageHandler
}

// subscriptionTable keeps handlers in registration order so dispatch and
// re-subscription are deterministic.
type subscriptionTable struct {
	mu      sync.RWMutex
	entries []subscriptionEntry
}

// put adds or replaces the handler for filter.
func (t *subscriptionTable) put(filter string, qos int, handler MessageHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := subscriptionEntry{filter: filter, match: topicFilter(filter), qos: qos, handler: handler}
	for i := range t.entries {
		if t.entries[i].filter == filter {
			t.entries[i] = entry
			return
		}
	}
	t.entries = append(t.entries, entry)
}

func (t *subscriptionTable) remove(filter string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].filter == filter {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// handlers returns the handlers whose filter matches topic.
func (t *subscriptionTable) handlers(topic string) []MessageHandler {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []MessageHandler
	for _, e := range t.entries {
		if topicsMatch(e.match, topic) {
			out = append(out, e.handler)
		}
	}
	return out
}

// subscribePacket returns one SUBSCRIBE covering every filter, or nil.
func (t *subscriptionTable) subscribePacket() *paho.Subscribe {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.entries) == 0 {
		return nil
	}
	opts := make([]paho.SubscribeOptions, 0, len(t.entries))
	for _, e := range t.entries {
		opts = append(opts, paho.SubscribeOptions{Topic: e.filter, QoS: byte(e.qos)})
	}
	return &paho.Subscribe{Subscriptions: opts}
}

// topicsMatch checks if a topic matches a filter (supports wildcards + and #).
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}
	if !strings.ContainsAny(filter, "+#") {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}

// topicFilter strips the $share/<group>/ prefix of a shared subscription.
func topicFilter(filter string) string {
	if rest, ok := strings.CutPrefix(filter, "$share/"); ok {
		if _, topic, ok := strings.Cut(rest, "/"); ok {
			return topic
		}
	}
	return filter
}
