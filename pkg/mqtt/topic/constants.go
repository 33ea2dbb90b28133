package topic

import "strings"

// Wildcard is the single-level wildcard "+". It matches exactly one level:
// "sensors/+/temperature" matches "sensors/room1/temperature".
const Wildcard = "+"

// ValidLevel reports whether name can be used as one topic level: it must be
// non-empty and hold no separator or wildcard.
func ValidLevel(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/+#")
}
