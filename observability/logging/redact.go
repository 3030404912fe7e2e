package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue is the placeholder substituted for sensitive values in logs.
const RedactedValue = "[REDACTED]"

// Keys the node emits that are safe to log verbatim. Everything else passed
// through MaskField is redacted, which keeps bearer tokens and key material
// out of the log stream no matter which call site forgets to scrub them.
var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"addr":      {},
	"network":   {},
	"admin":     {},
	"module":    {},
	"method":    {},
}

// IsAllowlisted reports whether the key is exempt from automatic redaction.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// RedactionAllowlist returns a sorted copy of the keys allowed through
// unmasked. Tests use it to pin the allowlist.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue redacts non-empty values. Empty values pass through so absent
// fields stay visibly absent.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField builds a slog.Attr whose value is redacted unless the key is
// allowlisted. The original key casing is preserved.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
