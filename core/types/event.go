package types

// Event is the notification payload emitted on every escrow transition and
// registry write. Attributes carry the flattened trade fields as strings so
// subscribers can filter without decoding the full record.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attribute returns the named attribute, or the empty string when absent.
func (e *Event) Attribute(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}
