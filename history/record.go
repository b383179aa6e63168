// Package history orchestrates chat history across a fast cache tier and a
// durable store, with merge-on-persist semantics and a background scheduler
// that persists cached conversations before TTL eviction.
//
// Information Hiding:
// - Cache and store backends hidden behind interfaces
// - Merge/reconciliation logic encapsulated in pure functions
// - Reserved metadata keys encapsulated behind accessors

package history

import (
	"strings"
	"time"
)

// ThreadData is a serialized conversation: the domain "messages" sequence plus
// reserved underscore-prefixed metadata keys. Any other key passes through
// opaquely to and from storage.
type ThreadData = map[string]any

// Reserved metadata keys. The underscore prefix marks them as manager-owned;
// they are stripped before the blob is handed to a thread deserializer.
const (
	keyCreatedAt    = "_created_at"
	keyUpdatedAt    = "_updated_at"
	keyMessageCount = "_message_count"
	keyPersisted    = "_persisted"
	keyPersistedAt  = "_persisted_at"
	keyMergeCount   = "_merge_count"
	keyChatID       = "_chat_id"

	keyMessages = "messages"
)

// ChatInfo is a summary of one conversation, assembled from whichever tier
// answered: the in-process session table, the cache, or the durable store.
type ChatInfo struct {
	ChatID       string    `json:"chat_id"`
	Active       bool      `json:"active,omitempty"`
	Cached       bool      `json:"cached,omitempty"`
	Persisted    bool      `json:"persisted,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	LastAccessed time.Time `json:"last_accessed,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
	MessageCount int       `json:"message_count,omitempty"`
	TTLRemaining int       `json:"ttl_remaining,omitempty"`
	Size         int64     `json:"size,omitempty"`
}

// StripMetadata returns a copy of data without the reserved metadata keys.
// Thread deserializers only understand the domain fields.
func StripMetadata(data ThreadData) ThreadData {
	clean := make(ThreadData, len(data))
	for k, v := range data {
		if strings.HasPrefix(k, "_") {
			continue
		}
		clean[k] = v
	}
	return clean
}

// messagesOf returns the messages sequence of a blob, or nil if absent or of
// an unexpected shape.
func messagesOf(data ThreadData) []any {
	msgs, _ := data[keyMessages].([]any)
	return msgs
}

// intValue reads an integer metadata field, tolerating the float64 that
// encoding/json produces for all JSON numbers.
func intValue(data ThreadData, key string) (int, bool) {
	switch v := data[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// boolValue reads a boolean metadata field.
func boolValue(data ThreadData, key string) bool {
	b, _ := data[key].(bool)
	return b
}

// timeValue reads an RFC 3339 timestamp metadata field.
func timeValue(data ThreadData, key string) (time.Time, bool) {
	s, ok := data[key].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
