package history

import (
	"fmt"
	"log/slog"
)

// MergeThreadData reconciles an existing durable copy of a conversation with a
// newly serialized copy, producing a single blob that loses no message.
//
// Strategy:
//   - Scalar fields: new overwrites existing (last writer wins).
//   - _created_at: restored from existing — immutable for the record's lifetime.
//   - Messages: when new is at least as long as existing, new is trusted as the
//     authoritative ordered sequence (one process's thread serialization always
//     carries the full accumulated history). A shorter new sequence signals a
//     divergent session, so both sequences are concatenated and deduplicated by
//     (content, timestamp).
//
// The length heuristic is not safe under true concurrent multi-writer
// divergence (same-length, different contents from two processes); callers
// accept that limitation.
func MergeThreadData(existing, incoming ThreadData) ThreadData {
	merged := make(ThreadData, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}

	if created, ok := existing[keyCreatedAt]; ok {
		merged[keyCreatedAt] = created
	}

	existingMsgs := messagesOf(existing)
	newMsgs := messagesOf(incoming)
	if existingMsgs != nil && newMsgs != nil {
		if len(newMsgs) >= len(existingMsgs) {
			merged[keyMessages] = newMsgs
		} else {
			merged[keyMessages] = dedupeMessages(existingMsgs, newMsgs)
		}
	}

	slog.Debug("merged thread data",
		slog.Int("existing_msgs", len(existingMsgs)),
		slog.Int("new_msgs", len(newMsgs)),
		slog.Int("merged_msgs", len(messagesOf(merged))),
	)

	return merged
}

// dedupeMessages concatenates two message sequences, dropping entries whose
// (content, timestamp) identity was already seen. Ordering can degrade when
// timestamps are missing or collide; that is the documented trade-off of the
// defensive path.
func dedupeMessages(existing, incoming []any) []any {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]any, 0, len(existing)+len(incoming))
	for _, msg := range append(append([]any{}, existing...), incoming...) {
		key := messageKey(msg)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, msg)
	}
	return out
}

// messageKey builds the composite dedupe identity for one message entry.
func messageKey(msg any) string {
	m, ok := msg.(map[string]any)
	if !ok {
		return fmt.Sprintf("%v", msg)
	}
	content, _ := m["content"].(string)
	timestamp, _ := m["timestamp"].(string)
	return content + "\x00" + timestamp
}
