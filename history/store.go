package history

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// defaultScheduleBuffer is the fallback persist buffer in seconds when the
// configured schedule cannot be parsed.
const defaultScheduleBuffer = 300

// PersistenceConfig holds durable store configuration.
type PersistenceConfig struct {
	Enabled bool
	// Path is the SQLite database file ("" or ":memory:" for in-memory).
	Path string
	// Folder namespaces records within the store.
	Folder string
	// Schedule controls proactive persistence relative to the cache TTL:
	// "ttl+N" persists N seconds before a cache entry would expire, a bare
	// integer is an absolute offset from the cache write.
	Schedule string
}

// DefaultPersistenceConfig returns the persistence defaults: disabled,
// "threads" folder, five minute buffer.
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		Folder:   "threads",
		Schedule: "ttl+300",
	}
}

// Store is the system of record for conversation state. All operations are
// idempotent: Save overwrites unconditionally, Delete of an absent record is
// not an error, Get/Exists on an absent record answer nil/false.
//
// Like the cache tier, failures surface as negative results plus a warning
// log, never as errors on the call path.
type Store interface {
	// Get loads the persisted blob, or nil when absent or unreadable.
	Get(ctx context.Context, chatID string) ThreadData

	// Save writes the blob, overwriting any prior version. The optional
	// metadata map is stored alongside the payload.
	Save(ctx context.Context, chatID string, data ThreadData, metadata map[string]string) bool

	// Delete removes the record. Absent records delete successfully.
	Delete(ctx context.Context, chatID string) bool

	// Exists reports whether a record is present.
	Exists(ctx context.Context, chatID string) bool

	// List enumerates persisted chats whose ID starts with prefix, newest
	// first, capped at limit.
	List(ctx context.Context, prefix string, limit int) []ChatInfo

	// Metadata returns record properties without fetching the payload.
	Metadata(ctx context.Context, chatID string) (ChatInfo, bool)

	Close() error
}

// ParseSchedule converts a persist schedule into the offset, in seconds from
// a cache write, at which a record should be proactively persisted.
//
// "ttl+300" with cacheTTL 3600 yields 3300 (persist five minutes before the
// entry would be evicted). A bare integer is taken as an absolute offset. A
// malformed schedule falls back to the default 300 second buffer rather than
// failing the scheduler.
func ParseSchedule(schedule string, cacheTTL int) int {
	s := strings.ToLower(strings.TrimSpace(schedule))

	if rest, ok := strings.CutPrefix(s, "ttl+"); ok {
		buffer, err := strconv.Atoi(rest)
		if err != nil {
			slog.Warn("invalid persist schedule", slog.String("schedule", schedule))
			return cacheTTL - defaultScheduleBuffer
		}
		return max(0, cacheTTL-buffer)
	}

	if offset, err := strconv.Atoi(s); err == nil {
		return offset
	}
	return cacheTTL - defaultScheduleBuffer
}
