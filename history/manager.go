package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Thread is the unit of conversational state the manager shuttles between
// tiers. The manager never inspects a thread beyond its serialized form.
type Thread interface {
	// Serialize returns the thread's full accumulated state, including the
	// ordered "messages" sequence.
	Serialize() (ThreadData, error)
}

// Agent owns thread construction. Implemented by agent.ChatAgent; substituted
// with fakes in tests.
type Agent interface {
	// NewThread creates an empty thread.
	NewThread() Thread

	// DeserializeThread reconstructs a thread from serialized state. The
	// input has already had manager metadata stripped.
	DeserializeThread(data ThreadData) (Thread, error)
}

// Config bundles both storage tier configurations.
type Config struct {
	Cache       CacheConfig
	Persistence PersistenceConfig
}

// session is the in-process bookkeeping for an actively used conversation.
// Sessions live until explicit delete or manager close; cache eviction does
// not remove them.
type session struct {
	chatID       string
	thread       Thread
	createdAt    time.Time
	lastAccessed time.Time
	messageCount int
	persisted    bool
}

// Manager orchestrates chat history across the cache and the durable store.
//
// Read path: session table, then cache, then store — populating higher tiers
// on a lower-tier hit. Write path: cache synchronously, durable store on
// forced persist or via the background scheduler (write-behind).
//
// Storage tiers are injected at construction and treated as long-lived
// singletons; the manager exclusively owns the session table.
type Manager struct {
	cfg    Config
	cache  Cache
	store  Store
	agent  Agent
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session

	scheduler *persistScheduler

	// closers is the explicit teardown registry, iterated on Close.
	closers []io.Closer
}

// NewManager creates a manager over the given tiers. A nil cache falls back to
// the in-memory implementation; a nil store disables persistence regardless of
// config.
func NewManager(cfg Config, cache Cache, store Store, agent Agent) *Manager {
	if cache == nil {
		cache = NewInMemoryCache(cfg.Cache.TTL)
	}

	m := &Manager{
		cfg:      cfg,
		cache:    cache,
		store:    store,
		agent:    agent,
		logger:   slog.Default().With(slog.String("component", "history.manager")),
		sessions: make(map[string]*session),
	}
	m.scheduler = newPersistScheduler(m)

	m.closers = append(m.closers, cache)
	if store != nil {
		m.closers = append(m.closers, store)
	}

	m.logger.Info("chat history manager initialized",
		slog.Bool("cache_enabled", cfg.Cache.Enabled),
		slog.Bool("persistence_enabled", m.persistenceEnabled()),
	)
	return m
}

// SetAgent sets the agent used for thread construction.
func (m *Manager) SetAgent(agent Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agent = agent
}

func (m *Manager) persistenceEnabled() bool {
	return m.cfg.Persistence.Enabled && m.store != nil
}

// GetOrCreateThread returns the thread for a conversation, restoring state
// from the first tier that has it.
//
//	no id          -> new thread under a generated UUID
//	id, in session -> the live in-process thread
//	id, in cache   -> thread deserialized from the cached blob
//	id, in store   -> thread deserialized from the durable blob, written
//	                  through into the cache
//	id, absent     -> new thread under the supplied id
//
// Corrupt stored state never blocks a caller: a deserialization failure falls
// back to a fresh thread under the same id.
func (m *Manager) GetOrCreateThread(ctx context.Context, chatID string) (string, Thread, error) {
	m.mu.Lock()
	agent := m.agent
	m.mu.Unlock()
	if agent == nil {
		return "", nil, fmt.Errorf("agent not set: call SetAgent first")
	}

	if chatID == "" {
		chatID = uuid.NewString()
		m.logger.Info("generated new chat_id", slog.String("chat_id", chatID))
		return m.createSession(chatID)
	}

	// An active session carries the richest state; TTL eviction never
	// removes it, so it is checked before either storage tier.
	m.mu.Lock()
	if sess, ok := m.sessions[chatID]; ok {
		sess.lastAccessed = time.Now().UTC()
		thread := sess.thread
		m.mu.Unlock()
		return chatID, thread, nil
	}
	m.mu.Unlock()

	if cached, ok := m.cache.Get(ctx, chatID); ok {
		m.logger.Info("loading thread from cache", slog.String("chat_id", chatID))
		return m.restoreSession(chatID, cached)
	}

	if m.persistenceEnabled() {
		if persisted := m.store.Get(ctx, chatID); persisted != nil {
			m.logger.Info("loading thread from store", slog.String("chat_id", chatID))
			m.cache.Set(ctx, chatID, persisted, 0)
			return m.restoreSession(chatID, persisted)
		}
	}

	m.logger.Info("creating new thread with provided chat_id", slog.String("chat_id", chatID))
	return m.createSession(chatID)
}

// createSession registers a fresh session around an empty thread.
func (m *Manager) createSession(chatID string) (string, Thread, error) {
	thread := m.agent.NewThread()
	now := time.Now().UTC()

	m.mu.Lock()
	m.sessions[chatID] = &session{
		chatID:       chatID,
		thread:       thread,
		createdAt:    now,
		lastAccessed: now,
	}
	m.mu.Unlock()

	return chatID, thread, nil
}

// restoreSession rebuilds a session from a serialized blob, reconstructing
// session metadata from the reserved fields.
func (m *Manager) restoreSession(chatID string, data ThreadData) (string, Thread, error) {
	thread, err := m.agent.DeserializeThread(StripMetadata(data))
	if err != nil {
		m.logger.Warn("failed to deserialize thread, creating new",
			slog.String("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return m.createSession(chatID)
	}

	now := time.Now().UTC()
	createdAt, ok := timeValue(data, keyCreatedAt)
	if !ok {
		createdAt = now
	}
	messageCount, _ := intValue(data, keyMessageCount)

	m.mu.Lock()
	m.sessions[chatID] = &session{
		chatID:       chatID,
		thread:       thread,
		createdAt:    createdAt,
		lastAccessed: now,
		messageCount: messageCount,
		persisted:    boolValue(data, keyPersisted),
	}
	m.mu.Unlock()

	return chatID, thread, nil
}

// SaveThread writes the thread's current state to the cache, falling through
// to the durable store when forced or when the cache write did not succeed.
// Failures degrade to a false return; they never abort the caller's
// conversation flow.
func (m *Manager) SaveThread(ctx context.Context, chatID string, thread Thread, forcePersist bool) bool {
	data, err := thread.Serialize()
	if err != nil {
		m.logger.Error("failed to serialize thread", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return false
	}

	now := time.Now().UTC()

	m.mu.Lock()
	if sess, ok := m.sessions[chatID]; ok {
		sess.lastAccessed = now
		sess.messageCount++
		data[keyCreatedAt] = sess.createdAt.Format(time.RFC3339Nano)
		data[keyMessageCount] = sess.messageCount
	}
	m.mu.Unlock()

	data[keyUpdatedAt] = now.Format(time.RFC3339Nano)

	cached := m.cache.Set(ctx, chatID, data, 0)

	if (forcePersist || !cached) && m.persistenceEnabled() {
		m.persistWithMerge(ctx, chatID, data)
	}

	return true
}

// persistWithMerge reconciles the new blob with whatever the durable store
// already holds and writes the result. The load-merge-save section takes no
// cross-process lock; the merge heuristic tolerates (not eliminates) the
// resulting lost-update window.
func (m *Manager) persistWithMerge(ctx context.Context, chatID string, data ThreadData) bool {
	if !m.persistenceEnabled() {
		return false
	}

	merged := data
	if existing := m.store.Get(ctx, chatID); existing != nil {
		merged = MergeThreadData(existing, data)
		prior, _ := intValue(existing, keyMergeCount)
		merged[keyMergeCount] = prior + 1
	}

	merged[keyPersisted] = true
	merged[keyPersistedAt] = time.Now().UTC().Format(time.RFC3339Nano)

	ok := m.store.Save(ctx, chatID, merged, nil)
	if !ok {
		m.logger.Error("persist with merge failed", slog.String("chat_id", chatID))
		return false
	}

	m.mu.Lock()
	if sess, found := m.sessions[chatID]; found {
		sess.persisted = true
	}
	m.mu.Unlock()

	return true
}

// PersistThread forces an immediate merge-persist of already-serialized
// thread state, bypassing the cache. Used by the shutdown sweep and exposed
// for callers that must not wait for the scheduler.
func (m *Manager) PersistThread(ctx context.Context, chatID string, data ThreadData) bool {
	return m.persistWithMerge(ctx, chatID, data)
}

// DeleteChat removes a conversation from every tier. Deletion is best-effort
// across tiers, not transactional: a cache failure does not block the durable
// delete, but aggregate success requires every applicable tier to succeed.
func (m *Manager) DeleteChat(ctx context.Context, chatID string) bool {
	ok := m.cache.Delete(ctx, chatID)

	if m.persistenceEnabled() {
		if !m.store.Delete(ctx, chatID) {
			ok = false
		}
	}

	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()

	return ok
}

// ListChats enumerates known conversations from the requested source ("all",
// "cache", or "persistence"), deduplicated by id and capped at limit. Active
// sessions are always listed first: they carry the richest metadata.
func (m *Manager) ListChats(ctx context.Context, source string, limit int) []ChatInfo {
	if limit <= 0 {
		limit = 100
	}

	results := make([]ChatInfo, 0, limit)
	seen := make(map[string]struct{})

	m.mu.Lock()
	for chatID, sess := range m.sessions {
		if len(results) >= limit {
			break
		}
		results = append(results, ChatInfo{
			ChatID:       chatID,
			Active:       true,
			CreatedAt:    sess.createdAt,
			LastAccessed: sess.lastAccessed,
			MessageCount: sess.messageCount,
			Persisted:    sess.persisted,
		})
		seen[chatID] = struct{}{}
	}
	m.mu.Unlock()

	if (source == "cache" || source == "all") && m.cache.Enumerable() {
		for _, chatID := range m.cache.ListKeys(ctx, "*") {
			if len(results) >= limit {
				break
			}
			if _, dup := seen[chatID]; dup {
				continue
			}
			if info, ok := m.cache.Metadata(ctx, chatID); ok {
				results = append(results, info)
				seen[chatID] = struct{}{}
			}
		}
	}

	if (source == "persistence" || source == "all") && m.persistenceEnabled() {
		for _, info := range m.store.List(ctx, "", limit) {
			if len(results) >= limit {
				break
			}
			if _, dup := seen[info.ChatID]; dup {
				continue
			}
			results = append(results, info)
			seen[info.ChatID] = struct{}{}
		}
	}

	return results
}

// StartBackgroundPersist starts the scheduler that persists cached
// conversations before they would be evicted. No-op when persistence is
// disabled; idempotent.
func (m *Manager) StartBackgroundPersist(ctx context.Context) {
	if !m.persistenceEnabled() {
		return
	}
	m.scheduler.Start(ctx)
}

// Close stops the scheduler, makes a last-resort attempt to persist every
// session not yet durable, and closes both storage tiers. Per-session persist
// failures are logged individually so one bad session does not block cleanup
// of the rest.
func (m *Manager) Close(ctx context.Context) error {
	m.scheduler.Stop()

	if m.persistenceEnabled() {
		m.mu.Lock()
		pending := make([]*session, 0, len(m.sessions))
		for _, sess := range m.sessions {
			if !sess.persisted {
				pending = append(pending, sess)
			}
		}
		m.mu.Unlock()

		for _, sess := range pending {
			data, err := sess.thread.Serialize()
			if err != nil {
				m.logger.Warn("failed to persist on close",
					slog.String("chat_id", sess.chatID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if !m.persistWithMerge(ctx, sess.chatID, data) {
				m.logger.Warn("failed to persist on close", slog.String("chat_id", sess.chatID))
			}
		}
	}

	var errs []error
	for _, closer := range m.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	m.logger.Info("chat history manager closed")
	return errors.Join(errs...)
}
