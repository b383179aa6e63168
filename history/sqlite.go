// SQLite durable store.
//
// Information Hiding:
// - Schema and upsert details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling
// - Records addressed by (folder, chat_id); payloads are opaque JSON blobs

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore implements Store on a SQLite database file.
type SqliteStore struct {
	db     *sql.DB
	folder string
	logger *slog.Logger
}

// OpenSqliteStore opens or creates the store described by cfg. Construction is
// the one path that validates and fails loudly; every later operation degrades.
// Parent directories are created as needed.
func OpenSqliteStore(cfg PersistenceConfig) (*SqliteStore, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}

	folder := cfg.Folder
	if folder == "" {
		folder = "threads"
	}

	store := &SqliteStore{
		db:     db,
		folder: folder,
		logger: slog.Default().With(slog.String("component", "history.store")),
	}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	return store, nil
}

// NewSqliteStoreInMemory creates an in-memory store (useful for testing).
func NewSqliteStoreInMemory() (*SqliteStore, error) {
	cfg := DefaultPersistenceConfig()
	cfg.Path = ":memory:"
	return OpenSqliteStore(cfg)
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS threads (
			folder TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			data TEXT NOT NULL,
			metadata TEXT,
			byte_size INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (folder, chat_id)
		);

		CREATE INDEX IF NOT EXISTS idx_threads_folder_updated
		ON threads(folder, updated_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get loads the persisted blob for a chat, or nil when absent or unreadable.
func (s *SqliteStore) Get(ctx context.Context, chatID string) ThreadData {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM threads WHERE folder = ? AND chat_id = ?",
		s.folder, chatID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.logger.Warn("store get failed", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return nil
	}

	var data ThreadData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		s.logger.Warn("stored record unreadable", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return nil
	}
	return data
}

// Save writes the blob, overwriting any prior version. The persistence
// timestamp and chat ID are stamped into the blob before writing.
func (s *SqliteStore) Save(ctx context.Context, chatID string, data ThreadData, metadata map[string]string) bool {
	data[keyPersistedAt] = time.Now().UTC().Format(time.RFC3339Nano)
	data[keyChatID] = chatID

	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("store save failed to serialize", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return false
	}

	var meta any
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err == nil {
			meta = string(encoded)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (folder, chat_id, data, metadata, byte_size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(folder, chat_id) DO UPDATE SET
			data = excluded.data,
			metadata = excluded.metadata,
			byte_size = excluded.byte_size,
			updated_at = excluded.updated_at`,
		s.folder, chatID, string(raw), meta, len(raw), time.Now().Unix())
	if err != nil {
		s.logger.Error("store save failed", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return false
	}

	s.logger.Debug("store save", slog.String("chat_id", chatID), slog.Int("bytes", len(raw)))
	return true
}

// Delete removes the record; deleting an absent record succeeds.
func (s *SqliteStore) Delete(ctx context.Context, chatID string) bool {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM threads WHERE folder = ? AND chat_id = ?",
		s.folder, chatID)
	if err != nil {
		s.logger.Warn("store delete failed", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return false
	}
	return true
}

// Exists reports whether a record is present.
func (s *SqliteStore) Exists(ctx context.Context, chatID string) bool {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM threads WHERE folder = ? AND chat_id = ?",
		s.folder, chatID).Scan(&count)
	if err != nil {
		s.logger.Warn("store exists failed", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return false
	}
	return count > 0
}

// List enumerates persisted chats whose ID starts with prefix, newest first.
func (s *SqliteStore) List(ctx context.Context, prefix string, limit int) []ChatInfo {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_id, byte_size, updated_at
		FROM threads
		WHERE folder = ? AND chat_id LIKE ?
		ORDER BY updated_at DESC
		LIMIT ?`,
		s.folder, prefix+"%", limit)
	if err != nil {
		s.logger.Warn("store list failed", slog.String("error", err.Error()))
		return nil
	}
	defer rows.Close()

	var infos []ChatInfo
	for rows.Next() {
		var info ChatInfo
		var updatedAt int64
		if err := rows.Scan(&info.ChatID, &info.Size, &updatedAt); err != nil {
			s.logger.Warn("store list scan failed", slog.String("error", err.Error()))
			return infos
		}
		info.Persisted = true
		info.LastModified = time.Unix(updatedAt, 0).UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("store list iteration failed", slog.String("error", err.Error()))
	}

	return infos
}

// Metadata returns record properties without fetching the payload.
func (s *SqliteStore) Metadata(ctx context.Context, chatID string) (ChatInfo, bool) {
	var info ChatInfo
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT chat_id, byte_size, updated_at FROM threads WHERE folder = ? AND chat_id = ?",
		s.folder, chatID).Scan(&info.ChatID, &info.Size, &updatedAt)
	if err != nil {
		return ChatInfo{}, false
	}

	info.Persisted = true
	info.LastModified = time.Unix(updatedAt, 0).UTC()
	return info, true
}

// Close closes the database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SqliteStore)(nil)
