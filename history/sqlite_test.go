package history

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteStoreInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSqliteStoreSaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	data := ThreadData{
		keyMessages:  []any{msg("hello", "t1"), msg("hi there", "t2")},
		keyCreatedAt: "2026-01-01T00:00:00Z",
		"topic":      "greetings",
	}
	if !store.Save(ctx, "chat-1", data, nil) {
		t.Fatal("Save failed")
	}

	got := store.Get(ctx, "chat-1")
	if got == nil {
		t.Fatal("Get returned nil for saved record")
	}
	if len(messagesOf(got)) != 2 {
		t.Errorf("expected 2 messages, got %d", len(messagesOf(got)))
	}
	if got["topic"] != "greetings" {
		t.Errorf("opaque field lost, got %v", got["topic"])
	}
	if got[keyCreatedAt] != "2026-01-01T00:00:00Z" {
		t.Errorf("created_at lost, got %v", got[keyCreatedAt])
	}
	if got[keyChatID] != "chat-1" {
		t.Errorf("chat ID not stamped into blob, got %v", got[keyChatID])
	}
	if _, ok := got[keyPersistedAt].(string); !ok {
		t.Error("persisted_at not stamped into blob")
	}
}

func TestSqliteStoreGetAbsent(t *testing.T) {
	store := newTestStore(t)
	if got := store.Get(context.Background(), "no-such-chat"); got != nil {
		t.Errorf("expected nil for absent record, got %v", got)
	}
}

func TestSqliteStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Save(ctx, "chat-1", ThreadData{keyMessages: []any{msg("a", "t1")}}, nil)
	store.Save(ctx, "chat-1", ThreadData{keyMessages: []any{msg("a", "t1"), msg("b", "t2")}}, nil)

	got := store.Get(ctx, "chat-1")
	if len(messagesOf(got)) != 2 {
		t.Errorf("expected overwrite to win, got %d messages", len(messagesOf(got)))
	}

	infos := store.List(ctx, "", 10)
	if len(infos) != 1 {
		t.Errorf("overwrite must not duplicate records, got %d", len(infos))
	}
}

func TestSqliteStoreExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if store.Exists(ctx, "chat-1") {
		t.Error("expected absent record before save")
	}

	store.Save(ctx, "chat-1", ThreadData{"k": "v"}, nil)
	if !store.Exists(ctx, "chat-1") {
		t.Error("expected record after save")
	}

	if !store.Delete(ctx, "chat-1") {
		t.Error("Delete failed")
	}
	if store.Exists(ctx, "chat-1") {
		t.Error("record still present after delete")
	}
	if !store.Delete(ctx, "chat-1") {
		t.Error("Delete of absent record should succeed")
	}
}

func TestSqliteStoreList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Save(ctx, "user-a-1", ThreadData{"k": "v"}, nil)
	store.Save(ctx, "user-a-2", ThreadData{"k": "v"}, nil)
	store.Save(ctx, "user-b-1", ThreadData{"k": "v"}, nil)

	all := store.List(ctx, "", 10)
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	for _, info := range all {
		if !info.Persisted {
			t.Errorf("record %s should report persisted", info.ChatID)
		}
		if info.Size <= 0 {
			t.Errorf("record %s missing byte size", info.ChatID)
		}
	}

	prefixed := store.List(ctx, "user-a", 10)
	if len(prefixed) != 2 {
		t.Errorf("expected 2 records for prefix, got %d", len(prefixed))
	}

	capped := store.List(ctx, "", 2)
	if len(capped) != 2 {
		t.Errorf("expected limit to cap results, got %d", len(capped))
	}
}

func TestSqliteStoreMetadata(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Save(ctx, "chat-1", ThreadData{"k": "v"}, map[string]string{"source": "test"})

	info, ok := store.Metadata(ctx, "chat-1")
	if !ok {
		t.Fatal("expected metadata for saved record")
	}
	if info.ChatID != "chat-1" || !info.Persisted || info.Size <= 0 {
		t.Errorf("unexpected metadata: %+v", info)
	}

	if _, ok := store.Metadata(ctx, "absent"); ok {
		t.Error("expected no metadata for absent record")
	}
}
