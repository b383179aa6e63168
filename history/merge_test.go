package history

import (
	"testing"
)

func msg(content, timestamp string) map[string]any {
	return map[string]any{"role": "user", "content": content, "timestamp": timestamp}
}

func TestMergeTrustsLongerNewSequence(t *testing.T) {
	existing := ThreadData{
		keyMessages: []any{msg("a", "t1"), msg("b", "t2")},
	}
	incoming := ThreadData{
		keyMessages: []any{msg("a", "t1"), msg("b", "t2"), msg("c", "t3")},
	}

	merged := MergeThreadData(existing, incoming)

	msgs := messagesOf(merged)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[2].(map[string]any)["content"] != "c" {
		t.Errorf("expected new sequence to be authoritative")
	}
}

func TestMergeEqualLengthTrustsNew(t *testing.T) {
	existing := ThreadData{keyMessages: []any{msg("old", "t1")}}
	incoming := ThreadData{keyMessages: []any{msg("new", "t1")}}

	merged := MergeThreadData(existing, incoming)

	msgs := messagesOf(merged)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].(map[string]any)["content"] != "new" {
		t.Errorf("equal-length merge should trust the new sequence")
	}
}

func TestMergeShorterNewUnionsWithoutLoss(t *testing.T) {
	existing := ThreadData{
		keyMessages: []any{msg("a", "t1"), msg("b", "t2"), msg("c", "t3")},
	}
	incoming := ThreadData{
		keyMessages: []any{msg("a", "t1"), msg("d", "t4")},
	}

	merged := MergeThreadData(existing, incoming)

	msgs := messagesOf(merged)
	if len(msgs) != 4 {
		t.Fatalf("expected union of 4 distinct messages, got %d", len(msgs))
	}

	// Every message from both inputs must survive.
	want := map[string]bool{"a": false, "b": false, "c": false, "d": false}
	for _, m := range msgs {
		want[m.(map[string]any)["content"].(string)] = true
	}
	for content, found := range want {
		if !found {
			t.Errorf("message %q lost in merge", content)
		}
	}
}

func TestMergeDedupesByContentAndTimestamp(t *testing.T) {
	// Same content at different timestamps are distinct messages.
	existing := ThreadData{
		keyMessages: []any{msg("hi", "t1"), msg("hi", "t2")},
	}
	incoming := ThreadData{
		keyMessages: []any{msg("hi", "t1")},
	}

	merged := MergeThreadData(existing, incoming)

	if got := len(messagesOf(merged)); got != 2 {
		t.Errorf("expected 2 messages after dedupe, got %d", got)
	}
}

func TestMergePreservesCreatedAt(t *testing.T) {
	existing := ThreadData{
		keyCreatedAt: "2026-01-01T00:00:00Z",
		keyMessages:  []any{msg("a", "t1")},
	}
	incoming := ThreadData{
		keyCreatedAt: "2026-02-02T00:00:00Z",
		keyUpdatedAt: "2026-02-02T00:00:00Z",
		keyMessages:  []any{msg("a", "t1"), msg("b", "t2")},
	}

	merged := MergeThreadData(existing, incoming)

	if merged[keyCreatedAt] != "2026-01-01T00:00:00Z" {
		t.Errorf("created_at must survive the merge, got %v", merged[keyCreatedAt])
	}
	if merged[keyUpdatedAt] != "2026-02-02T00:00:00Z" {
		t.Errorf("updated_at should follow the new record, got %v", merged[keyUpdatedAt])
	}
}

func TestMergeScalarsLastWriterWins(t *testing.T) {
	existing := ThreadData{"topic": "weather", "region": "eu"}
	incoming := ThreadData{"topic": "sales"}

	merged := MergeThreadData(existing, incoming)

	if merged["topic"] != "sales" {
		t.Errorf("expected new scalar to win, got %v", merged["topic"])
	}
	if merged["region"] != "eu" {
		t.Errorf("fields absent from the new record must pass through, got %v", merged["region"])
	}
}
