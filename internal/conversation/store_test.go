package conversation

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestEncodeMetadata_NilIsEmptyObject(t *testing.T) {
	b, err := encodeMetadata(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != "{}" {
		t.Fatalf("expected {}, got %s", b)
	}
}

func TestDecodeMetadata(t *testing.T) {
	for _, raw := range []string{"", "null", "{}"} {
		m, err := decodeMetadata([]byte(raw))
		if err != nil {
			t.Fatalf("%q: %v", raw, err)
		}
		if m == nil || len(m) != 0 {
			t.Fatalf("%q: expected empty map, got %#v", raw, m)
		}
	}

	m, err := decodeMetadata([]byte(`{"visitor":"ann"}`))
	if err != nil || m["visitor"] != "ann" {
		t.Fatalf("unexpected decode: %#v, %v", m, err)
	}

	if _, err := decodeMetadata([]byte(`[{"visitor":"ann"}]`)); err == nil {
		t.Fatalf("expected error for array metadata")
	}
}

func TestPostgresSQL_MetadataOwnership(t *testing.T) {
	set := upsertConversationSQL[strings.Index(upsertConversationSQL, "ON CONFLICT"):]
	for _, col := range []string{"metadata =", "lead_captured ="} {
		if strings.Contains(set, col) {
			t.Fatalf("chat upsert must not overwrite %q on conflict", col)
		}
	}
	if !strings.Contains(mergeMetadataSQL, "jsonb_typeof(metadata) = 'object'") {
		t.Fatalf("metadata merge must guard non-object values")
	}
}

func TestMemoryStore_FirstUpsertThenMerge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	if err := store.Upsert(ctx, Conversation{ID: "c1", SessionID: "s1", CreatedAt: now, LastMessageAt: now}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Metadata == nil {
		t.Fatalf("expected empty metadata object after first save")
	}

	yes := true
	conv, err := store.UpdateMetadata(ctx, "c1", map[string]any{"visitor": "ann"}, &yes)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if conv.Metadata["visitor"] != "ann" || !conv.LeadCaptured {
		t.Fatalf("unexpected merge result: %+v", conv)
	}

	// A later chat save carries a stale copy without the merged keys.
	if err := store.Upsert(ctx, Conversation{ID: "c1", SessionID: "s1", MessageCount: 2, CreatedAt: now, LastMessageAt: now}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ = store.Get(ctx, "c1")
	if got.Metadata["visitor"] != "ann" || !got.LeadCaptured || got.MessageCount != 2 {
		t.Fatalf("expected metadata kept across upsert: %+v", got)
	}
}
