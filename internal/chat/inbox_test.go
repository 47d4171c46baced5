package chat

import (
	"context"
	"errors"
	"testing"
)

func TestUpsertMergesAndIncrementsAtomically(t *testing.T) {
	inbox := newTestInbox(t)
	owner := mustUserID(t, "alice")
	peer := mustUserID(t, "bob")
	conversationID := ConversationIDFor(owner, peer)

	name := "Bob"
	preview := "hello"
	stamp := int64(1000)
	if err := inbox.Upsert(context.Background(), owner, peer, UpsertFields{
		PeerName:       &name,
		LastMessage:    &preview,
		ConversationID: &conversationID,
		UpdatedAtMS:    &stamp,
	}); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := inbox.Upsert(context.Background(), owner, peer, UpsertFields{IncrementUnread: true}); err != nil {
			t.Fatalf("unexpected increment error: %v", err)
		}
	}

	entry, err := inbox.Get(context.Background(), owner, peer)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if entry.UnreadCount != 3 {
		t.Fatalf("expected unread count 3, got %d", entry.UnreadCount)
	}
	// Fields absent from the increment writes must survive the merge.
	if entry.PeerName != "Bob" || entry.LastMessage != "hello" || entry.ConversationID != conversationID.String() {
		t.Fatalf("expected merge to preserve untouched fields, got %+v", entry)
	}
}

func TestUpsertCreatesRowWithUnreadOneOnFirstIncrement(t *testing.T) {
	inbox := newTestInbox(t)
	owner := mustUserID(t, "alice")
	peer := mustUserID(t, "bob")

	if err := inbox.Upsert(context.Background(), owner, peer, UpsertFields{IncrementUnread: true}); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	entry, err := inbox.Get(context.Background(), owner, peer)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if entry.UnreadCount != 1 {
		t.Fatalf("expected fresh row to start at unread 1, got %d", entry.UnreadCount)
	}
}

func TestSetUnreadClampsNegativeValues(t *testing.T) {
	inbox := newTestInbox(t)
	owner := mustUserID(t, "alice")
	peer := mustUserID(t, "bob")

	if err := inbox.Upsert(context.Background(), owner, peer, UpsertFields{IncrementUnread: true}); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	if err := inbox.SetUnread(context.Background(), owner, peer, -5); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	entry, err := inbox.Get(context.Background(), owner, peer)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if entry.UnreadCount != 0 {
		t.Fatalf("expected clamp to zero, got %d", entry.UnreadCount)
	}
}

func TestSetUnreadMissingEntry(t *testing.T) {
	inbox := newTestInbox(t)

	err := inbox.SetUnread(context.Background(), mustUserID(t, "alice"), mustUserID(t, "bob"), 0)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestToggleFavoriteFlips(t *testing.T) {
	inbox := newTestInbox(t)
	owner := mustUserID(t, "alice")
	peer := mustUserID(t, "bob")

	if err := inbox.Upsert(context.Background(), owner, peer, UpsertFields{IncrementUnread: true}); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}

	favorite, err := inbox.ToggleFavorite(context.Background(), owner, peer)
	if err != nil || !favorite {
		t.Fatalf("expected first toggle to favorite, got %v err=%v", favorite, err)
	}
	favorite, err = inbox.ToggleFavorite(context.Background(), owner, peer)
	if err != nil || favorite {
		t.Fatalf("expected second toggle to unfavorite, got %v err=%v", favorite, err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	inbox := newTestInbox(t)
	owner := mustUserID(t, "alice")
	peer := mustUserID(t, "bob")

	if err := inbox.Upsert(context.Background(), owner, peer, UpsertFields{IncrementUnread: true}); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	if err := inbox.Remove(context.Background(), owner, peer); err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if err := inbox.Remove(context.Background(), owner, peer); err != nil {
		t.Fatalf("expected repeated remove to succeed, got %v", err)
	}
	if _, err := inbox.Get(context.Background(), owner, peer); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected entry gone, got %v", err)
	}
}

func TestListForOwnerOrdersFavoritesThenRecency(t *testing.T) {
	inbox := newTestInbox(t)
	owner := mustUserID(t, "alice")

	seed := func(peer string, updatedAt int64, favorite bool) {
		t.Helper()
		peerID := mustUserID(t, peer)
		if err := inbox.Upsert(context.Background(), owner, peerID, UpsertFields{
			UpdatedAtMS: &updatedAt,
			Favorite:    &favorite,
		}); err != nil {
			t.Fatalf("failed to seed %s: %v", peer, err)
		}
	}

	seed("bob", 3000, false)
	seed("cara", 1000, true)
	seed("dora", 2000, false)

	entries, err := inbox.ListForOwner(context.Background(), owner)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	order := []string{entries[0].PeerID, entries[1].PeerID, entries[2].PeerID}
	expected := []string{"cara", "bob", "dora"}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("expected order %v, got %v", expected, order)
		}
	}
}
