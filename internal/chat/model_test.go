package chat

import (
	"errors"
	"strings"
	"testing"
)

func TestConversationIDForIsOrderIndependent(t *testing.T) {
	alice := mustUserID(t, "alice")
	bob := mustUserID(t, "bob")

	forward := ConversationIDFor(alice, bob)
	backward := ConversationIDFor(bob, alice)

	if forward != backward {
		t.Fatalf("expected symmetric ids, got %q and %q", forward, backward)
	}
	if forward.String() != "alice_bob" {
		t.Fatalf("expected sorted join, got %q", forward)
	}
}

func TestParseConversationIDRejectsMalformedInput(t *testing.T) {
	testCases := []string{"", "alice", "_bob", "alice_", "zed_alice"}
	for _, rawInput := range testCases {
		if _, err := ParseConversationID(rawInput); !errors.Is(err, ErrInvalidConversationID) {
			t.Fatalf("expected invalid conversation id for %q, got %v", rawInput, err)
		}
	}
}

func TestPeerOfResolvesBothSides(t *testing.T) {
	conversationID := ConversationIDFor(mustUserID(t, "alice"), mustUserID(t, "bob"))

	peer, ok := conversationID.PeerOf(mustUserID(t, "alice"))
	if !ok || peer != "bob" {
		t.Fatalf("expected bob as alice's peer, got %q ok=%v", peer, ok)
	}
	peer, ok = conversationID.PeerOf(mustUserID(t, "bob"))
	if !ok || peer != "alice" {
		t.Fatalf("expected alice as bob's peer, got %q ok=%v", peer, ok)
	}
	if _, ok := conversationID.PeerOf(mustUserID(t, "cara")); ok {
		t.Fatalf("expected non-participant lookup to fail")
	}
}

func TestNewUserIDRejectsReservedSeparator(t *testing.T) {
	if _, err := NewUserID("a_b"); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected separator rejection, got %v", err)
	}
	if _, err := NewUserID("   "); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected blank rejection, got %v", err)
	}
	if _, err := NewUserID(strings.Repeat("x", 191)); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected length rejection, got %v", err)
	}
}
