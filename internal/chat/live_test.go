package chat

import (
	"context"
	"testing"
	"time"
)

func receiveSnapshot[T any](t *testing.T, stream <-chan []T) []T {
	t.Helper()

	select {
	case snapshot, ok := <-stream:
		if !ok {
			t.Fatalf("stream closed unexpectedly")
		}
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeInboxDeliversInitialAndUpdatedSnapshots(t *testing.T) {
	service, _ := newTestService(t)
	alice := mustUserID(t, "alice")
	bob := mustUserID(t, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := service.SubscribeInbox(ctx, bob)
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	initial := receiveSnapshot(t, stream)
	if len(initial) != 0 {
		t.Fatalf("expected empty initial chat list, got %d entries", len(initial))
	}

	conversationID := mustStart(t, service, alice, bob)
	snapshot := receiveSnapshot(t, stream)
	if len(snapshot) != 1 || snapshot[0].PeerID != "alice" {
		t.Fatalf("expected chat list with alice, got %+v", snapshot)
	}

	mustSend(t, service, alice, conversationID, "hello")
	for {
		snapshot = receiveSnapshot(t, stream)
		if len(snapshot) == 1 && snapshot[0].UnreadCount == 1 {
			break
		}
	}
	if snapshot[0].LastMessage != "hello" {
		t.Fatalf("expected replaced snapshot with new preview, got %+v", snapshot[0])
	}
}

func TestSubscribeMessagesReplacesFullLog(t *testing.T) {
	service, _ := newTestService(t)
	alice := mustUserID(t, "alice")
	bob := mustUserID(t, "bob")
	conversationID := mustStart(t, service, alice, bob)
	mustSend(t, service, alice, conversationID, "one")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := service.SubscribeMessages(ctx, bob, conversationID)
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	initial := receiveSnapshot(t, stream)
	if len(initial) != 1 || initial[0].Body != "one" {
		t.Fatalf("expected initial log of one message, got %+v", initial)
	}

	mustSend(t, service, bob, conversationID, "two")
	var snapshot []Message
	for {
		snapshot = receiveSnapshot(t, stream)
		if len(snapshot) == 2 {
			break
		}
	}
	if snapshot[0].Body != "one" || snapshot[1].Body != "two" {
		t.Fatalf("expected the full ordered log, got %+v", snapshot)
	}
}

func TestSubscribeMessagesRejectsNonParticipant(t *testing.T) {
	service, _ := newTestService(t)
	conversationID := ConversationIDFor(mustUserID(t, "alice"), mustUserID(t, "bob"))

	if _, err := service.SubscribeMessages(context.Background(), mustUserID(t, "cara"), conversationID); err == nil {
		t.Fatalf("expected non-participant subscription to fail")
	}
}

func TestSubscriptionClosesOnCancel(t *testing.T) {
	service, _ := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := service.SubscribeInbox(ctx, mustUserID(t, "alice"))
	if err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}
	receiveSnapshot(t, stream)
	cancel()

	select {
	case _, open := <-stream:
		if open {
			t.Fatalf("expected closed stream after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for stream close")
	}
}
