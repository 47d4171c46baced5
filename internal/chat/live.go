package chat

import (
	"context"
	"sync"
)

const (
	topicInboxPrefix        = "inbox:"
	topicConversationPrefix = "conversation:"
)

// notifier fans a change signal out to every subscriber of a topic. Signals
// are coalesced: a subscriber that has not consumed the pending signal does
// not queue further ones, it re-reads once and observes the latest state.
type notifier struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]chan struct{}
	nextID      int64
}

func newNotifier() *notifier {
	return &notifier{subscribers: make(map[string]map[int64]chan struct{})}
}

func (n *notifier) subscribe(ctx context.Context, topic string) (<-chan struct{}, func()) {
	signal := make(chan struct{}, 1)

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	if _, ok := n.subscribers[topic]; !ok {
		n.subscribers[topic] = make(map[int64]chan struct{})
	}
	n.subscribers[topic][id] = signal
	n.mu.Unlock()

	cleanup := func() {
		n.mu.Lock()
		subscribers := n.subscribers[topic]
		if subscribers != nil {
			delete(subscribers, id)
			if len(subscribers) == 0 {
				delete(n.subscribers, topic)
			}
		}
		n.mu.Unlock()
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return signal, cleanup
}

func (n *notifier) notify(topic string) {
	n.mu.RLock()
	subscribers := n.subscribers[topic]
	signals := make([]chan struct{}, 0, len(subscribers))
	for _, signal := range subscribers {
		signals = append(signals, signal)
	}
	n.mu.RUnlock()

	for _, signal := range signals {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}

// SubscribeInbox delivers the owner's full chat list after every relevant
// mutation. Each delivery replaces all prior state for the list: consumers
// render the slice as-is, never merge deltas. The channel closes when the
// context is cancelled.
func (s *Service) SubscribeInbox(ctx context.Context, owner UserID) (<-chan []InboxEntry, error) {
	signal, cleanup := s.watch.subscribe(ctx, topicInboxPrefix+owner.String())
	out := make(chan []InboxEntry, 1)

	initial, err := s.inbox.ListForOwner(ctx, owner)
	if err != nil {
		cleanup()
		return nil, err
	}
	out <- initial

	go func() {
		defer close(out)
		defer cleanup()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				entries, err := s.inbox.ListForOwner(ctx, owner)
				if err != nil {
					continue
				}
				deliverLatest(out, entries)
			}
		}
	}()
	return out, nil
}

// SubscribeMessages delivers the conversation's full ordered log after every
// mutation, with the same full-replacement contract as SubscribeInbox.
func (s *Service) SubscribeMessages(ctx context.Context, caller UserID, conversationID ConversationID) (<-chan []Message, error) {
	if _, ok := conversationID.PeerOf(caller); !ok {
		return nil, ErrAccessDenied
	}

	signal, cleanup := s.watch.subscribe(ctx, topicConversationPrefix+conversationID.String())
	out := make(chan []Message, 1)

	initial, err := s.store.ListOrdered(ctx, conversationID)
	if err != nil {
		cleanup()
		return nil, err
	}
	out <- initial

	go func() {
		defer close(out)
		defer cleanup()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				messages, err := s.store.ListOrdered(ctx, conversationID)
				if err != nil {
					continue
				}
				deliverLatest(out, messages)
			}
		}
	}()
	return out, nil
}

// deliverLatest replaces any undelivered snapshot with the newest one so a
// slow consumer always observes current state next.
func deliverLatest[T any](out chan []T, snapshot []T) {
	for {
		select {
		case out <- snapshot:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}
