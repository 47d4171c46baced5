package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/huddleapp/huddle/backend/internal/directory"
)

type sequentialIDGenerator struct {
	mu    sync.Mutex
	count int
}

func (g *sequentialIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	return fmt.Sprintf("id-%d", g.count), nil
}

// testClock is an adjustable clock shared by store and service tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1750000000, 0).UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubDirectory struct {
	users map[string]directory.User
}

func (d *stubDirectory) GetUser(_ context.Context, userID string) (directory.User, error) {
	user, ok := d.users[userID]
	if !ok {
		return directory.User{}, directory.ErrUserNotFound
	}
	return user, nil
}

func defaultDirectory() *stubDirectory {
	return &stubDirectory{users: map[string]directory.User{
		"alice": {UserID: "alice", DisplayName: "Alice", Role: directory.RoleMember, Active: true},
		"bob":   {UserID: "bob", DisplayName: "Bob", Role: directory.RoleStaff, Active: true},
		"cara":  {UserID: "cara", DisplayName: "Cara", Role: directory.RoleAdmin, Active: true},
		"dora":  {UserID: "dora", DisplayName: "Dora", Role: directory.RoleMember, Active: true},
	}}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:huddle_chat_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Message{}, &InboxEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()

	db := openTestDB(t)
	clock := newTestClock()

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: &sequentialIDGenerator{},
		Directory:  defaultDirectory(),
	})
	if err != nil {
		t.Fatalf("failed to construct chat service: %v", err)
	}
	return service, clock
}

func newTestStore(t *testing.T) (*ConversationStore, *testClock) {
	t.Helper()

	db := openTestDB(t)
	clock := newTestClock()
	store, err := NewConversationStore(ConversationStoreConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: &sequentialIDGenerator{},
	})
	if err != nil {
		t.Fatalf("failed to construct conversation store: %v", err)
	}
	return store, clock
}

func newTestInbox(t *testing.T) *InboxIndex {
	t.Helper()

	db := openTestDB(t)
	inbox, err := NewInboxIndex(InboxIndexConfig{Database: db, Clock: newTestClock().Now})
	if err != nil {
		t.Fatalf("failed to construct inbox index: %v", err)
	}
	return inbox
}

func mustUserID(t *testing.T, value string) UserID {
	t.Helper()

	userID, err := NewUserID(value)
	if err != nil {
		t.Fatalf("failed to build user id %q: %v", value, err)
	}
	return userID
}

func mustAppend(t *testing.T, store *ConversationStore, conversationID ConversationID, author UserID, body string) Message {
	t.Helper()

	message, err := store.Append(context.Background(), conversationID, author, body, "")
	if err != nil {
		t.Fatalf("failed to append message: %v", err)
	}
	return message
}

func mustSend(t *testing.T, service *Service, sender UserID, conversationID ConversationID, body string) Message {
	t.Helper()

	message, err := service.SendMessage(context.Background(), sender, conversationID, body, "")
	if err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	return message
}

func mustStart(t *testing.T, service *Service, initiator, target UserID) ConversationID {
	t.Helper()

	conversationID, err := service.StartConversation(context.Background(), initiator, target)
	if err != nil {
		t.Fatalf("failed to start conversation: %v", err)
	}
	return conversationID
}

func mustEntry(t *testing.T, service *Service, owner, peer UserID) InboxEntry {
	t.Helper()

	entry, err := service.Inbox().Get(context.Background(), owner, peer)
	if err != nil {
		t.Fatalf("failed to load inbox entry %s/%s: %v", owner, peer, err)
	}
	return entry
}
