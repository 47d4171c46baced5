package events

import (
	"context"
	"errors"
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
	return fmt.Sprintf("evt-%d", g.count), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:huddle_events_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Event{}, &Comment{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return time.Unix(1750000000, 0).UTC() },
		IDProvider: &sequentialIDGenerator{},
	})
	if err != nil {
		t.Fatalf("failed to construct events service: %v", err)
	}
	return service
}

func mustCreateEvent(t *testing.T, service *Service, title string, startsAt int64) Event {
	t.Helper()

	event, err := service.CreateEvent(context.Background(), "bob", directory.RoleStaff, NewEvent{
		Title:      title,
		StartsAtMS: startsAt,
	})
	if err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	return event
}

func TestCreateEventRequiresManagerRole(t *testing.T) {
	service := newTestService(t)

	_, err := service.CreateEvent(context.Background(), "alice", directory.RoleMember, NewEvent{Title: "Picnic", StartsAtMS: 1})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected member denial, got %v", err)
	}
	event := mustCreateEvent(t, service, "Picnic", 1)
	if event.CreatedBy != "bob" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestListEventsOrdersByStartTime(t *testing.T) {
	service := newTestService(t)
	mustCreateEvent(t, service, "Later", 5000)
	mustCreateEvent(t, service, "Sooner", 1000)

	listed, err := service.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(listed) != 2 || listed[0].Title != "Sooner" {
		t.Fatalf("expected chronological order, got %+v", listed)
	}
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	service := newTestService(t)
	event := mustCreateEvent(t, service, "Draft", 1000)

	updated, err := service.UpdateEvent(context.Background(), directory.RoleAdmin, event.EventID, NewEvent{
		Title:      "Final",
		StartsAtMS: 2000,
	})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated.Title != "Final" || updated.StartsAtMS != 2000 {
		t.Fatalf("unexpected updated event %+v", updated)
	}

	if _, err := service.UpdateEvent(context.Background(), directory.RoleStaff, "ghost", NewEvent{Title: "X", StartsAtMS: 1}); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected missing event rejection, got %v", err)
	}

	if _, err := service.AddComment(context.Background(), "alice", event.EventID, "", "see you there"); err != nil {
		t.Fatalf("unexpected comment error: %v", err)
	}
	if err := service.DeleteEvent(context.Background(), directory.RoleStaff, event.EventID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	comments, err := service.ListComments(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected comment thread removed with the event, got %d", len(comments))
	}
}

func TestAddCommentThreadsUnderSameEvent(t *testing.T) {
	service := newTestService(t)
	event := mustCreateEvent(t, service, "Picnic", 1000)
	other := mustCreateEvent(t, service, "Cleanup", 2000)

	parent, err := service.AddComment(context.Background(), "alice", event.EventID, "", "who brings snacks?")
	if err != nil {
		t.Fatalf("unexpected comment error: %v", err)
	}
	reply, err := service.AddComment(context.Background(), "bob", event.EventID, parent.CommentID, "I will")
	if err != nil {
		t.Fatalf("unexpected reply error: %v", err)
	}
	if reply.ParentID != parent.CommentID {
		t.Fatalf("expected threaded reply, got %+v", reply)
	}

	if _, err := service.AddComment(context.Background(), "bob", other.EventID, parent.CommentID, "wrong thread"); !errors.Is(err, ErrParentMismatch) {
		t.Fatalf("expected cross-event parent rejection, got %v", err)
	}
	if _, err := service.AddComment(context.Background(), "bob", event.EventID, "ghost", "orphan"); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("expected missing parent rejection, got %v", err)
	}
	if _, err := service.AddComment(context.Background(), "bob", "ghost", "", "void"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected missing event rejection, got %v", err)
	}
}
