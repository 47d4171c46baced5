package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChatMetrics counts the operations of the messaging core. A nil receiver is
// a no-op so callers can run without a registry.
type ChatMetrics struct {
	MessagesSent        prometheus.Counter
	MessagesEdited      prometheus.Counter
	MessagesDeleted     prometheus.Counter
	PreviewRepairs      prometheus.Counter
	ConversationsPurged prometheus.Counter
	FanoutFailures      prometheus.Counter
}

// NewChatMetrics registers the chat counters on the provided registerer.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	factory := promauto.With(reg)
	return &ChatMetrics{
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "huddle_chat_messages_sent_total",
			Help: "Messages appended to conversation logs.",
		}),
		MessagesEdited: factory.NewCounter(prometheus.CounterOpts{
			Name: "huddle_chat_messages_edited_total",
			Help: "Messages edited within the edit window.",
		}),
		MessagesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "huddle_chat_messages_deleted_total",
			Help: "Individual messages deleted by their author.",
		}),
		PreviewRepairs: factory.NewCounter(prometheus.CounterOpts{
			Name: "huddle_chat_preview_repairs_total",
			Help: "Inbox preview recomputations after edit or delete of the latest message.",
		}),
		ConversationsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "huddle_chat_conversations_purged_total",
			Help: "Bulk conversation deletions.",
		}),
		FanoutFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "huddle_chat_fanout_failures_total",
			Help: "Inbox dual-writes that completed partially and rely on retry.",
		}),
	}
}

func (m *ChatMetrics) incr(counter prometheus.Counter) {
	if m == nil || counter == nil {
		return
	}
	counter.Inc()
}

// Sent records one appended message.
func (m *ChatMetrics) Sent() {
	if m == nil {
		return
	}
	m.incr(m.MessagesSent)
}

// Edited records one successful edit.
func (m *ChatMetrics) Edited() {
	if m == nil {
		return
	}
	m.incr(m.MessagesEdited)
}

// Deleted records one single-message delete.
func (m *ChatMetrics) Deleted() {
	if m == nil {
		return
	}
	m.incr(m.MessagesDeleted)
}

// PreviewRepaired records one derived-preview recomputation.
func (m *ChatMetrics) PreviewRepaired() {
	if m == nil {
		return
	}
	m.incr(m.PreviewRepairs)
}

// Purged records one bulk conversation deletion.
func (m *ChatMetrics) Purged() {
	if m == nil {
		return
	}
	m.incr(m.ConversationsPurged)
}

// FanoutFailed records one partial dual-write.
func (m *ChatMetrics) FanoutFailed() {
	if m == nil {
		return
	}
	m.incr(m.FanoutFailures)
}

// Handler exposes the registry over HTTP.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
