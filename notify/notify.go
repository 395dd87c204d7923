// Package notify defines the outbound delivery seam for reminders. Channels
// wrap one transport each (push, email, sms); the registry is the process-wide
// set the dispatcher fans out to.
package notify

import (
	"context"
	"sort"
	"sync"

	"github.com/emberloop/ember/domain"
)

// Message is the rendered payload handed to a channel.
type Message struct {
	// ReminderID ties the delivery back to its reminder for audit logs.
	ReminderID string `json:"reminderId"`
	// UserID addresses the recipient.
	UserID string `json:"userId"`
	// Title is the short headline.
	Title string `json:"title"`
	// Body is the nudge text, already rendered for the variant.
	Body string `json:"body"`
	// Tone is the escalation voice the body was rendered with.
	Tone domain.ReminderTone `json:"tone"`
	// Variant is the spark verbosity this nudge points at.
	Variant domain.SparkVariant `json:"variant"`
}

// Channel is one delivery transport. Implementations are safe for concurrent
// use.
type Channel interface {
	// ID uniquely names this channel instance within the registry.
	ID() string
	// Type reports the transport class.
	Type() domain.ReminderChannel
	// IsEnabled reports whether the channel currently accepts sends.
	IsEnabled() bool
	// Send delivers the message, returning an error when the transport
	// rejects it.
	Send(ctx context.Context, msg Message) error
	// Test verifies connectivity without delivering to a user.
	Test(ctx context.Context) error
}

// Registry holds the configured channels. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds or replaces a channel by id.
func (r *Registry) Register(ch Channel) error {
	if ch == nil {
		return domain.NewError(domain.KindValidation, "channel is required")
	}
	if ch.ID() == "" {
		return domain.NewError(domain.KindValidation, "channel id must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID()] = ch
	return nil
}

// Unregister removes a channel, reporting whether it existed.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.channels[id]
	delete(r.channels, id)
	return ok
}

// Get returns the channel registered under id.
func (r *Registry) Get(id string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// All lists every registered channel in id order.
func (r *Registry) All() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Enabled lists the enabled channels of the given transport classes, in id
// order. An empty type set means all types.
func (r *Registry) Enabled(types ...domain.ReminderChannel) []Channel {
	want := make(map[domain.ReminderChannel]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	var out []Channel
	for _, ch := range r.All() {
		if !ch.IsEnabled() {
			continue
		}
		if len(want) > 0 {
			if _, ok := want[ch.Type()]; !ok {
				continue
			}
		}
		out = append(out, ch)
	}
	return out
}
