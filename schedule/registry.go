// Package schedule holds delivery triggers: "deliver this content about
// this topic at this time of day". The Registry only records triggers; the
// Runner turns them into cron jobs.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Trigger is one pending delivery.
type Trigger struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	ContentType string    `json:"content_type"`
	Payload     string    `json:"payload"`
	At          string    `json:"at"` // HH:MM, 24h clock
	CreatedAt   time.Time `json:"created_at"`
}

// TimeOfDay is a parsed HH:MM value.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" on a 24 hour clock.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (want HH:MM): %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// CronSpec returns the daily 5-field cron expression for the time.
func (t TimeOfDay) CronSpec() string {
	return fmt.Sprintf("%d %d * * *", t.Minute, t.Hour)
}

// Next returns the first occurrence of t strictly after from, in from's location.
func (t TimeOfDay) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), t.Hour, t.Minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Registry is the set of pending triggers, keyed by topic: registering a
// topic again replaces its earlier trigger.
type Registry struct {
	mu        sync.Mutex
	byID      map[string]Trigger
	byTopic   map[string]string
	listeners []func(Trigger)
	now       func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]Trigger),
		byTopic: make(map[string]string),
		now:     time.Now,
	}
}

// OnRegister adds a callback run after each successful Register.
func (r *Registry) OnRegister(fn func(Trigger)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Register records a delivery of payload about topic at the given time of day.
func (r *Registry) Register(topic, contentType, payload, at string) (Trigger, error) {
	if topic == "" {
		return Trigger{}, errors.New("trigger topic is required")
	}
	if _, err := ParseTimeOfDay(at); err != nil {
		return Trigger{}, err
	}

	tr := Trigger{
		ID:          newID(),
		Topic:       topic,
		ContentType: contentType,
		Payload:     payload,
		At:          at,
		CreatedAt:   r.now(),
	}

	r.mu.Lock()
	if old, ok := r.byTopic[topic]; ok {
		delete(r.byID, old)
	}
	r.byID[tr.ID] = tr
	r.byTopic[topic] = tr.ID
	listeners := append([]func(Trigger){}, r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(tr)
	}
	return tr, nil
}

// Get returns the trigger with the given ID.
func (r *Registry) Get(id string) (Trigger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.byID[id]
	return tr, ok
}

// Remove deletes a trigger. It reports whether the trigger existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	if r.byTopic[tr.Topic] == id {
		delete(r.byTopic, tr.Topic)
	}
	return true
}

// List returns all triggers, oldest first.
func (r *Registry) List() []Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Trigger, 0, len(r.byID))
	for _, tr := range r.byID {
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of pending triggers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// newID generates a UUIDv7, falling back to v4.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
