package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"newsletter_copilot/logging"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:50")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 50}, tod)
	assert.Equal(t, "50 9 * * *", tod.CronSpec())

	for _, bad := range []string{"", "9:5", "25:00", "12:60", "noon"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDay_Next(t *testing.T) {
	tod := TimeOfDay{Hour: 9, Minute: 50}
	morning := time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 31, 9, 50, 0, 0, time.UTC), tod.Next(morning))

	exact := time.Date(2024, 1, 31, 9, 50, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 9, 50, 0, 0, time.UTC), tod.Next(exact))

	evening := time.Date(2024, 12, 31, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 9, 50, 0, 0, time.UTC), tod.Next(evening))
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	tr, err := r.Register("Faith Over Fear", "newsletter", "body", "09:50")
	require.NoError(t, err)
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, "Faith Over Fear", tr.Topic)
	assert.Equal(t, "body", tr.Payload)
	assert.Equal(t, "09:50", tr.At)
	assert.False(t, tr.CreatedAt.IsZero())

	got, ok := r.Get(tr.ID)
	require.True(t, ok)
	assert.Equal(t, tr, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("", "newsletter", "x", "09:50")
	assert.Error(t, err)
	_, err = r.Register("topic", "newsletter", "x", "9am")
	assert.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SameTopicReplaces(t *testing.T) {
	r := NewRegistry()
	first, err := r.Register("Hope", "newsletter", "v1", "09:50")
	require.NoError(t, err)
	second, err := r.Register("Hope", "newsletter", "v2", "10:00")
	require.NoError(t, err)

	assert.Equal(t, 1, r.Len())
	_, ok := r.Get(first.ID)
	assert.False(t, ok)
	assert.Equal(t, []Trigger{second}, r.List())
}

func TestRegistry_RemoveAndList(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	a, _ := r.Register("A", "newsletter", "a", "09:00")
	b, _ := r.Register("B", "newsletter", "b", "09:00")
	c, _ := r.Register("C", "newsletter", "c", "09:00")

	assert.Equal(t, []Trigger{a, b, c}, r.List())
	assert.True(t, r.Remove(b.ID))
	assert.False(t, r.Remove(b.ID))
	assert.Equal(t, []Trigger{a, c}, r.List())
}

func TestRegistry_OnRegister(t *testing.T) {
	r := NewRegistry()
	var seen []string
	r.OnRegister(func(tr Trigger) { seen = append(seen, tr.Topic) })

	_, _ = r.Register("A", "newsletter", "a", "09:00")
	_, _ = r.Register("B", "newsletter", "b", "bad")

	assert.Equal(t, []string{"A"}, seen)
}

type recordingDeliverer struct {
	mu  sync.Mutex
	got []Trigger
	err error
}

func (d *recordingDeliverer) deliver(_ context.Context, tr Trigger) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, tr)
	return d.err
}

func TestRunner_SchedulesRegisteredTriggers(t *testing.T) {
	reg := NewRegistry()
	existing, err := reg.Register("Before", "newsletter", "x", "07:30")
	require.NoError(t, err)

	d := &recordingDeliverer{}
	r := NewRunner(reg, d.deliver, time.UTC, nil)
	assert.Equal(t, 1, r.Pending())

	tr, err := reg.Register("After", "newsletter", "y", "09:50")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Pending())

	next, ok := r.NextRun(tr.ID)
	require.True(t, ok)
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 50, next.Minute())
	assert.True(t, next.After(time.Now()))

	_, ok = r.NextRun(existing.ID)
	assert.True(t, ok)
}

func TestRunner_LogsNextFireTime(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	reg := NewRegistry()
	r := NewRunner(reg, (&recordingDeliverer{}).deliver, time.UTC, logging.Wrap(zap.New(core)))
	r.now = func() time.Time { return time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC) }

	_, err := reg.Register("Hope", "newsletter", "x", "09:50")
	require.NoError(t, err)

	entries := logs.FilterMessage("delivery scheduled").All()
	require.Len(t, entries, 1)
	next, ok := entries[0].ContextMap()["next"].(time.Time)
	require.True(t, ok)
	assert.True(t, next.Equal(time.Date(2024, 2, 1, 9, 50, 0, 0, time.UTC)), "next = %s", next)
}

func TestRunner_FireDeliversOnce(t *testing.T) {
	reg := NewRegistry()
	d := &recordingDeliverer{}
	r := NewRunner(reg, d.deliver, time.UTC, nil)

	tr, err := reg.Register("Hope", "newsletter", "payload", "09:50")
	require.NoError(t, err)

	r.fire(tr.ID)
	r.fire(tr.ID)

	require.Len(t, d.got, 1)
	assert.Equal(t, tr, d.got[0])
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, r.Pending())
	_, ok := r.NextRun(tr.ID)
	assert.False(t, ok)
}

func TestRunner_FailedDeliveryIsDropped(t *testing.T) {
	reg := NewRegistry()
	d := &recordingDeliverer{err: errors.New("smtp down")}
	r := NewRunner(reg, d.deliver, time.UTC, nil)

	tr, _ := reg.Register("Hope", "newsletter", "payload", "09:50")
	r.fire(tr.ID)

	assert.Len(t, d.got, 1)
	assert.Equal(t, 0, reg.Len())
}

func TestRunner_ReplacedTopicUnschedulesOld(t *testing.T) {
	reg := NewRegistry()
	r := NewRunner(reg, (&recordingDeliverer{}).deliver, time.UTC, nil)

	first, _ := reg.Register("Hope", "newsletter", "v1", "09:50")
	second, _ := reg.Register("Hope", "newsletter", "v2", "09:50")

	assert.Equal(t, 1, r.Pending())
	_, ok := r.NextRun(first.ID)
	assert.False(t, ok)
	_, ok = r.NextRun(second.ID)
	assert.True(t, ok)
}

func TestRunner_StartStop(t *testing.T) {
	r := NewRunner(NewRegistry(), (&recordingDeliverer{}).deliver, nil, nil)
	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
}
