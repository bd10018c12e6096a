package runloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter_copilot/generator"
	"newsletter_copilot/schedule"
	"newsletter_copilot/topics"
)

type fakeTopics struct {
	topics []string
	err    error
	calls  int
}

func (f *fakeTopics) Next(context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	t := f.topics[0]
	f.topics = append(f.topics[1:], t)
	return t, nil
}

type fakeEngine struct {
	mu sync.Mutex
	// failures per content type, consumed one per call
	failures map[string][]error
	calls    []string
}

func (f *fakeEngine) Generate(_ context.Context, contentType, prompt string) (generator.GeneratedContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, contentType)
	if errs := f.failures[contentType]; len(errs) > 0 {
		f.failures[contentType] = errs[1:]
		if errs[0] != nil {
			return generator.GeneratedContent{}, errs[0]
		}
	}
	text := fmt.Sprintf("%s about %s", contentType, prompt)
	return generator.GeneratedContent{Type: contentType, Prompt: prompt, Text: text, Length: len(text)}, nil
}

type fakeSink struct {
	saved []generator.GeneratedContent
	err   error
}

func (f *fakeSink) Save(_ context.Context, c generator.GeneratedContent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, c)
	return fmt.Sprintf("out/%s_%d.txt", c.Type, len(f.saved)), nil
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = RetryConfig{MaxAttempts: 3, InitialDelay: 0, MaxDelay: time.Millisecond, Multiplier: 1}
	return cfg
}

func transient() error {
	return fmt.Errorf("%w: tweet: %v", generator.ErrGenerationUnavailable, errors.New("connection refused"))
}

func TestRunCycle_Success(t *testing.T) {
	src := &fakeTopics{topics: []string{"Hope"}}
	eng := &fakeEngine{}
	sink := &fakeSink{}
	reg := schedule.NewRegistry()

	l, err := New(src, eng, sink, reg, fastConfig(), nil)
	require.NoError(t, err)

	report, err := l.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Hope", report.Topic)
	require.NotNil(t, report.Long)
	require.NotNil(t, report.Short)
	assert.Equal(t, "newsletter about Hope", report.Long.Content.Text)
	assert.Equal(t, "tweet about Hope", report.Short.Content.Text)
	assert.Equal(t, []string{"newsletter", "tweet"}, eng.calls)
	assert.Len(t, sink.saved, 2)

	require.NotNil(t, report.Trigger)
	assert.Equal(t, "09:50", report.Trigger.At)
	assert.Equal(t, "newsletter about Hope", report.Trigger.Payload)
	assert.Equal(t, 1, reg.Len())
	assert.False(t, report.Finished.Before(report.Started))
}

func TestRunCycle_ShortFailureKeepsNewsletter(t *testing.T) {
	eng := &fakeEngine{failures: map[string][]error{
		"tweet": {transient(), transient(), transient()},
	}}
	sink := &fakeSink{}
	reg := schedule.NewRegistry()

	l, err := New(&fakeTopics{topics: []string{"Hope"}}, eng, sink, reg, fastConfig(), nil)
	require.NoError(t, err)

	report, err := l.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, generator.ErrGenerationUnavailable)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageGenerateShort, se.Stage)

	require.NotNil(t, report.Long)
	assert.Nil(t, report.Short)
	require.Len(t, sink.saved, 1)
	assert.Equal(t, "newsletter", sink.saved[0].Type)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{"newsletter", "tweet", "tweet", "tweet"}, eng.calls)
}

func TestRunCycle_RetriesTransientFailure(t *testing.T) {
	eng := &fakeEngine{failures: map[string][]error{
		"newsletter": {transient()},
	}}
	l, err := New(&fakeTopics{topics: []string{"Hope"}}, eng, &fakeSink{}, nil, fastConfig(), nil)
	require.NoError(t, err)

	report, err := l.RunCycle(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report.Long)
	assert.Nil(t, report.Trigger)
	assert.Equal(t, []string{"newsletter", "newsletter", "tweet"}, eng.calls)
}

func TestRunCycle_UnknownTypeNotRetried(t *testing.T) {
	cfg := fastConfig()
	cfg.LongType = "podcast"
	eng := &fakeEngine{failures: map[string][]error{
		"podcast": {fmt.Errorf("%w: podcast", generator.ErrUnknownContentType)},
	}}
	l, err := New(&fakeTopics{topics: []string{"Hope"}}, eng, &fakeSink{}, schedule.NewRegistry(), cfg, nil)
	require.NoError(t, err)

	report, err := l.RunCycle(context.Background())
	assert.ErrorIs(t, err, generator.ErrUnknownContentType)
	assert.Nil(t, report.Long)
	assert.Nil(t, report.Trigger)
	assert.NotNil(t, report.Short)
	assert.Equal(t, []string{"podcast", "tweet"}, eng.calls)
}

func TestRunCycle_TopicFailuresStopBeforeGeneration(t *testing.T) {
	for _, sentinel := range []error{topics.ErrNoTopicsAvailable, topics.ErrPersistence} {
		eng := &fakeEngine{}
		src := &fakeTopics{err: fmt.Errorf("%w: disk full", sentinel)}
		l, err := New(src, eng, &fakeSink{}, nil, fastConfig(), nil)
		require.NoError(t, err)

		report, err := l.RunCycle(context.Background())
		assert.ErrorIs(t, err, sentinel)
		assert.Empty(t, report.Topic)
		assert.Empty(t, eng.calls)

		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageDrawTopic, se.Stage)
	}
}

func TestRunCycle_SaveFailureStillSchedules(t *testing.T) {
	reg := schedule.NewRegistry()
	l, err := New(&fakeTopics{topics: []string{"Hope"}}, &fakeEngine{}, &fakeSink{err: errors.New("read-only fs")}, reg, fastConfig(), nil)
	require.NoError(t, err)

	report, err := l.RunCycle(context.Background())
	require.Error(t, err)
	assert.Nil(t, report.Long)
	assert.NotNil(t, report.Trigger)
	assert.Len(t, report.Errors, 2)
}

func TestNew_Validation(t *testing.T) {
	src, eng, sink := &fakeTopics{}, &fakeEngine{}, &fakeSink{}

	_, err := New(nil, eng, sink, nil, DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Interval = 0
	_, err = New(src, eng, sink, nil, cfg, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.DeliverAt = "quarter to ten"
	_, err = New(src, eng, sink, nil, cfg, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.ShortType = ""
	_, err = New(src, eng, sink, nil, cfg, nil)
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	src := &fakeTopics{topics: []string{"Hope", "Joy"}}
	cfg := fastConfig()
	cfg.Interval = time.Hour
	l, err := New(src, &fakeEngine{}, &fakeSink{}, nil, cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	// let the first cycle finish and the loop enter its idle wait
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, src.calls)
}

func TestRetry_StopsAtMaxAttempts(t *testing.T) {
	calls := 0
	retries := 0
	cfg := RetryConfig{MaxAttempts: 4, IsRetryable: func(error) bool { return true }}
	err := retry(context.Background(), cfg, func(int, error) { retries++ }, func() error {
		calls++
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 4, calls)
	assert.Equal(t, 3, retries)
}

func TestRetry_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, IsRetryable: func(error) bool { return true }}
	calls := 0
	err := retry(ctx, cfg, func(int, error) { cancel() }, func() error {
		calls++
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}.withDefaults()
	assert.Equal(t, time.Second, cfg.delay(1))
	assert.Equal(t, 2*time.Second, cfg.delay(2))
	assert.Equal(t, 4*time.Second, cfg.delay(3))
	assert.Equal(t, 5*time.Second, cfg.delay(4))
}

func TestRetryConfig_DelayLargeAttemptStaysCapped(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 5 * time.Second, MaxDelay: time.Minute, Multiplier: 2}.withDefaults()
	for _, attempt := range []int{10, 35, 64, 200, 5000} {
		assert.Equal(t, time.Minute, cfg.delay(attempt), "attempt %d", attempt)
	}
}
