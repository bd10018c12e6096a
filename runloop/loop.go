// Package runloop drives the daily cycle: draw a topic, generate the
// newsletter and the short-form post, save both, schedule the delivery,
// then wait for the next cycle.
package runloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsletter_copilot/generator"
	"newsletter_copilot/logging"
	"newsletter_copilot/schedule"
	"newsletter_copilot/topics"
)

// TopicSource hands out the next topic.
type TopicSource interface {
	Next(ctx context.Context) (string, error)
}

// ContentGenerator produces content of a given type.
type ContentGenerator interface {
	Generate(ctx context.Context, contentType, prompt string) (generator.GeneratedContent, error)
}

// Sink persists generated content and returns where it went.
type Sink interface {
	Save(ctx context.Context, content generator.GeneratedContent) (string, error)
}

// TriggerRegistrar records a delivery for later.
type TriggerRegistrar interface {
	Register(topic, contentType, payload, at string) (schedule.Trigger, error)
}

// Stage names a step of the cycle.
type Stage string

const (
	StageDrawTopic     Stage = "draw_topic"
	StageGenerateLong  Stage = "generate_long"
	StageGenerateShort Stage = "generate_short"
	StagePersist       Stage = "persist"
	StageTrigger       Stage = "trigger"
)

// StageError ties a cycle failure to the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Output is one generated piece and where it was saved.
type Output struct {
	Content generator.GeneratedContent
	Path    string
}

// CycleReport describes what one cycle produced. Outputs that were saved
// stay in the report even when a later stage failed.
type CycleReport struct {
	Topic    string
	Long     *Output
	Short    *Output
	Trigger  *schedule.Trigger
	Started  time.Time
	Finished time.Time
	Errors   []error
}

// Err joins the stage errors, or nil if the cycle fully succeeded.
func (r CycleReport) Err() error {
	return errors.Join(r.Errors...)
}

// Config tunes the loop.
type Config struct {
	// Interval is the idle time between cycles.
	Interval time.Duration
	// DeliverAt is the HH:MM time of day for the newsletter delivery. Empty
	// disables trigger registration.
	DeliverAt string
	LongType  string
	ShortType string
	Retry     RetryConfig
}

// DefaultConfig mirrors the daily newsletter routine.
func DefaultConfig() Config {
	return Config{
		Interval:  24 * time.Hour,
		DeliverAt: "09:50",
		LongType:  generator.TypeNewsletter,
		ShortType: generator.TypeTweet,
		Retry:     DefaultRetryConfig(),
	}
}

// Loop runs cycles one after another; cycles never overlap.
type Loop struct {
	topics   TopicSource
	engine   ContentGenerator
	sink     Sink
	triggers TriggerRegistrar
	cfg      Config
	logger   logging.Logger
	now      func() time.Time
}

// New builds a loop. triggers may be nil when deliveries aren't scheduled.
func New(topicSource TopicSource, engine ContentGenerator, sink Sink, triggers TriggerRegistrar, cfg Config, logger logging.Logger) (*Loop, error) {
	if topicSource == nil || engine == nil || sink == nil {
		return nil, errors.New("topic source, engine and sink are required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if cfg.LongType == "" || cfg.ShortType == "" {
		return nil, errors.New("long and short content types are required")
	}
	if cfg.DeliverAt != "" {
		if _, err := schedule.ParseTimeOfDay(cfg.DeliverAt); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Retry.IsRetryable == nil {
		cfg.Retry.IsRetryable = generator.IsRetryable
	}
	return &Loop{
		topics:   topicSource,
		engine:   engine,
		sink:     sink,
		triggers: triggers,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run executes cycles until ctx is cancelled. Cycle failures are logged and
// the loop moves on to the next cycle. The idle wait returns as soon as ctx
// ends; a cycle in progress is allowed to reach its next checkpoint.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("run loop started",
		logging.Duration("interval", l.cfg.Interval),
		logging.String("deliver_at", l.cfg.DeliverAt),
	)
	for {
		report, err := l.RunCycle(ctx)
		l.logReport(report, err)

		if ctx.Err() != nil {
			l.logger.Info("run loop stopped")
			return nil
		}

		l.logger.Debug("idle", logging.Duration("wait", l.cfg.Interval))
		timer := time.NewTimer(l.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.logger.Info("run loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunCycle performs one cycle and reports what happened. The returned error
// joins every stage failure. A failure while drawing the topic ends the
// cycle before any generation. A short-form failure leaves the saved
// newsletter and its trigger in place.
func (l *Loop) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{Started: l.now()}
	fail := func(stage Stage, err error) {
		report.Errors = append(report.Errors, &StageError{Stage: stage, Err: err})
	}

	topic, err := l.topics.Next(ctx)
	if err != nil {
		fail(StageDrawTopic, err)
		report.Finished = l.now()
		return report, report.Err()
	}
	report.Topic = topic
	log := l.logger.With(logging.String("topic", topic))
	log.Info("cycle started")

	long, err := l.generate(ctx, log, l.cfg.LongType, topic)
	if err != nil {
		fail(StageGenerateLong, err)
	} else {
		out, err := l.persist(ctx, long)
		if err != nil {
			fail(StagePersist, err)
		} else {
			report.Long = out
		}
		// schedule delivery even if the file write failed; the payload is in memory
		if l.triggers != nil && l.cfg.DeliverAt != "" {
			tr, err := l.triggers.Register(topic, l.cfg.LongType, long.Text, l.cfg.DeliverAt)
			if err != nil {
				fail(StageTrigger, err)
			} else {
				report.Trigger = &tr
			}
		}
	}

	short, err := l.generate(ctx, log, l.cfg.ShortType, topic)
	if err != nil {
		fail(StageGenerateShort, err)
	} else {
		out, err := l.persist(ctx, short)
		if err != nil {
			fail(StagePersist, err)
		} else {
			report.Short = out
		}
	}

	report.Finished = l.now()
	return report, report.Err()
}

func (l *Loop) generate(ctx context.Context, log logging.Logger, contentType, topic string) (generator.GeneratedContent, error) {
	var out generator.GeneratedContent
	err := retry(ctx, l.cfg.Retry,
		func(attempt int, err error) {
			log.Warn("generation failed, retrying",
				logging.String("type", contentType),
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
		},
		func() error {
			var err error
			out, err = l.engine.Generate(ctx, contentType, topic)
			return err
		},
	)
	return out, err
}

func (l *Loop) persist(ctx context.Context, content generator.GeneratedContent) (*Output, error) {
	path, err := l.sink.Save(ctx, content)
	if err != nil {
		return nil, err
	}
	return &Output{Content: content, Path: path}, nil
}

func (l *Loop) logReport(r CycleReport, err error) {
	fields := []logging.Field{
		logging.String("topic", r.Topic),
		logging.Duration("elapsed", r.Finished.Sub(r.Started)),
	}
	if r.Long != nil {
		fields = append(fields, logging.String("newsletter", r.Long.Path), logging.Int("newsletter_length", r.Long.Content.Length))
	}
	if r.Short != nil {
		fields = append(fields, logging.String("short", r.Short.Path), logging.Int("short_length", r.Short.Content.Length))
	}
	if r.Trigger != nil {
		fields = append(fields, logging.String("deliver_at", r.Trigger.At))
	}

	switch {
	case err == nil:
		l.logger.Info("cycle completed", fields...)
	case errors.Is(err, topics.ErrNoTopicsAvailable):
		l.logger.Warn("cycle skipped: no topics available", append(fields, logging.Error(err))...)
	case errors.Is(err, generator.ErrUnknownContentType):
		l.logger.Error("cycle misconfigured", append(fields, logging.Error(err))...)
	default:
		l.logger.Error("cycle finished with errors", append(fields, logging.Error(err))...)
	}
}
