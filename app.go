package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsletter_copilot/config"
	"newsletter_copilot/generator"
	"newsletter_copilot/logging"
	"newsletter_copilot/publisher"
	"newsletter_copilot/runloop"
	"newsletter_copilot/schedule"
	"newsletter_copilot/topics"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg        *config.Config
	logger     logging.Logger
	engine     *generator.Engine
	store      *topics.Store
	sink       *publisher.FileSink
	dispatcher *publisher.Dispatcher
	registry   *schedule.Registry

	closers []func() error
}

// appOptions lets tests swap the model client.
type appOptions struct {
	llm    generator.LLMClient
	logger logging.Logger
}

func loadConfig(path string, verbose bool) (*config.Config, error) {
	resolved, err := config.FindConfig(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: opts.logger}
	if a.logger == nil {
		l, err := logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		a.logger = l
		a.closers = append(a.closers, func() error { _ = l.Sync(); return nil })
	}

	llm := opts.llm
	if llm == nil {
		var err error
		if llm, err = buildLLM(cfg); err != nil {
			return nil, err
		}
		if err := checkModel(ctx, llm); err != nil {
			a.logger.Warn("model server not reachable; generation will retry per cycle",
				logging.String("provider", cfg.LLM.Provider),
				logging.Error(err),
			)
		}
	}

	catalog, err := buildCatalog(cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.engine, err = generator.NewEngine(catalog, llm,
		generator.WithTimeout(cfg.LLM.Timeout),
		generator.WithLogger(a.logger.With(logging.String("component", "engine"))),
	)
	if err != nil {
		return nil, err
	}

	if err := a.openTopics(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.sink = publisher.NewFileSink(cfg.Output.Dir, a.logger.With(logging.String("component", "sink")))
	a.dispatcher = publisher.NewDispatcher(a.logger.With(logging.String("component", "dispatcher")))
	a.registry = schedule.NewRegistry()
	return a, nil
}

func (a *app) openTopics(ctx context.Context) error {
	seed := topics.DefaultSeed
	if a.cfg.Topics.SeedFile != "" {
		s, err := topics.LoadSeedFile(a.cfg.Topics.SeedFile)
		if err != nil {
			return err
		}
		seed = s
	}

	var backend topics.Backend
	switch a.cfg.Topics.Backend {
	case "sqlite":
		b, err := topics.NewSQLiteBackend(a.cfg.Topics.Path)
		if err != nil {
			return fmt.Errorf("open topic database: %w", err)
		}
		a.closers = append(a.closers, b.Close)
		backend = b
	default:
		backend = topics.NewFileBackend(a.cfg.Topics.Path)
	}

	store, err := topics.Open(ctx, backend, seed,
		topics.WithLogger(a.logger.With(logging.String("component", "topics"))))
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// deliver hands a due trigger to the dispatcher.
func (a *app) deliver(ctx context.Context, tr schedule.Trigger) error {
	return a.dispatcher.Send(ctx, publisher.Delivery{
		Topic:       tr.Topic,
		ContentType: tr.ContentType,
		Content:     tr.Payload,
	})
}

func (a *app) newRunner() (*schedule.Runner, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	return schedule.NewRunner(a.registry, a.deliver, loc,
		a.logger.With(logging.String("component", "triggers"))), nil
}

func (a *app) newLoop() (*runloop.Loop, error) {
	lc := runloop.Config{
		Interval:  a.cfg.Schedule.Interval,
		DeliverAt: a.cfg.Schedule.DeliverAt,
		LongType:  a.cfg.Content.LongType,
		ShortType: a.cfg.Content.ShortType,
		Retry: runloop.RetryConfig{
			MaxAttempts:  a.cfg.Retry.MaxAttempts,
			InitialDelay: a.cfg.Retry.InitialDelay,
			MaxDelay:     a.cfg.Retry.MaxDelay,
			Multiplier:   a.cfg.Retry.Multiplier,
		},
	}
	return runloop.New(a.store, a.engine, a.sink, a.registry, lc,
		a.logger.With(logging.String("component", "runloop")))
}

func buildCatalog(cfg *config.Config, logger logging.Logger) (*generator.Catalog, error) {
	catalog := generator.DefaultCatalog()
	for _, tc := range cfg.Templates {
		tpl := tc.Template()
		replaced, err := catalog.Override(tpl)
		if err != nil {
			return nil, err
		}
		logger.Debug("template loaded", logging.String("type", tpl.Type), logging.Bool("replaced", replaced))
	}
	for _, typ := range catalog.Types() {
		tpl, _ := catalog.Get(typ)
		for _, w := range tpl.Validate() {
			logger.Warn("template warning", logging.String("type", typ), logging.String("warning", w))
		}
	}
	for _, typ := range []string{cfg.Content.LongType, cfg.Content.ShortType} {
		if _, ok := catalog.Get(typ); !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", generator.ErrUnknownContentType, typ, strings.Join(catalog.Types(), ", "))
		}
	}
	return catalog, nil
}

func buildLLM(cfg *config.Config) (generator.LLMClient, error) {
	settings := cfg.LLMSettings()
	switch settings.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if settings.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "ollama":
		return generator.NewOllamaLLM(settings), nil
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", settings.Provider)
	}
}

// checkModel pings clients that support it; others pass.
func checkModel(ctx context.Context, llm generator.LLMClient) error {
	p, ok := llm.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// pingTimeout bounds the startup reachability check.
const pingTimeout = 3 * time.Second

// shutdownTimeout bounds waiting for an in-flight delivery on exit.
const shutdownTimeout = 10 * time.Second
