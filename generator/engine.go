package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"newsletter_copilot/logging"
)

// DefaultTimeout 单次模型调用的超时上限。
const DefaultTimeout = 2 * time.Minute

// Engine 根据内容类型和主题生成文本。
type Engine struct {
	catalog *Catalog
	llm     LLMClient
	timeout time.Duration
	logger  logging.Logger
	now     func() time.Time
}

// EngineOption 定制 Engine。
type EngineOption func(*Engine)

// WithTimeout 覆盖单次调用超时；零或负数沿用默认值。
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger 设置日志器。
func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock 替换 time.Now，供测试使用。
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(catalog *Catalog, llm LLMClient, opts ...EngineOption) (*Engine, error) {
	if catalog == nil {
		return nil, errors.New("template catalog is required")
	}
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	e := &Engine{
		catalog: catalog,
		llm:     llm,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Catalog 返回引擎使用的模板目录。
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Generate 让模型围绕 prompt 生成 contentType 类型的内容。
// 先查模板再调用模型，模型输出原样返回。
func (e *Engine) Generate(ctx context.Context, contentType, prompt string) (GeneratedContent, error) {
	tpl, ok := e.catalog.Get(contentType)
	if !ok {
		return GeneratedContent{}, fmt.Errorf("%w: %q", ErrUnknownContentType, contentType)
	}
	if strings.TrimSpace(prompt) == "" {
		return GeneratedContent{}, ErrEmptyPrompt
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.now()
	raw, err := e.llm.Complete(callCtx, BuildPrompt(tpl, prompt))
	if err != nil {
		e.logger.Warn("model call failed",
			logging.String("type", contentType),
			logging.Duration("elapsed", e.now().Sub(start)),
			logging.Error(err),
		)
		return GeneratedContent{}, fmt.Errorf("%w: %s: %w", ErrGenerationUnavailable, contentType, err)
	}
	if err := checkResponse(raw); err != nil {
		return GeneratedContent{}, fmt.Errorf("%w: %s: %w", ErrGenerationUnavailable, contentType, err)
	}

	out := GeneratedContent{
		Type:        contentType,
		Prompt:      prompt,
		Formatting:  tpl.Formatting,
		Text:        raw,
		Length:      utf8.RuneCountInString(raw),
		GeneratedAt: e.now(),
	}
	e.logger.Debug("content generated",
		logging.String("type", contentType),
		logging.Int("length", out.Length),
		logging.Int("target_length", tpl.Length),
	)
	return out, nil
}

// Repurpose 把已有内容改写为 targetType 类型。
func (e *Engine) Repurpose(ctx context.Context, original, targetType string) (GeneratedContent, error) {
	return e.Generate(ctx, targetType, RepurposePrompt(original, targetType))
}
