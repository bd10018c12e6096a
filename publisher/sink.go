// Package publisher writes generated content to disk and hands it to the
// delivery step.
package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"newsletter_copilot/generator"
	"newsletter_copilot/logging"
)

const timestampLayout = "20060102_150405"

// FileSink saves each generated piece as its own file named
// <type>_<YYYYMMDD_HHMMSS>.txt, or .html for html-formatted templates.
type FileSink struct {
	dir    string
	md     goldmark.Markdown
	logger logging.Logger
}

// NewFileSink returns a sink rooted at dir; an empty dir means the working directory.
func NewFileSink(dir string, logger logging.Logger) *FileSink {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	// models asked for html often answer with raw HTML; keep it
	md := goldmark.New(goldmark.WithRendererOptions(html.WithUnsafe()))
	return &FileSink{dir: dir, md: md, logger: logger}
}

// Save writes content and returns the path of the new file. An existing
// file is never overwritten; a numeric suffix is added instead.
func (s *FileSink) Save(_ context.Context, content generator.GeneratedContent) (string, error) {
	if err := generator.CheckTypeName(content.Type); err != nil {
		return "", err
	}

	body := []byte(content.Text)
	ext := ".txt"
	if content.Formatting == generator.FormatHTML {
		rendered, err := s.toHTML(content.Text)
		if err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
		body = rendered
		ext = ".html"
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	base := fmt.Sprintf("%s_%s", content.Type, content.GeneratedAt.Format(timestampLayout))
	for n := 1; ; n++ {
		name := base + ext
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(body); err != nil {
			f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		s.logger.Info("content saved",
			logging.String("type", content.Type),
			logging.String("path", path),
			logging.Int("length", content.Length),
		)
		return path, nil
	}
}

// toHTML renders Markdown; raw HTML in the text passes through unchanged.
func (s *FileSink) toHTML(text string) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
