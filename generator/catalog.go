package generator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// 内置内容类型。
const (
	TypeNewsletter = "newsletter"
	TypeTweet      = "tweet"
)

// Catalog 按内容类型保存模板；查询返回副本，调用方无法改动已注册的模板。
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]ContentTemplate
}

// NewCatalog 创建空目录。
func NewCatalog() *Catalog {
	return &Catalog{templates: make(map[string]ContentTemplate)}
}

// DefaultCatalog 返回带 newsletter 与 tweet 两个内置模板的目录。
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, tpl := range builtinTemplates() {
		// 内置模板必然合法
		_ = c.Register(tpl)
	}
	return c
}

func builtinTemplates() []ContentTemplate {
	return []ContentTemplate{
		{
			Type: TypeNewsletter,
			Framework: []Section{
				{Name: "intro", Weight: 0.15, Elements: []string{"hook", "topic_introduction"}},
				{Name: "body", Weight: 0.75, Elements: []string{"main_points", "detailed_explanation", "examples", "benefits_or_challenges"}},
				{Name: "call_to_action", Weight: 0.10, Elements: []string{"action_prompt", "value_proposition"}},
			},
			Tone:       "uplifting",
			Length:     1000,
			Formatting: FormatPlainText,
		},
		{
			Type: TypeTweet,
			Framework: []Section{
				{Name: "hook", Weight: 0.3},
				{Name: "message", Weight: 0.5},
				{Name: "hashtags", Weight: 0.2},
			},
			Tone:       "engaging",
			Length:     140,
			Formatting: FormatPlainText,
		},
	}
}

// Register 新增模板：类型不可重复，长度须为正，格式须可识别（为空时按纯文本）。
func (c *Catalog) Register(tpl ContentTemplate) error {
	tpl, err := checkTemplate(tpl)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.templates[tpl.Type]; exists {
		return fmt.Errorf("template %q already registered", tpl.Type)
	}
	c.templates[tpl.Type] = tpl.clone()
	return nil
}

// Override 注册 tpl，同类型已有模板则替换，返回值表示是否发生替换。
func (c *Catalog) Override(tpl ContentTemplate) (bool, error) {
	tpl, err := checkTemplate(tpl)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.templates[tpl.Type]
	c.templates[tpl.Type] = tpl.clone()
	return exists, nil
}

// CheckTypeName 拒绝不能安全用作文件名的类型名（含路径分隔符、"." 或 ".."）。
func CheckTypeName(name string) error {
	switch {
	case name == "":
		return errors.New("content type is required")
	case name == "." || name == "..":
		return fmt.Errorf("invalid content type %q", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("invalid content type %q: path separators not allowed", name)
	}
	return nil
}

func checkTemplate(tpl ContentTemplate) (ContentTemplate, error) {
	if err := CheckTypeName(tpl.Type); err != nil {
		return tpl, err
	}
	if tpl.Length <= 0 {
		return tpl, fmt.Errorf("template %q: length must be > 0", tpl.Type)
	}
	if tpl.Formatting == "" {
		tpl.Formatting = FormatPlainText
	}
	if !tpl.Formatting.Valid() {
		return tpl, fmt.Errorf("template %q: unknown formatting %q", tpl.Type, tpl.Formatting)
	}
	return tpl, nil
}

// Get 返回 contentType 对应的模板。
func (c *Catalog) Get(contentType string) (ContentTemplate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tpl, ok := c.templates[contentType]
	if !ok {
		return ContentTemplate{}, false
	}
	return tpl.clone(), true
}

// Types 按字母序列出已注册的类型。
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.templates))
	for k := range c.templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
