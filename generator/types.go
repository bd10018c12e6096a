package generator

import (
	"fmt"
	"time"
)

// Formatting 模板要求的输出格式。
type Formatting string

const (
	FormatPlainText Formatting = "plain_text"
	FormatHTML      Formatting = "html"
)

// Valid 判断是否为已知格式。
func (f Formatting) Valid() bool {
	return f == FormatPlainText || f == FormatHTML
}

// Section 结构中的一节：名称、相对权重及需覆盖的要素。
type Section struct {
	Name     string   `yaml:"name" json:"name"`
	Weight   float64  `yaml:"weight" json:"weight"`
	Elements []string `yaml:"elements,omitempty" json:"elements,omitempty"`
}

// ContentTemplate 描述某类内容的生成方式。
type ContentTemplate struct {
	Type       string
	Framework  []Section
	Tone       string
	Length     int
	Formatting Formatting
}

// weightTolerance 权重求和时容忍的浮点误差。
const weightTolerance = 0.001

// Validate 返回模板配置告警；权重之和不为 1.0 只告警，不报错。
func (t ContentTemplate) Validate() []string {
	var warnings []string
	var sum float64
	for _, s := range t.Framework {
		if s.Weight < 0 || s.Weight > 1 {
			warnings = append(warnings, fmt.Sprintf("section %q weight %.2f outside [0,1]", s.Name, s.Weight))
		}
		sum += s.Weight
	}
	if len(t.Framework) > 0 && (sum < 1-weightTolerance || sum > 1+weightTolerance) {
		warnings = append(warnings, fmt.Sprintf("framework weights sum to %.3f, want 1.0", sum))
	}
	return warnings
}

func (t ContentTemplate) clone() ContentTemplate {
	out := t
	out.Framework = make([]Section, len(t.Framework))
	for i, s := range t.Framework {
		s.Elements = append([]string(nil), s.Elements...)
		out.Framework[i] = s
	}
	return out
}

// GeneratedContent 一次模型产出，只有 Text 会被持久化。
type GeneratedContent struct {
	Type        string
	Prompt      string
	Formatting  Formatting
	Text        string
	Length      int
	GeneratedAt time.Time
}
