package generator

import (
	"fmt"
	"strings"
)

// 各模型通用的消息角色。
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Prompt 表示发送给 LLM 的消息集合：一条系统指令加一条用户消息。
type Prompt struct {
	System string
	User   string
}

// Message 单条带角色的消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages 按顺序展开为对话消息。
func (p Prompt) Messages() []Message {
	return []Message{
		{Role: RoleSystem, Content: p.System},
		{Role: RoleUser, Content: p.User},
	}
}

// BuildPrompt 根据模板和主题生成提示词。
// 语气、长度上限与结构写入系统指令，主题同时作为用户消息发送。
func BuildPrompt(tpl ContentTemplate, topic string) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate %s content:\n", tpl.Type))
	sb.WriteString(fmt.Sprintf("- Tone: %s\n", tpl.Tone))
	sb.WriteString(fmt.Sprintf("- Length: %d chars max\n", tpl.Length))
	sb.WriteString(fmt.Sprintf("- Formatting: %s\n", tpl.Formatting))
	if len(tpl.Framework) > 0 {
		sb.WriteString("- Framework:\n")
		for _, s := range tpl.Framework {
			sb.WriteString(fmt.Sprintf("  - %s (weight %.2f)", s.Name, s.Weight))
			if len(s.Elements) > 0 {
				sb.WriteString(": ")
				sb.WriteString(strings.Join(s.Elements, ", "))
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString(fmt.Sprintf("Topic: %s", topic))

	return Prompt{
		System: sb.String(),
		User:   topic,
	}
}

// RepurposePrompt 生成把 original 改写为 targetType 的提示词。
func RepurposePrompt(original, targetType string) string {
	return fmt.Sprintf("Repurpose this content into %s: %s", targetType, original)
}
