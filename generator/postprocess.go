package generator

import (
	"errors"
	"strings"
)

// checkResponse 拒绝空白输出。
func checkResponse(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("model returned empty content")
	}
	return nil
}

// Excerpt 合并空白，最多保留 limit 个字符。
func Excerpt(text string, limit int) string {
	joined := strings.Join(strings.Fields(text), " ")
	runes := []rune(joined)
	if limit <= 0 || len(runes) <= limit {
		return joined
	}
	return string(runes[:limit])
}
