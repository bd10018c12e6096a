package generator

import "errors"

var (
	// ErrUnknownContentType 类型没有对应模板，重试无效。
	ErrUnknownContentType = errors.New("unknown content type")
	// ErrEmptyPrompt 主题为空，不会调用模型。
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrGenerationUnavailable 包装模型失败与超时，可重试。
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// IsRetryable 判断 err 是否为可重试的临时生成失败。
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGenerationUnavailable)
}
