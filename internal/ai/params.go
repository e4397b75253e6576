package ai

import (
	"strings"
	"unicode"
)

// 与下游 OpenAI 兼容接口对齐的参数规整表:
// 驼峰一律转下划线, 不支持的键丢弃, output_length 改名 max_tokens
var (
	droppedParams = map[string]struct{}{
		"top_k":              {},
		"repetition_penalty": {},
	}
	renamedParams = map[string]string{
		"output_length": "max_tokens",
	}
)

// CamelToSnake converts camelCase keys to snake_case.
func CamelToSnake(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// boundary: previous is lower/digit, or next is lower
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeParams 规整采样参数, 纯函数且幂等, 两个入口统一使用
func NormalizeParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for key, val := range params {
		key = CamelToSnake(key)
		if _, drop := droppedParams[key]; drop {
			continue
		}
		if renamed, ok := renamedParams[key]; ok {
			key = renamed
		}
		out[key] = val
	}
	return out
}
