// Package text 提供日志与错误信息里用到的字符串裁剪。
package text

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most max runes, appending "..." when it was shortened.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// Snippet collapses whitespace in a response body so it fits on one log line.
func Snippet(body []byte, max int) string {
	return Truncate(strings.Join(strings.Fields(string(body)), " "), max)
}
