package telegram

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage cuts text into chunks of at most maxLen runes, preferring to
// break after a newline in the second half of a chunk.
func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > maxLen {
		cut := maxLen
		if nl := lastNewline(runes[:maxLen]); nl >= maxLen/2 {
			cut = nl + 1
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}

// FixMarkdown closes an unterminated code fence or inline code span so that
// model output renders in legacy Markdown mode.
func FixMarkdown(text string) string {
	if strings.Count(text, "```")%2 != 0 {
		text += "\n```"
	}

	inFence := false
	inline := false
	for i := 0; i < len(text); i++ {
		if strings.HasPrefix(text[i:], "```") {
			inFence = !inFence
			i += 2
			continue
		}
		if !inFence && text[i] == '`' {
			inline = !inline
		}
	}
	if inline {
		text += "`"
	}
	return text
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown escapes user text, such as session names, for legacy Markdown.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
