package service

import (
	"strings"
	"unicode"

	"github.com/set-night/omegachat/internal/config"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// nameCategories is checked in order; the first match prefixes the name.
var nameCategories = []struct {
	label    string
	keywords []string
}{
	{"Code", []string{"code", "programming", "python", "javascript", "golang", "html", "css", "function", "script"}},
	{"Analysis", []string{"analyze", "analysis", "data", "statistics", "report", "insights"}},
	{"Writing", []string{"write", "essay", "article", "content", "blog", "story"}},
	{"Help", []string{"help", "how to", "explain", "tutorial", "guide", "assistance"}},
	{"Research", []string{"research", "find", "search", "information", "study"}},
	{"Creative", []string{"create", "design", "generate", "make", "build"}},
	{"Question", []string{"what", "why", "how", "when", "where", "who"}},
	{"Math", []string{"calculate", "solve", "math", "equation", "formula"}},
	{"Planning", []string{"plan", "schedule", "organize", "strategy", "roadmap"}},
	{"Review", []string{"review", "check", "evaluate", "assess", "feedback"}},
}

// SessionName derives a display name from the first user message: a keyword
// category followed by the first words, cut to MaxSessionNameLen runes.
func SessionName(message string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, message)
	words := strings.Fields(clean)
	if len(words) == 0 {
		return config.FallbackSessionName
	}
	joined := strings.Join(words, " ")
	title := cases.Title(language.English)

	var name string
	if label := categorize(joined); label != "" {
		name = label + ": " + title.String(strings.Join(words[:min(3, len(words))], " "))
	} else {
		name = title.String(strings.Join(words[:min(4, len(words))], " "))
	}

	if r := []rune(name); len(r) > config.MaxSessionNameLen {
		name = string(r[:config.MaxSessionNameLen-3]) + "..."
	}
	return name
}

func categorize(text string) string {
	for _, c := range nameCategories {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return c.label
			}
		}
	}
	return ""
}
