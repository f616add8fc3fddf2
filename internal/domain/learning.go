package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	summaryExcerptLen = 100
	// ScoreStep is added to a learning's score on a successful application
	// and subtracted on a failed one.
	ScoreStep = 0.1
)

// Learning is a user-supplied correction applied to future prompts.
type Learning struct {
	ID           int64
	SessionID    string
	Original     string
	Correction   string
	Context      string
	Model        string
	Summary      string
	AppliedCount int
	Score        float64
	CreatedAt    time.Time
}

type NewLearning struct {
	Original   string
	Correction string
	SessionID  string
	Context    string
	Model      string
}

func (n NewLearning) Validate() error {
	if strings.TrimSpace(n.Correction) == "" {
		return Invalid("correction is empty")
	}
	if strings.TrimSpace(n.Original) == "" {
		return Invalid("original output is empty")
	}
	return nil
}

// LearningLog is a learning with its application history totals.
type LearningLog struct {
	Learning
	Applications int
	Successes    int
}

// SummarizeLearning builds the short description stored with a learning.
func SummarizeLearning(original, correction string) string {
	return fmt.Sprintf("User corrected: '%s' with: '%s'",
		Excerpt(original, summaryExcerptLen), Excerpt(correction, summaryExcerptLen))
}

// Excerpt cuts s to n runes and marks the cut with an ellipsis.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
