package domain

import (
	"strings"
	"time"
)

type ThinkingMode string

const (
	ThinkingAuto     ThinkingMode = "auto"
	ThinkingEnabled  ThinkingMode = "enabled"
	ThinkingDisabled ThinkingMode = "disabled"
)

// Backend-accepted generation limits.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 128000
	MaxNameLength  = 100

	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 2048
	DefaultThinkingBudget = 10000
	PlaceholderName       = "New Chat"
)

type Session struct {
	ID             string
	Name           string
	Model          string
	SystemPrompt   string
	Temperature    float64
	MaxTokens      int
	ThinkingMode   ThinkingMode
	ThinkingBudget int
	AutoNamed      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SessionSummary is a listing row.
type SessionSummary struct {
	Session
	MessageCount int
}

// NewSession is the input of a session insert. Zero generation fields are
// replaced with defaults by WithDefaults.
type NewSession struct {
	Name           string
	Model          string
	SystemPrompt   string
	Temperature    *float64
	MaxTokens      int
	ThinkingMode   ThinkingMode
	ThinkingBudget *int
	AutoNamed      bool
}

// WithDefaults fills unset generation settings.
func (n NewSession) WithDefaults(defaultTemperature float64) NewSession {
	if n.Temperature == nil {
		t := defaultTemperature
		n.Temperature = &t
	}
	if n.MaxTokens == 0 {
		n.MaxTokens = DefaultMaxTokens
	}
	if n.ThinkingMode == "" {
		n.ThinkingMode = ThinkingAuto
	}
	if n.ThinkingBudget == nil {
		b := DefaultThinkingBudget
		n.ThinkingBudget = &b
	}
	return n
}

func (n NewSession) Validate() error {
	if err := validateName(n.Name); err != nil {
		return err
	}
	if strings.TrimSpace(n.Model) == "" {
		return Invalid("model is required")
	}
	if n.Temperature != nil {
		if err := ValidateTemperature(*n.Temperature); err != nil {
			return err
		}
	}
	if n.MaxTokens != 0 {
		if err := ValidateMaxTokens(n.MaxTokens); err != nil {
			return err
		}
	}
	if n.ThinkingMode != "" {
		if err := n.ThinkingMode.Validate(); err != nil {
			return err
		}
	}
	if n.ThinkingBudget != nil && *n.ThinkingBudget < 0 {
		return Invalid("thinking budget must not be negative")
	}
	return nil
}

// SessionPatch holds a partial session update. Nil fields are left untouched.
type SessionPatch struct {
	Name           *string
	Model          *string
	SystemPrompt   *string
	Temperature    *float64
	MaxTokens      *int
	ThinkingMode   *ThinkingMode
	ThinkingBudget *int
	AutoNamed      *bool
}

func (p SessionPatch) IsEmpty() bool {
	return p.Name == nil && p.Model == nil && p.SystemPrompt == nil && p.Temperature == nil &&
		p.MaxTokens == nil && p.ThinkingMode == nil && p.ThinkingBudget == nil && p.AutoNamed == nil
}

func (p SessionPatch) Validate() error {
	if p.Name != nil {
		if err := validateName(*p.Name); err != nil {
			return err
		}
	}
	if p.Model != nil && strings.TrimSpace(*p.Model) == "" {
		return Invalid("model must not be empty")
	}
	if p.Temperature != nil {
		if err := ValidateTemperature(*p.Temperature); err != nil {
			return err
		}
	}
	if p.MaxTokens != nil {
		if err := ValidateMaxTokens(*p.MaxTokens); err != nil {
			return err
		}
	}
	if p.ThinkingMode != nil {
		if err := p.ThinkingMode.Validate(); err != nil {
			return err
		}
	}
	if p.ThinkingBudget != nil && *p.ThinkingBudget < 0 {
		return Invalid("thinking budget must not be negative")
	}
	return nil
}

// Apply merges the patch into s.
func (p SessionPatch) Apply(s *Session) {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.SystemPrompt != nil {
		s.SystemPrompt = *p.SystemPrompt
	}
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		s.MaxTokens = *p.MaxTokens
	}
	if p.ThinkingMode != nil {
		s.ThinkingMode = *p.ThinkingMode
	}
	if p.ThinkingBudget != nil {
		s.ThinkingBudget = *p.ThinkingBudget
	}
	if p.AutoNamed != nil {
		s.AutoNamed = *p.AutoNamed
	}
}

func (m ThinkingMode) Validate() error {
	switch m {
	case ThinkingAuto, ThinkingEnabled, ThinkingDisabled:
		return nil
	}
	return Invalid("unknown thinking mode %q", m)
}

func ValidateTemperature(t float64) error {
	if t < MinTemperature || t > MaxTemperature {
		return Invalid("temperature %.2f outside [%.1f, %.1f]", t, MinTemperature, MaxTemperature)
	}
	return nil
}

func ValidateMaxTokens(n int) error {
	if n < MinMaxTokens || n > MaxMaxTokens {
		return Invalid("max tokens %d outside [%d, %d]", n, MinMaxTokens, MaxMaxTokens)
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return Invalid("session name is empty")
	}
	if len([]rune(name)) > MaxNameLength {
		return Invalid("session name longer than %d characters", MaxNameLength)
	}
	return nil
}

// ClampTemperature forces t into the backend range.
func ClampTemperature(t float64) float64 {
	return min(max(t, MinTemperature), MaxTemperature)
}

// ClampMaxTokens forces n into the backend range.
func ClampMaxTokens(n int) int {
	return min(max(n, MinMaxTokens), MaxMaxTokens)
}
