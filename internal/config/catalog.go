package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/set-night/omegachat/internal/domain"
)

//go:embed models.toml
var defaultCatalog string

type catalogFile struct {
	Models []catalogEntry `toml:"models"`
}

type catalogEntry struct {
	ID                 string   `toml:"id"`
	Name               string   `toml:"name"`
	Description        string   `toml:"description"`
	Type               string   `toml:"type"`
	Size               string   `toml:"size"`
	SupportsThinking   bool     `toml:"supports_thinking"`
	DefaultTemperature *float64 `toml:"default_temperature"`
	Fallback           bool     `toml:"fallback"`
}

// Catalog holds the validated model capability records.
type Catalog struct {
	models   []domain.ModelInfo
	fallback []domain.ModelInfo
}

// LoadCatalog parses the catalog at path, or the built-in one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model catalog: %w", err)
		}
		data = string(raw)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data string) (*Catalog, error) {
	var file catalogFile
	md, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("decode model catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, domain.Invalid("model catalog: unknown key %s", undecoded[0])
	}
	if len(file.Models) == 0 {
		return nil, domain.Invalid("model catalog is empty")
	}

	c := &Catalog{}
	seen := make(map[string]bool, len(file.Models))
	for _, e := range file.Models {
		m := domain.ModelInfo{
			ID:                 strings.TrimSpace(e.ID),
			Name:               e.Name,
			Description:        e.Description,
			Type:               domain.ModelType(e.Type),
			Size:               e.Size,
			SupportsThinking:   e.SupportsThinking,
			DefaultTemperature: domain.DefaultTemperature,
		}
		if e.DefaultTemperature != nil {
			m.DefaultTemperature = *e.DefaultTemperature
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("model catalog: %w", err)
		}
		if seen[m.ID] {
			return nil, domain.Invalid("model catalog: duplicate model %s", m.ID)
		}
		seen[m.ID] = true

		c.models = append(c.models, m)
		if e.Fallback {
			c.fallback = append(c.fallback, m)
		}
	}
	if len(c.fallback) == 0 {
		return nil, domain.Invalid("model catalog: no fallback models")
	}
	return c, nil
}

func (c *Catalog) Models() []domain.ModelInfo {
	return append([]domain.ModelInfo(nil), c.models...)
}

// Fallback returns the models listed when the backend is unreachable.
func (c *Catalog) Fallback() []domain.ModelInfo {
	return append([]domain.ModelInfo(nil), c.fallback...)
}

func (c *Catalog) Lookup(id string) (domain.ModelInfo, bool) {
	return domain.FindModel(c.models, id)
}

// Describe returns the catalog record for id, or one inferred from the model name.
func (c *Catalog) Describe(id string) domain.ModelInfo {
	if m, ok := c.Lookup(id); ok {
		return m
	}
	return domain.ModelInfo{
		ID:                 id,
		Name:               id,
		Type:               domain.ModelTypeStandard,
		SupportsThinking:   detectThinking(id),
		DefaultTemperature: domain.DefaultTemperature,
	}
}

func detectThinking(modelID string) bool {
	id := strings.ToLower(modelID)
	for _, kw := range []string{"wizard", "uncensored", "dolphin", "llama", "deepseek-r1", "qwen3"} {
		if strings.Contains(id, kw) {
			return true
		}
	}
	return false
}
