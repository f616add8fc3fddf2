package domain

import "strings"

type ModelType string

const (
	ModelTypeStandard  ModelType = "standard"
	ModelTypeAdvanced  ModelType = "advanced"
	ModelTypeReasoning ModelType = "high_reasoning"
)

// ModelInfo is the capability record of one backend model.
type ModelInfo struct {
	ID                 string
	Name               string
	Description        string
	Type               ModelType
	Size               string
	SupportsThinking   bool
	DefaultTemperature float64
	Installed          bool
}

// Validate checks the record against the catalog schema.
func (m ModelInfo) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return Invalid("model id is empty")
	}
	switch m.Type {
	case ModelTypeStandard, ModelTypeAdvanced, ModelTypeReasoning:
	default:
		return Invalid("model %s: unknown type %q", m.ID, m.Type)
	}
	if m.DefaultTemperature < MinTemperature || m.DefaultTemperature > MaxTemperature {
		return Invalid("model %s: default temperature %.2f out of range", m.ID, m.DefaultTemperature)
	}
	return nil
}

// FindModel returns the model with the given id.
func FindModel(models []ModelInfo, id string) (ModelInfo, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}
