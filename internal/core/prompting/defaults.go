package prompting

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/resper/paperless-onS/internal/core/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultModularPrompts returns the built-in per-field instructions.
func DefaultModularPrompts() domain.ModularPromptSet {
	set, err := parseModularPrompts(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("prompting: embedded defaults: %v", err))
	}
	return set
}

func parseModularPrompts(raw []byte) (domain.ModularPromptSet, error) {
	var set domain.ModularPromptSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return domain.ModularPromptSet{}, fmt.Errorf("decode modular prompts: %w", err)
	}
	return set, nil
}
