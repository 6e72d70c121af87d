package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
	"github.com/resper/paperless-onS/internal/core/prompting"
)

// Setting keys stored in the settings table.
const (
	SettingMaxTextLength     = "max_text_length"
	SettingDisplayTextLength = "display_text_length"
	SettingUseJSONMode       = "use_json_mode"
	SettingPromptTemplate    = "prompt_template"
	SettingPromptSystem      = "prompt_system"
	SettingOpenAIModel       = "openai_model"
	SettingTextSourceMode    = "text_source_mode"
	SettingFreeInstructions  = "prompt_free_instructions"

	modularSettingPrefix = "prompt_"
)

// ModularSettingKey returns the settings key of a modular prompt field.
func ModularSettingKey(field domain.PromptField) string {
	return modularSettingPrefix + string(field)
}

// ModularSettingValues flattens a modular set into settings key/values.
func ModularSettingValues(set domain.ModularPromptSet) map[string]string {
	values := make(map[string]string, len(domain.ContentFields)+1)
	for _, field := range domain.ContentFields {
		values[ModularSettingKey(field)] = set.Field(field)
	}
	values[SettingFreeInstructions] = set.FreeInstructions
	return values
}

// SettingsUseCase overlays persisted settings on configured defaults.
type SettingsUseCase struct {
	store    ports.SettingsStore
	defaults domain.AnalysisSettings
}

func NewSettingsUseCase(store ports.SettingsStore, defaults domain.AnalysisSettings) *SettingsUseCase {
	if defaults.MaxTextLength <= 0 {
		defaults.MaxTextLength = prompting.DefaultMaxTextLength
	}
	if defaults.TextSourceMode == "" {
		defaults.TextSourceMode = domain.TextSourcePaperless
	}
	return &SettingsUseCase{store: store, defaults: defaults}
}

func (uc *SettingsUseCase) Analysis(ctx context.Context) (domain.AnalysisSettings, error) {
	values, err := uc.store.GetAll(ctx)
	if err != nil {
		return domain.AnalysisSettings{}, fmt.Errorf("load settings: %w", err)
	}
	return overlaySettings(uc.defaults, values), nil
}

// Update validates and stores the given key/values. Unknown keys are rejected.
func (uc *SettingsUseCase) Update(ctx context.Context, values map[string]string) (domain.AnalysisSettings, error) {
	if len(values) == 0 {
		return domain.AnalysisSettings{}, domain.WrapError(domain.ErrInvalidInput, "update settings", fmt.Errorf("no settings given"))
	}
	clean := make(map[string]string, len(values))
	for key, value := range values {
		normalized, err := validateSetting(key, value)
		if err != nil {
			return domain.AnalysisSettings{}, domain.WrapError(domain.ErrInvalidInput, "update settings", err)
		}
		clean[key] = normalized
	}
	if err := uc.store.Set(ctx, clean); err != nil {
		return domain.AnalysisSettings{}, fmt.Errorf("store settings: %w", err)
	}
	return uc.Analysis(ctx)
}

func (uc *SettingsUseCase) ModularDefaults() domain.ModularPromptSet {
	return prompting.DefaultModularPrompts()
}

func validateSetting(key, value string) (string, error) {
	switch key {
	case SettingMaxTextLength:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%s must be a positive integer", key)
		}
		return strconv.Itoa(n), nil
	case SettingDisplayTextLength:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return "", fmt.Errorf("%s must be a non-negative integer", key)
		}
		return strconv.Itoa(n), nil
	case SettingUseJSONMode:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return "", fmt.Errorf("%s must be a boolean", key)
		}
		return strconv.FormatBool(b), nil
	case SettingTextSourceMode:
		mode, ok := domain.ParseTextSourceMode(value)
		if !ok {
			return "", fmt.Errorf("%s must be %q or %q", key, domain.TextSourcePaperless, domain.TextSourceAIOCR)
		}
		return string(mode), nil
	case SettingOpenAIModel:
		return strings.TrimSpace(value), nil
	case SettingPromptTemplate, SettingPromptSystem, SettingFreeInstructions:
		return value, nil
	}
	for _, field := range domain.ContentFields {
		if key == ModularSettingKey(field) {
			return value, nil
		}
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

func overlaySettings(s domain.AnalysisSettings, values map[string]string) domain.AnalysisSettings {
	if n, err := strconv.Atoi(values[SettingMaxTextLength]); err == nil && n > 0 {
		s.MaxTextLength = n
	}
	if n, err := strconv.Atoi(values[SettingDisplayTextLength]); err == nil && n >= 0 {
		s.DisplayTextLength = n
	}
	if b, err := strconv.ParseBool(values[SettingUseJSONMode]); err == nil {
		s.UseJSONMode = b
	}
	if v, ok := values[SettingPromptTemplate]; ok {
		s.PromptTemplate = v
	}
	if v, ok := values[SettingPromptSystem]; ok {
		s.PromptSystem = v
	}
	if v := strings.TrimSpace(values[SettingOpenAIModel]); v != "" {
		s.Model = v
	}
	if mode, ok := domain.ParseTextSourceMode(values[SettingTextSourceMode]); ok && values[SettingTextSourceMode] != "" {
		s.TextSourceMode = mode
	}

	m := &s.Modular
	for key, target := range map[string]*string{
		ModularSettingKey(domain.FieldDocumentDate):    &m.DocumentDate,
		ModularSettingKey(domain.FieldCorrespondent):   &m.Correspondent,
		ModularSettingKey(domain.FieldDocumentType):    &m.DocumentType,
		ModularSettingKey(domain.FieldStoragePath):     &m.StoragePath,
		ModularSettingKey(domain.FieldContentKeywords): &m.ContentKeywords,
		ModularSettingKey(domain.FieldSuggestedTitle):  &m.SuggestedTitle,
		ModularSettingKey(domain.FieldSuggestedTag):    &m.SuggestedTag,
		SettingFreeInstructions:                        &m.FreeInstructions,
	} {
		if v, ok := values[key]; ok {
			*target = v
		}
	}
	return s
}
