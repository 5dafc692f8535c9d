package core

import (
	"time"
)

// AnalysisSettings is the process-wide analysis configuration
type AnalysisSettings struct {
	Enabled             bool          `json:"enabled"`
	Debounce            time.Duration `json:"debounce"`
	ConfidenceThreshold float64       `json:"confidenceThreshold"`
	MaxItems            int           `json:"maxItems"`
	EnabledTypes        []ItemType    `json:"enabledTypes"`
	AIModel             string        `json:"aiModel"`
	FallbackToRegex     bool          `json:"fallbackToRegex"`
	CacheEnabled        bool          `json:"cacheEnabled"`
	ShowLowConfidence   bool          `json:"showLowConfidence"`
	AutoCreateThreshold float64       `json:"autoCreateThreshold"`
}

// DefaultSettings returns the built-in defaults
func DefaultSettings() AnalysisSettings {
	return AnalysisSettings{
		Enabled:             true,
		Debounce:            400 * time.Millisecond,
		ConfidenceThreshold: 0.6,
		MaxItems:            10,
		EnabledTypes:        append([]ItemType(nil), AllItemTypes...),
		AIModel:             "llama3.2",
		FallbackToRegex:     true,
		CacheEnabled:        true,
		ShowLowConfidence:   false,
		AutoCreateThreshold: 0.85,
	}
}

// SettingsUpdate is a partial settings change; nil fields are left untouched
type SettingsUpdate struct {
	Enabled             *bool          `json:"enabled,omitempty"`
	Debounce            *time.Duration `json:"debounce,omitempty"`
	ConfidenceThreshold *float64       `json:"confidenceThreshold,omitempty"`
	MaxItems            *int           `json:"maxItems,omitempty"`
	EnabledTypes        []ItemType     `json:"enabledTypes,omitempty"`
	AIModel             *string        `json:"aiModel,omitempty"`
	FallbackToRegex     *bool          `json:"fallbackToRegex,omitempty"`
	CacheEnabled        *bool          `json:"cacheEnabled,omitempty"`
	ShowLowConfidence   *bool          `json:"showLowConfidence,omitempty"`
	AutoCreateThreshold *float64       `json:"autoCreateThreshold,omitempty"`
}

// Merge applies u over s shallowly and returns the result
func (s AnalysisSettings) Merge(u SettingsUpdate) AnalysisSettings {
	if u.Enabled != nil {
		s.Enabled = *u.Enabled
	}
	if u.Debounce != nil {
		s.Debounce = *u.Debounce
	}
	if u.ConfidenceThreshold != nil {
		s.ConfidenceThreshold = ClampConfidence(*u.ConfidenceThreshold)
	}
	if u.MaxItems != nil {
		s.MaxItems = *u.MaxItems
	}
	if u.EnabledTypes != nil {
		types := make([]ItemType, 0, len(u.EnabledTypes))
		for _, raw := range u.EnabledTypes {
			// unknown tags are dropped
			if t, ok := LookupItemType(string(raw)); ok {
				types = append(types, t)
			}
		}
		s.EnabledTypes = types
	}
	if u.AIModel != nil {
		s.AIModel = *u.AIModel
	}
	if u.FallbackToRegex != nil {
		s.FallbackToRegex = *u.FallbackToRegex
	}
	if u.CacheEnabled != nil {
		s.CacheEnabled = *u.CacheEnabled
	}
	if u.ShowLowConfidence != nil {
		s.ShowLowConfidence = *u.ShowLowConfidence
	}
	if u.AutoCreateThreshold != nil {
		s.AutoCreateThreshold = ClampConfidence(*u.AutoCreateThreshold)
	}
	return s
}

// clone copies the enabled type slice so callers cannot alias it
func (s AnalysisSettings) clone() AnalysisSettings {
	s.EnabledTypes = append([]ItemType(nil), s.EnabledTypes...)
	return s
}

func (s AnalysisSettings) typeEnabled(t ItemType) bool {
	for _, enabled := range s.EnabledTypes {
		if enabled == t {
			return true
		}
	}
	return false
}
