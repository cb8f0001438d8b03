package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Weights defines the per-signal weights for personalized scoring.
// Weights must be non-negative. They are not required to sum to 1: the final
// score is clamped to [0, 1] after the weighted sum, so weight sets that sum
// above 1 are legal and simply compress the observable top of the range.
type Weights struct {
	BaseHot        float64 `json:"base_hot"`        // Weight for engagement velocity (default: 0.25)
	AuthorAffinity float64 `json:"author_affinity"` // Weight for viewer-author like history (default: 0.20)
	TopicRelevance float64 `json:"topic_relevance"` // Weight for topic interest match (default: 0.20)
	SocialProof    float64 `json:"social_proof"`    // Weight for likes from followed users (default: 0.15)
	Diversity      float64 `json:"diversity"`       // Weight for the inverted repetition penalty (default: 0.10)
	Quality        float64 `json:"quality"`         // Weight for intrinsic content quality (default: 0.05)
	Freshness      float64 `json:"freshness"`       // Weight for the freshness bonus (default: 0.05)
}

// Config holds the full immutable ranking configuration, shared across all
// ranking calls for a deployment.
type Config struct {
	Weights Weights `json:"weights"`

	// ColdStartThreshold is the interaction count below which the
	// popularity-only cold-start scoring path applies.
	ColdStartThreshold int64 `json:"cold_start_threshold"`

	// FreshWindowMinutes is the age under which an item receives the full
	// freshness bonus.
	FreshWindowMinutes int `json:"fresh_window_minutes"`

	// MaxAgeHours is the age at which the freshness bonus reaches exactly
	// zero. Must exceed the fresh window.
	MaxAgeHours int `json:"max_age_hours"`

	// MaxPerAuthor caps how many slots a single author may occupy in the
	// final list before the selector falls back (soft cap).
	MaxPerAuthor int `json:"max_per_author"`

	// DiversityWindow is the informational sliding-window size used when
	// reporting diversity; enforcement uses MaxPerAuthor.
	DiversityWindow int `json:"diversity_window"`
}

// WeightOverrides mirrors Weights with pointer fields so a calibration file
// can distinguish an absent weight from an explicit zero. Zero weights are
// legal and disable a signal.
type WeightOverrides struct {
	BaseHot        *float64 `json:"base_hot"`
	AuthorAffinity *float64 `json:"author_affinity"`
	TopicRelevance *float64 `json:"topic_relevance"`
	SocialProof    *float64 `json:"social_proof"`
	Diversity      *float64 `json:"diversity"`
	Quality        *float64 `json:"quality"`
	Freshness      *float64 `json:"freshness"`
}

// ConfigOverrides is the ranking section of a calibration file. A nil field
// keeps the base value.
type ConfigOverrides struct {
	Weights            WeightOverrides `json:"weights"`
	ColdStartThreshold *int64          `json:"cold_start_threshold"`
	FreshWindowMinutes *int            `json:"fresh_window_minutes"`
	MaxAgeHours        *int            `json:"max_age_hours"`
	MaxPerAuthor       *int            `json:"max_per_author"`
	DiversityWindow    *int            `json:"diversity_window"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string          `json:"version"` // Config version for future compatibility
	Config  ConfigOverrides `json:"ranking"` // Ranking configuration overrides
}

// Configuration validation errors.
var (
	ErrNegativeWeight      = errors.New("ranking weights must be non-negative")
	ErrInvalidMaxPerAuthor = errors.New("max_per_author must be at least 1")
	ErrInvalidAgeWindow    = errors.New("max_age_hours must exceed fresh_window_minutes")
	ErrNegativeThreshold   = errors.New("cold_start_threshold must be non-negative")
)

// DefaultConfig returns the default ranking configuration.
// The weights sum to 1.0 so a perfect item with no repetition can reach the
// top of the score range:
//
//	score = hot*0.25 + affinity*0.20 + topic*0.20 + social*0.15
//	      + (1-penalty)*0.10 + quality*0.05 + freshness*0.05
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{
			BaseHot:        0.25,
			AuthorAffinity: 0.20,
			TopicRelevance: 0.20,
			SocialProof:    0.15,
			Diversity:      0.10,
			Quality:        0.05,
			Freshness:      0.05,
		},
		ColdStartThreshold: 5,
		FreshWindowMinutes: 30,
		MaxAgeHours:        72,
		MaxPerAuthor:       3,
		DiversityWindow:    10,
	}
}

// Validate checks the configuration for programming/configuration errors.
// Negative weights and degenerate windows are rejected here, before any
// ranking call, rather than producing silently wrong scores mid-call.
func (c *Config) Validate() []error {
	var errs []error

	weights := []float64{
		c.Weights.BaseHot,
		c.Weights.AuthorAffinity,
		c.Weights.TopicRelevance,
		c.Weights.SocialProof,
		c.Weights.Diversity,
		c.Weights.Quality,
		c.Weights.Freshness,
	}
	for _, w := range weights {
		if w < 0 {
			errs = append(errs, ErrNegativeWeight)
			break
		}
	}

	if c.MaxPerAuthor < 1 {
		errs = append(errs, ErrInvalidMaxPerAuthor)
	}
	if c.ColdStartThreshold < 0 {
		errs = append(errs, ErrNegativeThreshold)
	}
	if c.MaxAgeHours*60 <= c.FreshWindowMinutes {
		errs = append(errs, ErrInvalidAgeWindow)
	}

	return errs
}

// LoadCalibration loads the ranking configuration from a JSON calibration
// file. Partial configurations are merged over the defaults for graceful
// degradation; on read or parse errors the defaults are returned along with
// the error. Invalid merged configurations (negative weights, degenerate
// windows) fail hard: a bad calibration must not reach the scoring path.
func LoadCalibration(filePath string) (*Config, error) {
	if filePath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultConfig(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var calibration CalibrationConfig
	if err := json.Unmarshal(data, &calibration); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultConfig(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultConfig()
	merged := MergeCalibration(defaults, &calibration.Config)
	if errs := merged.Validate(); len(errs) > 0 {
		return DefaultConfig(), fmt.Errorf("invalid calibration %s: %w", filePath, errors.Join(errs...))
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override values onto base values. Fields present
// in the override are applied; absent fields keep the base value, so both
// partial files and explicit zeros work.
func MergeCalibration(base *Config, override *ConfigOverrides) *Config {
	if base == nil {
		base = DefaultConfig()
	}
	result := *base
	if override == nil {
		return &result
	}

	if v := override.Weights.BaseHot; v != nil {
		result.Weights.BaseHot = *v
	}
	if v := override.Weights.AuthorAffinity; v != nil {
		result.Weights.AuthorAffinity = *v
	}
	if v := override.Weights.TopicRelevance; v != nil {
		result.Weights.TopicRelevance = *v
	}
	if v := override.Weights.SocialProof; v != nil {
		result.Weights.SocialProof = *v
	}
	if v := override.Weights.Diversity; v != nil {
		result.Weights.Diversity = *v
	}
	if v := override.Weights.Quality; v != nil {
		result.Weights.Quality = *v
	}
	if v := override.Weights.Freshness; v != nil {
		result.Weights.Freshness = *v
	}

	if v := override.ColdStartThreshold; v != nil {
		result.ColdStartThreshold = *v
	}
	if v := override.FreshWindowMinutes; v != nil {
		result.FreshWindowMinutes = *v
	}
	if v := override.MaxAgeHours; v != nil {
		result.MaxAgeHours = *v
	}
	if v := override.MaxPerAuthor; v != nil {
		result.MaxPerAuthor = *v
	}
	if v := override.DiversityWindow; v != nil {
		result.DiversityWindow = *v
	}

	return &result
}

// logCalibrationOverrides logs which values were overridden from defaults.
func logCalibrationOverrides(defaults *Config, loaded *Config) {
	var overrides []string

	weightOverrides := []struct {
		name        string
		def, loaded float64
	}{
		{"weights.base_hot", defaults.Weights.BaseHot, loaded.Weights.BaseHot},
		{"weights.author_affinity", defaults.Weights.AuthorAffinity, loaded.Weights.AuthorAffinity},
		{"weights.topic_relevance", defaults.Weights.TopicRelevance, loaded.Weights.TopicRelevance},
		{"weights.social_proof", defaults.Weights.SocialProof, loaded.Weights.SocialProof},
		{"weights.diversity", defaults.Weights.Diversity, loaded.Weights.Diversity},
		{"weights.quality", defaults.Weights.Quality, loaded.Weights.Quality},
		{"weights.freshness", defaults.Weights.Freshness, loaded.Weights.Freshness},
	}
	for _, w := range weightOverrides {
		if w.def != w.loaded {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", w.name, w.def, w.loaded))
		}
	}

	if loaded.ColdStartThreshold != defaults.ColdStartThreshold {
		overrides = append(overrides, fmt.Sprintf("cold_start_threshold: %d -> %d",
			defaults.ColdStartThreshold, loaded.ColdStartThreshold))
	}
	if loaded.FreshWindowMinutes != defaults.FreshWindowMinutes {
		overrides = append(overrides, fmt.Sprintf("fresh_window_minutes: %d -> %d",
			defaults.FreshWindowMinutes, loaded.FreshWindowMinutes))
	}
	if loaded.MaxAgeHours != defaults.MaxAgeHours {
		overrides = append(overrides, fmt.Sprintf("max_age_hours: %d -> %d",
			defaults.MaxAgeHours, loaded.MaxAgeHours))
	}
	if loaded.MaxPerAuthor != defaults.MaxPerAuthor {
		overrides = append(overrides, fmt.Sprintf("max_per_author: %d -> %d",
			defaults.MaxPerAuthor, loaded.MaxPerAuthor))
	}
	if loaded.DiversityWindow != defaults.DiversityWindow {
		overrides = append(overrides, fmt.Sprintf("diversity_window: %d -> %d",
			defaults.DiversityWindow, loaded.DiversityWindow))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
