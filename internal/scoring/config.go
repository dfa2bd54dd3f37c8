package scoring

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds the named weights, band cutoffs and extraction limits of the scorer.
type Config struct {
	SkillWeight    float64 `mapstructure:"skillWeight" validate:"gte=0,lte=1"`
	SemanticWeight float64 `mapstructure:"semanticWeight" validate:"gte=0,lte=1"`
	DensityWeight  float64 `mapstructure:"densityWeight" validate:"gte=0,lte=1"`

	// Bands must be monotonic so a higher score never gets a lower status.
	BandHigh       int `mapstructure:"bandHigh" validate:"lte=100,gtefield=BandMediumHigh"`
	BandMediumHigh int `mapstructure:"bandMediumHigh" validate:"gtefield=BandMediumLow"`
	BandMediumLow  int `mapstructure:"bandMediumLow" validate:"gte=0"`

	FuzzyThreshold     float64 `mapstructure:"fuzzyThreshold" validate:"gt=0,lte=1"`
	MaxJobKeywords     int     `mapstructure:"maxJobKeywords" validate:"gt=0"`
	MaxResumeKeywords  int     `mapstructure:"maxResumeKeywords" validate:"gt=0"`
	MaxRecommendations int     `mapstructure:"maxRecommendations" validate:"gt=0"`
	SummarySentences   int     `mapstructure:"summarySentences" validate:"gte=0"`
}

// DefaultConfig returns the documented defaults: weights 0.6/0.3/0.1 and bands 85/70/50.
func DefaultConfig() Config {
	return Config{
		SkillWeight:        0.6,
		SemanticWeight:     0.3,
		DensityWeight:      0.1,
		BandHigh:           85,
		BandMediumHigh:     70,
		BandMediumLow:      50,
		FuzzyThreshold:     0.85,
		MaxJobKeywords:     30,
		MaxResumeKeywords:  50,
		MaxRecommendations: 8,
		SummarySentences:   3,
	}
}

var validate = validator.New()

// Validate checks ranges and band ordering.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid scoring config: %w", err)
	}
	return nil
}
