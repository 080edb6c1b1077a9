package scoring

import "fmt"

// Config is one complete scoring configuration. BaseWeight scales the
// normalized index relevance statistic; PhraseBonus is added once when a
// quote contains the query's quoted phrase; FieldWeights adds per-field
// bonuses. Configs are treated as immutable values: callers swap whole
// configs, never mutate one in place.
type Config struct {
	BaseWeight   float64      `json:"base_weight" yaml:"base_weight"`
	PhraseBonus  float64      `json:"phrase_bonus" yaml:"phrase_bonus"`
	FieldWeights FieldWeights `json:"field_weights" yaml:"field_weights"`
}

// DefaultConfig returns the built-in weights. Title and author matches
// outrank body-text signals.
func DefaultConfig() Config {
	return Config{
		BaseWeight:  1.0,
		PhraseBonus: 2.0,
		FieldWeights: FieldWeights{
			QuoteText:     1.0,
			QuoteKeywords: 0.8,
			BookKeywords:  0.7,
			Themes:        0.6,
			Summary:       0.5,
			Title:         3.0,
			Authors:       2.5,
			Type:          0.4,
			Publisher:     0.3,
			Journal:       0.3,
		},
	}
}

// Validate rejects negative weights. Malformed configurations are caught
// here, at configuration-set time, never during a search.
func (c Config) Validate() error {
	if c.BaseWeight < 0 {
		return fmt.Errorf("base_weight must be non-negative, got %g", c.BaseWeight)
	}
	if c.PhraseBonus < 0 {
		return fmt.Errorf("phrase_bonus must be non-negative, got %g", c.PhraseBonus)
	}
	for _, f := range Fields {
		if w := c.FieldWeights.Weight(f); w < 0 {
			return fmt.Errorf("field weight %s must be non-negative, got %g", f, w)
		}
	}
	return nil
}
