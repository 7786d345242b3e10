package ingest

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lifesciencesignals/radar/internal/contracts"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule maps keywords to a signal type
type Rule struct {
	Type     string   `yaml:"type" json:"type"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// StrengthRules scores an item from hot and warm words
type StrengthRules struct {
	Base      int      `yaml:"base" json:"base"`
	WarmBonus int      `yaml:"warm_bonus" json:"warm_bonus"`
	HotBonus  int      `yaml:"hot_bonus" json:"hot_bonus"`
	WarmWords []string `yaml:"warm_words" json:"warm_words"`
	HotWords  []string `yaml:"hot_words" json:"hot_words"`
}

// Rules is the classifier configuration
type Rules struct {
	DefaultType string        `yaml:"default_type" json:"default_type"`
	Rules       []Rule        `yaml:"rules" json:"rules"`
	Strength    StrengthRules `yaml:"strength" json:"strength"`
}

// RuleError reports an invalid rules file field
type RuleError struct {
	Field   string
	Message string
}

func (e RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadRules reads rules from path, or the embedded defaults when path is empty.
// Unknown fields are rejected.
func LoadRules(path string) (*Rules, error) {
	data := defaultRules
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules: %w", err)
		}
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a rules document
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	r.normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) normalize() {
	for i := range r.Rules {
		for j, kw := range r.Rules[i].Keywords {
			r.Rules[i].Keywords[j] = strings.ToLower(kw)
		}
	}
	lower(r.Strength.WarmWords)
	lower(r.Strength.HotWords)
}

func lower(words []string) {
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
}

// Validate checks every rule targets a known signal type
func (r *Rules) Validate() error {
	if r.DefaultType != contracts.TypeOther && !contracts.IsKnownSignalType(r.DefaultType) {
		return RuleError{"default_type", fmt.Sprintf("unknown signal type %q", r.DefaultType)}
	}
	if len(r.Rules) == 0 {
		return RuleError{"rules", "at least one rule required"}
	}
	for i, rule := range r.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if !contracts.IsKnownSignalType(rule.Type) {
			return RuleError{field + ".type", fmt.Sprintf("unknown signal type %q", rule.Type)}
		}
		if len(rule.Keywords) == 0 {
			return RuleError{field + ".keywords", "required"}
		}
		for _, kw := range rule.Keywords {
			if strings.TrimSpace(kw) == "" {
				return RuleError{field + ".keywords", "empty keyword"}
			}
		}
	}
	if r.Strength.Base < contracts.MinStrength || r.Strength.Base > contracts.MaxStrength {
		return RuleError{"strength.base", fmt.Sprintf("must be in [%d, %d]", contracts.MinStrength, contracts.MaxStrength)}
	}
	return nil
}

// Classify returns the type of the first rule with a keyword in the text
func (r *Rules) Classify(title, summary string) string {
	text := strings.ToLower(title + " " + summary)
	for _, rule := range r.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Type
			}
		}
	}
	return r.DefaultType
}

// Score rates the text: base, plus a bonus per warm and hot word
// present, clamped to the signal strength bounds
func (r *Rules) Score(title, summary string) int {
	text := strings.ToLower(title + " " + summary)
	score := r.Strength.Base
	for _, w := range r.Strength.WarmWords {
		if strings.Contains(text, w) {
			score += r.Strength.WarmBonus
		}
	}
	for _, w := range r.Strength.HotWords {
		if strings.Contains(text, w) {
			score += r.Strength.HotBonus
		}
	}
	return contracts.ClampStrength(score)
}

// Hash fingerprints the rules so runs can log which version classified them
func (r *Rules) Hash() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
