// Package variant describes the retrieval models as data. A Profile holds
// everything that differs between models: the tokenizer options, the
// feature lexicon, the vector layout, the scoring weights and the reply
// overrides. One engine runs any profile.
package variant

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/teachbot/internal/features"
	"github.com/rcliao/teachbot/internal/tokenizer"
	"github.com/rcliao/teachbot/internal/vector"
)

// Scorer selects the ranking formula.
type Scorer string

const (
	// ScorerSingle ranks by cosine similarity to the current utterance only.
	ScorerSingle Scorer = "single"
	// ScorerContextual blends similarity to the utterance and to the
	// recent-context vector.
	ScorerContextual Scorer = "contextual"
	// ScorerHybrid blends a context-mixed query vector with token Jaccard
	// and topic overlap.
	ScorerHybrid Scorer = "hybrid"
)

// Blend is the weight split between the current utterance and the context.
type Blend struct {
	Current float64 `yaml:"current" json:"current"`
	Context float64 `yaml:"context" json:"context"`
}

// Weights are the hybrid scorer's signal weights.
type Weights struct {
	Vector  float64 `yaml:"vector" json:"vector"`
	Jaccard float64 `yaml:"jaccard" json:"jaccard"`
	Topic   float64 `yaml:"topic" json:"topic"`
}

// Condition matches an utterance. All groups that are set must hold: every
// feature in All fired, at least one feature in Any fired, and the text
// contains at least one of Contains. An empty condition never matches.
type Condition struct {
	All      []string `yaml:"all,omitempty" json:"all,omitempty"`
	Any      []string `yaml:"any,omitempty" json:"any,omitempty"`
	Contains []string `yaml:"contains,omitempty" json:"contains,omitempty"`
}

// Match reports whether the condition holds for text with features f.
func (c Condition) Match(text string, f features.Features) bool {
	if len(c.All) == 0 && len(c.Any) == 0 && len(c.Contains) == 0 {
		return false
	}
	for _, name := range c.All {
		if !f.Fired(name) {
			return false
		}
	}
	if len(c.Any) > 0 {
		hit := false
		for _, name := range c.Any {
			if f.Fired(name) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if len(c.Contains) > 0 && !features.ContainsAny(text, strings.ToLower(text), c.Contains) {
		return false
	}
	return true
}

// Override is a fixed response returned when its condition matches.
type Override struct {
	Name     string    `yaml:"name" json:"name"`
	When     Condition `yaml:"when" json:"when"`
	Response string    `yaml:"response" json:"response"`
}

// Responses are the fixed texts of the reply policy.
type Responses struct {
	// Safety is returned whenever the risk feature fires.
	Safety string `yaml:"safety" json:"safety"`
	// NeedContext is returned for context-dependent utterances nothing
	// matched. Empty disables the tier.
	NeedContext string `yaml:"need_context" json:"need_context"`
	// NotLearned is the last-resort reply.
	NotLearned string `yaml:"not_learned" json:"not_learned"`
}

// Profile is the full declarative description of one model.
type Profile struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`

	Tokenizer tokenizer.Options `yaml:"tokenizer" json:"tokenizer"`
	Lexicon   features.Lexicon  `yaml:"lexicon" json:"lexicon"`
	Vector    vector.Options    `yaml:"vector" json:"vector"`

	Scorer Scorer `yaml:"scorer" json:"scorer"`

	// ContextWindow is how many of the most recent entries form the
	// context vector.
	ContextWindow int `yaml:"context_window" json:"context_window"`
	// ContextShortMax is the token count at or below which an utterance
	// counts as context-dependent.
	ContextShortMax int `yaml:"context_short_max" json:"context_short_max"`
	// DecayHorizonHours is the age at which the time weight halves.
	DecayHorizonHours float64 `yaml:"decay_horizon_hours" json:"decay_horizon_hours"`

	// DependentBlend applies to context-dependent utterances, NormalBlend
	// to all others.
	DependentBlend Blend `yaml:"dependent_blend" json:"dependent_blend"`
	NormalBlend    Blend `yaml:"normal_blend" json:"normal_blend"`

	Weights       Weights  `yaml:"weights" json:"weights"`
	TopicFeatures []string `yaml:"topic_features" json:"topic_features"`

	CorrectionBonus float64 `yaml:"correction_bonus" json:"correction_bonus"`
	// MinScore is the confidence floor below which retrieval reports no
	// match.
	MinScore float64 `yaml:"min_score" json:"min_score"`
	// MaxKeep is the default compaction limit.
	MaxKeep int `yaml:"max_keep" json:"max_keep"`
	// RichEntries stores user tokens and features on every entry.
	RichEntries bool `yaml:"rich_entries" json:"rich_entries"`

	// Overrides are checked in order after the safety check and before
	// retrieval.
	Overrides []Override `yaml:"overrides" json:"overrides"`
	// Fallbacks are checked after retrieval and the context tier failed.
	Fallbacks []Override `yaml:"fallbacks" json:"fallbacks"`

	Responses Responses `yaml:"responses" json:"responses"`
}

// Encoded is an utterance run through a profile.
type Encoded struct {
	Tokens   []string
	Features features.Features
	Vector   vector.Sparse
}

// Analyze tokenizes text and extracts its features.
func (p Profile) Analyze(text string) features.Analysis {
	return features.Analyze(text, p.Lexicon, p.Tokenizer)
}

// Encode analyzes text and builds its vector.
func (p Profile) Encode(text string) Encoded {
	a := p.Analyze(text)
	return Encoded{
		Tokens:   a.Tokens,
		Features: a.Features,
		Vector:   vector.Build(text, a.Tokens, a.Features, p.Vector),
	}
}

// Tokenize splits text with the profile's tokenizer options.
func (p Profile) Tokenize(text string) []string {
	return tokenizer.Tokenize(text, p.Tokenizer)
}

// IsContextDependent reports whether an analyzed utterance leans on the
// preceding conversation: it refers back explicitly, or it is short.
func (p Profile) IsContextDependent(a features.Analysis) bool {
	return a.Features.Fired(features.ContextRef) || len(a.Tokens) <= p.ContextShortMax
}

// BlendFor returns the weight split for an utterance.
func (p Profile) BlendFor(dependent bool) Blend {
	if dependent {
		return p.DependentBlend
	}
	return p.NormalBlend
}

// Validate checks that the profile can drive the engine.
func (p Profile) Validate() error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	switch p.Scorer {
	case ScorerSingle:
	case ScorerContextual, ScorerHybrid:
		if p.ContextWindow <= 0 {
			errs = append(errs, errors.New("context_window must be positive"))
		}
		if p.DecayHorizonHours <= 0 {
			errs = append(errs, errors.New("decay_horizon_hours must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown scorer %q", p.Scorer))
	}
	if p.Scorer == ScorerHybrid && p.Weights.Topic > 0 && len(p.TopicFeatures) == 0 {
		errs = append(errs, errors.New("topic_features are required when weights.topic is set"))
	}
	if p.MinScore < 0 {
		errs = append(errs, errors.New("min_score must not be negative"))
	}
	if p.MaxKeep < 0 {
		errs = append(errs, errors.New("max_keep must not be negative"))
	}
	if p.Responses.NotLearned == "" {
		errs = append(errs, errors.New("responses.not_learned is required"))
	}
	if p.Responses.Safety == "" {
		errs = append(errs, errors.New("responses.safety is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("profile %q: %w", p.ID, err)
	}
	return nil
}

// LoadFile reads a YAML profile.
func LoadFile(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML profile and validates it.
func Parse(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
