// Package features extracts hand-authored lexical cues (topic, emotion,
// intent, risk, context reference, length) from raw utterances.
//
// Extraction is a deterministic rule table: every rule whose keyword list
// matches the text adds its deltas to the named features.
package features

import (
	"strings"

	"github.com/rcliao/teachbot/internal/tokenizer"
)

// Well-known feature names the engine relies on.
const (
	Risk        = "risk"
	ContextRef  = "context_ref"
	LengthShort = "length_short"
	IntentAsk   = "intent_ask"
	TopicWork   = "topic_work"
	TopicStudy  = "topic_study"
	TopicMoney  = "topic_money"
	TopicRel    = "topic_relation"
	TopicMeta   = "topic_meta"
)

// Features is the feature record of one utterance. Absent names are zero.
type Features map[string]int

// Get returns the value of the named feature.
func (f Features) Get(name string) int {
	return f[name]
}

// Fired reports whether the named feature is positive.
func (f Features) Fired(name string) bool {
	return f[name] > 0
}

// Effect adds Delta to Feature.
type Effect struct {
	Feature string `yaml:"feature" json:"feature"`
	Delta   int    `yaml:"delta" json:"delta"`
}

// Rule applies its effects once when the text contains any of its keywords.
type Rule struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Effects  []Effect `yaml:"effects" json:"effects"`
}

// Lexicon is an ordered rule table plus the short-utterance flag.
type Lexicon struct {
	Rules []Rule `yaml:"rules" json:"rules"`

	// ShortFeature, when set, is raised to 1 for utterances of at most
	// ShortMax tokens.
	ShortFeature string `yaml:"short_feature" json:"short_feature"`
	ShortMax     int    `yaml:"short_max" json:"short_max"`
}

// Analysis is the result of analyzing one utterance.
type Analysis struct {
	Tokens   []string
	Features Features
}

// Analyze tokenizes text and runs the lexicon over it.
func Analyze(text string, lex Lexicon, opts tokenizer.Options) Analysis {
	tokens := tokenizer.Tokenize(text, opts)
	return Analysis{Tokens: tokens, Features: lex.Extract(text, len(tokens))}
}

// Extract runs the rule table over text. Keywords are matched against both
// the raw and the lower-cased text.
func (l Lexicon) Extract(text string, tokenCount int) Features {
	f := Features{}
	if l.ShortFeature != "" && tokenCount <= l.ShortMax {
		f[l.ShortFeature] = 1
	}
	lower := strings.ToLower(text)
	for _, r := range l.Rules {
		if !ContainsAny(text, lower, r.Keywords) {
			continue
		}
		for _, e := range r.Effects {
			f[e.Feature] += e.Delta
		}
	}
	return f
}

// Names returns every feature name the lexicon can produce, in rule order.
func (l Lexicon) Names() []string {
	seen := map[string]bool{}
	var names []string
	add := func(n string) {
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	add(l.ShortFeature)
	for _, r := range l.Rules {
		for _, e := range r.Effects {
			add(e.Feature)
		}
	}
	return names
}

// ContainsAny reports whether raw or lower contains any of the words.
func ContainsAny(raw, lower string, words []string) bool {
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.Contains(raw, w) || strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
