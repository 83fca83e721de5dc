package variant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/teachbot/internal/features"
	"github.com/rcliao/teachbot/internal/vector"
)

func TestConditionMatch(t *testing.T) {
	f := features.Features{features.TopicWork: 2, "desire": 0, "neg": 1}

	tests := []struct {
		name string
		cond Condition
		text string
		want bool
	}{
		{"empty never matches", Condition{}, "anything", false},
		{"all fired", Condition{All: []string{features.TopicWork}}, "", true},
		{"all missing", Condition{All: []string{features.TopicWork, features.TopicStudy}}, "", false},
		{"any hit", Condition{Any: []string{"desire", "neg"}}, "", true},
		{"any miss", Condition{Any: []string{"desire"}}, "", false},
		{"contains hit", Condition{Contains: []string{"疲れた"}}, "今日は疲れたな", true},
		{"contains case folded", Condition{Contains: []string{"ai"}}, "AIって何", true},
		{"contains miss", Condition{Contains: []string{"疲れた"}}, "元気", false},
		{"all and contains", Condition{All: []string{features.TopicWork}, Contains: []string{"辞めたい"}}, "仕事辞めたい", true},
		{"all ok contains miss", Condition{All: []string{features.TopicWork}, Contains: []string{"辞めたい"}}, "仕事楽しい", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Match(tt.text, f))
		})
	}
}

func TestBuiltinsValidate(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Builtins() {
		t.Run(p.ID, func(t *testing.T) {
			require.NoError(t, p.Validate())
			assert.False(t, seen[p.ID], "duplicate id")
			seen[p.ID] = true
			assert.NotEmpty(t, p.Name)
			assert.Positive(t, p.MaxKeep)

			risk := p.Analyze("もう死にたい")
			assert.True(t, risk.Features.Fired(features.Risk), "every profile detects risk")
		})
	}
	assert.Len(t, seen, 4)
}

func TestBuiltinConstants(t *testing.T) {
	tests := []struct {
		p        Profile
		scorer   Scorer
		floor    float64
		bonus    float64
		maxKeep  int
		window   int
		horizon  float64
		richData bool
	}{
		{SimpleBow(), ScorerSingle, 0.2, 0.1, 500, 0, 0, false},
		{Semantic(), ScorerSingle, 0.2, 0.1, 500, 0, 0, false},
		{Contextual(), ScorerContextual, 0.15, 0.1, 800, 6, 24, false},
		{HybridDeepContext(), ScorerHybrid, 0.18, 0.08, 1200, 8, 48, true},
	}
	for _, tt := range tests {
		t.Run(tt.p.ID, func(t *testing.T) {
			assert.Equal(t, tt.scorer, tt.p.Scorer)
			assert.Equal(t, tt.floor, tt.p.MinScore)
			assert.Equal(t, tt.bonus, tt.p.CorrectionBonus)
			assert.Equal(t, tt.maxKeep, tt.p.MaxKeep)
			assert.Equal(t, tt.window, tt.p.ContextWindow)
			assert.Equal(t, tt.horizon, tt.p.DecayHorizonHours)
			assert.Equal(t, tt.richData, tt.p.RichEntries)
		})
	}
}

func TestSimpleBowVectorIsTokensOnly(t *testing.T) {
	enc := SimpleBow().Encode("死にたい 疲れた?")
	assert.Equal(t, vector.Sparse{"死にたい": 1, "疲れた": 1}, enc.Vector)
	assert.True(t, enc.Features.Fired(features.Risk))
}

func TestHybridEncode(t *testing.T) {
	enc := HybridDeepContext().Encode("さっきの件")
	assert.Equal(t, []string{"さっきの件"}, enc.Tokens)
	assert.Equal(t, 1, enc.Features.Get(features.LengthShort))
	assert.Equal(t, 2, enc.Features.Get(features.ContextRef))
	assert.Equal(t, 4.0, enc.Vector[vector.FeatureKey(features.ContextRef)])
	assert.Equal(t, 0.6, enc.Vector[vector.FeatureKey(features.LengthShort)])
	assert.Equal(t, 0.5, enc.Vector[vector.CharNgramKey(3, "さっき")])
}

func TestIsContextDependent(t *testing.T) {
	p := Contextual()
	tests := []struct {
		text string
		want bool
	}{
		{"それ", true},
		{"a b c", true},
		{"a b c d", false},
		{"a b c d さっき", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsContextDependent(p.Analyze(tt.text)))
		})
	}
	assert.Equal(t, p.DependentBlend, p.BlendFor(true))
	assert.Equal(t, p.NormalBlend, p.BlendFor(false))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
		errMsg string
	}{
		{"missing id", func(p *Profile) { p.ID = "" }, "id is required"},
		{"unknown scorer", func(p *Profile) { p.Scorer = "neural" }, `unknown scorer "neural"`},
		{"no window", func(p *Profile) { p.ContextWindow = 0 }, "context_window"},
		{"no horizon", func(p *Profile) { p.DecayHorizonHours = 0 }, "decay_horizon_hours"},
		{"no topics", func(p *Profile) { p.TopicFeatures = nil }, "topic_features"},
		{"negative floor", func(p *Profile) { p.MinScore = -1 }, "min_score"},
		{"negative keep", func(p *Profile) { p.MaxKeep = -1 }, "max_keep"},
		{"no fallback", func(p *Profile) { p.Responses.NotLearned = "" }, "not_learned"},
		{"no safety", func(p *Profile) { p.Responses.Safety = "" }, "safety"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := HybridDeepContext()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

const customProfile = `
id: office_v1
name: office
scorer: contextual
context_window: 4
context_short_max: 2
decay_horizon_hours: 12
dependent_blend: {current: 0.2, context: 0.8}
normal_blend: {current: 0.8, context: 0.2}
correction_bonus: 0.05
min_score: 0.1
max_keep: 50
tokenizer:
  keep_question_marks: true
lexicon:
  short_feature: length_short
  short_max: 2
  rules:
    - keywords: [会議, meeting]
      effects:
        - {feature: topic_work, delta: 2}
    - keywords: [死にたい]
      effects:
        - {feature: risk, delta: 3}
vector:
  bigrams: true
  scales:
    - {feature: topic_work, factor: 1.5}
overrides:
  - name: meeting
    when: {all: [topic_work], contains: [会議]}
    response: 会議は短く。
responses:
  safety: 誰かに相談して。
  need_context: もう少し詳しく。
  not_learned: まだ知らない。
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(customProfile))
	require.NoError(t, err)
	assert.Equal(t, "office_v1", p.ID)
	assert.Equal(t, ScorerContextual, p.Scorer)
	assert.Equal(t, Blend{Current: 0.2, Context: 0.8}, p.DependentBlend)
	require.Len(t, p.Overrides, 1)
	assert.True(t, p.Overrides[0].When.Match("会議が多い", p.Analyze("会議が多い").Features))

	enc := p.Encode("Meeting 長い")
	assert.Equal(t, 3.0, enc.Vector[vector.FeatureKey(features.TopicWork)])
	assert.Equal(t, 1.0, enc.Vector[vector.BigramKey("meeting", "長い")])
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("id: x\nscorer: single\n"))
	require.Error(t, err)

	_, err = Parse([]byte("id: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse profile")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "office.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customProfile), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 50, p.MaxKeep)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
