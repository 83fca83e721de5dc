package engine

import (
	"time"

	"github.com/rcliao/teachbot/internal/features"
	"github.com/rcliao/teachbot/internal/model"
	"github.com/rcliao/teachbot/internal/variant"
	"github.com/rcliao/teachbot/internal/vector"
)

// Candidate is one scored memory entry.
type Candidate struct {
	ID         int64   `json:"id"`
	User       string  `json:"user"`
	Bot        string  `json:"bot"`
	Corrected  bool    `json:"corrected"`
	Score      float64 `json:"score"`
	Current    float64 `json:"current"`
	Context    float64 `json:"context,omitempty"`
	Jaccard    float64 `json:"jaccard,omitempty"`
	Topic      float64 `json:"topic,omitempty"`
	TimeWeight float64 `json:"time_weight"`
}

// query is an utterance prepared for ranking against the current memory.
type query struct {
	enc       variant.Encoded
	dependent bool
	blend     variant.Blend

	// ctxVec and ctxTokens summarize the most recent entries; ctxVec is
	// nil when none carried a vector.
	ctxVec    vector.Sparse
	ctxTokens []string

	// mixed is the context-blended query vector of the hybrid scorer.
	mixed vector.Sparse
}

func (e *Engine) prepare(text string) query {
	p := e.profile
	enc := p.Encode(text)
	q := query{
		enc:       enc,
		dependent: p.IsContextDependent(features.Analysis{Tokens: enc.Tokens, Features: enc.Features}),
	}
	q.blend = p.BlendFor(q.dependent)
	if p.Scorer == variant.ScorerSingle {
		return q
	}
	q.ctxVec, q.ctxTokens = e.recentContext(p.ContextWindow)
	if p.Scorer == variant.ScorerHybrid {
		q.mixed = vector.Blend(enc.Vector, q.blend.Current, q.ctxVec, q.blend.Context)
	}
	return q
}

// recentContext averages the vectors of the last window entries and pools
// their tokens. Entries without a vector are skipped and not counted.
func (e *Engine) recentContext(window int) (vector.Sparse, []string) {
	if window <= 0 || len(e.memory) == 0 {
		return nil, nil
	}
	start := len(e.memory) - window
	if start < 0 {
		start = 0
	}
	var vecs []vector.Sparse
	var tokens []string
	for _, m := range e.memory[start:] {
		if m.Vector == nil {
			continue
		}
		vecs = append(vecs, m.Vector)
		tokens = append(tokens, m.Tokens...)
	}
	return vector.Mean(vecs), tokens
}

// timeWeight is 1 for a fresh entry and halves at the decay horizon.
func (e *Engine) timeWeight(m model.Entry, now time.Time) float64 {
	horizon := e.profile.DecayHorizonHours
	if horizon <= 0 {
		return 1
	}
	hours := now.Sub(m.CreatedAt()).Hours()
	if hours < 0 {
		hours = 0
	}
	return 1 / (1 + hours/horizon)
}

func (e *Engine) score(q query, m model.Entry, now time.Time) Candidate {
	p := e.profile
	c := Candidate{ID: m.ID, User: m.User, Bot: m.Bot, Corrected: m.Corrected, TimeWeight: 1}

	bonus := 0.0
	if m.Corrected {
		bonus = p.CorrectionBonus
	}
	mv := vector.Sparse(m.Vector)

	switch p.Scorer {
	case variant.ScorerContextual:
		c.Current = vector.CosineSimilarity(q.enc.Vector, mv)
		if q.ctxVec != nil {
			c.Context = vector.CosineSimilarity(q.ctxVec, mv)
		}
		c.TimeWeight = e.timeWeight(m, now)
		c.Score = (q.blend.Current*c.Current + q.blend.Context*c.Context + bonus) * damp(c.TimeWeight)

	case variant.ScorerHybrid:
		c.Current = vector.CosineSimilarity(q.mixed, mv)
		c.Jaccard = vector.Jaccard(q.enc.Tokens, m.Tokens)
		c.Topic = topicOverlap(p.TopicFeatures, q.enc.Features, m.Features)
		c.TimeWeight = e.timeWeight(m, now)
		w := p.Weights
		c.Score = (w.Vector*c.Current + w.Jaccard*c.Jaccard + w.Topic*c.Topic + bonus) * damp(c.TimeWeight)

	default:
		c.Current = vector.CosineSimilarity(q.enc.Vector, mv)
		c.Score = c.Current + bonus
	}
	return c
}

// damp maps a time weight in [0,1] onto a multiplier in [0.7,1].
func damp(tw float64) float64 {
	return 0.7 + 0.3*tw
}

// topicOverlap is the fraction of topic features fired in both the query
// and the entry. Entries without stored features score 0.
func topicOverlap(topics []string, q, m features.Features) float64 {
	if len(topics) == 0 || m == nil || q == nil {
		return 0
	}
	shared := 0
	for _, t := range topics {
		if q.Fired(t) && m.Fired(t) {
			shared++
		}
	}
	return float64(shared) / float64(len(topics))
}

// best scans memory in order and returns the highest-scoring entry. Ties
// keep the earlier entry. ok is false when memory is empty or the best
// score is below the profile's floor.
func (e *Engine) best(q query) (c Candidate, ok bool) {
	now := e.now()
	bestScore := -1.0
	found := false
	for _, m := range e.memory {
		s := e.score(q, m, now)
		if s.Score > bestScore {
			bestScore = s.Score
			c = s
			found = true
		}
	}
	if !found || bestScore < e.profile.MinScore {
		return c, false
	}
	return c, true
}

// rankAll scores every entry, highest first; ties keep scan order.
func (e *Engine) rankAll(q query) []Candidate {
	now := e.now()
	out := make([]Candidate, 0, len(e.memory))
	for _, m := range e.memory {
		out = append(out, e.score(q, m, now))
	}
	sortCandidates(out)
	return out
}
