package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/rcliao/teachbot/internal/features"
	"github.com/rcliao/teachbot/internal/variant"
)

// Branch names the reply-policy tier that produced a reply.
type Branch string

const (
	BranchSafety      Branch = "safety"
	BranchOverride    Branch = "override"
	BranchRetrieval   Branch = "retrieval"
	BranchNeedContext Branch = "need_context"
	BranchFallback    Branch = "fallback"
	BranchNotLearned  Branch = "not_learned"
)

// Decision is the outcome of the reply policy for one utterance.
type Decision struct {
	Branch Branch `json:"branch"`
	// Rule is the override or fallback name for those branches.
	Rule  string `json:"rule,omitempty"`
	Reply string `json:"reply"`
	// Match is set for the retrieval branch.
	Match *Candidate `json:"match,omitempty"`
}

// Reply answers an utterance. It never fails: when nothing matches it
// returns one of the profile's fixed responses.
func (e *Engine) Reply(text string) string {
	return e.decide(text).Reply
}

// Decide runs the reply policy and reports which tier answered.
func (e *Engine) Decide(text string) Decision {
	return e.decide(text)
}

func (e *Engine) decide(text string) Decision {
	p := e.profile
	a := p.Analyze(text)

	if a.Features.Fired(features.Risk) {
		return Decision{Branch: BranchSafety, Reply: p.Responses.Safety}
	}

	if o, ok := firstMatch(p.Overrides, text, a.Features); ok {
		return Decision{Branch: BranchOverride, Rule: o.Name, Reply: o.Response}
	}

	q := e.prepare(text)
	if c, ok := e.best(q); ok {
		e.logger.Debug("retrieved", zap.Int64("id", c.ID), zap.Float64("score", c.Score))
		return Decision{Branch: BranchRetrieval, Reply: c.Bot, Match: &c}
	}

	if q.dependent && p.Responses.NeedContext != "" {
		return Decision{Branch: BranchNeedContext, Reply: p.Responses.NeedContext}
	}

	if o, ok := firstMatch(p.Fallbacks, text, a.Features); ok {
		return Decision{Branch: BranchFallback, Rule: o.Name, Reply: o.Response}
	}

	return Decision{Branch: BranchNotLearned, Reply: p.Responses.NotLearned}
}

func firstMatch(rules []variant.Override, text string, f features.Features) (variant.Override, bool) {
	for _, o := range rules {
		if o.When.Match(text, f) {
			return o, true
		}
	}
	return variant.Override{}, false
}

// Explanation is a debugging view of how an utterance would be answered.
type Explanation struct {
	Text             string         `json:"text"`
	Tokens           []string       `json:"tokens"`
	Features         map[string]int `json:"features"`
	ContextDependent bool           `json:"context_dependent"`
	Blend            variant.Blend  `json:"blend"`
	ContextTokens    []string       `json:"context_tokens,omitempty"`
	MinScore         float64        `json:"min_score"`
	Decision         Decision       `json:"decision"`
	Candidates       []Candidate    `json:"candidates"`
}

// Explain reports the analysis, the decision and the top n candidates for
// text. n <= 0 lists every entry.
func (e *Engine) Explain(text string, n int) Explanation {
	q := e.prepare(text)
	ranked := e.rankAll(q)
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	fired := map[string]int{}
	for k, v := range q.enc.Features {
		if v > 0 {
			fired[k] = v
		}
	}
	return Explanation{
		Text:             text,
		Tokens:           q.enc.Tokens,
		Features:         fired,
		ContextDependent: q.dependent,
		Blend:            q.blend,
		ContextTokens:    q.ctxTokens,
		MinScore:         e.profile.MinScore,
		Decision:         e.decide(text),
		Candidates:       ranked,
	}
}

func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Score > cs[j].Score })
}
