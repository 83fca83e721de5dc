package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rcliao/teachbot/internal/store"
	"github.com/rcliao/teachbot/internal/variant"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(t *testing.T, p variant.Profile) (*Engine, *store.MemoryStore, *fakeClock) {
	t.Helper()
	st := store.NewMemoryStore()
	clock := newFakeClock()
	return New(p, st, "test:"+p.ID, WithClock(clock.Now)), st, clock
}

func TestTeachAndReplyScenario(t *testing.T) {
	for _, p := range []variant.Profile{variant.Contextual(), variant.HybridDeepContext()} {
		t.Run(p.ID, func(t *testing.T) {
			e, _, _ := newTestEngine(t, p)
			id := e.Learn("疲れた", "休め")
			assert.Equal(t, int64(1), id)

			d := e.Decide("疲れた")
			assert.Equal(t, BranchRetrieval, d.Branch)
			assert.Equal(t, "休め", d.Reply)
			require.NotNil(t, d.Match)
			assert.Equal(t, id, d.Match.ID)
			assert.InDelta(t, 1.0, d.Match.Current, 1e-9)
		})
	}
}

func TestKeywordOverridesWinOverMemory(t *testing.T) {
	tests := []struct {
		p    variant.Profile
		text string
		rule string
	}{
		{variant.SimpleBow(), "疲れた", "tired"},
		{variant.SimpleBow(), "やる気が出ない", "motivation"},
		{variant.Semantic(), "疲れた", "tired"},
		{variant.Semantic(), "仕事 辞めたい", "quit_work"},
		{variant.Semantic(), "勉強 しんどい", "study_stress"},
		{variant.Semantic(), "残業 きつい", "work_stress"},
		{variant.HybridDeepContext(), "仕事 辞めたい", "quit_work"},
		{variant.HybridDeepContext(), "アクチュアリー 試験", "actuary"},
	}
	for _, tt := range tests {
		t.Run(tt.p.ID+"/"+tt.rule, func(t *testing.T) {
			e, _, _ := newTestEngine(t, tt.p)
			e.Learn(tt.text, "taught")

			d := e.Decide(tt.text)
			assert.Equal(t, BranchOverride, d.Branch)
			assert.Equal(t, tt.rule, d.Rule)
			assert.NotEqual(t, "taught", d.Reply)
		})
	}
}

func TestEmptyMemoryFallsBack(t *testing.T) {
	for _, p := range variant.Builtins() {
		t.Run(p.ID, func(t *testing.T) {
			e, _, _ := newTestEngine(t, p)
			d := e.Decide("the weather is really nice today")
			assert.Equal(t, BranchNotLearned, d.Branch)
			assert.Equal(t, p.Responses.NotLearned, d.Reply)
		})
	}
}

func TestNeedContextFallback(t *testing.T) {
	for _, p := range []variant.Profile{variant.Contextual(), variant.HybridDeepContext()} {
		t.Run(p.ID, func(t *testing.T) {
			e, _, _ := newTestEngine(t, p)
			d := e.Decide("それ")
			assert.Equal(t, BranchNeedContext, d.Branch)
			assert.Equal(t, p.Responses.NeedContext, d.Reply)
		})
	}

	e, _, _ := newTestEngine(t, variant.Semantic())
	assert.Equal(t, BranchNotLearned, e.Decide("それ").Branch, "single scorers have no context tier")
}

func TestContextDependentFollowUp(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.Contextual())
	e.Learn("仕事 つらい 毎日 残業", "休め")

	d := e.Decide("それ")
	assert.Equal(t, BranchRetrieval, d.Branch)
	assert.Equal(t, "休め", d.Reply)
	assert.InDelta(t, 1.0, d.Match.Context, 1e-9)
}

func TestHybridExplainsItself(t *testing.T) {
	p := variant.HybridDeepContext()
	e, _, _ := newTestEngine(t, p)
	d := e.Decide("このモデル の 仕組み を 教えて ください")
	assert.Equal(t, BranchFallback, d.Branch)
	assert.Equal(t, "explain_model", d.Rule)
	assert.Equal(t, p.Fallbacks[0].Response, d.Reply)
}

func TestRiskAlwaysFirst(t *testing.T) {
	for _, p := range variant.Builtins() {
		t.Run(p.ID, func(t *testing.T) {
			e, _, _ := newTestEngine(t, p)
			assert.Equal(t, p.Responses.Safety, e.Reply("もう死にたい"), "empty memory")

			e.Learn("もう死にたい", "unsafe")
			d := e.Decide("もう死にたい")
			assert.Equal(t, BranchSafety, d.Branch)
			assert.Equal(t, p.Responses.Safety, d.Reply)
		})
	}
}

func TestThresholdGate(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.SimpleBow())
	e.Learn("a b c d e", "matched")

	// 2 shared of 5: cosine 0.4
	assert.Equal(t, "matched", e.Reply("a b x y z"))
	// 1 shared, 6 vs 5 tokens: cosine ~0.18
	assert.Equal(t, BranchNotLearned, e.Decide("a x y z w v").Branch)
}

func TestTiesKeepFirstEntry(t *testing.T) {
	for _, p := range variant.Builtins() {
		t.Run(p.ID, func(t *testing.T) {
			e, _, _ := newTestEngine(t, p)
			first := e.Learn("alpha beta gamma delta epsilon", "first")
			e.Learn("alpha beta gamma delta epsilon", "second")

			d := e.Decide("alpha beta gamma delta epsilon")
			require.Equal(t, BranchRetrieval, d.Branch)
			assert.Equal(t, first, d.Match.ID)
			assert.Equal(t, "first", d.Reply)
		})
	}
}

func TestTimeDecayFavorsRecent(t *testing.T) {
	e, _, clock := newTestEngine(t, variant.Contextual())
	e.Learn("a b c d", "old")
	clock.Advance(48 * time.Hour)
	e.Learn("a b c d", "new")

	d := e.Decide("a b c d")
	assert.Equal(t, "new", d.Reply)

	ex := e.Explain("a b c d", 0)
	require.Len(t, ex.Candidates, 2)
	assert.InDelta(t, 1.0, ex.Candidates[0].Score, 1e-9)
	assert.InDelta(t, 1.0/3, ex.Candidates[1].TimeWeight, 1e-9)
	assert.InDelta(t, 0.8, ex.Candidates[1].Score, 1e-9)
}

func TestDecayIsBoundedBelow(t *testing.T) {
	e, _, clock := newTestEngine(t, variant.Contextual())
	e.Learn("a b c d", "ancient")
	clock.Advance(24 * 365 * 10 * time.Hour)

	d := e.Decide("a b c d")
	require.Equal(t, BranchRetrieval, d.Branch)
	assert.GreaterOrEqual(t, d.Match.Score, 0.7)
	assert.Less(t, d.Match.Score, 0.71)
}

func TestLearnCorrection(t *testing.T) {
	e, st, clock := newTestEngine(t, variant.Semantic())
	id := e.Learn("週末 どう 過ごす 予定", "old reply")
	e.Learn("全然 別 の 話題 です", "other")

	before, err := st.Get(context.Background(), e.StorageKey())
	require.NoError(t, err)

	clock.Advance(time.Hour)
	require.True(t, e.LearnCorrection(id, "new reply"))
	assert.Equal(t, "new reply", e.Reply("週末 どう 過ごす 予定"))

	got := e.Entries()[0]
	assert.True(t, got.Corrected)
	assert.Equal(t, clock.Now().UnixMilli(), got.TS)
	assert.Equal(t, "週末 どう 過ごす 予定", got.User)

	after, err := st.Get(context.Background(), e.StorageKey())
	require.NoError(t, err)
	assert.Equal(t, before.Version+1, after.Version)

	assert.False(t, e.LearnCorrection(999, "nobody"))
	unchanged, err := st.Get(context.Background(), e.StorageKey())
	require.NoError(t, err)
	assert.Equal(t, after.Version, unchanged.Version, "unknown id does not persist")
}

func TestCorrectionBonusBreaksTie(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.SimpleBow())
	e.Learn("one two three", "first")
	second := e.Learn("one two three", "second")
	e.LearnCorrection(second, "corrected")

	d := e.Decide("one two three")
	assert.Equal(t, "corrected", d.Reply)
	assert.InDelta(t, 1.1, d.Match.Score, 1e-9)
}

func TestLearnIgnoresBlankUser(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.SimpleBow())
	assert.Equal(t, int64(0), e.Learn("   ", "x"))
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, int64(1), e.Learn("hello", "x"))
}

func TestRichEntries(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.HybridDeepContext())
	e.Learn("仕事 の 話", "x")
	m := e.Entries()[0]
	assert.Equal(t, []string{"仕事", "の", "話"}, m.Tokens)
	assert.Equal(t, 2, m.Features["topic_work"])

	e2, _, _ := newTestEngine(t, variant.Contextual())
	e2.Learn("仕事 の 話", "x")
	assert.Nil(t, e2.Entries()[0].Tokens)
	assert.Nil(t, e2.Entries()[0].Features)
}

func TestHybridTopicOverlap(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.HybridDeepContext())
	e.Learn("会社 の 飲み会 が 多い", "x")

	ex := e.Explain("上司 と 面談 する 予定", 1)
	require.Len(t, ex.Candidates, 1)
	assert.InDelta(t, 0.2, ex.Candidates[0].Topic, 1e-9, "one of five topics shared")
	assert.Zero(t, ex.Candidates[0].Jaccard)
}

func TestCompressScenario(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.SimpleBow())
	for i := 0; i < 5; i++ {
		e.Learn("hello world", "good bye")
	}
	e.Compress(0)

	assert.Equal(t, 0, e.Len())
	s := e.ToData()
	assert.Equal(t, 5, s.Archive.TotalForgotten)
	assert.Equal(t, map[string]int{"hello": 5, "world": 5, "good": 5, "bye": 5}, s.Archive.TokenFrequency)
	assert.Equal(t, int64(6), s.NextID, "ids are never reused")
	assert.Equal(t, int64(6), e.Learn("again", "x"))
}

func TestCompressKeepsNewest(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.Contextual())
	for _, u := range []string{"one", "two", "three", "four"} {
		e.Learn(u, u)
	}
	e.Compress(2)
	got := e.Entries()
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].User)
	assert.Equal(t, "four", got[1].User)

	e.Compress(5)
	assert.Equal(t, 2, e.Len(), "no-op when under the limit")

	e.Compress(-1)
	assert.Equal(t, 2, e.Len(), "negative uses the profile default")
}

func TestReset(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.SimpleBow())
	e.Learn("a", "b")
	e.Learn("c", "d")
	e.Compress(1)
	e.Reset()

	s := e.ToData()
	assert.Empty(t, s.Memory)
	assert.Zero(t, s.Archive.TotalForgotten)
	assert.Empty(t, s.Archive.TokenFrequency)
	assert.Equal(t, int64(3), s.NextID)
	assert.Equal(t, int64(3), e.Learn("e", "f"), "ids are not reused after a reset")
}

func TestStats(t *testing.T) {
	e, _, clock := newTestEngine(t, variant.SimpleBow())
	start := clock.Now()
	e.Learn("a b", "c")
	clock.Advance(time.Minute)
	id := e.Learn("d", "e")
	e.LearnCorrection(id, "f")
	e.Learn("x x", "y")
	e.Compress(1)

	st := e.Stats(2)
	assert.Equal(t, variant.SimpleBowID, st.Model)
	assert.Equal(t, 1, st.Memory)
	assert.Equal(t, 0, st.Corrected)
	assert.Equal(t, int64(4), st.NextID)
	assert.Equal(t, 2, st.TotalForgotten)
	assert.Equal(t, 5, st.ArchivedTokens)
	require.Len(t, st.TopTokens, 2)
	assert.Equal(t, TokenCount{Token: "a", Count: 1}, st.TopTokens[0])
	require.NotNil(t, st.Oldest)
	assert.True(t, st.Oldest.After(start))
}

type failingStore struct {
	store.Store
}

func (failingStore) Get(context.Context, string) (*store.Record, error) {
	return nil, store.ErrNotFound
}

func (failingStore) Put(context.Context, string, []byte) (*store.Record, error) {
	return nil, errors.New("disk full")
}

func TestPersistFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := New(variant.SimpleBow(), failingStore{}, "k", WithLogger(zap.New(core)))

	id := e.Learn("hello", "world")
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "world", e.Reply("hello"), "in-memory state stays authoritative")

	entries := logs.FilterMessage("persist failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "k", entries[0].ContextMap()["storage_key"])
	assert.Error(t, e.Save())
}

// flakyStore fails the first getFailures reads.
type flakyStore struct {
	*store.MemoryStore
	getFailures int
}

func (s *flakyStore) Get(ctx context.Context, key string) (*store.Record, error) {
	if s.getFailures > 0 {
		s.getFailures--
		return nil, errors.New("connection reset")
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestFailedLoadDoesNotOverwriteStoredState(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{MemoryStore: store.NewMemoryStore()}
	clock := newFakeClock()
	seed := New(variant.SimpleBow(), st, "k", WithClock(clock.Now))
	seed.Learn("疲れた", "休め")
	seed.Learn("hello", "world")

	st.getFailures = 1
	e := New(variant.SimpleBow(), st, "k", WithClock(clock.Now))
	require.Error(t, e.LoadErr())
	assert.Equal(t, 0, e.Len())

	e.Learn("new", "entry")
	rec, err := st.MemoryStore.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Version, "stored snapshot untouched while unread")

	require.NoError(t, e.Load())
	assert.NoError(t, e.LoadErr())
	assert.Equal(t, 2, e.Len())
	e.Learn("after", "reload")
	assert.Equal(t, 3, New(variant.SimpleBow(), st, "k").Len())
}

func TestSaveResumesPersistence(t *testing.T) {
	st := &flakyStore{MemoryStore: store.NewMemoryStore(), getFailures: 1}
	e := New(variant.SimpleBow(), st, "k")
	require.Error(t, e.LoadErr())

	e.Learn("a", "b")
	require.NoError(t, e.Save())
	assert.NoError(t, e.LoadErr())
	e.Learn("c", "d")
	assert.Equal(t, 2, New(variant.SimpleBow(), st, "k").Len())
}

func TestExplain(t *testing.T) {
	e, _, _ := newTestEngine(t, variant.Contextual())
	e.Learn("a b c d", "x")
	e.Learn("e f g h", "y")
	e.Learn("a b e f", "z")

	ex := e.Explain("a b c d", 2)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ex.Tokens)
	assert.False(t, ex.ContextDependent)
	assert.Equal(t, variant.Blend{Current: 0.7, Context: 0.3}, ex.Blend)
	require.Len(t, ex.Candidates, 2)
	assert.Equal(t, "x", ex.Candidates[0].Bot)
	assert.GreaterOrEqual(t, ex.Candidates[0].Score, ex.Candidates[1].Score)
	assert.Equal(t, e.Decide("a b c d"), ex.Decision)
}
