// Package engine implements the retrieval dialogue engine: it learns
// (utterance, reply) pairs, answers new utterances with the best-matching
// taught reply, compacts old memory into an archive and persists its state
// to a store.
//
// One Engine runs any variant.Profile. The public methods never return
// errors for the core operations; persistence failures are logged and the
// in-memory state stays authoritative.
package engine

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/teachbot/internal/model"
	"github.com/rcliao/teachbot/internal/store"
	"github.com/rcliao/teachbot/internal/variant"
)

// Engine is one model instance. It is NOT safe for concurrent use.
type Engine struct {
	profile variant.Profile
	store   store.Store
	key     string
	logger  *zap.Logger
	now     func() time.Time

	memory  []model.Entry
	archive model.Archive
	nextID  int64

	// loadErr is the last failed Load. While set, mutations are not
	// persisted so the unread snapshot is not overwritten.
	loadErr error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// DefaultStorageKey is the storage key used when none is given.
func DefaultStorageKey(modelID string) string {
	return "teachbot:" + modelID
}

// New creates an engine for profile p and restores its state from st under
// storageKey. A nil store keeps the engine purely in memory.
func New(p variant.Profile, st store.Store, storageKey string, opts ...Option) *Engine {
	if storageKey == "" {
		storageKey = DefaultStorageKey(p.ID)
	}
	e := &Engine{
		profile: p,
		store:   st,
		key:     storageKey,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("model", p.ID), zap.String("storage_key", storageKey))
	e.reset()

	if err := e.Load(); err != nil {
		e.logger.Error("load snapshot; persistence paused until a load succeeds", zap.Error(err))
	}
	return e
}

// LoadErr returns the error of the last failed Load, or nil once the
// stored state has been read (or found missing) or explicitly saved over.
func (e *Engine) LoadErr() error {
	return e.loadErr
}

// Profile returns the engine's profile.
func (e *Engine) Profile() variant.Profile {
	return e.profile
}

// StorageKey returns the key the engine persists under.
func (e *Engine) StorageKey() string {
	return e.key
}

// Len returns the number of entries in memory.
func (e *Engine) Len() int {
	return len(e.memory)
}

// Entries returns a copy of the memory log in teaching order.
func (e *Engine) Entries() []model.Entry {
	out := make([]model.Entry, len(e.memory))
	for i, m := range e.memory {
		out[i] = m.Clone()
	}
	return out
}

// Learn stores a new (user, bot) pair and returns its id. Blank user text
// is ignored and yields 0.
func (e *Engine) Learn(user, bot string) int64 {
	if strings.TrimSpace(user) == "" {
		e.logger.Warn("ignoring learn with empty user text")
		return 0
	}
	entry := e.newEntry(user, bot)
	entry.ID = e.nextID
	e.nextID++
	e.memory = append(e.memory, entry)

	e.logger.Debug("learned", zap.Int64("id", entry.ID))
	e.persist()
	return entry.ID
}

// LearnCorrection replaces the reply of entry id, marks it corrected and
// refreshes its timestamp. The user-side vector is untouched. It reports
// whether the entry existed; an unknown id is a silent no-op.
func (e *Engine) LearnCorrection(id int64, bot string) bool {
	for i := range e.memory {
		if e.memory[i].ID != id {
			continue
		}
		e.memory[i].Bot = bot
		e.memory[i].Corrected = true
		e.memory[i].TS = e.now().UnixMilli()

		e.logger.Debug("corrected", zap.Int64("id", id))
		e.persist()
		return true
	}
	return false
}

// Reset wipes memory and archive. Ids keep counting from where they were,
// so an id is never issued twice by the same engine state.
func (e *Engine) Reset() {
	next := e.nextID
	e.reset()
	e.nextID = next
	e.logger.Info("reset", zap.Int64("next_id", next))
	e.persist()
}

func (e *Engine) reset() {
	s := model.NewSnapshot()
	e.memory = s.Memory
	e.archive = s.Archive
	e.nextID = s.NextID
}

// newEntry encodes user once at teach time.
func (e *Engine) newEntry(user, bot string) model.Entry {
	enc := e.profile.Encode(user)
	entry := model.Entry{
		User:   user,
		Bot:    bot,
		TS:     e.now().UnixMilli(),
		Vector: enc.Vector,
	}
	if e.profile.RichEntries {
		entry.Tokens = enc.Tokens
		entry.Features = enc.Features
	}
	return entry
}
