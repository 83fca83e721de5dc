package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/teachbot/internal/model"
	"github.com/rcliao/teachbot/internal/store"
)

// ToData returns a deep copy of the full state.
func (e *Engine) ToData() model.Snapshot {
	s := model.Snapshot{
		Memory:  e.memory,
		Archive: e.archive,
		NextID:  e.nextID,
	}
	return s.Clone()
}

// FromData replaces the full state with s and persists it. Entries with
// blank user text are dropped, missing vectors and timestamps are filled
// in, missing or duplicate ids get fresh ones and nextId is raised above
// the largest id.
func (e *Engine) FromData(s model.Snapshot) {
	s = e.normalize(s.Clone())
	e.memory = s.Memory
	e.archive = s.Archive
	e.nextID = s.NextID
	e.logger.Info("replaced state",
		zap.Int("memory", len(e.memory)),
		zap.Int64("next_id", e.nextID))
	e.persist()
}

// FromJSON decodes a snapshot tolerantly and replaces the state with it.
// Decoding problems are logged and returned; they never abort the import.
func (e *Engine) FromJSON(data []byte) []model.Issue {
	s, issues := model.Decode(data)
	e.logIssues(issues)
	e.FromData(s)
	return issues
}

// Save writes the current state to the store. A successful Save also
// resumes persistence paused by a failed Load.
func (e *Engine) Save() error {
	if e.store == nil {
		return nil
	}
	data, err := json.Marshal(e.ToData())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := e.store.Put(context.Background(), e.key, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	e.loadErr = nil
	return nil
}

// Load restores the state from the store. A missing key leaves the current
// state untouched. Undecodable data is logged and the affected fields keep
// their defaults; only store failures are returned.
func (e *Engine) Load() error {
	if e.store == nil {
		return nil
	}
	rec, err := e.store.Get(context.Background(), e.key)
	if errors.Is(err, store.ErrNotFound) {
		e.loadErr = nil
		return nil
	}
	if err != nil {
		e.loadErr = fmt.Errorf("load snapshot: %w", err)
		return e.loadErr
	}
	e.loadErr = nil

	s, issues := model.Decode(rec.Value)
	e.logIssues(issues)
	s = e.normalize(s)
	e.memory = s.Memory
	e.archive = s.Archive
	e.nextID = s.NextID
	e.logger.Debug("loaded", zap.Int("memory", len(e.memory)), zap.String("revision", rec.Revision))
	return nil
}

// persist saves after a mutation. Failures are logged, never returned.
// Nothing is written while the stored snapshot is unread.
func (e *Engine) persist() {
	if e.loadErr != nil {
		e.logger.Warn("persist skipped: stored snapshot was never loaded", zap.Error(e.loadErr))
		return
	}
	if err := e.Save(); err != nil {
		e.logger.Error("persist failed", zap.Error(err))
	}
}

func (e *Engine) logIssues(issues []model.Issue) {
	for _, is := range issues {
		e.logger.Warn("snapshot field defaulted", zap.String("field", is.Field), zap.Error(is.Err))
	}
}

// normalize enforces the memory invariants on decoded or imported state.
func (e *Engine) normalize(s model.Snapshot) model.Snapshot {
	nowMS := e.now().UnixMilli()
	seen := make(map[int64]bool, len(s.Memory))
	var needID []int

	kept := make([]model.Entry, 0, len(s.Memory))
	for _, m := range s.Memory {
		if strings.TrimSpace(m.User) == "" {
			continue
		}
		if m.TS <= 0 {
			m.TS = nowMS
		}
		if len(m.Vector) == 0 || (e.profile.RichEntries && (m.Tokens == nil || m.Features == nil)) {
			enc := e.profile.Encode(m.User)
			if len(m.Vector) == 0 {
				m.Vector = enc.Vector
			}
			if e.profile.RichEntries {
				if m.Tokens == nil {
					m.Tokens = enc.Tokens
				}
				if m.Features == nil {
					m.Features = enc.Features
				}
			}
		}
		if m.ID <= 0 || seen[m.ID] {
			needID = append(needID, len(kept))
		} else {
			seen[m.ID] = true
		}
		kept = append(kept, m)
	}
	if dropped := len(s.Memory) - len(kept); dropped > 0 {
		e.logger.Warn("dropped entries with empty user text", zap.Int("count", dropped))
	}
	s.Memory = kept

	next := s.NextID
	if max := s.MaxID(); next <= max {
		next = max + 1
	}
	if next < 1 {
		next = 1
	}
	for _, i := range needID {
		s.Memory[i].ID = next
		next++
	}
	if len(needID) > 0 {
		e.logger.Warn("assigned ids to entries", zap.Int("count", len(needID)))
	}
	s.NextID = next

	if s.Archive.TokenFrequency == nil {
		s.Archive.TokenFrequency = map[string]int{}
	}
	if s.Archive.TotalForgotten < 0 {
		s.Archive.TotalForgotten = 0
	}
	return s
}
