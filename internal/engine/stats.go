package engine

import (
	"sort"
	"time"
)

// TokenCount is one archived token and its frequency.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Stats summarizes an engine's state.
type Stats struct {
	Model          string       `json:"model"`
	StorageKey     string       `json:"storage_key"`
	Memory         int          `json:"memory"`
	Corrected      int          `json:"corrected"`
	NextID         int64        `json:"next_id"`
	MaxKeep        int          `json:"max_keep"`
	TotalForgotten int          `json:"total_forgotten"`
	ArchivedTokens int          `json:"archived_tokens"`
	TopTokens      []TokenCount `json:"top_tokens,omitempty"`
	Oldest         *time.Time   `json:"oldest,omitempty"`
	Newest         *time.Time   `json:"newest,omitempty"`
}

// Stats reports memory and archive counts plus the top n archived tokens.
func (e *Engine) Stats(n int) Stats {
	st := Stats{
		Model:          e.profile.ID,
		StorageKey:     e.key,
		Memory:         len(e.memory),
		NextID:         e.nextID,
		MaxKeep:        e.profile.MaxKeep,
		TotalForgotten: e.archive.TotalForgotten,
		ArchivedTokens: len(e.archive.TokenFrequency),
	}
	for i, m := range e.memory {
		if m.Corrected {
			st.Corrected++
		}
		t := m.CreatedAt()
		if i == 0 || t.Before(*st.Oldest) {
			st.Oldest = &t
		}
		if i == 0 || t.After(*st.Newest) {
			tt := t
			st.Newest = &tt
		}
	}

	if n > 0 {
		for tok, c := range e.archive.TokenFrequency {
			st.TopTokens = append(st.TopTokens, TokenCount{Token: tok, Count: c})
		}
		sort.Slice(st.TopTokens, func(i, j int) bool {
			if st.TopTokens[i].Count != st.TopTokens[j].Count {
				return st.TopTokens[i].Count > st.TopTokens[j].Count
			}
			return st.TopTokens[i].Token < st.TopTokens[j].Token
		})
		if len(st.TopTokens) > n {
			st.TopTokens = st.TopTokens[:n]
		}
	}
	return st
}
