// Package model defines the core memory data types.
package model

import "time"

// Entry is one taught exchange.
type Entry struct {
	ID        int64              `json:"id"`
	User      string             `json:"user"`
	Bot       string             `json:"bot"`
	Corrected bool               `json:"corrected"`
	TS        int64              `json:"ts"` // unix milliseconds of teaching or last correction
	Vector    map[string]float64 `json:"vectorUser"`
	Tokens    []string           `json:"tokensUser,omitempty"`
	Features  map[string]int     `json:"meta,omitempty"`
}

// CreatedAt returns TS as a time.
func (e Entry) CreatedAt() time.Time {
	return time.UnixMilli(e.TS)
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	c := e
	if e.Vector != nil {
		c.Vector = make(map[string]float64, len(e.Vector))
		for k, v := range e.Vector {
			c.Vector[k] = v
		}
	}
	if e.Tokens != nil {
		c.Tokens = append([]string(nil), e.Tokens...)
	}
	if e.Features != nil {
		c.Features = make(map[string]int, len(e.Features))
		for k, v := range e.Features {
			c.Features[k] = v
		}
	}
	return c
}

// Archive is the lossy summary of entries evicted by compaction.
type Archive struct {
	TokenFrequency map[string]int `json:"tokenFrequency"`
	TotalForgotten int            `json:"totalForgotten"`
}

// NewArchive returns an empty archive.
func NewArchive() Archive {
	return Archive{TokenFrequency: map[string]int{}}
}

// Clone returns a deep copy of a.
func (a Archive) Clone() Archive {
	c := Archive{TokenFrequency: make(map[string]int, len(a.TokenFrequency)), TotalForgotten: a.TotalForgotten}
	for k, v := range a.TokenFrequency {
		c.TokenFrequency[k] = v
	}
	return c
}

// Snapshot is the whole persisted state of one model instance.
type Snapshot struct {
	Memory  []Entry `json:"memory"`
	Archive Archive `json:"archive"`
	NextID  int64   `json:"nextId"`
}

// NewSnapshot returns the empty state every model instance starts from.
func NewSnapshot() Snapshot {
	return Snapshot{Memory: []Entry{}, Archive: NewArchive(), NextID: 1}
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{Memory: make([]Entry, len(s.Memory)), Archive: s.Archive.Clone(), NextID: s.NextID}
	for i, e := range s.Memory {
		c.Memory[i] = e.Clone()
	}
	return c
}

// MaxID returns the largest entry id in memory, or 0 when memory is empty.
func (s Snapshot) MaxID() int64 {
	var max int64
	for _, e := range s.Memory {
		if e.ID > max {
			max = e.ID
		}
	}
	return max
}
