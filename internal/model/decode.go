package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Issue records a part of a snapshot that could not be decoded and was
// replaced by its default.
type Issue struct {
	Field string
	Err   error
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %v", i.Field, i.Err)
}

// rawSnapshot keeps each top-level field undecoded so one bad field does
// not take the others down with it.
type rawSnapshot struct {
	Memory  json.RawMessage `json:"memory"`
	Archive json.RawMessage `json:"archive"`
	NextID  json.RawMessage `json:"nextId"`
}

type rawArchive struct {
	TokenFrequency  map[string]float64 `json:"tokenFrequency"`
	TokenFreq       map[string]float64 `json:"tokenFreq"`
	TotalForgotten  *float64           `json:"totalForgotten"`
	TotalUtterances *float64           `json:"totalUtterances"`
}

// Decode parses a snapshot without trusting its shape. Missing or malformed
// fields fall back to the empty defaults of NewSnapshot; each fallback is
// reported as an Issue. Decode never fails.
//
// Inside an entry every field is decoded on its own: a malformed id,
// timestamp, flag or vector is reported and left at its zero value, so the
// entry survives with its texts. Only an entry that is not an object, or
// whose user text is not a string, is dropped. Entries without a valid id
// are returned with ID 0 and entries without a timestamp with TS 0; the
// caller decides how to fill them in.
func Decode(data []byte) (Snapshot, []Issue) {
	snap := NewSnapshot()
	var issues []Issue

	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return snap, []Issue{{Field: "snapshot", Err: err}}
	}

	if isPresent(raw.Memory) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw.Memory, &items); err != nil {
			issues = append(issues, Issue{Field: "memory", Err: err})
		} else {
			for i, item := range items {
				path := fmt.Sprintf("memory[%d]", i)
				e, entryIssues, err := decodeEntry(item, path)
				issues = append(issues, entryIssues...)
				if err != nil {
					issues = append(issues, Issue{Field: path, Err: err})
					continue
				}
				snap.Memory = append(snap.Memory, e)
			}
		}
	}

	if isPresent(raw.Archive) {
		a, err := decodeArchive(raw.Archive)
		if err != nil {
			issues = append(issues, Issue{Field: "archive", Err: err})
		} else {
			snap.Archive = a
		}
	}

	if isPresent(raw.NextID) {
		var n float64
		if err := json.Unmarshal(raw.NextID, &n); err != nil {
			issues = append(issues, Issue{Field: "nextId", Err: err})
		} else if n < 1 || n != math.Trunc(n) {
			issues = append(issues, Issue{Field: "nextId", Err: fmt.Errorf("invalid value %v", n)})
		} else {
			snap.NextID = int64(n)
		}
	}

	return snap, issues
}

func isPresent(m json.RawMessage) bool {
	return len(m) > 0 && string(m) != "null"
}

// decodeEntry accepts both the current field names and the legacy ones
// (vec, vecUser) written by older exports.
func decodeEntry(data json.RawMessage, path string) (Entry, []Issue, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Entry{}, nil, err
	}

	var issues []Issue
	field := func(name string, dst any) bool {
		raw, ok := fields[name]
		if !ok || !isPresent(raw) {
			return false
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			issues = append(issues, Issue{Field: path + "." + name, Err: err})
			return false
		}
		return true
	}

	var e Entry
	if raw, ok := fields["user"]; ok && isPresent(raw) {
		if err := json.Unmarshal(raw, &e.User); err != nil {
			return Entry{}, issues, fmt.Errorf("user: %w", err)
		}
	}
	field("bot", &e.Bot)
	field("corrected", &e.Corrected)

	var id float64
	if field("id", &id) {
		if id < 1 || id != math.Trunc(id) {
			issues = append(issues, Issue{Field: path + ".id", Err: fmt.Errorf("invalid value %v", id)})
		} else {
			e.ID = int64(id)
		}
	}
	var ts float64
	if field("ts", &ts) && ts > 0 {
		e.TS = int64(ts)
	}

	for _, name := range []string{"vectorUser", "vecUser", "vec"} {
		var v map[string]float64
		if field(name, &v) && v != nil {
			e.Vector = v
			break
		}
	}
	var tokens []string
	if field("tokensUser", &tokens) {
		e.Tokens = tokens
	}
	var meta map[string]float64
	if field("meta", &meta) && meta != nil {
		e.Features = make(map[string]int, len(meta))
		for k, v := range meta {
			e.Features[k] = int(v)
		}
	}
	return e, issues, nil
}

func decodeArchive(data json.RawMessage) (Archive, error) {
	var r rawArchive
	if err := json.Unmarshal(data, &r); err != nil {
		return Archive{}, err
	}
	a := NewArchive()
	freq := r.TokenFrequency
	if freq == nil {
		freq = r.TokenFreq
	}
	for k, v := range freq {
		if v > 0 {
			a.TokenFrequency[k] = int(v)
		}
	}
	switch {
	case r.TotalForgotten != nil:
		a.TotalForgotten = int(*r.TotalForgotten)
	case r.TotalUtterances != nil:
		a.TotalForgotten = int(*r.TotalUtterances)
	}
	if a.TotalForgotten < 0 {
		a.TotalForgotten = 0
	}
	return a, nil
}

// ErrIncompleteSnapshot is returned by Validate when a required top-level
// field is missing.
var ErrIncompleteSnapshot = errors.New("snapshot must contain memory, archive and nextId")

// Validate is the strict check hosts run before replacing a model's state
// with user-supplied data. It only checks the top-level shape.
func Validate(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	for _, k := range []string{"memory", "archive", "nextId"} {
		if _, ok := fields[k]; !ok {
			return fmt.Errorf("%w: missing %q", ErrIncompleteSnapshot, k)
		}
	}
	return nil
}
