package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	snap := Snapshot{
		Memory: []Entry{
			{ID: 1, User: "疲れた", Bot: "休め", TS: 1700000000000, Vector: map[string]float64{"疲れた": 1}},
			{ID: 3, User: "仕事 辞めたい", Bot: "落ち着け", Corrected: true, TS: 1700000001000,
				Vector: map[string]float64{"仕事": 1, "__TOPIC_WORK__": 3}, Tokens: []string{"仕事", "辞めたい"},
				Features: map[string]int{"topic_work": 2}},
		},
		Archive: Archive{TokenFrequency: map[string]int{"a": 2}, TotalForgotten: 1},
		NextID:  4,
	}
	b, err := json.Marshal(snap)
	require.NoError(t, err)

	got, issues := Decode(b)
	assert.Empty(t, issues)
	assert.Equal(t, snap, got)
}

func TestDecodeDefaults(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantIssues int
	}{
		{"not json", "{oops", 1},
		{"not an object", `[1,2,3]`, 1},
		{"empty object", `{}`, 0},
		{"nulls", `{"memory":null,"archive":null,"nextId":null}`, 0},
		{"memory wrong type", `{"memory":{"a":1}}`, 1},
		{"archive wrong type", `{"archive":"x"}`, 1},
		{"nextId wrong type", `{"nextId":"7"}`, 1},
		{"nextId fractional", `{"nextId":1.5}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := Decode([]byte(tt.input))
			assert.Len(t, issues, tt.wantIssues)
			assert.Empty(t, got.Memory)
			assert.NotNil(t, got.Memory)
			assert.NotNil(t, got.Archive.TokenFrequency)
			assert.Equal(t, 0, got.Archive.TotalForgotten)
			assert.Equal(t, int64(1), got.NextID)
		})
	}
}

func TestDecodeInvalidIDsLeftForCaller(t *testing.T) {
	input := `{"memory":[
		{"id":1,"user":"a","bot":"b","ts":10},
		{"id":"two","user":"c","bot":"d"},
		{"id":-4,"user":"e","bot":"f"},
		{"id":0,"user":"i","bot":"j"},
		{"id":2.5,"user":"k","bot":"l"},
		{"user":"g","bot":"h"}
	],"nextId":5}`
	got, issues := Decode([]byte(input))
	require.Len(t, got.Memory, 6)
	assert.Len(t, issues, 4)
	assert.Equal(t, int64(1), got.Memory[0].ID)
	for _, m := range got.Memory[1:] {
		assert.Equal(t, int64(0), m.ID, "entry %q", m.User)
	}
	assert.Equal(t, "d", got.Memory[1].Bot)
	assert.Equal(t, int64(5), got.NextID)
}

func TestDecodeMalformedEntryFields(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		field string
		check func(t *testing.T, e Entry)
	}{
		{"id string", `{"id":"1","user":"仕事 つらい","bot":"休め"}`, "memory[0].id",
			func(t *testing.T, e Entry) { assert.Equal(t, int64(0), e.ID) }},
		{"corrected string", `{"id":1,"user":"仕事 つらい","bot":"休め","corrected":"yes"}`, "memory[0].corrected",
			func(t *testing.T, e Entry) { assert.False(t, e.Corrected) }},
		{"ts string", `{"id":1,"user":"仕事 つらい","bot":"休め","ts":"1700000000000"}`, "memory[0].ts",
			func(t *testing.T, e Entry) { assert.Equal(t, int64(0), e.TS) }},
		{"bot number", `{"id":1,"user":"仕事 つらい","bot":7}`, "memory[0].bot",
			func(t *testing.T, e Entry) { assert.Equal(t, "", e.Bot) }},
		{"vector wrong shape", `{"id":1,"user":"仕事 つらい","bot":"休め","vectorUser":["x"]}`, "memory[0].vectorUser",
			func(t *testing.T, e Entry) { assert.Nil(t, e.Vector) }},
		{"bad vector falls back to legacy", `{"id":1,"user":"仕事 つらい","bot":"休め","vectorUser":{"a":"b"},"vec":{"仕事":1}}`, "memory[0].vectorUser",
			func(t *testing.T, e Entry) { assert.Equal(t, map[string]float64{"仕事": 1}, e.Vector) }},
		{"tokens wrong type", `{"id":1,"user":"仕事 つらい","bot":"休め","tokensUser":"仕事"}`, "memory[0].tokensUser",
			func(t *testing.T, e Entry) { assert.Nil(t, e.Tokens) }},
		{"meta wrong type", `{"id":1,"user":"仕事 つらい","bot":"休め","meta":[1]}`, "memory[0].meta",
			func(t *testing.T, e Entry) { assert.Nil(t, e.Features) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := Decode([]byte(`{"memory":[` + tt.entry + `]}`))
			require.Len(t, got.Memory, 1, "entry with intact texts is kept")
			assert.Equal(t, "仕事 つらい", got.Memory[0].User)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.field, issues[0].Field)
			tt.check(t, got.Memory[0])
		})
	}
}

func TestDecodeDropsUnusableEntries(t *testing.T) {
	input := `{"memory":[
		"just a string",
		{"id":1,"user":42,"bot":"x"},
		{"id":2,"user":"ok","bot":"y"}
	]}`
	got, issues := Decode([]byte(input))
	require.Len(t, got.Memory, 1)
	assert.Equal(t, "ok", got.Memory[0].User)
	require.Len(t, issues, 2)
	assert.Equal(t, "memory[0]", issues[0].Field)
	assert.Equal(t, "memory[1]", issues[1].Field)
}

func TestDecodeLegacyFieldNames(t *testing.T) {
	input := `{
		"memory":[
			{"id":1,"user":"x","bot":"y","ts":5,"vec":{"x":1}},
			{"id":2,"user":"z","bot":"w","ts":6,"vecUser":{"z":2},"meta":{"topic_work":2}}
		],
		"archive":{"tokenFreq":{"old":3},"totalUtterances":2},
		"nextId":3
	}`
	got, issues := Decode([]byte(input))
	assert.Empty(t, issues)
	require.Len(t, got.Memory, 2)
	assert.Equal(t, map[string]float64{"x": 1}, got.Memory[0].Vector)
	assert.Equal(t, map[string]float64{"z": 2}, got.Memory[1].Vector)
	assert.Equal(t, map[string]int{"topic_work": 2}, got.Memory[1].Features)
	assert.Equal(t, map[string]int{"old": 3}, got.Archive.TokenFrequency)
	assert.Equal(t, 2, got.Archive.TotalForgotten)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]byte(`{"memory":[],"archive":{},"nextId":1}`)))
	assert.ErrorIs(t, Validate([]byte(`{"memory":[],"nextId":1}`)), ErrIncompleteSnapshot)
	assert.Error(t, Validate([]byte(`nope`)))
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	s := NewSnapshot()
	s.Memory = append(s.Memory, Entry{ID: 1, User: "a", Vector: map[string]float64{"a": 1}, Tokens: []string{"a"}})
	s.Archive.TokenFrequency["a"] = 1

	c := s.Clone()
	c.Memory[0].Vector["a"] = 9
	c.Memory[0].Tokens[0] = "b"
	c.Archive.TokenFrequency["a"] = 9

	assert.Equal(t, 1.0, s.Memory[0].Vector["a"])
	assert.Equal(t, "a", s.Memory[0].Tokens[0])
	assert.Equal(t, 1, s.Archive.TokenFrequency["a"])
	assert.Equal(t, int64(1), s.MaxID())
}
