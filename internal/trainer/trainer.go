// Package trainer turns raw text into exchanges for bulk teaching.
package trainer

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTemplate is the reply used for a line with no bot text.
const DefaultTemplate = "『{user}』を覚えた。"

// Mode selects how plain text is split into pieces.
type Mode string

const (
	ModeLines     Mode = "lines"
	ModeSentences Mode = "sentences"
	ModePairs     Mode = "pairs"
)

// ParseMode accepts a mode name. Empty means lines.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeLines, nil
	case ModeLines, ModeSentences, ModePairs:
		return m, nil
	default:
		return "", fmt.Errorf("unknown train mode %q: want lines, sentences or pairs", s)
	}
}

// Pair is one exchange to teach. Line is the 1-based source line, or 0
// when the pair does not map to a single line.
type Pair struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
	Line int    `json:"line,omitempty"`
}

// Learner is the part of an engine the trainer needs.
type Learner interface {
	Learn(user, bot string) int64
}

// Line is one non-blank source line and its 1-based line number.
type Line struct {
	Text string
	Num  int
}

// SplitLines returns the trimmed non-blank lines of raw.
func SplitLines(raw string) []Line {
	var out []Line
	for i, line := range splitRawLines(raw) {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, Line{Text: t, Num: i + 1})
		}
	}
	return out
}

var (
	spaceRun = regexp.MustCompile(`\s+`)
	sentEnd  = regexp.MustCompile(`[。．！？?!]`)
)

// SplitSentences collapses whitespace and cuts raw after every sentence
// terminator. The terminator stays with its sentence.
func SplitSentences(raw string) []string {
	text := strings.TrimSpace(spaceRun.ReplaceAllString(raw, " "))
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for _, loc := range sentEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// ParsePairs reads one exchange per line. A line "user<TAB>bot" is taken as
// is; any other line becomes user text with tmpl as the reply, where the
// first "{user}" in tmpl is replaced by the line. Lines whose user or bot
// ends up empty are skipped. An empty tmpl means DefaultTemplate.
func ParsePairs(raw, tmpl string) []Pair {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	var out []Pair
	for i, line := range splitRawLines(raw) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var user, bot string
		if u, b, ok := strings.Cut(line, "\t"); ok {
			user, bot = strings.TrimSpace(u), strings.TrimSpace(b)
		} else {
			user = line
			bot = strings.Replace(tmpl, "{user}", user, 1)
		}
		if user == "" || bot == "" {
			continue
		}
		out = append(out, Pair{User: user, Bot: bot, Line: i + 1})
	}
	return out
}

// Echo pairs every piece with itself, so retrieval later replays the text.
func Echo(pieces []string) []Pair {
	out := make([]Pair, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, Pair{User: p, Bot: p})
	}
	return out
}

// Build splits raw according to mode.
func Build(raw string, mode Mode, tmpl string) []Pair {
	switch mode {
	case ModeSentences:
		return Echo(SplitSentences(raw))
	case ModePairs:
		return ParsePairs(raw, tmpl)
	default:
		lines := SplitLines(raw)
		out := make([]Pair, 0, len(lines))
		for _, l := range lines {
			out = append(out, Pair{User: l.Text, Bot: l.Text, Line: l.Num})
		}
		return out
	}
}

// Teach learns every pair and returns the ids issued, in order. Pairs the
// learner ignores (id 0) are left out.
func Teach(l Learner, pairs []Pair) []int64 {
	ids := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		if id := l.Learn(p.User, p.Bot); id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func splitRawLines(raw string) []string {
	return strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
}
