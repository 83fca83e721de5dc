// Package tokenizer splits raw utterances into lowercase tokens and
// character n-grams.
package tokenizer

import (
	"strings"
	"unicode"
)

// Options configures tokenization.
type Options struct {
	// KeepQuestionMarks keeps '?' and '？' inside tokens instead of
	// treating them as separators.
	KeepQuestionMarks bool `yaml:"keep_question_marks" json:"keep_question_marks"`
}

// DefaultOptions returns the options used by most models.
func DefaultOptions() Options {
	return Options{KeepQuestionMarks: true}
}

// Tokenize lower-cases text, replaces every rune outside the whitelist with
// a space and splits on whitespace. The whitelist is ASCII letters and
// digits, hiragana, katakana, the CJK ideograph block, the prolonged sound
// mark and, optionally, question marks. Empty input yields no tokens.
func Tokenize(text string, opts Options) []string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if keep(r, opts) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func keep(r rune, opts Options) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r >= 'ぁ' && r <= 'ん': // hiragana
		return true
	case r >= 'ァ' && r <= 'ン': // katakana
		return true
	case r >= '一' && r <= '龠':
		return true
	case r == 'ー':
		return true
	case r == '?' || r == '？':
		return opts.KeepQuestionMarks
	}
	return unicode.IsSpace(r)
}

// CharNgrams returns every run of n consecutive runes of text after
// removing whitespace and lower-casing. Text shorter than n yields nothing.
func CharNgrams(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	runes := []rune(strings.ToLower(strings.Join(strings.Fields(text), "")))
	if len(runes) < n {
		return nil
	}
	grams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}
