package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts Options
		want []string
	}{
		{"empty", "", DefaultOptions(), nil},
		{"whitespace only", "  \t\n ", DefaultOptions(), nil},
		{"ascii lowercased", "Hello World", DefaultOptions(), []string{"hello", "world"}},
		{"punctuation splits", "疲れた。休め！", DefaultOptions(), []string{"疲れた", "休め"}},
		{"katakana and prolonged mark", "アクチュアリー試験", DefaultOptions(), []string{"アクチュアリー試験"}},
		{"question marks kept", "どう思う？ why?", DefaultOptions(), []string{"どう思う？", "why?"}},
		{"question marks dropped", "どう思う？ why?", Options{}, []string{"どう思う", "why"}},
		{"fullwidth space", "仕事　つらい", DefaultOptions(), []string{"仕事", "つらい"}},
		{"symbols removed", "a_b-c#d", DefaultOptions(), []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text, tt.opts)
			if len(tt.want) == 0 {
				if len(got) != 0 {
					t.Errorf("Tokenize(%q) = %q, want no tokens", tt.text, got)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestCharNgrams(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want []string
	}{
		{"basic", "疲れた", 3, []string{"疲れた"}},
		{"sliding", "ABCD", 3, []string{"abc", "bcd"}},
		{"whitespace stripped", "a b c d", 3, []string{"abc", "bcd"}},
		{"too short", "ab", 3, nil},
		{"zero n", "abc", 0, nil},
		{"punctuation kept", "a!b", 3, []string{"a!b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CharNgrams(tt.text, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CharNgrams(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
			}
		})
	}
}
