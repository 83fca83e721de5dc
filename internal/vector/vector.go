// Package vector provides sparse text vectors keyed by symbolic feature
// names and the similarity math used to rank them.
package vector

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rcliao/teachbot/internal/features"
	"github.com/rcliao/teachbot/internal/tokenizer"
)

// Sparse maps a feature key to its weight. Absent keys are zero.
type Sparse map[string]float64

// Keys returns the keys of v in sorted order.
func (v Sparse) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Norm returns the L2 norm of v.
func (v Sparse) Norm() float64 {
	var sum float64
	for _, k := range v.Keys() {
		sum += v[k] * v[k]
	}
	return math.Sqrt(sum)
}

// CosineSimilarity computes cosine similarity between two sparse vectors:
// the dot product over shared keys divided by the product of each vector's
// own norm. Either norm being zero yields 0. The result is clamped to
// [0,1]; keys are visited in sorted order so equal inputs always give
// bit-identical scores.
func CosineSimilarity(a, b Sparse) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA float64
	for _, k := range a.Keys() {
		x := a[k]
		normA += x * x
		if y, ok := b[k]; ok {
			dot += x * y
		}
	}
	normB := b.Norm()
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * normB)
	switch {
	case sim < 0:
		return 0
	case sim > 1:
		return 1
	}
	return sim
}

// Jaccard returns |A∩B| / |A∪B| over the token sets of a and b, or 0 when
// either side is empty.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Mean sums the non-nil vectors component-wise and divides by how many
// contributed. It returns nil when none did.
func Mean(vs []Sparse) Sparse {
	acc := Sparse{}
	count := 0
	for _, v := range vs {
		if v == nil {
			continue
		}
		count++
		for k, x := range v {
			acc[k] += x
		}
	}
	if count == 0 {
		return nil
	}
	for k := range acc {
		acc[k] /= float64(count)
	}
	return acc
}

// Blend returns alpha*a + beta*b. A nil b contributes nothing.
func Blend(a Sparse, alpha float64, b Sparse, beta float64) Sparse {
	out := make(Sparse, len(a)+len(b))
	for k, x := range a {
		out[k] += alpha * x
	}
	for k, y := range b {
		out[k] += beta * y
	}
	return out
}

// Clone returns a copy of v.
func (v Sparse) Clone() Sparse {
	if v == nil {
		return nil
	}
	c := make(Sparse, len(v))
	for k, x := range v {
		c[k] = x
	}
	return c
}

// Scale is the weight a feature dimension gets in the vector.
type Scale struct {
	Feature string  `yaml:"feature" json:"feature"`
	Factor  float64 `yaml:"factor" json:"factor"`
}

// Options selects which signals Build writes into a vector.
type Options struct {
	Bigrams bool `yaml:"bigrams" json:"bigrams"`

	// CharNgram is the n of character n-grams; 0 disables them.
	CharNgram       int     `yaml:"char_ngram" json:"char_ngram"`
	CharNgramWeight float64 `yaml:"char_ngram_weight" json:"char_ngram_weight"`

	// Scales lists the feature dimensions to write. Features without a
	// scale stay out of the vector.
	Scales []Scale `yaml:"scales" json:"scales"`
}

// BigramKey is the key of the adjacent token pair (a, b).
func BigramKey(a, b string) string {
	return a + "_" + b
}

// CharNgramKey is the key of a character n-gram.
func CharNgramKey(n int, gram string) string {
	return "#c" + strconv.Itoa(n) + "_" + gram
}

// FeatureKey is the key of a feature dimension.
func FeatureKey(name string) string {
	return "__" + strings.ToUpper(name) + "__"
}

// Build composes the vector of one utterance from its tokens, raw text and
// features. Token keys, bigram keys, n-gram keys and feature keys live in
// disjoint namespaces since tokens never contain '_' or '#'.
func Build(text string, tokens []string, f features.Features, opts Options) Sparse {
	v := Sparse{}
	for _, t := range tokens {
		v[t]++
	}
	if opts.Bigrams {
		for i := 0; i+1 < len(tokens); i++ {
			v[BigramKey(tokens[i], tokens[i+1])]++
		}
	}
	if opts.CharNgram > 0 {
		for _, g := range tokenizer.CharNgrams(text, opts.CharNgram) {
			v[CharNgramKey(opts.CharNgram, g)] += opts.CharNgramWeight
		}
	}
	for _, s := range opts.Scales {
		if n := f.Get(s.Feature); n > 0 && s.Factor != 0 {
			v[FeatureKey(s.Feature)] += float64(n) * s.Factor
		}
	}
	return v
}
