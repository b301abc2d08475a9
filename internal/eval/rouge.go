// Package eval scores generated customer profiles against references.
package eval

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Scores holds ROUGE F-measures.
type Scores struct {
	Rouge1 float64 `json:"rouge1"`
	Rouge2 float64 `json:"rouge2"`
	RougeL float64 `json:"rougeL"`
}

// Average is the mean of the three measures.
func (s Scores) Average() float64 {
	return (s.Rouge1 + s.Rouge2 + s.RougeL) / 3
}

// Pair is a reference summary and a generated candidate.
type Pair struct {
	Reference string
	Candidate string
}

// Tokenize lowercases s and splits it on anything that is not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Rouge computes ROUGE-1, ROUGE-2 and ROUGE-L for one pair.
func Rouge(reference, candidate string) Scores {
	ref, cand := Tokenize(reference), Tokenize(candidate)
	return Scores{
		Rouge1: ngramF(ref, cand, 1),
		Rouge2: ngramF(ref, cand, 2),
		RougeL: lcsF(ref, cand),
	}
}

// Corpus averages the scores of all pairs, skipping pairs with an empty side.
func Corpus(pairs []Pair) (Scores, int) {
	var sum Scores
	n := 0
	for _, p := range pairs {
		if strings.TrimSpace(p.Reference) == "" || strings.TrimSpace(p.Candidate) == "" {
			continue
		}
		s := Rouge(p.Reference, p.Candidate)
		sum.Rouge1 += s.Rouge1
		sum.Rouge2 += s.Rouge2
		sum.RougeL += s.RougeL
		n++
	}
	if n == 0 {
		return Scores{}, 0
	}
	return Scores{Rouge1: sum.Rouge1 / float64(n), Rouge2: sum.Rouge2 / float64(n), RougeL: sum.RougeL / float64(n)}, n
}

// ReadPairs reads a two column CSV (reference, candidate). A header row
// whose first cell is "reference" is skipped.
func ReadPairs(r io.Reader) ([]Pair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("eval: read csv: %w", err)
	}
	pairs := make([]Pair, 0, len(rows))
	for i, row := range rows {
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "reference") {
			continue
		}
		pairs = append(pairs, Pair{Reference: row[0], Candidate: row[1]})
	}
	return pairs, nil
}

func ngrams(tokens []string, n int) map[string]int {
	out := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+n], " ")]++
	}
	return out
}

func ngramF(ref, cand []string, n int) float64 {
	refGrams, candGrams := ngrams(ref, n), ngrams(cand, n)
	var refTotal, candTotal, overlap int
	for _, c := range refGrams {
		refTotal += c
	}
	for g, c := range candGrams {
		candTotal += c
		overlap += min(c, refGrams[g])
	}
	return fmeasure(overlap, refTotal, candTotal)
}

func lcsF(ref, cand []string) float64 {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	prev := make([]int, len(cand)+1)
	cur := make([]int, len(cand)+1)
	for i := 1; i <= len(ref); i++ {
		for j := 1; j <= len(cand); j++ {
			if ref[i-1] == cand[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return fmeasure(prev[len(cand)], len(ref), len(cand))
}

func fmeasure(overlap, refTotal, candTotal int) float64 {
	if overlap == 0 || refTotal == 0 || candTotal == 0 {
		return 0
	}
	precision := float64(overlap) / float64(candTotal)
	recall := float64(overlap) / float64(refTotal)
	return 2 * precision * recall / (precision + recall)
}
