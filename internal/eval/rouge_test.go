package eval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRougeIdentical(t *testing.T) {
	s := Rouge("Customer wants a fixed rate ISA.", "customer wants a FIXED rate isa")
	assert.InDelta(t, 1.0, s.Rouge1, 1e-9)
	assert.InDelta(t, 1.0, s.Rouge2, 1e-9)
	assert.InDelta(t, 1.0, s.RougeL, 1e-9)
	assert.InDelta(t, 1.0, s.Average(), 1e-9)
}

func TestRougeKnownValues(t *testing.T) {
	// ref: the cat sat on the mat (6), cand: the cat on the mat (5)
	s := Rouge("the cat sat on the mat", "the cat on the mat")
	// unigram overlap 5: p=1, r=5/6
	assert.InDelta(t, 2*(5.0/6)/(1+5.0/6), s.Rouge1, 1e-9)
	// bigrams: ref {the cat, cat sat, sat on, on the, the mat}; cand {the cat, cat on, on the, the mat} -> 3
	assert.InDelta(t, 2*(3.0/4)*(3.0/5)/(3.0/4+3.0/5), s.Rouge2, 1e-9)
	// LCS = 5
	assert.InDelta(t, s.Rouge1, s.RougeL, 1e-9)
}

func TestRougeDisjointAndEmpty(t *testing.T) {
	assert.Equal(t, Scores{}, Rouge("savings", "mortgage"))
	assert.Equal(t, Scores{}, Rouge("", "mortgage"))
}

func TestCorpusSkipsEmptyPairs(t *testing.T) {
	s, n := Corpus([]Pair{
		{Reference: "a b c", Candidate: "a b c"},
		{Reference: "", Candidate: "x"},
		{Reference: "a b", Candidate: "c d"},
	})
	assert.Equal(t, 2, n)
	assert.InDelta(t, 0.5, s.Rouge1, 1e-9)

	_, n = Corpus(nil)
	assert.Zero(t, n)
}

func TestReadPairs(t *testing.T) {
	in := "reference,candidate\n\"Wants, an ISA\",wants isa\nlow risk,low risk\n"
	pairs, err := ReadPairs(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "Wants, an ISA", pairs[0].Reference)

	_, err = ReadPairs(strings.NewReader("only-one-column\n"))
	assert.Error(t, err)
}
