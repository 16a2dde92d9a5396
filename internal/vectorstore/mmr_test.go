package vectorstore

import "testing"

func TestMMR_EmptyCandidates(t *testing.T) {
	if got := maximalMarginalRelevance([]float32{1, 0}, nil, DefaultMMRLambda, 3); got != nil {
		t.Errorf("expected nil for no candidates, got %v", got)
	}
}

func TestMMR_NonPositiveK(t *testing.T) {
	candidates := [][]float32{{1, 0}}
	if got := maximalMarginalRelevance([]float32{1, 0}, candidates, DefaultMMRLambda, 0); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}

func TestMMR_ClampsKToCandidateCount(t *testing.T) {
	candidates := [][]float32{{1, 0}, {0, 1}}

	got := maximalMarginalRelevance([]float32{1, 0}, candidates, DefaultMMRLambda, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 selections, got %d", len(got))
	}
}

func TestMMR_PureRelevanceKeepsRank(t *testing.T) {
	query := []float32{1, 0, 0}
	// Candidates in descending query similarity; lambda 1.0 disables the
	// redundancy penalty, so selection order must match input order.
	candidates := [][]float32{
		{1, 0, 0},
		{0.9, 0.436, 0},
		{0.6, 0.8, 0},
	}

	got := maximalMarginalRelevance(query, candidates, 1.0, 3)
	want := []int{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected selection order %v, got %v", want, got)
		}
	}
}

func TestMMR_PenalizesRedundancy(t *testing.T) {
	query := []float32{1, 0, 0}
	// Candidate 1 is nearly a duplicate of candidate 0; candidate 2 is less
	// relevant but covers a different direction. With a diversity-heavy
	// lambda the second pick must be the diverse candidate.
	candidates := [][]float32{
		{1, 0, 0},
		{0.9, 0.436, 0},
		{0.6, 0, 0.8},
	}

	got := maximalMarginalRelevance(query, candidates, 0.3, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 selections, got %d", len(got))
	}
	if got[0] != 0 {
		t.Errorf("expected most relevant candidate first, got %d", got[0])
	}
	if got[1] != 2 {
		t.Errorf("expected diverse candidate second, got %d", got[1])
	}
}

func TestMMR_TiesKeepInputOrder(t *testing.T) {
	query := []float32{1, 0}
	// Identical candidates score identically at every step; selection must
	// fall back to input order.
	candidates := [][]float32{
		{1, 0},
		{1, 0},
		{1, 0},
	}

	got := maximalMarginalRelevance(query, candidates, DefaultMMRLambda, 3)
	want := []int{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected input order %v on ties, got %v", want, got)
		}
	}
}

func TestMMR_Deterministic(t *testing.T) {
	query := []float32{0.7, 0.3, 0.1}
	candidates := [][]float32{
		{0.7, 0.3, 0.1},
		{0.6, 0.4, 0.2},
		{0.1, 0.9, 0.3},
		{0.2, 0.1, 0.95},
	}

	first := maximalMarginalRelevance(query, candidates, DefaultMMRLambda, 3)
	second := maximalMarginalRelevance(query, candidates, DefaultMMRLambda, 3)

	if len(first) != len(second) {
		t.Fatalf("selection lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("selection %d differs between runs", i)
		}
	}
}
