package vectorstore

// DefaultMMRLambda balances relevance against diversity in MMR selection.
// 1.0 degenerates to pure similarity rank, 0.0 to pure diversity.
const DefaultMMRLambda = 0.5

// maximalMarginalRelevance selects up to k candidate indices. Each step
// picks the candidate maximizing
//
//	lambda*sim(query, c) - (1-lambda)*max sim(c, selected)
//
// so later picks are penalized for redundancy with what is already chosen.
// Candidates are expected in descending query-similarity order; ties keep
// that order.
func maximalMarginalRelevance(query []float32, candidates [][]float32, lambda float32, k int) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	querySim := make([]float32, len(candidates))
	for i, c := range candidates {
		querySim[i] = CosineSimilarity(query, c)
	}

	selected := make([]int, 0, k)
	remaining := make([]int, len(candidates))
	for i := range remaining {
		remaining[i] = i
	}

	for len(selected) < k {
		bestPos := -1
		var bestScore float32

		for pos, idx := range remaining {
			redundancy := float32(0)
			for _, sel := range selected {
				if sim := CosineSimilarity(candidates[idx], candidates[sel]); sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*querySim[idx] - (1-lambda)*redundancy
			if bestPos < 0 || score > bestScore {
				bestPos = pos
				bestScore = score
			}
		}

		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selected
}
