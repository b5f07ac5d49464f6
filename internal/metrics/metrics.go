// Package metrics computes standard information-retrieval ranking
// metrics over graded relevance judgments.
package metrics

import (
	"math"
	"sort"
)

// PrecisionAt returns Precision@K: the fraction of the top K results
// judged relevant (score >= threshold). K is capped at the result count.
func PrecisionAt(scores []int, k, threshold int) float64 {
	if k > len(scores) {
		k = len(scores)
	}
	if k == 0 {
		return 0
	}

	relevant := 0
	for i := 0; i < k; i++ {
		if scores[i] >= threshold {
			relevant++
		}
	}
	return float64(relevant) / float64(k)
}

// RecallAt returns Recall@K: relevant results in the top K over all
// relevant results for the query.
func RecallAt(scores []int, k, threshold int) float64 {
	if k > len(scores) {
		k = len(scores)
	}

	totalRelevant := 0
	for _, s := range scores {
		if s >= threshold {
			totalRelevant++
		}
	}
	if totalRelevant == 0 {
		return 0
	}

	relevantInK := 0
	for i := 0; i < k; i++ {
		if scores[i] >= threshold {
			relevantInK++
		}
	}
	return float64(relevantInK) / float64(totalRelevant)
}

// F1At returns the harmonic mean of Precision@K and Recall@K.
func F1At(scores []int, k, threshold int) float64 {
	p := PrecisionAt(scores, k, threshold)
	r := RecallAt(scores, k, threshold)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// NDCGAt returns NDCG@K using graded scores as gains with log2
// discounting, normalized against the ideal ordering.
func NDCGAt(scores []int, k int) float64 {
	if k > len(scores) {
		k = len(scores)
	}
	if k == 0 {
		return 0
	}

	dcg := dcgAt(scores, k)

	ideal := make([]int, len(scores))
	copy(ideal, scores)
	sort.Sort(sort.Reverse(sort.IntSlice(ideal)))

	idcg := dcgAt(ideal, k)
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func dcgAt(scores []int, k int) float64 {
	dcg := float64(scores[0])
	for i := 1; i < k; i++ {
		dcg += float64(scores[i]) / math.Log2(float64(i+2))
	}
	return dcg
}

// AveragePrecision returns the mean of the precision values at every
// rank that holds a relevant result; 0 when none is relevant.
func AveragePrecision(scores []int, threshold int) float64 {
	relevant := 0
	sum := 0.0
	for i, s := range scores {
		if s >= threshold {
			relevant++
			sum += float64(relevant) / float64(i+1)
		}
	}
	if relevant == 0 {
		return 0
	}
	return sum / float64(relevant)
}

// ReciprocalRank returns 1/rank of the first relevant result, or 0.
func ReciprocalRank(scores []int, threshold int) float64 {
	for i, s := range scores {
		if s >= threshold {
			return 1 / float64(i+1)
		}
	}
	return 0
}
