package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/search-eval/internal/model"
)

func TestPrecisionAt(t *testing.T) {
	scores := []int{3, 0, 2, 1, 0}

	assert.InDelta(t, 1.0, PrecisionAt(scores, 1, 2), 1e-9)
	assert.InDelta(t, 2.0/3.0, PrecisionAt(scores, 3, 2), 1e-9)
	assert.InDelta(t, 0.4, PrecisionAt(scores, 5, 2), 1e-9)
	// K larger than the list is capped at the list length.
	assert.InDelta(t, 0.4, PrecisionAt(scores, 10, 2), 1e-9)
	assert.Zero(t, PrecisionAt(nil, 3, 2))
}

func TestRecallAt(t *testing.T) {
	scores := []int{3, 0, 2, 1, 0}

	// Two relevant items total.
	assert.InDelta(t, 0.5, RecallAt(scores, 1, 2), 1e-9)
	assert.InDelta(t, 1.0, RecallAt(scores, 3, 2), 1e-9)
	assert.Zero(t, RecallAt([]int{1, 0, 1}, 3, 2))
}

func TestF1At(t *testing.T) {
	scores := []int{3, 0, 2, 1, 0}

	p := PrecisionAt(scores, 3, 2)
	r := RecallAt(scores, 3, 2)
	assert.InDelta(t, 2*p*r/(p+r), F1At(scores, 3, 2), 1e-9)
	assert.Zero(t, F1At([]int{0, 0}, 2, 2))
}

func TestNDCGAt(t *testing.T) {
	scores := []int{3, 0, 2, 1, 0}

	dcg := 3.0 + 0.0/math.Log2(3) + 2.0/math.Log2(4)
	idcg := 3.0 + 2.0/math.Log2(3) + 1.0/math.Log2(4)
	assert.InDelta(t, dcg/idcg, NDCGAt(scores, 3), 1e-9)

	// Perfect ordering scores 1.
	assert.InDelta(t, 1.0, NDCGAt([]int{3, 2, 1, 0}, 4), 1e-9)
	// No gains anywhere.
	assert.Zero(t, NDCGAt([]int{0, 0, 0}, 3))
	assert.Zero(t, NDCGAt(nil, 3))
}

func TestAveragePrecision(t *testing.T) {
	// Relevant at ranks 1 and 3.
	scores := []int{3, 0, 2, 1, 0}
	assert.InDelta(t, (1.0+2.0/3.0)/2, AveragePrecision(scores, 2), 1e-9)
	assert.Zero(t, AveragePrecision([]int{0, 1, 0}, 2))
}

func TestReciprocalRank(t *testing.T) {
	assert.InDelta(t, 1.0, ReciprocalRank([]int{3, 0}, 2), 1e-9)
	assert.InDelta(t, 1.0/3.0, ReciprocalRank([]int{0, 1, 2}, 2), 1e-9)
	assert.Zero(t, ReciprocalRank([]int{1, 0}, 2))
}

func TestRankedScoresOrdersByRank(t *testing.T) {
	scores := rankedScores([]model.RelevanceJudgment{
		{TestCaseID: "q1", Rank: 3, Score: 1},
		{TestCaseID: "q1", Rank: 1, Score: 3},
		{TestCaseID: "q1", Rank: 2, Score: 0},
	})
	require.Equal(t, []int{3, 0, 1}, scores)
}
