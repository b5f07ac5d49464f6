package metrics

import (
	"sort"

	"github.com/sells-group/search-eval/internal/model"
)

// RelevantThreshold is the judgment score at which an item counts as
// relevant for the binary metrics. Graded scores below it still
// contribute to NDCG.
const RelevantThreshold = 2

// accumulator collects per-query metric values for one slice and
// averages them on demand.
type accumulator struct {
	precision map[int]float64
	recall    map[int]float64
	f1        map[int]float64
	ndcg      map[int]float64
	apSum     float64
	rrSum     float64
	count     int
}

func newAccumulator() *accumulator {
	return &accumulator{
		precision: make(map[int]float64),
		recall:    make(map[int]float64),
		f1:        make(map[int]float64),
		ndcg:      make(map[int]float64),
	}
}

func (a *accumulator) add(scores []int, threshold int) {
	for _, k := range model.CutoffKs {
		a.precision[k] += PrecisionAt(scores, k, threshold)
		a.recall[k] += RecallAt(scores, k, threshold)
		a.f1[k] += F1At(scores, k, threshold)
		a.ndcg[k] += NDCGAt(scores, k)
	}
	a.apSum += AveragePrecision(scores, threshold)
	a.rrSum += ReciprocalRank(scores, threshold)
	a.count++
}

func (a *accumulator) finish() model.RankingMetrics {
	m := model.RankingMetrics{
		QueryCount:   a.count,
		PrecisionAtK: make(map[int]float64, len(model.CutoffKs)),
		RecallAtK:    make(map[int]float64, len(model.CutoffKs)),
		F1AtK:        make(map[int]float64, len(model.CutoffKs)),
		NDCGAtK:      make(map[int]float64, len(model.CutoffKs)),
	}
	if a.count == 0 {
		return m
	}
	n := float64(a.count)
	for _, k := range model.CutoffKs {
		m.PrecisionAtK[k] = a.precision[k] / n
		m.RecallAtK[k] = a.recall[k] / n
		m.F1AtK[k] = a.f1[k] / n
		m.NDCGAtK[k] = a.ndcg[k] / n
	}
	m.MAP = a.apSum / n
	m.MRR = a.rrSum / n
	return m
}

// Aggregate folds judged outcomes into the per-run metrics document.
// Only successful outcomes feed the ranking metrics; every outcome
// feeds the reliability counters.
func Aggregate(outcomes []model.QueryOutcome, judgments map[string][]model.RelevanceJudgment) model.AggregateMetrics {
	overall := newAccumulator()
	perType := make(map[model.QuestionType]*accumulator)
	var rel model.ReliabilityCounters

	for i := range outcomes {
		o := &outcomes[i]
		rel.Total++
		switch o.Kind {
		case model.OutcomeSuccess:
			rel.Succeeded++
		case model.OutcomeThrottled:
			rel.Throttled++
		case model.OutcomeExecutionError:
			rel.ExecutionErrors++
		case model.OutcomeTransportError:
			rel.TransportErrors++
		}

		if !o.Included() {
			continue
		}

		scores := rankedScores(judgments[o.TestCaseID])
		overall.add(scores, RelevantThreshold)

		acc, ok := perType[o.QuestionType]
		if !ok {
			acc = newAccumulator()
			perType[o.QuestionType] = acc
		}
		acc.add(scores, RelevantThreshold)
	}

	if rel.Total > 0 {
		rel.SuccessRate = float64(rel.Succeeded) / float64(rel.Total)
		rel.ThrottleRate = float64(rel.Throttled) / float64(rel.Total)
	}

	agg := model.AggregateMetrics{
		Overall:     overall.finish(),
		PerType:     make(map[model.QuestionType]model.RankingMetrics, len(perType)),
		Reliability: rel,
	}
	for qt, acc := range perType {
		agg.PerType[qt] = acc.finish()
	}
	return agg
}

// rankedScores orders a query's judgment scores by result rank.
func rankedScores(judgments []model.RelevanceJudgment) []int {
	ordered := make([]model.RelevanceJudgment, len(judgments))
	copy(ordered, judgments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	scores := make([]int, len(ordered))
	for i, j := range ordered {
		scores[i] = j.Score
	}
	return scores
}
