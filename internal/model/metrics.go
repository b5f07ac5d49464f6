package model

import "time"

// CutoffKs lists the K values every @K metric is computed at.
var CutoffKs = []int{1, 3, 5, 10}

// RankingMetrics holds the ranking-quality numbers for one slice of
// queries (overall or one question type). Map keys are the K cutoffs.
type RankingMetrics struct {
	QueryCount   int             `json:"query_count"`
	PrecisionAtK map[int]float64 `json:"precision_at_k"`
	RecallAtK    map[int]float64 `json:"recall_at_k"`
	F1AtK        map[int]float64 `json:"f1_at_k"`
	NDCGAtK      map[int]float64 `json:"ndcg_at_k"`
	MAP          float64         `json:"map"`
	MRR          float64         `json:"mrr"`
}

// ReliabilityCounters separates delivery failures from result quality:
// a throttled backend is not an inaccurate one.
type ReliabilityCounters struct {
	Total           int     `json:"total"`
	Succeeded       int     `json:"succeeded"`
	Throttled       int     `json:"throttled"`
	ExecutionErrors int     `json:"execution_errors"`
	TransportErrors int     `json:"transport_errors"`
	SuccessRate     float64 `json:"success_rate"`
	ThrottleRate    float64 `json:"throttle_rate"`
}

// AggregateMetrics is the full per-run metrics document: ranking quality
// overall and per question type, plus reliability counters. Computed
// once from the complete outcome set, never updated incrementally.
type AggregateMetrics struct {
	Overall     RankingMetrics                  `json:"overall"`
	PerType     map[QuestionType]RankingMetrics `json:"per_question_type"`
	Reliability ReliabilityCounters             `json:"reliability"`
}

// RunStatus tracks a persisted evaluation run's lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is the persisted record of one evaluation run.
type Run struct {
	ID         string            `json:"id"`
	Status     RunStatus         `json:"status"`
	CaseCount  int               `json:"case_count"`
	Metrics    *AggregateMetrics `json:"metrics,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at,omitempty"`
}
