package model

import (
	"encoding/json"
	"time"
)

// OutcomeKind tags how a single query execution ended.
type OutcomeKind string

const (
	// OutcomeSuccess means the API returned a well-formed result payload.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeThrottled means the API rate-limited the request (HTTP 429
	// or an embedded throttling marker) and retries were exhausted.
	OutcomeThrottled OutcomeKind = "throttled"
	// OutcomeExecutionError means the API accepted the request but the
	// payload carries an embedded failure.
	OutcomeExecutionError OutcomeKind = "execution_error"
	// OutcomeTransportError covers network failures, timeouts, parse
	// failures, and repeated auth rejections.
	OutcomeTransportError OutcomeKind = "transport_error"
)

// RetrievedItem is one product returned for a query, in rank order.
// Fields the API omitted are left at their zero values; the scorer
// treats those as neutral.
type RetrievedItem struct {
	Rank        int               `json:"rank"` // 1-based position
	Name        string            `json:"name"`
	Category    string            `json:"category,omitempty"`
	Price       float64           `json:"price,omitempty"`
	Description string            `json:"description,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// QueryOutcome records one test case's execution: its classification,
// timing, and (on success) the ordered result list.
type QueryOutcome struct {
	TestCaseID   string          `json:"test_case_id"`
	QuestionType QuestionType    `json:"question_type"`
	Kind         OutcomeKind     `json:"outcome"`
	Elapsed      time.Duration   `json:"-"`
	ElapsedSecs  float64         `json:"elapsed_seconds"`
	Attempts     int             `json:"attempts"`
	StatusCode   int             `json:"status_code,omitempty"`
	Error        string          `json:"error,omitempty"`
	Items        []RetrievedItem `json:"items,omitempty"`
	RawPayload   json.RawMessage `json:"raw_payload,omitempty"`
}

// Included reports whether the outcome participates in relevance
// statistics. Throttled and failed queries count only toward
// reliability statistics.
func (o *QueryOutcome) Included() bool {
	return o.Kind == OutcomeSuccess
}

// RelevanceJudgment grades one retrieved item against one test case.
// Score is in {0,1,2,3} and deterministic for a given pair.
type RelevanceJudgment struct {
	TestCaseID string `json:"test_case_id"`
	Rank       int    `json:"rank"`
	Score      int    `json:"score"`
}
