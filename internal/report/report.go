// Package report writes run artifacts: per-case JSONL outcomes, the
// aggregate metrics document, and an optional xlsx workbook.
package report

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/search-eval/internal/model"
)

// Document is the aggregate report for one run.
type Document struct {
	RunID      string                 `json:"run_id"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	CaseCount  int                    `json:"case_count"`
	Metrics    model.AggregateMetrics `json:"metrics"`
}

// WriteOutcomes writes one JSON record per outcome, newline-delimited.
func WriteOutcomes(path string, outcomes []model.QueryOutcome) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range outcomes {
		if err := enc.Encode(&outcomes[i]); err != nil {
			return eris.Wrapf(err, "report: encode outcome %s", outcomes[i].TestCaseID)
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "report: flush %s", path)
	}
	return f.Close()
}

// ReadOutcomes reads a JSONL outcome file back, for offline re-scoring.
func ReadOutcomes(path string) ([]model.QueryOutcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: open %s", path)
	}
	defer f.Close()

	var outcomes []model.QueryOutcome
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var o model.QueryOutcome
		if err := json.Unmarshal(sc.Bytes(), &o); err != nil {
			return nil, eris.Wrapf(err, "report: parse %s line %d", path, line)
		}
		o.Elapsed = time.Duration(o.ElapsedSecs * float64(time.Second))
		outcomes = append(outcomes, o)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	return outcomes, nil
}

// WriteDocument writes the aggregate document as indented JSON.
func WriteDocument(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal document")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// ReadDocument reads an aggregate document back.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "report: parse %s", path)
	}
	return &doc, nil
}
