package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/search-eval/internal/metrics"
	"github.com/sells-group/search-eval/internal/model"
	"github.com/sells-group/search-eval/internal/report"
	"github.com/sells-group/search-eval/internal/testcase"
)

var (
	scoreCases    string
	scoreOutcomes string
	scoreXLSX     bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Re-score a saved outcome file offline",
	Long:  "Reads a previously written outcomes.jsonl, re-judges every result against the test-case expectations, and writes a fresh metrics document. Useful after tuning scoring tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cases, err := testcase.Load(scoreCases)
		if err != nil {
			return err
		}
		outcomes, err := report.ReadOutcomes(scoreOutcomes)
		if err != nil {
			return err
		}

		scorer, err := initScorer()
		if err != nil {
			return err
		}

		byID := make(map[string]model.TestCase, len(cases))
		for _, tc := range cases {
			byID[tc.ID] = tc
		}

		judgments := make(map[string][]model.RelevanceJudgment)
		skipped := 0
		for i := range outcomes {
			o := &outcomes[i]
			if !o.Included() {
				continue
			}
			tc, ok := byID[o.TestCaseID]
			if !ok {
				skipped++
				continue
			}
			judgments[o.TestCaseID] = scorer.Judge(tc, o.Items)
		}
		if skipped > 0 {
			zap.L().Warn("outcomes without a matching test case", zap.Int("count", skipped))
		}

		agg := metrics.Aggregate(outcomes, judgments)
		doc := &report.Document{
			RunID:      "rescore-" + time.Now().UTC().Format("20060102-150405"),
			StartedAt:  time.Now().UTC(),
			FinishedAt: time.Now().UTC(),
			CaseCount:  len(outcomes),
			Metrics:    agg,
		}

		dir := filepath.Dir(scoreOutcomes)
		if err := report.WriteDocument(filepath.Join(dir, "metrics-rescored.json"), doc); err != nil {
			return err
		}
		if scoreXLSX {
			if err := report.WriteWorkbook(filepath.Join(dir, "metrics-rescored.xlsx"), doc); err != nil {
				return err
			}
		}

		zap.L().Info("rescore complete",
			zap.Int("outcomes", len(outcomes)),
			zap.Float64("map", agg.Overall.MAP),
			zap.Float64("mrr", agg.Overall.MRR),
		)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreCases, "cases", "test_cases", "test-case file or directory")
	scoreCmd.Flags().StringVar(&scoreOutcomes, "outcomes", "", "outcomes.jsonl to re-score")
	scoreCmd.Flags().BoolVar(&scoreXLSX, "xlsx", false, "also write an xlsx workbook")
	scoreCmd.MarkFlagRequired("outcomes")
	rootCmd.AddCommand(scoreCmd)
}
