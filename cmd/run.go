package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/search-eval/internal/metrics"
	"github.com/sells-group/search-eval/internal/model"
	"github.com/sells-group/search-eval/internal/report"
	"github.com/sells-group/search-eval/internal/runner"
	"github.com/sells-group/search-eval/internal/testcase"
)

var (
	runCases string
	runLimit int
	runXLSX  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the test-case collection and aggregate metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cases, err := testcase.Load(runCases)
		if err != nil {
			return err
		}
		if runLimit > 0 && runLimit < len(cases) {
			cases = cases[:runLimit]
		}
		zap.L().Info("test cases loaded",
			zap.Int("count", len(cases)),
			zap.String("path", runCases),
		)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		mgr, err := initAuthManager()
		if err != nil {
			return err
		}
		scorer, err := initScorer()
		if err != nil {
			return err
		}

		run, err := st.CreateRun(ctx, len(cases))
		if err != nil {
			return err
		}
		zap.L().Info("run started", zap.String("run_id", run.ID))

		d := runner.New(initSearchClient(), mgr, cfg.Runner)
		started := time.Now().UTC()
		outcomes, runErr := d.Run(ctx, cases)
		if runErr != nil {
			zap.L().Error("dispatch aborted", zap.Error(runErr))
			if err := st.CompleteRun(ctx, run.ID, model.RunStatusFailed, nil); err != nil {
				zap.L().Warn("mark run failed", zap.Error(err))
			}
			return eris.Wrap(runErr, "run")
		}

		byID := make(map[string]model.TestCase, len(cases))
		for _, tc := range cases {
			byID[tc.ID] = tc
		}
		judgments := make(map[string][]model.RelevanceJudgment)
		for i := range outcomes {
			o := &outcomes[i]
			if !o.Included() {
				continue
			}
			judgments[o.TestCaseID] = scorer.Judge(byID[o.TestCaseID], o.Items)
		}

		agg := metrics.Aggregate(outcomes, judgments)

		doc := &report.Document{
			RunID:      run.ID,
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
			CaseCount:  len(cases),
			Metrics:    agg,
		}
		if err := writeArtifacts(run.ID, outcomes, doc); err != nil {
			return err
		}

		if err := st.CompleteRun(ctx, run.ID, model.RunStatusComplete, &agg); err != nil {
			return err
		}

		zap.L().Info("run complete",
			zap.String("run_id", run.ID),
			zap.Int("cases", len(cases)),
			zap.Int("succeeded", agg.Reliability.Succeeded),
			zap.Int("throttled", agg.Reliability.Throttled),
			zap.Float64("map", agg.Overall.MAP),
			zap.Float64("mrr", agg.Overall.MRR),
		)
		return nil
	},
}

func writeArtifacts(runID string, outcomes []model.QueryOutcome, doc *report.Document) error {
	dir := filepath.Join(cfg.Output.Dir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "create output dir %s", dir)
	}

	if err := report.WriteOutcomes(filepath.Join(dir, "outcomes.jsonl"), outcomes); err != nil {
		return err
	}
	if err := report.WriteDocument(filepath.Join(dir, "metrics.json"), doc); err != nil {
		return err
	}
	if runXLSX {
		if err := report.WriteWorkbook(filepath.Join(dir, "metrics.xlsx"), doc); err != nil {
			return err
		}
	}

	zap.L().Info("artifacts written", zap.String("dir", dir))
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runCases, "cases", "test_cases", "test-case file or directory")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "run at most N test cases (0 = all)")
	runCmd.Flags().BoolVar(&runXLSX, "xlsx", false, "also write an xlsx workbook")
	rootCmd.AddCommand(runCmd)
}
