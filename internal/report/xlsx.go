package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/search-eval/internal/model"
)

// WriteWorkbook writes the aggregate document as an xlsx workbook with
// an overview sheet and a per-question-type sheet.
func WriteWorkbook(path string, doc *Document) error {
	f := xlsx.NewFile()

	if err := writeOverviewSheet(f, doc); err != nil {
		return err
	}
	if err := writePerTypeSheet(f, doc); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func writeOverviewSheet(f *xlsx.File, doc *Document) error {
	sheet, err := f.AddSheet("Overview")
	if err != nil {
		return eris.Wrap(err, "report: add overview sheet")
	}

	addKV := func(key, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		row.AddCell().SetString(value)
	}

	addKV("Run ID", doc.RunID)
	addKV("Started", doc.StartedAt.Format("2006-01-02 15:04:05"))
	addKV("Finished", doc.FinishedAt.Format("2006-01-02 15:04:05"))
	addKV("Test cases", fmt.Sprintf("%d", doc.CaseCount))

	rel := doc.Metrics.Reliability
	addKV("Succeeded", fmt.Sprintf("%d", rel.Succeeded))
	addKV("Throttled", fmt.Sprintf("%d", rel.Throttled))
	addKV("Execution errors", fmt.Sprintf("%d", rel.ExecutionErrors))
	addKV("Transport errors", fmt.Sprintf("%d", rel.TransportErrors))
	addKV("Success rate", fmt.Sprintf("%.1f%%", rel.SuccessRate*100))
	addKV("Throttle rate", fmt.Sprintf("%.1f%%", rel.ThrottleRate*100))

	sheet.AddRow()
	writeMetricsHeader(sheet, "Slice")
	writeMetricsRow(sheet, "Overall", doc.Metrics.Overall)
	return nil
}

func writePerTypeSheet(f *xlsx.File, doc *Document) error {
	sheet, err := f.AddSheet("By Question Type")
	if err != nil {
		return eris.Wrap(err, "report: add per-type sheet")
	}

	writeMetricsHeader(sheet, "Question type")
	for _, qt := range model.QuestionTypes {
		m, ok := doc.Metrics.PerType[qt]
		if !ok {
			continue
		}
		writeMetricsRow(sheet, string(qt), m)
	}
	return nil
}

func writeMetricsHeader(sheet *xlsx.Sheet, label string) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetString("Queries")
	for _, k := range model.CutoffKs {
		row.AddCell().SetString(fmt.Sprintf("P@%d", k))
	}
	for _, k := range model.CutoffKs {
		row.AddCell().SetString(fmt.Sprintf("R@%d", k))
	}
	for _, k := range model.CutoffKs {
		row.AddCell().SetString(fmt.Sprintf("NDCG@%d", k))
	}
	row.AddCell().SetString("MAP")
	row.AddCell().SetString("MRR")
}

func writeMetricsRow(sheet *xlsx.Sheet, label string, m model.RankingMetrics) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetInt(m.QueryCount)
	for _, k := range model.CutoffKs {
		row.AddCell().SetFloatWithFormat(m.PrecisionAtK[k], "0.000")
	}
	for _, k := range model.CutoffKs {
		row.AddCell().SetFloatWithFormat(m.RecallAtK[k], "0.000")
	}
	for _, k := range model.CutoffKs {
		row.AddCell().SetFloatWithFormat(m.NDCGAtK[k], "0.000")
	}
	row.AddCell().SetFloatWithFormat(m.MAP, "0.000")
	row.AddCell().SetFloatWithFormat(m.MRR, "0.000")
}
