// Package testcase loads the evaluation test-case collection from JSON
// files. Two shapes are accepted: flat test-case records, and product
// catalog entries that carry one question per question type.
package testcase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/search-eval/internal/model"
)

// questionLabels maps the catalog files' question-type labels to the
// canonical types. Canonical values are accepted as-is.
var questionLabels = map[string]model.QuestionType{
	"exact word":      model.QuestionExactWord,
	"category":        model.QuestionCategory,
	"attribute value": model.QuestionCategoryAttribute,
	"price range":     model.QuestionCategoryPrice,
	"description":     model.QuestionDescription,
}

// Load reads every .json file at path (a file or a directory) and
// returns the parsed test cases. Malformed records are logged and
// skipped; an unreadable file is an error.
func Load(path string) ([]model.TestCase, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "testcase: stat %s", path)
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, eris.Wrapf(err, "testcase: read dir %s", path)
		}
		files = files[:0]
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
		sort.Strings(files)
	}
	if len(files) == 0 {
		return nil, eris.Errorf("testcase: no .json files in %s", path)
	}

	var cases []model.TestCase
	for _, f := range files {
		cs, err := loadFile(f)
		if err != nil {
			return nil, err
		}
		cases = append(cases, cs...)
	}
	if len(cases) == 0 {
		return nil, eris.Errorf("testcase: no valid test cases in %s", path)
	}
	return cases, nil
}

func loadFile(path string) ([]model.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "testcase: read %s", path)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "testcase: parse %s", path)
	}

	base := strings.TrimSuffix(filepath.Base(path), ".json")
	var cases []model.TestCase
	for i, raw := range records {
		cs, err := parseRecord(raw, fmt.Sprintf("%s-%03d", base, i+1))
		if err != nil {
			zap.L().Warn("testcase: skipping malformed record",
				zap.String("file", path),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		cases = append(cases, cs...)
	}
	return cases, nil
}

// catalogEntry is one product in the catalog shape, carrying one
// question per question-type label.
type catalogEntry struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Category    string            `json:"category"`
	Questions   map[string]string `json:"questions"`
}

// parseRecord turns one raw record into test cases. A record with a
// questions map expands to one case per question; anything else must be
// a flat test-case record.
func parseRecord(raw json.RawMessage, id string) ([]model.TestCase, error) {
	var entry catalogEntry
	if err := json.Unmarshal(raw, &entry); err == nil && len(entry.Questions) > 0 {
		return expandCatalogEntry(entry, id)
	}

	var tc model.TestCase
	if err := json.Unmarshal(raw, &tc); err != nil {
		return nil, eris.Wrap(err, "testcase: parse record")
	}
	if tc.ID == "" {
		tc.ID = id
	}
	if err := validate(tc); err != nil {
		return nil, err
	}
	return []model.TestCase{tc}, nil
}

func expandCatalogEntry(entry catalogEntry, id string) ([]model.TestCase, error) {
	if entry.Name == "" {
		return nil, eris.New("testcase: catalog entry missing name")
	}

	labels := make([]string, 0, len(entry.Questions))
	for label := range entry.Questions {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var cases []model.TestCase
	for _, label := range labels {
		question := strings.TrimSpace(entry.Questions[label])
		if question == "" {
			continue
		}
		qt, ok := questionType(label)
		if !ok {
			zap.L().Warn("testcase: unknown question label",
				zap.String("label", label),
				zap.String("product", entry.Name),
			)
			continue
		}
		cases = append(cases, model.TestCase{
			ID:               fmt.Sprintf("%s-%s", id, qt),
			QuestionType:     qt,
			QueryText:        question,
			ExpectedProduct:  entry.Name,
			ExpectedCategory: entry.Category,
			ExpectedPrice:    entry.Price,
		})
	}
	if len(cases) == 0 {
		return nil, eris.Errorf("testcase: catalog entry %q has no usable questions", entry.Name)
	}
	return cases, nil
}

func questionType(label string) (model.QuestionType, bool) {
	qt := model.QuestionType(strings.ToLower(strings.TrimSpace(label)))
	if qt.Valid() {
		return qt, true
	}
	mapped, ok := questionLabels[string(qt)]
	return mapped, ok
}

func validate(tc model.TestCase) error {
	if strings.TrimSpace(tc.QueryText) == "" {
		return eris.Errorf("testcase: %s has empty question", tc.ID)
	}
	if !tc.QuestionType.Valid() {
		return eris.Errorf("testcase: %s has unknown question type %q", tc.ID, tc.QuestionType)
	}
	if r := tc.ExpectedPriceRange; r != nil && r.High < r.Low {
		return eris.Errorf("testcase: %s has inverted price range", tc.ID)
	}
	return nil
}
