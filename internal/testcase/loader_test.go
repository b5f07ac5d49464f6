package testcase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/search-eval/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFlatRecords(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cases.json", `[
		{
			"id": "tc-1",
			"question_type": "exact_word",
			"question": "Do you have the Oceabelle Scarf?",
			"expected_product_name": "Oceabelle Scarf"
		},
		{
			"question_type": "category_price",
			"question": "Any accessories between 12 and 18 dollars?",
			"expected_category": "accessory",
			"expected_price_range": {"low": 12, "high": 18}
		}
	]`)

	cases, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "tc-1", cases[0].ID)
	assert.Equal(t, model.QuestionExactWord, cases[0].QuestionType)

	// Records without an id get one derived from the file.
	assert.Equal(t, "cases-002", cases[1].ID)
	require.NotNil(t, cases[1].ExpectedPriceRange)
	assert.InDelta(t, 12.0, cases[1].ExpectedPriceRange.Low, 1e-9)
}

func TestLoadCatalogEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "products.json", `[
		{
			"name": "Trailblazer Backpack",
			"description": "Durable 40L hiking backpack",
			"price": 89.99,
			"category": "backpack",
			"questions": {
				"Exact word": "Do you sell the Trailblazer Backpack?",
				"Category": "What backpacks do you carry?",
				"Price range": "Any backpacks around 90 dollars?",
				"Description": "I need a durable pack for hiking"
			}
		}
	]`)

	cases, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, cases, 4)

	byType := make(map[model.QuestionType]model.TestCase)
	for _, tc := range cases {
		byType[tc.QuestionType] = tc
	}
	require.Contains(t, byType, model.QuestionExactWord)
	require.Contains(t, byType, model.QuestionCategory)
	require.Contains(t, byType, model.QuestionCategoryPrice)
	require.Contains(t, byType, model.QuestionDescription)

	ew := byType[model.QuestionExactWord]
	assert.Equal(t, "Trailblazer Backpack", ew.ExpectedProduct)
	assert.Equal(t, "backpack", ew.ExpectedCategory)
	assert.InDelta(t, 89.99, ew.ExpectedPrice, 1e-9)
	assert.Equal(t, "products-001-exact_word", ew.ID)
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mixed.json", `[
		{"question_type": "category", "question": "What tents do you have?", "expected_category": "tent"},
		{"question_type": "bogus", "question": "broken"},
		{"question_type": "category", "question": ""}
	]`)

	cases, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, model.QuestionCategory, cases[0].QuestionType)
}

func TestLoadRejectsEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	path := writeFile(t, dir, "empty.json", `[]`)
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvertedPriceRange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cases.json", `[
		{
			"question_type": "category_price",
			"question": "cheap helmets?",
			"expected_category": "helmet",
			"expected_price_range": {"low": 50, "high": 10}
		},
		{"question_type": "category", "question": "helmets?", "expected_category": "helmet"}
	]`)

	cases, err := Load(path)
	require.NoError(t, err)
	// The inverted-range record is dropped, the valid one survives.
	require.Len(t, cases, 1)
	assert.Equal(t, model.QuestionCategory, cases[0].QuestionType)
}
