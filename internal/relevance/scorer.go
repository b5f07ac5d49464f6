package relevance

import (
	"strings"

	"github.com/sells-group/search-eval/internal/model"
)

// Scorer grades one retrieved item against one test case. Score is a
// pure function of its inputs: no randomness, no state beyond the
// configured tables.
type Scorer struct {
	cfg  Config
	stop map[string]struct{}
}

// NewScorer builds a Scorer from the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{
		cfg:  cfg,
		stop: toSet(cfg.Tables.StopWords),
	}
}

// Score returns a relevance judgment in {0,1,2,3} for the item.
// Malformed items never raise: missing fields read as empty and the
// item bottoms out at 0.
func (s *Scorer) Score(tc model.TestCase, item model.RetrievedItem) int {
	switch tc.QuestionType {
	case model.QuestionExactWord:
		return s.scoreExactWord(tc, item)
	case model.QuestionCategory:
		return s.categoryScore(tc.ExpectedCategory, item)
	case model.QuestionCategoryAttribute:
		return s.scoreCategoryAttribute(tc, item)
	case model.QuestionCategoryPrice:
		return s.scoreCategoryPrice(tc, item)
	case model.QuestionDescription:
		return s.scoreDescription(tc, item)
	default:
		return 0
	}
}

// Judge scores every item in rank order and returns the judgments.
func (s *Scorer) Judge(tc model.TestCase, items []model.RetrievedItem) []model.RelevanceJudgment {
	judgments := make([]model.RelevanceJudgment, 0, len(items))
	for _, item := range items {
		judgments = append(judgments, model.RelevanceJudgment{
			TestCaseID: tc.ID,
			Rank:       item.Rank,
			Score:      s.Score(tc, item),
		})
	}
	return judgments
}

// itemText concatenates every searchable field of the item.
func itemText(item model.RetrievedItem) string {
	parts := []string{item.Name, item.Description, item.Summary, item.Category}
	for _, v := range item.Attributes {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

// scoreExactWord checks how much of the expected product name survives
// in the item, backed by general query-word overlap.
func (s *Scorer) scoreExactWord(tc model.TestCase, item model.RetrievedItem) int {
	nameWords := significantWords(tc.ExpectedProduct, s.stop)
	itemWords := wordSet(item.Name + " " + item.Description)

	coverage := 0.0
	if len(nameWords) > 0 {
		matched := 0
		for _, w := range nameWords {
			if _, ok := itemWords[w]; ok {
				matched++
			}
		}
		coverage = float64(matched) / float64(len(nameWords))
	}

	queryWords := significantWords(tc.QueryText, s.stop)
	allWords := wordSet(itemText(item))
	queryMatched := 0
	for _, w := range queryWords {
		if _, ok := allWords[w]; ok {
			queryMatched++
		}
	}

	switch {
	case coverage >= s.cfg.NameCoverageHigh:
		return 3
	case coverage >= s.cfg.NameCoverageLow && queryMatched > 0:
		return 2
	case queryMatched > 0:
		return 1
	default:
		return 0
	}
}

// categoryScore grades category agreement: 3 exact or synonym match,
// 2 strong keyword overlap, 1 weak keyword presence, 0 none.
func (s *Scorer) categoryScore(expected string, item model.RetrievedItem) int {
	expected = normalize(strings.TrimSpace(expected))
	if expected == "" {
		return 0
	}

	itemCategory := normalize(strings.TrimSpace(item.Category))
	if itemCategory != "" && itemCategory == expected {
		return 3
	}

	expectedKeywords := s.synonyms(expected)
	itemKeywords := s.synonyms(itemCategory)

	// Synonym-table match counts as exact.
	for _, ik := range itemKeywords {
		for _, ek := range expectedKeywords {
			if ik == ek {
				return 3
			}
		}
	}

	text := itemText(item)
	matches := 0
	for _, ek := range expectedKeywords {
		if containsWord(text, ek) {
			matches++
		}
	}
	if itemCategory != "" {
		for _, ik := range itemKeywords {
			for _, ek := range expectedKeywords {
				if strings.Contains(ik, ek) || strings.Contains(ek, ik) {
					matches += 2
					break
				}
			}
		}
	}

	switch {
	case matches >= 2:
		return 2
	case matches >= 1:
		return 1
	default:
		return 0
	}
}

// synonyms returns the keyword list for a category, falling back to the
// category name itself when the table has no entry.
func (s *Scorer) synonyms(category string) []string {
	if category == "" {
		return nil
	}
	if syns, ok := s.cfg.Tables.CategorySynonyms[category]; ok {
		return syns
	}
	return []string{category}
}

func (s *Scorer) scoreCategoryAttribute(tc model.TestCase, item model.RetrievedItem) int {
	cat := s.categoryScore(tc.ExpectedCategory, item)
	if cat == 0 {
		return 0
	}

	values := s.expectedAttributeValues(tc)
	if len(values) == 0 {
		return cat
	}

	text := itemText(item)
	matched := 0
	for _, v := range values {
		if containsWord(text, v) {
			matched++
		}
	}

	switch {
	case matched == len(values) && cat >= 2:
		return 3
	case matched > 0 && cat >= 2:
		return 2
	case matched > 0:
		return 1
	default:
		return 0
	}
}

// expectedAttributeValues collects the attribute values to look for:
// the test case's explicit expectations plus any attribute keyword the
// question itself mentions.
func (s *Scorer) expectedAttributeValues(tc model.TestCase) []string {
	seen := make(map[string]struct{})
	var values []string
	add := func(v string) {
		v = normalize(strings.TrimSpace(v))
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}

	for _, v := range tc.ExpectedAttributes {
		add(v)
	}
	query := normalize(tc.QueryText)
	for _, keywords := range s.cfg.Tables.AttributeKeywords {
		for _, kw := range keywords {
			if strings.Contains(query, normalize(kw)) {
				add(kw)
			}
		}
	}
	return values
}

func (s *Scorer) scoreCategoryPrice(tc model.TestCase, item model.RetrievedItem) int {
	cat := s.categoryScore(tc.ExpectedCategory, item)
	if cat == 0 {
		return 0
	}

	interval, ok := s.priceInterval(tc)
	if !ok || item.Price <= 0 {
		return cat
	}

	inRange := interval.Contains(item.Price)
	switch {
	case inRange && cat >= 2:
		return 3
	case inRange:
		return 2
	case cat >= 2:
		return 1
	default:
		return 0
	}
}

// priceInterval derives the acceptance band: a stated range is used
// directly, a stated point price widens by the standard tolerance, and
// a case with only a catalog price falls back to the wider band.
func (s *Scorer) priceInterval(tc model.TestCase) (model.PriceRange, bool) {
	if r := tc.ExpectedPriceRange; r != nil {
		if r.Low == r.High && r.Low > 0 {
			return model.PriceRange{
				Low:  r.Low * (1 - s.cfg.PriceTolerance),
				High: r.High * (1 + s.cfg.PriceTolerance),
			}, true
		}
		if r.High >= r.Low {
			return *r, true
		}
	}
	if tc.ExpectedPrice > 0 {
		return model.PriceRange{
			Low:  tc.ExpectedPrice * (1 - s.cfg.PriceToleranceFallback),
			High: tc.ExpectedPrice * (1 + s.cfg.PriceToleranceFallback),
		}, true
	}
	return model.PriceRange{}, false
}
