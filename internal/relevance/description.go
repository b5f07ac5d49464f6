package relevance

import (
	"strings"

	"github.com/sells-group/search-eval/internal/model"
)

// queryIntent holds the four weighted term groups extracted from a
// description question.
type queryIntent struct {
	quality     []string
	functional  []string
	useCase     []string
	descriptive []string
}

func (qi queryIntent) empty() bool {
	return len(qi.quality) == 0 && len(qi.functional) == 0 &&
		len(qi.useCase) == 0 && len(qi.descriptive) == 0
}

// scoreDescription computes a weighted term-group overlap between the
// question and the item's fields, then maps the continuous score to a
// judgment. Items without summary/description fall back to name and
// category with shifted weights and more lenient thresholds.
func (s *Scorer) scoreDescription(tc model.TestCase, item model.RetrievedItem) int {
	intent := s.extractIntent(tc.QueryText)
	if intent.empty() {
		return 0
	}

	rich := item.Summary != "" || item.Description != ""

	nameScore := s.nameMatch(intent, tc.ExpectedCategory, item.Name)
	catScore := 0.0
	if s.categoryPresent(tc.ExpectedCategory, itemText(item)) {
		catScore = 1.0
	}

	var (
		fields     FieldWeights
		thresholds Thresholds
	)
	if rich {
		fields = s.cfg.RichFields
		thresholds = s.cfg.RichThresholds
	} else {
		fields = s.cfg.SparseFields
		thresholds = s.cfg.SparseThresholds
	}

	total := fields.Summary*s.groupMatch(intent, item.Summary) +
		fields.Description*s.groupMatch(intent, item.Description) +
		fields.Name*nameScore +
		fields.Category*catScore

	switch {
	case total >= thresholds.High:
		return 3
	case total >= thresholds.Mid:
		return 2
	case total >= thresholds.Low:
		return 1
	default:
		return 0
	}
}

// extractIntent buckets the question's terms into the weighted groups.
// A term claimed by a specific group is not repeated in the descriptive
// remainder.
func (s *Scorer) extractIntent(query string) queryIntent {
	q := normalize(query)
	claimed := make(map[string]struct{})

	pick := func(terms []string) []string {
		var found []string
		for _, t := range terms {
			if strings.Contains(q, normalize(t)) {
				found = append(found, normalize(t))
				claimed[normalize(t)] = struct{}{}
			}
		}
		return found
	}

	intent := queryIntent{
		quality:    pick(s.cfg.Tables.QualityTerms),
		functional: pick(s.cfg.Tables.FunctionalTerms),
		useCase:    pick(s.cfg.Tables.UseCaseTerms),
	}

	for _, w := range significantWords(query, s.stop) {
		if _, ok := claimed[w]; ok {
			continue
		}
		intent.descriptive = append(intent.descriptive, w)
	}
	return intent
}

// groupMatch scores text against the intent: per group, the fraction of
// terms present (1.0 direct, 0.5 for a compound-word part, 0.8 via a
// quality synonym), combined by the group weights.
func (s *Scorer) groupMatch(intent queryIntent, text string) float64 {
	if text == "" {
		return 0
	}
	t := normalize(text)

	groups := []struct {
		terms   []string
		weight  float64
		quality bool
	}{
		{intent.quality, s.cfg.Groups.Quality, true},
		{intent.functional, s.cfg.Groups.Functional, false},
		{intent.useCase, s.cfg.Groups.UseCase, false},
		{intent.descriptive, s.cfg.Groups.Descriptive, false},
	}

	var total, totalWeight float64
	for _, g := range groups {
		if len(g.terms) == 0 {
			continue
		}
		var matches float64
		for _, term := range g.terms {
			switch {
			case strings.Contains(t, term):
				matches++
			case partialMatch(t, term):
				matches += 0.5
			case g.quality && s.qualitySynonymMatch(t, term):
				matches += 0.8
			}
		}
		total += (matches / float64(len(g.terms))) * g.weight
		totalWeight += g.weight
	}

	if totalWeight == 0 {
		return 0
	}
	return total / totalWeight
}

// partialMatch checks the parts of a compound term ("moisture-wicking")
// individually.
func partialMatch(text, term string) bool {
	for _, part := range strings.FieldsFunc(term, func(r rune) bool { return r == '-' || r == ' ' }) {
		if len(part) > 2 && strings.Contains(text, part) {
			return true
		}
	}
	return false
}

func (s *Scorer) qualitySynonymMatch(text, term string) bool {
	for _, syn := range s.cfg.Tables.QualitySynonyms[term] {
		if strings.Contains(text, normalize(syn)) {
			return true
		}
	}
	return false
}

// nameMatch scores the item name against the intent, boosted when the
// name itself carries expected-category keywords (capped at 1.0).
func (s *Scorer) nameMatch(intent queryIntent, expectedCategory, name string) float64 {
	base := s.groupMatch(intent, name)

	bonus := 0.0
	if expectedCategory != "" {
		hits := 0
		for _, kw := range s.synonyms(normalize(expectedCategory)) {
			if containsWord(name, kw) {
				hits++
			}
		}
		bonus = float64(hits) * 0.2
		if bonus > 0.5 {
			bonus = 0.5
		}
	}

	total := base + bonus
	if total > 1 {
		total = 1
	}
	return total
}

func (s *Scorer) categoryPresent(expectedCategory, text string) bool {
	if expectedCategory == "" {
		return false
	}
	for _, kw := range s.synonyms(normalize(expectedCategory)) {
		if containsWord(text, kw) {
			return true
		}
	}
	return false
}
