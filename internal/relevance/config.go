// Package relevance judges retrieved items against test-case
// expectations, producing 0-3 graded judgments with question-type
// specific heuristics.
package relevance

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// GroupWeights distribute the description score across the four term
// groups extracted from the query.
type GroupWeights struct {
	Quality     float64 `yaml:"quality"`
	Functional  float64 `yaml:"functional"`
	UseCase     float64 `yaml:"use_case"`
	Descriptive float64 `yaml:"descriptive"`
}

// FieldWeights blend the per-field description scores. The sparse set
// applies when the item carries neither summary nor description.
type FieldWeights struct {
	Summary     float64 `yaml:"summary"`
	Description float64 `yaml:"description"`
	Name        float64 `yaml:"name"`
	Category    float64 `yaml:"category"`
}

// Thresholds map a continuous description score to a 3/2/1 judgment.
type Thresholds struct {
	High float64 `yaml:"high"`
	Mid  float64 `yaml:"mid"`
	Low  float64 `yaml:"low"`
}

// Config holds every scoring constant: thresholds, weights, and the
// static keyword tables. Tests override fields here instead of touching
// scoring logic.
type Config struct {
	// ExactWord: product-name coverage cut points.
	NameCoverageHigh float64 `yaml:"name_coverage_high"`
	NameCoverageLow  float64 `yaml:"name_coverage_low"`
	// ExactWord: minimum significant-query-word coverage backing a 2.
	QueryWordCoverage float64 `yaml:"query_word_coverage"`

	// CategoryPrice: band around a stated point price, and the wider
	// fallback band around the catalog price when the question stated
	// no price at all.
	PriceTolerance         float64 `yaml:"price_tolerance"`
	PriceToleranceFallback float64 `yaml:"price_tolerance_fallback"`

	// Description scoring.
	Groups           GroupWeights `yaml:"group_weights"`
	RichFields       FieldWeights `yaml:"rich_field_weights"`
	SparseFields     FieldWeights `yaml:"sparse_field_weights"`
	RichThresholds   Thresholds   `yaml:"rich_thresholds"`
	SparseThresholds Thresholds   `yaml:"sparse_thresholds"`

	Tables Tables `yaml:"tables"`
}

// Tables holds the static keyword data the scorer consults. These are
// configuration, not runtime-derived.
type Tables struct {
	CategorySynonyms  map[string][]string `yaml:"category_synonyms"`
	AttributeKeywords map[string][]string `yaml:"attribute_keywords"`
	StopWords         []string            `yaml:"stop_words"`
	QualityTerms      []string            `yaml:"quality_terms"`
	FunctionalTerms   []string            `yaml:"functional_terms"`
	UseCaseTerms      []string            `yaml:"use_case_terms"`
	QualitySynonyms   map[string][]string `yaml:"quality_synonyms"`
}

// DefaultConfig returns the documented scoring constants.
func DefaultConfig() Config {
	return Config{
		NameCoverageHigh:  0.70,
		NameCoverageLow:   0.30,
		QueryWordCoverage: 0.30,

		PriceTolerance:         0.20,
		PriceToleranceFallback: 0.30,

		Groups: GroupWeights{
			Quality:     0.40,
			Functional:  0.30,
			UseCase:     0.20,
			Descriptive: 0.10,
		},
		RichFields:       FieldWeights{Summary: 0.50, Description: 0.30, Name: 0.15, Category: 0.05},
		SparseFields:     FieldWeights{Name: 0.70, Category: 0.30},
		RichThresholds:   Thresholds{High: 0.55, Mid: 0.35, Low: 0.15},
		SparseThresholds: Thresholds{High: 0.60, Mid: 0.40, Low: 0.20},

		Tables: defaultTables(),
	}
}

func defaultTables() Tables {
	return Tables{
		CategorySynonyms: map[string][]string{
			"clothing":     {"clothing", "apparel", "wear", "garment", "shirt", "jacket", "coat", "sweater"},
			"footwear":     {"footwear", "shoes", "boots", "sneakers", "sandals", "shoe", "boot"},
			"bike":         {"bike", "bicycle", "cycling", "cycle"},
			"accessory":    {"accessory", "accessories", "gear", "equipment"},
			"backpack":     {"backpack", "pack", "bag", "rucksack"},
			"helmet":       {"helmet", "head protection"},
			"tent":         {"tent", "shelter", "camping"},
			"gloves":       {"gloves", "glove", "hand protection"},
			"shorts_pants": {"shorts", "pants", "trousers", "short", "pant"},
		},
		AttributeKeywords: map[string][]string{
			"color":    {"black", "white", "red", "blue", "green", "yellow", "orange", "purple", "pink", "brown", "gray", "grey"},
			"size":     {"small", "medium", "large", "xl", "xxl"},
			"material": {"cotton", "polyester", "wool", "leather", "synthetic", "fabric"},
			"style":    {"casual", "formal", "sport", "athletic", "outdoor"},
		},
		StopWords: []string{
			"i", "me", "my", "we", "our", "you", "your", "he", "him", "his", "she", "her",
			"it", "its", "they", "them", "their", "what", "which", "who", "whom", "this",
			"that", "these", "those", "am", "is", "are", "was", "were", "be", "been", "being",
			"have", "has", "had", "having", "do", "does", "did", "doing", "a", "an", "the",
			"and", "but", "if", "or", "because", "as", "until", "while", "of", "at", "by",
			"for", "with", "about", "against", "between", "into", "through", "during",
			"before", "after", "above", "below", "up", "down", "in", "out", "on", "off",
			"over", "under", "again", "further", "then", "once", "here", "there", "when",
			"where", "why", "how", "all", "any", "both", "each", "few", "more", "most",
			"other", "some", "such", "no", "nor", "not", "only", "own", "same", "so",
			"than", "too", "very", "can", "will", "just", "should", "now", "good",
			"things", "compare", "options", "suggestions", "opinion", "considering",
			"buying", "worth", "tell", "heard",
		},
		QualityTerms: []string{
			"comfort", "comfortable", "warmth", "warm", "durable", "durability",
			"lightweight", "breathable", "waterproof", "versatile", "quality",
			"protection", "protective", "adjustable", "flexible", "soft", "strong",
		},
		FunctionalTerms: []string{
			"performance", "support", "stability", "grip", "traction", "insulation",
			"ventilation", "moisture-wicking", "quick-dry", "stretch", "reinforced",
		},
		UseCaseTerms: []string{
			"outdoor", "hiking", "climbing", "running", "cycling", "sports",
			"casual", "professional", "travel", "adventure", "weather", "rain",
		},
		QualitySynonyms: map[string][]string{
			"comfort":     {"comfortable", "cozy", "soft", "cushioned", "padded"},
			"warmth":      {"warm", "insulated", "thermal", "heat-retaining"},
			"durable":     {"durability", "tough", "strong", "long-lasting", "robust"},
			"lightweight": {"light", "compact", "portable"},
			"breathable":  {"ventilated", "airy", "moisture-wicking"},
			"waterproof":  {"water-resistant", "weatherproof", "sealed"},
			"versatile":   {"adaptable", "multi-purpose", "flexible"},
			"protection":  {"protective", "shielding", "safety"},
			"quality":     {"premium", "high-grade", "superior", "excellent"},
		},
	}
}

// LoadTables merges table overrides from a yaml file into cfg. Only the
// tables present in the file are replaced.
func LoadTables(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "relevance: read tables file %s", path)
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return eris.Wrapf(err, "relevance: parse tables file %s", path)
	}

	if len(t.CategorySynonyms) > 0 {
		cfg.Tables.CategorySynonyms = t.CategorySynonyms
	}
	if len(t.AttributeKeywords) > 0 {
		cfg.Tables.AttributeKeywords = t.AttributeKeywords
	}
	if len(t.StopWords) > 0 {
		cfg.Tables.StopWords = t.StopWords
	}
	if len(t.QualityTerms) > 0 {
		cfg.Tables.QualityTerms = t.QualityTerms
	}
	if len(t.FunctionalTerms) > 0 {
		cfg.Tables.FunctionalTerms = t.FunctionalTerms
	}
	if len(t.UseCaseTerms) > 0 {
		cfg.Tables.UseCaseTerms = t.UseCaseTerms
	}
	if len(t.QualitySynonyms) > 0 {
		cfg.Tables.QualitySynonyms = t.QualitySynonyms
	}
	return nil
}
