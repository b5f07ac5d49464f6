package model

// QuestionType classifies a test case by the relevance rule used to judge
// its results.
type QuestionType string

const (
	QuestionExactWord         QuestionType = "exact_word"
	QuestionCategory          QuestionType = "category"
	QuestionCategoryAttribute QuestionType = "category_attribute"
	QuestionCategoryPrice     QuestionType = "category_price"
	QuestionDescription       QuestionType = "description"
)

// QuestionTypes lists all known question types in report order.
var QuestionTypes = []QuestionType{
	QuestionExactWord,
	QuestionCategory,
	QuestionCategoryAttribute,
	QuestionCategoryPrice,
	QuestionDescription,
}

// Valid reports whether the question type is one of the known values.
func (q QuestionType) Valid() bool {
	switch q {
	case QuestionExactWord, QuestionCategory, QuestionCategoryAttribute,
		QuestionCategoryPrice, QuestionDescription:
		return true
	}
	return false
}

// PriceRange is an inclusive [Low, High] acceptance interval in the
// catalog currency.
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether p falls inside the interval.
func (r PriceRange) Contains(p float64) bool {
	return p >= r.Low && p <= r.High
}

// TestCase is one evaluation query with the expectations used to judge
// its results. Immutable once loaded.
type TestCase struct {
	ID               string            `json:"id"`
	QuestionType     QuestionType      `json:"question_type"`
	QueryText        string            `json:"question"`
	ExpectedProduct  string            `json:"expected_product_name,omitempty"`
	ExpectedCategory string            `json:"expected_category,omitempty"`
	// ExpectedAttributes maps attribute kind (color, size, material,
	// style) to the expected value.
	ExpectedAttributes map[string]string `json:"expected_attributes,omitempty"`
	ExpectedPrice      float64           `json:"expected_price,omitempty"`
	ExpectedPriceRange *PriceRange       `json:"expected_price_range,omitempty"`
}
