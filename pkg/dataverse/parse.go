package dataverse

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/search-eval/internal/model"
)

// throttleMarkers are the strings the service embeds in a 200 payload
// when the request was rate-limited downstream.
var throttleMarkers = []string{
	"toomanyrequests",
	"rate limit is exceeded",
	"status code '429'",
	"rate limit",
	"too many requests",
}

// executionMarkers flag a 200 payload whose formatted text reports an
// internal skill failure rather than results.
var executionMarkers = []string{
	"internalservererror",
	"internal error",
	"execution failed",
	"skill execution",
}

type queryResponse struct {
	Error       json.RawMessage `json:"error"`
	QueryResult *queryResult    `json:"queryResult"`
}

type queryResult struct {
	Result        []json.RawMessage `json:"result"`
	FormattedText string            `json:"FormattedText"`
}

// parseResponse classifies a 200 payload: throttling marker, embedded
// execution failure, or a well-formed (possibly empty) result list.
func parseResponse(raw []byte) (*Result, error) {
	var qr queryResponse
	if err := json.Unmarshal(raw, &qr); err != nil {
		return nil, eris.Wrap(err, "dataverse: parse response payload")
	}

	var formatted string
	if qr.QueryResult != nil {
		formatted = strings.ToLower(qr.QueryResult.FormattedText)
	}

	for _, m := range throttleMarkers {
		if strings.Contains(formatted, m) {
			return nil, &ThrottleError{StatusCode: 200, Marker: m}
		}
	}

	if len(qr.Error) > 0 && string(qr.Error) != "null" {
		return nil, &ExecutionError{Message: truncate(string(qr.Error), 200)}
	}
	for _, m := range executionMarkers {
		if strings.Contains(formatted, m) {
			return nil, &ExecutionError{Message: m}
		}
	}

	res := &Result{Raw: json.RawMessage(raw)}
	if qr.QueryResult == nil {
		return res, nil
	}

	for i, rawItem := range qr.QueryResult.Result {
		res.Items = append(res.Items, parseItem(rawItem, i+1))
	}
	return res, nil
}

// Field candidates, in precedence order. The API is inconsistent about
// casing and column naming across skills, so parsing is defensive:
// anything missing or unreadable is left at its neutral zero value.
var (
	nameFields     = []string{"DisplayName", "cr4a3_productname", "@primaryNameValue", "name", "productname", "Name"}
	categoryFields = []string{"Category", "category", "CategoryName", "product_category", "cr4a3_category"}
	priceFields    = []string{"Price", "price", "ListPrice", "BasePrice"}
	summaryFields  = []string{"Summary", "summary"}
	attributeKeys  = []string{"Color", "Size", "Material", "Style"}
)

func parseItem(raw json.RawMessage, rank int) model.RetrievedItem {
	item := model.RetrievedItem{Rank: rank}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return item // fails closed: neutral item scores 0
	}

	item.Name = firstString(fields, nameFields)
	item.Category = firstString(fields, categoryFields)
	item.Price = firstNumber(fields, priceFields)
	item.Summary = firstString(fields, summaryFields)
	item.Description, item.Summary = parseDescription(fields, item.Summary)

	for _, key := range attributeKeys {
		v := stringField(fields, key)
		if v == "" {
			v = stringField(fields, strings.ToLower(key))
		}
		if v == "" {
			continue
		}
		if item.Attributes == nil {
			item.Attributes = make(map[string]string)
		}
		item.Attributes[strings.ToLower(key)] = v
	}

	return item
}

// parseDescription handles both the flat string form and the object
// form {"summary": ..., "description": ...} some skills return.
func parseDescription(fields map[string]json.RawMessage, summary string) (string, string) {
	for _, key := range []string{"Description", "description"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, summary
		}
		var obj struct {
			Summary     string `json:"summary"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			if obj.Summary != "" {
				summary = obj.Summary
			}
			return obj.Description, summary
		}
	}
	return "", summary
}

func firstString(fields map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		if v := stringField(fields, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNumber(fields map[string]json.RawMessage, keys []string) float64 {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "$"), 64); err == nil {
				return f
			}
		}
	}
	return 0
}
