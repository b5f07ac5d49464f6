package dataverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseItems(t *testing.T) {
	raw := []byte(`{
		"queryResult": {
			"result": [
				{
					"DisplayName": "Alpine Jacket",
					"Category": "clothing",
					"Price": 129.5,
					"Summary": "Warm insulated jacket",
					"Description": "A jacket for cold-weather hiking",
					"Color": "red",
					"Size": "L"
				},
				{
					"cr4a3_productname": "Trail Pack",
					"product_category": "backpack",
					"ListPrice": "$89.99"
				}
			],
			"FormattedText": "Here are some results"
		}
	}`)

	res, err := parseResponse(raw)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.JSONEq(t, string(raw), string(res.Raw))

	first := res.Items[0]
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, "Alpine Jacket", first.Name)
	assert.Equal(t, "clothing", first.Category)
	assert.InDelta(t, 129.5, first.Price, 1e-9)
	assert.Equal(t, "Warm insulated jacket", first.Summary)
	assert.Equal(t, "A jacket for cold-weather hiking", first.Description)
	assert.Equal(t, map[string]string{"color": "red", "size": "L"}, first.Attributes)

	second := res.Items[1]
	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, "Trail Pack", second.Name)
	assert.Equal(t, "backpack", second.Category)
	assert.InDelta(t, 89.99, second.Price, 1e-9)
	assert.Nil(t, second.Attributes)
}

func TestParseResponseDescriptionObjectForm(t *testing.T) {
	raw := []byte(`{
		"queryResult": {
			"result": [
				{
					"name": "Trail Tent",
					"description": {"summary": "Two-person tent", "description": "Lightweight shelter for backpacking"}
				}
			]
		}
	}`)

	res, err := parseResponse(raw)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Two-person tent", res.Items[0].Summary)
	assert.Equal(t, "Lightweight shelter for backpacking", res.Items[0].Description)
}

func TestParseResponseEmbeddedThrottle(t *testing.T) {
	raw := []byte(`{
		"queryResult": {
			"result": [],
			"FormattedText": "Request failed: rate limit is exceeded. Try again later."
		}
	}`)

	_, err := parseResponse(raw)
	te, ok := AsThrottle(err)
	require.True(t, ok)
	assert.Equal(t, 200, te.StatusCode)
	assert.Equal(t, "rate limit is exceeded", te.Marker)
}

func TestParseResponseErrorField(t *testing.T) {
	raw := []byte(`{"error": {"code": "0x80048d19", "message": "solution error"}}`)

	_, err := parseResponse(raw)
	require.True(t, IsExecutionError(err))
}

func TestParseResponseNullErrorField(t *testing.T) {
	raw := []byte(`{"error": null, "queryResult": {"result": []}}`)

	res, err := parseResponse(raw)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestParseResponseExecutionMarker(t *testing.T) {
	raw := []byte(`{
		"queryResult": {
			"result": [],
			"FormattedText": "InternalServerError while running the skill"
		}
	}`)

	_, err := parseResponse(raw)
	require.True(t, IsExecutionError(err))
}

func TestParseResponseEmptyResult(t *testing.T) {
	res, err := parseResponse([]byte(`{"queryResult": {"result": []}}`))
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	res, err = parseResponse([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestParseResponseInvalidJSON(t *testing.T) {
	_, err := parseResponse([]byte(`<html>gateway error</html>`))
	require.Error(t, err)
}

func TestParseItemMalformedEntry(t *testing.T) {
	raw := []byte(`{
		"queryResult": {
			"result": [
				"just a string",
				{"DisplayName": "Real Item"}
			]
		}
	}`)

	res, err := parseResponse(raw)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	// A malformed entry keeps its rank but stays neutral.
	assert.Equal(t, 1, res.Items[0].Rank)
	assert.Empty(t, res.Items[0].Name)
	assert.Equal(t, "Real Item", res.Items[1].Name)
	assert.Equal(t, 2, res.Items[1].Rank)
}

func TestParseItemPriceFallbacks(t *testing.T) {
	res, err := parseResponse([]byte(`{
		"queryResult": {
			"result": [
				{"name": "A", "price": "19.95"},
				{"name": "B", "Price": "not a number"},
				{"name": "C"}
			]
		}
	}`))
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.InDelta(t, 19.95, res.Items[0].Price, 1e-9)
	assert.Zero(t, res.Items[1].Price)
	assert.Zero(t, res.Items[2].Price)
}
