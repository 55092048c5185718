package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountInput_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCents int64
	}{
		{name: "string with comma", input: `"12,34"`, wantCents: 1234},
		{name: "string with dot", input: `"12.345"`, wantCents: 1235},
		{name: "json number", input: `99.9`, wantCents: 9990},
		{name: "integer", input: `5`, wantCents: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a AmountInput
			require.NoError(t, json.Unmarshal([]byte(tt.input), &a))
			assert.Equal(t, tt.wantCents, a.Money().Cents)
		})
	}

	var a AmountInput
	assert.Error(t, json.Unmarshal([]byte(`true`), &a))
}

func TestDecodeJSON(t *testing.T) {
	decodeBody := func(body string) (expenseRequest, error) {
		var req expenseRequest
		r := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(body))
		err := decodeJSON(httptest.NewRecorder(), r, &req)
		return req, err
	}

	req, err := decodeBody(`{"amount":"10","category":"Casa","description":"Luz","date":"2025-01-31","installments":2}`)
	require.NoError(t, err)
	assert.Equal(t, 2, req.Installments)
	assert.Equal(t, int64(1000), req.Amount.Money().Cents)

	_, err = decodeBody(`{"amount":"10"} {"amount":"11"}`)
	assert.ErrorIs(t, err, errBadBody)

	_, err = decodeBody(`{"amount":"10","category":"Casa","description":"Luz","date":"2025-02-30"}`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a date in YYYY-MM-DD format", verr.Fields["date"])

	_, err = decodeBody(`{"amount":"-3","category":" ","description":"` + strings.Repeat("x", 201) + `","date":"2025-01-01","installments":1}`)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"amount":       "must be a positive amount like 12.34 or 12,34",
		"category":     "must not be blank",
		"description":  "must be at most 200 characters",
		"installments": "must be at least 2",
	}, verr.Fields)
}

func TestValidateColor(t *testing.T) {
	for _, c := range []string{"#3B82F6", "#abc", "pink"} {
		assert.NoError(t, validateStruct(&categoryRequest{Name: "x", Color: c}), c)
	}
	for _, c := range []string{"#12345", "3B82F6", "Pink!", "rgb(0,0,0)"} {
		assert.Error(t, validateStruct(&categoryRequest{Name: "x", Color: c}), c)
	}
}

func TestTransferRequestAccountsMustDiffer(t *testing.T) {
	err := validateStruct(&transferRequest{From: "a", To: "a", Amount: "1", Description: "x", Date: "2025-01-01"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must differ from from", verr.Fields["to"])
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Luz\tgas", sanitizeInput("  Luz\tg\x00as\x07 "))
}
