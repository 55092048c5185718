// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating JSON request
// bodies. Request DTOs carry validator struct tags; handlers convert them to
// core types once they validate.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"gastos/internal/core"
)

const maxBodyBytes = 1 << 20

var (
	hexColorRegex  = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	colorNameRegex = regexp.MustCompile(`^[a-z]{3,20}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01", fl.Field().String())
		return err == nil
	})
	// Seeded categories use CSS color names, so those pass too.
	_ = v.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		c := fl.Field().String()
		return hexColorRegex.MatchString(c) || colorNameRegex.MatchString(c)
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDecimalToCents(fl.Field().String())
		return err == nil
	})
	return v
}

// AmountInput accepts an amount as a JSON string ("12,34") or number (12.34).
type AmountInput string

func (a *AmountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = AmountInput(n.String())
	return nil
}

// Money parses a validated amount.
func (a AmountInput) Money() core.Money {
	m, _ := core.ParseMoney(string(a))
	return m
}

type sessionRequest struct {
	UserID string `json:"userId" validate:"required,notblank,max=128"`
}

type expenseRequest struct {
	Amount       AmountInput `json:"amount" validate:"required,amount"`
	Category     string      `json:"category" validate:"required,notblank,max=60"`
	Description  string      `json:"description" validate:"required,notblank,max=200"`
	Date         string      `json:"date" validate:"required,isodate"`
	AccountID    string      `json:"accountId" validate:"omitempty,max=64"`
	Installments int         `json:"installments" validate:"omitempty,min=2,max=60"`
}

type incomeRequest struct {
	Amount      AmountInput `json:"amount" validate:"required,amount"`
	Description string      `json:"description" validate:"required,notblank,max=200"`
	Date        string      `json:"date" validate:"required,isodate"`
	AccountID   string      `json:"accountId" validate:"omitempty,max=64"`
}

// Updates may resend a stored description, which can carry an installment
// suffix or a transfer prefix on top of what the user typed. The store still
// holds a changed description to the user limit.
type expenseUpdateRequest struct {
	Amount       AmountInput `json:"amount" validate:"required,amount"`
	Category     string      `json:"category" validate:"required,notblank,max=60"`
	Description  string      `json:"description" validate:"required,notblank,max=280"`
	Date         string      `json:"date" validate:"required,isodate"`
	AccountID    string      `json:"accountId" validate:"omitempty,max=64"`
	Installments int         `json:"installments" validate:"omitempty,min=2,max=60"`
}

type incomeUpdateRequest struct {
	Amount      AmountInput `json:"amount" validate:"required,amount"`
	Description string      `json:"description" validate:"required,notblank,max=280"`
	Date        string      `json:"date" validate:"required,isodate"`
	AccountID   string      `json:"accountId" validate:"omitempty,max=64"`
}

type categoryRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=60"`
	Color string `json:"color" validate:"omitempty,color"`
	Icon  string `json:"icon" validate:"omitempty,max=32"`
}

type accountRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=60"`
	Color string `json:"color" validate:"omitempty,color"`
}

type transferRequest struct {
	From        string      `json:"from" validate:"required"`
	To          string      `json:"to" validate:"required,nefield=From"`
	Amount      AmountInput `json:"amount" validate:"required,amount"`
	Description string      `json:"description" validate:"required,notblank,max=200"`
	Date        string      `json:"date" validate:"required,isodate"`
}

// ValidationError lists the offending fields of a request body by JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+" "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// errBadBody marks bodies that are not decodable JSON.
var errBadBody = errors.New("malformed request body")

// decodeJSON reads a JSON object into dst and validates it. Unknown fields
// are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, e := range verrs {
		out.Fields[e.Field()] = fieldErrorToString(e)
	}
	return out
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "amount":
		return "must be a positive amount like 12.34 or 12,34"
	case "isodate":
		return "must be a date in YYYY-MM-DD format"
	case "yearmonth":
		return "must be a month in YYYY-MM format"
	case "color":
		return "must be a hex color like #3B82F6 or a color name"
	case "nefield":
		return "must differ from " + strings.ToLower(e.Param())
	default:
		return "is invalid"
	}
}
