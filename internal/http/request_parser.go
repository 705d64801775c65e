// Package http serves the ledger pages and the JSON API.
//
// This file parses request bodies, accepting JSON as well as the form
// encoding htmx sends.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spendwise/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most 1 MiB of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.Contains(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", core.ErrInvalidInput)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: malformed form body", core.ErrInvalidInput)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Bool reads a checkbox or JSON boolean. "on", "true" and "1" are true.
func (p *RequestBodyParser) Bool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// Values returns every value of key: a JSON array or repeated form fields.
func (p *RequestBodyParser) Values(key string) []string {
	var raw []string
	if p.jsonData != nil {
		switch val := p.jsonData[key].(type) {
		case []any:
			for _, v := range val {
				raw = append(raw, stringValue(v))
			}
		case nil:
		default:
			raw = append(raw, stringValue(val))
		}
	} else if p.formData != nil {
		raw = p.formData[key]
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = sanitizeInput(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseAccountInput reads the account creation fields. Field rules are
// checked by the ledger.
func ParseAccountInput(p *RequestBodyParser) (core.AccountInput, error) {
	balance, err := core.ParseBalance(p.Get("balance"))
	if err != nil {
		return core.AccountInput{}, err
	}
	in := core.AccountInput{
		Name:      p.Get("name"),
		Type:      core.AccountType(strings.ToUpper(p.Get("type"))),
		Balance:   balance,
		IsDefault: p.Bool("isDefault"),
	}
	if in.Type == "" {
		in.Type = core.CurrentAccount
	}
	return in, nil
}

// ParseTransactionInput reads the create and edit form fields.
func ParseTransactionInput(p *RequestBodyParser) (core.TransactionInput, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.TransactionInput{}, err
	}
	date, err := parseDate(p.Get("date"))
	if err != nil {
		return core.TransactionInput{}, err
	}
	in := core.TransactionInput{
		AccountID:         p.Get("accountId"),
		Type:              core.TransactionType(strings.ToUpper(p.Get("type"))),
		Amount:            amount,
		Description:       p.Get("description"),
		Category:          p.Get("category"),
		Date:              date,
		IsRecurring:       p.Bool("isRecurring"),
		RecurringInterval: core.RecurringInterval(strings.ToUpper(p.Get("recurringInterval"))),
	}
	return in, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Calendar
// dates are midnight UTC.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, core.ErrMissingDate
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", core.ErrInvalidInput, s)
}
