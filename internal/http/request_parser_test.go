package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := newParser(t, "application/json", `{"id": "123", "name": " test ", "amount": 42.5, "isDefault": true}`)

	if !p.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if id := p.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}
	if name := p.Get("name"); name != "test" {
		t.Errorf("Get('name') = %q, want 'test'", name)
	}
	if amount := p.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}
	if !p.Bool("isDefault") {
		t.Error("Bool('isDefault') = false, want true")
	}
	if p.Has("missing") {
		t.Error("Has('missing') = true")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", "id=456&name=form+test&isRecurring=on&ids=a&ids=b&ids=")

	if p.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if name := p.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
	if !p.Bool("isRecurring") {
		t.Error("checkbox value 'on' should read as true")
	}
	if got := p.Values("ids"); strings.Join(got, ",") != "a,b" {
		t.Errorf("Values('ids') = %v, want [a b]", got)
	}
}

func TestRequestBodyParser_Values(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"array", `{"ids": ["t1", "t2", " "]}`, "t1,t2"},
		{"single string", `{"ids": "t1"}`, "t1"},
		{"missing", `{}`, ""},
		{"null", `{"ids": null}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, "application/json", tt.body)
			if got := strings.Join(p.Values("ids"), ","); got != tt.want {
				t.Errorf("Values() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_Malformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"ids": [`))
	req.Header.Set("Content-Type", "application/json")
	p := NewRequestBodyParser(httptest.NewRecorder(), req)

	err := p.Parse()
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("Parse() error = %v, want ErrInvalidInput", err)
	}
	if statusFor(err) != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", statusFor(err))
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := "name=" + strings.Repeat("x", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	p := NewRequestBodyParser(httptest.NewRecorder(), req)

	err := p.Parse()
	if err == nil {
		t.Fatal("expected an error for an oversized body")
	}
	if statusFor(err) != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", statusFor(err))
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	p := newParser(t, "", "")
	if val := p.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestParseTransactionInput(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded",
		"accountId=a1&type=expense&amount=30,50&category=food&date=2024-03-05&description=lunch&isRecurring=on&recurringInterval=monthly")

	in, err := ParseTransactionInput(p)
	if err != nil {
		t.Fatalf("ParseTransactionInput() error = %v", err)
	}
	if in.Type != core.Expense || in.RecurringInterval != core.Monthly {
		t.Errorf("Type = %q Interval = %q", in.Type, in.RecurringInterval)
	}
	if !in.Amount.Equal(decimal.RequireFromString("30.50")) {
		t.Errorf("Amount = %s, want 30.50", in.Amount)
	}
	if !in.Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", in.Date)
	}
	if err := in.Validate(); err != nil {
		t.Errorf("parsed input should validate: %v", err)
	}
}

func TestParseTransactionInput_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative amount", "amount=-5&date=2024-03-05"},
		{"missing amount", "date=2024-03-05"},
		{"bad date", "amount=5&date=05/03/2024"},
		{"missing date", "amount=5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, "application/x-www-form-urlencoded", tt.body)
			if _, err := ParseTransactionInput(p); !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestParseAccountInput(t *testing.T) {
	p := newParser(t, "application/json", `{"name": "Main", "balance": "100.00", "isDefault": true}`)

	in, err := ParseAccountInput(p)
	if err != nil {
		t.Fatalf("ParseAccountInput() error = %v", err)
	}
	if in.Type != core.CurrentAccount {
		t.Errorf("Type = %q, want CURRENT by default", in.Type)
	}
	if !in.Balance.Equal(decimal.NewFromInt(100)) || !in.IsDefault {
		t.Errorf("in = %+v", in)
	}
}

func TestParseDate_RFC3339(t *testing.T) {
	got, err := parseDate("2024-03-05T00:30:00+01:00")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)) || got.Location() != time.UTC {
		t.Errorf("parseDate() = %v", got)
	}
}
