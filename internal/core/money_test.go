package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.0001", "0.0001", true},
		{"1.00005", "1.0001", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"0", "", false},
		{"0.00004", "", false}, // rounds to zero
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestParseBalance(t *testing.T) {
	for in, want := range map[string]string{"": "0", "-12,5": "-12.5", "100": "100"} {
		got, err := ParseBalance(in)
		if err != nil || !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("%q expected %s, got %s (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseBalance("ten"); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnitsRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "120.00", "-30.5", "0.0001", "92233720368.5477"} {
		d := decimal.RequireFromString(s)
		u, err := ToUnits(d)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if back := FromUnits(u); !back.Equal(d) {
			t.Fatalf("%s round-tripped to %s", s, back)
		}
	}
	if _, err := ToUnits(decimal.RequireFromString("0.00001")); err == nil {
		t.Fatal("expected scale error")
	}
	if _, err := ToUnits(decimal.RequireFromString("1e20")); err == nil {
		t.Fatal("expected range error")
	}
}

func TestRepeatedIncrementsStayExact(t *testing.T) {
	balance := decimal.Zero
	step := decimal.RequireFromString("0.1")
	for i := 0; i < 1000; i++ {
		balance = balance.Add(step)
	}
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance drifted to %s", balance)
	}
}
