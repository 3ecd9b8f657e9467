package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewCurrency(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"peso", "PHP", false},
		{"dollar", "USD", false},
		{"empty", "", true},
		{"lowercase", "php", true},
		{"too long", "PHPP", true},
		{"digits", "PH1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCurrency(tt.code)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewCurrency(%q) expected error, got nil", tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCurrency(%q) unexpected error: %v", tt.code, err)
			}
			if c.Code() != tt.code {
				t.Errorf("Code() = %q, want %q", c.Code(), tt.code)
			}
		})
	}
}

func TestMustCurrency_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustCurrency(\"bad\") did not panic")
		}
	}()
	MustCurrency("bad")
}

func TestMoneyArithmetic(t *testing.T) {
	principal := New(d("20000"), PHP)
	fee := principal.Multiply(d("0.05"))

	if !fee.Amount().Equal(d("1000")) {
		t.Fatalf("fee = %s, want 1000", fee.Amount())
	}

	net, err := principal.Subtract(fee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !net.Equal(New(d("19000"), PHP)) {
		t.Errorf("net = %s, want 19000.00 PHP", net)
	}

	back, err := net.Add(fee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.Equal(principal) {
		t.Errorf("round trip = %s, want %s", back, principal)
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	php := New(d("10"), PHP)
	usd := New(d("10"), MustCurrency("USD"))

	if _, err := php.Add(usd); err == nil {
		t.Error("expected currency mismatch on Add")
	}
	if _, err := php.Subtract(usd); err == nil {
		t.Error("expected currency mismatch on Subtract")
	}
}

func TestMoneyString(t *testing.T) {
	if got := New(d("3900"), PHP).String(); got != "3900.00 PHP" {
		t.Errorf("String() = %q", got)
	}
	if got := Zero(PHP).String(); got != "0.00 PHP" {
		t.Errorf("String() = %q", got)
	}
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		amount, rate, want string
	}{
		{"20000", "7", "1400"},
		{"50000", "5", "2500"},
		{"3900", "2", "78"},
		{"333.33", "3", "10"},
		{"100", "0", "0"},
	}
	for _, tt := range tests {
		got := PercentOf(d(tt.amount), d(tt.rate))
		if !got.Equal(d(tt.want)) {
			t.Errorf("PercentOf(%s, %s) = %s, want %s", tt.amount, tt.rate, got, tt.want)
		}
	}
}

func TestMinMaxClamp(t *testing.T) {
	if !Min(d("1"), d("2")).Equal(d("1")) {
		t.Error("Min")
	}
	if !Max(d("1"), d("2")).Equal(d("2")) {
		t.Error("Max")
	}
	if !NonNegative(d("-0.01")).IsZero() {
		t.Error("NonNegative")
	}
	if !Clamp(d("10.5"), decimal.Zero, d("10")).Equal(d("10")) {
		t.Error("Clamp upper")
	}
	if !Clamp(d("-1.3"), decimal.Zero, d("10")).IsZero() {
		t.Error("Clamp lower")
	}
}

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		first string
		last  string
	}{
		{"exact", "31200", 8, "3900", "3900"},
		{"residue on last", "1000", 3, "333.33", "333.34"},
		{"single", "2500", 1, "2500", "2500"},
		{"share is truncated", "1.00", 40, "0.02", "0.22"},
		{"share below a cent", "0.02", 3, "0", "0.02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitEvenly(d(tt.total), tt.n)
			if len(parts) != tt.n {
				t.Fatalf("len = %d, want %d", len(parts), tt.n)
			}
			sum := decimal.Zero
			for _, p := range parts {
				sum = sum.Add(p)
			}
			if !sum.Equal(d(tt.total)) {
				t.Errorf("sum = %s, want %s", sum, tt.total)
			}
			if !parts[0].Equal(d(tt.first)) {
				t.Errorf("first = %s, want %s", parts[0], tt.first)
			}
			if !parts[tt.n-1].Equal(d(tt.last)) {
				t.Errorf("last = %s, want %s", parts[tt.n-1], tt.last)
			}
		})
	}

	if !HasSubCents(d("0.015")) || HasSubCents(d("12.50")) {
		t.Error("HasSubCents misclassified")
	}
	if SplitEvenly(d("100"), 0) != nil {
		t.Error("expected nil for zero installments")
	}
}
