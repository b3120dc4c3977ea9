package money

import (
	"errors"
	"testing"
)

func TestMoneyString(t *testing.T) {
	tests := []struct {
		name string
		in   Money
		want string
	}{
		{name: "zero", in: 0, want: "0.00"},
		{name: "one paisa", in: 1, want: "0.01"},
		{name: "whole rupees", in: 10000, want: "100.00"},
		{name: "mixed", in: 9524, want: "95.24"},
		{name: "negative", in: -250, want: "-2.50"},
		{name: "six figure rupees", in: 99999999, want: "999999.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.String(); got != tt.want {
				t.Fatalf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Money
		wantErr bool
	}{
		{name: "integer rupees", in: "100", want: 10000},
		{name: "two decimals", in: "95.24", want: 9524},
		{name: "one decimal", in: "94.5", want: 9450},
		{name: "trailing zeros beyond paise", in: "12.500", want: 1250},
		{name: "rupee sign and grouping", in: "₹ 1,200.00", want: 120000},
		{name: "negative", in: "-0.50", want: -50},
		{name: "fractional paise", in: "1.005", wantErr: true},
		{name: "garbage", in: "abc", wantErr: true},
		{name: "empty", in: "  ", wantErr: true},
		{name: "overflow", in: "999999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStringRoundTrip(t *testing.T) {
	for _, m := range []Money{0, 1, 99, 100, 123456, -7} {
		got, err := Parse(m.String())
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", m.String(), err)
		}
		if got != m {
			t.Fatalf("round trip of %d gave %d", m, got)
		}
	}
}

func TestSum(t *testing.T) {
	if got := Sum(); got != 0 {
		t.Fatalf("Sum() = %d, want 0", got)
	}
	if got := Sum(1, 2, 3); got != 6 {
		t.Fatalf("Sum(1,2,3) = %d, want 6", got)
	}
}
