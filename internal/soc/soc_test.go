package soc

import (
	"errors"
	"testing"
)

func TestValid(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"29-1141", true},
		{"291141", true},
		{"15-1252", true},
		{"  29-1141  ", true},
		{"29-114", false},
		{"2-91141", false},
		{"29-1141.00", false},
		{"abcdef", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := Valid(tc.code); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	if _, err := Normalize("29-11"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestFormats(t *testing.T) {
	n, err := Normalize("29-1141")
	if err != nil || n != "291141" {
		t.Fatalf("Normalize = %q, %v", n, err)
	}

	c, err := Canonical("291141")
	if err != nil || c != "29-1141" {
		t.Fatalf("Canonical = %q, %v", c, err)
	}

	b, err := BLSSeriesCode("29-1141")
	if err != nil || b != "0291141" {
		t.Fatalf("BLSSeriesCode = %q, %v", b, err)
	}

	o, err := ONetCode("291141")
	if err != nil || o != "29-1141.00" {
		t.Fatalf("ONetCode = %q, %v", o, err)
	}
}
