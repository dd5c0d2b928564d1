// Package soc validates and reformats Standard Occupational Classification
// codes for the external data sources, which each expect a different shape.
package soc

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidCode = errors.New("invalid SOC code")

var codePattern = regexp.MustCompile(`^\d{2}-?\d{4}$`)

// Valid reports whether code looks like a SOC code (XX-XXXX, dash optional).
func Valid(code string) bool {
	return codePattern.MatchString(strings.TrimSpace(code))
}

// Normalize returns the six digit form, e.g. "29-1141" -> "291141".
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !Valid(code) {
		return "", ErrInvalidCode
	}
	return strings.ReplaceAll(code, "-", ""), nil
}

// Canonical returns the dashed form, e.g. "291141" stays "29-1141".
func Canonical(code string) (string, error) {
	n, err := Normalize(code)
	if err != nil {
		return "", err
	}
	return n[:2] + "-" + n[2:], nil
}

// BLSSeriesCode returns the seven digit zero-padded form used inside OEWS
// series identifiers.
func BLSSeriesCode(code string) (string, error) {
	n, err := Normalize(code)
	if err != nil {
		return "", err
	}
	return "0" + n, nil
}

// ONetCode returns the O*NET form required by CareerOneStop,
// e.g. "29-1141" -> "29-1141.00".
func ONetCode(code string) (string, error) {
	c, err := Canonical(code)
	if err != nil {
		return "", err
	}
	return c + ".00", nil
}
