// Package core provides the ledger domain types and value parsing.
//
// This file contains the parsers used by the importer to turn source cells
// into cents and calendar dates.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseCents converts a ledger cell holding an amount in the smallest
// currency unit into cents.
//
// Source workbooks store those amounts as plain integers, but spreadsheet
// exports frequently render them as floats ("1234.0") or with digit
// grouping ("1,234" or "1.234,0"). A fractional part is rounded half away
// from zero. A leading sign is allowed since balances may be negative.
//
// Examples:
//
//	ParseCents("1234")     -> 1234, nil
//	ParseCents("1234.0")   -> 1234, nil
//	ParseCents("1,234")    -> 1234, nil
//	ParseCents("1.234,56") -> 1235, nil
//	ParseCents("-50")      -> -50, nil
//	ParseCents("10.5")     -> 11, nil
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return 0, ErrInvalidAmount
		}
	}
	num, ok := normalizeAmount(s)
	if !ok {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	v := d.Round(0).BigInt()
	if !v.IsInt64() {
		return 0, ErrInvalidAmount
	}
	return v.Int64(), nil
}

// normalizeAmount rewrites digit grouping and a decimal comma into a plain
// "123.45" form. When both separators appear the last one is the decimal
// point. A lone separator followed by exactly three digits, or one that
// repeats, is grouping.
func normalizeAmount(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	lastDot, lastComma := strings.LastIndexByte(s, '.'), strings.LastIndexByte(s, ',')
	group, point := "", ""
	switch {
	case lastDot >= 0 && lastComma >= 0:
		group, point = ",", "."
		if lastComma > lastDot {
			group, point = ".", ","
		}
	case lastComma >= 0:
		group, point = groupOrPoint(s, ",")
	case lastDot >= 0:
		group, point = groupOrPoint(s, ".")
	}

	intPart, frac := s, ""
	if point != "" {
		i := strings.LastIndex(s, point)
		intPart, frac = s[:i], s[i+1:]
		if strings.ContainsAny(frac, ".,") {
			return "", false
		}
	}
	if group != "" {
		groups := strings.Split(intPart, group)
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return "", false
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return "", false
			}
		}
		intPart = strings.Join(groups, "")
	}
	if strings.ContainsAny(intPart, ".,") {
		return "", false
	}
	if intPart == "" {
		intPart = "0"
	}
	if frac == "" {
		return intPart, true
	}
	return intPart + "." + frac, true
}

func groupOrPoint(s, sep string) (group, point string) {
	i := strings.Index(s, sep)
	if strings.Count(s, sep) > 1 || (sep == "," && i > 0 && len(s)-i-1 == 3) {
		return sep, ""
	}
	return "", sep
}

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
}

// ParseDate parses the date formats found in ledger sources: ISO dates,
// pandas timestamps ("2024-01-31 00:00:00") and dd/mm/yyyy.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
		lastErr = err
	}
	return Date{}, lastErr
}
