// Package render formats quotes for people: currency strings, signed
// percentages and the landing page.
package render

import (
	"strings"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Price formats d as US dollars with thousands separators. Prices below one
// keep up to six decimals so small coins stay readable.
func Price(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	var s string
	if d.LessThan(one) && !d.IsZero() {
		s = trimZeros(d.StringFixed(6), 2)
	} else {
		s = d.StringFixed(2)
	}
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + "$" + group(intPart) + "." + frac
}

// Change formats a percentage change with an explicit sign, e.g. +2.30%.
func Change(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if !d.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}

// ChangeClass is the CSS class for a change value.
func ChangeClass(d decimal.Decimal) string {
	if d.IsNegative() {
		return "negative"
	}
	return "positive"
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// trimZeros drops trailing fractional zeros but keeps at least keep digits.
func trimZeros(s string, keep int) string {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	end := len(s)
	for end > dot+1+keep && s[end-1] == '0' {
		end--
	}
	return s[:end]
}
