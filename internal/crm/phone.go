package crm

import "strings"

// NormalizePhone keeps only digits, plus a leading "+" when present.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	if strings.HasPrefix(raw, "+") {
		b.WriteByte('+')
	}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 1 && strings.HasPrefix(raw, "+") {
		return ""
	}
	return b.String()
}

// MatchCustomer returns the first customer whose normalized number contains
// the normalized caller number, or is contained by it. That tolerates country
// code and extension mismatches.
func MatchCustomer(customers []Customer, normalizedCaller string) (Customer, bool) {
	if normalizedCaller == "" {
		return Customer{}, false
	}
	for _, c := range customers {
		stored := NormalizePhone(c.PhoneNumber)
		if stored == "" {
			continue
		}
		if strings.Contains(stored, normalizedCaller) || strings.Contains(normalizedCaller, stored) {
			return c, true
		}
	}
	return Customer{}, false
}
