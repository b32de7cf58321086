// Package utils provides common formatting helpers for cfpattern.
package utils

import "strconv"

// FormatMillions formats an amount in millions of yen with 3-digit grouping,
// e.g. -1234567 → "-1,234,567".
func FormatMillions(n int64) string {
	if n < 0 {
		if n == -n { // math.MinInt64
			return "-" + groupDigits(strconv.FormatUint(uint64(n), 10))
		}
		return "-" + groupDigits(strconv.FormatInt(-n, 10))
	}
	return groupDigits(strconv.FormatInt(n, 10))
}

// FormatSigned is FormatMillions with an explicit "+" on positive values.
func FormatSigned(n int64) string {
	if n > 0 {
		return "+" + FormatMillions(n)
	}
	return FormatMillions(n)
}

// groupDigits inserts a comma every three digits from the right.
func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	out := s[:head]
	for i := head; i < len(s); i += 3 {
		out += "," + s[i:i+3]
	}
	return out
}

