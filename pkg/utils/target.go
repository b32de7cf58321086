package utils

import (
	"regexp"
	"strings"
)

var edinetCodeRe = regexp.MustCompile(`^E\d{5}$`)

// NormalizeTarget cleans user input naming a company page. Bare EDINET codes
// are upper-cased ("e05080" → "E05080"); URLs are only trimmed.
func NormalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if up := strings.ToUpper(target); edinetCodeRe.MatchString(up) {
		return up
	}
	return target
}

// IsEDINETCode reports whether s is an EDINET filer code such as "E05080".
func IsEDINETCode(s string) bool {
	return edinetCodeRe.MatchString(s)
}
