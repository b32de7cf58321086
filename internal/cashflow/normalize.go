package cashflow

import (
	"errors"
	"strconv"
	"strings"
)

var errEmptyToken = errors.New("empty token")

var amountReplacer = strings.NewReplacer(
	",", "",
	"−", "-", // minus sign
	"－", "-", // full-width hyphen-minus
)

// Normalize converts a localized amount such as "1,234" or "−567" into an
// integer. It fails with *ParseError when the cleaned token is not a base-10
// integer literal.
func Normalize(token string) (int64, error) {
	s := strings.TrimSpace(amountReplacer.Replace(token))
	if s == "" {
		return 0, &ParseError{Row: -1, Token: token, Err: errEmptyToken}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, &ParseError{Row: -1, Token: token, Err: err}
	}
	return n, nil
}
