package utils

import (
	"time"
)

// JST is Japan Standard Time (UTC+9).
var JST *time.Location

func init() {
	var err error
	JST, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		// Fallback: fixed zone if tz database is not available
		JST = time.FixedZone("JST", 9*60*60)
	}
}

// NowJST returns the current time in JST.
func NowJST() time.Time {
	return time.Now().In(JST)
}

// FormatDateTimeJST formats a time.Time as "2006-01-02 15:04:05 JST".
func FormatDateTimeJST(t time.Time) string {
	return t.In(JST).Format("2006-01-02 15:04:05") + " JST"
}
