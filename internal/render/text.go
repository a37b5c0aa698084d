package render

import (
	"fmt"
	"strings"
	"time"
)

// CapitalizeWords title-cases every word of a name, handling the mixed-case
// and all-caps entries that come in from bulk roster uploads.
func CapitalizeWords(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// FormatEventDate renders an event's date or date range the way certificates
// and email bodies display it: "March 10, 2026" for single-day events,
// "March 10-12, 2026" for ranges within a month, and
// "March 30 - April 1, 2026" across months.
func FormatEventDate(start, end time.Time) string {
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return start.Format("January 2, 2006")
	}
	if start.Year() == end.Year() && start.Month() == end.Month() {
		return fmt.Sprintf("%s %d-%d, %d", start.Month(), start.Day(), end.Day(), end.Year())
	}
	return fmt.Sprintf("%s %d - %s %d, %d",
		start.Month(), start.Day(), end.Month(), end.Day(), end.Year())
}
