package pipeline

import (
	"fmt"
	"time"
)

// dateLayout is the game-date form used throughout the feature table.
const dateLayout = "2006-01-02"

// AdvanceDay returns the calendar day after the given YYYY-MM-DD date.
// When the increment crosses into a new month the result is pinned to the
// 1st of that month, never a day number the destination month could clip.
func AdvanceDay(dateStr string) (string, error) {
	day, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", dateStr, err)
	}

	next := day.AddDate(0, 0, 1)
	if next.Month() != day.Month() {
		next = time.Date(next.Year(), next.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	return next.Format(dateLayout), nil
}

// apiDate converts a YYYY-MM-DD date to the MM/DD/YYYY form the game
// finder endpoint expects.
func apiDate(dateStr string) (string, error) {
	day, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", dateStr, err)
	}
	return day.Format("01/02/2006"), nil
}
