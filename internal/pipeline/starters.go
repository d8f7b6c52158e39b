package pipeline

import (
	"strings"

	"nbasync/featurepipe/internal/frame"
)

// FilterStarters restricts a finalized table to games inside
// [dateFrom, dateTo] where every tracked player was in the starting
// lineup. The _starter columns, having served as the filter, are dropped
// from the result.
func FilterStarters(games *frame.Frame, dateFrom, dateTo string) *frame.Frame {
	var starterCols []string
	for _, col := range games.Columns() {
		if strings.HasSuffix(col, "_starter") {
			starterCols = append(starterCols, col)
		}
	}

	filtered := games.Filter(func(i int) bool {
		date := games.String(i, "game_date")
		if date < dateFrom || date > dateTo {
			return false
		}
		started := 0
		for _, col := range starterCols {
			started += games.Int(i, col)
		}
		return started == len(starterCols)
	})

	var keep []string
	for _, col := range filtered.Columns() {
		if !strings.HasSuffix(col, "_starter") {
			keep = append(keep, col)
		}
	}
	return filtered.Select(keep...)
}
