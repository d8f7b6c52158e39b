package pipeline

import (
	"strings"

	"nbasync/featurepipe/internal/frame"
)

// canonicalIdents are the non-stat columns of the persisted schema, in
// their persisted order.
var canonicalIdents = []string{"GAME_ID", "GAME_DATE", "SEASON_ID", "PLAYOFFS", "WIN"}

// Finalize derives the binary win flag from the source's win/loss field and
// projects the frame down to the canonical persisted schema: every
// tracked-player and residual stat column, then game id, game date, season
// id, playoff flag and win flag, all lower-cased. Running Finalize on an
// already-finalized frame is a no-op.
func Finalize(games *frame.Frame) *frame.Frame {
	if games.HasColumn("WL") {
		games.AddColumn("WIN")
		for i := 0; i < games.Len(); i++ {
			win := 0
			if games.String(i, "WL") == "W" {
				win = 1
			}
			games.Set(i, "WIN", win)
		}
	}

	var keep []string
	for _, col := range games.Columns() {
		if isStatColumn(col) {
			keep = append(keep, col)
		}
	}
	for _, ident := range canonicalIdents {
		if name, ok := columnFold(games, ident); ok {
			keep = append(keep, name)
		}
	}

	return games.Select(keep...).Rename(strings.ToLower)
}

// isStatColumn matches tracked-player and residual columns by suffix,
// regardless of case.
func isStatColumn(col string) bool {
	upper := strings.ToUpper(col)
	for _, suffix := range statSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

// columnFold finds a column by case-insensitive name.
func columnFold(f *frame.Frame, name string) (string, bool) {
	for _, col := range f.Columns() {
		if strings.EqualFold(col, name) {
			return col, true
		}
	}
	return "", false
}
