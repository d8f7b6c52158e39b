package models

// TeamGame is one per-team game row returned by the league game finder.
// GameDate is in YYYY-MM-DD form; SeasonID is the raw API value (e.g.
// "22023") whose first character encodes the season type and the rest the
// season year.
type TeamGame struct {
	SeasonID string
	TeamID   int
	GameID   string
	GameDate string
	Matchup  string
	WL       string
	PTS      int
	REB      int
	AST      int
}

// SeasonYear returns the season year embedded in the season identifier,
// e.g. "2023" for SEASON_ID "22023". Returns "" when the identifier is too
// short to carry one.
func (g TeamGame) SeasonYear() string {
	if len(g.SeasonID) < 2 {
		return ""
	}
	return g.SeasonID[1:]
}
