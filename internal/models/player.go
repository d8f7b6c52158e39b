package models

// PlayerLine is one player's row from a game's traditional box score.
// StartPosition is empty for players who came off the bench.
type PlayerLine struct {
	GameID        string
	TeamID        int
	PlayerID      int
	PlayerName    string
	StartPosition string
	PTS           int
	REB           int
	AST           int
}

// Starter reports whether the player was in the starting lineup.
func (l PlayerLine) Starter() bool {
	return l.StartPosition != ""
}

// TrackedPlayer is a roster member whose per-game stats get widened into
// dedicated feature columns. Surname must be upper-case; it prefixes the
// player's column names (e.g. JOKIC_PTS) and downstream residual
// computation discovers those columns by suffix.
type TrackedPlayer struct {
	ID      int
	Surname string
}
