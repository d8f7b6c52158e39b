package pipeline

import (
	"context"
	"fmt"

	"nbasync/featurepipe/internal/client"
	"nbasync/featurepipe/internal/featurestore"
	"nbasync/featurepipe/internal/frame"
	"nbasync/featurepipe/internal/models"
)

// fakeGameSource serves canned league game finder responses. Season pulls
// are keyed "<season>|<type>", date pulls "from:<date>|<type>".
type fakeGameSource struct {
	responses map[string][]models.TeamGame
	queries   []client.GameQuery
	err       error
}

func gameKey(q client.GameQuery) string {
	if q.Season != "" {
		return fmt.Sprintf("%s|%s", q.Season, q.SeasonType)
	}
	return fmt.Sprintf("from:%s|%s", q.DateFrom, q.SeasonType)
}

func (s *fakeGameSource) LeagueGameFinder(_ context.Context, q client.GameQuery) ([]models.TeamGame, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	return s.responses[gameKey(q)], nil
}

// fakeBoxScoreSource serves canned box scores keyed by game id.
type fakeBoxScoreSource struct {
	lines map[string][]models.PlayerLine
	calls int
	err   error
}

func (s *fakeBoxScoreSource) BoxScoreTraditional(_ context.Context, gameID string) ([]models.PlayerLine, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.lines[gameID], nil
}

// fakeBoxScoreCache is an in-memory BoxScoreCache.
type fakeBoxScoreCache struct {
	entries map[string][]models.PlayerLine
}

func newFakeBoxScoreCache() *fakeBoxScoreCache {
	return &fakeBoxScoreCache{entries: make(map[string][]models.PlayerLine)}
}

func (c *fakeBoxScoreCache) GetPlayerLines(_ context.Context, gameID string) ([]models.PlayerLine, bool) {
	lines, ok := c.entries[gameID]
	return lines, ok
}

func (c *fakeBoxScoreCache) SetPlayerLines(_ context.Context, gameID string, lines []models.PlayerLine) {
	c.entries[gameID] = lines
}

// fakeStore is an in-memory Store. With empty=true it reports
// ErrGroupNotFound until the first insert.
type fakeStore struct {
	table   *frame.Frame
	empty   bool
	inserts int
	readErr error
}

func (s *fakeStore) Read(context.Context) (*frame.Frame, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.empty {
		return nil, featurestore.ErrGroupNotFound
	}
	return s.table, nil
}

func (s *fakeStore) Insert(_ context.Context, f *frame.Frame) error {
	s.inserts++
	if s.empty {
		s.table = f
		s.empty = false
		return nil
	}
	s.table = dedupeByGameID(frame.Concat(s.table, f))
	return nil
}

var testRoster = []models.TrackedPlayer{
	{ID: 203999, Surname: "JOKIC"},
	{ID: 1627750, Surname: "MURRAY"},
}

func teamGame(gameID, date, seasonID, wl string, pts, reb, ast int) models.TeamGame {
	return models.TeamGame{
		SeasonID: seasonID,
		TeamID:   1610612743,
		GameID:   gameID,
		GameDate: date,
		Matchup:  "DEN vs. LAL",
		WL:       wl,
		PTS:      pts,
		REB:      reb,
		AST:      ast,
	}
}

func playerLine(gameID string, playerID int, startPos string, pts, reb, ast int) models.PlayerLine {
	return models.PlayerLine{
		GameID:        gameID,
		TeamID:        1610612743,
		PlayerID:      playerID,
		StartPosition: startPos,
		PTS:           pts,
		REB:           reb,
		AST:           ast,
	}
}

// storedRow builds one finalized feature row the way the store returns it.
func storedRow(gameID, date, seasonID string, playoffs, win int) map[string]any {
	return map[string]any{
		"jokic_pts": 25, "jokic_reb": 12, "jokic_ast": 9, "jokic_starter": 1,
		"murray_pts": 18, "murray_reb": 4, "murray_ast": 6, "murray_starter": 1,
		"rest_pts": 60, "rest_reb": 28, "rest_ast": 12,
		"game_id": gameID, "game_date": date, "season_id": seasonID,
		"playoffs": playoffs, "win": win,
	}
}

func storedFrame(rows ...map[string]any) *frame.Frame {
	f := frame.New(
		"jokic_pts", "jokic_reb", "jokic_ast", "jokic_starter",
		"murray_pts", "murray_reb", "murray_ast", "murray_starter",
		"rest_pts", "rest_reb", "rest_ast",
		"game_id", "game_date", "season_id", "playoffs", "win",
	)
	for _, r := range rows {
		f.Append(r)
	}
	return f
}
