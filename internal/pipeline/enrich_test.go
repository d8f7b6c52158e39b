package pipeline

import (
	"context"
	"testing"

	"nbasync/featurepipe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrich_AppendsPlayerBlocks(t *testing.T) {
	src := &fakeBoxScoreSource{lines: map[string][]models.PlayerLine{
		"0022200044": {
			playerLine("0022200044", 203999, "C", 25, 12, 9),
			playerLine("0022200044", 1627750, "G", 18, 4, 6),
		},
	}}

	games := gamesFrame([]models.TeamGame{
		teamGame("0022200044", "2022-10-26", "22022", "W", 110, 44, 28),
	}, 0)

	e := NewEnricher(src, nil, testRoster)
	out, err := e.Enrich(context.Background(), games)
	require.NoError(t, err)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, 25, out.Int(0, "JOKIC_PTS"))
	assert.Equal(t, 12, out.Int(0, "JOKIC_REB"))
	assert.Equal(t, 9, out.Int(0, "JOKIC_AST"))
	assert.Equal(t, 1, out.Int(0, "JOKIC_STARTER"))
	assert.Equal(t, 18, out.Int(0, "MURRAY_PTS"))
	assert.Equal(t, 1, out.Int(0, "MURRAY_STARTER"))
}

func TestEnrich_ZeroFillsAbsentPlayer(t *testing.T) {
	src := &fakeBoxScoreSource{lines: map[string][]models.PlayerLine{
		"0022200044": {
			playerLine("0022200044", 203999, "C", 25, 12, 9),
			// Murray out injured
		},
	}}

	games := gamesFrame([]models.TeamGame{
		teamGame("0022200044", "2022-10-26", "22022", "W", 110, 44, 28),
	}, 0)

	out, err := NewEnricher(src, nil, testRoster).Enrich(context.Background(), games)
	require.NoError(t, err)

	assert.Equal(t, 25, out.Int(0, "JOKIC_PTS"))
	assert.Equal(t, 0, out.Int(0, "MURRAY_PTS"))
	assert.Equal(t, 0, out.Int(0, "MURRAY_REB"))
	assert.Equal(t, 0, out.Int(0, "MURRAY_AST"))
	assert.Equal(t, 0, out.Int(0, "MURRAY_STARTER"))
}

func TestEnrich_BenchPlayerIsNotStarter(t *testing.T) {
	src := &fakeBoxScoreSource{lines: map[string][]models.PlayerLine{
		"0022200044": {
			playerLine("0022200044", 203999, "C", 25, 12, 9),
			playerLine("0022200044", 1627750, "", 14, 3, 5),
		},
	}}

	games := gamesFrame([]models.TeamGame{
		teamGame("0022200044", "2022-10-26", "22022", "W", 110, 44, 28),
	}, 0)

	out, err := NewEnricher(src, nil, testRoster).Enrich(context.Background(), games)
	require.NoError(t, err)

	assert.Equal(t, 14, out.Int(0, "MURRAY_PTS"))
	assert.Equal(t, 0, out.Int(0, "MURRAY_STARTER"))
}

func TestEnrich_PreservesRowOrderAndCount(t *testing.T) {
	src := &fakeBoxScoreSource{lines: map[string][]models.PlayerLine{}}

	games := gamesFrame([]models.TeamGame{
		teamGame("0022200044", "2022-10-26", "22022", "W", 110, 44, 28),
		teamGame("0022200012", "2022-10-19", "22022", "L", 102, 39, 22),
		teamGame("0022200061", "2022-10-28", "22022", "W", 119, 43, 29),
	}, 0)

	out, err := NewEnricher(src, nil, testRoster).Enrich(context.Background(), games)
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, "0022200044", out.String(0, "GAME_ID"))
	assert.Equal(t, "0022200012", out.String(1, "GAME_ID"))
	assert.Equal(t, "0022200061", out.String(2, "GAME_ID"))
}

func TestEnrich_ReadsThroughCache(t *testing.T) {
	src := &fakeBoxScoreSource{lines: map[string][]models.PlayerLine{
		"0022200044": {playerLine("0022200044", 203999, "C", 25, 12, 9)},
	}}
	cache := newFakeBoxScoreCache()
	e := NewEnricher(src, cache, testRoster)

	games := gamesFrame([]models.TeamGame{
		teamGame("0022200044", "2022-10-26", "22022", "W", 110, 44, 28),
	}, 0)
	_, err := e.Enrich(context.Background(), games)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	// Second pass over the same game is served from the cache
	again := gamesFrame([]models.TeamGame{
		teamGame("0022200044", "2022-10-26", "22022", "W", 110, 44, 28),
	}, 0)
	_, err = e.Enrich(context.Background(), again)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestResiduals(t *testing.T) {
	src := &fakeBoxScoreSource{lines: map[string][]models.PlayerLine{
		"0022200044": {
			playerLine("0022200044", 203999, "C", 25, 12, 9),
			playerLine("0022200044", 1627750, "G", 18, 4, 6),
		},
	}}

	games := gamesFrame([]models.TeamGame{
		teamGame("0022200044", "2022-10-26", "22022", "W", 110, 44, 28),
	}, 0)

	enriched, err := NewEnricher(src, nil, testRoster).Enrich(context.Background(), games)
	require.NoError(t, err)
	out := Residuals(enriched)

	assert.Equal(t, 110-25-18, out.Int(0, "REST_PTS"))
	assert.Equal(t, 44-12-4, out.Int(0, "REST_REB"))
	assert.Equal(t, 28-9-6, out.Int(0, "REST_AST"))

	// Residual plus the tracked columns always reconstructs the team total
	total := out.Int(0, "REST_PTS") + out.Int(0, "JOKIC_PTS") + out.Int(0, "MURRAY_PTS")
	assert.Equal(t, out.Int(0, "PTS"), total)
}

func TestResiduals_ZeroesNullPlayerStats(t *testing.T) {
	games := gamesFrame([]models.TeamGame{
		teamGame("0022200044", "2022-10-26", "22022", "W", 110, 44, 28),
	}, 0)
	games.AddColumn("JOKIC_PTS")
	games.AddColumn("JOKIC_REB")
	games.AddColumn("JOKIC_AST")
	games.AddColumn("JOKIC_STARTER")

	out := Residuals(games)

	assert.Equal(t, 0, out.Int(0, "JOKIC_PTS"))
	assert.Equal(t, 110, out.Int(0, "REST_PTS"))
	assert.Equal(t, 44, out.Int(0, "REST_REB"))
}
