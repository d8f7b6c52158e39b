package pipeline

import (
	"context"
	"testing"

	"nbasync/featurepipe/internal/frame"
	"nbasync/featurepipe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// finalizeFixture builds an enriched two game frame with residuals filled,
// one loss where Murray sat out and one win with both tracked players.
func finalizeFixture(t *testing.T) *frame.Frame {
	t.Helper()

	src := &fakeBoxScoreSource{lines: map[string][]models.PlayerLine{
		"0022200044": {
			playerLine("0022200044", 203999, "C", 25, 12, 9),
			playerLine("0022200044", 1627750, "G", 18, 4, 6),
		},
		"0022200012": {
			playerLine("0022200012", 203999, "C", 30, 10, 7),
		},
	}}

	games := gamesFrame([]models.TeamGame{
		teamGame("0022200012", "2022-10-19", "22022", "L", 102, 39, 22),
		teamGame("0022200044", "2022-10-26", "22022", "W", 110, 44, 28),
	}, 0)

	enriched, err := NewEnricher(src, nil, testRoster).Enrich(context.Background(), games)
	require.NoError(t, err)
	return Residuals(enriched)
}

func TestFinalize_DerivesWinFlag(t *testing.T) {
	out := Finalize(finalizeFixture(t))

	assert.Equal(t, 0, out.Int(0, "win"))
	assert.Equal(t, 1, out.Int(1, "win"))
}

func TestFinalize_ProjectsCanonicalSchema(t *testing.T) {
	out := Finalize(finalizeFixture(t))

	want := []string{
		"jokic_pts", "jokic_reb", "jokic_ast", "jokic_starter",
		"murray_pts", "murray_reb", "murray_ast", "murray_starter",
		"rest_pts", "rest_reb", "rest_ast",
		"game_id", "game_date", "season_id", "playoffs", "win",
	}
	assert.Equal(t, want, out.Columns())

	// Raw source columns do not survive
	assert.False(t, out.HasColumn("WL"))
	assert.False(t, out.HasColumn("MATCHUP"))
	assert.False(t, out.HasColumn("PTS"))
}

func TestFinalize_Idempotent(t *testing.T) {
	once := Finalize(finalizeFixture(t))
	twice := Finalize(once)

	assert.Equal(t, once.Columns(), twice.Columns())
	require.Equal(t, once.Len(), twice.Len())
	for i := 0; i < once.Len(); i++ {
		for _, col := range once.Columns() {
			assert.Equal(t, once.Value(i, col), twice.Value(i, col), "row %d col %s", i, col)
		}
	}
}

func TestFinalize_ValuesCarriedThrough(t *testing.T) {
	out := Finalize(finalizeFixture(t))

	require.Equal(t, 2, out.Len())
	assert.Equal(t, "0022200012", out.String(0, "game_id"))
	assert.Equal(t, 30, out.Int(0, "jokic_pts"))
	assert.Equal(t, 0, out.Int(0, "murray_pts"))
	assert.Equal(t, 102-30, out.Int(0, "rest_pts"))
	assert.Equal(t, "22022", out.String(0, "season_id"))
	assert.Equal(t, 0, out.Int(0, "playoffs"))
}
