package pipeline

import (
	"context"
	"fmt"
	"strings"

	"nbasync/featurepipe/internal/frame"
	"nbasync/featurepipe/internal/models"

	"github.com/rs/zerolog/log"
)

// BoxScoreSource is the slice of the stats client the enricher needs.
type BoxScoreSource interface {
	BoxScoreTraditional(ctx context.Context, gameID string) ([]models.PlayerLine, error)
}

// BoxScoreCache is an optional read-through cache for box score lookups.
type BoxScoreCache interface {
	GetPlayerLines(ctx context.Context, gameID string) ([]models.PlayerLine, bool)
	SetPlayerLines(ctx context.Context, gameID string, lines []models.PlayerLine)
}

// statSuffixes are the per-player column suffixes. Residual computation and
// finalization discover tracked-player columns by these suffixes, so the
// surname-based namespacing is part of the table's contract.
var statSuffixes = []string{"_PTS", "_REB", "_AST", "_STARTER"}

// Enricher widens a games frame with per-game stat blocks for each tracked
// roster player, one box score lookup per game.
type Enricher struct {
	src    BoxScoreSource
	cache  BoxScoreCache // may be nil
	roster []models.TrackedPlayer
}

// NewEnricher creates an enricher for a fixed tracked roster. cache may be
// nil; lookups then always go to the source.
func NewEnricher(src BoxScoreSource, cache BoxScoreCache, roster []models.TrackedPlayer) *Enricher {
	return &Enricher{src: src, cache: cache, roster: roster}
}

func (e *Enricher) playerLines(ctx context.Context, gameID string) ([]models.PlayerLine, error) {
	if e.cache != nil {
		if lines, ok := e.cache.GetPlayerLines(ctx, gameID); ok {
			return lines, nil
		}
	}

	lines, err := e.src.BoxScoreTraditional(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.SetPlayerLines(ctx, gameID, lines)
	}
	return lines, nil
}

// Enrich appends <SURNAME>_PTS/_REB/_AST/_STARTER columns for every tracked
// player to every game row, in the input's row order. A player missing from
// a game's box score gets zeros across his block. Row count and order are
// preserved.
func (e *Enricher) Enrich(ctx context.Context, games *frame.Frame) (*frame.Frame, error) {
	for _, p := range e.roster {
		for _, suffix := range statSuffixes {
			games.AddColumn(p.Surname + suffix)
		}
	}

	for i := 0; i < games.Len(); i++ {
		gameID := games.String(i, "GAME_ID")

		lines, err := e.playerLines(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("failed to enrich game %s: %w", gameID, err)
		}

		byID := make(map[int]models.PlayerLine, len(lines))
		for _, l := range lines {
			byID[l.PlayerID] = l
		}

		for _, p := range e.roster {
			line, played := byID[p.ID]
			if !played {
				games.Set(i, p.Surname+"_PTS", 0)
				games.Set(i, p.Surname+"_REB", 0)
				games.Set(i, p.Surname+"_AST", 0)
				games.Set(i, p.Surname+"_STARTER", 0)
				continue
			}

			starter := 0
			if line.Starter() {
				starter = 1
			}
			games.Set(i, p.Surname+"_PTS", line.PTS)
			games.Set(i, p.Surname+"_REB", line.REB)
			games.Set(i, p.Surname+"_AST", line.AST)
			games.Set(i, p.Surname+"_STARTER", starter)
		}
	}

	log.Info().
		Int("games", games.Len()).
		Int("roster", len(e.roster)).
		Msg("Box scores appended")

	return games, nil
}

// Residuals fills the REST_PTS/REST_REB/REST_AST columns: the team total
// minus the sum over all tracked-player columns of the matching suffix.
// Null player stats are zeroed first; the computation requires every
// tracked-player block to exist already.
func Residuals(games *frame.Frame) *frame.Frame {
	for _, col := range games.Columns() {
		if !hasStatSuffix(col) {
			continue
		}
		for i := 0; i < games.Len(); i++ {
			if games.Value(i, col) == nil {
				games.Set(i, col, 0)
			}
		}
	}

	for _, stat := range []string{"PTS", "REB", "AST"} {
		suffix := "_" + stat
		var tracked []string
		for _, col := range games.Columns() {
			if strings.HasSuffix(col, suffix) {
				tracked = append(tracked, col)
			}
		}

		rest := "REST_" + stat
		games.AddColumn(rest)
		for i := 0; i < games.Len(); i++ {
			sum := 0
			for _, col := range tracked {
				sum += games.Int(i, col)
			}
			games.Set(i, rest, games.Int(i, stat)-sum)
		}
	}

	return games
}

func hasStatSuffix(col string) bool {
	for _, suffix := range statSuffixes {
		if strings.HasSuffix(col, suffix) {
			return true
		}
	}
	return false
}
