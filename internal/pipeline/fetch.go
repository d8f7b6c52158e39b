package pipeline

import (
	"context"
	"fmt"
	"time"

	"nbasync/featurepipe/internal/client"
	"nbasync/featurepipe/internal/frame"
	"nbasync/featurepipe/internal/models"

	"github.com/rs/zerolog/log"
)

// GameSource is the slice of the stats client the fetcher needs.
type GameSource interface {
	LeagueGameFinder(ctx context.Context, q client.GameQuery) ([]models.TeamGame, error)
}

// Fetcher pulls per-team game rows from the stats source and shapes them
// into the wide feature frame.
type Fetcher struct {
	src         GameSource
	seasonDelay time.Duration
}

// NewFetcher creates a fetcher. seasonDelay is inserted between season
// iterations during a bulk historical pull to stay under the source's
// informal rate limits.
func NewFetcher(src GameSource, seasonDelay time.Duration) *Fetcher {
	return &Fetcher{src: src, seasonDelay: seasonDelay}
}

// seasonString formats a season year the way the stats source expects,
// e.g. 2022 -> "2022-23".
func seasonString(year int) string {
	next := fmt.Sprintf("%d", year+1)
	return fmt.Sprintf("%d-%s", year, next[len(next)-2:])
}

// gamesFrame converts game rows into frame rows tagged with the playoff
// flag. Column names match the source's field names; enrichment and
// finalization key off them.
func gamesFrame(games []models.TeamGame, playoffs int) *frame.Frame {
	f := frame.New("SEASON_ID", "GAME_ID", "GAME_DATE", "MATCHUP", "WL", "PTS", "REB", "AST", "PLAYOFFS")
	for _, g := range games {
		f.Append(map[string]any{
			"SEASON_ID": g.SeasonID,
			"GAME_ID":   g.GameID,
			"GAME_DATE": g.GameDate,
			"MATCHUP":   g.Matchup,
			"WL":        g.WL,
			"PTS":       g.PTS,
			"REB":       g.REB,
			"AST":       g.AST,
			"PLAYOFFS":  playoffs,
		})
	}
	return f
}

// FetchSeasonRange pulls regular season and playoff games for every season
// year in [seasonStart, seasonEnd], tags them, and returns them sorted
// ascending by game date.
func (f *Fetcher) FetchSeasonRange(ctx context.Context, teamID, seasonStart, seasonEnd int) (*frame.Frame, error) {
	var parts []*frame.Frame

	for year := seasonStart; year <= seasonEnd; year++ {
		season := seasonString(year)

		regular, err := f.src.LeagueGameFinder(ctx, client.GameQuery{
			TeamID:     teamID,
			Season:     season,
			SeasonType: client.SeasonTypeRegular,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s regular season games: %w", season, err)
		}

		playoffs, err := f.src.LeagueGameFinder(ctx, client.GameQuery{
			TeamID:     teamID,
			Season:     season,
			SeasonType: client.SeasonTypePlayoffs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s playoff games: %w", season, err)
		}

		log.Info().
			Str("season", season).
			Int("regular", len(regular)).
			Int("playoffs", len(playoffs)).
			Msg("Season games fetched")

		parts = append(parts, gamesFrame(regular, 0), gamesFrame(playoffs, 1))

		if year < seasonEnd && f.seasonDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.seasonDelay):
			}
		}
	}

	out := frame.Concat(parts...)
	out.SortBy("GAME_DATE")
	return out, nil
}

// FetchDateRange pulls games of one season type inside a date window
// (YYYY-MM-DD bounds, dateTo may be empty for "up to now"). Summer league
// games leak into the source's date-filtered results; they are played in
// July and are dropped before tagging.
func (f *Fetcher) FetchDateRange(ctx context.Context, teamID int, dateFrom, dateTo string, seasonType client.SeasonType) (*frame.Frame, error) {
	from, err := apiDate(dateFrom)
	if err != nil {
		return nil, err
	}
	to := ""
	if dateTo != "" {
		if to, err = apiDate(dateTo); err != nil {
			return nil, err
		}
	}

	games, err := f.src.LeagueGameFinder(ctx, client.GameQuery{
		TeamID:     teamID,
		SeasonType: seasonType,
		DateFrom:   from,
		DateTo:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch games from %s: %w", dateFrom, err)
	}

	kept := games[:0:0]
	for _, g := range games {
		if len(g.GameDate) >= 7 && g.GameDate[5:7] == "07" {
			log.Debug().Str("game_id", g.GameID).Str("game_date", g.GameDate).Msg("Dropping summer league game")
			continue
		}
		kept = append(kept, g)
	}

	playoffs := 0
	if seasonType == client.SeasonTypePlayoffs {
		playoffs = 1
	}
	return gamesFrame(kept, playoffs), nil
}
