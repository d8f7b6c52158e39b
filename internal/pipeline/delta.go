package pipeline

import (
	"context"
	"fmt"
	"time"

	"nbasync/featurepipe/internal/client"
	"nbasync/featurepipe/internal/frame"
	"nbasync/featurepipe/internal/metrics"

	"github.com/rs/zerolog/log"
)

// SyncRecent appends games played since the most recent persisted game
// date. The cursor is the store's max game date advanced by one day; both
// season types are fetched from there up to now. An empty fetch on both is
// the off-season case and results in no write. Returns the number of rows
// appended.
func (o *Orchestrator) SyncRecent(ctx context.Context) (int, error) {
	start := time.Now()

	stored, err := o.store.Read(ctx)
	if err != nil {
		// A group that does not exist yet has no cursor to advance; delta
		// sync needs a seeded store.
		metrics.RecordSync("delta", "error", time.Since(start).Seconds())
		return 0, fmt.Errorf("failed to read feature group: %w", err)
	}
	if stored.Len() == 0 {
		metrics.RecordSync("delta", "error", time.Since(start).Seconds())
		return 0, fmt.Errorf("feature group is empty, run a historical sync first")
	}

	maxDate := ""
	for i := 0; i < stored.Len(); i++ {
		if d := stored.String(i, "game_date"); d > maxDate {
			maxDate = d
		}
	}

	dateFrom, err := AdvanceDay(maxDate)
	if err != nil {
		metrics.RecordSync("delta", "error", time.Since(start).Seconds())
		return 0, err
	}

	log.Info().
		Str("cursor", dateFrom).
		Msg("Fetching games since last persisted date")

	regular, err := o.fetcher.FetchDateRange(ctx, o.teamID, dateFrom, "", client.SeasonTypeRegular)
	if err != nil {
		metrics.RecordSync("delta", "error", time.Since(start).Seconds())
		return 0, err
	}

	playoffs, err := o.fetcher.FetchDateRange(ctx, o.teamID, dateFrom, "", client.SeasonTypePlayoffs)
	if err != nil {
		metrics.RecordSync("delta", "error", time.Since(start).Seconds())
		return 0, err
	}

	games := frame.Concat(regular, playoffs)
	if games.Len() == 0 {
		log.Info().Str("cursor", dateFrom).Msg("No recent games to sync")
		metrics.RecordSync("delta", "noop", time.Since(start).Seconds())
		return 0, nil
	}

	enriched, err := o.enricher.Enrich(ctx, games)
	if err != nil {
		metrics.RecordSync("delta", "error", time.Since(start).Seconds())
		return 0, err
	}

	fresh := Finalize(Residuals(enriched))

	if err := o.store.Insert(ctx, fresh); err != nil {
		metrics.RecordSync("delta", "error", time.Since(start).Seconds())
		return 0, err
	}

	log.Info().
		Int("rows", fresh.Len()).
		Dur("duration", time.Since(start)).
		Msg("Delta sync complete")
	metrics.RecordSync("delta", "success", time.Since(start).Seconds())

	return fresh.Len(), nil
}
