package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"nbasync/featurepipe/internal/featurestore"
	"nbasync/featurepipe/internal/frame"
	"nbasync/featurepipe/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	Read(ctx context.Context) (*frame.Frame, error)
	Insert(ctx context.Context, f *frame.Frame) error
}

// Orchestrator reconciles the feature group against a requested season
// window, fetching and appending only what is missing. It holds no state
// across invocations; the store is the only durable state and is re-read
// from scratch every run.
type Orchestrator struct {
	fetcher  *Fetcher
	enricher *Enricher
	store    Store
	teamID   int
}

// NewOrchestrator creates an orchestrator for one team's feature group.
func NewOrchestrator(fetcher *Fetcher, enricher *Enricher, store Store, teamID int) *Orchestrator {
	return &Orchestrator{
		fetcher:  fetcher,
		enricher: enricher,
		store:    store,
		teamID:   teamID,
	}
}

// seasonWindow filters a finalized frame to season years inside
// [seasonStart, seasonEnd] and sorts it by game date.
func seasonWindow(f *frame.Frame, seasonStart, seasonEnd int) *frame.Frame {
	lo := strconv.Itoa(seasonStart)
	hi := strconv.Itoa(seasonEnd)
	out := f.Filter(func(i int) bool {
		sid := f.String(i, "season_id")
		if len(sid) < 2 {
			return false
		}
		year := sid[1:]
		return year >= lo && year <= hi
	})
	out.SortBy("game_date")
	return out
}

// presentSeasons returns the set of season years a finalized frame holds.
func presentSeasons(f *frame.Frame) map[string]bool {
	present := make(map[string]bool)
	for i := 0; i < f.Len(); i++ {
		sid := f.String(i, "season_id")
		if len(sid) >= 2 {
			present[sid[1:]] = true
		}
	}
	return present
}

// dedupeByGameID drops rows whose game_id already appeared in an earlier
// row. Earlier frames win, so persisted rows shadow re-fetched ones.
func dedupeByGameID(f *frame.Frame) *frame.Frame {
	seen := make(map[string]bool, f.Len())
	return f.Filter(func(i int) bool {
		id := f.String(i, "game_id")
		if seen[id] {
			return false
		}
		seen[id] = true
		return true
	})
}

// Sync ensures every season in [seasonStart, seasonEnd] is present in the
// feature group and returns the full finalized table for that window.
// Seasons already persisted are served from the store without touching the
// stats source; missing seasons are fetched as one min..max span, enriched,
// finalized and appended. A feature group that does not exist yet makes
// every requested season missing and skips the union with persisted rows.
func (o *Orchestrator) Sync(ctx context.Context, seasonStart, seasonEnd int) (*frame.Frame, error) {
	start := time.Now()

	stored, err := o.store.Read(ctx)
	firstRun := false
	if err != nil {
		if !errors.Is(err, featurestore.ErrGroupNotFound) {
			metrics.RecordSync("historical", "error", time.Since(start).Seconds())
			return nil, fmt.Errorf("failed to read feature group: %w", err)
		}
		firstRun = true
		log.Info().Msg("Feature group not found, treating all requested seasons as missing")
	}

	var window *frame.Frame
	present := make(map[string]bool)
	if !firstRun {
		window = seasonWindow(stored, seasonStart, seasonEnd)
		present = presentSeasons(window)
	}

	var missing []int
	for year := seasonStart; year <= seasonEnd; year++ {
		if !present[strconv.Itoa(year)] {
			missing = append(missing, year)
		}
	}

	if len(missing) == 0 {
		log.Info().
			Int("season_start", seasonStart).
			Int("season_end", seasonEnd).
			Int("rows", window.Len()).
			Msg("All requested seasons present in feature group")
		metrics.RecordSync("historical", "success", time.Since(start).Seconds())
		return window, nil
	}

	// The fetch spans min..max of the missing seasons. A non-contiguous
	// missing set re-fetches the present seasons in between; their rows are
	// dropped again by the game_id uniqueness rule on insert and by the
	// union below.
	lo, hi := missing[0], missing[len(missing)-1]
	log.Info().
		Ints("missing_seasons", missing).
		Int("fetch_start", lo).
		Int("fetch_end", hi).
		Msg("Fetching missing seasons")

	games, err := o.fetcher.FetchSeasonRange(ctx, o.teamID, lo, hi)
	if err != nil {
		metrics.RecordSync("historical", "error", time.Since(start).Seconds())
		return nil, err
	}

	enriched, err := o.enricher.Enrich(ctx, games)
	if err != nil {
		metrics.RecordSync("historical", "error", time.Since(start).Seconds())
		return nil, err
	}

	fresh := Finalize(Residuals(enriched))

	if err := o.store.Insert(ctx, fresh); err != nil {
		metrics.RecordSync("historical", "error", time.Since(start).Seconds())
		return nil, err
	}

	log.Info().
		Int("rows", fresh.Len()).
		Dur("duration", time.Since(start)).
		Msg("Historical sync complete")
	metrics.RecordSync("historical", "success", time.Since(start).Seconds())

	if firstRun {
		return fresh, nil
	}
	merged := dedupeByGameID(frame.Concat(window, fresh))
	merged.SortBy("game_date")
	return merged, nil
}
