package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nbasync/featurepipe/internal/metrics"
	"nbasync/featurepipe/internal/models"

	"github.com/rs/zerolog/log"
)

// SeasonType selects the league game finder result population.
type SeasonType string

const (
	SeasonTypeRegular  SeasonType = "Regular Season"
	SeasonTypePlayoffs SeasonType = "Playoffs"
)

// Client is the stats.nba.com API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a new stats.nba.com API client.
// The endpoint is informally rate limited, so concurrent requests are
// capped low and retryable statuses back off exponentially.
func NewClient(baseURL string, timeout time.Duration) *Client {
	rateLimiter := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		baseURL:     baseURL,
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get performs a GET request to the stats API with retry logic and rate limiting
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		// Rate limiting: acquire semaphore
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.rateLimiter:
			defer func() { c.rateLimiter <- struct{}{} }()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		// stats.nba.com rejects requests without browser-ish headers
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Referer", "https://www.nba.com/")
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

		if len(params) > 0 {
			q := req.URL.Query()
			for key, value := range params {
				q.Add(key, value)
			}
			req.URL.RawQuery = q.Encode()
		}

		log.Debug().
			Str("url", url).
			Str("method", req.Method).
			Int("attempt", attempt+1).
			Msg("Making API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("API request failed: %w", err)
			// Retry on network errors
			if attempt < c.maxRetries {
				continue
			}
			metrics.RecordAPICall(path, "error", time.Since(start).Seconds())
			return nil, lastErr
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			if attempt < c.maxRetries {
				continue
			}
			metrics.RecordAPICall(path, "error", time.Since(start).Seconds())
			return nil, lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			log.Debug().
				Str("url", url).
				Int("status", resp.StatusCode).
				Int("size", len(body)).
				Msg("API request successful")
			metrics.RecordAPICall(path, "success", time.Since(start).Seconds())
			return body, nil

		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Retryable errors
			lastErr = fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, string(body))
			if attempt < c.maxRetries {
				log.Warn().
					Str("url", url).
					Int("status", resp.StatusCode).
					Int("attempt", attempt+1).
					Msg("Received retryable error, will retry")
				continue
			}
			metrics.RecordAPICall(path, "throttled", time.Since(start).Seconds())
			return nil, lastErr

		default:
			// Other errors - don't retry
			metrics.RecordAPICall(path, "error", time.Since(start).Seconds())
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
	}

	metrics.RecordAPICall(path, "error", time.Since(start).Seconds())
	return nil, lastErr
}

// resultSet is the tabular payload shape every stats endpoint returns:
// column headers plus positional row values.
type resultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

type statsEnvelope struct {
	Resource   string      `json:"resource"`
	ResultSets []resultSet `json:"resultSets"`
}

// findResultSet returns the named result set, or the first one when no
// match exists (older endpoints omit names).
func (e *statsEnvelope) findResultSet(name string) (*resultSet, error) {
	for i := range e.ResultSets {
		if e.ResultSets[i].Name == name {
			return &e.ResultSets[i], nil
		}
	}
	if len(e.ResultSets) > 0 {
		return &e.ResultSets[0], nil
	}
	return nil, fmt.Errorf("response contains no result sets")
}

// index maps header names to row positions.
func (rs *resultSet) index() map[string]int {
	idx := make(map[string]int, len(rs.Headers))
	for i, h := range rs.Headers {
		idx[h] = i
	}
	return idx
}

func cellString(row []any, idx map[string]int, header string) string {
	i, ok := idx[header]
	if !ok || i >= len(row) {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return ""
}

func cellInt(row []any, idx map[string]int, header string) int {
	i, ok := idx[header]
	if !ok || i >= len(row) {
		return 0
	}
	if f, ok := row[i].(float64); ok {
		return int(f)
	}
	return 0
}

// GameQuery holds the league game finder filters. Zero-valued fields are
// sent as empty parameters, which the API treats as unset.
type GameQuery struct {
	TeamID     int
	Season     string // YYYY-YY, e.g. "2023-24"
	SeasonType SeasonType
	DateFrom   string // MM/DD/YYYY
	DateTo     string // MM/DD/YYYY
}

// LeagueGameFinder fetches per-team game rows matching the query.
func (c *Client) LeagueGameFinder(ctx context.Context, q GameQuery) ([]models.TeamGame, error) {
	params := map[string]string{
		"PlayerOrTeam": "T",
		"LeagueID":     "00",
		"TeamID":       fmt.Sprintf("%d", q.TeamID),
		"Season":       q.Season,
		"SeasonType":   string(q.SeasonType),
		"DateFrom":     q.DateFrom,
		"DateTo":       q.DateTo,
	}

	body, err := c.get(ctx, "leaguegamefinder", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch games: %w", err)
	}

	var envelope statsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal games: %w", err)
	}

	rs, err := envelope.findResultSet("LeagueGameFinderResults")
	if err != nil {
		return nil, fmt.Errorf("failed to parse games: %w", err)
	}

	idx := rs.index()
	games := make([]models.TeamGame, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		games = append(games, models.TeamGame{
			SeasonID: cellString(row, idx, "SEASON_ID"),
			TeamID:   cellInt(row, idx, "TEAM_ID"),
			GameID:   cellString(row, idx, "GAME_ID"),
			GameDate: cellString(row, idx, "GAME_DATE"),
			Matchup:  cellString(row, idx, "MATCHUP"),
			WL:       cellString(row, idx, "WL"),
			PTS:      cellInt(row, idx, "PTS"),
			REB:      cellInt(row, idx, "REB"),
			AST:      cellInt(row, idx, "AST"),
		})
	}
	return games, nil
}

// BoxScoreTraditional fetches the per-player lines of a game's traditional
// box score.
func (c *Client) BoxScoreTraditional(ctx context.Context, gameID string) ([]models.PlayerLine, error) {
	params := map[string]string{
		"GameID":      gameID,
		"StartPeriod": "0",
		"EndPeriod":   "10",
		"StartRange":  "0",
		"EndRange":    "28800",
		"RangeType":   "0",
	}

	body, err := c.get(ctx, "boxscoretraditionalv2", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch box score for game %s: %w", gameID, err)
	}

	var envelope statsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal box score: %w", err)
	}

	rs, err := envelope.findResultSet("PlayerStats")
	if err != nil {
		return nil, fmt.Errorf("failed to parse box score: %w", err)
	}

	idx := rs.index()
	lines := make([]models.PlayerLine, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		lines = append(lines, models.PlayerLine{
			GameID:        cellString(row, idx, "GAME_ID"),
			TeamID:        cellInt(row, idx, "TEAM_ID"),
			PlayerID:      cellInt(row, idx, "PLAYER_ID"),
			PlayerName:    cellString(row, idx, "PLAYER_NAME"),
			StartPosition: cellString(row, idx, "START_POSITION"),
			PTS:           cellInt(row, idx, "PTS"),
			REB:           cellInt(row, idx, "REB"),
			AST:           cellInt(row, idx, "AST"),
		})
	}
	return lines, nil
}
