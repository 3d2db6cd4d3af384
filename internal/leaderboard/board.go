package leaderboard

import (
	"context"
	"fmt"

	"github.com/tanisingh134/carbon/internal/database"
)

// Standing is one row of the leaderboard; lower scores rank higher
type Standing struct {
	UserID string  `json:"-"`
	Email  string  `json:"email"`
	Score  float64 `json:"score"`
}

// Board produces the current leaderboard, lowest footprint first
type Board interface {
	Standings(ctx context.Context) ([]Standing, error)
}

// Directory resolves user IDs to emails
type Directory interface {
	EmailsByID(ctx context.Context, ids []string) (map[string]string, error)
}

// TotalsSource sums footprints in the primary store
type TotalsSource interface {
	CarbonTotals(ctx context.Context) ([]database.UserTotal, error)
}

// SQLBoard computes standings straight from the activity store.
// It is used when the Kafka to Redis pipeline is not configured.
type SQLBoard struct {
	totals TotalsSource
}

func NewSQLBoard(totals TotalsSource) *SQLBoard {
	return &SQLBoard{totals: totals}
}

func (b *SQLBoard) Standings(ctx context.Context) ([]Standing, error) {
	totals, err := b.totals.CarbonTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load carbon totals: %w", err)
	}

	standings := make([]Standing, 0, len(totals))
	for _, t := range totals {
		standings = append(standings, Standing{UserID: t.UserID, Email: t.Email, Score: t.Score})
	}
	return standings, nil
}

// RankedBoard reads scores kept in Redis and joins them with user emails
type RankedBoard struct {
	scores    ScoreReader
	directory Directory
}

// ScoreReader lists user scores in ascending order
type ScoreReader interface {
	Scores(ctx context.Context) ([]UserScore, error)
}

func NewRankedBoard(scores ScoreReader, directory Directory) *RankedBoard {
	return &RankedBoard{scores: scores, directory: directory}
}

// Standings keeps the score order; users missing from the directory are dropped
func (b *RankedBoard) Standings(ctx context.Context) ([]Standing, error) {
	scores, err := b.scores.Scores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	if len(scores) == 0 {
		return []Standing{}, nil
	}

	ids := make([]string, len(scores))
	for i, s := range scores {
		ids[i] = s.UserID
	}

	emails, err := b.directory.EmailsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve emails: %w", err)
	}

	standings := make([]Standing, 0, len(scores))
	for _, s := range scores {
		email, ok := emails[s.UserID]
		if !ok {
			continue
		}
		standings = append(standings, Standing{UserID: s.UserID, Email: email, Score: s.Score})
	}
	return standings, nil
}
