package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tanisingh134/carbon/internal/protocol"
)

const (
	scoresKey        = "leaderboard:carbon"
	appliedKeyPrefix = "leaderboard:applied:"
	appliedTTL       = 7 * 24 * time.Hour
)

// applyScript marks the activity as applied and bumps the user's score in one step.
// KEYS[1] applied marker, KEYS[2] sorted set; ARGV carbon, user ID, marker TTL seconds.
var applyScript = redis.NewScript(`
if redis.call('SET', KEYS[1], '1', 'NX', 'EX', ARGV[3]) then
	redis.call('ZINCRBY', KEYS[2], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// UserScore is a user's running footprint total
type UserScore struct {
	UserID string
	Score  float64
}

// RedisBoard keeps running totals in a sorted set
type RedisBoard struct {
	client *redis.Client
}

func NewRedisBoard(client *redis.Client) *RedisBoard {
	return &RedisBoard{client: client}
}

// Apply adds each event's carbon to its user's total. Events already applied are
// ignored, so redelivered Kafka messages do not double count.
func (b *RedisBoard) Apply(ctx context.Context, events []protocol.ActivityRecorded) (int, error) {
	applied := 0
	ttl := strconv.Itoa(int(appliedTTL.Seconds()))

	for _, e := range events {
		keys := []string{appliedKeyPrefix + e.ActivityID, scoresKey}
		res, err := applyScript.Run(ctx, b.client, keys, e.Carbon, e.UserID, ttl).Int()
		if err != nil {
			return applied, fmt.Errorf("failed to apply activity %s: %w", e.ActivityID, err)
		}
		applied += res
	}

	return applied, nil
}

// Scores returns all totals, lowest first
func (b *RedisBoard) Scores(ctx context.Context) ([]UserScore, error) {
	members, err := b.client.ZRangeWithScores(ctx, scoresKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	scores := make([]UserScore, 0, len(members))
	for _, m := range members {
		userID, ok := m.Member.(string)
		if !ok {
			continue
		}
		scores = append(scores, UserScore{UserID: userID, Score: m.Score})
	}
	return scores, nil
}
