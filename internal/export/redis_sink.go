package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"suffixrank/internal/domain"
)

// RedisSink mirrors the score set into a single Redis hash (tld -> score).
type RedisSink struct {
	client redis.Cmdable
	key    string
}

func NewRedisSink(client redis.Cmdable, key string) *RedisSink {
	return &RedisSink{client: client, key: key}
}

// WriteScores replaces the hash in one MULTI/EXEC so readers never see a partial set.
func (s *RedisSink) WriteScores(ctx context.Context, scores []domain.AbuseScore) error {
	if s.client == nil {
		return errors.New("redis sink: nil client")
	}
	if s.key == "" {
		return errors.New("redis sink: empty key")
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(scores) > 0 {
			pipe.HSet(ctx, s.key, hashValues(scores)...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis sink: replace %s: %w", s.key, err)
	}

	log.Info("Abuse scores mirrored to redis", "key", s.key, "tlds", len(scores))
	return nil
}

func hashValues(scores []domain.AbuseScore) []any {
	values := make([]any, 0, len(scores)*2)
	for _, s := range scores {
		values = append(values, s.Key, FormatScore(s.Score))
	}
	return values
}
