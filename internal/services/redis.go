package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coinflip-backend/internal/config"
	"coinflip-backend/internal/models"
)

// RedisService backs bet rate limiting and the per-session round history.
type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) CheckRateLimit(ctx context.Context, clientID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, clientID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, clientID, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, clientID, action)).Err()
}

func (s *RedisService) SaveRound(ctx context.Context, round *models.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	listKey := fmt.Sprintf(KeyClientRounds, round.ClientID)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(KeyRound, round.ID), data, TTLRound)
	pipe.ZAdd(ctx, listKey, redis.Z{
		Score:  float64(round.CreatedAt.UnixNano()),
		Member: round.ID,
	})
	// Keep only the most recent rounds
	pipe.ZRemRangeByRank(ctx, listKey, 0, -(MaxRoundHistory + 1))
	pipe.Expire(ctx, listKey, TTLRound)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save round: %w", err)
	}
	return nil
}

func (s *RedisService) GetRounds(ctx context.Context, clientID string, limit int64) ([]*models.Round, error) {
	if limit <= 0 || limit > MaxRoundHistory {
		limit = 50
	}

	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyClientRounds, clientID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round ids: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Round{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyRound, id))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	rounds := make([]*models.Round, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}

		var round models.Round
		if err := json.Unmarshal([]byte(data), &round); err != nil {
			continue
		}
		rounds = append(rounds, &round)
	}

	return rounds, nil
}

func (s *RedisService) ClearRounds(ctx context.Context, clientID string) error {
	listKey := fmt.Sprintf(KeyClientRounds, clientID)

	ids, err := s.client.ZRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get round ids: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf(KeyRound, id))
	}
	keys = append(keys, listKey)

	return s.client.Del(ctx, keys...).Err()
}
