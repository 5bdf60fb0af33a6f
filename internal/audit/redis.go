package audit

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/ai-chatbot/internal/common"
)

const (
	defaultRedisKey = "chatbot:completion_audit"
	defaultRedisMax = 1000
)

// RedisRecorder keeps the newest records in a capped Redis list.
type RedisRecorder struct {
	client *redis.Client
	key    string
	max    int64
}

func NewRedisRecorder(client *redis.Client, key string, max int64) *RedisRecorder {
	if key == "" {
		key = defaultRedisKey
	}
	if max <= 0 {
		max = defaultRedisMax
	}
	return &RedisRecorder{client: client, key: key, max: max}
}

func (r *RedisRecorder) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		id, err := common.NewULID()
		if err != nil {
			return err
		}
		rec.ID = id
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, b)
		pipe.LTrim(ctx, r.key, 0, r.max-1)
		return nil
	})
	return err
}

func (r *RedisRecorder) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	vals, err := r.client.LRange(ctx, r.key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(vals))
	for _, v := range vals {
		var rec Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
