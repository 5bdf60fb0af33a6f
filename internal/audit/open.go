package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/ai-chatbot/internal/db"
)

var ErrInvalidDriver = errors.New("invalid audit driver")

type Options struct {
	Driver string // none | sqlite | mysql | redis | amqp
	DSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
	RedisMax      int64

	AMQPURL   string
	AMQPQueue string
}

// Open builds the recorder selected by opts.Driver. The returned close func is
// never nil.
func Open(ctx context.Context, opts Options) (Recorder, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "none":
		return NopRecorder{}, noop, nil

	case "sqlite", "mysql":
		gdb, err := db.Connect(opts.Driver, opts.DSN)
		if err != nil {
			return nil, noop, err
		}
		rec := NewGormRecorder(gdb)
		if err := rec.Migrate(ctx); err != nil {
			_ = rec.Close()
			return nil, noop, fmt.Errorf("audit: migrate: %w", err)
		}
		return rec, rec.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("audit: redis ping: %w", err)
		}
		rec := NewRedisRecorder(client, opts.RedisKey, opts.RedisMax)
		return rec, rec.Close, nil

	case "amqp":
		rec, err := DialAMQPRecorder(opts.AMQPURL, opts.AMQPQueue)
		if err != nil {
			return nil, noop, fmt.Errorf("audit: amqp dial: %w", err)
		}
		return rec, rec.Close, nil

	default:
		return nil, noop, fmt.Errorf("%w: %s", ErrInvalidDriver, opts.Driver)
	}
}
