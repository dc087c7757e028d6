package pfredis

import (
	"context"
	"fmt"
	"time"

	"portfolio/internal/models/pfconfig"

	"github.com/redis/go-redis/v9"
)

const captchaPrefix = "portfolio:captcha:"

// Connect ouvre le client et vérifie qu'il répond. Retourne nil sans erreur si redis n'est pas configuré.
func Connect(ctx context.Context, cfg pfconfig.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.Db,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// CaptchaStore conserve les réponses des captchas dans redis
type CaptchaStore struct {
	client     *redis.Client
	expiration time.Duration
}

func NewCaptchaStore(client *redis.Client) *CaptchaStore {
	return &CaptchaStore{
		client:     client,
		expiration: 5 * time.Minute,
	}
}

func (r *CaptchaStore) Set(id string, value string) error {
	return r.client.Set(context.Background(), captchaPrefix+id, value, r.expiration).Err()
}

func (r *CaptchaStore) Get(id string, clear bool) string {
	ctx := context.Background()
	key := captchaPrefix + id
	if clear {
		val, _ := r.client.GetDel(ctx, key).Result()
		return val
	}
	val, _ := r.client.Get(ctx, key).Result()
	return val
}

func (r *CaptchaStore) Verify(id, answer string, clear bool) bool {
	v := r.Get(id, clear)
	return v != "" && v == answer
}
