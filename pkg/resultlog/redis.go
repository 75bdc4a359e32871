// Package resultlog publishes the summary of an import run to Redis.
package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/productimport/pkg/report"
)

// Config selects the Redis server and the key namespace
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Name identifies the import feed in the keys, e.g. "supplier-a"
	Name string `yaml:"name"`

	// TTL of the state key in seconds; 0 keeps it forever
	TTL int `yaml:"ttl"`
}

// RunResult is the JSON document published after every run, successful or not.
//
// Redis keys:
//
//	SET      productimport:<name>:state  <JSON>  EX <ttl>   for polling
//	LPUSH    productimport:<name>:history <JSON>            last 50 runs
//	PUBLISH  productimport:<name>        <JSON>            for subscribers
type RunResult struct {
	Name        string    `json:"name"`
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	Source      string    `json:"source,omitempty"`
	InputDigest string    `json:"input_digest,omitempty"`
	DryRun      bool      `json:"dry_run"`
	OK          int       `json:"ok"`
	Failed      int       `json:"failed"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMs  int64     `json:"duration_ms"`
	Error       *string   `json:"error,omitempty"`
}

const historyLength = 50

// RedisPublisher publishes run results
type RedisPublisher struct {
	client *redis.Client
	config Config
}

// NewRedisPublisher creates a publisher with its own client
func NewRedisPublisher(config Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return NewRedisPublisherWithClient(client, config)
}

// NewRedisPublisherWithClient uses an existing client
func NewRedisPublisherWithClient(client *redis.Client, config Config) *RedisPublisher {
	if config.Name == "" {
		config.Name = "default"
	}
	return &RedisPublisher{client: client, config: config}
}

// StateKey returns the key holding the last result
func (p *RedisPublisher) StateKey() string {
	return fmt.Sprintf("productimport:%s:state", p.config.Name)
}

// HistoryKey returns the list of recent results
func (p *RedisPublisher) HistoryKey() string {
	return fmt.Sprintf("productimport:%s:history", p.config.Name)
}

// Channel returns the pub/sub channel
func (p *RedisPublisher) Channel() string {
	return fmt.Sprintf("productimport:%s", p.config.Name)
}

// Publish stores and announces the summary
func (p *RedisPublisher) Publish(ctx context.Context, s report.Summary) error {
	result := RunResult{
		Name:        p.config.Name,
		RunID:       s.RunID,
		Status:      s.Status(),
		Source:      s.Source,
		InputDigest: s.InputDigest,
		DryRun:      s.DryRun,
		OK:          s.OK,
		Failed:      s.Failed,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		DurationMs:  s.Duration.Milliseconds(),
	}
	if s.Error != "" {
		msg := s.Error
		result.Error = &msg
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ttl := time.Duration(p.config.TTL) * time.Second

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.StateKey(), payload, ttl)
	pipe.LPush(ctx, p.HistoryKey(), payload)
	pipe.LTrim(ctx, p.HistoryKey(), 0, historyLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis write failed: %w", err)
	}

	if err := p.client.Publish(ctx, p.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Close closes the Redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
