package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"main/model"

	"github.com/redis/go-redis/v9"
)

// configCacheTTL bounds how stale a cached notification config can get after
// an operator edits it.
const configCacheTTL = 5 * time.Minute

type ConfigCache struct {
	client *redis.Client
}

// GlobalConfigCache is nil when Redis is not configured; every caller treats
// the cache as best-effort.
var GlobalConfigCache *ConfigCache

// NewConfigCache creates and initializes a notification config cache
func NewConfigCache(redisURL string) (*ConfigCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &ConfigCache{client: client}, nil
}

func configKey(workspaceGroupID int64) string {
	return fmt.Sprintf("notification_config:%d", workspaceGroupID)
}

// GetConfig retrieves a cached notification config. Returns nil, nil on a
// cache miss.
func (cc *ConfigCache) GetConfig(workspaceGroupID int64) (*model.NotificationConfig, error) {
	ctx := context.Background()

	data, err := cc.client.Get(ctx, configKey(workspaceGroupID)).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config from cache: %v", err)
	}

	var config model.NotificationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached config: %v", err)
	}

	return &config, nil
}

// SetConfig caches a notification config with the standard TTL.
func (cc *ConfigCache) SetConfig(config *model.NotificationConfig) error {
	if config == nil {
		return fmt.Errorf("cannot cache nil config")
	}

	ctx := context.Background()

	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := cc.client.Set(ctx, configKey(config.WorkspaceGroupID), data, configCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache config: %v", err)
	}

	return nil
}

// InvalidateConfig drops a workspace's cached config after an edit.
func (cc *ConfigCache) InvalidateConfig(workspaceGroupID int64) error {
	ctx := context.Background()

	if err := cc.client.Del(ctx, configKey(workspaceGroupID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate config cache: %v", err)
	}

	return nil
}
