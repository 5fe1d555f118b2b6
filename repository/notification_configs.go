package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"main/model"
	"main/services"
	"main/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type NotificationConfigRepo struct {
	MongoCollection *mongo.Collection
}

func GetNotificationConfigRepo(client *mongo.Client) *NotificationConfigRepo {
	dbName := os.Getenv("MONGO_DB")
	return &NotificationConfigRepo{
		MongoCollection: client.Database(dbName).Collection("notification_configs"),
	}
}

// GetConfig returns a workspace's notification config, or nil, nil when the
// workspace has never configured notifications.
func (r *NotificationConfigRepo) GetConfig(workspaceGroupID int64) (*model.NotificationConfig, error) {
	timer := utils.TrackDBOperation("find", "notification_configs")
	defer timer.ObserveDuration()

	if services.GlobalConfigCache != nil {
		if config, err := services.GlobalConfigCache.GetConfig(workspaceGroupID); err == nil && config != nil {
			utils.TrackCacheOperation("notification_config", true) // Cache hit
			return config, nil
		}
		utils.TrackCacheOperation("notification_config", false) // Cache miss
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var config model.NotificationConfig
	err := r.MongoCollection.FindOne(ctx, bson.M{"workspace_group_id": workspaceGroupID}).Decode(&config)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		utils.TrackError("database", "notification_config_fetch_failed")
		return nil, fmt.Errorf("failed to fetch notification config: %w", err)
	}

	if services.GlobalConfigCache != nil {
		if err := services.GlobalConfigCache.SetConfig(&config); err != nil {
			utils.TrackError("cache", "config_cache_set_failed")
			log.Printf("Warning: Failed to cache notification config: %v", err)
		}
	}

	return &config, nil
}

// AllConfigs returns every workspace's notification config. Used by the
// birthdays cron to enumerate tenants.
func (r *NotificationConfigRepo) AllConfigs() ([]model.NotificationConfig, error) {
	timer := utils.TrackDBOperation("find", "notification_configs")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{})
	if err != nil {
		utils.TrackError("database", "notification_configs_fetch_failed")
		return nil, fmt.Errorf("failed to fetch notification configs: %w", err)
	}
	defer cursor.Close(ctx)

	var configs []model.NotificationConfig
	if err = cursor.All(ctx, &configs); err != nil {
		return nil, fmt.Errorf("failed to decode notification configs: %w", err)
	}

	return configs, nil
}
