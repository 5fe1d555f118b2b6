package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func SetupIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize collections
	sessionsCollection := db.Collection("sessions")
	activityCollection := db.Collection("activity_sessions")
	usersCollection := db.Collection("users")
	apiKeysCollection := db.Collection("api_keys")
	configsCollection := db.Collection("notification_configs")

	sessionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().
				SetName("session_id_unique").
				SetUnique(true),
		},
		// Reconciliation scan: open sessions ordered by scheduled date
		{
			Keys: bson.D{
				{Key: "ended", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().
				SetName("open_sessions_by_date"),
		},
	}

	activityIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "activity_id", Value: 1}},
			Options: options.Index().
				SetName("activity_id_unique").
				SetUnique(true),
		},
		// At most one active session per (workspace, user). The partial
		// filter keeps the uniqueness constraint off ended sessions.
		{
			Keys: bson.D{
				{Key: "workspace_group_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().
				SetName("one_active_session_per_user").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "active", Value: true}}),
		},
		// Late-end recovery lookup
		{
			Keys: bson.D{
				{Key: "workspace_group_id", Value: 1},
				{Key: "user_id", Value: 1},
				{Key: "end_time", Value: -1},
			},
			Options: options.Index().
				SetName("ended_sessions_by_user"),
		},
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("user_id_unique").
				SetUnique(true),
		},
		// Birthday scan per workspace
		{
			Keys: bson.D{
				{Key: "groups", Value: 1},
				{Key: "birthday_month", Value: 1},
				{Key: "birthday_day", Value: 1},
			},
			Options: options.Index().
				SetName("workspace_birthdays"),
		},
	}

	apiKeyIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "key", Value: 1}},
			Options: options.Index().
				SetName("api_key_unique").
				SetUnique(true),
		},
	}

	configIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "workspace_group_id", Value: 1}},
			Options: options.Index().
				SetName("workspace_config_unique").
				SetUnique(true),
		},
	}

	if _, err := sessionsCollection.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("failed to create sessions indexes: %w", err)
	}
	if _, err := activityCollection.Indexes().CreateMany(ctx, activityIndexes); err != nil {
		return fmt.Errorf("failed to create activity indexes: %w", err)
	}
	if _, err := usersCollection.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}
	if _, err := apiKeysCollection.Indexes().CreateMany(ctx, apiKeyIndexes); err != nil {
		return fmt.Errorf("failed to create api key indexes: %w", err)
	}
	if _, err := configsCollection.Indexes().CreateMany(ctx, configIndexes); err != nil {
		return fmt.Errorf("failed to create config indexes: %w", err)
	}

	return nil
}
