package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	"main/model"
	"main/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type APIKeyRepo struct {
	MongoCollection *mongo.Collection
}

func GetAPIKeyRepo(client *mongo.Client) *APIKeyRepo {
	dbName := os.Getenv("MONGO_DB")
	return &APIKeyRepo{
		MongoCollection: client.Database(dbName).Collection("api_keys"),
	}
}

// ResolveKey maps an opaque reporter key to its workspace. Returns nil, nil
// for an unknown key; callers treat that as an authorization failure.
func (r *APIKeyRepo) ResolveKey(key string) (*model.APIKey, error) {
	timer := utils.TrackDBOperation("find", "api_keys")
	defer timer.ObserveDuration()

	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var apiKey model.APIKey
	err := r.MongoCollection.FindOne(ctx, bson.M{"key": key}).Decode(&apiKey)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.TrackError("auth", "unknown_api_key")
			return nil, nil
		}
		utils.TrackError("database", "api_key_fetch_failed")
		return nil, fmt.Errorf("failed to resolve api key: %w", err)
	}

	return &apiKey, nil
}
