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

type SessionTypeRepo struct {
	MongoCollection *mongo.Collection
}

func GetSessionTypeRepo(client *mongo.Client) *SessionTypeRepo {
	dbName := os.Getenv("MONGO_DB")
	return &SessionTypeRepo{
		MongoCollection: client.Database(dbName).Collection("session_types"),
	}
}

// GetSessionType fetches a session type by id. Returns nil, nil when the
// type does not exist.
func (r *SessionTypeRepo) GetSessionType(sessionTypeID string) (*model.SessionType, error) {
	timer := utils.TrackDBOperation("find", "session_types")
	defer timer.ObserveDuration()

	if sessionTypeID == "" {
		return nil, fmt.Errorf("sessionTypeID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var sessionType model.SessionType
	err := r.MongoCollection.FindOne(ctx, bson.M{"session_type_id": sessionTypeID}).Decode(&sessionType)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.TrackError("database", "session_type_not_found")
			return nil, nil
		}
		utils.TrackError("database", "session_type_fetch_failed")
		return nil, fmt.Errorf("failed to fetch session type: %w", err)
	}

	return &sessionType, nil
}
