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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ActivitySessionRepo struct {
	MongoCollection *mongo.Collection
}

func GetActivitySessionRepo(client *mongo.Client) *ActivitySessionRepo {
	dbName := os.Getenv("MONGO_DB")
	return &ActivitySessionRepo{
		MongoCollection: client.Database(dbName).Collection("activity_sessions"),
	}
}

// FindActive returns the user's active session in the workspace, or nil, nil
// when there is none.
func (r *ActivitySessionRepo) FindActive(workspaceGroupID, userID int64) (*model.ActivitySession, error) {
	timer := utils.TrackDBOperation("find", "activity_sessions")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var session model.ActivitySession
	err := r.MongoCollection.FindOne(ctx, bson.M{
		"user_id":            userID,
		"workspace_group_id": workspaceGroupID,
		"active":             true,
	}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		utils.TrackError("database", "activity_fetch_failed")
		return nil, fmt.Errorf("failed to fetch active session: %w", err)
	}

	return &session, nil
}

// FindRecentlyEnded returns the user's most recently ended session whose end
// time falls within the given window, or nil, nil. Used to absorb duplicate
// "end" events from retrying reporters.
func (r *ActivitySessionRepo) FindRecentlyEnded(workspaceGroupID, userID int64, within time.Duration) (*model.ActivitySession, error) {
	timer := utils.TrackDBOperation("find", "activity_sessions")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.M{"end_time": -1})
	var session model.ActivitySession
	err := r.MongoCollection.FindOne(ctx, bson.M{
		"user_id":            userID,
		"workspace_group_id": workspaceGroupID,
		"active":             false,
		"end_time":           bson.M{"$gte": time.Now().Add(-within)},
	}, opts).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		utils.TrackError("database", "activity_fetch_failed")
		return nil, fmt.Errorf("failed to fetch recently ended session: %w", err)
	}

	return &session, nil
}

// CreateIfNoneActive inserts the session unless the user already has an
// active one in the workspace. The insert is a conditional upsert on the
// "active session exists" predicate, backed by the partial unique index from
// SetupIndexes, so two concurrent creates cannot both win. Returns false
// when an active session already existed.
func (r *ActivitySessionRepo) CreateIfNoneActive(session model.ActivitySession) (bool, error) {
	timer := utils.TrackDBOperation("insert", "activity_sessions")
	defer timer.ObserveDuration()

	if session.ActivityID == "" || session.UserID == 0 {
		utils.TrackError("database", "invalid_activity_data")
		return false, fmt.Errorf("invalid activity session: missing required fields")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{
		"user_id":            session.UserID,
		"workspace_group_id": session.WorkspaceGroupID,
		"active":             true,
	}
	update := bson.M{"$setOnInsert": bson.M{
		"activity_id":        session.ActivityID,
		"user_id":            session.UserID,
		"workspace_group_id": session.WorkspaceGroupID,
		"active":             true,
		"start_time":         session.StartTime,
		"idle_time":          session.IdleTime,
		"messages":           session.Messages,
		"universe_id":        session.UniverseID,
		"session_message":    session.SessionMessage,
	}}

	result, err := r.MongoCollection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the race against a concurrent create.
			return false, nil
		}
		utils.TrackError("database", "activity_creation_failed")
		return false, fmt.Errorf("failed to create activity session: %w", err)
	}

	return result.UpsertedCount > 0, nil
}

// EndSession closes an active session and records its final counters.
func (r *ActivitySessionRepo) EndSession(activityID string, endTime time.Time, idleTime, messages int64) error {
	timer := utils.TrackDBOperation("update", "activity_sessions")
	defer timer.ObserveDuration()

	if activityID == "" {
		return fmt.Errorf("activityID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(
		ctx,
		bson.M{"activity_id": activityID, "active": true},
		bson.M{"$set": bson.M{
			"active":    false,
			"end_time":  endTime,
			"idle_time": idleTime,
			"messages":  messages,
		}},
	)
	if err != nil {
		utils.TrackError("database", "activity_end_failed")
		return fmt.Errorf("failed to end activity session: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("activity session not found or already ended")
	}

	return nil
}

// UpdateCounters rewrites idle/message counters on an already-ended session
// when a late duplicate "end" event carried newer values.
func (r *ActivitySessionRepo) UpdateCounters(activityID string, idleTime, messages int64) error {
	timer := utils.TrackDBOperation("update", "activity_sessions")
	defer timer.ObserveDuration()

	if activityID == "" {
		return fmt.Errorf("activityID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.MongoCollection.UpdateOne(
		ctx,
		bson.M{"activity_id": activityID},
		bson.M{"$set": bson.M{
			"idle_time": idleTime,
			"messages":  messages,
		}},
	)
	if err != nil {
		utils.TrackError("database", "activity_counter_update_failed")
		return fmt.Errorf("failed to update activity counters: %w", err)
	}

	return nil
}
