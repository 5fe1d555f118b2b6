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

type SessionRepo struct {
	MongoCollection *mongo.Collection
}

func GetSessionRepo(client *mongo.Client) *SessionRepo {
	dbName := os.Getenv("MONGO_DB")
	return &SessionRepo{
		MongoCollection: client.Database(dbName).Collection("sessions"),
	}
}

// FindOpenSessions returns every not-yet-ended session whose scheduled date
// is at or before now. Terminal sessions (ended set) are never returned, so
// the reconciler can never touch them again.
func (r *SessionRepo) FindOpenSessions(now time.Time) ([]model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{
		"ended": nil,
		"date":  bson.M{"$lte": now},
	})
	if err != nil {
		utils.TrackError("database", "open_sessions_fetch_failed")
		return nil, fmt.Errorf("failed to fetch open sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

// MarkStarted records the scheduled date as the actual start. The filter
// requires started_at to still be unset so a concurrent pass cannot start
// the same session twice.
func (r *SessionRepo) MarkStarted(sessionID string, startedAt time.Time) error {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.MongoCollection.UpdateOne(
		ctx,
		bson.M{"session_id": sessionID, "started_at": nil, "ended": nil},
		bson.M{"$set": bson.M{"started_at": startedAt}},
	)
	if err != nil {
		utils.TrackError("database", "session_start_failed")
		return fmt.Errorf("failed to mark session started: %w", err)
	}

	return nil
}

// MarkConcluded sets the terminal state. Once ended is set the filter no
// longer matches, so the transition happens at most once.
func (r *SessionRepo) MarkConcluded(sessionID string, endedAt time.Time) error {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.MongoCollection.UpdateOne(
		ctx,
		bson.M{"session_id": sessionID, "ended": nil},
		bson.M{"$set": bson.M{
			"ended":               endedAt,
			"last_discord_status": "Concluded",
		}},
	)
	if err != nil {
		utils.TrackError("database", "session_conclude_failed")
		return fmt.Errorf("failed to mark session concluded: %w", err)
	}

	return nil
}

// SetDiscordStatus persists the last notified status label for an open
// session.
func (r *SessionRepo) SetDiscordStatus(sessionID, status string) error {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.MongoCollection.UpdateOne(
		ctx,
		bson.M{"session_id": sessionID, "ended": nil},
		bson.M{"$set": bson.M{"last_discord_status": status}},
	)
	if err != nil {
		utils.TrackError("database", "session_status_update_failed")
		return fmt.Errorf("failed to update session status: %w", err)
	}

	return nil
}

// SetDiscordMessageID stores the id of the sent start notification so later
// status transitions can edit the same message.
func (r *SessionRepo) SetDiscordMessageID(sessionID, messageID string) error {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.MongoCollection.UpdateOne(
		ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"discord_message_id": messageID}},
	)
	if err != nil {
		utils.TrackError("database", "session_message_id_update_failed")
		return fmt.Errorf("failed to store notification message id: %w", err)
	}

	return nil
}
