package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"main/model"
	"main/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepo struct {
	MongoCollection *mongo.Collection
}

func GetUserRepo(client *mongo.Client) *UserRepo {
	dbName := os.Getenv("MONGO_DB")
	return &UserRepo{
		MongoCollection: client.Database(dbName).Collection("users"),
	}
}

// UpsertProfile creates or refreshes the lightweight profile for a user and
// records membership of the workspace the event arrived for.
func (r *UserRepo) UpsertProfile(userID int64, workspaceGroupID int64, username, picture string) error {
	timer := utils.TrackDBOperation("upsert", "users")
	defer timer.ObserveDuration()

	if userID == 0 {
		return fmt.Errorf("userID cannot be zero")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"username":   username,
			"picture":    picture,
			"updated_at": time.Now(),
		},
		"$addToSet":    bson.M{"groups": workspaceGroupID},
		"$setOnInsert": bson.M{"user_id": userID},
	}

	_, err := r.MongoCollection.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		utils.TrackError("database", "user_upsert_failed")
		return fmt.Errorf("failed to upsert user profile: %w", err)
	}

	return nil
}

// GetUser fetches a stored profile by id. Returns nil, nil when the user
// has never been seen.
func (r *UserRepo) GetUser(userID int64) (*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user model.User
	err := r.MongoCollection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		utils.TrackError("database", "user_fetch_failed")
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

// AllUsers returns every stored profile. Used by the user-sync cron.
func (r *UserRepo) AllUsers() ([]model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{})
	if err != nil {
		utils.TrackError("database", "users_fetch_failed")
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []model.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, nil
}

// UpdateUsername refreshes a stored username from the Roblox users API.
func (r *UserRepo) UpdateUsername(userID int64, username string) error {
	timer := utils.TrackDBOperation("update", "users")
	defer timer.ObserveDuration()

	if userID == 0 {
		return fmt.Errorf("userID cannot be zero")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"username": username, "updated_at": time.Now()}},
	)
	if err != nil {
		utils.TrackError("database", "user_update_failed")
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.MatchedCount == 0 {
		log.Printf("Warning: username refresh matched no user %d", userID)
	}

	return nil
}

// FindBirthdays returns workspace members whose stored birthday matches the
// given day and month.
func (r *UserRepo) FindBirthdays(workspaceGroupID int64, day, month int) ([]model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{
		"groups":         workspaceGroupID,
		"birthday_day":   day,
		"birthday_month": month,
	})
	if err != nil {
		utils.TrackError("database", "birthdays_fetch_failed")
		return nil, fmt.Errorf("failed to fetch birthdays: %w", err)
	}
	defer cursor.Close(ctx)

	var users []model.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, nil
}
