package services

import (
	"context"
	"fmt"
	"log"

	"main/model"
	"main/utils"
)

// userSyncBatchSize bounds one request to the Roblox bulk users endpoint.
const userSyncBatchSize = 50

type UserDirectory interface {
	AllUsers() ([]model.User, error)
	UpdateUsername(userID int64, username string) error
}

type BatchNameSource interface {
	GetUsernames(ctx context.Context, userIDs []int64) (map[int64]string, error)
}

type UserSyncResult struct {
	Total   int
	Updated int
	Failed  int
}

// UserSync refreshes stored usernames from the Roblox users API. Roblox
// usernames can change at any time; the cron keeps notification content
// from drifting stale.
type UserSync struct {
	Users  UserDirectory
	Roblox BatchNameSource
}

func (us *UserSync) Run(ctx context.Context) (UserSyncResult, error) {
	var result UserSyncResult

	users, err := us.Users.AllUsers()
	if err != nil {
		return result, fmt.Errorf("failed to load users: %w", err)
	}
	result.Total = len(users)

	log.Printf("[UserSync] Found %d users to update", len(users))

	for start := 0; start < len(users); start += userSyncBatchSize {
		end := start + userSyncBatchSize
		if end > len(users) {
			end = len(users)
		}
		batch := users[start:end]

		ids := make([]int64, 0, len(batch))
		for _, user := range batch {
			ids = append(ids, user.UserID)
		}

		names, err := us.Roblox.GetUsernames(ctx, ids)
		if err != nil {
			utils.TrackError("usersync", "batch_lookup_failed")
			log.Printf("[UserSync] Batch lookup failed: %v", err)
			result.Failed += len(batch)
			continue
		}

		for _, user := range batch {
			name, ok := names[user.UserID]
			if !ok {
				// Deleted or banned account; nothing to refresh.
				result.Failed++
				continue
			}
			if name == user.Username {
				continue
			}
			if err := us.Users.UpdateUsername(user.UserID, name); err != nil {
				log.Printf("[UserSync] Failed to update user %d: %v", user.UserID, err)
				result.Failed++
				continue
			}
			result.Updated++
		}
	}

	return result, nil
}
