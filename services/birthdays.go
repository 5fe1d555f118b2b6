package services

import (
	"fmt"
	"log"
	"time"

	"main/model"
)

type ConfigDirectory interface {
	AllConfigs() ([]model.NotificationConfig, error)
}

type BirthdayUserSource interface {
	FindBirthdays(workspaceGroupID int64, day, month int) ([]model.User, error)
}

type BirthdayDispatcher interface {
	NotifyBirthday(workspaceGroupID int64, user model.User)
}

type BirthdayResult struct {
	Workspaces int
	Notified   int
}

// BirthdayNotifier fans birthday celebration messages out per workspace.
// Delivery pacing between members of the same workspace is handled by the
// dispatcher's per-destination spacing.
type BirthdayNotifier struct {
	Configs  ConfigDirectory
	Users    BirthdayUserSource
	Notifier BirthdayDispatcher
}

func (bn *BirthdayNotifier) Run(now time.Time) (BirthdayResult, error) {
	var result BirthdayResult

	configs, err := bn.Configs.AllConfigs()
	if err != nil {
		return result, fmt.Errorf("failed to load notification configs: %w", err)
	}

	day := now.Day()
	month := int(now.Month())

	for _, config := range configs {
		if !config.Enabled || !config.BirthdayEnabled {
			continue
		}

		users, err := bn.Users.FindBirthdays(config.WorkspaceGroupID, day, month)
		if err != nil {
			log.Printf("[Birthday] Failed to load birthdays for workspace %d: %v", config.WorkspaceGroupID, err)
			continue
		}
		if len(users) == 0 {
			continue
		}

		result.Workspaces++
		for _, user := range users {
			bn.Notifier.NotifyBirthday(config.WorkspaceGroupID, user)
			result.Notified++
		}
	}

	return result, nil
}
