package services

import (
	"errors"
	"testing"
	"time"

	"main/model"
)

type fakeConfigDirectory struct {
	configs []model.NotificationConfig
}

func (f *fakeConfigDirectory) AllConfigs() ([]model.NotificationConfig, error) {
	return f.configs, nil
}

type fakeBirthdaySource struct {
	byWorkspace map[int64][]model.User
	errFor      int64
}

func (f *fakeBirthdaySource) FindBirthdays(workspaceGroupID int64, day, month int) ([]model.User, error) {
	if f.errFor != 0 && f.errFor == workspaceGroupID {
		return nil, errors.New("db down")
	}
	return f.byWorkspace[workspaceGroupID], nil
}

type birthdayCall struct {
	workspaceGroupID int64
	userID           int64
}

type fakeBirthdayDispatcher struct {
	calls []birthdayCall
}

func (f *fakeBirthdayDispatcher) NotifyBirthday(workspaceGroupID int64, user model.User) {
	f.calls = append(f.calls, birthdayCall{workspaceGroupID, user.UserID})
}

func TestBirthdayNotifierRun(t *testing.T) {
	configs := &fakeConfigDirectory{configs: []model.NotificationConfig{
		{WorkspaceGroupID: 1, Enabled: true, BirthdayEnabled: true},
		{WorkspaceGroupID: 2, Enabled: true, BirthdayEnabled: false},
		{WorkspaceGroupID: 3, Enabled: false, BirthdayEnabled: true},
		{WorkspaceGroupID: 4, Enabled: true, BirthdayEnabled: true},
	}}
	users := &fakeBirthdaySource{byWorkspace: map[int64][]model.User{
		1: {{UserID: 10}, {UserID: 11}},
		2: {{UserID: 20}},
		3: {{UserID: 30}},
	}}
	dispatcher := &fakeBirthdayDispatcher{}
	bn := &BirthdayNotifier{Configs: configs, Users: users, Notifier: dispatcher}

	result, err := bn.Run(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Workspaces != 1 || result.Notified != 2 {
		t.Errorf("unexpected result %+v", result)
	}
	for _, call := range dispatcher.calls {
		if call.workspaceGroupID != 1 {
			t.Errorf("notification sent for a workspace without the feature enabled: %+v", call)
		}
	}
}

func TestBirthdayNotifierWorkspaceFailureIsolation(t *testing.T) {
	configs := &fakeConfigDirectory{configs: []model.NotificationConfig{
		{WorkspaceGroupID: 1, Enabled: true, BirthdayEnabled: true},
		{WorkspaceGroupID: 2, Enabled: true, BirthdayEnabled: true},
	}}
	users := &fakeBirthdaySource{
		byWorkspace: map[int64][]model.User{2: {{UserID: 20}}},
		errFor:      1,
	}
	dispatcher := &fakeBirthdayDispatcher{}
	bn := &BirthdayNotifier{Configs: configs, Users: users, Notifier: dispatcher}

	result, err := bn.Run(time.Now())
	if err != nil {
		t.Fatalf("one workspace's failure must not fail the run: %v", err)
	}
	if result.Workspaces != 1 || result.Notified != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}
