package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"main/dto"
	"main/model"
)

type fakeKeys struct {
	keys map[string]*model.APIKey
}

func (f *fakeKeys) ResolveKey(key string) (*model.APIKey, error) {
	return f.keys[key], nil
}

type counterUpdate struct {
	activityID string
	idleTime   int64
	messages   int64
}

type fakeActivityStore struct {
	active  map[int64]*model.ActivitySession
	recent  map[int64]*model.ActivitySession
	updates []counterUpdate
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{
		active: map[int64]*model.ActivitySession{},
		recent: map[int64]*model.ActivitySession{},
	}
}

func (f *fakeActivityStore) FindActive(workspaceGroupID, userID int64) (*model.ActivitySession, error) {
	s := f.active[userID]
	if s == nil || s.WorkspaceGroupID != workspaceGroupID {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f *fakeActivityStore) FindRecentlyEnded(workspaceGroupID, userID int64, within time.Duration) (*model.ActivitySession, error) {
	s := f.recent[userID]
	if s == nil || s.WorkspaceGroupID != workspaceGroupID {
		return nil, nil
	}
	if s.EndTime != nil && time.Since(*s.EndTime) > within {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f *fakeActivityStore) CreateIfNoneActive(session model.ActivitySession) (bool, error) {
	if f.active[session.UserID] != nil {
		return false, nil
	}
	f.active[session.UserID] = &session
	return true, nil
}

func (f *fakeActivityStore) EndSession(activityID string, endTime time.Time, idleTime, messages int64) error {
	for userID, s := range f.active {
		if s.ActivityID == activityID {
			s.Active = false
			s.EndTime = &endTime
			s.IdleTime = idleTime
			s.Messages = messages
			f.recent[userID] = s
			delete(f.active, userID)
			return nil
		}
	}
	return errors.New("activity session not found or already ended")
}

func (f *fakeActivityStore) UpdateCounters(activityID string, idleTime, messages int64) error {
	f.updates = append(f.updates, counterUpdate{activityID, idleTime, messages})
	return nil
}

type profileUpsert struct {
	userID   int64
	username string
}

type fakeProfiles struct {
	upserts []profileUpsert
}

func (f *fakeProfiles) UpsertProfile(userID, workspaceGroupID int64, username, picture string) error {
	f.upserts = append(f.upserts, profileUpsert{userID, username})
	return nil
}

type fakeRoblox struct {
	usernames map[int64]string
	rank      int
	placeName string
}

func (f *fakeRoblox) GetUsername(ctx context.Context, userID int64) (string, error) {
	if name, ok := f.usernames[userID]; ok {
		return name, nil
	}
	return "", errors.New("user not found")
}

func (f *fakeRoblox) ThumbnailURL(userID int64) string { return "" }

func (f *fakeRoblox) GetRankInGroup(ctx context.Context, groupID, userID int64) (int, error) {
	return f.rank, nil
}

func (f *fakeRoblox) GetPlaceName(ctx context.Context, placeID int64) (string, error) {
	if f.placeName == "" {
		return "", errors.New("place not found")
	}
	return f.placeName, nil
}

type reviewCall struct {
	userID   int64
	idleTime int64
	messages int64
}

type fakeReviews struct {
	calls []reviewCall
}

func (f *fakeReviews) NotifySessionReview(workspaceGroupID int64, activity model.ActivitySession, username string) {
	f.calls = append(f.calls, reviewCall{activity.UserID, activity.IdleTime, activity.Messages})
}

func newIngestor(store *fakeActivityStore, reviews *fakeReviews, minimumRank int) *BulkIngestor {
	return &BulkIngestor{
		Keys: &fakeKeys{keys: map[string]*model.APIKey{
			"valid-key": {Key: "valid-key", WorkspaceGroupID: 42, MinimumRank: minimumRank},
		}},
		Activity: store,
		Profiles: &fakeProfiles{},
		Roblox:   &fakeRoblox{usernames: map[int64]string{55: "builderman"}, rank: 10, placeName: "Tower"},
		Notifier: reviews,
	}
}

func event(eventType, userID string) dto.BulkEvent {
	return dto.BulkEvent{Type: eventType, UserID: dto.EventUserID(userID)}
}

func TestProcessBulkEventsUnknownKey(t *testing.T) {
	ingestor := newIngestor(newFakeActivityStore(), &fakeReviews{}, 0)

	_, err := ingestor.ProcessBulkEvents(context.Background(), "wrong-key", []dto.BulkEvent{event(dto.EventCreate, "55")})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestProcessBulkEventsCreate(t *testing.T) {
	store := newFakeActivityStore()
	ingestor := newIngestor(store, &fakeReviews{}, 0)
	placeID := int64(99)
	ev := event(dto.EventCreate, "55")
	ev.PlaceID = &placeID

	result, err := ingestor.ProcessBulkEvents(context.Background(), "valid-key", []dto.BulkEvent{ev})
	if err != nil {
		t.Fatalf("ProcessBulkEvents failed: %v", err)
	}
	if result.Created != 1 || result.Failed != 0 {
		t.Errorf("expected 1 created, got %+v", result)
	}

	session := store.active[55]
	if session == nil {
		t.Fatal("expected an active session for user 55")
	}
	if !session.Active || session.WorkspaceGroupID != 42 {
		t.Errorf("unexpected session state %+v", session)
	}
	if !strings.Contains(session.SessionMessage, "Playing Tower") {
		t.Errorf("session message should name the place, got %q", session.SessionMessage)
	}
}

func TestProcessBulkEventsDuplicateCreate(t *testing.T) {
	store := newFakeActivityStore()
	store.active[55] = &model.ActivitySession{ActivityID: "a1", UserID: 55, WorkspaceGroupID: 42, Active: true, StartTime: time.Now()}
	ingestor := newIngestor(store, &fakeReviews{}, 0)

	result, err := ingestor.ProcessBulkEvents(context.Background(), "valid-key", []dto.BulkEvent{event(dto.EventCreate, "55")})
	if err != nil {
		t.Fatalf("ProcessBulkEvents failed: %v", err)
	}
	if result.Created != 0 || result.Failed != 0 || len(result.Errors) != 0 {
		t.Errorf("duplicate create must be a silent no-op, got %+v", result)
	}
	if store.active[55].ActivityID != "a1" {
		t.Error("the existing session must not be replaced")
	}
}

func TestProcessBulkEventsEnd(t *testing.T) {
	store := newFakeActivityStore()
	store.active[55] = &model.ActivitySession{ActivityID: "a1", UserID: 55, WorkspaceGroupID: 42, Active: true, StartTime: time.Now().Add(-time.Hour)}
	reviews := &fakeReviews{}
	ingestor := newIngestor(store, reviews, 0)

	idle, messages := int64(120), int64(14)
	ev := event(dto.EventEnd, "55")
	ev.IdleTime = &idle
	ev.Messages = &messages

	result, err := ingestor.ProcessBulkEvents(context.Background(), "valid-key", []dto.BulkEvent{ev})
	if err != nil {
		t.Fatalf("ProcessBulkEvents failed: %v", err)
	}
	if result.Ended != 1 || result.Failed != 0 {
		t.Errorf("expected 1 ended, got %+v", result)
	}
	if store.active[55] != nil {
		t.Error("session should no longer be active")
	}
	ended := store.recent[55]
	if ended == nil || ended.IdleTime != 120 || ended.Messages != 14 {
		t.Errorf("counters not persisted on end, got %+v", ended)
	}
	if len(reviews.calls) != 1 || reviews.calls[0].idleTime != 120 {
		t.Errorf("expected a review notification with final counters, got %+v", reviews.calls)
	}
}

func TestProcessBulkEventsLateEndRecovery(t *testing.T) {
	store := newFakeActivityStore()
	endedAt := time.Now().Add(-10 * time.Second)
	store.recent[55] = &model.ActivitySession{ActivityID: "a1", UserID: 55, WorkspaceGroupID: 42, StartTime: endedAt.Add(-time.Hour), EndTime: &endedAt}
	reviews := &fakeReviews{}
	ingestor := newIngestor(store, reviews, 0)

	idle := int64(120)
	ev := event(dto.EventEnd, "55")
	ev.IdleTime = &idle

	result, err := ingestor.ProcessBulkEvents(context.Background(), "valid-key", []dto.BulkEvent{ev})
	if err != nil {
		t.Fatalf("ProcessBulkEvents failed: %v", err)
	}
	if result.Ended != 1 || result.Failed != 0 {
		t.Errorf("a late duplicate end within the grace window must count as ended, got %+v", result)
	}
	if len(store.updates) != 1 || store.updates[0].idleTime != 120 {
		t.Errorf("expected the newer idle time to overwrite stored counters, got %+v", store.updates)
	}
	if len(reviews.calls) != 1 || reviews.calls[0].idleTime != 120 {
		t.Errorf("review notification should carry the updated counters, got %+v", reviews.calls)
	}
}

func TestProcessBulkEventsNoActiveSession(t *testing.T) {
	store := newFakeActivityStore()
	// Ended long before the grace window.
	endedAt := time.Now().Add(-10 * time.Minute)
	store.recent[55] = &model.ActivitySession{ActivityID: "a1", UserID: 55, WorkspaceGroupID: 42, EndTime: &endedAt}
	ingestor := newIngestor(store, &fakeReviews{}, 0)

	result, err := ingestor.ProcessBulkEvents(context.Background(), "valid-key", []dto.BulkEvent{event(dto.EventEnd, "55")})
	if err != nil {
		t.Fatalf("ProcessBulkEvents failed: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected 1 failed, got %+v", result)
	}
	if result.Errors[0] != "No active session for user 55" {
		t.Errorf("unexpected error message %q", result.Errors[0])
	}
}

func TestProcessBulkEventsInvalidType(t *testing.T) {
	ingestor := newIngestor(newFakeActivityStore(), &fakeReviews{}, 0)

	result, err := ingestor.ProcessBulkEvents(context.Background(), "valid-key", []dto.BulkEvent{event("bogus", "55")})
	if err != nil {
		t.Fatalf("ProcessBulkEvents failed: %v", err)
	}
	if result.Failed != 1 || result.Errors[0] != "Invalid event type: bogus" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestProcessBulkEventsPartialFailure(t *testing.T) {
	store := newFakeActivityStore()
	ingestor := newIngestor(store, &fakeReviews{}, 0)

	events := []dto.BulkEvent{
		event(dto.EventCreate, "55"),
		event(dto.EventCreate, "abc"),
		event(dto.EventEnd, "55"),
	}

	result, err := ingestor.ProcessBulkEvents(context.Background(), "valid-key", events)
	if err != nil {
		t.Fatalf("ProcessBulkEvents failed: %v", err)
	}
	if result.Created != 1 || result.Ended != 1 || result.Failed != 1 {
		t.Errorf("expected 1 created, 1 ended, 1 failed, got %+v", result)
	}
	if result.Errors[0] != "Invalid userid: abc" {
		t.Errorf("unexpected error message %q", result.Errors[0])
	}
}

func TestProcessBulkEventsRankGate(t *testing.T) {
	store := newFakeActivityStore()
	ingestor := newIngestor(store, &fakeReviews{}, 20)

	result, err := ingestor.ProcessBulkEvents(context.Background(), "valid-key", []dto.BulkEvent{event(dto.EventCreate, "55")})
	if err != nil {
		t.Fatalf("ProcessBulkEvents failed: %v", err)
	}
	if result.Created != 0 || result.Failed != 0 || len(result.Errors) != 0 {
		t.Errorf("below-rank events must be skipped silently, got %+v", result)
	}
	if store.active[55] != nil {
		t.Error("no session must be created for a below-rank member")
	}
}
