package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"main/dto"
	"main/model"
	"main/utils"

	"github.com/google/uuid"
)

// recentEndGrace is the window in which an "end" event for a user with no
// active session is treated as a late duplicate of an already-processed end
// instead of a failure. Reporting agents retry over flaky game-server
// networking, so the same end can arrive twice.
const recentEndGrace = 60 * time.Second

// ErrUnauthorized rejects an entire bulk call when the reporter key maps to
// no workspace.
var ErrUnauthorized = errors.New("unknown authorization key")

// ActivityStore is the tenant-scoped persistence contract for attendance
// sessions. Every method takes the workspace id explicitly; there is no
// unscoped query path.
type ActivityStore interface {
	FindActive(workspaceGroupID, userID int64) (*model.ActivitySession, error)
	FindRecentlyEnded(workspaceGroupID, userID int64, within time.Duration) (*model.ActivitySession, error)
	CreateIfNoneActive(session model.ActivitySession) (bool, error)
	EndSession(activityID string, endTime time.Time, idleTime, messages int64) error
	UpdateCounters(activityID string, idleTime, messages int64) error
}

type KeyResolver interface {
	ResolveKey(key string) (*model.APIKey, error)
}

type ProfileStore interface {
	UpsertProfile(userID, workspaceGroupID int64, username, picture string) error
}

// UserInfoSource is the external profile/rank/place-name lookup (the Roblox
// web APIs in production).
type UserInfoSource interface {
	GetUsername(ctx context.Context, userID int64) (string, error)
	ThumbnailURL(userID int64) string
	GetRankInGroup(ctx context.Context, groupID, userID int64) (int, error)
	GetPlaceName(ctx context.Context, placeID int64) (string, error)
}

type ReviewNotifier interface {
	NotifySessionReview(workspaceGroupID int64, activity model.ActivitySession, username string)
}

// BulkIngestor processes reporter-submitted batches of occupancy events.
// Events are independent: one event's failure never aborts the batch, and
// each event's write is durable before the next is attempted.
type BulkIngestor struct {
	Keys     KeyResolver
	Activity ActivityStore
	Profiles ProfileStore
	Roblox   UserInfoSource
	Notifier ReviewNotifier

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

func (bi *BulkIngestor) now() time.Time {
	if bi.Now != nil {
		return bi.Now()
	}
	return time.Now()
}

// ProcessBulkEvents resolves the reporter key to a workspace and processes
// the events in array order. Returns ErrUnauthorized (and no partial
// processing) for an unknown key.
func (bi *BulkIngestor) ProcessBulkEvents(ctx context.Context, key string, events []dto.BulkEvent) (dto.BulkResult, error) {
	result := dto.BulkResult{Errors: []string{}}

	apiKey, err := bi.Keys.ResolveKey(key)
	if err != nil {
		return result, fmt.Errorf("failed to resolve authorization key: %w", err)
	}
	if apiKey == nil {
		return result, ErrUnauthorized
	}

	for i := range events {
		bi.processEvent(ctx, apiKey, &events[i], &result)
	}

	log.Printf("[BULK] Processed %d creates, %d ends, %d failed for group %d",
		result.Created, result.Ended, result.Failed, apiKey.WorkspaceGroupID)

	return result, nil
}

func fail(result *dto.BulkResult, eventType, message string) {
	result.Failed++
	result.Errors = append(result.Errors, message)
	utils.TrackActivityEvent(eventType, "failed")
}

func (bi *BulkIngestor) processEvent(ctx context.Context, apiKey *model.APIKey, event *dto.BulkEvent, result *dto.BulkResult) {
	userID, err := event.ParseUserID()
	if err != nil {
		fail(result, event.Type, fmt.Sprintf("Invalid userid: %s", event.UserID.String()))
		return
	}

	if err := event.Validate(); err != nil {
		fail(result, event.Type, fmt.Sprintf("Invalid event for user %d: %v", userID, err))
		return
	}

	// Rank gate: events for members at or below the configured minimum are
	// silently skipped, not failed.
	rank, err := bi.Roblox.GetRankInGroup(ctx, apiKey.WorkspaceGroupID, userID)
	if err != nil {
		log.Printf("Warning: rank lookup failed for user %d: %v", userID, err)
		rank = 0
	}
	if apiKey.MinimumRank > 0 && rank <= apiKey.MinimumRank {
		utils.TrackActivityEvent(event.Type, "skipped")
		return
	}

	username := bi.refreshProfile(ctx, apiKey.WorkspaceGroupID, userID)

	switch event.Type {
	case dto.EventCreate:
		bi.createSession(ctx, apiKey.WorkspaceGroupID, userID, event, result)
	case dto.EventEnd:
		bi.endSession(apiKey.WorkspaceGroupID, userID, username, event, result)
	default:
		fail(result, event.Type, fmt.Sprintf("Invalid event type: %s", event.Type))
	}
}

// refreshProfile upserts the user's lightweight profile as a side effect of
// any valid event. Best-effort: failures never fail the event.
func (bi *BulkIngestor) refreshProfile(ctx context.Context, workspaceGroupID, userID int64) string {
	username, err := bi.Roblox.GetUsername(ctx, userID)
	if err != nil {
		log.Printf("Warning: username lookup failed for user %d: %v", userID, err)
		return strconv.FormatInt(userID, 10)
	}

	if bi.Profiles != nil {
		picture := bi.Roblox.ThumbnailURL(userID)
		if err := bi.Profiles.UpsertProfile(userID, workspaceGroupID, username, picture); err != nil {
			log.Printf("Warning: failed to upsert profile for user %d: %v", userID, err)
		}
	}

	return username
}

func (bi *BulkIngestor) createSession(ctx context.Context, workspaceGroupID, userID int64, event *dto.BulkEvent, result *dto.BulkResult) {
	startTime := bi.now()

	gameName := ""
	if event.PlaceID != nil {
		name, err := bi.Roblox.GetPlaceName(ctx, *event.PlaceID)
		if err != nil {
			log.Printf("Warning: place name lookup failed for place %d: %v", *event.PlaceID, err)
		} else {
			gameName = name
		}
	}

	session := model.ActivitySession{
		ActivityID:       uuid.New().String(),
		UserID:           userID,
		WorkspaceGroupID: workspaceGroupID,
		Active:           true,
		StartTime:        startTime,
		UniverseID:       event.PlaceID,
		SessionMessage:   sessionTimeMessage(gameName, startTime),
	}

	created, err := bi.Activity.CreateIfNoneActive(session)
	if err != nil {
		fail(result, event.Type, fmt.Sprintf("Error processing event for user %d: %v", userID, err))
		return
	}
	if !created {
		// An active session already exists; duplicate create is a no-op.
		utils.TrackActivityEvent(event.Type, "skipped")
		return
	}

	log.Printf("[SESSION CREATED] User %d for group %d - %s", userID, workspaceGroupID, session.SessionMessage)
	result.Created++
	utils.TrackActivityEvent(event.Type, "created")
}

func (bi *BulkIngestor) endSession(workspaceGroupID, userID int64, username string, event *dto.BulkEvent, result *dto.BulkResult) {
	session, err := bi.Activity.FindActive(workspaceGroupID, userID)
	if err != nil {
		fail(result, event.Type, fmt.Sprintf("Error processing event for user %d: %v", userID, err))
		return
	}

	if session == nil {
		bi.recoverLateEnd(workspaceGroupID, userID, username, event, result)
		return
	}

	endTime := bi.now()
	idleTime, messages := int64(0), int64(0)
	if event.IdleTime != nil {
		idleTime = *event.IdleTime
	}
	if event.Messages != nil {
		messages = *event.Messages
	}

	if err := bi.Activity.EndSession(session.ActivityID, endTime, idleTime, messages); err != nil {
		fail(result, event.Type, fmt.Sprintf("Error processing event for user %d: %v", userID, err))
		return
	}

	session.Active = false
	session.EndTime = &endTime
	session.IdleTime = idleTime
	session.Messages = messages
	bi.Notifier.NotifySessionReview(workspaceGroupID, *session, username)

	log.Printf("[SESSION ENDED] User %d (ID: %s)", userID, session.ActivityID)
	result.Ended++
	utils.TrackActivityEvent(event.Type, "ended")
}

// recoverLateEnd absorbs a duplicate "end" that arrived after the session
// was already closed, within recentEndGrace. Newer counters overwrite the
// stored ones and the review notification still fires.
func (bi *BulkIngestor) recoverLateEnd(workspaceGroupID, userID int64, username string, event *dto.BulkEvent, result *dto.BulkResult) {
	recent, err := bi.Activity.FindRecentlyEnded(workspaceGroupID, userID, recentEndGrace)
	if err != nil {
		fail(result, event.Type, fmt.Sprintf("Error processing event for user %d: %v", userID, err))
		return
	}
	if recent == nil {
		fail(result, event.Type, fmt.Sprintf("No active session for user %d", userID))
		return
	}

	idleTime, messages := recent.IdleTime, recent.Messages
	if event.IdleTime != nil {
		idleTime = *event.IdleTime
	}
	if event.Messages != nil {
		messages = *event.Messages
	}

	if event.IdleTime != nil || event.Messages != nil {
		if err := bi.Activity.UpdateCounters(recent.ActivityID, idleTime, messages); err != nil {
			fail(result, event.Type, fmt.Sprintf("Error processing event for user %d: %v", userID, err))
			return
		}
	}

	recent.IdleTime = idleTime
	recent.Messages = messages
	bi.Notifier.NotifySessionReview(workspaceGroupID, *recent, username)

	result.Ended++
	utils.TrackActivityEvent(event.Type, "ended")
}

// sessionTimeMessage builds the human-readable summary stored on a session
// at creation.
func sessionTimeMessage(gameName string, startTime time.Time) string {
	if gameName == "" {
		return fmt.Sprintf("Joined at %s", startTime.UTC().Format("3:04 PM"))
	}
	return fmt.Sprintf("Playing %s, joined at %s", gameName, startTime.UTC().Format("3:04 PM"))
}
