package services

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"main/model"
	"main/utils"
)

// SessionStore is the persisted view of scheduled sessions the reconciler
// works against. Implementations must only ever return not-yet-ended
// sessions from FindOpenSessions.
type SessionStore interface {
	FindOpenSessions(now time.Time) ([]model.Session, error)
	MarkStarted(sessionID string, startedAt time.Time) error
	MarkConcluded(sessionID string, endedAt time.Time) error
	SetDiscordStatus(sessionID, status string) error
}

type SessionTypeSource interface {
	GetSessionType(sessionTypeID string) (*model.SessionType, error)
}

type UserSource interface {
	GetUser(userID int64) (*model.User, error)
}

// SessionNotifier receives lifecycle transitions. Calls must not block on
// delivery; failures are the notifier's to log.
type SessionNotifier interface {
	NotifySessionStart(workspaceGroupID int64, session model.Session, sessionTypeName, hostUsername string)
	EditSessionStatus(workspaceGroupID int64, session model.Session, sessionTypeName, status string)
}

type ReconcileResult struct {
	Started       int
	Ended         int
	StatusUpdated int
}

// Reconciler advances every open session's lifecycle state on each pass.
// A pass is idempotent: running it twice at the same wall-clock time
// produces no additional mutations or notifications.
type Reconciler struct {
	Sessions SessionStore
	Types    SessionTypeSource
	Users    UserSource
	Notifier SessionNotifier
}

// Reconcile processes every open session whose scheduled date has passed.
// One session's failure is logged and skipped; the pass always continues.
func (rc *Reconciler) Reconcile(now time.Time) (ReconcileResult, error) {
	var result ReconcileResult

	sessions, err := rc.Sessions.FindOpenSessions(now)
	if err != nil {
		return result, fmt.Errorf("failed to load open sessions: %w", err)
	}

	for i := range sessions {
		if err := rc.reconcileSession(&sessions[i], now, &result); err != nil {
			utils.TrackError("reconcile", "session_failed")
			log.Printf("[Reconcile] Error processing session %s: %v", sessions[i].SessionID, err)
		}
	}

	return result, nil
}

func (rc *Reconciler) reconcileSession(session *model.Session, now time.Time, result *ReconcileResult) error {
	sessionType, err := rc.Types.GetSessionType(session.SessionTypeID)
	if err != nil {
		return err
	}
	if sessionType == nil {
		return fmt.Errorf("unknown session type %s", session.SessionTypeID)
	}

	// Concluded wins over any status transition at the boundary.
	endTime := session.EndTime()
	if !endTime.After(now) {
		if err := rc.Sessions.MarkConcluded(session.SessionID, endTime); err != nil {
			return err
		}
		session.LastDiscordStatus = StatusConcluded
		rc.Notifier.EditSessionStatus(sessionType.WorkspaceGroupID, *session, sessionType.Name, StatusConcluded)
		result.Ended++
		utils.SessionsConcludedTotal.Inc()
		return nil
	}

	if session.StartedAt == nil {
		if err := rc.Sessions.MarkStarted(session.SessionID, session.Date); err != nil {
			return err
		}
		startedAt := session.Date
		session.StartedAt = &startedAt
		rc.Notifier.NotifySessionStart(sessionType.WorkspaceGroupID, *session, sessionType.Name, rc.hostUsername(session))
		result.Started++
		utils.SessionsStartedTotal.Inc()
	}

	// Status tick: only sessions with a sent notification can be edited.
	if session.DiscordMessageID != "" {
		current := ResolveStatus(session.Date, session.DurationMinutes(), sessionType.Statuses, now)
		if current != "" && current != session.LastDiscordStatus {
			if err := rc.Sessions.SetDiscordStatus(session.SessionID, current); err != nil {
				return err
			}
			session.LastDiscordStatus = current
			rc.Notifier.EditSessionStatus(sessionType.WorkspaceGroupID, *session, sessionType.Name, current)
			result.StatusUpdated++
			utils.SessionStatusUpdatesTotal.Inc()
		}
	}

	return nil
}

func (rc *Reconciler) hostUsername(session *model.Session) string {
	if session.OwnerID == nil {
		return "Unknown"
	}
	if rc.Users != nil {
		user, err := rc.Users.GetUser(*session.OwnerID)
		if err != nil {
			log.Printf("Warning: failed to resolve host %d: %v", *session.OwnerID, err)
		} else if user != nil && user.Username != "" {
			return user.Username
		}
	}
	return strconv.FormatInt(*session.OwnerID, 10)
}
