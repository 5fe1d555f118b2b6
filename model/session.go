package model

import "time"

// DefaultSessionDuration is applied when a session was stored without an
// explicit duration (legacy rows).
const DefaultSessionDuration = 30

// SessionStatus is a time-threshold label defined on a session type.
// TimeAfter is the offset in minutes from the scheduled start at which
// the status begins to apply.
type SessionStatus struct {
	Name      string `bson:"name" json:"name"`
	TimeAfter int    `bson:"time_after" json:"timeAfter"`
}

type SessionType struct {
	SessionTypeID    string          `bson:"session_type_id" json:"session_type_id"`
	WorkspaceGroupID int64           `bson:"workspace_group_id" json:"workspace_group_id"`
	Name             string          `bson:"name" json:"name"`
	Statuses         []SessionStatus `bson:"statuses" json:"statuses"`
}

// Session is a scheduled event instance. StartedAt is set once by the
// reconciler, Ended is set at most once and is never cleared; a session
// with a non-nil Ended is terminal.
type Session struct {
	SessionID         string     `bson:"session_id" json:"session_id"`
	SessionTypeID     string     `bson:"session_type_id" json:"session_type_id"`
	Name              string     `bson:"name,omitempty" json:"name,omitempty"`
	Date              time.Time  `bson:"date" json:"date"`
	Duration          int        `bson:"duration" json:"duration"`
	OwnerID           *int64     `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	StartedAt         *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	Ended             *time.Time `bson:"ended,omitempty" json:"ended,omitempty"`
	DiscordMessageID  string     `bson:"discord_message_id,omitempty" json:"discord_message_id,omitempty"`
	LastDiscordStatus string     `bson:"last_discord_status,omitempty" json:"last_discord_status,omitempty"`
}

// DurationMinutes returns the stored duration, falling back to the default
// for rows created before duration became a required field.
func (s *Session) DurationMinutes() int {
	if s.Duration <= 0 {
		return DefaultSessionDuration
	}
	return s.Duration
}

// EndTime is the scheduled end (start + duration).
func (s *Session) EndTime() time.Time {
	return s.Date.Add(time.Duration(s.DurationMinutes()) * time.Minute)
}
