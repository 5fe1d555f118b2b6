package model

import "time"

// ActivitySession is a user's live attendance window, opened by a "create"
// event and closed by an "end" event. At most one active session may exist
// per (user, workspace) pair; the activity repository enforces this with a
// conditional write backed by a partial unique index.
type ActivitySession struct {
	ActivityID       string     `bson:"activity_id" json:"activity_id"`
	UserID           int64      `bson:"user_id" json:"user_id"`
	WorkspaceGroupID int64      `bson:"workspace_group_id" json:"workspace_group_id"`
	Active           bool       `bson:"active" json:"active"`
	StartTime        time.Time  `bson:"start_time" json:"start_time"`
	EndTime          *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`
	IdleTime         int64      `bson:"idle_time" json:"idle_time"`
	Messages         int64      `bson:"messages" json:"messages"`
	UniverseID       *int64     `bson:"universe_id,omitempty" json:"universe_id,omitempty"`
	SessionMessage   string     `bson:"session_message,omitempty" json:"session_message,omitempty"`
}
