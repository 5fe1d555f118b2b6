package dto

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Bulk event types reported by the in-game activity agent.
const (
	EventCreate = "create"
	EventEnd    = "end"
)

// EventUserID tolerates both JSON numbers and strings when decoding, so a
// malformed id fails that single event instead of the whole request body.
type EventUserID string

func (u *EventUserID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = EventUserID(s)
		return nil
	}
	*u = EventUserID(data)
	return nil
}

func (u EventUserID) String() string {
	return string(u)
}

// BulkEvent is one occupancy event in a reported batch.
type BulkEvent struct {
	Type     string      `json:"type"`
	UserID   EventUserID `json:"userid"`
	PlaceID  *int64      `json:"placeid,omitempty" validate:"omitempty,gt=0"`
	IdleTime *int64      `json:"idleTime,omitempty" validate:"omitempty,gte=0"`
	Messages *int64      `json:"messages,omitempty" validate:"omitempty,gte=0"`
}

var validate = validator.New()

// Validate checks the optional numeric fields. Type and UserID are checked
// separately so their failures produce the reporter-facing error strings.
func (e *BulkEvent) Validate() error {
	return validate.Struct(e)
}

// ParseUserID validates and converts the reported user id.
func (e *BulkEvent) ParseUserID() (int64, error) {
	id, err := strconv.ParseInt(string(e.UserID), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid userid: %s", e.UserID.String())
	}
	return id, nil
}

type BulkRequest struct {
	Events []BulkEvent `json:"events" binding:"required,min=1"`
}

// BulkResult aggregates per-event outcomes. Every event increments exactly
// one of Created, Ended or Failed (rank-gated and duplicate-create events
// increment nothing).
type BulkResult struct {
	Created int      `json:"created"`
	Ended   int      `json:"ended"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

type BulkResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Results *BulkResult `json:"results,omitempty"`
}
