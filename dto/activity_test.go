package dto

import (
	"encoding/json"
	"testing"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		want    int64
		wantErr bool
	}{
		{"valid id", "12345", 12345, false},
		{"non-numeric", "abc", 0, true},
		{"float", "1.5", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := BulkEvent{UserID: EventUserID(tt.userID)}
			got, err := e.ParseUserID()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUserID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseUserID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBulkEventValidate(t *testing.T) {
	negative := int64(-1)
	valid := int64(5)

	t.Run("negative idle time rejected", func(t *testing.T) {
		e := BulkEvent{Type: EventEnd, UserID: EventUserID("55"), IdleTime: &negative}
		if err := e.Validate(); err == nil {
			t.Error("expected validation error for negative idleTime")
		}
	})

	t.Run("valid counters accepted", func(t *testing.T) {
		e := BulkEvent{Type: EventEnd, UserID: EventUserID("55"), IdleTime: &valid, Messages: &valid}
		if err := e.Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	})

	t.Run("malformed userid fails only that event", func(t *testing.T) {
		var req BulkRequest
		body := `{"events":[{"type":"create","userid":55},{"type":"create","userid":"abc"}]}`
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("batch with one malformed id must still decode: %v", err)
		}
		if _, err := req.Events[0].ParseUserID(); err != nil {
			t.Errorf("first event should parse: %v", err)
		}
		if _, err := req.Events[1].ParseUserID(); err == nil {
			t.Error("second event should fail to parse")
		}
	})
}
