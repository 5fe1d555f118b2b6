package services

import (
	"testing"
	"time"

	"main/model"
)

func TestResolveStatus(t *testing.T) {
	start := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	statuses := []model.SessionStatus{
		{Name: "Starting Soon", TimeAfter: 0},
		{Name: "In Progress", TimeAfter: 5},
		{Name: "Wrapping Up", TimeAfter: 25},
	}

	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"before start", -time.Minute, ""},
		{"at start", 0, "Starting Soon"},
		{"between thresholds", 3 * time.Minute, "Starting Soon"},
		{"at threshold boundary", 5 * time.Minute, "In Progress"},
		{"past last threshold", 40 * time.Minute, "Wrapping Up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveStatus(start, 30, statuses, start.Add(tt.elapsed))
			if got != tt.want {
				t.Errorf("ResolveStatus(%v) = %q, want %q", tt.elapsed, got, tt.want)
			}
		})
	}

	t.Run("no statuses defined", func(t *testing.T) {
		if got := ResolveStatus(start, 30, nil, start.Add(10*time.Minute)); got != "" {
			t.Errorf("expected empty status, got %q", got)
		}
	})

	t.Run("monotonic over a session", func(t *testing.T) {
		previousIndex := -1
		indexOf := func(name string) int {
			for i, s := range statuses {
				if s.Name == name {
					return i
				}
			}
			return -1
		}
		for minute := 0; minute <= 30; minute++ {
			got := ResolveStatus(start, 30, statuses, start.Add(time.Duration(minute)*time.Minute))
			if idx := indexOf(got); idx < previousIndex {
				t.Fatalf("status regressed at minute %d: %q", minute, got)
			} else {
				previousIndex = idx
			}
		}
	})
}

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{
		"username": "builderman",
		"status":   "In Progress",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"substitutes known tokens", "{username} is {status}", "builderman is In Progress"},
		{"unknown token passes through", "hello {nobody}", "hello {nobody}"},
		{"repeated token", "{username} {username}", "builderman builderman"},
		{"no tokens", "plain text", "plain text"},
		{"mixed known and unknown", "{username}: {missing}", "builderman: {missing}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderTemplate(tt.template, vars); got != tt.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}
