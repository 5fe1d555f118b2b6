package services

import (
	"regexp"
	"time"

	"main/model"
)

// StatusConcluded is the terminal status label written when a session's
// scheduled end has passed. It always wins over threshold statuses.
const StatusConcluded = "Concluded"

// ResolveStatus maps elapsed time since a session's scheduled start to the
// currently applicable status label. Statuses act as ascending thresholds:
// the last entry whose TimeAfter is at or below the elapsed minutes wins
// (boundaries are inclusive). Returns "" before the session starts or when
// no threshold has been met yet.
func ResolveStatus(start time.Time, durationMinutes int, statuses []model.SessionStatus, now time.Time) string {
	elapsed := now.Sub(start).Minutes()
	if elapsed < 0 {
		return ""
	}

	current := ""
	for _, status := range statuses {
		if float64(status.TimeAfter) <= elapsed {
			current = status.Name
		}
	}
	return current
}

var templateTokenPattern = regexp.MustCompile(`\{([a-zA-Z]+)\}`)

// RenderTemplate substitutes {token} placeholders from vars. Tokens without
// a mapping pass through literally.
func RenderTemplate(template string, vars map[string]string) string {
	return templateTokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		token := match[1 : len(match)-1]
		if value, ok := vars[token]; ok {
			return value
		}
		return match
	})
}
