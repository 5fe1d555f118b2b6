package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RobloxClient wraps the public Roblox web APIs used for profile, rank and
// place-name resolution. Base URLs are fields so tests can point the client
// at a local server.
type RobloxClient struct {
	UsersBaseURL  string
	GroupsBaseURL string
	GamesBaseURL  string
	APIsBaseURL   string

	client *http.Client
}

func NewRobloxClient() *RobloxClient {
	return &RobloxClient{
		UsersBaseURL:  "https://users.roblox.com",
		GroupsBaseURL: "https://groups.roblox.com",
		GamesBaseURL:  "https://games.roblox.com",
		APIsBaseURL:   "https://apis.roblox.com",
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *RobloxClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("roblox api returned status %d for %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetUsername resolves a user id to its current username.
func (r *RobloxClient) GetUsername(ctx context.Context, userID int64) (string, error) {
	var body struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	}
	url := fmt.Sprintf("%s/v1/users/%d", r.UsersBaseURL, userID)
	if err := r.getJSON(ctx, url, &body); err != nil {
		return "", fmt.Errorf("failed to fetch username for %d: %w", userID, err)
	}
	if body.Name == "" {
		return "", fmt.Errorf("no username returned for %d", userID)
	}
	return body.Name, nil
}

// GetUsernames resolves a batch of user ids in one call. Users missing from
// the response (deleted accounts) are absent from the returned map.
func (r *RobloxClient) GetUsernames(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"userIds":            userIDs,
		"excludeBannedUsers": false,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.UsersBaseURL+"/v1/users", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roblox users api returned status %d", resp.StatusCode)
	}

	var body struct {
		Data []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(body.Data))
	for _, user := range body.Data {
		names[user.ID] = user.Name
	}
	return names, nil
}

// ThumbnailURL returns the headshot URL for a user. The URL is derived, not
// fetched, so this never fails.
func (r *RobloxClient) ThumbnailURL(userID int64) string {
	return fmt.Sprintf("https://www.roblox.com/headshot-thumbnail/image?userId=%d&width=420&height=420&format=png", userID)
}

// GetRankInGroup returns the user's rank (0-255) in the group, 0 when the
// user is not a member.
func (r *RobloxClient) GetRankInGroup(ctx context.Context, groupID, userID int64) (int, error) {
	var body struct {
		Data []struct {
			Group struct {
				ID int64 `json:"id"`
			} `json:"group"`
			Role struct {
				Rank int `json:"rank"`
			} `json:"role"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/v2/users/%d/groups/roles", r.GroupsBaseURL, userID)
	if err := r.getJSON(ctx, url, &body); err != nil {
		return 0, fmt.Errorf("failed to fetch group roles for %d: %w", userID, err)
	}
	for _, membership := range body.Data {
		if membership.Group.ID == groupID {
			return membership.Role.Rank, nil
		}
	}
	return 0, nil
}

// GetPlaceName resolves a place id to its universe's display name. Returns
// "" when the place is unknown.
func (r *RobloxClient) GetPlaceName(ctx context.Context, placeID int64) (string, error) {
	var universe struct {
		UniverseID int64 `json:"universeId"`
	}
	url := fmt.Sprintf("%s/universes/v1/places/%d/universe", r.APIsBaseURL, placeID)
	if err := r.getJSON(ctx, url, &universe); err != nil {
		return "", fmt.Errorf("failed to resolve universe for place %d: %w", placeID, err)
	}
	if universe.UniverseID == 0 {
		return "", nil
	}

	var games struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	url = fmt.Sprintf("%s/v1/games?universeIds=%d", r.GamesBaseURL, universe.UniverseID)
	if err := r.getJSON(ctx, url, &games); err != nil {
		return "", fmt.Errorf("failed to fetch universe info for place %d: %w", placeID, err)
	}
	if len(games.Data) == 0 {
		return "", nil
	}
	return games.Data[0].Name, nil
}
