package model

// APIKey maps an opaque activity-reporter key to exactly one workspace.
// MinimumRank gates which group members may be tracked: events for users at
// or below this rank are skipped.
type APIKey struct {
	Key              string `bson:"key" json:"key"`
	WorkspaceGroupID int64  `bson:"workspace_group_id" json:"workspace_group_id"`
	MinimumRank      int    `bson:"minimum_rank" json:"minimum_rank"`
}

// Notification channel kinds.
const (
	ChannelDiscord = "discord"
	ChannelWebhook = "webhook"
)

// NotificationConfig is a workspace's outbound notification settings.
// Templates overrides the default message bodies per transition kind
// ("start", "status", "concluded", "review", "birthday"); missing keys fall
// back to built-in defaults.
type NotificationConfig struct {
	WorkspaceGroupID int64             `bson:"workspace_group_id" json:"workspace_group_id"`
	Enabled          bool              `bson:"enabled" json:"enabled"`
	Channel          string            `bson:"channel" json:"channel"`
	ChannelID        string            `bson:"channel_id,omitempty" json:"channel_id,omitempty"`
	WebhookURL       string            `bson:"webhook_url,omitempty" json:"webhook_url,omitempty"`
	WorkspaceName    string            `bson:"workspace_name,omitempty" json:"workspace_name,omitempty"`
	BirthdayEnabled  bool              `bson:"birthday_enabled" json:"birthday_enabled"`
	Templates        map[string]string `bson:"templates,omitempty" json:"templates,omitempty"`
}

// Destination is the throttle/send key for the configured channel.
func (c *NotificationConfig) Destination() string {
	if c.Channel == ChannelWebhook {
		return c.WebhookURL
	}
	return c.ChannelID
}
