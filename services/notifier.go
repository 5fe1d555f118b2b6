package services

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"main/model"
	"main/utils"
)

// Transition kinds, used as template keys in a workspace's notification
// config.
const (
	TransitionStart     = "start"
	TransitionStatus    = "status"
	TransitionConcluded = "concluded"
	TransitionReview    = "review"
	TransitionBirthday  = "birthday"
)

// Message is the channel-independent notification payload. Discord renders
// it as an embed, the webhook channel as a JSON document.
type Message struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Footer      string `json:"footer,omitempty"`
}

// Channel delivers messages to one destination kind. SendMessage returns the
// provider's message id when the channel supports later edits, "" otherwise.
type Channel interface {
	SendMessage(ctx context.Context, destination string, msg *Message) (string, error)
	EditMessage(ctx context.Context, destination, messageID string, msg *Message) error
}

// ConfigSource resolves a workspace's notification configuration.
type ConfigSource interface {
	GetConfig(workspaceGroupID int64) (*model.NotificationConfig, error)
}

// MessageIDStore persists the id of a sent start notification for later
// edits.
type MessageIDStore interface {
	SetDiscordMessageID(sessionID, messageID string) error
}

const (
	defaultSendTimeout = 10 * time.Second
	defaultSendSpacing = time.Second
	dispatchQueueSize  = 256
)

var defaultTemplates = map[string]string{
	TransitionStart:     "**{sessionType}** is starting now in **{workspace}**! Hosted by **{username}**.",
	TransitionStatus:    "**{sessionType}** in **{workspace}** is now: **{status}**",
	TransitionConcluded: "**{sessionType}** in **{workspace}** has concluded.",
	TransitionReview:    "**{username}** was active for {duration} minutes with {messages} messages and {idleTime}s idle.\n{sessionMessage}",
	TransitionBirthday:  "It's **{username}**'s birthday today!\n\nWish them a happy birthday!",
}

var transitionColors = map[string]int{
	TransitionStart:     0x3b82f6,
	TransitionStatus:    0xf59e0b,
	TransitionConcluded: 0x6b7280,
	TransitionReview:    0x10b981,
	TransitionBirthday:  0xff0099,
}

// Dispatcher translates lifecycle transitions into outbound messages.
// Delivery runs on a single background worker so callers never block on a
// third-party API; consecutive sends to the same destination are spaced by
// SendSpacing to stay under provider rate limits.
type Dispatcher struct {
	Configs  ConfigSource
	Discord  Channel
	Webhook  Channel
	Sessions MessageIDStore

	SendTimeout time.Duration
	SendSpacing time.Duration

	tasks     chan func()
	wg        sync.WaitGroup
	startOnce sync.Once

	mu       sync.Mutex
	lastSend map[string]time.Time
}

func NewDispatcher(configs ConfigSource, discord, webhook Channel, sessions MessageIDStore) *Dispatcher {
	return &Dispatcher{
		Configs:     configs,
		Discord:     discord,
		Webhook:     webhook,
		Sessions:    sessions,
		SendTimeout: defaultSendTimeout,
		SendSpacing: defaultSendSpacing,
		tasks:       make(chan func(), dispatchQueueSize),
		lastSend:    make(map[string]time.Time),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for task := range d.tasks {
				task()
			}
		}()
	})
}

// Close drains queued deliveries and stops the worker.
func (d *Dispatcher) Close() {
	close(d.tasks)
	d.wg.Wait()
}

func (d *Dispatcher) enqueue(name string, task func()) {
	select {
	case d.tasks <- task:
	default:
		utils.TrackError("notification", "queue_full")
		log.Printf("Warning: notification queue full, dropping %s task", name)
	}
}

// channelFor picks the configured channel implementation and its
// destination.
func (d *Dispatcher) channelFor(config *model.NotificationConfig) (Channel, string, string) {
	if config.Channel == model.ChannelWebhook {
		return d.Webhook, config.WebhookURL, model.ChannelWebhook
	}
	return d.Discord, config.ChannelID, model.ChannelDiscord
}

// throttle spaces consecutive sends to the same destination.
func (d *Dispatcher) throttle(destination string) {
	d.mu.Lock()
	last := d.lastSend[destination]
	now := time.Now()
	wait := d.SendSpacing - now.Sub(last)
	if wait > 0 {
		d.lastSend[destination] = now.Add(wait)
		d.mu.Unlock()
		time.Sleep(wait)
		return
	}
	d.lastSend[destination] = now
	d.mu.Unlock()
}

func (d *Dispatcher) loadConfig(workspaceGroupID int64) *model.NotificationConfig {
	config, err := d.Configs.GetConfig(workspaceGroupID)
	if err != nil {
		utils.TrackError("notification", "config_lookup_failed")
		log.Printf("Warning: failed to load notification config for workspace %d: %v", workspaceGroupID, err)
		return nil
	}
	if config == nil || !config.Enabled {
		return nil
	}
	return config
}

func (d *Dispatcher) buildMessage(config *model.NotificationConfig, transition, title string, vars map[string]string) *Message {
	template := defaultTemplates[transition]
	if custom, ok := config.Templates[transition]; ok && custom != "" {
		template = custom
	}
	vars["workspace"] = workspaceName(config)
	return &Message{
		Title:       title,
		Description: RenderTemplate(template, vars),
		Color:       transitionColors[transition],
		Footer:      workspaceName(config),
	}
}

func workspaceName(config *model.NotificationConfig) string {
	if config.WorkspaceName != "" {
		return config.WorkspaceName
	}
	return "Workspace"
}

// NotifySessionStart sends the initial session message. The send itself
// captures the message id and persists it so later status transitions can
// edit the same message; from the caller's perspective it is fire-and-forget.
func (d *Dispatcher) NotifySessionStart(workspaceGroupID int64, session model.Session, sessionTypeName, hostUsername string) {
	d.enqueue("session-start", func() {
		config := d.loadConfig(workspaceGroupID)
		if config == nil {
			return
		}

		vars := map[string]string{
			"sessionType": sessionTypeName,
			"username":    hostUsername,
			"duration":    strconv.Itoa(session.DurationMinutes()),
		}
		msg := d.buildMessage(config, TransitionStart, "\U0001F4C5 Session Started", vars)

		channel, destination, kind := d.channelFor(config)
		if channel == nil || destination == "" {
			return
		}

		d.throttle(destination)
		ctx, cancel := context.WithTimeout(context.Background(), d.SendTimeout)
		defer cancel()

		messageID, err := channel.SendMessage(ctx, destination, msg)
		utils.TrackNotification(kind, err)
		if err != nil {
			log.Printf("[SessionNotify] Failed to send start notification for session %s: %v", session.SessionID, err)
			return
		}

		if messageID != "" && d.Sessions != nil {
			if err := d.Sessions.SetDiscordMessageID(session.SessionID, messageID); err != nil {
				log.Printf("Warning: failed to store notification message id for session %s: %v", session.SessionID, err)
			}
		}
	})
}

// EditSessionStatus edits the previously sent session message to reflect a
// new status label. No-ops when no message was ever sent.
func (d *Dispatcher) EditSessionStatus(workspaceGroupID int64, session model.Session, sessionTypeName, status string) {
	if session.DiscordMessageID == "" {
		return
	}
	d.enqueue("session-status", func() {
		config := d.loadConfig(workspaceGroupID)
		if config == nil {
			return
		}

		transition := TransitionStatus
		if status == StatusConcluded {
			transition = TransitionConcluded
		}
		vars := map[string]string{
			"sessionType": sessionTypeName,
			"status":      status,
		}
		msg := d.buildMessage(config, transition, "\U0001F4C5 "+sessionTypeName, vars)

		channel, destination, kind := d.channelFor(config)
		if channel == nil || destination == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.SendTimeout)
		defer cancel()

		err := channel.EditMessage(ctx, destination, session.DiscordMessageID, msg)
		utils.TrackNotification(kind, err)
		if err != nil {
			log.Printf("[SessionNotify] Failed to edit notification for session %s: %v", session.SessionID, err)
		}
	})
}

// NotifySessionReview sends the post-activity summary after an activity
// session ends.
func (d *Dispatcher) NotifySessionReview(workspaceGroupID int64, activity model.ActivitySession, username string) {
	d.enqueue("session-review", func() {
		config := d.loadConfig(workspaceGroupID)
		if config == nil {
			return
		}

		duration := int64(0)
		if activity.EndTime != nil {
			duration = int64(activity.EndTime.Sub(activity.StartTime).Minutes())
		}
		vars := map[string]string{
			"username":       username,
			"userId":         strconv.FormatInt(activity.UserID, 10),
			"duration":       strconv.FormatInt(duration, 10),
			"idleTime":       strconv.FormatInt(activity.IdleTime, 10),
			"messages":       strconv.FormatInt(activity.Messages, 10),
			"sessionMessage": activity.SessionMessage,
		}
		msg := d.buildMessage(config, TransitionReview, "\U0001F4DD Session Review", vars)

		channel, destination, kind := d.channelFor(config)
		if channel == nil || destination == "" {
			return
		}

		d.throttle(destination)
		ctx, cancel := context.WithTimeout(context.Background(), d.SendTimeout)
		defer cancel()

		_, err := channel.SendMessage(ctx, destination, msg)
		utils.TrackNotification(kind, err)
		if err != nil {
			log.Printf("[SessionReview] Failed to send review for activity %s: %v", activity.ActivityID, err)
		}
	})
}

// NotifyBirthday sends a birthday celebration message for one member.
func (d *Dispatcher) NotifyBirthday(workspaceGroupID int64, user model.User) {
	d.enqueue("birthday", func() {
		config := d.loadConfig(workspaceGroupID)
		if config == nil || !config.BirthdayEnabled {
			return
		}

		username := user.Username
		if username == "" {
			username = strconv.FormatInt(user.UserID, 10)
		}
		vars := map[string]string{
			"username": username,
			"userId":   strconv.FormatInt(user.UserID, 10),
		}
		msg := d.buildMessage(config, TransitionBirthday, "\U0001F389 Birthday Celebration! \U0001F389", vars)

		channel, destination, kind := d.channelFor(config)
		if channel == nil || destination == "" {
			return
		}

		d.throttle(destination)
		ctx, cancel := context.WithTimeout(context.Background(), d.SendTimeout)
		defer cancel()

		_, err := channel.SendMessage(ctx, destination, msg)
		utils.TrackNotification(kind, err)
		if err != nil {
			log.Printf("[Birthday] Failed to send birthday notification for user %d: %v", user.UserID, err)
		}
	})
}
