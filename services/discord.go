package services

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordChannel delivers notifications to a Discord channel through the bot
// REST API. Destination is the channel id; message edits address the
// original message by id.
type DiscordChannel struct {
	session *discordgo.Session
}

func NewDiscordChannel(botToken string) (*DiscordChannel, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord bot token cannot be empty")
	}
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return &DiscordChannel{session: s}, nil
}

func (d *DiscordChannel) embed(msg *Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       msg.Color,
	}
	if msg.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: msg.Footer}
	}
	return embed
}

func (d *DiscordChannel) SendMessage(ctx context.Context, destination string, msg *Message) (string, error) {
	sent, err := d.session.ChannelMessageSendEmbed(destination, d.embed(msg), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send discord message: %w", err)
	}
	return sent.ID, nil
}

func (d *DiscordChannel) EditMessage(ctx context.Context, destination, messageID string, msg *Message) error {
	embeds := []*discordgo.MessageEmbed{d.embed(msg)}
	_, err := d.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: destination,
		ID:      messageID,
		Embeds:  &embeds,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to edit discord message: %w", err)
	}
	return nil
}
