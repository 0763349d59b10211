package dispatch

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/discord"
)

// SendOptions describes a channel message with components.
type SendOptions struct {
	Content         string
	Embeds          []*discordgo.MessageEmbed
	Components      []components.Component
	TTS             bool
	AllowedMentions *discordgo.MessageAllowedMentions
	Reference       *discordgo.MessageReference
	// Listener, when set, is attached to the sent message.
	Listener *Listener
}

func (o SendOptions) rows() ([]components.ActionRow, error) {
	if len(o.Components) == 0 {
		return nil, nil
	}
	return components.BuildRows(o.Components...)
}

// Send posts a message to channelID and records its layout.
func (c *Components) Send(ctx context.Context, channelID string, opts SendOptions) (*discord.Message, error) {
	rows, err := opts.rows()
	if err != nil {
		return nil, fmt.Errorf("building components: %w", err)
	}
	msg, err := c.api.SendMessage(ctx, channelID, &discord.MessageSend{
		Content:          opts.Content,
		TTS:              opts.TTS,
		Embeds:           opts.Embeds,
		Components:       rows,
		AllowedMentions:  opts.AllowedMentions,
		MessageReference: opts.Reference,
	})
	if err != nil {
		return nil, err
	}
	c.afterSend(msg, rows, opts.Listener)
	return msg, nil
}

// SendDM opens a direct message channel with userID and sends there.
func (c *Components) SendDM(ctx context.Context, userID string, opts SendOptions) (*discord.Message, error) {
	channelID, err := c.api.CreateDM(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, channelID, opts)
}

// WebhookOptions describes a message sent through a channel webhook.
type WebhookOptions struct {
	Content         string
	Username        string
	AvatarURL       string
	TTS             bool
	Embeds          []*discordgo.MessageEmbed
	Components      []components.Component
	AllowedMentions *discordgo.MessageAllowedMentions
	Listener        *Listener
}

// SendWebhook executes the webhook and records the created message. Only
// application-owned webhooks may carry interactive components.
func (c *Components) SendWebhook(ctx context.Context, webhookID, token string, opts WebhookOptions) (*discord.Message, error) {
	var rows []components.ActionRow
	if len(opts.Components) > 0 {
		var err error
		if rows, err = components.BuildRows(opts.Components...); err != nil {
			return nil, fmt.Errorf("building components: %w", err)
		}
	}
	msg, err := c.api.ExecuteWebhook(ctx, webhookID, token, &discord.WebhookMessage{
		Content:         opts.Content,
		Username:        opts.Username,
		AvatarURL:       opts.AvatarURL,
		TTS:             opts.TTS,
		Embeds:          opts.Embeds,
		Components:      rows,
		AllowedMentions: opts.AllowedMentions,
	})
	if err != nil {
		return nil, err
	}
	c.afterSend(msg, rows, opts.Listener)
	return msg, nil
}

func (c *Components) afterSend(msg *discord.Message, rows []components.ActionRow, l *Listener) {
	if msg == nil {
		return
	}
	if len(msg.Components) == 0 {
		msg.Components = rows
	}
	if len(rows) > 0 {
		c.recordMessage(msg, "")
	}
	if l != nil {
		c.AttachListener(msg.ID, l)
	}
}

// Edit replaces the components (and content, when non-empty) of a message.
func (c *Components) Edit(ctx context.Context, channelID, messageID, content string, comps ...components.Component) (*discord.Message, error) {
	rows := []components.ActionRow{}
	if len(comps) > 0 {
		var err error
		if rows, err = components.BuildRows(comps...); err != nil {
			return nil, fmt.Errorf("building components: %w", err)
		}
	}
	edit := &discord.MessageEdit{Components: &rows}
	if content != "" {
		edit.Content = &content
	}
	msg, err := c.api.EditMessage(ctx, channelID, messageID, edit)
	if err != nil {
		return nil, err
	}
	if len(msg.Components) == 0 {
		msg.Components = rows
	}
	c.recordMessage(msg, "")
	return msg, nil
}

// Delete removes a message and its recorded layout and listener.
func (c *Components) Delete(ctx context.Context, channelID, messageID string) error {
	c.RemoveListener(messageID)
	c.forget(messageID)
	return c.api.DeleteMessage(ctx, channelID, messageID)
}
