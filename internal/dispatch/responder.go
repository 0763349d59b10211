package dispatch

import (
	"context"

	"github.com/lojasmm/discordui/internal/discord"
	"github.com/lojasmm/discordui/internal/interaction"
	"github.com/lojasmm/discordui/internal/store"
)

// originalKey files the layout of an initial interaction response, whose
// message id is not returned by the callback endpoint.
func originalKey(interactionID string) string {
	return "@original:" + interactionID
}

// responder answers one interaction through the API and records every layout
// it sends.
type responder struct {
	c         *Components
	channelID string
	guildID   string
	source    *discord.Message
}

func (c *Components) responderFor(raw *discord.Interaction) interaction.Responder {
	return &responder{c: c, channelID: raw.ChannelID, guildID: raw.GuildID, source: raw.Message}
}

func (r *responder) RespondInteraction(ctx context.Context, interactionID, token string, resp *discord.InteractionResponse) error {
	if err := r.c.api.RespondInteraction(ctx, interactionID, token, resp); err != nil {
		return err
	}
	if resp.Data == nil || resp.Data.Components == nil {
		return nil
	}
	rec := store.MessageRecord{
		ChannelID:  r.channelID,
		GuildID:    r.guildID,
		Token:      token,
		Components: *resp.Data.Components,
	}
	switch resp.Type {
	case discord.ResponseChannelMessage:
		rec.ID = originalKey(interactionID)
		rec.Ephemeral = resp.Data.Flags&discord.FlagEphemeral != 0
	case discord.ResponseMessageUpdate:
		if r.source == nil {
			return nil
		}
		rec.ID = r.source.ID
		rec.Ephemeral = r.source.Ephemeral()
	default:
		return nil
	}
	r.c.record(rec)
	return nil
}

func (r *responder) EditOriginal(ctx context.Context, token string, edit *discord.MessageEdit) (*discord.Message, error) {
	msg, err := r.c.api.EditOriginal(ctx, token, edit)
	if err != nil {
		return nil, err
	}
	if msg != nil && edit.Components != nil {
		if len(msg.Components) == 0 {
			msg.Components = *edit.Components
		}
		r.c.recordMessage(msg, token)
	}
	return msg, nil
}

func (r *responder) DeleteOriginal(ctx context.Context, token string) error {
	return r.c.api.DeleteOriginal(ctx, token)
}

func (r *responder) FollowUp(ctx context.Context, token string, msg *discord.MessageSend) (*discord.Message, error) {
	sent, err := r.c.api.FollowUp(ctx, token, msg)
	if err != nil {
		return nil, err
	}
	if sent != nil && len(msg.Components) > 0 {
		if len(sent.Components) == 0 {
			sent.Components = msg.Components
		}
		if sent.Flags == 0 {
			sent.Flags = msg.Flags
		}
		r.c.recordMessage(sent, token)
	}
	return sent, nil
}

func (r *responder) EditFollowUp(ctx context.Context, token, messageID string, edit *discord.MessageEdit) (*discord.Message, error) {
	msg, err := r.c.api.EditFollowUp(ctx, token, messageID, edit)
	if err != nil {
		return nil, err
	}
	if msg != nil && edit.Components != nil {
		if msg.ID == "" {
			msg.ID = messageID
		}
		if len(msg.Components) == 0 {
			msg.Components = *edit.Components
		}
		r.c.recordMessage(msg, token)
	}
	return msg, nil
}

func (r *responder) DeleteFollowUp(ctx context.Context, token, messageID string) error {
	if err := r.c.api.DeleteFollowUp(ctx, token, messageID); err != nil {
		return err
	}
	r.c.RemoveListener(messageID)
	r.c.forget(messageID)
	return nil
}

func (c *Components) recordMessage(msg *discord.Message, token string) {
	if msg.ID == "" {
		return
	}
	c.record(store.MessageRecord{
		ID:         msg.ID,
		ChannelID:  msg.ChannelID,
		GuildID:    msg.GuildID,
		Token:      token,
		Ephemeral:  msg.Ephemeral(),
		Components: msg.Components,
	})
}

func (c *Components) forget(messageID string) {
	if c.store == nil {
		return
	}
	if err := c.store.DeleteMessage(messageID); err != nil {
		c.log.Warn("forgetting message layout", "message", messageID, "error", err)
	}
}

func (c *Components) record(rec store.MessageRecord) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveMessage(rec); err != nil {
		c.log.Warn("recording message layout", "message", rec.ID, "error", err)
	}
}
