package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/dispatch"
	"github.com/lojasmm/discordui/internal/interaction"
)

const (
	keyEquals    = "equ"
	keyClear     = "cls"
	keyBackspace = "backs"

	// zero-width space; Discord rejects empty code blocks
	blank = "\u200b"
)

type calcState struct {
	Query string `json:"query"`
}

func calcKey(messageID string) string { return "calc:" + messageID }

func padKey(label string, style components.ButtonStyle) components.Button {
	// no custom id: the pressed key is identified by its label
	return components.Button{Label: label, Style: style}
}

// calculatorPad is the 4x5 key grid plus a link row.
func calculatorPad() []components.Component {
	num := func(l string) components.Button { return padKey(l, components.StylePrimary) }
	op := func(l string) components.Button { return padKey(l, components.StyleSuccess) }
	return []components.Component{
		components.Row(num("7"), num("8"), num("9"), op("+"), op(")")),
		components.Row(num("4"), num("5"), num("6"), op("-"), op("(")),
		components.Row(num("1"), num("2"), num("3"), op("*"), components.NewButton(keyBackspace, "⌫", components.StyleDanger)),
		components.Row(op("."), num("0"), components.NewButton(keyEquals, "=", components.StyleSecondary), op("/"), components.NewButton(keyClear, "C", components.StyleDanger)),
		components.NewLinkButton("https://discord.com/developers/docs/interactions/message-components", "How components work"),
	}
}

func display(query string) string {
	if query == "" {
		query = blank
	}
	return "```python\n" + query + "```"
}

// applyKey returns what the display should show after a key press and the
// query to keep afterwards.
func applyKey(query, customID, label string) (shown, next string) {
	switch customID {
	case keyEquals:
		v, err := Evaluate(query)
		switch {
		case errors.Is(err, ErrDivisionByZero):
			return "Cannot divide by zero", ""
		case err != nil:
			return "Invalid expression: " + err.Error(), ""
		}
		return query + "\n= " + formatNumber(v), ""
	case keyClear:
		return "", ""
	case keyBackspace:
		r := []rune(query)
		if len(r) > 0 {
			r = r[:len(r)-1]
		}
		return string(r), string(r)
	}
	return query + label, query + label
}

// HandleCalculator answers /calculator with the key pad. The message is
// deleted once nobody pressed a key for the idle timeout.
func (h *Handler) HandleCalculator(ctx context.Context, cmd *interaction.CommandInteraction) {
	log := h.log.With("command", CommandCalculator, "interaction", cmd.ID)

	// deferring first makes the final response an edit, which returns the
	// message id the listener needs
	if err := cmd.Defer(ctx, false); err != nil {
		log.Error("deferring", "error", err)
		return
	}
	msg, err := cmd.Respond(ctx, interaction.MessageOptions{
		Content:    "```\n" + blank + "```",
		Components: calculatorPad(),
	})
	if err != nil || msg == nil {
		log.Error("sending calculator", "error", err)
		return
	}
	if err := h.store.PutState(calcKey(msg.ID), calcState{}); err != nil {
		log.Warn("saving calculator state", "error", err)
	}

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = cmd.ChannelID
	}
	l := dispatch.NewListener(h.idleTimeout).OnButton("", h.pressKey)
	l.OnTimeout = func(messageID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.ui.Delete(ctx, channelID, messageID); err != nil {
			h.log.Warn("deleting idle calculator", "message", messageID, "error", err)
		}
		if err := h.store.DeleteState(calcKey(messageID)); err != nil {
			h.log.Warn("dropping calculator state", "message", messageID, "error", err)
		}
	}
	h.ui.AttachListener(msg.ID, l)
}

func (h *Handler) pressKey(ctx context.Context, comp interaction.Component) error {
	btn, ok := comp.(*interaction.ButtonInteraction)
	if !ok || btn.Message == nil {
		return nil
	}
	key := calcKey(btn.Message.ID)

	var st calcState
	if _, err := h.store.GetState(key, &st); err != nil {
		return fmt.Errorf("loading calculator state: %w", err)
	}
	shown, next := applyKey(st.Query, btn.CustomID, btn.Label())
	if err := btn.Update(ctx, interaction.MessageOptions{Content: display(shown)}); err != nil {
		return fmt.Errorf("updating calculator: %w", err)
	}
	st.Query = next
	return h.store.PutState(key, st)
}
