// Package webhook serves the HTTP interactions endpoint, the alternative to
// receiving interactions over the gateway.
package webhook

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"

	"github.com/lojasmm/discordui/internal/discord"
)

const (
	maxBodyBytes = 1 << 20
	// Interaction tokens stay valid for 15 minutes.
	dispatchTimeout = 15 * time.Minute
)

// Dispatcher receives verified interactions.
type Dispatcher interface {
	HandleInteraction(ctx context.Context, raw *discord.Interaction) error
}

type Handler struct {
	publicKey  ed25519.PublicKey
	dispatcher Dispatcher
	log        *slog.Logger
	inflight   sync.WaitGroup
}

func NewHandler(publicKey ed25519.PublicKey, d Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		publicKey:  publicKey,
		dispatcher: d,
		log:        logger.With("component", "webhook"),
	}
}

// ParsePublicKey decodes the hex application public key shown in the
// developer portal.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key is %d bytes, want %d", len(b), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(b), nil
}

// Routes mounts the endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/interactions", h.HandleInteraction)
}

// HandleInteraction verifies the request signature, answers pings directly
// and hands everything else to the dispatcher in the background. Those are
// answered through the callback endpoint, so the request itself gets 202.
// Reference: https://discord.com/developers/docs/interactions/overview#setting-up-an-endpoint
func (h *Handler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if !discordgo.VerifyInteraction(r, h.publicKey) {
		h.log.Warn("rejected interaction with a bad signature", "remote", r.RemoteAddr)
		http.Error(w, "invalid request signature", http.StatusUnauthorized)
		return
	}

	var raw discord.Interaction
	if err := json.Unmarshal(body, &raw); err != nil {
		h.log.Warn("failed to decode interaction", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if raw.Type == discord.InteractionPing {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(discord.InteractionResponse{Type: discord.ResponsePong})
		return
	}

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), dispatchTimeout)
		defer cancel()
		if err := h.dispatcher.HandleInteraction(ctx, &raw); err != nil {
			h.log.Error("dispatching interaction", "interaction", raw.ID, "error", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// Wait blocks until every interaction handed to the dispatcher is handled.
func (h *Handler) Wait() {
	h.inflight.Wait()
}
