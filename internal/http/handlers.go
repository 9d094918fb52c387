package http

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"budgetwizard/internal/core"
	"budgetwizard/internal/payments"
)

const maxBodyBytes = 64 << 10

// inboundMessage is the chat transport's delivery of one user message.
type inboundMessage struct {
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type outboundFile struct {
	Name    string `json:"name"`
	Caption string `json:"caption"`
	Content string `json:"content"` // base64
}

type outboundReply struct {
	Text string        `json:"text"`
	File *outboundFile `json:"file,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var msg inboundMessage
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		slog.WarnContext(r.Context(), "Undecodable message event", "error", err)
		http.Error(w, "invalid message payload", http.StatusBadRequest)
		return
	}
	if msg.Text == "" {
		http.Error(w, "empty message text", http.StatusBadRequest)
		return
	}

	reply := s.router.HandleMessage(r.Context(), core.UserID(msg.UserID), msg.Text)

	out := outboundReply{Text: reply.Text}
	if reply.File != nil {
		out.File = &outboundFile{
			Name:    reply.File.Name,
			Caption: reply.File.Caption,
			Content: base64.StdEncoding.EncodeToString(reply.File.Content),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode reply", "error", err)
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read payload", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get(payments.SignatureHeader)
	if err := s.reconciler.HandleEvent(r.Context(), payload, sig); err != nil {
		// Only signature failures come back as errors; never trust the
		// payload before they pass.
		slog.WarnContext(r.Context(), "Rejected confirmation event", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
