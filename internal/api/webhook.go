package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/vendazap/vendazap/internal/models"
	"github.com/vendazap/vendazap/internal/worker"
)

// twilioWebhookHandler receives Twilio's inbound WhatsApp form POST,
// translates it into an inbound task, and acknowledges immediately. Twilio
// retries on non-2xx, so the only error statuses here are for payloads that
// can never succeed.
func (s *Server) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.twilioWebhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.twilioWebhookHandler: failed to parse form", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid form payload"))
		return
	}

	msg := worker.InboundMessage{
		MessageSID: r.PostFormValue("MessageSid"),
		From:       stripWhatsAppPrefix(r.PostFormValue("From")),
		To:         stripWhatsAppPrefix(r.PostFormValue("To")),
		Body:       r.PostFormValue("Body"),
		MediaURL:   r.PostFormValue("MediaUrl0"),
		MediaType:  r.PostFormValue("MediaContentType0"),
	}
	if msg.MessageSID == "" || msg.From == "" || msg.To == "" {
		slog.Warn("Server.twilioWebhookHandler: missing required fields",
			"sid", msg.MessageSID, "has_from", msg.From != "", "has_to", msg.To != "")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing MessageSid, From or To"))
		return
	}

	if err := s.enqueuer.EnqueueInbound(r.Context(), msg); err != nil {
		// Let Twilio redeliver; the task ID keeps the retry idempotent.
		slog.Error("Server.twilioWebhookHandler: enqueue failed", "error", err, "sid", msg.MessageSID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to queue message"))
		return
	}

	slog.Debug("Server.twilioWebhookHandler: message queued",
		"sid", msg.MessageSID, "from", msg.From, "audio", msg.IsAudio())
	w.WriteHeader(http.StatusOK)
}

// stripWhatsAppPrefix removes Twilio's channel prefix from a phone number.
// "whatsapp:+5511999990000" becomes "+5511999990000".
func stripWhatsAppPrefix(number string) string {
	return strings.TrimPrefix(number, "whatsapp:")
}
