// Package worker implements the asynchronous message pipeline: inbound
// WhatsApp messages are enqueued by the webhook and processed here with
// retries, deduplication and per-conversation serialization.
package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeInboundMessage is the asynq task type for inbound WhatsApp messages.
const TypeInboundMessage = "whatsapp:inbound"

// InboundMessage is the task payload for one inbound WhatsApp message. From
// and To are E.164 numbers without the "whatsapp:" prefix. MessageSID is
// Twilio's message identifier and anchors all dedupe keys for this message.
type InboundMessage struct {
	MessageSID string `json:"message_sid"`
	From       string `json:"from"`
	To         string `json:"to"`
	Body       string `json:"body,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
	MediaType  string `json:"media_type,omitempty"`
}

// IsAudio reports whether the message carries a voice note instead of text.
func (m InboundMessage) IsAudio() bool {
	return m.MediaURL != ""
}

// NewInboundTask builds the asynq task for an inbound message.
func NewInboundTask(msg InboundMessage) (*asynq.Task, error) {
	if msg.MessageSID == "" {
		return nil, fmt.Errorf("inbound message missing SID")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal inbound payload: %w", err)
	}
	return asynq.NewTask(TypeInboundMessage, payload), nil
}
