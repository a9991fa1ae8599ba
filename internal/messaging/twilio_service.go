package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/twilio/twilio-go/client"
	"github.com/vendazap/vendazap/internal/twiliowhatsapp"
)

var nonDigitRegex = regexp.MustCompile(`[^0-9]`)

// TwilioService implements the Service interface using the Twilio API.
type TwilioService struct {
	client  twiliowhatsapp.Sender // real Twilio client or MockClient
	mu      sync.RWMutex
	stopped bool
}

// NewTwilioService creates a new TwilioService over the given sender.
func NewTwilioService(client twiliowhatsapp.Sender) *TwilioService {
	return &TwilioService{client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number. The "whatsapp:" channel prefix and any formatting characters
// are stripped; the result is "+" followed by at least 6 digits.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty: %w", ErrPermanent)
	}

	trimmed := strings.TrimPrefix(recipient, "whatsapp:")
	digits := nonDigitRegex.ReplaceAllString(trimmed, "")
	if digits == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q: %w", recipient, ErrPermanent)
	}
	if len(digits) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required): %w", digits, ErrPermanent)
	}

	canonical := "+" + digits
	if canonical != recipient {
		slog.Debug("TwilioService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// SendMessage sends a message via Twilio after canonicalizing the recipient.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMessage validation error", "error", err, "to", to)
		return err
	}
	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		// A 4xx from Twilio (bad credentials, blocked recipient) will fail
		// the same way on every retry.
		var restErr *client.TwilioRestError
		if errors.As(err, &restErr) && restErr.Status >= 400 && restErr.Status < 500 {
			return fmt.Errorf("twilio rejected message to %s: %v: %w", canonicalTo, err, ErrPermanent)
		}
		return err
	}
	return nil
}

// Stop marks the service stopped.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}
