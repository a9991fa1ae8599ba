package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/vendazap/vendazap/internal/worker"
)

// recordingEnqueuer captures enqueued messages instead of talking to Redis.
type recordingEnqueuer struct {
	messages []worker.InboundMessage
	err      error
}

func (e *recordingEnqueuer) EnqueueInbound(_ context.Context, msg worker.InboundMessage) error {
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, msg)
	return nil
}

func postWebhook(t *testing.T, handler http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestTwilioWebhookEnqueues(t *testing.T) {
	enq := &recordingEnqueuer{}
	handler := NewServer(enq).Handler()

	form := url.Values{
		"MessageSid": {"SM123"},
		"From":       {"whatsapp:+5511988887777"},
		"To":         {"whatsapp:+5511999990000"},
		"Body":       {"oi"},
	}
	rr := postWebhook(t, handler, form)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(enq.messages) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(enq.messages))
	}
	msg := enq.messages[0]
	if msg.MessageSID != "SM123" || msg.Body != "oi" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.From != "+5511988887777" || msg.To != "+5511999990000" {
		t.Errorf("whatsapp: prefix not stripped: from=%q to=%q", msg.From, msg.To)
	}
}

func TestTwilioWebhookAudioFields(t *testing.T) {
	enq := &recordingEnqueuer{}
	handler := NewServer(enq).Handler()

	form := url.Values{
		"MessageSid":        {"SM124"},
		"From":              {"whatsapp:+5511988887777"},
		"To":                {"whatsapp:+5511999990000"},
		"MediaUrl0":         {"https://api.twilio.com/media/ME1"},
		"MediaContentType0": {"audio/ogg"},
	}
	rr := postWebhook(t, handler, form)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	msg := enq.messages[0]
	if !msg.IsAudio() {
		t.Errorf("expected an audio message: %+v", msg)
	}
	if msg.MediaURL != "https://api.twilio.com/media/ME1" {
		t.Errorf("media URL not carried: %q", msg.MediaURL)
	}
}

func TestTwilioWebhookMissingFields(t *testing.T) {
	enq := &recordingEnqueuer{}
	handler := NewServer(enq).Handler()

	tests := []struct {
		name string
		form url.Values
	}{
		{"no sid", url.Values{"From": {"whatsapp:+551198"}, "To": {"whatsapp:+551199"}, "Body": {"oi"}}},
		{"no from", url.Values{"MessageSid": {"SM1"}, "To": {"whatsapp:+551199"}, "Body": {"oi"}}},
		{"no to", url.Values{"MessageSid": {"SM1"}, "From": {"whatsapp:+551198"}, "Body": {"oi"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postWebhook(t, handler, tt.form)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
	if len(enq.messages) != 0 {
		t.Errorf("nothing should be enqueued, got %d", len(enq.messages))
	}
}

func TestTwilioWebhookEnqueueFailure(t *testing.T) {
	enq := &recordingEnqueuer{err: errors.New("redis down")}
	handler := NewServer(enq).Handler()

	form := url.Values{
		"MessageSid": {"SM125"},
		"From":       {"whatsapp:+5511988887777"},
		"To":         {"whatsapp:+5511999990000"},
		"Body":       {"oi"},
	}
	rr := postWebhook(t, handler, form)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 so Twilio redelivers", rr.Code)
	}
}

func TestTwilioWebhookMethodNotAllowed(t *testing.T) {
	handler := NewServer(&recordingEnqueuer{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/webhook/twilio", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	handler := NewServer(&recordingEnqueuer{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}
