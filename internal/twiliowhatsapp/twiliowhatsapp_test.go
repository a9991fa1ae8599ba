package twiliowhatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("secret")); err == nil {
		t.Error("expected error without a from number")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("secret"), WithFromWhats("whatsapp:+5511999990000")); err != nil {
		t.Errorf("unexpected error with full config: %v", err)
	}
}

func TestDownloadMediaUsesBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ogg-bytes"))
	}))
	defer srv.Close()

	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		accountSID: "AC123",
		authToken:  "secret",
	}
	data, err := c.DownloadMedia(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("DownloadMedia failed: %v", err)
	}
	if string(data) != "ogg-bytes" {
		t.Errorf("unexpected media body: %q", data)
	}

	c.authToken = "wrong"
	if _, err := c.DownloadMedia(context.Background(), srv.URL); err == nil {
		t.Error("expected error on auth failure")
	} else if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	err := mock.SendMessage(ctx, "+5511988887777", "Olá!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}
	if mock.SentMessages[0].Body != "Olá!" {
		t.Errorf("expected body %q, got %q", "Olá!", mock.SentMessages[0].Body)
	}
}

func TestMockClient_DownloadMedia(t *testing.T) {
	mock := NewMockClient()
	mock.Media["https://api.twilio.com/media/ME1"] = []byte("audio")

	data, err := mock.DownloadMedia(context.Background(), "https://api.twilio.com/media/ME1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "audio" {
		t.Errorf("unexpected media: %q", data)
	}
	if _, err := mock.DownloadMedia(context.Background(), "https://api.twilio.com/media/ME2"); err == nil {
		t.Error("expected error for unregistered media")
	}
}
