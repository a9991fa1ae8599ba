package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/vendazap/vendazap/internal/flow"
	"github.com/vendazap/vendazap/internal/messaging"
	"github.com/vendazap/vendazap/internal/models"
	"github.com/vendazap/vendazap/internal/store"
	"github.com/vendazap/vendazap/internal/transcribe"
	"github.com/vendazap/vendazap/internal/twiliowhatsapp"
)

type pipeline struct {
	store     *store.InMemoryStore
	mock      *twiliowhatsapp.MockClient
	processor *Processor
	merchant  *models.Merchant
}

func newPipeline(t *testing.T, segment models.Segment) *pipeline {
	t.Helper()
	s := store.NewInMemoryStore()
	merchant := &models.Merchant{
		Name:           "Pizzaria do Zé",
		Segment:        segment,
		WhatsAppNumber: "+5511999990000",
		Status:         models.MerchantStatusActive,
		Config: models.MerchantConfig{
			Catalog: []models.CatalogCategory{
				{Category: "Pizzas", Items: []models.CatalogItem{{Name: "Pizza Mussarela", Price: 45}}},
			},
		},
	}
	if err := s.CreateMerchant(merchant); err != nil {
		t.Fatal(err)
	}

	mock := twiliowhatsapp.NewMockClient()
	p := NewProcessor(
		s,
		flow.NewRouter(),
		messaging.NewTwilioService(mock),
		&transcribe.Mock{Text: "oi"},
		mock,
	)
	return &pipeline{store: s, mock: mock, processor: p, merchant: merchant}
}

func inboundTask(t *testing.T, msg InboundMessage) *asynq.Task {
	t.Helper()
	task, err := NewInboundTask(msg)
	if err != nil {
		t.Fatal(err)
	}
	return task
}

func TestProcessTextMessage(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	msg := InboundMessage{MessageSID: "SM1", From: "+5511988887777", To: "+5511999990000", Body: "oi"}

	if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}

	conv, err := p.store.FindActiveConversation(p.merchant.ID, "+5511988887777")
	if err != nil {
		t.Fatalf("conversation not created: %v", err)
	}
	if conv.CurrentState != "showing_menu" || conv.FlowType != models.FlowTypeDelivery {
		t.Errorf("state not persisted: %+v", conv)
	}

	msgs, _ := p.store.ListMessages(conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected incoming and outgoing messages, got %d", len(msgs))
	}
	if msgs[0].Direction != models.DirectionIncoming || msgs[1].Direction != models.DirectionOutgoing {
		t.Errorf("unexpected message directions: %+v", msgs)
	}

	if len(p.mock.SentMessages) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(p.mock.SentMessages))
	}
	if !strings.Contains(p.mock.SentMessages[0].Body, "Pizza Mussarela") {
		t.Errorf("reply should carry the menu, got %q", p.mock.SentMessages[0].Body)
	}
}

func TestProcessRetryResendsStoredReply(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	msg := InboundMessage{MessageSID: "SM1", From: "+5511988887777", To: "+5511999990000", Body: "oi"}

	if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
		t.Fatal(err)
	}
	// Same task delivered again, as after a crash between store and ack.
	if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
		t.Fatal(err)
	}

	conv, _ := p.store.FindActiveConversation(p.merchant.ID, "+5511988887777")
	if conv.CurrentState != "showing_menu" {
		t.Errorf("replay must not advance state twice, got %s", conv.CurrentState)
	}
	if conv.CollectedData.InvalidAttempts != 0 {
		t.Errorf("replay must not count attempts, got %d", conv.CollectedData.InvalidAttempts)
	}
	msgs, _ := p.store.ListMessages(conv.ID)
	if len(msgs) != 2 {
		t.Errorf("replay must not duplicate messages, got %d", len(msgs))
	}
	if len(p.mock.SentMessages) != 2 {
		t.Errorf("replay re-sends the stored reply, got %d sends", len(p.mock.SentMessages))
	}
	if p.mock.SentMessages[0].Body != p.mock.SentMessages[1].Body {
		t.Error("replayed reply should match the original")
	}
}

func TestProcessUnknownMerchantDropped(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	msg := InboundMessage{MessageSID: "SM1", From: "+5511988887777", To: "+5500000000000", Body: "oi"}

	if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
		t.Fatalf("unknown merchant must be dropped without error, got %v", err)
	}
	if len(p.mock.SentMessages) != 0 {
		t.Errorf("no reply expected, got %d", len(p.mock.SentMessages))
	}
}

func TestProcessTransferredConversationStoresOnly(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	conv, err := p.store.FindOrCreateConversation(p.merchant.ID, "+5511988887777")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.store.TransferToHuman(conv.ID, "customer complaint detected"); err != nil {
		t.Fatal(err)
	}

	msg := InboundMessage{MessageSID: "SM2", From: "+5511988887777", To: "+5511999990000", Body: "cadê meu pedido"}
	if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
		t.Fatal(err)
	}

	msgs, _ := p.store.ListMessages(conv.ID)
	if len(msgs) != 1 || msgs[0].Direction != models.DirectionIncoming {
		t.Fatalf("expected only the stored incoming message, got %+v", msgs)
	}
	if len(p.mock.SentMessages) != 0 {
		t.Errorf("bot must stay silent while an agent owns the thread, got %d sends", len(p.mock.SentMessages))
	}
}

func TestProcessAudioMessage(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	p.mock.Media["https://api.twilio.com/media/ME1"] = []byte("ogg-bytes")

	msg := InboundMessage{
		MessageSID: "SM3",
		From:       "+5511988887777",
		To:         "+5511999990000",
		MediaURL:   "https://api.twilio.com/media/ME1",
		MediaType:  "audio/ogg",
	}
	if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}

	conv, _ := p.store.FindActiveConversation(p.merchant.ID, "+5511988887777")
	if conv.CurrentState != "showing_menu" {
		t.Errorf("transcribed greeting should advance the flow, got %s", conv.CurrentState)
	}
	msgs, _ := p.store.ListMessages(conv.ID)
	if len(msgs) != 2 || msgs[0].Type != models.MessageTypeAudio || msgs[0].Content != "oi" {
		t.Errorf("incoming audio should be stored with its transcript: %+v", msgs)
	}
}

func TestProcessAudioTranscriptionFailure(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	p.mock.Media["https://api.twilio.com/media/ME1"] = []byte("ogg-bytes")
	p.processor.transcriber = &transcribe.Mock{Err: errors.New("whisper unavailable")}

	msg := InboundMessage{
		MessageSID: "SM4",
		From:       "+5511988887777",
		To:         "+5511999990000",
		MediaURL:   "https://api.twilio.com/media/ME1",
		MediaType:  "audio/ogg",
	}
	if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
		t.Fatalf("transcription failure should not fail the task, got %v", err)
	}

	conv, _ := p.store.FindActiveConversation(p.merchant.ID, "+5511988887777")
	if conv.CurrentState != "" {
		t.Errorf("state must be untouched on transcription failure, got %q", conv.CurrentState)
	}
	if len(p.mock.SentMessages) != 1 || !strings.Contains(p.mock.SentMessages[0].Body, "áudio") {
		t.Errorf("expected the audio apology, got %+v", p.mock.SentMessages)
	}

	// The arrival is still in the log, marked, ahead of the apology.
	msgs, _ := p.store.ListMessages(conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected incoming marker and apology, got %d messages", len(msgs))
	}
	if msgs[0].Direction != models.DirectionIncoming || msgs[0].Type != models.MessageTypeAudio {
		t.Errorf("first stored message should be the incoming audio: %+v", msgs[0])
	}
	if !strings.Contains(msgs[0].Content, "transcription failed") {
		t.Errorf("incoming content should carry the failure marker, got %q", msgs[0].Content)
	}
}

func TestProcessTransferredAudioFailureStaysSilent(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	conv, err := p.store.FindOrCreateConversation(p.merchant.ID, "+5511988887777")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.store.TransferToHuman(conv.ID, "customer complaint detected"); err != nil {
		t.Fatal(err)
	}
	p.mock.Media["https://api.twilio.com/media/ME1"] = []byte("ogg-bytes")
	p.processor.transcriber = &transcribe.Mock{Err: errors.New("whisper unavailable")}

	msg := InboundMessage{
		MessageSID: "SM5",
		From:       "+5511988887777",
		To:         "+5511999990000",
		MediaURL:   "https://api.twilio.com/media/ME1",
		MediaType:  "audio/ogg",
	}
	if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
		t.Fatal(err)
	}

	if len(p.mock.SentMessages) != 0 {
		t.Errorf("bot must stay silent while an agent owns the thread, got %d sends", len(p.mock.SentMessages))
	}
	msgs, _ := p.store.ListMessages(conv.ID)
	if len(msgs) != 1 || msgs[0].Direction != models.DirectionIncoming {
		t.Fatalf("expected only the stored incoming marker, got %+v", msgs)
	}
}

func TestProcessInvalidRecipientSkipsRetry(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	msg := InboundMessage{MessageSID: "SM1", From: "invalid", To: "+5511999990000", Body: "oi"}

	err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("a permanently invalid recipient must not be retried, got %v", err)
	}
}

func TestProcessOrderConfirmationCompletesConversation(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	from := "+5511988887777"
	to := "+5511999990000"

	steps := []struct{ sid, body string }{
		{"SM1", "oi"},
		{"SM2", "pizzas"},
		{"SM3", "pizza mussarela"},
		{"SM4", "não"},
		{"SM5", "Rua das Flores, 123"},
		{"SM6", "pix"},
		{"SM7", "sim"},
	}
	for _, step := range steps {
		msg := InboundMessage{MessageSID: step.sid, From: from, To: to, Body: step.body}
		if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
			t.Fatalf("step %s (%q) failed: %v", step.sid, step.body, err)
		}
	}

	// The conversation is completed, so it is no longer active.
	if _, err := p.store.FindActiveConversation(p.merchant.ID, from); !errors.Is(err, models.ErrConversationNotFound) {
		t.Errorf("confirmed conversation should be completed, got %v", err)
	}

	// Order landed with the collected data. Conversation ID 2 is the first
	// one created after the merchant row.
	order, err := p.store.GetOrderByConversation(2)
	if err != nil {
		t.Fatalf("order not created: %v", err)
	}
	if order.Status != models.OrderConfirmed {
		t.Errorf("order status = %s, want confirmed", order.Status)
	}
	if order.TotalAmount != 45 || order.PaymentMethod != models.PaymentPix {
		t.Errorf("unexpected order: %+v", order)
	}
	if order.DeliveryAddress != "Rua das Flores, 123" {
		t.Errorf("address not carried to order: %q", order.DeliveryAddress)
	}
}

func TestProcessTransferPersistsReason(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	msg := InboundMessage{MessageSID: "SM1", From: "+5511988887777", To: "+5511999990000", Body: "quero falar com um atendente"}

	if err := p.processor.ProcessTask(context.Background(), inboundTask(t, msg)); err != nil {
		t.Fatal(err)
	}
	conv, err := p.store.FindActiveConversation(p.merchant.ID, "+5511988887777")
	if err != nil {
		t.Fatal(err)
	}
	if conv.Status != models.ConversationTransferred {
		t.Errorf("status = %s, want transferred", conv.Status)
	}
	if conv.TransferReason == "" {
		t.Error("transfer reason must be recorded")
	}
	if len(p.mock.SentMessages) != 1 {
		t.Fatalf("customer should get the handoff message, got %d sends", len(p.mock.SentMessages))
	}
}

func TestProcessBadPayloadSkipsRetry(t *testing.T) {
	p := newPipeline(t, models.SegmentDelivery)
	task := asynq.NewTask(TypeInboundMessage, []byte("not-json"))
	err := p.processor.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("malformed payload should skip retry, got %v", err)
	}
}
