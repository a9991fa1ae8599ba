package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vendazap/vendazap/internal/flow"
	"github.com/vendazap/vendazap/internal/messaging"
	"github.com/vendazap/vendazap/internal/models"
	"github.com/vendazap/vendazap/internal/store"
	"github.com/vendazap/vendazap/internal/transcribe"
	"github.com/vendazap/vendazap/internal/twiliowhatsapp"
)

// audioFailedMarker is stored as the incoming message content when a voice
// note could not be transcribed, so the conversation log keeps the arrival.
const audioFailedMarker = "[Audio transcription failed]"

// Processor handles inbound message tasks. Each task runs the full pipeline:
// resolve merchant, serialize per conversation, transcribe audio, store the
// incoming message, run the flow, apply side effects, persist state, store
// the reply, send the reply. Storage writes are keyed by the Twilio message
// SID so a retried task never duplicates an effect.
type Processor struct {
	store       store.Store
	router      *flow.Router
	messenger   messaging.Service
	transcriber transcribe.Transcriber
	media       twiliowhatsapp.Sender
	locks       *conversationLocks
}

// NewProcessor wires the pipeline dependencies.
func NewProcessor(s store.Store, router *flow.Router, messenger messaging.Service, transcriber transcribe.Transcriber, media twiliowhatsapp.Sender) *Processor {
	return &Processor{
		store:       s,
		router:      router,
		messenger:   messenger,
		transcriber: transcriber,
		media:       media,
		locks:       newConversationLocks(),
	}
}

// ProcessTask implements asynq.Handler for inbound messages.
func (p *Processor) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var msg InboundMessage
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		slog.Error("Processor.ProcessTask: bad payload", "error", err)
		return fmt.Errorf("unmarshal inbound payload: %v: %w", err, asynq.SkipRetry)
	}

	err := p.process(ctx, msg)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		return err
	}

	// Last attempt about to be exhausted: apologize so the customer is not
	// left hanging. Best effort only; the error still surfaces to asynq.
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried >= maxRetry {
		p.sendProcessingApology(ctx, msg)
	}
	return err
}

func (p *Processor) process(ctx context.Context, msg InboundMessage) error {
	unlock := p.locks.lock(msg.To + "|" + msg.From)
	defer unlock()

	// A stored reply for this SID means a previous attempt got all the way
	// through the flow and only the send may have failed. Re-send the stored
	// reply instead of running the flow against the already-advanced state.
	if prev, err := p.store.FindMessageByDedupeKey(msg.MessageSID + ":out"); err == nil {
		slog.Info("Processor.process: resending stored reply", "sid", msg.MessageSID)
		if err := p.messenger.SendMessage(ctx, msg.From, prev.Content); err != nil {
			return sendError("resend reply", err)
		}
		return nil
	} else if !errors.Is(err, models.ErrMessageNotFound) {
		return fmt.Errorf("check stored reply: %w", err)
	}

	merchant, err := p.store.GetMerchantByWhatsAppNumber(msg.To)
	if errors.Is(err, models.ErrMerchantNotFound) {
		// A message to a number we do not serve. Drop it; retrying cannot help.
		slog.Warn("Processor.process: no merchant for number, dropping", "to", msg.To, "sid", msg.MessageSID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve merchant: %w", err)
	}
	if merchant.Status != models.MerchantStatusActive {
		slog.Info("Processor.process: merchant inactive, dropping", "merchant_id", merchant.ID, "sid", msg.MessageSID)
		return nil
	}

	conv, err := p.store.FindOrCreateConversation(merchant.ID, msg.From)
	if err != nil {
		return fmt.Errorf("find or create conversation: %w", err)
	}

	content := msg.Body
	messageType := models.MessageTypeText
	audioFailed := false
	if msg.IsAudio() {
		messageType = models.MessageTypeAudio
		text, err := p.transcribeAudio(ctx, msg)
		if err != nil {
			// The customer spoke and we could not understand. The message is
			// still stored below with a marker so the log keeps the arrival;
			// flow state stays untouched.
			slog.Warn("Processor.process: transcription failed", "error", err, "sid", msg.MessageSID)
			content = audioFailedMarker
			audioFailed = true
		} else {
			content = text
		}
	}

	// Store the incoming message before any reply goes out. A false insert
	// means a retry already stored it; processing continues because every
	// downstream effect is idempotent too.
	incoming := &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionIncoming,
		Content:        content,
		Type:           messageType,
	}
	if _, err := p.store.CreateMessage(incoming, msg.MessageSID+":in"); err != nil {
		return fmt.Errorf("store incoming message: %w", err)
	}
	if err := p.store.TouchConversation(conv.ID, time.Now()); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	// A transferred conversation belongs to a human agent. The flow never
	// runs again and the bot stays silent, even when transcription failed;
	// the message is stored above for the agent to read.
	if conv.Status == models.ConversationTransferred {
		slog.Debug("Processor.process: conversation with agent, bot stays silent", "conversation_id", conv.ID)
		return nil
	}

	if audioFailed {
		return p.replyOnly(ctx, merchant, conv, msg, models.TemplateAudioFailed, ":audiofail")
	}

	res := p.router.Route(merchant, conv, content)

	if res.ShouldTransfer {
		if err := p.store.TransferToHuman(conv.ID, res.TransferReason); err != nil {
			return fmt.Errorf("transfer conversation: %w", err)
		}
	}

	if res.ShouldCreateOrder || res.ShouldCreateReservation {
		if err := p.createOrder(merchant, conv, res); err != nil {
			return err
		}
		if err := p.store.MarkCompleted(conv.ID); err != nil {
			return fmt.Errorf("complete conversation: %w", err)
		}
	}

	if err := p.store.UpdateConversationState(conv.ID, conv.FlowType, res.NewState, res.Data); err != nil {
		return fmt.Errorf("update conversation state: %w", err)
	}

	// Reply is stored before sending so the log never misses a message the
	// customer received.
	outgoing := &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionOutgoing,
		Content:        res.Reply,
		Type:           models.MessageTypeText,
	}
	if _, err := p.store.CreateMessage(outgoing, msg.MessageSID+":out"); err != nil {
		return fmt.Errorf("store outgoing message: %w", err)
	}
	if err := p.messenger.SendMessage(ctx, msg.From, res.Reply); err != nil {
		return sendError("send reply", err)
	}

	slog.Info("Processor.process: message handled",
		"merchant_id", merchant.ID, "conversation_id", conv.ID,
		"state", res.NewState, "transferred", res.ShouldTransfer,
		"order_created", res.ShouldCreateOrder || res.ShouldCreateReservation)
	return nil
}

// transcribeAudio downloads the voice note from Twilio and runs Whisper.
func (p *Processor) transcribeAudio(ctx context.Context, msg InboundMessage) (string, error) {
	audio, err := p.media.DownloadMedia(ctx, msg.MediaURL)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	return p.transcriber.Transcribe(ctx, audio, msg.MediaType)
}

// replyOnly stores and sends a templated reply without touching conversation
// state, used for the audio-transcription apology.
func (p *Processor) replyOnly(ctx context.Context, merchant *models.Merchant, conv *models.Conversation, msg InboundMessage, key models.TemplateKey, dedupeSuffix string) error {
	reply := merchant.Config.Message(key, nil)
	outgoing := &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionOutgoing,
		Content:        reply,
		Type:           models.MessageTypeText,
	}
	if _, err := p.store.CreateMessage(outgoing, msg.MessageSID+dedupeSuffix); err != nil {
		return fmt.Errorf("store reply: %w", err)
	}
	if err := p.messenger.SendMessage(ctx, msg.From, reply); err != nil {
		return sendError("send reply", err)
	}
	return nil
}

// sendError classifies a delivery failure. Permanent rejections (invalid
// recipient, Twilio 4xx) can never succeed on a later attempt, so they must
// not burn retries.
func sendError(op string, err error) error {
	if errors.Is(err, messaging.ErrPermanent) {
		return fmt.Errorf("%s: %v: %w", op, err, asynq.SkipRetry)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// createOrder materializes the confirmed order or reservation. ErrOrderExists
// is tolerated: a retried task must not create a second order.
func (p *Processor) createOrder(merchant *models.Merchant, conv *models.Conversation, res flow.Result) error {
	order := &models.Order{
		ConversationID:  conv.ID,
		MerchantID:      merchant.ID,
		Status:          models.OrderConfirmed,
		DeliveryAddress: res.Data.Address,
		PaymentMethod:   res.Data.PaymentMethod,
	}
	if res.ShouldCreateReservation && res.Data.Product != nil {
		product := res.Data.Product
		order.Items = []models.OrderItem{{
			Name:     product.Name,
			Price:    product.Price,
			Quantity: 1,
			Size:     product.Size,
			Color:    product.Color,
			Gender:   product.Gender,
		}}
		order.TotalAmount = product.Price
	} else {
		order.Items = res.Data.Items
		order.TotalAmount = res.Data.Total()
	}

	err := p.store.CreateOrder(order)
	if errors.Is(err, models.ErrOrderExists) {
		slog.Debug("Processor.createOrder: order already exists", "conversation_id", conv.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// sendProcessingApology tells the customer something went wrong, using the
// merchant's template when the merchant is resolvable.
func (p *Processor) sendProcessingApology(ctx context.Context, msg InboundMessage) {
	reply := ""
	if merchant, err := p.store.GetMerchantByWhatsAppNumber(msg.To); err == nil {
		reply = merchant.Config.Message(models.TemplateProcessingError, nil)
	}
	if reply == "" {
		var cfg models.MerchantConfig
		reply = cfg.Message(models.TemplateProcessingError, nil)
	}
	if err := p.messenger.SendMessage(ctx, msg.From, reply); err != nil {
		slog.Error("Processor.sendProcessingApology failed", "error", err, "to", msg.From)
	}
}
