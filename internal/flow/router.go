package flow

import (
	"log/slog"
	"time"

	"github.com/vendazap/vendazap/internal/models"
)

// Router gates inbound messages on operating hours, binds the flow type on
// the first processed message, and dispatches to the right state machine.
type Router struct {
	now func() time.Time
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithClock overrides the router's time source, used by tests and by the
// hours gate.
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) { r.now = now }
}

// NewRouter creates a Router with the real clock unless overridden.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route produces the flow result for one inbound message. The conversation is
// mutated in place only for flow-type binding; persisting state is the
// caller's job.
//
// When the merchant is closed, the customer gets the closed reply and the
// conversation state is left untouched, so the flow resumes exactly where it
// was once the merchant reopens.
func (r *Router) Route(merchant *models.Merchant, conv *models.Conversation, message string) Result {
	if !IsOpen(merchant.Config.OperatingHours, r.now()) {
		return Result{
			Reply:    ClosedMessage(&merchant.Config, r.now()),
			NewState: conv.CurrentState,
			Data:     conv.CollectedData,
		}
	}

	if conv.FlowType == "" {
		conv.FlowType = flowTypeForSegment(merchant.Segment)
		conv.CurrentState = ""
		conv.CollectedData = models.CollectedData{}
		slog.Info("Router.Route: bound flow type",
			"conversation_id", conv.ID, "flow_type", conv.FlowType)
	}

	switch conv.FlowType {
	case models.FlowTypeDelivery:
		state, ok := DecodeDeliveryState(conv.CurrentState)
		if !ok {
			return unexpectedStateResult(&merchant.Config, conv, string(DeliveryTransferred))
		}
		return Delivery(state, message, conv.CollectedData, &merchant.Config)

	case models.FlowTypeClothing:
		state, ok := DecodeClothingState(conv.CurrentState)
		if !ok {
			return unexpectedStateResult(&merchant.Config, conv, string(ClothingTransferred))
		}
		return Clothing(state, message, conv.CollectedData, &merchant.Config)

	default:
		slog.Warn("Router.Route: unknown flow type",
			"conversation_id", conv.ID, "flow_type", conv.FlowType)
		return Result{
			Reply:          merchant.Config.Message(models.TemplateSystemError, nil),
			NewState:       conv.CurrentState,
			Data:           conv.CollectedData,
			ShouldTransfer: true,
			TransferReason: TransferReasonUnknownFlowType,
		}
	}
}

func flowTypeForSegment(segment models.Segment) models.FlowType {
	if segment == models.SegmentClothing {
		return models.FlowTypeClothing
	}
	return models.FlowTypeDelivery
}

func unexpectedStateResult(cfg *models.MerchantConfig, conv *models.Conversation, transferredState string) Result {
	slog.Warn("Router.Route: unrecognized conversation state",
		"conversation_id", conv.ID, "state", conv.CurrentState)
	return Result{
		Reply:          cfg.Message(models.TemplateSystemError, nil),
		NewState:       transferredState,
		Data:           conv.CollectedData,
		ShouldTransfer: true,
		TransferReason: TransferReasonUnexpectedState,
	}
}
