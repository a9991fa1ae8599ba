package flow

import "github.com/vendazap/vendazap/internal/intent"

// Transfer reasons surfaced to the merchant dashboard. They are diagnostics,
// never shown to the customer.
const (
	TransferReasonComplaint       = "customer complaint detected"
	TransferReasonExchangeReturn  = "exchange or return request"
	TransferReasonHumanRequested  = "human agent or special condition requested"
	TransferReasonInvalidAttempts = "customer unable to provide valid input after 2 attempts"
)

// FallbackDecision is the outcome of the escalation check.
type FallbackDecision struct {
	ShouldTransfer bool
	Reason         string
}

// DetectFallback decides whether the conversation must escalate to a human.
// Priority order: complaint > exchange/return > explicit human request >
// two consecutive unparsed inputs in the same state. Both flow machines run
// this before any per-state logic, in every state including terminal ones.
func DetectFallback(message string, invalidAttempts int) FallbackDecision {
	if intent.IsComplaint(message) {
		return FallbackDecision{ShouldTransfer: true, Reason: TransferReasonComplaint}
	}
	if intent.IsExchangeOrReturn(message) {
		return FallbackDecision{ShouldTransfer: true, Reason: TransferReasonExchangeReturn}
	}
	if intent.IsHumanRequest(message) {
		return FallbackDecision{ShouldTransfer: true, Reason: TransferReasonHumanRequested}
	}
	if invalidAttempts >= 2 {
		return FallbackDecision{ShouldTransfer: true, Reason: TransferReasonInvalidAttempts}
	}
	return FallbackDecision{}
}
