// Package flow implements the deterministic conversation state machines and
// the router that dispatches inbound messages to them.
//
// Transition functions are pure: given the same state, message, collected
// data and merchant configuration they always produce the same result. All
// side effects (persistence, sending) belong to the worker pipeline.
package flow

import "github.com/vendazap/vendazap/internal/models"

// Result is the uniform response envelope returned to the worker pipeline.
type Result struct {
	Reply                   string               `json:"reply"`
	NewState                string               `json:"new_state"`
	Data                    models.CollectedData `json:"collected_data"`
	ShouldTransfer          bool                 `json:"should_transfer"`
	TransferReason          string               `json:"transfer_reason,omitempty"`
	ShouldCreateOrder       bool                 `json:"should_create_order"`
	ShouldCreateReservation bool                 `json:"should_create_reservation,omitempty"`
}

// DeliveryState is the closed state set of the delivery flow.
type DeliveryState string

const (
	DeliveryGreeting        DeliveryState = "greeting"
	DeliveryShowingMenu     DeliveryState = "showing_menu"
	DeliveryCollectingItems DeliveryState = "collecting_items"
	DeliveryAskingAddress   DeliveryState = "asking_address"
	DeliveryAskingPayment   DeliveryState = "asking_payment"
	DeliveryConfirming      DeliveryState = "confirming_order"
	DeliveryConfirmed       DeliveryState = "order_confirmed"
	DeliveryTransferred     DeliveryState = "transferred_to_human"
)

// DecodeDeliveryState converts a stored state string into a typed state.
// An empty string decodes to the initial greeting state; an unrecognized
// value is reported so the router can transfer instead of guessing.
func DecodeDeliveryState(s string) (DeliveryState, bool) {
	switch DeliveryState(s) {
	case "":
		return DeliveryGreeting, true
	case DeliveryGreeting, DeliveryShowingMenu, DeliveryCollectingItems,
		DeliveryAskingAddress, DeliveryAskingPayment, DeliveryConfirming,
		DeliveryConfirmed, DeliveryTransferred:
		return DeliveryState(s), true
	default:
		return "", false
	}
}

// ClothingState is the closed state set of the clothing flow.
type ClothingState string

const (
	ClothingGreeting       ClothingState = "greeting"
	ClothingAskingGender   ClothingState = "asking_gender"
	ClothingAskingSize     ClothingState = "asking_size"
	ClothingShowingOptions ClothingState = "showing_options"
	ClothingAskingDelivery ClothingState = "asking_delivery_type"
	ClothingAskingAddress  ClothingState = "asking_address"
	ClothingAskingPayment  ClothingState = "asking_payment"
	ClothingConfirming     ClothingState = "confirming_reservation"
	ClothingConfirmed      ClothingState = "reservation_confirmed"
	ClothingTransferred    ClothingState = "transferred_to_human"
)

// DecodeClothingState converts a stored state string into a typed state.
func DecodeClothingState(s string) (ClothingState, bool) {
	switch ClothingState(s) {
	case "":
		return ClothingGreeting, true
	case ClothingGreeting, ClothingAskingGender, ClothingAskingSize,
		ClothingShowingOptions, ClothingAskingDelivery, ClothingAskingAddress,
		ClothingAskingPayment, ClothingConfirming, ClothingConfirmed,
		ClothingTransferred:
		return ClothingState(s), true
	default:
		return "", false
	}
}

// TransferReasonUnexpectedState is stored when a conversation carries a state
// value no flow recognizes (data corruption). The flow is never reset
// silently.
const TransferReasonUnexpectedState = "unexpected state"

// TransferReasonUnknownFlowType is stored when a conversation carries a flow
// type the router cannot dispatch.
const TransferReasonUnknownFlowType = "unknown flow type"
