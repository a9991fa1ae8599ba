// Package models defines the core data structures for VendaZap.
//
// It includes merchants, conversations, messages and orders, which are shared
// across the pipeline, flow engine and storage backends.
package models

import (
	"errors"
	"time"
)

// Segment identifies the merchant's business vertical, which binds the
// conversation flow type on the first processed message.
type Segment string

const (
	// SegmentDelivery is a food/delivery merchant (menu → items → address → payment).
	SegmentDelivery Segment = "delivery"
	// SegmentClothing is a clothing-retail merchant (product → size → reservation).
	SegmentClothing Segment = "clothing"
)

// MerchantStatus represents whether a merchant account is serviced.
type MerchantStatus string

const (
	MerchantStatusActive   MerchantStatus = "active"
	MerchantStatusInactive MerchantStatus = "inactive"
)

// FlowType identifies which conversation state machine drives a conversation.
type FlowType string

const (
	FlowTypeDelivery FlowType = "delivery"
	FlowTypeClothing FlowType = "clothing"
)

// ConversationStatus represents the lifecycle state of a conversation.
type ConversationStatus string

const (
	// ConversationOngoing indicates the bot is actively driving the conversation.
	ConversationOngoing ConversationStatus = "ongoing"
	// ConversationCompleted indicates an order/reservation was confirmed.
	ConversationCompleted ConversationStatus = "completed"
	// ConversationAbandoned indicates the customer went idle and a sweep closed it.
	ConversationAbandoned ConversationStatus = "abandoned"
	// ConversationTransferred indicates a human agent took over. The flow
	// machine must never run again for a transferred conversation.
	ConversationTransferred ConversationStatus = "transferred"
)

// MessageDirection distinguishes customer messages from bot replies.
type MessageDirection string

const (
	DirectionIncoming MessageDirection = "incoming"
	DirectionOutgoing MessageDirection = "outgoing"
)

// MessageType distinguishes text from (transcribed) audio messages.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeAudio MessageType = "audio"
)

// PaymentMethod is one of the payment options a merchant may accept.
type PaymentMethod string

const (
	PaymentPix  PaymentMethod = "pix"
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

// OrderStatus tracks an order through fulfillment.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// DeliveryType records how a clothing reservation will be handed over.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// Error variables for validation and storage failures.
var (
	ErrMerchantNotFound     = errors.New("merchant not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrOrderExists          = errors.New("order already exists for conversation")
	ErrOrderNotFound        = errors.New("order not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrEmptyOrder           = errors.New("cannot create order with no items")
	ErrInvalidTotal         = errors.New("order total must be greater than zero")
	ErrUnknownTemplateKey   = errors.New("unknown message template key")
)

// IsValidSegment checks if the given merchant segment is supported.
func IsValidSegment(s Segment) bool {
	switch s {
	case SegmentDelivery, SegmentClothing:
		return true
	default:
		return false
	}
}

// IsValidPaymentMethod checks if the given payment method is supported.
func IsValidPaymentMethod(p PaymentMethod) bool {
	switch p {
	case PaymentPix, PaymentCard, PaymentCash:
		return true
	default:
		return false
	}
}

// IsValidOrderStatus checks if the given order status is supported.
func IsValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderOutForDelivery, OrderDelivered, OrderCancelled:
		return true
	default:
		return false
	}
}

// Merchant represents one business served by the assistant.
type Merchant struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Segment        Segment        `json:"segment"`
	WhatsAppNumber string         `json:"whatsapp_number"`
	Status         MerchantStatus `json:"status"`
	Config         MerchantConfig `json:"configuration"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Conversation represents one ongoing customer interaction with one merchant.
// At most one ongoing conversation exists per (merchant, customer phone) pair.
type Conversation struct {
	ID             int64              `json:"id"`
	MerchantID     int64              `json:"merchant_id"`
	CustomerPhone  string             `json:"customer_phone"`
	Status         ConversationStatus `json:"status"`
	FlowType       FlowType           `json:"flow_type,omitempty"`
	CurrentState   string             `json:"current_state,omitempty"`
	CollectedData  CollectedData      `json:"collected_data"`
	TransferReason string             `json:"transfer_reason,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	LastMessageAt  time.Time          `json:"last_message_at"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Message is an immutable append-only log entry for one conversation.
type Message struct {
	ID             int64            `json:"id"`
	ConversationID int64            `json:"conversation_id"`
	Direction      MessageDirection `json:"direction"`
	Content        string           `json:"content"`
	Type           MessageType      `json:"message_type"`
	CreatedAt      time.Time        `json:"created_at"`
}

// OrderItem is one line item of an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Size     string  `json:"size,omitempty"`
	Color    string  `json:"color,omitempty"`
	Gender   string  `json:"gender,omitempty"`
}

// Order is created at most once per conversation, on explicit confirmation.
type Order struct {
	ID              int64         `json:"id"`
	ConversationID  int64         `json:"conversation_id"`
	MerchantID      int64         `json:"merchant_id"`
	Status          OrderStatus   `json:"status"`
	Items           []OrderItem   `json:"items"`
	TotalAmount     float64       `json:"total_amount"`
	DeliveryAddress string        `json:"delivery_address,omitempty"`
	PaymentMethod   PaymentMethod `json:"payment_method,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Validate checks the order invariants before persistence.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	if o.TotalAmount <= 0 {
		return ErrInvalidTotal
	}
	return nil
}

// ProductSelection is the single-product shape collected by the clothing flow.
type ProductSelection struct {
	Name   string  `json:"name"`
	Size   string  `json:"size"`
	Color  string  `json:"color"`
	Price  float64 `json:"price"`
	Type   string  `json:"type,omitempty"`
	Gender string  `json:"gender,omitempty"`
}

// CollectedData is the working memory of the active flow, accumulated across
// states and persisted with the conversation as JSON.
type CollectedData struct {
	// Delivery flow fields.
	Items         []OrderItem   `json:"items,omitempty"`
	Address       string        `json:"address,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`

	// Clothing flow fields.
	Product          *ProductSelection `json:"product,omitempty"`
	DeliveryType     DeliveryType      `json:"delivery_type,omitempty"`
	AvailableOptions []CatalogItem     `json:"available_options,omitempty"`

	// Consecutive unrecognized inputs in the current state; feeds the
	// fallback detector and resets on any recognized input.
	InvalidAttempts int `json:"invalid_attempts,omitempty"`
}

// Total computes the sum of price×quantity over the delivery items.
func (d CollectedData) Total() float64 {
	var total float64
	for _, it := range d.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
