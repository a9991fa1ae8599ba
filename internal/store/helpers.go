package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vendazap/vendazap/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalJSON serializes a value for a JSON column.
func marshalJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json column: %w", err)
	}
	return string(raw), nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// merchantColumns is the column list every merchant query selects, in the
// order scanMerchant expects.
const merchantColumns = "id, name, segment, whatsapp_number, status, config, created_at, updated_at"

func scanMerchant(row rowScanner) (*models.Merchant, error) {
	var m models.Merchant
	var configJSON string
	err := row.Scan(&m.ID, &m.Name, &m.Segment, &m.WhatsAppNumber, &m.Status, &configJSON, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(configJSON), &m.Config); err != nil {
		return nil, fmt.Errorf("decode merchant config: %w", err)
	}
	return &m, nil
}

const conversationColumns = "id, merchant_id, customer_phone, status, flow_type, current_state, collected_data, transfer_reason, started_at, last_message_at, created_at, updated_at"

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var c models.Conversation
	var flowType, currentState, transferReason sql.NullString
	var dataJSON string
	err := row.Scan(
		&c.ID, &c.MerchantID, &c.CustomerPhone, &c.Status, &flowType, &currentState,
		&dataJSON, &transferReason, &c.StartedAt, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.FlowType = models.FlowType(flowType.String)
	c.CurrentState = currentState.String
	c.TransferReason = transferReason.String
	if err := json.Unmarshal([]byte(dataJSON), &c.CollectedData); err != nil {
		return nil, fmt.Errorf("decode collected data: %w", err)
	}
	return &c, nil
}

const messageColumns = "id, conversation_id, direction, content, message_type, created_at"

func scanMessage(rows *sql.Rows) (models.Message, error) {
	var m models.Message
	err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Content, &m.Type, &m.CreatedAt)
	if err != nil {
		return m, fmt.Errorf("scan message row: %w", err)
	}
	return m, nil
}

const orderColumns = "id, conversation_id, merchant_id, status, items, total_amount, delivery_address, payment_method, created_at, updated_at"

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var itemsJSON string
	var address, payment sql.NullString
	err := row.Scan(
		&o.ID, &o.ConversationID, &o.MerchantID, &o.Status, &itemsJSON,
		&o.TotalAmount, &address, &payment, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.DeliveryAddress = address.String
	o.PaymentMethod = models.PaymentMethod(payment.String)
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	return &o, nil
}
