// Package store provides storage backends for VendaZap.
//
// This file implements the SQLite-backed store, used for local development
// and tests.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vendazap/vendazap/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateMerchant(m *models.Merchant) error {
	id, err := newID()
	if err != nil {
		return err
	}
	configJSON, err := marshalJSON(m.Config)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(`INSERT INTO merchants (id, name, segment, whatsapp_number, status, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, m.Name, m.Segment, m.WhatsAppNumber, m.Status, configJSON, now, now)
	if err != nil {
		slog.Error("SQLiteStore CreateMerchant failed", "error", err, "whatsapp_number", m.WhatsAppNumber)
		return fmt.Errorf("failed to insert merchant %s: %w", m.WhatsAppNumber, err)
	}
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
	slog.Debug("SQLiteStore CreateMerchant succeeded", "merchant_id", id)
	return nil
}

func (s *SQLiteStore) GetMerchant(id int64) (*models.Merchant, error) {
	row := s.db.QueryRow(`SELECT `+merchantColumns+` FROM merchants WHERE id = ?`, id)
	m, err := scanMerchant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrMerchantNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetMerchant failed", "error", err, "merchant_id", id)
		return nil, fmt.Errorf("failed to query merchant %d: %w", id, err)
	}
	return m, nil
}

func (s *SQLiteStore) GetMerchantByWhatsAppNumber(number string) (*models.Merchant, error) {
	row := s.db.QueryRow(`SELECT `+merchantColumns+` FROM merchants WHERE whatsapp_number = ?`, number)
	m, err := scanMerchant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrMerchantNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetMerchantByWhatsAppNumber failed", "error", err, "number", number)
		return nil, fmt.Errorf("failed to query merchant by number: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) UpdateMerchantConfig(id int64, cfg models.MerchantConfig) error {
	configJSON, err := marshalJSON(cfg)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE merchants SET config = ?, updated_at = ? WHERE id = ?`,
		configJSON, time.Now().UTC(), id)
	if err != nil {
		slog.Error("SQLiteStore UpdateMerchantConfig failed", "error", err, "merchant_id", id)
		return fmt.Errorf("failed to update merchant config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrMerchantNotFound
	}
	return nil
}

func (s *SQLiteStore) FindActiveConversation(merchantID int64, customerPhone string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT `+conversationColumns+` FROM conversations
		WHERE merchant_id = ? AND customer_phone = ? AND status IN ('ongoing', 'transferred')`,
		merchantID, customerPhone)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrConversationNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore FindActiveConversation failed", "error", err, "merchant_id", merchantID)
		return nil, fmt.Errorf("failed to query active conversation: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) FindOrCreateConversation(merchantID int64, customerPhone string) (*models.Conversation, error) {
	c, err := s.FindActiveConversation(merchantID, customerPhone)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, models.ErrConversationNotFound) {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(`INSERT INTO conversations (id, merchant_id, customer_phone, status, collected_data, started_at, last_message_at, created_at, updated_at)
		VALUES (?, ?, ?, 'ongoing', '{}', ?, ?, ?, ?)
		ON CONFLICT (merchant_id, customer_phone) WHERE status IN ('ongoing', 'transferred') DO NOTHING`,
		id, merchantID, customerPhone, now, now, now, now)
	if err != nil {
		slog.Error("SQLiteStore FindOrCreateConversation insert failed", "error", err, "merchant_id", merchantID)
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return s.FindActiveConversation(merchantID, customerPhone)
}

func (s *SQLiteStore) UpdateConversationState(id int64, flowType models.FlowType, state string, data models.CollectedData) error {
	dataJSON, err := marshalJSON(data)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE conversations SET flow_type = ?, current_state = ?, collected_data = ?, updated_at = ? WHERE id = ?`,
		nilIfEmpty(string(flowType)), nilIfEmpty(state), dataJSON, time.Now().UTC(), id)
	if err != nil {
		slog.Error("SQLiteStore UpdateConversationState failed", "error", err, "conversation_id", id)
		return fmt.Errorf("failed to update conversation state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConversationNotFound
	}
	return nil
}

func (s *SQLiteStore) TransferToHuman(id int64, reason string) error {
	res, err := s.db.Exec(`UPDATE conversations SET status = 'transferred', transfer_reason = ?, updated_at = ? WHERE id = ?`,
		nilIfEmpty(reason), time.Now().UTC(), id)
	if err != nil {
		slog.Error("SQLiteStore TransferToHuman failed", "error", err, "conversation_id", id)
		return fmt.Errorf("failed to transfer conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConversationNotFound
	}
	slog.Info("SQLiteStore TransferToHuman succeeded", "conversation_id", id, "reason", reason)
	return nil
}

func (s *SQLiteStore) MarkCompleted(id int64) error {
	res, err := s.db.Exec(`UPDATE conversations SET status = 'completed', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		slog.Error("SQLiteStore MarkCompleted failed", "error", err, "conversation_id", id)
		return fmt.Errorf("failed to complete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConversationNotFound
	}
	return nil
}

func (s *SQLiteStore) TouchConversation(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE conversations SET last_message_at = ?, updated_at = ? WHERE id = ?`, at.UTC(), at.UTC(), id)
	if err != nil {
		slog.Error("SQLiteStore TouchConversation failed", "error", err, "conversation_id", id)
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkAbandonedBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`UPDATE conversations SET status = 'abandoned', updated_at = ?
		WHERE status = 'ongoing' AND last_message_at < ?`, time.Now().UTC(), cutoff.UTC())
	if err != nil {
		slog.Error("SQLiteStore MarkAbandonedBefore failed", "error", err)
		return 0, fmt.Errorf("failed to mark abandoned conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("SQLiteStore MarkAbandonedBefore succeeded", "count", n)
	}
	return n, nil
}

func (s *SQLiteStore) CreateMessage(msg *models.Message, dedupeKey string) (bool, error) {
	id, err := newID()
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO messages (id, conversation_id, direction, content, message_type, dedupe_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dedupe_key) DO NOTHING`,
		id, msg.ConversationID, msg.Direction, msg.Content, msg.Type, nilIfEmpty(dedupeKey), now)
	if err != nil {
		slog.Error("SQLiteStore CreateMessage failed", "error", err, "conversation_id", msg.ConversationID)
		return false, fmt.Errorf("failed to insert message: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		slog.Debug("SQLiteStore CreateMessage deduplicated", "dedupe_key", dedupeKey)
		return false, nil
	}
	msg.ID = id
	msg.CreatedAt = now
	return true, nil
}

func (s *SQLiteStore) FindMessageByDedupeKey(dedupeKey string) (*models.Message, error) {
	rows, err := s.db.Query(`SELECT `+messageColumns+` FROM messages WHERE dedupe_key = ?`, dedupeKey)
	if err != nil {
		slog.Error("SQLiteStore FindMessageByDedupeKey query failed", "error", err)
		return nil, fmt.Errorf("failed to query message by dedupe key: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, models.ErrMessageNotFound
	}
	m, err := scanMessage(rows)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) ListMessages(conversationID int64) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY created_at, id`, conversationID)
	if err != nil {
		slog.Error("SQLiteStore ListMessages query failed", "error", err, "conversation_id", conversationID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			slog.Error("SQLiteStore ListMessages scan failed", "error", err)
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return messages, nil
}

func (s *SQLiteStore) CreateOrder(order *models.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}
	id, err := newID()
	if err != nil {
		return err
	}
	itemsJSON, err := marshalJSON(order.Items)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO orders (id, conversation_id, merchant_id, status, items, total_amount, delivery_address, payment_method, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (conversation_id) DO NOTHING`,
		id, order.ConversationID, order.MerchantID, order.Status, itemsJSON,
		order.TotalAmount, nilIfEmpty(order.DeliveryAddress), nilIfEmpty(string(order.PaymentMethod)), now, now)
	if err != nil {
		slog.Error("SQLiteStore CreateOrder failed", "error", err, "conversation_id", order.ConversationID)
		return fmt.Errorf("failed to insert order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrOrderExists
	}
	order.ID = id
	order.CreatedAt = now
	order.UpdatedAt = now
	slog.Info("SQLiteStore CreateOrder succeeded", "order_id", id, "conversation_id", order.ConversationID, "total", order.TotalAmount)
	return nil
}

func (s *SQLiteStore) GetOrderByConversation(conversationID int64) (*models.Order, error) {
	row := s.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE conversation_id = ?`, conversationID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetOrderByConversation failed", "error", err, "conversation_id", conversationID)
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return o, nil
}

func (s *SQLiteStore) UpdateOrderStatus(orderID int64, status models.OrderStatus) error {
	if !models.IsValidOrderStatus(status) {
		return fmt.Errorf("invalid order status: %s", status)
	}
	res, err := s.db.Exec(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), orderID)
	if err != nil {
		slog.Error("SQLiteStore UpdateOrderStatus failed", "error", err, "order_id", orderID)
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
