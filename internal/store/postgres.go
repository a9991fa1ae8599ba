// Package store provides storage backends for VendaZap.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/lib/pq"
	"github.com/vendazap/vendazap/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateMerchant(m *models.Merchant) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, m.Name, m.Segment, m.WhatsAppNumber, m.Status, configJSON, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("merchant with number %s already exists: %w", m.WhatsAppNumber, err)
		}
		slog.Error("PostgresStore CreateMerchant failed", "error", err, "whatsapp_number", m.WhatsAppNumber)
		return fmt.Errorf("failed to insert merchant %s: %w", m.WhatsAppNumber, err)
	}
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
	slog.Debug("PostgresStore CreateMerchant succeeded", "merchant_id", id)
	return nil
}

func (s *PostgresStore) GetMerchant(id int64) (*models.Merchant, error) {
	row := s.db.QueryRow(`SELECT `+merchantColumns+` FROM merchants WHERE id = $1`, id)
	m, err := scanMerchant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrMerchantNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetMerchant failed", "error", err, "merchant_id", id)
		return nil, fmt.Errorf("failed to query merchant %d: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) GetMerchantByWhatsAppNumber(number string) (*models.Merchant, error) {
	row := s.db.QueryRow(`SELECT `+merchantColumns+` FROM merchants WHERE whatsapp_number = $1`, number)
	m, err := scanMerchant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrMerchantNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetMerchantByWhatsAppNumber failed", "error", err, "number", number)
		return nil, fmt.Errorf("failed to query merchant by number: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) UpdateMerchantConfig(id int64, cfg models.MerchantConfig) error {
	configJSON, err := marshalJSON(cfg)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE merchants SET config = $1, updated_at = $2 WHERE id = $3`,
		configJSON, time.Now().UTC(), id)
	if err != nil {
		slog.Error("PostgresStore UpdateMerchantConfig failed", "error", err, "merchant_id", id)
		return fmt.Errorf("failed to update merchant config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrMerchantNotFound
	}
	return nil
}

func (s *PostgresStore) FindActiveConversation(merchantID int64, customerPhone string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT `+conversationColumns+` FROM conversations
		WHERE merchant_id = $1 AND customer_phone = $2 AND status IN ('ongoing', 'transferred')`,
		merchantID, customerPhone)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrConversationNotFound
	}
	if err != nil {
		slog.Error("PostgresStore FindActiveConversation failed", "error", err, "merchant_id", merchantID)
		return nil, fmt.Errorf("failed to query active conversation: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindOrCreateConversation(merchantID int64, customerPhone string) (*models.Conversation, error) {
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
	// The partial unique index absorbs the race where two workers create the
	// conversation at once; the loser re-reads the winner's row.
	_, err = s.db.Exec(`INSERT INTO conversations (id, merchant_id, customer_phone, status, collected_data, started_at, last_message_at, created_at, updated_at)
		VALUES ($1, $2, $3, 'ongoing', '{}', $4, $4, $4, $4)
		ON CONFLICT (merchant_id, customer_phone) WHERE status IN ('ongoing', 'transferred') DO NOTHING`,
		id, merchantID, customerPhone, now)
	if err != nil {
		slog.Error("PostgresStore FindOrCreateConversation insert failed", "error", err, "merchant_id", merchantID)
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return s.FindActiveConversation(merchantID, customerPhone)
}

func (s *PostgresStore) UpdateConversationState(id int64, flowType models.FlowType, state string, data models.CollectedData) error {
	dataJSON, err := marshalJSON(data)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE conversations SET flow_type = $1, current_state = $2, collected_data = $3, updated_at = $4 WHERE id = $5`,
		nilIfEmpty(string(flowType)), nilIfEmpty(state), dataJSON, time.Now().UTC(), id)
	if err != nil {
		slog.Error("PostgresStore UpdateConversationState failed", "error", err, "conversation_id", id)
		return fmt.Errorf("failed to update conversation state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConversationNotFound
	}
	return nil
}

func (s *PostgresStore) TransferToHuman(id int64, reason string) error {
	res, err := s.db.Exec(`UPDATE conversations SET status = 'transferred', transfer_reason = $1, updated_at = $2 WHERE id = $3`,
		nilIfEmpty(reason), time.Now().UTC(), id)
	if err != nil {
		slog.Error("PostgresStore TransferToHuman failed", "error", err, "conversation_id", id)
		return fmt.Errorf("failed to transfer conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConversationNotFound
	}
	slog.Info("PostgresStore TransferToHuman succeeded", "conversation_id", id, "reason", reason)
	return nil
}

func (s *PostgresStore) MarkCompleted(id int64) error {
	res, err := s.db.Exec(`UPDATE conversations SET status = 'completed', updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id)
	if err != nil {
		slog.Error("PostgresStore MarkCompleted failed", "error", err, "conversation_id", id)
		return fmt.Errorf("failed to complete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConversationNotFound
	}
	return nil
}

func (s *PostgresStore) TouchConversation(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE conversations SET last_message_at = $1, updated_at = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		slog.Error("PostgresStore TouchConversation failed", "error", err, "conversation_id", id)
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkAbandonedBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`UPDATE conversations SET status = 'abandoned', updated_at = $1
		WHERE status = 'ongoing' AND last_message_at < $2`, time.Now().UTC(), cutoff.UTC())
	if err != nil {
		slog.Error("PostgresStore MarkAbandonedBefore failed", "error", err)
		return 0, fmt.Errorf("failed to mark abandoned conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("PostgresStore MarkAbandonedBefore succeeded", "count", n)
	}
	return n, nil
}

func (s *PostgresStore) CreateMessage(msg *models.Message, dedupeKey string) (bool, error) {
	id, err := newID()
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO messages (id, conversation_id, direction, content, message_type, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (dedupe_key) DO NOTHING`,
		id, msg.ConversationID, msg.Direction, msg.Content, msg.Type, nilIfEmpty(dedupeKey), now)
	if err != nil {
		slog.Error("PostgresStore CreateMessage failed", "error", err, "conversation_id", msg.ConversationID)
		return false, fmt.Errorf("failed to insert message: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		slog.Debug("PostgresStore CreateMessage deduplicated", "dedupe_key", dedupeKey)
		return false, nil
	}
	msg.ID = id
	msg.CreatedAt = now
	return true, nil
}

func (s *PostgresStore) FindMessageByDedupeKey(dedupeKey string) (*models.Message, error) {
	rows, err := s.db.Query(`SELECT `+messageColumns+` FROM messages WHERE dedupe_key = $1`, dedupeKey)
	if err != nil {
		slog.Error("PostgresStore FindMessageByDedupeKey query failed", "error", err)
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

func (s *PostgresStore) ListMessages(conversationID int64) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY created_at, id`, conversationID)
	if err != nil {
		slog.Error("PostgresStore ListMessages query failed", "error", err, "conversation_id", conversationID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			slog.Error("PostgresStore ListMessages scan failed", "error", err)
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return messages, nil
}

func (s *PostgresStore) CreateOrder(order *models.Order) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (conversation_id) DO NOTHING`,
		id, order.ConversationID, order.MerchantID, order.Status, itemsJSON,
		order.TotalAmount, nilIfEmpty(order.DeliveryAddress), nilIfEmpty(string(order.PaymentMethod)), now)
	if err != nil {
		slog.Error("PostgresStore CreateOrder failed", "error", err, "conversation_id", order.ConversationID)
		return fmt.Errorf("failed to insert order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrOrderExists
	}
	order.ID = id
	order.CreatedAt = now
	order.UpdatedAt = now
	slog.Info("PostgresStore CreateOrder succeeded", "order_id", id, "conversation_id", order.ConversationID, "total", order.TotalAmount)
	return nil
}

func (s *PostgresStore) GetOrderByConversation(conversationID int64) (*models.Order, error) {
	row := s.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE conversation_id = $1`, conversationID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetOrderByConversation failed", "error", err, "conversation_id", conversationID)
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) UpdateOrderStatus(orderID int64, status models.OrderStatus) error {
	if !models.IsValidOrderStatus(status) {
		return fmt.Errorf("invalid order status: %s", status)
	}
	res, err := s.db.Exec(`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), orderID)
	if err != nil {
		slog.Error("PostgresStore UpdateOrderStatus failed", "error", err, "order_id", orderID)
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}

// isUniqueViolation reports whether the error is a Postgres unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
