// Package store provides storage backends for VendaZap.
//
// It includes PostgreSQL and SQLite implementations sharing one schema, plus
// an in-memory store for tests. All writes the worker pipeline depends on for
// exactly-once effects (message dedupe, one order per conversation, one
// active conversation per customer) are enforced here with database
// constraints rather than application checks.
package store

import (
	"strings"
	"time"

	"github.com/vendazap/vendazap/internal/models"
)

// Store is the persistence interface consumed by the worker pipeline and the
// API layer.
type Store interface {
	// Merchants.
	CreateMerchant(m *models.Merchant) error
	GetMerchant(id int64) (*models.Merchant, error)
	GetMerchantByWhatsAppNumber(number string) (*models.Merchant, error)
	UpdateMerchantConfig(id int64, cfg models.MerchantConfig) error

	// Conversations. At most one active (ongoing or transferred) conversation
	// exists per (merchant, customer phone) pair; FindOrCreateConversation
	// relies on a partial unique index to stay race-safe across nodes.
	FindActiveConversation(merchantID int64, customerPhone string) (*models.Conversation, error)
	FindOrCreateConversation(merchantID int64, customerPhone string) (*models.Conversation, error)
	UpdateConversationState(id int64, flowType models.FlowType, state string, data models.CollectedData) error
	TransferToHuman(id int64, reason string) error
	MarkCompleted(id int64) error
	TouchConversation(id int64, at time.Time) error
	MarkAbandonedBefore(cutoff time.Time) (int64, error)

	// Messages. CreateMessage reports false without error when the dedupe key
	// was already stored, so retried jobs never duplicate the log.
	// FindMessageByDedupeKey lets a retried job detect how far its previous
	// attempt got.
	CreateMessage(msg *models.Message, dedupeKey string) (bool, error)
	FindMessageByDedupeKey(dedupeKey string) (*models.Message, error)
	ListMessages(conversationID int64) ([]models.Message, error)

	// Orders. CreateOrder returns models.ErrOrderExists when the conversation
	// already has one.
	CreateOrder(order *models.Order) error
	GetOrderByConversation(conversationID int64) (*models.Order, error)
	UpdateOrderStatus(orderID int64, status models.OrderStatus) error

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite3" so callers can
// pick the backend from a single DATABASE_URL setting. Anything that is not
// recognizably a PostgreSQL URL or key/value string is treated as a SQLite
// file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}
