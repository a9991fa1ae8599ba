package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/vendazap/vendazap/internal/models"
)

// InMemoryStore implements Store with plain maps, mirroring the SQL backends'
// uniqueness rules. It backs unit tests that should not touch a database.
type InMemoryStore struct {
	mu            sync.Mutex
	merchants     map[int64]*models.Merchant
	conversations map[int64]*models.Conversation
	messages      map[int64][]models.Message
	dedupeKeys    map[string]models.Message
	orders        map[int64]*models.Order // keyed by conversation ID
	nextID        int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		merchants:     make(map[int64]*models.Merchant),
		conversations: make(map[int64]*models.Conversation),
		messages:      make(map[int64][]models.Message),
		dedupeKeys:    make(map[string]models.Message),
		orders:        make(map[int64]*models.Order),
	}
}

func (s *InMemoryStore) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

func (s *InMemoryStore) CreateMerchant(m *models.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.merchants {
		if existing.WhatsAppNumber == m.WhatsAppNumber {
			return fmt.Errorf("merchant with number %s already exists", m.WhatsAppNumber)
		}
	}
	m.ID = s.nextIDLocked()
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	copied := *m
	s.merchants[m.ID] = &copied
	return nil
}

func (s *InMemoryStore) GetMerchant(id int64) (*models.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.merchants[id]
	if !ok {
		return nil, models.ErrMerchantNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *InMemoryStore) GetMerchantByWhatsAppNumber(number string) (*models.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.merchants {
		if m.WhatsAppNumber == number {
			copied := *m
			return &copied, nil
		}
	}
	return nil, models.ErrMerchantNotFound
}

func (s *InMemoryStore) UpdateMerchantConfig(id int64, cfg models.MerchantConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.merchants[id]
	if !ok {
		return models.ErrMerchantNotFound
	}
	m.Config = cfg
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) FindActiveConversation(merchantID int64, customerPhone string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findActiveLocked(merchantID, customerPhone)
}

func (s *InMemoryStore) findActiveLocked(merchantID int64, customerPhone string) (*models.Conversation, error) {
	for _, c := range s.conversations {
		if c.MerchantID == merchantID && c.CustomerPhone == customerPhone &&
			(c.Status == models.ConversationOngoing || c.Status == models.ConversationTransferred) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, models.ErrConversationNotFound
}

func (s *InMemoryStore) FindOrCreateConversation(merchantID int64, customerPhone string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, err := s.findActiveLocked(merchantID, customerPhone); err == nil {
		return c, nil
	}
	now := time.Now().UTC()
	c := &models.Conversation{
		ID:            s.nextIDLocked(),
		MerchantID:    merchantID,
		CustomerPhone: customerPhone,
		Status:        models.ConversationOngoing,
		StartedAt:     now,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.conversations[c.ID] = c
	copied := *c
	return &copied, nil
}

func (s *InMemoryStore) UpdateConversationState(id int64, flowType models.FlowType, state string, data models.CollectedData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return models.ErrConversationNotFound
	}
	c.FlowType = flowType
	c.CurrentState = state
	c.CollectedData = data
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) TransferToHuman(id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return models.ErrConversationNotFound
	}
	c.Status = models.ConversationTransferred
	c.TransferReason = reason
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) MarkCompleted(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return models.ErrConversationNotFound
	}
	c.Status = models.ConversationCompleted
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) TouchConversation(id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return models.ErrConversationNotFound
	}
	c.LastMessageAt = at.UTC()
	return nil
}

func (s *InMemoryStore) MarkAbandonedBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.conversations {
		if c.Status == models.ConversationOngoing && c.LastMessageAt.Before(cutoff) {
			c.Status = models.ConversationAbandoned
			c.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) CreateMessage(msg *models.Message, dedupeKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dedupeKey != "" {
		if _, seen := s.dedupeKeys[dedupeKey]; seen {
			return false, nil
		}
	}
	msg.ID = s.nextIDLocked()
	msg.CreatedAt = time.Now().UTC()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	if dedupeKey != "" {
		s.dedupeKeys[dedupeKey] = *msg
	}
	return true, nil
}

func (s *InMemoryStore) FindMessageByDedupeKey(dedupeKey string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.dedupeKeys[dedupeKey]
	if !ok {
		return nil, models.ErrMessageNotFound
	}
	copied := m
	return &copied, nil
}

func (s *InMemoryStore) ListMessages(conversationID int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *InMemoryStore) CreateOrder(order *models.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.ConversationID]; exists {
		return models.ErrOrderExists
	}
	order.ID = s.nextIDLocked()
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	copied := *order
	s.orders[order.ConversationID] = &copied
	return nil
}

func (s *InMemoryStore) GetOrderByConversation(conversationID int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[conversationID]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (s *InMemoryStore) UpdateOrderStatus(orderID int64, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == orderID {
			o.Status = status
			o.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return models.ErrOrderNotFound
}

func (s *InMemoryStore) Close() error { return nil }
