package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/vendazap/vendazap/internal/models"
	"github.com/vendazap/vendazap/internal/store"
)

func sweeperFixture(t *testing.T) (*store.InMemoryStore, *models.Merchant, *models.Conversation) {
	t.Helper()
	s := store.NewInMemoryStore()
	merchant := &models.Merchant{
		Name:           "Loja",
		Segment:        models.SegmentDelivery,
		WhatsAppNumber: "+5511999990000",
		Status:         models.MerchantStatusActive,
	}
	if err := s.CreateMerchant(merchant); err != nil {
		t.Fatal(err)
	}
	conv, err := s.FindOrCreateConversation(merchant.ID, "+5511988887777")
	if err != nil {
		t.Fatal(err)
	}
	return s, merchant, conv
}

func TestSweeperClosesIdleConversations(t *testing.T) {
	s, merchant, conv := sweeperFixture(t)
	if err := s.TouchConversation(conv.ID, time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}

	// A one hour window closes the two hour idle thread.
	sw := NewSweeper(s, WithAbandonAfter(time.Hour), WithSweepInterval(time.Minute))
	sw.sweep()

	if _, err := s.FindActiveConversation(merchant.ID, "+5511988887777"); !errors.Is(err, models.ErrConversationNotFound) {
		t.Errorf("idle conversation should be abandoned, got %v", err)
	}
}

func TestSweeperKeepsRecentConversations(t *testing.T) {
	s, merchant, conv := sweeperFixture(t)
	if err := s.TouchConversation(conv.ID, time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}

	// Two hours idle is fine under the default 24 hour window.
	NewSweeper(s).sweep()

	active, err := s.FindActiveConversation(merchant.ID, "+5511988887777")
	if err != nil {
		t.Fatalf("recent conversation must stay active: %v", err)
	}
	if active.ID != conv.ID {
		t.Errorf("unexpected conversation: %+v", active)
	}
}
