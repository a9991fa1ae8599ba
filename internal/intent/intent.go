// Package intent classifies free-text customer messages against fixed PT-BR
// keyword tables and the merchant catalog.
//
// All predicates are pure. A failed parse is a normal branch handled by the
// caller with a re-prompt, never an error.
package intent

import (
	"strings"

	"github.com/vendazap/vendazap/internal/models"
)

// accentFolder maps the accented characters that occur in PT-BR input to
// their base letters, standing in for a full NFD decomposition pass.
var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n",
)

// Normalize lowercases, folds accents and strips punctuation so that keyword
// and catalog comparisons are accent- and case-insensitive.
func Normalize(text string) string {
	folded := accentFolder.Replace(strings.ToLower(strings.TrimSpace(text)))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '_':
			b.WriteRune(r)
		case r == '\n', r == '\t':
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// containsAny reports whether the normalized text contains any of the
// keywords as a substring.
func containsAny(text string, keywords []string) bool {
	normalized := Normalize(text)
	for _, keyword := range keywords {
		if strings.Contains(normalized, Normalize(keyword)) {
			return true
		}
	}
	return false
}

var greetingWords = []string{
	"oi", "ola", "bom dia", "boa tarde", "boa noite",
	"opa", "e ai", "quero pedir", "fazer pedido",
	"quero fazer um pedido", "gostaria de pedir",
}

var yesWords = []string{
	"sim", "yes", "confirmar", "confirma", "pode", "ok",
	"tudo bem", "isso mesmo", "correto", "certo", "claro",
}

var noWords = []string{
	"nao", "no", "negativo", "nunca", "jamais",
}

var complaintWords = []string{
	"reclamar", "reclamacao", "gerente", "problema",
	"insatisfeito", "ruim", "errado", "cancelar pedido",
	"nao recebi", "atrasado", "pessimo", "horrivel",
	"nao gostei", "decepcao",
}

var exchangeReturnWords = []string{
	"trocar", "troca", "devolver", "devolucao",
	"reembolso", "estornar", "estorno", "nao quero mais",
}

var humanRequestWords = []string{
	"gerente", "supervisor", "atendente", "humano",
	"falar com alguem", "desconto", "promocao", "condicao especial",
}

// IsGreeting reports whether the message opens a conversation.
func IsGreeting(message string) bool { return containsAny(message, greetingWords) }

// IsYes reports whether the message confirms.
func IsYes(message string) bool { return containsAny(message, yesWords) }

// IsNo reports whether the message declines.
func IsNo(message string) bool { return containsAny(message, noWords) }

// IsComplaint reports whether the message contains complaint keywords.
func IsComplaint(message string) bool { return containsAny(message, complaintWords) }

// IsExchangeOrReturn reports whether the message asks for an exchange,
// return or refund.
func IsExchangeOrReturn(message string) bool { return containsAny(message, exchangeReturnWords) }

// IsHumanRequest reports whether the message explicitly asks for a human
// agent or a special condition only a human can grant.
func IsHumanRequest(message string) bool { return containsAny(message, humanRequestWords) }

// ParsePayment extracts a payment method from the message. The boolean is
// false when no method is mentioned.
func ParsePayment(message string) (models.PaymentMethod, bool) {
	normalized := Normalize(message)
	switch {
	case strings.Contains(normalized, "pix"):
		return models.PaymentPix, true
	case strings.Contains(normalized, "cartao"), strings.Contains(normalized, "card"),
		strings.Contains(normalized, "credito"), strings.Contains(normalized, "debito"):
		return models.PaymentCard, true
	case strings.Contains(normalized, "dinheiro"), strings.Contains(normalized, "cash"),
		strings.Contains(normalized, "especie"):
		return models.PaymentCash, true
	}
	return "", false
}

// FuzzyMatch reports whether two strings match by bidirectional substring
// containment after normalization. Used for catalog and category lookup.
func FuzzyMatch(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// MatchCategory finds the catalog category the message refers to. Matching is
// driven entirely by the merchant's configured category names, not a fixed
// list.
func MatchCategory(message string, catalog []models.CatalogCategory) (*models.CatalogCategory, bool) {
	for i := range catalog {
		if FuzzyMatch(message, catalog[i].Category) {
			return &catalog[i], true
		}
	}
	return nil, false
}

// FindItem locates a catalog item mentioned in the message, searching every
// category. The returned order item carries quantity 1.
func FindItem(message string, catalog []models.CatalogCategory) (models.OrderItem, bool) {
	for _, category := range catalog {
		for _, item := range category.Items {
			if FuzzyMatch(message, item.Name) {
				return models.OrderItem{Name: item.Name, Price: item.Price, Quantity: 1}, true
			}
		}
	}
	return models.OrderItem{}, false
}
