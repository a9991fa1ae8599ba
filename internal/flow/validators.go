package flow

import (
	"regexp"
	"strings"

	"github.com/vendazap/vendazap/internal/models"
)

var (
	digitRegex    = regexp.MustCompile(`\d`)
	noNumberRegex = regexp.MustCompile(`(?i)s/n|sem\s+n[uú]mero`)
)

// ValidAddress checks whether the text is shaped like a Brazilian street
// address: at least 10 characters, at least 3 words, and either a house
// number or the "s/n" (no number) convention.
func ValidAddress(address string) bool {
	if len(address) < 10 {
		return false
	}
	if len(strings.Fields(strings.TrimSpace(address))) < 3 {
		return false
	}
	return digitRegex.MatchString(address) || noNumberRegex.MatchString(address)
}

// ValidPaymentMethod checks membership in the supported payment method set.
func ValidPaymentMethod(payment string) bool {
	return models.IsValidPaymentMethod(models.PaymentMethod(strings.ToLower(payment)))
}

// NotEmpty checks the message has visible content.
func NotEmpty(message string) bool {
	return strings.TrimSpace(message) != ""
}
