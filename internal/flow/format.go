package flow

import (
	"strconv"
	"strings"

	"github.com/vendazap/vendazap/internal/models"
)

// formatPrice renders a price with two decimals, as shown to customers
// ("45.00").
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// paymentLabel is the customer-facing PT-BR name of a payment method.
func paymentLabel(p models.PaymentMethod) string {
	switch p {
	case models.PaymentPix:
		return "Pix"
	case models.PaymentCard:
		return "Cartão"
	case models.PaymentCash:
		return "Dinheiro"
	default:
		return string(p)
	}
}

// paymentMethodsLabel lists the merchant's accepted payment methods in
// customer-facing form: "Pix, Cartão ou Dinheiro".
func paymentMethodsLabel(cfg *models.MerchantConfig) string {
	methods := cfg.AcceptedPaymentMethods()
	labels := make([]string, len(methods))
	for i, m := range methods {
		labels[i] = paymentLabel(m)
	}
	if len(labels) == 1 {
		return labels[0]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + " ou " + labels[len(labels)-1]
}

// categoriesLabel lists the merchant's catalog category names.
func categoriesLabel(cfg *models.MerchantConfig) string {
	names := make([]string, len(cfg.Catalog))
	for i, c := range cfg.Catalog {
		names[i] = c.Category
	}
	return strings.Join(names, ", ")
}
