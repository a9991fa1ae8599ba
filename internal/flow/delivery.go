package flow

import (
	"strings"

	"github.com/vendazap/vendazap/internal/intent"
	"github.com/vendazap/vendazap/internal/models"
)

// Delivery is the pure transition function of the delivery flow.
//
// States: greeting → showing_menu → collecting_items → asking_address →
// asking_payment → confirming_order → order_confirmed, with
// transferred_to_human reachable from any state via the fallback detector.
// Unmatched input re-prompts in the same state and bumps the
// invalid-attempt counter.
func Delivery(state DeliveryState, message string, data models.CollectedData, cfg *models.MerchantConfig) Result {
	if fb := DetectFallback(message, data.InvalidAttempts); fb.ShouldTransfer {
		return deliveryTransfer(fb, data, cfg)
	}

	switch state {
	case DeliveryGreeting:
		if intent.IsGreeting(message) {
			data.Items = []models.OrderItem{}
			data.InvalidAttempts = 0
			reply := cfg.Message(models.TemplateGreeting, nil) + "\n\n" + formatMenu(cfg)
			return Result{Reply: reply, NewState: string(DeliveryShowingMenu), Data: data}
		}
		data.InvalidAttempts++
		return Result{Reply: cfg.Message(models.TemplateAskGreeting, nil), NewState: string(DeliveryGreeting), Data: data}

	case DeliveryShowingMenu:
		if category, ok := intent.MatchCategory(message, cfg.Catalog); ok {
			data.InvalidAttempts = 0
			if len(category.Items) == 0 {
				return Result{Reply: cfg.Message(models.TemplateCategoryEmpty, nil), NewState: string(DeliveryShowingMenu), Data: data}
			}
			return Result{Reply: formatCategory(category, cfg), NewState: string(DeliveryCollectingItems), Data: data}
		}
		data.InvalidAttempts++
		reply := cfg.Message(models.TemplateChooseCategory, map[string]string{"categories": categoriesLabel(cfg)})
		return Result{Reply: reply, NewState: string(DeliveryShowingMenu), Data: data}

	case DeliveryCollectingItems:
		if item, ok := intent.FindItem(message, cfg.Catalog); ok {
			data.Items = append(data.Items, item)
			data.InvalidAttempts = 0
			reply := cfg.Message(models.TemplateItemAdded, map[string]string{
				"item":  item.Name,
				"price": formatPrice(item.Price),
			})
			return Result{Reply: reply, NewState: string(DeliveryCollectingItems), Data: data}
		}
		if intent.IsNo(message) {
			data.InvalidAttempts = 0
			if len(data.Items) == 0 {
				return Result{Reply: cfg.Message(models.TemplateNoItemsYet, nil), NewState: string(DeliveryCollectingItems), Data: data}
			}
			return Result{Reply: cfg.Message(models.TemplateAskAddress, nil), NewState: string(DeliveryAskingAddress), Data: data}
		}
		data.InvalidAttempts++
		return Result{Reply: cfg.Message(models.TemplateItemNotFound, nil), NewState: string(DeliveryCollectingItems), Data: data}

	case DeliveryAskingAddress:
		if ValidAddress(message) {
			data.Address = message
			data.InvalidAttempts = 0
			reply := cfg.Message(models.TemplateAddressConfirmed, map[string]string{
				"address": message,
				"methods": paymentMethodsLabel(cfg),
			})
			return Result{Reply: reply, NewState: string(DeliveryAskingPayment), Data: data}
		}
		data.InvalidAttempts++
		return Result{Reply: cfg.Message(models.TemplateInvalidAddress, nil), NewState: string(DeliveryAskingAddress), Data: data}

	case DeliveryAskingPayment:
		payment, ok := intent.ParsePayment(message)
		if !ok {
			data.InvalidAttempts++
			reply := cfg.Message(models.TemplateChoosePayment, map[string]string{"methods": paymentMethodsLabel(cfg)})
			return Result{Reply: reply, NewState: string(DeliveryAskingPayment), Data: data}
		}
		if !cfg.AcceptsPayment(payment) {
			data.InvalidAttempts = 0
			reply := cfg.Message(models.TemplatePaymentNotAccepted, map[string]string{
				"method":  paymentLabel(payment),
				"methods": paymentMethodsLabel(cfg),
			})
			return Result{Reply: reply, NewState: string(DeliveryAskingPayment), Data: data}
		}
		data.PaymentMethod = payment
		data.InvalidAttempts = 0
		return Result{Reply: formatOrderSummary(data, cfg), NewState: string(DeliveryConfirming), Data: data}

	case DeliveryConfirming:
		if intent.IsYes(message) {
			data.InvalidAttempts = 0
			reply := cfg.Message(models.TemplateOrderConfirmed, nil) + "\n\n" + cfg.Message(models.TemplateOrderFarewell, nil)
			return Result{Reply: reply, NewState: string(DeliveryConfirmed), Data: data, ShouldCreateOrder: true}
		}
		if intent.IsNo(message) {
			return Result{Reply: cfg.Message(models.TemplateOrderCancelled, nil), NewState: string(DeliveryGreeting), Data: models.CollectedData{}}
		}
		data.InvalidAttempts++
		return Result{Reply: cfg.Message(models.TemplatePleaseConfirm, nil), NewState: string(DeliveryConfirming), Data: data}

	case DeliveryConfirmed:
		return Result{Reply: cfg.Message(models.TemplateOrderAlreadyConfirmed, nil), NewState: string(DeliveryConfirmed), Data: data}

	case DeliveryTransferred:
		return Result{Reply: cfg.Message(models.TemplateAlreadyWithAgent, nil), NewState: string(DeliveryTransferred), Data: data}

	default:
		return Result{
			Reply:          cfg.Message(models.TemplateSystemError, nil),
			NewState:       string(DeliveryTransferred),
			Data:           data,
			ShouldTransfer: true,
			TransferReason: TransferReasonUnexpectedState,
		}
	}
}

func deliveryTransfer(fb FallbackDecision, data models.CollectedData, cfg *models.MerchantConfig) Result {
	key := models.TemplateTransferToHuman
	if fb.Reason == TransferReasonExchangeReturn {
		key = models.TemplateExchangeTransfer
	}
	return Result{
		Reply:          cfg.Message(key, nil),
		NewState:       string(DeliveryTransferred),
		Data:           data,
		ShouldTransfer: true,
		TransferReason: fb.Reason,
	}
}

// formatMenu renders the full catalog grouped by category.
func formatMenu(cfg *models.MerchantConfig) string {
	if len(cfg.Catalog) == 0 {
		return cfg.Message(models.TemplateCatalogUnavailable, nil)
	}
	var b strings.Builder
	b.WriteString(cfg.Message(models.TemplateMenuHeader, nil))
	b.WriteString("\n\n")
	for _, category := range cfg.Catalog {
		b.WriteString("*" + category.Category + ":*\n")
		for _, item := range category.Items {
			b.WriteString("• " + item.Name + " - R$ " + formatPrice(item.Price) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(cfg.Message(models.TemplateMenuFooter, nil))
	return b.String()
}

// formatCategory renders a single category's item list.
func formatCategory(category *models.CatalogCategory, cfg *models.MerchantConfig) string {
	var b strings.Builder
	b.WriteString("*" + category.Category + ":*\n\n")
	for _, item := range category.Items {
		b.WriteString("• " + item.Name + " - R$ " + formatPrice(item.Price) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(cfg.Message(models.TemplateCategoryFooter, nil))
	return b.String()
}

// formatOrderSummary renders the itemized confirmation summary.
func formatOrderSummary(data models.CollectedData, cfg *models.MerchantConfig) string {
	var b strings.Builder
	b.WriteString(cfg.Message(models.TemplateOrderSummaryHeader, nil))
	b.WriteString("\n\n*Itens:*\n")
	for _, item := range data.Items {
		b.WriteString("• " + item.Name + " - R$ " + formatPrice(item.Price) + "\n")
	}
	b.WriteString("\n*Total:* R$ " + formatPrice(data.Total()) + "\n")
	b.WriteString("*Endereço:* " + data.Address + "\n")
	b.WriteString("*Pagamento:* " + paymentLabel(data.PaymentMethod) + "\n\n")
	b.WriteString(cfg.Message(models.TemplateAskConfirmation, nil))
	return b.String()
}
