package flow

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vendazap/vendazap/internal/intent"
	"github.com/vendazap/vendazap/internal/models"
)

// Fixed vocabularies scanned against the greeting message. Tokens are kept in
// normalized (accent-free) form.
var productTypeWords = []string{
	"camiseta", "camisa", "calca", "shorts", "vestido",
	"saia", "jaqueta", "casaco", "blusa",
}

var colorWords = []string{
	"preta", "preto", "branca", "branco", "azul", "vermelha", "vermelho",
	"amarela", "amarelo", "verde", "rosa", "cinza",
}

var (
	// Letter sizes PP..XG, or a bounded numeric size (1-60) covering
	// children's and adult numeric sizing.
	letterSizeRegex  = regexp.MustCompile(`\b(pp|p|m|g|gg|xg)\b`)
	numericSizeRegex = regexp.MustCompile(`\b([1-9][0-9]?)\b`)
	ordinalRegex     = regexp.MustCompile(`\b(\d+)\b`)
)

// maxNumericSize bounds numeric clothing sizes.
const maxNumericSize = 60

// Clothing is the pure transition function of the clothing-reservation flow.
//
// States: greeting → asking_gender → asking_size → showing_options →
// asking_delivery_type → [asking_address] → asking_payment →
// confirming_reservation → reservation_confirmed, with transferred_to_human
// reachable from any state via the fallback detector.
func Clothing(state ClothingState, message string, data models.CollectedData, cfg *models.MerchantConfig) Result {
	if fb := DetectFallback(message, data.InvalidAttempts); fb.ShouldTransfer {
		return clothingTransfer(fb, data, cfg)
	}

	switch state {
	case ClothingGreeting:
		productType, ok := extractProductType(message)
		if !ok {
			data.InvalidAttempts++
			return Result{Reply: cfg.Message(models.TemplateAskProductType, nil), NewState: string(ClothingGreeting), Data: data}
		}
		color, _ := extractColor(message)
		product := models.ProductSelection{Type: productType, Color: color}
		if data.Product != nil {
			if color == "" {
				product.Color = data.Product.Color
			}
			product.Gender = data.Product.Gender
		}
		data.Product = &product
		data.InvalidAttempts = 0
		return Result{Reply: cfg.Message(models.TemplateAskGender, nil), NewState: string(ClothingAskingGender), Data: data}

	case ClothingAskingGender:
		gender, ok := parseGender(message)
		if !ok {
			data.InvalidAttempts++
			return Result{Reply: cfg.Message(models.TemplateInvalidGender, nil), NewState: string(ClothingAskingGender), Data: data}
		}
		product := *data.Product
		product.Gender = gender
		data.Product = &product
		data.InvalidAttempts = 0
		return Result{Reply: cfg.Message(models.TemplateAskSize, nil), NewState: string(ClothingAskingSize), Data: data}

	case ClothingAskingSize:
		size, ok := parseSize(message)
		if !ok {
			data.InvalidAttempts++
			return Result{Reply: cfg.Message(models.TemplateInvalidSize, nil), NewState: string(ClothingAskingSize), Data: data}
		}
		product := *data.Product
		product.Size = size
		data.Product = &product
		data.InvalidAttempts = 0

		options := findMatchingProducts(cfg.Catalog, product)
		if len(options) == 0 {
			return Result{Reply: cfg.Message(models.TemplateProductNotAvailable, nil), NewState: string(ClothingGreeting), Data: models.CollectedData{}}
		}
		data.AvailableOptions = options
		return Result{Reply: formatOptions(options, cfg), NewState: string(ClothingShowingOptions), Data: data}

	case ClothingShowingOptions:
		selected, ok := selectOption(message, data.AvailableOptions)
		if !ok {
			data.InvalidAttempts++
			return Result{Reply: cfg.Message(models.TemplateInvalidOption, nil), NewState: string(ClothingShowingOptions), Data: data}
		}
		product := models.ProductSelection{
			Name:   selected.Name,
			Size:   selected.Size,
			Color:  selected.Color,
			Price:  selected.Price,
			Gender: selected.Gender,
		}
		if data.Product != nil {
			if product.Size == "" {
				product.Size = data.Product.Size
			}
			if product.Color == "" {
				product.Color = data.Product.Color
			}
			if product.Gender == "" {
				product.Gender = data.Product.Gender
			}
		}
		data.Product = &product
		data.InvalidAttempts = 0
		reply := cfg.Message(models.TemplateOptionChosen, map[string]string{
			"item":  selected.Name,
			"price": formatPrice(selected.Price),
		})
		return Result{Reply: reply, NewState: string(ClothingAskingDelivery), Data: data}

	case ClothingAskingDelivery:
		normalized := intent.Normalize(message)
		if strings.Contains(normalized, "entrega") || strings.Contains(normalized, "entregar") {
			data.DeliveryType = models.DeliveryTypeDelivery
			data.InvalidAttempts = 0
			return Result{Reply: cfg.Message(models.TemplateAskDeliveryAddress, nil), NewState: string(ClothingAskingAddress), Data: data}
		}
		if strings.Contains(normalized, "retirar") || strings.Contains(normalized, "buscar") || strings.Contains(normalized, "loja") {
			data.DeliveryType = models.DeliveryTypePickup
			data.InvalidAttempts = 0
			reply := cfg.Message(models.TemplatePickupConfirmed, map[string]string{"methods": paymentMethodsLabel(cfg)})
			return Result{Reply: reply, NewState: string(ClothingAskingPayment), Data: data}
		}
		data.InvalidAttempts++
		return Result{Reply: cfg.Message(models.TemplateInvalidDeliveryType, nil), NewState: string(ClothingAskingDelivery), Data: data}

	case ClothingAskingAddress:
		if !ValidAddress(message) {
			data.InvalidAttempts++
			return Result{Reply: cfg.Message(models.TemplateInvalidAddress, nil), NewState: string(ClothingAskingAddress), Data: data}
		}
		data.Address = message
		data.InvalidAttempts = 0
		reply := cfg.Message(models.TemplateAddressConfirmed, map[string]string{
			"address": message,
			"methods": paymentMethodsLabel(cfg),
		})
		return Result{Reply: reply, NewState: string(ClothingAskingPayment), Data: data}

	case ClothingAskingPayment:
		payment, ok := intent.ParsePayment(message)
		if !ok {
			data.InvalidAttempts++
			reply := cfg.Message(models.TemplateChoosePayment, map[string]string{"methods": paymentMethodsLabel(cfg)})
			return Result{Reply: reply, NewState: string(ClothingAskingPayment), Data: data}
		}
		if !cfg.AcceptsPayment(payment) {
			data.InvalidAttempts = 0
			reply := cfg.Message(models.TemplatePaymentNotAccepted, map[string]string{
				"method":  paymentLabel(payment),
				"methods": paymentMethodsLabel(cfg),
			})
			return Result{Reply: reply, NewState: string(ClothingAskingPayment), Data: data}
		}
		data.PaymentMethod = payment
		data.InvalidAttempts = 0
		return Result{Reply: formatReservationSummary(data, cfg), NewState: string(ClothingConfirming), Data: data}

	case ClothingConfirming:
		if intent.IsYes(message) {
			data.InvalidAttempts = 0
			reply := cfg.Message(models.TemplateReservationConfirmed, nil) + " " + cfg.Message(models.TemplateReservationFarewell, nil)
			return Result{Reply: reply, NewState: string(ClothingConfirmed), Data: data, ShouldCreateReservation: true}
		}
		if intent.IsNo(message) {
			return Result{Reply: cfg.Message(models.TemplateReservationCancelled, nil), NewState: string(ClothingGreeting), Data: models.CollectedData{}}
		}
		data.InvalidAttempts++
		return Result{Reply: cfg.Message(models.TemplatePleaseConfirmReservation, nil), NewState: string(ClothingConfirming), Data: data}

	case ClothingConfirmed:
		return Result{Reply: cfg.Message(models.TemplateReservationAlreadyConfirmed, nil), NewState: string(ClothingConfirmed), Data: data}

	case ClothingTransferred:
		return Result{Reply: cfg.Message(models.TemplateAlreadyWithAgent, nil), NewState: string(ClothingTransferred), Data: data}

	default:
		return Result{
			Reply:          cfg.Message(models.TemplateSystemError, nil),
			NewState:       string(ClothingTransferred),
			Data:           data,
			ShouldTransfer: true,
			TransferReason: TransferReasonUnexpectedState,
		}
	}
}

func clothingTransfer(fb FallbackDecision, data models.CollectedData, cfg *models.MerchantConfig) Result {
	key := models.TemplateTransferToHuman
	if fb.Reason == TransferReasonExchangeReturn {
		key = models.TemplateExchangeTransfer
	}
	return Result{
		Reply:          cfg.Message(key, nil),
		NewState:       string(ClothingTransferred),
		Data:           data,
		ShouldTransfer: true,
		TransferReason: fb.Reason,
	}
}

// extractProductType scans the fixed product vocabulary against the message.
func extractProductType(message string) (string, bool) {
	normalized := intent.Normalize(message)
	for _, word := range productTypeWords {
		if strings.Contains(normalized, word) {
			return word, true
		}
	}
	return "", false
}

// extractColor scans the fixed color vocabulary against the message.
func extractColor(message string) (string, bool) {
	normalized := intent.Normalize(message)
	for _, word := range colorWords {
		if strings.Contains(normalized, word) {
			return word, true
		}
	}
	return "", false
}

func parseGender(message string) (string, bool) {
	normalized := intent.Normalize(message)
	if strings.Contains(normalized, "masculin") || strings.Contains(normalized, "homem") {
		return "masculino", true
	}
	if strings.Contains(normalized, "feminin") || strings.Contains(normalized, "mulher") {
		return "feminino", true
	}
	return "", false
}

// parseSize accepts either a letter size (PP/P/M/G/GG/XG) or a bounded
// numeric size.
func parseSize(message string) (string, bool) {
	normalized := intent.Normalize(message)
	if m := letterSizeRegex.FindStringSubmatch(normalized); m != nil {
		return strings.ToUpper(m[1]), true
	}
	if m := numericSizeRegex.FindStringSubmatch(normalized); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= maxNumericSize {
			return m[1], true
		}
	}
	return "", false
}

// findMatchingProducts ranks catalog items by the (type, gender, size, color)
// filter intersection. Type must match; the other criteria only exclude an
// item when both sides specify a conflicting value.
func findMatchingProducts(catalog []models.CatalogCategory, criteria models.ProductSelection) []models.CatalogItem {
	var results []models.CatalogItem
	for _, category := range catalog {
		for _, item := range category.Items {
			if criteria.Type == "" || !intent.FuzzyMatch(item.Name, criteria.Type) {
				continue
			}
			if criteria.Gender != "" && item.Gender != "" && !strings.EqualFold(item.Gender, criteria.Gender) {
				continue
			}
			if criteria.Size != "" && item.Size != "" && !strings.EqualFold(item.Size, criteria.Size) {
				continue
			}
			if criteria.Color != "" && item.Color != "" && !intent.FuzzyMatch(item.Color, criteria.Color) {
				continue
			}
			results = append(results, item)
		}
	}
	return results
}

// selectOption picks from the numbered list by ordinal index or fuzzy name.
func selectOption(message string, options []models.CatalogItem) (models.CatalogItem, bool) {
	if m := ordinalRegex.FindStringSubmatch(message); m != nil {
		if idx, err := strconv.Atoi(m[1]); err == nil && idx >= 1 && idx <= len(options) {
			return options[idx-1], true
		}
	}
	for _, opt := range options {
		if intent.FuzzyMatch(message, opt.Name) {
			return opt, true
		}
	}
	return models.CatalogItem{}, false
}

// formatOptions renders the numbered option list shown to the customer.
func formatOptions(options []models.CatalogItem, cfg *models.MerchantConfig) string {
	var b strings.Builder
	b.WriteString(cfg.Message(models.TemplateOptionsHeader, nil))
	b.WriteString("\n\n")
	for i, opt := range options {
		b.WriteString(strconv.Itoa(i+1) + ". " + opt.Name)
		if opt.Color != "" {
			b.WriteString(" - " + opt.Color)
		}
		if opt.Size != "" {
			b.WriteString(" (" + opt.Size + ")")
		}
		b.WriteString(" - R$ " + formatPrice(opt.Price) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(cfg.Message(models.TemplateChooseOption, nil))
	return b.String()
}

// formatReservationSummary renders the reservation confirmation summary.
func formatReservationSummary(data models.CollectedData, cfg *models.MerchantConfig) string {
	product := data.Product
	var b strings.Builder
	b.WriteString(cfg.Message(models.TemplateReservationSummaryHeader, nil))
	b.WriteString("\n\n")
	b.WriteString("🛍️ Produto: " + product.Name + "\n")
	if product.Size != "" {
		b.WriteString("📏 Tamanho: " + product.Size + "\n")
	}
	if product.Color != "" {
		b.WriteString("🎨 Cor: " + product.Color + "\n")
	}
	b.WriteString("💰 Valor: R$ " + formatPrice(product.Price) + "\n\n")
	if data.DeliveryType == models.DeliveryTypeDelivery {
		b.WriteString("📦 Entrega: " + data.Address + "\n")
	} else {
		b.WriteString("📦 Retirar na loja\n")
	}
	b.WriteString("💳 Pagamento: " + paymentLabel(data.PaymentMethod) + "\n\n")
	b.WriteString(cfg.Message(models.TemplateAskReservationConfirmation, nil))
	return b.String()
}
