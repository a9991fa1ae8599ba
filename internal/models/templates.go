// Package models defines the message template dictionary for VendaZap.
//
// Every customer-visible string the flow engine emits is a lookup into the
// merchant's template dictionary, falling back to a hard-coded PT-BR default.
// The key set is closed: unknown keys are rejected when the merchant
// configuration is loaded.
package models

import "strings"

// TemplateKey identifies one customer-visible message template.
type TemplateKey string

// Core and pipeline messages.
const (
	TemplateGreeting         TemplateKey = "greeting"
	TemplateClosed           TemplateKey = "closedMessage"
	TemplateClosedNoHours    TemplateKey = "closedMessageNoHours"
	TemplateTransferToHuman  TemplateKey = "transferToHuman"
	TemplateExchangeTransfer TemplateKey = "exchangeReturnTransfer"
	TemplateAlreadyWithAgent TemplateKey = "alreadyWithAgent"
	TemplateSystemError      TemplateKey = "systemError"
	TemplateAudioFailed      TemplateKey = "audioTranscriptionFailed"
	TemplateProcessingError  TemplateKey = "processingError"
)

// Delivery flow messages.
const (
	TemplateAskGreeting           TemplateKey = "askGreeting"
	TemplateMenuHeader            TemplateKey = "menuHeader"
	TemplateMenuFooter            TemplateKey = "menuFooter"
	TemplateCatalogUnavailable    TemplateKey = "catalogUnavailable"
	TemplateChooseCategory        TemplateKey = "chooseCategory"
	TemplateCategoryEmpty         TemplateKey = "categoryEmpty"
	TemplateCategoryFooter        TemplateKey = "categoryFooter"
	TemplateItemAdded             TemplateKey = "itemAdded"
	TemplateItemNotFound          TemplateKey = "itemNotFound"
	TemplateNoItemsYet            TemplateKey = "noItemsYet"
	TemplateAskAddress            TemplateKey = "askAddress"
	TemplateAddressConfirmed      TemplateKey = "addressConfirmed"
	TemplateInvalidAddress        TemplateKey = "invalidAddress"
	TemplateChoosePayment         TemplateKey = "choosePayment"
	TemplatePaymentNotAccepted    TemplateKey = "paymentNotAccepted"
	TemplateOrderSummaryHeader    TemplateKey = "orderSummaryHeader"
	TemplateAskConfirmation       TemplateKey = "askConfirmation"
	TemplateOrderConfirmed        TemplateKey = "orderConfirmed"
	TemplateOrderFarewell         TemplateKey = "orderFarewell"
	TemplateOrderCancelled        TemplateKey = "orderCancelled"
	TemplatePleaseConfirm         TemplateKey = "pleaseConfirm"
	TemplateOrderAlreadyConfirmed TemplateKey = "orderAlreadyConfirmed"
)

// Clothing flow messages.
const (
	TemplateAskProductType              TemplateKey = "askProductType"
	TemplateAskGender                   TemplateKey = "askGender"
	TemplateInvalidGender               TemplateKey = "invalidGender"
	TemplateAskSize                     TemplateKey = "askSize"
	TemplateInvalidSize                 TemplateKey = "invalidSize"
	TemplateProductNotAvailable         TemplateKey = "productNotAvailable"
	TemplateOptionsHeader               TemplateKey = "optionsHeader"
	TemplateChooseOption                TemplateKey = "chooseOption"
	TemplateInvalidOption               TemplateKey = "invalidOption"
	TemplateOptionChosen                TemplateKey = "optionChosen"
	TemplateAskDeliveryType             TemplateKey = "askDeliveryType"
	TemplateInvalidDeliveryType         TemplateKey = "invalidDeliveryType"
	TemplatePickupConfirmed             TemplateKey = "pickupConfirmed"
	TemplateAskDeliveryAddress          TemplateKey = "askDeliveryAddress"
	TemplateReservationSummaryHeader    TemplateKey = "reservationSummaryHeader"
	TemplateAskReservationConfirmation  TemplateKey = "askReservationConfirmation"
	TemplateReservationConfirmed        TemplateKey = "reservationConfirmed"
	TemplateReservationFarewell         TemplateKey = "reservationFarewell"
	TemplateReservationCancelled        TemplateKey = "reservationCancelled"
	TemplatePleaseConfirmReservation    TemplateKey = "pleaseConfirmReservation"
	TemplateReservationAlreadyConfirmed TemplateKey = "reservationAlreadyConfirmed"
)

// defaultTemplates holds the hard-coded PT-BR fallback for every key.
var defaultTemplates = map[TemplateKey]string{
	TemplateGreeting:         "Olá! Bem-vindo! 😊",
	TemplateClosed:           "Olá! No momento estamos fechados. Nosso horário de funcionamento hoje é das {open} às {close}. Deixe sua mensagem que retornaremos em breve!",
	TemplateClosedNoHours:    "Olá! No momento estamos fechados. Deixe sua mensagem que retornaremos em breve!",
	TemplateTransferToHuman:  "Vou te conectar com um atendente agora. Um momento, por favor.",
	TemplateExchangeTransfer: "Vou te conectar com um atendente para te ajudar com isso.",
	TemplateAlreadyWithAgent: "Você já está em contato com um atendente. Aguarde um momento.",
	TemplateSystemError:      "Desculpe, ocorreu um erro. Vou te conectar com um atendente.",
	TemplateAudioFailed:      "Não consegui entender o áudio. Pode escrever?",
	TemplateProcessingError:  "Desculpe, ocorreu um erro ao processar sua mensagem. Por favor, tente novamente em alguns minutos.",

	TemplateAskGreeting:           "Olá! Para fazer um pedido, diga \"oi\" ou \"quero fazer um pedido\".",
	TemplateMenuHeader:            "📋 *Nosso Cardápio:*",
	TemplateMenuFooter:            "Qual categoria você gostaria?",
	TemplateCatalogUnavailable:    "Desculpe, o cardápio não está disponível no momento.",
	TemplateChooseCategory:        "Por favor, escolha uma categoria: {categories}.",
	TemplateCategoryEmpty:         "Desculpe, não temos itens nessa categoria no momento. Quer escolher outra?",
	TemplateCategoryFooter:        "Qual você gostaria?",
	TemplateItemAdded:             "{item} adicionado! R$ {price}\n\nQuer mais alguma coisa?",
	TemplateItemNotFound:          "Desculpe, não encontrei esse item no cardápio. Pode tentar novamente?",
	TemplateNoItemsYet:            "Você ainda não adicionou nenhum item. Qual você gostaria?",
	TemplateAskAddress:            "Ótimo! Qual o endereço para entrega?",
	TemplateAddressConfirmed:      "Endereço confirmado: {address}\n\nForma de pagamento: {methods}?",
	TemplateInvalidAddress:        "Por favor, forneça um endereço completo com número.",
	TemplateChoosePayment:         "Por favor, escolha: {methods}.",
	TemplatePaymentNotAccepted:    "Desculpe, não aceitamos {method}. Formas de pagamento aceitas: {methods}.",
	TemplateOrderSummaryHeader:    "*📝 Resumo do Pedido:*",
	TemplateAskConfirmation:       "Posso confirmar seu pedido?",
	TemplateOrderConfirmed:        "Pedido confirmado! 🎉",
	TemplateOrderFarewell:         "Em breve estará a caminho. Obrigado!",
	TemplateOrderCancelled:        "Pedido cancelado. Se quiser fazer um novo pedido, é só me chamar!",
	TemplatePleaseConfirm:         "Por favor, confirme: Sim ou Não?",
	TemplateOrderAlreadyConfirmed: "Seu pedido já foi confirmado! Se precisar de algo mais, é só chamar.",

	TemplateAskProductType:              "Olá! Que produto você está procurando? (Ex: camiseta, calça, vestido)",
	TemplateAskGender:                   "É masculino ou feminino?",
	TemplateInvalidGender:               "Não entendi. É masculino ou feminino?",
	TemplateAskSize:                     "Qual tamanho? (PP, P, M, G, GG, XG ou numérico)",
	TemplateInvalidSize:                 "Não entendi o tamanho. Pode escolher PP, P, M, G, GG, XG ou um número?",
	TemplateProductNotAvailable:         "Desculpe, não temos esse produto disponível no momento. Quer procurar outro?",
	TemplateOptionsHeader:               "Temos essas opções:",
	TemplateChooseOption:                "Qual você gostaria? (Digite o número ou nome)",
	TemplateInvalidOption:               "Não entendi qual você quer. Pode escolher pelo número ou nome?",
	TemplateOptionChosen:                "Ótimo! {item} por R$ {price}.\n\nVocê quer retirar na loja ou entregar no seu endereço?",
	TemplateAskDeliveryType:             "Você quer retirar na loja ou entregar no seu endereço?",
	TemplateInvalidDeliveryType:         "Não entendi. Você quer retirar na loja ou entregar no seu endereço?",
	TemplatePickupConfirmed:             "Certo! Você vai retirar na loja.\n\nForma de pagamento: {methods}?",
	TemplateAskDeliveryAddress:          "Qual o endereço para entrega?",
	TemplateReservationSummaryHeader:    "📋 Resumo da Reserva:",
	TemplateAskReservationConfirmation:  "Posso reservar e confirmar?",
	TemplateReservationConfirmed:        "Reserva confirmada!",
	TemplateReservationFarewell:         "Vamos preparar seu pedido. Em breve entraremos em contato. Obrigado! 🎉",
	TemplateReservationCancelled:        "Sem problemas. Se quiser fazer outro pedido, é só chamar!",
	TemplatePleaseConfirmReservation:    "Não entendi. Posso confirmar a reserva? (Sim ou Não)",
	TemplateReservationAlreadyConfirmed: "Sua reserva já foi confirmada. Se precisar de algo mais, é só chamar!",
}

// IsKnownTemplateKey checks whether the key belongs to the closed template set.
func IsKnownTemplateKey(key TemplateKey) bool {
	_, ok := defaultTemplates[key]
	return ok
}

// RenderTemplate substitutes {placeholder} markers in a template body.
// Placeholders without a matching var are left untouched.
func RenderTemplate(body string, vars map[string]string) string {
	if len(vars) == 0 {
		return body
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

// Message resolves a template key against the merchant's dictionary, falling
// back to the hard-coded default, and substitutes placeholders.
func (c *MerchantConfig) Message(key TemplateKey, vars map[string]string) string {
	body, ok := c.Messages[key]
	if !ok || body == "" {
		body = defaultTemplates[key]
	}
	return RenderTemplate(body, vars)
}
