package flow

import (
	"strings"
	"testing"

	"github.com/vendazap/vendazap/internal/models"
)

func clothingConfig() *models.MerchantConfig {
	return &models.MerchantConfig{
		Catalog: []models.CatalogCategory{
			{Category: "Camisetas", Items: []models.CatalogItem{
				{Name: "Camiseta Básica Preta", Price: 49.90, Size: "M", Color: "preta", Gender: "masculino"},
				{Name: "Camiseta Estampada", Price: 59.90, Size: "G", Color: "branca", Gender: "masculino"},
			}},
			{Category: "Vestidos", Items: []models.CatalogItem{
				{Name: "Vestido Floral", Price: 129.90, Size: "M", Color: "rosa", Gender: "feminino"},
			}},
		},
	}
}

func TestClothingHappyPathDelivery(t *testing.T) {
	cfg := clothingConfig()

	res := Clothing(ClothingGreeting, "quero uma camiseta preta", models.CollectedData{}, cfg)
	if res.NewState != string(ClothingAskingGender) {
		t.Fatalf("recognized product should ask for gender, got %s", res.NewState)
	}
	if res.Data.Product == nil || res.Data.Product.Type != "camiseta" || res.Data.Product.Color != "preta" {
		t.Fatalf("product type/color not extracted: %+v", res.Data.Product)
	}

	res = Clothing(ClothingAskingGender, "masculino", res.Data, cfg)
	if res.NewState != string(ClothingAskingSize) {
		t.Fatalf("gender should advance to asking_size, got %s", res.NewState)
	}

	res = Clothing(ClothingAskingSize, "M", res.Data, cfg)
	if res.NewState != string(ClothingShowingOptions) {
		t.Fatalf("size with matches should show options, got %s", res.NewState)
	}
	if len(res.Data.AvailableOptions) != 1 {
		t.Fatalf("expected 1 matching option, got %d", len(res.Data.AvailableOptions))
	}
	if !strings.Contains(res.Reply, "1. Camiseta Básica Preta") {
		t.Errorf("options should be numbered, got %q", res.Reply)
	}

	res = Clothing(ClothingShowingOptions, "1", res.Data, cfg)
	if res.NewState != string(ClothingAskingDelivery) {
		t.Fatalf("choosing an option should ask delivery type, got %s", res.NewState)
	}
	if res.Data.Product.Name != "Camiseta Básica Preta" || res.Data.Product.Price != 49.90 {
		t.Fatalf("chosen product not stored: %+v", res.Data.Product)
	}

	res = Clothing(ClothingAskingDelivery, "pode entregar no meu endereço", res.Data, cfg)
	if res.NewState != string(ClothingAskingAddress) {
		t.Fatalf("delivery should ask for address, got %s", res.NewState)
	}
	if res.Data.DeliveryType != models.DeliveryTypeDelivery {
		t.Errorf("delivery type not stored: %q", res.Data.DeliveryType)
	}

	res = Clothing(ClothingAskingAddress, "Rua das Flores, 123", res.Data, cfg)
	if res.NewState != string(ClothingAskingPayment) {
		t.Fatalf("valid address should advance to asking_payment, got %s", res.NewState)
	}

	res = Clothing(ClothingAskingPayment, "pix", res.Data, cfg)
	if res.NewState != string(ClothingConfirming) {
		t.Fatalf("accepted payment should advance to confirming_reservation, got %s", res.NewState)
	}
	if !strings.Contains(res.Reply, "49.90") || !strings.Contains(res.Reply, "Rua das Flores, 123") {
		t.Errorf("summary should show price and address, got %q", res.Reply)
	}

	res = Clothing(ClothingConfirming, "sim", res.Data, cfg)
	if res.NewState != string(ClothingConfirmed) {
		t.Fatalf("confirmation should land in reservation_confirmed, got %s", res.NewState)
	}
	if !res.ShouldCreateReservation {
		t.Error("confirmation should request reservation creation")
	}
}

func TestClothingPickupSkipsAddress(t *testing.T) {
	cfg := clothingConfig()
	data := models.CollectedData{Product: &models.ProductSelection{Name: "Camiseta Estampada", Price: 59.90, Size: "G"}}

	res := Clothing(ClothingAskingDelivery, "vou retirar na loja", data, cfg)
	if res.NewState != string(ClothingAskingPayment) {
		t.Fatalf("pickup should skip the address and ask payment, got %s", res.NewState)
	}
	if res.Data.DeliveryType != models.DeliveryTypePickup {
		t.Errorf("delivery type not stored: %q", res.Data.DeliveryType)
	}

	res = Clothing(ClothingAskingPayment, "dinheiro", res.Data, cfg)
	if res.NewState != string(ClothingConfirming) {
		t.Fatalf("payment should advance to confirming_reservation, got %s", res.NewState)
	}
	if !strings.Contains(res.Reply, "Retirar na loja") {
		t.Errorf("pickup summary should mention the store, got %q", res.Reply)
	}
}

func TestClothingNoMatchingProductResets(t *testing.T) {
	cfg := clothingConfig()
	data := models.CollectedData{Product: &models.ProductSelection{Type: "jaqueta", Gender: "masculino"}}

	res := Clothing(ClothingAskingSize, "M", data, cfg)
	if res.NewState != string(ClothingGreeting) {
		t.Fatalf("no matches should return to greeting, got %s", res.NewState)
	}
	if res.Data.Product != nil {
		t.Errorf("collected data should be cleared, got %+v", res.Data)
	}
}

func TestClothingNumericSize(t *testing.T) {
	if size, ok := parseSize("tamanho 42"); !ok || size != "42" {
		t.Errorf("expected numeric size 42, got %q ok=%v", size, ok)
	}
	if size, ok := parseSize("GG"); !ok || size != "GG" {
		t.Errorf("expected letter size GG, got %q ok=%v", size, ok)
	}
	if _, ok := parseSize("tamanho 70"); ok {
		t.Error("sizes above 60 must be rejected")
	}
	if _, ok := parseSize("tamanho qualquer"); ok {
		t.Error("free text is not a size")
	}
}

func TestClothingOptionByName(t *testing.T) {
	cfg := clothingConfig()
	options := []models.CatalogItem{
		{Name: "Camiseta Básica Preta", Price: 49.90, Size: "M"},
		{Name: "Camiseta Estampada", Price: 59.90, Size: "M"},
	}
	data := models.CollectedData{
		Product:          &models.ProductSelection{Type: "camiseta"},
		AvailableOptions: options,
	}
	res := Clothing(ClothingShowingOptions, "a estampada", data, cfg)
	if res.NewState != string(ClothingAskingDelivery) {
		t.Fatalf("name selection should advance, got %s", res.NewState)
	}
	if res.Data.Product.Name != "Camiseta Estampada" {
		t.Errorf("wrong option selected: %+v", res.Data.Product)
	}
}

func TestClothingInvalidGenderEscalates(t *testing.T) {
	cfg := clothingConfig()
	data := models.CollectedData{Product: &models.ProductSelection{Type: "camiseta"}}

	res := Clothing(ClothingAskingGender, "tanto faz", data, cfg)
	res = Clothing(ClothingAskingGender, "tanto faz", res.Data, cfg)
	if res.ShouldTransfer {
		t.Fatal("two misses alone must not transfer yet")
	}
	res = Clothing(ClothingAskingGender, "tanto faz", res.Data, cfg)
	if !res.ShouldTransfer || res.TransferReason != TransferReasonInvalidAttempts {
		t.Fatalf("third message after two misses should escalate, got transfer=%v reason=%q", res.ShouldTransfer, res.TransferReason)
	}
}

func TestClothingCancellationResets(t *testing.T) {
	cfg := clothingConfig()
	data := models.CollectedData{
		Product:       &models.ProductSelection{Name: "Vestido Floral", Price: 129.90},
		PaymentMethod: models.PaymentPix,
		DeliveryType:  models.DeliveryTypePickup,
	}
	res := Clothing(ClothingConfirming, "não", data, cfg)
	if res.NewState != string(ClothingGreeting) {
		t.Fatalf("cancellation should return to greeting, got %s", res.NewState)
	}
	if res.Data.Product != nil || res.ShouldCreateReservation {
		t.Errorf("cancellation should clear data and not reserve, got %+v", res.Data)
	}
}

func TestClothingHumanRequestTransfers(t *testing.T) {
	cfg := clothingConfig()
	res := Clothing(ClothingAskingSize, "quero falar com um atendente", models.CollectedData{}, cfg)
	if !res.ShouldTransfer || res.TransferReason != TransferReasonHumanRequested {
		t.Fatalf("human request should transfer, got transfer=%v reason=%q", res.ShouldTransfer, res.TransferReason)
	}
}
