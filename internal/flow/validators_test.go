package flow

import "testing"

func TestValidAddress(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{"Rua das Flores, 123", true},
		{"Avenida Brasil, 2000, apto 45", true},
		{"Estrada Velha da Serra, s/n", true},
		{"Rua do Campo, sem número", true},
		{"Rua A, 1", false},
		{"perto da padaria", false},
		{"Rua das Flores", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidAddress(tt.address); got != tt.want {
			t.Errorf("ValidAddress(%q) = %v, want %v", tt.address, got, tt.want)
		}
	}
}

func TestValidPaymentMethod(t *testing.T) {
	for _, p := range []string{"pix", "Card", "CASH"} {
		if !ValidPaymentMethod(p) {
			t.Errorf("ValidPaymentMethod(%q) = false, want true", p)
		}
	}
	if ValidPaymentMethod("cheque") {
		t.Error("cheque is not a supported method")
	}
}

func TestNotEmpty(t *testing.T) {
	if NotEmpty("   \n\t ") {
		t.Error("whitespace-only input is empty")
	}
	if !NotEmpty("oi") {
		t.Error("text input is not empty")
	}
}
