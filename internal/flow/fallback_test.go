package flow

import "testing"

func TestDetectFallbackPriorities(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		attempts int
		want     string
	}{
		{"complaint", "quero reclamar do pedido", 0, TransferReasonComplaint},
		{"complaint outranks exchange", "quero reclamar e trocar", 0, TransferReasonComplaint},
		{"exchange", "preciso devolver o produto", 0, TransferReasonExchangeReturn},
		{"exchange outranks human", "quero trocar, chama o atendente", 0, TransferReasonExchangeReturn},
		{"human request", "quero falar com um atendente", 0, TransferReasonHumanRequested},
		{"discount counts as human", "tem desconto?", 0, TransferReasonHumanRequested},
		{"attempts exhausted", "asdfgh", 2, TransferReasonInvalidAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := DetectFallback(tt.message, tt.attempts)
			if !fb.ShouldTransfer {
				t.Fatalf("expected transfer for %q", tt.message)
			}
			if fb.Reason != tt.want {
				t.Errorf("reason = %q, want %q", fb.Reason, tt.want)
			}
		})
	}
}

func TestDetectFallbackNoTransfer(t *testing.T) {
	for _, msg := range []string{"oi", "pizza mussarela", "sim", "Rua das Flores, 123"} {
		if fb := DetectFallback(msg, 0); fb.ShouldTransfer {
			t.Errorf("message %q must not transfer, got reason %q", msg, fb.Reason)
		}
	}
	if fb := DetectFallback("asdfgh", 1); fb.ShouldTransfer {
		t.Error("a single prior miss must not transfer")
	}
}
