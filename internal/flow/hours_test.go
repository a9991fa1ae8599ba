package flow

import (
	"strings"
	"testing"
	"time"

	"github.com/vendazap/vendazap/internal/models"
)

func TestIsOpenBoundaries(t *testing.T) {
	hours := models.OperatingHours{
		"monday": {Open: "18:00", Close: "23:00"},
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before opening", monday(17, 59), false},
		{"opening minute is open", monday(18, 0), true},
		{"last minute before close", monday(22, 59), true},
		{"closing minute is closed", monday(23, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOpen(hours, tt.at); got != tt.want {
				t.Errorf("IsOpen(%s) = %v, want %v", tt.at.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestIsOpenNilScheduleAlwaysOpen(t *testing.T) {
	if !IsOpen(nil, monday(3, 0)) {
		t.Error("nil schedule should mean always open")
	}
}

func TestIsOpenAbsentDayClosed(t *testing.T) {
	hours := models.OperatingHours{
		"tuesday": {Open: "09:00", Close: "18:00"},
	}
	if IsOpen(hours, monday(10, 0)) {
		t.Error("a day absent from the schedule is closed")
	}
}

func TestIsOpenClosedSentinel(t *testing.T) {
	hours := models.OperatingHours{
		"monday": {Open: models.ClosedSentinel, Close: models.ClosedSentinel},
	}
	if IsOpen(hours, monday(12, 0)) {
		t.Error("the closed sentinel marks the whole day closed")
	}
}

func TestClosedMessageSubstitutesHours(t *testing.T) {
	cfg := &models.MerchantConfig{
		OperatingHours: models.OperatingHours{
			"monday": {Open: "18:00", Close: "23:00"},
		},
	}
	msg := ClosedMessage(cfg, monday(10, 0))
	if !strings.Contains(msg, "18:00") || !strings.Contains(msg, "23:00") {
		t.Errorf("closed message should carry today's hours, got %q", msg)
	}
}
