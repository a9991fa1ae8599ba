package flow

import (
	"strings"
	"time"

	"github.com/vendazap/vendazap/internal/models"
)

// IsOpen reports whether the merchant is open at the given instant. A nil
// schedule means always open, since operating hours are optional. A day
// absent from the schedule, or marked with the closed sentinel, is closed
// all day. The open bound is inclusive and the close bound exclusive.
func IsOpen(hours models.OperatingHours, now time.Time) bool {
	if hours == nil {
		return true
	}
	today, ok := hours[weekdayName(now)]
	if !ok || today.Closed() {
		return false
	}
	openMin, err := minuteOfDay(today.Open)
	if err != nil {
		return false
	}
	closeMin, err := minuteOfDay(today.Close)
	if err != nil {
		return false
	}
	nowMin := now.Hour()*60 + now.Minute()
	return nowMin >= openMin && nowMin < closeMin
}

// ClosedMessage renders the templated "we're closed" reply, substituting
// {open} and {close} when today's hours exist.
func ClosedMessage(cfg *models.MerchantConfig, now time.Time) string {
	if today, ok := cfg.OperatingHours[weekdayName(now)]; ok && !today.Closed() {
		return cfg.Message(models.TemplateClosed, map[string]string{
			"open":  today.Open,
			"close": today.Close,
		})
	}
	return cfg.Message(models.TemplateClosedNoHours, nil)
}

func weekdayName(now time.Time) string {
	return strings.ToLower(now.Weekday().String())
}

func minuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
