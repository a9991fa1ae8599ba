// Package models defines merchant configuration structures for VendaZap.
package models

import (
	"fmt"
	"time"
)

// CatalogItem is one sellable item in the merchant catalog. Size, color and
// gender are only populated by clothing merchants.
type CatalogItem struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Size   string  `json:"size,omitempty"`
	Color  string  `json:"color,omitempty"`
	Gender string  `json:"gender,omitempty"`
}

// CatalogCategory groups catalog items under a merchant-defined category name.
type CatalogCategory struct {
	Category string        `json:"category"`
	Items    []CatalogItem `json:"items"`
}

// ClosedSentinel marks a day as closed in the operating hours schedule.
const ClosedSentinel = "closed"

// DayHours holds the open/close times of a single weekday, as HH:MM strings.
// Open set to the "closed" sentinel means closed all day.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Closed reports whether the day is marked closed.
func (d DayHours) Closed() bool {
	return d.Open == ClosedSentinel || d.Close == ClosedSentinel
}

// OperatingHours maps lowercase English weekday names (monday..sunday) to
// hours. A day absent from the map is closed. A nil map means the schedule is
// unconfigured and the merchant is treated as always open.
type OperatingHours map[string]DayHours

// BusinessCosts holds cost parameters consumed by reporting, not by the flow
// engine.
type BusinessCosts struct {
	FixedCosts          float64 `json:"fixed_costs,omitempty"`
	VariableCostPercent float64 `json:"variable_cost_percent,omitempty"`
}

// MerchantConfig is the read-only per-merchant configuration: catalog,
// accepted payment methods, weekly operating hours, message templates and
// cost parameters.
type MerchantConfig struct {
	Catalog        []CatalogCategory      `json:"catalog,omitempty"`
	PaymentMethods []PaymentMethod        `json:"payment_methods,omitempty"`
	OperatingHours OperatingHours         `json:"operating_hours,omitempty"`
	Messages       map[TemplateKey]string `json:"messages,omitempty"`
	Costs          BusinessCosts          `json:"costs,omitempty"`
}

// weekdayNames is the closed set of keys accepted in OperatingHours.
var weekdayNames = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Validate checks the configuration at load time. Unknown template keys and
// malformed schedules are rejected here rather than at render time, so the
// flow engine can trust every lookup.
func (c *MerchantConfig) Validate() error {
	for key := range c.Messages {
		if !IsKnownTemplateKey(key) {
			return fmt.Errorf("%w: %s", ErrUnknownTemplateKey, key)
		}
	}
	for _, pm := range c.PaymentMethods {
		if !IsValidPaymentMethod(pm) {
			return fmt.Errorf("invalid payment method: %s", pm)
		}
	}
	for day, hours := range c.OperatingHours {
		if !weekdayNames[day] {
			return fmt.Errorf("invalid weekday in operating hours: %s", day)
		}
		if hours.Closed() {
			continue
		}
		if _, err := time.Parse("15:04", hours.Open); err != nil {
			return fmt.Errorf("invalid open time for %s: %q", day, hours.Open)
		}
		if _, err := time.Parse("15:04", hours.Close); err != nil {
			return fmt.Errorf("invalid close time for %s: %q", day, hours.Close)
		}
	}
	return nil
}

// AcceptsPayment reports whether the merchant accepts the given method. An
// empty accepted-methods list means all methods are accepted (fail-open, the
// same choice the hours gate makes for a missing schedule).
func (c *MerchantConfig) AcceptsPayment(p PaymentMethod) bool {
	if len(c.PaymentMethods) == 0 {
		return IsValidPaymentMethod(p)
	}
	for _, accepted := range c.PaymentMethods {
		if accepted == p {
			return true
		}
	}
	return false
}

// AcceptedPaymentMethods returns the effective accepted set, expanding the
// fail-open default.
func (c *MerchantConfig) AcceptedPaymentMethods() []PaymentMethod {
	if len(c.PaymentMethods) == 0 {
		return []PaymentMethod{PaymentPix, PaymentCard, PaymentCash}
	}
	return c.PaymentMethods
}
