package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mineral is one of the minerals tracked for renal patients.
type Mineral string

const (
	Sodium     Mineral = "sodium"
	Potassium  Mineral = "potassium"
	Phosphorus Mineral = "phosphorus"
)

// Minerals lists the tracked minerals in display order.
var Minerals = []Mineral{Sodium, Potassium, Phosphorus}

// MineralStatus is the traffic-light level for a mineral reading.
type MineralStatus string

const (
	StatusGood     MineralStatus = "GOOD"
	StatusWarning  MineralStatus = "WARNING"
	StatusExceeded MineralStatus = "EXCEEDED"
)

// Limits are per-meal milligram limits for one mineral.
type Limits struct {
	WarningLimit float64 `json:"warning_limit"`
	MaxLimit     float64 `json:"max_limit"`
}

// Thresholds maps a mineral to its per-meal limits.
type Thresholds map[Mineral]Limits

// DefaultThresholds are the fixed per-meal limits (mg).
var DefaultThresholds = Thresholds{
	Sodium:     {WarningLimit: 380, MaxLimit: 570},
	Potassium:  {WarningLimit: 470, MaxLimit: 700},
	Phosphorus: {WarningLimit: 220, MaxLimit: 330},
}

// Classification is the result of classifying one mineral reading.
type Classification struct {
	Mineral        Mineral       `json:"mineral"`
	Value          float64       `json:"value"`
	Status         MineralStatus `json:"status"`
	PercentOfLimit int           `json:"percent_of_limit"`
	WarningLimit   float64       `json:"warning_limit"`
	MaxLimit       float64       `json:"max_limit"`
}

// ParseMineral accepts English and Spanish mineral names, case-insensitively.
func ParseMineral(name string) (Mineral, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sodium", "sodio", "na":
		return Sodium, true
	case "potassium", "potasio", "k":
		return Potassium, true
	case "phosphorus", "fosforo", "fósforo", "p":
		return Phosphorus, true
	}
	return "", false
}

// Classify uses DefaultThresholds.
func Classify(m Mineral, value float64) Classification {
	return DefaultThresholds.Classify(m, value)
}

// ClassifyAny coerces an arbitrary decoded JSON value before classifying.
func ClassifyAny(m Mineral, v any) Classification {
	return Classify(m, CoerceMilligrams(v))
}

// Classify maps a reading to GOOD / WARNING / EXCEEDED.
// Unknown minerals degrade to GOOD with 0%.
func (t Thresholds) Classify(m Mineral, value float64) Classification {
	value = sanitize(value)
	out := Classification{Mineral: m, Value: value, Status: StatusGood}

	lim, ok := t[m]
	if !ok {
		return out
	}
	out.WarningLimit = lim.WarningLimit
	out.MaxLimit = lim.MaxLimit

	switch {
	case value >= lim.MaxLimit:
		out.Status = StatusExceeded
	case value >= lim.WarningLimit:
		out.Status = StatusWarning
	}
	out.PercentOfLimit = percentOf(value, lim.MaxLimit)
	return out
}

// BarWidth is the fill percentage of the limit bar, with a 5% floor so an
// empty reading is still visible.
func (t Thresholds) BarWidth(m Mineral, value float64) float64 {
	lim, ok := t[m]
	if !ok || lim.MaxLimit <= 0 {
		return 5
	}
	w := sanitize(value) / lim.MaxLimit * 100
	return math.Min(100, math.Max(5, w))
}

// WarningMarker is where the warning limit sits on the bar, in percent.
func (t Thresholds) WarningMarker(m Mineral) float64 {
	lim, ok := t[m]
	if !ok || lim.MaxLimit <= 0 {
		return 0
	}
	return lim.WarningLimit / lim.MaxLimit * 100
}

// RenalCompatible reports whether no reading reaches its max limit.
func RenalCompatible(cs ...Classification) bool {
	for _, c := range cs {
		if c.Status == StatusExceeded {
			return false
		}
	}
	return true
}

// FormatMilligrams renders a reading for display, e.g. "412 mg" or "1.2 g".
func FormatMilligrams(v float64) string {
	v = sanitize(v)
	if v >= 1000 {
		return fmt.Sprintf("%.1f g", v/1000)
	}
	return fmt.Sprintf("%.0f mg", v)
}

// CoerceMilligrams turns JSON-ish input into a non-negative finite number.
func CoerceMilligrams(v any) float64 {
	switch n := v.(type) {
	case float64:
		return sanitize(n)
	case float32:
		return sanitize(float64(n))
	case int:
		return sanitize(float64(n))
	case int64:
		return sanitize(float64(n))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return sanitize(f)
	}
	return 0
}

func percentOf(value, limit float64) int {
	if limit <= 0 {
		return 0
	}
	p := math.Round(math.Min(100, value/limit*100))
	if p < 0 {
		return 0
	}
	return int(p)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
