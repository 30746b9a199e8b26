// Package timeofday converts between "HH:mm" wall-clock strings and minutes since midnight.
package timeofday

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the modulus used when wrapping minute values back onto a clock face
const MinutesPerDay = 1440

// Parse returns h*60+m for an "HH:mm" string. ok is false when the input is malformed.
func Parse(t string) (int, bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(t), ":")
	if !found {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, false
	}
	return h*60 + m, true
}

// ToMinutes is Parse with the documented fallback: malformed input counts as 0
func ToMinutes(t string) int {
	minutes, _ := Parse(t)
	return minutes
}

// Valid reports whether t is a well-formed 24h "HH:mm" time
func Valid(t string) bool {
	hh, mm, found := strings.Cut(t, ":")
	if !found || len(hh) != 2 || len(mm) != 2 {
		return false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return false
	}
	m, err := strconv.Atoi(mm)
	return err == nil && m >= 0 && m <= 59
}

// FromMinutes formats minutes as zero-padded "HH:mm", wrapping modulo 24h.
// Negative values wrap as well (-30 -> "23:30").
func FromMinutes(m int) string {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// RoundUpToFive returns the smallest multiple of 5 that is >= m
func RoundUpToFive(m int) int {
	r := m % 5
	if r == 0 {
		return m
	}
	if r < 0 {
		return m - r
	}
	return m + 5 - r
}

// FormatDuration renders a minute count for display, e.g. "12 min" or "1 h 5 min"
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%d h", h)
	}
	return fmt.Sprintf("%d h %d min", h, m)
}
