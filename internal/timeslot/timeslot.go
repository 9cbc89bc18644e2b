// Package timeslot parses the free-form time-slot descriptors captains type
// ("7PM", "7:30pm-9pm", "19:00 - 21:00") together with a timezone code into a
// UTC window on the 24h clock, so two requests can be tested for overlap.
package timeslot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mroshb/scrim_bot/pkg/utils"
)

const (
	minutesPerDay = 24 * 60

	// DefaultMinutes is the window length assumed for a single start time.
	DefaultMinutes = 60
)

// offsets are minutes east of UTC.
var offsets = map[string]int{
	"UTC":  0,
	"GMT":  0,
	"WET":  0,
	"BST":  60,
	"CET":  60,
	"CEST": 120,
	"EET":  120,
	"MSK":  180,
	"IRST": 210,
	"GST":  240,
	"PKT":  300,
	"IST":  330,
	"NPT":  345,
	"BDT":  360,
	"ICT":  420,
	"WIB":  420,
	"SGT":  480,
	"PHT":  480,
	"MYT":  480,
	"CST":  -360,
	"JST":  540,
	"KST":  540,
	"AEST": 600,
	"AEDT": 660,
	"NZST": 720,
	"BRT":  -180,
	"EST":  -300,
	"EDT":  -240,
	"CDT":  -300,
	"MST":  -420,
	"MDT":  -360,
	"PST":  -480,
	"PDT":  -420,
}

// Window is a span on the 24h UTC clock. It may wrap past midnight.
type Window struct {
	StartUTC int
	Minutes  int
}

// Overlaps reports whether two windows share at least one minute.
func (w Window) Overlaps(other Window) bool {
	for _, shift := range []int{-minutesPerDay, 0, minutesPerDay} {
		start := other.StartUTC + shift
		if w.StartUTC < start+other.Minutes && start < w.StartUTC+w.Minutes {
			return true
		}
	}
	return false
}

// KnownTimezone reports whether code is a supported timezone abbreviation.
func KnownTimezone(code string) bool {
	_, ok := offsets[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// NormalizeTimezone upper-cases and trims a timezone code.
func NormalizeTimezone(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeSlot returns the canonical display form of a slot descriptor.
func NormalizeSlot(slot string) string {
	slot = utils.NormalizePersianNumbers(slot)
	return strings.ToUpper(utils.CollapseSpaces(slot))
}

// Parse converts a slot descriptor in the given timezone into a UTC window.
func Parse(slot, timezone string) (Window, error) {
	offset, ok := offsets[NormalizeTimezone(timezone)]
	if !ok {
		return Window{}, fmt.Errorf("unknown timezone %q", timezone)
	}

	normalized := strings.ReplaceAll(NormalizeSlot(slot), " ", "")
	normalized = strings.ReplaceAll(normalized, "TO", "-")
	if normalized == "" {
		return Window{}, fmt.Errorf("empty time slot")
	}

	parts := strings.Split(normalized, "-")
	if len(parts) > 2 {
		return Window{}, fmt.Errorf("invalid time slot %q", slot)
	}

	// "7-9PM" means both ends are PM.
	var endSuffix string
	if len(parts) == 2 {
		endSuffix = meridiem(parts[1])
	}

	start, err := parseClock(parts[0], endSuffix)
	if err != nil {
		return Window{}, err
	}

	minutes := DefaultMinutes
	if len(parts) == 2 {
		end, err := parseClock(parts[1], "")
		if err != nil {
			return Window{}, err
		}
		minutes = (end - start + minutesPerDay) % minutesPerDay

		// An inherited suffix never stretches a slot to 12h or more:
		// "11-1PM" is 11AM to 1PM.
		if endSuffix != "" && meridiem(parts[0]) == "" && minutes >= minutesPerDay/2 {
			if start, err = parseClock(parts[0], oppositeMeridiem(endSuffix)); err != nil {
				return Window{}, err
			}
			minutes = (end - start + minutesPerDay) % minutesPerDay
		}
		if minutes == 0 {
			return Window{}, fmt.Errorf("time slot %q has no duration", slot)
		}
	}

	startUTC := ((start-offset)%minutesPerDay + minutesPerDay) % minutesPerDay
	return Window{StartUTC: startUTC, Minutes: minutes}, nil
}

func meridiem(s string) string {
	switch {
	case strings.HasSuffix(s, "AM"):
		return "AM"
	case strings.HasSuffix(s, "PM"):
		return "PM"
	}
	return ""
}

func oppositeMeridiem(suffix string) string {
	if suffix == "AM" {
		return "PM"
	}
	return "AM"
}

// parseClock returns minutes since midnight. fallbackSuffix applies when s has no AM/PM.
func parseClock(s, fallbackSuffix string) (int, error) {
	suffix := meridiem(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "AM"), "PM")
	if suffix == "" {
		suffix = fallbackSuffix
	}

	hourPart, minutePart := s, "0"
	if i := strings.IndexAny(s, ":."); i >= 0 {
		hourPart, minutePart = s[:i], s[i+1:]
	}

	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, fmt.Errorf("invalid hour %q", hourPart)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute %q", minutePart)
	}

	switch suffix {
	case "AM", "PM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("invalid 12h hour %d", hour)
		}
		hour %= 12
		if suffix == "PM" {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return 0, fmt.Errorf("invalid 24h hour %d", hour)
		}
	}

	return hour*60 + minute, nil
}
