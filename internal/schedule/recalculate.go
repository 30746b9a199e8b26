// Package schedule re-derives activity start and end times for a day.
package schedule

import (
	"itinerary-planner/internal/models"
	"itinerary-planner/internal/timeofday"
)

const (
	// DefaultDurationMinutes replaces durations that come out zero or negative
	DefaultDurationMinutes = 60
	// DefaultTravelMinutes is the buffer used for a hop with no travel data
	DefaultTravelMinutes = 30
)

// EffectiveDuration returns the minutes an activity occupies for scheduling:
// the locked duration when set and positive, else end-start, else 60.
func EffectiveDuration(a models.Activity) int {
	if a.LockedDurationMinutes != nil && *a.LockedDurationMinutes > 0 {
		return *a.LockedDurationMinutes
	}
	d := timeofday.ToMinutes(a.EndTime) - timeofday.ToMinutes(a.StartTime)
	if d <= 0 {
		return DefaultDurationMinutes
	}
	return d
}

type hop struct {
	from, to string
}

// Recalculate returns a copy of activities with StartTime and EndTime re-derived
// in list order. Anchored activities keep their start. The first unanchored
// activity starts at dayStartTime ("" means 09:00); every later one starts after
// the previous computed end plus the travel time of the matching segment, or
// DefaultTravelMinutes when none matches. Starts are rounded up to 5 minutes.
// The input slice is not modified.
func Recalculate(activities []models.Activity, dayStartTime string, segments []models.TravelSegment) []models.Activity {
	if len(activities) == 0 {
		return []models.Activity{}
	}
	if dayStartTime == "" {
		dayStartTime = models.DefaultDayStart
	}

	travel := make(map[hop]int, len(segments))
	for _, s := range segments {
		if s.DurationValue <= 0 {
			continue
		}
		travel[hop{s.FromID, s.ToID}] = (s.DurationValue + 59) / 60
	}

	out := models.CloneActivities(activities)
	prevEnd := 0
	for i := range out {
		duration := EffectiveDuration(activities[i])

		var start int
		switch {
		case activities[i].LockedStartTime:
			start = timeofday.ToMinutes(activities[i].StartTime)
		case i == 0:
			start = timeofday.RoundUpToFive(timeofday.ToMinutes(dayStartTime))
		default:
			gap, ok := travel[hop{activities[i-1].ID, activities[i].ID}]
			if !ok {
				gap = DefaultTravelMinutes
			}
			start = timeofday.RoundUpToFive(prevEnd + gap)
		}

		end := start + duration
		if !activities[i].LockedStartTime {
			out[i].StartTime = timeofday.FromMinutes(start)
		}
		out[i].EndTime = timeofday.FromMinutes(end)
		prevEnd = end
	}

	return out
}
