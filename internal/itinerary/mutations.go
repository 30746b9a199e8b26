// Package itinerary holds the day-level edit operations. Every operation takes a
// DayPlan by value, never modifies it, and returns a recalculated copy.
package itinerary

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"itinerary-planner/internal/models"
	"itinerary-planner/internal/schedule"
	"itinerary-planner/internal/timeofday"
)

// MinSplitMinutes is the shortest part Split produces
const MinSplitMinutes = 60

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}

func indexOf(activities []models.Activity, id string) int {
	id = normalizeID(id)
	if id == "" {
		return -1
	}
	for i, a := range activities {
		if normalizeID(a.ID) == id {
			return i
		}
	}
	return -1
}

// insertIndex maps an "after" hint to a position: "start" is the front, a known
// id is right after it, anything else is the end
func insertIndex(activities []models.Activity, afterID string) int {
	afterID = normalizeID(afterID)
	if afterID == models.StartID {
		return 0
	}
	if i := indexOf(activities, afterID); i >= 0 {
		return i + 1
	}
	return len(activities)
}

func insertAt(activities []models.Activity, index int, items ...models.Activity) []models.Activity {
	out := make([]models.Activity, 0, len(activities)+len(items))
	out = append(out, activities[:index]...)
	out = append(out, items...)
	return append(out, activities[index:]...)
}

// Recalculate re-derives the day's times from its own segments and drops
// segments that no longer connect consecutive stops
func Recalculate(day models.DayPlan) models.DayPlan {
	out := day.Clone()
	out.Activities = schedule.Recalculate(out.Activities, out.DayStart(), out.TravelSegments)
	out.TravelSegments = PruneSegments(out.Activities, out.TravelSegments)
	return out
}

// PruneSegments keeps only segments whose endpoints are consecutive in the
// current order, including the start→first hop
func PruneSegments(activities []models.Activity, segments []models.TravelSegment) []models.TravelSegment {
	if len(segments) == 0 {
		return segments
	}
	valid := make(map[[2]string]bool, len(activities))
	prev := models.StartID
	for _, a := range activities {
		valid[[2]string{prev, a.ID}] = true
		prev = a.ID
	}

	kept := make([]models.TravelSegment, 0, len(segments))
	for _, s := range segments {
		if valid[[2]string{s.FromID, s.ToID}] {
			kept = append(kept, s)
		}
	}
	if dropped := len(segments) - len(kept); dropped > 0 {
		log.Printf("[ITINERARY] Pruned stale segments: dropped=%d kept=%d", dropped, len(kept))
	}
	return kept
}

// Add inserts activity after afterID ("" appends, "start" prepends) and assigns
// an id when it has none
func Add(day models.DayPlan, activity models.Activity, afterID string) models.DayPlan {
	out := day.Clone()
	if normalizeID(activity.ID) == "" {
		activity.ID = uuid.NewString()
	}
	out.Activities = insertAt(out.Activities, insertIndex(out.Activities, afterID), activity)
	return Recalculate(out)
}

// AcceptSuggestion places a generated activity by its SuggestedAfterID hint
func AcceptSuggestion(day models.DayPlan, s models.Suggestion) models.DayPlan {
	return Add(day, s.Activity, s.SuggestedAfterID)
}

// Delete removes the activity with id. A missing id returns the day unchanged and false.
func Delete(day models.DayPlan, id string) (models.DayPlan, bool) {
	i := indexOf(day.Activities, id)
	if i < 0 {
		return day, false
	}
	out := day.Clone()
	out.Activities = append(out.Activities[:i], out.Activities[i+1:]...)
	return Recalculate(out), true
}

// MoveUp swaps the activity with its predecessor
func MoveUp(day models.DayPlan, id string) (models.DayPlan, bool) {
	i := indexOf(day.Activities, id)
	if i <= 0 {
		return day, false
	}
	return swap(day, i, i-1), true
}

// MoveDown swaps the activity with its successor
func MoveDown(day models.DayPlan, id string) (models.DayPlan, bool) {
	i := indexOf(day.Activities, id)
	if i < 0 || i >= len(day.Activities)-1 {
		return day, false
	}
	return swap(day, i, i+1), true
}

func swap(day models.DayPlan, i, j int) models.DayPlan {
	out := day.Clone()
	out.Activities[i], out.Activities[j] = out.Activities[j], out.Activities[i]
	return Recalculate(out)
}

// Reorder moves the activity at from to index to, as a drag and drop would
func Reorder(day models.DayPlan, from, to int) (models.DayPlan, bool) {
	n := len(day.Activities)
	if from < 0 || from >= n || to < 0 || to >= n {
		return day, false
	}
	if from == to {
		return Recalculate(day), true
	}
	out := day.Clone()
	moved := out.Activities[from]
	rest := append(out.Activities[:from:from], out.Activities[from+1:]...)
	out.Activities = insertAt(rest, to, moved)
	return Recalculate(out), true
}

// SortByTime stable-sorts by StartTime. Zero-padded HH:mm sorts correctly as text.
func SortByTime(day models.DayPlan) models.DayPlan {
	out := day.Clone()
	sort.SliceStable(out.Activities, func(i, j int) bool {
		return out.Activities[i].StartTime < out.Activities[j].StartTime
	})
	return Recalculate(out)
}

// Split replaces activity id with parts. The original duration is shared evenly
// with at least MinSplitMinutes per part. Parts inherit a missing name or
// location from the original, and the first part inherits its anchor.
func Split(day models.DayPlan, id string, parts []models.Activity) (models.DayPlan, bool) {
	i := indexOf(day.Activities, id)
	if i < 0 || len(parts) == 0 {
		return day, false
	}
	out := day.Clone()
	original := out.Activities[i]

	per := schedule.EffectiveDuration(original) / len(parts)
	if per < MinSplitMinutes {
		per = MinSplitMinutes
	}

	start := timeofday.ToMinutes(original.StartTime)
	replacements := make([]models.Activity, len(parts))
	for k, p := range parts {
		if normalizeID(p.ID) == "" {
			p.ID = uuid.NewString()
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("%s (%d/%d)", original.Name, k+1, len(parts))
		}
		if p.Location == nil && original.Location != nil {
			loc := *original.Location
			p.Location = &loc
		}
		if p.Address == "" {
			p.Address = original.Address
		}
		partStart := start + k*per
		p.StartTime = timeofday.FromMinutes(partStart)
		p.EndTime = timeofday.FromMinutes(partStart + per)
		p.LockedStartTime = k == 0 && original.LockedStartTime
		if p.LockedStartTime {
			p.StartTime = original.StartTime
		}
		replacements[k] = p
	}

	rest := append(out.Activities[:i:i], out.Activities[i+1:]...)
	out.Activities = insertAt(rest, i, replacements...)
	return Recalculate(out), true
}

// SplitEvenly splits activity id into n unnamed parts
func SplitEvenly(day models.DayPlan, id string, n int) (models.DayPlan, bool) {
	if n < 1 {
		return day, false
	}
	return Split(day, id, make([]models.Activity, n))
}
