package routing

import (
	"log"
	"math"
	"sort"

	"itinerary-planner/internal/models"
	"itinerary-planner/internal/timeofday"
)

type anchorRef struct {
	index   int
	minutes int
}

// SolveOrder returns a permutation of activity indices: anchors (locked start
// times) in time order, and between them the flexible activities, each placed in
// the slot ending at the first anchor strictly after its nominal start. Within a
// slot the order is greedy nearest neighbour by great-circle distance, starting
// from origin or from wherever the previous slot ended. Times earlier than the
// day start count as after midnight.
func SolveOrder(origin models.Coordinates, activities []models.Activity, dayStartTime string) []int {
	if len(activities) == 0 {
		return []int{}
	}
	if dayStartTime == "" {
		dayStartTime = models.DefaultDayStart
	}
	dayStart := timeofday.ToMinutes(dayStartTime)

	dayRelative := func(t string) int {
		m := timeofday.ToMinutes(t)
		if m < dayStart {
			m += timeofday.MinutesPerDay
		}
		return m
	}

	var anchors []anchorRef
	var flexible []int
	for i, a := range activities {
		if a.LockedStartTime {
			anchors = append(anchors, anchorRef{index: i, minutes: dayRelative(a.StartTime)})
		} else {
			flexible = append(flexible, i)
		}
	}

	// Stable keeps input order for anchors sharing a time
	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].minutes < anchors[j].minutes
	})

	slots := make([][]int, len(anchors)+1)
	for _, idx := range flexible {
		nominal := dayRelative(activities[idx].StartTime)
		slot := len(anchors)
		for k, anchor := range anchors {
			if anchor.minutes > nominal {
				slot = k
				break
			}
		}
		slots[slot] = append(slots[slot], idx)
	}

	order := make([]int, 0, len(activities))
	position := origin
	for k, members := range slots {
		for _, idx := range nearestNeighbour(position, members, activities) {
			order = append(order, idx)
			position = activities[idx].Coords()
		}
		if k < len(anchors) {
			order = append(order, anchors[k].index)
			position = activities[anchors[k].index].Coords()
		}
	}

	log.Printf("[ROUTING] Solved order: activities=%d anchors=%d slots=%d", len(activities), len(anchors), len(slots))
	return order
}

// nearestNeighbour orders members greedily from start; ties go to the earlier index
func nearestNeighbour(start models.Coordinates, members []int, activities []models.Activity) []int {
	remaining := append([]int(nil), members...)
	sort.Ints(remaining)

	out := make([]int, 0, len(remaining))
	current := start
	for len(remaining) > 0 {
		best := 0
		bestDist := math.Inf(1)
		for i, idx := range remaining {
			d := models.HaversineMeters(current, activities[idx].Coords())
			if d < bestDist {
				bestDist = d
				best = i
			}
		}
		next := remaining[best]
		out = append(out, next)
		current = activities[next].Coords()
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return out
}

// ApplyPermutation returns activities reordered by perm. Indices out of range or
// repeated are skipped, and activities perm leaves out are appended in their
// original order so nothing is ever lost.
func ApplyPermutation(activities []models.Activity, perm []int) []models.Activity {
	out := make([]models.Activity, 0, len(activities))
	used := make([]bool, len(activities))
	for _, idx := range perm {
		if idx < 0 || idx >= len(activities) || used[idx] {
			continue
		}
		used[idx] = true
		out = append(out, activities[idx])
	}
	for i, a := range activities {
		if !used[i] {
			out = append(out, a)
		}
	}
	return out
}
