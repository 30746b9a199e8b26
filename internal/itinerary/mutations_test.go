package itinerary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary-planner/internal/models"
)

func ids(day models.DayPlan) []string {
	out := make([]string, len(day.Activities))
	for i, a := range day.Activities {
		out[i] = a.ID
	}
	return out
}

func times(day models.DayPlan) []string {
	out := make([]string, len(day.Activities))
	for i, a := range day.Activities {
		out[i] = a.StartTime + "-" + a.EndTime
	}
	return out
}

func threeStopDay() models.DayPlan {
	return models.DayPlan{
		Date:      "2025-04-01",
		StartTime: "09:00",
		Activities: []models.Activity{
			{ID: "shrine", Name: "Shrine", StartTime: "09:00", EndTime: "10:00"},
			{ID: "museum", Name: "Museum", StartTime: "10:30", EndTime: "12:00"},
			{ID: "market", Name: "Market", StartTime: "12:30", EndTime: "13:30"},
		},
	}
}

func TestDelete_MissingIDIsNoOp(t *testing.T) {
	day := threeStopDay()

	out, ok := Delete(day, "does-not-exist")

	assert.False(t, ok)
	assert.Equal(t, []string{"shrine", "museum", "market"}, ids(out))
	assert.Equal(t, times(day), times(out))
}

func TestDelete_TrimsIDAndReflows(t *testing.T) {
	day := threeStopDay()

	out, ok := Delete(day, "  museum ")

	require.True(t, ok)
	assert.Equal(t, []string{"shrine", "market"}, ids(out))
	assert.Equal(t, []string{"09:00-10:00", "10:30-11:30"}, times(out))
	assert.Len(t, day.Activities, 3, "input day must not change")
}

func TestAdd_Placement(t *testing.T) {
	newStop := models.Activity{Name: "Cafe", StartTime: "00:00", EndTime: "00:45"}

	tests := []struct {
		name     string
		afterID  string
		position int
	}{
		{"empty hint appends", "", 3},
		{"start prepends", models.StartID, 0},
		{"known id inserts after it", "shrine", 1},
		{"unknown id appends", "ghost", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Add(threeStopDay(), newStop, tt.afterID)

			require.Len(t, out.Activities, 4)
			added := out.Activities[tt.position]
			assert.Equal(t, "Cafe", added.Name)
			assert.NotEmpty(t, added.ID)
		})
	}
}

func TestAdd_ReflowsLaterActivities(t *testing.T) {
	out := Add(threeStopDay(), models.Activity{ID: "cafe", StartTime: "10:00", EndTime: "10:45"}, "shrine")

	assert.Equal(t, []string{"shrine", "cafe", "museum", "market"}, ids(out))
	assert.Equal(t, []string{"09:00-10:00", "10:30-11:15", "11:45-13:15", "13:45-14:45"}, times(out))
}

func TestAdd_ToEmptyDay(t *testing.T) {
	out := Add(models.DayPlan{StartTime: "08:10"}, models.Activity{ID: "x"}, "")

	require.Len(t, out.Activities, 1)
	assert.Equal(t, "08:10", out.Activities[0].StartTime)
	assert.Equal(t, "09:10", out.Activities[0].EndTime)
}

func TestAcceptSuggestion(t *testing.T) {
	s := models.Suggestion{
		Activity:         models.Activity{ID: "garden", Name: "Garden", StartTime: "11:00", EndTime: "12:00", Reasoning: "close by"},
		SuggestedAfterID: "museum",
	}

	out := AcceptSuggestion(threeStopDay(), s)

	assert.Equal(t, []string{"shrine", "museum", "garden", "market"}, ids(out))
	assert.Equal(t, "close by", out.Activities[2].Reasoning)

	s.SuggestedAfterID = ""
	out = AcceptSuggestion(threeStopDay(), s)
	assert.Equal(t, "garden", out.Activities[3].ID)
}

func TestMoveUpDown(t *testing.T) {
	day := threeStopDay()

	out, ok := MoveUp(day, "museum")
	require.True(t, ok)
	assert.Equal(t, []string{"museum", "shrine", "market"}, ids(out))
	assert.Equal(t, "09:00", out.Activities[0].StartTime)
	assert.Equal(t, "11:00", out.Activities[1].StartTime)

	_, ok = MoveUp(day, "shrine")
	assert.False(t, ok)

	out, ok = MoveDown(day, "shrine")
	require.True(t, ok)
	assert.Equal(t, []string{"museum", "shrine", "market"}, ids(out))

	_, ok = MoveDown(day, "market")
	assert.False(t, ok)

	_, ok = MoveDown(day, "ghost")
	assert.False(t, ok)
}

func TestMove_ConsultsMatchingSegmentsAndPrunesStaleOnes(t *testing.T) {
	day := threeStopDay()
	day.TravelSegments = []models.TravelSegment{
		{FromID: "shrine", ToID: "museum", DurationValue: 600},
		{FromID: "museum", ToID: "market", DurationValue: 300},
	}

	out, ok := MoveUp(day, "market")
	require.True(t, ok)

	assert.Equal(t, []string{"shrine", "market", "museum"}, ids(out))
	// No segment matches the new hops, so both get the 30 minute buffer
	assert.Equal(t, []string{"09:00-10:00", "10:30-11:30", "12:00-13:30"}, times(out))
	assert.Empty(t, out.TravelSegments)
	assert.Len(t, day.TravelSegments, 2)
}

func TestReorder(t *testing.T) {
	out, ok := Reorder(threeStopDay(), 0, 2)
	require.True(t, ok)
	assert.Equal(t, []string{"museum", "market", "shrine"}, ids(out))

	out, ok = Reorder(threeStopDay(), 2, 0)
	require.True(t, ok)
	assert.Equal(t, []string{"market", "shrine", "museum"}, ids(out))

	_, ok = Reorder(threeStopDay(), 0, 3)
	assert.False(t, ok)
	_, ok = Reorder(threeStopDay(), -1, 0)
	assert.False(t, ok)
}

func TestSortByTime(t *testing.T) {
	day := models.DayPlan{
		Activities: []models.Activity{
			{ID: "late", StartTime: "15:00", EndTime: "16:00"},
			{ID: "early-a", StartTime: "09:30", EndTime: "10:00"},
			{ID: "early-b", StartTime: "09:30", EndTime: "10:30"},
			{ID: "noon", StartTime: "12:00", EndTime: "13:00"},
		},
	}

	out := SortByTime(day)

	assert.Equal(t, []string{"early-a", "early-b", "noon", "late"}, ids(out))
	assert.Equal(t, "09:00", out.Activities[0].StartTime)
}

func TestSplit_EvenShares(t *testing.T) {
	day := models.DayPlan{
		Activities: []models.Activity{
			{ID: "tour", Name: "Tour", StartTime: "09:00", EndTime: "13:00", Location: &models.Coordinates{Lat: 35, Lng: 139}},
			{ID: "dinner", StartTime: "18:00", EndTime: "19:00"},
		},
	}

	out, ok := SplitEvenly(day, "tour", 2)
	require.True(t, ok)

	require.Len(t, out.Activities, 3)
	assert.Equal(t, "Tour (1/2)", out.Activities[0].Name)
	assert.Equal(t, "Tour (2/2)", out.Activities[1].Name)
	assert.Equal(t, "09:00-11:00", out.Activities[0].StartTime+"-"+out.Activities[0].EndTime)
	assert.Equal(t, "11:30-13:30", out.Activities[1].StartTime+"-"+out.Activities[1].EndTime)
	require.NotNil(t, out.Activities[1].Location)
	assert.Equal(t, 35.0, out.Activities[1].Location.Lat)
	assert.NotEqual(t, out.Activities[0].ID, out.Activities[1].ID)
	assert.Equal(t, "dinner", out.Activities[2].ID)
}

func TestSplit_MinimumPartLength(t *testing.T) {
	day := models.DayPlan{
		Activities: []models.Activity{{ID: "walk", Name: "Walk", StartTime: "09:00", EndTime: "10:30"}},
	}

	out, ok := Split(day, "walk", []models.Activity{{Name: "North"}, {Name: "South"}, {Name: "East"}})
	require.True(t, ok)

	assert.Equal(t, []string{"09:00-10:00", "10:30-11:30", "12:00-13:00"}, times(out))
	assert.Equal(t, "South", out.Activities[1].Name)
}

func TestSplit_FirstPartKeepsAnchor(t *testing.T) {
	day := models.DayPlan{
		Activities: []models.Activity{
			{ID: "show", Name: "Show", StartTime: "14:00", EndTime: "16:00", LockedStartTime: true},
		},
	}

	out, ok := SplitEvenly(day, "show", 2)
	require.True(t, ok)

	assert.True(t, out.Activities[0].LockedStartTime)
	assert.Equal(t, "14:00", out.Activities[0].StartTime)
	assert.False(t, out.Activities[1].LockedStartTime)
	assert.Equal(t, "15:30", out.Activities[1].StartTime)
}

func TestSplit_Invalid(t *testing.T) {
	_, ok := SplitEvenly(threeStopDay(), "ghost", 2)
	assert.False(t, ok)

	_, ok = SplitEvenly(threeStopDay(), "shrine", 0)
	assert.False(t, ok)
}

func TestPruneSegments(t *testing.T) {
	activities := []models.Activity{{ID: "a"}, {ID: "b"}}
	segments := []models.TravelSegment{
		{FromID: models.StartID, ToID: "a"},
		{FromID: "a", ToID: "b"},
		{FromID: "b", ToID: "a"},
		{FromID: "a", ToID: "gone"},
	}

	kept := PruneSegments(activities, segments)

	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].ToID)
	assert.Equal(t, "b", kept[1].ToID)
}

func TestRecalculate_UsesDaySegments(t *testing.T) {
	day := threeStopDay()
	day.TravelSegments = []models.TravelSegment{{FromID: "shrine", ToID: "museum", DurationValue: 900}}

	out := Recalculate(day)

	assert.Equal(t, "10:15", out.Activities[1].StartTime)
	assert.Len(t, out.TravelSegments, 1)
}
