package models

import (
	"math"
	"time"
)

// StartID is the sentinel id used as FromID for the leg leaving the day's origin
const StartID = "start"

// DefaultDayStart is the departure time used when a day has none
const DefaultDayStart = "09:00"

// DefaultCoordinates is the fallback for locations that have not been resolved (Tokyo)
var DefaultCoordinates = Coordinates{Lat: 35.6762, Lng: 139.6503}

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat" yaml:"lat"`
	Lng float64 `json:"lng" bson:"lng" yaml:"lng"`
}

// RoundCoordinate rounds to 5 decimal places (~1m) so cache keys are stable
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// TravelMode identifies how a leg between two stops is travelled
type TravelMode string

const (
	ModeWalking TravelMode = "WALKING"
	ModeTransit TravelMode = "TRANSIT"
	ModeDriving TravelMode = "DRIVING"
	ModeTrain   TravelMode = "TRAIN"
	ModeBus     TravelMode = "BUS"
)

// IsTransit reports whether the mode is public transport (including sub-modes)
func (m TravelMode) IsTransit() bool {
	return m == ModeTransit || m == ModeTrain || m == ModeBus
}

// Label returns the short human label used in alternative annotations
func (m TravelMode) Label() string {
	switch m {
	case ModeWalking:
		return "Walk"
	case ModeDriving:
		return "Drive"
	case ModeTrain:
		return "Train"
	case ModeBus:
		return "Bus"
	default:
		return "Transit"
	}
}

// Price is opaque pricing payload carried through scheduling untouched
type Price struct {
	Amount   float64 `json:"amount" bson:"amount" yaml:"amount"`
	Currency string  `json:"currency,omitempty" bson:"currency,omitempty" yaml:"currency,omitempty"`
	Note     string  `json:"note,omitempty" bson:"note,omitempty" yaml:"note,omitempty"`
}

// Fare is the transit fare reported by a provider
type Fare struct {
	Amount   float64 `json:"amount" bson:"amount" yaml:"amount"`
	Currency string  `json:"currency,omitempty" bson:"currency,omitempty" yaml:"currency,omitempty"`
}

// Activity represents one scheduled stop in a day
type Activity struct {
	ID                    string       `json:"id" bson:"id" yaml:"id"`
	Name                  string       `json:"name" bson:"name" yaml:"name"`
	Description           string       `json:"description,omitempty" bson:"description,omitempty" yaml:"description,omitempty"`
	StartTime             string       `json:"startTime" bson:"startTime" yaml:"startTime"`
	EndTime               string       `json:"endTime" bson:"endTime" yaml:"endTime"`
	Location              *Coordinates `json:"location,omitempty" bson:"location,omitempty" yaml:"location,omitempty"`
	LockedStartTime       bool         `json:"lockedStartTime,omitempty" bson:"lockedStartTime,omitempty" yaml:"lockedStartTime,omitempty"`
	LockedDurationMinutes *int         `json:"lockedDurationMinutes,omitempty" bson:"lockedDurationMinutes,omitempty" yaml:"lockedDurationMinutes,omitempty"`

	Type      string   `json:"type,omitempty" bson:"type,omitempty" yaml:"type,omitempty"`
	Address   string   `json:"address,omitempty" bson:"address,omitempty" yaml:"address,omitempty"`
	PhotoRef  string   `json:"photoRef,omitempty" bson:"photoRef,omitempty" yaml:"photoRef,omitempty"`
	Price     *Price   `json:"price,omitempty" bson:"price,omitempty" yaml:"price,omitempty"`
	Links     []string `json:"links,omitempty" bson:"links,omitempty" yaml:"links,omitempty"`
	Reasoning string   `json:"reasoning,omitempty" bson:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// HasLocation reports whether the activity's coordinates have been resolved
func (a *Activity) HasLocation() bool {
	return a.Location != nil
}

// Coords returns the activity coordinates, or DefaultCoordinates when unresolved
func (a *Activity) Coords() Coordinates {
	if a.Location == nil {
		return DefaultCoordinates
	}
	return *a.Location
}

// TravelSegment is a directed leg between two consecutive stops in a day
type TravelSegment struct {
	FromID              string     `json:"fromId" bson:"fromId" yaml:"fromId"`
	ToID                string     `json:"toId" bson:"toId" yaml:"toId"`
	Mode                TravelMode `json:"mode" bson:"mode" yaml:"mode"`
	DurationValue       int        `json:"durationValue" bson:"durationValue" yaml:"durationValue"`
	Duration            string     `json:"duration" bson:"duration" yaml:"duration"`
	Distance            string     `json:"distance,omitempty" bson:"distance,omitempty" yaml:"distance,omitempty"`
	TransitFare         *Fare      `json:"transitFare,omitempty" bson:"transitFare,omitempty" yaml:"transitFare,omitempty"`
	AlternativeMode     TravelMode `json:"alternativeMode,omitempty" bson:"alternativeMode,omitempty" yaml:"alternativeMode,omitempty"`
	AlternativeDuration string     `json:"alternativeDuration,omitempty" bson:"alternativeDuration,omitempty" yaml:"alternativeDuration,omitempty"`
	AlternativeLabel    string     `json:"alternativeLabel,omitempty" bson:"alternativeLabel,omitempty" yaml:"alternativeLabel,omitempty"`
}

// Accommodation is where a day starts
type Accommodation struct {
	Name     string       `json:"name" bson:"name" yaml:"name"`
	Address  string       `json:"address,omitempty" bson:"address,omitempty" yaml:"address,omitempty"`
	Location *Coordinates `json:"location,omitempty" bson:"location,omitempty" yaml:"location,omitempty"`
}

// DayPlan is one calendar day of a trip
type DayPlan struct {
	Date           string          `json:"date" bson:"date" yaml:"date"`
	City           string          `json:"city,omitempty" bson:"city,omitempty" yaml:"city,omitempty"`
	StartTime      string          `json:"startTime,omitempty" bson:"startTime,omitempty" yaml:"startTime,omitempty"`
	Accommodation  *Accommodation  `json:"accommodation,omitempty" bson:"accommodation,omitempty" yaml:"accommodation,omitempty"`
	Activities     []Activity      `json:"activities" bson:"activities" yaml:"activities"`
	TravelSegments []TravelSegment `json:"travelSegments,omitempty" bson:"travelSegments,omitempty" yaml:"travelSegments,omitempty"`
	Notes          string          `json:"notes,omitempty" bson:"notes,omitempty" yaml:"notes,omitempty"`
}

// DayStart returns the day's start time, defaulting to 09:00
func (d *DayPlan) DayStart() string {
	if d.StartTime == "" {
		return DefaultDayStart
	}
	return d.StartTime
}

// Clone returns a deep copy so handlers never alias the stored snapshot
func (d DayPlan) Clone() DayPlan {
	out := d
	if d.Accommodation != nil {
		acc := *d.Accommodation
		if acc.Location != nil {
			loc := *acc.Location
			acc.Location = &loc
		}
		out.Accommodation = &acc
	}
	out.Activities = CloneActivities(d.Activities)
	if d.TravelSegments != nil {
		out.TravelSegments = make([]TravelSegment, len(d.TravelSegments))
		for i, s := range d.TravelSegments {
			if s.TransitFare != nil {
				fare := *s.TransitFare
				s.TransitFare = &fare
			}
			out.TravelSegments[i] = s
		}
	}
	return out
}

// CloneActivities deep-copies an activity list
func CloneActivities(activities []Activity) []Activity {
	if activities == nil {
		return nil
	}
	out := make([]Activity, len(activities))
	for i, a := range activities {
		if a.Location != nil {
			loc := *a.Location
			a.Location = &loc
		}
		if a.LockedDurationMinutes != nil {
			d := *a.LockedDurationMinutes
			a.LockedDurationMinutes = &d
		}
		if a.Price != nil {
			p := *a.Price
			a.Price = &p
		}
		if a.Links != nil {
			a.Links = append([]string(nil), a.Links...)
		}
		out[i] = a
	}
	return out
}

// Trip is the single mutable root: an ordered list of days plus a title
type Trip struct {
	ID        string    `json:"id" bson:"_id" yaml:"id"`
	Title     string    `json:"title" bson:"title" yaml:"title"`
	Days      []DayPlan `json:"days" bson:"days" yaml:"days"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt" yaml:"updatedAt,omitempty"`
}

// Clone returns a deep copy of the trip
func (t Trip) Clone() Trip {
	out := t
	if t.Days != nil {
		out.Days = make([]DayPlan, len(t.Days))
		for i, d := range t.Days {
			out.Days[i] = d.Clone()
		}
	}
	return out
}

// Suggestion is an Activity-shaped proposal (e.g. from the AI generator) with a placement hint
type Suggestion struct {
	Activity         Activity `json:"activity" yaml:"activity"`
	SuggestedAfterID string   `json:"suggestedAfterId,omitempty" yaml:"suggestedAfterId,omitempty"`
}

// TravelCacheEntry represents a cached provider answer for one leg
type TravelCacheEntry struct {
	Mode            TravelMode  `json:"mode"`
	Origin          Coordinates `json:"origin"`
	Destination     Coordinates `json:"destination"`
	DepartureBucket string      `json:"departure_bucket,omitempty"`
	DurationSecs    float64     `json:"duration_secs"`
	DistanceMeters  float64     `json:"distance_meters"`
	SubMode         TravelMode  `json:"sub_mode,omitempty"`
	FareAmount      *float64    `json:"fare_amount,omitempty"`
	FareCurrency    string      `json:"fare_currency,omitempty"`
}
