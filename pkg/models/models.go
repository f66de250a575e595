package models

import "time"

// DateLayout is the wire format for report dates
const DateLayout = "2006-01-02"

// UnassignedName is shown for shift slots without a collaborator
const UnassignedName = "Unassigned"

// ShiftKind is one of the three fixed coverage windows of a day
type ShiftKind string

const (
	ShiftDay   ShiftKind = "day"
	ShiftNight ShiftKind = "night"
	ShiftB     ShiftKind = "shiftB"
)

// ShiftKinds lists the shift windows in display order
var ShiftKinds = []ShiftKind{ShiftDay, ShiftNight, ShiftB}

// SlotsPerPost is the number of shift slots counted per post per day
const SlotsPerPost = 3

// Label returns a short human label for the shift
func (k ShiftKind) Label() string {
	switch k {
	case ShiftDay:
		return "Day"
	case ShiftNight:
		return "Night"
	case ShiftB:
		return "Shift B"
	default:
		return string(k)
	}
}

// BusinessUnit groups posts under one operational zone
type BusinessUnit struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	ZoneID string `json:"zone_id,omitempty"`
}

// Post represents a checkpoint that needs staffing
type Post struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	BusinessUnitID string `json:"business_unit_id"`
	Active         bool   `json:"active"`
}

// ShiftRecord is one normalized (post, shift, date) slot
type ShiftRecord struct {
	PostID           string    `json:"post_id"`
	PostName         string    `json:"post_name"`
	Shift            ShiftKind `json:"shift"`
	BusinessUnitID   string    `json:"business_unit_id"`
	IsAssigned       bool      `json:"is_assigned"`
	CollaboratorID   string    `json:"collaborator_id"`
	CollaboratorName string    `json:"collaborator_name"`
	PhotoURL         string    `json:"photo_url,omitempty"`
	Date             string    `json:"date"`
}

// PostSlots tells which shifts of a post had someone assigned
type PostSlots struct {
	PostID   string `json:"post_id"`
	PostName string `json:"post_name"`
	Day      bool   `json:"day"`
	Night    bool   `json:"night"`
	ShiftB   bool   `json:"shift_b"`
}

// Filled counts the assigned slots
func (p PostSlots) Filled() int {
	n := 0
	for _, ok := range []bool{p.Day, p.Night, p.ShiftB} {
		if ok {
			n++
		}
	}
	return n
}

// UnitCoverage is the slot coverage of one business unit
type UnitCoverage struct {
	UnitID        string      `json:"unit_id"`
	UnitName      string      `json:"unit_name"`
	Posts         []PostSlots `json:"posts"`
	FilledSlots   int         `json:"filled_slots"`
	PossibleSlots int         `json:"possible_slots"`
	Percentage    int         `json:"percentage"`
}

// PostCompliance is the strict compliance of a post over a date range
type PostCompliance struct {
	PostID         string  `json:"post_id"`
	PostName       string  `json:"post_name"`
	BusinessUnitID string  `json:"business_unit_id"`
	Target         int     `json:"target"`
	Assigned       int     `json:"assigned"`
	Days           int     `json:"days"`
	Value          float64 `json:"-"`
	Percentage     int     `json:"percentage"`
}

// ZoneCompliance is the result of a multi-day compliance query
type ZoneCompliance struct {
	From             string           `json:"from"`
	To               string           `json:"to"`
	Days             int              `json:"days"`
	Posts            []PostCompliance `json:"posts"`
	Overall          int              `json:"overall"`
	Daily            map[string]int   `json:"daily"`
	NonCompliantDays map[string]int   `json:"non_compliant_days"`
	FailedDates      []string         `json:"failed_dates,omitempty"`
}

// ChartPoint is one bar of a coverage chart
type ChartPoint struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
	Color      string `json:"color"`
}

// PersonnelCard is the list/grid view model of one shift slot
type PersonnelCard struct {
	Key        string `json:"key"`
	PostName   string `json:"post_name"`
	Shift      string `json:"shift"`
	Name       string `json:"name"`
	PhotoURL   string `json:"photo_url,omitempty"`
	Status     string `json:"status"`
	IsAssigned bool   `json:"is_assigned"`
}

// ViewSettings holds the dashboard display preferences of a caller
type ViewSettings struct {
	ViewMode   string `json:"view_mode" validate:"omitempty,oneof=list grid"`
	ShowPhotos bool   `json:"show_photos"`
	ChartKind  string `json:"chart_kind" validate:"omitempty,oneof=bar pie"`
}

// DefaultViewSettings returns the settings used when none were saved
func DefaultViewSettings() ViewSettings {
	return ViewSettings{ViewMode: "list", ShowPhotos: true, ChartKind: "bar"}
}

// DateRange is an inclusive span of calendar days
type DateRange struct {
	From time.Time
	To   time.Time
}

// Days returns every date in the range, formatted with DateLayout
func (r DateRange) Days() []string {
	var days []string
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days
}
