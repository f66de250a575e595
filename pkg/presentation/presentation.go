package presentation

import (
	"sort"

	"github.com/arnavshah/compliance-api-go/pkg/models"
)

const (
	ColorGood    = "#22c55e"
	ColorWarning = "#f59e0b"
	ColorBad     = "#ef4444"
)

// Color picks the band color of a percentage
func Color(pct int) string {
	switch {
	case pct >= 90:
		return ColorGood
	case pct >= 70:
		return ColorWarning
	default:
		return ColorBad
	}
}

// Adapter maps aggregated results into chart and list view models
type Adapter struct {
	settings models.ViewSettings
}

// NewAdapter creates an adapter bound to the caller's view settings
func NewAdapter(settings models.ViewSettings) *Adapter {
	def := models.DefaultViewSettings()
	if settings.ViewMode == "" {
		settings.ViewMode = def.ViewMode
	}
	if settings.ChartKind == "" {
		settings.ChartKind = def.ChartKind
	}
	return &Adapter{settings: settings}
}

// Settings returns the settings the adapter renders with
func (a *Adapter) Settings() models.ViewSettings {
	return a.settings
}

// UnitSeries maps unit coverages to chart points
func (a *Adapter) UnitSeries(covs []models.UnitCoverage) []models.ChartPoint {
	points := make([]models.ChartPoint, 0, len(covs))
	for _, c := range covs {
		name := c.UnitName
		if name == "" {
			name = c.UnitID
		}
		points = append(points, models.ChartPoint{
			ID:         c.UnitID,
			Name:       name,
			Percentage: c.Percentage,
			Color:      Color(c.Percentage),
		})
	}
	return points
}

// PostSeries maps per-post compliance to chart points
func (a *Adapter) PostSeries(posts []models.PostCompliance) []models.ChartPoint {
	points := make([]models.ChartPoint, 0, len(posts))
	for _, p := range posts {
		points = append(points, models.ChartPoint{
			ID:         p.PostID,
			Name:       p.PostName,
			Percentage: p.Percentage,
			Color:      Color(p.Percentage),
		})
	}
	return points
}

// NonCompliantDays returns the flagged days in date order
func (a *Adapter) NonCompliantDays(z models.ZoneCompliance) []models.ChartPoint {
	dates := make([]string, 0, len(z.NonCompliantDays))
	for d := range z.NonCompliantDays {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]models.ChartPoint, 0, len(dates))
	for _, d := range dates {
		pct := z.NonCompliantDays[d]
		points = append(points, models.ChartPoint{ID: d, Name: d, Percentage: pct, Color: Color(pct)})
	}
	return points
}

// Personnel maps shift records to list/grid cards. Photos are dropped when
// the settings hide them.
func (a *Adapter) Personnel(records []models.ShiftRecord) []models.PersonnelCard {
	cards := make([]models.PersonnelCard, 0, len(records))
	for _, r := range records {
		card := models.PersonnelCard{
			Key:        r.Date + ":" + string(r.Shift) + ":" + r.PostID,
			PostName:   r.PostName,
			Shift:      r.Shift.Label(),
			Name:       r.CollaboratorName,
			IsAssigned: r.IsAssigned,
			Status:     "covered",
		}
		if !r.IsAssigned {
			card.Status = "uncovered"
		}
		if a.settings.ShowPhotos {
			card.PhotoURL = r.PhotoURL
		}
		cards = append(cards, card)
	}
	return cards
}
