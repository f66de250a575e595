package compliance

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/arnavshah/compliance-api-go/pkg/models"
)

// ErrInvalidRange is returned for unparsable or inverted date ranges
var ErrInvalidRange = errors.New("invalid date range")

// UnitPercentage returns round(100*filled/possible), 0 when nothing is possible
func UnitPercentage(filled, possible int) int {
	if possible <= 0 {
		return 0
	}
	return Round(100 * float64(filled) / float64(possible))
}

// PostStrictCompliance returns min(100, 100*assigned/(target*days)), unrounded
func PostStrictCompliance(assigned, target, days int) float64 {
	expected := target * days
	if expected <= 0 {
		return 0
	}
	return clamp(100 * float64(assigned) / float64(expected))
}

// ZoneOverallCompliance is the rounded mean of per-post compliance. Each post
// weighs the same regardless of its target.
func ZoneOverallCompliance(posts []models.PostCompliance) int {
	values := make([]float64, len(posts))
	for i, p := range posts {
		values[i] = p.Value
	}
	return Round(mean(values))
}

// Round clamps to [0,100] and rounds half away from zero
func Round(v float64) int {
	return int(math.Round(clamp(v)))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ParseRange parses an inclusive from/to pair. An empty to means a single day.
func ParseRange(from, to string, maxDays int) (models.DateRange, error) {
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("%w: from %q", ErrInvalidRange, from)
	}
	end := start
	if to != "" {
		if end, err = time.Parse(models.DateLayout, to); err != nil {
			return models.DateRange{}, fmt.Errorf("%w: to %q", ErrInvalidRange, to)
		}
	}
	if end.Before(start) {
		return models.DateRange{}, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if maxDays > 0 && days > maxDays {
		return models.DateRange{}, fmt.Errorf("%w: %d days exceeds limit of %d", ErrInvalidRange, days, maxDays)
	}
	return models.DateRange{From: start, To: end}, nil
}

// Calculator computes target-based compliance over normalized records
type Calculator struct {
	Targets Targets
}

// NewCalculator creates a calculator with the given target table
func NewCalculator(targets Targets) *Calculator {
	return &Calculator{Targets: targets}
}

type slotKey struct {
	post  string
	shift models.ShiftKind
	date  string
}

// Zone computes per-post strict compliance, the zone mean and the per-day
// breakdown. The post universe is every post seen anywhere in the range, so a
// day with no data counts as 0% for each of them.
func (c *Calculator) Zone(records []models.ShiftRecord, rng models.DateRange) models.ZoneCompliance {
	days := rng.Days()
	inRange := make(map[string]bool, len(days))
	for _, d := range days {
		inRange[d] = true
	}

	posts := make(map[string]*models.PostCompliance)
	assignedOn := make(map[string]map[string]int) // post -> date -> assigned
	seen := make(map[slotKey]bool)

	for _, r := range records {
		if !inRange[r.Date] {
			continue
		}
		p, ok := posts[r.PostID]
		if !ok {
			p = &models.PostCompliance{
				PostID:         r.PostID,
				PostName:       r.PostName,
				BusinessUnitID: r.BusinessUnitID,
				Target:         c.Targets.For(r.PostName),
				Days:           len(days),
			}
			posts[r.PostID] = p
			assignedOn[r.PostID] = make(map[string]int)
		}
		if !r.IsAssigned {
			continue
		}
		k := slotKey{post: r.PostID, shift: r.Shift, date: r.Date}
		if seen[k] {
			continue
		}
		seen[k] = true
		p.Assigned++
		assignedOn[r.PostID][r.Date]++
	}

	out := models.ZoneCompliance{
		From:             rng.From.Format(models.DateLayout),
		To:               rng.To.Format(models.DateLayout),
		Days:             len(days),
		Posts:            make([]models.PostCompliance, 0, len(posts)),
		Daily:            make(map[string]int, len(days)),
		NonCompliantDays: make(map[string]int),
	}
	for _, p := range posts {
		p.Value = PostStrictCompliance(p.Assigned, p.Target, p.Days)
		p.Percentage = Round(p.Value)
		out.Posts = append(out.Posts, *p)
	}
	sort.Slice(out.Posts, func(i, j int) bool { return out.Posts[i].PostID < out.Posts[j].PostID })
	out.Overall = ZoneOverallCompliance(out.Posts)

	for _, d := range days {
		pct, compliant := c.daily(out.Posts, assignedOn, d)
		out.Daily[d] = pct
		if !compliant {
			out.NonCompliantDays[d] = pct
		}
	}
	return out
}

// DailyCompliance returns the mean of min(100, 100*assignedOnDate/target)
// over the posts, and whether every post met its target that day.
func (c *Calculator) DailyCompliance(records []models.ShiftRecord, date string) (int, bool) {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0, false
	}
	z := c.Zone(records, models.DateRange{From: day, To: day})
	_, flagged := z.NonCompliantDays[date]
	return z.Daily[date], !flagged
}

func (c *Calculator) daily(posts []models.PostCompliance, assignedOn map[string]map[string]int, date string) (int, bool) {
	if len(posts) == 0 {
		return 0, true
	}
	values := make([]float64, len(posts))
	compliant := true
	for i, p := range posts {
		values[i] = PostStrictCompliance(assignedOn[p.PostID][date], p.Target, 1)
		if values[i] < 100 {
			compliant = false
		}
	}
	return Round(mean(values)), compliant
}
