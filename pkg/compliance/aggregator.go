package compliance

import (
	"sort"

	"github.com/arnavshah/compliance-api-go/pkg/models"
)

// GroupByUnit groups records by business unit, then by post. A shift flag is
// set when any record for that (post, shift) is assigned.
func GroupByUnit(records []models.ShiftRecord) map[string]map[string]models.PostSlots {
	units := make(map[string]map[string]models.PostSlots)
	for _, r := range records {
		posts, ok := units[r.BusinessUnitID]
		if !ok {
			posts = make(map[string]models.PostSlots)
			units[r.BusinessUnitID] = posts
		}

		slots, ok := posts[r.PostID]
		if !ok {
			slots = models.PostSlots{PostID: r.PostID, PostName: r.PostName}
		}
		if r.IsAssigned {
			switch r.Shift {
			case models.ShiftDay:
				slots.Day = true
			case models.ShiftNight:
				slots.Night = true
			case models.ShiftB:
				slots.ShiftB = true
			}
		}
		posts[r.PostID] = slots
	}
	return units
}

// UnitCoverage counts filled against possible slots for one unit. Every post
// counts three slots, whether or not it runs a shift B.
func UnitCoverage(unit models.BusinessUnit, posts map[string]models.PostSlots) models.UnitCoverage {
	cov := models.UnitCoverage{
		UnitID:   unit.ID,
		UnitName: unit.Name,
		Posts:    make([]models.PostSlots, 0, len(posts)),
	}
	for _, p := range posts {
		cov.Posts = append(cov.Posts, p)
		cov.FilledSlots += p.Filled()
	}
	sort.Slice(cov.Posts, func(i, j int) bool { return cov.Posts[i].PostID < cov.Posts[j].PostID })

	cov.PossibleSlots = len(posts) * models.SlotsPerPost
	cov.Percentage = UnitPercentage(cov.FilledSlots, cov.PossibleSlots)
	return cov
}

// UnitCoverages returns the coverage of every known unit, in the given order,
// followed by units that only appear in the records, sorted by id. Known units
// without records get zero coverage.
func UnitCoverages(units []models.BusinessUnit, records []models.ShiftRecord) []models.UnitCoverage {
	grouped := GroupByUnit(records)

	out := make([]models.UnitCoverage, 0, len(units)+len(grouped))
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		seen[u.ID] = true
		out = append(out, UnitCoverage(u, grouped[u.ID]))
	}

	var extra []string
	for id := range grouped {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		out = append(out, UnitCoverage(models.BusinessUnit{ID: id, Name: id}, grouped[id]))
	}
	return out
}
