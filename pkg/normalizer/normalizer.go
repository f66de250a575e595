package normalizer

import (
	"fmt"
	"sort"

	"github.com/arnavshah/compliance-api-go/pkg/models"
)

// EmptyID builds the stable key of an unassigned slot
func EmptyID(kind models.ShiftKind, postID string) string {
	return fmt.Sprintf("empty-%s-%s", kind, postID)
}

// Normalize flattens a per-date report into shift records. Day and night
// slots are always emitted; shift B only when someone is assigned to it.
// Records come out ordered by post id, then day, night, shift B.
func Normalize(report RawReport, date string) []models.ShiftRecord {
	postIDs := make([]string, 0, len(report))
	for id := range report {
		postIDs = append(postIDs, id)
	}
	sort.Strings(postIDs)

	records := make([]models.ShiftRecord, 0, len(report)*2)
	for _, postID := range postIDs {
		post := report[postID]
		name := post.Name
		if name == "" {
			name = postID
		}

		records = append(records, shiftRecord(postID, name, post.UnitID, models.ShiftDay, post.Day, date))
		records = append(records, shiftRecord(postID, name, post.UnitID, models.ShiftNight, post.Night, date))
		if post.ShiftB != nil && post.ShiftB.Collaborator.Assigned() {
			records = append(records, shiftRecord(postID, name, post.UnitID, models.ShiftB, post.ShiftB, date))
		}
	}
	return records
}

// NormalizeDays normalizes several dates at once, in ascending date order
func NormalizeDays(reports map[string]RawReport) []models.ShiftRecord {
	dates := make([]string, 0, len(reports))
	for d := range reports {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var records []models.ShiftRecord
	for _, d := range dates {
		records = append(records, Normalize(reports[d], d)...)
	}
	return records
}

func shiftRecord(postID, postName, unitID string, kind models.ShiftKind, shift *RawShift, date string) models.ShiftRecord {
	rec := models.ShiftRecord{
		PostID:         postID,
		PostName:       postName,
		Shift:          kind,
		BusinessUnitID: unitID,
		Date:           date,
	}

	var c Collaborator
	if shift != nil {
		c = shift.Collaborator
	}
	if !c.Assigned() {
		rec.CollaboratorID = EmptyID(kind, postID)
		rec.CollaboratorName = models.UnassignedName
		return rec
	}

	rec.IsAssigned = true
	rec.CollaboratorID = c.ID
	rec.CollaboratorName = c.DisplayName()
	rec.PhotoURL = c.PhotoURL
	return rec
}
