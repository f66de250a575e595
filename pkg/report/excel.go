package report

import (
	"fmt"
	"time"

	"github.com/arnavshah/compliance-api-go/pkg/models"
	"github.com/xuri/excelize/v2"
)

const (
	SheetCompliance = "Compliance"
	SheetPersonnel  = "Personnel"

	headerRow = 4
	fixedCols = 3 // post, unit, target
)

// ContentType is the MIME type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type styles struct {
	title, header, short, percent int
	failing                       int // conditional format id
}

// Build renders a compliance workbook: one row per post with the assigned
// shift count of every day, the strict compliance column and a daily total
// row, plus a sheet listing every shift slot.
func Build(zone string, z models.ZoneCompliance, records []models.ShiftRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCompliance); err != nil {
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("create styles: %w", err)
	}
	if err := writeCompliance(f, st, zone, z, records); err != nil {
		return nil, fmt.Errorf("write compliance sheet: %w", err)
	}
	if err := writePersonnel(f, st, records); err != nil {
		return nil, fmt.Errorf("write personnel sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename suggests a download name for a report
func Filename(zone string, z models.ZoneCompliance) string {
	if zone == "" {
		zone = "all"
	}
	return fmt.Sprintf("compliance_%s_%s_%s.xlsx", zone, z.From, z.To)
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	}); err != nil {
		return st, err
	}
	if st.short, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FCE4D6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, err
	}
	if st.percent, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, err
	}
	if st.failing, err = f.NewConditionalStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
	}); err != nil {
		return st, err
	}
	return st, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func writeCompliance(f *excelize.File, st styles, zone string, z models.ZoneCompliance, records []models.ShiftRecord) error {
	sheet := SheetCompliance
	rng := dateRange(z)
	days := rng.Days()
	lastCol := fixedCols + len(days) + 2

	title := fmt.Sprintf("Shift compliance %s to %s", z.From, z.To)
	if zone != "" {
		title = fmt.Sprintf("Shift compliance, zone %s, %s to %s", zone, z.From, z.To)
	}
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", cell(lastCol, 1)); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", cell(lastCol, 1), st.title); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A2", "Overall compliance (%)"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "B2", z.Overall); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "B2", "B2", st.percent); err != nil {
		return err
	}

	header := []interface{}{"Post", "Unit", "Target/day"}
	for _, d := range days {
		header = append(header, d)
	}
	header = append(header, "Assigned", "Compliance (%)")
	if err := f.SetSheetRow(sheet, cell(1, headerRow), &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cell(1, headerRow), cell(lastCol, headerRow), st.header); err != nil {
		return err
	}

	perDay := assignedPerDay(records)
	row := headerRow + 1
	for _, p := range z.Posts {
		values := []interface{}{p.PostName, p.BusinessUnitID, p.Target}
		for _, d := range days {
			values = append(values, perDay[p.PostID][d])
		}
		values = append(values, p.Assigned, p.Percentage)
		if err := f.SetSheetRow(sheet, cell(1, row), &values); err != nil {
			return err
		}
		for i, d := range days {
			if perDay[p.PostID][d] < p.Target {
				c := cell(fixedCols+1+i, row)
				if err := f.SetCellStyle(sheet, c, c, st.short); err != nil {
					return err
				}
			}
		}
		row++
	}

	totals := []interface{}{"Daily compliance (%)", "", ""}
	for _, d := range days {
		totals = append(totals, z.Daily[d])
	}
	if err := f.SetSheetRow(sheet, cell(1, row), &totals); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cell(1, row), cell(lastCol, row), st.percent); err != nil {
		return err
	}

	if len(z.Posts) > 0 {
		ref := fmt.Sprintf("%s:%s", cell(lastCol, headerRow+1), cell(lastCol, row-1))
		if err := f.SetConditionalFormat(sheet, ref, []excelize.ConditionalFormatOptions{
			{Type: "cell", Criteria: "<", Format: st.failing, Value: "100"},
		}); err != nil {
			return err
		}
	}
	if len(days) > 0 {
		ref := fmt.Sprintf("%s:%s", cell(fixedCols+1, row), cell(fixedCols+len(days), row))
		if err := f.SetConditionalFormat(sheet, ref, []excelize.ConditionalFormatOptions{
			{Type: "cell", Criteria: "<", Format: st.failing, Value: "100"},
		}); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return err
	}
	first, _ := excelize.ColumnNumberToName(fixedCols + 1)
	last, _ := excelize.ColumnNumberToName(lastCol)
	return f.SetColWidth(sheet, first, last, 12)
}

func writePersonnel(f *excelize.File, st styles, records []models.ShiftRecord) error {
	sheet := SheetPersonnel
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{"Date", "Post", "Unit", "Shift", "Collaborator", "Collaborator ID", "Status"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", cell(len(header), 1), st.header); err != nil {
		return err
	}

	for i, r := range records {
		status := "Covered"
		if !r.IsAssigned {
			status = "Uncovered"
		}
		values := []interface{}{r.Date, r.PostName, r.BusinessUnitID, r.Shift.Label(), r.CollaboratorName, r.CollaboratorID, status}
		if err := f.SetSheetRow(sheet, cell(1, i+2), &values); err != nil {
			return err
		}
		if !r.IsAssigned {
			if err := f.SetCellStyle(sheet, cell(1, i+2), cell(len(values), i+2), st.short); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(sheet, "A", "G", 18)
}

type dayKey struct {
	shift models.ShiftKind
	date  string
}

func assignedPerDay(records []models.ShiftRecord) map[string]map[string]int {
	seen := make(map[string]map[dayKey]bool)
	out := make(map[string]map[string]int)
	for _, r := range records {
		if !r.IsAssigned {
			continue
		}
		if seen[r.PostID] == nil {
			seen[r.PostID] = make(map[dayKey]bool)
			out[r.PostID] = make(map[string]int)
		}
		k := dayKey{shift: r.Shift, date: r.Date}
		if seen[r.PostID][k] {
			continue
		}
		seen[r.PostID][k] = true
		out[r.PostID][r.Date]++
	}
	return out
}

func dateRange(z models.ZoneCompliance) models.DateRange {
	from, err := time.Parse(models.DateLayout, z.From)
	if err != nil {
		return models.DateRange{From: time.Unix(1, 0), To: time.Unix(0, 0)}
	}
	to, err := time.Parse(models.DateLayout, z.To)
	if err != nil {
		to = from
	}
	return models.DateRange{From: from, To: to}
}
