package database

import (
	"context"
	"errors"

	"github.com/arnavshah/compliance-api-go/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Units returns the business units of a zone, or all of them when zone is empty
func Units(ctx context.Context, db *gorm.DB, zone string) ([]models.BusinessUnit, error) {
	var rows []BusinessUnit
	q := db.WithContext(ctx).Order("id")
	if zone != "" {
		q = q.Where("zone_id = ?", zone)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	units := make([]models.BusinessUnit, 0, len(rows))
	for _, r := range rows {
		units = append(units, models.BusinessUnit{ID: r.ID, Name: r.Name, ZoneID: r.ZoneID})
	}
	return units, nil
}

// TargetOverrides returns the per-post target table stored in the database
func TargetOverrides(ctx context.Context, db *gorm.DB) (map[string]int, error) {
	var rows []TargetOverride
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.PostName] = r.ShiftsExpected
	}
	return out, nil
}

// LoadSettings returns the saved view settings of owner, or the defaults
func LoadSettings(ctx context.Context, db *gorm.DB, owner string) (models.ViewSettings, error) {
	var row ViewSettings
	err := db.WithContext(ctx).Where("owner = ?", owner).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultViewSettings(), nil
	}
	if err != nil {
		return models.ViewSettings{}, err
	}
	return models.ViewSettings{ViewMode: row.ViewMode, ShowPhotos: row.ShowPhotos, ChartKind: row.ChartKind}, nil
}

// SaveSettings upserts the view settings of owner
func SaveSettings(ctx context.Context, db *gorm.DB, owner string, s models.ViewSettings) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}},
		DoUpdates: clause.AssignmentColumns([]string{"view_mode", "show_photos", "chart_kind", "updated_at"}),
	}).Create(&ViewSettings{
		Owner:      owner,
		ViewMode:   s.ViewMode,
		ShowPhotos: s.ShowPhotos,
		ChartKind:  s.ChartKind,
	}).Error
}
