package database

import (
	"time"

	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	TotalPosts   int    `gorm:"default:0" json:"total_posts"`
	TotalRecords int    `gorm:"default:0" json:"total_records"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// BusinessUnit represents the business_units table
type BusinessUnit struct {
	ID        string    `gorm:"primaryKey" json:"id" binding:"required"`
	Name      string    `gorm:"not null" json:"name" binding:"required"`
	ZoneID    string    `gorm:"index" json:"zone_id"`
	Posts     []Post    `gorm:"foreignKey:BusinessUnitID" json:"posts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Post represents the posts table
type Post struct {
	ID             string    `gorm:"primaryKey" json:"id" binding:"required"`
	Name           string    `gorm:"not null" json:"name" binding:"required"`
	BusinessUnitID string    `gorm:"index;not null" json:"business_unit_id" binding:"required"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TargetOverride represents the target_overrides table: expected shifts per
// day for one post name
type TargetOverride struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	PostName       string `gorm:"unique;not null" json:"post_name" binding:"required"`
	ShiftsExpected int    `gorm:"not null" json:"shifts_expected" binding:"required,min=1,max=3"`
}

// ViewSettings represents the view_settings table, one row per API caller
type ViewSettings struct {
	Owner      string    `gorm:"primaryKey" json:"-"`
	ViewMode   string    `json:"view_mode"`
	ShowPhotos bool      `json:"show_photos"`
	ChartKind  string    `json:"chart_kind"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewLogger routes gorm warnings and errors to w. A missing record is an
// expected outcome of First lookups and is not logged.
func NewLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Open connects to Postgres when databaseURL is set, otherwise to the
// SQLite file at dataPath, and migrates the schema.
func Open(databaseURL, dataPath string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	cfg := &gorm.Config{Logger: NewLogger(&zlog.Logger)}
	if databaseURL != "" {
		cfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  databaseURL,
			PreferSimpleProtocol: true,
		}), cfg)
	} else {
		if dataPath == "" {
			dataPath = "compliance.db"
		}
		db, err = gorm.Open(sqlite.Open(dataPath), cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&APIKey{}, &APIUsage{}, &MasterUser{},
		&BusinessUnit{}, &Post{}, &TargetOverride{}, &ViewSettings{},
	)
}
