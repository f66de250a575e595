package app

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/arnavshah/compliance-api-go/pkg/config"
	"github.com/arnavshah/compliance-api-go/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataPath:           fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		ReportAPIURL:       "http://127.0.0.1:1/reports",
		MaxRangeDays:       31,
		DefaultShiftTarget: 3,
		JWTSecret:          "jwt",
		APIMasterSecret:    "master",
		AdminUsername:      "admin",
		AdminPassword:      "pw",
	}
}

// captureDB records the connection New opens
func captureDB(t *testing.T) **gorm.DB {
	var opened *gorm.DB
	orig := openDB
	openDB = func(databaseURL, dataPath string) (*gorm.DB, error) {
		db, err := database.Open(databaseURL, dataPath)
		opened = db
		return db, err
	}
	t.Cleanup(func() { openDB = orig })
	return &opened
}

func TestNew(t *testing.T) {
	opened := captureDB(t)
	cfg := testConfig(t)

	h, cleanup, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, h.Loader)
	assert.Nil(t, h.Cache)
	assert.Equal(t, 3, h.Targets.For("any"))

	var users []database.MasterUser
	require.NoError(t, h.DB.Find(&users).Error)
	assert.Len(t, users, 1)

	cleanup()
	sqlDB, err := (*opened).DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}

func TestNew_ClosesDatabaseOnFailure(t *testing.T) {
	opened := captureDB(t)
	cfg := testConfig(t)
	cfg.TargetsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, _, err := New(cfg)
	require.Error(t, err)
	require.NotNil(t, *opened)

	sqlDB, err := (*opened).DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}
